// Package domain contains core concepts of the chat system.
// This file defines Message events. Messages are immutable once appended,
// except for the Edited flag; order within a chat is append order.
package domain

import (
	"time"

	"github.com/google/uuid"
)

type MessageKind string

const (
	MessageText   MessageKind = "text"
	MessageSystem MessageKind = "system"
)

// SystemSender is the reserved sender id for server-generated messages.
const SystemSender = "system"

// Message represents an immutable chat event.
type Message struct {
	ID        uuid.UUID   `json:"id"`
	ChatID    uuid.UUID   `json:"chatId"`
	SenderID  string      `json:"senderId"`
	Content   string      `json:"content"`
	Kind      MessageKind `json:"kind"`
	CreatedAt time.Time   `json:"createdAt"`
	Edited    bool        `json:"edited"`
}
