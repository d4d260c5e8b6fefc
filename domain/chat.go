// Package domain contains core concepts of the chat system.
// This file defines Chat records. A private chat always has exactly two
// participants and at most one record exists per unordered pair; a group
// chat keeps owner ∈ admins ⊆ participants.
package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type ChatKind string

const (
	ChatPrivate ChatKind = "private"
	ChatGroup   ChatKind = "group"
)

type Chat struct {
	ID           uuid.UUID   `json:"id"`
	Kind         ChatKind    `json:"kind"`
	Participants []uuid.UUID `json:"participants"`
	Admins       []uuid.UUID `json:"admins"`
	Owner        *uuid.UUID  `json:"owner,omitempty"`
	Name         string      `json:"name"`
	Avatar       string      `json:"avatar"`
	Description  string      `json:"description"`
	CreatedAt    time.Time   `json:"createdAt"`
}

// HasParticipant reports whether id belongs to the chat.
func (c Chat) HasParticipant(id uuid.UUID) bool {
	for _, p := range c.Participants {
		if p == id {
			return true
		}
	}
	return false
}

// OtherParticipant returns the peer of id in a private chat.
// The second return is false when id is not one of the two participants.
func (c Chat) OtherParticipant(id uuid.UUID) (uuid.UUID, bool) {
	if c.Kind != ChatPrivate || len(c.Participants) != 2 {
		return uuid.Nil, false
	}
	switch id {
	case c.Participants[0]:
		return c.Participants[1], true
	case c.Participants[1]:
		return c.Participants[0], true
	}
	return uuid.Nil, false
}

// PairKey returns the canonical key for an unordered pair of identities.
// Both argument orders produce the same key, which is what makes the
// one-private-chat-per-pair index possible.
func PairKey(a, b uuid.UUID) string {
	first, second := a.String(), b.String()
	if strings.Compare(first, second) > 0 {
		first, second = second, first
	}
	return first + ":" + second
}

// ChatView is a Chat decorated for a specific reader: the last message, and
// for private chats the peer's live display fields resolved at read time.
type ChatView struct {
	Chat
	LastMessage  *Message   `json:"lastMessage,omitempty"`
	PeerID       *uuid.UUID `json:"peerId,omitempty"`
	PeerOnline   bool       `json:"peerOnline"`
	PeerLastSeen *time.Time `json:"peerLastSeen,omitempty"`
}
