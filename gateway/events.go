package gateway

import "github.com/google/uuid"

// Client → server event names.
const (
	evtAuthenticate = "authenticate"
	evtJoinChat     = "join-chat"
	evtLeaveChat    = "leave-chat"
	evtTyping       = "typing"
)

// Server → client event names.
const (
	evtAuthenticated = "authenticated"
	evtUsersOnline   = "users-online"
	evtChatCreated   = "chat-created"
	evtNewMessage    = "new-message"
	evtUserTyping    = "user-typing"
)

// InboundEvent is the envelope for everything a client sends over the
// socket. Which fields matter depends on Type.
type InboundEvent struct {
	Type     string `json:"type"`
	Token    string `json:"token,omitempty"`
	ChatID   string `json:"chatId,omitempty"`
	IsTyping bool   `json:"isTyping,omitempty"`
}

// OutboundEvent is the envelope for everything the server pushes.
type OutboundEvent struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

type authAck struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

type typingPayload struct {
	UserID   uuid.UUID `json:"userId"`
	Handle   string    `json:"handle"`
	ChatID   uuid.UUID `json:"chatId"`
	IsTyping bool      `json:"isTyping"`
}
