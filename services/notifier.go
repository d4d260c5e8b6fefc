package services

import "parley/domain"

// Notifier pushes domain events to live connections. The real-time gateway
// implements it; services stay unaware of transports.
type Notifier interface {
	// ChatCreated notifies the chat's participants that the chat exists.
	ChatCreated(chat domain.Chat)
	// NewMessage delivers a freshly appended message to every participant
	// with a live connection, whether or not they joined the chat's room.
	NewMessage(chat domain.Chat, message domain.Message)
}

// NopNotifier discards every event. Used when no gateway is attached.
type NopNotifier struct{}

func (NopNotifier) ChatCreated(domain.Chat)                {}
func (NopNotifier) NewMessage(domain.Chat, domain.Message) {}
