// Package domain contains core concepts of the chat system.
// This file defines the User identity record and its invariants:
// id, handle and email are immutable and unique once created.
package domain

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID           uuid.UUID `json:"id"`
	Handle       string    `json:"handle"`
	Email        string    `json:"contactAddress"`
	DisplayName  string    `json:"displayName"`
	Avatar       string    `json:"avatar"`
	Status       string    `json:"statusLine"`
	Bio          string    `json:"bio"`
	PasswordHash string    `json:"-"`
	IsOnline     bool      `json:"isOnline"`
	LastSeenAt   time.Time `json:"lastSeenAt"`
	CreatedAt    time.Time `json:"createdAt"`
}
