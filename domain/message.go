// Package domain contains core concepts of the chat system.
// This file defines Message events and related rules.
// Messages are immutable once persisted by the message store.
package domain

import (
	"github.com/google/uuid"
	"time"
)

// Message represents a persisted chat message between two users.
// ID and CreatedAt are assigned by the store at persistence time.
type Message struct {
	ID         uuid.UUID
	SenderID   string
	ReceiverID string
	Body       string
	CreatedAt  time.Time
}

// Pair returns the unordered pair of identities the message belongs to.
func (m Message) Pair() Pair {
	return NewPair(m.SenderID, m.ReceiverID)
}
