// Package domain contains core concepts of the chat system.
// This file defines connection handles.
// No runtime, network, or UI logic should be added here.
package domain

import (
	"github.com/google/uuid"
)

// Handle identifies one live transport connection.
// Exactly one handle exists per socket and handles are never reused.
type Handle string

func NewHandle() Handle {
	return Handle(uuid.NewString())
}

func (h Handle) String() string {
	return string(h)
}
