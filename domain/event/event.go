// Package event defines what the server pushes to live connections.
package event

import (
	"devmatch/domain"
)

const (
	MessageDeliveredName = "message-delivered"
	PresenceUpdateName   = "presence-update"
	RoomUpdateName       = "room-update"
	AckName              = "ack"
	FailureName          = "error"
)

// ServerEvent is pushed to a connection sink.
type ServerEvent interface {
	Name() string
}

// MessageDelivered carries the canonical persisted copy of a message.
type MessageDelivered struct {
	Message domain.Message
}

func (MessageDelivered) Name() string { return MessageDeliveredName }

// PresenceUpdate carries the full set of online identities, never a diff.
type PresenceUpdate struct {
	Online []string
}

func (PresenceUpdate) Name() string { return PresenceUpdateName }

// RoomUpdate relays an opaque payload to the other members of a room.
type RoomUpdate struct {
	Room    domain.RoomKey
	Payload []byte
}

func (RoomUpdate) Name() string { return RoomUpdateName }

// Ack answers a send on the originating connection only.
// Message is set on success, Err otherwise.
type Ack struct {
	AckID   int64
	Message *domain.Message
	Err     error
}

func (Ack) Name() string { return AckName }

func (a Ack) OK() bool { return a.Err == nil }

// Failure reports a rejected command when no acknowledgment was requested.
type Failure struct {
	Event string
	Err   error
}

func (Failure) Name() string { return FailureName }

// Client events, used to tag failures.
const (
	SendMessageName = "send-message"
	JoinRoomName    = "join-room"
	RoomRelayName   = "room-relay"
)
