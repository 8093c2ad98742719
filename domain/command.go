package domain

// Command is a client intent received on a live connection.
type Command interface {
	HandleID() Handle
}

// SendMessageCommand asks the broker to persist then deliver a chat message.
// AckID is set when the client expects an acknowledgment.
type SendMessageCommand struct {
	Handle     Handle
	SenderID   string `validate:"required,notblank"`
	ReceiverID string `validate:"required,notblank"`
	Body       string `validate:"notblank"`
	AckID      *int64
}

func (c SendMessageCommand) HandleID() Handle {
	return c.Handle
}

// JoinRoomCommand subscribes a connection to an ephemeral code room.
type JoinRoomCommand struct {
	Handle Handle
	Room   RoomKey `validate:"notblank"`
}

func (c JoinRoomCommand) HandleID() Handle {
	return c.Handle
}

// RelayCommand forwards an opaque payload to the other members of a room.
type RelayCommand struct {
	Handle  Handle
	Room    RoomKey `validate:"notblank"`
	Payload []byte
}

func (c RelayCommand) HandleID() Handle {
	return c.Handle
}
