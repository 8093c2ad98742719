// Package ws carries the real-time core over websocket connections.
//
// Every frame is a JSON envelope {"event", "data", "ack"}. A client sets ack on
// send-message to get the outcome back on the same connection as an ack event.
package ws

import (
	"devmatch/domain"
	"devmatch/domain/event"
	"devmatch/errors"
	"encoding/json"
	"fmt"
	"time"
)

type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
	Ack   *int64          `json:"ack,omitempty"`
}

type SendMessagePayload struct {
	SenderIdentity   string `json:"senderIdentity"`
	ReceiverIdentity string `json:"receiverIdentity"`
	Body             string `json:"body"`
}

type JoinRoomPayload struct {
	RoomKey string `json:"roomKey"`
}

type RelayPayload struct {
	RoomKey string          `json:"roomKey"`
	Payload json.RawMessage `json:"payload"`
}

type MessagePayload struct {
	ID               string    `json:"id"`
	SenderIdentity   string    `json:"senderIdentity"`
	ReceiverIdentity string    `json:"receiverIdentity"`
	Body             string    `json:"body"`
	CreatedAt        time.Time `json:"createdAt"`
}

type AckPayload struct {
	OK      bool            `json:"ok"`
	Message *MessagePayload `json:"message,omitempty"`
	Error   string          `json:"error,omitempty"`
	Code    string          `json:"code,omitempty"`
}

type RoomUpdatePayload struct {
	RoomKey string          `json:"roomKey"`
	Payload json.RawMessage `json:"payload"`
}

type ErrorPayload struct {
	Event string `json:"event,omitempty"`
	Error string `json:"error"`
	Code  string `json:"code"`
}

func ToMessagePayload(m domain.Message) MessagePayload {
	return MessagePayload{
		ID:               m.ID.String(),
		SenderIdentity:   m.SenderID,
		ReceiverIdentity: m.ReceiverID,
		Body:             m.Body,
		CreatedAt:        m.CreatedAt,
	}
}

// Encode turns a server event into a frame.
func Encode(e event.ServerEvent) ([]byte, error) {
	var (
		data any
		ack  *int64
	)
	switch evt := e.(type) {
	case event.MessageDelivered:
		data = ToMessagePayload(evt.Message)
	case event.PresenceUpdate:
		online := evt.Online
		if online == nil {
			online = []string{}
		}
		data = online
	case event.RoomUpdate:
		data = RoomUpdatePayload{RoomKey: string(evt.Room), Payload: rawOrNull(evt.Payload)}
	case event.Ack:
		ack = &evt.AckID
		data = toAckPayload(evt)
	case event.Failure:
		data = ErrorPayload{Event: evt.Event, Error: evt.Err.Error(), Code: errors.Code(evt.Err)}
	default:
		return nil, fmt.Errorf("%w: %T", errors.ErrUnknownEvent, e)
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: e.Name(), Data: raw, Ack: ack})
}

func toAckPayload(a event.Ack) AckPayload {
	if !a.OK() {
		return AckPayload{OK: false, Error: a.Err.Error(), Code: errors.Code(a.Err)}
	}
	payload := AckPayload{OK: true}
	if a.Message != nil {
		message := ToMessagePayload(*a.Message)
		payload.Message = &message
	}
	return payload
}

func rawOrNull(payload []byte) json.RawMessage {
	if len(payload) == 0 {
		return json.RawMessage("null")
	}
	return payload
}

// Decode turns a client frame into a command for the given connection.
// The returned ack id is set whenever the frame carried one, even if decoding failed.
func Decode(handle domain.Handle, frame []byte) (domain.Command, *int64, error) {
	var envelope Envelope
	if err := json.Unmarshal(frame, &envelope); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", errors.ErrInvalidPayload, err)
	}

	switch envelope.Event {
	case event.SendMessageName:
		var p SendMessagePayload
		if err := unmarshalData(envelope.Data, &p); err != nil {
			return nil, envelope.Ack, err
		}
		return domain.SendMessageCommand{
			Handle:     handle,
			SenderID:   p.SenderIdentity,
			ReceiverID: p.ReceiverIdentity,
			Body:       p.Body,
			AckID:      envelope.Ack,
		}, envelope.Ack, nil
	case event.JoinRoomName:
		var p JoinRoomPayload
		if err := unmarshalData(envelope.Data, &p); err != nil {
			return nil, envelope.Ack, err
		}
		return domain.JoinRoomCommand{Handle: handle, Room: domain.RoomKey(p.RoomKey)}, envelope.Ack, nil
	case event.RoomRelayName:
		var p RelayPayload
		if err := unmarshalData(envelope.Data, &p); err != nil {
			return nil, envelope.Ack, err
		}
		return domain.RelayCommand{Handle: handle, Room: domain.RoomKey(p.RoomKey), Payload: p.Payload}, envelope.Ack, nil
	default:
		return nil, envelope.Ack, fmt.Errorf("%w: %q", errors.ErrUnknownEvent, envelope.Event)
	}
}

func unmarshalData(data json.RawMessage, v any) error {
	if len(data) == 0 {
		return fmt.Errorf("%w: missing data", errors.ErrInvalidPayload)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrInvalidPayload, err)
	}
	return nil
}
