package repositories

import (
	"devmatch/domain"
	"fmt"
	"time"

	"github.com/google/uuid"
	"google.golang.org/protobuf/encoding/protowire"
)

// Stored messages use the protobuf wire format with the following field numbers.
// Unknown fields are skipped on read so the layout can grow.
const (
	fieldID        protowire.Number = 1
	fieldSender    protowire.Number = 2
	fieldReceiver  protowire.Number = 3
	fieldBody      protowire.Number = 4
	fieldCreatedAt protowire.Number = 5
)

func encodeMessage(message domain.Message) []byte {
	var b []byte
	b = protowire.AppendTag(b, fieldID, protowire.BytesType)
	b = protowire.AppendString(b, message.ID.String())
	b = protowire.AppendTag(b, fieldSender, protowire.BytesType)
	b = protowire.AppendString(b, message.SenderID)
	b = protowire.AppendTag(b, fieldReceiver, protowire.BytesType)
	b = protowire.AppendString(b, message.ReceiverID)
	b = protowire.AppendTag(b, fieldBody, protowire.BytesType)
	b = protowire.AppendString(b, message.Body)
	b = protowire.AppendTag(b, fieldCreatedAt, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(message.CreatedAt.UnixNano()))
	return b
}

// DecodeMessage reads a stored message value.
func DecodeMessage(b []byte) (domain.Message, error) {
	var message domain.Message
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return domain.Message{}, protowire.ParseError(n)
		}
		b = b[n:]

		switch {
		case num == fieldID && typ == protowire.BytesType:
			var value string
			value, n = protowire.ConsumeString(b)
			if n >= 0 {
				id, err := uuid.Parse(value)
				if err != nil {
					return domain.Message{}, err
				}
				message.ID = id
			}
		case num == fieldSender && typ == protowire.BytesType:
			message.SenderID, n = protowire.ConsumeString(b)
		case num == fieldReceiver && typ == protowire.BytesType:
			message.ReceiverID, n = protowire.ConsumeString(b)
		case num == fieldBody && typ == protowire.BytesType:
			message.Body, n = protowire.ConsumeString(b)
		case num == fieldCreatedAt && typ == protowire.VarintType:
			var value uint64
			value, n = protowire.ConsumeVarint(b)
			message.CreatedAt = time.Unix(0, int64(value)).UTC()
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
		}
		if n < 0 {
			return domain.Message{}, fmt.Errorf("field %d: %w", num, protowire.ParseError(n))
		}
		b = b[n:]
	}
	if message.ID == uuid.Nil {
		return domain.Message{}, fmt.Errorf("message without id")
	}
	return message, nil
}
