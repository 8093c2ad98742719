package repositories

import (
	"devmatch/domain"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"
)

func TestCodec_Skips_Unknown_Fields(t *testing.T) {
	req := require.New(t)
	message := domain.Message{
		ID:         uuid.New(),
		SenderID:   "u1",
		ReceiverID: "u2",
		Body:       "```go\nfmt.Println(\"hi\")\n```",
		CreatedAt:  time.Unix(0, 1700000000123456789).UTC(),
	}

	// Given a record written by a newer layout with an extra field
	encoded := encodeMessage(message)
	encoded = protowire.AppendTag(encoded, 42, protowire.VarintType)
	encoded = protowire.AppendVarint(encoded, 7)

	decoded, err := DecodeMessage(encoded)
	req.NoError(err)
	req.Equal(message, decoded)
}

func TestCodec_Rejects_Truncated_Record(t *testing.T) {
	req := require.New(t)
	encoded := encodeMessage(domain.Message{ID: uuid.New(), Body: "hello", CreatedAt: time.Now()})

	_, err := DecodeMessage(encoded[:len(encoded)-3])
	req.Error(err)
}
