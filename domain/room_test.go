package domain

import (
	"github.com/stretchr/testify/require"
	"testing"
)

func TestPair_Is_Order_Independent(t *testing.T) {
	req := require.New(t)

	req.Equal(NewPair("alice", "bob"), NewPair("bob", "alice"))
	req.Equal(NewPair("alice", "bob").StorageKey(), NewPair("bob", "alice").StorageKey())
	req.Equal(RoomKey("alice-bob"), RoomKeyFor("bob", "alice"))
}

func TestPair_StorageKey_Does_Not_Collide_On_Separators(t *testing.T) {
	req := require.New(t)

	// Given identities that contain the separators used by the key layout
	first := NewPair("a", "b:1")
	second := NewPair("a|b", "1")

	// Then each pair keeps its own key
	req.NotEqual(first.StorageKey(), second.StorageKey())
	req.NotContains(NewPair("a", "b:1").StorageKey(), NewPair("a", "b").StorageKey())
}

func TestMessage_Pair(t *testing.T) {
	req := require.New(t)
	message := Message{SenderID: "u2", ReceiverID: "u1"}

	req.Equal(Pair{Low: "u1", High: "u2"}, message.Pair())
}
