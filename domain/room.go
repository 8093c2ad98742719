package domain

import (
	"fmt"
)

// Pair is an unordered pair of user identities.
// NewPair("b", "a") and NewPair("a", "b") are equal.
type Pair struct {
	Low  string
	High string
}

func NewPair(a, b string) Pair {
	if b < a {
		a, b = b, a
	}
	return Pair{Low: a, High: b}
}

// StorageKey is unambiguous for any identity content, including separators.
func (p Pair) StorageKey() string {
	return fmt.Sprintf("%d:%s|%d:%s", len(p.Low), p.Low, len(p.High), p.High)
}

// RoomKey scopes the ephemeral code-sharing broadcast.
type RoomKey string

// RoomKey derives the code room shared by both participants.
func (p Pair) RoomKey() RoomKey {
	return RoomKey(p.Low + "-" + p.High)
}

func RoomKeyFor(a, b string) RoomKey {
	return NewPair(a, b).RoomKey()
}
