package repositories

import (
	"context"
	"devmatch/domain"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
)

func openDB(t *testing.T) *badger.DB {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions("").
		WithInMemory(true).
		WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// tickingClock returns a clock moving forward one second per call.
func tickingClock(start time.Time) func() time.Time {
	var mu sync.Mutex
	current := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		current = current.Add(time.Second)
		return current
	}
}

func Test_Create_Assigns_ID_And_Timestamp(t *testing.T) {
	req := require.New(t)
	at := time.Date(2026, 1, 2, 3, 4, 5, 6, time.UTC)
	repository := NewMessageRepository(openDB(t), slog.Default(), nil).
		WithClock(func() time.Time { return at })

	// When a message is persisted
	message, err := repository.CreateMessage(context.Background(), "u1", "u2", "hi")

	// Then the store stamped it
	req.NoError(err)
	req.NotEqual(uuid.Nil, message.ID)
	req.Equal(at, message.CreatedAt)
	req.Equal("u1", message.SenderID)
	req.Equal("u2", message.ReceiverID)
	req.Equal("hi", message.Body)
}

func Test_Create_Is_Not_Idempotent(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repository := NewMessageRepository(openDB(t), slog.Default(), nil)

	first, err := repository.CreateMessage(ctx, "u1", "u2", "same")
	req.NoError(err)
	second, err := repository.CreateMessage(ctx, "u1", "u2", "same")
	req.NoError(err)

	req.NotEqual(first.ID, second.ID)
	history, _, err := repository.History(ctx, "u1", "u2", nil)
	req.NoError(err)
	req.Len(history, 2)
}

func Test_History_Interleaved_Directions_Are_Sorted(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repository := NewMessageRepository(openDB(t), slog.Default(), nil).
		WithClock(tickingClock(time.Now().UTC()))

	// Given three interleaved sends A->B, B->A, A->B
	a1, err := repository.CreateMessage(ctx, "A", "B", "one")
	req.NoError(err)
	b1, err := repository.CreateMessage(ctx, "B", "A", "two")
	req.NoError(err)
	a2, err := repository.CreateMessage(ctx, "A", "B", "three")
	req.NoError(err)

	// When fetching the history from either side
	fromA, cursor, err := repository.History(ctx, "A", "B", nil)
	req.NoError(err)
	req.Nil(cursor)
	fromB, _, err := repository.History(ctx, "B", "A", nil)
	req.NoError(err)

	// Then both directions come back once, oldest first
	req.Equal([]domain.Message{a1, b1, a2}, fromA)
	req.Equal(fromA, fromB)
}

func Test_History_Ignores_Other_Pairs(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repository := NewMessageRepository(openDB(t), slog.Default(), nil)

	_, err := repository.CreateMessage(ctx, "a", "b", "for ab")
	req.NoError(err)
	_, err = repository.CreateMessage(ctx, "a", "b:1", "for a and b:1")
	req.NoError(err)
	_, err = repository.CreateMessage(ctx, "a", "c", "for ac")
	req.NoError(err)

	history, _, err := repository.History(ctx, "b", "a", nil)
	req.NoError(err)
	req.Len(history, 1)
	req.Equal("for ab", history[0].Body)

	empty, _, err := repository.History(ctx, "b", "c", nil)
	req.NoError(err)
	req.Empty(empty)
}

func Test_History_Non_Decreasing_With_Equal_Timestamps(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	at := time.Now().UTC()
	repository := NewMessageRepository(openDB(t), slog.Default(), nil).
		WithClock(func() time.Time { return at })

	for i := 0; i < 5; i++ {
		_, err := repository.CreateMessage(ctx, "u1", "u2", fmt.Sprintf("m%d", i))
		req.NoError(err)
	}

	history, _, err := repository.History(ctx, "u1", "u2", nil)
	req.NoError(err)
	req.Len(history, 5)
	for i := 1; i < len(history); i++ {
		req.False(history[i].CreatedAt.Before(history[i-1].CreatedAt))
	}
}

func Test_History_Pagination(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repository := NewMessageRepository(openDB(t), slog.Default(), lo.ToPtr(4)).
		WithClock(tickingClock(time.Now().UTC()))

	// Given 10 messages, from the oldest to the newest
	for i := 1; i <= 10; i++ {
		_, err := repository.CreateMessage(ctx, "u1", "u2", fmt.Sprintf("m%d", i))
		req.NoError(err)
	}

	// --- PAGE 1 --- the newest four, oldest first
	page1, cursor1, err := repository.History(ctx, "u1", "u2", nil)
	req.NoError(err)
	req.Equal([]string{"m7", "m8", "m9", "m10"}, bodies(page1))
	req.NotNil(cursor1)

	// --- PAGE 2 --- no duplicate of the previous page
	page2, cursor2, err := repository.History(ctx, "u1", "u2", cursor1)
	req.NoError(err)
	req.Equal([]string{"m3", "m4", "m5", "m6"}, bodies(page2))
	req.NotNil(cursor2)

	// --- PAGE 3 (End) ---
	page3, cursor3, err := repository.History(ctx, "u1", "u2", cursor2)
	req.NoError(err)
	req.Equal([]string{"m1", "m2"}, bodies(page3))
	req.Nil(cursor3)
}

func Test_Create_Fails_On_Closed_Store(t *testing.T) {
	req := require.New(t)
	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLoggingLevel(badger.ERROR))
	req.NoError(err)
	repository := NewMessageRepository(db, slog.Default(), nil)
	req.NoError(db.Close())

	_, err = repository.CreateMessage(context.Background(), "u1", "u2", "hi")
	req.Error(err)
}

func Test_Create_Honors_Canceled_Context(t *testing.T) {
	req := require.New(t)
	repository := NewMessageRepository(openDB(t), slog.Default(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := repository.CreateMessage(ctx, "u1", "u2", "hi")
	req.ErrorIs(err, context.Canceled)
}

func bodies(messages []domain.Message) []string {
	return lo.Map(messages, func(m domain.Message, _ int) string { return m.Body })
}
