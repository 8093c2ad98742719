package runtime_test

import (
	"context"
	"devmatch/domain"
	"devmatch/domain/event"
	"devmatch/repositories"
	"devmatch/runtime"
	"devmatch/runtime/workers"
	"log/slog"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

type channelSink struct {
	events chan event.ServerEvent
}

func (s channelSink) Consume(_ context.Context, e event.ServerEvent) error {
	s.events <- e
	return nil
}

func next[T event.ServerEvent](t *testing.T, sink channelSink) T {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case e := <-sink.events:
			if typed, ok := e.(T); ok {
				return typed
			}
		case <-timeout:
			var zero T
			t.Fatalf("no %s event received", zero.Name())
			return zero
		}
	}
}

func Test_Orchestrator_Persists_And_Delivers(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLoggingLevel(badger.ERROR))
	req.NoError(err)
	defer db.Close()
	repository := repositories.NewMessageRepository(db, log, nil)

	orchestrator := runtime.NewOrchestrator(log, workers.NewSupervisor(log, 10*time.Millisecond), repository, runtime.Options{
		NumPersistWorkers: 2,
		BufferSize:        16,
		MaxBodyLength:     100,
		PersistTimeout:    time.Second,
	})
	ctx := context.Background()
	errs := make(chan error, 1)
	go func() { errs <- orchestrator.Start(ctx) }()

	alice := channelSink{events: make(chan event.ServerEvent, 16)}
	bob := channelSink{events: make(chan event.ServerEvent, 16)}
	aliceHandle := domain.NewHandle()
	dispatcher := orchestrator.Dispatcher()

	// Given alice and bob connected
	req.NoError(dispatcher.Connect(ctx, aliceHandle, "alice", alice))
	req.NoError(dispatcher.Connect(ctx, domain.NewHandle(), "bob", bob))
	req.Equal([]string{"alice", "bob"}, next[event.PresenceUpdate](t, bob).Online)

	// When alice writes to bob
	req.NoError(dispatcher.Dispatch(ctx, domain.SendMessageCommand{
		Handle:     aliceHandle,
		SenderID:   "alice",
		ReceiverID: "bob",
		Body:       "hi",
	}))

	// Then both receive the stored copy
	delivered := next[event.MessageDelivered](t, bob).Message
	req.Equal(delivered, next[event.MessageDelivered](t, alice).Message)
	history, _, err := repository.History(ctx, "bob", "alice", nil)
	req.NoError(err)
	req.Equal([]domain.Message{delivered}, history)

	// When the orchestrator stops, Start returns
	orchestrator.Stop()
	req.NoError(<-errs)
}
