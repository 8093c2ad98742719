package runtime

import (
	"context"
	"log/slog"
	"testing"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

func TestBroadcaster_Snapshot_Is_Never_Nil(t *testing.T) {
	req := require.New(t)
	broadcaster := NewBroadcaster(logs.GetLoggerFromLevel(slog.LevelDebug), NewRegistry())

	snapshot := broadcaster.Snapshot()

	req.NotNil(snapshot.Online)
	req.Empty(snapshot.Online)
}

func TestBroadcaster_Pushes_Full_Sorted_Set(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	broadcaster := NewBroadcaster(logs.GetLoggerFromLevel(slog.LevelDebug), registry)
	s1, s2 := &recordingSink{}, &recordingSink{}

	// Given two users online
	registry.Register("u2", "h2", s2)
	registry.Register("u1", "h1", s1)

	// When presence is broadcast, including to an anonymous connection
	anonymous := &recordingSink{}
	broadcaster.Broadcast(context.Background(), append(registry.SinksFor("u1"), s2, anonymous))

	// Then everybody gets the full set
	for _, sink := range []*recordingSink{s1, s2, anonymous} {
		req.Equal([][]string{{"u1", "u2"}}, sink.Presence())
	}
}
