package runtime

import (
	"context"
	"devmatch/domain"
	"devmatch/domain/event"
	"sync"
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	mu     sync.Mutex
	events []event.ServerEvent
	err    error
}

func (s *recordingSink) Consume(_ context.Context, e event.ServerEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, e)
	return nil
}

func (s *recordingSink) Events() []event.ServerEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]event.ServerEvent(nil), s.events...)
}

func (s *recordingSink) Delivered() []domain.Message {
	return lo.FilterMap(s.Events(), func(e event.ServerEvent, _ int) (domain.Message, bool) {
		d, ok := e.(event.MessageDelivered)
		return d.Message, ok
	})
}

func (s *recordingSink) Presence() [][]string {
	return lo.FilterMap(s.Events(), func(e event.ServerEvent, _ int) ([]string, bool) {
		p, ok := e.(event.PresenceUpdate)
		return p.Online, ok
	})
}

func (s *recordingSink) Acks() []event.Ack {
	return lo.FilterMap(s.Events(), func(e event.ServerEvent, _ int) (event.Ack, bool) {
		a, ok := e.(event.Ack)
		return a, ok
	})
}

func (s *recordingSink) RoomUpdates() []event.RoomUpdate {
	return lo.FilterMap(s.Events(), func(e event.ServerEvent, _ int) (event.RoomUpdate, bool) {
		u, ok := e.(event.RoomUpdate)
		return u, ok
	})
}

func TestRegistry_Register_One_Identity_One_Connection(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	handle := domain.NewHandle()
	sink := &recordingSink{}

	// Given nobody is online
	req.Empty(registry.OnlineIdentities())

	// When a connection registers
	changed := registry.Register("alice", handle, sink)

	// Then the identity is online through that connection
	req.True(changed)
	req.Equal([]string{"alice"}, registry.OnlineIdentities())
	req.Equal([]domain.Handle{handle}, registry.HandlesFor("alice"))
	req.Len(registry.SinksFor("alice"), 1)
	req.Same(sink, registry.SinksFor("alice")[0])
}

func TestRegistry_Register_Is_Idempotent(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	handle := domain.NewHandle()

	// Given a registered connection
	req.True(registry.Register("alice", handle, &recordingSink{}))

	// When it registers again
	changed := registry.Register("alice", handle, &recordingSink{})

	// Then nothing changes
	req.False(changed)
	req.Len(registry.HandlesFor("alice"), 1)
}

func TestRegistry_Register_Moves_Handle_To_Another_Identity(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	handle := domain.NewHandle()

	// Given a connection registered for alice
	registry.Register("alice", handle, &recordingSink{})

	// When the same connection registers for bob
	req.True(registry.Register("bob", handle, &recordingSink{}))

	// Then alice is offline
	req.Equal([]string{"bob"}, registry.OnlineIdentities())
	req.Empty(registry.HandlesFor("alice"))
}

func TestRegistry_Multiple_Connections_Per_Identity(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	h1, h2 := domain.Handle("h1"), domain.Handle("h2")

	// When alice connects from two tabs
	registry.Register("alice", h2, &recordingSink{})
	registry.Register("alice", h1, &recordingSink{})

	// Then both connections are listed, sorted
	req.Equal([]domain.Handle{h1, h2}, registry.HandlesFor("alice"))

	// When one tab closes
	identity, ok := registry.Deregister(h1)

	// Then alice is still online
	req.True(ok)
	req.Equal("alice", identity)
	req.Equal([]string{"alice"}, registry.OnlineIdentities())
	req.Equal([]domain.Handle{h2}, registry.HandlesFor("alice"))
}

func TestRegistry_Deregister_Last_Connection_Removes_Identity(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	handle := domain.NewHandle()

	// Given alice has one connection
	registry.Register("alice", handle, &recordingSink{})

	// When it closes
	_, ok := registry.Deregister(handle)

	// Then alice is offline
	req.True(ok)
	req.Empty(registry.OnlineIdentities())
	req.Empty(registry.HandlesFor("alice"))
	req.Empty(registry.SinksFor("alice"))
}

func TestRegistry_Deregister_Unknown_Handle_Is_Noop(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	registry.Register("alice", "h1", &recordingSink{})

	// When an unknown connection deregisters, twice
	_, first := registry.Deregister("unknown")
	_, second := registry.Deregister("unknown")

	// Then nothing changes
	req.False(first)
	req.False(second)
	req.Equal([]string{"alice"}, registry.OnlineIdentities())
}

func TestRegistry_Online_Identities_Are_Sorted(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()

	registry.Register("u3", "h3", &recordingSink{})
	registry.Register("u1", "h1", &recordingSink{})
	registry.Register("u2", "h2", &recordingSink{})

	req.Equal([]string{"u1", "u2", "u3"}, registry.OnlineIdentities())
}
