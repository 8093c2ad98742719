package runtime

import (
	"context"
	"devmatch/contract"
	"devmatch/domain/event"
	"log/slog"
)

// Broadcaster announces the full set of online identities, never a diff,
// so a client that missed an update heals on the next one.
type Broadcaster struct {
	log      *slog.Logger
	registry contract.IRegistry
}

func NewBroadcaster(log *slog.Logger, registry contract.IRegistry) *Broadcaster {
	return &Broadcaster{log: log, registry: registry}
}

func (b *Broadcaster) Snapshot() event.PresenceUpdate {
	online := b.registry.OnlineIdentities()
	if online == nil {
		online = []string{}
	}
	return event.PresenceUpdate{Online: online}
}

// Broadcast pushes the current snapshot to every given connection. Fire-and-forget.
func (b *Broadcaster) Broadcast(ctx context.Context, sinks []contract.EventSink) {
	snapshot := b.Snapshot()
	b.log.Debug("Broadcasting presence", "online", len(snapshot.Online), "connections", len(sinks))
	for _, sink := range sinks {
		if err := sink.Consume(ctx, snapshot); err != nil {
			b.log.Debug("Presence update lost", "error", err)
		}
	}
}
