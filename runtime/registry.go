package runtime

import (
	"devmatch/contract"
	"devmatch/domain"
	"sort"

	"github.com/samber/lo"
)

var _ contract.IRegistry = (*Registry)(nil)

// Registry is the presence table of the process.
// It maps a user identity to the set of its live connections and keeps a reverse
// index from connection to identity so a disconnect resolves in one lookup.
//
// Registry is not safe for concurrent use: it is owned by the Dispatcher loop,
// which is its only writer and reader.
type Registry struct {
	connections map[string]map[domain.Handle]contract.EventSink // map identity -> handle -> Sink
	owners      map[domain.Handle]string                        // map handle -> identity
}

func NewRegistry() *Registry {
	return &Registry{
		connections: make(map[string]map[domain.Handle]contract.EventSink),
		owners:      make(map[domain.Handle]string),
	}
}

// Register adds a connection to the identity, creating the identity entry on the fly.
// Registering the same handle twice for the same identity changes nothing and returns false.
// A handle registered under another identity is moved.
func (r *Registry) Register(identity string, handle domain.Handle, sink contract.EventSink) bool {
	if owner, ok := r.owners[handle]; ok {
		if owner == identity {
			return false
		}
		r.Deregister(handle)
	}

	if _, ok := r.connections[identity]; !ok {
		r.connections[identity] = make(map[domain.Handle]contract.EventSink)
	}
	r.connections[identity][handle] = sink
	r.owners[handle] = identity
	return true
}

// Deregister removes the connection from whichever identity owns it.
// When it was the identity's last connection the identity goes offline.
// Unknown handles are a no-op since disconnect races are expected.
func (r *Registry) Deregister(handle domain.Handle) (string, bool) {
	identity, ok := r.owners[handle]
	if !ok {
		return "", false
	}
	delete(r.owners, handle)

	if handles, ok := r.connections[identity]; ok {
		delete(handles, handle)

		// If no connection is left, the identity is offline
		if len(handles) == 0 {
			delete(r.connections, identity)
		}
	}
	return identity, true
}

// HandlesFor returns the live connections of an identity, sorted. Empty means offline.
func (r *Registry) HandlesFor(identity string) []domain.Handle {
	handles := lo.Keys(r.connections[identity])
	sort.Slice(handles, func(i, j int) bool { return handles[i] < handles[j] })
	return handles
}

// SinksFor returns the sinks of every live connection of an identity, in HandlesFor order.
func (r *Registry) SinksFor(identity string) []contract.EventSink {
	handles := r.connections[identity]
	return lo.Map(r.HandlesFor(identity), func(h domain.Handle, _ int) contract.EventSink {
		return handles[h]
	})
}

// OnlineIdentities returns every identity with at least one live connection, sorted.
func (r *Registry) OnlineIdentities() []string {
	identities := lo.Keys(r.connections)
	sort.Strings(identities)
	return identities
}
