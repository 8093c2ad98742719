package runtime

import (
	"context"
	"devmatch/contract"
	"devmatch/domain"
	"devmatch/domain/event"
	"sort"

	"github.com/samber/lo"
)

type member struct {
	handle domain.Handle
	sink   contract.EventSink
}

// Rooms tracks ephemeral code-room membership.
// Nothing is persisted: a room exists while it has at least one member.
// Like Registry, Rooms is owned by the Dispatcher loop.
type Rooms struct {
	members map[domain.RoomKey]map[domain.Handle]contract.EventSink // map room -> handle -> Sink
	joined  map[domain.Handle]map[domain.RoomKey]struct{}           // map handle -> rooms
}

func NewRooms() *Rooms {
	return &Rooms{
		members: make(map[domain.RoomKey]map[domain.Handle]contract.EventSink),
		joined:  make(map[domain.Handle]map[domain.RoomKey]struct{}),
	}
}

// Join associates a connection with a room. A connection may join several rooms.
// Joining twice returns false.
func (r *Rooms) Join(handle domain.Handle, room domain.RoomKey, sink contract.EventSink) bool {
	if _, ok := r.members[room][handle]; ok {
		return false
	}
	if _, ok := r.members[room]; !ok {
		r.members[room] = make(map[domain.Handle]contract.EventSink)
	}
	r.members[room][handle] = sink

	if _, ok := r.joined[handle]; !ok {
		r.joined[handle] = make(map[domain.RoomKey]struct{})
	}
	r.joined[handle][room] = struct{}{}
	return true
}

// Leave removes a connection from every room it joined and returns those rooms.
// Empty rooms are removed.
func (r *Rooms) Leave(handle domain.Handle) []domain.RoomKey {
	rooms := lo.Keys(r.joined[handle])
	for _, room := range rooms {
		if members, ok := r.members[room]; ok {
			delete(members, handle)
			if len(members) == 0 {
				delete(r.members, room)
			}
		}
	}
	delete(r.joined, handle)
	sort.Slice(rooms, func(i, j int) bool { return rooms[i] < rooms[j] })
	return rooms
}

// Relay pushes the payload to every other member of the room.
// The sender never gets its own payload back: it already holds the state it sent.
// It returns the number of connections reached.
func (r *Rooms) Relay(ctx context.Context, from domain.Handle, room domain.RoomKey, payload []byte) int {
	update := event.RoomUpdate{Room: room, Payload: payload}
	relayed := 0
	for _, sink := range r.recipients(room, from) {
		if err := sink.Consume(ctx, update); err == nil {
			relayed++
		}
	}
	return relayed
}

// recipients returns every member of the room except the sender.
// The sender does not need to be a member itself.
func (r *Rooms) recipients(room domain.RoomKey, from domain.Handle) []contract.EventSink {
	var recipients []member
	for handle, sink := range r.members[room] {
		if handle == from {
			continue
		}
		recipients = append(recipients, member{handle: handle, sink: sink})
	}
	sort.Slice(recipients, func(i, j int) bool { return recipients[i].handle < recipients[j].handle })
	return lo.Map(recipients, func(m member, _ int) contract.EventSink { return m.sink })
}

// Members returns the connections currently in the room, sorted.
func (r *Rooms) Members(room domain.RoomKey) []domain.Handle {
	handles := lo.Keys(r.members[room])
	sort.Slice(handles, func(i, j int) bool { return handles[i] < handles[j] })
	return handles
}
