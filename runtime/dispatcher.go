package runtime

import (
	"context"
	"devmatch/contract"
	"devmatch/domain"
	"devmatch/domain/event"
	"devmatch/errors"
	"devmatch/runtime/workers"
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

var (
	_ contract.Worker      = (*Dispatcher)(nil)
	_ contract.IDispatcher = (*Dispatcher)(nil)
)

type connected struct {
	handle   domain.Handle
	identity string
	sink     contract.EventSink
}

type disconnected struct {
	handle domain.Handle
}

// Dispatcher is the single event loop of the real-time core.
//
// Connection lifecycle events, client commands and completed writes are handled
// one at a time, in arrival order, so the Registry and the Rooms need no locking.
// Writes to the store run on persistence workers: the loop hands a job over and
// keeps serving other connections until the result comes back.
type Dispatcher struct {
	log         *slog.Logger
	registry    *Registry
	rooms       *Rooms
	broker      *Broker
	broadcaster *Broadcaster
	sessions    map[domain.Handle]*Session
	inbox       chan any
	jobs        chan workers.PersistJob
	results     chan workers.PersistResult
	stopped     chan struct{}
	stopOnce    sync.Once
}

func NewDispatcher(log *slog.Logger, registry *Registry, rooms *Rooms, broker *Broker, bufferSize int) *Dispatcher {
	return &Dispatcher{
		log:         log,
		registry:    registry,
		rooms:       rooms,
		broker:      broker,
		broadcaster: NewBroadcaster(log, registry),
		sessions:    make(map[domain.Handle]*Session),
		inbox:       make(chan any, bufferSize),
		jobs:        make(chan workers.PersistJob, bufferSize),
		results:     make(chan workers.PersistResult, bufferSize),
		stopped:     make(chan struct{}),
	}
}

// Jobs is consumed by the persistence workers.
func (d *Dispatcher) Jobs() <-chan workers.PersistJob { return d.jobs }

// Results is fed by the persistence workers.
func (d *Dispatcher) Results() chan<- workers.PersistResult { return d.results }

// Channels exposes the dispatcher queues for capacity reporting.
func (d *Dispatcher) Channels() []workers.NamedChannel {
	return []workers.NamedChannel{
		{Name: "dispatcher_inbox", Channel: d.inbox},
		{Name: "persist_jobs", Channel: d.jobs},
		{Name: "persist_results", Channel: d.results},
	}
}

// Connect opens a session. An empty identity opens an anonymous session.
// The identity must already be authenticated by the caller.
func (d *Dispatcher) Connect(ctx context.Context, handle domain.Handle, identity string, sink contract.EventSink) error {
	return d.submit(ctx, connected{handle: handle, identity: identity, sink: sink})
}

// Disconnect closes a session. Unknown handles are ignored.
func (d *Dispatcher) Disconnect(ctx context.Context, handle domain.Handle) error {
	return d.submit(ctx, disconnected{handle: handle})
}

func (d *Dispatcher) Dispatch(ctx context.Context, cmd domain.Command) error {
	return d.submit(ctx, cmd)
}

func (d *Dispatcher) submit(ctx context.Context, in any) error {
	select {
	case d.inbox <- in:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-d.stopped:
		return errors.ErrDispatcherStopped
	}
}

func (d *Dispatcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			d.log.Debug("Context done, stopping dispatcher")
			d.stopOnce.Do(func() { close(d.stopped) })
			return nil
		case in := <-d.inbox:
			d.handle(ctx, in)
		case result := <-d.results:
			d.complete(ctx, result)
		}
	}
}

func (d *Dispatcher) handle(ctx context.Context, in any) {
	switch e := in.(type) {
	case connected:
		d.open(ctx, e)
	case disconnected:
		d.close(ctx, e.handle)
	case domain.SendMessageCommand:
		d.send(ctx, e)
	case domain.JoinRoomCommand:
		d.join(ctx, e)
	case domain.RelayCommand:
		d.relay(ctx, e)
	default:
		d.log.Warn(fmt.Sprintf("Not implemented input : %T", e))
	}
}

func (d *Dispatcher) open(ctx context.Context, e connected) {
	if _, ok := d.sessions[e.handle]; ok {
		d.log.Warn("Handle already connected", "handle", e.handle)
		return
	}
	session := NewSession(e.handle, e.sink)
	if err := session.Identify(e.identity); err != nil {
		d.log.Error("Cannot identify session", "handle", e.handle, "error", err)
		return
	}
	d.sessions[e.handle] = session
	d.log.Info("Connection opened", "handle", e.handle, "identity", e.identity, "state", session.State())

	if session.State() == StateIdentified && d.registry.Register(e.identity, e.handle, e.sink) {
		d.broadcaster.Broadcast(ctx, d.sinks())
		return
	}
	// Presence did not change, the newcomer still needs the current set.
	d.broadcaster.Broadcast(ctx, []contract.EventSink{e.sink})
}

func (d *Dispatcher) close(ctx context.Context, handle domain.Handle) {
	session, ok := d.sessions[handle]
	if !ok {
		d.log.Debug("Ignoring close", "handle", handle, "error", errors.ErrUnknownHandle)
		return
	}
	if !session.Close() {
		return
	}
	delete(d.sessions, handle)
	rooms := d.rooms.Leave(handle)
	d.log.Info("Connection closed", "handle", handle, "identity", session.Identity(), "rooms", len(rooms))

	if _, ok := d.registry.Deregister(handle); ok {
		d.broadcaster.Broadcast(ctx, d.sinks())
	}
}

func (d *Dispatcher) send(ctx context.Context, cmd domain.SendMessageCommand) {
	session, ok := d.sessions[cmd.Handle]
	if !ok {
		d.log.Debug("Dropping send", "handle", cmd.Handle, "error", errors.ErrUnknownHandle)
		return
	}
	if err := d.broker.Validate(session, cmd); err != nil {
		d.reply(ctx, session, cmd, nil, err)
		return
	}
	select {
	case d.jobs <- workers.PersistJob{Command: cmd}:
	default:
		d.log.Warn("Persistence queue full, rejecting send", "handle", cmd.Handle)
		d.reply(ctx, session, cmd, nil, errors.ErrPersistQueueFull)
	}
}

// complete runs once the store answered. Delivery to the receiver happens even
// if the originating connection is gone; only its acknowledgment is dropped.
func (d *Dispatcher) complete(ctx context.Context, result workers.PersistResult) {
	session, alive := d.sessions[result.Command.Handle]
	if result.Err != nil {
		d.log.Warn("Message not persisted", "handle", result.Command.Handle, "error", result.Err)
		if alive {
			d.reply(ctx, session, result.Command, nil, result.Err)
		}
		return
	}

	delivered := d.broker.Deliver(ctx, result.Message)
	d.log.Debug("Message delivered", "message_id", result.Message.ID, "connections", delivered)
	if !alive {
		d.log.Debug("Acknowledgment dropped, connection closed", "handle", result.Command.Handle)
		return
	}
	message := result.Message
	d.reply(ctx, session, result.Command, &message, nil)
}

// reply answers the originating connection only.
// Without an acknowledgment id, a failure still reaches the client as an error event.
func (d *Dispatcher) reply(ctx context.Context, session *Session, cmd domain.SendMessageCommand, message *domain.Message, err error) {
	var evt event.ServerEvent
	switch {
	case cmd.AckID != nil:
		evt = event.Ack{AckID: *cmd.AckID, Message: message, Err: err}
	case err != nil:
		evt = event.Failure{Event: event.SendMessageName, Err: err}
	default:
		return
	}
	if pushErr := session.Sink().Consume(ctx, evt); pushErr != nil {
		d.log.Warn("Failed to answer sender", "handle", session.Handle(), "error", pushErr)
	}
}

func (d *Dispatcher) join(ctx context.Context, cmd domain.JoinRoomCommand) {
	session, ok := d.sessions[cmd.Handle]
	if !ok {
		d.log.Debug("Dropping join", "handle", cmd.Handle, "error", errors.ErrUnknownHandle)
		return
	}
	if err := domain.Validate(cmd); err != nil {
		d.fail(ctx, session, event.JoinRoomName, errors.ErrEmptyRoomKey)
		return
	}
	if d.rooms.Join(cmd.Handle, cmd.Room, session.Sink()) {
		d.log.Debug("Room joined", "handle", cmd.Handle, "room", cmd.Room)
	}
}

func (d *Dispatcher) relay(ctx context.Context, cmd domain.RelayCommand) {
	session, ok := d.sessions[cmd.Handle]
	if !ok {
		d.log.Debug("Dropping relay", "handle", cmd.Handle, "error", errors.ErrUnknownHandle)
		return
	}
	if err := domain.Validate(cmd); err != nil {
		d.fail(ctx, session, event.RoomRelayName, errors.ErrEmptyRoomKey)
		return
	}
	relayed := d.rooms.Relay(ctx, cmd.Handle, cmd.Room, cmd.Payload)
	d.log.Debug("Room payload relayed", "room", cmd.Room, "connections", relayed)
}

func (d *Dispatcher) fail(ctx context.Context, session *Session, name string, err error) {
	if pushErr := session.Sink().Consume(ctx, event.Failure{Event: name, Err: err}); pushErr != nil {
		d.log.Debug("Failure not delivered", "handle", session.Handle(), "error", pushErr)
	}
}

// sinks returns every live connection, identified or anonymous, in handle order.
func (d *Dispatcher) sinks() []contract.EventSink {
	handles := make([]domain.Handle, 0, len(d.sessions))
	for handle := range d.sessions {
		handles = append(handles, handle)
	}
	sort.Slice(handles, func(i, j int) bool { return handles[i] < handles[j] })

	sinks := make([]contract.EventSink, 0, len(handles))
	for _, handle := range handles {
		sinks = append(sinks, d.sessions[handle].Sink())
	}
	return sinks
}
