package runtime

import (
	"devmatch/contract"
	"devmatch/domain"
	"fmt"
)

type SessionState int

const (
	StateConnecting SessionState = iota
	StateIdentified
	StateAnonymous
	StateClosed
)

func (s SessionState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateIdentified:
		return "identified"
	case StateAnonymous:
		return "anonymous"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("SessionState(%d)", int(s))
	}
}

// Session is one live transport connection as seen by the dispatcher.
//
//	Connecting -> Identified -> Closed
//	Connecting -> Anonymous  -> Closed
//
// An anonymous session only takes part in the room relay.
// A reconnecting client always gets a new Session with a new Handle.
type Session struct {
	handle   domain.Handle
	identity string
	state    SessionState
	sink     contract.EventSink
}

func NewSession(handle domain.Handle, sink contract.EventSink) *Session {
	return &Session{handle: handle, state: StateConnecting, sink: sink}
}

// Identify leaves the Connecting state.
// An empty identity makes the session anonymous.
func (s *Session) Identify(identity string) error {
	if s.state != StateConnecting {
		return fmt.Errorf("session %s cannot be identified while %s", s.handle, s.state)
	}
	s.identity = identity
	if identity == "" {
		s.state = StateAnonymous
		return nil
	}
	s.state = StateIdentified
	return nil
}

// Close moves the session to its terminal state.
// It reports true only the first time so teardown runs exactly once.
func (s *Session) Close() bool {
	if s.state == StateClosed {
		return false
	}
	s.state = StateClosed
	return true
}

func (s *Session) Handle() domain.Handle { return s.handle }

func (s *Session) Identity() string { return s.identity }

func (s *Session) State() SessionState { return s.state }

func (s *Session) Sink() contract.EventSink { return s.sink }
