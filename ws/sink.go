package ws

import (
	"context"
	"devmatch/contract"
	"devmatch/domain/event"
	"devmatch/errors"
	"sync"
)

var _ contract.EventSink = (*ConnectionSink)(nil)

// ConnectionSink buffers the frames of one connection until its write pump sends them.
// It never blocks the dispatcher: when the buffer is full the connection is flagged
// as a slow consumer and gets closed by its write pump.
type ConnectionSink struct {
	frames   chan []byte
	overflow chan struct{}
	once     sync.Once
}

func NewConnectionSink(bufferSize int) *ConnectionSink {
	return &ConnectionSink{
		frames:   make(chan []byte, bufferSize),
		overflow: make(chan struct{}),
	}
}

func (s *ConnectionSink) Consume(_ context.Context, e event.ServerEvent) error {
	frame, err := Encode(e)
	if err != nil {
		return err
	}
	select {
	case <-s.overflow:
		return errors.ErrSlowConsumer
	default:
	}
	select {
	case s.frames <- frame:
		return nil
	default:
		s.once.Do(func() { close(s.overflow) })
		return errors.ErrSlowConsumer
	}
}

// Frames is drained by the write pump. It is never closed.
func (s *ConnectionSink) Frames() <-chan []byte { return s.frames }

// Overflow is closed once the connection fell behind.
func (s *ConnectionSink) Overflow() <-chan struct{} { return s.overflow }
