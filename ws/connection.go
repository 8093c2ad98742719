package ws

import (
	"context"
	"devmatch/domain"
	"devmatch/domain/event"
	"devmatch/services"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
)

type Timeouts struct {
	WriteWait      time.Duration
	PongWait       time.Duration
	MaxMessageSize int64
}

func (t Timeouts) pingPeriod() time.Duration {
	return (t.PongWait * 9) / 10
}

// Connection pumps frames between one websocket and the chat service.
// The read pump is the only reader and the write pump the only writer of the socket.
type Connection struct {
	log      *slog.Logger
	conn     *websocket.Conn
	sink     *ConnectionSink
	service  services.IChatService
	handle   domain.Handle
	timeouts Timeouts
}

func NewConnection(log *slog.Logger, conn *websocket.Conn, sink *ConnectionSink,
	service services.IChatService, handle domain.Handle, timeouts Timeouts) *Connection {
	return &Connection{
		log:      log,
		conn:     conn,
		sink:     sink,
		service:  service,
		handle:   handle,
		timeouts: timeouts,
	}
}

// Serve blocks until the connection is gone, then closes the session exactly once.
func (c *Connection) Serve(ctx context.Context) {
	done := make(chan struct{})
	go c.writePump(ctx, done)
	c.readPump(ctx)
	close(done)

	// The session must be closed even when the server is shutting down.
	disconnectCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeouts.WriteWait)
	defer cancel()
	if err := c.service.Disconnect(disconnectCtx, c.handle); err != nil {
		c.log.Warn("Failed to close session", "error", err)
	}
}

func (c *Connection) readPump(ctx context.Context) {
	defer func() { _ = c.conn.Close() }()

	c.conn.SetReadLimit(c.timeouts.MaxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(c.timeouts.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.timeouts.PongWait))
	})

	for {
		_, frame, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Info("Connection lost", "error", err)
			}
			return
		}
		if err := c.dispatch(ctx, frame); err != nil {
			c.log.Warn("Stop reading", "error", err)
			return
		}
	}
}

// dispatch returns an error only when the session can no longer be served.
func (c *Connection) dispatch(ctx context.Context, frame []byte) error {
	cmd, ackID, err := Decode(c.handle, frame)
	if err != nil {
		c.log.Debug("Rejected frame", "error", err)
		c.reject(ctx, ackID, err)
		return nil
	}

	switch command := cmd.(type) {
	case domain.SendMessageCommand:
		return c.service.Send(ctx, command)
	case domain.JoinRoomCommand:
		return c.service.JoinRoom(ctx, command)
	case domain.RelayCommand:
		return c.service.Relay(ctx, command)
	}
	return nil
}

func (c *Connection) reject(ctx context.Context, ackID *int64, err error) {
	var evt event.ServerEvent = event.Failure{Err: err}
	if ackID != nil {
		evt = event.Ack{AckID: *ackID, Err: err}
	}
	_ = c.sink.Consume(ctx, evt)
}

func (c *Connection) writePump(ctx context.Context, done <-chan struct{}) {
	ticker := time.NewTicker(c.timeouts.pingPeriod())
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case frame := <-c.sink.Frames():
			if err := c.write(websocket.TextMessage, frame); err != nil {
				c.log.Debug("Write failed", "error", err)
				return
			}
		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.sink.Overflow():
			c.log.Warn("Closing slow connection")
			_ = c.write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "too slow"))
			return
		case <-ctx.Done():
			_ = c.write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutdown"))
			return
		case <-done:
			return
		}
	}
}

func (c *Connection) write(messageType int, data []byte) error {
	_ = c.conn.SetWriteDeadline(time.Now().Add(c.timeouts.WriteWait))
	return c.conn.WriteMessage(messageType, data)
}
