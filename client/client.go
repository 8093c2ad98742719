// Package client is a websocket client of the real-time core, used by the tester CLI and tests.
package client

import (
	"context"
	"devmatch/domain/event"
	"devmatch/ws"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

type Client struct {
	mu       sync.Mutex
	conn     *websocket.Conn
	identity string
	nextAck  int64
}

// Dial opens a connection. An empty identity and token open an anonymous connection.
func Dial(ctx context.Context, serverURL, identity, token string) (*Client, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return nil, err
	}
	u.Scheme = strings.Replace(u.Scheme, "http", "ws", 1)
	u.Path = "/ws"
	if identity != "" {
		u.RawQuery = url.Values{"identity": {identity}}.Encode()
	}

	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, u.String(), header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: %w (status %d)", u.Redacted(), err, resp.StatusCode)
		}
		return nil, fmt.Errorf("dial %s: %w", u.Redacted(), err)
	}
	return &Client{conn: conn, identity: identity}, nil
}

// Send writes a chat message and returns the ack id to wait for.
func (c *Client) Send(receiver, body string) (int64, error) {
	c.mu.Lock()
	c.nextAck++
	ackID := c.nextAck
	c.mu.Unlock()
	return ackID, c.write(event.SendMessageName, ws.SendMessagePayload{
		SenderIdentity:   c.identity,
		ReceiverIdentity: receiver,
		Body:             body,
	}, &ackID)
}

func (c *Client) JoinRoom(room string) error {
	return c.write(event.JoinRoomName, ws.JoinRoomPayload{RoomKey: room}, nil)
}

func (c *Client) Relay(room string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return c.write(event.RoomRelayName, ws.RelayPayload{RoomKey: room, Payload: raw}, nil)
}

func (c *Client) write(name string, data any, ackID *int64) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(ws.Envelope{Event: name, Data: raw, Ack: ackID})
}

// Next waits for the next server frame.
func (c *Client) Next(timeout time.Duration) (ws.Envelope, error) {
	var envelope ws.Envelope
	if err := c.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return envelope, err
	}
	err := c.conn.ReadJSON(&envelope)
	return envelope, err
}

// Await skips frames until one with the given event name arrives.
func (c *Client) Await(name string, timeout time.Duration) (ws.Envelope, error) {
	deadline := time.Now().Add(timeout)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return ws.Envelope{}, fmt.Errorf("no %s event within %s", name, timeout)
		}
		envelope, err := c.Next(remaining)
		if err != nil {
			return envelope, err
		}
		if envelope.Event == name {
			return envelope, nil
		}
	}
}

func (c *Client) Close() error {
	c.mu.Lock()
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	c.mu.Unlock()
	return c.conn.Close()
}
