package ws_test

import (
	"context"
	"devmatch/auth"
	"devmatch/client"
	"devmatch/domain/event"
	"devmatch/repositories"
	"devmatch/runtime"
	"devmatch/runtime/workers"
	"devmatch/services"
	"devmatch/ws"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

const timeout = 2 * time.Second

// startServer runs the whole stack on an in-memory store until the test ends.
func startServer(t *testing.T) (*httptest.Server, *auth.TokenIssuer) {
	t.Helper()
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	repository := repositories.NewMessageRepository(db, log, nil)

	orchestrator := runtime.NewOrchestrator(log, workers.NewSupervisor(log, 10*time.Millisecond), repository, runtime.Options{
		NumPersistWorkers: 2,
		BufferSize:        64,
		MaxBodyLength:     1000,
		PersistTimeout:    time.Second,
	})
	ctx, cancel := context.WithCancel(context.Background())
	errs := make(chan error, 1)
	go func() { errs <- orchestrator.Start(ctx) }()

	issuer := auth.NewTokenIssuer("test-secret", time.Hour)
	service := services.NewChatService(log, auth.NewAuthenticator(issuer), orchestrator.Dispatcher(), repository)
	server := ws.NewServer(log, service, issuer, ws.Config{
		ConnectionBufferSize: 64,
		Timeouts:             ws.Timeouts{WriteWait: time.Second, PongWait: 5 * time.Second, MaxMessageSize: 4096},
	})
	ts := httptest.NewServer(server.Router(ctx))

	t.Cleanup(func() {
		ts.Close()
		cancel()
		<-errs
		_ = db.Close()
	})
	return ts, issuer
}

func dial(t *testing.T, ts *httptest.Server, issuer *auth.TokenIssuer, identity string) *client.Client {
	t.Helper()
	token := ""
	if identity != "" {
		var err error
		token, err = issuer.Generate(identity)
		require.NoError(t, err)
	}
	c, err := client.Dial(context.Background(), ts.URL, identity, token)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func awaitPresence(t *testing.T, c *client.Client, want []string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		envelope, err := c.Await(event.PresenceUpdateName, time.Until(deadline))
		require.NoError(t, err)
		var online []string
		require.NoError(t, json.Unmarshal(envelope.Data, &online))
		if len(online) == len(want) {
			require.Equal(t, want, online)
			return
		}
	}
	t.Fatalf("presence %v never received", want)
}

func decode[T any](t *testing.T, envelope ws.Envelope) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(envelope.Data, &v))
	return v
}

func Test_Two_Users_Exchange_A_Message(t *testing.T) {
	req := require.New(t)
	ts, issuer := startServer(t)

	// Given u1 then u2 connect
	u1 := dial(t, ts, issuer, "u1")
	awaitPresence(t, u1, []string{"u1"})
	u2 := dial(t, ts, issuer, "u2")

	// Then both see the two of them online
	awaitPresence(t, u1, []string{"u1", "u2"})
	awaitPresence(t, u2, []string{"u1", "u2"})

	// When u1 says hello
	ackID, err := u1.Send("u2", "hello")
	req.NoError(err)

	// Then u2 receives the persisted message
	envelope, err := u2.Await(event.MessageDeliveredName, timeout)
	req.NoError(err)
	received := decode[ws.MessagePayload](t, envelope)
	req.Equal("hello", received.Body)
	req.Equal("u1", received.SenderIdentity)
	req.NotEmpty(received.ID)
	req.False(received.CreatedAt.IsZero())

	// And u1 receives the same copy then its acknowledgment
	envelope, err = u1.Await(event.MessageDeliveredName, timeout)
	req.NoError(err)
	req.Equal(received, decode[ws.MessagePayload](t, envelope))
	envelope, err = u1.Await(event.AckName, timeout)
	req.NoError(err)
	req.Equal(ackID, *envelope.Ack)
	ack := decode[ws.AckPayload](t, envelope)
	req.True(ack.OK)
	req.Equal(received, *ack.Message)

	// And u2 is never acknowledged
	_, err = u2.Await(event.AckName, 300*time.Millisecond)
	req.Error(err)

	// And the conversation is stored
	token, err := issuer.Generate("u2")
	req.NoError(err)
	r, err := http.NewRequest(http.MethodGet, ts.URL+"/api/chat/history/u1", nil)
	req.NoError(err)
	r.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(r)
	req.NoError(err)
	defer resp.Body.Close()
	req.Equal(http.StatusOK, resp.StatusCode)
	req.Empty(resp.Header.Get(ws.NextCursorHeader))
	var history []ws.MessagePayload
	req.NoError(json.NewDecoder(resp.Body).Decode(&history))
	req.Equal([]ws.MessagePayload{received}, history)
}

func Test_Rejected_Send_Is_Acknowledged_As_Failure(t *testing.T) {
	req := require.New(t)
	ts, issuer := startServer(t)
	u1 := dial(t, ts, issuer, "u1")

	ackID, err := u1.Send("u2", "   ")
	req.NoError(err)

	envelope, err := u1.Await(event.AckName, timeout)
	req.NoError(err)
	req.Equal(ackID, *envelope.Ack)
	ack := decode[ws.AckPayload](t, envelope)
	req.False(ack.OK)
	req.Equal("validation_error", ack.Code)
	req.Nil(ack.Message)
}

func Test_Unverified_Identity_Is_Refused(t *testing.T) {
	req := require.New(t)
	ts, issuer := startServer(t)
	aliceToken, err := issuer.Generate("alice")
	req.NoError(err)

	// Claim without token
	_, err = client.Dial(context.Background(), ts.URL, "alice", "")
	req.ErrorContains(err, "401")

	// Claim backed by somebody else's token
	_, err = client.Dial(context.Background(), ts.URL, "bob", aliceToken)
	req.ErrorContains(err, "401")
}

func Test_Anonymous_Connections_Relay_Room_Updates(t *testing.T) {
	req := require.New(t)
	ts, issuer := startServer(t)
	room := "u1-u2"

	// Given two anonymous editors
	e1 := dial(t, ts, issuer, "")
	e2 := dial(t, ts, issuer, "")
	awaitPresence(t, e1, []string{})
	awaitPresence(t, e2, []string{})

	// And both joined the room, e2's join confirmed by the rejection that follows it
	req.NoError(e1.JoinRoom(room))
	req.NoError(e2.JoinRoom(room))
	req.NoError(e2.JoinRoom(" "))
	envelope, err := e2.Await(event.FailureName, timeout)
	req.NoError(err)
	req.Equal("validation_error", decode[ws.ErrorPayload](t, envelope).Code)

	// When e1 relays its editor state
	req.NoError(e1.Relay(room, map[string]string{"code": "package main"}))

	// Then e2 receives it untouched and e1 gets nothing back
	envelope, err = e2.Await(event.RoomUpdateName, timeout)
	req.NoError(err)
	update := decode[ws.RoomUpdatePayload](t, envelope)
	req.Equal(room, update.RoomKey)
	req.JSONEq(`{"code":"package main"}`, string(update.Payload))
	_, err = e1.Await(event.RoomUpdateName, 300*time.Millisecond)
	req.Error(err)
}

func Test_History_Requires_Token(t *testing.T) {
	req := require.New(t)
	ts, _ := startServer(t)

	resp, err := http.Get(ts.URL + "/api/chat/history/u1")
	req.NoError(err)
	defer resp.Body.Close()

	req.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func Test_Health(t *testing.T) {
	req := require.New(t)
	ts, _ := startServer(t)

	resp, err := http.Get(ts.URL + "/health")
	req.NoError(err)
	defer resp.Body.Close()

	req.Equal(http.StatusOK, resp.StatusCode)
}
