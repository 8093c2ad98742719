package ws

import (
	"context"
	"devmatch/auth"
	"devmatch/domain"
	"devmatch/errors"
	"devmatch/services"
	"encoding/json"
	goerrors "errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/samber/lo"
)

const NextCursorHeader = "X-Next-Cursor"

type Config struct {
	AllowedOrigin        string
	ConnectionBufferSize int
	Timeouts             Timeouts
}

type Server struct {
	log      *slog.Logger
	service  services.IChatService
	issuer   *auth.TokenIssuer
	upgrader websocket.Upgrader
	config   Config
}

func NewServer(log *slog.Logger, service services.IChatService, issuer *auth.TokenIssuer, config Config) *Server {
	return &Server{
		log:     log,
		service: service,
		issuer:  issuer,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin(config.AllowedOrigin),
		},
		config: config,
	}
}

// checkOrigin accepts any origin when none is configured.
// Requests without an Origin header come from non-browser clients and are accepted.
func checkOrigin(allowed string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return allowed == "" || allowed == "*" || origin == "" || origin == allowed
	}
}

// Router exposes the websocket endpoint, the history query and the health check.
// Connections live until ctx is canceled.
func (s *Server) Router(ctx context.Context) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/ws", func(w http.ResponseWriter, r *http.Request) { s.serveWS(ctx, w, r) })
	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(s.issuer))
		r.Get("/api/chat/history/{otherUserID}", s.history)
	})
	return r
}

func (s *Server) serveWS(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	claimed := r.URL.Query().Get("identity")
	sink := NewConnectionSink(s.config.ConnectionBufferSize)

	handle, identity, err := s.service.Connect(ctx, claimed, auth.BearerToken(r), sink)
	if err != nil {
		if goerrors.Is(err, errors.ErrUnauthenticated) {
			http.Error(w, err.Error(), http.StatusUnauthorized)
			return
		}
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	log := s.log.With("handle", handle, "identity", identity)
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already answered the client
		log.Warn("Upgrade failed", "error", err)
		if err := s.service.Disconnect(context.WithoutCancel(ctx), handle); err != nil {
			log.Warn("Failed to close session", "error", err)
		}
		return
	}

	log.Debug("Connection upgraded", "remote", r.RemoteAddr)
	go NewConnection(log, conn, sink, s.service, handle, s.config.Timeouts).Serve(ctx)
}

func (s *Server) history(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, errors.ErrUnauthenticated.Error(), http.StatusUnauthorized)
		return
	}

	var cursor *string
	if c := r.URL.Query().Get("cursor"); c != "" {
		cursor = &c
	}

	messages, next, err := s.service.History(r.Context(), userID, chi.URLParam(r, "otherUserID"), cursor)
	switch {
	case goerrors.Is(err, errors.ErrValidation):
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	case err != nil:
		s.log.Error("History query failed", "user_id", userID, "error", err)
		http.Error(w, errors.Code(err), http.StatusInternalServerError)
		return
	}

	if next != nil {
		w.Header().Set(NextCursorHeader, *next)
	}
	writeJSON(w, http.StatusOK, lo.Map(messages, func(m domain.Message, _ int) MessagePayload {
		return ToMessagePayload(m)
	}))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
