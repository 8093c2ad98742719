package main

import (
	"context"
	"devmatch/auth"
	"devmatch/internal"
	"devmatch/repositories"
	"devmatch/runtime"
	"devmatch/runtime/workers"
	"devmatch/services"
	"devmatch/ws"
	goerrors "errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run initializes all components, manages the server lifecycle, and centralizes error reporting.
// Every defer (database included) runs before the process exits.
func run() error {
	// 1. Configuration & Logger
	// A missing .env file is fine, the environment may already be set
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Database (BadgerDB)
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.INFO))
	if err != nil {
		return fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	// 3. Setup Supervision & Orchestration
	sup := workers.NewSupervisor(log, config.RestartInterval)
	messageRepository := repositories.NewMessageRepository(db, log, config.LimitMessages)
	orchestrator := runtime.NewOrchestrator(log, sup, messageRepository, runtime.Options{
		NumPersistWorkers: config.NumberOfPersistWorkers,
		BufferSize:        config.BufferSize,
		MaxBodyLength:     config.MaxBodyLength,
		PersistTimeout:    config.PersistTimeout,
		MetricInterval:    config.MetricInterval,
	})

	// 4. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 5. Start the Engine
	engineDone := make(chan error, 1)
	go func() { engineDone <- orchestrator.Start(ctx) }()

	// 6. HTTP & websocket server
	issuer := auth.NewTokenIssuer(config.AuthSecret, config.AuthTokenDuration)
	chatService := services.NewChatService(log, auth.NewAuthenticator(issuer), orchestrator.Dispatcher(), messageRepository)
	server := ws.NewServer(log, chatService, issuer, ws.Config{
		AllowedOrigin:        config.AllowedOrigin,
		ConnectionBufferSize: config.ConnectionBufferSize,
		Timeouts: ws.Timeouts{
			WriteWait:      config.WriteWait,
			PongWait:       config.PongWait,
			MaxMessageSize: config.MaxFrameSize,
		},
	})
	address := fmt.Sprintf("%s:%d", config.Host, config.Port)
	httpServer := &http.Server{
		Addr:              address,
		Handler:           server.Router(ctx),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Use an error channel to capture ListenAndServe() issues
	errChan := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", "address", address, "at", time.Now().UTC())
		if err := httpServer.ListenAndServe(); err != nil && !goerrors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// 7. Wait for Stop or Error
	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
	case err := <-errChan:
		orchestrator.Stop()
		<-engineDone
		return err
	}

	// 8. Final Cleanup
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warn("HTTP server shutdown", "error", err)
	}
	orchestrator.Stop()
	if err := <-engineDone; err != nil {
		return fmt.Errorf("orchestrator failed: %w", err)
	}
	log.Info("Program stopped cleanly")
	return nil
}
