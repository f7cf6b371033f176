package main

import (
	"chat-relay/hub"
	"chat-relay/internal"
	"chat-relay/moderation"
	"chat-relay/observability"
	"chat-relay/repositories"
	"chat-relay/search"
	"chat-relay/ws"
	"context"
	"errors"
	"fmt"
	"log/slog"
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

// Exit codes to provide meaningful status to the operating system or service manager (e.g., systemd).
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

const shutdownTimeout = 10 * time.Second

func main() {
	// The main function acts as a thin wrapper.
	// Its only responsibility is to call run() and handle the OS exit code.
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Server terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// run initializes all components, manages the server lifecycle, and centralizes error reporting.
// This pattern is preferred over calling os.Exit or panic directly because:
// 1. It ensures all 'defer' statements (like database cleanup) are executed before the function returns.
// 2. It improves testability by decoupling the initialization logic from the main entry point.
// 3. It provides a structured way to handle graceful shutdowns for the HTTP server and background workers.
func run() (int, error) {
	// 1. Configuration & Logger
	_ = godotenv.Load()

	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}

	charReplacement, err := internal.CharacterRune(config.CharReplacement)
	if err != nil {
		return exitConfig, err
	}

	logger := logs.GetLoggerFromString(config.LogLevel)

	ctx := context.Background()

	// 2. Database (BadgerDB)
	db, err := badger.Open(buildBadgerOpts(config, logger, ctx))
	if err != nil {
		return exitRuntime, fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		// Defer ensures the database lock is released and buffers are flushed before the function returns.
		logger.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	// 3. Search index (Bluge)
	index, err := search.Open(config.BlugeFilepath, logger)
	if err != nil {
		return exitRuntime, fmt.Errorf("failed to open search index: %w", err)
	}
	defer func() {
		logger.Info("Closing Bluge...")
		_ = index.Close()
	}()

	// 4. Moderation
	words, err := moderation.LoadWords(config.CensoredWordsPath)
	if err != nil {
		return exitRuntime, fmt.Errorf("failed to load censored words: %w", err)
	}
	moderator, err := moderation.NewModerator(words, charReplacement)
	if err != nil {
		return exitRuntime, fmt.Errorf("failed to build moderator: %w", err)
	}

	// 5. Hub & collaborators
	monitor := observability.NewMonitor(logger, config.MetricInterval)
	registry := hub.NewRegistry()
	userRepository := repositories.NewUserRepository(db)
	messageRepository := repositories.NewMessageRepository(db, logger)

	chatHub := hub.NewHub(
		logger, registry, userRepository, messageRepository,
		config.OpenRegistration, config.AuthTokenDuration, config.ChannelID,
		hub.Options{
			Moderator: &moderator,
			Index:     index,
			Monitor:   monitor,
		},
	)

	// 6. Context & Signals
	// NotifyContext captures OS signals and cancels the context to trigger a shutdown.
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := monitor.Run(ctx); err != nil {
			logger.Error("Telemetry monitor stopped", "error", err)
		}
	}()

	// 7. HTTP Server Setup
	wsServer := ws.NewServer(logger, chatHub, config.ConnectionBufferSize, monitor.IncrDroppedEvents)

	mux := http.NewServeMux()
	mux.Handle("/ws", wsServer)

	httpServer := &http.Server{
		Addr:    config.Addr,
		Handler: mux,
	}

	// Use an error channel to capture ListenAndServe() issues asynchronously.
	errChan := make(chan error, 1)
	go func() {
		logger.Info("Starting websocket server", "address", config.Addr, "at", time.Now().UTC())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("http server error: %w", err)
		}
	}()

	// 8. Wait for Stop or Error
	// The execution blocks here until either a signal is received or the server crashes.
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case err := <-errChan:
		return exitRuntime, err
	}

	// 9. Final Cleanup (Graceful Shutdown)
	// We allow active connections to flush their outbound queues before closing.
	logger.Info("Shutting down gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return exitRuntime, fmt.Errorf("shutdown error: %w", err)
	}
	logger.Info("Program stopped cleanly")

	return exitOK, nil
}

// buildBadgerOpts only tunes verbosity. Concurrent read access for the
// inspection tool is handled on the tool's side, via its read-only open.
func buildBadgerOpts(config internal.Config, logger *slog.Logger, ctx context.Context) badger.Options {
	options := badger.DefaultOptions(config.BadgerFilepath)

	if logger.Enabled(ctx, slog.LevelDebug) {
		return options.WithLoggingLevel(badger.DEBUG)
	}
	return options.WithLoggingLevel(badger.INFO)
}
