/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the municipal benefit engine server. Handles
  configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration from environment
  2. Initialize structured logging
  3. Initialize SQLite store
  4. Create API handler with dependencies
  5. Start server with graceful shutdown

ENVIRONMENT:
  PORT          HTTP server port (default: 8080)
  ENV           development | production (controls log format)
  DB_PATH       SQLite database path (default: benefit-engine.db,
                use ":memory:" for an in-memory database)
  CORS_ORIGINS  Comma-separated allowed origins
  LOG_LEVEL     trace|debug|info|warn|error (default: info)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection
  4. Exit

SEE ALSO:
  - config/config.go: Environment configuration
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/ruralis/benefit-engine/api"
	"github.com/ruralis/benefit-engine/config"
	"github.com/ruralis/benefit-engine/store/sqlite"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallbackLogger := zerolog.New(os.Stderr)
		fallbackLogger.Fatal().Err(err).Msg("failed to load configuration")
	}

	logger := newLogger(cfg)

	store, err := sqlite.New(cfg.Database.Path)
	if err != nil {
		logger.Fatal().Err(err).Str("path", cfg.Database.Path).Msg("failed to initialize database")
	}
	defer store.Close()

	handler := api.NewHandler(store, logger)
	router := api.NewRouter(handler, cfg.CORS.Origins)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().
			Str("port", cfg.Server.Port).
			Str("env", cfg.Server.Env).
			Str("db", cfg.Database.Path).
			Msg("benefit engine listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal().Err(err).Msg("forced shutdown")
	}
	logger.Info().Msg("server stopped")
}

// newLogger builds the process logger: human-readable console output in
// development, JSON in production.
func newLogger(cfg *config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	if cfg.Server.Env == "development" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
			Level(level).
			With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).Level(level).With().Timestamp().Logger()
}
