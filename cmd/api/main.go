// Command api is the softball scouting HTTP server: file uploads into the
// import pipeline plus cached read endpoints.
//
// Usage:
//
//	scoracle-softball-api
//	API_PORT=8080 STORE_BACKEND=postgres scoracle-softball-api
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"

	"github.com/albapepper/scoracle-softball/internal/api"
	"github.com/albapepper/scoracle-softball/internal/backend"
	"github.com/albapepper/scoracle-softball/internal/cache"
	"github.com/albapepper/scoracle-softball/internal/config"
	"github.com/albapepper/scoracle-softball/internal/listener"
)

func main() {
	// Load .env if present
	_ = godotenv.Load(".env")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	// Context with signal handling
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	logger.Info("Opening store...", "backend", cfg.Backend)
	s, err := backend.Open(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to open store", "error", err)
		os.Exit(1)
	}
	defer s.Close()

	// Initialize cache
	appCache := cache.New(cfg.CacheEnabled)
	defer appCache.Close()
	logger.Info("Cache initialized", "enabled", cfg.CacheEnabled)

	// Imports committed elsewhere (CLI, other instances) must drop cached reads.
	if cfg.Backend == config.BackendPostgres && cfg.CacheEnabled {
		go listener.Start(ctx, cfg.DatabaseURL, func(_ context.Context, ev listener.ImportEvent) {
			n := appCache.InvalidatePrefix(cache.PrefixSeasons, cache.PrefixGames)
			logger.Info("Cache invalidated by import notification", "keys", n, "ts", ev.Timestamp)
		}, logger)
	}

	router := api.NewRouter(s, appCache, cfg, logger)

	addr := fmt.Sprintf("%s:%d", cfg.APIHost, cfg.APIPort)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  60 * time.Second, // uploads
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in background
	go func() {
		logger.Info("Starting scouting API",
			"addr", addr,
			"environment", cfg.Environment,
			"max_upload_bytes", cfg.MaxUploadBytes)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt
	<-ctx.Done()
	logger.Info("Shutting down...")

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown error", "error", err)
	}
	logger.Info("Server stopped")
}
