// Package listener provides a Postgres LISTEN/NOTIFY consumer that tells the
// API when an import has committed. It holds a dedicated pgx connection (not
// from the pool) listening on config.ImportsChannel, so imports run by the
// CLI or another API instance still invalidate this process's read cache.
package listener

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/albapepper/scoracle-softball/internal/config"
)

const (
	reconnectBackoff = 5 * time.Second
	maxReconnect     = 30 * time.Second
)

// ImportEvent is the JSON payload the Postgres store sends on commit.
type ImportEvent struct {
	Timestamp int64 `json:"ts"`
}

// Handler is called once per committed import.
type Handler func(ctx context.Context, event ImportEvent)

// Start opens a dedicated connection and listens on the imports channel. It
// reconnects with backoff on connection loss and blocks until ctx is
// cancelled. Intended to be called with `go`.
func Start(ctx context.Context, dbURL string, handle Handler, logger *slog.Logger) {
	backoff := reconnectBackoff

	for {
		err := listenLoop(ctx, dbURL, handle, logger)
		if ctx.Err() != nil {
			logger.Info("Import listener stopped (context cancelled)")
			return
		}

		logger.Error("Import listener disconnected, reconnecting...",
			"error", err, "backoff", backoff)

		select {
		case <-time.After(backoff):
			backoff = nextBackoff(backoff)
		case <-ctx.Done():
			return
		}
	}
}

// listenLoop runs a single listen session. Returns when the connection drops
// or the context is cancelled.
func listenLoop(ctx context.Context, dbURL string, handle Handler, logger *slog.Logger) error {
	conn, err := pgx.Connect(ctx, dbURL)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer conn.Close(context.Background())

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{config.ImportsChannel}.Sanitize()); err != nil {
		return fmt.Errorf("LISTEN %s: %w", config.ImportsChannel, err)
	}
	logger.Info("Import listener connected", "channel", config.ImportsChannel)

	for {
		notification, err := conn.WaitForNotification(ctx)
		if err != nil {
			return fmt.Errorf("wait for notification: %w", err)
		}

		event, err := decodeEvent(notification.Payload)
		if err != nil {
			logger.Warn("Failed to parse import event",
				"payload", notification.Payload, "error", err)
		}
		logger.Debug("Import event received", "ts", event.Timestamp)
		handle(ctx, event)
	}
}

// decodeEvent parses a payload. A malformed payload still yields a zero
// event alongside the error: the import committed either way.
func decodeEvent(payload string) (ImportEvent, error) {
	var event ImportEvent
	if payload == "" {
		return event, nil
	}
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		return ImportEvent{}, err
	}
	return event, nil
}

func nextBackoff(d time.Duration) time.Duration {
	return min(d*2, maxReconnect)
}
