// Package backend opens the store.Store named by the configuration. Both
// binaries go through it so they agree on what each backend means.
package backend

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/albapepper/scoracle-softball/internal/config"
	"github.com/albapepper/scoracle-softball/internal/db"
	"github.com/albapepper/scoracle-softball/internal/store"
	"github.com/albapepper/scoracle-softball/internal/store/memstore"
	"github.com/albapepper/scoracle-softball/internal/store/pgstore"
	"github.com/albapepper/scoracle-softball/internal/store/sqlitestore"
)

// Migrator is implemented by backends with a schema.
type Migrator interface {
	Migrate(ctx context.Context) error
}

// Open connects to the configured backend. SQLite files are migrated on
// open; Postgres is migrated explicitly with Migrate.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (store.Store, error) {
	switch cfg.Backend {
	case config.BackendMemory:
		logger.Warn("Using the in-memory store; nothing will be persisted")
		return memstore.New(), nil

	case config.BackendSQLite:
		s, err := sqlitestore.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite %s: %w", cfg.SQLitePath, err)
		}
		logger.Info("SQLite store opened", "path", cfg.SQLitePath)
		return s, nil

	case config.BackendPostgres:
		pool, err := db.New(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		logger.Info("Postgres store connected",
			"min_conns", cfg.DBPoolMinConns,
			"max_conns", cfg.DBPoolMaxConns)
		if missing, err := pool.MissingTables(ctx); err != nil {
			logger.Warn("Could not check schema", "error", err)
		} else if len(missing) > 0 {
			logger.Warn("Schema not migrated; run the migrate command before importing", "missing_tables", missing)
		}
		return pgstore.New(pool), nil
	}
	return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
}

// Migrate applies the schema if the backend has one. It reports whether
// anything was applied.
func Migrate(ctx context.Context, s store.Store) (bool, error) {
	m, ok := s.(Migrator)
	if !ok {
		return false, nil
	}
	if err := m.Migrate(ctx); err != nil {
		return false, fmt.Errorf("migrate: %w", err)
	}
	return true, nil
}
