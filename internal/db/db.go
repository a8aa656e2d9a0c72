// Package db owns the Postgres pool behind pgstore and the API health check.
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/albapepper/scoracle-softball/internal/config"
)

// ApplicationName tags our sessions in pg_stat_activity.
const ApplicationName = "scoracle-softball"

// SchemaTables are the tables an import writes to, in migration order.
var SchemaTables = []string{
	config.AgeGroupsTable,
	config.TeamsTable,
	config.OpponentTeamsTable,
	config.SeasonsTable,
	config.PlayersTable,
	config.GamesTable,
	config.BattingTable,
	config.PitchingTable,
}

// Statements prepared on every connection. None of them touch the schema,
// so a fresh database can be migrated through the same pool.
var preparedStatements = map[string]string{
	"health_check":   "SELECT 1",
	"missing_tables": "SELECT t FROM unnest($1::text[]) AS t WHERE to_regclass(t) IS NULL",
}

// Pool wraps pgxpool.Pool with the scouting store's helpers.
type Pool struct {
	*pgxpool.Pool
}

// New connects and pings.
func New(ctx context.Context, cfg *config.Config) (*Pool, error) {
	poolCfg, err := poolConfig(cfg)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Pool{Pool: pool}, nil
}

// poolConfig builds the pool settings without connecting.
func poolConfig(cfg *config.Config) (*pgxpool.Config, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	poolCfg.MinConns = int32(cfg.DBPoolMinConns)
	poolCfg.MaxConns = int32(cfg.DBPoolMaxConns)
	poolCfg.MaxConnLifetime = cfg.DBPoolMaxLife
	poolCfg.MaxConnIdleTime = 5 * time.Minute
	if _, set := poolCfg.ConnConfig.RuntimeParams["application_name"]; !set {
		poolCfg.ConnConfig.RuntimeParams["application_name"] = ApplicationName
	}

	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return fmt.Errorf("prepare %q: %w", name, err)
			}
		}
		return nil
	}
	return poolCfg, nil
}

// HealthCheck runs a trivial query to verify the database is reachable.
func (p *Pool) HealthCheck(ctx context.Context) error {
	var n int
	return p.QueryRow(ctx, "health_check").Scan(&n)
}

// MissingTables lists the SchemaTables that do not exist yet. An empty
// result means the schema has been migrated.
func (p *Pool) MissingTables(ctx context.Context) ([]string, error) {
	rows, err := p.Query(ctx, "missing_tables", SchemaTables)
	if err != nil {
		return nil, fmt.Errorf("check schema: %w", err)
	}
	missing, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("check schema: %w", err)
	}
	return missing, nil
}
