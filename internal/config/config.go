// Package config provides centralized configuration loaded from environment
// variables. Shared by both cmd/api and cmd/ingest.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// --------------------------------------------------------------------------
// Store backends
// --------------------------------------------------------------------------

const (
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
	BackendMemory   = "memory"
)

// --------------------------------------------------------------------------
// Table names: single source of truth, matches schema.sql
// --------------------------------------------------------------------------

const (
	AgeGroupsTable     = "age_groups"
	TeamsTable         = "teams"
	OpponentTeamsTable = "opponent_teams"
	SeasonsTable       = "seasons"
	PlayersTable       = "players"
	GamesTable         = "games"
	BattingTable       = "batting_lines"
	PitchingTable      = "pitching_lines"
)

// ImportsChannel is the Postgres NOTIFY channel a committed import
// transaction signals on.
const ImportsChannel = "scouting_imports"

// --------------------------------------------------------------------------
// Config struct, populated from environment variables
// --------------------------------------------------------------------------

type Config struct {
	// Store
	Backend        string // postgres, sqlite, memory
	DatabaseURL    string
	SQLitePath     string
	DBPoolMinConns int
	DBPoolMaxConns int
	DBPoolMaxLife  time.Duration

	// API server
	APIHost     string
	APIPort     int
	Environment string // development, staging, production
	Debug       bool
	LogLevel    slog.Level

	// CORS
	CORSAllowOrigins []string

	// Rate limiting
	RateLimitEnabled  bool
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// Cache
	CacheEnabled bool

	// Import
	MaxUploadBytes      int64
	ExcelScanCeiling    int
	ExcelEmptyLookahead int
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	backend := strings.ToLower(envOr("STORE_BACKEND", BackendSQLite))
	dbURL := envOr("DATABASE_URL", "")

	switch backend {
	case BackendPostgres:
		if dbURL == "" {
			return nil, fmt.Errorf("DATABASE_URL must be set for the postgres backend")
		}
	case BackendSQLite, BackendMemory:
	default:
		return nil, fmt.Errorf("unknown STORE_BACKEND %q (postgres, sqlite, memory)", backend)
	}

	return &Config{
		Backend:        backend,
		DatabaseURL:    dbURL,
		SQLitePath:     envOr("SQLITE_PATH", "scouting.db"),
		DBPoolMinConns: envInt("DB_POOL_MIN_CONNS", 1),
		DBPoolMaxConns: envInt("DB_POOL_MAX_CONNS", 5),
		DBPoolMaxLife:  time.Duration(envInt("DB_POOL_MAX_LIFE_MINUTES", 30)) * time.Minute,

		APIHost:     envOr("API_HOST", "0.0.0.0"),
		APIPort:     envInt("API_PORT", envInt("PORT", 8000)),
		Environment: envOr("ENVIRONMENT", "development"),
		Debug:       envBool("DEBUG", false),
		LogLevel:    envLevel("LOG_LEVEL", slog.LevelInfo),

		CORSAllowOrigins: envList("CORS_ALLOW_ORIGINS", []string{
			"http://localhost:3000",
			"http://localhost:5173",
		}),

		RateLimitEnabled:  envBool("RATE_LIMIT_ENABLED", true),
		RateLimitRequests: envInt("RATE_LIMIT_REQUESTS", 60),
		RateLimitWindow:   time.Duration(envInt("RATE_LIMIT_WINDOW", 60)) * time.Second,

		CacheEnabled: envBool("CACHE_ENABLED", true),

		MaxUploadBytes:      int64(envInt("MAX_UPLOAD_MB", 20)) << 20,
		ExcelScanCeiling:    envInt("EXCEL_SCAN_CEILING", 500),
		ExcelEmptyLookahead: envInt("EXCEL_EMPTY_LOOKAHEAD", 5),
	}, nil
}

// IsProduction returns true if running in production environment.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// --------------------------------------------------------------------------
// Env helpers
// --------------------------------------------------------------------------

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return fallback
}

func envList(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return fallback
}

func envLevel(key string, fallback slog.Level) slog.Level {
	if v := os.Getenv(key); v != "" {
		var l slog.Level
		if err := l.UnmarshalText([]byte(v)); err == nil {
			return l
		}
	}
	return fallback
}
