// Package handler provides HTTP handlers for all API endpoints.
// Handlers talk to a store.Store directly; there is no service layer. Read
// responses are marshaled once and served from the cache with an ETag until
// the next import invalidates them.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/albapepper/scoracle-softball/internal/api/respond"
	"github.com/albapepper/scoracle-softball/internal/cache"
	"github.com/albapepper/scoracle-softball/internal/config"
	"github.com/albapepper/scoracle-softball/internal/importer"
	"github.com/albapepper/scoracle-softball/internal/store"
)

// Handler holds shared dependencies for all endpoint handlers.
type Handler struct {
	store    store.Store
	importer *importer.Importer
	cache    *cache.Cache
	cfg      *config.Config
	logger   *slog.Logger

	// importMu serializes imports; the reconciler's look-up-then-insert
	// sequences are not safe against a concurrent import.
	importMu sync.Mutex
}

// New creates a Handler with shared dependencies.
func New(s store.Store, c *cache.Cache, cfg *config.Config, logger *slog.Logger) *Handler {
	return &Handler{
		store: s,
		importer: importer.New(s, logger, importer.Options{
			ScanCeiling:    cfg.ExcelScanCeiling,
			EmptyLookahead: cfg.ExcelEmptyLookahead,
		}),
		cache:  c,
		cfg:    cfg,
		logger: logger,
	}
}

// Root serves API info at /.
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	respond.WriteObject(w, http.StatusOK, map[string]interface{}{
		"name":    "Scoracle Softball Scouting API",
		"version": "1.0.0",
		"status":  "running",
		"backend": h.cfg.Backend,
		"endpoints": []string{
			"POST /api/v1/imports",
			"POST /api/v1/imports/preview",
			"GET /api/v1/seasons",
			"GET /api/v1/seasons/{seasonID}/games",
			"GET /api/v1/games/{gameID}/stats",
		},
	})
}

// HealthCheck returns basic health status.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respond.WriteObject(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// HealthCheckDB verifies store connectivity.
func (h *Handler) HealthCheckDB(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Ping(r.Context()); err != nil {
		h.logger.Warn("Store health check failed", "error", err)
		respond.WriteObject(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status":    "unhealthy",
			"database":  "disconnected",
			"backend":   h.cfg.Backend,
			"error":     "Database connection check failed",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
		return
	}
	respond.WriteObject(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"database":  "connected",
		"backend":   h.cfg.Backend,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// HealthCheckCache returns cache statistics.
func (h *Handler) HealthCheckCache(w http.ResponseWriter, r *http.Request) {
	respond.WriteObject(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"cache":     h.cache.Stats(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// --------------------------------------------------------------------------
// Cached reads
// --------------------------------------------------------------------------

// serveCached answers from the cache when it can, honoring If-None-Match,
// and otherwise loads, marshals and caches the value.
func (h *Handler) serveCached(w http.ResponseWriter, r *http.Request, key string, ttl time.Duration, load func(ctx context.Context) (interface{}, error)) {
	if data, etag, ok := h.cache.Get(key); ok {
		if cache.CheckETagMatch(r.Header.Get("If-None-Match"), etag) {
			respond.WriteNotModified(w, etag)
			return
		}
		respond.WriteCached(w, data, etag, ttl, true)
		return
	}

	v, err := load(r.Context())
	if err != nil {
		if respond.WriteReadError(w, err) {
			h.logger.Error("Read failed", "key", key, "error", err)
		}
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		h.logger.Error("Marshal failed", "key", key, "error", err)
		respond.WriteError(w, http.StatusInternalServerError, respond.CodeInternal, "Failed to encode response")
		return
	}

	etag := h.cache.Set(key, data, ttl)
	if cache.CheckETagMatch(r.Header.Get("If-None-Match"), etag) {
		respond.WriteNotModified(w, etag)
		return
	}
	respond.WriteCached(w, data, etag, ttl, false)
}
