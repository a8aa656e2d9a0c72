// Package api wires the HTTP surface: middleware, CORS, rate limiting and
// the routes onto the handlers.
package api

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	corslib "github.com/rs/cors"

	"github.com/albapepper/scoracle-softball/internal/api/handler"
	"github.com/albapepper/scoracle-softball/internal/cache"
	"github.com/albapepper/scoracle-softball/internal/config"
	"github.com/albapepper/scoracle-softball/internal/store"
)

// NewRouter creates and configures the Chi router with all middleware and routes.
func NewRouter(s store.Store, appCache *cache.Cache, cfg *config.Config, logger *slog.Logger) *chi.Mux {
	r := chi.NewRouter()

	// --- Middleware stack ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(TimingMiddleware)
	r.Use(middleware.Compress(5)) // gzip

	// CORS
	c := corslib.New(corslib.Options{
		AllowedOrigins:   cfg.CORSAllowOrigins,
		AllowedMethods:   []string{"GET", "HEAD", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Accept-Encoding", "Content-Type", "If-None-Match", "Cache-Control"},
		ExposedHeaders:   []string{"X-Process-Time", "X-Cache", "ETag", "X-Request-Id"},
		AllowCredentials: false,
	})
	r.Use(c.Handler)

	// Rate limiting
	if cfg.RateLimitEnabled {
		r.Use(RateLimitMiddleware(cfg.RateLimitRequests, cfg.RateLimitWindow))
	}

	h := handler.New(s, appCache, cfg, logger)

	r.Get("/", h.Root)

	r.Route("/health", func(r chi.Router) {
		r.Get("/", h.HealthCheck)
		r.Get("/db", h.HealthCheckDB)
		r.Get("/cache", h.HealthCheckCache)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/imports", h.PostImports)
		r.Post("/imports/preview", h.PostImportPreview)

		r.Get("/seasons", h.GetSeasons)
		r.Get("/seasons/{seasonID}/games", h.GetSeasonGames)
		r.Get("/games/{gameID}/stats", h.GetGameStats)
	})

	return r
}
