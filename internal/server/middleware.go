package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"github.com/hyperjump/similar/internal/config"
	"github.com/hyperjump/similar/internal/metrics"
)

// corsMiddleware allows browser clients from the configured origins. It passes
// requests through untouched when no origin is configured.
func corsMiddleware(cfg *config.Config) func(http.Handler) http.Handler {
	if cfg == nil || len(cfg.Server.CORSOrigins) == 0 {
		return passThrough
	}
	return cors.Handler(cors.Options{
		AllowedOrigins: cfg.Server.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	})
}

// rateLimit caps API requests per client IP per minute. A non-positive limit disables it.
func rateLimit(cfg *config.Config) func(http.Handler) http.Handler {
	if cfg == nil || cfg.Server.RateLimit <= 0 {
		return passThrough
	}
	return httprate.LimitByIP(cfg.Server.RateLimit, time.Minute)
}

func passThrough(next http.Handler) http.Handler { return next }

// instrument records request count and latency labelled by route pattern.
func instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		metrics.RecordAPIRequest(r.Method, route, status, time.Since(start))
	})
}
