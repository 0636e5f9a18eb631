// Package server provides the HTTP API for similarity search and ranking evaluation.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/hyperjump/similar/internal/config"
	"github.com/hyperjump/similar/internal/recommend"
	"github.com/hyperjump/similar/internal/storage"
)

// ReloadService rebuilds the loaded session on demand.
type ReloadService interface {
	Reload(ctx context.Context) error
}

// Server is the HTTP server for the similarity API.
type Server struct {
	sessions *recommend.Holder
	storage  storage.Storage // optional; evaluation runs are not persisted when nil
	reloader ReloadService   // optional
	config   *config.Config
	logger   *zap.Logger
	server   *http.Server
}

// NewServer creates a server with the given dependencies.
func NewServer(
	sessions *recommend.Holder,
	store storage.Storage,
	cfg *config.Config,
	logger *zap.Logger,
	reloader ReloadService,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		sessions: sessions,
		storage:  store,
		reloader: reloader,
		config:   cfg,
		logger:   logger,
	}
}

// Router builds the route table.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))
	r.Use(corsMiddleware(s.config))
	r.Use(instrument)

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(rateLimit(s.config))
		r.Get("/status", s.handleStatus)
		r.Get("/items", s.handleFindItems)
		r.Get("/items/{id}", s.handleGetItem)
		r.Get("/recommendations", s.handleRecommend)
		r.Post("/similar", s.handleTopSimilar)
		r.Post("/similarity", s.handleCosineSimilarity)
		r.Post("/evaluations", s.handleCreateEvaluation)
		r.Get("/evaluations", s.handleListEvaluations)
		r.Get("/evaluations/{id}", s.handleGetEvaluation)
		r.Post("/reload", s.handleReload)
	})
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
