// internal/api/server.go
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/newthinker/quantsim/internal/api/job"
	"github.com/newthinker/quantsim/internal/api/middleware"
	"github.com/newthinker/quantsim/internal/archive"
	"github.com/newthinker/quantsim/internal/config"
	"github.com/newthinker/quantsim/internal/metrics"
)

// Server is the HTTP front end for running backtests asynchronously.
type Server struct {
	httpServer *http.Server
	logger     *zap.Logger
	mux        *http.ServeMux

	cfg      *config.Config
	jobs     *job.Store
	registry *metrics.Registry
	archiver *archive.Archiver
}

// NewServer creates a new HTTP server. archiver may be nil when archiving
// is disabled.
func NewServer(cfg *config.Config, logger *zap.Logger, registry *metrics.Registry, archiver *archive.Archiver) (*Server, error) {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
			Handler:      metrics.HTTPMiddleware(registry)(mux),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger:   logger,
		mux:      mux,
		cfg:      cfg,
		jobs:     job.NewStore(cfg.Server.MaxJobs, time.Duration(cfg.Server.JobTTLHours)*time.Hour),
		registry: registry,
		archiver: archiver,
	}

	s.setupRoutes()
	return s, nil
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	auth := middleware.APIKeyAuth(s.cfg.Server.APIKey)

	s.mux.Handle("POST /api/v1/backtests", auth(http.HandlerFunc(s.handleCreateBacktest)))
	s.mux.Handle("GET /api/v1/backtests", auth(http.HandlerFunc(s.handleListBacktests)))
	s.mux.Handle("GET /api/v1/backtests/{id}", auth(http.HandlerFunc(s.handleBacktestStatus)))

	s.mux.HandleFunc("GET /healthz", s.handleHealth)

	if s.cfg.Metrics.Enabled {
		path := s.cfg.Metrics.Path
		if path == "" {
			path = "/metrics"
		}
		s.mux.Handle("GET "+path, promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	}
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
