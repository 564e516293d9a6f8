package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ignite/mailguard/internal/config"
)

// Server wraps the HTTP server around the configured route tree.
type Server struct {
	cfg    config.ServerConfig
	mux    *chi.Mux
	server *http.Server
}

// NewServer creates the API server.
func NewServer(cfg config.ServerConfig, h *Handlers) *Server {
	return &Server{
		cfg: cfg,
		mux: SetupRoutes(h, cfg),
	}
}

// RegisterHealthRoutes mounts the readiness probe. Called after NewServer so
// the checker can hold whichever connection handles main actually opened.
func (s *Server) RegisterHealthRoutes(hc *HealthChecker) {
	s.mux.Get("/health/ready", hc.HandleReadiness)
}

// ListenAndServe starts the HTTP server on addr.
func (s *Server) ListenAndServe(addr string) error {
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Handler returns the HTTP handler for testing.
func (s *Server) Handler() http.Handler {
	return s.mux
}
