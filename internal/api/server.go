// Package api exposes the operational HTTP surface: health probes, the
// Prometheus scrape endpoint, and a read-only view of run outcomes.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/crawllie/crawllie/internal/crawler"
	"github.com/crawllie/crawllie/internal/metrics"
)

// SiteRun is one site's outcome as reported over HTTP.
type SiteRun struct {
	Site   string            `json:"site"`
	Result crawler.RunResult `json:"result"`
	Error  string            `json:"error,omitempty"`
}

// RunSource provides the current run outcomes. Implementations must be safe
// for concurrent reads while a crawl is in flight.
type RunSource interface {
	Runs() []SiteRun
}

// Server wires the HTTP handlers.
type Server struct {
	router chi.Router
	source RunSource
	logger *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(source RunSource, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		source: source,
		logger: logger,
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(30 * time.Second))

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())
	r.Route("/v1", func(r chi.Router) {
		r.Get("/runs", s.runs)
	})

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) runs(w http.ResponseWriter, _ *http.Request) {
	runs := s.source.Runs()
	if runs == nil {
		runs = []SiteRun{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Warn("write response", zap.Error(err))
	}
}
