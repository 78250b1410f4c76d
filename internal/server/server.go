// Package server exposes instincts, evolution passes and their history over
// a loopback HTTP API.
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/lazypower/instinct/internal/evolve"
	"github.com/lazypower/instinct/internal/instincts"
	"github.com/lazypower/instinct/internal/logging"
	"github.com/lazypower/instinct/internal/store"
)

// Server is the instinct HTTP API server.
type Server struct {
	dir     instincts.Dir
	engine  *evolve.Engine
	db      *store.DB // optional
	router  chi.Router
	version string
	started time.Time
	logger  *zap.Logger

	metrics http.Handler // optional
}

// New creates a new Server. db may be nil when history is unavailable.
func New(dir instincts.Dir, engine *evolve.Engine, db *store.DB, version string, logger *zap.Logger) *Server {
	s := &Server{
		dir:     dir,
		engine:  engine,
		db:      db,
		version: version,
		started: time.Now(),
		logger:  logging.OrNop(logger),
	}
	s.routes()
	return s
}

// SetMetrics exposes the collectors in g at /metrics.
func (s *Server) SetMetrics(g prometheus.Gatherer) {
	s.metrics = promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	r.Get("/metrics", s.handleMetrics)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Get("/instincts", s.handleListInstincts)
		r.Get("/instincts/{name}", s.handleGetInstinct)
		r.Get("/export", s.handleExport)
		r.Get("/context", s.handleContext)

		r.Post("/evolve", s.handleEvolve)

		r.Get("/runs", s.handleListRuns)
		r.Get("/runs/{runID}", s.handleGetRun)
		r.Get("/history/{name}", s.handleInstinctHistory)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	dbOK := s.db != nil && s.db.Ping() == nil
	dbPath := ""
	if s.db != nil {
		dbPath = s.db.Path
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":        "ok",
		"version":       s.version,
		"uptime":        time.Since(s.started).Seconds(),
		"db":            dbOK,
		"db_path":       dbPath,
		"instincts_dir": s.dir.Path,
	})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if s.metrics == nil {
		writeError(w, http.StatusNotFound, "metrics not enabled")
		return
	}
	s.metrics.ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
