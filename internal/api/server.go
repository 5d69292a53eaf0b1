// Package api exposes the risk assessment pipeline over HTTP.
package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/kessler/kesslergo/internal/auth"
	"github.com/kessler/kesslergo/internal/correction"
	"github.com/kessler/kesslergo/internal/fleet"
	"github.com/kessler/kesslergo/internal/health"
	"github.com/kessler/kesslergo/internal/httputil"
	"github.com/kessler/kesslergo/internal/metrics"
	"github.com/kessler/kesslergo/internal/propagation"
	"github.com/kessler/kesslergo/internal/tle"
)

// Config holds HTTP server configuration.
type Config struct {
	Addr            string
	Auth            auth.Config
	CORSAllowOrigin string
	TrustProxy      bool
}

// Deps are the service components the handlers operate on.
type Deps struct {
	Logger      *slog.Logger
	Store       *tle.Store
	Fetcher     *tle.Fetcher
	Driver      *propagation.Driver
	Pool        *propagation.Pool
	Corrections *correction.Provider
	Fleet       *fleet.Config
}

// Server holds the HTTP server and its dependencies.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	trustProxy bool

	store       *tle.Store
	fetcher     *tle.Fetcher
	driver      *propagation.Driver
	pool        *propagation.Pool
	corrections *correction.Provider
	fleet       *fleet.Config
}

// NewServer creates a configured HTTP server.
func NewServer(cfg Config, deps Deps) *Server {
	s := &Server{
		logger:      deps.Logger,
		trustProxy:  cfg.TrustProxy,
		store:       deps.Store,
		fetcher:     deps.Fetcher,
		driver:      deps.Driver,
		pool:        deps.Pool,
		corrections: deps.Corrections,
		fleet:       deps.Fleet,
	}

	mux := http.NewServeMux()

	// Register routes.
	mux.HandleFunc("GET /healthz", health.Healthz)
	mux.HandleFunc("GET /readyz", health.Readyz(func() bool {
		return deps.Store.Get() != nil
	}))
	mux.Handle("GET /metrics", metrics.Handler())
	mux.HandleFunc("GET /api/v1/tle/{norad_id}", s.handleTLE)
	mux.HandleFunc("GET /api/v1/catalog", s.handleCatalog)
	mux.HandleFunc("POST /api/v1/propagate", s.handlePropagate)
	mux.HandleFunc("POST /api/v1/predict", s.handlePredict)
	mux.HandleFunc("POST /api/v1/risk", s.handleRisk)
	mux.HandleFunc("POST /api/v1/assess", s.handleAssess)
	mux.HandleFunc("GET /api/v1/fleet", s.handleFleet)

	// Build middleware chain: metrics -> logging -> cors -> auth -> mux.
	var handler http.Handler = mux
	handler = auth.Middleware(cfg.Auth)(handler)
	handler = corsMiddleware(cfg.CORSAllowOrigin)(handler)
	handler = s.loggingMiddleware()(handler)
	handler = metrics.Middleware(handler)

	s.httpServer = &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// HTTPServer returns the underlying *http.Server for external control (e.g. shutdown).
func (s *Server) HTTPServer() *http.Server {
	return s.httpServer
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Handler returns the full middleware-wrapped handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// probePath returns true for health/readiness probe paths that should not log at INFO.
func probePath(path string) bool {
	return path == "/healthz" || path == "/readyz"
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.statusCode = code
	sr.ResponseWriter.WriteHeader(code)
}

func (s *Server) loggingMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			requestID := uuid.NewString()
			w.Header().Set("X-Request-ID", requestID)
			sr := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(sr, r)

			duration := time.Since(start)
			level := slog.LevelInfo
			if probePath(r.URL.Path) {
				level = slog.LevelDebug
			}

			s.logger.Log(r.Context(), level, "request",
				"component", "api",
				"request_id", requestID,
				"method", r.Method,
				"path", r.URL.Path,
				"status", strconv.Itoa(sr.statusCode),
				"duration_ms", duration.Milliseconds(),
				"remote_ip", httputil.ClientIP(r, s.trustProxy),
			)
		})
	}
}

func corsMiddleware(allowOrigin string) func(http.Handler) http.Handler {
	if allowOrigin == "" {
		allowOrigin = "*"
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", allowOrigin)
			if r.Method == http.MethodOptions {
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
