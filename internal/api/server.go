// Package api exposes the telemetry engine over a small HTTP JSON API. The
// handlers are stateless: every request reads a fresh snapshot from the store
// and computes its result synchronously, so the server stays responsive under
// high-frequency dashboard polling.
package api

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/leakwatch-io/leakwatch/internal/analysis"
	"github.com/leakwatch-io/leakwatch/internal/metrics"
	"github.com/leakwatch-io/leakwatch/internal/monitor"
	"github.com/leakwatch-io/leakwatch/internal/otel"
	"github.com/leakwatch-io/leakwatch/internal/store"
)

// ServerConfig holds the tunable parts of the API server.
type ServerConfig struct {
	// DefaultIntervalSeconds is used when /api/start_monitoring carries no
	// (or an unparseable) interval parameter. Default: 10.
	DefaultIntervalSeconds int

	// MaxChartPoints caps the points returned per series by the historical
	// and chart endpoints. Default: 1000.
	MaxChartPoints int
}

// DefaultServerConfig returns sensible defaults.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		DefaultIntervalSeconds: 10,
		MaxChartPoints:         1000,
	}
}

// WithDefaults returns a copy of the config with zero values replaced by defaults.
func (c ServerConfig) WithDefaults() ServerConfig {
	result := c
	if result.DefaultIntervalSeconds <= 0 {
		result.DefaultIntervalSeconds = 10
	}
	if result.MaxChartPoints <= 0 {
		result.MaxChartPoints = 1000
	}
	return result
}

// Server serves the telemetry API. It owns no long-lived state beyond
// references to the store, analyzer, and session controller.
type Server struct {
	log        *zap.SugaredLogger
	store      *store.Store
	analyzer   *analysis.Analyzer
	controller *monitor.Controller
	config     ServerConfig

	tracer *otel.Tracer
	prom   *metrics.Registry

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
	running  bool
	addr     string
}

// NewServer creates a Server bound to addr.
func NewServer(addr string, log *zap.SugaredLogger, st *store.Store, analyzer *analysis.Analyzer, controller *monitor.Controller, config ServerConfig) *Server {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Server{
		log:        log,
		store:      st,
		analyzer:   analyzer,
		controller: controller,
		config:     config.WithDefaults(),
		addr:       addr,
	}
}

// SetTracer wires the optional OpenTelemetry tracing middleware.
// Must be called before Start.
func (s *Server) SetTracer(t *otel.Tracer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tracer = t
}

// SetRegistry wires Prometheus self-metrics and the /metrics endpoint.
// Must be called before Start.
func (s *Server) SetRegistry(reg *metrics.Registry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prom = reg
}

// Handler builds the router. Exposed so tests can drive handlers through
// httptest without opening a listener.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(s.requestLogger)
	if s.tracer.Enabled() {
		r.Use(otel.Middleware(s.tracer))
	}

	r.Get("/api/current", s.handleCurrent)
	r.Get("/api/historical", s.handleHistorical)
	r.Get("/api/historical-chart", s.handleHistoricalChart)
	r.Get("/api/analysis", s.handleAnalysis)
	r.Get("/api/leak_analysis", s.handleLeakAnalysis)
	r.Get("/api/top_offenders", s.handleTopOffenders)
	r.Get("/api/start_monitoring", s.handleStartMonitoring)
	r.Get("/api/stop_monitoring", s.handleStopMonitoring)

	r.Get("/healthz", s.handleHealthz)
	r.Get("/readyz", s.handleReadyz)
	if s.prom != nil {
		r.Method(http.MethodGet, "/metrics", s.prom.Handler())
	}

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		s.writeError(w, http.StatusNotFound, &ErrorResponse{
			ErrorType:    ErrorTypeNotFound,
			ErrorCode:    ErrorCodeEndpointNotFound,
			ErrorMessage: "Endpoint not found",
			Retryable:    false,
			Details:      map[string]interface{}{"path": req.URL.Path},
		})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		s.writeError(w, http.StatusMethodNotAllowed, &ErrorResponse{
			ErrorType:    ErrorTypeInvalidArgument,
			ErrorCode:    ErrorCodeMethodNotAllowed,
			ErrorMessage: "Method not allowed",
			Retryable:    false,
			Details:      map[string]interface{}{"method": req.Method},
		})
	})

	return r
}

// Start opens the listener and serves in a background goroutine.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("server already running")
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	s.listener = listener

	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.running = true

	go func() {
		if err := s.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.log.Errorw("server_error", "error", err)
		}
	}()

	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}
	s.running = false

	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// Addr returns the bound address (with the resolved port once listening).
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// URL returns the base URL of the running server.
func (s *Server) URL() string {
	return fmt.Sprintf("http://%s", s.Addr())
}

// IsRunning reports whether the server is serving.
func (s *Server) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// requestLogger records each request's outcome to the log and, when wired,
// the Prometheus request counter.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		s.log.Debugw("http_request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration_ms", time.Since(started).Milliseconds())

		if s.prom != nil {
			s.prom.HTTPRequests.WithLabelValues(r.URL.Path, strconv.Itoa(ww.Status())).Inc()
		}
	})
}
