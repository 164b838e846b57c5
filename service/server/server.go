package server

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/brojonat/txnview/service/config"
	"github.com/brojonat/txnview/service/metrics"
	natspkg "github.com/brojonat/txnview/service/nats"
	"github.com/brojonat/txnview/service/store"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server is the HTTP backend serving employees and transactions to viewers.
type Server struct {
	addr         string
	cfg          *config.Config
	store        store.Store
	publisher    natspkg.Publisher
	ssePublisher *SSEPublisher
	metrics      *metrics.Metrics
	logger       *slog.Logger
	server       *http.Server
}

// New creates a new HTTP server with the given dependencies.
// The publisher is optional - if nil, approval changes are not published.
// The ssePublisher is optional - if nil, SSE endpoints won't be available.
// The metrics is optional - if nil, metrics endpoints won't be available.
func New(addr string, cfg *config.Config, st store.Store, publisher natspkg.Publisher, ssePublisher *SSEPublisher, m *metrics.Metrics, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if m != nil {
		st = &instrumentedStore{Store: st, metrics: m}
	}
	return &Server{
		addr:         addr,
		cfg:          cfg,
		store:        st,
		publisher:    publisher,
		ssePublisher: ssePublisher,
		metrics:      m,
		logger:       logger,
	}
}

// Handler builds the routed handler, including CORS and simulated latency.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	s.route(mux, "GET /api/v1/employees", handleListEmployees(s.store, s.logger))
	s.route(mux, "GET /api/v1/transactions", handleListTransactions(s.store, s.cfg.PageSize, s.logger))
	s.route(mux, "POST /api/v1/transactions/{id}/approval", handleSetApproval(s.store, s.publisher, s.logger))

	if s.ssePublisher != nil {
		stream := handleStreamApprovals(s.ssePublisher, s.metrics, s.logger)
		mux.Handle("GET /api/v1/stream/approvals/{employeeId}", metrics.HTTPMetricsMiddleware(s.metrics, "/api/v1/stream/approvals")(stream))
		mux.Handle("GET /api/v1/stream/approvals", metrics.HTTPMetricsMiddleware(s.metrics, "/api/v1/stream/approvals")(stream))
		s.logger.Info("SSE streaming endpoints enabled")
	} else {
		s.logger.Warn("SSE publisher not configured, streaming endpoints disabled")
	}

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	if s.metrics != nil {
		mux.Handle("GET /metrics", promhttp.Handler())
		s.logger.Info("Prometheus metrics endpoint enabled")
	}

	return corsMiddleware(mux)
}

// route registers an API handler wrapped with metrics and simulated latency.
func (s *Server) route(mux *http.ServeMux, pattern string, h http.Handler) {
	name := pattern
	if _, path, ok := strings.Cut(pattern, " "); ok {
		name = path
	}
	h = latencyMiddleware(s.cfg.MockLatency, h)
	mux.Handle(pattern, metrics.HTTPMetricsMiddleware(s.metrics, name)(h))
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("starting HTTP server",
		"addr", s.addr,
		"page_size", s.cfg.PageSize,
		"mock_latency", s.cfg.MockLatency,
	)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")

	// Close SSE publisher first (disconnects all clients)
	if s.ssePublisher != nil {
		s.ssePublisher.Close()
	}

	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// corsMiddleware adds CORS headers to all responses and handles OPTIONS preflight requests.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Max-Age", "3600")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// latencyMiddleware delays each request by d, returning early if the client
// goes away. A zero d returns next unchanged.
func latencyMiddleware(d time.Duration, next http.Handler) http.Handler {
	if d <= 0 {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-timer.C:
			next.ServeHTTP(w, r)
		case <-r.Context().Done():
		}
	})
}
