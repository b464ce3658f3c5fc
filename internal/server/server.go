package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/relgov/gateway/internal/observability"
)

// Server timeouts.
const (
	DefaultReadHeaderTimeout = 10 * time.Second
	DefaultReadTimeout       = 30 * time.Second
	DefaultWriteTimeout      = 30 * time.Second
	DefaultIdleTimeout       = 120 * time.Second
	DefaultShutdownTimeout   = 30 * time.Second
)

// Server is the public-facing HTTP server.
type Server struct {
	srv    *http.Server
	logger observability.Logger
}

// New creates a server listening on the given port.
func New(port int, handler http.Handler, logger observability.Logger) *Server {
	if logger == nil {
		logger = observability.NopLogger()
	}

	return &Server{
		logger: logger,
		srv: &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           handler,
			ReadHeaderTimeout: DefaultReadHeaderTimeout,
			ReadTimeout:       DefaultReadTimeout,
			WriteTimeout:      DefaultWriteTimeout,
			IdleTimeout:       DefaultIdleTimeout,
		},
	}
}

// Start blocks serving requests until the listener closes.
func (s *Server) Start() error {
	s.logger.Info("http server listening", observability.String("addr", s.srv.Addr))

	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http server shutting down")
	return s.srv.Shutdown(ctx)
}

// NewMetricsServer creates the internal server exposing the Prometheus
// scrape endpoint on its own port.
func NewMetricsServer(port int, metrics *observability.Metrics, logger observability.Logger) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())

	return New(port, mux, logger)
}
