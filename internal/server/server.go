// Package server exposes the connector's Prometheus metrics and health
// status over HTTP.
package server

import (
	"context"
	stderrors "errors"
	"net/http"
	"time"

	gojson "github.com/goccy/go-json"
	"github.com/inorbit-ai/flowcore-connector/pkg/connector/base"
	"github.com/inorbit-ai/flowcore-connector/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Endpoint paths
const (
	MetricsPath = "/metrics"
	HealthPath  = "/healthz"
)

const shutdownTimeout = 5 * time.Second

// Server serves /metrics and /healthz.
type Server struct {
	addr     string
	gatherer prometheus.Gatherer
	health   *base.HealthChecker
	logger   *zap.Logger
}

// New creates a server listening on addr. health may be nil, in which case
// /healthz always reports healthy.
func New(addr string, gatherer prometheus.Gatherer, health *base.HealthChecker, logger *zap.Logger) *Server {
	return &Server{
		addr:     addr,
		gatherer: gatherer,
		health:   health,
		logger:   logger.With(zap.String("component", "http_server"), zap.String("addr", addr)),
	}
}

// Handler returns the HTTP handler with both endpoints registered.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle(MetricsPath, promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	}))
	mux.HandleFunc(HealthPath, s.handleHealth)
	return mux
}

type healthResponse struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	resp := healthResponse{Status: base.StatusHealthy, Timestamp: time.Now()}
	if s.health != nil {
		status := s.health.Status()
		resp = healthResponse{Status: status.Status, Timestamp: status.Timestamp, Details: status.Details}
	}

	code := http.StatusOK
	if resp.Status != base.StatusHealthy {
		code = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := gojson.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Warn("failed to write health response", zap.Error(err))
	}
}

// Run serves until ctx is done, then shuts the server down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	s.logger.Info("serving metrics and health")

	select {
	case err := <-errCh:
		if stderrors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, errors.ErrorTypeConnection, "metrics server failed")
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return errors.Wrap(err, errors.ErrorTypeConnection, "failed to shut down metrics server")
		}
		return nil
	}
}
