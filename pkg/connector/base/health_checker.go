package base

import (
	"context"
	"maps"
	"sync"
	"time"

	"github.com/inorbit-ai/flowcore-connector/pkg/connector/core"
	"go.uber.org/zap"
)

// Health status values
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

const (
	// unhealthyAfter consecutive failed probes turn degraded into unhealthy
	unhealthyAfter = 3
	probeTimeout   = 10 * time.Second
)

// HealthChecker probes a running driver, usually through Driver.Health, and
// keeps the last result for /healthz.
type HealthChecker struct {
	name     string
	interval time.Duration
	probe    func(ctx context.Context) error
	logger   *zap.Logger

	mu       sync.RWMutex
	status   core.HealthStatus
	checks   int64
	failures int64
	streak   int

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewHealthChecker creates a checker that runs probe every interval. It
// reports unhealthy until a probe passes.
func NewHealthChecker(name string, interval time.Duration, probe func(ctx context.Context) error, logger *zap.Logger) *HealthChecker {
	return &HealthChecker{
		name:     name,
		interval: interval,
		probe:    probe,
		logger:   logger.With(zap.String("component", "health_checker"), zap.String("connector", name)),
		status: core.HealthStatus{
			Status:    StatusUnhealthy,
			Timestamp: time.Now(),
			Details:   map[string]interface{}{"reason": "no check performed yet"},
		},
		stopCh: make(chan struct{}),
	}
}

// Start probes immediately and then every interval until ctx ends or Stop
// is called.
func (h *HealthChecker) Start(ctx context.Context) {
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		h.Check(ctx)

		ticker := time.NewTicker(h.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-h.stopCh:
				return
			case <-ticker.C:
				h.Check(ctx)
			}
		}
	}()
}

// Stop ends periodic probing and waits for it. Safe to call more than once.
func (h *HealthChecker) Stop() {
	h.stopOnce.Do(func() { close(h.stopCh) })
	h.wg.Wait()
}

// Check runs the probe once and records the outcome.
func (h *HealthChecker) Check(ctx context.Context) {
	var err error
	if h.probe != nil {
		probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
		err = h.probe(probeCtx)
		cancel()
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.checks++
	next := core.HealthStatus{Status: StatusHealthy, Timestamp: time.Now(), Error: err}
	if err == nil {
		h.streak = 0
		next.Details = map[string]interface{}{}
	} else {
		h.failures++
		h.streak++
		next.Status = StatusDegraded
		if h.streak >= unhealthyAfter {
			next.Status = StatusUnhealthy
		}
		next.Details = map[string]interface{}{
			"consecutive_failures": h.streak,
			"last_error":           err.Error(),
		}
	}
	next.Details["check_count"] = h.checks
	next.Details["failure_count"] = h.failures

	if err != nil {
		h.logger.Warn("health check failed", zap.Error(err),
			zap.String("status", next.Status), zap.Int("consecutive_failures", h.streak))
	} else if h.status.Status != StatusHealthy {
		h.logger.Info("health check passed", zap.String("previous_status", h.status.Status))
	}
	h.status = next
}

// Status returns the last recorded result. Details is a private copy.
func (h *HealthChecker) Status() core.HealthStatus {
	h.mu.RLock()
	defer h.mu.RUnlock()

	status := h.status
	status.Details = maps.Clone(h.status.Details)
	return status
}

// IsHealthy reports whether the last probe passed.
func (h *HealthChecker) IsHealthy() bool {
	return h.Status().Status == StatusHealthy
}

// CheckCount returns the number of probes run.
func (h *HealthChecker) CheckCount() int64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.checks
}

// FailureCount returns the number of failed probes.
func (h *HealthChecker) FailureCount() int64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.failures
}
