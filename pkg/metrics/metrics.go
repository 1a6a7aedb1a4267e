// Package metrics provides Prometheus instrumentation for the connector
// lifecycle: hook invocations, lifecycle state, command outcomes, map
// requests and platform publishes.
//
// # Basic Usage
//
//	collector := metrics.NewCollector("flowcore", prometheus.DefaultRegisterer)
//
//	timer := metrics.NewTimer("execution_tick")
//	err := hooks.ExecutionTick(ctx)
//	collector.ObserveHook("execution_tick", timer.Stop(), err)
//
// Each Collector registers its vectors on the registerer it is given, so
// tests can use a private prometheus.Registry.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "flowcore_connector"

// Status label values
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// Map request source label values
const (
	MapSourceCache  = "cache"
	MapSourceConfig = "config"
	MapSourceFleet  = "fleet"
	MapSourceNone   = "none"
)

// Collector groups the connector metrics for one connector instance.
type Collector struct {
	name            string
	hookInvocations *prometheus.CounterVec
	hookDuration    *prometheus.HistogramVec
	state           *prometheus.GaugeVec
	commands        *prometheus.CounterVec
	mapRequests     *prometheus.CounterVec
	publishes       *prometheus.CounterVec
	startTime       time.Time
}

// NewCollector creates and registers the connector metrics. A nil
// registerer leaves the metrics unregistered.
func NewCollector(name string, reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)
	return &Collector{
		name: name,
		hookInvocations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "hook_invocations_total",
				Help:      "Total number of connector hook invocations",
			},
			[]string{"connector", "hook", "status"},
		),
		hookDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "hook_duration_seconds",
				Help:      "Connector hook duration in seconds",
				Buckets: []float64{
					0.001, // 1ms - Cache hits
					0.01,  // 10ms - Local publishes
					0.1,   // 100ms - Fleet API round trips
					0.5,
					1,  // 1s - A full tick at the default frequency
					5,  // 5s - Slow map downloads
					30, // 30s - Connect timeouts
				},
			},
			[]string{"connector", "hook"},
		),
		state: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "state",
				Help:      "Current lifecycle state (0 disconnected, 1 connecting, 2 connected, 3 disconnecting)",
			},
			[]string{"connector"},
		),
		commands: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "commands_total",
				Help:      "Total number of commands by result",
			},
			[]string{"connector", "result"},
		),
		mapRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "map_requests_total",
				Help:      "Total number of map requests by the source that answered them",
			},
			[]string{"connector", "source"},
		),
		publishes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "publishes_total",
				Help:      "Total number of platform publishes",
			},
			[]string{"connector", "kind", "status"},
		),
		startTime: time.Now(),
	}
}

// Name returns the connector name used as the connector label
func (c *Collector) Name() string {
	return c.name
}

// StartTime returns when the collector was created
func (c *Collector) StartTime() time.Time {
	return c.startTime
}

// ObserveHook records one hook invocation and its duration.
func (c *Collector) ObserveHook(hook string, duration time.Duration, err error) {
	c.hookInvocations.WithLabelValues(c.name, hook, status(err)).Inc()
	c.hookDuration.WithLabelValues(c.name, hook).Observe(duration.Seconds())
}

// SetState records the current lifecycle state.
func (c *Collector) SetState(state int) {
	c.state.WithLabelValues(c.name).Set(float64(state))
}

// RecordCommand records a command outcome ("success" or "failure").
func (c *Collector) RecordCommand(result string) {
	c.commands.WithLabelValues(c.name, result).Inc()
}

// RecordMapRequest records which source answered a map request.
func (c *Collector) RecordMapRequest(source string) {
	c.mapRequests.WithLabelValues(c.name, source).Inc()
}

// RecordPublish records one publish of the given kind.
func (c *Collector) RecordPublish(kind string, err error) {
	c.publishes.WithLabelValues(c.name, kind, status(err)).Inc()
}

func status(err error) string {
	if err != nil {
		return StatusFailure
	}
	return StatusSuccess
}

// Timer provides a simple timing mechanism for measuring operation durations.
// It captures the start time on creation and calculates elapsed time on stop.
type Timer struct {
	start time.Time
	name  string
}

// NewTimer creates a new timer and starts timing immediately.
// The name parameter is for identification in logs or metrics.
func NewTimer(name string) *Timer {
	return &Timer{
		start: time.Now(),
		name:  name,
	}
}

// Name returns the timer name
func (t *Timer) Name() string {
	return t.name
}

// Stop returns the elapsed duration since creation. The timer can be
// stopped multiple times.
func (t *Timer) Stop() time.Duration {
	return time.Since(t.start)
}
