package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCollector(t *testing.T) (*Collector, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	return NewCollector("test", reg), reg
}

func TestCollector_ObserveHook(t *testing.T) {
	c, reg := newTestCollector(t)

	c.ObserveHook("execution_tick", 10*time.Millisecond, nil)
	c.ObserveHook("execution_tick", 20*time.Millisecond, nil)
	c.ObserveHook("execution_tick", 5*time.Millisecond, errors.New("fleet unreachable"))

	assert.Equal(t, float64(2), testutil.ToFloat64(c.hookInvocations.WithLabelValues("test", "execution_tick", StatusSuccess)))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.hookInvocations.WithLabelValues("test", "execution_tick", StatusFailure)))

	count, err := testutil.GatherAndCount(reg, "flowcore_connector_hook_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestCollector_State(t *testing.T) {
	c, _ := newTestCollector(t)

	c.SetState(2)
	assert.Equal(t, float64(2), testutil.ToFloat64(c.state.WithLabelValues("test")))

	c.SetState(0)
	assert.Equal(t, float64(0), testutil.ToFloat64(c.state.WithLabelValues("test")))
}

func TestCollector_Counters(t *testing.T) {
	c, _ := newTestCollector(t)

	c.RecordCommand(StatusSuccess)
	c.RecordCommand(StatusFailure)
	c.RecordCommand(StatusFailure)
	c.RecordMapRequest(MapSourceConfig)
	c.RecordMapRequest(MapSourceCache)
	c.RecordMapRequest(MapSourceCache)
	c.RecordPublish("key_values", nil)
	c.RecordPublish("system_stats", errors.New("sink closed"))

	assert.Equal(t, float64(1), testutil.ToFloat64(c.commands.WithLabelValues("test", StatusSuccess)))
	assert.Equal(t, float64(2), testutil.ToFloat64(c.commands.WithLabelValues("test", StatusFailure)))
	assert.Equal(t, float64(2), testutil.ToFloat64(c.mapRequests.WithLabelValues("test", MapSourceCache)))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.mapRequests.WithLabelValues("test", MapSourceConfig)))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.publishes.WithLabelValues("test", "key_values", StatusSuccess)))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.publishes.WithLabelValues("test", "system_stats", StatusFailure)))
}

func TestCollector_Unregistered(t *testing.T) {
	c := NewCollector("orphan", nil)
	assert.NotPanics(t, func() {
		c.RecordCommand(StatusSuccess)
		c.SetState(1)
	})
	assert.Equal(t, "orphan", c.Name())
}

func TestTimer(t *testing.T) {
	timer := NewTimer("op")
	time.Sleep(5 * time.Millisecond)

	first := timer.Stop()
	second := timer.Stop()

	assert.Equal(t, "op", timer.Name())
	assert.GreaterOrEqual(t, first, 5*time.Millisecond)
	assert.GreaterOrEqual(t, second, first)
}
