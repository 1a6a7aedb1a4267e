// Package platform implements the platform side of the connector: where
// robot telemetry and host statistics are published.
package platform

import (
	"context"
	stderrors "errors"
	"io"
	"sync"
	"time"

	gojson "github.com/goccy/go-json"
	"github.com/inorbit-ai/flowcore-connector/pkg/connector/core"
	"github.com/inorbit-ai/flowcore-connector/pkg/errors"
	"go.uber.org/zap"
)

// Record kinds written by JSONSink
const (
	KindKeyValues   = "key_values"
	KindSystemStats = "system_stats"
)

// LogSink publishes by logging at debug level.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink creates a sink writing to logger
func NewLogSink(logger *zap.Logger) *LogSink {
	return &LogSink{logger: logger.With(zap.String("component", "platform_sink"))}
}

// PublishRobotKeyValues logs the key-value snapshot
func (s *LogSink) PublishRobotKeyValues(_ context.Context, robotID string, values map[string]interface{}) error {
	s.logger.Debug("publishing key values", zap.String("robot_id", robotID), zap.Any("values", values))
	return nil
}

// PublishSystemStats logs the host statistics
func (s *LogSink) PublishSystemStats(_ context.Context, robotID string, stats core.SystemStats) error {
	s.logger.Debug("publishing system stats",
		zap.String("robot_id", robotID),
		zap.Float64("cpu_load_percentage", stats.CPULoadPercentage),
		zap.Float64("ram_usage_percentage", stats.RAMUsagePercentage),
		zap.Float64("hdd_usage_percentage", stats.HDDUsagePercentage))
	return nil
}

type statsRecord struct {
	CPULoadPercentage  float64 `json:"cpu_load_percentage"`
	RAMUsagePercentage float64 `json:"ram_usage_percentage"`
	HDDUsagePercentage float64 `json:"hdd_usage_percentage"`
}

type record struct {
	Kind      string                 `json:"kind"`
	RobotID   string                 `json:"robot_id"`
	Timestamp time.Time              `json:"timestamp"`
	Values    map[string]interface{} `json:"values,omitempty"`
	Stats     *statsRecord           `json:"system_stats,omitempty"`
}

// JSONSink writes one JSON object per publish, newline delimited.
type JSONSink struct {
	mu       sync.Mutex
	encoder  *gojson.Encoder
	location *time.Location
	now      func() time.Time
}

// JSONSinkOption configures a JSONSink
type JSONSinkOption func(*JSONSink)

// WithLocation sets the time zone timestamps are written in
func WithLocation(location *time.Location) JSONSinkOption {
	return func(s *JSONSink) {
		if location != nil {
			s.location = location
		}
	}
}

// WithClock replaces the timestamp source
func WithClock(now func() time.Time) JSONSinkOption {
	return func(s *JSONSink) {
		s.now = now
	}
}

// NewJSONSink creates a sink writing to w
func NewJSONSink(w io.Writer, opts ...JSONSinkOption) *JSONSink {
	s := &JSONSink{
		encoder:  gojson.NewEncoder(w),
		location: time.UTC,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PublishRobotKeyValues writes a key_values record
func (s *JSONSink) PublishRobotKeyValues(_ context.Context, robotID string, values map[string]interface{}) error {
	return s.write(record{Kind: KindKeyValues, RobotID: robotID, Values: values})
}

// PublishSystemStats writes a system_stats record
func (s *JSONSink) PublishSystemStats(_ context.Context, robotID string, stats core.SystemStats) error {
	return s.write(record{
		Kind:    KindSystemStats,
		RobotID: robotID,
		Stats: &statsRecord{
			CPULoadPercentage:  stats.CPULoadPercentage,
			RAMUsagePercentage: stats.RAMUsagePercentage,
			HDDUsagePercentage: stats.HDDUsagePercentage,
		},
	})
}

func (s *JSONSink) write(rec record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec.Timestamp = s.now().In(s.location)
	if err := s.encoder.Encode(rec); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to write telemetry record").
			WithDetail("robot_id", rec.RobotID)
	}
	return nil
}

// MultiSink publishes to every sink in order and joins their errors.
type MultiSink []core.Sink

// PublishRobotKeyValues publishes to every sink
func (m MultiSink) PublishRobotKeyValues(ctx context.Context, robotID string, values map[string]interface{}) error {
	var errs []error
	for _, sink := range m {
		if err := sink.PublishRobotKeyValues(ctx, robotID, values); err != nil {
			errs = append(errs, err)
		}
	}
	return stderrors.Join(errs...)
}

// PublishSystemStats publishes to every sink
func (m MultiSink) PublishSystemStats(ctx context.Context, robotID string, stats core.SystemStats) error {
	var errs []error
	for _, sink := range m {
		if err := sink.PublishSystemStats(ctx, robotID, stats); err != nil {
			errs = append(errs, err)
		}
	}
	return stderrors.Join(errs...)
}
