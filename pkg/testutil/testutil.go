// Package testutil provides testing utilities for the connector packages
package testutil

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/inorbit-ai/flowcore-connector/pkg/config"
	"github.com/inorbit-ai/flowcore-connector/pkg/connector/core"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

// TestLogger creates a test logger that writes to the test output.
func TestLogger(t *testing.T) *zap.Logger {
	return zaptest.NewLogger(t)
}

// TestContext creates a test context with a 30-second timeout.
// The caller must call the returned cancel function to avoid leaks.
func TestContext(_ *testing.T) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 30*time.Second)
}

// AssertEventually asserts that a condition becomes true within the specified timeout.
// It checks the condition every 10ms until it succeeds or the timeout expires.
func AssertEventually(t *testing.T, condition func() bool, timeout time.Duration, msg string) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}

	t.Fatalf("condition not met within %v: %s", timeout, msg)
}

// ConfigYAML builds a valid configuration document for the given robot IDs,
// numbering fleet_robot_id from 1. extra is appended verbatim at top level.
func ConfigYAML(robotIDs []string, extra string) string {
	var b strings.Builder
	b.WriteString("connector_type: flowcore\n")
	b.WriteString("connector_config:\n")
	b.WriteString("  fleet_host: fleet.example.com\n")
	b.WriteString("  fleet_username: test-user\n")
	b.WriteString("  fleet_password: test-pass\n")
	b.WriteString("fleet:\n")
	for i, id := range robotIDs {
		fmt.Fprintf(&b, "  - robot_id: %s\n    fleet_robot_id: %d\n", id, i+1)
	}
	b.WriteString(extra)
	return b.String()
}

// Config parses and validates a configuration document without consulting
// the process environment.
func Config(t *testing.T, yaml string) *config.ConnectorConfig {
	t.Helper()
	doc, err := config.Parse([]byte(yaml))
	require.NoError(t, err)
	cfg, err := config.Validate(doc, nil)
	require.NoError(t, err)
	return cfg
}

// Publish is one call recorded by RecordingSink
type Publish struct {
	Kind    string // "key_values" or "system_stats"
	RobotID string
	Values  map[string]interface{}
	Stats   core.SystemStats
}

// RecordingSink is a core.Sink that records every publish. Err, when set, is
// returned from every call after recording it.
type RecordingSink struct {
	mu       sync.Mutex
	calls []Publish
	Err      error
}

// PublishRobotKeyValues records a key-value publish
func (s *RecordingSink) PublishRobotKeyValues(_ context.Context, robotID string, values map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := make(map[string]interface{}, len(values))
	for k, v := range values {
		copied[k] = v
	}
	s.calls = append(s.calls, Publish{Kind: "key_values", RobotID: robotID, Values: copied})
	return s.Err
}

// PublishSystemStats records a system stats publish
func (s *RecordingSink) PublishSystemStats(_ context.Context, robotID string, stats core.SystemStats) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls = append(s.calls, Publish{Kind: "system_stats", RobotID: robotID, Stats: stats})
	return s.Err
}

// Publishes returns a copy of the recorded calls, optionally filtered by kind
func (s *RecordingSink) Publishes(kind string) []Publish {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Publish
	for _, p := range s.calls {
		if kind == "" || p.Kind == kind {
			out = append(out, p)
		}
	}
	return out
}

// Reset clears the recorded calls
func (s *RecordingSink) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = nil
}
