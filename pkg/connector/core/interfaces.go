// Package core defines the contract between the lifecycle driver, the
// connector hooks and the platform collaborator.
package core

import (
	"context"
	"time"
)

// State represents the lifecycle state of a connector driver
type State int32

const (
	// StateDisconnected is the initial and terminal state
	StateDisconnected State = iota
	// StateConnecting is entered while the connect hook runs
	StateConnecting
	// StateConnected is the running state; ticks, commands and map
	// requests are only served here
	StateConnected
	// StateDisconnecting is entered while the disconnect hook runs
	StateDisconnecting
)

// String returns the state name
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateDisconnecting:
		return "disconnecting"
	default:
		return "unknown"
	}
}

// MapDescriptor is a map image and its placement, as handed to the platform
// when a robot reports a pose in an unrecognized frame.
type MapDescriptor struct {
	Image      []byte
	MapID      string
	MapLabel   string
	OriginX    float64
	OriginY    float64
	Resolution float64
}

// Clone returns a deep copy of the descriptor.
func (m *MapDescriptor) Clone() *MapDescriptor {
	if m == nil {
		return nil
	}
	clone := *m
	clone.Image = append([]byte(nil), m.Image...)
	return &clone
}

// Command is a platform command addressed to one robot.
type Command struct {
	RobotID string
	Name    string
	Args    []interface{}
	Options map[string]interface{}
}

// SystemStats describes the host the connector runs on.
type SystemStats struct {
	CPULoadPercentage  float64
	RAMUsagePercentage float64
	HDDUsagePercentage float64
	CollectedAt        time.Time
}

// Hooks are the extension points the lifecycle driver invokes. The driver
// calls them from a single goroutine, one at a time, so implementations may
// keep unsynchronized per-robot state.
type Hooks interface {
	// Connect opens the session with the fleet service
	Connect(ctx context.Context) error
	// Disconnect closes the session with the fleet service
	Disconnect(ctx context.Context) error
	// ExecutionTick publishes the current telemetry for every robot
	ExecutionTick(ctx context.Context) error
	// HandleCommand executes a command and resolves result exactly once. A
	// returned error resolves the result as a failure if it is still open.
	HandleCommand(ctx context.Context, cmd Command, result *ResultToken) error
	// FetchMap returns the map for a frame, or nil when there is none
	FetchMap(ctx context.Context, robotID, frameID string) (*MapDescriptor, error)
}

// Sink is the platform side of the bridge.
type Sink interface {
	// PublishRobotKeyValues pushes a robot's telemetry snapshot
	PublishRobotKeyValues(ctx context.Context, robotID string, values map[string]interface{}) error
	// PublishSystemStats pushes the connector host statistics for a robot
	PublishSystemStats(ctx context.Context, robotID string, stats SystemStats) error
}

// HealthStatus represents the health status of the connector
type HealthStatus struct {
	Status    string                 `json:"status"` // "healthy", "unhealthy", "degraded"
	Timestamp time.Time              `json:"timestamp"`
	Details   map[string]interface{} `json:"details"`
	Error     error                  `json:"-"`
}
