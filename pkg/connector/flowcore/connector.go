// Package flowcore implements the connector hooks for FLOWCore fleets.
//
// Connector is driven by base.Driver, which invokes its hooks one at a time
// from a single goroutine. The per-robot telemetry cache is therefore only
// touched from that goroutine and carries no lock.
package flowcore

import (
	"context"
	stderrors "errors"
	"os"

	"github.com/inorbit-ai/flowcore-connector/pkg/config"
	"github.com/inorbit-ai/flowcore-connector/pkg/connector/core"
	"github.com/inorbit-ai/flowcore-connector/pkg/errors"
	"github.com/inorbit-ai/flowcore-connector/pkg/fleet"
	"github.com/inorbit-ai/flowcore-connector/pkg/metrics"
	"github.com/inorbit-ai/flowcore-connector/pkg/version"
	"go.uber.org/zap"
)

// KeyConnectorVersion is the telemetry key carrying the connector version.
const KeyConnectorVersion = "connector_version"

// StatsSource samples host statistics
type StatsSource interface {
	Collect(ctx context.Context) (core.SystemStats, error)
}

// Option configures a Connector
type Option func(*Connector)

// WithVersion overrides the version string published on every tick
func WithVersion(v string) Option {
	return func(c *Connector) {
		c.version = v
	}
}

// WithSystemStats enables publishing host statistics on every tick
func WithSystemStats(source StatsSource) Option {
	return func(c *Connector) {
		c.stats = source
	}
}

// WithMetrics records publish outcomes on collector
func WithMetrics(collector *metrics.Collector) Option {
	return func(c *Connector) {
		c.metrics = collector
	}
}

// Connector bridges FLOWCore robots to the platform.
type Connector struct {
	config  *config.ConnectorConfig
	fleet   fleet.Client
	sink    core.Sink
	stats   StatsSource
	metrics *metrics.Collector
	logger  *zap.Logger
	version string

	// telemetry holds the last snapshot published per robot
	telemetry map[string]map[string]interface{}
}

// New creates the FLOWCore hooks.
func New(cfg *config.ConnectorConfig, client fleet.Client, sink core.Sink, logger *zap.Logger, opts ...Option) *Connector {
	c := &Connector{
		config:    cfg,
		fleet:     client,
		sink:      sink,
		logger:    logger.With(zap.String("component", "flowcore")),
		version:   version.Get(),
		telemetry: make(map[string]map[string]interface{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.metrics == nil {
		c.metrics = metrics.NewCollector(cfg.ConnectorType(), nil)
	}

	c.logger.Info("Initialized FLOWCore Connector",
		zap.Int("robots", len(cfg.RobotIDs())),
		zap.Stringer("fleet", cfg.Fleet()))
	return c
}

// Connect prepares the user scripts directory and opens the fleet session.
func (c *Connector) Connect(ctx context.Context) error {
	if dir := c.config.UserScriptsDir(); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrap(err, errors.ErrorTypeFile, "failed to create user scripts directory").
				WithDetail("path", dir)
		}
	}
	return c.fleet.Connect(ctx)
}

// Disconnect closes the fleet session.
func (c *Connector) Disconnect(ctx context.Context) error {
	return c.fleet.Close(ctx)
}

// ExecutionTick publishes the telemetry snapshot of every robot, in
// declaration order, then the host statistics when enabled. A failed
// publish does not prevent the remaining ones.
func (c *Connector) ExecutionTick(ctx context.Context) error {
	var errs []error

	robotIDs := c.config.RobotIDs()
	for _, robotID := range robotIDs {
		snapshot := map[string]interface{}{
			KeyConnectorVersion: c.version,
		}
		c.telemetry[robotID] = snapshot

		err := c.sink.PublishRobotKeyValues(ctx, robotID, snapshot)
		c.metrics.RecordPublish("key_values", err)
		if err != nil {
			errs = append(errs, errors.Wrap(err, errors.ErrorTypeConnection, "failed to publish key values").
				WithDetail("robot_id", robotID))
		}
	}

	if c.stats != nil {
		if err := c.publishSystemStats(ctx, robotIDs); err != nil {
			errs = append(errs, err)
		}
	}

	c.logger.Debug("Executing main execution loop", zap.Int("robots", len(robotIDs)))
	return stderrors.Join(errs...)
}

func (c *Connector) publishSystemStats(ctx context.Context, robotIDs []string) error {
	stats, err := c.stats.Collect(ctx)
	if err != nil {
		return err
	}

	var errs []error
	for _, robotID := range robotIDs {
		err := c.sink.PublishSystemStats(ctx, robotID, stats)
		c.metrics.RecordPublish("system_stats", err)
		if err != nil {
			errs = append(errs, errors.Wrap(err, errors.ErrorTypeConnection, "failed to publish system stats").
				WithDetail("robot_id", robotID))
		}
	}
	return stderrors.Join(errs...)
}

// HandleCommand acknowledges commands for known robots.
func (c *Connector) HandleCommand(_ context.Context, cmd core.Command, result *core.ResultToken) error {
	logger := c.logger.With(zap.String("robot_id", cmd.RobotID), zap.String("command", cmd.Name))

	if _, ok := c.config.Robot(cmd.RobotID); !ok {
		logger.Warn("Received command for unknown robot")
		result.Fail(errors.Newf(errors.ErrorTypeNotFound, "unknown robot %q", cmd.RobotID))
		return nil
	}

	logger.Debug("Received command", zap.Any("args", cmd.Args), zap.Any("options", cmd.Options))
	result.Succeed()
	return nil
}

// FetchMap asks the fleet service for the map of a frame. Any fault,
// including a panic in the fleet client, yields no map.
func (c *Connector) FetchMap(ctx context.Context, robotID, frameID string) (descriptor *core.MapDescriptor, err error) {
	logger := c.logger.With(zap.String("robot_id", robotID), zap.String("frame_id", frameID))
	logger.Info("Fetching map")

	robot, ok := c.config.Robot(robotID)
	if !ok {
		logger.Error("Failed to fetch map from FLOWCore API", zap.Error(errors.New(errors.ErrorTypeNotFound, "unknown robot")))
		return nil, nil
	}

	defer func() {
		if r := recover(); r != nil {
			logger.Error("Failed to fetch map from FLOWCore API", zap.Error(errors.FromPanic(r, "fleet client panicked")))
			descriptor, err = nil, nil
		}
	}()

	descriptor, err = c.fleet.FetchMap(ctx, robot.FleetRobotID, frameID)
	if err != nil {
		logger.Error("Failed to fetch map from FLOWCore API", zap.Error(err))
		return nil, nil
	}
	return descriptor, nil
}

// Telemetry returns a copy of the last snapshot published for a robot. It
// must not be called while the driver is running.
func (c *Connector) Telemetry(robotID string) (map[string]interface{}, bool) {
	snapshot, ok := c.telemetry[robotID]
	if !ok {
		return nil, false
	}
	copied := make(map[string]interface{}, len(snapshot))
	for k, v := range snapshot {
		copied[k] = v
	}
	return copied, true
}
