// Package fleet defines the connection to the FLOWCore fleet service.
//
// The fleet service wire protocol is not implemented yet. PlaceholderClient
// logs session changes and answers map requests with an empty map so the
// rest of the connector can run end to end.
package fleet

import (
	"context"
	"sync"

	"github.com/inorbit-ai/flowcore-connector/pkg/config"
	"github.com/inorbit-ai/flowcore-connector/pkg/connector/core"
	"github.com/inorbit-ai/flowcore-connector/pkg/errors"
	"go.uber.org/zap"
)

// Client is a session with the fleet service.
type Client interface {
	// Connect opens the session
	Connect(ctx context.Context) error
	// Close ends the session
	Close(ctx context.Context) error
	// FetchMap retrieves the map for a coordinate frame
	FetchMap(ctx context.Context, fleetRobotID int, frameID string) (*core.MapDescriptor, error)
}

// PlaceholderClient is a Client that performs no I/O.
type PlaceholderClient struct {
	settings config.FleetSettings
	logger   *zap.Logger

	mu        sync.Mutex
	connected bool
}

// NewPlaceholderClient creates a client for the given fleet settings.
func NewPlaceholderClient(settings config.FleetSettings, logger *zap.Logger) *PlaceholderClient {
	return &PlaceholderClient{
		settings: settings,
		logger:   logger.With(zap.String("component", "fleet_client"), zap.String("address", settings.Address())),
	}
}

// Connect marks the session open.
func (c *PlaceholderClient) Connect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeCancelled, "connect cancelled")
	}

	c.mu.Lock()
	c.connected = true
	c.mu.Unlock()

	c.logger.Info("Connected to FLOWCore API", zap.String("username", c.settings.Username))
	return nil
}

// Close marks the session closed.
func (c *PlaceholderClient) Close(_ context.Context) error {
	c.mu.Lock()
	c.connected = false
	c.mu.Unlock()

	c.logger.Info("Disconnected from FLOWCore API")
	return nil
}

// Connected reports whether Connect has been called without a later Close.
func (c *PlaceholderClient) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// FetchMap returns an empty map identified by the frame.
func (c *PlaceholderClient) FetchMap(ctx context.Context, fleetRobotID int, frameID string) (*core.MapDescriptor, error) {
	if !c.Connected() {
		return nil, errors.New(errors.ErrorTypeConnection, "fleet session is not open")
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeCancelled, "map fetch cancelled")
	}

	c.logger.Debug("returning placeholder map", zap.Int("fleet_robot_id", fleetRobotID), zap.String("frame_id", frameID))
	return &core.MapDescriptor{
		Image: []byte{},
		MapID: frameID,
	}, nil
}
