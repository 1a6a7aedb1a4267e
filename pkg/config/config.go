package config

import (
	"fmt"
	"strings"
	"time"
)

// ConnectorType is the only connector_type value this connector accepts.
const ConnectorType = "flowcore"

// EnvPrefix is prepended to the upper-cased field name to find the
// environment fallback for a fleet setting.
var EnvPrefix = "INORBIT_" + strings.ToUpper(ConnectorType) + "_"

// DefaultEnvFile is read for fallback variables, relative to the working
// directory the connector is started from.
const DefaultEnvFile = "config/.env"

const (
	// DefaultFleetPort is used when fleet_port is not set anywhere.
	DefaultFleetPort = 80
	// DefaultUpdateFreq is the execution tick rate in Hz.
	DefaultUpdateFreq = 1.0
	// DefaultLogLevel is used when log_level is not set.
	DefaultLogLevel = "info"
	// DefaultLocationTZ is used when location_tz is not set.
	DefaultLocationTZ = "UTC"
)

// CameraConfig describes a camera attached to a robot. The connector does
// not interpret it; it is handed to the platform unchanged.
type CameraConfig struct {
	VideoURL string
	Quality  *int
	Rate     *int
	Scaling  *float64
}

// RobotConfig holds the fields every robot carries regardless of fleet
// backend.
type RobotConfig struct {
	// RobotID is the platform-facing identifier
	RobotID string
	// Cameras are optional camera descriptors
	Cameras []CameraConfig
}

// FlowcoreRobotConfig extends RobotConfig with the FLOWCore robot number.
type FlowcoreRobotConfig struct {
	RobotConfig
	// FleetRobotID identifies the robot in the fleet service
	FleetRobotID int
}

// FleetSettings holds the fleet-wide connection parameters.
type FleetSettings struct {
	Host     string
	Port     int
	Username string
	Password string
}

// Address returns host:port for the fleet service.
func (f FleetSettings) Address() string {
	return fmt.Sprintf("%s:%d", f.Host, f.Port)
}

// String redacts the password so settings can be logged.
func (f FleetSettings) String() string {
	return fmt.Sprintf("FleetSettings{Host: %s, Port: %d, Username: %s, Password: ****}", f.Host, f.Port, f.Username)
}

// MapConfig is a map known ahead of time for a coordinate frame.
type MapConfig struct {
	File       string
	MapID      string
	MapLabel   string
	OriginX    float64
	OriginY    float64
	Resolution float64
}

// ConnectorConfig is the validated, read-only connector configuration. It
// is only built by Validate and exposes its contents through accessors that
// return copies.
type ConnectorConfig struct {
	connectorType  string
	fleet          FleetSettings
	robots         []FlowcoreRobotConfig
	updateFreq     float64
	logLevel       string
	location       *time.Location
	maps           map[string]MapConfig
	userScriptsDir string
}

// ConnectorType returns the validated connector type tag.
func (c *ConnectorConfig) ConnectorType() string {
	return c.connectorType
}

// Fleet returns the resolved fleet settings.
func (c *ConnectorConfig) Fleet() FleetSettings {
	return c.fleet
}

// Robots returns the robots in declaration order.
func (c *ConnectorConfig) Robots() []FlowcoreRobotConfig {
	robots := make([]FlowcoreRobotConfig, len(c.robots))
	for i, robot := range c.robots {
		robots[i] = robot
		robots[i].Cameras = append([]CameraConfig(nil), robot.Cameras...)
	}
	return robots
}

// RobotIDs returns the platform robot IDs in declaration order.
func (c *ConnectorConfig) RobotIDs() []string {
	ids := make([]string, len(c.robots))
	for i, robot := range c.robots {
		ids[i] = robot.RobotID
	}
	return ids
}

// Robot looks up a robot by its platform ID.
func (c *ConnectorConfig) Robot(robotID string) (FlowcoreRobotConfig, bool) {
	for _, robot := range c.robots {
		if robot.RobotID == robotID {
			robot.Cameras = append([]CameraConfig(nil), robot.Cameras...)
			return robot, true
		}
	}
	return FlowcoreRobotConfig{}, false
}

// UpdateFreq returns the execution tick rate in Hz.
func (c *ConnectorConfig) UpdateFreq() float64 {
	return c.updateFreq
}

// TickInterval returns the period between execution ticks.
func (c *ConnectorConfig) TickInterval() time.Duration {
	return time.Duration(float64(time.Second) / c.updateFreq)
}

// LogLevel returns the configured log level.
func (c *ConnectorConfig) LogLevel() string {
	return c.logLevel
}

// Location returns the time zone the robots operate in.
func (c *ConnectorConfig) Location() *time.Location {
	return c.location
}

// Map returns the pre-configured map for a frame, if any.
func (c *ConnectorConfig) Map(frameID string) (MapConfig, bool) {
	m, ok := c.maps[frameID]
	return m, ok
}

// MapFrames returns the number of pre-configured maps.
func (c *ConnectorConfig) MapFrames() int {
	return len(c.maps)
}

// UserScriptsDir returns the directory holding user scripts, if configured.
func (c *ConnectorConfig) UserScriptsDir() string {
	return c.userScriptsDir
}
