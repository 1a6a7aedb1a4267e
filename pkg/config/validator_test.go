package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validYAML = `
connector_type: flowcore
connector_config:
  fleet_host: fleet.example.com
  fleet_port: 8080
  fleet_username: dummy-user
  fleet_password: dummy-pass
fleet:
  - robot_id: robot-alpha
    fleet_robot_id: 101
    cameras: []
  - robot_id: robot-beta
    fleet_robot_id: 102
    cameras:
      - video_url: rtsp://cam.example.com/beta
        quality: 50
`

func parseDoc(t *testing.T, data string) *Document {
	t.Helper()
	doc, err := Parse([]byte(data))
	require.NoError(t, err)
	return doc
}

func intPtr(v int) *int { return &v }

func TestValidate_ValidDocument(t *testing.T) {
	cfg, err := Validate(parseDoc(t, validYAML), nil)
	require.NoError(t, err)

	assert.Equal(t, ConnectorType, cfg.ConnectorType())
	assert.Equal(t, FleetSettings{
		Host:     "fleet.example.com",
		Port:     8080,
		Username: "dummy-user",
		Password: "dummy-pass",
	}, cfg.Fleet())
	assert.Equal(t, []string{"robot-alpha", "robot-beta"}, cfg.RobotIDs())

	robots := cfg.Robots()
	require.Len(t, robots, 2)
	assert.Equal(t, 101, robots[0].FleetRobotID)
	assert.Empty(t, robots[0].Cameras)
	require.Len(t, robots[1].Cameras, 1)
	assert.Equal(t, "rtsp://cam.example.com/beta", robots[1].Cameras[0].VideoURL)
	assert.Equal(t, 50, *robots[1].Cameras[0].Quality)

	assert.Equal(t, DefaultUpdateFreq, cfg.UpdateFreq())
	assert.Equal(t, time.Second, cfg.TickInterval())
	assert.Equal(t, DefaultLogLevel, cfg.LogLevel())
	assert.Equal(t, time.UTC, cfg.Location())
	assert.Zero(t, cfg.MapFrames())
}

func TestValidate_DuplicateFleetRobotID(t *testing.T) {
	doc := parseDoc(t, validYAML)
	doc.Fleet = []RobotDocument{
		{RobotID: "r1", FleetRobotID: intPtr(1)},
		{RobotID: "r2", FleetRobotID: intPtr(1)},
	}

	cfg, err := Validate(doc, nil)
	assert.Nil(t, cfg)

	var dupErr *DuplicateIDError
	require.ErrorAs(t, err, &dupErr)
	assert.Equal(t, "fleet_robot_id", dupErr.Field)
	assert.Equal(t, 1, dupErr.Value)
	assert.Equal(t, 1, dupErr.Index)
	assert.Contains(t, err.Error(), "fleet_robot_id")
}

func TestValidate_DuplicateRobotID(t *testing.T) {
	doc := parseDoc(t, validYAML)
	doc.Fleet[1].RobotID = doc.Fleet[0].RobotID

	_, err := Validate(doc, nil)

	var dupErr *DuplicateIDError
	require.ErrorAs(t, err, &dupErr)
	assert.Equal(t, "robot_id", dupErr.Field)
	assert.Equal(t, "robot-alpha", dupErr.Value)
}

func TestValidate_ConnectorTypeMismatch(t *testing.T) {
	doc := parseDoc(t, validYAML)
	doc.ConnectorType = "other"

	cfg, err := Validate(doc, nil)
	assert.Nil(t, cfg)

	var mismatch *TypeMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, "flowcore", mismatch.Expected)
	assert.Equal(t, "other", mismatch.Actual)
	assert.Contains(t, err.Error(), "'flowcore'")
}

func TestValidate_SchemaErrors(t *testing.T) {
	tests := []struct {
		name   string
		yaml   string
		path   string
		reason string
	}{
		{
			name: "missing connector type",
			yaml: `
fleet:
  - robot_id: r1
    fleet_robot_id: 1
`,
			path:   "connector_type",
			reason: "is required",
		},
		{
			name: "missing fleet",
			yaml: `
connector_type: flowcore
`,
			path:   "fleet",
			reason: "is required",
		},
		{
			name: "missing fleet robot id",
			yaml: `
connector_type: flowcore
fleet:
  - robot_id: r1
    fleet_robot_id: 1
  - robot_id: r2
`,
			path:   "fleet[1].fleet_robot_id",
			reason: "is required",
		},
		{
			name: "missing robot id",
			yaml: `
connector_type: flowcore
fleet:
  - fleet_robot_id: 1
`,
			path:   "fleet[0].robot_id",
			reason: "is required",
		},
		{
			name: "camera without url",
			yaml: `
connector_type: flowcore
fleet:
  - robot_id: r1
    fleet_robot_id: 1
    cameras:
      - quality: 20
`,
			path:   "fleet[0].cameras[0].video_url",
			reason: "is required",
		},
		{
			name: "non-positive update frequency",
			yaml: `
connector_type: flowcore
update_freq: 0
fleet:
  - robot_id: r1
    fleet_robot_id: 1
`,
			path:   "update_freq",
			reason: "must be greater than 0",
		},
		{
			name: "infinite update frequency",
			yaml: `
connector_type: flowcore
update_freq: .inf
fleet:
  - robot_id: r1
    fleet_robot_id: 1
`,
			path:   "update_freq",
			reason: "must be a finite number, got +Inf",
		},
		{
			name: "update frequency overflowing the tick interval",
			yaml: `
connector_type: flowcore
update_freq: 1e-12
fleet:
  - robot_id: r1
    fleet_robot_id: 1
`,
			path: "update_freq",
		},
		{
			name: "update frequency below one nanosecond per tick",
			yaml: `
connector_type: flowcore
update_freq: 2e9
fleet:
  - robot_id: r1
    fleet_robot_id: 1
`,
			path: "update_freq",
		},
		{
			name: "unknown log level",
			yaml: `
connector_type: flowcore
log_level: chatty
fleet:
  - robot_id: r1
    fleet_robot_id: 1
`,
			path: "log_level",
		},
		{
			name: "map without file",
			yaml: `
connector_type: flowcore
maps:
  floor1:
    resolution: 0.05
fleet:
  - robot_id: r1
    fleet_robot_id: 1
`,
			path:   "maps[floor1].file",
			reason: "is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Validate(parseDoc(t, tt.yaml), fullEnviron())

			var schemaErr *SchemaError
			require.ErrorAs(t, err, &schemaErr)
			assert.Equal(t, tt.path, schemaErr.Path)
			if tt.reason != "" {
				assert.Equal(t, tt.reason, schemaErr.Reason)
			}
		})
	}
}

func TestValidate_UpdateFreqBounds(t *testing.T) {
	for _, freq := range []string{"1e-9", "1e9"} {
		t.Run(freq, func(t *testing.T) {
			cfg, err := Validate(parseDoc(t, `
connector_type: flowcore
update_freq: `+freq+`
fleet:
  - robot_id: r1
    fleet_robot_id: 1
`), fullEnviron())
			require.NoError(t, err)
			assert.Positive(t, cfg.TickInterval())
		})
	}
}

func TestValidate_SchemaCheckedBeforeCrossEntityChecks(t *testing.T) {
	doc := parseDoc(t, `
connector_type: other
fleet:
  - robot_id: r1
`)

	_, err := Validate(doc, nil)

	var schemaErr *SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.Equal(t, "fleet[0].fleet_robot_id", schemaErr.Path)
}

func TestValidate_FleetSettingsFromEnvironment(t *testing.T) {
	doc := parseDoc(t, `
connector_type: flowcore
fleet:
  - robot_id: r1
    fleet_robot_id: 1
`)

	cfg, err := Validate(doc, fullEnviron())
	require.NoError(t, err)
	assert.Equal(t, "env-fleet.example.com", cfg.Fleet().Host)
	assert.Equal(t, 8443, cfg.Fleet().Port)
}

func TestValidate_MissingFleetSetting(t *testing.T) {
	doc := parseDoc(t, `
connector_type: flowcore
connector_config:
  fleet_host: fleet.example.com
  fleet_username: u
fleet:
  - robot_id: r1
    fleet_robot_id: 1
`)

	_, err := Validate(doc, nil)

	var missing *MissingFieldError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, FieldFleetPassword, missing.Field)
}

func TestValidate_OptionalSettings(t *testing.T) {
	doc := parseDoc(t, `
connector_type: flowcore
update_freq: 4
log_level: debug
location_tz: America/Los_Angeles
user_scripts_dir: /opt/scripts
maps:
  floor1:
    file: maps/floor1.png
    origin_x: -1.5
    origin_y: 2
    resolution: 0.05
  floor2:
    file: maps/floor2.png
    map_id: second
    map_label: Second floor
    resolution: 0.1
fleet:
  - robot_id: r1
    fleet_robot_id: 1
`)

	cfg, err := Validate(doc, fullEnviron())
	require.NoError(t, err)

	assert.Equal(t, 4.0, cfg.UpdateFreq())
	assert.Equal(t, 250*time.Millisecond, cfg.TickInterval())
	assert.Equal(t, "debug", cfg.LogLevel())
	assert.Equal(t, "America/Los_Angeles", cfg.Location().String())
	assert.Equal(t, "/opt/scripts", cfg.UserScriptsDir())
	assert.Equal(t, 2, cfg.MapFrames())

	floor1, ok := cfg.Map("floor1")
	require.True(t, ok)
	assert.Equal(t, MapConfig{
		File:       "maps/floor1.png",
		MapID:      "floor1",
		MapLabel:   "floor1",
		OriginX:    -1.5,
		OriginY:    2,
		Resolution: 0.05,
	}, floor1)

	floor2, ok := cfg.Map("floor2")
	require.True(t, ok)
	assert.Equal(t, "second", floor2.MapID)
	assert.Equal(t, "Second floor", floor2.MapLabel)

	_, ok = cfg.Map("floor3")
	assert.False(t, ok)
}

func TestValidate_UnknownTimeZone(t *testing.T) {
	doc := parseDoc(t, validYAML)
	doc.LocationTZ = "Mars/Olympus_Mons"

	_, err := Validate(doc, nil)

	var schemaErr *SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.Equal(t, "location_tz", schemaErr.Path)
}

func TestValidate_NilDocument(t *testing.T) {
	_, err := Validate(nil, nil)

	var schemaErr *SchemaError
	assert.ErrorAs(t, err, &schemaErr)
}

func TestConnectorConfig_AccessorsReturnCopies(t *testing.T) {
	cfg, err := Validate(parseDoc(t, validYAML), nil)
	require.NoError(t, err)

	robots := cfg.Robots()
	robots[0].RobotID = "mutated"
	robots[1].Cameras[0].VideoURL = "mutated"

	again := cfg.Robots()
	assert.Equal(t, "robot-alpha", again[0].RobotID)
	assert.Equal(t, "rtsp://cam.example.com/beta", again[1].Cameras[0].VideoURL)

	robot, ok := cfg.Robot("robot-beta")
	require.True(t, ok)
	assert.Equal(t, 102, robot.FleetRobotID)

	_, ok = cfg.Robot("robot-gamma")
	assert.False(t, ok)
}
