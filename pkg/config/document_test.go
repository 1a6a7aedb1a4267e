package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_QuotedNumbers(t *testing.T) {
	doc := parseDoc(t, `
connector_type: flowcore
update_freq: "2.5"
connector_config:
  fleet_password: "1234"
fleet:
  - robot_id: "7"
    fleet_robot_id: "7"
    cameras:
      - video_url: rtsp://cam.example.com/7
        quality: " 80 "
        scaling: "0.5"
maps:
  floor1:
    file: floor1.png
    origin_x: "-3"
    resolution: "0.05"
`)

	require.Len(t, doc.Fleet, 1)
	assert.Equal(t, "7", doc.Fleet[0].RobotID)
	require.NotNil(t, doc.Fleet[0].FleetRobotID)
	assert.Equal(t, 7, *doc.Fleet[0].FleetRobotID)
	assert.Equal(t, 80, *doc.Fleet[0].Cameras[0].Quality)
	assert.Equal(t, 0.5, *doc.Fleet[0].Cameras[0].Scaling)
	require.NotNil(t, doc.UpdateFreq)
	assert.Equal(t, 2.5, *doc.UpdateFreq)
	assert.Equal(t, -3.0, doc.Maps["floor1"].OriginX)
	assert.Equal(t, 0.05, doc.Maps["floor1"].Resolution)
	assert.Equal(t, "1234", doc.ConnectorConfig["fleet_password"], "connector_config values keep their type")
}

func TestParse_WrongTypeNamesField(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		path string
	}{
		{
			name: "non-numeric fleet robot id",
			yaml: `
connector_type: flowcore
fleet:
  - robot_id: r1
    fleet_robot_id: 1
  - robot_id: r2
    fleet_robot_id: "two"
`,
			path: "fleet[1].fleet_robot_id",
		},
		{
			name: "fractional fleet robot id",
			yaml: `
connector_type: flowcore
fleet:
  - robot_id: r1
    fleet_robot_id: "1.5"
`,
			path: "fleet[0].fleet_robot_id",
		},
		{
			name: "long value",
			yaml: `
connector_type: flowcore
fleet:
  - robot_id: r1
    fleet_robot_id: robot-number-one
`,
			path: "fleet[0].fleet_robot_id",
		},
		{
			name: "camera quality",
			yaml: `
connector_type: flowcore
fleet:
  - robot_id: r1
    fleet_robot_id: 1
    cameras:
      - video_url: rtsp://cam.example.com/1
        quality: high
`,
			path: "fleet[0].cameras[0].quality",
		},
		{
			name: "map resolution",
			yaml: `
connector_type: flowcore
maps:
  floor1:
    file: floor1.png
    resolution: fine
fleet:
  - robot_id: r1
    fleet_robot_id: 1
`,
			path: "maps[floor1].resolution",
		},
		{
			name: "update frequency not a number",
			yaml: `
connector_type: flowcore
update_freq: nan
fleet:
  - robot_id: r1
    fleet_robot_id: 1
`,
			path: "update_freq",
		},
		{
			name: "list where a value is expected",
			yaml: `
connector_type: flowcore
fleet:
  - robot_id: [r1, r2]
    fleet_robot_id: 1
`,
			path: "fleet[0].robot_id",
		},
		{
			name: "fleet is not a list",
			yaml: `
connector_type: flowcore
fleet: r1
`,
			path: "fleet",
		},
		{
			name: "document is not a mapping",
			yaml: `
- connector_type
`,
			path: "document",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))

			var schemaErr *SchemaError
			require.ErrorAs(t, err, &schemaErr)
			assert.Equal(t, tt.path, schemaErr.Path)
			assert.Contains(t, schemaErr.Reason, "has the wrong type")
		})
	}
}

func TestParse_EmptyDocument(t *testing.T) {
	doc, err := Parse(nil)
	require.NoError(t, err)
	assert.Empty(t, doc.Fleet)
}
