package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Document is the configuration file as written by the operator. Pointer
// fields distinguish "absent" from a zero value.
type Document struct {
	ConnectorType   string                 `yaml:"connector_type" validate:"required"`
	ConnectorConfig map[string]interface{} `yaml:"connector_config"`
	Fleet           []RobotDocument        `yaml:"fleet" validate:"required,dive"`
	UpdateFreq      *float64               `yaml:"update_freq" validate:"omitempty,gt=0"`
	LogLevel        string                 `yaml:"log_level" validate:"omitempty,oneof=debug info warn error"`
	LocationTZ      string                 `yaml:"location_tz"`
	Maps            map[string]MapDocument `yaml:"maps" validate:"omitempty,dive"`
	UserScriptsDir  string                 `yaml:"user_scripts_dir"`
}

// RobotDocument is one entry of the fleet list.
type RobotDocument struct {
	RobotID      string           `yaml:"robot_id" validate:"required"`
	FleetRobotID *int             `yaml:"fleet_robot_id" validate:"required"`
	Cameras      []CameraDocument `yaml:"cameras" validate:"omitempty,dive"`
}

// CameraDocument is one entry of a robot's camera list.
type CameraDocument struct {
	VideoURL string   `yaml:"video_url" validate:"required"`
	Quality  *int     `yaml:"quality" validate:"omitempty,min=1,max=100"`
	Rate     *int     `yaml:"rate" validate:"omitempty,min=1,max=100"`
	Scaling  *float64 `yaml:"scaling" validate:"omitempty,gt=0,lte=1"`
}

// MapDocument is a pre-configured map keyed by frame ID.
type MapDocument struct {
	File       string  `yaml:"file" validate:"required"`
	MapID      string  `yaml:"map_id"`
	MapLabel   string  `yaml:"map_label"`
	OriginX    float64 `yaml:"origin_x"`
	OriginY    float64 `yaml:"origin_y"`
	Resolution float64 `yaml:"resolution" validate:"gt=0"`
}

// Numeric document fields. Quoted numbers in these fields are accepted, so
// fleet_robot_id: "7" reads as 7. connector_config is left untouched; its
// values are checked during fleet settings resolution.
var (
	intFields   = map[string]bool{"fleet_robot_id": true, "quality": true, "rate": true}
	floatFields = map[string]bool{"update_freq": true, "scaling": true, "origin_x": true, "origin_y": true, "resolution": true}
)

// Parse decodes a YAML configuration document. A value of the wrong type
// yields a SchemaError naming the field, e.g. fleet[0].fleet_robot_id.
func Parse(data []byte) (*Document, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	var doc Document
	if len(root.Content) == 0 {
		return &doc, nil
	}
	coerceNumbers(root.Content[0], "")

	if err := root.Content[0].Decode(&doc); err != nil {
		var typeErr *yaml.TypeError
		if errors.As(err, &typeErr) && len(typeErr.Errors) > 0 {
			return nil, typeErrorToSchema(root.Content[0], typeErr.Errors[0])
		}
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return &doc, nil
}

func coerceNumbers(node *yaml.Node, key string) {
	switch node.Kind {
	case yaml.MappingNode:
		for i := 0; i+1 < len(node.Content); i += 2 {
			child := node.Content[i].Value
			if key == "" && child == "connector_config" {
				continue
			}
			coerceNumbers(node.Content[i+1], child)
		}
	case yaml.SequenceNode:
		for _, item := range node.Content {
			coerceNumbers(item, "")
		}
	case yaml.ScalarNode:
		if node.ShortTag() != "!!str" {
			return
		}
		value := strings.TrimSpace(node.Value)
		switch {
		case intFields[key]:
			if n, err := strconv.Atoi(value); err == nil {
				node.Tag, node.Value, node.Style = "!!int", strconv.Itoa(n), 0
			}
		case floatFields[key]:
			if f, ok := parseDecimal(value); ok {
				node.Tag, node.Value, node.Style = "!!float", strconv.FormatFloat(f, 'g', -1, 64), 0
			}
		}
	}
}

// parseDecimal accepts plain decimal notation only, so "inf" and "nan" stay
// strings.
func parseDecimal(s string) (float64, bool) {
	if s == "" || strings.ContainsFunc(s, func(r rune) bool {
		return !strings.ContainsRune("0123456789+-.eE", r)
	}) {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	return f, err == nil
}

// typeErrorToSchema locates the value a yaml type error refers to. Messages
// look like "line 5: cannot unmarshal !!str `one` into int".
func typeErrorToSchema(root *yaml.Node, msg string) error {
	var line int
	reason := msg
	if _, err := fmt.Sscanf(msg, "line %d:", &line); err == nil {
		if i := strings.Index(msg, ": "); i >= 0 {
			reason = msg[i+2:]
		}
	}

	var value string
	if start := strings.Index(msg, "`"); start >= 0 {
		if end := strings.Index(msg[start+1:], "`"); end >= 0 {
			value = msg[start+1 : start+1+end]
		}
	}

	path := findPath(root, "", line, value)
	if path == "" {
		path = "document"
	}
	return &SchemaError{Path: path, Reason: "has the wrong type: " + reason}
}

// findPath returns the path of the deepest node on line that the message
// refers to. yaml quotes scalar values, truncated with "..." when long, and
// quotes nothing for sequences and mappings.
func findPath(node *yaml.Node, path string, line int, value string) string {
	matches := func(n *yaml.Node) bool {
		if n.Line != line {
			return false
		}
		if prefix, truncated := strings.CutSuffix(value, "..."); truncated {
			return n.Kind == yaml.ScalarNode && strings.HasPrefix(n.Value, prefix)
		}
		if value == "" {
			return n.Kind != yaml.ScalarNode
		}
		return n.Kind == yaml.ScalarNode && n.Value == value
	}

	switch node.Kind {
	case yaml.MappingNode:
		for i := 0; i+1 < len(node.Content); i += 2 {
			key, child := node.Content[i].Value, node.Content[i+1]
			childPath := key
			switch {
			case path == "maps":
				childPath = path + "[" + key + "]"
			case path != "":
				childPath = path + "." + key
			}
			if found := findPath(child, childPath, line, value); found != "" {
				return found
			}
			if matches(child) {
				return childPath
			}
		}
	case yaml.SequenceNode:
		for i, item := range node.Content {
			itemPath := fmt.Sprintf("%s[%d]", path, i)
			if found := findPath(item, itemPath, line, value); found != "" {
				return found
			}
			if matches(item) {
				return itemPath
			}
		}
	}
	return ""
}
