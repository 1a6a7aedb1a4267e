package config

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"
	"time"
	_ "time/tzdata" // location_tz must resolve on hosts without a zoneinfo database

	"github.com/go-playground/validator/v10"
)

// newValidator returns a validator that reports field paths using the
// document's YAML key names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return field.Name
		}
		return name
	})
	return v
}

// Validate runs the validation pipeline over a parsed document and builds
// the immutable ConnectorConfig. environ is the environment snapshot used
// for fleet setting fallbacks.
func Validate(doc *Document, environ []string) (*ConnectorConfig, error) {
	if doc == nil {
		return nil, &SchemaError{Path: "document", Reason: "is empty"}
	}

	if err := checkSchema(doc); err != nil {
		return nil, err
	}

	if err := checkUpdateFreq(doc.UpdateFreq); err != nil {
		return nil, err
	}

	if err := checkConnectorType(doc.ConnectorType); err != nil {
		return nil, err
	}

	fleet, err := ResolveFleetSettings(doc.ConnectorConfig, environ)
	if err != nil {
		return nil, err
	}

	robots := buildRobots(doc.Fleet)
	if err := checkUniqueFleetRobotIDs(robots); err != nil {
		return nil, err
	}
	if err := checkUniqueRobotIDs(robots); err != nil {
		return nil, err
	}

	location, err := loadLocation(doc.LocationTZ)
	if err != nil {
		return nil, err
	}

	cfg := &ConnectorConfig{
		connectorType:  doc.ConnectorType,
		fleet:          fleet,
		robots:         robots,
		updateFreq:     DefaultUpdateFreq,
		logLevel:       DefaultLogLevel,
		location:       location,
		maps:           buildMaps(doc.Maps),
		userScriptsDir: doc.UserScriptsDir,
	}
	if doc.UpdateFreq != nil {
		cfg.updateFreq = *doc.UpdateFreq
	}
	if doc.LogLevel != "" {
		cfg.logLevel = doc.LogLevel
	}
	return cfg, nil
}

// checkSchema applies the field-level rules declared on the document types.
func checkSchema(doc *Document) error {
	err := newValidator().Struct(doc)
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) || len(validationErrs) == 0 {
		return fmt.Errorf("failed to validate configuration: %w", err)
	}

	fe := validationErrs[0]
	return &SchemaError{Path: fieldPath(fe.Namespace()), Reason: describe(fe)}
}

// fieldPath strips the root type name from a validator namespace.
func fieldPath(namespace string) string {
	if i := strings.Index(namespace, "."); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return fmt.Sprintf("must be one of [%s], got %v", fe.Param(), fe.Value())
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "lte", "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	default:
		return fmt.Sprintf("failed %q validation", fe.Tag())
	}
}

// checkUpdateFreq rejects rates whose tick interval is not a positive
// time.Duration, such as .inf or values small enough to overflow.
func checkUpdateFreq(freq *float64) error {
	if freq == nil {
		return nil
	}
	f := *freq
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return &SchemaError{Path: "update_freq", Reason: fmt.Sprintf("must be a finite number, got %v", f)}
	}
	interval := float64(time.Second) / f
	if interval < 1 || interval >= math.MaxInt64 {
		return &SchemaError{Path: "update_freq", Reason: fmt.Sprintf("gives a tick interval out of range, got %v Hz", f)}
	}
	return nil
}

func checkConnectorType(connectorType string) error {
	if connectorType != ConnectorType {
		return &TypeMismatchError{Expected: ConnectorType, Actual: connectorType}
	}
	return nil
}

func checkUniqueFleetRobotIDs(robots []FlowcoreRobotConfig) error {
	seen := make(map[int]struct{}, len(robots))
	for i, robot := range robots {
		if _, ok := seen[robot.FleetRobotID]; ok {
			return &DuplicateIDError{Field: "fleet_robot_id", Value: robot.FleetRobotID, Index: i}
		}
		seen[robot.FleetRobotID] = struct{}{}
	}
	return nil
}

func checkUniqueRobotIDs(robots []FlowcoreRobotConfig) error {
	seen := make(map[string]struct{}, len(robots))
	for i, robot := range robots {
		if _, ok := seen[robot.RobotID]; ok {
			return &DuplicateIDError{Field: "robot_id", Value: robot.RobotID, Index: i}
		}
		seen[robot.RobotID] = struct{}{}
	}
	return nil
}

func loadLocation(name string) (*time.Location, error) {
	if name == "" {
		name = DefaultLocationTZ
	}
	location, err := time.LoadLocation(name)
	if err != nil {
		return nil, &SchemaError{Path: "location_tz", Reason: fmt.Sprintf("unknown time zone %q", name)}
	}
	return location, nil
}

// buildRobots runs after checkSchema, so FleetRobotID is never nil here.
func buildRobots(docs []RobotDocument) []FlowcoreRobotConfig {
	robots := make([]FlowcoreRobotConfig, 0, len(docs))
	for _, doc := range docs {
		robot := FlowcoreRobotConfig{
			RobotConfig: RobotConfig{
				RobotID: doc.RobotID,
			},
			FleetRobotID: *doc.FleetRobotID,
		}
		for _, camera := range doc.Cameras {
			robot.Cameras = append(robot.Cameras, CameraConfig{
				VideoURL: camera.VideoURL,
				Quality:  clonePtr(camera.Quality),
				Rate:     clonePtr(camera.Rate),
				Scaling:  clonePtr(camera.Scaling),
			})
		}
		robots = append(robots, robot)
	}
	return robots
}

func buildMaps(docs map[string]MapDocument) map[string]MapConfig {
	maps := make(map[string]MapConfig, len(docs))
	for frameID, doc := range docs {
		m := MapConfig{
			File:       doc.File,
			MapID:      doc.MapID,
			MapLabel:   doc.MapLabel,
			OriginX:    doc.OriginX,
			OriginY:    doc.OriginY,
			Resolution: doc.Resolution,
		}
		if m.MapID == "" {
			m.MapID = frameID
		}
		if m.MapLabel == "" {
			m.MapLabel = m.MapID
		}
		maps[frameID] = m
	}
	return maps
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
