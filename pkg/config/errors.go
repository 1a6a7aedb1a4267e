package config

import "fmt"

// MissingFieldError is returned when a required fleet setting has no value
// in the document, the environment or the declared defaults.
type MissingFieldError struct {
	Field  string
	EnvVar string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("connector_config.%s is required: set it in the configuration file or through %s",
		e.Field, e.EnvVar)
}

// TypeMismatchError is returned when the document declares a connector type
// other than the one this connector implements.
type TypeMismatchError struct {
	Expected string
	Actual   string
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("expected connector type '%s' not '%s'", e.Expected, e.Actual)
}

// DuplicateIDError is returned when two robots share an identifier that must
// be unique across the fleet.
type DuplicateIDError struct {
	Field string
	Value interface{}
	Index int
}

func (e *DuplicateIDError) Error() string {
	return fmt.Sprintf("%s values must be unique: %v is repeated at fleet[%d]", e.Field, e.Value, e.Index)
}

// SchemaError is returned when a field is missing or has the wrong type or
// range. Path uses the document's key names, e.g. fleet[1].fleet_robot_id.
type SchemaError struct {
	Path   string
	Reason string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s: %s", e.Path, e.Reason)
}
