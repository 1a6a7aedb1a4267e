package config

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// Fleet setting keys as they appear under connector_config.
const (
	FieldFleetHost     = "fleet_host"
	FieldFleetPort     = "fleet_port"
	FieldFleetUsername = "fleet_username"
	FieldFleetPassword = "fleet_password"
)

// fleetFields lists the fleet settings in resolution order.
var fleetFields = []string{FieldFleetHost, FieldFleetPort, FieldFleetUsername, FieldFleetPassword}

// fleetDefaults carries the declared defaults. Fields without a default are
// left out so they stay absent until an explicit or environment value
// fills them.
type fleetDefaults struct {
	FleetPort int `koanf:"fleet_port"`
}

// EnvVarName returns the environment variable consulted for a fleet setting.
func EnvVarName(field string) string {
	return EnvPrefix + strings.ToUpper(field)
}

// ResolveFleetSettings resolves every fleet setting by precedence: explicit
// value, then environment variable, then declared default. environ is a
// snapshot in os.Environ form; when a name appears more than once (in any
// letter case) the later entry wins.
func ResolveFleetSettings(explicit map[string]interface{}, environ []string) (FleetSettings, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(fleetDefaults{FleetPort: DefaultFleetPort}, "koanf"), nil); err != nil {
		return FleetSettings{}, fmt.Errorf("failed to load fleet defaults: %w", err)
	}

	if err := k.Load(env.Provider(".", env.Opt{
		EnvironFunc:   func() []string { return environ },
		TransformFunc: transformEnv,
	}), nil); err != nil {
		return FleetSettings{}, fmt.Errorf("failed to load fleet settings from environment: %w", err)
	}

	for _, field := range fleetFields {
		value, ok := explicit[field]
		if !ok || isEmpty(value) {
			continue
		}
		if err := k.Set(field, value); err != nil {
			return FleetSettings{}, fmt.Errorf("failed to set %s: %w", field, err)
		}
	}

	var (
		settings FleetSettings
		err      error
	)
	if settings.Host, err = requireString(k, FieldFleetHost); err != nil {
		return FleetSettings{}, err
	}
	if settings.Port, err = requirePort(k, FieldFleetPort); err != nil {
		return FleetSettings{}, err
	}
	if settings.Username, err = requireString(k, FieldFleetUsername); err != nil {
		return FleetSettings{}, err
	}
	if settings.Password, err = requireString(k, FieldFleetPassword); err != nil {
		return FleetSettings{}, err
	}
	return settings, nil
}

// transformEnv maps INORBIT_FLOWCORE_FLEET_HOST (any case) to fleet_host and
// drops everything else, including empty values.
func transformEnv(key, value string) (string, any) {
	upper := strings.ToUpper(key)
	if value == "" || !strings.HasPrefix(upper, EnvPrefix) {
		return "", nil
	}
	field := strings.ToLower(strings.TrimPrefix(upper, EnvPrefix))
	for _, known := range fleetFields {
		if field == known {
			return field, value
		}
	}
	return "", nil
}

func isEmpty(value interface{}) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return v == ""
	default:
		return false
	}
}

func requireString(k *koanf.Koanf, field string) (string, error) {
	value := k.Get(field)
	if isEmpty(value) {
		return "", &MissingFieldError{Field: field, EnvVar: EnvVarName(field)}
	}
	s, ok := value.(string)
	if !ok {
		return "", &SchemaError{Path: "connector_config." + field, Reason: fmt.Sprintf("must be a string, got %T", value)}
	}
	return s, nil
}

func requirePort(k *koanf.Koanf, field string) (int, error) {
	value := k.Get(field)
	if isEmpty(value) {
		return 0, &MissingFieldError{Field: field, EnvVar: EnvVarName(field)}
	}

	path := "connector_config." + field
	var port int
	switch v := value.(type) {
	case int:
		port = v
	case int64:
		port = int(v)
	case uint64:
		port = int(v)
	case float64:
		if v != math.Trunc(v) {
			return 0, &SchemaError{Path: path, Reason: fmt.Sprintf("must be an integer, got %v", v)}
		}
		port = int(v)
	case string:
		parsed, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, &SchemaError{Path: path, Reason: fmt.Sprintf("must be an integer, got %q", v)}
		}
		port = parsed
	default:
		return 0, &SchemaError{Path: path, Reason: fmt.Sprintf("must be an integer, got %T", value)}
	}

	if port < 1 || port > 65535 {
		return 0, &SchemaError{Path: path, Reason: fmt.Sprintf("must be between 1 and 65535, got %d", port)}
	}
	return port, nil
}
