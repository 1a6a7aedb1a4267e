// Package config provides the configuration model for the FLOWCore connector.
//
// A configuration starts life as a YAML document and is turned into an
// immutable ConnectorConfig by an explicit pipeline of pure steps:
//
//  1. Parse: the YAML document is decoded into a Document. Quoted numbers
//     are accepted in numeric fields; other type errors are SchemaErrors.
//  2. Schema: field-level checks on every nested entity (SchemaError).
//  3. Connector type: the document must declare "flowcore" (TypeMismatchError).
//  4. Resolve: every FleetSettings field is resolved from the explicit value,
//     then the environment, then the declared default (MissingFieldError).
//  5. Cross-entity checks: fleet_robot_id and robot_id must be unique across
//     the fleet (DuplicateIDError).
//
// The first failing step stops the pipeline and no partial configuration is
// returned.
//
// # Usage
//
//	environ, err := config.EnvironWithFile(config.DefaultEnvFile, os.Environ())
//	if err != nil {
//		return err
//	}
//	cfg, err := config.LoadFile("config/fleet.yaml", environ)
//	if err != nil {
//		return err
//	}
//	for _, robot := range cfg.Robots() {
//		fmt.Println(robot.RobotID, robot.FleetRobotID)
//	}
//
// # Environment Variables
//
// Fleet settings fall back to variables named INORBIT_FLOWCORE_<FIELD>, for
// example INORBIT_FLOWCORE_FLEET_HOST. Variable names are matched without
// regard to case and empty values are ignored.
//
//	# config/fleet.yaml
//	connector_type: flowcore
//	connector_config:
//	  fleet_host: fleet.example.com
//	  fleet_username: operator
//	fleet:
//	  - robot_id: robot-alpha
//	    fleet_robot_id: 101
//
// With INORBIT_FLOWCORE_FLEET_PASSWORD set, fleet_port resolves to its
// default of 80 and the password comes from the environment.
package config
