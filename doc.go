// Package flowcoreconnector bridges a FLOWCore fleet manager and the InOrbit
// robot observability platform.
//
// The connector translates per-robot telemetry, commands and map requests
// between the two systems for every robot of a fleet from a single process.
//
// # Architecture
//
// A run is built from two parts:
//
// 1. Configuration (pkg/config): a YAML document is parsed and validated
// into an immutable ConnectorConfig. Fleet settings fall back to
// INORBIT_FLOWCORE_* environment variables and then to declared defaults.
// Violations such as a duplicate fleet_robot_id stop the process at startup.
//
// 2. Lifecycle (pkg/connector/base): a Driver connects to the fleet, runs
// the execution tick at update_freq, dispatches platform commands with a
// one-shot result and resolves maps lazily, caching them per robot and
// frame. The FLOWCore specific behavior lives in pkg/connector/flowcore.
//
// # Quick Start
//
// Write a configuration:
//
//	connector_type: flowcore
//	connector_config:
//	  fleet_host: fleet.example.com
//	  fleet_username: operator
//	fleet:
//	  - robot_id: warehouse-amr-1
//	    fleet_robot_id: 1
//
// Supply the remaining settings through the environment or config/.env:
//
//	INORBIT_FLOWCORE_FLEET_PASSWORD=secret
//
// Run the connector:
//
//	flowcore-connector -c config/fleet.yaml --metrics-addr :9464
//
// # Observability
//
// Logs are structured JSON written with zap. Prometheus metrics and a health
// endpoint are served at /metrics and /healthz when --metrics-addr is set,
// and hook spans can be exported with --trace-stdout.
package flowcoreconnector
