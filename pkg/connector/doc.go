// Package connector contains the building blocks of the FLOWCore connector.
//
// The connector package is organized into sub-packages:
//
//   - core: the hook contract (Hooks), the platform contract (Sink) and the
//     shared value types: State, Command, the one-shot ResultToken,
//     MapDescriptor and SystemStats.
//
//   - base: Driver, the lifecycle state machine. It connects, runs the
//     execution tick, dispatches commands and resolves maps, always invoking
//     at most one hook at a time from a single executor goroutine. Hook
//     errors and panics are caught at the hook boundary and never stop the
//     driver. HealthChecker probes a running driver periodically.
//
//   - flowcore: the hooks for FLOWCore fleets, publishing per-robot
//     telemetry and bridging commands and map requests to a fleet.Client.
//
// # Lifecycle
//
//	Disconnected -> Connecting -> Connected -> Disconnecting -> Disconnected
//
// A failed connect returns to Disconnected and is reported by Start. Stop is
// idempotent; Join waits until the driver is Disconnected again.
//
// # Example Usage
//
//	cfg, err := config.LoadFile("config/fleet.yaml", os.Environ())
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	hooks := flowcore.New(cfg, fleet.NewPlaceholderClient(cfg.Fleet(), logger), sink, logger)
//	driver := base.NewDriver(cfg, hooks, logger)
//	if err := driver.Start(ctx); err != nil {
//		log.Fatal(err)
//	}
//
//	result := <-driver.DispatchCommand(ctx, core.Command{RobotID: "r1", Name: "customCommand"})
//
//	driver.Stop()
//	err = driver.Join(ctx)
package connector
