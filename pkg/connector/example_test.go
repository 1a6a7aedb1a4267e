// Package connector provides examples of running the FLOWCore connector.
package connector_test

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/inorbit-ai/flowcore-connector/pkg/config"
	"github.com/inorbit-ai/flowcore-connector/pkg/connector/base"
	"github.com/inorbit-ai/flowcore-connector/pkg/connector/core"
	"github.com/inorbit-ai/flowcore-connector/pkg/connector/flowcore"
	"github.com/inorbit-ai/flowcore-connector/pkg/fleet"
	"go.uber.org/zap"
)

const exampleConfig = `
connector_type: flowcore
connector_config:
  fleet_host: fleet.example.com
  fleet_username: operator
  fleet_password: secret
fleet:
  - robot_id: r1
    fleet_robot_id: 1
  - robot_id: r2
    fleet_robot_id: 2
`

type printSink struct{}

func (printSink) PublishRobotKeyValues(_ context.Context, robotID string, values map[string]interface{}) error {
	fmt.Printf("%s: %v\n", robotID, values)
	return nil
}

func (printSink) PublishSystemStats(context.Context, string, core.SystemStats) error {
	return nil
}

// Example runs the FLOWCore hooks under the lifecycle driver.
func Example() {
	doc, err := config.Parse([]byte(exampleConfig))
	if err != nil {
		log.Fatal(err)
	}
	cfg, err := config.Validate(doc, nil)
	if err != nil {
		log.Fatal(err)
	}

	logger := zap.NewNop()
	hooks := flowcore.New(cfg, fleet.NewPlaceholderClient(cfg.Fleet(), logger), printSink{}, logger,
		flowcore.WithVersion("1.0.0"))
	driver := base.NewDriver(cfg, hooks, logger, base.WithTickInterval(time.Hour))

	ctx := context.Background()
	if err := driver.Start(ctx); err != nil {
		log.Fatal(err)
	}

	result := <-driver.DispatchCommand(ctx, core.Command{RobotID: "r2", Name: "customCommand"})
	fmt.Println("command:", result.Code)

	if descriptor, ok := driver.FetchMap(ctx, "r1", "floor1"); ok {
		fmt.Println("map:", descriptor.MapID)
	}

	driver.Stop()
	if err := driver.Join(ctx); err != nil {
		log.Fatal(err)
	}
	fmt.Println("state:", driver.State())

	// Output:
	// r1: map[connector_version:1.0.0]
	// r2: map[connector_version:1.0.0]
	// command: success
	// map: floor1
	// state: disconnected
}
