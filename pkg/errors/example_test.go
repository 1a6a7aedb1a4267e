// Package errors provides examples of structured error handling in the connector.
package errors_test

import (
	"fmt"
	"io"

	"github.com/inorbit-ai/flowcore-connector/pkg/errors"
)

// Example demonstrates basic error creation and wrapping.
func Example() {
	err := errors.New(errors.ErrorTypeConnection, "failed to reach fleet service").
		WithDetail("host", "fleet.example.com").
		WithDetail("port", 8080)

	fmt.Println(err.Error())

	// Output:
	// connection: failed to reach fleet service
}

// ExampleWrap shows how to wrap existing errors with context.
func ExampleWrap() {
	err := errors.Wrap(io.EOF, errors.ErrorTypeFile, "failed to read map image").
		WithDetail("frame_id", "map")

	if errors.IsType(err, errors.ErrorTypeFile) {
		fmt.Println("This is a file error")
	}
	fmt.Println(err.Unwrap() == io.EOF)

	// Output:
	// This is a file error
	// true
}

// ExampleFromPanic shows how hook panics become internal errors.
func ExampleFromPanic() {
	err := errors.FromPanic("boom", "command handler failed")
	fmt.Println(err)
	fmt.Println(errors.IsType(err, errors.ErrorTypeInternal))

	// Output:
	// internal: command handler failed: panic: boom
	// true
}
