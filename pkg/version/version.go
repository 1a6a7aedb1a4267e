// Package version reports the connector build version.
package version

import "runtime/debug"

// Version is set at link time with
//
//	-ldflags "-X github.com/inorbit-ai/flowcore-connector/pkg/version.Version=1.2.3"
//
// When unset, the module version recorded in the build info is used.
var Version = ""

// Unknown is reported when no version information is available.
const Unknown = "unknown"

// Get returns the running connector version.
func Get() string {
	if Version != "" {
		return Version
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return Unknown
}
