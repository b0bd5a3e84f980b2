// Package version reports build metadata injected through -ldflags.
package version

import (
	"runtime"
	"runtime/debug"
)

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// Resolved returns Version, falling back to the module version recorded by `go install`.
func Resolved() string {
	if Version != "dev" {
		return Version
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		if v := info.Main.Version; v != "" && v != "(devel)" {
			return v
		}
	}
	return Version
}

func String() string {
	return "aurora " + Resolved() + " (commit=" + Commit + ", date=" + Date + ", go=" + runtime.Version() + ")"
}
