// Package buildinfo carries the version stamped into the compta binary.
package buildinfo

import (
	"fmt"
	"runtime/debug"
)

// Set with -ldflags "-X github.com/cleared-dev/compta/internal/buildinfo.Version=...".
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// ModuleVersion returns Version, or the module version recorded by
// `go install` when no ldflags were given.
func ModuleVersion() string {
	if Version != "dev" {
		return Version
	}
	if bi, ok := debug.ReadBuildInfo(); ok && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		return bi.Main.Version
	}
	return Version
}

// String is the `compta --version` line.
func String() string {
	return fmt.Sprintf("%s (commit: %s, built: %s)", ModuleVersion(), Commit, Date)
}
