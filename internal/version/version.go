// Package version holds build metadata stamped with -ldflags at release time.
package version

import (
	"fmt"
	"runtime"
)

// Set with -ldflags "-X go.eggybyte.com/carddesk/internal/version.Version=...".
var (
	Version   = "v0.1.0-dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

// String returns e.g. "carddesk version v0.1.0 (commit 4a9b2c1, built 2026-10-01T12:00:00Z)".
func String() string {
	return fmt.Sprintf("carddesk version %s (commit %s, built %s)", Version, Commit, BuildTime)
}

// Full adds the Go runtime to String.
func Full() string {
	return fmt.Sprintf("%s\ngo %s %s/%s", String(), runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
