// Package buildinfo carries the values stamped in at link time.
package buildinfo

import (
	"fmt"
)

var (
	// Version is the release number for this build
	Version = "dev"

	// Commit is the specific git hash
	Commit = "UNKNOWN"

	// BuildDate is the build timestamp
	BuildDate = "UNKNOWN"
)

// UserAgent identifies this build to remote services that care.
func UserAgent() string {
	return fmt.Sprintf("mapnav/%s (%s)", Version, Commit)
}
