// Package version carries build metadata set with -ldflags, e.g.
//
//	go build -ldflags "-X github.com/nvlab/pulsesweep/internal/version.Version=v0.3.0"
package version

import "fmt"

var (
	Version   = "dev"
	GitSHA    = "unknown"
	BuildTime = "unknown"
)

// String formats the build metadata for -version output and logs.
func String() string {
	return fmt.Sprintf("pulsesweep %s (%s, built %s)", Version, GitSHA, BuildTime)
}
