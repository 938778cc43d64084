// Package version holds build information set with -ldflags.
package version

import (
	"fmt"
	"runtime"
)

// Set at build time:
//
//	go build -ldflags "-X github.com/longkey1/aichat/internal/version.Version=v1.0.0"
var (
	Version   = "dev"
	CommitSHA = "unknown"
	BuildTime = "unknown"
)

// Short returns the version number.
func Short() string {
	return Version
}

// Info returns the version with commit, build time and Go version.
func Info() string {
	return fmt.Sprintf("Version:    %s\nCommit SHA: %s\nBuild Time: %s\nGo Version: %s",
		Version, CommitSHA, BuildTime, runtime.Version())
}
