package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

var (
	// Version is the semantic version of the build. It can be overridden via ldflags.
	Version = "0.1.0"
	// Commit is the short git SHA embedded at build time. Falls back to the VCS stamp of the binary.
	Commit = ""
	// BuildTime is the UTC build timestamp embedded at build time.
	BuildTime = "unknown"
)

// shortCommitLength is the number of SHA characters shown.
const shortCommitLength = 7

// Short returns only the semantic version string.
func Short() string {
	return Version
}

// Full returns a human-readable version string with commit, build time and Go version.
func Full() string {
	return fmt.Sprintf("lvc %s (commit %s, built %s, %s)", Version, commit(), BuildTime, runtime.Version())
}

// commit returns the injected commit or the vcs.revision recorded by the Go toolchain.
func commit() string {
	if Commit != "" {
		return Commit
	}

	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "none"
	}

	for _, setting := range info.Settings {
		if setting.Key == "vcs.revision" && setting.Value != "" {
			if len(setting.Value) > shortCommitLength {
				return setting.Value[:shortCommitLength]
			}

			return setting.Value
		}
	}

	return "none"
}
