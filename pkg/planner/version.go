package planner

import "runtime"

// Version is the current version of the gokanplan planner.
const Version = "0.3.0"

// VersionInfo provides detailed version information.
type VersionInfo struct {
	Version   string `json:"version"`
	GoVersion string `json:"go_version"`
	GitCommit string `json:"git_commit,omitempty"`
	BuildDate string `json:"build_date,omitempty"`
}

// GetVersion returns the current version string.
func GetVersion() string {
	return Version
}

// GetVersionInfo returns detailed version information. Commit and build
// date are filled in by the binary, which receives them through -ldflags.
func GetVersionInfo() VersionInfo {
	return VersionInfo{
		Version:   Version,
		GoVersion: runtime.Version(),
	}
}
