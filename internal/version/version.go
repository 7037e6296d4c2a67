package version

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	"golang.org/x/mod/semver"
)

// These variables are set at build time via -ldflags
var (
	Version   = "dev"     // Set via: -ldflags "-X github.com/osa911/datacap/internal/version.Version=v1.0.0"
	BuildTime = "unknown" // Set via: -ldflags "-X github.com/osa911/datacap/internal/version.BuildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
	GitCommit = "unknown" // Set via: -ldflags "-X github.com/osa911/datacap/internal/version.GitCommit=$(git rev-parse HEAD)"
)

// BuildInfo contains comprehensive build information
type BuildInfo struct {
	Version   string `json:"version"`
	BuildTime string `json:"build_time"`
	GitCommit string `json:"git_commit"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// GetBuildInfo returns complete build information
func GetBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   Version,
		BuildTime: BuildTime,
		GitCommit: GitCommit,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}

// Info returns a formatted version info string for CLI output
func Info() string {
	if BuildTime == "unknown" {
		return fmt.Sprintf("%s (development build)", Version)
	}

	buildTime, err := time.Parse(time.RFC3339, BuildTime)
	if err != nil {
		return fmt.Sprintf("%s (built %s)", Version, BuildTime)
	}

	commit := GitCommit
	if len(commit) > 8 {
		commit = commit[:8]
	}
	return fmt.Sprintf("%s (built %s, commit %s)", Version, buildTime.Format("2006-01-02 15:04:05 UTC"), commit)
}

// CompareVersions compares two semantic versions, with or without the "v" prefix.
// Returns -1, 0 or 1. Non-semver strings such as "dev" sort before every release.
func CompareVersions(v1, v2 string) int {
	return semver.Compare(canonical(v1), canonical(v2))
}

// Mismatch reports whether a CLI and a daemon disagree on major.minor
func Mismatch(cli, daemon string) bool {
	a, b := canonical(cli), canonical(daemon)
	if !semver.IsValid(a) || !semver.IsValid(b) {
		return false
	}
	return semver.MajorMinor(a) != semver.MajorMinor(b)
}

func canonical(v string) string {
	if v != "" && !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	return v
}
