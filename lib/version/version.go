// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// These variables are set via -ldflags at build time.
var (
	// GitCommit is the short git SHA of the build.
	GitCommit = "unknown"

	// GitDirty indicates whether there were uncommitted changes.
	GitDirty = "false"

	// BuildTime is the UTC timestamp of the build.
	BuildTime = "unknown"

	// Version is the semantic version. This is set manually for releases.
	Version = "0.1.0-dev"
)

// Info returns a formatted version string suitable for --version output.
func Info() string {
	commit, dirty := Commit(), GitDirty == "true"
	if GitCommit == "unknown" {
		_, dirty = vcsSettings()
	}
	suffix := ""
	if dirty {
		suffix = "-dirty"
	}
	return fmt.Sprintf("%s (%s%s, %s)", Version, commit, suffix, BuildTime)
}

// Full returns Info plus the Go version and platform.
func Full() string {
	return fmt.Sprintf("%s\n  Go: %s\n  Platform: %s/%s",
		Info(), runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

// Commit returns the git commit SHA. Without ldflags it falls back to
// the VCS revision the go command stamped into the binary, shortened
// to 12 characters.
func Commit() string {
	if GitCommit != "unknown" {
		return GitCommit
	}
	if revision, _ := vcsSettings(); revision != "" {
		return revision
	}
	return GitCommit
}

func vcsSettings() (revision string, modified bool) {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "", false
	}
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			revision = setting.Value
			if len(revision) > 12 {
				revision = revision[:12]
			}
		case "vcs.modified":
			modified = setting.Value == "true"
		}
	}
	return revision, modified
}
