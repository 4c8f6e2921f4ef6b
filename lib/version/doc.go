// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package version provides build version information for warcindex.
//
// Four package-level variables are injected at build time via
// -ldflags -X:
//
//	go build -ldflags "-X github.com/fairuse/warcindex/lib/version.GitCommit=$(git rev-parse --short HEAD)" ./cmd/warcindex
//
//   - [GitCommit] -- short git SHA of the build
//   - [GitDirty] -- "true" if there were uncommitted changes
//   - [BuildTime] -- UTC timestamp of the build
//   - [Version] -- semantic version string (set manually for releases)
//
// When GitCommit is not injected, [Commit] reads the revision the go
// command records in the binary's build info.
package version
