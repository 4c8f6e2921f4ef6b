// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli is the small command framework behind the warcindex
// binary.
//
// A [Command] tree dispatches on the first positional argument. Leaf
// commands declare their flags as tagged struct fields bound with
// [FlagsFromParams], so the parameters a command accepts are visible
// in one place:
//
//	type searchParams struct {
//	    cli.JSONOutput
//	    Limit int `flag:"limit,n" desc:"maximum hits" default:"10"`
//	}
//
// Errors carry the process exit status: [UsageError] for bad
// invocations and configuration (exit 2), [ExitError] for commands
// that already reported their outcome, and anything else is a runtime
// failure (exit 1). [NewLogger] builds the process logger.
package cli
