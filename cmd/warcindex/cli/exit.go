// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"errors"
	"fmt"
)

// Process exit statuses.
const (
	ExitSuccess = 0
	ExitFailure = 1
	ExitUsage   = 2
)

// ExitError signals a non-zero exit code without printing an extra
// error message. The command is expected to have already written its
// own output.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit code %d", e.Code)
}

// ExitCode returns the exit code.
func (e *ExitError) ExitCode() int {
	return e.Code
}

// UsageError reports a bad invocation or configuration: an unknown
// command or flag, a missing argument, an invalid config file.
type UsageError struct {
	Err error
}

func (e *UsageError) Error() string { return e.Err.Error() }

func (e *UsageError) Unwrap() error { return e.Err }

// ExitCode returns ExitUsage.
func (e *UsageError) ExitCode() int { return ExitUsage }

// Usagef formats a UsageError.
func Usagef(format string, args ...any) error {
	return &UsageError{Err: fmt.Errorf(format, args...)}
}

// Usage marks err as a usage error. It returns nil for nil.
func Usage(err error) error {
	if err == nil {
		return nil
	}
	return &UsageError{Err: err}
}

// Code maps an error returned by Execute to a process exit status,
// and reports whether the error message still needs printing.
func Code(err error) (code int, report bool) {
	if err == nil {
		return ExitSuccess, false
	}
	var exit *ExitError
	if errors.As(err, &exit) {
		return exit.Code, false
	}
	var usage *UsageError
	if errors.As(err, &usage) {
		return ExitUsage, true
	}
	return ExitFailure, true
}
