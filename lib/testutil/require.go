// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"fmt"
	"time"
)

// RequireReceive reads one value from ch within timeout, or fails the
// test.
//
//	summary := testutil.RequireReceive(t, done, 5*time.Second, "waiting for run")
func RequireReceive[T any](t interface {
	Helper()
	Fatalf(format string, args ...any)
}, ch <-chan T, timeout time.Duration, msgAndArgs ...any) T {
	t.Helper()
	select {
	case v, ok := <-ch:
		if !ok {
			t.Fatalf("channel closed without sending a value: %s", formatMessage(msgAndArgs))
		}
		return v
	case <-time.After(timeout):
		t.Fatalf("timed out after %v: %s", timeout, formatMessage(msgAndArgs))
	}
	panic("unreachable")
}

// formatMessage accepts either a single value or a format string
// followed by args.
func formatMessage(msgAndArgs []any) string {
	switch {
	case len(msgAndArgs) == 0:
		return "(no message)"
	case len(msgAndArgs) == 1:
		return fmt.Sprint(msgAndArgs[0])
	}
	if format, ok := msgAndArgs[0].(string); ok {
		return fmt.Sprintf(format, msgAndArgs[1:]...)
	}
	return fmt.Sprint(msgAndArgs...)
}
