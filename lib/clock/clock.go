// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import "time"

// Clock is the time source for run timestamps and progress reporting.
// Production code uses Real(); tests use Fake() and advance it by hand.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// NewTicker returns a Ticker delivering ticks every d. Panics if
	// d <= 0, like time.NewTicker.
	NewTicker(d time.Duration) *Ticker
}

// Ticker delivers periodic ticks on C. The channel has capacity 1, so
// a consumer that falls behind misses ticks rather than queueing them.
type Ticker struct {
	C <-chan time.Time

	stopFunc func()
}

// Stop turns off the ticker. It does not close C.
func (t *Ticker) Stop() { t.stopFunc() }
