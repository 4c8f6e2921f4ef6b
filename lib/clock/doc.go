// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time source.
//
// The ingest pipeline stamps runs with Clock.Now and paces progress
// logging with Clock.NewTicker. Tests substitute Fake, which stands
// still until Advance is called:
//
//	c := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	// ... start the goroutine that creates the ticker ...
//	c.WaitForTickers(1)
//	c.Advance(5 * time.Second)
package clock
