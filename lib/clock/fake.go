// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"sync"
	"time"
)

// Fake returns a FakeClock stopped at initial. Time moves only when
// Advance is called. FakeClock is safe for concurrent use.
func Fake(initial time.Time) *FakeClock {
	clock := &FakeClock{current: initial}
	clock.tickersChanged = sync.NewCond(&clock.mu)
	return clock
}

// FakeClock is a deterministic Clock for tests.
type FakeClock struct {
	mu             sync.Mutex
	current        time.Time
	tickers        []*fakeTicker
	tickersChanged *sync.Cond
}

type fakeTicker struct {
	next     time.Time
	interval time.Duration
	channel  chan time.Time
	stopped  bool
}

// Now returns the current fake time.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// NewTicker registers a ticker whose first tick is due d from now.
func (c *FakeClock) NewTicker(d time.Duration) *Ticker {
	if d <= 0 {
		panic("clock: non-positive interval for NewTicker")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	ticker := &fakeTicker{
		next:     c.current.Add(d),
		interval: d,
		channel:  make(chan time.Time, 1),
	}
	c.tickers = append(c.tickers, ticker)
	c.tickersChanged.Broadcast()

	return &Ticker{
		C: ticker.channel,
		stopFunc: func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			ticker.stopped = true
		},
	}
}

// Advance moves the clock forward by d and delivers every tick that
// falls due. Sends never block: a tick that finds the channel full is
// dropped, as with time.Ticker.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.current = c.current.Add(d)
	live := c.tickers[:0]
	for _, ticker := range c.tickers {
		if ticker.stopped {
			continue
		}
		for !ticker.next.After(c.current) {
			select {
			case ticker.channel <- ticker.next:
			default:
			}
			ticker.next = ticker.next.Add(ticker.interval)
		}
		live = append(live, ticker)
	}
	clear(c.tickers[len(live):])
	c.tickers = live
}

// WaitForTickers blocks until at least n tickers are running. Call it
// before Advance when the ticker is created by another goroutine.
func (c *FakeClock) WaitForTickers(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for c.runningLocked() < n {
		c.tickersChanged.Wait()
	}
}

// Running returns the number of tickers that have not been stopped.
func (c *FakeClock) Running() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.runningLocked()
}

func (c *FakeClock) runningLocked() int {
	count := 0
	for _, ticker := range c.tickers {
		if !ticker.stopped {
			count++
		}
	}
	return count
}
