// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"fmt"
	"sync/atomic"
)

var uniqueCounter atomic.Uint64

// UniqueURI returns a distinct http URI under host on every call, for
// tests that need records which do not collide on document identity.
//
//	uri := testutil.UniqueURI("example.org") // "http://example.org/page-1"
func UniqueURI(host string) string {
	return fmt.Sprintf("http://%s/page-%d", host, uniqueCounter.Add(1))
}
