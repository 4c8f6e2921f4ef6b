// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ingest

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/fairuse/warcindex/lib/clock"
	"github.com/fairuse/warcindex/lib/extract"
	"github.com/fairuse/warcindex/lib/searchindex"
)

// MalformedPolicy decides what a malformed record header does to the
// pass.
type MalformedPolicy uint8

const (
	// MalformedAbort fails the pass on the first malformed header.
	MalformedAbort MalformedPolicy = iota

	// MalformedResync logs the failure, scans ahead to the next
	// record, and continues.
	MalformedResync
)

func (policy MalformedPolicy) String() string {
	switch policy {
	case MalformedAbort:
		return "abort"
	case MalformedResync:
		return "resync"
	default:
		return fmt.Sprintf("MalformedPolicy(%d)", uint8(policy))
	}
}

// ParseMalformedPolicy parses "abort" or "resync".
func ParseMalformedPolicy(name string) (MalformedPolicy, error) {
	switch name {
	case "abort":
		return MalformedAbort, nil
	case "resync":
		return MalformedResync, nil
	default:
		return 0, fmt.Errorf("ingest: malformed-header policy must be abort or resync, got %q", name)
	}
}

// Options configures one archive pass.
type Options struct {
	// SourcePath is the archive to read.
	SourcePath string

	// Sink receives the extracted documents. Required.
	Sink searchindex.Sink

	// Logger defaults to a discard logger.
	Logger *slog.Logger

	// Clock stamps the run and paces progress logging. Defaults to
	// clock.Real().
	Clock clock.Clock

	// MaxDictionarySize bounds the embedded dictionary. Zero uses the
	// megawarc default.
	MaxDictionarySize int64

	// MaxBodyBytes bounds a single WARC record body. Zero uses the
	// warc default.
	MaxBodyBytes int64

	// Extractor limits text extraction.
	Extractor extract.Extractor

	MalformedHeaders MalformedPolicy

	// BatchSize commits every BatchSize indexed documents. Zero
	// commits once, at the end of the archive.
	BatchSize int

	// Filter selects records. Nil uses DefaultFilter.
	Filter *Filter

	// ProgressInterval paces progress log lines. Zero disables them.
	ProgressInterval time.Duration

	// MaxStackBytes raises the goroutine stack ceiling while the pass
	// runs. The ceiling is process-wide, so concurrent passes should
	// agree on it. Zero leaves it alone.
	MaxStackBytes int64
}

// minStackBytes is the smallest stack ceiling a pass accepts.
const minStackBytes = 1 << 20

func (options Options) withDefaults() (Options, error) {
	var errs []error
	if options.SourcePath == "" {
		errs = append(errs, errors.New("ingest: SourcePath is required"))
	}
	if options.Sink == nil {
		errs = append(errs, errors.New("ingest: Sink is required"))
	}
	if options.BatchSize < 0 {
		errs = append(errs, fmt.Errorf("ingest: BatchSize must not be negative, got %d", options.BatchSize))
	}
	if options.ProgressInterval < 0 {
		errs = append(errs, fmt.Errorf("ingest: ProgressInterval must not be negative, got %s", options.ProgressInterval))
	}
	if options.MaxStackBytes != 0 && (options.MaxStackBytes < minStackBytes || options.MaxStackBytes > math.MaxInt32) {
		errs = append(errs, fmt.Errorf("ingest: MaxStackBytes must be 0 or between 1 MiB and 2 GiB, got %d", options.MaxStackBytes))
	}
	if err := errors.Join(errs...); err != nil {
		return options, err
	}

	if options.Logger == nil {
		options.Logger = slog.New(slog.DiscardHandler)
	}
	if options.Clock == nil {
		options.Clock = clock.Real()
	}
	if options.Filter == nil {
		options.Filter = DefaultFilter()
	}
	return options, nil
}
