// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ingest

import (
	"time"

	"github.com/fairuse/warcindex/lib/searchindex"
)

// Run outcomes.
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

// Summary reports one archive pass. It is returned whether or not the
// pass succeeded; counters reflect everything processed up to the
// point the pass stopped.
type Summary struct {
	RunID   string `json:"run_id"`
	Archive string `json:"archive"`
	Status  string `json:"status"`
	Error   string `json:"error,omitempty"`

	// DictionaryLength is the declared length from the container
	// header.
	DictionaryLength      int32  `json:"dictionary_length"`
	DictionaryKind        string `json:"dictionary_kind,omitempty"`
	DictionaryID          uint32 `json:"dictionary_id,omitempty"`
	DictionaryFingerprint string `json:"dictionary_fingerprint,omitempty"`

	TotalSeen     uint64 `json:"total_seen"`
	Parsed        uint64 `json:"parsed"`
	ParseFailures uint64 `json:"parse_failures"`
	Skipped       uint64 `json:"skipped"`

	// ExtractFailures counts records whose payload could not be
	// decoded. They are included in Skipped.
	ExtractFailures uint64 `json:"extract_failures"`

	// Duplicates counts records whose document was already indexed.
	// They are included in Skipped.
	Duplicates uint64 `json:"duplicates"`

	Indexed uint64 `json:"indexed"`
	Commits uint64 `json:"commits"`

	CompressedBytes int64 `json:"compressed_bytes"`
	DecodedBytes    int64 `json:"decoded_bytes"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// Duration is the wall time of the pass.
func (summary Summary) Duration() time.Duration {
	if summary.FinishedAt.IsZero() {
		return 0
	}
	return summary.FinishedAt.Sub(summary.StartedAt)
}

// RunRecord converts the summary for the index's run ledger.
func (summary Summary) RunRecord() searchindex.RunRecord {
	return searchindex.RunRecord{
		RunID:          summary.RunID,
		Archive:        summary.Archive,
		Status:         summary.Status,
		Error:          summary.Error,
		StartedAt:      summary.StartedAt,
		FinishedAt:     summary.FinishedAt,
		DictionaryKind: summary.DictionaryKind,
		DictionaryID:   summary.DictionaryID,
		TotalSeen:      summary.TotalSeen,
		Parsed:         summary.Parsed,
		ParseFailures:  summary.ParseFailures,
		Skipped:        summary.Skipped,
		Indexed:        summary.Indexed,
		Duplicates:     summary.Duplicates,
		Commits:        summary.Commits,
	}
}
