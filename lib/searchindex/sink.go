// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package searchindex

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/fairuse/warcindex/lib/bm25"
)

var (
	// ErrDuplicate is returned by Add when a document with the same ID
	// is already committed or pending.
	ErrDuplicate = errors.New("searchindex: duplicate document")

	// ErrInvalidQuery is returned by Search for a query the backend
	// cannot parse, including an empty one.
	ErrInvalidQuery = errors.New("searchindex: invalid query")

	// ErrClosed is returned by every operation after Close.
	ErrClosed = errors.New("searchindex: index closed")
)

// Field weights for ranking. A term in the title counts three times
// as much as the same term in the body.
const (
	TitleWeight = 3
	BodyWeight  = 1
)

// Document is one record's worth of indexable content. Title is
// stored and searchable; Body is searchable but not stored.
type Document struct {
	// ID identifies the document. Adding a second document with the
	// same ID fails with ErrDuplicate.
	ID string

	TargetURI string
	RecordID  string
	Date      time.Time
	Title     string
	Body      string

	// Metadata is stored verbatim alongside the document.
	Metadata map[string]string
}

// StoredDocument is the retrievable part of a Document.
type StoredDocument struct {
	ID        string            `json:"id"`
	TargetURI string            `json:"target_uri"`
	RecordID  string            `json:"record_id,omitempty"`
	Date      time.Time         `json:"date,omitzero"`
	Title     string            `json:"title"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Hit is one search result. Higher scores are better.
type Hit struct {
	Score    float64        `json:"score"`
	Document StoredDocument `json:"document"`
}

// Sink is the boundary between the decode pipeline and an index.
//
// Additions are pending until Commit, and Search only ever sees
// committed documents. Discard drops everything added since the last
// Commit. Implementations are safe for concurrent use, but a single
// writer is expected: interleaving two writers' batches mixes them.
//
// Search returns at most limit hits, best first; a limit of zero or
// less returns every match. Query syntax is backend-specific: the
// memory backend ORs the query's words, the sqlite backend takes an
// FTS5 match expression (see [PlainQuery]).
type Sink interface {
	Add(ctx context.Context, document Document) error
	Commit(ctx context.Context) error
	Discard(ctx context.Context) error
	Search(ctx context.Context, query string, limit int) ([]Hit, error)
	Close() error
}

// RunRecord summarizes one ingest run over one archive.
type RunRecord struct {
	RunID          string    `json:"run_id"`
	Archive        string    `json:"archive"`
	Status         string    `json:"status"`
	Error          string    `json:"error,omitempty"`
	StartedAt      time.Time `json:"started_at"`
	FinishedAt     time.Time `json:"finished_at"`
	DictionaryKind string    `json:"dictionary_kind,omitempty"`
	DictionaryID   uint32    `json:"dictionary_id,omitempty"`
	TotalSeen      uint64    `json:"total_seen"`
	Parsed         uint64    `json:"parsed"`
	ParseFailures  uint64    `json:"parse_failures"`
	Skipped        uint64    `json:"skipped"`
	Indexed        uint64    `json:"indexed"`
	Duplicates     uint64    `json:"duplicates"`
	Commits        uint64    `json:"commits"`
}

// RunRecorder is implemented by sinks that keep a ledger of ingest
// runs.
type RunRecorder interface {
	RecordRun(ctx context.Context, run RunRecord) error

	// Runs returns the most recent runs first. A limit of zero or
	// less returns every run.
	Runs(ctx context.Context, limit int) ([]RunRecord, error)
}

// Backend names accepted by [Open].
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
)

// Config selects and configures a backend.
type Config struct {
	// Backend is BackendMemory or BackendSQLite. Empty means memory.
	Backend string

	// Path is the database file for the sqlite backend.
	Path string

	// PoolSize is the sqlite connection pool size. Values below 2 are
	// raised to 2: one connection writes while others search.
	PoolSize int

	Logger *slog.Logger
}

// Open returns the configured backend.
func Open(ctx context.Context, config Config) (Sink, error) {
	switch config.Backend {
	case "", BackendMemory:
		return NewMemory(), nil
	case BackendSQLite:
		return OpenSQLite(ctx, config)
	default:
		return nil, fmt.Errorf("searchindex: unknown backend %q (want %q or %q)", config.Backend, BackendMemory, BackendSQLite)
	}
}

// PlainQuery turns free text into an FTS5 expression matching any of
// its words, each quoted so punctuation cannot form operators. It
// returns "" when text has no searchable words.
func PlainQuery(text string) string {
	tokens := bm25.Tokenize(text)
	for i, token := range tokens {
		tokens[i] = `"` + token + `"`
	}
	return strings.Join(tokens, " OR ")
}

func copyMetadata(metadata map[string]string) map[string]string {
	if len(metadata) == 0 {
		return nil
	}
	copied := make(map[string]string, len(metadata))
	for key, value := range metadata {
		copied[key] = value
	}
	return copied
}
