// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package searchindex

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/fairuse/warcindex/lib/bm25"
)

// Memory is an in-process index ranked with BM25. Documents are
// numbered in insertion order; committed is the watermark below which
// documents are visible to Search.
type Memory struct {
	mu        sync.RWMutex
	index     *bm25.Index
	documents []StoredDocument
	ids       map[string]uint32
	committed uint32
	runs      []RunRecord
	closed    bool
}

var (
	_ Sink        = (*Memory)(nil)
	_ RunRecorder = (*Memory)(nil)
)

// NewMemory returns an empty in-process index.
func NewMemory() *Memory {
	return &Memory{
		index: bm25.New(),
		ids:   make(map[string]uint32),
	}
}

func (memory *Memory) Add(ctx context.Context, document Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	memory.mu.Lock()
	defer memory.mu.Unlock()
	if memory.closed {
		return ErrClosed
	}
	if _, exists := memory.ids[document.ID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicate, document.ID)
	}

	number := memory.index.Add([]bm25.Field{
		{Text: document.Title, Weight: TitleWeight},
		{Text: document.Body, Weight: BodyWeight},
	})
	memory.ids[document.ID] = number
	memory.documents = append(memory.documents, StoredDocument{
		ID:        document.ID,
		TargetURI: document.TargetURI,
		RecordID:  document.RecordID,
		Date:      document.Date,
		Title:     document.Title,
		Metadata:  copyMetadata(document.Metadata),
	})
	return nil
}

func (memory *Memory) Commit(ctx context.Context) error {
	memory.mu.Lock()
	defer memory.mu.Unlock()
	if memory.closed {
		return ErrClosed
	}
	memory.committed = memory.index.Len()
	return nil
}

func (memory *Memory) Discard(ctx context.Context) error {
	memory.mu.Lock()
	defer memory.mu.Unlock()
	if memory.closed {
		return ErrClosed
	}
	for _, document := range memory.documents[memory.committed:] {
		delete(memory.ids, document.ID)
	}
	clear(memory.documents[memory.committed:])
	memory.documents = memory.documents[:memory.committed]
	memory.index.Truncate(memory.committed)
	return nil
}

// Search ranks committed documents. Query tokens are OR-ed.
func (memory *Memory) Search(ctx context.Context, query string, limit int) ([]Hit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(bm25.Tokenize(query)) == 0 {
		return nil, fmt.Errorf("%w: %q has no searchable terms", ErrInvalidQuery, query)
	}

	memory.mu.RLock()
	defer memory.mu.RUnlock()
	if memory.closed {
		return nil, ErrClosed
	}
	results := memory.index.Search(query, limit, memory.committed)
	hits := make([]Hit, len(results))
	for i, result := range results {
		stored := memory.documents[result.Document]
		stored.Metadata = copyMetadata(stored.Metadata)
		hits[i] = Hit{Score: result.Score, Document: stored}
	}
	return hits, nil
}

// Len returns the number of committed documents.
func (memory *Memory) Len() int {
	memory.mu.RLock()
	defer memory.mu.RUnlock()
	return int(memory.committed)
}

func (memory *Memory) RecordRun(ctx context.Context, run RunRecord) error {
	memory.mu.Lock()
	defer memory.mu.Unlock()
	if memory.closed {
		return ErrClosed
	}
	memory.runs = append(memory.runs, run)
	return nil
}

func (memory *Memory) Runs(ctx context.Context, limit int) ([]RunRecord, error) {
	memory.mu.RLock()
	defer memory.mu.RUnlock()
	if memory.closed {
		return nil, ErrClosed
	}
	runs := slices.Clone(memory.runs)
	slices.Reverse(runs)
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

// Close discards pending documents and releases the index.
func (memory *Memory) Close() error {
	memory.mu.Lock()
	defer memory.mu.Unlock()
	memory.closed = true
	memory.index = bm25.New()
	memory.documents = nil
	memory.ids = nil
	return nil
}
