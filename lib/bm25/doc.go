// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package bm25 provides relevance-ranked full-text search using the
// Okapi BM25 algorithm over documents with weighted text fields.
//
// Field weighting is achieved by counting each field's tokens in
// proportion to its weight. This is a simple alternative to per-field
// BM25 that works well for the small corpora an in-process index
// holds.
//
// The index is append-only with prefix visibility: searches name how
// many documents they may see, which is how an uncommitted batch stays
// invisible, and Truncate discards such a batch.
package bm25
