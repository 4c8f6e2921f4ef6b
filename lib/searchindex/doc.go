// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package searchindex is the indexing sink the decode pipeline feeds.
//
// A [Sink] accepts documents in batches: [Sink.Add] stages a document,
// [Sink.Commit] publishes everything staged since the last commit, and
// [Sink.Discard] drops it. Readers only see committed batches, so an
// archive pass that fails or is cancelled midway leaves the index as
// it was at the last commit.
//
// Two backends are provided. [Memory] ranks with the BM25 index in
// lib/bm25 and lives as long as the process. [SQLite] persists to a
// database file with an FTS5 table and also keeps a ledger of ingest
// runs ([RunRecorder]).
package searchindex
