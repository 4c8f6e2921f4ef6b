// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package ingest runs the archive-to-index pipeline.
//
// [Run] opens one megawarc file, resolves its dictionary, streams the
// decoded WARC records, selects them with a [Filter], extracts their
// text, and adds one document per record to a [searchindex.Sink],
// committing in batches. The pass runs on its own goroutine and the
// caller blocks until it ends, receiving a [Summary] in every case.
//
// Failures of the archive itself (framing, codec, truncated records)
// and of the index end the pass and discard the uncommitted batch;
// malformed record headers can instead be skipped with
// [MalformedResync]. Records that carry no indexable text, fall
// outside the filter, or repeat an already indexed capture are
// counted as skipped.
package ingest
