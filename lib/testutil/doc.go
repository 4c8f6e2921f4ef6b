// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared fixtures for warcindex tests.
//
// [Record], [ResponseRecord] and [SampleRecords] build serialized WARC
// records. [Archive] and [TrainedDictionary] wrap those records in a
// megawarc container using [megawarc.Writer], so decoding tests run
// against the same framing real archives use. [WriteArchive] puts an
// archive on disk for tests that exercise the file-based pipeline.
//
// [RequireReceive] is the timeout safety valve for tests that wait on
// a worker goroutine. It is the only place tests use wall-clock
// timeouts.
//
// All helpers call t.Fatalf on failure rather than returning errors,
// since fixture failures are not recoverable.
package testutil
