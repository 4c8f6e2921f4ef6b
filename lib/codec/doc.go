// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec is the CBOR configuration for blobs the index stores:
// per-document metadata and ingest run summaries.
//
// JSON is for what users see (CLI output); CBOR is for what the index
// keeps on disk. Types that appear in both places carry only `json`
// tags, which fxamacker/cbor reads as a fallback, so a single tag
// controls field naming and omitempty for both formats.
//
//	data, err := codec.Marshal(run)
//	err = codec.Unmarshal(data, &run)
package codec
