// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package warc parses WARC records from a byte stream.
//
// [Reader] is forward-only and lazy: each call to [Reader.Next] reads
// one header block and exactly Content-Length body bytes, so memory
// use is bounded by the largest record rather than the stream.
// Lines may end in CRLF or LF, and folded continuation lines are
// joined onto the preceding field.
//
// A [ParseError] of kind MalformedHeader leaves the choice to the
// caller: stop, or call Next again to resynchronize at the next
// "WARC/" line. TruncatedBody and failures of the underlying stream
// end the pass.
package warc
