// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package warc

import (
	"errors"
	"fmt"
)

// ParseErrorKind classifies record-level failures.
type ParseErrorKind uint8

const (
	// MalformedHeader means the header block could not be parsed.
	// Unless the underlying stream failed, the reader can resynchronize
	// on the next call to Next.
	MalformedHeader ParseErrorKind = iota + 1

	// TruncatedBody means the stream ended before Content-Length body
	// bytes were read. It is terminal.
	TruncatedBody
)

// String returns the snake_case name of the kind.
func (kind ParseErrorKind) String() string {
	switch kind {
	case MalformedHeader:
		return "malformed_header"
	case TruncatedBody:
		return "truncated_body"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(kind))
	}
}

// ParseError reports a record that could not be parsed. Record is the
// 1-based ordinal of the record attempt within the stream and Offset
// the decompressed byte offset where that record's version line
// started. Err is set when a failure of the underlying stream
// interrupted the record; such errors are terminal.
type ParseError struct {
	Kind   ParseErrorKind
	Record uint64
	Offset int64
	Detail string
	Err    error
}

func (err *ParseError) Error() string {
	message := fmt.Sprintf("warc: record %d at offset %d: %s", err.Record, err.Offset, err.Kind)
	if err.Detail != "" {
		message += ": " + err.Detail
	}
	if err.Err != nil {
		message += ": " + err.Err.Error()
	}
	return message
}

func (err *ParseError) Unwrap() error {
	return err.Err
}

// Recoverable reports whether the reader can resynchronize past this
// failure: the next call to Next scans ahead to the next record.
func (err *ParseError) Recoverable() bool {
	return err.Kind == MalformedHeader && err.Err == nil
}

// IsParseError reports whether err is a [ParseError] of the given
// kind. A zero kind matches any ParseError.
func IsParseError(err error, kind ParseErrorKind) bool {
	var parseError *ParseError
	if !errors.As(err, &parseError) {
		return false
	}
	return kind == 0 || parseError.Kind == kind
}

// errLineTooLong is the internal signal for a header line that does
// not fit the line buffer.
var errLineTooLong = errors.New("warc: header line too long")
