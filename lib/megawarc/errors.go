// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package megawarc

import (
	"errors"
	"fmt"
)

// FormatErrorKind classifies container-level failures. All of them
// are fatal for the archive being opened.
type FormatErrorKind uint8

const (
	// UnsupportedContainer means the first four bytes are not the
	// skippable-frame magic this format starts with.
	UnsupportedContainer FormatErrorKind = iota + 1

	// CorruptDictionaryLength means the declared dictionary length is
	// negative, exceeds the configured ceiling, or runs past the end
	// of the file.
	CorruptDictionaryLength

	// UnrecognizedDictionaryFrame means the dictionary frame starts
	// with neither the raw dictionary magic nor the zstd frame magic.
	UnrecognizedDictionaryFrame

	// DictionaryDecodeFailed means the dictionary frame is a zstd
	// frame that could not be decompressed.
	DictionaryDecodeFailed
)

// String returns the snake_case name of the kind.
func (kind FormatErrorKind) String() string {
	switch kind {
	case UnsupportedContainer:
		return "unsupported_container"
	case CorruptDictionaryLength:
		return "corrupt_dictionary_length"
	case UnrecognizedDictionaryFrame:
		return "unrecognized_dictionary_frame"
	case DictionaryDecodeFailed:
		return "dictionary_decode_failed"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(kind))
	}
}

// FormatError is returned by [Open] when the container framing is
// not usable. Offset is the byte offset in the archive file where the
// offending field starts. Expected and Found are set for magic
// mismatches so the specific archive can be diagnosed from the
// message alone.
type FormatError struct {
	Kind     FormatErrorKind
	Offset   int64
	Expected []byte
	Found    []byte

	// Detail is a short human-readable description.
	Detail string

	// Err is the underlying cause, if any.
	Err error
}

func (err *FormatError) Error() string {
	message := fmt.Sprintf("megawarc: %s at offset %d", err.Kind, err.Offset)
	if err.Detail != "" {
		message += ": " + err.Detail
	}
	if err.Expected != nil || err.Found != nil {
		message += fmt.Sprintf(" (expected % x, found % x)", err.Expected, err.Found)
	}
	if err.Err != nil {
		message += ": " + err.Err.Error()
	}
	return message
}

func (err *FormatError) Unwrap() error {
	return err.Err
}

// DecodeErrorKind classifies codec-level failures. All of them are
// fatal for the current pass over the archive.
type DecodeErrorKind uint8

const (
	// DictionaryRejected means the decoder refused the dictionary.
	DictionaryRejected DecodeErrorKind = iota + 1

	// StreamCorrupt covers checksum mismatches and malformed frames
	// or blocks.
	StreamCorrupt

	// Truncated means the compressed stream ended in the middle of a
	// frame.
	Truncated
)

// String returns the snake_case name of the kind.
func (kind DecodeErrorKind) String() string {
	switch kind {
	case DictionaryRejected:
		return "dictionary_rejected"
	case StreamCorrupt:
		return "stream_corrupt"
	case Truncated:
		return "truncated"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(kind))
	}
}

// DecodeError is returned by [NewSession] and by [Session.Read].
// Offset is the number of compressed bytes the decoder had consumed
// from the archive when the error surfaced (approximate: the decoder
// reads ahead in blocks).
type DecodeError struct {
	Kind   DecodeErrorKind
	Offset int64
	Err    error
}

func (err *DecodeError) Error() string {
	if err.Err == nil {
		return fmt.Sprintf("megawarc: %s near compressed offset %d", err.Kind, err.Offset)
	}
	return fmt.Sprintf("megawarc: %s near compressed offset %d: %v", err.Kind, err.Offset, err.Err)
}

func (err *DecodeError) Unwrap() error {
	return err.Err
}

// IsFormatError reports whether err is a [FormatError] of the given
// kind. A zero kind matches any FormatError.
func IsFormatError(err error, kind FormatErrorKind) bool {
	var formatError *FormatError
	if !errors.As(err, &formatError) {
		return false
	}
	return kind == 0 || formatError.Kind == kind
}

// IsDecodeError reports whether err is a [DecodeError] of the given
// kind. A zero kind matches any DecodeError.
func IsDecodeError(err error, kind DecodeErrorKind) bool {
	var decodeError *DecodeError
	if !errors.As(err, &decodeError) {
		return false
	}
	return kind == 0 || decodeError.Kind == kind
}
