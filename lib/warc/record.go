// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package warc

import (
	"fmt"
	"strings"
	"time"
)

// Record types defined by WARC 1.1.
const (
	TypeWarcinfo     = "warcinfo"
	TypeResponse     = "response"
	TypeResource     = "resource"
	TypeRequest      = "request"
	TypeMetadata     = "metadata"
	TypeRevisit      = "revisit"
	TypeConversion   = "conversion"
	TypeContinuation = "continuation"
)

// Field is one named header field.
type Field struct {
	Name  string
	Value string
}

// Header is the ordered list of a record's header fields.
type Header []Field

// Get returns the value of the first field named name, compared
// case-insensitively.
func (header Header) Get(name string) (string, bool) {
	for _, field := range header {
		if strings.EqualFold(field.Name, name) {
			return field.Value, true
		}
	}
	return "", false
}

// Values returns every value of the fields named name, in order.
func (header Header) Values(name string) []string {
	var values []string
	for _, field := range header {
		if strings.EqualFold(field.Name, name) {
			values = append(values, field.Value)
		}
	}
	return values
}

// repeatable lists the fields WARC 1.1 allows more than once.
var repeatable = []string{"WARC-Concurrent-To", "WARC-Protocol"}

func isRepeatable(name string) bool {
	for _, candidate := range repeatable {
		if strings.EqualFold(candidate, name) {
			return true
		}
	}
	return false
}

// Record is one parsed WARC record. The caller owns it; the reader
// keeps no reference after returning it.
type Record struct {
	// Version is the version line, e.g. "WARC/1.0".
	Version string

	Header Header

	// Body holds exactly ContentLength bytes.
	Body []byte

	ContentLength int64

	// Offset is the decompressed stream offset of the version line.
	Offset int64
}

// Type returns the WARC-Type field.
func (record *Record) Type() string {
	value, _ := record.Header.Get("WARC-Type")
	return value
}

// TargetURI returns the WARC-Target-URI field. Angle brackets, which
// some WARC/1.0 writers emit around the URI, are removed.
func (record *Record) TargetURI() string {
	value, _ := record.Header.Get("WARC-Target-URI")
	return strings.TrimSuffix(strings.TrimPrefix(value, "<"), ">")
}

// RecordID returns the WARC-Record-ID field.
func (record *Record) RecordID() string {
	value, _ := record.Header.Get("WARC-Record-ID")
	return value
}

// ContentType returns the Content-Type field.
func (record *Record) ContentType() string {
	value, _ := record.Header.Get("Content-Type")
	return value
}

// Date parses the WARC-Date field.
func (record *Record) Date() (time.Time, error) {
	value, ok := record.Header.Get("WARC-Date")
	if !ok {
		return time.Time{}, fmt.Errorf("warc: record has no WARC-Date")
	}
	date, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("warc: parsing WARC-Date %q: %w", value, err)
	}
	return date, nil
}

// AppendTo appends the record's serialized form to dst: the version
// line, the header fields in order, a blank line, the body and the
// CRLF CRLF trailer. The header is written as parsed, so its
// Content-Length field must still describe Body.
func (record *Record) AppendTo(dst []byte) []byte {
	dst = append(dst, record.Version...)
	dst = append(dst, "\r\n"...)
	for _, field := range record.Header {
		dst = append(dst, field.Name...)
		dst = append(dst, ": "...)
		dst = append(dst, field.Value...)
		dst = append(dst, "\r\n"...)
	}
	dst = append(dst, "\r\n"...)
	dst = append(dst, record.Body...)
	return append(dst, "\r\n\r\n"...)
}
