// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package warc

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"iter"
	"strconv"
)

// Reader limits applied when ReaderOptions leaves a field zero.
const (
	DefaultMaxHeaderLineBytes = 64 << 10
	DefaultMaxHeaderFields    = 1024
	DefaultMaxBodyBytes       = 512 << 20
)

// bodyPrealloc caps the up-front allocation for a body. Larger bodies
// grow as bytes arrive, so a lying Content-Length on a short stream
// costs only what the stream actually holds.
const bodyPrealloc = 1 << 20

var versionPrefix = []byte("WARC/")

// ReaderOptions configures [NewReader].
type ReaderOptions struct {
	// MaxHeaderLineBytes is the longest accepted header line,
	// including its line terminator.
	MaxHeaderLineBytes int

	// MaxHeaderFields is the most fields one header may carry.
	MaxHeaderFields int

	// MaxBodyBytes is the largest accepted Content-Length.
	MaxBodyBytes int64
}

func (options ReaderOptions) withDefaults() ReaderOptions {
	if options.MaxHeaderLineBytes <= 0 {
		options.MaxHeaderLineBytes = DefaultMaxHeaderLineBytes
	}
	if options.MaxHeaderFields <= 0 {
		options.MaxHeaderFields = DefaultMaxHeaderFields
	}
	if options.MaxBodyBytes <= 0 {
		options.MaxBodyBytes = DefaultMaxBodyBytes
	}
	return options
}

// Counters tracks one pass over a stream.
//
// TotalSeen == Parsed + ParseFailures holds at every point between
// calls, and Skipped never exceeds Parsed.
type Counters struct {
	// TotalSeen counts record attempts that consumed at least one
	// non-blank byte.
	TotalSeen uint64

	// Parsed counts records returned successfully.
	Parsed uint64

	// ParseFailures counts attempts that ended in a ParseError.
	ParseFailures uint64

	// Skipped counts parsed records the caller filtered out via
	// MarkSkipped.
	Skipped uint64
}

// Reader parses WARC records from a byte stream, one at a time. It
// holds at most one header line and the current body in memory.
// Reader is not safe for concurrent use.
type Reader struct {
	reader   *bufio.Reader
	options  ReaderOptions
	counters Counters

	// offset is the number of stream bytes consumed.
	offset int64

	// lineStart is the offset of the line most recently read.
	lineStart int64

	// recordStart is the offset of the current attempt's first line.
	recordStart int64

	// atLineStart is false after a header line overflowed the buffer
	// and only part of it was consumed.
	atLineStart bool

	// resync is set after a recoverable MalformedHeader; the next call
	// to Next scans forward to a version line first.
	resync bool

	// terminal, once set, is returned by every later call to Next.
	terminal error
}

// NewReader returns a Reader over r.
func NewReader(r io.Reader, options ReaderOptions) *Reader {
	options = options.withDefaults()
	return &Reader{
		reader:      bufio.NewReaderSize(r, options.MaxHeaderLineBytes),
		options:     options,
		atLineStart: true,
	}
}

// Next returns the next record. It returns io.EOF when the stream ends
// cleanly between records, a [*ParseError] when a record cannot be
// parsed, and the underlying stream's error unchanged when the stream
// fails between records.
//
// After a MalformedHeader whose Err is nil, calling Next again skips
// forward to the next line that starts with "WARC/" and parses from
// there. Every other error is terminal and Next keeps returning it.
func (r *Reader) Next() (*Record, error) {
	if r.terminal != nil {
		return nil, r.terminal
	}
	if r.resync {
		r.resync = false
		if err := r.skipToVersionLine(); err != nil {
			return nil, r.endOfStream(err)
		}
	}

	line, err := r.skipBlankLines()
	if len(line) == 0 && err != errLineTooLong {
		return nil, r.endOfStream(err)
	}

	// From here on the attempt has consumed bytes and counts.
	r.counters.TotalSeen++
	r.recordStart = r.lineStart
	if err != nil {
		return nil, r.headerFailure(err, "version line")
	}
	if !bytes.HasPrefix(line, versionPrefix) {
		return nil, r.malformed(fmt.Sprintf("expected a WARC version line, found %q", preview(line)))
	}

	record := &Record{
		Version: string(line),
		Offset:  r.recordStart,
	}
	if failure := r.readFields(record); failure != nil {
		return nil, failure
	}

	length, failure := r.contentLength(record)
	if failure != nil {
		return nil, failure
	}
	record.ContentLength = length

	body, failure := r.readBody(length)
	if failure != nil {
		return nil, failure
	}
	record.Body = body

	r.consumeTrailer()
	r.counters.Parsed++
	return record, nil
}

// Records iterates over the remaining records. A clean end of stream
// ends the iteration; any other error is yielded. Iteration continues
// after a recoverable MalformedHeader unless the caller stops it.
//
//	for record, err := range reader.Records() {
//	    if err != nil {
//	        return err
//	    }
//	    ...
//	}
func (r *Reader) Records() iter.Seq2[*Record, error] {
	return func(yield func(*Record, error) bool) {
		for {
			record, err := r.Next()
			if err == io.EOF {
				return
			}
			if !yield(record, err) {
				return
			}
			if r.terminal != nil {
				return
			}
		}
	}
}

// Counters returns a snapshot of the pass counters.
func (r *Reader) Counters() Counters {
	return r.counters
}

// MarkSkipped records that the caller filtered out the record most
// recently returned.
func (r *Reader) MarkSkipped() {
	if r.counters.Skipped < r.counters.Parsed {
		r.counters.Skipped++
	}
}

// Offset returns the number of stream bytes consumed so far.
func (r *Reader) Offset() int64 {
	return r.offset
}

// readLine returns the next line without its terminator. A line that
// does not fit the buffer yields errLineTooLong. At the end of the
// stream a final unterminated line is returned together with the error.
func (r *Reader) readLine() ([]byte, error) {
	r.lineStart = r.offset
	line, err := r.reader.ReadSlice('\n')
	r.offset += int64(len(line))
	r.atLineStart = err == nil
	switch {
	case err == nil:
		line = bytes.TrimSuffix(line[:len(line)-1], []byte("\r"))
		return line, nil
	case errors.Is(err, bufio.ErrBufferFull):
		return nil, errLineTooLong
	default:
		return bytes.TrimSuffix(line, []byte("\r")), err
	}
}

// skipBlankLines returns the first line with content. Blank lines
// separate records and are not part of any attempt.
func (r *Reader) skipBlankLines() ([]byte, error) {
	for {
		line, err := r.readLine()
		if err != nil || len(line) > 0 {
			return line, err
		}
	}
}

// skipToVersionLine discards input up to the next line that starts
// with the version prefix, leaving that line unread.
func (r *Reader) skipToVersionLine() error {
	for {
		if r.atLineStart {
			prefix, err := r.reader.Peek(len(versionPrefix))
			if bytes.Equal(prefix, versionPrefix) {
				return nil
			}
			if err != nil && len(prefix) == 0 {
				return err
			}
		}
		line, err := r.reader.ReadSlice('\n')
		r.offset += int64(len(line))
		r.atLineStart = err == nil
		if err != nil && !errors.Is(err, bufio.ErrBufferFull) {
			return err
		}
	}
}

func (r *Reader) readFields(record *Record) error {
	for {
		line, err := r.readLine()
		if err != nil {
			return r.headerFailure(err, "header fields")
		}
		if len(line) == 0 {
			return nil
		}

		if line[0] == ' ' || line[0] == '\t' {
			if len(record.Header) == 0 {
				return r.malformed("continuation line before the first field")
			}
			last := &record.Header[len(record.Header)-1]
			last.Value += " " + string(bytes.TrimSpace(line))
			continue
		}

		name, value, found := bytes.Cut(line, []byte(":"))
		if !found {
			return r.malformed(fmt.Sprintf("header line %q has no colon", preview(line)))
		}
		name = bytes.TrimSpace(name)
		if len(name) == 0 {
			return r.malformed("header field with an empty name")
		}
		fieldName := string(name)
		if _, exists := record.Header.Get(fieldName); exists && !isRepeatable(fieldName) {
			return r.malformed(fmt.Sprintf("duplicate header field %q", fieldName))
		}
		if len(record.Header) >= r.options.MaxHeaderFields {
			return r.malformed(fmt.Sprintf("more than %d header fields", r.options.MaxHeaderFields))
		}
		record.Header = append(record.Header, Field{
			Name:  fieldName,
			Value: string(bytes.TrimSpace(value)),
		})
	}
}

func (r *Reader) contentLength(record *Record) (int64, error) {
	value, ok := record.Header.Get("Content-Length")
	if !ok {
		return 0, r.malformed("missing Content-Length")
	}
	length, err := strconv.ParseInt(value, 10, 64)
	if err != nil || length < 0 {
		return 0, r.malformed(fmt.Sprintf("invalid Content-Length %q", preview([]byte(value))))
	}
	if length > r.options.MaxBodyBytes {
		return 0, r.malformed(fmt.Sprintf("Content-Length %d exceeds the %d byte limit", length, r.options.MaxBodyBytes))
	}
	return length, nil
}

func (r *Reader) readBody(length int64) ([]byte, error) {
	var body bytes.Buffer
	body.Grow(int(min(length, bodyPrealloc)))
	copied, err := io.CopyN(&body, r.reader, length)
	r.offset += copied
	if err == nil {
		return body.Bytes(), nil
	}

	detail := fmt.Sprintf("body ended after %d of %d bytes", copied, length)
	if err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	return nil, r.terminate(&ParseError{
		Kind:   TruncatedBody,
		Record: r.counters.TotalSeen,
		Offset: r.recordStart,
		Detail: detail,
		Err:    err,
	})
}

// consumeTrailer discards up to two line terminators after a body.
// Missing terminators are tolerated: blank lines before the next
// version line are skipped anyway.
func (r *Reader) consumeTrailer() {
	for range 2 {
		next, err := r.reader.Peek(1)
		if err != nil {
			return
		}
		switch next[0] {
		case '\n':
			r.reader.Discard(1)
			r.offset++
		case '\r':
			pair, err := r.reader.Peek(2)
			if err != nil || pair[1] != '\n' {
				return
			}
			r.reader.Discard(2)
			r.offset += 2
		default:
			return
		}
	}
	r.atLineStart = true
}

// headerFailure maps an error met while reading header lines.
func (r *Reader) headerFailure(err error, where string) error {
	switch {
	case err == errLineTooLong:
		return r.malformed(fmt.Sprintf("%s: line longer than %d bytes", where, r.options.MaxHeaderLineBytes))
	case err == io.EOF:
		return r.malformed(where + ": stream ended before the end of the header")
	default:
		return r.terminate(&ParseError{
			Kind:   MalformedHeader,
			Record: r.counters.TotalSeen,
			Offset: r.recordStart,
			Detail: where,
			Err:    err,
		})
	}
}

// malformed records a recoverable header failure.
func (r *Reader) malformed(detail string) error {
	r.counters.ParseFailures++
	r.resync = true
	return &ParseError{
		Kind:   MalformedHeader,
		Record: r.counters.TotalSeen,
		Offset: r.recordStart,
		Detail: detail,
	}
}

// terminate records a failure that ends the pass.
func (r *Reader) terminate(err *ParseError) error {
	r.counters.ParseFailures++
	r.terminal = err
	return err
}

// endOfStream ends the pass between records. io.EOF is the clean end;
// anything else is the underlying stream's failure, returned as is.
func (r *Reader) endOfStream(err error) error {
	r.terminal = err
	return err
}

// preview shortens a line for inclusion in an error message.
func preview(line []byte) []byte {
	const limit = 64
	if len(line) > limit {
		return line[:limit]
	}
	return line
}
