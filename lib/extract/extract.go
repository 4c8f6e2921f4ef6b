// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package extract

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html/charset"

	"github.com/fairuse/warcindex/lib/warc"
)

// Limits applied when Extractor leaves a field zero.
const (
	// DefaultMaxBodyText caps the extracted body text.
	DefaultMaxBodyText = 1 << 20

	// DefaultMaxPayloadBytes caps the decoded HTTP payload, so a small
	// compressed body cannot expand without bound.
	DefaultMaxPayloadBytes = 64 << 20
)

var (
	// ErrUnsupportedMedia means the payload is not a media type or
	// content encoding text can be extracted from.
	ErrUnsupportedMedia = errors.New("extract: unsupported media type")

	// ErrNoContent means the record carries no document: a non-2xx
	// HTTP status, or a record type without a payload.
	ErrNoContent = errors.New("extract: record carries no document")
)

// IsSkippable reports whether err means the record should be skipped
// rather than treated as a failure.
func IsSkippable(err error) bool {
	return errors.Is(err, ErrUnsupportedMedia) || errors.Is(err, ErrNoContent)
}

// Fields is the indexable text of one record.
type Fields struct {
	// Title is the document title, or the target URI when the payload
	// has none.
	Title string

	// Body is the visible text, whitespace-collapsed.
	Body string

	// StatusCode is the HTTP status, zero for resource records.
	StatusCode int

	// MediaType is the payload's media type without parameters.
	MediaType string
}

// Extractor turns response and resource records into [Fields]. The
// zero value uses the default limits.
type Extractor struct {
	MaxBodyText     int
	MaxPayloadBytes int64
}

// FromRecord extracts with the default limits.
func FromRecord(record *warc.Record) (Fields, error) {
	return Extractor{}.Extract(record)
}

// Extract parses the record's payload. Response records must carry an
// application/http payload; resource records are the document itself.
func (extractor Extractor) Extract(record *warc.Record) (Fields, error) {
	var (
		fields      Fields
		payload     io.Reader
		contentType string
	)

	switch record.Type() {
	case warc.TypeResponse:
		response, err := http.ReadResponse(bufio.NewReader(bytes.NewReader(record.Body)), nil)
		if err != nil {
			return Fields{}, fmt.Errorf("%w: unparseable HTTP response: %v", ErrNoContent, err)
		}
		defer response.Body.Close()
		fields.StatusCode = response.StatusCode
		if response.StatusCode < 200 || response.StatusCode > 299 {
			return fields, fmt.Errorf("%w: HTTP status %d", ErrNoContent, response.StatusCode)
		}
		contentType = response.Header.Get("Content-Type")
		payload, err = decodeContent(response.Body, response.Header.Get("Content-Encoding"))
		if err != nil {
			return fields, err
		}
	case warc.TypeResource:
		contentType = record.ContentType()
		payload = bytes.NewReader(record.Body)
	default:
		return fields, fmt.Errorf("%w: %s record", ErrNoContent, record.Type())
	}

	mediaType := "application/octet-stream"
	if contentType != "" {
		parsed, _, err := mime.ParseMediaType(contentType)
		if err != nil {
			return fields, fmt.Errorf("%w: %q", ErrUnsupportedMedia, contentType)
		}
		mediaType = parsed
	}
	fields.MediaType = mediaType

	var isHTML bool
	switch mediaType {
	case "text/html", "application/xhtml+xml":
		isHTML = true
	case "text/plain":
	default:
		return fields, fmt.Errorf("%w: %s", ErrUnsupportedMedia, mediaType)
	}

	limited := io.LimitReader(payload, extractor.maxPayloadBytes())
	text, err := charset.NewReader(limited, contentType)
	if errors.Is(err, io.EOF) {
		return fields, fmt.Errorf("%w: empty payload", ErrNoContent)
	}
	if err == nil {
		if isHTML {
			fields.Title, fields.Body, err = htmlText(text, extractor.maxBodyText())
		} else {
			fields.Body, err = plainText(text, extractor.maxBodyText())
		}
	}
	if err != nil {
		return fields, fmt.Errorf("extract: reading payload of %s: %w", record.TargetURI(), err)
	}

	if fields.Title == "" {
		fields.Title = record.TargetURI()
	}
	return fields, nil
}

func (extractor Extractor) maxBodyText() int {
	if extractor.MaxBodyText <= 0 {
		return DefaultMaxBodyText
	}
	return extractor.MaxBodyText
}

func (extractor Extractor) maxPayloadBytes() int64 {
	if extractor.MaxPayloadBytes <= 0 {
		return DefaultMaxPayloadBytes
	}
	return extractor.MaxPayloadBytes
}

// plainText collapses whitespace in a text/plain payload.
func plainText(reader io.Reader, limit int) (string, error) {
	data, err := readTolerant(reader)
	if err != nil {
		return "", err
	}
	builder := newTextBuilder(limit)
	builder.write(string(data))
	return builder.String(), nil
}

// readTolerant reads to the end. Archived responses often declare a
// Content-Length that no longer matches the stored body; what arrived
// is kept.
func readTolerant(reader io.Reader) ([]byte, error) {
	data, err := io.ReadAll(reader)
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return data, nil
	}
	return data, err
}

// textBuilder accumulates whitespace-collapsed text up to a byte
// limit, never splitting a rune.
type textBuilder struct {
	builder strings.Builder
	limit   int
	full    bool
}

func newTextBuilder(limit int) *textBuilder {
	return &textBuilder{limit: limit}
}

func (text *textBuilder) write(fragment string) {
	for _, word := range strings.Fields(fragment) {
		if text.full {
			return
		}
		need := len(word)
		if text.builder.Len() > 0 {
			need++
		}
		if text.builder.Len()+need > text.limit {
			room := text.limit - text.builder.Len()
			if text.builder.Len() > 0 {
				room--
			}
			if room > 0 {
				cut := room
				for cut > 0 && !utf8.RuneStart(word[cut]) {
					cut--
				}
				if cut > 0 {
					if text.builder.Len() > 0 {
						text.builder.WriteByte(' ')
					}
					text.builder.WriteString(word[:cut])
				}
			}
			text.full = true
			return
		}
		if text.builder.Len() > 0 {
			text.builder.WriteByte(' ')
		}
		text.builder.WriteString(word)
	}
}

func (text *textBuilder) String() string {
	return text.builder.String()
}
