// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ingest

import (
	"fmt"
	"mime"
	"regexp"
	"strings"

	"github.com/fairuse/warcindex/lib/warc"
)

// FilterOptions describes which records are worth indexing.
type FilterOptions struct {
	// RecordTypes lists accepted WARC-Type values. Empty means
	// response only.
	RecordTypes []string

	// TargetPrefixes restricts WARC-Target-URI. Empty accepts any.
	TargetPrefixes []string

	// TargetPattern is a regular expression the target URI must match.
	TargetPattern string

	// HTTPOnly requires response and request records to carry an
	// application/http payload.
	HTTPOnly bool
}

// Filter selects records for indexing. A nil *Filter is not valid;
// use DefaultFilter.
type Filter struct {
	types    map[string]bool
	prefixes []string
	pattern  *regexp.Regexp
	httpOnly bool
}

// DefaultFilter accepts HTTP response records.
func DefaultFilter() *Filter {
	return &Filter{
		types:    map[string]bool{warc.TypeResponse: true},
		httpOnly: true,
	}
}

// NewFilter compiles options.
func NewFilter(options FilterOptions) (*Filter, error) {
	filter := &Filter{
		types:    make(map[string]bool),
		prefixes: options.TargetPrefixes,
		httpOnly: options.HTTPOnly,
	}
	recordTypes := options.RecordTypes
	if len(recordTypes) == 0 {
		recordTypes = []string{warc.TypeResponse}
	}
	for _, recordType := range recordTypes {
		filter.types[strings.ToLower(recordType)] = true
	}
	if options.TargetPattern != "" {
		pattern, err := regexp.Compile(options.TargetPattern)
		if err != nil {
			return nil, fmt.Errorf("ingest: target pattern: %w", err)
		}
		filter.pattern = pattern
	}
	return filter, nil
}

// Match reports whether record should be indexed. When it should not,
// reason says why.
func (filter *Filter) Match(record *warc.Record) (ok bool, reason string) {
	recordType := strings.ToLower(record.Type())
	if !filter.types[recordType] {
		return false, "record type " + record.Type()
	}

	if filter.httpOnly && (recordType == warc.TypeResponse || recordType == warc.TypeRequest) {
		mediaType, _, err := mime.ParseMediaType(record.ContentType())
		if err != nil || mediaType != "application/http" {
			return false, "payload is not an HTTP message"
		}
	}

	target := record.TargetURI()
	if len(filter.prefixes) > 0 {
		matched := false
		for _, prefix := range filter.prefixes {
			if strings.HasPrefix(target, prefix) {
				matched = true
				break
			}
		}
		if !matched {
			return false, "target outside prefixes"
		}
	}
	if filter.pattern != nil && !filter.pattern.MatchString(target) {
		return false, "target does not match pattern"
	}
	return true, ""
}
