// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"bytes"
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/google/uuid"
)

// Field is one WARC header field for [Record].
type Field struct {
	Name  string
	Value string
}

// Record serializes a WARC/1.0 record with the given fields followed
// by a Content-Length for body, the body, and the CRLF CRLF trailer.
func Record(fields []Field, body []byte) []byte {
	var buffer bytes.Buffer
	buffer.WriteString("WARC/1.0\r\n")
	for _, field := range fields {
		fmt.Fprintf(&buffer, "%s: %s\r\n", field.Name, field.Value)
	}
	fmt.Fprintf(&buffer, "Content-Length: %d\r\n\r\n", len(body))
	buffer.Write(body)
	buffer.WriteString("\r\n\r\n")
	return buffer.Bytes()
}

// HTTPResponse serializes a 200 response carrying body.
func HTTPResponse(contentType string, body []byte) []byte {
	var buffer bytes.Buffer
	buffer.WriteString("HTTP/1.1 200 OK\r\n")
	fmt.Fprintf(&buffer, "Content-Type: %s\r\n", contentType)
	fmt.Fprintf(&buffer, "Content-Length: %d\r\n\r\n", len(body))
	buffer.Write(body)
	return buffer.Bytes()
}

// HTMLPage returns a minimal HTML document with a title and one
// paragraph of text.
func HTMLPage(title, text string) []byte {
	return fmt.Appendf(nil,
		"<!DOCTYPE html>\n<html><head><title>%s</title>"+
			"<style>p { color: red }</style></head>"+
			"<body><p>%s</p><script>var ignored = 1;</script></body></html>\n",
		title, text)
}

// ResponseRecord returns a WARC response record for targetURI whose
// HTTP payload is an HTML page. The record ID is derived from the URI
// so fixtures are reproducible.
func ResponseRecord(targetURI, title, text string) []byte {
	return Record([]Field{
		{"WARC-Type", "response"},
		{"WARC-Target-URI", targetURI},
		{"WARC-Date", "2024-03-01T12:00:00Z"},
		{"WARC-Record-ID", recordID(targetURI, "response")},
		{"Content-Type", "application/http; msgtype=response"},
	}, HTTPResponse("text/html; charset=utf-8", HTMLPage(title, text)))
}

// RequestRecord returns the WARC request record a crawler writes
// before the response for targetURI.
func RequestRecord(targetURI string) []byte {
	request := fmt.Appendf(nil, "GET %s HTTP/1.1\r\nUser-Agent: fixture\r\n\r\n", targetURI)
	return Record([]Field{
		{"WARC-Type", "request"},
		{"WARC-Target-URI", targetURI},
		{"WARC-Date", "2024-03-01T12:00:00Z"},
		{"WARC-Record-ID", recordID(targetURI, "request")},
		{"Content-Type", "application/http; msgtype=request"},
	}, request)
}

// WarcinfoRecord returns the warcinfo record that opens most crawl
// files.
func WarcinfoRecord() []byte {
	return Record([]Field{
		{"WARC-Type", "warcinfo"},
		{"WARC-Date", "2024-03-01T12:00:00Z"},
		{"WARC-Record-ID", recordID("warcinfo", "warcinfo")},
		{"Content-Type", "application/warc-fields"},
	}, []byte("software: fixture\r\nformat: WARC File Format 1.0\r\n"))
}

func recordID(targetURI, recordType string) string {
	return "<urn:uuid:" + uuid.NewSHA1(uuid.NameSpaceURL, []byte(recordType+" "+targetURI)).String() + ">"
}

var vocabulary = strings.Fields(`
	archive crawl harbor lantern meadow quartz river signal timber violet
	anchor basket candle desert ember falcon garden hollow island jasper
	kettle ladder marble needle orchard pepper quiver ribbon saddle tunnel
	umbrella velvet walnut yonder zephyr beacon copper drift forest glacier`)

// SampleRecords returns count response records with varied text drawn
// from a fixed vocabulary. The same seed always yields the same
// records; different seeds yield different URIs and text.
func SampleRecords(count int, seed uint64) [][]byte {
	random := rand.New(rand.NewPCG(seed, seed^0x9E3779B97F4A7C15))
	records := make([][]byte, count)
	for i := range records {
		words := make([]string, 20+random.IntN(60))
		for j := range words {
			words[j] = vocabulary[random.IntN(len(vocabulary))]
		}
		title := words[0] + " " + words[1]
		uri := fmt.Sprintf("http://site-%d.example/%s/%d", seed, words[2], i)
		records[i] = ResponseRecord(uri, title, strings.Join(words, " "))
	}
	return records
}

// Concat joins records into one uncompressed WARC stream.
func Concat(records [][]byte) []byte {
	return bytes.Join(records, nil)
}
