// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package extract_test

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"

	"github.com/fairuse/warcindex/lib/extract"
	"github.com/fairuse/warcindex/lib/testutil"
	"github.com/fairuse/warcindex/lib/warc"
)

func parseRecord(t *testing.T, data []byte) *warc.Record {
	t.Helper()
	record, err := warc.NewReader(bytes.NewReader(data), warc.ReaderOptions{}).Next()
	if err != nil {
		t.Fatalf("parsing fixture record: %v", err)
	}
	return record
}

// responseRecord wraps a raw HTTP message in a WARC response record.
func responseRecord(uri string, httpMessage []byte) []byte {
	return testutil.Record([]testutil.Field{
		{Name: "WARC-Type", Value: "response"},
		{Name: "WARC-Target-URI", Value: uri},
		{Name: "Content-Type", Value: "application/http; msgtype=response"},
	}, httpMessage)
}

func httpMessage(status string, headers map[string]string, body []byte) []byte {
	var buffer bytes.Buffer
	fmt.Fprintf(&buffer, "HTTP/1.1 %s\r\n", status)
	for name, value := range headers {
		fmt.Fprintf(&buffer, "%s: %s\r\n", name, value)
	}
	fmt.Fprintf(&buffer, "Content-Length: %d\r\n\r\n", len(body))
	buffer.Write(body)
	return buffer.Bytes()
}

func TestExtractHTMLResponse(t *testing.T) {
	record := parseRecord(t, testutil.ResponseRecord("http://a.example/", "Harbor  Lights", "ships  in the\nnight"))

	fields, err := extract.FromRecord(record)
	if err != nil {
		t.Fatalf("FromRecord: %v", err)
	}
	if fields.Title != "Harbor Lights" {
		t.Errorf("Title = %q, want %q", fields.Title, "Harbor Lights")
	}
	if fields.Body != "ships in the night" {
		t.Errorf("Body = %q, want %q", fields.Body, "ships in the night")
	}
	if fields.StatusCode != 200 {
		t.Errorf("StatusCode = %d, want 200", fields.StatusCode)
	}
	if fields.MediaType != "text/html" {
		t.Errorf("MediaType = %q, want text/html", fields.MediaType)
	}
}

func TestExtractSkipsHiddenElements(t *testing.T) {
	page := []byte(`<html><head><title>Fish &amp; Chips</title><title>second</title></head>
<body><noscript>enable scripts</noscript><template><p>template text</p></template>
<h1>Menu</h1><script>if (a < b) { document.write("</p>") }</script><p>cod &lt;3</p></body></html>`)
	data := responseRecord("http://menu.example/", httpMessage("200 OK",
		map[string]string{"Content-Type": "text/html; charset=utf-8"}, page))

	fields, err := extract.FromRecord(parseRecord(t, data))
	if err != nil {
		t.Fatalf("FromRecord: %v", err)
	}
	if fields.Title != "Fish & Chips" {
		t.Errorf("Title = %q, want %q", fields.Title, "Fish & Chips")
	}
	if fields.Body != "Menu cod <3" {
		t.Errorf("Body = %q, want %q", fields.Body, "Menu cod <3")
	}
}

func TestExtractContentEncodings(t *testing.T) {
	page := testutil.HTMLPage("Encoded", "compressed words survive")

	encode := map[string]func(t *testing.T) []byte{
		"gzip": func(t *testing.T) []byte {
			var buffer bytes.Buffer
			writer := gzip.NewWriter(&buffer)
			writer.Write(page)
			writer.Close()
			return buffer.Bytes()
		},
		"deflate": func(t *testing.T) []byte {
			var buffer bytes.Buffer
			writer := zlib.NewWriter(&buffer)
			writer.Write(page)
			writer.Close()
			return buffer.Bytes()
		},
		"zstd": func(t *testing.T) []byte {
			encoder, err := zstd.NewWriter(nil)
			if err != nil {
				t.Fatalf("creating encoder: %v", err)
			}
			defer encoder.Close()
			return encoder.EncodeAll(page, nil)
		},
	}

	for coding, build := range encode {
		t.Run(coding, func(t *testing.T) {
			data := responseRecord("http://enc.example/", httpMessage("200 OK", map[string]string{
				"Content-Type":     "text/html",
				"Content-Encoding": coding,
			}, build(t)))
			fields, err := extract.FromRecord(parseRecord(t, data))
			if err != nil {
				t.Fatalf("FromRecord: %v", err)
			}
			if fields.Title != "Encoded" || fields.Body != "compressed words survive" {
				t.Errorf("fields = %+v", fields)
			}
		})
	}

	t.Run("raw deflate", func(t *testing.T) {
		var buffer bytes.Buffer
		writer, err := flate.NewWriter(&buffer, flate.DefaultCompression)
		if err != nil {
			t.Fatalf("creating flate writer: %v", err)
		}
		writer.Write(page)
		writer.Close()
		data := responseRecord("http://enc.example/", httpMessage("200 OK", map[string]string{
			"Content-Type":     "text/html",
			"Content-Encoding": "deflate",
		}, buffer.Bytes()))
		fields, err := extract.FromRecord(parseRecord(t, data))
		if err != nil {
			t.Fatalf("FromRecord: %v", err)
		}
		if fields.Body != "compressed words survive" {
			t.Errorf("Body = %q", fields.Body)
		}
	})

	t.Run("unknown coding", func(t *testing.T) {
		data := responseRecord("http://enc.example/", httpMessage("200 OK", map[string]string{
			"Content-Type":     "text/html",
			"Content-Encoding": "br",
		}, []byte{0x1b, 0x00}))
		_, err := extract.FromRecord(parseRecord(t, data))
		if !errors.Is(err, extract.ErrUnsupportedMedia) {
			t.Errorf("error = %v, want ErrUnsupportedMedia", err)
		}
	})
}

func TestExtractConvertsCharset(t *testing.T) {
	data := responseRecord("http://latin.example/", httpMessage("200 OK",
		map[string]string{"Content-Type": "text/plain; charset=iso-8859-1"},
		[]byte("caf\xe9 cr\xe8me")))

	fields, err := extract.FromRecord(parseRecord(t, data))
	if err != nil {
		t.Fatalf("FromRecord: %v", err)
	}
	if fields.Body != "café crème" {
		t.Errorf("Body = %q, want %q", fields.Body, "café crème")
	}
	if fields.Title != "http://latin.example/" {
		t.Errorf("Title = %q, want the target URI", fields.Title)
	}
}

func TestExtractResourceRecord(t *testing.T) {
	data := testutil.Record([]testutil.Field{
		{Name: "WARC-Type", Value: "resource"},
		{Name: "WARC-Target-URI", Value: "file:///notes.txt"},
		{Name: "Content-Type", Value: "text/plain"},
	}, []byte("  plain\tnotes  "))

	fields, err := extract.FromRecord(parseRecord(t, data))
	if err != nil {
		t.Fatalf("FromRecord: %v", err)
	}
	if fields.Body != "plain notes" || fields.StatusCode != 0 {
		t.Errorf("fields = %+v, want body %q and no status", fields, "plain notes")
	}
}

func TestExtractSkippable(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want error
	}{
		{
			"unsupported media type",
			responseRecord("http://img.example/", httpMessage("200 OK",
				map[string]string{"Content-Type": "image/png"}, []byte("\x89PNG"))),
			extract.ErrUnsupportedMedia,
		},
		{
			"missing media type",
			responseRecord("http://img.example/", httpMessage("200 OK", nil, []byte("bytes"))),
			extract.ErrUnsupportedMedia,
		},
		{
			"not found",
			responseRecord("http://gone.example/", httpMessage("404 Not Found",
				map[string]string{"Content-Type": "text/html"}, []byte("<p>gone</p>"))),
			extract.ErrNoContent,
		},
		{
			"redirect",
			responseRecord("http://moved.example/", httpMessage("301 Moved Permanently",
				map[string]string{"Location": "http://elsewhere.example/"}, nil)),
			extract.ErrNoContent,
		},
		{
			"request record",
			testutil.RequestRecord("http://a.example/"),
			extract.ErrNoContent,
		},
		{
			"not an HTTP message",
			responseRecord("dns:a.example", []byte("20240301120000\na.example. 300 IN A 192.0.2.1\n")),
			extract.ErrNoContent,
		},
		{
			"empty payload",
			responseRecord("http://empty.example/", httpMessage("200 OK",
				map[string]string{"Content-Type": "text/html"}, nil)),
			extract.ErrNoContent,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := extract.FromRecord(parseRecord(t, tt.data))
			if !errors.Is(err, tt.want) {
				t.Fatalf("error = %v, want %v", err, tt.want)
			}
			if !extract.IsSkippable(err) {
				t.Errorf("IsSkippable(%v) = false", err)
			}
		})
	}
}

func TestExtractBodyTextLimit(t *testing.T) {
	tests := []struct {
		text  string
		limit int
		want  string
	}{
		{"alpha beta gamma", 10, "alpha beta"},
		{"alpha beta gamma", 12, "alpha beta g"},
		{"héllo world", 4, "hél"},
		{"héllo", 2, "h"},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s/%d", tt.text, tt.limit), func(t *testing.T) {
			data := responseRecord("http://long.example/", httpMessage("200 OK",
				map[string]string{"Content-Type": "text/plain; charset=utf-8"}, []byte(tt.text)))
			fields, err := extract.Extractor{MaxBodyText: tt.limit}.Extract(parseRecord(t, data))
			if err != nil {
				t.Fatalf("Extract: %v", err)
			}
			if fields.Body != tt.want {
				t.Errorf("Body = %q, want %q", fields.Body, tt.want)
			}
			if len(fields.Body) > tt.limit {
				t.Errorf("Body has %d bytes, limit %d", len(fields.Body), tt.limit)
			}
		})
	}
}

func TestExtractToleratesShortHTTPBody(t *testing.T) {
	// The archived message declares more bytes than it holds.
	message := []byte("HTTP/1.1 200 OK\r\nContent-Type: text/plain\r\nContent-Length: 500\r\n\r\nonly this much")
	fields, err := extract.FromRecord(parseRecord(t, responseRecord("http://short.example/", message)))
	if err != nil {
		t.Fatalf("FromRecord: %v", err)
	}
	if !strings.HasPrefix(fields.Body, "only this much") {
		t.Errorf("Body = %q, want the bytes that were archived", fields.Body)
	}
}
