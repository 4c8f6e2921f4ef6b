// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package extract

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
)

// decodeContent undoes the HTTP Content-Encoding. Multiple codings are
// applied in the order listed, so they are undone in reverse.
func decodeContent(body io.Reader, contentEncoding string) (io.Reader, error) {
	if contentEncoding == "" {
		return body, nil
	}
	codings := strings.Split(contentEncoding, ",")
	reader := body
	for i := len(codings) - 1; i >= 0; i-- {
		coding := strings.ToLower(strings.TrimSpace(codings[i]))
		var err error
		switch coding {
		case "", "identity":
		case "gzip", "x-gzip":
			reader, err = gzip.NewReader(reader)
		case "deflate":
			reader, err = deflateReader(reader)
		case "zstd":
			var decoder *zstd.Decoder
			decoder, err = zstd.NewReader(reader, zstd.WithDecoderConcurrency(1))
			if err == nil {
				reader = decoder.IOReadCloser()
			}
		default:
			return nil, fmt.Errorf("%w: content encoding %q", ErrUnsupportedMedia, coding)
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %s payload: %v", ErrUnsupportedMedia, coding, err)
		}
	}
	return reader, nil
}

// deflateReader accepts both zlib-wrapped deflate, which the HTTP
// coding names, and the raw deflate some servers send instead.
func deflateReader(body io.Reader) (io.Reader, error) {
	buffered := bufio.NewReader(body)
	header, err := buffered.Peek(2)
	if err != nil {
		return nil, err
	}
	// A zlib header has CM=8 in the low nibble and a check value that
	// makes the 16-bit header a multiple of 31.
	if header[0]&0x0F == 8 && (uint16(header[0])<<8|uint16(header[1]))%31 == 0 {
		return zlib.NewReader(buffered)
	}
	return flate.NewReader(buffered), nil
}
