// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package megawarc

import (
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
)

// SessionOptions configures [NewSession].
type SessionOptions struct {
	// MaxWindowSize rejects frames whose window would need more
	// memory than this. Zero keeps the codec default.
	MaxWindowSize uint64

	// LowMemory trades decode speed for smaller buffers.
	LowMemory bool
}

// Session streams the decompressed payload of one archive. It reads
// the whole file from offset 0: the decoder skips the skippable
// dictionary frame itself and decodes every following zstd frame with
// the resolved dictionary. Session is single-pass and not safe for
// concurrent use.
type Session struct {
	decoder *zstd.Decoder
	counter *countingReader

	// decoded is the number of plaintext bytes returned so far.
	decoded int64

	// err is sticky: once a read fails every later read returns it.
	err error
}

// NewSession takes ownership of the container's rewound stream and
// builds a dictionary-aware decoder over it. A dictionary the codec
// cannot load yields a [DecodeError] of kind DictionaryRejected.
func NewSession(container *Container, options SessionOptions) (*Session, error) {
	source, err := container.takeSource()
	if err != nil {
		return nil, err
	}

	decoderOptions := []zstd.DOption{
		zstd.WithDecoderConcurrency(1),
		zstd.WithDecoderLowmem(options.LowMemory),
	}
	if options.MaxWindowSize > 0 {
		decoderOptions = append(decoderOptions, zstd.WithDecoderMaxWindow(options.MaxWindowSize))
	}
	if hasDictionaryContent(container.Dictionary) {
		// Validate separately so a bad dictionary is distinguishable
		// from a bad option or an I/O failure in NewReader.
		if _, err := zstd.InspectDictionary(container.Dictionary); err != nil {
			return nil, &DecodeError{Kind: DictionaryRejected, Err: err}
		}
		decoderOptions = append(decoderOptions, zstd.WithDecoderDicts(container.Dictionary))
	}

	counter := &countingReader{reader: source}
	decoder, err := zstd.NewReader(counter, decoderOptions...)
	if err != nil {
		return nil, fmt.Errorf("megawarc: creating decoder: %w", err)
	}

	return &Session{
		decoder: decoder,
		counter: counter,
	}, nil
}

// Read reads decompressed payload bytes. It returns io.EOF at the
// clean end of the last frame and a [DecodeError] for anything else:
// Truncated when the archive ends mid-frame, StreamCorrupt for
// checksum and framing errors, DictionaryRejected when a frame names
// a dictionary the session does not have.
func (session *Session) Read(buffer []byte) (int, error) {
	if session.err != nil {
		return 0, session.err
	}
	read, err := session.decoder.Read(buffer)
	session.decoded += int64(read)
	if err == nil {
		return read, nil
	}
	if err == io.EOF {
		session.err = io.EOF
		return read, io.EOF
	}
	session.err = session.classify(err)
	return read, session.err
}

// classify maps a codec error onto the decode error taxonomy.
func (session *Session) classify(err error) error {
	kind := StreamCorrupt
	switch {
	case errors.Is(err, io.ErrUnexpectedEOF):
		kind = Truncated
	case errors.Is(err, zstd.ErrUnknownDictionary):
		kind = DictionaryRejected
	}
	return &DecodeError{Kind: kind, Offset: session.counter.count, Err: err}
}

// CompressedOffset returns how many bytes of the archive the decoder
// has consumed. The decoder reads ahead, so this is an upper bound on
// the position of the bytes that produced the latest output.
func (session *Session) CompressedOffset() int64 {
	return session.counter.count
}

// DecodedBytes returns how many plaintext bytes have been read.
func (session *Session) DecodedBytes() int64 {
	return session.decoded
}

// Close releases the decoder. It does not close the underlying
// stream; the caller that opened the file closes it.
func (session *Session) Close() error {
	session.decoder.Close()
	if session.err == nil {
		session.err = errSessionClosed
	}
	return nil
}

var errSessionClosed = errors.New("megawarc: session closed")

// countingReader counts bytes read from the archive stream.
type countingReader struct {
	reader io.Reader
	count  int64
}

func (counter *countingReader) Read(buffer []byte) (int, error) {
	read, err := counter.reader.Read(buffer)
	counter.count += int64(read)
	return read, err
}
