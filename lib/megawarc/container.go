// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package megawarc

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Container format constants.
const (
	// HeaderSize is the fixed container header: 4-byte magic plus
	// 4-byte little-endian dictionary length.
	HeaderSize = 8

	// DefaultMaxDictionarySize is the ceiling applied to the declared
	// dictionary length (and to the decompressed size of a compressed
	// dictionary) when OpenOptions does not set one. Real megawarc
	// dictionaries are a few hundred KiB; anything near this size is
	// almost certainly a corrupt length field.
	DefaultMaxDictionarySize = 64 << 20
)

// ContainerMagic is the zstd skippable-frame magic 0x184D2A5D in
// on-disk (little-endian) order. The dictionary frame is a skippable
// frame, which is why a dictionary-aware zstd decoder can read the
// whole file from offset 0 and emit only the payload.
var ContainerMagic = [4]byte{0x5D, 0x2A, 0x4D, 0x18}

// Header is the 8-byte container header.
type Header struct {
	Magic            [4]byte
	DictionaryLength int32
}

// OpenOptions configures [Open].
type OpenOptions struct {
	// MaxDictionarySize bounds the declared dictionary length and the
	// decompressed size of a compressed dictionary. Zero or negative
	// means DefaultMaxDictionarySize.
	MaxDictionarySize int64
}

func (options OpenOptions) maxDictionarySize() int64 {
	if options.MaxDictionarySize <= 0 {
		return DefaultMaxDictionarySize
	}
	return options.MaxDictionarySize
}

// Container is an opened archive whose dictionary has been resolved.
// The source stream has been rewound to offset 0 and is handed to
// [NewSession], which takes ownership of it.
type Container struct {
	// Header is the parsed container header.
	Header Header

	// Kind describes how the dictionary was stored.
	Kind DictionaryKind

	// Dictionary is the resolved raw dictionary. It is read-only and
	// may be shared freely. Empty when Kind is DictionaryEmpty.
	Dictionary []byte

	source io.ReadSeeker
}

// PayloadOffset returns the file offset of the first byte after the
// dictionary frame.
func (container *Container) PayloadOffset() int64 {
	return HeaderSize + int64(container.Header.DictionaryLength)
}

// Open reads and validates the container header and dictionary frame
// from source, resolves the dictionary (decompressing it if it is
// stored as a zstd frame), and rewinds source to offset 0.
//
// A magic mismatch is reported after reading exactly four bytes; no
// further reads are performed. The declared dictionary length is
// validated before any buffer is allocated for it.
func Open(source io.ReadSeeker, options OpenOptions) (*Container, error) {
	var magic [4]byte
	if _, err := io.ReadFull(source, magic[:]); err != nil {
		return nil, &FormatError{
			Kind:   UnsupportedContainer,
			Offset: 0,
			Detail: "file too short for container magic",
			Err:    err,
		}
	}
	if magic != ContainerMagic {
		return nil, &FormatError{
			Kind:     UnsupportedContainer,
			Offset:   0,
			Expected: ContainerMagic[:],
			Found:    magic[:],
		}
	}

	var lengthBytes [4]byte
	if _, err := io.ReadFull(source, lengthBytes[:]); err != nil {
		return nil, &FormatError{
			Kind:   CorruptDictionaryLength,
			Offset: 4,
			Detail: "reading dictionary length",
			Err:    err,
		}
	}
	dictionaryLength := int32(binary.LittleEndian.Uint32(lengthBytes[:]))

	maxSize := options.maxDictionarySize()
	if dictionaryLength < 0 || int64(dictionaryLength) > maxSize {
		return nil, &FormatError{
			Kind:   CorruptDictionaryLength,
			Offset: 4,
			Detail: fmt.Sprintf("declared length %d outside [0, %d]", dictionaryLength, maxSize),
		}
	}

	frame := make([]byte, dictionaryLength)
	if _, err := io.ReadFull(source, frame); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return nil, &FormatError{
			Kind:   CorruptDictionaryLength,
			Offset: HeaderSize,
			Detail: fmt.Sprintf("declared length %d runs past end of file", dictionaryLength),
			Err:    err,
		}
	}

	dictionary, kind, err := resolveDictionary(frame, maxSize)
	if err != nil {
		return nil, err
	}

	if _, err := source.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("megawarc: rewinding archive: %w", err)
	}

	return &Container{
		Header: Header{
			Magic:            magic,
			DictionaryLength: dictionaryLength,
		},
		Kind:       kind,
		Dictionary: dictionary,
		source:     source,
	}, nil
}

// takeSource hands the rewound stream to the caller exactly once.
func (container *Container) takeSource() (io.ReadSeeker, error) {
	if container.source == nil {
		return nil, fmt.Errorf("megawarc: container stream already handed to a session")
	}
	source := container.source
	container.source = nil
	return source, nil
}
