// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package megawarc

import (
	"encoding/hex"
	"fmt"

	"github.com/klauspost/compress/zstd"
	"github.com/zeebo/blake3"
)

// Sub-magics that identify the contents of the dictionary frame.
var (
	// RawDictionaryMagic starts a dictionary in the zstd dictionary
	// format (0xEC30A437).
	RawDictionaryMagic = [4]byte{0x37, 0xA4, 0x30, 0xEC}

	// FrameMagic starts a standard zstd frame (0xFD2FB528). A
	// dictionary frame starting with it holds a compressed dictionary.
	FrameMagic = [4]byte{0x28, 0xB5, 0x2F, 0xFD}
)

// DictionaryKind records how the dictionary was stored in the
// container.
type DictionaryKind uint8

const (
	// DictionaryEmpty means the declared dictionary length was zero.
	DictionaryEmpty DictionaryKind = iota

	// DictionaryRaw means the frame held the dictionary verbatim.
	DictionaryRaw

	// DictionaryCompressed means the frame held a zstd frame that
	// decompressed to the dictionary.
	DictionaryCompressed
)

// String returns the lowercase name of the kind.
func (kind DictionaryKind) String() string {
	switch kind {
	case DictionaryEmpty:
		return "empty"
	case DictionaryRaw:
		return "raw"
	case DictionaryCompressed:
		return "compressed"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(kind))
	}
}

// resolveDictionary classifies the dictionary frame by its sub-magic
// and returns the raw dictionary bytes.
func resolveDictionary(frame []byte, maxSize int64) ([]byte, DictionaryKind, error) {
	if len(frame) == 0 {
		return nil, DictionaryEmpty, nil
	}
	if len(frame) < 4 {
		return nil, 0, &FormatError{
			Kind:   UnrecognizedDictionaryFrame,
			Offset: HeaderSize,
			Detail: fmt.Sprintf("frame of %d bytes is shorter than a sub-magic", len(frame)),
			Found:  frame,
		}
	}

	var subMagic [4]byte
	copy(subMagic[:], frame)

	switch subMagic {
	case RawDictionaryMagic:
		return frame, DictionaryRaw, nil

	case FrameMagic:
		dictionary, err := decompressDictionary(frame, maxSize)
		if err != nil {
			return nil, 0, &FormatError{
				Kind:   DictionaryDecodeFailed,
				Offset: HeaderSize,
				Detail: fmt.Sprintf("compressed dictionary of %d bytes", len(frame)),
				Err:    err,
			}
		}
		if len(dictionary) > 0 && (len(dictionary) < 4 || [4]byte(dictionary[:4]) != RawDictionaryMagic) {
			found := dictionary
			if len(found) > 4 {
				found = found[:4]
			}
			return nil, 0, &FormatError{
				Kind:     UnrecognizedDictionaryFrame,
				Offset:   HeaderSize,
				Detail:   "decompressed dictionary lacks the dictionary magic",
				Expected: RawDictionaryMagic[:],
				Found:    found,
			}
		}
		return dictionary, DictionaryCompressed, nil

	default:
		return nil, 0, &FormatError{
			Kind:     UnrecognizedDictionaryFrame,
			Offset:   HeaderSize,
			Expected: RawDictionaryMagic[:],
			Found:    subMagic[:],
			Detail:   fmt.Sprintf("neither a raw dictionary nor a zstd frame (% x)", FrameMagic),
		}
	}
}

// decompressDictionary decodes a compressed dictionary with the plain
// codec. Output is capped at maxSize.
func decompressDictionary(frame []byte, maxSize int64) ([]byte, error) {
	decoder, err := zstd.NewReader(nil,
		zstd.WithDecoderConcurrency(1),
		zstd.WithDecoderMaxMemory(uint64(maxSize)),
	)
	if err != nil {
		return nil, fmt.Errorf("creating dictionary decoder: %w", err)
	}
	defer decoder.Close()

	dictionary, err := decoder.DecodeAll(frame, nil)
	if err != nil {
		return nil, err
	}
	return dictionary, nil
}

// hasDictionaryContent reports whether a resolved dictionary carries
// anything beyond the 4-byte magic. A magic-only dictionary has no ID
// and no tables and is treated as no dictionary at all.
func hasDictionaryContent(dictionary []byte) bool {
	return len(dictionary) > len(RawDictionaryMagic)
}

// DictionaryInfo summarizes a resolved dictionary for diagnostics.
type DictionaryInfo struct {
	// Size is the resolved dictionary length in bytes.
	Size int

	// ID is the dictionary ID frames refer to. Zero for empty and
	// magic-only dictionaries.
	ID uint32

	// ContentSize is the length of the dictionary's history content.
	ContentSize int

	// Fingerprint is a short BLAKE3 digest of the dictionary bytes,
	// hex encoded. Archives sharing a dictionary share a fingerprint.
	Fingerprint string
}

// InspectDictionary parses a resolved dictionary. Empty and
// magic-only dictionaries produce an info with only Size and
// Fingerprint set.
func InspectDictionary(dictionary []byte) (DictionaryInfo, error) {
	digest := blake3.Sum256(dictionary)
	info := DictionaryInfo{
		Size:        len(dictionary),
		Fingerprint: hex.EncodeToString(digest[:8]),
	}
	if !hasDictionaryContent(dictionary) {
		return info, nil
	}

	parsed, err := zstd.InspectDictionary(dictionary)
	if err != nil {
		return info, &DecodeError{Kind: DictionaryRejected, Err: err}
	}
	info.ID = parsed.ID()
	info.ContentSize = parsed.ContentSize()
	return info, nil
}
