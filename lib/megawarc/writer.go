// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package megawarc

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/klauspost/compress/zstd"
	"github.com/zeebo/blake3"
)

// maxTrainedHistory caps the history section of a trained dictionary.
// The reference trainer defaults to 110 KiB.
const maxTrainedHistory = 112 << 10

// minTrainedHistory is the shortest history zstd accepts.
const minTrainedHistory = 8

// WriterOptions configures [NewWriter].
type WriterOptions struct {
	// CompressDictionary stores the dictionary as a zstd frame
	// (compressed without a dictionary) instead of verbatim.
	CompressDictionary bool

	// Level is the encoder level for record frames. Zero means
	// zstd.SpeedDefault.
	Level zstd.EncoderLevel
}

// Writer produces a megawarc container: a skippable frame holding the
// dictionary followed by one independent zstd frame per record, each
// compressed with the dictionary. Independent frames keep every record
// individually addressable, which is how megawarc files are laid out.
type Writer struct {
	writer  io.Writer
	encoder *zstd.Encoder
	scratch []byte
	written int64
}

// NewWriter writes the container header and dictionary frame to w and
// returns a Writer for the records. A nil or magic-only dictionary
// produces records compressed without a dictionary.
func NewWriter(w io.Writer, dictionary []byte, options WriterOptions) (*Writer, error) {
	frame := dictionary
	if options.CompressDictionary && len(dictionary) > 0 {
		plain, err := zstd.NewWriter(nil, zstd.WithEncoderConcurrency(1))
		if err != nil {
			return nil, fmt.Errorf("megawarc: creating dictionary encoder: %w", err)
		}
		frame = plain.EncodeAll(dictionary, nil)
		plain.Close()
	}
	if len(frame) > math.MaxInt32 {
		return nil, fmt.Errorf("megawarc: dictionary frame of %d bytes does not fit the length field", len(frame))
	}

	level := options.Level
	if level == 0 {
		level = zstd.SpeedDefault
	}
	encoderOptions := []zstd.EOption{
		zstd.WithEncoderLevel(level),
		zstd.WithEncoderConcurrency(1),
	}
	if hasDictionaryContent(dictionary) {
		encoderOptions = append(encoderOptions, zstd.WithEncoderDict(dictionary))
	}
	encoder, err := zstd.NewWriter(nil, encoderOptions...)
	if err != nil {
		return nil, fmt.Errorf("megawarc: creating record encoder: %w", err)
	}

	var header [HeaderSize]byte
	copy(header[:4], ContainerMagic[:])
	binary.LittleEndian.PutUint32(header[4:], uint32(len(frame)))
	if _, err := w.Write(header[:]); err != nil {
		encoder.Close()
		return nil, fmt.Errorf("megawarc: writing container header: %w", err)
	}
	if _, err := w.Write(frame); err != nil {
		encoder.Close()
		return nil, fmt.Errorf("megawarc: writing dictionary frame: %w", err)
	}

	return &Writer{
		writer:  w,
		encoder: encoder,
		written: int64(HeaderSize + len(frame)),
	}, nil
}

// WriteRecord compresses payload as one zstd frame and writes it.
func (writer *Writer) WriteRecord(payload []byte) error {
	writer.scratch = writer.encoder.EncodeAll(payload, writer.scratch[:0])
	written, err := writer.writer.Write(writer.scratch)
	writer.written += int64(written)
	if err != nil {
		return fmt.Errorf("megawarc: writing record frame: %w", err)
	}
	return nil
}

// Written returns the number of container bytes written so far.
func (writer *Writer) Written() int64 {
	return writer.written
}

// Close releases the encoder. It does not close the underlying writer.
func (writer *Writer) Close() error {
	return writer.encoder.Close()
}

// ErrUntrainable is returned by [TrainDictionary] when the samples
// are too few, too small, or too uniform to yield entropy tables.
var ErrUntrainable = errors.New("megawarc: samples cannot train a dictionary")

// TrainDictionary builds a zstd dictionary from sample payloads. The
// history is drawn from the first half of the sample bytes, capped at
// 112 KiB, so the remaining samples still leave literals to build the
// literal table from. An id of zero derives one from the samples,
// outside the range zstd reserves for registered dictionaries.
func TrainDictionary(samples [][]byte, id uint32) ([]byte, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("%w: no samples", ErrUntrainable)
	}

	hasher := blake3.New()
	total := 0
	for _, sample := range samples {
		hasher.Write(sample)
		total += len(sample)
	}
	if id == 0 {
		digest := hasher.Sum(nil)
		id = 1<<15 + binary.LittleEndian.Uint32(digest[:4])%(math.MaxInt32-1<<15)
	}

	history := trainingHistory(samples, min(total/2, maxTrainedHistory))
	if len(history) < minTrainedHistory {
		return nil, fmt.Errorf("%w: %d sample bytes", ErrUntrainable, total)
	}
	return buildDictionary(zstd.BuildDictOptions{
		ID:       id,
		Contents: samples,
		History:  history,
		Offsets:  [3]int{1, 4, 8},
	})
}

// trainingHistory concatenates sample bytes in order until limit.
func trainingHistory(samples [][]byte, limit int) []byte {
	history := make([]byte, 0, limit)
	for _, sample := range samples {
		room := limit - len(history)
		if room <= 0 {
			break
		}
		if len(sample) > room {
			sample = sample[:room]
		}
		history = append(history, sample...)
	}
	return history
}

// buildDictionary runs the trainer. Degenerate input can make the
// trainer panic (no literals left after matching against the
// history); that is reported as ErrUntrainable.
func buildDictionary(options zstd.BuildDictOptions) (dictionary []byte, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			dictionary = nil
			err = fmt.Errorf("%w: %v", ErrUntrainable, recovered)
		}
	}()
	dictionary, err = zstd.BuildDict(options)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUntrainable, err)
	}
	return dictionary, nil
}
