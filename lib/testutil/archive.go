// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"bytes"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/fairuse/warcindex/lib/megawarc"
)

// ArchiveOptions configures [Archive].
type ArchiveOptions struct {
	// Dictionary is stored in the container and used for every record
	// frame. Nil produces a container with a zero-length dictionary.
	Dictionary []byte

	// CompressDictionary stores the dictionary as a zstd frame.
	CompressDictionary bool
}

// Archive builds a megawarc container holding records, one zstd frame
// per record.
func Archive(t testing.TB, records [][]byte, options ArchiveOptions) []byte {
	t.Helper()
	var buffer bytes.Buffer
	writer, err := megawarc.NewWriter(&buffer, options.Dictionary, megawarc.WriterOptions{
		CompressDictionary: options.CompressDictionary,
	})
	if err != nil {
		t.Fatalf("creating megawarc writer: %v", err)
	}
	for i, record := range records {
		if err := writer.WriteRecord(record); err != nil {
			t.Fatalf("writing record %d: %v", i, err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("closing megawarc writer: %v", err)
	}
	return buffer.Bytes()
}

var (
	trainedOnce       sync.Once
	trainedDictionary []byte
	trainedErr        error
)

// TrainedDictionary returns a dictionary trained on SampleRecords with
// seed 1. Records built from other seeds share its vocabulary and
// compress well with it. The result is computed once per test binary
// and must not be modified.
func TrainedDictionary(t testing.TB) []byte {
	t.Helper()
	trainedOnce.Do(func() {
		trainedDictionary, trainedErr = megawarc.TrainDictionary(SampleRecords(200, 1), 0)
	})
	if trainedErr != nil {
		t.Fatalf("training dictionary: %v", trainedErr)
	}
	return trainedDictionary
}

// WriteArchive writes data to a file in a per-test temporary directory
// and returns its path.
func WriteArchive(t testing.TB, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("writing archive %s: %v", path, err)
	}
	return path
}
