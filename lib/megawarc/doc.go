// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package megawarc reads and writes megawarc containers: WARC data
// compressed with zstd where the compression dictionary travels inside
// the file.
//
// A container starts with a zstd skippable frame. Its 8-byte header is
// the skippable magic 5D 2A 4D 18 and a little-endian dictionary
// length; the frame body is the dictionary, either verbatim (starting
// 37 A4 30 EC) or itself compressed as a zstd frame (starting
// 28 B5 2F FD). Ordinary zstd frames compressed with that dictionary
// follow, usually one per WARC record.
//
// Reading is two steps. [Open] validates the header, resolves the
// dictionary, and rewinds the stream. [NewSession] builds a
// dictionary-aware decoder over the whole file from offset 0; the
// decoder skips the dictionary frame as it would any skippable frame
// and yields the concatenated payload as an [io.Reader].
//
//	container, err := megawarc.Open(file, megawarc.OpenOptions{})
//	if err != nil {
//	    return err
//	}
//	session, err := megawarc.NewSession(container, megawarc.SessionOptions{})
//	if err != nil {
//	    return err
//	}
//	defer session.Close()
//	reader := warc.NewReader(session, warc.ReaderOptions{})
//
// Failures are typed. [FormatError] covers the container framing and
// is returned by Open; [DecodeError] covers the codec and is returned
// by NewSession and Session.Read. Neither is retryable.
//
// [Writer] and [TrainDictionary] produce containers, for packing
// plain WARC files and for test fixtures.
package megawarc
