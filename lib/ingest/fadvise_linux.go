// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

//go:build linux

package ingest

import (
	"os"

	"golang.org/x/sys/unix"
)

// adviseSequential tells the kernel the archive is read once, front
// to back, so readahead grows and pages can be dropped early.
func adviseSequential(file *os.File) error {
	return unix.Fadvise(int(file.Fd()), 0, 0, unix.FADV_SEQUENTIAL)
}
