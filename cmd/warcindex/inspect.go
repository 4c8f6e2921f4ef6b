// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/pflag"

	"github.com/fairuse/warcindex/cmd/warcindex/cli"
	"github.com/fairuse/warcindex/lib/megawarc"
)

type inspectParams struct {
	configParams
	cli.JSONOutput
}

// inspection describes an archive's container framing.
type inspection struct {
	Archive               string `json:"archive"`
	FileSize              int64  `json:"file_size"`
	Magic                 string `json:"magic"`
	DictionaryLength      int32  `json:"dictionary_length"`
	DictionaryKind        string `json:"dictionary_kind"`
	DictionarySize        int    `json:"dictionary_size"`
	DictionaryID          uint32 `json:"dictionary_id"`
	DictionaryContentSize int    `json:"dictionary_content_size"`
	DictionaryFingerprint string `json:"dictionary_fingerprint"`
	DictionaryError       string `json:"dictionary_error,omitempty"`
	PayloadOffset         int64  `json:"payload_offset"`
	PayloadSize           int64  `json:"payload_size"`
}

func inspectCommand(a *app) *cli.Command {
	var params inspectParams
	return &cli.Command{
		Name:    "inspect",
		Summary: "Describe an archive's header and dictionary",
		Description: `Read the container header and dictionary frame of ARCHIVE without
decoding any records, and print the dictionary's kind, ID and size.`,
		Usage: "warcindex inspect [flags] ARCHIVE",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("inspect", &params)
		},
		Run: func(ctx context.Context, args []string) error {
			if len(args) != 1 {
				return cli.Usagef("inspect needs exactly one ARCHIVE, got %d arguments", len(args))
			}
			return a.runInspect(&params, args[0])
		},
	}
}

func (a *app) runInspect(params *inspectParams, path string) error {
	cfg, err := a.loadConfig(params.configParams, nil)
	if err != nil {
		return err
	}

	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()
	stat, err := file.Stat()
	if err != nil {
		return err
	}

	container, err := megawarc.Open(file, megawarc.OpenOptions{MaxDictionarySize: cfg.Pipeline.MaxDictionaryBytes})
	if err != nil {
		return err
	}
	report := inspection{
		Archive:          path,
		FileSize:         stat.Size(),
		Magic:            hex.EncodeToString(container.Header.Magic[:]),
		DictionaryLength: container.Header.DictionaryLength,
		DictionaryKind:   container.Kind.String(),
		PayloadOffset:    container.PayloadOffset(),
		PayloadSize:      stat.Size() - container.PayloadOffset(),
	}
	// A dictionary zstd cannot parse is reported, not fatal: inspect
	// is how such archives get diagnosed.
	info, dictionaryErr := megawarc.InspectDictionary(container.Dictionary)
	report.DictionarySize = info.Size
	report.DictionaryID = info.ID
	report.DictionaryContentSize = info.ContentSize
	report.DictionaryFingerprint = info.Fingerprint
	if dictionaryErr != nil {
		report.DictionaryError = dictionaryErr.Error()
	}

	if done, err := params.EmitJSON(a.stdout, report); done {
		return err
	}
	table := tabwriter.NewWriter(a.stdout, 2, 0, 2, ' ', 0)
	fmt.Fprintf(table, "archive\t%s\n", report.Archive)
	fmt.Fprintf(table, "file size\t%s (%d bytes)\n", humanize.IBytes(uint64(report.FileSize)), report.FileSize)
	fmt.Fprintf(table, "magic\t%s\n", report.Magic)
	fmt.Fprintf(table, "dictionary frame\t%d bytes, %s\n", report.DictionaryLength, report.DictionaryKind)
	fmt.Fprintf(table, "dictionary\t%s, id %d, %s of content\n",
		humanize.IBytes(uint64(report.DictionarySize)), report.DictionaryID, humanize.IBytes(uint64(report.DictionaryContentSize)))
	fmt.Fprintf(table, "fingerprint\t%s\n", report.DictionaryFingerprint)
	if report.DictionaryError != "" {
		fmt.Fprintf(table, "dictionary error\t%s\n", report.DictionaryError)
	}
	fmt.Fprintf(table, "payload\t%s from offset %d\n", humanize.IBytes(uint64(report.PayloadSize)), report.PayloadOffset)
	return table.Flush()
}
