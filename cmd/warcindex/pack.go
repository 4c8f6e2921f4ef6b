// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/pflag"

	"github.com/fairuse/warcindex/cmd/warcindex/cli"
	"github.com/fairuse/warcindex/lib/megawarc"
	"github.com/fairuse/warcindex/lib/warc"
)

type packParams struct {
	cli.JSONOutput
	DictionaryFrom     int    `flag:"dictionary-from" desc:"train the dictionary on the first N records, 0 for none" default:"1000"`
	Output             string `flag:"output,o" desc:"megawarc file to write (required)"`
	CompressDictionary bool   `flag:"compress-dictionary" desc:"store the dictionary as a zstd frame"`
	MaxBodyBytes       int64  `flag:"max-body-bytes" desc:"largest record body accepted" default:"536870912"`
}

// packReport describes a written archive.
type packReport struct {
	Input          string `json:"input"`
	Output         string `json:"output"`
	Records        int    `json:"records"`
	TrainedOn      int    `json:"trained_on"`
	DictionarySize int    `json:"dictionary_size"`
	DictionaryID   uint32 `json:"dictionary_id"`
	InputSize      int64  `json:"input_size"`
	OutputSize     int64  `json:"output_size"`
}

func packCommand(a *app) *cli.Command {
	var params packParams
	return &cli.Command{
		Name:    "pack",
		Summary: "Build a megawarc from an uncompressed WARC file",
		Description: `Split INPUT into WARC records, train a zstd dictionary on the first
--dictionary-from records, and write a megawarc: the dictionary in a
skippable frame followed by one dictionary-compressed frame per
record.`,
		Usage: "warcindex pack [flags] --output FILE INPUT.warc",
		Examples: []cli.Example{{
			Description: "Pack a crawl with a dictionary trained on 500 records",
			Command:     "warcindex pack --dictionary-from 500 -o crawl.megawarc.warc.zst crawl.warc",
		}},
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("pack", &params)
		},
		Run: func(ctx context.Context, args []string) error {
			if len(args) != 1 {
				return cli.Usagef("pack needs exactly one INPUT, got %d arguments", len(args))
			}
			if params.Output == "" {
				return cli.Usagef("pack needs --output")
			}
			if params.DictionaryFrom < 0 {
				return cli.Usagef("--dictionary-from must not be negative, got %d", params.DictionaryFrom)
			}
			return a.runPack(ctx, &params, args[0])
		},
	}
}

func (a *app) runPack(ctx context.Context, params *packParams, input string) error {
	source, err := os.Open(input)
	if err != nil {
		return err
	}
	defer source.Close()
	stat, err := source.Stat()
	if err != nil {
		return err
	}
	report := packReport{Input: input, Output: params.Output, InputSize: stat.Size()}

	reader := warc.NewReader(source, warc.ReaderOptions{MaxBodyBytes: params.MaxBodyBytes})
	next := func() ([]byte, error) {
		record, err := reader.Next()
		if err != nil {
			return nil, err
		}
		return record.AppendTo(nil), nil
	}

	// The training records are held until the dictionary exists, then
	// written first; the rest stream through.
	var samples [][]byte
	for len(samples) < params.DictionaryFrom {
		record, err := next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("reading %s: %w", input, err)
		}
		samples = append(samples, record)
	}
	var dictionary []byte
	if len(samples) > 0 {
		dictionary, err = megawarc.TrainDictionary(samples, 0)
		switch {
		case errors.Is(err, megawarc.ErrUntrainable):
			fmt.Fprintf(a.stderr, "warning: writing without a dictionary: %v\n", err)
			dictionary = nil
		case err != nil:
			return err
		default:
			info, err := megawarc.InspectDictionary(dictionary)
			if err != nil {
				return err
			}
			report.TrainedOn = len(samples)
			report.DictionarySize = info.Size
			report.DictionaryID = info.ID
		}
	}

	partial := params.Output + ".partial"
	output, err := os.Create(partial)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			output.Close()
			os.Remove(partial)
		}
	}()

	buffered := bufio.NewWriterSize(output, 1<<20)
	writer, err := megawarc.NewWriter(buffered, dictionary, megawarc.WriterOptions{
		CompressDictionary: params.CompressDictionary,
	})
	if err != nil {
		return err
	}
	defer writer.Close()

	for _, sample := range samples {
		if err := writer.WriteRecord(sample); err != nil {
			return err
		}
		report.Records++
	}
	samples = nil
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		record, err := next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("reading %s: %w", input, err)
		}
		if err := writer.WriteRecord(record); err != nil {
			return err
		}
		report.Records++
	}

	if err := buffered.Flush(); err != nil {
		return err
	}
	if err := output.Close(); err != nil {
		return err
	}
	if err := os.Rename(partial, params.Output); err != nil {
		return err
	}
	committed = true
	report.OutputSize = writer.Written()

	if done, err := params.EmitJSON(a.stdout, report); done {
		return err
	}
	fmt.Fprintf(a.stdout, "packed %s records from %s into %s: %s -> %s",
		humanize.Comma(int64(report.Records)), report.Input, report.Output,
		humanize.IBytes(uint64(report.InputSize)), humanize.IBytes(uint64(report.OutputSize)))
	if report.DictionarySize > 0 {
		fmt.Fprintf(a.stdout, " (dictionary %s, id %d, trained on %d records)",
			humanize.IBytes(uint64(report.DictionarySize)), report.DictionaryID, report.TrainedOn)
	}
	fmt.Fprintln(a.stdout)
	return nil
}
