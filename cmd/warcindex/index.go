// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"

	"github.com/spf13/pflag"

	"github.com/fairuse/warcindex/cmd/warcindex/cli"
	"github.com/fairuse/warcindex/lib/clock"
	"github.com/fairuse/warcindex/lib/config"
	"github.com/fairuse/warcindex/lib/extract"
	"github.com/fairuse/warcindex/lib/ingest"
	"github.com/fairuse/warcindex/lib/searchindex"
)

type indexParams struct {
	configParams
	cli.JSONOutput
	KeepGoing         bool   `flag:"keep-going" desc:"continue with the next archive when one fails"`
	BatchSize         int    `flag:"batch-size" desc:"commit every N documents, 0 once per archive (default from config)" default:"-1"`
	OnMalformedHeader string `flag:"on-malformed-header" desc:"abort or resync (default from config)"`
	IndexBackend      string `flag:"index-backend" desc:"memory or sqlite (default from config)"`
	IndexPath         string `flag:"index-path" desc:"sqlite database file (default from config)"`
	Verbose           bool   `flag:"verbose,v" desc:"log at debug level"`
}

// override applies the flags that were given over the file values.
func (params *indexParams) override(cfg *config.Config) {
	if params.BatchSize >= 0 {
		cfg.Pipeline.BatchSize = params.BatchSize
	}
	if params.OnMalformedHeader != "" {
		cfg.Pipeline.OnMalformedHeader = params.OnMalformedHeader
	}
	if params.IndexBackend != "" {
		cfg.Index.Backend = params.IndexBackend
	}
	if params.IndexPath != "" {
		cfg.Index.Path = params.IndexPath
	}
}

func indexCommand(a *app) *cli.Command {
	var params indexParams
	return &cli.Command{
		Name:    "index",
		Summary: "Index the pages of one or more megawarc archives",
		Description: `Decode each ARCHIVE in order and add its HTTP responses to the
configured index, committing every --batch-size documents.

A failing archive leaves the index as of its last commit. The run
summary is printed for every archive, including failed ones, and
recorded in the index's run ledger.`,
		Usage: "warcindex index [flags] ARCHIVE...",
		Examples: []cli.Example{
			{
				Description: "Index a crawl, skipping over malformed records",
				Command:     "warcindex index --on-malformed-header resync crawl-00042.megawarc.warc.zst",
			},
			{
				Description: "Index a batch of files, continuing past broken ones",
				Command:     "warcindex index --keep-going --json archives/*.warc.zst",
			},
		},
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("index", &params)
		},
		Run: func(ctx context.Context, args []string) error {
			return a.runIndex(ctx, &params, args)
		},
	}
}

func (a *app) runIndex(ctx context.Context, params *indexParams, archives []string) error {
	if len(archives) == 0 {
		return cli.Usagef("index needs at least one ARCHIVE")
	}
	cfg, err := a.loadConfig(params.configParams, params.override)
	if err != nil {
		return err
	}
	logger := a.logger(cfg, params.Verbose)

	policy, err := ingest.ParseMalformedPolicy(cfg.Pipeline.OnMalformedHeader)
	if err != nil {
		return cli.Usage(err)
	}
	filter, err := ingest.NewFilter(ingest.FilterOptions{
		RecordTypes:    cfg.Filter.RecordTypes,
		TargetPrefixes: cfg.Filter.TargetPrefixes,
		TargetPattern:  cfg.Filter.TargetPattern,
		HTTPOnly:       cfg.Filter.HTTPOnly,
	})
	if err != nil {
		return cli.Usage(err)
	}

	if err := cfg.EnsureIndexDir(); err != nil {
		return err
	}
	sink, err := searchindex.Open(ctx, searchindex.Config{
		Backend:  cfg.Index.Backend,
		Path:     cfg.Index.Path,
		PoolSize: cfg.Index.PoolSize,
		Logger:   logger,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := sink.Close(); err != nil {
			logger.Error("closing index failed", "error", err)
		}
	}()

	summaries, runErr := ingest.RunAll(ctx, archives, ingest.Options{
		Sink:              sink,
		Logger:            logger,
		Clock:             clock.Real(),
		MaxDictionarySize: cfg.Pipeline.MaxDictionaryBytes,
		MaxBodyBytes:      cfg.Pipeline.MaxBodyBytes,
		Extractor:         extract.Extractor{MaxBodyText: cfg.Pipeline.MaxBodyText},
		MalformedHeaders:  policy,
		BatchSize:         cfg.Pipeline.BatchSize,
		Filter:            filter,
		ProgressInterval:  cfg.Pipeline.ProgressInterval,
		MaxStackBytes:     cfg.Worker.MaxStackBytes,
	}, params.KeepGoing)

	if done, err := params.EmitJSON(a.stdout, summaries); done {
		if err != nil {
			return err
		}
	} else {
		writeSummaries(a.stderr, summaries)
	}
	return runErr
}
