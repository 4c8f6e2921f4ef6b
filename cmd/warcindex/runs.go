// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/pflag"

	"github.com/fairuse/warcindex/cmd/warcindex/cli"
	"github.com/fairuse/warcindex/lib/config"
	"github.com/fairuse/warcindex/lib/searchindex"
)

type runsParams struct {
	configParams
	cli.JSONOutput
	Limit     int    `flag:"limit,n" desc:"number of runs to show, 0 for all" default:"20"`
	IndexPath string `flag:"index-path" desc:"sqlite database file (default from config)"`
}

func runsCommand(a *app) *cli.Command {
	var params runsParams
	return &cli.Command{
		Name:    "runs",
		Summary: "List past indexing runs, newest first",
		Usage:   "warcindex runs [flags]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("runs", &params)
		},
		Run: func(ctx context.Context, args []string) error {
			if len(args) > 0 {
				return cli.Usagef("runs takes no arguments, got %q", args)
			}
			return a.runRuns(ctx, &params)
		},
	}
}

func (a *app) runRuns(ctx context.Context, params *runsParams) error {
	if params.Limit < 0 {
		return cli.Usagef("--limit must not be negative, got %d", params.Limit)
	}
	cfg, err := a.loadConfig(params.configParams, func(cfg *config.Config) {
		if params.IndexPath != "" {
			cfg.Index.Backend = searchindex.BackendSQLite
			cfg.Index.Path = params.IndexPath
		}
	})
	if err != nil {
		return err
	}

	index, err := openIndex(ctx, cfg, a.logger(cfg, false))
	if err != nil {
		return err
	}
	defer index.Close()

	runs, err := index.Runs(ctx, params.Limit)
	if err != nil {
		return err
	}
	if done, err := params.EmitJSON(a.stdout, runs); done {
		return err
	}

	table := tabwriter.NewWriter(a.stdout, 2, 0, 2, ' ', 0)
	fmt.Fprintln(table, "STARTED\tSTATUS\tSEEN\tINDEXED\tDURATION\tARCHIVE")
	for _, run := range runs {
		fmt.Fprintf(table, "%s\t%s\t%s\t%s\t%s\t%s\n",
			run.StartedAt.UTC().Format(time.DateTime),
			run.Status,
			humanize.Comma(int64(run.TotalSeen)),
			humanize.Comma(int64(run.Indexed)),
			run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond),
			run.Archive,
		)
	}
	return table.Flush()
}
