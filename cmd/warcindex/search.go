// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/fairuse/warcindex/cmd/warcindex/cli"
	"github.com/fairuse/warcindex/lib/config"
	"github.com/fairuse/warcindex/lib/searchindex"
)

type searchParams struct {
	configParams
	cli.JSONOutput
	Limit     int    `flag:"limit,n" desc:"maximum number of hits, 0 for all" default:"10"`
	Raw       bool   `flag:"raw" desc:"pass QUERY to the index as an FTS5 expression"`
	IndexPath string `flag:"index-path" desc:"sqlite database file (default from config)"`
}

func searchCommand(a *app) *cli.Command {
	var params searchParams
	return &cli.Command{
		Name:    "search",
		Summary: "Search the index",
		Description: `Search the sqlite index for pages matching any word of QUERY,
ranked by BM25 with title matches weighted above body matches.`,
		Usage: "warcindex search [flags] QUERY...",
		Examples: []cli.Example{
			{
				Description: "Top five pages about tide tables",
				Command:     "warcindex search -n 5 tide tables",
			},
			{
				Description: "Pages mentioning both words",
				Command:     `warcindex search --raw 'harbor AND "tide table"'`,
			},
		},
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("search", &params)
		},
		Run: func(ctx context.Context, args []string) error {
			return a.runSearch(ctx, &params, args)
		},
	}
}

func (a *app) runSearch(ctx context.Context, params *searchParams, args []string) error {
	if len(args) == 0 {
		return cli.Usagef("search needs a QUERY")
	}
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
	logger := a.logger(cfg, false)

	query := strings.Join(args, " ")
	if !params.Raw {
		query = searchindex.PlainQuery(query)
		if query == "" {
			return cli.Usagef("query %q has no searchable words", strings.Join(args, " "))
		}
	}

	index, err := openIndex(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer index.Close()

	hits, err := index.Search(ctx, query, params.Limit)
	if errors.Is(err, searchindex.ErrInvalidQuery) {
		return cli.Usage(err)
	}
	if err != nil {
		return err
	}

	if done, err := params.EmitJSON(a.stdout, hits); done {
		return err
	}
	if len(hits) == 0 {
		fmt.Fprintln(a.stderr, "no matches")
		return nil
	}
	for i, hit := range hits {
		document := hit.Document
		fmt.Fprintf(a.stdout, "%2d. %6.3f  %s\n", i+1, hit.Score, document.TargetURI)
		if document.Title != "" && document.Title != document.TargetURI {
			fmt.Fprintf(a.stdout, "    %s\n", document.Title)
		}
		if !document.Date.IsZero() {
			fmt.Fprintf(a.stdout, "    captured %s", document.Date.UTC().Format(time.DateTime))
			if archive := document.Metadata["archive"]; archive != "" {
				fmt.Fprintf(a.stdout, " in %s", archive)
			}
			fmt.Fprintln(a.stdout)
		}
	}
	return nil
}
