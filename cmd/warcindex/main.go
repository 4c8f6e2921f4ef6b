// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Command warcindex decodes megawarc archives and indexes their pages
// for full-text search.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/fairuse/warcindex/cmd/warcindex/cli"
	"github.com/fairuse/warcindex/lib/version"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes one invocation and returns the process exit status.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	// --version is honoured anywhere before a "--" terminator.
	for _, argument := range args {
		if argument == "--" {
			break
		}
		if argument == "--version" {
			fmt.Fprintf(stdout, "warcindex %s\n", version.Full())
			return cli.ExitSuccess
		}
	}

	err := rootCommand(&app{stdout: stdout, stderr: stderr}).Execute(ctx, args)
	code, report := cli.Code(err)
	if report {
		fmt.Fprintf(stderr, "error: %v\n", err)
	}
	return code
}

func rootCommand(a *app) *cli.Command {
	return &cli.Command{
		Name: "warcindex",
		Description: `warcindex: full-text indexing for megawarc archives.

Decodes zstd-compressed WARC files whose dictionary is embedded in the
archive, and feeds the pages they hold to a search index.`,
		Output: a.stderr,
		Subcommands: []*cli.Command{
			indexCommand(a),
			searchCommand(a),
			runsCommand(a),
			inspectCommand(a),
			packCommand(a),
			{
				Name:    "version",
				Summary: "Print version information",
				Run: func(context.Context, []string) error {
					fmt.Fprintf(a.stdout, "warcindex %s\n", version.Full())
					return nil
				},
			},
		},
	}
}
