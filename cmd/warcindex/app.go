// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"

	"github.com/fairuse/warcindex/cmd/warcindex/cli"
	"github.com/fairuse/warcindex/lib/config"
	"github.com/fairuse/warcindex/lib/searchindex"
)

// app carries the process streams to every command.
type app struct {
	stdout io.Writer
	stderr io.Writer
}

// configParams is embedded by every command that reads the
// configuration file.
type configParams struct {
	Config string `flag:"config,c" desc:"configuration file (default $WARCINDEX_CONFIG, then built-in defaults)"`
}

// loadConfig resolves the configuration and validates it. Every
// failure is a usage error.
func (a *app) loadConfig(params configParams, override func(*config.Config)) (*config.Config, error) {
	cfg, err := config.Resolve(params.Config)
	if err != nil {
		return nil, cli.Usage(err)
	}
	if override != nil {
		override(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, cli.Usage(fmt.Errorf("invalid configuration:\n%w", err))
	}
	return cfg, nil
}

func (a *app) logger(cfg *config.Config, verbose bool) *slog.Logger {
	// Validate has already accepted the level.
	level, _ := cfg.Logging.SlogLevel()
	if verbose {
		level = slog.LevelDebug
	}
	return cli.NewLogger(a.stderr, level, cfg.Logging.Format)
}

// openIndex opens an existing sqlite index for reading.
func openIndex(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*searchindex.SQLite, error) {
	if cfg.Index.Backend != searchindex.BackendSQLite {
		return nil, cli.Usagef("index.backend is %q: only the sqlite index outlives the run that built it", cfg.Index.Backend)
	}
	if _, err := os.Stat(cfg.Index.Path); errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("no index at %s; build one with 'warcindex index'", cfg.Index.Path)
	}
	return searchindex.OpenSQLite(ctx, searchindex.Config{
		Backend:  searchindex.BackendSQLite,
		Path:     cfg.Index.Path,
		PoolSize: cfg.Index.PoolSize,
		Logger:   logger,
	})
}
