// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sqlitepool

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

// DefaultPoolSize is used when Config.PoolSize is zero or negative.
// The index has one writer and a handful of concurrent searchers.
const DefaultPoolSize = 4

// Config holds the parameters for opening a pool. Path is required.
type Config struct {
	// Path is the database file. The parent directory must exist; the
	// file is created on first use. ":memory:" is rejected because
	// every pooled connection would see a different database.
	Path string

	// PoolSize is the number of connections. See DefaultPoolSize.
	PoolSize int

	// Schema is a SQL script run on every connection after the
	// pragmas. It must be idempotent (CREATE ... IF NOT EXISTS).
	Schema string

	// Logger receives pool open and close messages. Nil discards them.
	Logger *slog.Logger

	// OnConnect runs after Schema for any remaining per-connection
	// setup. An error discards the connection and is returned from
	// Take.
	OnConnect func(conn *sqlite.Conn) error
}

// Pool is a fixed-size set of SQLite connections sharing one database
// file. Pool is safe for concurrent use; the connections it hands out
// are not.
type Pool struct {
	inner  *sqlitex.Pool
	logger *slog.Logger
	path   string
	size   int
}

// Open creates the pool. Connections are prepared lazily on first Take.
func Open(cfg Config) (*Pool, error) {
	switch cfg.Path {
	case "":
		return nil, errors.New("sqlitepool: Path is required")
	case ":memory:":
		return nil, errors.New("sqlitepool: in-memory databases cannot be pooled")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	size := cfg.PoolSize
	if size <= 0 {
		size = DefaultPoolSize
	}

	inner, err := sqlitex.NewPool(cfg.Path, sqlitex.PoolOptions{
		PoolSize: size,
		PrepareConn: func(conn *sqlite.Conn) error {
			return prepareConnection(conn, cfg.Schema, cfg.OnConnect)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("sqlitepool: opening %s: %w", cfg.Path, err)
	}

	logger.Debug("sqlite pool opened", "path", cfg.Path, "pool_size", size)
	return &Pool{inner: inner, logger: logger, path: cfg.Path, size: size}, nil
}

// Size returns the number of connections in the pool.
func (p *Pool) Size() int { return p.size }

// Take borrows a connection, blocking until one is free or ctx is
// done. Every successful Take must be paired with a Put:
//
//	conn, err := pool.Take(ctx)
//	if err != nil {
//	    return err
//	}
//	defer pool.Put(conn)
func (p *Pool) Take(ctx context.Context) (*sqlite.Conn, error) {
	conn, err := p.inner.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("sqlitepool: take: %w", err)
	}
	return conn, nil
}

// Put returns a connection to the pool. Nil is ignored.
func (p *Pool) Put(conn *sqlite.Conn) {
	if conn == nil {
		return
	}
	p.inner.Put(conn)
}

// Read borrows a connection for the duration of fn.
func (p *Pool) Read(ctx context.Context, fn func(conn *sqlite.Conn) error) error {
	conn, err := p.Take(ctx)
	if err != nil {
		return err
	}
	defer p.Put(conn)
	return fn(conn)
}

// Write runs fn inside an IMMEDIATE transaction on a borrowed
// connection. The transaction commits when fn returns nil and rolls
// back otherwise.
func (p *Pool) Write(ctx context.Context, fn func(conn *sqlite.Conn) error) (err error) {
	conn, err := p.Take(ctx)
	if err != nil {
		return err
	}
	defer p.Put(conn)

	endTransaction, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return fmt.Errorf("sqlitepool: begin: %w", err)
	}
	defer endTransaction(&err)
	return fn(conn)
}

// Close closes every connection, waiting for borrowed ones to be put
// back first.
func (p *Pool) Close() error {
	if err := p.inner.Close(); err != nil {
		p.logger.Error("sqlite pool close failed", "path", p.path, "error", err)
		return fmt.Errorf("sqlitepool: closing %s: %w", p.path, err)
	}
	p.logger.Debug("sqlite pool closed", "path", p.path)
	return nil
}

func prepareConnection(conn *sqlite.Conn, schema string, onConnect func(*sqlite.Conn) error) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA cache_size=-16384",
		"PRAGMA temp_store=MEMORY",
	}
	for _, pragma := range pragmas {
		if err := sqlitex.ExecuteTransient(conn, pragma, nil); err != nil {
			return fmt.Errorf("sqlitepool: %s: %w", pragma, err)
		}
	}

	if schema != "" {
		if err := sqlitex.ExecuteScript(conn, schema, nil); err != nil {
			return fmt.Errorf("sqlitepool: schema: %w", err)
		}
	}
	if onConnect != nil {
		if err := onConnect(conn); err != nil {
			return fmt.Errorf("sqlitepool: OnConnect: %w", err)
		}
	}
	return nil
}
