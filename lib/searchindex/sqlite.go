// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package searchindex

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/fairuse/warcindex/lib/codec"
	"github.com/fairuse/warcindex/lib/sqlitepool"
)

// The FTS table is contentless: it holds the inverted index only, and
// stored fields live in documents, joined on rowid.
const schema = `
CREATE TABLE IF NOT EXISTS documents (
	rowid      INTEGER PRIMARY KEY,
	id         TEXT NOT NULL UNIQUE,
	target_uri TEXT NOT NULL,
	record_id  TEXT NOT NULL,
	date       INTEGER,
	title      TEXT NOT NULL,
	metadata   BLOB
);

CREATE VIRTUAL TABLE IF NOT EXISTS documents_fts USING fts5(
	title,
	body,
	content = '',
	tokenize = 'unicode61 remove_diacritics 2'
);

CREATE TABLE IF NOT EXISTS runs (
	run_id      TEXT PRIMARY KEY,
	archive     TEXT NOT NULL,
	status      TEXT NOT NULL,
	started_at  INTEGER NOT NULL,
	indexed     INTEGER NOT NULL,
	summary     BLOB NOT NULL
);

CREATE INDEX IF NOT EXISTS runs_started_at ON runs (started_at);
`

// errDiscarded rolls back the pending transaction.
var errDiscarded = errors.New("searchindex: batch discarded")

// SQLite is a persistent index using SQLite FTS5. Each batch between
// commits is one IMMEDIATE transaction on a connection held for the
// batch's lifetime; searches run on other pooled connections and see
// the last committed snapshot.
type SQLite struct {
	pool   *sqlitepool.Pool
	logger *slog.Logger

	mu             sync.Mutex
	writer         *sqlite.Conn
	endTransaction func(*error)
	pending        int
	closed         bool
}

var (
	_ Sink        = (*SQLite)(nil)
	_ RunRecorder = (*SQLite)(nil)
)

// OpenSQLite opens or creates the index database at config.Path.
func OpenSQLite(ctx context.Context, config Config) (*SQLite, error) {
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	poolSize := max(config.PoolSize, 2)

	pool, err := sqlitepool.Open(sqlitepool.Config{
		Path:     config.Path,
		PoolSize: poolSize,
		Schema:   schema,
		Logger:   logger,
	})
	if err != nil {
		return nil, fmt.Errorf("searchindex: %w", err)
	}

	// Prepare one connection now so a broken database fails here
	// rather than on the first Add.
	if err := pool.Read(ctx, func(*sqlite.Conn) error { return nil }); err != nil {
		pool.Close()
		return nil, fmt.Errorf("searchindex: %w", err)
	}

	return &SQLite{pool: pool, logger: logger}, nil
}

// begin starts the batch transaction if none is open. Callers hold mu.
func (index *SQLite) begin(ctx context.Context) error {
	if index.writer != nil {
		return nil
	}
	conn, err := index.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("searchindex: %w", err)
	}
	endTransaction, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		index.pool.Put(conn)
		return fmt.Errorf("searchindex: begin batch: %w", err)
	}
	index.writer = conn
	index.endTransaction = endTransaction
	return nil
}

// finish ends the batch with *errp deciding commit or rollback, and
// returns the connection. Callers hold mu.
func (index *SQLite) finish(errp *error) {
	index.endTransaction(errp)
	index.pool.Put(index.writer)
	index.writer = nil
	index.endTransaction = nil
	index.pending = 0
}

func (index *SQLite) Add(ctx context.Context, document Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var metadata []byte
	if len(document.Metadata) > 0 {
		var err error
		metadata, err = codec.Marshal(document.Metadata)
		if err != nil {
			return fmt.Errorf("searchindex: encoding metadata for %s: %w", document.ID, err)
		}
	}
	var date any
	if !document.Date.IsZero() {
		date = document.Date.UnixNano()
	}

	index.mu.Lock()
	defer index.mu.Unlock()
	if index.closed {
		return ErrClosed
	}
	if err := index.begin(ctx); err != nil {
		return err
	}
	if err := index.insert(document, date, metadata); err != nil {
		// A batch with nothing in it must not keep holding the write
		// lock: callers only Commit or Discard batches they added to.
		if index.pending == 0 {
			index.discardLocked()
		}
		return err
	}
	index.pending++
	return nil
}

// insert writes one document inside a savepoint, so a failed Add
// leaves the batch as it was. Callers hold mu.
func (index *SQLite) insert(document Document, date any, metadata []byte) (err error) {
	conn := index.writer
	defer sqlitex.Save(conn)(&err)

	err = sqlitex.Execute(conn, `
		INSERT INTO documents (id, target_uri, record_id, date, title, metadata)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO NOTHING`, &sqlitex.ExecOptions{
		Args: []any{document.ID, document.TargetURI, document.RecordID, date, document.Title, metadata},
	})
	if err != nil {
		return fmt.Errorf("searchindex: inserting %s: %w", document.ID, err)
	}
	if conn.Changes() == 0 {
		return fmt.Errorf("%w: %s", ErrDuplicate, document.ID)
	}
	rowid := conn.LastInsertRowID()

	err = sqlitex.Execute(conn, `INSERT INTO documents_fts (rowid, title, body) VALUES (?, ?, ?)`,
		&sqlitex.ExecOptions{Args: []any{rowid, document.Title, document.Body}})
	if err != nil {
		return fmt.Errorf("searchindex: indexing %s: %w", document.ID, err)
	}
	return nil
}

func (index *SQLite) Commit(ctx context.Context) error {
	index.mu.Lock()
	defer index.mu.Unlock()
	if index.closed {
		return ErrClosed
	}
	if index.writer == nil {
		return nil
	}
	pending := index.pending
	var err error
	index.finish(&err)
	if err != nil {
		return fmt.Errorf("searchindex: commit: %w", err)
	}
	index.logger.Debug("index batch committed", "documents", pending)
	return nil
}

func (index *SQLite) Discard(ctx context.Context) error {
	index.mu.Lock()
	defer index.mu.Unlock()
	if index.closed {
		return ErrClosed
	}
	index.discardLocked()
	return nil
}

func (index *SQLite) discardLocked() {
	if index.writer == nil {
		return
	}
	pending := index.pending
	err := errDiscarded
	index.finish(&err)
	index.logger.Debug("index batch discarded", "documents", pending)
}

// Search runs query as an FTS5 match expression over committed
// documents. A bare word list matches documents containing all words.
// A limit of zero or less returns every match.
func (index *SQLite) Search(ctx context.Context, query string, limit int) ([]Hit, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: empty query", ErrInvalidQuery)
	}
	if limit <= 0 {
		limit = -1
	}
	if index.isClosed() {
		return nil, ErrClosed
	}

	conn, err := index.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("searchindex: %w", err)
	}
	defer index.pool.Put(conn)

	var hits []Hit
	var decodeErr error
	err = sqlitex.Execute(conn, `
		-- Column weights are TitleWeight and BodyWeight.
		SELECT d.id, d.target_uri, d.record_id, d.date, d.title, d.metadata, ranked.score
		FROM (
			SELECT rowid, bm25(documents_fts, 3.0, 1.0) AS score
			FROM documents_fts
			WHERE documents_fts MATCH ?
			ORDER BY score, rowid
			LIMIT ?
		) AS ranked
		JOIN documents AS d ON d.rowid = ranked.rowid
		ORDER BY ranked.score, d.rowid`, &sqlitex.ExecOptions{
		Args: []any{query, limit},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			stored := StoredDocument{
				ID:        stmt.ColumnText(0),
				TargetURI: stmt.ColumnText(1),
				RecordID:  stmt.ColumnText(2),
				Title:     stmt.ColumnText(4),
			}
			if stmt.ColumnType(3) != sqlite.TypeNull {
				stored.Date = time.Unix(0, stmt.ColumnInt64(3)).UTC()
			}
			if length := stmt.ColumnLen(5); length > 0 {
				blob := make([]byte, length)
				stmt.ColumnBytes(5, blob)
				if err := codec.Unmarshal(blob, &stored.Metadata); err != nil {
					decodeErr = fmt.Errorf("searchindex: decoding metadata for %s: %w", stored.ID, err)
					return decodeErr
				}
			}
			// bm25() is more negative for better matches.
			hits = append(hits, Hit{Score: -stmt.ColumnFloat(6), Document: stored})
			return nil
		},
	})
	switch {
	case decodeErr != nil:
		return nil, decodeErr
	case err == nil:
		return hits, nil
	case ctx.Err() != nil:
		return nil, ctx.Err()
	case sqlite.ErrCode(err) == sqlite.ResultError:
		// FTS5 reports syntax errors and unknown column filters as
		// plain SQLITE_ERROR.
		return nil, fmt.Errorf("%w: %v", ErrInvalidQuery, err)
	default:
		return nil, fmt.Errorf("searchindex: search: %w", err)
	}
}

// Len returns the number of committed documents.
func (index *SQLite) Len(ctx context.Context) (int64, error) {
	var count int64
	err := index.pool.Read(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn, `SELECT count(*) FROM documents`, &sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				count = stmt.ColumnInt64(0)
				return nil
			},
		})
	})
	if err != nil {
		return 0, fmt.Errorf("searchindex: count: %w", err)
	}
	return count, nil
}

func (index *SQLite) RecordRun(ctx context.Context, run RunRecord) error {
	if index.isClosed() {
		return ErrClosed
	}
	summary, err := codec.Marshal(run)
	if err != nil {
		return fmt.Errorf("searchindex: encoding run %s: %w", run.RunID, err)
	}
	err = index.pool.Write(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn, `
			INSERT INTO runs (run_id, archive, status, started_at, indexed, summary)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT (run_id) DO UPDATE SET
				status = excluded.status,
				indexed = excluded.indexed,
				summary = excluded.summary`, &sqlitex.ExecOptions{
			Args: []any{run.RunID, run.Archive, run.Status, run.StartedAt.UnixNano(), int64(run.Indexed), summary},
		})
	})
	if err != nil {
		return fmt.Errorf("searchindex: recording run %s: %w", run.RunID, err)
	}
	return nil
}

func (index *SQLite) Runs(ctx context.Context, limit int) ([]RunRecord, error) {
	if index.isClosed() {
		return nil, ErrClosed
	}
	if limit <= 0 {
		limit = -1
	}
	var runs []RunRecord
	err := index.pool.Read(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn, `SELECT summary FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`,
			&sqlitex.ExecOptions{
				Args: []any{limit},
				ResultFunc: func(stmt *sqlite.Stmt) error {
					blob := make([]byte, stmt.ColumnLen(0))
					stmt.ColumnBytes(0, blob)
					var run RunRecord
					if err := codec.Unmarshal(blob, &run); err != nil {
						return fmt.Errorf("decoding run summary: %w", err)
					}
					runs = append(runs, run)
					return nil
				},
			})
	})
	if err != nil {
		return nil, fmt.Errorf("searchindex: listing runs: %w", err)
	}
	return runs, nil
}

func (index *SQLite) isClosed() bool {
	index.mu.Lock()
	defer index.mu.Unlock()
	return index.closed
}

// Close rolls back any pending batch and closes the database.
func (index *SQLite) Close() error {
	index.mu.Lock()
	if index.closed {
		index.mu.Unlock()
		return nil
	}
	index.discardLocked()
	index.closed = true
	index.mu.Unlock()
	return index.pool.Close()
}
