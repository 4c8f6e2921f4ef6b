// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package sqlitepool is the SQLite connection pool behind the
// persistent search index.
//
// It wraps zombiezen.com/go/sqlite's sqlitex.Pool and prepares every
// connection the same way: WAL journaling so searches never block the
// ingest writer, synchronous=NORMAL, a five second busy timeout, and
// an idempotent schema script. Callers write plain SQL with
// sqlitex.Execute; [Pool.Read] and [Pool.Write] cover the common
// borrow-and-return and single-transaction shapes.
//
//	pool, err := sqlitepool.Open(sqlitepool.Config{
//	    Path:   "/var/lib/warcindex/index.db",
//	    Schema: schema,
//	})
//	if err != nil {
//	    return err
//	}
//	defer pool.Close()
//
//	err = pool.Write(ctx, func(conn *sqlite.Conn) error {
//	    return sqlitex.Execute(conn, "INSERT INTO runs ...", nil)
//	})
package sqlitepool
