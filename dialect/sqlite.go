// Copyright 2026 The Sqlfuse Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package dialect

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

// sqliteAdapter targets the embedded single-file engine. Embedded
// engines see no network round-trip cost, so they tolerate a larger
// flush threshold before a write-back transaction pays for itself.
type sqliteAdapter struct{}

func NewSQLite() Adapter { return sqliteAdapter{} }

func (sqliteAdapter) Name() string { return "SQLite" }

func (sqliteAdapter) Open(dataSource string) (*sqlx.DB, error) {
	// dataSource is a filesystem path (or ":memory:") per mattn/go-sqlite3.
	return sqlx.Open("sqlite3", dataSource)
}

func (sqliteAdapter) OnConnect(ctx context.Context, db *sqlx.DB) error {
	// Trade durability for throughput: an embedded engine's WAL fsync on
	// every commit would dominate write-back latency otherwise.
	_, err := db.ExecContext(ctx, `PRAGMA synchronous = OFF`)
	if err != nil {
		return fmt.Errorf("PRAGMA synchronous: %w", err)
	}
	_, err = db.ExecContext(ctx, `PRAGMA foreign_keys = ON`)
	if err != nil {
		return fmt.Errorf("PRAGMA foreign_keys: %w", err)
	}
	return nil
}

func (sqliteAdapter) WriteBlock(ctx context.Context, tx *sqlx.Tx, inode int64, block int64, contents []byte) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO extents (inode, block, contents) VALUES (?, ?, ?)
		ON CONFLICT (inode, block) DO UPDATE SET contents = excluded.contents`,
		inode, block, contents)
	return err
}

func (sqliteAdapter) LastInsertedInode(ctx context.Context, tx *sqlx.Tx) (int64, error) {
	row := tx.QueryRowContext(ctx, `SELECT last_insert_rowid()`)
	var id int64
	if err := row.Scan(&id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("last_insert_rowid: no row")
		}
		return 0, err
	}
	return id, nil
}

func (sqliteAdapter) DDL(table string) string {
	switch table {
	case "metadata":
		return `CREATE TABLE metadata (
			inode   INTEGER PRIMARY KEY AUTOINCREMENT,
			mode    INTEGER NOT NULL,
			uid     INTEGER NOT NULL,
			gid     INTEGER NOT NULL,
			rdev    INTEGER NOT NULL DEFAULT 0,
			links   INTEGER NOT NULL DEFAULT 0,
			inuse   INTEGER NOT NULL DEFAULT 0,
			length  INTEGER NOT NULL DEFAULT 0,
			mtime   INTEGER NOT NULL,
			ctime   INTEGER NOT NULL,
			atime   INTEGER NOT NULL
		)`
	case "path":
		return `CREATE TABLE path (
			parent  INTEGER,
			name    TEXT NOT NULL,
			inode   INTEGER NOT NULL,
			UNIQUE (parent, name)
		)`
	case "extents":
		return `CREATE TABLE extents (
			inode    INTEGER NOT NULL,
			block    INTEGER NOT NULL,
			contents BLOB NOT NULL,
			UNIQUE (inode, block)
		)`
	default:
		panic("dialect: unknown table " + table)
	}
}

func (sqliteAdapter) BlockSize() int64 { return 4096 }

func (sqliteAdapter) FlushThreshold() int { return 256 }
