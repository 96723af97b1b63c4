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
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// postgresAdapter targets the object-relational engine, whose binary
// blob column type is bytea and whose placeholders are positional
// ($1, $2, ...) rather than "?".
type postgresAdapter struct{}

func NewPostgres() Adapter { return postgresAdapter{} }

func (postgresAdapter) Name() string { return "Pg" }

func (postgresAdapter) Open(dataSource string) (*sqlx.DB, error) {
	return sqlx.Open("postgres", dataSource)
}

func (postgresAdapter) OnConnect(ctx context.Context, db *sqlx.DB) error {
	// Silence notices (e.g. "NOTICE: CREATE TABLE will create implicit
	// sequence") that would otherwise spam stderr during initialize.
	_, err := db.ExecContext(ctx, `SET client_min_messages = WARNING`)
	if err != nil {
		return fmt.Errorf("SET client_min_messages: %w", err)
	}
	return nil
}

func (postgresAdapter) WriteBlock(ctx context.Context, tx *sqlx.Tx, inode int64, block int64, contents []byte) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO extents (inode, block, contents) VALUES ($1, $2, $3)
		ON CONFLICT (inode, block) DO UPDATE SET contents = excluded.contents`,
		inode, block, contents)
	return err
}

func (postgresAdapter) LastInsertedInode(ctx context.Context, tx *sqlx.Tx) (int64, error) {
	var id int64
	row := tx.QueryRowContext(ctx, `SELECT currval(pg_get_serial_sequence('metadata', 'inode'))`)
	if err := row.Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

func (postgresAdapter) DDL(table string) string {
	switch table {
	case "metadata":
		return `CREATE TABLE metadata (
			inode   BIGSERIAL PRIMARY KEY,
			mode    INTEGER NOT NULL,
			uid     INTEGER NOT NULL,
			gid     INTEGER NOT NULL,
			rdev    INTEGER NOT NULL DEFAULT 0,
			links   INTEGER NOT NULL DEFAULT 0,
			inuse   INTEGER NOT NULL DEFAULT 0,
			length  BIGINT NOT NULL DEFAULT 0,
			mtime   BIGINT NOT NULL,
			ctime   BIGINT NOT NULL,
			atime   BIGINT NOT NULL
		)`
	case "path":
		return `CREATE TABLE path (
			parent  BIGINT NULL,
			name    TEXT NOT NULL,
			inode   BIGINT NOT NULL,
			UNIQUE (parent, name)
		)`
	case "extents":
		return `CREATE TABLE extents (
			inode    BIGINT NOT NULL,
			block    BIGINT NOT NULL,
			contents BYTEA NOT NULL,
			UNIQUE (inode, block)
		)`
	default:
		panic("dialect: unknown table " + table)
	}
}

func (postgresAdapter) BlockSize() int64 { return 4096 }

func (postgresAdapter) FlushThreshold() int { return 64 }
