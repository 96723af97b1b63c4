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

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
)

// mysqlAdapter targets the client/server engine with row-level locking
// and real transactions. Every round trip pays network latency, so the
// flush threshold is kept low relative to the embedded backend.
type mysqlAdapter struct{}

func NewMySQL() Adapter { return mysqlAdapter{} }

func (mysqlAdapter) Name() string { return "mysql" }

func (mysqlAdapter) Open(dataSource string) (*sqlx.DB, error) {
	return sqlx.Open("mysql", dataSource)
}

func (mysqlAdapter) OnConnect(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `SET SESSION sql_mode = 'STRICT_ALL_TABLES'`)
	if err != nil {
		return fmt.Errorf("SET sql_mode: %w", err)
	}
	return nil
}

func (mysqlAdapter) WriteBlock(ctx context.Context, tx *sqlx.Tx, inode int64, block int64, contents []byte) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO extents (inode, block, contents) VALUES (?, ?, ?)
		ON DUPLICATE KEY UPDATE contents = VALUES(contents)`,
		inode, block, contents)
	return err
}

func (mysqlAdapter) LastInsertedInode(ctx context.Context, tx *sqlx.Tx) (int64, error) {
	var id int64
	row := tx.QueryRowContext(ctx, `SELECT LAST_INSERT_ID()`)
	if err := row.Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

func (mysqlAdapter) DDL(table string) string {
	switch table {
	case "metadata":
		return `CREATE TABLE metadata (
			inode   BIGINT PRIMARY KEY AUTO_INCREMENT,
			mode    INTEGER NOT NULL,
			uid     INTEGER NOT NULL,
			gid     INTEGER NOT NULL,
			rdev    INTEGER NOT NULL DEFAULT 0,
			links   INTEGER NOT NULL DEFAULT 0,
			inuse   INTEGER NOT NULL DEFAULT 0,
			length  BIGINT NOT NULL DEFAULT 0,
			mtime   INTEGER NOT NULL,
			ctime   INTEGER NOT NULL,
			atime   INTEGER NOT NULL
		) ENGINE=InnoDB`
	case "path":
		return `CREATE TABLE path (
			parent  BIGINT NULL,
			name    VARCHAR(255) NOT NULL,
			inode   BIGINT NOT NULL,
			UNIQUE KEY path_parent_name (parent, name)
		) ENGINE=InnoDB`
	case "extents":
		return `CREATE TABLE extents (
			inode    BIGINT NOT NULL,
			block    BIGINT NOT NULL,
			contents LONGBLOB NOT NULL,
			UNIQUE KEY extents_inode_block (inode, block)
		) ENGINE=InnoDB`
	default:
		panic("dialect: unknown table " + table)
	}
}

func (mysqlAdapter) BlockSize() int64 { return 4096 }

func (mysqlAdapter) FlushThreshold() int { return 64 }
