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

// Package store owns the three on-database tables — metadata, path,
// and extents — and issues almost all SQL against them. blockcache and
// fs call through Store; pathresolve builds its own nested-subquery
// lookup and runs it on Store's handle; dialect supplies per-backend
// DDL and SQL fragments; perm never touches the database.
//
// This mirrors the teacher's layering: fs/inode never talks to GCS
// directly, it goes through a gcs.Bucket; here, fs and blockcache
// never build a SQL string of their own.
package store

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/sqlfuse/sqlfuse/dialect"
	"github.com/sqlfuse/sqlfuse/internal/clock"
)

// RootInode is the well-known inode number of the filesystem root. It
// is never reused and never destroyed.
const RootInode int64 = 1

// rootMode is type directory (0040000) with permission bits 0777,
// subject to masking by the creator's umask at Init time.
const rootMode = 0040777

// Store is the shared handle every other core package is built on.
type Store struct {
	DB      *sqlx.DB
	Dialect dialect.Adapter
	Clock   clock.Clock
}

// Open parses a "dbi:<driver>:<driver-specific>" data source, selects
// the matching dialect.Adapter, and establishes a connection pool.
func Open(ctx context.Context, dataSource string, clk clock.Clock) (*Store, error) {
	adapter, rest, err := dialect.ForDataSource(dataSource)
	if err != nil {
		return nil, err
	}

	db, err := adapter.Open(rest)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", adapter.Name(), err)
	}

	if err := adapter.OnConnect(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("on-connect %s: %w", adapter.Name(), err)
	}

	return &Store{DB: db, Dialect: adapter, Clock: clk}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.DB.Close()
}

// WithTxn runs fn inside BEGIN/COMMIT, rolling back on any error fn
// returns (or panics with) before propagating it. Every multi-row
// mutation in this package goes through here, per spec §5's
// transaction-discipline rule.
func (s *Store) WithTxn(ctx context.Context, fn func(tx *sqlx.Tx) error) (err error) {
	tx, err := s.DB.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				// A failed rollback is logged by the caller's recover chain;
				// here we only have the original panic to propagate.
				panic(fmt.Errorf("panic: %v; additionally, rollback failed: %v", p, rbErr))
			}
			panic(p)
		}
	}()

	if err = fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (additionally, rollback failed: %v)", err, rbErr)
		}
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Init destroys any existing schema, recreates the three tables, and
// inserts the root inode (mode 0040777 masked by umask, links=2) with
// its root path entry. The root rows are inserted in one transaction;
// the drop and create statements run before it, outside any
// transaction.
func (s *Store) Init(ctx context.Context, umask uint32, uid, gid uint32) error {
	for _, table := range dialect.Tables {
		if _, err := s.DB.ExecContext(ctx, "DROP TABLE IF EXISTS "+table); err != nil {
			return fmt.Errorf("drop %s: %w", table, err)
		}
	}
	for i := len(dialect.Tables) - 1; i >= 0; i-- {
		table := dialect.Tables[i]
		if _, err := s.DB.ExecContext(ctx, s.Dialect.DDL(table)); err != nil {
			return fmt.Errorf("create %s: %w", table, err)
		}
	}

	// Only the permission bits are subject to the umask; the type bits
	// (the top octal digits) always survive.
	mode := (rootMode &^ 0777) | ((rootMode &^ umask) & 0777)

	return s.WithTxn(ctx, func(tx *sqlx.Tx) error {
		now := s.Clock.Now().Unix()
		res, err := tx.ExecContext(ctx,
			s.DB.Rebind(`INSERT INTO metadata (inode, mode, uid, gid, rdev, links, inuse, length, mtime, ctime, atime)
				VALUES (?, ?, ?, ?, 0, 2, 0, 0, ?, ?, ?)`),
			RootInode, mode, uid, gid, now, now, now)
		if err != nil {
			return fmt.Errorf("insert root metadata: %w", err)
		}
		if n, _ := res.RowsAffected(); n != 1 {
			return fmt.Errorf("insert root metadata: unexpected rows affected")
		}

		_, err = tx.ExecContext(ctx,
			s.DB.Rebind(`INSERT INTO path (parent, name, inode) VALUES (NULL, '/', ?)`),
			RootInode)
		if err != nil {
			return fmt.Errorf("insert root path: %w", err)
		}
		return nil
	})
}

// CheckSchema probes that the three tables exist and the root row is
// present, refusing to let the filesystem mount otherwise.
func (s *Store) CheckSchema(ctx context.Context) error {
	for _, table := range dialect.Tables {
		var dummy int
		err := s.DB.GetContext(ctx, &dummy, "SELECT 1 FROM "+table+" LIMIT 1")
		if err != nil && !isNoRows(err) {
			return fmt.Errorf("schema check: table %s: %w", table, err)
		}
	}

	var count int
	err := s.DB.GetContext(ctx, &count,
		s.DB.Rebind("SELECT COUNT(*) FROM metadata WHERE inode = ?"), RootInode)
	if err != nil {
		return fmt.Errorf("schema check: root row: %w", err)
	}
	if count != 1 {
		return fmt.Errorf("schema check: root inode %d missing", RootInode)
	}
	return nil
}
