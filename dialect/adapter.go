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

// Package dialect hides the differences between the embedded,
// client/server, and object-relational SQL engines sqlfuse can run on
// behind one narrow capability set, mirroring the way the teacher's
// gcs.Bucket interface hides storage-backend differences from the rest
// of the filesystem (fs/inode talks to a gcs.Bucket; here the store
// package talks to a dialect.Adapter).
package dialect

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

// Adapter is the capability set every backend must provide. It never
// leaks driver-specific types past its own boundary: callers pass and
// receive *sqlx.DB/*sqlx.Tx, plain SQL text and args.
type Adapter interface {
	// Name is the driver token recognized in a "dbi:<driver>:..." DSN.
	Name() string

	// Open establishes a connection pool for the driver-specific portion
	// of the DSN (the part after "dbi:<driver>:").
	Open(dataSource string) (*sqlx.DB, error)

	// OnConnect performs per-backend session setup, e.g. disabling
	// synchronous commit on an embedded engine or silencing notices on
	// an object-relational one.
	OnConnect(ctx context.Context, db *sqlx.DB) error

	// WriteBlock upserts one extent row inside tx. Implementations
	// differ: some use INSERT ... ON DUPLICATE KEY UPDATE / ON CONFLICT,
	// others must try an UPDATE then fall back to INSERT.
	WriteBlock(ctx context.Context, tx *sqlx.Tx, inode int64, block int64, contents []byte) error

	// LastInsertedInode returns the primary key most recently inserted
	// into metadata by tx, using the backend's native mechanism.
	LastInsertedInode(ctx context.Context, tx *sqlx.Tx) (int64, error)

	// DDL returns the CREATE TABLE text for one of "metadata", "path",
	// "extents".
	DDL(table string) string

	// BlockSize is the fixed extent width used for this backend.
	BlockSize() int64

	// FlushThreshold is the number of buffered blocks per inode that
	// forces a write-back.
	FlushThreshold() int
}

// Tables in dependency order, for DDL and drop-if-exists purposes.
var Tables = []string{"extents", "path", "metadata"}

// ParseDataSource splits a "dbi:<driver>:<driver-specific>" string into
// the driver token and the remainder, passed through unchanged to the
// backend.
func ParseDataSource(dsn string) (driver, rest string, err error) {
	const prefix = "dbi:"
	if !strings.HasPrefix(dsn, prefix) {
		return "", "", fmt.Errorf("data source %q: missing %q prefix", dsn, prefix)
	}
	body := dsn[len(prefix):]
	parts := strings.SplitN(body, ":", 2)
	if len(parts) != 2 || parts[0] == "" {
		return "", "", fmt.Errorf("data source %q: expected dbi:<driver>:<driver-specific>", dsn)
	}
	return parts[0], parts[1], nil
}
