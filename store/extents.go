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

package store

import (
	"context"

	"github.com/jmoiron/sqlx"
)

// ExtentRow is one fixed-size (or short, for a tail/hole) contiguous
// byte range of a file.
type ExtentRow struct {
	Inode    int64  `db:"inode"`
	Block    int64  `db:"block"`
	Contents []byte `db:"contents"`
}

// WriteBlock upserts one extent row inside tx, delegating the
// dialect-specific upsert SQL to the Dialect Adapter.
func (s *Store) WriteBlock(ctx context.Context, tx *sqlx.Tx, inode, block int64, contents []byte) error {
	return s.Dialect.WriteBlock(ctx, tx, inode, block, contents)
}

// ExtentsInRange returns every extent row for inode with block indices
// in [first, last], ordered by block ascending. Absent indices in that
// range are holes; the caller reconstructs them as zero bytes.
func (s *Store) ExtentsInRange(ctx context.Context, inode, first, last int64) ([]ExtentRow, error) {
	var rows []ExtentRow
	err := s.DB.SelectContext(ctx, &rows, s.DB.Rebind(`
		SELECT inode, block, contents FROM extents
		WHERE inode = ? AND block BETWEEN ? AND ?
		ORDER BY block`), inode, first, last)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// GetExtent fetches one extent row, or sql.ErrNoRows if the block is a
// hole.
func (s *Store) GetExtent(ctx context.Context, inode, block int64) (*ExtentRow, error) {
	var row ExtentRow
	err := s.DB.GetContext(ctx, &row, s.DB.Rebind(`
		SELECT inode, block, contents FROM extents WHERE inode = ? AND block = ?`), inode, block)
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// DeleteExtentsAbove deletes every extent row for inode whose block
// index is greater than lastBlock, inside tx. Used by truncate.
func (s *Store) DeleteExtentsAbove(ctx context.Context, tx *sqlx.Tx, inode, lastBlock int64) error {
	_, err := tx.ExecContext(ctx,
		s.DB.Rebind(`DELETE FROM extents WHERE inode = ? AND block > ?`), inode, lastBlock)
	return err
}

// TrimExtent shortens the tail extent at lastBlock to the first
// tailLen bytes, inside tx. If the block has no row (a hole at the new
// end of file) this is a no-op: a hole needs no trimming.
func (s *Store) TrimExtent(ctx context.Context, tx *sqlx.Tx, inode, lastBlock int64, tailLen int) error {
	existing, err := s.getExtentTx(ctx, tx, inode, lastBlock)
	if err != nil {
		if isNoRows(err) {
			return nil
		}
		return err
	}
	if len(existing.Contents) <= tailLen {
		return nil
	}
	_, err = tx.ExecContext(ctx,
		s.DB.Rebind(`UPDATE extents SET contents = ? WHERE inode = ? AND block = ?`),
		existing.Contents[:tailLen], inode, lastBlock)
	return err
}

func (s *Store) getExtentTx(ctx context.Context, tx *sqlx.Tx, inode, block int64) (*ExtentRow, error) {
	var row ExtentRow
	err := tx.GetContext(ctx, &row, s.DB.Rebind(`
		SELECT inode, block, contents FROM extents WHERE inode = ? AND block = ?`), inode, block)
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// DeleteAllExtents removes every extent row for inode, inside tx. It
// is separate from DeleteInodeIfOrphan's own extent cleanup; nothing
// in the module calls it at present.
func (s *Store) DeleteAllExtents(ctx context.Context, tx *sqlx.Tx, inode int64) error {
	_, err := tx.ExecContext(ctx, s.DB.Rebind(`DELETE FROM extents WHERE inode = ?`), inode)
	return err
}
