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
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

// PathRow is one directory entry: a (parent, name) -> inode mapping. A
// hard link is simply a second row with the same inode.
type PathRow struct {
	Parent *int64 `db:"parent"`
	Name   string `db:"name"`
	Inode  int64  `db:"inode"`
}

// SanitizeName replaces '/' in a path component with '_' before it is
// ever inserted, per spec §3's path table definition.
func SanitizeName(name string) string {
	return strings.ReplaceAll(name, "/", "_")
}

// InsertPath inserts one (parent, name) -> inode row, inside tx.
func (s *Store) InsertPath(ctx context.Context, tx *sqlx.Tx, parent *int64, name string, inode int64) error {
	_, err := tx.ExecContext(ctx,
		s.DB.Rebind(`INSERT INTO path (parent, name, inode) VALUES (?, ?, ?)`),
		parent, SanitizeName(name), inode)
	if err != nil {
		return fmt.Errorf("insert path %v/%s: %w", parent, name, err)
	}
	return nil
}

// DeletePath removes the (parent, name) row, inside tx. Reports
// whether a row was actually removed.
func (s *Store) DeletePath(ctx context.Context, tx *sqlx.Tx, parent int64, name string) (bool, error) {
	res, err := tx.ExecContext(ctx,
		s.DB.Rebind(`DELETE FROM path WHERE parent = ? AND name = ?`), parent, SanitizeName(name))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// LookupChild resolves one path component: the entry named name inside
// directory parent. Returns sql.ErrNoRows (via errors.Is) if absent.
func (s *Store) LookupChild(ctx context.Context, parent int64, name string) (*PathRow, error) {
	var row PathRow
	err := s.DB.GetContext(ctx, &row,
		s.DB.Rebind(`SELECT parent, name, inode FROM path WHERE parent = ? AND name = ?`),
		parent, SanitizeName(name))
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// Children returns every path row whose parent is the given directory
// inode, ordered by name. getdir composes "." and ".." onto this list.
func (s *Store) Children(ctx context.Context, parent int64) ([]PathRow, error) {
	var rows []PathRow
	err := s.DB.SelectContext(ctx, &rows,
		s.DB.Rebind(`SELECT parent, name, inode FROM path WHERE parent = ? ORDER BY name`), parent)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// CountChildDirectories counts how many children of parent are
// themselves directories, for the links-count invariant (I4).
func (s *Store) CountChildDirectories(ctx context.Context, parent int64) (int64, error) {
	var count int64
	err := s.DB.GetContext(ctx, &count, s.DB.Rebind(`
		SELECT COUNT(*) FROM path p
		JOIN metadata m ON m.inode = p.inode
		WHERE p.parent = ? AND (m.mode & ?) = ?`),
		parent, int64(ModeTypeMask), int64(ModeDirectory))
	return count, err
}

// CountChildren counts every entry of directory parent, for the
// rmdir "is it empty" check.
func (s *Store) CountChildren(ctx context.Context, parent int64) (int64, error) {
	var count int64
	err := s.DB.GetContext(ctx, &count, s.DB.Rebind(`SELECT COUNT(*) FROM path WHERE parent = ?`), parent)
	return count, err
}

// AnyPathForInode returns one (parent, name) entry referencing inode,
// used to recover a display name for an inode that has hard links (and
// as the fallback name source for inode2paths-style diagnostics). Spec
// §9 Open Question (b) notes the source lacks an index on path.inode
// for this query; this function and PathsForInode below run exactly
// that query, so callers mounting at scale should add one.
func (s *Store) AnyPathForInode(ctx context.Context, inode int64) (*PathRow, error) {
	var row PathRow
	err := s.DB.GetContext(ctx, &row,
		s.DB.Rebind(`SELECT parent, name, inode FROM path WHERE inode = ? LIMIT 1`), inode)
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// ParentOf returns the parent inode of the single path entry naming
// inode (directories have exactly one such entry), or nil for the root
// inode, which has none.
func (s *Store) ParentOf(ctx context.Context, inode int64) (*int64, error) {
	if inode == RootInode {
		return nil, nil
	}
	var parent *int64
	err := s.DB.GetContext(ctx, &parent,
		s.DB.Rebind(`SELECT parent FROM path WHERE inode = ? LIMIT 1`), inode)
	if err != nil {
		return nil, err
	}
	return parent, nil
}

// PathsForInode returns every path row referencing inode (every hard
// link). A table scan, per spec §9 Open Question (b); re-implementers
// operating at scale should add an index on path(inode).
func (s *Store) PathsForInode(ctx context.Context, inode int64) ([]PathRow, error) {
	var rows []PathRow
	err := s.DB.SelectContext(ctx, &rows,
		s.DB.Rebind(`SELECT parent, name, inode FROM path WHERE inode = ?`), inode)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
