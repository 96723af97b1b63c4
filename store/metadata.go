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

	"github.com/jmoiron/sqlx"
)

// File-type bits, the top nibble of mode. The low 12 bits are
// permissions plus setuid/setgid/sticky.
const (
	ModeTypeMask   = 0170000
	ModeDirectory  = 0040000
	ModeRegular    = 0100000
	ModeSymlink    = 0120000
	ModeCharDevice = 0020000
	ModeBlockDevice = 0060000
	ModeFIFO       = 0010000
	ModeSocket     = 0140000
)

// MetadataRow is one row of the metadata table: the complete stat(2)
// picture for one inode.
type MetadataRow struct {
	Inode  int64 `db:"inode"`
	Mode   int64 `db:"mode"`
	Uid    int64 `db:"uid"`
	Gid    int64 `db:"gid"`
	Rdev   int64 `db:"rdev"`
	Links  int64 `db:"links"`
	Inuse  int64 `db:"inuse"`
	Length int64 `db:"length"`
	Mtime  int64 `db:"mtime"`
	Ctime  int64 `db:"ctime"`
	Atime  int64 `db:"atime"`
}

// IsDir reports whether the row describes a directory.
func (m *MetadataRow) IsDir() bool {
	return m.Mode&ModeTypeMask == ModeDirectory
}

// IsSymlink reports whether the row describes a symbolic link.
func (m *MetadataRow) IsSymlink() bool {
	return m.Mode&ModeTypeMask == ModeSymlink
}

// IsRegular reports whether the row describes a regular file.
func (m *MetadataRow) IsRegular() bool {
	return m.Mode&ModeTypeMask == ModeRegular
}

// GetMetadata fetches the metadata row for inode, or a *fserrors-free
// sql.ErrNoRows-wrapping error if it does not exist; callers that need
// the NotFound kind wrap the call themselves (this package has no
// dependency on fserrors, to keep it usable standalone).
func (s *Store) GetMetadata(ctx context.Context, inode int64) (*MetadataRow, error) {
	var row MetadataRow
	err := s.DB.GetContext(ctx, &row,
		s.DB.Rebind(`SELECT inode, mode, uid, gid, rdev, links, inuse, length, mtime, ctime, atime
			FROM metadata WHERE inode = ?`), inode)
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// InsertInode creates a new metadata row inside tx and returns its
// assigned inode number. Callers insert the corresponding path row in
// the same transaction so inode creation and linking are atomic.
func (s *Store) InsertInode(ctx context.Context, tx *sqlx.Tx, mode int64, uid, gid int64, rdev int64, links int64) (int64, error) {
	now := s.Clock.Now().Unix()
	_, err := tx.ExecContext(ctx,
		s.DB.Rebind(`INSERT INTO metadata (mode, uid, gid, rdev, links, inuse, length, mtime, ctime, atime)
			VALUES (?, ?, ?, ?, ?, 0, 0, ?, ?, ?)`),
		mode, uid, gid, rdev, links, now, now, now)
	if err != nil {
		return 0, fmt.Errorf("insert inode: %w", err)
	}
	return s.Dialect.LastInsertedInode(ctx, tx)
}

// UpdateLinks adjusts metadata.links by delta inside tx.
func (s *Store) UpdateLinks(ctx context.Context, tx *sqlx.Tx, inode int64, delta int64) error {
	_, err := tx.ExecContext(ctx,
		s.DB.Rebind(`UPDATE metadata SET links = links + ? WHERE inode = ?`), delta, inode)
	return err
}

// UpdateInuse adjusts metadata.inuse by delta inside tx.
func (s *Store) UpdateInuse(ctx context.Context, tx *sqlx.Tx, inode int64, delta int64) error {
	_, err := tx.ExecContext(ctx,
		s.DB.Rebind(`UPDATE metadata SET inuse = inuse + ? WHERE inode = ?`), delta, inode)
	return err
}

// TouchCtimeMtime sets ctime and mtime to now for inode, inside tx.
func (s *Store) TouchCtimeMtime(ctx context.Context, tx *sqlx.Tx, inode int64) error {
	now := s.Clock.Now().Unix()
	_, err := tx.ExecContext(ctx,
		s.DB.Rebind(`UPDATE metadata SET ctime = ?, mtime = ? WHERE inode = ?`), now, now, inode)
	return err
}

// SetMode updates the permission and setuid/setgid/sticky bits of
// inode's mode word (the type bits are immutable after creation), and
// touches ctime. Single-row, autocommit per spec §5.
func (s *Store) SetMode(ctx context.Context, inode int64, permAndSpecialBits int64) error {
	now := s.Clock.Now().Unix()
	_, err := s.DB.ExecContext(ctx,
		s.DB.Rebind(`UPDATE metadata SET mode = (mode & ?) | ?, ctime = ? WHERE inode = ?`),
		int64(ModeTypeMask), permAndSpecialBits&^int64(ModeTypeMask), now, inode)
	return err
}

// SetOwner updates uid and/or gid (sentinel -1 meaning "leave
// unchanged" per spec §4.4) and touches ctime. Single-row, autocommit.
func (s *Store) SetOwner(ctx context.Context, inode int64, uid, gid int64) error {
	now := s.Clock.Now().Unix()
	if uid >= 0 && gid >= 0 {
		_, err := s.DB.ExecContext(ctx,
			s.DB.Rebind(`UPDATE metadata SET uid = ?, gid = ?, ctime = ? WHERE inode = ?`), uid, gid, now, inode)
		return err
	}
	if uid >= 0 {
		_, err := s.DB.ExecContext(ctx,
			s.DB.Rebind(`UPDATE metadata SET uid = ?, ctime = ? WHERE inode = ?`), uid, now, inode)
		return err
	}
	if gid >= 0 {
		_, err := s.DB.ExecContext(ctx,
			s.DB.Rebind(`UPDATE metadata SET gid = ?, ctime = ? WHERE inode = ?`), gid, now, inode)
		return err
	}
	return nil
}

// SetTimes sets atime and/or mtime explicitly (the utime operation).
// A nil pointer leaves that field unchanged.
func (s *Store) SetTimes(ctx context.Context, inode int64, atime, mtime *int64) error {
	now := s.Clock.Now().Unix()
	switch {
	case atime != nil && mtime != nil:
		_, err := s.DB.ExecContext(ctx,
			s.DB.Rebind(`UPDATE metadata SET atime = ?, mtime = ?, ctime = ? WHERE inode = ?`), *atime, *mtime, now, inode)
		return err
	case atime != nil:
		_, err := s.DB.ExecContext(ctx,
			s.DB.Rebind(`UPDATE metadata SET atime = ?, ctime = ? WHERE inode = ?`), *atime, now, inode)
		return err
	case mtime != nil:
		_, err := s.DB.ExecContext(ctx,
			s.DB.Rebind(`UPDATE metadata SET mtime = ?, ctime = ? WHERE inode = ?`), *mtime, now, inode)
		return err
	default:
		return nil
	}
}

// SetAtimeIfStale sets atime to now, but only (per spec §4.5's read
// path rule) when the row's current atime is before its mtime — i.e.
// no later access has been recorded since the last modification.
func (s *Store) SetAtimeIfStale(ctx context.Context, inode int64) error {
	now := s.Clock.Now().Unix()
	_, err := s.DB.ExecContext(ctx,
		s.DB.Rebind(`UPDATE metadata SET atime = ? WHERE inode = ? AND atime < mtime`), now, inode)
	return err
}

// SetLength sets metadata.length and touches mtime, inside tx.
func (s *Store) SetLength(ctx context.Context, tx *sqlx.Tx, inode int64, length int64) error {
	now := s.Clock.Now().Unix()
	_, err := tx.ExecContext(ctx,
		s.DB.Rebind(`UPDATE metadata SET length = ?, mtime = ? WHERE inode = ?`), length, now, inode)
	return err
}

// GrowLengthIfGreater raises metadata.length to hwm if hwm exceeds the
// current value, inside tx. Used by flush, which only ever knows a
// candidate high-water mark, not the authoritative new length.
func (s *Store) GrowLengthIfGreater(ctx context.Context, tx *sqlx.Tx, inode int64, hwm int64) error {
	now := s.Clock.Now().Unix()
	_, err := tx.ExecContext(ctx,
		s.DB.Rebind(`UPDATE metadata SET length = CASE WHEN length < ? THEN ? ELSE length END, mtime = ? WHERE inode = ?`),
		hwm, hwm, now, inode)
	return err
}

// DeleteInodeIfOrphan deletes inode's metadata row and all of its
// extents, inside tx, iff links + inuse == 0. Reports whether it did.
func (s *Store) DeleteInodeIfOrphan(ctx context.Context, tx *sqlx.Tx, inode int64) (bool, error) {
	var row struct {
		Links int64 `db:"links"`
		Inuse int64 `db:"inuse"`
	}
	err := tx.GetContext(ctx, &row,
		s.DB.Rebind(`SELECT links, inuse FROM metadata WHERE inode = ?`), inode)
	if err != nil {
		if isNoRows(err) {
			return false, nil
		}
		return false, err
	}
	if row.Links+row.Inuse != 0 {
		return false, nil
	}

	if _, err := tx.ExecContext(ctx, s.DB.Rebind(`DELETE FROM extents WHERE inode = ?`), inode); err != nil {
		return false, err
	}
	if _, err := tx.ExecContext(ctx, s.DB.Rebind(`DELETE FROM metadata WHERE inode = ?`), inode); err != nil {
		return false, err
	}
	return true, nil
}
