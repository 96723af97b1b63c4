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

package store_test

import (
	"context"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/sqlfuse/sqlfuse/internal/clock"
	"github.com/sqlfuse/sqlfuse/store"
)

type StoreTest struct {
	suite.Suite
	ctx context.Context
	s   *store.Store
}

func TestStoreSuite(t *testing.T) {
	suite.Run(t, new(StoreTest))
}

func (t *StoreTest) SetupTest() {
	t.ctx = context.Background()
	s, err := store.Open(t.ctx, "dbi:SQLite::memory:", clock.RealClock{})
	require.NoError(t.T(), err)
	require.NoError(t.T(), s.Init(t.ctx, 0022, 1000, 1000))
	t.s = s
}

func (t *StoreTest) TearDownTest() {
	t.s.Close()
}

func (t *StoreTest) TestInitCreatesRootMaskedByUmask() {
	root, err := t.s.GetMetadata(t.ctx, store.RootInode)
	require.NoError(t.T(), err)
	t.True(root.IsDir())
	t.Equal(int64(2), root.Links)
	// 0777 masked by 0022 leaves 0755; the type bits survive untouched.
	t.Equal(int64(0040755), root.Mode)
	t.Equal(int64(1000), root.Uid)
	t.Equal(int64(1000), root.Gid)
}

func (t *StoreTest) TestCheckSchemaPassesAfterInit() {
	require.NoError(t.T(), t.s.CheckSchema(t.ctx))
}

func (t *StoreTest) TestInsertInodeAndPath() {
	root := store.RootInode
	var inode int64
	err := t.s.WithTxn(t.ctx, func(tx *sqlx.Tx) error {
		var err error
		inode, err = t.s.InsertInode(t.ctx, tx, 0100644, 1000, 1000, 0, 1)
		if err != nil {
			return err
		}
		return t.s.InsertPath(t.ctx, tx, &root, "f", inode)
	})
	require.NoError(t.T(), err)
	t.NotZero(inode)

	row, err := t.s.LookupChild(t.ctx, store.RootInode, "f")
	require.NoError(t.T(), err)
	t.Equal(inode, row.Inode)

	md, err := t.s.GetMetadata(t.ctx, inode)
	require.NoError(t.T(), err)
	t.True(md.IsRegular())
	t.Equal(int64(1), md.Links)
}

func (t *StoreTest) TestDeleteInodeIfOrphanRequiresZeroLinksAndInuse() {
	var inode int64
	require.NoError(t.T(), t.s.WithTxn(t.ctx, func(tx *sqlx.Tx) error {
		var err error
		inode, err = t.s.InsertInode(t.ctx, tx, 0100644, 1000, 1000, 0, 1)
		if err != nil {
			return err
		}
		return t.s.UpdateInuse(t.ctx, tx, inode, 1)
	}))

	// links == 0 but inuse == 1: still referenced by an open handle.
	require.NoError(t.T(), t.s.WithTxn(t.ctx, func(tx *sqlx.Tx) error {
		return t.s.UpdateLinks(t.ctx, tx, inode, -1)
	}))
	var deleted bool
	require.NoError(t.T(), t.s.WithTxn(t.ctx, func(tx *sqlx.Tx) error {
		var err error
		deleted, err = t.s.DeleteInodeIfOrphan(t.ctx, tx, inode)
		return err
	}))
	t.False(deleted, "inode with an open handle must survive link count reaching zero")

	// Releasing the last handle now makes it collectible.
	require.NoError(t.T(), t.s.WithTxn(t.ctx, func(tx *sqlx.Tx) error {
		return t.s.UpdateInuse(t.ctx, tx, inode, -1)
	}))
	require.NoError(t.T(), t.s.WithTxn(t.ctx, func(tx *sqlx.Tx) error {
		var err error
		deleted, err = t.s.DeleteInodeIfOrphan(t.ctx, tx, inode)
		return err
	}))
	t.True(deleted)

	_, err := t.s.GetMetadata(t.ctx, inode)
	t.Error(err)
}

func (t *StoreTest) TestCountChildrenAndDirectories() {
	root := store.RootInode
	require.NoError(t.T(), t.s.WithTxn(t.ctx, func(tx *sqlx.Tx) error {
		fileInode, err := t.s.InsertInode(t.ctx, tx, 0100644, 1000, 1000, 0, 1)
		if err != nil {
			return err
		}
		if err := t.s.InsertPath(t.ctx, tx, &root, "f", fileInode); err != nil {
			return err
		}
		dirInode, err := t.s.InsertInode(t.ctx, tx, 0040755, 1000, 1000, 0, 2)
		if err != nil {
			return err
		}
		return t.s.InsertPath(t.ctx, tx, &root, "d", dirInode)
	}))

	total, err := t.s.CountChildren(t.ctx, store.RootInode)
	require.NoError(t.T(), err)
	t.Equal(int64(2), total)

	dirs, err := t.s.CountChildDirectories(t.ctx, store.RootInode)
	require.NoError(t.T(), err)
	t.Equal(int64(1), dirs)
}

func (t *StoreTest) TestSanitizeNameReplacesSlash() {
	t.Equal("a_b", store.SanitizeName("a/b"))
}
