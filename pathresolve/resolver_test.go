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

package pathresolve_test

import (
	"context"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/sqlfuse/sqlfuse/internal/clock"
	"github.com/sqlfuse/sqlfuse/pathresolve"
	"github.com/sqlfuse/sqlfuse/perm"
	"github.com/sqlfuse/sqlfuse/store"
)

type ResolverTest struct {
	suite.Suite
	ctx context.Context
	s   *store.Store
	r   *pathresolve.Resolver
}

func TestResolverSuite(t *testing.T) {
	suite.Run(t, new(ResolverTest))
}

func (t *ResolverTest) SetupTest() {
	t.ctx = context.Background()
	s, err := store.Open(t.ctx, "dbi:SQLite::memory:", clock.RealClock{})
	require.NoError(t.T(), err)
	require.NoError(t.T(), s.Init(t.ctx, 0022, 0, 0))
	t.s = s
	t.r = pathresolve.New(s)
}

func (t *ResolverTest) TearDownTest() {
	t.s.Close()
}

// mkdir inserts a directory row with mode 0755 owned by uid/gid under
// parent, returning its inode.
func (t *ResolverTest) mkdir(parent int64, name string, uid, gid int64) int64 {
	var inode int64
	require.NoError(t.T(), t.s.WithTxn(t.ctx, func(tx *sqlx.Tx) error {
		var err error
		inode, err = t.s.InsertInode(t.ctx, tx, 0040755, uid, gid, 0, 2)
		if err != nil {
			return err
		}
		return t.s.InsertPath(t.ctx, tx, &parent, name, inode)
	}))
	return inode
}

func (t *ResolverTest) TestResolveRoot() {
	entry, err := t.r.Resolve(t.ctx, "/")
	require.NoError(t.T(), err)
	t.Equal(store.RootInode, entry.Inode)
}

func (t *ResolverTest) TestResolveNestedPathInOneRoundTrip() {
	a := t.mkdir(store.RootInode, "a", 0, 0)
	b := t.mkdir(a, "b", 0, 0)
	c := t.mkdir(b, "c", 0, 0)

	entry, err := t.r.Resolve(t.ctx, "/a/b/c")
	require.NoError(t.T(), err)
	t.Equal(c, entry.Inode)
	t.Equal("c", entry.Name)
}

func (t *ResolverTest) TestResolveMissingComponentNotFound() {
	t.mkdir(store.RootInode, "a", 0, 0)
	_, err := t.r.Resolve(t.ctx, "/a/missing")
	t.Error(err)
}

func (t *ResolverTest) TestResolveTreatsRepeatedSlashesAsOneComponent() {
	a := t.mkdir(store.RootInode, "a", 0, 0)
	entry, err := t.r.Resolve(t.ctx, "//a//")
	require.NoError(t.T(), err)
	t.Equal(a, entry.Inode)
}

func (t *ResolverTest) TestCheckAncestorExecuteRootBypasses() {
	a := t.mkdir(store.RootInode, "a", 500, 500)
	require.NoError(t.T(), t.s.SetMode(t.ctx, a, 0000))

	root := perm.Identity{Uid: 0}
	t.NoError(t.r.CheckAncestorExecute(t.ctx, a, root, "open", "/a/x"))
}

func (t *ResolverTest) TestCheckAncestorExecuteIgnorePermissionsBypasses() {
	a := t.mkdir(store.RootInode, "a", 500, 500)
	require.NoError(t.T(), t.s.SetMode(t.ctx, a, 0000))

	t.r.IgnorePermissions = true
	stranger := perm.Identity{Uid: 999, Gid: 999}
	t.NoError(t.r.CheckAncestorExecute(t.ctx, a, stranger, "open", "/a/x"))
}

func (t *ResolverTest) TestCheckAncestorExecuteFailsWithoutXBit() {
	a := t.mkdir(store.RootInode, "a", 500, 500)
	require.NoError(t.T(), t.s.SetMode(t.ctx, a, 0600)) // rw-, no x

	stranger := perm.Identity{Uid: 999, Gid: 999}
	t.Error(t.r.CheckAncestorExecute(t.ctx, a, stranger, "open", "/a/x"))
}

func (t *ResolverTest) TestCheckAncestorExecuteWalksEveryAncestor() {
	a := t.mkdir(store.RootInode, "a", 500, 500)
	b := t.mkdir(a, "b", 500, 500)
	require.NoError(t.T(), t.s.SetMode(t.ctx, a, 0000)) // blocks the walk at "a"

	stranger := perm.Identity{Uid: 999, Gid: 999}
	t.Error(t.r.CheckAncestorExecute(t.ctx, b, stranger, "open", "/a/b/x"))
}
