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

package fuseglue_test

import (
	"context"
	"os"
	"testing"

	"github.com/jacobsa/fuse/fuseops"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/sqlfuse/sqlfuse/fs"
	"github.com/sqlfuse/sqlfuse/fuseglue"
	"github.com/sqlfuse/sqlfuse/internal/clock"
	"github.com/sqlfuse/sqlfuse/store"
)

type GlueTest struct {
	suite.Suite
	ctx context.Context
	s   *store.Store
	srv *fuseglue.Server
}

func TestGlueSuite(t *testing.T) {
	suite.Run(t, new(GlueTest))
}

func (t *GlueTest) SetupTest() {
	t.ctx = context.Background()

	s, err := store.Open(t.ctx, "dbi:SQLite::memory:", clock.RealClock{})
	require.NoError(t.T(), err)
	require.NoError(t.T(), s.Init(t.ctx, 0022, 0, 0))
	t.s = s

	fsys := fs.New(fs.Config{Store: s, BlockSize: 8, FlushThreshold: 4})
	t.srv = fuseglue.New(fsys)

	require.NoError(t.T(), t.srv.Init(t.ctx, &fuseops.InitOp{}))
}

func (t *GlueTest) TestMkdirThenLookup() {
	mkdir := &fuseops.MkDirOp{
		Parent: fuseops.RootInodeID,
		Name:   "sub",
		Mode:   os.ModeDir | 0755,
	}
	t.Require().NoError(t.srv.MkDir(t.ctx, mkdir))
	t.NotZero(mkdir.Entry.Child)

	lookup := &fuseops.LookUpInodeOp{
		Parent: fuseops.RootInodeID,
		Name:   "sub",
	}
	t.Require().NoError(t.srv.LookUpInode(t.ctx, lookup))
	t.Equal(mkdir.Entry.Child, lookup.Entry.Child)
}

func (t *GlueTest) TestCreateWriteReadRoundTrip() {
	create := &fuseops.CreateFileOp{
		Parent: fuseops.RootInodeID,
		Name:   "f",
		Mode:   0644,
	}
	t.Require().NoError(t.srv.CreateFile(t.ctx, create))
	t.NotZero(create.Handle)

	write := &fuseops.WriteFileOp{
		Handle: create.Handle,
		Offset: 0,
		Data:   []byte("hello"),
	}
	t.Require().NoError(t.srv.WriteFile(t.ctx, write))
	t.Require().NoError(t.srv.FlushFile(t.ctx, &fuseops.FlushFileOp{Handle: create.Handle}))

	dst := make([]byte, 5)
	read := &fuseops.ReadFileOp{
		Handle: create.Handle,
		Offset: 0,
		Dst:    dst,
	}
	t.Require().NoError(t.srv.ReadFile(t.ctx, read))
	t.Equal(5, read.BytesRead)
	t.Equal("hello", string(dst))

	t.Require().NoError(t.srv.ReleaseFileHandle(t.ctx, &fuseops.ReleaseFileHandleOp{Handle: create.Handle}))
}

func (t *GlueTest) TestForgetInodeEvictsLocator() {
	mkdir := &fuseops.MkDirOp{Parent: fuseops.RootInodeID, Name: "d", Mode: os.ModeDir | 0755}
	t.Require().NoError(t.srv.MkDir(t.ctx, mkdir))

	forget := &fuseops.ForgetInodeOp{Inode: mkdir.Entry.Child, N: 1}
	t.Require().NoError(t.srv.ForgetInode(t.ctx, forget))

	// With its locator evicted, the forgotten inode can no longer be
	// turned back into a path.
	t.Error(t.srv.GetInodeAttributes(t.ctx, &fuseops.GetInodeAttributesOp{Inode: mkdir.Entry.Child}))

	// A fresh lookup must still work: eviction only drops the cached
	// locator, not anything in the store.
	lookup := &fuseops.LookUpInodeOp{Parent: fuseops.RootInodeID, Name: "d"}
	t.Require().NoError(t.srv.LookUpInode(t.ctx, lookup))
	t.Equal(mkdir.Entry.Child, lookup.Entry.Child)
}
