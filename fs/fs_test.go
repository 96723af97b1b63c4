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

package fs_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/sqlfuse/sqlfuse/fs"
	"github.com/sqlfuse/sqlfuse/internal/clock"
	"github.com/sqlfuse/sqlfuse/perm"
	"github.com/sqlfuse/sqlfuse/store"
)

const testBlockSize = 8

type FSTest struct {
	suite.Suite
	ctx  context.Context
	s    *store.Store
	fs   *fs.FileSystem
	root perm.Identity
	user perm.Identity
}

func TestFSSuite(t *testing.T) {
	suite.Run(t, new(FSTest))
}

func (t *FSTest) SetupTest() {
	t.ctx = context.Background()

	s, err := store.Open(t.ctx, "dbi:SQLite::memory:", clock.RealClock{})
	require.NoError(t.T(), err)
	// umask 0 leaves the root at 0777, so the unprivileged user can
	// create entries directly under "/".
	require.NoError(t.T(), s.Init(t.ctx, 0, 0, 0))
	t.s = s

	t.fs = fs.New(fs.Config{Store: s, BlockSize: testBlockSize, FlushThreshold: 4})
	t.root = perm.Identity{Uid: 0, Gid: 0}
	t.user = perm.Identity{Uid: 1000, Gid: 1000}
}

func (t *FSTest) TearDown() {
	require.NoError(t.T(), t.s.Close())
}

// Scenario 1: directory tree under an unprivileged user.
func (t *FSTest) TestDirectoryTree() {
	_, err := t.fs.Mkdir(t.ctx, "/a", 0755, 0022, t.user)
	t.Require().NoError(err)
	_, err = t.fs.Mkdir(t.ctx, "/a/b", 0755, 0022, t.user)
	t.Require().NoError(err)
	_, err = t.fs.Mkdir(t.ctx, "/a/c", 0755, 0022, t.user)
	t.Require().NoError(err)
	_, err = t.fs.Mknod(t.ctx, "/a/b/f", 0644, 0022, 0, t.user)
	t.Require().NoError(err)

	entries, err := t.fs.Getdir(t.ctx, "/a", t.user)
	t.Require().NoError(err)
	t.ElementsMatch(names(entries), []string{".", "..", "b", "c"})

	entries, err = t.fs.Getdir(t.ctx, "/a/b", t.user)
	t.Require().NoError(err)
	t.ElementsMatch(names(entries), []string{".", "..", "f"})

	_, err = t.fs.Mkdir(t.ctx, "/d/e", 0755, 0022, t.user)
	t.Require().Error(err)
}

// Scenario 2: sparse write then read.
func (t *FSTest) TestSparseWriteThenRead() {
	_, err := t.fs.Mknod(t.ctx, "/sparse", 0644, 0022, 0, t.user)
	t.Require().NoError(err)

	h, err := t.fs.Open(t.ctx, "/sparse", 2 /* O_RDWR */, t.user)
	t.Require().NoError(err)

	_, err = t.fs.Write(t.ctx, h, 8192, []byte("HELLO"))
	t.Require().NoError(err)
	t.Require().NoError(t.fs.Flush(t.ctx, h))

	data, err := t.fs.Read(t.ctx, h, 0, 8197)
	t.Require().NoError(err)
	t.Require().Len(data, 8197)
	t.Equal(make([]byte, 8192), data[:8192])
	t.Equal("HELLO", string(data[8192:]))

	attr, err := t.fs.Getattr(t.ctx, "/sparse", t.user)
	t.Require().NoError(err)
	t.EqualValues(8197, attr.Length)
}

// Scenario 3: hard link then unlink.
func (t *FSTest) TestHardLinkThenUnlink() {
	_, err := t.fs.Mknod(t.ctx, "/x", 0644, 0022, 0, t.user)
	t.Require().NoError(err)

	h, err := t.fs.Open(t.ctx, "/x", 1 /* O_WRONLY */, t.user)
	t.Require().NoError(err)
	_, err = t.fs.Write(t.ctx, h, 0, []byte("payload"))
	t.Require().NoError(err)
	t.Require().NoError(t.fs.Flush(t.ctx, h))
	t.Require().NoError(t.fs.Release(t.ctx, h))

	_, err = t.fs.Link(t.ctx, "/x", "/y", t.user)
	t.Require().NoError(err)
	t.Require().NoError(t.fs.Unlink(t.ctx, "/x", t.user))

	h2, err := t.fs.Open(t.ctx, "/y", 0, t.user)
	t.Require().NoError(err)
	data, err := t.fs.Read(t.ctx, h2, 0, 7)
	t.Require().NoError(err)
	t.Equal("payload", string(data))

	attr, err := t.fs.Getattr(t.ctx, "/y", t.user)
	t.Require().NoError(err)
	t.EqualValues(1, attr.Links)
}

// Scenario 4: permission denial, then chmod by root restores access.
func (t *FSTest) TestPermissionDenial() {
	_, err := t.fs.Mkdir(t.ctx, "/r", 0700, 0, t.root)
	t.Require().NoError(err)

	_, err = t.fs.Getdir(t.ctx, "/r", t.user)
	t.Require().Error(err)

	_, err = t.fs.Chmod(t.ctx, "/r", 0755, t.root)
	t.Require().NoError(err)

	_, err = t.fs.Getdir(t.ctx, "/r", t.user)
	t.Require().NoError(err)
}

// Scenario 5: truncate with a sparse tail.
func (t *FSTest) TestTruncateWithSparseTail() {
	_, err := t.fs.Mknod(t.ctx, "/f", 0644, 0022, 0, t.user)
	t.Require().NoError(err)

	h, err := t.fs.Open(t.ctx, "/f", 2, t.user)
	t.Require().NoError(err)
	_, err = t.fs.Write(t.ctx, h, 8192, []byte("ABCD"))
	t.Require().NoError(err)
	_, err = t.fs.Write(t.ctx, h, 9999, []byte("Z"))
	t.Require().NoError(err)
	t.Require().NoError(t.fs.Flush(t.ctx, h))

	t.Require().NoError(t.fs.Truncate(t.ctx, h, 9000))

	attr, err := t.fs.Getattr(t.ctx, "/f", t.user)
	t.Require().NoError(err)
	t.EqualValues(9000, attr.Length)

	data, err := t.fs.Read(t.ctx, h, 0, 9000)
	t.Require().NoError(err)
	t.Len(data, 9000)
	t.Equal(make([]byte, 8192), data[:8192])
	t.Equal("ABCD", string(data[8192:8196]))
	t.Equal(make([]byte, 804), data[8196:9000])
}

func (t *FSTest) TestTruncateRejectsExtend() {
	_, err := t.fs.Mknod(t.ctx, "/f", 0644, 0022, 0, t.user)
	t.Require().NoError(err)

	h, err := t.fs.Open(t.ctx, "/f", 2, t.user)
	t.Require().NoError(err)
	_, err = t.fs.Write(t.ctx, h, 0, []byte("abc"))
	t.Require().NoError(err)
	t.Require().NoError(t.fs.Flush(t.ctx, h))

	err = t.fs.Truncate(t.ctx, h, 100)
	t.Require().Error(err)

	attr, err := t.fs.Getattr(t.ctx, "/f", t.user)
	t.Require().NoError(err)
	t.EqualValues(3, attr.Length)
}

func (t *FSTest) TestRenameActsLikeLinkThenUnlink() {
	_, err := t.fs.Mknod(t.ctx, "/a", 0644, 0022, 0, t.user)
	t.Require().NoError(err)

	t.Require().NoError(t.fs.Rename(t.ctx, "/a", "/b", t.user))

	_, err = t.fs.Getattr(t.ctx, "/a", t.user)
	t.Require().Error(err)

	attr, err := t.fs.Getattr(t.ctx, "/b", t.user)
	t.Require().NoError(err)
	t.EqualValues(1, attr.Links)
}

func (t *FSTest) TestUnlinkOpenThenRelease() {
	_, err := t.fs.Mknod(t.ctx, "/p", 0644, 0022, 0, t.user)
	t.Require().NoError(err)

	h, err := t.fs.Open(t.ctx, "/p", 2, t.user)
	t.Require().NoError(err)
	t.Require().NoError(t.fs.Unlink(t.ctx, "/p", t.user))

	_, err = t.fs.Write(t.ctx, h, 0, []byte("still writable"))
	t.Require().NoError(err)
	data, err := t.fs.Read(t.ctx, h, 0, 14)
	t.Require().NoError(err)
	t.Equal("still writable", string(data))

	t.Require().NoError(t.fs.Release(t.ctx, h))

	_, err = t.fs.Open(t.ctx, "/p", 0, t.user)
	t.Require().Error(err)
}

func (t *FSTest) TestSymlinkRoundTrip() {
	_, err := t.fs.Symlink(t.ctx, "/a/b/c", "/link", t.user)
	t.Require().NoError(err)

	target, err := t.fs.Readlink(t.ctx, "/link", t.user)
	t.Require().NoError(err)
	t.Equal("/a/b/c", target)
}

func names(entries []fs.DirEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Name
	}
	return out
}
