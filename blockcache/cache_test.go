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

package blockcache_test

import (
	"context"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/sqlfuse/sqlfuse/blockcache"
	"github.com/sqlfuse/sqlfuse/internal/clock"
	"github.com/sqlfuse/sqlfuse/store"
)

const testBlockSize = 8

type CacheTest struct {
	suite.Suite
	ctx   context.Context
	s     *store.Store
	cache *blockcache.Cache
	inode int64
}

func TestCacheSuite(t *testing.T) {
	suite.Run(t, new(CacheTest))
}

func (t *CacheTest) SetupTest() {
	t.ctx = context.Background()

	s, err := store.Open(t.ctx, "dbi:SQLite::memory:", clock.RealClock{})
	require.NoError(t.T(), err)
	require.NoError(t.T(), s.Init(t.ctx, 0022, 0, 0))
	t.s = s

	t.cache = blockcache.New(s, testBlockSize, 4)
	t.inode = t.mustCreateInode()
}

func (t *CacheTest) mustCreateInode() int64 {
	var inode int64
	err := t.s.WithTxn(t.ctx, func(tx *sqlx.Tx) error {
		var err error
		inode, err = t.s.InsertInode(t.ctx, tx, store.ModeRegular|0644, 0, 0, 0, 1)
		return err
	})
	require.NoError(t.T(), err)
	return inode
}

func (t *CacheTest) TearDown() {
	require.NoError(t.T(), t.s.Close())
}

func (t *CacheTest) TestWriteThenReadWithinOneBlock() {
	n, err := t.cache.WriteAt(t.ctx, t.inode, 0, []byte("hello"))
	t.Require().NoError(err)
	t.Equal(5, n)

	got, err := t.cache.ReadAt(t.ctx, t.inode, 0, 5)
	t.Require().NoError(err)
	t.Equal("hello", string(got))
}

func (t *CacheTest) TestWriteSpanningMultipleBlocks() {
	data := []byte("0123456789abcdef") // 16 bytes, two 8-byte blocks
	_, err := t.cache.WriteAt(t.ctx, t.inode, 0, data)
	t.Require().NoError(err)

	got, err := t.cache.ReadAt(t.ctx, t.inode, 0, int64(len(data)))
	t.Require().NoError(err)
	t.Equal(data, got)
}

func (t *CacheTest) TestReadReconstructsSparseHole() {
	_, err := t.cache.WriteAt(t.ctx, t.inode, 16, []byte("tail"))
	t.Require().NoError(err)

	got, err := t.cache.ReadAt(t.ctx, t.inode, 0, 20)
	t.Require().NoError(err)
	t.Equal(append(make([]byte, 16), []byte("tail")...), got)
}

func (t *CacheTest) TestFlushCrossesThreshold() {
	// With a flush threshold of 4 blocks and 8-byte blocks, 40 bytes
	// touches 5 distinct blocks and must trigger an automatic flush.
	data := make([]byte, 40)
	for i := range data {
		data[i] = byte(i)
	}
	_, err := t.cache.WriteAt(t.ctx, t.inode, 0, data)
	t.Require().NoError(err)

	rows, err := t.s.ExtentsInRange(t.ctx, t.inode, 0, 4)
	t.Require().NoError(err)
	t.NotEmpty(rows, "writes past the flush threshold should have spilled to the extents table")
}

func (t *CacheTest) TestTruncateShrinkDiscardsTail() {
	_, err := t.cache.WriteAt(t.ctx, t.inode, 0, []byte("0123456789abcdef"))
	t.Require().NoError(err)
	t.Require().NoError(t.cache.Flush(t.ctx, t.inode))

	t.Require().NoError(t.cache.Truncate(t.ctx, t.inode, 5))

	got, err := t.cache.ReadAt(t.ctx, t.inode, 0, 5)
	t.Require().NoError(err)
	t.Equal("01234", string(got))

	md, err := t.s.GetMetadata(t.ctx, t.inode)
	t.Require().NoError(err)
	t.EqualValues(5, md.Length)
}

func (t *CacheTest) TestSymlinkTargetRoundTrips() {
	t.Require().NoError(t.cache.WriteSymlinkTarget(t.ctx, t.inode, "../other/path"))

	got, err := t.cache.ReadSymlinkTarget(t.ctx, t.inode, int64(len("../other/path")))
	t.Require().NoError(err)
	t.Equal("../other/path", got)
}

func (t *CacheTest) TestFlushAllFlushesEveryBufferedInode() {
	other := t.mustCreateInode()

	_, err := t.cache.WriteAt(t.ctx, t.inode, 0, []byte("a"))
	t.Require().NoError(err)
	_, err = t.cache.WriteAt(t.ctx, other, 0, []byte("b"))
	t.Require().NoError(err)

	t.Require().NoError(t.cache.FlushAll(t.ctx))

	rows, err := t.s.ExtentsInRange(t.ctx, other, 0, 0)
	t.Require().NoError(err)
	t.NotEmpty(rows)
}
