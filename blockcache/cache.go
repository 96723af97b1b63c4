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

// Package blockcache implements the Block Cache & I/O component: a
// per-inode write-back buffer over the extents table, sparse-hole
// reconstruction on read, and the flush-on-threshold and
// flush-before-read consistency rules (spec §4.5).
package blockcache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/jmoiron/sqlx"
	"golang.org/x/sync/errgroup"

	"github.com/sqlfuse/sqlfuse/store"
)

// Cache buffers writes to inode content (regular files and symlink
// targets alike) in memory, spilling to the extents table once an
// inode's buffered block count crosses FlushThreshold, or on an
// explicit Flush.
type Cache struct {
	Store *store.Store

	blockSize      int64
	flushThreshold int

	mu      sync.Mutex
	buffers map[int64]*buffer // GUARDED_BY(mu)
}

// New returns a Cache backed by s, buffering up to flushThreshold
// dirty blocks per inode before writing them back, in blocks of
// blockSize bytes.
func New(s *store.Store, blockSize int64, flushThreshold int) *Cache {
	return &Cache{
		Store:          s,
		blockSize:      blockSize,
		flushThreshold: flushThreshold,
		buffers:        make(map[int64]*buffer),
	}
}

// bufferFor returns the buffer for inode, creating one if absent.
func (c *Cache) bufferFor(inode int64) *buffer {
	c.mu.Lock()
	defer c.mu.Unlock()

	b, ok := c.buffers[inode]
	if !ok {
		b = newBuffer(c.blockSize)
		c.buffers[inode] = b
	}
	return b
}

// WriteAt buffers contents starting at offset in inode's content,
// splitting across block boundaries as needed. After the new blocks
// are buffered, it flushes inode's buffer if the number of buffered
// blocks now exceeds the flush threshold (writes accumulate until the
// threshold is crossed, then spill).
func (c *Cache) WriteAt(ctx context.Context, inode int64, offset int64, p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	b := c.bufferFor(inode)
	b.Mu.Lock()
	defer b.Mu.Unlock()

	n, err := c.writeAtLocked(ctx, inode, b, offset, p)
	if err != nil {
		return n, err
	}

	if len(b.blocks) > c.flushThreshold {
		if err := c.flushLocked(ctx, inode, b); err != nil {
			return n, err
		}
	}
	return n, nil
}

func (c *Cache) writeAtLocked(ctx context.Context, inode int64, b *buffer, offset int64, p []byte) (int, error) {
	written := 0
	for written < len(p) {
		absolute := offset + int64(written)
		block := absolute / b.blockSize
		within := absolute % b.blockSize

		chunk := p[written:]
		room := b.blockSize - within
		if int64(len(chunk)) > room {
			chunk = chunk[:room]
		}

		data, err := c.blockContentsLocked(ctx, inode, b, block)
		if err != nil {
			return written, err
		}
		need := within + int64(len(chunk))
		if int64(len(data)) < need {
			grown := make([]byte, need)
			copy(grown, data)
			data = grown
		}
		copy(data[within:], chunk)
		b.blocks[block] = data

		written += len(chunk)
	}
	return written, nil
}

// blockContentsLocked returns the current contents of block, from the
// buffer if already touched this session, else from the database
// (empty if no extent row exists: a hole).
func (c *Cache) blockContentsLocked(ctx context.Context, inode int64, b *buffer, block int64) ([]byte, error) {
	if data, ok := b.blocks[block]; ok {
		return data, nil
	}
	row, err := c.Store.GetExtent(ctx, inode, block)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("read block %d of inode %d: %w", block, inode, err)
	}
	return row.Contents, nil
}

// ReadAt reconstructs length bytes of inode's content starting at
// offset, flushing any buffered writes for inode first so the read
// observes them (spec §4.5's flush-before-read rule), then serving
// the result entirely from the extents table; the buffer Flush just
// emptied holds nothing still relevant to this read.
func (c *Cache) ReadAt(ctx context.Context, inode int64, offset int64, length int64) ([]byte, error) {
	if length <= 0 {
		return nil, nil
	}
	if err := c.Flush(ctx, inode); err != nil {
		return nil, err
	}

	first := offset / c.blockSize
	last := (offset + length - 1) / c.blockSize

	rows, err := c.Store.ExtentsInRange(ctx, inode, first, last)
	if err != nil {
		return nil, fmt.Errorf("read extents [%d,%d] of inode %d: %w", first, last, inode, err)
	}
	byBlock := make(map[int64][]byte, len(rows))
	for _, r := range rows {
		byBlock[r.Block] = r.Contents
	}

	out := make([]byte, length)
	for block := first; block <= last; block++ {
		data := byBlock[block]
		if len(data) == 0 {
			continue
		}
		blockStart := block * c.blockSize
		// Intersection of [blockStart, blockStart+len(data)) and
		// [offset, offset+length) in absolute coordinates.
		srcFrom := int64(0)
		dstFrom := blockStart - offset
		if dstFrom < 0 {
			srcFrom = -dstFrom
			dstFrom = 0
		}
		srcTo := int64(len(data))
		if blockStart+srcTo > offset+length {
			srcTo = offset + length - blockStart
		}
		if srcFrom >= srcTo {
			continue
		}
		copy(out[dstFrom:], data[srcFrom:srcTo])
	}
	return out, nil
}

// Flush writes every buffered block of inode back to the extents
// table and discards the buffer. A no-op if inode has no buffer or an
// empty one.
func (c *Cache) Flush(ctx context.Context, inode int64) error {
	c.mu.Lock()
	b, ok := c.buffers[inode]
	c.mu.Unlock()
	if !ok {
		return nil
	}

	b.Mu.Lock()
	defer b.Mu.Unlock()
	return c.flushLocked(ctx, inode, b)
}

func (c *Cache) flushLocked(ctx context.Context, inode int64, b *buffer) error {
	if b.empty() {
		return nil
	}

	var hwm int64
	for block, data := range b.blocks {
		if end := block*c.blockSize + int64(len(data)); end > hwm {
			hwm = end
		}
	}

	err := c.Store.WithTxn(ctx, func(tx *sqlx.Tx) error {
		for block, data := range b.blocks {
			if err := c.Store.WriteBlock(ctx, tx, inode, block, data); err != nil {
				return err
			}
		}
		return c.Store.GrowLengthIfGreater(ctx, tx, inode, hwm)
	})
	if err != nil {
		return fmt.Errorf("flush inode %d: %w", inode, err)
	}

	for block := range b.blocks {
		delete(b.blocks, block)
	}

	c.mu.Lock()
	if buf := c.buffers[inode]; buf == b && b.empty() {
		delete(c.buffers, inode)
	}
	c.mu.Unlock()

	return nil
}

// FlushAll flushes every inode with a non-empty buffer concurrently,
// per spec §4.5's "flush with no inode argument flushes every
// buffered inode" rule.
func (c *Cache) FlushAll(ctx context.Context) error {
	c.mu.Lock()
	inodes := make([]int64, 0, len(c.buffers))
	for inode := range c.buffers {
		inodes = append(inodes, inode)
	}
	c.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)
	for _, inode := range inodes {
		inode := inode
		g.Go(func() error {
			return c.Flush(gctx, inode)
		})
	}
	return g.Wait()
}

// Truncate shrinks or grows inode's buffered and persisted content to
// length. Growth creates a sparse hole; shrinkage discards any
// buffered or persisted bytes past length, including trimming the
// partial tail block (spec §4.5's truncate-shrink semantics).
func (c *Cache) Truncate(ctx context.Context, inode int64, length int64) error {
	b := c.bufferFor(inode)
	b.Mu.Lock()
	defer b.Mu.Unlock()

	if err := c.flushLocked(ctx, inode, b); err != nil {
		return err
	}

	lastBlock := length / c.blockSize
	tailLen := int(length % c.blockSize)

	return c.Store.WithTxn(ctx, func(tx *sqlx.Tx) error {
		if tailLen == 0 {
			if err := c.Store.DeleteExtentsAbove(ctx, tx, inode, lastBlock-1); err != nil {
				return err
			}
		} else {
			if err := c.Store.DeleteExtentsAbove(ctx, tx, inode, lastBlock); err != nil {
				return err
			}
			if err := c.Store.TrimExtent(ctx, tx, inode, lastBlock, tailLen); err != nil {
				return err
			}
		}
		return c.Store.SetLength(ctx, tx, inode, length)
	})
}

// Discard drops inode's buffer without flushing, called once an
// inode's extents have been deleted (orphan collection) so a buffer
// left over from before cannot resurrect them on a later flush.
func (c *Cache) Discard(inode int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.buffers, inode)
}
