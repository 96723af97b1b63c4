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

package blockcache

import (
	"fmt"

	"github.com/jacobsa/syncutil"
)

// buffer is a per-inode write-back buffer: a sparse mapping from block
// index to its buffered bytes. One buffer exists per inode with
// in-flight writes; it is created on first write and destroyed on
// flush (spec §4.5).
//
// External synchronization is via Mu, following the same pattern as
// the teacher's fs/inode file buffer (syncutil.InvariantMutex wrapping
// a CheckInvariants callback).
type buffer struct {
	Mu syncutil.InvariantMutex

	// GUARDED_BY(Mu)
	blocks map[int64][]byte

	// blockSize is the fixed extent width for this mount.
	blockSize int64
}

func newBuffer(blockSize int64) *buffer {
	b := &buffer{
		blocks:    make(map[int64][]byte),
		blockSize: blockSize,
	}
	b.Mu = syncutil.NewInvariantMutex(b.checkInvariants)
	return b
}

// checkInvariants panics if any internal invariant is violated. Called
// automatically by Mu around each critical section.
func (b *buffer) checkInvariants() {
	for block, data := range b.blocks {
		if int64(len(data)) > b.blockSize {
			panic(fmt.Sprintf("buffer block %d holds %d bytes, more than block size %d", block, len(data), b.blockSize))
		}
	}
}

// empty reports whether the buffer currently holds no blocks.
func (b *buffer) empty() bool {
	return len(b.blocks) == 0
}
