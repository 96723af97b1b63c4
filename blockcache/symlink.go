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

import "context"

// WriteSymlinkTarget stores target as inode's sole content and flushes
// it immediately: a symlink's target is set once at creation time and
// must be durable before the create call returns (spec §4.5's "the
// same buffer and extent machinery stores a symlink's target").
func (c *Cache) WriteSymlinkTarget(ctx context.Context, inode int64, target string) error {
	if _, err := c.WriteAt(ctx, inode, 0, []byte(target)); err != nil {
		return err
	}
	return c.Flush(ctx, inode)
}

// ReadSymlinkTarget returns inode's stored content as a string, of the
// given length (the inode's recorded length, since a symlink target
// has no trailing NUL in the extents table).
func (c *Cache) ReadSymlinkTarget(ctx context.Context, inode int64, length int64) (string, error) {
	data, err := c.ReadAt(ctx, inode, 0, length)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
