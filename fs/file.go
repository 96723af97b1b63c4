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

package fs

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/sqlfuse/sqlfuse/fserrors"
	"github.com/sqlfuse/sqlfuse/perm"
	"github.com/sqlfuse/sqlfuse/store"
)

// Handle is an open file reference. The inode number doubles as the
// handle, per spec §4.6 ("open ... returns inode as handle").
type Handle int64

// Mknod creates a regular or special file at path, with permission
// bits mode masked by umask and device number rdev (zero for a
// regular file).
func (fs *FileSystem) Mknod(ctx context.Context, path string, mode int64, umask int64, rdev int64, id perm.Identity) (Attr, error) {
	const op = "mknod"

	parentPath, name := splitPath(path)
	parentInode, parentMd, err := fs.resolveDir(ctx, op, parentPath)
	if err != nil {
		return Attr{}, err
	}
	if err := fs.Resolver.CheckAncestorExecute(ctx, parentInode, id, op, path); err != nil {
		return Attr{}, err
	}
	if err := perm.Check(parentMd.Mode, parentMd.Uid, parentMd.Gid, id, perm.Write|perm.Execute, op, path); err != nil {
		return Attr{}, err
	}
	if _, err := fs.Store.LookupChild(ctx, parentInode, name); err == nil {
		return Attr{}, fserrors.New(fserrors.InvalidArgument, op, path, nil)
	}

	typeBits := mode & store.ModeTypeMask
	if typeBits == 0 {
		typeBits = store.ModeRegular
	}
	effMode := typeBits | ((mode &^ store.ModeTypeMask) &^ umask & 0777)

	var inode int64
	err = fs.Store.WithTxn(ctx, func(tx *sqlx.Tx) error {
		var err error
		inode, err = fs.Store.InsertInode(ctx, tx, effMode, int64(id.Uid), int64(id.Gid), rdev, 1)
		if err != nil {
			return err
		}
		if err := fs.Store.InsertPath(ctx, tx, &parentInode, name, inode); err != nil {
			return err
		}
		return fs.Store.TouchCtimeMtime(ctx, tx, parentInode)
	})
	if err != nil {
		return Attr{}, fserrors.New(fserrors.IO, op, path, err)
	}

	md, err := fs.getMetadataOrIO(ctx, op, path, inode)
	if err != nil {
		return Attr{}, err
	}
	return attrFromRow(md), nil
}

// Create is mknod followed immediately by open, as one call.
func (fs *FileSystem) Create(ctx context.Context, path string, mode int64, umask int64, flags int, id perm.Identity) (Handle, Attr, error) {
	attr, err := fs.Mknod(ctx, path, mode, umask, 0, id)
	if err != nil {
		return 0, Attr{}, err
	}
	handle, err := fs.openInode(ctx, "create", path, attr.Inode)
	if err != nil {
		return 0, Attr{}, err
	}
	return handle, attr, nil
}

// Open permission-checks path against flags, increments the target
// inode's inuse count, and returns the inode as an opaque handle.
func (fs *FileSystem) Open(ctx context.Context, path string, flags int, id perm.Identity) (Handle, error) {
	const op = "open"

	entry, err := fs.Resolver.Resolve(ctx, path)
	if err != nil {
		return 0, err
	}
	if err := fs.checkAncestorExecute(ctx, entry, id, op, path); err != nil {
		return 0, err
	}
	md, err := fs.getMetadataOrIO(ctx, op, path, entry.Inode)
	if err != nil {
		return 0, err
	}
	if err := perm.Check(md.Mode, md.Uid, md.Gid, id, perm.OpenMask(flags), op, path); err != nil {
		return 0, err
	}
	return fs.openInode(ctx, op, path, entry.Inode)
}

func (fs *FileSystem) openInode(ctx context.Context, op, path string, inode int64) (Handle, error) {
	err := fs.Store.WithTxn(ctx, func(tx *sqlx.Tx) error {
		return fs.Store.UpdateInuse(ctx, tx, inode, 1)
	})
	if err != nil {
		return 0, fserrors.New(fserrors.IO, op, path, err)
	}
	return Handle(inode), nil
}

// Release flushes the handle's buffered writes, decrements inuse, and
// runs orphan collection: the inode is destroyed if this was its last
// reference of either kind.
func (fs *FileSystem) Release(ctx context.Context, h Handle) error {
	const op = "release"
	inode := int64(h)

	if err := fs.Cache.Flush(ctx, inode); err != nil {
		return fserrors.New(fserrors.IO, op, "", err)
	}

	var destroyed bool
	err := fs.Store.WithTxn(ctx, func(tx *sqlx.Tx) error {
		if err := fs.Store.UpdateInuse(ctx, tx, inode, -1); err != nil {
			return err
		}
		var err error
		destroyed, err = fs.Store.DeleteInodeIfOrphan(ctx, tx, inode)
		return err
	})
	if err != nil {
		return fserrors.New(fserrors.IO, op, "", err)
	}
	if destroyed {
		fs.Cache.Discard(inode)
	}
	return nil
}

// Read returns up to length bytes of handle's content starting at
// offset, clamped to min(length, fileLength-offset) per invariant I5,
// and sets atime to now if it predates the last write. Buffered writes
// are flushed first so the clamp sees the current file length.
func (fs *FileSystem) Read(ctx context.Context, h Handle, offset int64, length int64) ([]byte, error) {
	const op = "read"
	inode := int64(h)

	if err := fs.Cache.Flush(ctx, inode); err != nil {
		return nil, fserrors.New(fserrors.IO, op, "", err)
	}

	md, err := fs.Store.GetMetadata(ctx, inode)
	if err != nil {
		return nil, fserrors.New(fserrors.IO, op, "", err)
	}

	want := length
	if remaining := md.Length - offset; remaining < want {
		want = remaining
	}
	if want <= 0 {
		return nil, nil
	}

	data, err := fs.Cache.ReadAt(ctx, inode, offset, want)
	if err != nil {
		return nil, fserrors.New(fserrors.IO, op, "", err)
	}
	if err := fs.Store.SetAtimeIfStale(ctx, inode); err != nil {
		return nil, fserrors.New(fserrors.IO, op, "", err)
	}
	return data, nil
}

// Write buffers p into handle's content at offset, spilling to the
// extents table once the per-inode flush threshold is crossed.
func (fs *FileSystem) Write(ctx context.Context, h Handle, offset int64, p []byte) (int, error) {
	const op = "write"
	n, err := fs.Cache.WriteAt(ctx, int64(h), offset, p)
	if err != nil {
		return n, fserrors.New(fserrors.IO, op, "", err)
	}
	return n, nil
}

// Truncate shrinks handle's content to length, discarding bytes past
// length (including the partial tail block). Growing a file is
// rejected with InvalidArgument; sqlfuse does not extend files.
func (fs *FileSystem) Truncate(ctx context.Context, h Handle, length int64) error {
	const op = "truncate"
	if length < 0 {
		return fserrors.New(fserrors.InvalidArgument, op, "", nil)
	}

	md, err := fs.Store.GetMetadata(ctx, int64(h))
	if err != nil {
		return fserrors.New(fserrors.IO, op, "", err)
	}
	if length > md.Length {
		// Shrink only: growing a file to a sparse hole is not supported.
		return fserrors.New(fserrors.InvalidArgument, op, "", nil)
	}

	if err := fs.Cache.Truncate(ctx, int64(h), length); err != nil {
		return fserrors.New(fserrors.IO, op, "", err)
	}
	return nil
}

// Flush forces handle's buffered writes to the extents table without
// releasing the handle.
func (fs *FileSystem) Flush(ctx context.Context, h Handle) error {
	if err := fs.Cache.Flush(ctx, int64(h)); err != nil {
		return fserrors.New(fserrors.IO, "flush", "", err)
	}
	return nil
}
