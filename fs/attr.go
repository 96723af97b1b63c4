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

	"github.com/sqlfuse/sqlfuse/fserrors"
	"github.com/sqlfuse/sqlfuse/perm"
)

// Getattr returns the stat(2)-equivalent attributes of path.
func (fs *FileSystem) Getattr(ctx context.Context, path string, id perm.Identity) (Attr, error) {
	const op = "getattr"

	entry, err := fs.Resolver.Resolve(ctx, path)
	if err != nil {
		return Attr{}, err
	}
	if err := fs.checkAncestorExecute(ctx, entry, id, op, path); err != nil {
		return Attr{}, err
	}
	md, err := fs.getMetadataOrIO(ctx, op, path, entry.Inode)
	if err != nil {
		return Attr{}, err
	}
	return attrFromRow(md), nil
}

// Access checks whether id may access path under want, without
// returning its attributes.
func (fs *FileSystem) Access(ctx context.Context, path string, want perm.AccessMask, id perm.Identity) error {
	const op = "access"

	entry, err := fs.Resolver.Resolve(ctx, path)
	if err != nil {
		return err
	}
	if err := fs.checkAncestorExecute(ctx, entry, id, op, path); err != nil {
		return err
	}
	md, err := fs.getMetadataOrIO(ctx, op, path, entry.Inode)
	if err != nil {
		return err
	}
	return perm.Check(md.Mode, md.Uid, md.Gid, id, want, op, path)
}

// Chmod changes the permission and special bits of path. Only the
// owner or root may do so.
func (fs *FileSystem) Chmod(ctx context.Context, path string, mode int64, id perm.Identity) (Attr, error) {
	const op = "chmod"

	entry, err := fs.Resolver.Resolve(ctx, path)
	if err != nil {
		return Attr{}, err
	}
	if err := fs.checkAncestorExecute(ctx, entry, id, op, path); err != nil {
		return Attr{}, err
	}
	md, err := fs.getMetadataOrIO(ctx, op, path, entry.Inode)
	if err != nil {
		return Attr{}, err
	}
	if !id.IsRoot() && int64(id.Uid) != md.Uid {
		return Attr{}, fserrors.New(fserrors.PermissionDenied, op, path, nil)
	}

	if err := fs.Store.SetMode(ctx, entry.Inode, mode); err != nil {
		return Attr{}, fserrors.New(fserrors.IO, op, path, err)
	}
	md, err = fs.getMetadataOrIO(ctx, op, path, entry.Inode)
	if err != nil {
		return Attr{}, err
	}
	return attrFromRow(md), nil
}

// Chown changes the owning uid and/or gid of path, subject to the
// rules in perm.CheckChown: a uid change requires root, a gid change
// requires root or membership in the new gid. Either argument may be
// perm.UnchangedOwner to leave that field as is.
func (fs *FileSystem) Chown(ctx context.Context, path string, uid, gid int64, id perm.Identity) (Attr, error) {
	const op = "chown"

	entry, err := fs.Resolver.Resolve(ctx, path)
	if err != nil {
		return Attr{}, err
	}
	if err := fs.checkAncestorExecute(ctx, entry, id, op, path); err != nil {
		return Attr{}, err
	}
	if err := perm.CheckChown(uid, gid, id, op, path); err != nil {
		return Attr{}, err
	}

	if err := fs.Store.SetOwner(ctx, entry.Inode, uid, gid); err != nil {
		return Attr{}, fserrors.New(fserrors.IO, op, path, err)
	}
	md, err := fs.getMetadataOrIO(ctx, op, path, entry.Inode)
	if err != nil {
		return Attr{}, err
	}
	return attrFromRow(md), nil
}

// Utime sets path's atime and/or mtime explicitly. A nil pointer
// leaves that field unchanged.
func (fs *FileSystem) Utime(ctx context.Context, path string, atime, mtime *int64, id perm.Identity) (Attr, error) {
	const op = "utime"

	entry, err := fs.Resolver.Resolve(ctx, path)
	if err != nil {
		return Attr{}, err
	}
	if err := fs.checkAncestorExecute(ctx, entry, id, op, path); err != nil {
		return Attr{}, err
	}
	md, err := fs.getMetadataOrIO(ctx, op, path, entry.Inode)
	if err != nil {
		return Attr{}, err
	}
	if !id.IsRoot() && int64(id.Uid) != md.Uid {
		if err := perm.Check(md.Mode, md.Uid, md.Gid, id, perm.Write, op, path); err != nil {
			return Attr{}, err
		}
	}

	if err := fs.Store.SetTimes(ctx, entry.Inode, atime, mtime); err != nil {
		return Attr{}, fserrors.New(fserrors.IO, op, path, err)
	}
	md, err = fs.getMetadataOrIO(ctx, op, path, entry.Inode)
	if err != nil {
		return Attr{}, err
	}
	return attrFromRow(md), nil
}
