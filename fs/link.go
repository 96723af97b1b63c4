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

// Link resolves oldPath, inserts a new path row at newPath referring
// to the same inode, bumps links on the target, and touches the new
// parent's mtime/ctime; the new parent's link count is unchanged.
func (fs *FileSystem) Link(ctx context.Context, oldPath, newPath string, id perm.Identity) (Attr, error) {
	const op = "link"

	oldEntry, err := fs.Resolver.Resolve(ctx, oldPath)
	if err != nil {
		return Attr{}, err
	}
	if err := fs.checkAncestorExecute(ctx, oldEntry, id, op, oldPath); err != nil {
		return Attr{}, err
	}
	targetMd, err := fs.getMetadataOrIO(ctx, op, oldPath, oldEntry.Inode)
	if err != nil {
		return Attr{}, err
	}
	if targetMd.IsDir() {
		return Attr{}, fserrors.New(fserrors.IsDirectory, op, oldPath, nil)
	}

	newParentPath, newName := splitPath(newPath)
	newParentInode, newParentMd, err := fs.resolveDir(ctx, op, newParentPath)
	if err != nil {
		return Attr{}, err
	}
	if err := fs.Resolver.CheckAncestorExecute(ctx, newParentInode, id, op, newPath); err != nil {
		return Attr{}, err
	}
	if err := perm.Check(newParentMd.Mode, newParentMd.Uid, newParentMd.Gid, id, perm.Write|perm.Execute, op, newPath); err != nil {
		return Attr{}, err
	}
	if _, err := fs.Store.LookupChild(ctx, newParentInode, newName); err == nil {
		return Attr{}, fserrors.New(fserrors.InvalidArgument, op, newPath, nil)
	}

	err = fs.Store.WithTxn(ctx, func(tx *sqlx.Tx) error {
		if err := fs.Store.InsertPath(ctx, tx, &newParentInode, newName, oldEntry.Inode); err != nil {
			return err
		}
		if err := fs.Store.UpdateLinks(ctx, tx, oldEntry.Inode, 1); err != nil {
			return err
		}
		return fs.Store.TouchCtimeMtime(ctx, tx, newParentInode)
	})
	if err != nil {
		return Attr{}, fserrors.New(fserrors.IO, op, newPath, err)
	}

	md, err := fs.getMetadataOrIO(ctx, op, newPath, oldEntry.Inode)
	if err != nil {
		return Attr{}, err
	}
	return attrFromRow(md), nil
}

// Unlink removes the path entry at path. It fails if path names a
// directory. The target inode loses one link (the parent's link count
// is unchanged); the parent's mtime/ctime are touched; orphan
// collection follows.
func (fs *FileSystem) Unlink(ctx context.Context, path string, id perm.Identity) error {
	const op = "unlink"

	parentPath, name := splitPath(path)
	parentInode, parentMd, err := fs.resolveDir(ctx, op, parentPath)
	if err != nil {
		return err
	}
	if err := fs.Resolver.CheckAncestorExecute(ctx, parentInode, id, op, path); err != nil {
		return err
	}
	if err := perm.Check(parentMd.Mode, parentMd.Uid, parentMd.Gid, id, perm.Write|perm.Execute, op, path); err != nil {
		return err
	}

	target, err := fs.Store.LookupChild(ctx, parentInode, name)
	if err != nil {
		return fserrors.New(fserrors.NotFound, op, path, nil)
	}
	targetMd, err := fs.getMetadataOrIO(ctx, op, path, target.Inode)
	if err != nil {
		return err
	}
	if targetMd.IsDir() {
		return fserrors.New(fserrors.IsDirectory, op, path, nil)
	}

	var destroyed bool
	err = fs.Store.WithTxn(ctx, func(tx *sqlx.Tx) error {
		if _, err := fs.Store.DeletePath(ctx, tx, parentInode, name); err != nil {
			return err
		}
		if err := fs.Store.UpdateLinks(ctx, tx, target.Inode, -1); err != nil {
			return err
		}
		if err := fs.Store.TouchCtimeMtime(ctx, tx, parentInode); err != nil {
			return err
		}
		var err error
		destroyed, err = fs.Store.DeleteInodeIfOrphan(ctx, tx, target.Inode)
		return err
	})
	if err != nil {
		return fserrors.New(fserrors.IO, op, path, err)
	}
	if destroyed {
		fs.Cache.Discard(target.Inode)
	}
	return nil
}

// Rename moves oldPath to newPath, implemented exactly as
// link(old,new) followed by unlink(old), so hard-link semantics make
// orphaning impossible (spec §4.6, law L6).
func (fs *FileSystem) Rename(ctx context.Context, oldPath, newPath string, id perm.Identity) error {
	if _, err := fs.Link(ctx, oldPath, newPath, id); err != nil {
		return err
	}
	return fs.Unlink(ctx, oldPath, id)
}

// Symlink creates a symlink inode at linkPath whose stored content is
// target, using the same write/flush machinery as a regular file.
func (fs *FileSystem) Symlink(ctx context.Context, target, linkPath string, id perm.Identity) (Attr, error) {
	const op = "symlink"

	parentPath, name := splitPath(linkPath)
	parentInode, parentMd, err := fs.resolveDir(ctx, op, parentPath)
	if err != nil {
		return Attr{}, err
	}
	if err := fs.Resolver.CheckAncestorExecute(ctx, parentInode, id, op, linkPath); err != nil {
		return Attr{}, err
	}
	if err := perm.Check(parentMd.Mode, parentMd.Uid, parentMd.Gid, id, perm.Write|perm.Execute, op, linkPath); err != nil {
		return Attr{}, err
	}
	if _, err := fs.Store.LookupChild(ctx, parentInode, name); err == nil {
		return Attr{}, fserrors.New(fserrors.InvalidArgument, op, linkPath, nil)
	}

	var inode int64
	err = fs.Store.WithTxn(ctx, func(tx *sqlx.Tx) error {
		var err error
		inode, err = fs.Store.InsertInode(ctx, tx, store.ModeSymlink|0777, int64(id.Uid), int64(id.Gid), 0, 1)
		if err != nil {
			return err
		}
		if err := fs.Store.InsertPath(ctx, tx, &parentInode, name, inode); err != nil {
			return err
		}
		return fs.Store.TouchCtimeMtime(ctx, tx, parentInode)
	})
	if err != nil {
		return Attr{}, fserrors.New(fserrors.IO, op, linkPath, err)
	}

	if err := fs.Cache.WriteSymlinkTarget(ctx, inode, target); err != nil {
		return Attr{}, fserrors.New(fserrors.IO, op, linkPath, err)
	}

	md, err := fs.getMetadataOrIO(ctx, op, linkPath, inode)
	if err != nil {
		return Attr{}, err
	}
	return attrFromRow(md), nil
}

// Readlink returns the stored target of the symlink at path.
func (fs *FileSystem) Readlink(ctx context.Context, path string, id perm.Identity) (string, error) {
	const op = "readlink"

	entry, err := fs.Resolver.Resolve(ctx, path)
	if err != nil {
		return "", err
	}
	if err := fs.checkAncestorExecute(ctx, entry, id, op, path); err != nil {
		return "", err
	}
	md, err := fs.getMetadataOrIO(ctx, op, path, entry.Inode)
	if err != nil {
		return "", err
	}
	if !md.IsSymlink() {
		return "", fserrors.New(fserrors.InvalidArgument, op, path, nil)
	}

	return fs.Cache.ReadSymlinkTarget(ctx, entry.Inode, md.Length)
}
