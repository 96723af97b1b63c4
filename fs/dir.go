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

// Mkdir creates a directory at path with permission bits mode masked
// by umask, links=2, and bumps the parent's link count by one (the
// new ".." reference), per spec §4.6.
func (fs *FileSystem) Mkdir(ctx context.Context, path string, mode int64, umask int64, id perm.Identity) (Attr, error) {
	const op = "mkdir"

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

	effMode := store.ModeDirectory | ((mode &^ umask) & 0777)

	var inode int64
	err = fs.Store.WithTxn(ctx, func(tx *sqlx.Tx) error {
		var err error
		inode, err = fs.Store.InsertInode(ctx, tx, effMode, int64(id.Uid), int64(id.Gid), 0, 2)
		if err != nil {
			return err
		}
		if err := fs.Store.InsertPath(ctx, tx, &parentInode, name, inode); err != nil {
			return err
		}
		return fs.Store.UpdateLinks(ctx, tx, parentInode, 1)
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

// Rmdir removes an empty directory at path, decrementing links on
// both the target and its parent, then runs orphan collection.
func (fs *FileSystem) Rmdir(ctx context.Context, path string, id perm.Identity) error {
	const op = "rmdir"

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
	if !targetMd.IsDir() {
		return fserrors.New(fserrors.NotDirectory, op, path, nil)
	}

	count, err := fs.Store.CountChildren(ctx, target.Inode)
	if err != nil {
		return fserrors.New(fserrors.IO, op, path, err)
	}
	if count != 0 {
		return fserrors.New(fserrors.NotEmpty, op, path, nil)
	}

	err = fs.Store.WithTxn(ctx, func(tx *sqlx.Tx) error {
		if _, err := fs.Store.DeletePath(ctx, tx, parentInode, name); err != nil {
			return err
		}
		if err := fs.Store.UpdateLinks(ctx, tx, target.Inode, -1); err != nil {
			return err
		}
		if err := fs.Store.UpdateLinks(ctx, tx, parentInode, -1); err != nil {
			return err
		}
		if err := fs.Store.TouchCtimeMtime(ctx, tx, parentInode); err != nil {
			return err
		}
		if _, err := fs.Store.DeleteInodeIfOrphan(ctx, tx, target.Inode); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return fserrors.New(fserrors.IO, op, path, err)
	}
	fs.Cache.Discard(target.Inode)
	return nil
}

// Getdir lists the contents of the directory at path as "." and ".."
// followed by every child name, per spec §4.6.
func (fs *FileSystem) Getdir(ctx context.Context, path string, id perm.Identity) ([]DirEntry, error) {
	const op = "getdir"

	inode, md, err := fs.resolveDir(ctx, op, path)
	if err != nil {
		return nil, err
	}
	if err := fs.Resolver.CheckAncestorExecute(ctx, inode, id, op, path); err != nil {
		return nil, err
	}
	if err := perm.Check(md.Mode, md.Uid, md.Gid, id, perm.Read|perm.Execute, op, path); err != nil {
		return nil, err
	}

	children, err := fs.Store.Children(ctx, inode)
	if err != nil {
		return nil, fserrors.New(fserrors.IO, op, path, err)
	}

	parent, err := fs.Store.ParentOf(ctx, inode)
	if err != nil {
		return nil, fserrors.New(fserrors.IO, op, path, err)
	}
	dotdot := inode
	if parent != nil {
		dotdot = *parent
	}

	entries := make([]DirEntry, 0, len(children)+2)
	entries = append(entries, DirEntry{Name: ".", Inode: inode}, DirEntry{Name: "..", Inode: dotdot})
	for _, c := range children {
		entries = append(entries, DirEntry{Name: c.Name, Inode: c.Inode})
	}
	return entries, nil
}
