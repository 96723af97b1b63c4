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

// Package fs implements the Operation Surface: the POSIX calls a mount
// point dispatches, expressed against textual paths rather than FUSE's
// own inode numbers. Package fuseglue binds this surface to a kernel
// mount; nothing here otherwise knows that FUSE exists.
package fs

import (
	"context"
	"fmt"
	stdpath "path"

	"github.com/sqlfuse/sqlfuse/blockcache"
	"github.com/sqlfuse/sqlfuse/fserrors"
	"github.com/sqlfuse/sqlfuse/pathresolve"
	"github.com/sqlfuse/sqlfuse/perm"
	"github.com/sqlfuse/sqlfuse/store"
)

// splitPath divides an absolute path into its parent directory and
// final component: splitPath("/a/b") == ("/a", "b"); splitPath("/x")
// == ("/", "x").
func splitPath(p string) (parent, name string) {
	return stdpath.Dir(p), stdpath.Base(p)
}

// FileSystem is the Operation Surface, built directly on a Store, a
// Resolver, and a block Cache. One FileSystem per mount; it holds no
// per-request state of its own beyond what the Store and Cache track.
type FileSystem struct {
	Store    *store.Store
	Resolver *pathresolve.Resolver
	Cache    *blockcache.Cache
	Groups   *perm.GroupCache
}

// Config bundles the values a launcher gathers from flags and the
// FUSE mount options before constructing a FileSystem.
type Config struct {
	Store             *store.Store
	BlockSize         int64
	FlushThreshold    int
	IgnorePermissions bool
}

// New builds a FileSystem over cfg.Store, wiring a fresh Resolver and
// block Cache sized from cfg.
func New(cfg Config) *FileSystem {
	resolver := pathresolve.New(cfg.Store)
	resolver.IgnorePermissions = cfg.IgnorePermissions

	return &FileSystem{
		Store:    cfg.Store,
		Resolver: resolver,
		Cache:    blockcache.New(cfg.Store, cfg.BlockSize, cfg.FlushThreshold),
		Groups:   perm.NewGroupCache(),
	}
}

// Attr is the stat(2)-equivalent view of one inode returned by
// Getattr and by every operation that creates or mutates an inode.
type Attr struct {
	Inode  int64
	Mode   int64
	Uid    int64
	Gid    int64
	Rdev   int64
	Links  int64
	Length int64
	Mtime  int64
	Ctime  int64
	Atime  int64
}

func attrFromRow(row *store.MetadataRow) Attr {
	return Attr{
		Inode:  row.Inode,
		Mode:   row.Mode,
		Uid:    row.Uid,
		Gid:    row.Gid,
		Rdev:   row.Rdev,
		Links:  row.Links,
		Length: row.Length,
		Mtime:  row.Mtime,
		Ctime:  row.Ctime,
		Atime:  row.Atime,
	}
}

// DirEntry is one line of a directory listing.
type DirEntry struct {
	Name  string
	Inode int64
}

// resolveDir resolves path and requires it to name a directory,
// returning its metadata row alongside the resolved inode number.
func (fs *FileSystem) resolveDir(ctx context.Context, op, path string) (int64, *store.MetadataRow, error) {
	entry, err := fs.Resolver.Resolve(ctx, path)
	if err != nil {
		return 0, nil, err
	}
	md, err := fs.Store.GetMetadata(ctx, entry.Inode)
	if err != nil {
		return 0, nil, fserrors.New(fserrors.IO, op, path, err)
	}
	if !md.IsDir() {
		return 0, nil, fserrors.New(fserrors.NotDirectory, op, path, nil)
	}
	return entry.Inode, md, nil
}

// getMetadataOrIO fetches inode's metadata, wrapping a missing row
// (which should not happen for a resolved inode) as an IO error rather
// than leaking a bare sql.ErrNoRows.
func (fs *FileSystem) getMetadataOrIO(ctx context.Context, op, path string, inode int64) (*store.MetadataRow, error) {
	md, err := fs.Store.GetMetadata(ctx, inode)
	if err != nil {
		return nil, fserrors.New(fserrors.IO, op, path, fmt.Errorf("metadata for inode %d: %w", inode, err))
	}
	return md, nil
}

// checkAncestorExecute requires execute permission on every ancestor
// of entry, starting at entry.Parent; entry itself is never checked,
// whatever its type (resolveDir callers that need a directory's own
// execute bit pass that inode to the resolver directly instead of
// going through here). The root has no parent and needs no check.
func (fs *FileSystem) checkAncestorExecute(ctx context.Context, entry *pathresolve.Entry, id perm.Identity, op, path string) error {
	if entry.Parent == nil {
		return nil
	}
	return fs.Resolver.CheckAncestorExecute(ctx, *entry.Parent, id, op, path)
}
