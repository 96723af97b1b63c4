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

package fuseglue

import (
	"context"
	"os"

	"github.com/jacobsa/fuse"
	"github.com/jacobsa/fuse/fuseops"
)

func (s *Server) Init(ctx context.Context, op *fuseops.InitOp) error {
	s.remember(rootInodeID, rootInodeID, "/")
	return nil
}

func (s *Server) Destroy() {}

func (s *Server) StatFS(ctx context.Context, op *fuseops.StatFSOp) error {
	// Free-space accounting is a non-goal (spec §1); report generous
	// fixed values so callers of statfs(2) (e.g. "df") don't choke on
	// zeros.
	op.BlockSize = 4096
	op.Blocks = 1 << 30
	op.BlocksFree = 1 << 29
	op.BlocksAvailable = 1 << 29
	op.IoSize = 4096
	return nil
}

func (s *Server) LookUpInode(ctx context.Context, op *fuseops.LookUpInodeOp) error {
	parentPath, err := s.pathOf(op.Parent)
	if err != nil {
		return fuse.EIO
	}
	path := joinPath(parentPath, op.Name)

	attr, err := s.FS.Getattr(ctx, path, s.identity(ctx))
	if err != nil {
		return toErrno(err)
	}

	child := fuseops.InodeID(attr.Inode)
	op.Entry.Child = child
	op.Entry.Attributes = attrToFuse(attr)
	s.remember(child, op.Parent, op.Name)
	return nil
}

func (s *Server) GetInodeAttributes(ctx context.Context, op *fuseops.GetInodeAttributesOp) error {
	path, err := s.pathOf(op.Inode)
	if err != nil {
		return fuse.EIO
	}
	attr, err := s.FS.Getattr(ctx, path, s.identity(ctx))
	if err != nil {
		return toErrno(err)
	}
	op.Attributes = attrToFuse(attr)
	return nil
}

func (s *Server) SetInodeAttributes(ctx context.Context, op *fuseops.SetInodeAttributesOp) error {
	path, err := s.pathOf(op.Inode)
	if err != nil {
		return fuse.EIO
	}
	id := s.identity(ctx)

	if op.Mode != nil {
		if _, err := s.FS.Chmod(ctx, path, int64(op.Mode.Perm())|specialBitsOf(*op.Mode), id); err != nil {
			return toErrno(err)
		}
	}
	if op.Atime != nil || op.Mtime != nil {
		var atime, mtime *int64
		if op.Atime != nil {
			v := op.Atime.Unix()
			atime = &v
		}
		if op.Mtime != nil {
			v := op.Mtime.Unix()
			mtime = &v
		}
		if _, err := s.FS.Utime(ctx, path, atime, mtime, id); err != nil {
			return toErrno(err)
		}
	}
	if op.Size != nil {
		h, err := s.FS.Open(ctx, path, os.O_WRONLY, id)
		if err != nil {
			return toErrno(err)
		}
		err = s.FS.Truncate(ctx, h, int64(*op.Size))
		_ = s.FS.Release(ctx, h)
		if err != nil {
			return toErrno(err)
		}
	}
	attr, err := s.FS.Getattr(ctx, path, id)
	if err != nil {
		return toErrno(err)
	}
	op.Attributes = attrToFuse(attr)
	return nil
}

// specialBitsOf extracts setuid/setgid/sticky from m, which os.FileMode
// represents with its own bit layout rather than the raw octal one
// store.MetadataRow uses.
func specialBitsOf(m os.FileMode) int64 {
	var bits int64
	if m&os.ModeSetuid != 0 {
		bits |= 04000
	}
	if m&os.ModeSetgid != 0 {
		bits |= 02000
	}
	if m&os.ModeSticky != 0 {
		bits |= 01000
	}
	return bits
}

func (s *Server) ForgetInode(ctx context.Context, op *fuseops.ForgetInodeOp) error {
	s.forget(op.Inode, op.N)
	return nil
}

func (s *Server) MkDir(ctx context.Context, op *fuseops.MkDirOp) error {
	parentPath, err := s.pathOf(op.Parent)
	if err != nil {
		return fuse.EIO
	}
	id := s.identity(ctx)
	attr, err := s.FS.Mkdir(ctx, joinPath(parentPath, op.Name), int64(op.Mode.Perm()), 0, id)
	if err != nil {
		return toErrno(err)
	}
	child := fuseops.InodeID(attr.Inode)
	op.Entry.Child = child
	op.Entry.Attributes = attrToFuse(attr)
	s.remember(child, op.Parent, op.Name)
	return nil
}

func (s *Server) MkNode(ctx context.Context, op *fuseops.MkNodeOp) error {
	parentPath, err := s.pathOf(op.Parent)
	if err != nil {
		return fuse.EIO
	}
	id := s.identity(ctx)
	attr, err := s.FS.Mknod(ctx, joinPath(parentPath, op.Name), int64(op.Mode.Perm()), 0, 0, id)
	if err != nil {
		return toErrno(err)
	}
	child := fuseops.InodeID(attr.Inode)
	op.Entry.Child = child
	op.Entry.Attributes = attrToFuse(attr)
	s.remember(child, op.Parent, op.Name)
	return nil
}

func (s *Server) CreateFile(ctx context.Context, op *fuseops.CreateFileOp) error {
	parentPath, err := s.pathOf(op.Parent)
	if err != nil {
		return fuse.EIO
	}
	id := s.identity(ctx)
	h, attr, err := s.FS.Create(ctx, joinPath(parentPath, op.Name), int64(op.Mode.Perm()), 0, os.O_RDWR, id)
	if err != nil {
		return toErrno(err)
	}
	child := fuseops.InodeID(attr.Inode)
	op.Entry.Child = child
	op.Entry.Attributes = attrToFuse(attr)
	op.Handle = s.newFileHandle(h)
	s.remember(child, op.Parent, op.Name)
	return nil
}

func (s *Server) CreateSymlink(ctx context.Context, op *fuseops.CreateSymlinkOp) error {
	parentPath, err := s.pathOf(op.Parent)
	if err != nil {
		return fuse.EIO
	}
	id := s.identity(ctx)
	attr, err := s.FS.Symlink(ctx, op.Target, joinPath(parentPath, op.Name), id)
	if err != nil {
		return toErrno(err)
	}
	child := fuseops.InodeID(attr.Inode)
	op.Entry.Child = child
	op.Entry.Attributes = attrToFuse(attr)
	s.remember(child, op.Parent, op.Name)
	return nil
}

func (s *Server) CreateLink(ctx context.Context, op *fuseops.CreateLinkOp) error {
	targetPath, err := s.pathOf(op.Target)
	if err != nil {
		return fuse.EIO
	}
	parentPath, err := s.pathOf(op.Parent)
	if err != nil {
		return fuse.EIO
	}
	id := s.identity(ctx)
	attr, err := s.FS.Link(ctx, targetPath, joinPath(parentPath, op.Name), id)
	if err != nil {
		return toErrno(err)
	}
	op.Entry.Child = op.Target
	op.Entry.Attributes = attrToFuse(attr)
	s.remember(op.Target, op.Parent, op.Name)
	return nil
}

func (s *Server) Rename(ctx context.Context, op *fuseops.RenameOp) error {
	oldParentPath, err := s.pathOf(op.OldParent)
	if err != nil {
		return fuse.EIO
	}
	newParentPath, err := s.pathOf(op.NewParent)
	if err != nil {
		return fuse.EIO
	}
	id := s.identity(ctx)
	oldPath := joinPath(oldParentPath, op.OldName)
	newPath := joinPath(newParentPath, op.NewName)

	entry, err := s.FS.Resolver.Resolve(ctx, oldPath)
	if err != nil {
		return toErrno(err)
	}
	if err := s.FS.Rename(ctx, oldPath, newPath, id); err != nil {
		return toErrno(err)
	}
	s.repoint(fuseops.InodeID(entry.Inode), op.NewParent, op.NewName)
	return nil
}

func (s *Server) RmDir(ctx context.Context, op *fuseops.RmDirOp) error {
	parentPath, err := s.pathOf(op.Parent)
	if err != nil {
		return fuse.EIO
	}
	if err := s.FS.Rmdir(ctx, joinPath(parentPath, op.Name), s.identity(ctx)); err != nil {
		return toErrno(err)
	}
	return nil
}

func (s *Server) Unlink(ctx context.Context, op *fuseops.UnlinkOp) error {
	parentPath, err := s.pathOf(op.Parent)
	if err != nil {
		return fuse.EIO
	}
	if err := s.FS.Unlink(ctx, joinPath(parentPath, op.Name), s.identity(ctx)); err != nil {
		return toErrno(err)
	}
	return nil
}

func joinPath(parent, name string) string {
	if parent == "/" {
		return "/" + name
	}
	return parent + "/" + name
}
