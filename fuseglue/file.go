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

	"github.com/jacobsa/fuse"
	"github.com/jacobsa/fuse/fuseops"

	"github.com/sqlfuse/sqlfuse/fs"
)

// newFileHandle mints a fresh kernel-facing handle ID for an
// already-open fs.Handle. Every OpenFile/CreateFile gets its own
// kernel handle even when they name the same inode, matching FUSE's
// per-open-call handle semantics; fs.FileSystem's own inuse count
// (incremented once per fs.Handle) is what actually tracks references
// for orphan collection.
func (s *Server) newFileHandle(h fs.Handle) fuseops.HandleID {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextFile++
	id := s.nextFile
	s.fileOf[id] = h
	return id
}

func (s *Server) fileHandle(id fuseops.HandleID) (fs.Handle, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.fileOf[id]
	return h, ok
}

func (s *Server) dropFileHandle(id fuseops.HandleID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.fileOf, id)
}

func (s *Server) OpenFile(ctx context.Context, op *fuseops.OpenFileOp) error {
	path, err := s.pathOf(op.Inode)
	if err != nil {
		return fuse.EIO
	}
	h, err := s.FS.Open(ctx, path, flagsFromOpenFileOp(op), s.identity(ctx))
	if err != nil {
		return toErrno(err)
	}
	op.Handle = s.newFileHandle(h)
	return nil
}

// flagsFromOpenFileOp recovers an open(2)-style flag word from the op's
// intent bits: jacobsa/fuse exposes the kernel's read/write intent as
// two booleans rather than the raw flags int that perm.OpenMask wants.
func flagsFromOpenFileOp(op *fuseops.OpenFileOp) int {
	switch {
	case op.OpenFlags.IsReadWrite():
		return 2 // O_RDWR
	case op.OpenFlags.IsWriteOnly():
		return 1 // O_WRONLY
	default:
		return 0 // O_RDONLY
	}
}

func (s *Server) ReadFile(ctx context.Context, op *fuseops.ReadFileOp) error {
	h, ok := s.fileHandle(op.Handle)
	if !ok {
		return fuse.EIO
	}
	data, err := s.FS.Read(ctx, h, op.Offset, int64(len(op.Dst)))
	if err != nil {
		return toErrno(err)
	}
	op.BytesRead = copy(op.Dst, data)
	return nil
}

func (s *Server) WriteFile(ctx context.Context, op *fuseops.WriteFileOp) error {
	h, ok := s.fileHandle(op.Handle)
	if !ok {
		return fuse.EIO
	}
	if _, err := s.FS.Write(ctx, h, op.Offset, op.Data); err != nil {
		return toErrno(err)
	}
	return nil
}

func (s *Server) SyncFile(ctx context.Context, op *fuseops.SyncFileOp) error {
	h, ok := s.fileHandle(op.Handle)
	if !ok {
		return fuse.EIO
	}
	if err := s.FS.Flush(ctx, h); err != nil {
		return toErrno(err)
	}
	return nil
}

func (s *Server) FlushFile(ctx context.Context, op *fuseops.FlushFileOp) error {
	h, ok := s.fileHandle(op.Handle)
	if !ok {
		return fuse.EIO
	}
	if err := s.FS.Flush(ctx, h); err != nil {
		return toErrno(err)
	}
	return nil
}

func (s *Server) ReleaseFileHandle(ctx context.Context, op *fuseops.ReleaseFileHandleOp) error {
	h, ok := s.fileHandle(op.Handle)
	if !ok {
		return nil
	}
	s.dropFileHandle(op.Handle)
	if err := s.FS.Release(ctx, h); err != nil {
		return toErrno(err)
	}
	return nil
}

func (s *Server) ReadSymlink(ctx context.Context, op *fuseops.ReadSymlinkOp) error {
	path, err := s.pathOf(op.Inode)
	if err != nil {
		return fuse.EIO
	}
	target, err := s.FS.Readlink(ctx, path, s.identity(ctx))
	if err != nil {
		return toErrno(err)
	}
	op.Target = target
	return nil
}
