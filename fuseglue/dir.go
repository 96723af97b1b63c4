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
	"github.com/jacobsa/fuse/fuseutil"

	"github.com/sqlfuse/sqlfuse/fs"
)

// dirHandle buffers one Getdir snapshot for the lifetime of an open
// directory descriptor, since fs.FileSystem.Getdir returns everything
// at once but ReadDirOp must be served in kernel-buffer-sized pages
// across repeated calls at increasing offsets.
type dirHandle struct {
	entries []fs.DirEntry
}

func (s *Server) newDirHandle(dh *dirHandle) fuseops.HandleID {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextDir++
	id := s.nextDir
	s.dirHandle[id] = dh
	return id
}

func (s *Server) getDirHandle(id fuseops.HandleID) (*dirHandle, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	dh, ok := s.dirHandle[id]
	return dh, ok
}

func (s *Server) dropDirHandle(id fuseops.HandleID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.dirHandle, id)
}

func (s *Server) OpenDir(ctx context.Context, op *fuseops.OpenDirOp) error {
	path, err := s.pathOf(op.Inode)
	if err != nil {
		return fuse.EIO
	}
	entries, err := s.FS.Getdir(ctx, path, s.identity(ctx))
	if err != nil {
		return toErrno(err)
	}
	op.Handle = s.newDirHandle(&dirHandle{entries: entries})
	return nil
}

func (s *Server) ReadDir(ctx context.Context, op *fuseops.ReadDirOp) error {
	dh, ok := s.getDirHandle(op.Handle)
	if !ok {
		return fuse.EIO
	}

	n := 0
	for i := int(op.Offset); i < len(dh.entries); i++ {
		e := dh.entries[i]
		written := fuseutil.WriteDirent(op.Dst[n:], fuseutil.Dirent{
			Offset: fuseops.DirOffset(i + 1),
			Inode:  fuseops.InodeID(e.Inode),
			Name:   e.Name,
			Type:   direntType(dh, i),
		})
		if written == 0 {
			break
		}
		n += written
	}
	op.BytesRead = n
	return nil
}

// direntType reports the d_type byte ReadDir advertises: "." and ".."
// (indices 0 and 1, always directories by construction in fs.Getdir)
// are DT_Directory; every other entry is DT_Unknown, with no lookup of
// its real type, so callers that need it fall back to stat(2).
func direntType(dh *dirHandle, i int) fuseutil.DirentType {
	if i < 2 {
		return fuseutil.DT_Directory
	}
	return fuseutil.DT_Unknown
}

func (s *Server) ReleaseDirHandle(ctx context.Context, op *fuseops.ReleaseDirHandleOp) error {
	s.dropDirHandle(op.Handle)
	return nil
}
