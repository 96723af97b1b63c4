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

// Package fuseglue binds the path-based Operation Surface in package fs
// to a kernel mount, dispatching fuseops.Op values by inode number the
// way the teacher's fs.fileSystem does against GCS objects. Besides
// cmd/sqlfusemount, which mounts it, it is the only package in this
// module that imports jacobsa/fuse.
package fuseglue

import (
	"context"
	"fmt"
	"os"
	"os/user"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/jacobsa/fuse"
	"github.com/jacobsa/fuse/fuseops"
	"github.com/jacobsa/fuse/fuseutil"

	"github.com/sqlfuse/sqlfuse/fs"
	"github.com/sqlfuse/sqlfuse/fserrors"
	"github.com/sqlfuse/sqlfuse/internal/logger"
	"github.com/sqlfuse/sqlfuse/perm"
)

// locator is how Server recovers a textual path for an inode the
// kernel already knows about: the inode's parent and the name it was
// looked up under. Composing the chain of locators up to the root
// reconstructs an absolute path without needing a second index into
// the path table, and survives Rename (which only ever rewrites the
// single locator of the entry that moved).
type locator struct {
	parent fuseops.InodeID
	name   string
}

// Server adapts *fs.FileSystem to fuseutil.FileSystem. One Server per
// mount.
type Server struct {
	FS     *fs.FileSystem
	Groups *perm.GroupCache

	mu        sync.Mutex
	locators  map[fuseops.InodeID]locator
	lookups   map[fuseops.InodeID]uint64
	nextDir   fuseops.HandleID
	nextFile  fuseops.HandleID
	dirHandle map[fuseops.HandleID]*dirHandle
	fileOf    map[fuseops.HandleID]fs.Handle
}

var _ fuseutil.FileSystem = (*Server)(nil)

// New builds a Server over fsys. The root inode's locator is recorded
// by Init; pathOf resolves the root without one, so path
// reconstruction always terminates.
func New(fsys *fs.FileSystem) *Server {
	return &Server{
		FS:        fsys,
		Groups:    fsys.Groups,
		locators:  make(map[fuseops.InodeID]locator),
		lookups:   make(map[fuseops.InodeID]uint64),
		dirHandle: make(map[fuseops.HandleID]*dirHandle),
		fileOf:    make(map[fuseops.HandleID]fs.Handle),
	}
}

const rootInodeID = fuseops.InodeID(1) // matches fuseops.RootInodeID and store.RootInode

// pathOf walks the locator chain from inode up to the root, building
// an absolute path. Called only for inodes the kernel has already
// looked up (or the root), per the FUSE contract that a parent is
// always resolved before a child.
func (s *Server) pathOf(inode fuseops.InodeID) (string, error) {
	if inode == rootInodeID {
		return "/", nil
	}

	s.mu.Lock()
	loc, ok := s.locators[inode]
	s.mu.Unlock()
	if !ok {
		return "", fmt.Errorf("no locator cached for inode %d", inode)
	}

	parentPath, err := s.pathOf(loc.parent)
	if err != nil {
		return "", err
	}
	if parentPath == "/" {
		return "/" + loc.name, nil
	}
	return parentPath + "/" + loc.name, nil
}

// remember records (or re-points) child's locator and bumps its kernel
// lookup count by one, mirroring the implicit reference every
// ChildInodeEntry the kernel receives carries.
func (s *Server) remember(child fuseops.InodeID, parent fuseops.InodeID, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.locators[child] = locator{parent: parent, name: name}
	s.lookups[child]++
}

// repoint re-points child's locator without touching its lookup count:
// Rename in the kernel sense doesn't hand out a fresh reference.
func (s *Server) repoint(child fuseops.InodeID, newParent fuseops.InodeID, newName string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.locators[child] = locator{parent: newParent, name: newName}
}

func (s *Server) forget(inode fuseops.InodeID, n uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	remaining := s.lookups[inode]
	if remaining <= n {
		delete(s.lookups, inode)
		delete(s.locators, inode)
		return
	}
	s.lookups[inode] = remaining - n
}

// identity extracts the calling process's uid/gid/groups from ctx,
// falling back to root if the kernel didn't attach one (e.g. in unit
// tests driving the Server directly).
func (s *Server) identity(ctx context.Context) perm.Identity {
	opCtx, ok := fuseops.OpContextFromContext(ctx)
	if !ok {
		return perm.Identity{Uid: 0, Gid: 0}
	}

	id := perm.Identity{Uid: opCtx.Uid, Gid: opCtx.Gid}
	if u, err := user.LookupId(strconv.Itoa(int(opCtx.Uid))); err == nil {
		id.Groups = s.Groups.Lookup(opCtx.Uid, u.Username)
	}
	return id
}

// toErrno maps a *fserrors.Error's Kind to the errno the kernel
// expects back, per spec §4.2's taxonomy-to-errno table.
func toErrno(err error) error {
	if err == nil {
		return nil
	}
	switch fserrors.KindOf(err) {
	case fserrors.NotFound:
		return fuse.ENOENT
	case fserrors.IsDirectory:
		return fuse.EISDIR
	case fserrors.NotDirectory:
		return fuse.ENOTDIR
	case fserrors.NotEmpty:
		return fuse.ENOTEMPTY
	case fserrors.PermissionDenied:
		// The jacobsa binding exports no fuse.EACCES constant; the
		// kernel wants back a plain syscall.Errno, which fuse.Errno
		// itself is a thin wrapper around, so this round-trips fine.
		return syscall.EACCES
	case fserrors.InvalidArgument:
		return fuse.EINVAL
	default:
		logger.Errorf("io error: %v", err)
		return fuse.EIO
	}
}

func attrToFuse(a fs.Attr) fuseops.InodeAttributes {
	return fuseops.InodeAttributes{
		Size:  uint64(a.Length),
		Nlink: uint32(a.Links),
		Mode:  fileTypeBits(a.Mode) | os.FileMode(a.Mode&07777),
		Uid:   uint32(a.Uid),
		Gid:   uint32(a.Gid),
		Atime: time.Unix(a.Atime, 0),
		Mtime: time.Unix(a.Mtime, 0),
		Ctime: time.Unix(a.Ctime, 0),
	}
}

// fileTypeBits translates the store's stat(2)-style type nibble into
// the os.FileMode type bits fuseops.InodeAttributes expects.
func fileTypeBits(mode int64) os.FileMode {
	const (
		modeTypeMask   = 0170000
		modeDirectory  = 0040000
		modeSymlink    = 0120000
		modeCharDevice = 0020000
		modeBlockDevice = 0060000
		modeFIFO       = 0010000
		modeSocket     = 0140000
	)
	switch mode & modeTypeMask {
	case modeDirectory:
		return os.ModeDir
	case modeSymlink:
		return os.ModeSymlink
	case modeCharDevice:
		return os.ModeCharDevice
	case modeBlockDevice:
		return os.ModeDevice
	case modeFIFO:
		return os.ModeNamedPipe
	case modeSocket:
		return os.ModeSocket
	default:
		return 0
	}
}
