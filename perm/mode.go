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

package perm

import "github.com/sqlfuse/sqlfuse/fserrors"

// AccessMask is a POSIX r/w/x bitmask: Read=4, Write=2, Execute=1.
type AccessMask uint32

const (
	Execute AccessMask = 1
	Write   AccessMask = 2
	Read    AccessMask = 4
)

// Check evaluates whether id may access an object with the given mode,
// owner uid, and owner gid against the requested mask, per spec §4.4:
//
//	uid == 0                      -> always allowed
//	uid == ownerUid               -> owner triplet (mode>>6)&7 applies
//	ownerGid in id's group set     -> group triplet (mode>>3)&7 applies
//	otherwise                      -> other triplet mode&7 applies
//
// op and path are used only to annotate the returned error.
func Check(mode int64, ownerUid, ownerGid int64, id Identity, want AccessMask, op, path string) error {
	if id.IsRoot() {
		return nil
	}

	var triplet int64
	switch {
	case int64(id.Uid) == ownerUid:
		triplet = (mode >> 6) & 7
	case id.InGroup(uint32(ownerGid)):
		triplet = (mode >> 3) & 7
	default:
		triplet = mode & 7
	}

	if int64(want)&triplet != int64(want) {
		return fserrors.New(fserrors.PermissionDenied, op, path, nil)
	}
	return nil
}

// OpenMask derives the access mask to check for open(2) from the low
// two bits of flags: O_RDONLY needs R, O_WRONLY needs W, O_RDWR needs
// both.
func OpenMask(flags int) AccessMask {
	const (
		oRdonly = 0
		oWronly = 1
		oRdwr   = 2
		oAccmodeMask = 3
	)
	switch flags & oAccmodeMask {
	case oWronly:
		return Write
	case oRdwr:
		return Read | Write
	default:
		return Read
	}
}

// UnchangedOwner is the sentinel meaning "leave this field unchanged"
// in a chown request, per spec §4.4.
const UnchangedOwner int64 = -1

// CheckChown validates a chown request's ownership-mutation rules:
// changing uid requires caller uid 0; changing gid is allowed for
// caller uid 0 or a caller who is a member of the target gid.
func CheckChown(newUid, newGid int64, id Identity, op, path string) error {
	if newUid != UnchangedOwner && !id.IsRoot() {
		return fserrors.New(fserrors.PermissionDenied, op, path, nil)
	}
	if newGid != UnchangedOwner && !id.IsRoot() && !id.InGroup(uint32(newGid)) {
		return fserrors.New(fserrors.PermissionDenied, op, path, nil)
	}
	return nil
}
