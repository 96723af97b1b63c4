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

// Package perm implements the Permission & Identity component: process
// and FUSE-request identity, supplementary-group enumeration, and mode
// evaluation (spec §4.4).
package perm

import (
	"bufio"
	"os"
	"os/user"
	"strconv"
	"strings"
	"sync"
	"syscall"
)

// Identity is the effective caller a permission check is evaluated
// against: uid plus every group the caller belongs to (primary and
// supplementary).
type Identity struct {
	Uid    uint32
	Gid    uint32
	Groups []uint32
}

// InGroup reports whether gid is the caller's primary group or one of
// its supplementary groups.
func (id Identity) InGroup(gid uint32) bool {
	if id.Gid == gid {
		return true
	}
	for _, g := range id.Groups {
		if g == gid {
			return true
		}
	}
	return false
}

// IsRoot reports whether the caller is uid 0, which short-circuits
// every permission and ancestor-execute check to success.
func (id Identity) IsRoot() bool {
	return id.Uid == 0
}

// GroupCache caches a user's supplementary groups across the lifetime
// of the process, keyed by uid. Entries are added, never removed or
// invalidated: a race between two threads computing the same uid's
// groups for the first time is benign, since both computations agree.
type GroupCache struct {
	mu    sync.Mutex
	byUID map[uint32][]uint32
}

func NewGroupCache() *GroupCache {
	return &GroupCache{byUID: make(map[uint32][]uint32)}
}

// Lookup returns the supplementary groups for uid, computing and
// caching them on first use by enumerating the group database once and
// retaining every group whose member list contains username.
func (c *GroupCache) Lookup(uid uint32, username string) []uint32 {
	c.mu.Lock()
	if groups, ok := c.byUID[uid]; ok {
		c.mu.Unlock()
		return groups
	}
	c.mu.Unlock()

	groups := groupsForUser(username)

	c.mu.Lock()
	c.byUID[uid] = groups
	c.mu.Unlock()

	return groups
}

// groupsForUser enumerates /etc/group once, returning the gid of every
// group whose comma-separated member list contains username. Failure
// to open the group database yields no supplementary groups rather
// than an error: a filesystem should not refuse every operation just
// because /etc/group is unreadable in its mount namespace.
func groupsForUser(username string) []uint32 {
	f, err := os.Open("/etc/group")
	if err != nil {
		return nil
	}
	defer f.Close()

	var groups []uint32
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Split(line, ":")
		if len(fields) < 4 {
			continue
		}
		gid, err := strconv.ParseUint(fields[2], 10, 32)
		if err != nil {
			continue
		}
		members := strings.Split(fields[3], ",")
		for _, m := range members {
			if m == username {
				groups = append(groups, uint32(gid))
				break
			}
		}
	}
	return groups
}

// ProcessIdentity returns the identity and umask of the calling
// process, used when sqlfuse is used as a direct library rather than
// through a FUSE mount (spec §4.4).
func ProcessIdentity(cache *GroupCache) (Identity, uint32) {
	uid := uint32(os.Getuid())
	gid := uint32(os.Getgid())

	var groups []uint32
	if u, err := user.LookupId(strconv.Itoa(int(uid))); err == nil {
		groups = cache.Lookup(uid, u.Username)
	}

	return Identity{Uid: uid, Gid: gid, Groups: groups}, currentUmask()
}

// currentUmask reads the process umask without permanently changing
// it: syscall.Umask both sets and returns the previous value, so it is
// called twice back to back.
func currentUmask() uint32 {
	old := syscall.Umask(0)
	syscall.Umask(old)
	return uint32(old)
}
