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

package perm_test

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/sqlfuse/sqlfuse/perm"
)

type ModeTest struct {
	suite.Suite
}

func TestModeSuite(t *testing.T) {
	suite.Run(t, new(ModeTest))
}

func (t *ModeTest) TestRootBypassesEveryCheck() {
	root := perm.Identity{Uid: 0}
	t.NoError(perm.Check(0000, 500, 500, root, perm.Read|perm.Write|perm.Execute, "open", "/x"))
}

func (t *ModeTest) TestOwnerTripletApplies() {
	owner := perm.Identity{Uid: 500, Gid: 500}
	t.NoError(perm.Check(0600, 500, 500, owner, perm.Read|perm.Write, "open", "/x"))
	t.Error(perm.Check(0600, 500, 500, owner, perm.Execute, "open", "/x"))
}

func (t *ModeTest) TestGroupTripletAppliesWhenNotOwner() {
	member := perm.Identity{Uid: 501, Gid: 500}
	t.NoError(perm.Check(0640, 500, 500, member, perm.Read, "open", "/x"))
	t.Error(perm.Check(0640, 500, 500, member, perm.Write, "open", "/x"))
}

func (t *ModeTest) TestGroupTripletViaSupplementaryGroup() {
	member := perm.Identity{Uid: 501, Gid: 999, Groups: []uint32{500}}
	t.NoError(perm.Check(0640, 500, 500, member, perm.Read, "open", "/x"))
}

func (t *ModeTest) TestOtherTripletAppliesToEveryoneElse() {
	stranger := perm.Identity{Uid: 600, Gid: 600}
	t.NoError(perm.Check(0604, 500, 500, stranger, perm.Read, "open", "/x"))
	t.Error(perm.Check(0604, 500, 500, stranger, perm.Write, "open", "/x"))
}

func (t *ModeTest) TestOpenMaskFromFlags() {
	t.Equal(perm.Read, perm.OpenMask(0))
	t.Equal(perm.Write, perm.OpenMask(1))
	t.Equal(perm.Read|perm.Write, perm.OpenMask(2))
}

func (t *ModeTest) TestCheckChownRequiresRootForUidChange() {
	owner := perm.Identity{Uid: 500, Gid: 500}
	t.Error(perm.CheckChown(501, perm.UnchangedOwner, owner, "chown", "/x"))

	root := perm.Identity{Uid: 0}
	t.NoError(perm.CheckChown(501, perm.UnchangedOwner, root, "chown", "/x"))
}

func (t *ModeTest) TestCheckChownAllowsGidChangeToOwnGroup() {
	owner := perm.Identity{Uid: 500, Gid: 500, Groups: []uint32{700}}
	t.NoError(perm.CheckChown(perm.UnchangedOwner, 700, owner, "chown", "/x"))
	t.Error(perm.CheckChown(perm.UnchangedOwner, 800, owner, "chown", "/x"))
}

func (t *ModeTest) TestIdentityInGroup() {
	id := perm.Identity{Uid: 1, Gid: 10, Groups: []uint32{20, 30}}
	t.True(id.InGroup(10))
	t.True(id.InGroup(20))
	t.False(id.InGroup(99))
}
