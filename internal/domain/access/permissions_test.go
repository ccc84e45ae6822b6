package access

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPermissionSet_Check_DefaultDeny(t *testing.T) {
	var nilSet *PermissionSet
	assert.False(t, nilSet.Check(EntityCollection, "posts", ActionRead))

	p := NewPermissionSet(true)
	assert.False(t, p.Check(EntityCollection, "posts", ActionRead), "absent slug denies")

	p.Set(EntityCollection, "posts", ActionRead, true)
	assert.True(t, p.Check(EntityCollection, "posts", ActionRead))
	assert.False(t, p.Check(EntityCollection, "posts", ActionUpdate), "absent action denies")
	assert.False(t, p.Check(EntityGlobal, "posts", ActionRead), "entity types are separate")
	assert.False(t, p.Check("widget", "posts", ActionRead))
}

func TestPermissionSet_Decide(t *testing.T) {
	var nilSet *PermissionSet
	assert.Equal(t, Unresolved, nilSet.Decide(EntityCollection, "posts", ActionRead))

	p := NewPermissionSet(true)
	p.Set(EntityGlobal, "nav", ActionRead, true)
	p.Set(EntityGlobal, "nav", ActionUpdate, false)

	assert.Equal(t, Allowed, p.Decide(EntityGlobal, "nav", ActionRead))
	assert.Equal(t, Denied, p.Decide(EntityGlobal, "nav", ActionUpdate))
	assert.Equal(t, Denied, p.Decide(EntityGlobal, "footer", ActionRead))
}

func TestPermissionSet_AdminAccess(t *testing.T) {
	assert.Equal(t, Unresolved, (*PermissionSet)(nil).AdminAccess())
	assert.Equal(t, Unresolved, (&PermissionSet{}).AdminAccess())
	assert.Equal(t, Allowed, NewPermissionSet(true).AdminAccess())
	assert.Equal(t, Denied, NewPermissionSet(false).AdminAccess())
}

func TestDecision_String(t *testing.T) {
	assert.Equal(t, "allowed", Allowed.String())
	assert.Equal(t, "denied", Denied.String())
	assert.Equal(t, "unresolved", Unresolved.String())
}
