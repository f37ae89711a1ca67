package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoleSetRoundTrip(t *testing.T) {
	roles := RoleSet{RoleAdmin, RoleMember}

	value, err := roles.Value()
	require.NoError(t, err)
	assert.Equal(t, `["admin","member"]`, value)

	var scanned RoleSet
	require.NoError(t, scanned.Scan(value))
	assert.Equal(t, roles, scanned)
}

func TestRoleSetScanBytes(t *testing.T) {
	var scanned RoleSet
	require.NoError(t, scanned.Scan([]byte(`["member"]`)))
	assert.Equal(t, RoleSet{RoleMember}, scanned)
}

func TestRoleSetScanNil(t *testing.T) {
	scanned := RoleSet{"stale"}
	require.NoError(t, scanned.Scan(nil))
	assert.Nil(t, scanned)
}

func TestRoleSetNilValue(t *testing.T) {
	var roles RoleSet
	value, err := roles.Value()
	require.NoError(t, err)
	assert.Equal(t, "[]", value, "nil sets persist as an empty array, not NULL")
}

func TestRoleSetContains(t *testing.T) {
	roles := RoleSet{RoleMember}
	assert.True(t, roles.Contains(RoleMember))
	assert.False(t, roles.Contains(RoleAdmin))
	assert.False(t, RoleSet(nil).Contains(RoleMember))
}
