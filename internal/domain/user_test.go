package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoleHierarchy(t *testing.T) {
	assert.True(t, RoleAdmin.AtLeast(RoleManager))
	assert.True(t, RoleManager.AtLeast(RoleAgent))
	assert.True(t, RoleAgent.AtLeast(RoleCustomerAdmin))
	assert.True(t, RoleCustomerAdmin.AtLeast(RoleCustomer))

	assert.False(t, RoleCustomer.AtLeast(RoleAgent))
	assert.False(t, RoleAgent.AtLeast(RoleManager))
	assert.False(t, RoleManager.AtLeast(RoleAdmin))
}

func TestIsStaff(t *testing.T) {
	assert.True(t, RoleAgent.IsStaff())
	assert.True(t, RoleManager.IsStaff())
	assert.True(t, RoleAdmin.IsStaff())

	assert.False(t, RoleCustomer.IsStaff())
	assert.False(t, RoleCustomerAdmin.IsStaff())
}
