package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusValid(t *testing.T) {
	for _, s := range AllStatuses {
		assert.True(t, s.Valid(), "status %s", s)
	}
	assert.False(t, Status("approved").Valid())
	assert.False(t, Status("").Valid())
}

func TestStatusTerminal(t *testing.T) {
	assert.True(t, StatusApprovedBySecurity.Terminal())
	assert.True(t, StatusDeclined.Terminal())
	assert.False(t, StatusPending.Terminal())
	assert.False(t, StatusApprovedByAdmin.Terminal())
	assert.False(t, StatusSelfApproved.Terminal())
}

func TestStatusAwaitingSecurity(t *testing.T) {
	assert.True(t, StatusApprovedByAdmin.AwaitingSecurity())
	assert.True(t, StatusSelfApproved.AwaitingSecurity())
	assert.False(t, StatusPending.AwaitingSecurity())
	assert.False(t, StatusApprovedBySecurity.AwaitingSecurity())
	assert.False(t, StatusDeclined.AwaitingSecurity())
}

func TestValidRole(t *testing.T) {
	assert.True(t, ValidRole(RoleAdmin))
	assert.True(t, ValidRole(RoleSecurity))
	assert.True(t, ValidRole(RoleUser))
	assert.False(t, ValidRole("superadmin"))
	assert.False(t, ValidRole(""))
}
