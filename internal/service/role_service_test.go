package service

import (
	"testing"

	"go-fund-admin/internal/apperror"
	"go-fund-admin/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultRoles(t *testing.T, e *testEnv) []string {
	t.Helper()
	roles, err := e.roles.ListRoles(e.ctx, true)
	require.NoError(t, err)
	var names []string
	for _, r := range roles {
		if r.IsDefault {
			names = append(names, r.Name)
		}
	}
	return names
}

func TestCreateRoleRejectsDuplicateName(t *testing.T) {
	e := newTestEnv(t)
	e.role(t, "ANALYST")

	_, err := e.roles.CreateRole(e.ctx, &CreateRoleRequest{Name: "ANALYST"}, "admin")
	assert.True(t, apperror.IsConflict(err))

	// names are case-sensitive
	_, err = e.roles.CreateRole(e.ctx, &CreateRoleRequest{Name: "analyst"}, "admin")
	assert.NoError(t, err)
}

func TestCreateRoleValidatesRequest(t *testing.T) {
	e := newTestEnv(t)

	_, err := e.roles.CreateRole(e.ctx, &CreateRoleRequest{}, "admin")

	assert.True(t, apperror.IsBadRequest(err))
}

func TestDefaultRoleIsSingleton(t *testing.T) {
	e := newTestEnv(t)

	_, err := e.roles.CreateRole(e.ctx, &CreateRoleRequest{Name: "INVESTOR", IsDefault: true}, "admin")
	require.NoError(t, err)
	assert.Equal(t, []string{"INVESTOR"}, defaultRoles(t, e))

	analyst, err := e.roles.CreateRole(e.ctx, &CreateRoleRequest{Name: "ANALYST", IsDefault: true}, "admin")
	require.NoError(t, err)
	assert.Equal(t, []string{"ANALYST"}, defaultRoles(t, e))

	viewer := e.role(t, "VIEWER")
	isDefault := true
	_, err = e.roles.UpdateRole(e.ctx, viewer.ID, &UpdateRoleRequest{IsDefault: &isDefault}, "admin")
	require.NoError(t, err)
	assert.Equal(t, []string{"VIEWER"}, defaultRoles(t, e))

	got, err := e.roles.GetRole(e.ctx, analyst.ID)
	require.NoError(t, err)
	assert.False(t, got.IsDefault)
}

func TestUpdateRoleRename(t *testing.T) {
	e := newTestEnv(t)
	analyst := e.role(t, "ANALYST")
	e.role(t, "ADMIN")

	taken := "ADMIN"
	_, err := e.roles.UpdateRole(e.ctx, analyst.ID, &UpdateRoleRequest{Name: &taken}, "admin")
	assert.True(t, apperror.IsConflict(err))

	renamed := "SENIOR_ANALYST"
	role, err := e.roles.UpdateRole(e.ctx, analyst.ID, &UpdateRoleRequest{Name: &renamed}, "admin")
	require.NoError(t, err)
	assert.Equal(t, "SENIOR_ANALYST", role.Name)

	_, err = e.roles.GetRoleByName(e.ctx, "ANALYST")
	assert.True(t, apperror.IsNotFound(err))
}

func TestDeleteRoleGuards(t *testing.T) {
	e := newTestEnv(t)
	investor, err := e.roles.CreateRole(e.ctx, &CreateRoleRequest{Name: "INVESTOR", IsDefault: true}, "admin")
	require.NoError(t, err)
	analyst := e.role(t, "ANALYST")
	user := e.user(t, "lp@fund.test")
	e.assign(t, user, analyst)

	err = e.roles.DeleteRole(e.ctx, investor.ID, "admin")
	assert.True(t, apperror.IsBadRequest(err), "default role")

	err = e.roles.DeleteRole(e.ctx, analyst.ID, "admin")
	assert.True(t, apperror.IsBadRequest(err), "linked role")

	_, err = e.assignments.RevokeAllRolesForUser(e.ctx, user, "admin", "")
	require.NoError(t, err)
	require.NoError(t, e.roles.DeleteRole(e.ctx, analyst.ID, "admin"))

	active, err := e.roles.ListRoles(e.ctx, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"INVESTOR"}, roleNames(active))

	all, err := e.roles.ListRoles(e.ctx, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"ANALYST", "INVESTOR"}, roleNames(all))
}

func TestGetRoleIncludesActivePermissions(t *testing.T) {
	e := newTestEnv(t)
	analyst := e.role(t, "ANALYST")
	e.grant(t, analyst, e.permission(t, "FUND", "READ"))
	revoked := e.permission(t, "FUND", "UPDATE")
	e.grant(t, analyst, revoked)
	require.NoError(t, e.assignments.RevokePermissionFromRole(e.ctx, analyst.ID, revoked.ID, "admin", ""))

	got, err := e.roles.GetRoleByName(e.ctx, "ANALYST")

	require.NoError(t, err)
	assert.Equal(t, []string{"FUND:READ"}, got.Permissions)
}

func TestListRolesIsOrderedByName(t *testing.T) {
	e := newTestEnv(t)
	for _, name := range []string{model.RoleInvestor, model.RoleAdmin, model.RoleFundManager} {
		e.role(t, name)
	}

	roles, err := e.roles.ListRoles(e.ctx, false)

	require.NoError(t, err)
	assert.Equal(t, []string{"ADMIN", "FUND_MANAGER", "INVESTOR"}, roleNames(roles))
}

func TestDeactivateRoleThroughUpdateKeepsGuard(t *testing.T) {
	e := newTestEnv(t)
	analyst := e.role(t, "ANALYST")
	user := e.user(t, "lp@fund.test")
	e.assign(t, user, analyst)
	inactive := false

	_, err := e.roles.UpdateRole(e.ctx, analyst.ID, &UpdateRoleRequest{IsActive: &inactive}, "admin")
	assert.True(t, apperror.IsBadRequest(err))

	roles, err := e.assignments.GetEffectiveRoles(e.ctx, user)
	require.NoError(t, err)
	require.Len(t, roles, 1)
	assert.Equal(t, "ANALYST", roles[0].Name)

	_, err = e.assignments.RevokeAllRolesForUser(e.ctx, user, "admin", "")
	require.NoError(t, err)
	role, err := e.roles.UpdateRole(e.ctx, analyst.ID, &UpdateRoleRequest{IsActive: &inactive}, "admin")
	require.NoError(t, err)
	assert.False(t, role.IsActive)
}
