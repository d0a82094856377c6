package service

import (
	"testing"

	"go-fund-admin/internal/apperror"
	"go-fund-admin/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeedIsIdempotent(t *testing.T) {
	e := newTestEnv(t)
	admin := &AdminAccount{Email: "root@fund.test", Password: "change-me"}
	seeder := NewSeedService(e.store, e.assignments, admin, nil)

	first, err := seeder.Seed(e.ctx, SystemActor)
	require.NoError(t, err)
	assert.Equal(t, len(model.DefaultPermissions), first.PermissionsCreated)
	assert.Equal(t, len(model.DefaultRoles), first.RolesCreated)
	assert.Positive(t, first.GrantsCreated)
	assert.True(t, first.AdminCreated)

	second, err := seeder.Seed(e.ctx, SystemActor)
	require.NoError(t, err)
	assert.Equal(t, &SeedResult{}, second)
}

func TestSeedBuildsCatalog(t *testing.T) {
	e := newTestEnv(t)
	seeder := NewSeedService(e.store, e.assignments, &AdminAccount{Email: "root@fund.test", Password: "change-me"}, nil)
	_, err := seeder.Seed(e.ctx, SystemActor)
	require.NoError(t, err)

	investor, err := e.roles.GetRoleByName(e.ctx, model.RoleInvestor)
	require.NoError(t, err)
	assert.True(t, investor.IsDefault)
	assert.ElementsMatch(t, []string{"FUND:READ", "INVESTMENT:READ", "CAPITAL_CALL:READ"}, investor.Permissions)

	superAdmin, err := e.roles.GetRoleByName(e.ctx, model.RoleSuperAdmin)
	require.NoError(t, err)
	assert.Len(t, superAdmin.Permissions, len(model.DefaultPermissions))

	root, err := e.store.Users().FindByEmail(e.ctx, "root@fund.test")
	require.NoError(t, err)
	check, err := e.assignments.CheckPermission(e.ctx, root.ID, "ROLE:MANAGE", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{model.RoleSuperAdmin}, check.GrantedByRoles)
}

func TestSeedDoesNotUndoRevokedGrant(t *testing.T) {
	e := newTestEnv(t)
	seeder := NewSeedService(e.store, e.assignments, nil, nil)
	_, err := seeder.Seed(e.ctx, SystemActor)
	require.NoError(t, err)

	analyst, err := e.store.Roles().FindByName(e.ctx, model.RoleAnalyst)
	require.NoError(t, err)
	export, err := e.store.Permissions().FindByName(e.ctx, "REPORT:EXPORT")
	require.NoError(t, err)
	require.NoError(t, e.assignments.RevokePermissionFromRole(e.ctx, analyst.ID, export.ID, "admin", ""))

	again, err := seeder.Seed(e.ctx, SystemActor)
	require.NoError(t, err)
	assert.Zero(t, again.GrantsCreated)

	role, err := e.roles.GetRole(e.ctx, analyst.ID)
	require.NoError(t, err)
	assert.NotContains(t, role.Permissions, "REPORT:EXPORT")
}

func TestSeedKeepsExistingDefaultRole(t *testing.T) {
	e := newTestEnv(t)
	_, err := e.roles.CreateRole(e.ctx, &CreateRoleRequest{Name: "PROSPECT", IsDefault: true}, "admin")
	require.NoError(t, err)

	_, err = NewSeedService(e.store, e.assignments, nil, nil).Seed(e.ctx, SystemActor)
	require.NoError(t, err)

	assert.Equal(t, []string{"PROSPECT"}, defaultRoles(t, e))
}

func TestSeedAdminIsAllOrNothing(t *testing.T) {
	e := newTestEnv(t)
	_, err := NewSeedService(e.store, e.assignments, nil, nil).Seed(e.ctx, SystemActor)
	require.NoError(t, err)

	superAdmin, err := e.store.Roles().FindByName(e.ctx, model.RoleSuperAdmin)
	require.NoError(t, err)
	superAdmin.IsActive = false
	require.NoError(t, e.store.Roles().Update(e.ctx, superAdmin))

	seeder := NewSeedService(e.store, e.assignments, &AdminAccount{Email: "root@fund.test", Password: "change-me"}, nil)
	_, err = seeder.Seed(e.ctx, SystemActor)
	require.Error(t, err)
	_, err = e.store.Users().FindByEmail(e.ctx, "root@fund.test")
	assert.True(t, apperror.IsNotFound(err), "no admin without a role")

	superAdmin.IsActive = true
	require.NoError(t, e.store.Roles().Update(e.ctx, superAdmin))
	result, err := seeder.Seed(e.ctx, SystemActor)
	require.NoError(t, err)
	assert.True(t, result.AdminCreated)

	root, err := e.store.Users().FindByEmail(e.ctx, "root@fund.test")
	require.NoError(t, err)
	roles, err := e.assignments.GetEffectiveRoles(e.ctx, root.ID)
	require.NoError(t, err)
	require.Len(t, roles, 1)
	assert.Equal(t, model.RoleSuperAdmin, roles[0].Name)
}
