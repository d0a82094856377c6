package service

import (
	"sync"
	"testing"
	"time"

	"go-fund-admin/internal/apperror"
	"go-fund-admin/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckPermissionScenario(t *testing.T) {
	e := newTestEnv(t)
	analyst := e.role(t, "ANALYST")
	fundRead := e.permission(t, "FUND", "READ")
	e.grant(t, analyst, fundRead)
	user := e.user(t, "user-1@fund.test")
	e.assign(t, user, analyst)

	check, err := e.assignments.CheckPermission(e.ctx, user, "FUND:READ", nil)

	require.NoError(t, err)
	assert.True(t, check.HasPermission)
	assert.Equal(t, []string{"ANALYST"}, check.GrantedByRoles)
}

func TestCheckPermissionListsEveryGrantingRole(t *testing.T) {
	e := newTestEnv(t)
	analyst, manager := e.role(t, "ANALYST"), e.role(t, "FUND_MANAGER")
	fundRead := e.permission(t, "FUND", "READ")
	e.grant(t, analyst, fundRead)
	e.grant(t, manager, fundRead)
	user := e.user(t, "pm@fund.test")
	e.assign(t, user, manager)
	e.assign(t, user, analyst)

	check, err := e.assignments.CheckPermission(e.ctx, user, "FUND:READ", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"ANALYST", "FUND_MANAGER"}, check.GrantedByRoles)

	other := "CAPITAL_CALL"
	check, err = e.assignments.CheckPermission(e.ctx, user, "FUND:READ", &other)
	require.NoError(t, err)
	assert.False(t, check.HasPermission)
	assert.Empty(t, check.GrantedByRoles)
}

func TestRevokeLastRoleIsRejected(t *testing.T) {
	e := newTestEnv(t)
	investor := e.role(t, "INVESTOR")
	user := e.user(t, "lp@fund.test")
	e.assign(t, user, investor)

	err := e.assignments.RevokeRole(e.ctx, user, investor.ID, "admin", "cleanup")

	assert.True(t, apperror.IsBadRequest(err))
	roles, err := e.assignments.GetEffectiveRoles(e.ctx, user)
	require.NoError(t, err)
	require.Len(t, roles, 1)
	assert.Equal(t, "INVESTOR", roles[0].Name)
}

func TestRevokeUnassignedRoleIsNotFound(t *testing.T) {
	e := newTestEnv(t)
	investor, analyst := e.role(t, "INVESTOR"), e.role(t, "ANALYST")
	user := e.user(t, "lp@fund.test")
	e.assign(t, user, investor)

	err := e.assignments.RevokeRole(e.ctx, user, analyst.ID, "admin", "")

	assert.True(t, apperror.IsNotFound(err))
}

func TestAssignRevokeAssignKeepsOneLinkAndThreeRecords(t *testing.T) {
	e := newTestEnv(t)
	investor, analyst := e.role(t, "INVESTOR"), e.role(t, "ANALYST")
	user := e.user(t, "lp@fund.test")
	e.assign(t, user, investor)

	e.assign(t, user, analyst)
	require.NoError(t, e.assignments.RevokeRole(e.ctx, user, analyst.ID, "admin", "rotation"))
	e.assign(t, user, analyst)

	links, err := e.store.UserRoles().FindActiveByUser(e.ctx, user)
	require.NoError(t, err)
	analystLinks := 0
	for _, l := range links {
		if l.RoleID == analyst.ID {
			analystLinks++
		}
	}
	assert.Equal(t, 1, analystLinks)

	history, err := e.assignments.ListRoleHistory(e.ctx, model.RoleHistoryFilter{UserID: &user, RoleID: &analyst.ID})
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, model.RoleAssigned, history[0].Action)
	assert.True(t, history[0].IsActive)
	assert.Equal(t, model.RoleRevoked, history[1].Action)
	assert.Equal(t, model.RoleAssigned, history[2].Action)
	assert.False(t, history[2].IsActive)
	require.NotNil(t, history[2].RevokedBy)
	assert.Equal(t, "admin", *history[2].RevokedBy)
	assert.Equal(t, "rotation", *history[2].RevokeReason)
}

func TestAssignActiveRoleTwiceConflicts(t *testing.T) {
	e := newTestEnv(t)
	analyst := e.role(t, "ANALYST")
	user := e.user(t, "lp@fund.test")
	e.assign(t, user, analyst)

	_, err := e.assignments.AssignRole(e.ctx, user, analyst.ID, "admin", AssignOptions{})

	assert.True(t, apperror.IsConflict(err))
}

func TestAssignRoleValidatesTargets(t *testing.T) {
	e := newTestEnv(t)
	analyst := e.role(t, "ANALYST")
	user := e.user(t, "lp@fund.test")

	_, err := e.assignments.AssignRole(e.ctx, uuid.New(), analyst.ID, "admin", AssignOptions{})
	assert.True(t, apperror.IsNotFound(err), "unknown user")

	_, err = e.assignments.AssignRole(e.ctx, user, uuid.New(), "admin", AssignOptions{})
	assert.True(t, apperror.IsNotFound(err), "unknown role")

	inactive := false
	_, err = e.roles.UpdateRole(e.ctx, analyst.ID, &UpdateRoleRequest{IsActive: &inactive}, "admin")
	require.NoError(t, err)
	_, err = e.assignments.AssignRole(e.ctx, user, analyst.ID, "admin", AssignOptions{})
	assert.True(t, apperror.IsNotFound(err), "inactive role")

	past := time.Now().Add(-time.Minute)
	_, err = e.assignments.AssignRole(e.ctx, user, analyst.ID, "admin", AssignOptions{ExpiresAt: &past})
	assert.True(t, apperror.IsBadRequest(err), "expiry in the past")
}

func TestAssignRoleRollsBackWhenAuditFails(t *testing.T) {
	e := newTestEnv(t)
	analyst := e.role(t, "ANALYST")
	user := e.user(t, "lp@fund.test")
	failing := NewAssignmentService(failingAuditStore{e.store}, nil, 10, nil)

	_, err := failing.AssignRole(e.ctx, user, analyst.ID, "admin", AssignOptions{})

	assert.ErrorIs(t, err, errAuditDown)
	_, err = e.store.UserRoles().Find(e.ctx, user, analyst.ID)
	assert.True(t, apperror.IsNotFound(err))
}

func TestRevokeRoleRollsBackWhenAuditFails(t *testing.T) {
	e := newTestEnv(t)
	investor, analyst := e.role(t, "INVESTOR"), e.role(t, "ANALYST")
	user := e.user(t, "lp@fund.test")
	e.assign(t, user, investor)
	e.assign(t, user, analyst)
	failing := NewAssignmentService(failingAuditStore{e.store}, nil, 10, nil)

	err := failing.RevokeRole(e.ctx, user, analyst.ID, "admin", "")

	assert.ErrorIs(t, err, errAuditDown)
	link, err := e.store.UserRoles().Find(e.ctx, user, analyst.ID)
	require.NoError(t, err)
	assert.True(t, link.IsActive)
}

func TestGrantPermissionRollsBackWhenAuditFails(t *testing.T) {
	e := newTestEnv(t)
	analyst := e.role(t, "ANALYST")
	fundRead := e.permission(t, "FUND", "READ")
	failing := NewAssignmentService(failingAuditStore{e.store}, nil, 10, nil)

	_, err := failing.AssignPermissionToRole(e.ctx, analyst.ID, fundRead.ID, "admin", "")

	assert.ErrorIs(t, err, errAuditDown)
	_, err = e.store.RolePermissions().Find(e.ctx, analyst.ID, fundRead.ID)
	assert.True(t, apperror.IsNotFound(err))
}

func TestBulkAssignRolesReportsPartialFailure(t *testing.T) {
	e := newTestEnv(t)
	analyst := e.role(t, "ANALYST")
	u1, u2, u3 := e.user(t, "u1@fund.test"), e.user(t, "u2@fund.test"), e.user(t, "u3@fund.test")
	e.assign(t, u2, analyst)

	result, err := e.assignments.BulkAssignRoles(e.ctx, []uuid.UUID{u1, u2, u3}, analyst.ID, "admin", AssignOptions{})

	require.NoError(t, err)
	assert.Equal(t, 2, result.SuccessCount)
	assert.Equal(t, []BulkFailure{{ID: u2, Error: "already assigned"}}, result.Failures)
	assert.Equal(t, BulkPartial, result.Outcome())
}

func TestBulkRejectsEmptyAndOversizedBatches(t *testing.T) {
	e := newTestEnv(t)
	analyst := e.role(t, "ANALYST")

	_, err := e.assignments.BulkAssignRoles(e.ctx, nil, analyst.ID, "admin", AssignOptions{})
	assert.True(t, apperror.IsBadRequest(err))

	ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New(), uuid.New()}
	_, err = e.assignments.BulkAssignPermissions(e.ctx, analyst.ID, ids, "admin")
	assert.True(t, apperror.IsBadRequest(err))
}

func TestBulkPermissionsOutcomes(t *testing.T) {
	e := newTestEnv(t)
	analyst := e.role(t, "ANALYST")
	fundRead, fundUpdate := e.permission(t, "FUND", "READ"), e.permission(t, "FUND", "UPDATE")
	ids := []uuid.UUID{fundRead.ID, fundUpdate.ID}

	result, err := e.assignments.BulkAssignPermissions(e.ctx, analyst.ID, ids, "admin")
	require.NoError(t, err)
	assert.Equal(t, BulkSucceeded, result.Outcome())

	result, err = e.assignments.BulkAssignPermissions(e.ctx, analyst.ID, ids, "admin")
	require.NoError(t, err)
	assert.Equal(t, BulkFailed, result.Outcome())
	assert.Equal(t, 2, result.FailureCount)

	result, err = e.assignments.BulkRevokePermissions(e.ctx, analyst.ID, ids, "admin")
	require.NoError(t, err)
	assert.Equal(t, BulkSucceeded, result.Outcome())

	audits, err := e.assignments.ListPermissionAudit(e.ctx, model.PermissionAuditFilter{RoleID: &analyst.ID})
	require.NoError(t, err)
	require.Len(t, audits, 4)
	assert.Equal(t, model.PermissionRevoked, audits[0].Action)
	assert.Equal(t, model.PermissionGranted, audits[3].Action)
}

func TestRevokeAllRolesForUserRemovesLastRole(t *testing.T) {
	e := newTestEnv(t)
	investor, analyst := e.role(t, "INVESTOR"), e.role(t, "ANALYST")
	user := e.user(t, "lp@fund.test")
	e.assign(t, user, investor)
	e.assign(t, user, analyst)

	revoked, err := e.assignments.RevokeAllRolesForUser(e.ctx, user, "admin", "offboarding")

	require.NoError(t, err)
	assert.Equal(t, 2, revoked)
	roles, err := e.assignments.GetEffectiveRoles(e.ctx, user)
	require.NoError(t, err)
	assert.Empty(t, roles)
}

func TestEffectivePermissionsSkipInactiveAndDeduplicate(t *testing.T) {
	e := newTestEnv(t)
	analyst, manager := e.role(t, "ANALYST"), e.role(t, "FUND_MANAGER")
	fundRead := e.permission(t, "FUND", "READ")
	fundUpdate := e.permission(t, "FUND", "UPDATE")
	callRead := e.permission(t, "CAPITAL_CALL", "READ")
	reportExport := e.permission(t, "REPORT", "EXPORT")
	e.grant(t, analyst, fundRead)
	e.grant(t, manager, fundRead)
	e.grant(t, manager, fundUpdate)
	e.grant(t, manager, callRead)
	e.grant(t, manager, reportExport)
	user := e.user(t, "pm@fund.test")
	e.assign(t, user, analyst)
	e.assign(t, user, manager)

	// inactive link with an active role
	require.NoError(t, e.assignments.RevokePermissionFromRole(e.ctx, manager.ID, callRead.ID, "admin", ""))
	// inactive permission behind an active link
	inactive := false
	_, err := e.permissions.UpdatePermission(e.ctx, reportExport.ID, &UpdatePermissionRequest{IsActive: &inactive}, "admin")
	require.NoError(t, err)

	effective, err := e.assignments.GetEffectivePermissions(e.ctx, user)
	require.NoError(t, err)

	names := make([]string, 0, len(effective.Permissions))
	for _, p := range effective.Permissions {
		names = append(names, p.Name)
	}
	assert.ElementsMatch(t, []string{"FUND:READ", "FUND:UPDATE"}, names)
	assert.ElementsMatch(t, []string{"READ", "UPDATE"}, effective.ByResource["FUND"])
	assert.NotContains(t, effective.ByResource, "CAPITAL_CALL")
	assert.NotContains(t, effective.ByResource, "REPORT")
}

func TestCheckAccessMatchesResourceAndAction(t *testing.T) {
	e := newTestEnv(t)
	analyst := e.role(t, "ANALYST")
	e.grant(t, analyst, e.permission(t, "FUND", "READ"))
	legacy, err := e.permissions.CreatePermission(e.ctx, &CreatePermissionRequest{Name: "INVESTMENT:READ"}, "admin")
	require.NoError(t, err)
	e.grant(t, analyst, legacy)
	user := e.user(t, "analyst@fund.test")
	e.assign(t, user, analyst)

	check, err := e.assignments.CheckAccess(e.ctx, user, "FUND", "READ")
	require.NoError(t, err)
	assert.True(t, check.HasAccess)
	assert.Equal(t, []string{"ANALYST"}, check.Roles)
	assert.ElementsMatch(t, []string{"FUND:READ", "INVESTMENT:READ"}, check.Permissions)

	// names are never parsed
	check, err = e.assignments.CheckAccess(e.ctx, user, "INVESTMENT", "READ")
	require.NoError(t, err)
	assert.False(t, check.HasAccess)
}

func TestAccessSnapshotIsCachedUntilWrite(t *testing.T) {
	e := newTestEnv(t)
	analyst := e.role(t, "ANALYST")
	fundRead := e.permission(t, "FUND", "READ")
	e.grant(t, analyst, fundRead)
	user := e.user(t, "analyst@fund.test")
	e.assign(t, user, analyst)

	snap, err := e.assignments.AccessSnapshot(e.ctx, user)
	require.NoError(t, err)
	assert.Equal(t, []string{"FUND:READ"}, snap.Permissions)
	assert.Equal(t, 1, e.cache.Len())

	require.NoError(t, e.assignments.RevokePermissionFromRole(e.ctx, analyst.ID, fundRead.ID, "admin", ""))
	assert.Equal(t, 0, e.cache.Len())

	snap, err = e.assignments.AccessSnapshot(e.ctx, user)
	require.NoError(t, err)
	assert.Empty(t, snap.Permissions)
	assert.Equal(t, []string{"ANALYST"}, snap.Roles)
}

func TestExpireRoleAssignments(t *testing.T) {
	e := newTestEnv(t)
	investor, analyst := e.role(t, "INVESTOR"), e.role(t, "ANALYST")
	user := e.user(t, "contractor@fund.test")
	e.assign(t, user, investor)
	expiresAt := time.Now().Add(time.Hour)
	_, err := e.assignments.AssignRole(e.ctx, user, analyst.ID, "admin", AssignOptions{ExpiresAt: &expiresAt})
	require.NoError(t, err)

	expired, err := e.assignments.ExpireRoleAssignments(e.ctx, time.Now())
	require.NoError(t, err)
	assert.Zero(t, expired)

	expired, err = e.assignments.ExpireRoleAssignments(e.ctx, expiresAt.Add(time.Second))
	require.NoError(t, err)
	assert.Equal(t, 1, expired)

	roles, err := e.assignments.GetEffectiveRoles(e.ctx, user)
	require.NoError(t, err)
	require.Len(t, roles, 1)
	assert.Equal(t, "INVESTOR", roles[0].Name)

	history, err := e.assignments.ListRoleHistory(e.ctx, model.RoleHistoryFilter{UserID: &user, RoleID: &analyst.ID})
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, SystemActor, history[0].AssignedBy)
	assert.Equal(t, "expired", history[0].Reason)
}

func TestMutationsPublishEvents(t *testing.T) {
	e := newTestEnv(t)
	analyst := e.role(t, "ANALYST")
	user := e.user(t, "lp@fund.test")
	e.assign(t, user, analyst)

	require.Len(t, e.notifier.events, 2)
	assert.Equal(t, ChangeRoleCreated, e.notifier.events[0].Type)
	last := e.notifier.events[1]
	assert.Equal(t, ChangeRoleAssigned, last.Type)
	require.NotNil(t, last.UserID)
	assert.Equal(t, user, *last.UserID)
}

func TestRevokeCountsOnlyActiveRoles(t *testing.T) {
	e := newTestEnv(t)
	investor, analyst := e.role(t, "INVESTOR"), e.role(t, "ANALYST")
	user := e.user(t, "lp@fund.test")
	e.assign(t, user, investor)
	e.assign(t, user, analyst)

	// The link stays active while its role is switched off underneath it
	analyst.IsActive = false
	require.NoError(t, e.store.Roles().Update(e.ctx, analyst))

	err := e.assignments.RevokeRole(e.ctx, user, investor.ID, "admin", "")
	assert.True(t, apperror.IsBadRequest(err), "investor is the only active role")

	require.NoError(t, e.assignments.RevokeRole(e.ctx, user, analyst.ID, "admin", ""))
	roles, err := e.assignments.GetEffectiveRoles(e.ctx, user)
	require.NoError(t, err)
	require.Len(t, roles, 1)
	assert.Equal(t, "INVESTOR", roles[0].Name)
}

func TestConcurrentAssignOfSamePairCreatesOneLink(t *testing.T) {
	e := newTestEnv(t)
	analyst := e.role(t, "ANALYST")
	user := e.user(t, "lp@fund.test")

	const workers = 8
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = e.assignments.AssignRole(e.ctx, user, analyst.ID, "admin", AssignOptions{})
		}(i)
	}
	wg.Wait()

	succeeded, conflicts := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case apperror.IsConflict(err):
			conflicts++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, workers-1, conflicts)

	links, err := e.store.UserRoles().FindActiveByUser(e.ctx, user)
	require.NoError(t, err)
	assert.Len(t, links, 1)
}

func TestConcurrentRevokeKeepsOneRole(t *testing.T) {
	e := newTestEnv(t)
	investor, analyst := e.role(t, "INVESTOR"), e.role(t, "ANALYST")
	user := e.user(t, "lp@fund.test")
	e.assign(t, user, investor)
	e.assign(t, user, analyst)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, role := range []*model.Role{investor, analyst} {
		wg.Add(1)
		go func(i int, roleID uuid.UUID) {
			defer wg.Done()
			errs[i] = e.assignments.RevokeRole(e.ctx, user, roleID, "admin", "")
		}(i, role.ID)
	}
	wg.Wait()

	rejected := 0
	for _, err := range errs {
		if err != nil {
			assert.True(t, apperror.IsBadRequest(err), "unexpected error: %v", err)
			rejected++
		}
	}
	assert.Equal(t, 1, rejected)

	roles, err := e.assignments.GetEffectiveRoles(e.ctx, user)
	require.NoError(t, err)
	assert.Len(t, roles, 1)
}
