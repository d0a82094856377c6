package authz

import (
	"context"
	"errors"
	"testing"

	"go-fund-admin/internal/apperror"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSource struct {
	snap  Snapshot
	err   error
	calls int
}

func (s *stubSource) AccessSnapshot(context.Context, uuid.UUID) (Snapshot, error) {
	s.calls++
	return s.snap, s.err
}

var analyst = Snapshot{
	Roles:       []string{"ANALYST", "INVESTOR"},
	Permissions: []string{"FUND:READ", "REPORT:EXPORT"},
}

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name    string
		req     Requirements
		allowed bool
	}{
		{"no requirements", Authenticated(), true},
		{"all roles held", AllRoles("ANALYST", "INVESTOR"), true},
		{"all roles missing one", AllRoles("ANALYST", "ADMIN"), false},
		{"any role held", AnyRole("ADMIN", "ANALYST"), true},
		{"any role none held", AnyRole("ADMIN", "SUPER_ADMIN"), false},
		{"all permissions held", AllPermissions("FUND:READ", "REPORT:EXPORT"), true},
		{"all permissions missing one", AllPermissions("FUND:READ", "FUND:DELETE"), false},
		{"any permission held", AnyPermission("FUND:DELETE", "FUND:READ"), true},
		{"any permission none held", AnyPermission("FUND:DELETE"), false},
		{"kinds are ANDed", AnyRole("ANALYST").And(AllPermissions("FUND:DELETE")), false},
		{"kinds all pass", AnyRole("ANALYST").And(AnyPermission("FUND:READ")), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Evaluate(tt.req, analyst)
			if tt.allowed {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, apperror.ErrForbidden)
		})
	}
}

func TestEvaluateNamesUnmetKind(t *testing.T) {
	err := Evaluate(AllPermissions("FUND:DELETE"), analyst)

	var appErr *apperror.Error
	require.True(t, errors.As(err, &appErr))
	assert.Contains(t, appErr.Message, KindAllPermissions)
	assert.Contains(t, appErr.Message, "FUND:DELETE")
	assert.Contains(t, appErr.Detail, "ANALYST")
	assert.Contains(t, appErr.Detail, "REPORT:EXPORT")
}

func TestAuthorizePublicSkipsLookup(t *testing.T) {
	src := &stubSource{}
	e := NewEvaluator(src, nil)

	assert.NoError(t, e.Authorize(context.Background(), nil, Public()))
	assert.Zero(t, src.calls)
}

func TestAuthorizeRequiresIdentity(t *testing.T) {
	e := NewEvaluator(&stubSource{}, nil)

	err := e.Authorize(context.Background(), nil, Authenticated())

	assert.ErrorIs(t, err, apperror.ErrUnauthenticated)
}

func TestAuthorizeWithoutRequirementsSkipsLookup(t *testing.T) {
	src := &stubSource{}
	e := NewEvaluator(src, nil)

	err := e.Authorize(context.Background(), &Identity{UserID: uuid.New()}, Authenticated())

	assert.NoError(t, err)
	assert.Zero(t, src.calls)
}

func TestAuthorizeMasksLookupFailure(t *testing.T) {
	src := &stubSource{err: errors.New("connection refused")}
	e := NewEvaluator(src, nil)

	err := e.Authorize(context.Background(), &Identity{UserID: uuid.New()}, AnyRole("ADMIN"))

	assert.ErrorIs(t, err, apperror.ErrForbidden)
	assert.NotContains(t, err.Error(), "connection refused")
}

func TestAuthorizePassesAuthErrorsThrough(t *testing.T) {
	src := &stubSource{err: apperror.Unauthenticated("user no longer exists")}
	e := NewEvaluator(src, nil)

	err := e.Authorize(context.Background(), &Identity{UserID: uuid.New()}, AnyRole("ADMIN"))

	assert.ErrorIs(t, err, apperror.ErrUnauthenticated)
}

func TestAuthorizeFetchesSnapshotOnce(t *testing.T) {
	src := &stubSource{snap: analyst}
	e := NewEvaluator(src, nil)
	req := AllRoles("ANALYST").And(AnyRole("INVESTOR")).And(AnyPermission("FUND:READ"))

	require.NoError(t, e.Authorize(context.Background(), &Identity{UserID: uuid.New()}, req))
	assert.Equal(t, 1, src.calls)
}
