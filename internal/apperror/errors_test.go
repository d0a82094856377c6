package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMatchesKindSentinel(t *testing.T) {
	err := Conflict("role %q already exists", "ANALYST")

	assert.True(t, errors.Is(err, ErrConflict))
	assert.False(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, `role "ANALYST" already exists`, err.Error())
}

func TestWrappedErrorKeepsKind(t *testing.T) {
	wrapped := fmt.Errorf("assign: %w", NotFound("role not found"))

	assert.True(t, IsNotFound(wrapped))
	assert.Equal(t, KindNotFound, KindOf(wrapped))
	assert.Equal(t, "role not found", Message(wrapped))
}

func TestUntypedErrorIsInternal(t *testing.T) {
	err := errors.New("connection reset")

	assert.Equal(t, KindInternal, KindOf(err))
	assert.Equal(t, "internal server error", Message(err))
}

func TestInternalUnwrapsCause(t *testing.T) {
	cause := errors.New("disk full")
	err := Internal(cause, "failed to write audit record")

	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, ErrInternal)
	assert.Equal(t, "failed to write audit record: disk full", err.Error())
}

func TestIsAuthError(t *testing.T) {
	assert.True(t, IsAuthError(Unauthenticated("missing token")))
	assert.True(t, IsAuthError(Forbidden("denied")))
	assert.False(t, IsAuthError(BadRequest("nope")))
}

func TestWithDetailDoesNotChangeMessage(t *testing.T) {
	err := Forbidden("access denied").WithDetail("roles=%v", []string{"VIEWER"})

	assert.Equal(t, "access denied", err.Error())
	assert.Equal(t, "roles=[VIEWER]", err.Detail)
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, HTTPStatus(NotFound("role not found")))
	assert.Equal(t, http.StatusConflict, HTTPStatus(Conflict("already assigned")))
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(BadRequest("bad")))
	assert.Equal(t, http.StatusUnauthorized, HTTPStatus(Unauthenticated("who")))
	assert.Equal(t, http.StatusForbidden, HTTPStatus(Forbidden("no")))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(errors.New("boom")))
}
