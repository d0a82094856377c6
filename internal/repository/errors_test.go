package repository

import (
	"errors"
	"fmt"
	"testing"

	"go-fund-admin/internal/apperror"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestIsUniqueViolation(t *testing.T) {
	unique := &pgconn.PgError{Code: "23505", ConstraintName: "idx_roles_name"}

	assert.True(t, IsUniqueViolation(unique))
	assert.True(t, IsUniqueViolation(fmt.Errorf("create role: %w", unique)))
	assert.True(t, IsUniqueViolation(gorm.ErrDuplicatedKey))

	assert.False(t, IsUniqueViolation(&pgconn.PgError{Code: "23503"}), "foreign key violation")
	assert.False(t, IsUniqueViolation(errors.New("connection reset")))
	assert.False(t, IsUniqueViolation(nil))
}

func TestTranslate(t *testing.T) {
	assert.NoError(t, translate(nil, "role"))

	err := translate(gorm.ErrRecordNotFound, "role")
	assert.True(t, apperror.IsNotFound(err))
	assert.Equal(t, "role not found", apperror.Message(err))

	unique := &pgconn.PgError{Code: "23505"}
	err = translate(fmt.Errorf("insert: %w", unique), "permission")
	assert.True(t, apperror.IsConflict(err))
	assert.Equal(t, "permission already exists", apperror.Message(err))
	assert.ErrorIs(t, err, unique)

	other := errors.New("connection reset")
	assert.Same(t, other, translate(other, "user"))
}
