package service

import (
	"context"

	"github.com/google/uuid"

	"go-fund-admin/internal/apperror"
	"go-fund-admin/internal/authz"
	"go-fund-admin/internal/model"
	"go-fund-admin/internal/repository"
	"go-fund-admin/pkg/jwt"
)

type AuthService interface {
	Login(ctx context.Context, email, password string) (*LoginResponse, error)
	ResetPassword(ctx context.Context, email, oldPassword, newPassword string) error
	// SetPassword replaces a password without the old one; used by the admin CLI
	SetPassword(ctx context.Context, email, newPassword string) error
	ValidateToken(ctx context.Context, tokenString string) (*TokenValidationResponse, error)
	// ResolveIdentity turns a bearer token into the acting user
	ResolveIdentity(ctx context.Context, tokenString string) (*authz.Identity, error)
}

type LoginResponse struct {
	Token       string             `json:"token"`
	User        model.UserResponse `json:"user"`
	Permissions []string           `json:"permissions"` // Flat permission names for easy checking
}

type TokenValidationResponse struct {
	User        model.UserResponse `json:"user"`
	Permissions []string           `json:"permissions"`
}

type authService struct {
	store       repository.Store
	assignments AssignmentService
	tokens      *jwt.Manager
}

func NewAuthService(store repository.Store, assignments AssignmentService, tokens *jwt.Manager) AuthService {
	return &authService{
		store:       store,
		assignments: assignments,
		tokens:      tokens,
	}
}

func (s *authService) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	// 1. Find user by email
	user, err := s.store.Users().FindByEmail(ctx, email)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, apperror.Unauthenticated("invalid email or password")
		}
		return nil, err
	}

	// 2. Check if user is active
	if !user.IsActive {
		return nil, apperror.Unauthenticated("user account is inactive")
	}

	// 3. Verify password
	if !user.CheckPassword(password) {
		return nil, apperror.Unauthenticated("invalid email or password")
	}

	// 4. Single session: a new token version invalidates older tokens
	tokenVersion := uuid.New().String()
	if err := s.store.Users().UpdateTokenVersion(ctx, user.ID, tokenVersion); err != nil {
		return nil, apperror.Internal(err, "failed to update session")
	}

	// 5. Generate JWT token with TokenVersion
	token, err := s.tokens.GenerateToken(user.ID, user.Email, user.FullName, tokenVersion)
	if err != nil {
		return nil, apperror.Internal(err, "failed to generate token")
	}

	snap, err := s.assignments.AccessSnapshot(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	return &LoginResponse{
		Token:       token,
		User:        user.ToResponse(snap.Roles),
		Permissions: snap.Permissions,
	}, nil
}

func (s *authService) ResetPassword(ctx context.Context, email, oldPassword, newPassword string) error {
	// 1. Find user by email
	user, err := s.store.Users().FindByEmail(ctx, email)
	if err != nil {
		return err
	}

	// 2. Verify old password
	if !user.CheckPassword(oldPassword) {
		return apperror.BadRequest("current password is incorrect")
	}

	return s.replacePassword(ctx, user, newPassword)
}

func (s *authService) SetPassword(ctx context.Context, email, newPassword string) error {
	user, err := s.store.Users().FindByEmail(ctx, email)
	if err != nil {
		return err
	}
	return s.replacePassword(ctx, user, newPassword)
}

func (s *authService) replacePassword(ctx context.Context, user *model.User, newPassword string) error {
	if len(newPassword) < 6 {
		return apperror.BadRequest("password must be at least 6 characters")
	}
	if err := user.SetPassword(newPassword); err != nil {
		return apperror.Internal(err, "failed to hash new password")
	}
	if err := s.store.Users().UpdatePassword(ctx, user.ID, user.Password); err != nil {
		return err
	}

	// Existing sessions end with the old password
	return s.store.Users().UpdateTokenVersion(ctx, user.ID, uuid.New().String())
}

// authenticate validates the token against the user row
func (s *authService) authenticate(ctx context.Context, tokenString string) (*model.User, error) {
	// 1. Validate JWT token
	claims, err := s.tokens.ValidateToken(tokenString)
	if err != nil {
		return nil, apperror.Unauthenticated("%s", err.Error())
	}

	// 2. Find user by ID from token claims
	user, err := s.store.Users().FindByID(ctx, claims.UserID)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, apperror.Unauthenticated("user not found")
		}
		return nil, err
	}

	// 3. Check if user is still active
	if !user.IsActive {
		return nil, apperror.Unauthenticated("user account is inactive")
	}

	// 4. Check against DB for strict session (TokenVersion)
	if user.TokenVersion != claims.TokenVersion {
		return nil, apperror.Unauthenticated("session expired (logged in on another device)")
	}
	return user, nil
}

func (s *authService) ValidateToken(ctx context.Context, tokenString string) (*TokenValidationResponse, error) {
	user, err := s.authenticate(ctx, tokenString)
	if err != nil {
		return nil, err
	}

	snap, err := s.assignments.AccessSnapshot(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	return &TokenValidationResponse{
		User:        user.ToResponse(snap.Roles),
		Permissions: snap.Permissions,
	}, nil
}

func (s *authService) ResolveIdentity(ctx context.Context, tokenString string) (*authz.Identity, error) {
	user, err := s.authenticate(ctx, tokenString)
	if err != nil {
		return nil, err
	}
	return &authz.Identity{UserID: user.ID, Email: user.Email}, nil
}
