package service

import (
	"context"
	"log/slog"

	"go-fund-admin/internal/apperror"
	"go-fund-admin/internal/model"
	"go-fund-admin/internal/repository"

	"github.com/google/uuid"
)

type UserService interface {
	// CreateUser assigns the requested roles, or the default role when none are given
	CreateUser(ctx context.Context, req *CreateUserRequest, creatorID string) (*model.UserResponse, error)
	UpdateUser(ctx context.Context, userID uuid.UUID, req *UpdateUserRequest, updaterID string) (*model.UserResponse, error)
	// DeleteUser revokes every role and soft-deletes the user
	DeleteUser(ctx context.Context, userID uuid.UUID, deleterID string) error
	GetAllUsers(ctx context.Context) ([]model.UserResponse, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*model.UserResponse, error)
}

type CreateUserRequest struct {
	Email       string      `json:"email" validate:"required,email"`
	Password    string      `json:"password" validate:"required,min=6"`
	FullName    string      `json:"full_name" validate:"required"`
	PhoneNumber string      `json:"phone_number" validate:"omitempty,max=20"`
	RoleIDs     []uuid.UUID `json:"role_ids" validate:"dive,uuid_required"`
}

type UpdateUserRequest struct {
	Email       string  `json:"email" validate:"required,email"`
	Password    *string `json:"password,omitempty" validate:"omitempty,min=6"` // Optional
	FullName    string  `json:"full_name" validate:"required"`
	PhoneNumber string  `json:"phone_number" validate:"omitempty,max=20"`
	IsActive    *bool   `json:"is_active"`
}

type userService struct {
	store       repository.Store
	assignments AssignmentService
	logger      *slog.Logger
}

func NewUserService(store repository.Store, assignments AssignmentService, logger *slog.Logger) UserService {
	return &userService{
		store:       store,
		assignments: assignments,
		logger:      resolveLogger(logger),
	}
}

func (s *userService) CreateUser(ctx context.Context, req *CreateUserRequest, creatorID string) (*model.UserResponse, error) {
	// 1. Validate request
	if err := validate(req); err != nil {
		return nil, err
	}

	// 2. Check if email already exists
	if _, err := s.store.Users().FindByEmail(ctx, req.Email); err == nil {
		return nil, apperror.Conflict("email already exists")
	} else if !apperror.IsNotFound(err) {
		return nil, err
	}

	// 3. Resolve roles before anything is written
	roleIDs, err := s.initialRoles(ctx, req.RoleIDs)
	if err != nil {
		return nil, err
	}

	// 4. Create user
	user := &model.User{
		Email:       req.Email,
		FullName:    req.FullName,
		PhoneNumber: req.PhoneNumber,
		IsActive:    true,
	}
	user.CreatedBy = creatorID
	user.UpdatedBy = creatorID
	if err := user.SetPassword(req.Password); err != nil {
		return nil, apperror.Internal(err, "failed to hash password")
	}

	// 5. User and roles are written together
	if err := s.assignments.CreateUserWithRoles(ctx, user, roleIDs, creatorID, "user created"); err != nil {
		s.logger.ErrorContext(ctx, "failed to create user with roles",
			slog.String("email", user.Email),
			slog.Any("error", err))
		return nil, err
	}

	return s.GetUserByID(ctx, user.ID)
}

func (s *userService) initialRoles(ctx context.Context, requested []uuid.UUID) ([]uuid.UUID, error) {
	if len(requested) == 0 {
		role, err := s.store.Roles().FindDefault(ctx)
		if err != nil {
			if apperror.IsNotFound(err) {
				return nil, apperror.BadRequest("no roles given and no default role configured")
			}
			return nil, err
		}
		return []uuid.UUID{role.ID}, nil
	}

	seen := make(map[uuid.UUID]struct{}, len(requested))
	roleIDs := make([]uuid.UUID, 0, len(requested))
	for _, id := range requested {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		role, err := s.store.Roles().FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if !role.IsActive {
			return nil, apperror.NotFound("role %q is not active", role.Name)
		}
		roleIDs = append(roleIDs, id)
	}
	return roleIDs, nil
}

func (s *userService) UpdateUser(ctx context.Context, userID uuid.UUID, req *UpdateUserRequest, updaterID string) (*model.UserResponse, error) {
	// 1. Validate request
	if err := validate(req); err != nil {
		return nil, err
	}

	// 2. Find existing user
	user, err := s.store.Users().FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	// 3. Check if email is being changed and already exists
	if req.Email != user.Email {
		if _, err := s.store.Users().FindByEmail(ctx, req.Email); err == nil {
			return nil, apperror.Conflict("email already exists")
		} else if !apperror.IsNotFound(err) {
			return nil, err
		}
	}

	// 4. Update user fields
	user.Email = req.Email
	user.FullName = req.FullName
	user.PhoneNumber = req.PhoneNumber
	endSessions := false
	if req.IsActive != nil {
		endSessions = user.IsActive && !*req.IsActive
		user.IsActive = *req.IsActive
	}
	user.UpdatedBy = updaterID

	// 5. Update password if provided
	if req.Password != nil && *req.Password != "" {
		if err := user.SetPassword(*req.Password); err != nil {
			return nil, apperror.Internal(err, "failed to hash password")
		}
		endSessions = true
	}
	if endSessions {
		user.TokenVersion = uuid.New().String()
	}

	// 6. Save
	if err := s.store.Users().Update(ctx, user); err != nil {
		return nil, err
	}

	return s.GetUserByID(ctx, userID)
}

func (s *userService) DeleteUser(ctx context.Context, userID uuid.UUID, deleterID string) error {
	if _, err := s.store.Users().FindByID(ctx, userID); err != nil {
		return err
	}

	if _, err := s.assignments.RevokeAllRolesForUser(ctx, userID, deleterID, "user deleted"); err != nil {
		return err
	}
	return s.store.Users().Delete(ctx, userID, deleterID)
}

func (s *userService) GetAllUsers(ctx context.Context) ([]model.UserResponse, error) {
	users, err := s.store.Users().FindAll(ctx)
	if err != nil {
		return nil, err
	}

	responses := make([]model.UserResponse, len(users))
	for i, user := range users {
		roles, err := s.store.UserRoles().FindActiveRoles(ctx, user.ID)
		if err != nil {
			return nil, err
		}
		responses[i] = user.ToResponse(roleNames(roles))
	}
	return responses, nil
}

func (s *userService) GetUserByID(ctx context.Context, id uuid.UUID) (*model.UserResponse, error) {
	user, err := s.store.Users().FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	roles, err := s.store.UserRoles().FindActiveRoles(ctx, id)
	if err != nil {
		return nil, err
	}
	response := user.ToResponse(roleNames(roles))
	return &response, nil
}
