package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"forum/internal/models"
	"forum/internal/observability"
	"forum/internal/policy"
	"forum/internal/repository"
	"forum/internal/validation"
)

// UserService manages user profiles and role assignments.
type UserService struct {
	users repository.UserRepository
	roles repository.RoleRepository
	now   func() time.Time
}

// UpdateUserInput carries the mutable profile fields. Roles and password are
// changed through their own operations.
type UpdateUserInput struct {
	ID       string
	BodyID   string
	Username string
	Email    string
	Version  uint
}

func NewUserService(users repository.UserRepository, roles repository.RoleRepository) *UserService {
	return &UserService{users: users, roles: roles, now: time.Now}
}

func (s *UserService) List(ctx context.Context) ([]models.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, err
	}
	return emptyIfNil(users), nil
}

func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	return s.users.GetByID(ctx, id)
}

func (s *UserService) ListRoles(ctx context.Context) ([]models.Role, error) {
	roles, err := s.roles.List(ctx)
	if err != nil {
		return nil, err
	}
	return emptyIfNil(roles), nil
}

// Update changes username and email. Callers may edit themselves; elevated
// principals may edit anyone.
func (s *UserService) Update(ctx context.Context, p policy.Principal, in UpdateUserInput) (user *models.User, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "UserService", "Update")
	defer func() { observability.EndSpan(span, err) }()

	if in.BodyID != in.ID {
		return nil, idMismatch()
	}
	user, err = s.users.GetByID(ctx, in.ID)
	if err != nil {
		return nil, err
	}
	if err := authorize(ctx, p, user.ID, policy.ActionUpdate, "User"); err != nil {
		return nil, err
	}

	username := strings.TrimSpace(in.Username)
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if err := validation.ValidateUsername(username); err != nil {
		return nil, validationErr(err)
	}
	if err := validation.ValidateEmail(email); err != nil {
		return nil, validationErr(err)
	}
	if err := s.ensureUnique(ctx, user.ID, username, email); err != nil {
		return nil, err
	}

	expected := expectedVersion(in.Version, user.Version)
	user.Username = username
	user.Email = email
	user.UpdatedAt = nextUpdatedAt(s.now(), user.UpdatedAt)

	if err := s.users.Update(ctx, user, expected); err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			return nil, resolveConflict(ctx, "User", in.ID, func(ctx context.Context) (bool, error) {
				return s.users.Exists(ctx, in.ID)
			})
		}
		return nil, err
	}
	return user, nil
}

func (s *UserService) ensureUnique(ctx context.Context, selfID, username, email string) error {
	other, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return err
	}
	if other != nil && other.ID != selfID {
		return models.NewValidationError("Username already taken")
	}
	other, err = s.users.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if other != nil && other.ID != selfID {
		return models.NewValidationError("Email already taken")
	}
	return nil
}

// AddRole grants role to the user, creating the role on first use. Granting a
// role the user already holds changes nothing.
func (s *UserService) AddRole(ctx context.Context, p policy.Principal, userID, role string) (*models.User, error) {
	return s.changeRole(ctx, p, userID, role, "AddRole", s.users.AddRole)
}

// RemoveRole revokes role from the user. Revoking a role the user does not
// hold changes nothing.
func (s *UserService) RemoveRole(ctx context.Context, p policy.Principal, userID, role string) (*models.User, error) {
	return s.changeRole(ctx, p, userID, role, "RemoveRole", s.users.RemoveRole)
}

func (s *UserService) changeRole(
	ctx context.Context,
	p policy.Principal,
	userID, role, method string,
	apply func(ctx context.Context, userID, roleName string) error,
) (user *models.User, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "UserService", method)
	defer func() { observability.EndSpan(span, err) }()

	if !p.HasRole(models.RoleAdmin) {
		return nil, models.NewForbiddenError("Admin role required")
	}
	role = strings.TrimSpace(role)
	if err := validation.ValidateRoleName(role); err != nil {
		return nil, validationErr(err)
	}

	ok, err := s.users.Exists(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, models.NewNotFoundError("User", userID)
	}
	if err := apply(ctx, userID, role); err != nil {
		return nil, err
	}
	return s.users.GetByID(ctx, userID)
}
