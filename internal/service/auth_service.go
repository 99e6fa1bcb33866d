package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"forum/internal/auth"
	"forum/internal/cache"
	"forum/internal/models"
	"forum/internal/policy"
	"forum/internal/repository"
	"forum/internal/validation"

	"github.com/redis/go-redis/v9"
)

// AuthService registers users, issues tokens and resolves principals.
type AuthService struct {
	users  repository.UserRepository
	roles  repository.RoleRepository
	tokens *auth.TokenManager
	now    func() time.Time
}

type SignupInput struct {
	Username string
	Email    string
	Password string
}

type LoginInput struct {
	Email    string
	Password string
}

// AuthResult is returned by signup and login.
type AuthResult struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

func NewAuthService(users repository.UserRepository, roles repository.RoleRepository, tokens *auth.TokenManager) *AuthService {
	return &AuthService{users: users, roles: roles, tokens: tokens, now: time.Now}
}

// Signup creates a user holding the default User role and returns a token.
func (s *AuthService) Signup(ctx context.Context, in SignupInput) (*AuthResult, error) {
	username := strings.TrimSpace(in.Username)
	email := strings.ToLower(strings.TrimSpace(in.Email))

	if err := validation.ValidateUsername(username); err != nil {
		return nil, validationErr(err)
	}
	if err := validation.ValidateEmail(email); err != nil {
		return nil, validationErr(err)
	}
	if err := validation.ValidatePassword(in.Password); err != nil {
		return nil, validationErr(err)
	}

	if existing, err := s.users.GetByEmail(ctx, email); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, models.NewValidationError("User already exists")
	}
	if existing, err := s.users.GetByUsername(ctx, username); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, models.NewValidationError("User already exists")
	}

	hashed, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	role, err := s.roles.Ensure(ctx, models.RoleUser)
	if err != nil {
		return nil, err
	}

	now := s.now()
	user := &models.User{
		Username:  username,
		Email:     email,
		Password:  hashed,
		Roles:     []models.Role{*role},
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return s.issue(user)
}

// Login verifies credentials. Unknown email and wrong password are
// indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*AuthResult, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil || !auth.CheckPassword(user.Password, in.Password) {
		return nil, models.NewUnauthorizedError("Invalid credentials")
	}
	return s.issue(user)
}

func (s *AuthService) issue(user *models.User) (*AuthResult, error) {
	token, _, err := s.tokens.Issue(user.ID, user.Username)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return &AuthResult{Token: token, User: user}, nil
}

// Authenticate parses the bearer token and rejects revoked ones.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*auth.Claims, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil, models.NewUnauthorizedError("Invalid or expired token")
	}
	revoked, err := s.isRevoked(ctx, claims.ID)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	if revoked {
		return nil, models.NewUnauthorizedError("Token has been revoked")
	}
	return claims, nil
}

// Principal loads the user behind an authenticated subject. Roles are read
// on every request so grants and revocations apply immediately.
func (s *AuthService) Principal(ctx context.Context, userID string) (policy.Principal, *models.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if models.HasCode(err, models.CodeNotFound) {
			return policy.Principal{}, nil, models.NewUnauthorizedError("User no longer exists")
		}
		return policy.Principal{}, nil, err
	}
	return policy.Principal{ID: user.ID, Roles: user.RoleNames()}, user, nil
}

// Logout blacklists the token ID until it would have expired anyway.
// Without Redis the token simply stays valid until expiry.
func (s *AuthService) Logout(ctx context.Context, claims *auth.Claims) error {
	rdb := cache.GetClient()
	if rdb == nil || claims.ID == "" {
		return nil
	}
	ttl := s.tokens.RemainingTTL(claims)
	if ttl <= 0 {
		return nil
	}
	if err := rdb.Set(ctx, cache.BlacklistKey(claims.ID), "1", ttl).Err(); err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (s *AuthService) isRevoked(ctx context.Context, jti string) (bool, error) {
	rdb := cache.GetClient()
	if rdb == nil || jti == "" {
		return false, nil
	}
	_, err := rdb.Get(ctx, cache.BlacklistKey(jti)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
