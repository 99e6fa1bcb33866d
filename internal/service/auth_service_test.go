package service

import (
	"context"
	"testing"

	"forum/internal/auth"
	"forum/internal/cache"
	"forum/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "service-test-secret-with-32-chars!"

func newAuthService(store *memStore) *AuthService {
	return NewAuthService(memUsers{store}, memRoles{store}, auth.NewTokenManager(testSecret))
}

func TestAuthService_SignupAndLogin(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	svc := newAuthService(store)

	res, err := svc.Signup(ctx, SignupInput{Username: "alice", Email: "Alice@Example.com", Password: "SecurePass12!@"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
	assert.Equal(t, "alice@example.com", res.User.Email)
	assert.Equal(t, []string{models.RoleUser}, res.User.RoleNames())
	assert.NotEqual(t, "SecurePass12!@", res.User.Password)

	_, err = svc.Signup(ctx, SignupInput{Username: "alice2", Email: "alice@example.com", Password: "SecurePass12!@"})
	assert.True(t, models.HasCode(err, models.CodeValidation))

	login, err := svc.Login(ctx, LoginInput{Email: "alice@example.com", Password: "SecurePass12!@"})
	require.NoError(t, err)

	claims, err := svc.Authenticate(ctx, login.Token)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, claims.Subject)

	p, _, err := svc.Principal(ctx, claims.Subject)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, p.ID)
	assert.True(t, p.HasRole(models.RoleUser))

	_, err = svc.Login(ctx, LoginInput{Email: "alice@example.com", Password: "wrong"})
	assert.True(t, models.HasCode(err, models.CodeUnauthorized))

	_, err = svc.Login(ctx, LoginInput{Email: "nobody@example.com", Password: "SecurePass12!@"})
	assert.True(t, models.HasCode(err, models.CodeUnauthorized))
}

func TestAuthService_SignupValidation(t *testing.T) {
	svc := newAuthService(newMemStore())
	tests := []SignupInput{
		{Username: "a", Email: "a@example.com", Password: "SecurePass12!@"},
		{Username: "alice", Email: "nope", Password: "SecurePass12!@"},
		{Username: "alice", Email: "a@example.com", Password: "short"},
	}
	for _, in := range tests {
		_, err := svc.Signup(context.Background(), in)
		assert.True(t, models.HasCode(err, models.CodeValidation), "%+v", in)
	}
}

func TestAuthService_PrincipalForDeletedUser(t *testing.T) {
	_, _, err := newAuthService(newMemStore()).Principal(context.Background(), "gone")
	assert.True(t, models.HasCode(err, models.CodeUnauthorized))
}

func TestAuthService_LogoutRevokesToken(t *testing.T) {
	mr := miniredis.RunT(t)
	cache.SetClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { cache.SetClient(nil) })

	ctx := context.Background()
	store := newMemStore()
	svc := newAuthService(store)
	res, err := svc.Signup(ctx, SignupInput{Username: "bob", Email: "bob@example.com", Password: "SecurePass12!@"})
	require.NoError(t, err)

	claims, err := svc.Authenticate(ctx, res.Token)
	require.NoError(t, err)
	require.NoError(t, svc.Logout(ctx, claims))

	assert.True(t, mr.Exists(cache.BlacklistKey(claims.ID)))
	_, err = svc.Authenticate(ctx, res.Token)
	assert.True(t, models.HasCode(err, models.CodeUnauthorized))
}

func TestAuthService_RejectsGarbageToken(t *testing.T) {
	_, err := newAuthService(newMemStore()).Authenticate(context.Background(), "garbage")
	assert.True(t, models.HasCode(err, models.CodeUnauthorized))
}
