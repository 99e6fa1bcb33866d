package service

import (
	"context"
	"sort"
	"strings"
	"testing"
	"time"

	"forum/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUserService(store *memStore) *UserService {
	return NewUserService(memUsers{store}, memRoles{store})
}

func roleSet(u *models.User) []string {
	names := u.RoleNames()
	sort.Strings(names)
	return names
}

func TestUserService_AddThenRemoveRoleRestoresSet(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	store.addUser("u1", models.RoleUser)
	svc := newUserService(store)
	admin := principal("a1", models.RoleAdmin)

	before, err := svc.Get(ctx, "u1")
	require.NoError(t, err)

	for _, role := range []string{"Gardener", models.RoleModerator} {
		_, err := svc.AddRole(ctx, admin, "u1", role)
		require.NoError(t, err)
		_, err = svc.RemoveRole(ctx, admin, "u1", role)
		require.NoError(t, err)

		after, err := svc.Get(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, roleSet(before), roleSet(after), "role %s", role)
	}
}

func TestUserService_RoleMutationsAreIdempotent(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	store.addUser("u1", models.RoleUser)
	svc := newUserService(store)
	admin := principal("a1", models.RoleAdmin)

	u, err := svc.AddRole(ctx, admin, "u1", models.RoleModerator)
	require.NoError(t, err)
	u, err = svc.AddRole(ctx, admin, "u1", models.RoleModerator)
	require.NoError(t, err)
	assert.Equal(t, []string{models.RoleModerator, models.RoleUser}, roleSet(u))

	u, err = svc.RemoveRole(ctx, admin, "u1", "NeverHeld")
	require.NoError(t, err)
	assert.Equal(t, []string{models.RoleModerator, models.RoleUser}, roleSet(u))
}

func TestUserService_RoleMutationRejections(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	store.addUser("u1", models.RoleUser)
	svc := newUserService(store)

	_, err := svc.AddRole(ctx, principal("m1", models.RoleModerator), "u1", models.RoleAdmin)
	assert.True(t, models.HasCode(err, models.CodeForbidden), "moderators cannot grant roles")

	_, err = svc.AddRole(ctx, principal("a1", models.RoleAdmin), "ghost", models.RoleUser)
	assert.True(t, models.HasCode(err, models.CodeNotFound))

	_, err = svc.RemoveRole(ctx, principal("a1", models.RoleAdmin), "ghost", models.RoleUser)
	assert.True(t, models.HasCode(err, models.CodeNotFound))

	_, err = svc.AddRole(ctx, principal("a1", models.RoleAdmin), "u1", "  ")
	assert.True(t, models.HasCode(err, models.CodeValidation))

	_, err = svc.AddRole(ctx, principal("a1", models.RoleAdmin), "u1", strings.Repeat("r", 65))
	assert.True(t, models.HasCode(err, models.CodeValidation), "role names longer than 64 characters are rejected")

	u, err := svc.AddRole(ctx, principal("a1", models.RoleAdmin), "u1", strings.Repeat("r", 64))
	require.NoError(t, err)
	assert.Contains(t, u.RoleNames(), strings.Repeat("r", 64))
}

func TestUserService_Update(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	store.addUser("u1", models.RoleUser)
	store.addUser("u2", models.RoleUser)
	svc := newUserService(store)
	svc.now = fixedClock(t0.Add(time.Hour))

	_, err := svc.Update(ctx, principal("u2", models.RoleUser), UpdateUserInput{ID: "u1", BodyID: "u1", Username: "mallory", Email: "m@example.com"})
	assert.True(t, models.HasCode(err, models.CodeForbidden))

	_, err = svc.Update(ctx, principal("u1"), UpdateUserInput{ID: "u1", BodyID: "u2", Username: "alice", Email: "a@example.com"})
	assert.True(t, models.HasCode(err, models.CodeValidation))

	_, err = svc.Update(ctx, principal("u1"), UpdateUserInput{ID: "u1", BodyID: "u1", Username: "user_u2", Email: "a@example.com"})
	assert.ErrorContains(t, err, "Username already taken")

	_, err = svc.Update(ctx, principal("u1"), UpdateUserInput{ID: "u1", BodyID: "u1", Username: "alice", Email: "not-an-email"})
	assert.True(t, models.HasCode(err, models.CodeValidation))

	updated, err := svc.Update(ctx, principal("u1"), UpdateUserInput{ID: "u1", BodyID: "u1", Username: "alice", Email: " Alice@Example.com "})
	require.NoError(t, err)
	assert.Equal(t, "alice", updated.Username)
	assert.Equal(t, "alice@example.com", updated.Email)
	assert.Equal(t, uint(2), updated.Version)
	assert.True(t, updated.UpdatedAt.After(t0))

	_, err = svc.Update(ctx, principal("m1", models.RoleModerator), UpdateUserInput{ID: "u2", BodyID: "u2", Username: "bob", Email: "bob@example.com"})
	require.NoError(t, err)

	_, err = svc.Update(ctx, principal("a1", models.RoleAdmin), UpdateUserInput{ID: "ghost", BodyID: "ghost", Username: "ghost", Email: "g@example.com"})
	assert.True(t, models.HasCode(err, models.CodeNotFound))
}

func TestUserService_ListRoles(t *testing.T) {
	store := newMemStore()
	store.addUser("u1", models.RoleUser, models.RoleAdmin)
	roles, err := newUserService(store).ListRoles(context.Background())
	require.NoError(t, err)
	require.Len(t, roles, 2)
	assert.Equal(t, models.RoleAdmin, roles[0].Name)
}
