package bootstrap

import (
	"context"
	"sort"
	"testing"

	"forum/internal/auth"
	"forum/internal/config"
	"forum/internal/models"
	"forum/internal/repository"
	"forum/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureBuiltInRoles_Idempotent(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	ctx := context.Background()

	require.NoError(t, EnsureBuiltInRoles(ctx, db))
	require.NoError(t, EnsureBuiltInRoles(ctx, db))

	roles, err := repository.NewRoleRepository(db).List(ctx)
	require.NoError(t, err)
	names := make([]string, 0, len(roles))
	for _, r := range roles {
		names = append(names, r.Name)
	}
	sort.Strings(names)
	assert.Equal(t, []string{models.RoleAdmin, models.RoleModerator, models.RoleUser}, names)
}

func devConfig() *config.Config {
	return &config.Config{
		Env:              "development",
		DevBootstrapRoot: true,
		DevRootUsername:  "root",
		DevRootEmail:     "Root@Forum.Local",
		DevRootPassword:  "RootPassword12!@",
	}
}

func TestEnsureDevRootAdmin_CreatesAdmin(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	ctx := context.Background()

	require.NoError(t, ensureDevRootAdmin(ctx, devConfig(), db))
	require.NoError(t, ensureDevRootAdmin(ctx, devConfig(), db), "second run must not fail")

	root, err := repository.NewUserRepository(db).GetByEmail(ctx, "root@forum.local")
	require.NoError(t, err)
	require.NotNil(t, root)
	assert.ElementsMatch(t, []string{models.RoleUser, models.RoleAdmin}, root.RoleNames())
	assert.True(t, auth.CheckPassword(root.Password, "RootPassword12!@"))
}

func TestEnsureDevRootAdmin_Skipped(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	ctx := context.Background()

	cfg := devConfig()
	cfg.Env = "production"
	require.NoError(t, ensureDevRootAdmin(ctx, cfg, db))

	cfg = devConfig()
	cfg.DevBootstrapRoot = false
	require.NoError(t, ensureDevRootAdmin(ctx, cfg, db))

	users, err := repository.NewUserRepository(db).List(ctx)
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestEnsureDevRootAdmin_RequiresPassword(t *testing.T) {
	cfg := devConfig()
	cfg.DevRootPassword = ""
	assert.ErrorContains(t, ensureDevRootAdmin(context.Background(), cfg, testutil.NewSQLiteDB(t)), "DEV_ROOT_PASSWORD")
}
