// Package bootstrap wires the runtime dependencies shared by the binaries.
package bootstrap

import (
	"context"
	"fmt"
	"log"
	"strings"

	"forum/internal/auth"
	"forum/internal/cache"
	"forum/internal/config"
	"forum/internal/database"
	"forum/internal/models"
	"forum/internal/repository"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	// SkipSchema leaves the schema untouched, for tools that manage it themselves.
	SkipSchema bool
}

// InitRuntime connects to DB and Redis, applies the schema and ensures the
// built-in roles exist.
func InitRuntime(ctx context.Context, cfg *config.Config, opts Options) (*gorm.DB, *redis.Client, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	if !opts.SkipSchema {
		if err := database.ApplySchema(ctx, db, cfg); err != nil {
			return nil, nil, fmt.Errorf("apply schema: %w", err)
		}
	}

	// Init Redis (may result in nil client if unreachable)
	cache.InitRedis(cfg.RedisURL)
	r := cache.GetClient()

	if err := EnsureBuiltInRoles(ctx, db); err != nil {
		return nil, nil, fmt.Errorf("failed to ensure built-in roles: %w", err)
	}
	if err := ensureDevRootAdmin(ctx, cfg, db); err != nil {
		return nil, nil, fmt.Errorf("failed to bootstrap development root admin: %w", err)
	}

	return db, r, nil
}

// EnsureBuiltInRoles creates User, Moderator and Admin if they are missing.
func EnsureBuiltInRoles(ctx context.Context, db *gorm.DB) error {
	roles := repository.NewRoleRepository(db)
	for _, name := range models.BuiltInRoles {
		if _, err := roles.Ensure(ctx, name); err != nil {
			return fmt.Errorf("ensure role %s: %w", name, err)
		}
	}
	return nil
}

func ensureDevRootAdmin(ctx context.Context, cfg *config.Config, db *gorm.DB) error {
	if cfg == nil || db == nil {
		return nil
	}
	if !strings.EqualFold(cfg.Env, "development") || !cfg.DevBootstrapRoot {
		return nil
	}

	username := strings.TrimSpace(cfg.DevRootUsername)
	if username == "" {
		username = "root"
	}
	email := strings.TrimSpace(strings.ToLower(cfg.DevRootEmail))
	if email == "" {
		email = "root@forum.local"
	}
	if cfg.DevRootPassword == "" {
		return fmt.Errorf("DEV_ROOT_PASSWORD must be set when DEV_BOOTSTRAP_ROOT is enabled")
	}

	users := repository.NewUserRepository(db)
	roles := repository.NewRoleRepository(db)

	existing, err := users.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if existing != nil {
		if err := users.AddRole(ctx, existing.ID, models.RoleAdmin); err != nil {
			return err
		}
		log.Printf("development root admin ensured for %s", email)
		return nil
	}

	hashed, err := auth.HashPassword(cfg.DevRootPassword)
	if err != nil {
		return fmt.Errorf("hash root password: %w", err)
	}
	root := &models.User{
		Username: username,
		Email:    email,
		Password: hashed,
		Version:  1,
	}
	for _, name := range []string{models.RoleUser, models.RoleAdmin} {
		role, err := roles.Ensure(ctx, name)
		if err != nil {
			return err
		}
		root.Roles = append(root.Roles, *role)
	}
	if err := users.Create(ctx, root); err != nil {
		return err
	}

	log.Printf("development root admin created for %s", email)
	return nil
}
