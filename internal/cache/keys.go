package cache

import (
	"context"
	"time"
)

const (
	UserKeyPrefix      = "user:"
	BlacklistKeyPrefix = "blacklist:"
)

const (
	UserTTL = 5 * time.Minute
)

// UserKey is the cache key for a user record with its roles.
func UserKey(userID string) string {
	return UserKeyPrefix + userID
}

// BlacklistKey is the key marking a revoked token ID.
func BlacklistKey(jti string) string {
	return BlacklistKeyPrefix + jti
}

func Invalidate(ctx context.Context, key string) {
	if client != nil {
		client.Del(ctx, key)
	}
}

// InvalidateUser drops the cached user so role changes take effect on the next request.
func InvalidateUser(ctx context.Context, userID string) {
	Invalidate(ctx, UserKey(userID))
}
