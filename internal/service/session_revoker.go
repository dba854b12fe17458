package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/prperemyshlev/user-service/pkg/database"
)

// RedisSessionRevoker marks users whose access tokens issued before a point in time are no
// longer accepted. Marks expire with the access token lifetime.
type RedisSessionRevoker struct {
	redis *database.Redis
	ttl   time.Duration
	now   func() time.Time
}

// NewRedisSessionRevoker creates a revoker keeping marks for ttl
func NewRedisSessionRevoker(redis *database.Redis, ttl time.Duration) *RedisSessionRevoker {
	return &RedisSessionRevoker{redis: redis, ttl: ttl, now: time.Now}
}

func revocationKey(userID string) string {
	return fmt.Sprintf("revoked:user:%s", userID)
}

// RevokeUser rejects every access token issued to the user up to now.
// The mark is stored in Unix milliseconds.
func (r *RedisSessionRevoker) RevokeUser(ctx context.Context, userID string) error {
	at := strconv.FormatInt(r.now().UnixMilli(), 10)
	if err := r.redis.Client.Set(ctx, revocationKey(userID), at, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to revoke user sessions: %w", err)
	}
	return nil
}

// IsRevoked reports whether a token issued at issuedAt predates the user's revocation mark
func (r *RedisSessionRevoker) IsRevoked(ctx context.Context, userID string, issuedAt time.Time) (bool, error) {
	value, err := r.redis.Client.Get(ctx, revocationKey(userID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check user revocation: %w", err)
	}

	mark, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return false, fmt.Errorf("invalid revocation mark: %w", err)
	}

	revokedAt := time.UnixMilli(mark)
	return !issuedAt.After(revokedAt), nil
}
