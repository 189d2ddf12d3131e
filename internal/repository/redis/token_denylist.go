package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dadyutenga/driver-app-backend/internal/core/port"
)

// TokenDenylistRepository stores revoked refresh token identifiers in Redis.
type TokenDenylistRepository struct {
	client *redis.Client
	prefix string
}

// NewTokenDenylistRepository constructs a Redis-backed refresh token denylist.
func NewTokenDenylistRepository(client *redis.Client, prefix string) *TokenDenylistRepository {
	if prefix == "" {
		prefix = "driver:token-denylist"
	}
	return &TokenDenylistRepository{client: client, prefix: prefix}
}

// Deny records the token identifier until its natural expiry.
func (r *TokenDenylistRepository) Deny(ctx context.Context, jti string, ttl time.Duration) error {
	if jti == "" {
		return errors.New("jti is required")
	}
	if ttl <= 0 {
		ttl = time.Minute
	}

	if err := r.client.Set(ctx, r.key(jti), "1", ttl).Err(); err != nil {
		return fmt.Errorf("redis set denylist: %w", err)
	}

	return nil
}

// IsDenied reports whether the token identifier has been revoked.
func (r *TokenDenylistRepository) IsDenied(ctx context.Context, jti string) (bool, error) {
	if jti == "" {
		return false, errors.New("jti is required")
	}

	n, err := r.client.Exists(ctx, r.key(jti)).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists denylist: %w", err)
	}

	return n > 0, nil
}

func (r *TokenDenylistRepository) key(jti string) string {
	return fmt.Sprintf("%s:%s", r.prefix, jti)
}

var _ port.TokenDenylist = (*TokenDenylistRepository)(nil)
