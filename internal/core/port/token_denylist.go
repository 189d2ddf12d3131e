package port

import (
	"context"
	"time"
)

// TokenDenylist records revoked refresh token identifiers until they would
// have expired anyway.
type TokenDenylist interface {
	Deny(ctx context.Context, jti string, ttl time.Duration) error
	IsDenied(ctx context.Context, jti string) (bool, error)
}
