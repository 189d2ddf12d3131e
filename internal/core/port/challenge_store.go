package port

import (
	"context"
	"time"

	"github.com/dadyutenga/driver-app-backend/internal/core/domain"
)

// ChallengeStore persists OTP challenges and provides the single serialized
// operation the verification path depends on.
type ChallengeStore interface {
	// FindOpen returns the latest challenge for the key that has not been
	// verified or superseded, or repository.ErrNotFound when none exists.
	// The returned challenge may already be expired or exhausted; callers
	// derive the lifecycle state themselves.
	FindOpen(ctx context.Context, key domain.ChallengeKey) (*domain.Challenge, error)

	// Issue atomically supersedes every open challenge for the new
	// challenge's key and persists the replacement, returning how many rows
	// were closed. Concurrent calls for the same key serialize, so at most
	// one open challenge survives.
	Issue(ctx context.Context, challenge domain.Challenge) (int, error)

	// CompareAndIncrement atomically consumes one attempt on the identified
	// challenge and compares the submitted code in constant time. A match
	// stamps verified_at inside the same transaction. Returns
	// repository.ErrNotFound when the challenge is gone or already closed and
	// repository.ErrAttemptsExhausted when no attempts remain.
	CompareAndIncrement(ctx context.Context, challengeID string, submitted string, at time.Time) (domain.AttemptResult, error)

	// Sweep removes challenges whose expiry predates the cutoff and reports the
	// number of rows deleted.
	Sweep(ctx context.Context, olderThan time.Time) (int, error)
}
