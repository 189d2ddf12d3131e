package usecase

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrChallengeNotFound indicates no active challenge exists for the key.
	ErrChallengeNotFound = errors.New("no active verification code found")
	// ErrChallengeExpired indicates the challenge's validity window has passed.
	ErrChallengeExpired = errors.New("verification code expired")
	// ErrChallengeExhausted indicates no verification attempts remain.
	ErrChallengeExhausted = errors.New("verification attempts exhausted")
	// ErrInvalidCredentials indicates the identifier/password pair did not match.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountNotFound indicates no account matches the identifier.
	ErrAccountNotFound = errors.New("account not found")
	// ErrAccountInactive indicates the account exists but is disabled.
	ErrAccountInactive = errors.New("account is inactive")
	// ErrDuplicateIdentifier indicates the email or phone is already registered.
	ErrDuplicateIdentifier = errors.New("identifier already registered")
	// ErrSessionNotFound indicates no session matches the identifier.
	ErrSessionNotFound = errors.New("session not found")
	// ErrInvalidAccessToken indicates the access token failed validation.
	ErrInvalidAccessToken = errors.New("invalid access token")
	// ErrExpiredAccessToken indicates the access token has expired.
	ErrExpiredAccessToken = errors.New("access token expired")
	// ErrInvalidRefreshToken indicates the refresh token failed validation or was revoked.
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	// ErrPasswordPolicyViolation indicates the password does not satisfy the policy.
	ErrPasswordPolicyViolation = errors.New("password does not meet complexity requirements")
	// ErrMissingContact indicates the account has no contact for the requested channel.
	ErrMissingContact = errors.New("no contact available for delivery")
)

// InvalidCodeError reports a failed code comparison and how many attempts remain.
type InvalidCodeError struct {
	AttemptsRemaining int
}

// Error implements error for InvalidCodeError.
func (e *InvalidCodeError) Error() string {
	return fmt.Sprintf("invalid verification code, %d attempts remaining", e.AttemptsRemaining)
}

// RateLimitedError reports a cooldown or window rejection and when to retry.
type RateLimitedError struct {
	Scope      string
	RetryAfter time.Duration
}

// Error implements error for RateLimitedError.
func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited (%s), retry after %s", e.Scope, e.RetryAfter)
}
