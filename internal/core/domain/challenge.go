package domain

import "time"

// ChallengePurpose identifies the flow an OTP challenge belongs to.
type ChallengePurpose string

const (
	PurposeEmailVerify   ChallengePurpose = "email"
	PurposePhoneVerify   ChallengePurpose = "phone"
	PurposePasswordReset ChallengePurpose = "password_reset"
	PurposeLogin         ChallengePurpose = "login"
)

// Valid reports whether the purpose is one of the known challenge flows.
func (p ChallengePurpose) Valid() bool {
	switch p {
	case PurposeEmailVerify, PurposePhoneVerify, PurposePasswordReset, PurposeLogin:
		return true
	}
	return false
}

// ChallengeState is derived from the stored counters and timestamps, never persisted.
type ChallengeState string

const (
	ChallengeActive    ChallengeState = "active"
	ChallengeVerified  ChallengeState = "verified"
	ChallengeExpired   ChallengeState = "expired"
	ChallengeExhausted ChallengeState = "exhausted"
)

// ChallengeKey identifies the unique slot a challenge occupies. At most one
// challenge per key may be active at a time; issuing a new one supersedes the rest.
type ChallengeKey struct {
	AccountID string
	Purpose   ChallengePurpose
	Recipient string
}

// Challenge is a single issued OTP with its own attempt and expiry state.
type Challenge struct {
	ID              string
	AccountID       string
	Purpose         ChallengePurpose
	Recipient       string
	Code            string
	AttemptsUsed    int
	AttemptsAllowed int
	CreatedAt       time.Time
	ExpiresAt       time.Time
	VerifiedAt      *time.Time
}

// Key returns the supersession key for the challenge.
func (c Challenge) Key() ChallengeKey {
	return ChallengeKey{AccountID: c.AccountID, Purpose: c.Purpose, Recipient: c.Recipient}
}

// State derives the lifecycle state at the supplied moment. Verified wins over
// Expired so superseded (soft-closed) challenges read as closed, not timed out.
func (c Challenge) State(at time.Time) ChallengeState {
	if c.VerifiedAt != nil {
		return ChallengeVerified
	}
	if at.After(c.ExpiresAt) {
		return ChallengeExpired
	}
	if c.AttemptsUsed >= c.AttemptsAllowed {
		return ChallengeExhausted
	}
	return ChallengeActive
}

// AttemptsRemaining reports how many verification attempts are left.
func (c Challenge) AttemptsRemaining() int {
	remaining := c.AttemptsAllowed - c.AttemptsUsed
	if remaining < 0 {
		return 0
	}
	return remaining
}

// AttemptResult is the outcome of an atomic compare-and-increment against a challenge.
type AttemptResult struct {
	Matched           bool
	AttemptsRemaining int
}
