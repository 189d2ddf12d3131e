package domain

import "time"

// AccountRegisteredEvent is emitted when a driver account is created.
type AccountRegisteredEvent struct {
	EventID      string
	AccountID    string
	FullName     string
	Email        *string
	Phone        *string
	RegisteredAt time.Time
	Metadata     map[string]any
}

// ChallengeVerifiedEvent is emitted when an OTP challenge is successfully verified.
type ChallengeVerifiedEvent struct {
	EventID     string
	ChallengeID string
	AccountID   string
	Purpose     ChallengePurpose
	VerifiedAt  time.Time
	Metadata    map[string]any
}

// PasswordChangedEvent is emitted after a password change or reset completes.
type PasswordChangedEvent struct {
	EventID        string
	AccountID      string
	ChangedAt      time.Time
	ChangedBy      string
	SessionsClosed int
	Metadata       map[string]any
}

// SessionClosedEvent is emitted when a session is terminated.
type SessionClosedEvent struct {
	EventID   string
	SessionID string
	AccountID string
	ClosedAt  time.Time
	ClosedBy  string
	Reason    string
	Metadata  map[string]any
}
