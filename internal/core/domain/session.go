package domain

import "time"

// Session represents one authenticated client connection for a driver account.
type Session struct {
	ID            string
	AccountID     string
	ClientAddress *string
	ClientAgent   *string
	CreatedAt     time.Time
	LastSeenAt    time.Time
	ClosedAt      *time.Time
	CloseReason   *string
}

// IsOpen reports whether the session has not been explicitly closed.
func (s Session) IsOpen() bool {
	return s.ClosedAt == nil
}
