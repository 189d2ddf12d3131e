package domain

import (
	"strings"
	"time"
)

// Account mirrors the persisted representation in the accounts table.
type Account struct {
	ID            string
	FullName      string
	Email         *string
	Phone         *string
	PasswordHash  string
	PasswordAlgo  string
	EmailVerified bool
	PhoneVerified bool
	IsActive      bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// PrimaryContact returns the preferred delivery destination: email first, then phone.
func (a Account) PrimaryContact() string {
	if a.Email != nil && *a.Email != "" {
		return *a.Email
	}
	if a.Phone != nil {
		return *a.Phone
	}
	return ""
}

// ContactFor resolves the delivery destination for a challenge purpose.
// Password reset and email verification prefer email; phone verification and
// login step-up fall back to whichever contact exists.
func (a Account) ContactFor(purpose ChallengePurpose) string {
	switch purpose {
	case PurposeEmailVerify, PurposePasswordReset:
		if a.Email != nil && *a.Email != "" {
			return *a.Email
		}
	case PurposePhoneVerify:
		if a.Phone != nil && *a.Phone != "" {
			return *a.Phone
		}
	}
	return a.PrimaryContact()
}

// IsEmailAddress reports whether the identifier looks like an email rather than
// a phone number. Channel selection everywhere keys off this single heuristic.
func IsEmailAddress(identifier string) bool {
	return strings.Contains(identifier, "@")
}
