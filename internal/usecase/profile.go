package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/dadyutenga/driver-app-backend/internal/core/domain"
	"github.com/dadyutenga/driver-app-backend/internal/core/port"
	"github.com/dadyutenga/driver-app-backend/internal/infra/logger"
	"github.com/dadyutenga/driver-app-backend/internal/repository"
)

// ProfileUpdateInput carries the mutable profile fields. Nil pointers leave
// the current value untouched.
type ProfileUpdateInput struct {
	FullName *string
	Email    *string
	Phone    *string
}

// ProfileService reads and updates driver profiles.
type ProfileService struct {
	accounts port.AccountRepository
	otp      *OTPService
	logger   *zap.Logger
	now      func() time.Time
}

// NewProfileService wires the profile flow.
func NewProfileService(accounts port.AccountRepository, otp *OTPService, log *zap.Logger) *ProfileService {
	if log == nil {
		log = zap.NewNop()
	}
	return &ProfileService{
		accounts: accounts,
		otp:      otp,
		logger:   log,
		now:      time.Now,
	}
}

// WithClock allows injection of a custom clock (primarily for testing).
func (s *ProfileService) WithClock(now func() time.Time) *ProfileService {
	if now != nil {
		s.now = now
	}
	return s
}

// Get returns the account for the authenticated driver.
func (s *ProfileService) Get(ctx context.Context, accountID string) (*domain.Account, error) {
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("look up account: %w", err)
	}
	return account, nil
}

// Update applies the changed fields. Changing a contact clears its verified
// flag and issues a fresh verification challenge to the new destination.
func (s *ProfileService) Update(ctx context.Context, accountID string, input ProfileUpdateInput) (*domain.Account, error) {
	account, err := s.Get(ctx, accountID)
	if err != nil {
		return nil, err
	}

	if input.FullName != nil {
		name := strings.TrimSpace(*input.FullName)
		if name == "" {
			return nil, fmt.Errorf("full name cannot be empty")
		}
		account.FullName = name
	}

	var emailChanged, phoneChanged bool

	if input.Email != nil {
		email := strings.TrimSpace(*input.Email)
		if email != "" && !domain.IsEmailAddress(email) {
			return nil, fmt.Errorf("invalid email address")
		}
		if account.Email == nil || *account.Email != email {
			if email == "" {
				account.Email = nil
			} else {
				account.Email = &email
			}
			account.EmailVerified = false
			emailChanged = email != ""
		}
	}

	if input.Phone != nil {
		phone := strings.TrimSpace(*input.Phone)
		if phone != "" && domain.IsEmailAddress(phone) {
			return nil, fmt.Errorf("invalid phone number")
		}
		if account.Phone == nil || *account.Phone != phone {
			if phone == "" {
				account.Phone = nil
			} else {
				account.Phone = &phone
			}
			account.PhoneVerified = false
			phoneChanged = phone != ""
		}
	}

	if account.Email == nil && account.Phone == nil {
		return nil, ErrMissingContact
	}

	account.UpdatedAt = s.now().UTC()

	if err := s.accounts.UpdateProfile(ctx, *account); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrDuplicateIdentifier
		}
		return nil, fmt.Errorf("update profile: %w", err)
	}

	if emailChanged {
		s.issueContactChallenge(ctx, account.ID, domain.PurposeEmailVerify, *account.Email)
	}
	if phoneChanged {
		s.issueContactChallenge(ctx, account.ID, domain.PurposePhoneVerify, *account.Phone)
	}

	return account, nil
}

func (s *ProfileService) issueContactChallenge(ctx context.Context, accountID string, purpose domain.ChallengePurpose, recipient string) {
	if _, err := s.otp.RequestChallenge(ctx, accountID, purpose, recipient); err != nil {
		s.logger.Error("issue contact verification challenge",
			zap.Error(err),
			zap.String("account_id", accountID),
			zap.String("recipient", logger.MaskRecipient(recipient)),
		)
	}
}
