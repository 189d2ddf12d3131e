package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	uuid "github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dadyutenga/driver-app-backend/internal/core/domain"
	"github.com/dadyutenga/driver-app-backend/internal/core/port"
	"github.com/dadyutenga/driver-app-backend/internal/infra/logger"
	"github.com/dadyutenga/driver-app-backend/internal/infra/security"
	"github.com/dadyutenga/driver-app-backend/internal/repository"
)

// PasswordService handles forgotten-password resets and authenticated changes.
type PasswordService struct {
	accounts  port.AccountRepository
	sessions  port.SessionRepository
	otp       *OTPService
	events    port.EventPublisher
	validator *security.PasswordValidator
	logger    *zap.Logger
	now       func() time.Time
}

// NewPasswordService wires the password flows.
func NewPasswordService(
	accounts port.AccountRepository,
	sessions port.SessionRepository,
	otp *OTPService,
	events port.EventPublisher,
	log *zap.Logger,
) *PasswordService {
	if log == nil {
		log = zap.NewNop()
	}
	return &PasswordService{
		accounts:  accounts,
		sessions:  sessions,
		otp:       otp,
		events:    events,
		validator: security.DefaultPasswordValidator(),
		logger:    log,
		now:       time.Now,
	}
}

// WithClock allows injection of a custom clock (primarily for testing).
func (s *PasswordService) WithClock(now func() time.Time) *PasswordService {
	if now != nil {
		s.now = now
	}
	return s
}

// RequestReset issues a password reset challenge. Repeated requests inside
// the resend cooldown are rejected with a RateLimitedError. Unknown
// identifiers are swallowed so the endpoint never reveals whether an account
// exists; the miss is only logged.
func (s *PasswordService) RequestReset(ctx context.Context, identifier string) error {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil
	}

	account, err := s.accounts.GetByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.logger.Info("password reset requested for unknown identifier",
				zap.String("identifier", logger.MaskRecipient(identifier)),
			)
			return nil
		}
		return fmt.Errorf("look up account: %w", err)
	}

	recipient := account.ContactFor(domain.PurposePasswordReset)
	if recipient == "" {
		s.logger.Warn("password reset requested for account without contact",
			zap.String("account_id", account.ID),
		)
		return nil
	}

	if _, err := s.otp.ResendChallenge(ctx, account.ID, domain.PurposePasswordReset, recipient); err != nil {
		var rateErr *RateLimitedError
		if errors.As(err, &rateErr) {
			return err
		}
		return fmt.Errorf("issue reset challenge: %w", err)
	}
	return nil
}

// ConfirmReset verifies the reset code, installs the new password, and closes
// every open session for the account.
func (s *PasswordService) ConfirmReset(ctx context.Context, identifier, code, newPassword string) error {
	account, err := s.accounts.GetByIdentifier(ctx, strings.TrimSpace(identifier))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrChallengeNotFound
		}
		return fmt.Errorf("look up account: %w", err)
	}

	recipient := account.ContactFor(domain.PurposePasswordReset)
	if recipient == "" {
		return ErrChallengeNotFound
	}

	if _, err := s.otp.VerifyChallenge(ctx, account.ID, domain.PurposePasswordReset, recipient, code); err != nil {
		return err
	}

	if err := s.validator.Validate(newPassword); err != nil {
		return fmt.Errorf("%w: %v", ErrPasswordPolicyViolation, err)
	}

	return s.installPassword(ctx, account, newPassword, "", "reset")
}

// ChangePassword verifies the current password and installs the new one. All
// sessions except the caller's are closed.
func (s *PasswordService) ChangePassword(ctx context.Context, accountID, sessionID, currentPassword, newPassword string) error {
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrAccountNotFound
		}
		return fmt.Errorf("look up account: %w", err)
	}

	ok, err := security.VerifyPassword(currentPassword, account.PasswordHash)
	if err != nil {
		return fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return ErrInvalidCredentials
	}

	validator := security.NewPasswordValidator(
		security.MinLengthRule(8),
		security.RequireLetterRule(),
		security.RequireDigitRule(),
		security.RequirePasswordStrengthRule(2),
		security.RequireDifferentFrom(currentPassword),
	)
	if err := validator.Validate(newPassword); err != nil {
		return fmt.Errorf("%w: %v", ErrPasswordPolicyViolation, err)
	}

	return s.installPassword(ctx, account, newPassword, sessionID, "change")
}

func (s *PasswordService) installPassword(ctx context.Context, account *domain.Account, newPassword, keepSessionID, changedBy string) error {
	hash, err := security.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	now := s.now().UTC()
	if err := s.accounts.UpdatePassword(ctx, account.ID, hash, security.PasswordAlgo, now); err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	var closed int
	var closeErr error
	if keepSessionID == "" {
		closed, closeErr = s.sessions.CloseAll(ctx, account.ID, now, "password_reset")
	} else {
		closed, closeErr = s.sessions.CloseAllExcept(ctx, account.ID, keepSessionID, now, "password_changed")
	}
	if closeErr != nil {
		s.logger.Error("close sessions after password change", zap.Error(closeErr), zap.String("account_id", account.ID))
	}

	if s.events != nil {
		event := domain.PasswordChangedEvent{
			EventID:        uuid.NewString(),
			AccountID:      account.ID,
			ChangedAt:      now,
			ChangedBy:      changedBy,
			SessionsClosed: closed,
		}
		if err := s.events.PublishPasswordChanged(ctx, event); err != nil {
			s.logger.Error("publish password changed event", zap.Error(err), zap.String("account_id", account.ID))
		}
	}

	return nil
}
