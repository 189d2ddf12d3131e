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

// RegisterInput carries the fields needed to create a driver account.
type RegisterInput struct {
	FullName   string
	Identifier string
	Password   string
}

// RegistrationService creates driver accounts and kicks off contact verification.
type RegistrationService struct {
	accounts  port.AccountRepository
	otp       *OTPService
	events    port.EventPublisher
	validator *security.PasswordValidator
	logger    *zap.Logger
	now       func() time.Time
}

// NewRegistrationService wires the registration flow.
func NewRegistrationService(accounts port.AccountRepository, otp *OTPService, events port.EventPublisher, log *zap.Logger) *RegistrationService {
	if log == nil {
		log = zap.NewNop()
	}
	return &RegistrationService{
		accounts:  accounts,
		otp:       otp,
		events:    events,
		validator: security.DefaultPasswordValidator(),
		logger:    log,
		now:       time.Now,
	}
}

// WithClock allows injection of a custom clock (primarily for testing).
func (s *RegistrationService) WithClock(now func() time.Time) *RegistrationService {
	if now != nil {
		s.now = now
	}
	return s
}

// Register creates the account and issues the first contact verification
// challenge. The account starts active but with both contacts unverified.
func (s *RegistrationService) Register(ctx context.Context, input RegisterInput) (*domain.Account, error) {
	fullName := strings.TrimSpace(input.FullName)
	identifier := strings.TrimSpace(input.Identifier)
	if fullName == "" {
		return nil, fmt.Errorf("full name is required")
	}
	if identifier == "" {
		return nil, ErrMissingContact
	}

	if err := s.validator.Validate(input.Password); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPasswordPolicyViolation, err)
	}

	hash, err := security.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.now().UTC()
	account := domain.Account{
		ID:           uuid.NewString(),
		FullName:     fullName,
		PasswordHash: hash,
		PasswordAlgo: security.PasswordAlgo,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	purpose := domain.PurposePhoneVerify
	if domain.IsEmailAddress(identifier) {
		account.Email = &identifier
		purpose = domain.PurposeEmailVerify
	} else {
		account.Phone = &identifier
	}

	if err := s.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrDuplicateIdentifier
		}
		return nil, fmt.Errorf("create account: %w", err)
	}

	if s.events != nil {
		event := domain.AccountRegisteredEvent{
			EventID:      uuid.NewString(),
			AccountID:    account.ID,
			FullName:     account.FullName,
			Email:        account.Email,
			Phone:        account.Phone,
			RegisteredAt: now,
		}
		if err := s.events.PublishAccountRegistered(ctx, event); err != nil {
			s.logger.Error("publish account registered event", zap.Error(err), zap.String("account_id", account.ID))
		}
	}

	if _, err := s.otp.RequestChallenge(ctx, account.ID, purpose, identifier); err != nil {
		s.logger.Error("issue registration challenge",
			zap.Error(err),
			zap.String("account_id", account.ID),
			zap.String("recipient", logger.MaskRecipient(identifier)),
		)
	}

	return &account, nil
}
