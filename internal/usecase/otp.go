package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	uuid "github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dadyutenga/driver-app-backend/internal/core/domain"
	"github.com/dadyutenga/driver-app-backend/internal/core/port"
	"github.com/dadyutenga/driver-app-backend/internal/infra/logger"
	"github.com/dadyutenga/driver-app-backend/internal/infra/notify"
	"github.com/dadyutenga/driver-app-backend/internal/infra/security"
	"github.com/dadyutenga/driver-app-backend/internal/repository"
)

const (
	defaultCodeTTL        = 10 * time.Minute
	defaultMaxAttempts    = 3
	defaultResendCooldown = 60 * time.Second
)

// OTPService owns the challenge lifecycle: issuing, verification, and resends.
type OTPService struct {
	store      port.ChallengeStore
	dispatcher port.Dispatcher
	logger     *zap.Logger

	codeTTL        time.Duration
	maxAttempts    int
	resendCooldown time.Duration

	now func() time.Time
}

// NewOTPService constructs the challenge engine.
func NewOTPService(store port.ChallengeStore, dispatcher port.Dispatcher, log *zap.Logger) *OTPService {
	if log == nil {
		log = zap.NewNop()
	}
	return &OTPService{
		store:          store,
		dispatcher:     dispatcher,
		logger:         log,
		codeTTL:        defaultCodeTTL,
		maxAttempts:    defaultMaxAttempts,
		resendCooldown: defaultResendCooldown,
		now:            time.Now,
	}
}

// WithClock allows injection of a custom clock (primarily for testing).
func (s *OTPService) WithClock(now func() time.Time) *OTPService {
	if now != nil {
		s.now = now
	}
	return s
}

// WithPolicy overrides the TTL, attempt cap, and resend cooldown.
func (s *OTPService) WithPolicy(codeTTL time.Duration, maxAttempts int, resendCooldown time.Duration) *OTPService {
	if codeTTL > 0 {
		s.codeTTL = codeTTL
	}
	if maxAttempts > 0 {
		s.maxAttempts = maxAttempts
	}
	if resendCooldown > 0 {
		s.resendCooldown = resendCooldown
	}
	return s
}

// RequestChallenge atomically supersedes any open challenge for the key,
// persists the replacement, and hands delivery to the async dispatcher.
// Concurrent requests for the same key serialize inside the store, so at
// most one open challenge ever exists. The returned challenge is
// already persisted; dispatch failures never roll it back. Callers must not
// expose the Code field outside the process.
func (s *OTPService) RequestChallenge(ctx context.Context, accountID string, purpose domain.ChallengePurpose, recipient string) (*domain.Challenge, error) {
	if accountID == "" {
		return nil, fmt.Errorf("account id is required")
	}
	if !purpose.Valid() {
		return nil, fmt.Errorf("unknown challenge purpose %q", purpose)
	}
	if recipient == "" {
		return nil, ErrMissingContact
	}

	now := s.now().UTC()

	code, err := security.GenerateChallengeCode(purpose)
	if err != nil {
		return nil, fmt.Errorf("generate challenge code: %w", err)
	}

	challenge := domain.Challenge{
		ID:              uuid.NewString(),
		AccountID:       accountID,
		Purpose:         purpose,
		Recipient:       recipient,
		Code:            code,
		AttemptsUsed:    0,
		AttemptsAllowed: s.maxAttempts,
		CreatedAt:       now,
		ExpiresAt:       now.Add(s.codeTTL),
	}

	superseded, err := s.store.Issue(ctx, challenge)
	if err != nil {
		return nil, fmt.Errorf("issue challenge: %w", err)
	}
	if superseded > 0 {
		s.logger.Debug("superseded open challenges",
			zap.Int("count", superseded),
			zap.String("purpose", string(purpose)),
			zap.String("recipient", logger.MaskRecipient(recipient)),
		)
	}

	s.dispatch(challenge)

	return &challenge, nil
}

// VerifyChallenge checks the submitted code against the active challenge for
// the key. Expiry is checked before any attempt is consumed. The comparison
// itself runs through the store's single serialized operation, so concurrent
// submissions can never record more attempts than the cap allows.
func (s *OTPService) VerifyChallenge(ctx context.Context, accountID string, purpose domain.ChallengePurpose, recipient string, code string) (*domain.Challenge, error) {
	if !purpose.Valid() {
		return nil, fmt.Errorf("unknown challenge purpose %q", purpose)
	}

	now := s.now().UTC()
	key := domain.ChallengeKey{AccountID: accountID, Purpose: purpose, Recipient: recipient}

	challenge, err := s.store.FindOpen(ctx, key)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrChallengeNotFound
		}
		return nil, fmt.Errorf("find open challenge: %w", err)
	}

	switch challenge.State(now) {
	case domain.ChallengeExpired:
		return nil, ErrChallengeExpired
	case domain.ChallengeExhausted:
		return nil, ErrChallengeExhausted
	case domain.ChallengeVerified:
		return nil, ErrChallengeNotFound
	}

	result, err := s.store.CompareAndIncrement(ctx, challenge.ID, code, now)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrAttemptsExhausted):
			return nil, ErrChallengeExhausted
		case errors.Is(err, repository.ErrNotFound):
			return nil, ErrChallengeNotFound
		}
		return nil, fmt.Errorf("consume challenge attempt: %w", err)
	}

	if !result.Matched {
		return nil, &InvalidCodeError{AttemptsRemaining: result.AttemptsRemaining}
	}

	challenge.AttemptsUsed = challenge.AttemptsAllowed - result.AttemptsRemaining
	verifiedAt := now
	challenge.VerifiedAt = &verifiedAt

	return challenge, nil
}

// ResendChallenge re-issues the challenge for the key unless the current one
// is younger than the cooldown window.
func (s *OTPService) ResendChallenge(ctx context.Context, accountID string, purpose domain.ChallengePurpose, recipient string) (*domain.Challenge, error) {
	now := s.now().UTC()
	key := domain.ChallengeKey{AccountID: accountID, Purpose: purpose, Recipient: recipient}

	current, err := s.store.FindOpen(ctx, key)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("find open challenge: %w", err)
	}

	if current != nil {
		age := now.Sub(current.CreatedAt)
		if age < s.resendCooldown {
			return nil, &RateLimitedError{
				Scope:      "otp_resend",
				RetryAfter: s.resendCooldown - age,
			}
		}
	}

	return s.RequestChallenge(ctx, accountID, purpose, recipient)
}

func (s *OTPService) dispatch(challenge domain.Challenge) {
	if s.dispatcher == nil {
		return
	}

	if !s.dispatcher.Enqueue(notify.BuildDelivery(challenge)) {
		s.logger.Error("challenge delivery rejected by dispatcher",
			zap.String("challenge_id", challenge.ID),
			zap.String("purpose", string(challenge.Purpose)),
			zap.String("recipient", logger.MaskRecipient(challenge.Recipient)),
		)
	}
}
