package kafka

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/dadyutenga/driver-app-backend/internal/core/domain"
	"github.com/dadyutenga/driver-app-backend/internal/core/port"
)

// StubPublisher logs events instead of sending them to Kafka. Useful for development environments.
type StubPublisher struct {
	logger *zap.Logger
}

// NewStubPublisher constructs a development-friendly event publisher.
func NewStubPublisher(logger *zap.Logger) *StubPublisher {
	return &StubPublisher{logger: logger}
}

func (p *StubPublisher) logEvent(eventType, accountID string, at time.Time, payload any) {
	if at.IsZero() {
		at = time.Now().UTC()
	}

	p.logger.Info("Stub event published",
		zap.String("event_type", eventType),
		zap.String("account_id", accountID),
		zap.Time("timestamp", at.UTC()),
		zap.Any("payload", payload),
	)
}

// PublishAccountRegistered logs driver.account.registered events.
func (p *StubPublisher) PublishAccountRegistered(_ context.Context, event domain.AccountRegisteredEvent) error {
	payload := map[string]any{
		"account_id":    event.AccountID,
		"full_name":     event.FullName,
		"email":         event.Email,
		"phone":         event.Phone,
		"registered_at": event.RegisteredAt,
		"metadata":      event.Metadata,
	}
	p.logEvent("driver.account.registered", event.AccountID, event.RegisteredAt, payload)
	return nil
}

// PublishChallengeVerified logs driver.otp.verified events.
func (p *StubPublisher) PublishChallengeVerified(_ context.Context, event domain.ChallengeVerifiedEvent) error {
	payload := map[string]any{
		"challenge_id": event.ChallengeID,
		"account_id":   event.AccountID,
		"purpose":      event.Purpose,
		"verified_at":  event.VerifiedAt,
		"metadata":     event.Metadata,
	}
	p.logEvent("driver.otp.verified", event.AccountID, event.VerifiedAt, payload)
	return nil
}

// PublishPasswordChanged logs driver.password.changed events.
func (p *StubPublisher) PublishPasswordChanged(_ context.Context, event domain.PasswordChangedEvent) error {
	payload := map[string]any{
		"account_id":      event.AccountID,
		"changed_at":      event.ChangedAt,
		"changed_by":      event.ChangedBy,
		"sessions_closed": event.SessionsClosed,
		"metadata":        event.Metadata,
	}
	p.logEvent("driver.password.changed", event.AccountID, event.ChangedAt, payload)
	return nil
}

// PublishSessionClosed logs driver.session.revoked events.
func (p *StubPublisher) PublishSessionClosed(_ context.Context, event domain.SessionClosedEvent) error {
	payload := map[string]any{
		"session_id": event.SessionID,
		"account_id": event.AccountID,
		"closed_at":  event.ClosedAt,
		"closed_by":  event.ClosedBy,
		"reason":     event.Reason,
		"metadata":   event.Metadata,
	}
	p.logEvent("driver.session.revoked", event.AccountID, event.ClosedAt, payload)
	return nil
}

var _ port.EventPublisher = (*StubPublisher)(nil)
