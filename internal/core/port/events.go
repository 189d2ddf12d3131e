package port

import (
	"context"

	"github.com/dadyutenga/driver-app-backend/internal/core/domain"
)

// EventPublisher broadcasts account lifecycle events to downstream consumers.
type EventPublisher interface {
	PublishAccountRegistered(ctx context.Context, event domain.AccountRegisteredEvent) error
	PublishChallengeVerified(ctx context.Context, event domain.ChallengeVerifiedEvent) error
	PublishPasswordChanged(ctx context.Context, event domain.PasswordChangedEvent) error
	PublishSessionClosed(ctx context.Context, event domain.SessionClosedEvent) error
}
