package port

import (
	"context"
	"time"

	"github.com/dadyutenga/driver-app-backend/internal/core/domain"
)

// SessionRepository tracks authenticated device sessions for driver accounts.
type SessionRepository interface {
	Create(ctx context.Context, session domain.Session) error
	Get(ctx context.Context, sessionID string) (*domain.Session, error)
	ListActive(ctx context.Context, accountID string) ([]domain.Session, error)
	Touch(ctx context.Context, sessionID string, at time.Time) error
	Close(ctx context.Context, sessionID string, at time.Time, reason string) error
	CloseAll(ctx context.Context, accountID string, at time.Time, reason string) (int, error)
	CloseAllExcept(ctx context.Context, accountID string, exceptID string, at time.Time, reason string) (int, error)
	Sweep(ctx context.Context, olderThan time.Time) (int, error)
}
