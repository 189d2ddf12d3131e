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
	"github.com/dadyutenga/driver-app-backend/internal/repository"
)

// SessionService lists and terminates device sessions.
type SessionService struct {
	sessions port.SessionRepository
	events   port.EventPublisher
	logger   *zap.Logger
	now      func() time.Time
}

// NewSessionService wires session management.
func NewSessionService(sessions port.SessionRepository, events port.EventPublisher, log *zap.Logger) *SessionService {
	if log == nil {
		log = zap.NewNop()
	}
	return &SessionService{
		sessions: sessions,
		events:   events,
		logger:   log,
		now:      time.Now,
	}
}

// WithClock allows injection of a custom clock (primarily for testing).
func (s *SessionService) WithClock(now func() time.Time) *SessionService {
	if now != nil {
		s.now = now
	}
	return s
}

// List returns the open sessions for the account.
func (s *SessionService) List(ctx context.Context, accountID string) ([]domain.Session, error) {
	sessions, err := s.sessions.ListActive(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}

// Terminate closes a single session. The session must belong to the calling
// account; anything else reads as not found.
func (s *SessionService) Terminate(ctx context.Context, accountID, sessionID string) error {
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrSessionNotFound
		}
		return fmt.Errorf("look up session: %w", err)
	}

	if session.AccountID != accountID {
		return ErrSessionNotFound
	}

	now := s.now().UTC()
	if err := s.sessions.Close(ctx, sessionID, now, "terminated"); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrSessionNotFound
		}
		return fmt.Errorf("close session: %w", err)
	}

	if s.events != nil {
		event := domain.SessionClosedEvent{
			EventID:   uuid.NewString(),
			SessionID: sessionID,
			AccountID: accountID,
			ClosedAt:  now,
			ClosedBy:  "owner",
			Reason:    "terminated",
		}
		if err := s.events.PublishSessionClosed(ctx, event); err != nil {
			s.logger.Error("publish session closed event", zap.Error(err), zap.String("session_id", sessionID))
		}
	}

	return nil
}
