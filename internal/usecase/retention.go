package usecase

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/dadyutenga/driver-app-backend/internal/core/port"
)

// RetentionReport summarizes a sweep run.
type RetentionReport struct {
	ChallengesRemoved int
	SessionsRemoved   int
}

// RetentionService purges challenges and sessions past their retention window.
type RetentionService struct {
	challenges port.ChallengeStore
	sessions   port.SessionRepository
	logger     *zap.Logger

	challengeWindow time.Duration
	sessionWindow   time.Duration

	now func() time.Time
}

// NewRetentionService wires the retention sweeper. Windows default to 30 days.
func NewRetentionService(challenges port.ChallengeStore, sessions port.SessionRepository, challengeWindow, sessionWindow time.Duration, log *zap.Logger) *RetentionService {
	if log == nil {
		log = zap.NewNop()
	}
	if challengeWindow <= 0 {
		challengeWindow = 720 * time.Hour
	}
	if sessionWindow <= 0 {
		sessionWindow = 720 * time.Hour
	}
	return &RetentionService{
		challenges:      challenges,
		sessions:        sessions,
		logger:          log,
		challengeWindow: challengeWindow,
		sessionWindow:   sessionWindow,
		now:             time.Now,
	}
}

// WithClock allows injection of a custom clock (primarily for testing).
func (s *RetentionService) WithClock(now func() time.Time) *RetentionService {
	if now != nil {
		s.now = now
	}
	return s
}

// Sweep removes challenges and sessions created before their retention cutoff.
func (s *RetentionService) Sweep(ctx context.Context) (RetentionReport, error) {
	now := s.now().UTC()
	report := RetentionReport{}

	removed, err := s.challenges.Sweep(ctx, now.Add(-s.challengeWindow))
	if err != nil {
		return report, fmt.Errorf("sweep challenges: %w", err)
	}
	report.ChallengesRemoved = removed

	removed, err = s.sessions.Sweep(ctx, now.Add(-s.sessionWindow))
	if err != nil {
		return report, fmt.Errorf("sweep sessions: %w", err)
	}
	report.SessionsRemoved = removed

	s.logger.Info("retention sweep completed",
		zap.Int("challenges_removed", report.ChallengesRemoved),
		zap.Int("sessions_removed", report.SessionsRemoved),
	)

	return report, nil
}
