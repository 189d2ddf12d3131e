package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/dadyutenga/driver-app-backend/internal/core/domain"
	"github.com/dadyutenga/driver-app-backend/internal/core/port"
	"github.com/dadyutenga/driver-app-backend/internal/repository"
)

// SessionRepository implements port.SessionRepository backed by PostgreSQL.
type SessionRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewSessionRepository constructs a repository backed by any executor that satisfies pgExecutor.
func NewSessionRepository(exec pgExecutor) *SessionRepository {
	return &SessionRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Create persists a new session record.
func (r *SessionRepository) Create(ctx context.Context, session domain.Session) error {
	stmt, args, err := r.builder.Insert("driver_sessions").
		Columns(
			"id",
			"account_id",
			"client_address",
			"client_agent",
			"created_at",
			"last_seen_at",
			"closed_at",
			"close_reason",
		).
		Values(
			session.ID,
			session.AccountID,
			optionalString(session.ClientAddress),
			optionalString(session.ClientAgent),
			session.CreatedAt,
			session.LastSeenAt,
			session.ClosedAt,
			optionalString(session.CloseReason),
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert session sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert session: %w", err)
	}

	return nil
}

// Get fetches a session by its identifier.
func (r *SessionRepository) Get(ctx context.Context, sessionID string) (*domain.Session, error) {
	stmt, args, err := r.selectSessions().
		Where(squirrel.Eq{"id": sessionID}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select session sql: %w", err)
	}

	session, err := scanSession(r.exec.QueryRow(ctx, stmt, args...))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("scan session: %w", err)
	}

	return session, nil
}

// ListActive returns open sessions for the account ordered by last activity.
func (r *SessionRepository) ListActive(ctx context.Context, accountID string) ([]domain.Session, error) {
	stmt, args, err := r.selectSessions().
		Where(squirrel.Eq{"account_id": accountID}).
		Where("closed_at IS NULL").
		OrderBy("last_seen_at DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list sessions sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	sessions := make([]domain.Session, 0)
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, *session)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}

	return sessions, nil
}

// Touch refreshes the last-seen timestamp when activity occurs.
func (r *SessionRepository) Touch(ctx context.Context, sessionID string, at time.Time) error {
	tag, err := r.exec.Exec(ctx,
		"UPDATE driver_sessions SET last_seen_at = $2 WHERE id = $1 AND closed_at IS NULL",
		sessionID, at.UTC(),
	)
	if err != nil {
		return fmt.Errorf("touch session: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// Close marks a session closed. Closing an already closed session returns
// repository.ErrNotFound so duplicate terminations stay visible to callers.
func (r *SessionRepository) Close(ctx context.Context, sessionID string, at time.Time, reason string) error {
	tag, err := r.exec.Exec(ctx,
		"UPDATE driver_sessions SET closed_at = $2, close_reason = $3 WHERE id = $1 AND closed_at IS NULL",
		sessionID, at.UTC(), reason,
	)
	if err != nil {
		return fmt.Errorf("close session: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// CloseAll closes every open session for the account.
func (r *SessionRepository) CloseAll(ctx context.Context, accountID string, at time.Time, reason string) (int, error) {
	tag, err := r.exec.Exec(ctx,
		"UPDATE driver_sessions SET closed_at = $2, close_reason = $3 WHERE account_id = $1 AND closed_at IS NULL",
		accountID, at.UTC(), reason,
	)
	if err != nil {
		return 0, fmt.Errorf("close sessions for account: %w", err)
	}

	return int(tag.RowsAffected()), nil
}

// CloseAllExcept closes every open session for the account except the one
// identified by exceptID.
func (r *SessionRepository) CloseAllExcept(ctx context.Context, accountID string, exceptID string, at time.Time, reason string) (int, error) {
	tag, err := r.exec.Exec(ctx,
		"UPDATE driver_sessions SET closed_at = $2, close_reason = $3 WHERE account_id = $1 AND id <> $4 AND closed_at IS NULL",
		accountID, at.UTC(), reason, exceptID,
	)
	if err != nil {
		return 0, fmt.Errorf("close other sessions: %w", err)
	}

	return int(tag.RowsAffected()), nil
}

// Sweep removes sessions created before the cutoff regardless of state.
func (r *SessionRepository) Sweep(ctx context.Context, olderThan time.Time) (int, error) {
	stmt, args, err := r.builder.Delete("driver_sessions").
		Where(squirrel.Lt{"created_at": olderThan.UTC()}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build sweep sessions sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return 0, fmt.Errorf("sweep sessions: %w", err)
	}

	return int(tag.RowsAffected()), nil
}

func (r *SessionRepository) selectSessions() squirrel.SelectBuilder {
	return r.builder.Select(
		"id",
		"account_id",
		"client_address",
		"client_agent",
		"created_at",
		"last_seen_at",
		"closed_at",
		"close_reason",
	).From("driver_sessions")
}

func scanSession(row pgx.Row) (*domain.Session, error) {
	var (
		session       domain.Session
		clientAddress sql.NullString
		clientAgent   sql.NullString
		closedAt      sql.NullTime
		closeReason   sql.NullString
	)

	if err := row.Scan(
		&session.ID,
		&session.AccountID,
		&clientAddress,
		&clientAgent,
		&session.CreatedAt,
		&session.LastSeenAt,
		&closedAt,
		&closeReason,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	session.ClientAddress = nullableStringPtr(clientAddress)
	session.ClientAgent = nullableStringPtr(clientAgent)
	session.CloseReason = nullableStringPtr(closeReason)
	if closedAt.Valid {
		t := closedAt.Time.UTC()
		session.ClosedAt = &t
	}

	return &session, nil
}

var _ port.SessionRepository = (*SessionRepository)(nil)
