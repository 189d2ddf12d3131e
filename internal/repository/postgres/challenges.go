package postgres

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/dadyutenga/driver-app-backend/internal/core/domain"
	"github.com/dadyutenga/driver-app-backend/internal/core/port"
	"github.com/dadyutenga/driver-app-backend/internal/repository"
)

// ChallengeRepository implements port.ChallengeStore backed by PostgreSQL.
type ChallengeRepository struct {
	exec    txBeginner
	builder squirrel.StatementBuilderType
}

// NewChallengeRepository constructs a PostgreSQL-backed challenge store.
func NewChallengeRepository(exec txBeginner) *ChallengeRepository {
	return &ChallengeRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Issue soft-closes every open challenge for the key and inserts the
// replacement in a single transaction. An advisory lock on the key serializes
// concurrent issuers, so at most one open row survives.
func (r *ChallengeRepository) Issue(ctx context.Context, challenge domain.Challenge) (int, error) {
	tx, err := r.exec.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin issue challenge tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	key := challenge.Key()
	lockToken := fmt.Sprintf("otp:%s:%s:%s", key.AccountID, key.Purpose, key.Recipient)
	if _, err := tx.Exec(ctx,
		"SELECT pg_advisory_xact_lock(hashtextextended($1, 0))",
		lockToken,
	); err != nil {
		return 0, fmt.Errorf("acquire challenge issue lock: %w", err)
	}

	supersedeStmt, supersedeArgs, err := r.builder.Update("otp_challenges").
		Set("verified_at", challenge.CreatedAt.UTC()).
		Where(squirrel.Eq{
			"account_id": key.AccountID,
			"purpose":    key.Purpose,
			"recipient":  key.Recipient,
		}).
		Where("verified_at IS NULL").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build supersede challenges sql: %w", err)
	}

	tag, err := tx.Exec(ctx, supersedeStmt, supersedeArgs...)
	if err != nil {
		return 0, fmt.Errorf("supersede challenges: %w", err)
	}
	superseded := int(tag.RowsAffected())

	insertStmt, insertArgs, err := r.builder.Insert("otp_challenges").
		Columns(
			"id",
			"account_id",
			"purpose",
			"recipient",
			"code",
			"attempts_used",
			"attempts_allowed",
			"created_at",
			"expires_at",
			"verified_at",
		).
		Values(
			challenge.ID,
			challenge.AccountID,
			challenge.Purpose,
			challenge.Recipient,
			challenge.Code,
			challenge.AttemptsUsed,
			challenge.AttemptsAllowed,
			challenge.CreatedAt,
			challenge.ExpiresAt,
			challenge.VerifiedAt,
		).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build insert challenge sql: %w", err)
	}

	if _, err := tx.Exec(ctx, insertStmt, insertArgs...); err != nil {
		return 0, fmt.Errorf("insert challenge: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit issue challenge: %w", err)
	}

	return superseded, nil
}

// FindOpen returns the newest unverified challenge for the key. Supersession
// keeps at most one such row per key, so LIMIT 1 is exact, not a heuristic.
func (r *ChallengeRepository) FindOpen(ctx context.Context, key domain.ChallengeKey) (*domain.Challenge, error) {
	stmt, args, err := r.builder.
		Select(
			"id",
			"account_id",
			"purpose",
			"recipient",
			"code",
			"attempts_used",
			"attempts_allowed",
			"created_at",
			"expires_at",
			"verified_at",
		).
		From("otp_challenges").
		Where(squirrel.Eq{
			"account_id": key.AccountID,
			"purpose":    key.Purpose,
			"recipient":  key.Recipient,
		}).
		Where("verified_at IS NULL").
		OrderBy("created_at DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select active challenge sql: %w", err)
	}

	row := r.exec.QueryRow(ctx, stmt, args...)
	challenge, err := scanChallenge(row)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("scan active challenge: %w", err)
	}

	return challenge, nil
}

// CompareAndIncrement consumes one attempt and compares the submitted code
// inside a single row-locked transaction. A match stamps verified_at before
// the transaction commits, so no second submission can verify the same row.
func (r *ChallengeRepository) CompareAndIncrement(ctx context.Context, challengeID string, submitted string, at time.Time) (domain.AttemptResult, error) {
	var result domain.AttemptResult

	tx, err := r.exec.Begin(ctx)
	if err != nil {
		return result, fmt.Errorf("begin challenge attempt tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	var (
		code            string
		attemptsUsed    int
		attemptsAllowed int
	)

	row := tx.QueryRow(ctx,
		`SELECT code, attempts_used, attempts_allowed
		   FROM otp_challenges
		  WHERE id = $1 AND verified_at IS NULL
		  FOR UPDATE`,
		challengeID,
	)
	if err := row.Scan(&code, &attemptsUsed, &attemptsAllowed); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return result, repository.ErrNotFound
		}
		return result, fmt.Errorf("lock challenge row: %w", err)
	}

	if attemptsUsed >= attemptsAllowed {
		return result, repository.ErrAttemptsExhausted
	}

	attemptsUsed++
	if _, err := tx.Exec(ctx,
		"UPDATE otp_challenges SET attempts_used = $2 WHERE id = $1",
		challengeID, attemptsUsed,
	); err != nil {
		return result, fmt.Errorf("increment challenge attempts: %w", err)
	}

	matched := subtle.ConstantTimeCompare([]byte(code), []byte(submitted)) == 1
	if matched {
		if _, err := tx.Exec(ctx,
			"UPDATE otp_challenges SET verified_at = $2 WHERE id = $1",
			challengeID, at.UTC(),
		); err != nil {
			return result, fmt.Errorf("stamp challenge verified: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return result, fmt.Errorf("commit challenge attempt: %w", err)
	}

	result.Matched = matched
	result.AttemptsRemaining = attemptsAllowed - attemptsUsed
	if result.AttemptsRemaining < 0 {
		result.AttemptsRemaining = 0
	}

	return result, nil
}

// Sweep deletes challenges whose expiry predates the cutoff.
func (r *ChallengeRepository) Sweep(ctx context.Context, olderThan time.Time) (int, error) {
	stmt, args, err := r.builder.Delete("otp_challenges").
		Where(squirrel.Lt{"expires_at": olderThan.UTC()}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build sweep challenges sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return 0, fmt.Errorf("sweep challenges: %w", err)
	}

	return int(tag.RowsAffected()), nil
}

func scanChallenge(row pgx.Row) (*domain.Challenge, error) {
	var challenge domain.Challenge
	if err := row.Scan(
		&challenge.ID,
		&challenge.AccountID,
		&challenge.Purpose,
		&challenge.Recipient,
		&challenge.Code,
		&challenge.AttemptsUsed,
		&challenge.AttemptsAllowed,
		&challenge.CreatedAt,
		&challenge.ExpiresAt,
		&challenge.VerifiedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	return &challenge, nil
}

var _ port.ChallengeStore = (*ChallengeRepository)(nil)
