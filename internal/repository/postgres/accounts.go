package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dadyutenga/driver-app-backend/internal/core/domain"
	"github.com/dadyutenga/driver-app-backend/internal/core/port"
	"github.com/dadyutenga/driver-app-backend/internal/repository"
)

const uniqueViolationCode = "23505"

// AccountRepository implements port.AccountRepository using PostgreSQL.
type AccountRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewAccountRepository wires a PostgreSQL-backed account repository.
func NewAccountRepository(exec pgExecutor) *AccountRepository {
	return &AccountRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Create inserts a new account row. Duplicate email or phone surfaces as
// repository.ErrDuplicate.
func (r *AccountRepository) Create(ctx context.Context, account domain.Account) error {
	stmt, args, err := r.builder.Insert("accounts").
		Columns(
			"id",
			"full_name",
			"email",
			"phone",
			"password_hash",
			"password_algo",
			"email_verified",
			"phone_verified",
			"is_active",
			"created_at",
			"updated_at",
		).
		Values(
			account.ID,
			account.FullName,
			optionalString(account.Email),
			optionalString(account.Phone),
			account.PasswordHash,
			account.PasswordAlgo,
			account.EmailVerified,
			account.PhoneVerified,
			account.IsActive,
			account.CreatedAt,
			account.UpdatedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert account sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("insert account: %w", err)
	}

	return nil
}

// GetByID retrieves an account by identifier.
func (r *AccountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	stmt, args, err := r.selectAccounts().
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select account sql: %w", err)
	}

	return r.scanOne(r.exec.QueryRow(ctx, stmt, args...))
}

// GetByIdentifier retrieves an account by email or phone.
func (r *AccountRepository) GetByIdentifier(ctx context.Context, identifier string) (*domain.Account, error) {
	stmt, args, err := r.selectAccounts().
		Where(squirrel.Or{
			squirrel.Eq{"email": identifier},
			squirrel.Eq{"phone": identifier},
		}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select account by identifier sql: %w", err)
	}

	return r.scanOne(r.exec.QueryRow(ctx, stmt, args...))
}

// UpdateProfile modifies an account's contact and display fields.
func (r *AccountRepository) UpdateProfile(ctx context.Context, account domain.Account) error {
	stmt, args, err := r.builder.Update("accounts").
		Set("full_name", account.FullName).
		Set("email", optionalString(account.Email)).
		Set("phone", optionalString(account.Phone)).
		Set("email_verified", account.EmailVerified).
		Set("phone_verified", account.PhoneVerified).
		Set("updated_at", account.UpdatedAt).
		Where(squirrel.Eq{"id": account.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update account sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("update account: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// SetVerifiedFlag flips the verification flag for the supplied contact channel.
func (r *AccountRepository) SetVerifiedFlag(ctx context.Context, id string, channel port.VerifiedChannel, verified bool) error {
	var column string
	switch channel {
	case port.ChannelEmail:
		column = "email_verified"
	case port.ChannelPhone:
		column = "phone_verified"
	default:
		return fmt.Errorf("unknown verified channel %q", channel)
	}

	stmt, args, err := r.builder.Update("accounts").
		Set(column, verified).
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build set verified flag sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("set verified flag: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// SetActive enables or disables an account.
func (r *AccountRepository) SetActive(ctx context.Context, id string, active bool) error {
	stmt, args, err := r.builder.Update("accounts").
		Set("is_active", active).
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build set active sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("set active: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// UpdatePassword replaces the stored password hash.
func (r *AccountRepository) UpdatePassword(ctx context.Context, id string, passwordHash string, passwordAlgo string, changedAt time.Time) error {
	stmt, args, err := r.builder.Update("accounts").
		Set("password_hash", passwordHash).
		Set("password_algo", passwordAlgo).
		Set("updated_at", changedAt.UTC()).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update password sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

func (r *AccountRepository) selectAccounts() squirrel.SelectBuilder {
	return r.builder.Select(
		"id",
		"full_name",
		"email",
		"phone",
		"password_hash",
		"password_algo",
		"email_verified",
		"phone_verified",
		"is_active",
		"created_at",
		"updated_at",
	).From("accounts")
}

func (r *AccountRepository) scanOne(row pgx.Row) (*domain.Account, error) {
	var (
		account domain.Account
		email   sql.NullString
		phone   sql.NullString
	)

	if err := row.Scan(
		&account.ID,
		&account.FullName,
		&email,
		&phone,
		&account.PasswordHash,
		&account.PasswordAlgo,
		&account.EmailVerified,
		&account.PhoneVerified,
		&account.IsActive,
		&account.CreatedAt,
		&account.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan account: %w", err)
	}

	account.Email = nullableStringPtr(email)
	account.Phone = nullableStringPtr(phone)

	return &account, nil
}

func optionalString(value *string) any {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return trimmed
}

func nullableStringPtr(value sql.NullString) *string {
	if !value.Valid {
		return nil
	}
	v := strings.TrimSpace(value.String)
	if v == "" {
		return nil
	}
	return &v
}

var _ port.AccountRepository = (*AccountRepository)(nil)
