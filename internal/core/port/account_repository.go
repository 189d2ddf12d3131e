package port

import (
	"context"
	"time"

	"github.com/dadyutenga/driver-app-backend/internal/core/domain"
)

// VerifiedChannel identifies which contact channel a verification applies to.
type VerifiedChannel string

const (
	ChannelEmail VerifiedChannel = "email"
	ChannelPhone VerifiedChannel = "phone"
)

// AccountRepository persists driver accounts.
type AccountRepository interface {
	Create(ctx context.Context, account domain.Account) error
	GetByID(ctx context.Context, id string) (*domain.Account, error)
	GetByIdentifier(ctx context.Context, identifier string) (*domain.Account, error)
	UpdateProfile(ctx context.Context, account domain.Account) error
	SetVerifiedFlag(ctx context.Context, id string, channel VerifiedChannel, verified bool) error
	SetActive(ctx context.Context, id string, active bool) error
	UpdatePassword(ctx context.Context, id string, passwordHash string, passwordAlgo string, changedAt time.Time) error
}
