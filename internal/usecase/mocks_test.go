package usecase

import (
	"context"
	"crypto/subtle"
	"sync"
	"time"

	"github.com/dadyutenga/driver-app-backend/internal/core/domain"
	"github.com/dadyutenga/driver-app-backend/internal/core/port"
	"github.com/dadyutenga/driver-app-backend/internal/repository"
)

// memoryChallengeStore mimics the postgres store, including the serialized
// compare-and-increment that the verification path depends on.
type memoryChallengeStore struct {
	mu         sync.Mutex
	challenges map[string]*domain.Challenge
}

func newMemoryChallengeStore() *memoryChallengeStore {
	return &memoryChallengeStore{challenges: make(map[string]*domain.Challenge)}
}

func (s *memoryChallengeStore) FindOpen(_ context.Context, key domain.ChallengeKey) (*domain.Challenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var newest *domain.Challenge
	for _, c := range s.challenges {
		if c.Key() != key || c.VerifiedAt != nil {
			continue
		}
		if newest == nil || c.CreatedAt.After(newest.CreatedAt) {
			newest = c
		}
	}
	if newest == nil {
		return nil, repository.ErrNotFound
	}
	copied := *newest
	return &copied, nil
}

// Issue supersedes and inserts under one lock, matching the postgres store's
// single-transaction issuance.
func (s *memoryChallengeStore) Issue(_ context.Context, challenge domain.Challenge) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	closed := 0
	for _, c := range s.challenges {
		if c.Key() != challenge.Key() || c.VerifiedAt != nil {
			continue
		}
		verifiedAt := challenge.CreatedAt
		c.VerifiedAt = &verifiedAt
		closed++
	}

	copied := challenge
	s.challenges[challenge.ID] = &copied
	return closed, nil
}

// Insert seeds a challenge directly, bypassing supersession.
func (s *memoryChallengeStore) Insert(_ context.Context, challenge domain.Challenge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := challenge
	s.challenges[challenge.ID] = &copied
	return nil
}

func (s *memoryChallengeStore) CompareAndIncrement(_ context.Context, challengeID string, submitted string, at time.Time) (domain.AttemptResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.challenges[challengeID]
	if !ok || c.VerifiedAt != nil {
		return domain.AttemptResult{}, repository.ErrNotFound
	}
	if c.AttemptsUsed >= c.AttemptsAllowed {
		return domain.AttemptResult{}, repository.ErrAttemptsExhausted
	}

	c.AttemptsUsed++
	matched := subtle.ConstantTimeCompare([]byte(c.Code), []byte(submitted)) == 1
	if matched {
		verifiedAt := at
		c.VerifiedAt = &verifiedAt
	}

	return domain.AttemptResult{
		Matched:           matched,
		AttemptsRemaining: c.AttemptsAllowed - c.AttemptsUsed,
	}, nil
}

func (s *memoryChallengeStore) Sweep(_ context.Context, olderThan time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, c := range s.challenges {
		if c.ExpiresAt.Before(olderThan) {
			delete(s.challenges, id)
			removed++
		}
	}
	return removed, nil
}

func (s *memoryChallengeStore) get(id string) *domain.Challenge {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.challenges[id]
	if !ok {
		return nil
	}
	copied := *c
	return &copied
}

func (s *memoryChallengeStore) forKey(key domain.ChallengeKey) []domain.Challenge {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Challenge
	for _, c := range s.challenges {
		if c.Key() == key {
			out = append(out, *c)
		}
	}
	return out
}

// memoryAccountRepo is a map-backed account repository.
type memoryAccountRepo struct {
	mu       sync.Mutex
	accounts map[string]*domain.Account
}

func newMemoryAccountRepo() *memoryAccountRepo {
	return &memoryAccountRepo{accounts: make(map[string]*domain.Account)}
}

func (r *memoryAccountRepo) Create(_ context.Context, account domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.accounts {
		if account.Email != nil && existing.Email != nil && *account.Email == *existing.Email {
			return repository.ErrDuplicate
		}
		if account.Phone != nil && existing.Phone != nil && *account.Phone == *existing.Phone {
			return repository.ErrDuplicate
		}
	}
	copied := account
	r.accounts[account.ID] = &copied
	return nil
}

func (r *memoryAccountRepo) GetByID(_ context.Context, id string) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *a
	return &copied, nil
}

func (r *memoryAccountRepo) GetByIdentifier(_ context.Context, identifier string) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.accounts {
		if a.Email != nil && *a.Email == identifier {
			copied := *a
			return &copied, nil
		}
		if a.Phone != nil && *a.Phone == identifier {
			copied := *a
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memoryAccountRepo) UpdateProfile(_ context.Context, account domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.accounts[account.ID]; !ok {
		return repository.ErrNotFound
	}
	for id, existing := range r.accounts {
		if id == account.ID {
			continue
		}
		if account.Email != nil && existing.Email != nil && *account.Email == *existing.Email {
			return repository.ErrDuplicate
		}
		if account.Phone != nil && existing.Phone != nil && *account.Phone == *existing.Phone {
			return repository.ErrDuplicate
		}
	}
	copied := account
	r.accounts[account.ID] = &copied
	return nil
}

func (r *memoryAccountRepo) SetVerifiedFlag(_ context.Context, id string, channel port.VerifiedChannel, verified bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[id]
	if !ok {
		return repository.ErrNotFound
	}
	switch channel {
	case port.ChannelEmail:
		a.EmailVerified = verified
	case port.ChannelPhone:
		a.PhoneVerified = verified
	}
	return nil
}

func (r *memoryAccountRepo) SetActive(_ context.Context, id string, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[id]
	if !ok {
		return repository.ErrNotFound
	}
	a.IsActive = active
	return nil
}

func (r *memoryAccountRepo) UpdatePassword(_ context.Context, id string, passwordHash string, passwordAlgo string, changedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[id]
	if !ok {
		return repository.ErrNotFound
	}
	a.PasswordHash = passwordHash
	a.PasswordAlgo = passwordAlgo
	a.UpdatedAt = changedAt
	return nil
}

// memorySessionRepo is a map-backed session repository.
type memorySessionRepo struct {
	mu       sync.Mutex
	sessions map[string]*domain.Session
}

func newMemorySessionRepo() *memorySessionRepo {
	return &memorySessionRepo{sessions: make(map[string]*domain.Session)}
}

func (r *memorySessionRepo) Create(_ context.Context, session domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := session
	r.sessions[session.ID] = &copied
	return nil
}

func (r *memorySessionRepo) Get(_ context.Context, sessionID string) (*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[sessionID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *s
	return &copied, nil
}

func (r *memorySessionRepo) ListActive(_ context.Context, accountID string) ([]domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Session
	for _, s := range r.sessions {
		if s.AccountID == accountID && s.ClosedAt == nil {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (r *memorySessionRepo) Touch(_ context.Context, sessionID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[sessionID]
	if !ok || s.ClosedAt != nil {
		return repository.ErrNotFound
	}
	s.LastSeenAt = at
	return nil
}

func (r *memorySessionRepo) Close(_ context.Context, sessionID string, at time.Time, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[sessionID]
	if !ok || s.ClosedAt != nil {
		return repository.ErrNotFound
	}
	closedAt := at
	s.ClosedAt = &closedAt
	s.CloseReason = &reason
	return nil
}

func (r *memorySessionRepo) CloseAll(_ context.Context, accountID string, at time.Time, reason string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	closed := 0
	for _, s := range r.sessions {
		if s.AccountID == accountID && s.ClosedAt == nil {
			closedAt := at
			s.ClosedAt = &closedAt
			s.CloseReason = &reason
			closed++
		}
	}
	return closed, nil
}

func (r *memorySessionRepo) CloseAllExcept(_ context.Context, accountID string, exceptID string, at time.Time, reason string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	closed := 0
	for _, s := range r.sessions {
		if s.AccountID == accountID && s.ID != exceptID && s.ClosedAt == nil {
			closedAt := at
			s.ClosedAt = &closedAt
			s.CloseReason = &reason
			closed++
		}
	}
	return closed, nil
}

func (r *memorySessionRepo) Sweep(_ context.Context, olderThan time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for id, s := range r.sessions {
		if s.CreatedAt.Before(olderThan) {
			delete(r.sessions, id)
			removed++
		}
	}
	return removed, nil
}

// captureDispatcher records enqueued deliveries.
type captureDispatcher struct {
	mu         sync.Mutex
	deliveries []port.Delivery
	reject     bool
}

func (d *captureDispatcher) Enqueue(delivery port.Delivery) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.reject {
		return false
	}
	d.deliveries = append(d.deliveries, delivery)
	return true
}

func (d *captureDispatcher) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.deliveries)
}

func (d *captureDispatcher) last() port.Delivery {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.deliveries) == 0 {
		return port.Delivery{}
	}
	return d.deliveries[len(d.deliveries)-1]
}

// capturePublisher records published events.
type capturePublisher struct {
	mu         sync.Mutex
	registered []domain.AccountRegisteredEvent
	verified   []domain.ChallengeVerifiedEvent
	passwords  []domain.PasswordChangedEvent
	closed     []domain.SessionClosedEvent
}

func (p *capturePublisher) PublishAccountRegistered(_ context.Context, event domain.AccountRegisteredEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.registered = append(p.registered, event)
	return nil
}

func (p *capturePublisher) PublishChallengeVerified(_ context.Context, event domain.ChallengeVerifiedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.verified = append(p.verified, event)
	return nil
}

func (p *capturePublisher) PublishPasswordChanged(_ context.Context, event domain.PasswordChangedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.passwords = append(p.passwords, event)
	return nil
}

func (p *capturePublisher) PublishSessionClosed(_ context.Context, event domain.SessionClosedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = append(p.closed, event)
	return nil
}

// memoryDenylist is a map-backed token denylist.
type memoryDenylist struct {
	mu     sync.Mutex
	denied map[string]bool
}

func newMemoryDenylist() *memoryDenylist {
	return &memoryDenylist{denied: make(map[string]bool)}
}

func (d *memoryDenylist) Deny(_ context.Context, jti string, _ time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.denied[jti] = true
	return nil
}

func (d *memoryDenylist) IsDenied(_ context.Context, jti string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.denied[jti], nil
}

var (
	_ port.ChallengeStore    = (*memoryChallengeStore)(nil)
	_ port.AccountRepository = (*memoryAccountRepo)(nil)
	_ port.SessionRepository = (*memorySessionRepo)(nil)
	_ port.Dispatcher        = (*captureDispatcher)(nil)
	_ port.EventPublisher    = (*capturePublisher)(nil)
	_ port.TokenDenylist     = (*memoryDenylist)(nil)
)
