package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	uuid "github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dadyutenga/driver-app-backend/internal/core/domain"
	"github.com/dadyutenga/driver-app-backend/internal/core/port"
	"github.com/dadyutenga/driver-app-backend/internal/infra/logger"
	"github.com/dadyutenga/driver-app-backend/internal/infra/security"
	"github.com/dadyutenga/driver-app-backend/internal/repository"
)

// ClientInfo captures the request origin recorded on new sessions.
type ClientInfo struct {
	Address string
	Agent   string
}

// LoginResult reports where the login OTP was sent.
type LoginResult struct {
	AccountID string
	Recipient string
	Purpose   domain.ChallengePurpose
}

// VerifyOTPResult is returned once a challenge is verified and credentials minted.
type VerifyOTPResult struct {
	Account     *domain.Account
	SessionID   string
	Credentials security.Credentials
}

// AuthService handles the two-step login flow, token rotation, and logout.
type AuthService struct {
	accounts port.AccountRepository
	sessions port.SessionRepository
	otp      *OTPService
	tokens   *security.TokenIssuer
	denylist port.TokenDenylist
	events   port.EventPublisher
	logger   *zap.Logger
	now      func() time.Time
}

// NewAuthService wires the authentication flow.
func NewAuthService(
	accounts port.AccountRepository,
	sessions port.SessionRepository,
	otp *OTPService,
	tokens *security.TokenIssuer,
	denylist port.TokenDenylist,
	events port.EventPublisher,
	log *zap.Logger,
) *AuthService {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthService{
		accounts: accounts,
		sessions: sessions,
		otp:      otp,
		tokens:   tokens,
		denylist: denylist,
		events:   events,
		logger:   log,
		now:      time.Now,
	}
}

// WithClock allows injection of a custom clock (primarily for testing).
func (s *AuthService) WithClock(now func() time.Time) *AuthService {
	if now != nil {
		s.now = now
	}
	return s
}

// Login validates the password and issues a login step-up challenge. No
// credentials are minted until the challenge is verified. Unknown identifiers
// and wrong passwords return the same error.
func (s *AuthService) Login(ctx context.Context, identifier, password string) (*LoginResult, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	account, err := s.accounts.GetByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("look up account: %w", err)
	}

	if !account.IsActive {
		return nil, ErrAccountInactive
	}

	ok, err := security.VerifyPassword(password, account.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}

	recipient := account.ContactFor(domain.PurposeLogin)
	if recipient == "" {
		return nil, ErrMissingContact
	}

	if _, err := s.otp.RequestChallenge(ctx, account.ID, domain.PurposeLogin, recipient); err != nil {
		return nil, fmt.Errorf("issue login challenge: %w", err)
	}

	return &LoginResult{
		AccountID: account.ID,
		Recipient: logger.MaskRecipient(recipient),
		Purpose:   domain.PurposeLogin,
	}, nil
}

// VerifyOTP completes a challenge and, on success, marks the contact verified
// where applicable, opens a device session, and mints credentials. Session
// creation is best effort; a session write failure never blocks the login.
func (s *AuthService) VerifyOTP(ctx context.Context, identifier string, purpose domain.ChallengePurpose, code string, client ClientInfo) (*VerifyOTPResult, error) {
	account, err := s.accounts.GetByIdentifier(ctx, strings.TrimSpace(identifier))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrChallengeNotFound
		}
		return nil, fmt.Errorf("look up account: %w", err)
	}

	recipient := account.ContactFor(purpose)
	if recipient == "" {
		return nil, ErrChallengeNotFound
	}

	challenge, err := s.otp.VerifyChallenge(ctx, account.ID, purpose, recipient, code)
	if err != nil {
		return nil, err
	}

	switch purpose {
	case domain.PurposeEmailVerify:
		if err := s.accounts.SetVerifiedFlag(ctx, account.ID, port.ChannelEmail, true); err != nil {
			s.logger.Error("mark email verified", zap.Error(err), zap.String("account_id", account.ID))
		} else {
			account.EmailVerified = true
		}
	case domain.PurposePhoneVerify:
		if err := s.accounts.SetVerifiedFlag(ctx, account.ID, port.ChannelPhone, true); err != nil {
			s.logger.Error("mark phone verified", zap.Error(err), zap.String("account_id", account.ID))
		} else {
			account.PhoneVerified = true
		}
	}

	now := s.now().UTC()
	sessionID := s.openSession(ctx, account.ID, client, now)

	creds, err := s.tokens.Issue(account.ID, sessionID)
	if err != nil {
		return nil, fmt.Errorf("issue credentials: %w", err)
	}

	if s.events != nil {
		event := domain.ChallengeVerifiedEvent{
			EventID:     uuid.NewString(),
			ChallengeID: challenge.ID,
			AccountID:   account.ID,
			Purpose:     purpose,
			VerifiedAt:  now,
		}
		if err := s.events.PublishChallengeVerified(ctx, event); err != nil {
			s.logger.Error("publish challenge verified event", zap.Error(err), zap.String("account_id", account.ID))
		}
	}

	return &VerifyOTPResult{
		Account:     account,
		SessionID:   sessionID,
		Credentials: creds,
	}, nil
}

// RequestOTP issues a challenge for the identifier outside of the login flow,
// for example to re-verify a contact.
func (s *AuthService) RequestOTP(ctx context.Context, identifier string, purpose domain.ChallengePurpose) error {
	account, err := s.accounts.GetByIdentifier(ctx, strings.TrimSpace(identifier))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrAccountNotFound
		}
		return fmt.Errorf("look up account: %w", err)
	}

	recipient := account.ContactFor(purpose)
	if recipient == "" {
		return ErrMissingContact
	}

	_, err = s.otp.RequestChallenge(ctx, account.ID, purpose, recipient)
	return err
}

// ResendOTP re-issues an active challenge, honoring the resend cooldown.
func (s *AuthService) ResendOTP(ctx context.Context, identifier string, purpose domain.ChallengePurpose) error {
	account, err := s.accounts.GetByIdentifier(ctx, strings.TrimSpace(identifier))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrAccountNotFound
		}
		return fmt.Errorf("look up account: %w", err)
	}

	recipient := account.ContactFor(purpose)
	if recipient == "" {
		return ErrMissingContact
	}

	_, err = s.otp.ResendChallenge(ctx, account.ID, purpose, recipient)
	return err
}

// ParseAccessToken validates a bearer token and returns its claims.
func (s *AuthService) ParseAccessToken(token string) (*security.Claims, error) {
	claims, err := s.tokens.ParseAccess(token)
	if err != nil {
		if errors.Is(err, security.ErrTokenExpired) {
			return nil, ErrExpiredAccessToken
		}
		return nil, ErrInvalidAccessToken
	}
	return claims, nil
}

// RefreshTokens rotates a refresh token: the old token's identifier is denied
// for the remainder of its lifetime and a new pair is minted for the same session.
func (s *AuthService) RefreshTokens(ctx context.Context, refreshToken string) (security.Credentials, error) {
	claims, err := s.tokens.ParseRefresh(refreshToken)
	if err != nil {
		return security.Credentials{}, ErrInvalidRefreshToken
	}

	denied, err := s.denylist.IsDenied(ctx, claims.ID)
	if err != nil {
		return security.Credentials{}, fmt.Errorf("check token denylist: %w", err)
	}
	if denied {
		return security.Credentials{}, ErrInvalidRefreshToken
	}

	account, err := s.accounts.GetByID(ctx, claims.AccountID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return security.Credentials{}, ErrInvalidRefreshToken
		}
		return security.Credentials{}, fmt.Errorf("look up account: %w", err)
	}
	if !account.IsActive {
		return security.Credentials{}, ErrAccountInactive
	}

	if err := s.denylist.Deny(ctx, claims.ID, s.tokens.RefreshTTL()); err != nil {
		return security.Credentials{}, fmt.Errorf("deny rotated token: %w", err)
	}

	if claims.SessionID != "" {
		if err := s.sessions.Touch(ctx, claims.SessionID, s.now().UTC()); err != nil && !errors.Is(err, repository.ErrNotFound) {
			s.logger.Warn("touch session on refresh", zap.Error(err), zap.String("session_id", claims.SessionID))
		}
	}

	return s.tokens.Issue(claims.AccountID, claims.SessionID)
}

// Logout closes the session bound to the access token and revokes the
// presented refresh token, if any.
func (s *AuthService) Logout(ctx context.Context, claims *security.Claims, refreshToken string) error {
	now := s.now().UTC()

	if claims.SessionID != "" {
		if err := s.sessions.Close(ctx, claims.SessionID, now, "logout"); err != nil && !errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("close session: %w", err)
		}
		s.publishSessionClosed(ctx, claims.SessionID, claims.AccountID, now, "owner", "logout")
	}

	if refreshToken != "" {
		if refreshClaims, err := s.tokens.ParseRefresh(refreshToken); err == nil {
			if err := s.denylist.Deny(ctx, refreshClaims.ID, s.tokens.RefreshTTL()); err != nil {
				s.logger.Error("deny refresh token on logout", zap.Error(err), zap.String("account_id", claims.AccountID))
			}
		}
	}

	return nil
}

func (s *AuthService) openSession(ctx context.Context, accountID string, client ClientInfo, now time.Time) string {
	session := domain.Session{
		ID:         uuid.NewString(),
		AccountID:  accountID,
		CreatedAt:  now,
		LastSeenAt: now,
	}
	if client.Address != "" {
		session.ClientAddress = &client.Address
	}
	if client.Agent != "" {
		session.ClientAgent = &client.Agent
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		s.logger.Error("record device session", zap.Error(err), zap.String("account_id", accountID))
		return ""
	}
	return session.ID
}

func (s *AuthService) publishSessionClosed(ctx context.Context, sessionID, accountID string, at time.Time, closedBy, reason string) {
	if s.events == nil {
		return
	}
	event := domain.SessionClosedEvent{
		EventID:   uuid.NewString(),
		SessionID: sessionID,
		AccountID: accountID,
		ClosedAt:  at,
		ClosedBy:  closedBy,
		Reason:    reason,
	}
	if err := s.events.PublishSessionClosed(ctx, event); err != nil {
		s.logger.Error("publish session closed event", zap.Error(err), zap.String("session_id", sessionID))
	}
}
