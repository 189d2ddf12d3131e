package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/dadyutenga/driver-app-backend/internal/core/domain"
	"github.com/dadyutenga/driver-app-backend/internal/infra/security"
)

type authFixture struct {
	accounts   *memoryAccountRepo
	sessions   *memorySessionRepo
	store      *memoryChallengeStore
	dispatcher *captureDispatcher
	events     *capturePublisher
	denylist   *memoryDenylist
	tokens     *security.TokenIssuer
	otp        *OTPService
	auth       *AuthService
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()

	log := zaptest.NewLogger(t)
	f := &authFixture{
		accounts:   newMemoryAccountRepo(),
		sessions:   newMemorySessionRepo(),
		store:      newMemoryChallengeStore(),
		dispatcher: &captureDispatcher{},
		events:     &capturePublisher{},
		denylist:   newMemoryDenylist(),
	}

	tokens, err := security.NewTokenIssuer("test-secret", time.Hour, 24*time.Hour)
	if err != nil {
		t.Fatalf("NewTokenIssuer: %v", err)
	}
	f.tokens = tokens

	f.otp = NewOTPService(f.store, f.dispatcher, log)
	f.auth = NewAuthService(f.accounts, f.sessions, f.otp, f.tokens, f.denylist, f.events, log)
	return f
}

func (f *authFixture) seedAccount(t *testing.T, email, password string) *domain.Account {
	t.Helper()

	hash, err := security.HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}

	account := domain.Account{
		ID:           "acct-1",
		FullName:     "Asha Mwinyi",
		Email:        &email,
		PasswordHash: hash,
		PasswordAlgo: security.PasswordAlgo,
		IsActive:     true,
		CreatedAt:    time.Now().UTC(),
		UpdatedAt:    time.Now().UTC(),
	}
	if err := f.accounts.Create(context.Background(), account); err != nil {
		t.Fatalf("seed account: %v", err)
	}
	return &account
}

func TestLoginIssuesChallengeWithoutCredentials(t *testing.T) {
	f := newAuthFixture(t)
	f.seedAccount(t, "driver@example.com", "Str0ngPass!42")

	result, err := f.auth.Login(context.Background(), "driver@example.com", "Str0ngPass!42")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	if result.AccountID != "acct-1" {
		t.Fatalf("unexpected account id %q", result.AccountID)
	}
	if result.Recipient == "driver@example.com" {
		t.Fatal("login result must mask the recipient")
	}
	if f.dispatcher.count() != 1 {
		t.Fatalf("expected a dispatched challenge, got %d", f.dispatcher.count())
	}
	if len(f.sessions.sessions) != 0 {
		t.Fatal("no session should exist before the challenge is verified")
	}
}

func TestLoginWrongPasswordAndUnknownIdentifierLookAlike(t *testing.T) {
	f := newAuthFixture(t)
	f.seedAccount(t, "driver@example.com", "Str0ngPass!42")

	_, errWrong := f.auth.Login(context.Background(), "driver@example.com", "not-the-password")
	_, errUnknown := f.auth.Login(context.Background(), "nobody@example.com", "whatever123")

	if !errors.Is(errWrong, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for wrong password, got %v", errWrong)
	}
	if !errors.Is(errUnknown, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown identifier, got %v", errUnknown)
	}
	if errWrong.Error() != errUnknown.Error() {
		t.Fatal("wrong password and unknown identifier must be indistinguishable")
	}
}

func TestLoginInactiveAccount(t *testing.T) {
	f := newAuthFixture(t)
	account := f.seedAccount(t, "driver@example.com", "Str0ngPass!42")

	f.accounts.mu.Lock()
	f.accounts.accounts[account.ID].IsActive = false
	f.accounts.mu.Unlock()

	if _, err := f.auth.Login(context.Background(), "driver@example.com", "Str0ngPass!42"); !errors.Is(err, ErrAccountInactive) {
		t.Fatalf("expected ErrAccountInactive, got %v", err)
	}
}

func TestVerifyOTPMintsCredentialsAndOpensSession(t *testing.T) {
	f := newAuthFixture(t)
	f.seedAccount(t, "driver@example.com", "Str0ngPass!42")

	ctx := context.Background()
	if _, err := f.auth.Login(ctx, "driver@example.com", "Str0ngPass!42"); err != nil {
		t.Fatalf("Login: %v", err)
	}

	key := domain.ChallengeKey{AccountID: "acct-1", Purpose: domain.PurposeLogin, Recipient: "driver@example.com"}
	challenge, err := f.store.FindOpen(ctx, key)
	if err != nil {
		t.Fatalf("FindOpen: %v", err)
	}

	result, err := f.auth.VerifyOTP(ctx, "driver@example.com", domain.PurposeLogin, challenge.Code, ClientInfo{Address: "10.0.0.9", Agent: "driver-app/2.4"})
	if err != nil {
		t.Fatalf("VerifyOTP: %v", err)
	}

	if result.Credentials.AccessToken == "" || result.Credentials.RefreshToken == "" {
		t.Fatal("expected both tokens to be minted")
	}
	if result.SessionID == "" {
		t.Fatal("expected a session to be opened")
	}

	session, err := f.sessions.Get(ctx, result.SessionID)
	if err != nil {
		t.Fatalf("session lookup: %v", err)
	}
	if session.ClientAddress == nil || *session.ClientAddress != "10.0.0.9" {
		t.Fatal("session should record the client address")
	}

	claims, err := f.auth.ParseAccessToken(result.Credentials.AccessToken)
	if err != nil {
		t.Fatalf("ParseAccessToken: %v", err)
	}
	if claims.AccountID != "acct-1" || claims.SessionID != result.SessionID {
		t.Fatalf("claims not bound to account and session: %+v", claims)
	}

	if len(f.events.verified) != 1 {
		t.Fatalf("expected one challenge verified event, got %d", len(f.events.verified))
	}
}

func TestVerifyOTPMarksEmailVerified(t *testing.T) {
	f := newAuthFixture(t)
	f.seedAccount(t, "driver@example.com", "Str0ngPass!42")

	ctx := context.Background()
	challenge, err := f.otp.RequestChallenge(ctx, "acct-1", domain.PurposeEmailVerify, "driver@example.com")
	if err != nil {
		t.Fatalf("RequestChallenge: %v", err)
	}

	result, err := f.auth.VerifyOTP(ctx, "driver@example.com", domain.PurposeEmailVerify, challenge.Code, ClientInfo{})
	if err != nil {
		t.Fatalf("VerifyOTP: %v", err)
	}
	if !result.Account.EmailVerified {
		t.Fatal("expected email to be marked verified")
	}

	stored, err := f.accounts.GetByID(ctx, "acct-1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if !stored.EmailVerified {
		t.Fatal("verified flag must persist")
	}
}

func TestVerifyOTPWrongCode(t *testing.T) {
	f := newAuthFixture(t)
	f.seedAccount(t, "driver@example.com", "Str0ngPass!42")

	ctx := context.Background()
	if _, err := f.otp.RequestChallenge(ctx, "acct-1", domain.PurposeLogin, "driver@example.com"); err != nil {
		t.Fatalf("RequestChallenge: %v", err)
	}

	_, err := f.auth.VerifyOTP(ctx, "driver@example.com", domain.PurposeLogin, "WRNG", ClientInfo{})
	var invalid *InvalidCodeError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidCodeError, got %v", err)
	}
	if invalid.AttemptsRemaining != 2 {
		t.Fatalf("expected 2 attempts remaining, got %d", invalid.AttemptsRemaining)
	}
	if len(f.sessions.sessions) != 0 {
		t.Fatal("no session may open on a failed verification")
	}
}

func TestVerifyOTPUnknownIdentifier(t *testing.T) {
	f := newAuthFixture(t)

	_, err := f.auth.VerifyOTP(context.Background(), "ghost@example.com", domain.PurposeLogin, "1234", ClientInfo{})
	if !errors.Is(err, ErrChallengeNotFound) {
		t.Fatalf("expected ErrChallengeNotFound, got %v", err)
	}
}

func TestRegisterVerifyRoundTrip(t *testing.T) {
	f := newAuthFixture(t)
	registration := NewRegistrationService(f.accounts, f.otp, f.events, zaptest.NewLogger(t))

	ctx := context.Background()
	account, err := registration.Register(ctx, RegisterInput{
		FullName:   "Asha Mwinyi",
		Identifier: "a@b.com",
		Password:   "Str0ngPass!42",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	key := domain.ChallengeKey{AccountID: account.ID, Purpose: domain.PurposeEmailVerify, Recipient: "a@b.com"}
	challenge, err := f.store.FindOpen(ctx, key)
	if err != nil {
		t.Fatalf("FindOpen: %v", err)
	}
	if len(challenge.Code) != 4 {
		t.Fatalf("expected a 4-character code, got %q", challenge.Code)
	}

	result, err := f.auth.VerifyOTP(ctx, "a@b.com", domain.PurposeEmailVerify, challenge.Code, ClientInfo{})
	if err != nil {
		t.Fatalf("VerifyOTP: %v", err)
	}
	if result.Credentials.AccessToken == "" {
		t.Fatal("expected an access token after verification")
	}
	if !result.Account.EmailVerified {
		t.Fatal("expected the registered email to be verified")
	}

	// The code is single use. A replay finds no open challenge.
	if _, err := f.auth.VerifyOTP(ctx, "a@b.com", domain.PurposeEmailVerify, challenge.Code, ClientInfo{}); !errors.Is(err, ErrChallengeNotFound) {
		t.Fatalf("expected ErrChallengeNotFound on replay, got %v", err)
	}
}

func TestRefreshTokensRotatesAndDeniesOldToken(t *testing.T) {
	f := newAuthFixture(t)
	f.seedAccount(t, "driver@example.com", "Str0ngPass!42")

	creds, err := f.tokens.Issue("acct-1", "sess-1")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	ctx := context.Background()
	rotated, err := f.auth.RefreshTokens(ctx, creds.RefreshToken)
	if err != nil {
		t.Fatalf("RefreshTokens: %v", err)
	}
	if rotated.RefreshToken == creds.RefreshToken {
		t.Fatal("expected a fresh refresh token")
	}

	// The consumed token is denied and cannot be replayed.
	if _, err := f.auth.RefreshTokens(ctx, creds.RefreshToken); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected ErrInvalidRefreshToken on replay, got %v", err)
	}

	// The rotated token still works.
	if _, err := f.auth.RefreshTokens(ctx, rotated.RefreshToken); err != nil {
		t.Fatalf("rotated token should refresh: %v", err)
	}
}

func TestRefreshTokensRejectsAccessToken(t *testing.T) {
	f := newAuthFixture(t)
	f.seedAccount(t, "driver@example.com", "Str0ngPass!42")

	creds, err := f.tokens.Issue("acct-1", "sess-1")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	if _, err := f.auth.RefreshTokens(context.Background(), creds.AccessToken); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected ErrInvalidRefreshToken for access token, got %v", err)
	}
}

func TestLogoutClosesSessionAndRevokesRefreshToken(t *testing.T) {
	f := newAuthFixture(t)
	f.seedAccount(t, "driver@example.com", "Str0ngPass!42")

	ctx := context.Background()
	now := time.Now().UTC()
	if err := f.sessions.Create(ctx, domain.Session{ID: "sess-1", AccountID: "acct-1", CreatedAt: now, LastSeenAt: now}); err != nil {
		t.Fatalf("seed session: %v", err)
	}

	creds, err := f.tokens.Issue("acct-1", "sess-1")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	claims, err := f.auth.ParseAccessToken(creds.AccessToken)
	if err != nil {
		t.Fatalf("ParseAccessToken: %v", err)
	}

	if err := f.auth.Logout(ctx, claims, creds.RefreshToken); err != nil {
		t.Fatalf("Logout: %v", err)
	}

	session, err := f.sessions.Get(ctx, "sess-1")
	if err != nil {
		t.Fatalf("session lookup: %v", err)
	}
	if session.ClosedAt == nil {
		t.Fatal("expected session to be closed")
	}

	if _, err := f.auth.RefreshTokens(ctx, creds.RefreshToken); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected revoked refresh token, got %v", err)
	}
	if len(f.events.closed) != 1 {
		t.Fatalf("expected one session closed event, got %d", len(f.events.closed))
	}
}

func TestParseAccessTokenExpired(t *testing.T) {
	f := newAuthFixture(t)

	issuedAt := time.Now().Add(-2 * time.Hour)
	tokens, err := security.NewTokenIssuer("test-secret", time.Hour, 24*time.Hour)
	if err != nil {
		t.Fatalf("NewTokenIssuer: %v", err)
	}
	tokens.WithClock(func() time.Time { return issuedAt })

	creds, err := tokens.Issue("acct-1", "sess-1")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	if _, err := f.auth.ParseAccessToken(creds.AccessToken); !errors.Is(err, ErrExpiredAccessToken) {
		t.Fatalf("expected ErrExpiredAccessToken, got %v", err)
	}
}
