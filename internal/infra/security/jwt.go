package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

var (
	// ErrTokenExpired indicates the token's validity window has passed.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenInvalid indicates the token failed signature or claim checks.
	ErrTokenInvalid = errors.New("token invalid")
)

// Claims carries the driver identity and session binding inside a JWT.
type Claims struct {
	AccountID string `json:"-"`
	SessionID string `json:"sid,omitempty"`
	TokenType string `json:"typ"`
	jwt.RegisteredClaims
}

// Credentials is an issued access/refresh token pair.
type Credentials struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

// TokenIssuer signs and parses HS256 credentials.
type TokenIssuer struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewTokenIssuer constructs a TokenIssuer. The secret must be non-empty.
func NewTokenIssuer(secret string, accessTTL, refreshTTL time.Duration) (*TokenIssuer, error) {
	if secret == "" {
		return nil, fmt.Errorf("jwt secret is required")
	}
	if accessTTL <= 0 {
		accessTTL = 168 * time.Hour
	}
	if refreshTTL <= 0 {
		refreshTTL = 720 * time.Hour
	}

	return &TokenIssuer{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}, nil
}

// WithClock allows injection of a custom clock (primarily for testing).
func (t *TokenIssuer) WithClock(now func() time.Time) *TokenIssuer {
	if now != nil {
		t.now = now
	}
	return t
}

// RefreshTTL exposes the configured refresh token lifetime.
func (t *TokenIssuer) RefreshTTL() time.Duration {
	return t.refreshTTL
}

// Issue mints an access/refresh pair bound to the account and session.
func (t *TokenIssuer) Issue(accountID, sessionID string) (Credentials, error) {
	now := t.now().UTC()

	accessExpiry := now.Add(t.accessTTL)
	access, err := t.sign(accountID, sessionID, tokenTypeAccess, now, accessExpiry)
	if err != nil {
		return Credentials{}, fmt.Errorf("sign access token: %w", err)
	}

	refreshExpiry := now.Add(t.refreshTTL)
	refresh, err := t.sign(accountID, sessionID, tokenTypeRefresh, now, refreshExpiry)
	if err != nil {
		return Credentials{}, fmt.Errorf("sign refresh token: %w", err)
	}

	return Credentials{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessExpiry,
		RefreshExpiresAt: refreshExpiry,
	}, nil
}

// ParseAccess validates an access token and returns its claims.
func (t *TokenIssuer) ParseAccess(token string) (*Claims, error) {
	return t.parse(token, tokenTypeAccess)
}

// ParseRefresh validates a refresh token and returns its claims.
func (t *TokenIssuer) ParseRefresh(token string) (*Claims, error) {
	return t.parse(token, tokenTypeRefresh)
}

func (t *TokenIssuer) sign(accountID, sessionID, tokenType string, issuedAt, expiresAt time.Time) (string, error) {
	claims := Claims{
		SessionID: sessionID,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.secret)
}

func (t *TokenIssuer) parse(raw, expectedType string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return t.secret, nil
	}, jwt.WithTimeFunc(t.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	if !token.Valid || claims.TokenType != expectedType || claims.Subject == "" {
		return nil, ErrTokenInvalid
	}

	claims.AccountID = claims.Subject
	return claims, nil
}
