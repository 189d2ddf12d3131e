package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dadyutenga/driver-app-backend/internal/core/domain"
	"github.com/dadyutenga/driver-app-backend/internal/transport/http/middleware"
)

// APIResponse is the uniform envelope every endpoint returns.
type APIResponse struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Data    any               `json:"data,omitempty"`
	Errors  map[string]string `json:"errors,omitempty"`
	TraceID string            `json:"trace_id,omitempty"`
}

// NewSuccessResponse builds a success envelope with an optional data payload.
func NewSuccessResponse(message string, data any) APIResponse {
	return APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	}
}

// NewErrorResponse builds a failure envelope carrying the trace ID from context.
func NewErrorResponse(c *gin.Context, message string) APIResponse {
	return APIResponse{
		Success: false,
		Message: message,
		TraceID: middleware.GetTraceID(c),
	}
}

// NewFieldErrorResponse builds a failure envelope with per-field errors.
func NewFieldErrorResponse(c *gin.Context, message string, fieldErrors map[string]string) APIResponse {
	resp := NewErrorResponse(c, message)
	resp.Errors = fieldErrors
	return resp
}

// RegisterRequest defines the account registration payload.
type RegisterRequest struct {
	FullName   string `json:"full_name" binding:"required"`
	Identifier string `json:"identifier" binding:"required"`
	Password   string `json:"password" binding:"required,min=8"`
}

// LoginRequest defines the first step of the login flow.
type LoginRequest struct {
	Identifier string `json:"identifier" binding:"required"`
	Password   string `json:"password" binding:"required"`
}

// VerifyOTPRequest completes a challenge for the identifier.
type VerifyOTPRequest struct {
	Identifier string `json:"identifier" binding:"required"`
	OTPCode    string `json:"otp_code" binding:"required"`
	OTPType    string `json:"otp_type" binding:"required"`
}

// RequestOTPRequest asks for a fresh challenge.
type RequestOTPRequest struct {
	Identifier string `json:"identifier" binding:"required"`
	OTPType    string `json:"otp_type" binding:"required"`
}

// ResendOTPRequest re-sends an active challenge, subject to the cooldown.
type ResendOTPRequest struct {
	Identifier string `json:"identifier" binding:"required"`
	OTPType    string `json:"otp_type" binding:"required"`
}

// PasswordResetRequest starts the forgotten-password flow.
type PasswordResetRequest struct {
	Identifier string `json:"identifier" binding:"required"`
}

// PasswordResetConfirmRequest completes the forgotten-password flow.
type PasswordResetConfirmRequest struct {
	Identifier  string `json:"identifier" binding:"required"`
	OTPCode     string `json:"otp_code" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=8"`
}

// ChangePasswordRequest captures an authenticated password change.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=8"`
}

// ProfileUpdateRequest carries the mutable profile fields. Absent fields are untouched.
type ProfileUpdateRequest struct {
	FullName *string `json:"full_name,omitempty"`
	Email    *string `json:"email,omitempty"`
	Phone    *string `json:"phone,omitempty"`
}

// TokenRefreshRequest represents the payload to refresh an access token.
type TokenRefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// LogoutRequest optionally carries the refresh token to revoke.
type LogoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// AccountPayload is the API view of a driver account.
type AccountPayload struct {
	ID            string    `json:"id"`
	FullName      string    `json:"full_name"`
	Email         *string   `json:"email,omitempty"`
	Phone         *string   `json:"phone,omitempty"`
	EmailVerified bool      `json:"email_verified"`
	PhoneVerified bool      `json:"phone_verified"`
	IsActive      bool      `json:"is_active"`
	CreatedAt     time.Time `json:"created_at"`
}

// CredentialsPayload carries an issued token pair.
type CredentialsPayload struct {
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"refresh_token"`
	TokenType        string    `json:"token_type"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

// VerifyOTPPayload is returned once a challenge verification succeeds.
type VerifyOTPPayload struct {
	Account     AccountPayload     `json:"account"`
	SessionID   string             `json:"session_id,omitempty"`
	Credentials CredentialsPayload `json:"credentials"`
}

// LoginPendingPayload tells the client where the login code went.
type LoginPendingPayload struct {
	AccountID string `json:"account_id"`
	Recipient string `json:"recipient"`
	OTPType   string `json:"otp_type"`
}

// SessionPayload describes a device session in API responses.
type SessionPayload struct {
	ID            string    `json:"id"`
	ClientAddress *string   `json:"client_address,omitempty"`
	ClientAgent   *string   `json:"client_agent,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	LastSeenAt    time.Time `json:"last_seen_at"`
	IsCurrent     bool      `json:"is_current"`
}

// SessionListPayload wraps a driver's open sessions.
type SessionListPayload struct {
	Sessions []SessionPayload `json:"sessions"`
	Total    int              `json:"total"`
}

// HealthResponse describes the service health payload.
type HealthResponse struct {
	Status    string    `json:"status"`
	StartedAt time.Time `json:"started_at"`
	Timestamp time.Time `json:"timestamp"`
}

// ReadyResponse describes readiness probe results with dependency checks.
type ReadyResponse struct {
	Status    string            `json:"status"`
	Checks    map[string]string `json:"checks,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// newAccountPayload converts a domain account to its API view.
func newAccountPayload(account domain.Account) AccountPayload {
	payload := AccountPayload{
		ID:            account.ID,
		FullName:      account.FullName,
		EmailVerified: account.EmailVerified,
		PhoneVerified: account.PhoneVerified,
		IsActive:      account.IsActive,
		CreatedAt:     account.CreatedAt,
	}

	if account.Email != nil && *account.Email != "" {
		payload.Email = account.Email
	}
	if account.Phone != nil && *account.Phone != "" {
		payload.Phone = account.Phone
	}

	return payload
}

// newSessionPayload converts a domain session to its API view.
func newSessionPayload(session domain.Session, currentID string) SessionPayload {
	return SessionPayload{
		ID:            session.ID,
		ClientAddress: session.ClientAddress,
		ClientAgent:   session.ClientAgent,
		CreatedAt:     session.CreatedAt,
		LastSeenAt:    session.LastSeenAt,
		IsCurrent:     currentID != "" && session.ID == currentID,
	}
}
