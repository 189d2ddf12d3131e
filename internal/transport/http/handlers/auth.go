package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/dadyutenga/driver-app-backend/internal/core/domain"
	"github.com/dadyutenga/driver-app-backend/internal/infra/security"
	"github.com/dadyutenga/driver-app-backend/internal/usecase"
)

// AuthHandler exposes registration, login, OTP, and token endpoints.
type AuthHandler struct {
	auth         *usecase.AuthService
	registration *usecase.RegistrationService
}

// NewAuthHandler constructs AuthHandler.
func NewAuthHandler(auth *usecase.AuthService, registration *usecase.RegistrationService) *AuthHandler {
	return &AuthHandler{
		auth:         auth,
		registration: registration,
	}
}

// Register creates a driver account and sends the first verification code.
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid registration payload"))
		return
	}

	account, err := h.registration.Register(c.Request.Context(), usecase.RegisterInput{
		FullName:   req.FullName,
		Identifier: req.Identifier,
		Password:   req.Password,
	})
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrDuplicateIdentifier, Status: http.StatusConflict, Message: "email or phone already registered"},
			{Err: usecase.ErrPasswordPolicyViolation, Status: http.StatusBadRequest, Message: "password does not meet complexity requirements"},
			{Err: usecase.ErrMissingContact, Status: http.StatusBadRequest, Message: "an email or phone number is required"},
		}, http.StatusInternalServerError, "registration failed")
		return
	}

	c.JSON(http.StatusCreated, NewSuccessResponse(
		"account created, verification code sent",
		newAccountPayload(*account),
	))
}

// Login validates credentials and sends a login verification code. Tokens are
// only minted once the code is verified.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid login payload"))
		return
	}

	result, err := h.auth.Login(c.Request.Context(), req.Identifier, req.Password)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrInvalidCredentials, Status: http.StatusUnauthorized, Message: "invalid credentials"},
			{Err: usecase.ErrAccountInactive, Status: http.StatusForbidden, Message: "account is inactive"},
			{Err: usecase.ErrMissingContact, Status: http.StatusConflict, Message: "account has no contact for code delivery"},
		}, http.StatusInternalServerError, "login failed")
		return
	}

	c.JSON(http.StatusOK, NewSuccessResponse(
		"verification code sent",
		LoginPendingPayload{
			AccountID: result.AccountID,
			Recipient: result.Recipient,
			OTPType:   string(result.Purpose),
		},
	))
}

// VerifyOTP completes a challenge. For login and contact verification flows a
// session is opened and credentials are returned.
func (h *AuthHandler) VerifyOTP(c *gin.Context) {
	var req VerifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid verification payload"))
		return
	}

	purpose, ok := parseOTPType(req.OTPType)
	if !ok {
		c.JSON(http.StatusBadRequest, NewFieldErrorResponse(c, "invalid verification payload", map[string]string{
			"otp_type": "must be one of email, phone, login",
		}))
		return
	}

	client := usecase.ClientInfo{
		Address: strings.TrimSpace(c.ClientIP()),
		Agent:   strings.TrimSpace(c.Request.UserAgent()),
	}

	result, err := h.auth.VerifyOTP(c.Request.Context(), req.Identifier, purpose, req.OTPCode, client)
	if err != nil {
		RespondWithMappedError(c, err, challengeErrorCases(), http.StatusInternalServerError, "verification failed")
		return
	}

	c.JSON(http.StatusOK, NewSuccessResponse("verification successful", VerifyOTPPayload{
		Account:   newAccountPayload(*result.Account),
		SessionID: result.SessionID,
		Credentials: CredentialsPayload{
			AccessToken:      result.Credentials.AccessToken,
			RefreshToken:     result.Credentials.RefreshToken,
			TokenType:        "Bearer",
			AccessExpiresAt:  result.Credentials.AccessExpiresAt,
			RefreshExpiresAt: result.Credentials.RefreshExpiresAt,
		},
	}))
}

// RequestOTP issues a fresh challenge for the identifier.
func (h *AuthHandler) RequestOTP(c *gin.Context) {
	var req RequestOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid request payload"))
		return
	}

	purpose, ok := parseOTPType(req.OTPType)
	if !ok {
		c.JSON(http.StatusBadRequest, NewFieldErrorResponse(c, "invalid request payload", map[string]string{
			"otp_type": "must be one of email, phone, login",
		}))
		return
	}

	if err := h.auth.RequestOTP(c.Request.Context(), req.Identifier, purpose); err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrAccountNotFound, Status: http.StatusNotFound, Message: "account not found"},
			{Err: usecase.ErrMissingContact, Status: http.StatusConflict, Message: "account has no contact for code delivery"},
		}, http.StatusInternalServerError, "failed to send verification code")
		return
	}

	c.JSON(http.StatusOK, NewSuccessResponse("verification code sent", nil))
}

// ResendOTP re-sends the active challenge, honoring the cooldown.
func (h *AuthHandler) ResendOTP(c *gin.Context) {
	var req ResendOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid request payload"))
		return
	}

	purpose, ok := parseOTPType(req.OTPType)
	if !ok {
		c.JSON(http.StatusBadRequest, NewFieldErrorResponse(c, "invalid request payload", map[string]string{
			"otp_type": "must be one of email, phone, login",
		}))
		return
	}

	if err := h.auth.ResendOTP(c.Request.Context(), req.Identifier, purpose); err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrAccountNotFound, Status: http.StatusNotFound, Message: "account not found"},
			{Err: usecase.ErrMissingContact, Status: http.StatusConflict, Message: "account has no contact for code delivery"},
		}, http.StatusInternalServerError, "failed to resend verification code")
		return
	}

	c.JSON(http.StatusOK, NewSuccessResponse("verification code re-sent", nil))
}

// Refresh rotates a refresh token into a new credential pair.
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req TokenRefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "refresh_token is required"))
		return
	}

	creds, err := h.auth.RefreshTokens(c.Request.Context(), req.RefreshToken)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrInvalidRefreshToken, Status: http.StatusUnauthorized, Message: "invalid refresh token"},
			{Err: usecase.ErrAccountInactive, Status: http.StatusForbidden, Message: "account is inactive"},
		}, http.StatusInternalServerError, "failed to refresh tokens")
		return
	}

	c.JSON(http.StatusOK, NewSuccessResponse("tokens refreshed", CredentialsPayload{
		AccessToken:      creds.AccessToken,
		RefreshToken:     creds.RefreshToken,
		TokenType:        "Bearer",
		AccessExpiresAt:  creds.AccessExpiresAt,
		RefreshExpiresAt: creds.RefreshExpiresAt,
	}))
}

// Logout closes the caller's session and revokes the presented refresh token.
func (h *AuthHandler) Logout(c *gin.Context) {
	claims := getAccessTokenClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	var req LogoutRequest
	_ = c.ShouldBindJSON(&req)

	if err := h.auth.Logout(c.Request.Context(), claims, req.RefreshToken); err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "logout failed"))
		return
	}

	c.JSON(http.StatusOK, NewSuccessResponse("logged out", nil))
}

// parseOTPType maps the wire otp_type value to a challenge purpose. Reset
// codes are excluded; they are redeemed only through the password reset
// confirm endpoint.
func parseOTPType(raw string) (domain.ChallengePurpose, bool) {
	purpose := domain.ChallengePurpose(strings.ToLower(strings.TrimSpace(raw)))
	switch purpose {
	case domain.PurposeEmailVerify, domain.PurposePhoneVerify, domain.PurposeLogin:
		return purpose, true
	}
	return "", false
}

func getAccessTokenClaims(c *gin.Context) *security.Claims {
	raw, exists := c.Get("claims")
	if !exists {
		return nil
	}

	claims, ok := raw.(*security.Claims)
	if !ok {
		return nil
	}

	return claims
}
