package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dadyutenga/driver-app-backend/internal/transport/http/middleware"
	"github.com/dadyutenga/driver-app-backend/internal/usecase"
)

// PasswordHandler exposes the reset and change-password endpoints.
type PasswordHandler struct {
	passwords *usecase.PasswordService
}

// NewPasswordHandler constructs PasswordHandler.
func NewPasswordHandler(passwords *usecase.PasswordService) *PasswordHandler {
	return &PasswordHandler{passwords: passwords}
}

// RequestReset starts the forgotten-password flow. The response is identical
// whether or not the identifier matches an account.
func (h *PasswordHandler) RequestReset(c *gin.Context) {
	var req PasswordResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "identifier is required"))
		return
	}

	if err := h.passwords.RequestReset(c.Request.Context(), req.Identifier); err != nil {
		RespondWithMappedError(c, err, nil, http.StatusInternalServerError, "failed to process reset request")
		return
	}

	c.JSON(http.StatusOK, NewSuccessResponse(
		"if the account exists, a reset code has been sent", nil))
}

// ConfirmReset verifies the reset code and installs the new password.
func (h *PasswordHandler) ConfirmReset(c *gin.Context) {
	var req PasswordResetConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid reset confirmation payload"))
		return
	}

	if err := h.passwords.ConfirmReset(c.Request.Context(), req.Identifier, req.OTPCode, req.NewPassword); err != nil {
		cases := append(challengeErrorCases(), ErrorCase{
			Err: usecase.ErrPasswordPolicyViolation, Status: http.StatusBadRequest, Message: "password does not meet complexity requirements",
		})
		RespondWithMappedError(c, err, cases, http.StatusInternalServerError, "failed to reset password")
		return
	}

	c.JSON(http.StatusOK, NewSuccessResponse("password reset, sign in again on all devices", nil))
}

// ChangePassword updates the authenticated driver's password. Every other
// session is closed; the caller's survives.
func (h *PasswordHandler) ChangePassword(c *gin.Context) {
	accountID, ok := middleware.GetAuthenticatedAccountID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid password change payload"))
		return
	}

	sessionID := middleware.GetSessionID(c)

	if err := h.passwords.ChangePassword(c.Request.Context(), accountID, sessionID, req.CurrentPassword, req.NewPassword); err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrInvalidCredentials, Status: http.StatusUnauthorized, Message: "current password is incorrect"},
			{Err: usecase.ErrPasswordPolicyViolation, Status: http.StatusBadRequest, Message: "password does not meet complexity requirements"},
			{Err: usecase.ErrAccountNotFound, Status: http.StatusNotFound, Message: "account not found"},
		}, http.StatusInternalServerError, "failed to change password")
		return
	}

	c.JSON(http.StatusOK, NewSuccessResponse("password changed", nil))
}
