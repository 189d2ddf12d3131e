package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dadyutenga/driver-app-backend/internal/transport/http/middleware"
	"github.com/dadyutenga/driver-app-backend/internal/usecase"
)

// ProfileHandler exposes the authenticated profile endpoints.
type ProfileHandler struct {
	profiles *usecase.ProfileService
}

// NewProfileHandler constructs ProfileHandler.
func NewProfileHandler(profiles *usecase.ProfileService) *ProfileHandler {
	return &ProfileHandler{profiles: profiles}
}

// Get returns the caller's account.
func (h *ProfileHandler) Get(c *gin.Context) {
	accountID, ok := middleware.GetAuthenticatedAccountID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	account, err := h.profiles.Get(c.Request.Context(), accountID)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrAccountNotFound, Status: http.StatusNotFound, Message: "account not found"},
		}, http.StatusInternalServerError, "failed to load profile")
		return
	}

	c.JSON(http.StatusOK, NewSuccessResponse("profile", newAccountPayload(*account)))
}

// Update applies the changed profile fields. Changing a contact sends a fresh
// verification code to the new destination.
func (h *ProfileHandler) Update(c *gin.Context) {
	accountID, ok := middleware.GetAuthenticatedAccountID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	var req ProfileUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid profile payload"))
		return
	}

	account, err := h.profiles.Update(c.Request.Context(), accountID, usecase.ProfileUpdateInput{
		FullName: req.FullName,
		Email:    req.Email,
		Phone:    req.Phone,
	})
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrAccountNotFound, Status: http.StatusNotFound, Message: "account not found"},
			{Err: usecase.ErrDuplicateIdentifier, Status: http.StatusConflict, Message: "email or phone already registered"},
			{Err: usecase.ErrMissingContact, Status: http.StatusBadRequest, Message: "at least one contact must remain"},
		}, http.StatusBadRequest, "failed to update profile")
		return
	}

	c.JSON(http.StatusOK, NewSuccessResponse("profile updated", newAccountPayload(*account)))
}
