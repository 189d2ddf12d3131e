package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/dadyutenga/driver-app-backend/internal/transport/http/middleware"
	"github.com/dadyutenga/driver-app-backend/internal/usecase"
)

// SessionHandler exposes device session management endpoints.
type SessionHandler struct {
	sessions *usecase.SessionService
}

// NewSessionHandler constructs SessionHandler.
func NewSessionHandler(sessions *usecase.SessionService) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

// List returns the caller's open sessions, flagging the current one.
func (h *SessionHandler) List(c *gin.Context) {
	accountID, ok := middleware.GetAuthenticatedAccountID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	sessions, err := h.sessions.List(c.Request.Context(), accountID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to list sessions"))
		return
	}

	currentID := middleware.GetSessionID(c)
	payloads := make([]SessionPayload, 0, len(sessions))
	for _, session := range sessions {
		payloads = append(payloads, newSessionPayload(session, currentID))
	}

	c.JSON(http.StatusOK, NewSuccessResponse("active sessions", SessionListPayload{
		Sessions: payloads,
		Total:    len(payloads),
	}))
}

// Terminate closes one of the caller's sessions by ID.
func (h *SessionHandler) Terminate(c *gin.Context) {
	accountID, ok := middleware.GetAuthenticatedAccountID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	sessionID := strings.TrimSpace(c.Param("id"))
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "session id is required"))
		return
	}

	if err := h.sessions.Terminate(c.Request.Context(), accountID, sessionID); err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrSessionNotFound, Status: http.StatusNotFound, Message: "session not found"},
		}, http.StatusInternalServerError, "failed to terminate session")
		return
	}

	c.JSON(http.StatusOK, NewSuccessResponse("session terminated", nil))
}
