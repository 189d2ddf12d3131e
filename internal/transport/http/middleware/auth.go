package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/dadyutenga/driver-app-backend/internal/usecase"
)

// envelope matches the handlers response structure for error payloads.
type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	TraceID string `json:"trace_id,omitempty"`
}

func newErrorEnvelope(c *gin.Context, message string) envelope {
	return envelope{
		Success: false,
		Message: message,
		TraceID: GetTraceID(c),
	}
}

// RequireAuth validates the Authorization header and stores the caller's
// account and session identifiers in the request context.
func RequireAuth(authService *usecase.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				newErrorEnvelope(c, "missing authorization header"))
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				newErrorEnvelope(c, "invalid authorization format: expected 'Bearer <token>'"))
			return
		}

		token := strings.TrimSpace(parts[1])
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				newErrorEnvelope(c, "missing access token"))
			return
		}

		claims, err := authService.ParseAccessToken(token)
		if err != nil {
			switch {
			case errors.Is(err, usecase.ErrExpiredAccessToken):
				c.AbortWithStatusJSON(http.StatusUnauthorized,
					newErrorEnvelope(c, "access token expired"))
			case errors.Is(err, usecase.ErrInvalidAccessToken):
				c.AbortWithStatusJSON(http.StatusUnauthorized,
					newErrorEnvelope(c, "invalid access token"))
			default:
				c.AbortWithStatusJSON(http.StatusInternalServerError,
					newErrorEnvelope(c, "authentication failed"))
			}
			return
		}

		c.Set(AccountIDKey, claims.AccountID)
		c.Set(SessionIDKey, claims.SessionID)
		c.Set("claims", claims)

		if reqCtx := GetRequestContext(c); reqCtx != nil {
			reqCtx.AccountID = claims.AccountID
		}

		c.Next()
	}
}

// GetAuthenticatedAccountID retrieves the account ID from context (helper for handlers)
func GetAuthenticatedAccountID(c *gin.Context) (string, bool) {
	accountID, exists := c.Get(AccountIDKey)
	if !exists {
		return "", false
	}

	if id, ok := accountID.(string); ok && id != "" {
		return id, true
	}

	return "", false
}

// GetSessionID retrieves the caller's session ID from context.
func GetSessionID(c *gin.Context) string {
	sessionID, exists := c.Get(SessionIDKey)
	if !exists {
		return ""
	}
	if id, ok := sessionID.(string); ok {
		return id
	}
	return ""
}
