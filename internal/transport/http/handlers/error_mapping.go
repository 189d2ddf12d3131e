package handlers

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/dadyutenga/driver-app-backend/internal/usecase"
)

// ErrorCase maps a sentinel error to an HTTP status code and response message.
type ErrorCase struct {
	Err     error
	Status  int
	Message string
}

// RespondWithMappedError resolves the provided error against the typed OTP
// errors, then the supplied sentinel cases, falling back to a generic response.
func RespondWithMappedError(c *gin.Context, err error, cases []ErrorCase, fallbackStatus int, fallbackMessage string) {
	if err == nil {
		c.Status(http.StatusOK)
		return
	}

	var invalidCode *usecase.InvalidCodeError
	if errors.As(err, &invalidCode) {
		resp := NewErrorResponse(c, "invalid verification code")
		resp.Errors = map[string]string{
			"otp_code":           "the code does not match",
			"attempts_remaining": strconv.Itoa(invalidCode.AttemptsRemaining),
		}
		c.JSON(http.StatusUnprocessableEntity, resp)
		return
	}

	var rateLimited *usecase.RateLimitedError
	if errors.As(err, &rateLimited) {
		seconds := int(math.Ceil(rateLimited.RetryAfter.Seconds()))
		if seconds < 0 {
			seconds = 0
		}
		c.Header("Retry-After", strconv.Itoa(seconds))
		c.JSON(http.StatusTooManyRequests, NewErrorResponse(c,
			fmt.Sprintf("please wait %d seconds before requesting another code", seconds)))
		return
	}

	for _, cs := range cases {
		if cs.Err == nil {
			continue
		}
		if errors.Is(err, cs.Err) {
			c.JSON(cs.Status, NewErrorResponse(c, cs.Message))
			return
		}
	}

	c.JSON(fallbackStatus, NewErrorResponse(c, fallbackMessage))
}

// challengeErrorCases are shared by every endpoint that consumes an OTP code.
func challengeErrorCases() []ErrorCase {
	return []ErrorCase{
		{Err: usecase.ErrChallengeNotFound, Status: http.StatusNotFound, Message: "no active verification code found"},
		{Err: usecase.ErrChallengeExpired, Status: http.StatusGone, Message: "verification code expired, request a new one"},
		{Err: usecase.ErrChallengeExhausted, Status: http.StatusTooManyRequests, Message: "verification attempts exhausted, request a new code"},
	}
}
