package security

import (
	"crypto/rand"
	"fmt"

	"github.com/dadyutenga/driver-app-backend/internal/core/domain"
)

const (
	digitAlphabet = "0123456789"
	mixedAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

	shortCodeLength = 4
	resetCodeLength = 6
)

// GenerateChallengeCode returns a fresh OTP code for the given purpose.
// Registration and login flows use short mixed-alphabet codes; password reset
// uses a longer numeric code.
func GenerateChallengeCode(purpose domain.ChallengePurpose) (string, error) {
	switch purpose {
	case domain.PurposePasswordReset:
		return generateFromAlphabet(digitAlphabet, resetCodeLength)
	case domain.PurposeEmailVerify, domain.PurposePhoneVerify, domain.PurposeLogin:
		return generateFromAlphabet(mixedAlphabet, shortCodeLength)
	default:
		return "", fmt.Errorf("unknown challenge purpose %q", purpose)
	}
}

// GenerateNumericCode returns a random numeric string of the given length.
func GenerateNumericCode(length int) (string, error) {
	return generateFromAlphabet(digitAlphabet, length)
}

func generateFromAlphabet(alphabet string, length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("length must be positive")
	}

	// Rejection sampling keeps the character distribution uniform.
	n := byte(len(alphabet))
	limit := byte(256 - (256 % len(alphabet)))

	out := make([]byte, 0, length)
	buf := make([]byte, length*2)
	for len(out) < length {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("generate code: %w", err)
		}
		for _, b := range buf {
			if b >= limit {
				continue
			}
			out = append(out, alphabet[b%n])
			if len(out) == length {
				break
			}
		}
	}

	return string(out), nil
}
