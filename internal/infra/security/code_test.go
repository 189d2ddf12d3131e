package security

import (
	"strings"
	"testing"

	"github.com/dadyutenga/driver-app-backend/internal/core/domain"
)

func TestGenerateChallengeCodeShortPurposes(t *testing.T) {
	purposes := []domain.ChallengePurpose{
		domain.PurposeEmailVerify,
		domain.PurposePhoneVerify,
		domain.PurposeLogin,
	}

	for _, purpose := range purposes {
		code, err := GenerateChallengeCode(purpose)
		if err != nil {
			t.Fatalf("GenerateChallengeCode(%s) returned error: %v", purpose, err)
		}
		if len(code) != 4 {
			t.Fatalf("expected 4-character code for %s, got %q", purpose, code)
		}
		for _, r := range code {
			if !strings.ContainsRune(mixedAlphabet, r) {
				t.Fatalf("code %q for %s contains %q outside the alphabet", code, purpose, r)
			}
		}
	}
}

func TestGenerateChallengeCodePasswordReset(t *testing.T) {
	code, err := GenerateChallengeCode(domain.PurposePasswordReset)
	if err != nil {
		t.Fatalf("GenerateChallengeCode returned error: %v", err)
	}
	if len(code) != 6 {
		t.Fatalf("expected 6-digit code, got %q", code)
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			t.Fatalf("expected digits only, got %q", code)
		}
	}
}

func TestGenerateChallengeCodeUnknownPurpose(t *testing.T) {
	if _, err := GenerateChallengeCode(domain.ChallengePurpose("mystery")); err == nil {
		t.Fatalf("expected error for unknown purpose")
	}
}

func TestGenerateNumericCode(t *testing.T) {
	code, err := GenerateNumericCode(8)
	if err != nil {
		t.Fatalf("GenerateNumericCode returned error: %v", err)
	}
	if len(code) != 8 {
		t.Fatalf("expected 8 digits, got %q", code)
	}

	if _, err := GenerateNumericCode(0); err == nil {
		t.Fatalf("expected error for non-positive length")
	}
}

func TestGenerateChallengeCodeVaries(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		code, err := GenerateChallengeCode(domain.PurposeLogin)
		if err != nil {
			t.Fatalf("GenerateChallengeCode returned error: %v", err)
		}
		seen[code] = true
	}
	if len(seen) < 2 {
		t.Fatalf("expected varied codes, always got the same value")
	}
}
