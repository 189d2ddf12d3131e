package security

import (
	"strings"
	"testing"
)

func TestHashAndVerifyPassword(t *testing.T) {
	encoded, err := HashPassword("correct horse battery 7")
	if err != nil {
		t.Fatalf("HashPassword returned error: %v", err)
	}
	if !strings.Contains(encoded, ":") {
		t.Fatalf("expected salt:hash encoding, got %q", encoded)
	}

	ok, err := VerifyPassword("correct horse battery 7", encoded)
	if err != nil {
		t.Fatalf("VerifyPassword returned error: %v", err)
	}
	if !ok {
		t.Fatalf("expected matching password to verify")
	}

	ok, err = VerifyPassword("wrong password 7", encoded)
	if err != nil {
		t.Fatalf("VerifyPassword returned error: %v", err)
	}
	if ok {
		t.Fatalf("expected mismatching password to fail")
	}
}

func TestHashPasswordSaltsEachCall(t *testing.T) {
	first, err := HashPassword("same password 1")
	if err != nil {
		t.Fatalf("HashPassword returned error: %v", err)
	}
	second, err := HashPassword("same password 1")
	if err != nil {
		t.Fatalf("HashPassword returned error: %v", err)
	}
	if first == second {
		t.Fatalf("expected unique salts to produce distinct encodings")
	}
}

func TestVerifyPasswordMalformedHash(t *testing.T) {
	if _, err := VerifyPassword("anything1", "not-an-encoded-hash"); err == nil {
		t.Fatalf("expected error for malformed hash")
	}

	ok, err := VerifyPassword("", "salt:hash")
	if err != nil {
		t.Fatalf("VerifyPassword returned error: %v", err)
	}
	if ok {
		t.Fatalf("expected empty password to fail verification")
	}
}
