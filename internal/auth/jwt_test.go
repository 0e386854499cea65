package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestGenerateParseRoundTrip(t *testing.T) {
	m := NewTokenManager("test-secret", time.Hour)

	token, err := m.Generate(42)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	claims, err := m.Parse(token)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if claims.UserID != 42 {
		t.Errorf("UserID = %d, want 42", claims.UserID)
	}
	if claims.Subject != "access" {
		t.Errorf("Subject = %q, want %q", claims.Subject, "access")
	}
}

func TestParseRejectsWrongSecret(t *testing.T) {
	token, err := NewTokenManager("secret-a", time.Hour).Generate(1)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	_, err = NewTokenManager("secret-b", time.Hour).Parse(token)
	if !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("Parse with wrong secret = %v, want ErrTokenInvalid", err)
	}
}

func TestParseRejectsExpired(t *testing.T) {
	token, err := NewTokenManager("test-secret", -time.Minute).Generate(1)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	_, err = NewTokenManager("test-secret", -time.Minute).Parse(token)
	if !errors.Is(err, ErrTokenExpired) {
		t.Errorf("Parse of expired token = %v, want ErrTokenExpired", err)
	}
}

func TestParseRejectsWrongSigningMethod(t *testing.T) {
	// A token signed with "none" must not pass even with a valid payload.
	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: 1})
	token, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("SignedString: %v", err)
	}

	_, err = NewTokenManager("test-secret", time.Hour).Parse(token)
	if !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("Parse of alg=none token = %v, want ErrTokenInvalid", err)
	}
}
