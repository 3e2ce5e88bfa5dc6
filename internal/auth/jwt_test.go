package auth_test

import (
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sitecrew-dev/sitecrew/internal/auth"
)

func TestGenerateAndVerifyJWT(t *testing.T) {
	auth.SetJWTSecret("round-trip-secret")

	token, err := auth.GenerateJWT(42, "user@example.com")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	parsed, err := auth.VerifyJWT(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		t.Fatalf("claims type = %T", parsed.Claims)
	}
	if claims["user_id"].(float64) != 42 {
		t.Errorf("user_id = %v", claims["user_id"])
	}
	if claims["email"].(string) != "user@example.com" {
		t.Errorf("email = %v", claims["email"])
	}
}

func TestVerifyJWTWrongSecret(t *testing.T) {
	auth.SetJWTSecret("first-secret")

	token, err := auth.GenerateJWT(1, "user@example.com")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	auth.SetJWTSecret("second-secret")

	if _, err := auth.VerifyJWT(token); err == nil {
		t.Fatal("expected verification to fail with rotated secret")
	}
}

func TestVerifyJWTGarbage(t *testing.T) {
	auth.SetJWTSecret("some-secret")

	if _, err := auth.VerifyJWT("not.a.token"); err == nil {
		t.Fatal("expected verification to fail")
	}
}
