package utils

import (
	"testing"
	"time"
)

const testSecret = "test-secret-for-jwt-tests"

func TestGenerateAndValidateJWT(t *testing.T) {
	token, err := GenerateJWT("user-1", "student", "ai-key-1", testSecret, time.Hour)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	claims, err := ValidateJWT(token, testSecret)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.UserID != "user-1" || claims.Role != "student" || claims.AIKey != "ai-key-1" {
		t.Fatalf("claims round trip: %+v", claims)
	}
}

func TestValidateJWTBearerPrefix(t *testing.T) {
	token, err := GenerateJWT("user-1", "admin", "", testSecret, time.Hour)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := ValidateJWT("Bearer "+token, testSecret); err != nil {
		t.Fatalf("bearer prefix should be stripped: %v", err)
	}
}

func TestValidateJWTWrongSecret(t *testing.T) {
	token, err := GenerateJWT("user-1", "admin", "", testSecret, time.Hour)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := ValidateJWT(token, "other-secret"); err == nil {
		t.Fatalf("wrong secret must be rejected")
	}
}

func TestValidateJWTExpired(t *testing.T) {
	token, err := GenerateJWT("user-1", "admin", "", testSecret, -time.Minute)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := ValidateJWT(token, testSecret); err == nil {
		t.Fatalf("expired token must be rejected")
	}
}

func TestRefreshJWTKeepsClaims(t *testing.T) {
	token, err := GenerateJWT("user-1", "student", "ai-key-1", testSecret, time.Hour)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	refreshed, err := RefreshJWT(token, testSecret, time.Hour)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	claims, err := ValidateJWT(refreshed, testSecret)
	if err != nil {
		t.Fatalf("validate refreshed: %v", err)
	}
	if claims.UserID != "user-1" || claims.Role != "student" || claims.AIKey != "ai-key-1" {
		t.Fatalf("claims must carry over: %+v", claims)
	}
}

func TestRefreshJWTRejectsExpired(t *testing.T) {
	token, err := GenerateJWT("user-1", "student", "", testSecret, -time.Minute)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := RefreshJWT(token, testSecret, time.Hour); err == nil {
		t.Fatalf("expired token must not refresh")
	}
}

func TestExtractTokenFromHeader(t *testing.T) {
	if got := ExtractTokenFromHeader("Bearer abc"); got != "abc" {
		t.Fatalf("got %q", got)
	}
	if got := ExtractTokenFromHeader("abc"); got != "" {
		t.Fatalf("malformed header should yield empty, got %q", got)
	}
	if got := ExtractTokenFromHeader(""); got != "" {
		t.Fatalf("empty header should yield empty, got %q", got)
	}
}
