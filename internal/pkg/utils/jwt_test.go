package utils

import (
	"testing"
	"time"
)

func newTestManager() *JWTManager {
	return NewJWTManager("test-secret-key-for-testing", "huddle-test")
}

func TestJWTManager_GenerateAndValidate(t *testing.T) {
	manager := newTestManager()

	token, err := manager.Generate("user-123", "testuser", true, 15*time.Minute)
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}
	if token == "" {
		t.Fatal("Expected non-empty token")
	}

	claims, err := manager.ValidateToken(token)
	if err != nil {
		t.Fatalf("Failed to validate token: %v", err)
	}

	if claims.UserID != "user-123" {
		t.Errorf("Expected user ID user-123, got %s", claims.UserID)
	}
	if claims.Username != "testuser" {
		t.Errorf("Expected username testuser, got %s", claims.Username)
	}
	if !claims.Privileged {
		t.Error("Expected privileged claim to survive the round trip")
	}
	if claims.Issuer != "huddle-test" {
		t.Errorf("Expected issuer huddle-test, got %s", claims.Issuer)
	}
	if claims.Subject != "user-123" {
		t.Errorf("Expected subject user-123, got %s", claims.Subject)
	}
}

func TestJWTManager_ExpiredToken(t *testing.T) {
	manager := newTestManager()

	token, err := manager.Generate("user-123", "testuser", false, -time.Minute)
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}

	_, err = manager.ValidateToken(token)
	if err != ErrExpiredToken {
		t.Errorf("Expected ErrExpiredToken, got %v", err)
	}
}

func TestJWTManager_WrongSecret(t *testing.T) {
	manager := newTestManager()
	other := NewJWTManager("a-different-secret", "huddle-test")

	token, err := other.Generate("user-123", "testuser", false, 15*time.Minute)
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}

	_, err = manager.ValidateToken(token)
	if err != ErrInvalidToken {
		t.Errorf("Expected ErrInvalidToken for foreign signature, got %v", err)
	}
}

func TestJWTManager_MalformedToken(t *testing.T) {
	manager := newTestManager()

	for _, token := range []string{"", "not-a-jwt", "a.b.c"} {
		if _, err := manager.ValidateToken(token); err != ErrInvalidToken {
			t.Errorf("Expected ErrInvalidToken for %q, got %v", token, err)
		}
	}
}
