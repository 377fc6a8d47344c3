// ABOUTME: Unit tests for JWT token issuance and verification
// ABOUTME: Tests round-trips, invalid tokens, expired tokens, and missing keys

package auth

import (
	"errors"
	"testing"
	"time"
)

func TestTokenManager_RoundTrip(t *testing.T) {
	manager, err := NewTokenManager([]byte("test-secret-key-for-jwt-signing"))
	if err != nil {
		t.Fatalf("NewTokenManager() error = %v", err)
	}

	identity := "operator:alice"
	token, err := manager.Issue(identity, time.Hour)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	got, err := manager.Verify(token)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}

	if got != identity {
		t.Errorf("Verify() = %q, want %q", got, identity)
	}
}

func TestTokenManager_NoSigningKey(t *testing.T) {
	_, err := NewTokenManager(nil)
	if !errors.Is(err, ErrNoSigningKey) {
		t.Errorf("NewTokenManager(nil) error = %v, want ErrNoSigningKey", err)
	}

	_, err = NewTokenManager([]byte{})
	if !errors.Is(err, ErrNoSigningKey) {
		t.Errorf("NewTokenManager(empty) error = %v, want ErrNoSigningKey", err)
	}
}

func TestTokenManager_InvalidToken(t *testing.T) {
	manager, err := NewTokenManager([]byte("test-secret-key-for-jwt-signing"))
	if err != nil {
		t.Fatalf("NewTokenManager() error = %v", err)
	}

	tests := []struct {
		name  string
		token string
	}{
		{
			name:  "empty token",
			token: "",
		},
		{
			name:  "garbage token",
			token: "not-a-jwt-token",
		},
		{
			name:  "malformed JWT",
			token: "header.payload.signature",
		},
		{
			name: "wrong secret",
			token: func() string {
				other, _ := NewTokenManager([]byte("different-secret"))
				token, _ := other.Issue("operator:alice", time.Hour)
				return token
			}(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := manager.Verify(tt.token)
			if err == nil {
				t.Error("Verify() should have returned an error")
			}

			if !errors.Is(err, ErrInvalidToken) && !errors.Is(err, ErrMissingClaim) {
				t.Errorf("Verify() error = %v, want ErrInvalidToken or ErrMissingClaim", err)
			}
		})
	}
}

func TestTokenManager_ExpiredToken(t *testing.T) {
	manager, err := NewTokenManager([]byte("test-secret-key-for-jwt-signing"))
	if err != nil {
		t.Fatalf("NewTokenManager() error = %v", err)
	}

	// Issue a token that expired an hour ago
	token, err := manager.Issue("operator:alice", -time.Hour)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	_, err = manager.Verify(token)
	if !errors.Is(err, ErrExpiredToken) {
		t.Errorf("Verify() error = %v, want ErrExpiredToken", err)
	}
}
