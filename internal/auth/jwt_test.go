package auth

import (
	"testing"
	"time"

	"gamelo-backend/internal/config"
)

func testManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(config.AuthConfig{
		JWTSecret:       "test-secret",
		JWTIssuer:       "gamelo",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 24 * time.Hour,
	})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	return m
}

func TestIssueAndVerify_AccessToken(t *testing.T) {
	m := testManager(t)
	now := time.Now()

	pair, err := m.IssuePair(now, "u1", "buyer")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	claims, err := m.Verify(pair.AccessToken, TokenTypeAccess, now.Add(time.Minute))
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.UserID != "u1" || claims.Role != "buyer" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestVerify_RejectsWrongTokenType(t *testing.T) {
	m := testManager(t)
	now := time.Now()

	pair, err := m.IssuePair(now, "u1", "buyer")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if _, err := m.Verify(pair.RefreshToken, TokenTypeAccess, now.Add(time.Minute)); err == nil {
		t.Fatalf("expected error verifying refresh token as access")
	}
}

func TestVerify_RejectsExpiredToken(t *testing.T) {
	m := testManager(t)
	now := time.Now()

	pair, err := m.IssuePair(now, "u1", "admin")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	// Past the access TTL plus the 30s leeway.
	if _, err := m.Verify(pair.AccessToken, TokenTypeAccess, now.Add(16*time.Minute)); err == nil {
		t.Fatalf("expected error verifying expired token")
	}
}

func TestVerify_RejectsWrongIssuer(t *testing.T) {
	issuerA := testManager(t)
	issuerB, err := NewManager(config.AuthConfig{
		JWTSecret:       "test-secret",
		JWTIssuer:       "someone-else",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 24 * time.Hour,
	})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	now := time.Now()

	pair, err := issuerA.IssuePair(now, "u1", "buyer")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := issuerB.Verify(pair.AccessToken, TokenTypeAccess, now.Add(time.Minute)); err == nil {
		t.Fatalf("expected error verifying token from another issuer")
	}
}

func TestNewManager_RequiresSecret(t *testing.T) {
	if _, err := NewManager(config.AuthConfig{}); err == nil {
		t.Fatalf("expected error for missing secret")
	}
}
