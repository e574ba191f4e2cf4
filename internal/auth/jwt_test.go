// Switchboard - Multi-Tenant Realtime Chat Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/switchboard

package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/tomtom215/switchboard/internal/config"
)

const testSecret = "this_is_a_very_long_secret_key_for_testing_purposes_12345"

func newTestManager(t *testing.T, ttl time.Duration) *TokenManager {
	t.Helper()
	m, err := NewTokenManager(&config.SecurityConfig{JWTSecret: testSecret, TokenTTL: ttl})
	if err != nil {
		t.Fatalf("NewTokenManager() error = %v", err)
	}
	return m
}

func TestNewTokenManager(t *testing.T) {
	tests := []struct {
		name    string
		secret  string
		wantErr bool
	}{
		{"valid secret", testSecret, false},
		{"empty secret", "", true},
		{"short secret", "short", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := NewTokenManager(&config.SecurityConfig{JWTSecret: tt.secret, TokenTTL: time.Hour})
			if tt.wantErr {
				if err == nil {
					t.Error("NewTokenManager() expected error, got nil")
				}
				return
			}
			if err != nil || m == nil {
				t.Errorf("NewTokenManager() unexpected error = %v", err)
			}
		})
	}
}

func TestIssueAndVerify(t *testing.T) {
	m := newTestManager(t, time.Hour)

	token, err := m.Issue("app-1", "alice")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	id, err := m.Verify(token)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if id.AppID != "app-1" || id.UserID != "alice" {
		t.Errorf("Expected app-1/alice, got %s/%s", id.AppID, id.UserID)
	}
	if id.Scope != "" {
		t.Errorf("Expected end-user token without scope, got %q", id.Scope)
	}

	scoped, err := m.IssueScoped("app-1", "backend", ScopeServer)
	if err != nil {
		t.Fatalf("IssueScoped() error = %v", err)
	}
	id, err = m.Verify(scoped)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if id.Scope != ScopeServer {
		t.Errorf("Expected scope %q, got %q", ScopeServer, id.Scope)
	}
}

func TestIssueRequiresIDs(t *testing.T) {
	m := newTestManager(t, time.Hour)
	if _, err := m.Issue("", "alice"); err == nil {
		t.Error("Expected error for empty app id")
	}
	if _, err := m.Issue("app", ""); err == nil {
		t.Error("Expected error for empty user id")
	}
}

func TestVerifyRejects(t *testing.T) {
	m := newTestManager(t, time.Hour)
	other, err := NewTokenManager(&config.SecurityConfig{JWTSecret: strings.Repeat("x", 40), TokenTTL: time.Hour})
	if err != nil {
		t.Fatalf("NewTokenManager() error = %v", err)
	}
	foreign, _ := other.Issue("app", "alice")

	expired := newTestManager(t, time.Minute)
	expired.now = func() time.Time { return time.Now().Add(-time.Hour) }
	stale, _ := expired.Issue("app", "alice")

	none := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{AppID: "app", UserID: "alice"})
	unsigned, _ := none.SignedString(jwt.UnsafeAllowNoneSignatureType)

	missing := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{AppID: "app"})
	noUser, _ := missing.SignedString([]byte(testSecret))

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not-a-jwt"},
		{"wrong secret", foreign},
		{"expired", stale},
		{"alg none", unsigned},
		{"missing user", noUser},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := m.Verify(tt.token); err == nil {
				t.Error("Verify() expected error, got nil")
			}
		})
	}
}
