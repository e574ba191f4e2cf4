// Switchboard - Multi-Tenant Realtime Chat Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/switchboard

package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/tomtom215/switchboard/internal/config"
)

// MinSecretLength is the shortest accepted HMAC secret.
const MinSecretLength = 32

// ScopeServer marks tokens minted by a tenant's backend. Tenant-wide
// operations such as webhook management require it.
const ScopeServer = "server"

// Claims represents JWT claims. Scope is empty for end-user tokens.
type Claims struct {
	AppID  string `json:"app_id"`
	UserID string `json:"user_id"`
	Scope  string `json:"scope,omitempty"`
	jwt.RegisteredClaims
}

// Identity is an authenticated caller.
type Identity struct {
	AppID  string
	UserID string
	Scope  string
}

// TokenManager issues and verifies identity tokens.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenManager creates a token manager from the security configuration.
//
// Returns an error if the secret is shorter than MinSecretLength.
func NewTokenManager(cfg *config.SecurityConfig) (*TokenManager, error) {
	if len(cfg.JWTSecret) < MinSecretLength {
		return nil, fmt.Errorf("JWT_SECRET must be at least %d characters", MinSecretLength)
	}
	return &TokenManager{
		secret: []byte(cfg.JWTSecret),
		ttl:    cfg.TokenTTL,
		now:    time.Now,
	}, nil
}

// Issue signs an end-user token for a user in an app. Tenants normally mint
// tokens themselves; Issue exists for tooling and tests.
func (m *TokenManager) Issue(appID, userID string) (string, error) {
	return m.IssueScoped(appID, userID, "")
}

// IssueScoped signs a token carrying scope.
func (m *TokenManager) IssueScoped(appID, userID, scope string) (string, error) {
	if appID == "" || userID == "" {
		return "", errors.New("app id and user id are required")
	}

	now := m.now()
	claims := &Claims{
		AppID:  appID,
		UserID: userID,
		Scope:  scope,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	if m.ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(m.ttl))
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify validates a token and extracts the caller identity.
//
// Rejects tokens signed with anything other than HMAC (algorithm confusion),
// expired or not-yet-valid tokens, and tokens missing either id claim.
func (m *TokenManager) Verify(tokenString string) (*Identity, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(m.now))
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	if claims.AppID == "" || claims.UserID == "" {
		return nil, errors.New("token is missing app_id or user_id")
	}
	return &Identity{AppID: claims.AppID, UserID: claims.UserID, Scope: claims.Scope}, nil
}
