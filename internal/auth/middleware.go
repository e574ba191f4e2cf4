// Switchboard - Multi-Tenant Realtime Chat Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/switchboard

package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/tomtom215/switchboard/internal/logging"
	"github.com/tomtom215/switchboard/internal/models"
)

type contextKey string

// IdentityContextKey is the context key for the authenticated Identity.
const IdentityContextKey contextKey = "identity"

// ContextWithIdentity returns a copy of ctx carrying id.
func ContextWithIdentity(ctx context.Context, id *Identity) context.Context {
	ctx = context.WithValue(ctx, IdentityContextKey, id)
	return logging.ContextWithTenant(ctx, id.AppID, id.UserID)
}

// IdentityFrom returns the identity stored by Authenticate, if any.
func IdentityFrom(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(IdentityContextKey).(*Identity)
	return id, ok && id != nil
}

// ErrorWriter renders an authentication failure.
type ErrorWriter func(w http.ResponseWriter, r *http.Request, err error)

// Middleware enforces bearer-token authentication.
type Middleware struct {
	tokens  *TokenManager
	onError ErrorWriter
}

// NewMiddleware creates authentication middleware. A nil onError falls back
// to a plain-text 401.
func NewMiddleware(tokens *TokenManager, onError ErrorWriter) *Middleware {
	if onError == nil {
		onError = func(w http.ResponseWriter, _ *http.Request, err error) {
			http.Error(w, err.Error(), http.StatusUnauthorized)
		}
	}
	return &Middleware{tokens: tokens, onError: onError}
}

// Authenticate is chi-compatible middleware that rejects requests without a
// valid bearer token and stores the Identity in the request context.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := BearerToken(r)
		if err != nil {
			m.onError(w, r, err)
			return
		}

		id, err := m.tokens.Verify(token)
		if err != nil {
			logging.Ctx(r.Context()).Debug().Err(err).Msg("Token validation failed")
			m.onError(w, r, models.Unauthenticated("invalid token"))
			return
		}

		next.ServeHTTP(w, r.WithContext(ContextWithIdentity(r.Context(), id)))
	})
}

// BearerToken extracts the token from the Authorization header.
func BearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", models.Unauthenticated("missing token")
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", models.Unauthenticated("invalid authorization header")
	}
	return strings.TrimSpace(parts[1]), nil
}
