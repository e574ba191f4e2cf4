// Switchboard - Multi-Tenant Realtime Chat Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/switchboard

// Package auth resolves callers to an (appId, userId) identity.
//
// Tokens are HS256 JWTs issued by the tenant's own backend with the shared
// secret. The app and user travel in custom claims; the subject mirrors the
// user id for interoperability with generic JWT tooling.
//
// REST requests authenticate with "Authorization: Bearer <jwt>" through
// Middleware.Authenticate. WebSocket connections authenticate with an
// authenticate{token} frame and call TokenManager.Verify directly, since
// browsers cannot set headers on the upgrade request.
package auth
