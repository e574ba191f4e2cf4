// Switchboard - Multi-Tenant Realtime Chat Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/switchboard

// Package testinfra provides shared test infrastructure.
//
// # Containers
//
// Behind the integration build tag, NewPostgresContainer and
// NewRedisContainer start real backing services with testcontainers-go:
//
//	func TestPostgresStore(t *testing.T) {
//	    testinfra.SkipIfNoDocker(t)
//	    ctx := context.Background()
//	    pg, err := testinfra.NewPostgresContainer(ctx)
//	    if err != nil {
//	        t.Fatal(err)
//	    }
//	    defer testinfra.CleanupContainer(t, ctx, pg)
//
//	    s, err := postgres.Connect(ctx, pg.DSN)
//	    // ...
//	}
//
// Run them with:
//
//	go test -tags integration ./...
//
// # Webhook receiver
//
// MockWebhookServer is always available. It captures deliveries, verifies
// their HMAC signature against a known secret and can be scripted to fail or
// hang so retry and timeout paths can be exercised.
package testinfra
