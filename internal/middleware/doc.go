// Switchboard - Multi-Tenant Realtime Chat Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/switchboard

/*
Package middleware provides HTTP infrastructure middleware shared by the REST
API and the WebSocket endpoint.

Key Components:

  - RequestID: assigns (or propagates) X-Request-ID and seeds the logging
    context with request and correlation IDs
  - PrometheusMetrics: request count, latency and in-flight gauge, labelled by
    the chi route pattern rather than the raw path

Both are chi-compatible (func(http.Handler) http.Handler):

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.PrometheusMetrics)

The metrics wrapper keeps http.Hijacker available, so it can sit in front of
the /ws upgrade.
*/
package middleware
