// Switchboard - Multi-Tenant Realtime Chat Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/switchboard

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/tomtom215/switchboard/internal/logging"
)

const readyTimeout = 2 * time.Second

// HealthLive handles liveness probe requests. It returns 200 whenever the
// process can serve HTTP, regardless of dependencies.
func (h *Handler) HealthLive(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"alive":  true,
		"uptime": time.Since(h.startTime).Seconds(),
	})
}

// HealthReady handles readiness probe requests. It returns 503 while the
// store does not answer a ping.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	if h.db != nil {
		if err := h.db.Ping(ctx); err != nil {
			logging.Ctx(r.Context()).Warn().Err(err).Msg("Readiness check failed")
			respondJSON(w, http.StatusServiceUnavailable, map[string]any{
				"ready": false,
				"store": "unavailable",
			})
			return
		}
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"ready": true,
		"store": "ok",
	})
}
