// Switchboard - Multi-Tenant Realtime Chat Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/switchboard

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/switchboard/internal/webhook"
)

// ListWebhooks handles GET /webhooks.
func (h *Handler) ListWebhooks(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	subs, err := h.webhooks.List(r.Context(), id.AppID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"webhooks": subs})
}

// CreateWebhook handles POST /webhooks. The response is the only time the
// signing secret is returned.
func (h *Handler) CreateWebhook(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	var req webhookRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	sub, err := h.webhooks.Subscribe(r.Context(), webhook.SubscribeParams{
		AppID:      id.AppID,
		URL:        req.URL,
		EventTypes: req.Events,
		Secret:     req.Secret,
		RetryCount: req.RetryCount,
		Timeout:    time.Duration(req.TimeoutMs) * time.Millisecond,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, webhookCreated{WebhookSubscription: sub, Secret: sub.Secret})
}

// DeleteWebhook handles DELETE /webhooks/{id}.
func (h *Handler) DeleteWebhook(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	if err := h.webhooks.Unsubscribe(r.Context(), id.AppID, chi.URLParam(r, "id")); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeliveryLogs handles GET /webhooks/{id}/deliveries?limit, newest first.
func (h *Handler) DeliveryLogs(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	limit, err := queryInt(r, "limit", webhook.DefaultLogPageSize)
	if err != nil {
		respondError(w, r, err)
		return
	}
	logs, err := h.webhooks.DeliveryLogs(r.Context(), id.AppID, chi.URLParam(r, "id"), limit)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"deliveries": logs})
}
