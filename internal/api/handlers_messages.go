// Switchboard - Multi-Tenant Realtime Chat Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/switchboard

package api

import (
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/switchboard/internal/message"
	"github.com/tomtom215/switchboard/internal/models"
)

// SendMessage handles POST /channels/{id}/messages. A message that could not
// be persisted is still returned (201) with status "failed".
func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	var req sendMessageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	msg, err := h.messages.Send(r.Context(), req.params(id.AppID, chi.URLParam(r, "id"), id.UserID))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, msg)
}

// ScheduleMessage handles POST /channels/{id}/scheduled-messages.
func (h *Handler) ScheduleMessage(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	var req scheduleMessageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	msg, err := h.messages.ScheduleSend(r.Context(), req.params(id.AppID, chi.URLParam(r, "id"), id.UserID), req.SendAt)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusAccepted, msg)
}

// History handles GET /channels/{id}/messages?limit&before&after.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		respondError(w, r, err)
		return
	}
	q := r.URL.Query()
	page, err := h.messages.History(r.Context(), message.HistoryParams{
		AppID:     id.AppID,
		ChannelID: chi.URLParam(r, "id"),
		UserID:    id.UserID,
		Limit:     limit,
		Before:    q.Get("before"),
		After:     q.Get("after"),
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, page)
}

// MarkRead handles POST /channels/{id}/read.
func (h *Handler) MarkRead(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	state, err := h.messages.MarkRead(r.Context(), id.AppID, chi.URLParam(r, "id"), id.UserID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, state)
}

// Unread handles GET /channels/{id}/unread.
func (h *Handler) Unread(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	channelID := chi.URLParam(r, "id")
	n, err := h.messages.UnreadCount(r.Context(), id.AppID, channelID, id.UserID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, unreadResponse{ChannelID: channelID, UnreadCount: n})
}

// GetMessage handles GET /messages/{id}.
func (h *Handler) GetMessage(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	msg, err := h.messages.Get(r.Context(), id.AppID, chi.URLParam(r, "id"), id.UserID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, msg)
}

// EditMessage handles PATCH /messages/{id}.
func (h *Handler) EditMessage(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	var req editMessageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	msg, err := h.messages.Edit(r.Context(), id.AppID, chi.URLParam(r, "id"), id.UserID, req.Text, req.Metadata)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, msg)
}

// DeleteMessage handles DELETE /messages/{id}?hard=true. A soft delete
// returns the tombstone; a hard delete returns 204.
func (h *Handler) DeleteMessage(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	hard, err := queryBool(r, "hard")
	if err != nil {
		respondError(w, r, err)
		return
	}
	msg, err := h.messages.Delete(r.Context(), id.AppID, chi.URLParam(r, "id"), id.UserID, hard)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if hard {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	respondJSON(w, http.StatusOK, msg)
}

// Replies handles GET /messages/{id}/replies.
func (h *Handler) Replies(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		respondError(w, r, err)
		return
	}
	q := r.URL.Query()
	page, err := h.messages.Replies(r.Context(), message.RepliesParams{
		AppID:    id.AppID,
		ParentID: chi.URLParam(r, "id"),
		UserID:   id.UserID,
		Limit:    limit,
		Before:   q.Get("before"),
		After:    q.Get("after"),
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, page)
}

// Reply handles POST /messages/{id}/replies.
func (h *Handler) Reply(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	var req sendMessageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	msg, err := h.messages.Reply(r.Context(), chi.URLParam(r, "id"), req.params(id.AppID, "", id.UserID))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, msg)
}

// ListReactions handles GET /messages/{id}/reactions.
func (h *Handler) ListReactions(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	reactions, err := h.messages.ListReactions(r.Context(), id.AppID, chi.URLParam(r, "id"), id.UserID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"reactions": reactions})
}

// React handles POST /messages/{id}/reactions.
func (h *Handler) React(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	var req reactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	reaction, err := h.messages.React(r.Context(), id.AppID, chi.URLParam(r, "id"), id.UserID, req.Emoji)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, reaction)
}

// Unreact handles DELETE /messages/{id}/reactions/{emoji}. The emoji path
// segment is URL-escaped.
func (h *Handler) Unreact(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	emoji, err := url.PathUnescape(chi.URLParam(r, "emoji"))
	if err != nil || emoji == "" {
		respondError(w, r, models.Validation("invalid emoji", nil))
		return
	}
	if err := h.messages.Unreact(r.Context(), id.AppID, chi.URLParam(r, "id"), id.UserID, emoji); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Pin handles POST /messages/{id}/pin.
func (h *Handler) Pin(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	msg, err := h.messages.Pin(r.Context(), id.AppID, chi.URLParam(r, "id"), id.UserID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, msg)
}

// Unpin handles DELETE /messages/{id}/pin.
func (h *Handler) Unpin(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	msg, err := h.messages.Unpin(r.Context(), id.AppID, chi.URLParam(r, "id"), id.UserID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, msg)
}
