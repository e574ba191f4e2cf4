// Switchboard - Multi-Tenant Realtime Chat Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/switchboard

package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/switchboard/internal/channel"
	"github.com/tomtom215/switchboard/internal/models"
)

// CreateChannel handles POST /channels. An existing distinct channel with
// the same member set is returned with 200 instead of 201.
func (h *Handler) CreateChannel(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	var req createChannelRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	ch, created, err := h.channels.Create(r.Context(), channel.CreateParams{
		AppID:      id.AppID,
		CreatorID:  id.UserID,
		Type:       models.ChannelType(req.Type),
		Name:       req.Name,
		Members:    req.Members,
		IsDistinct: req.IsDistinct,
		Metadata:   req.Metadata,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	respondJSON(w, status, ch)
}

// GetChannel handles GET /channels/{id}.
func (h *Handler) GetChannel(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	ch, err := h.channels.Get(r.Context(), id.AppID, chi.URLParam(r, "id"), id.UserID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, ch)
}

// DeleteChannel handles DELETE /channels/{id}.
func (h *Handler) DeleteChannel(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	if err := h.channels.Delete(r.Context(), id.AppID, chi.URLParam(r, "id"), id.UserID); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListMembers handles GET /channels/{id}/members.
func (h *Handler) ListMembers(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	members, err := h.channels.ListMembers(r.Context(), id.AppID, chi.URLParam(r, "id"), id.UserID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"members": members})
}

// AddMembers handles POST /channels/{id}/members.
func (h *Handler) AddMembers(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	var req addMembersRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	role := models.Role(req.Role)
	if role == "" {
		role = models.RoleMember
	}
	added, err := h.channels.AddMembers(r.Context(), id.AppID, chi.URLParam(r, "id"), id.UserID, req.UserIDs, role)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{"members": added})
}

// UpdateMember handles PATCH /channels/{id}/members/{userId}.
func (h *Handler) UpdateMember(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	var req updateRoleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	member, err := h.channels.UpdateMemberRole(r.Context(), id.AppID, chi.URLParam(r, "id"), id.UserID, chi.URLParam(r, "userId"), models.Role(req.Role))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, member)
}

// RemoveMember handles DELETE /channels/{id}/members/{userId}.
func (h *Handler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	if err := h.channels.RemoveMember(r.Context(), id.AppID, chi.URLParam(r, "id"), id.UserID, chi.URLParam(r, "userId")); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// JoinChannel handles POST /channels/{id}/join.
func (h *Handler) JoinChannel(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	member, err := h.channels.Join(r.Context(), id.AppID, chi.URLParam(r, "id"), id.UserID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, member)
}

// LeaveChannel handles POST /channels/{id}/leave.
func (h *Handler) LeaveChannel(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	if err := h.channels.Leave(r.Context(), id.AppID, chi.URLParam(r, "id"), id.UserID); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetHidden handles PUT /channels/{id}/hidden.
func (h *Handler) SetHidden(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	var req hiddenRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	member, err := h.channels.SetHidden(r.Context(), id.AppID, chi.URLParam(r, "id"), id.UserID, req.Hidden)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, member)
}

// channelAction is a moderation operation that returns the updated channel.
type channelAction func(ctx context.Context, appID, channelID, actorID string) (*models.Channel, error)

func (h *Handler) moderate(w http.ResponseWriter, r *http.Request, action channelAction) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	ch, err := action(r.Context(), id.AppID, chi.URLParam(r, "id"), id.UserID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, ch)
}

// FreezeChannel handles POST /channels/{id}/freeze.
func (h *Handler) FreezeChannel(w http.ResponseWriter, r *http.Request) {
	h.moderate(w, r, h.channels.Freeze)
}

// UnfreezeChannel handles DELETE /channels/{id}/freeze.
func (h *Handler) UnfreezeChannel(w http.ResponseWriter, r *http.Request) {
	h.moderate(w, r, h.channels.Unfreeze)
}

// TruncateChannel handles POST /channels/{id}/truncate.
func (h *Handler) TruncateChannel(w http.ResponseWriter, r *http.Request) {
	h.moderate(w, r, h.channels.Truncate)
}

// SetSlowMode handles PUT /channels/{id}/slow-mode. Zero disables.
func (h *Handler) SetSlowMode(w http.ResponseWriter, r *http.Request) {
	var req slowModeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	h.moderate(w, r, func(ctx context.Context, appID, channelID, actorID string) (*models.Channel, error) {
		return h.channels.SetSlowMode(ctx, appID, channelID, actorID, req.Seconds)
	})
}

// BanMember handles POST /channels/{id}/bans.
func (h *Handler) BanMember(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	var req banRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	member, err := h.channels.Ban(r.Context(), channel.BanParams{
		AppID:     id.AppID,
		ChannelID: chi.URLParam(r, "id"),
		ActorID:   id.UserID,
		TargetID:  req.UserID,
		Shadow:    req.Shadow,
		ExpiresAt: req.ExpiresAt,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, member)
}

// UnbanMember handles DELETE /channels/{id}/bans/{userId}.
func (h *Handler) UnbanMember(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	member, err := h.channels.Unban(r.Context(), id.AppID, chi.URLParam(r, "id"), id.UserID, chi.URLParam(r, "userId"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, member)
}
