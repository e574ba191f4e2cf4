// Switchboard - Multi-Tenant Realtime Chat Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/switchboard

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/tomtom215/switchboard/internal/auth"
	"github.com/tomtom215/switchboard/internal/channel"
	"github.com/tomtom215/switchboard/internal/message"
	"github.com/tomtom215/switchboard/internal/models"
	"github.com/tomtom215/switchboard/internal/webhook"
)

// ChannelService is the subset of the channel manager used by the API.
type ChannelService interface {
	Create(ctx context.Context, p channel.CreateParams) (*models.Channel, bool, error)
	Get(ctx context.Context, appID, channelID, userID string) (*models.Channel, error)
	Delete(ctx context.Context, appID, channelID, actorID string) error
	ListMembers(ctx context.Context, appID, channelID, userID string) ([]*models.ChannelMember, error)
	AddMembers(ctx context.Context, appID, channelID, actorID string, userIDs []string, role models.Role) ([]*models.ChannelMember, error)
	RemoveMember(ctx context.Context, appID, channelID, actorID, targetID string) error
	UpdateMemberRole(ctx context.Context, appID, channelID, actorID, targetID string, role models.Role) (*models.ChannelMember, error)
	Join(ctx context.Context, appID, channelID, userID string) (*models.ChannelMember, error)
	Leave(ctx context.Context, appID, channelID, userID string) error
	SetHidden(ctx context.Context, appID, channelID, userID string, hidden bool) (*models.ChannelMember, error)
	Freeze(ctx context.Context, appID, channelID, actorID string) (*models.Channel, error)
	Unfreeze(ctx context.Context, appID, channelID, actorID string) (*models.Channel, error)
	Truncate(ctx context.Context, appID, channelID, actorID string) (*models.Channel, error)
	SetSlowMode(ctx context.Context, appID, channelID, actorID string, seconds int) (*models.Channel, error)
	Ban(ctx context.Context, p channel.BanParams) (*models.ChannelMember, error)
	Unban(ctx context.Context, appID, channelID, actorID, targetID string) (*models.ChannelMember, error)
}

// MessageService is the subset of the message pipeline used by the API.
type MessageService interface {
	Send(ctx context.Context, sp message.SendParams) (*models.Message, error)
	Reply(ctx context.Context, parentID string, sp message.SendParams) (*models.Message, error)
	ScheduleSend(ctx context.Context, sp message.SendParams, sendAt time.Time) (*models.Message, error)
	Get(ctx context.Context, appID, messageID, userID string) (*models.Message, error)
	Edit(ctx context.Context, appID, messageID, userID, text string, metadata models.Metadata) (*models.Message, error)
	Delete(ctx context.Context, appID, messageID, actorID string, hard bool) (*models.Message, error)
	History(ctx context.Context, hp message.HistoryParams) (*message.Page, error)
	Replies(ctx context.Context, rp message.RepliesParams) (*message.Page, error)
	React(ctx context.Context, appID, messageID, userID, emoji string) (*models.Reaction, error)
	Unreact(ctx context.Context, appID, messageID, userID, emoji string) error
	ListReactions(ctx context.Context, appID, messageID, userID string) ([]*models.Reaction, error)
	Pin(ctx context.Context, appID, messageID, actorID string) (*models.Message, error)
	Unpin(ctx context.Context, appID, messageID, actorID string) (*models.Message, error)
	MarkRead(ctx context.Context, appID, channelID, userID string) (*message.ReadState, error)
	UnreadCount(ctx context.Context, appID, channelID, userID string) (int, error)
}

// WebhookService is the subset of the webhook dispatcher used by the API.
type WebhookService interface {
	Subscribe(ctx context.Context, p webhook.SubscribeParams) (*models.WebhookSubscription, error)
	Unsubscribe(ctx context.Context, appID, id string) error
	List(ctx context.Context, appID string) ([]*models.WebhookSubscription, error)
	DeliveryLogs(ctx context.Context, appID, id string, limit int) ([]*models.DeliveryLog, error)
}

// Pinger reports storage reachability for the readiness probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler contains dependencies for API handlers.
//
// Handler methods are split across files:
//   - handlers_channels.go: channel lifecycle, membership and moderation
//   - handlers_messages.go: send, history, threads, reactions, pins, reads
//   - handlers_webhooks.go: subscriptions and delivery logs
//   - handlers_health.go: liveness and readiness probes
type Handler struct {
	channels  ChannelService
	messages  MessageService
	webhooks  WebhookService
	db        Pinger
	startTime time.Time
}

// NewHandler creates an API handler.
func NewHandler(channels ChannelService, messages MessageService, webhooks WebhookService, db Pinger) *Handler {
	return &Handler{
		channels:  channels,
		messages:  messages,
		webhooks:  webhooks,
		db:        db,
		startTime: time.Now(),
	}
}

// identity returns the caller resolved by the auth middleware. Routes that
// reach a handler without one are a wiring bug, reported as 401.
func identity(w http.ResponseWriter, r *http.Request) (*auth.Identity, bool) {
	id, ok := auth.IdentityFrom(r.Context())
	if !ok {
		respondError(w, r, models.Unauthenticated("missing identity"))
		return nil, false
	}
	return id, true
}
