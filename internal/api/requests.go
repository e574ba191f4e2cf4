// Switchboard - Multi-Tenant Realtime Chat Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/switchboard

package api

import (
	"time"

	"github.com/tomtom215/switchboard/internal/message"
	"github.com/tomtom215/switchboard/internal/models"
)

// Request bodies. Tags reject malformed shapes; domain limits (text length,
// slow-mode bounds, membership rules) are enforced by the services.

type createChannelRequest struct {
	Type       string          `json:"type" validate:"omitempty,channel_type"`
	Name       string          `json:"name,omitempty" validate:"max=200"`
	Members    []string        `json:"members" validate:"max=100,dive,required,max=128"`
	IsDistinct bool            `json:"isDistinct,omitempty"`
	Metadata   models.Metadata `json:"metadata,omitempty"`
}

type addMembersRequest struct {
	UserIDs []string `json:"userIds" validate:"required,min=1,max=100,dive,required,max=128"`
	Role    string   `json:"role,omitempty" validate:"omitempty,role"`
}

type updateRoleRequest struct {
	Role string `json:"role" validate:"required,role"`
}

type hiddenRequest struct {
	Hidden bool `json:"hidden"`
}

type slowModeRequest struct {
	Seconds int `json:"seconds" validate:"min=0"`
}

type banRequest struct {
	UserID    string     `json:"userId" validate:"required,max=128"`
	Shadow    bool       `json:"shadow,omitempty"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

type sendMessageRequest struct {
	Text            string              `json:"text,omitempty"`
	Attachments     []models.Attachment `json:"attachments,omitempty" validate:"max=30"`
	Mentions        []string            `json:"mentions,omitempty" validate:"max=100,dive,required"`
	QuotedMessageID string              `json:"quotedMessageId,omitempty"`
	ShowInChannel   bool                `json:"showInChannel,omitempty"`
	Silent          bool                `json:"silent,omitempty"`
	Metadata        models.Metadata     `json:"metadata,omitempty"`
}

func (s *sendMessageRequest) params(appID, channelID, userID string) message.SendParams {
	return message.SendParams{
		AppID:           appID,
		ChannelID:       channelID,
		UserID:          userID,
		Text:            s.Text,
		Attachments:     s.Attachments,
		Mentions:        s.Mentions,
		QuotedMessageID: s.QuotedMessageID,
		ShowInChannel:   s.ShowInChannel,
		Silent:          s.Silent,
		Metadata:        s.Metadata,
	}
}

type scheduleMessageRequest struct {
	sendMessageRequest
	SendAt time.Time `json:"sendAt" validate:"required"`
}

type editMessageRequest struct {
	Text     string          `json:"text" validate:"required"`
	Metadata models.Metadata `json:"metadata,omitempty"`
}

type reactionRequest struct {
	Emoji string `json:"emoji" validate:"required,max=64"`
}

type webhookRequest struct {
	URL        string   `json:"url" validate:"required,http_url"`
	Events     []string `json:"events" validate:"required,min=1,max=32,dive,webhook_event"`
	Secret     string   `json:"secret,omitempty" validate:"omitempty,min=16,max=256"`
	RetryCount *int     `json:"retryCount,omitempty" validate:"omitempty,min=0,max=10"`
	TimeoutMs  int      `json:"timeoutMs,omitempty" validate:"omitempty,min=1,max=30000"`
}

// webhookCreated is the only response that carries the secret.
type webhookCreated struct {
	*models.WebhookSubscription
	Secret string `json:"secret"`
}

type unreadResponse struct {
	ChannelID   string `json:"channelId"`
	UnreadCount int    `json:"unreadCount"`
}
