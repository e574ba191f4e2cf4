// Switchboard - Multi-Tenant Realtime Chat Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/switchboard

package postgres

import (
	"time"

	"github.com/uptrace/bun"

	"github.com/tomtom215/switchboard/internal/models"
)

// A channel represents a channel row. MemberKey is NULL for non-distinct
// channels so the (app_id, member_key) unique index only constrains
// distinct ones.
type channel struct {
	bun.BaseModel `bun:"table:channels,alias:ch"`

	ID              string          `bun:",pk,type:uuid"`
	AppID           string          `bun:",notnull"`
	Type            string          `bun:",notnull"`
	Name            string          `bun:",nullzero"`
	IsDistinct      bool            `bun:",notnull,default:false"`
	IsFrozen        bool            `bun:",notnull,default:false"`
	SlowModeSeconds int             `bun:",notnull,default:0"`
	TruncatedAt     *time.Time      `bun:",nullzero"`
	CreatedBy       string          `bun:",notnull"`
	Metadata        models.Metadata `bun:"type:jsonb,nullzero"`
	MemberKey       string          `bun:",nullzero"`
	CreatedAt       time.Time       `bun:",notnull"`
	UpdatedAt       time.Time       `bun:",notnull"`
}

type member struct {
	bun.BaseModel `bun:"table:channel_members,alias:cm"`

	ChannelID      string     `bun:",pk,type:uuid"`
	UserID         string     `bun:",pk"`
	Role           string     `bun:",notnull"`
	JoinedAt       time.Time  `bun:",notnull"`
	LastReadAt     *time.Time `bun:",nullzero"`
	IsBanned       bool       `bun:",notnull,default:false"`
	IsShadowBanned bool       `bun:",notnull,default:false"`
	BanExpiresAt   *time.Time `bun:",nullzero"`
	IsHidden       bool       `bun:",notnull,default:false"`
}

type message struct {
	bun.BaseModel `bun:"table:messages,alias:m"`

	ID                     string              `bun:",pk,type:uuid"`
	ChannelID              string              `bun:",notnull,type:uuid"`
	UserID                 string              `bun:",notnull"`
	ParentMessageID        string              `bun:",nullzero,type:uuid"`
	QuotedMessageID        string              `bun:",nullzero,type:uuid"`
	Text                   string              `bun:"message_text,nullzero"`
	Type                   string              `bun:",notnull"`
	Status                 string              `bun:",notnull"`
	IsSilent               bool                `bun:",notnull,default:false"`
	IsPinned               bool                `bun:",notnull,default:false"`
	PinnedAt               *time.Time          `bun:",nullzero"`
	PinnedBy               string              `bun:",nullzero"`
	ShowInChannel          bool                `bun:",notnull,default:false"`
	Mentions               []string            `bun:",array"`
	Attachments            []models.Attachment `bun:"type:jsonb,nullzero"`
	Metadata               models.Metadata     `bun:"type:jsonb,nullzero"`
	IsDeleted              bool                `bun:",notnull,default:false"`
	Shadowed               bool                `bun:",notnull,default:false"`
	ReplyCount             int                 `bun:",notnull,default:0"`
	ThreadParticipantCount int                 `bun:",notnull,default:0"`
	ThreadLastMessageAt    *time.Time          `bun:",nullzero"`
	ScheduledAt            *time.Time          `bun:",nullzero"`
	CreatedAt              time.Time           `bun:",notnull"`
	UpdatedAt              time.Time           `bun:",notnull"`
}

type reaction struct {
	bun.BaseModel `bun:"table:reactions,alias:r"`

	MessageID string    `bun:",pk,type:uuid"`
	UserID    string    `bun:",pk"`
	Emoji     string    `bun:",pk"`
	CreatedAt time.Time `bun:",notnull"`
}

type readReceipt struct {
	bun.BaseModel `bun:"table:read_receipts,alias:rr"`

	MessageID string    `bun:",pk,type:uuid"`
	UserID    string    `bun:",pk"`
	ReadAt    time.Time `bun:",notnull"`
}

type webhook struct {
	bun.BaseModel `bun:"table:webhook_subscriptions,alias:w"`

	ID         string    `bun:",pk,type:uuid"`
	AppID      string    `bun:",notnull"`
	URL        string    `bun:",notnull"`
	Secret     string    `bun:",notnull"`
	EventTypes []string  `bun:",array"`
	IsActive   bool      `bun:",notnull,default:true"`
	RetryCount int       `bun:",notnull"`
	TimeoutMs  int       `bun:",notnull"`
	CreatedAt  time.Time `bun:",notnull"`
}

type deliveryLog struct {
	bun.BaseModel `bun:"table:webhook_delivery_logs,alias:dl"`

	ID             string    `bun:",pk,type:uuid"`
	WebhookID      string    `bun:",notnull,type:uuid"`
	EventID        string    `bun:",notnull"`
	EventType      string    `bun:",notnull"`
	Attempt        int       `bun:",notnull"`
	ResponseStatus int       `bun:",nullzero"`
	Error          string    `bun:",nullzero"`
	DurationMs     int64     `bun:",notnull"`
	Final          bool      `bun:",notnull"`
	DeliveredAt    time.Time `bun:",notnull"`
}

func channelRow(c *models.Channel) *channel {
	return &channel{
		ID:              c.ID,
		AppID:           c.AppID,
		Type:            string(c.Type),
		Name:            c.Name,
		IsDistinct:      c.IsDistinct,
		IsFrozen:        c.IsFrozen,
		SlowModeSeconds: c.SlowModeSeconds,
		TruncatedAt:     c.TruncatedAt,
		CreatedBy:       c.CreatedBy,
		Metadata:        c.Metadata,
		MemberKey:       c.MemberKey,
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       c.UpdatedAt,
	}
}

func (c *channel) model() *models.Channel {
	return &models.Channel{
		ID:              c.ID,
		AppID:           c.AppID,
		Type:            models.ChannelType(c.Type),
		Name:            c.Name,
		IsDistinct:      c.IsDistinct,
		IsFrozen:        c.IsFrozen,
		SlowModeSeconds: c.SlowModeSeconds,
		TruncatedAt:     c.TruncatedAt,
		CreatedBy:       c.CreatedBy,
		Metadata:        c.Metadata,
		MemberKey:       c.MemberKey,
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       c.UpdatedAt,
	}
}

func memberRow(m *models.ChannelMember) *member {
	return &member{
		ChannelID:      m.ChannelID,
		UserID:         m.UserID,
		Role:           string(m.Role),
		JoinedAt:       m.JoinedAt,
		LastReadAt:     m.LastReadAt,
		IsBanned:       m.IsBanned,
		IsShadowBanned: m.IsShadowBanned,
		BanExpiresAt:   m.BanExpiresAt,
		IsHidden:       m.IsHidden,
	}
}

func (m *member) model() *models.ChannelMember {
	return &models.ChannelMember{
		ChannelID:      m.ChannelID,
		UserID:         m.UserID,
		Role:           models.Role(m.Role),
		JoinedAt:       m.JoinedAt,
		LastReadAt:     m.LastReadAt,
		IsBanned:       m.IsBanned,
		IsShadowBanned: m.IsShadowBanned,
		BanExpiresAt:   m.BanExpiresAt,
		IsHidden:       m.IsHidden,
	}
}

func messageRow(m *models.Message) *message {
	return &message{
		ID:                     m.ID,
		ChannelID:              m.ChannelID,
		UserID:                 m.UserID,
		ParentMessageID:        m.ParentMessageID,
		QuotedMessageID:        m.QuotedMessageID,
		Text:                   m.Text,
		Type:                   string(m.Type),
		Status:                 string(m.Status),
		IsSilent:               m.IsSilent,
		IsPinned:               m.IsPinned,
		PinnedAt:               m.PinnedAt,
		PinnedBy:               m.PinnedBy,
		ShowInChannel:          m.ShowInChannel,
		Mentions:               m.Mentions,
		Attachments:            m.Attachments,
		Metadata:               m.Metadata,
		IsDeleted:              m.IsDeleted,
		Shadowed:               m.Shadowed,
		ReplyCount:             m.ReplyCount,
		ThreadParticipantCount: m.ThreadParticipantCount,
		ThreadLastMessageAt:    m.ThreadLastMessageAt,
		ScheduledAt:            m.ScheduledAt,
		CreatedAt:              m.CreatedAt,
		UpdatedAt:              m.UpdatedAt,
	}
}

func (m *message) model() *models.Message {
	return &models.Message{
		ID:                     m.ID,
		ChannelID:              m.ChannelID,
		UserID:                 m.UserID,
		ParentMessageID:        m.ParentMessageID,
		QuotedMessageID:        m.QuotedMessageID,
		Text:                   m.Text,
		Type:                   models.MessageType(m.Type),
		Status:                 models.MessageStatus(m.Status),
		IsSilent:               m.IsSilent,
		IsPinned:               m.IsPinned,
		PinnedAt:               m.PinnedAt,
		PinnedBy:               m.PinnedBy,
		ShowInChannel:          m.ShowInChannel,
		Mentions:               m.Mentions,
		Attachments:            m.Attachments,
		Metadata:               m.Metadata,
		IsDeleted:              m.IsDeleted,
		Shadowed:               m.Shadowed,
		ReplyCount:             m.ReplyCount,
		ThreadParticipantCount: m.ThreadParticipantCount,
		ThreadLastMessageAt:    m.ThreadLastMessageAt,
		ScheduledAt:            m.ScheduledAt,
		CreatedAt:              m.CreatedAt,
		UpdatedAt:              m.UpdatedAt,
	}
}

func webhookRow(w *models.WebhookSubscription) *webhook {
	return &webhook{
		ID:         w.ID,
		AppID:      w.AppID,
		URL:        w.URL,
		Secret:     w.Secret,
		EventTypes: w.EventTypes,
		IsActive:   w.IsActive,
		RetryCount: w.RetryCount,
		TimeoutMs:  w.TimeoutMs,
		CreatedAt:  w.CreatedAt,
	}
}

func (w *webhook) model() *models.WebhookSubscription {
	return &models.WebhookSubscription{
		ID:         w.ID,
		AppID:      w.AppID,
		URL:        w.URL,
		Secret:     w.Secret,
		EventTypes: w.EventTypes,
		IsActive:   w.IsActive,
		RetryCount: w.RetryCount,
		TimeoutMs:  w.TimeoutMs,
		CreatedAt:  w.CreatedAt,
	}
}

func deliveryLogRow(l *models.DeliveryLog) *deliveryLog {
	return &deliveryLog{
		ID:             l.ID,
		WebhookID:      l.WebhookID,
		EventID:        l.EventID,
		EventType:      string(l.EventType),
		Attempt:        l.Attempt,
		ResponseStatus: l.ResponseStatus,
		Error:          l.Error,
		DurationMs:     l.Duration.Milliseconds(),
		Final:          l.Final,
		DeliveredAt:    l.DeliveredAt,
	}
}

func (l *deliveryLog) model() *models.DeliveryLog {
	return &models.DeliveryLog{
		ID:             l.ID,
		WebhookID:      l.WebhookID,
		EventID:        l.EventID,
		EventType:      models.EventType(l.EventType),
		Attempt:        l.Attempt,
		ResponseStatus: l.ResponseStatus,
		Error:          l.Error,
		Duration:       time.Duration(l.DurationMs) * time.Millisecond,
		Final:          l.Final,
		DeliveredAt:    l.DeliveredAt,
	}
}
