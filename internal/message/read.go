// Switchboard - Multi-Tenant Realtime Chat Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/switchboard

package message

import (
	"context"
	"errors"
	"time"

	"github.com/tomtom215/switchboard/internal/models"
	"github.com/tomtom215/switchboard/internal/store"
)

// HistoryParams selects a page of messages. Before and After are message
// ids; at most one may be set.
type HistoryParams struct {
	AppID     string
	ChannelID string
	UserID    string
	Limit     int
	Before    string
	After     string
}

// Page is one page of messages in ascending (createdAt, id) order.
type Page struct {
	Messages []*models.Message `json:"messages"`
	HasMore  bool              `json:"hasMore"`
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultPageSize
	case limit > MaxPageSize:
		return MaxPageSize
	}
	return limit
}

// History returns the channel timeline. Messages before the truncation
// cutoff, soft-deleted messages, thread-only replies and other users'
// shadowed messages are excluded.
func (p *Pipeline) History(ctx context.Context, hp HistoryParams) (*Page, error) {
	if hp.Before != "" && hp.After != "" {
		return nil, models.Validation("before and after are mutually exclusive", nil)
	}
	ch, _, err := p.channels.Access(ctx, hp.AppID, hp.ChannelID, hp.UserID)
	if err != nil {
		return nil, err
	}

	q := store.HistoryQuery{
		ChannelID: ch.ID,
		Limit:     clampLimit(hp.Limit),
		Since:     ch.TruncatedAt,
		ViewerID:  hp.UserID,
	}
	if q.Before, err = p.cursor(ctx, ch.ID, hp.Before); err != nil {
		return nil, err
	}
	if q.After, err = p.cursor(ctx, ch.ID, hp.After); err != nil {
		return nil, err
	}

	msgs, hasMore, err := p.store.ListMessages(ctx, q)
	if err != nil {
		return nil, store.Translate(err, "channel", ch.ID)
	}
	for _, m := range msgs {
		if m.QuotedMessageID != "" {
			m.QuotedMessage = p.resolveQuote(ctx, m, hp.UserID)
		}
		if m.ParentMessageID != "" {
			m.ParentMessage = p.resolveRef(ctx, m.ParentMessageID, m.ChannelID, hp.UserID)
		}
	}
	if msgs == nil {
		msgs = []*models.Message{}
	}
	return &Page{Messages: msgs, HasMore: hasMore}, nil
}

// cursor resolves a message id into a history position in channelID.
func (p *Pipeline) cursor(ctx context.Context, channelID, messageID string) (*models.Cursor, error) {
	if messageID == "" {
		return nil, nil
	}
	m, err := p.store.GetMessage(ctx, messageID)
	if errors.Is(err, store.ErrNotFound) || (err == nil && m.ChannelID != channelID) {
		return nil, models.Validation("unknown cursor message", map[string]any{"messageId": messageID})
	}
	if err != nil {
		return nil, store.Translate(err, "message", messageID)
	}
	c := models.CursorOf(m)
	return &c, nil
}

// resolveQuote renders m's quoted message for viewer.
func (p *Pipeline) resolveQuote(ctx context.Context, m *models.Message, viewer string) *models.Message {
	return p.resolveRef(ctx, m.QuotedMessageID, m.ChannelID, viewer)
}

// resolveRef renders a quoted or parent message for viewer. Deleted, missing
// and hidden targets become tombstones.
func (p *Pipeline) resolveRef(ctx context.Context, id, channelID, viewer string) *models.Message {
	q, err := p.store.GetMessage(ctx, id)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			p.logger.Warn().Err(err).Str("message_id", id).Msg("Failed to resolve message reference")
		}
		return models.Tombstone(id, channelID)
	}
	if !q.VisibleTo(viewer) || q.Status != models.StatusSent {
		return models.Tombstone(q.ID, q.ChannelID)
	}
	if q.IsDeleted {
		return q.AsTombstone()
	}
	q.QuotedMessage = nil
	q.ParentMessage = nil
	return q
}

// threadRoot loads a thread parent for userID. A hard-deleted parent whose
// replies survive resolves to an unavailable tombstone in their channel.
func (p *Pipeline) threadRoot(ctx context.Context, appID, parentID, userID string) (*models.Message, *models.Channel, error) {
	parent, ch, _, err := p.load(ctx, appID, parentID, userID)
	if err == nil {
		return parent, ch, nil
	}
	if models.KindOf(err) != models.KindNotFound {
		return nil, nil, err
	}
	if _, gerr := p.store.GetMessage(ctx, parentID); !errors.Is(gerr, store.ErrNotFound) {
		return nil, nil, err
	}
	channelID, terr := p.store.ThreadChannel(ctx, parentID)
	if errors.Is(terr, store.ErrNotFound) {
		return nil, nil, err
	}
	if terr != nil {
		return nil, nil, store.Translate(terr, "message", parentID)
	}
	ch, _, aerr := p.channels.Access(ctx, appID, channelID, userID)
	if aerr != nil {
		if errors.Is(aerr, models.ErrNotFound) {
			return nil, nil, models.NotFound("message", parentID)
		}
		return nil, nil, aerr
	}
	return models.Tombstone(parentID, ch.ID), ch, nil
}

// Get returns a single message by id. Soft-deleted messages, and
// hard-deleted thread parents with surviving replies, resolve as tombstones
// so threads and quotes can still render them.
func (p *Pipeline) Get(ctx context.Context, appID, messageID, userID string) (*models.Message, error) {
	msg, _, err := p.threadRoot(ctx, appID, messageID, userID)
	if err != nil {
		return nil, err
	}
	if msg.Unavailable {
		return msg, nil
	}
	if msg.IsDeleted {
		return msg.AsTombstone(), nil
	}
	if msg.QuotedMessageID != "" {
		msg.QuotedMessage = p.resolveQuote(ctx, msg, userID)
	}
	if msg.ParentMessageID != "" {
		msg.ParentMessage = p.resolveRef(ctx, msg.ParentMessageID, msg.ChannelID, userID)
	}
	return msg, nil
}

// RepliesParams selects a page of a thread.
type RepliesParams struct {
	AppID    string
	ParentID string
	UserID   string
	Limit    int
	Before   string
	After    string
}

// Replies lists parentID's thread. Deleted replies appear as tombstones. The
// thread stays listable after its parent is hard-deleted.
func (p *Pipeline) Replies(ctx context.Context, rp RepliesParams) (*Page, error) {
	if rp.Before != "" && rp.After != "" {
		return nil, models.Validation("before and after are mutually exclusive", nil)
	}
	parent, ch, err := p.threadRoot(ctx, rp.AppID, rp.ParentID, rp.UserID)
	if err != nil {
		return nil, err
	}

	q := store.HistoryQuery{
		ChannelID:      ch.ID,
		ParentID:       parent.ID,
		Limit:          clampLimit(rp.Limit),
		Since:          ch.TruncatedAt,
		ViewerID:       rp.UserID,
		IncludeDeleted: true,
	}
	if q.Before, err = p.cursor(ctx, ch.ID, rp.Before); err != nil {
		return nil, err
	}
	if q.After, err = p.cursor(ctx, ch.ID, rp.After); err != nil {
		return nil, err
	}

	msgs, hasMore, err := p.store.ListMessages(ctx, q)
	if err != nil {
		return nil, store.Translate(err, "message", parent.ID)
	}
	out := make([]*models.Message, 0, len(msgs))
	for _, m := range msgs {
		if m.IsDeleted {
			out = append(out, m.AsTombstone())
			continue
		}
		if m.QuotedMessageID != "" {
			m.QuotedMessage = p.resolveQuote(ctx, m, rp.UserID)
		}
		out = append(out, m)
	}
	return &Page{Messages: out, HasMore: hasMore}, nil
}

// UnreadCount counts timeline messages by other users newer than the
// caller's last read position and the truncation cutoff.
func (p *Pipeline) UnreadCount(ctx context.Context, appID, channelID, userID string) (int, error) {
	ch, member, err := p.channels.Access(ctx, appID, channelID, userID)
	if err != nil {
		return 0, err
	}
	if member == nil {
		return 0, models.NotFound("member", userID)
	}
	n, err := p.store.CountUnread(ctx, store.UnreadQuery{
		ChannelID: ch.ID,
		UserID:    userID,
		Since:     latest(member.LastReadAt, ch.TruncatedAt),
	})
	if err != nil {
		return 0, store.Translate(err, "channel", ch.ID)
	}
	return n, nil
}

func latest(a, b *time.Time) *time.Time {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	case b.After(*a):
		return b
	}
	return a
}
