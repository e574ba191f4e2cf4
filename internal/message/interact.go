// Switchboard - Multi-Tenant Realtime Chat Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/switchboard

package message

import (
	"context"
	"time"

	"github.com/tomtom215/switchboard/internal/authz"
	"github.com/tomtom215/switchboard/internal/models"
	"github.com/tomtom215/switchboard/internal/store"
)

// reactable loads a live message the caller may react to.
func (p *Pipeline) reactable(ctx context.Context, appID, messageID, userID, emoji string) (*models.Message, *models.Channel, *models.ChannelMember, error) {
	if emoji == "" || len(emoji) > MaxEmojiLength {
		return nil, nil, nil, models.Validation("emoji must be 1-64 characters", nil)
	}
	msg, ch, member, err := p.load(ctx, appID, messageID, userID)
	if err != nil {
		return nil, nil, nil, err
	}
	if msg.IsDeleted {
		return nil, nil, nil, models.NotFound("message", messageID)
	}
	if member == nil || !p.authz.Can(member.Role, authz.ActionReact) {
		return nil, nil, nil, models.PermissionDenied(string(authz.ActionReact))
	}
	if member.Banned(p.now()) {
		return nil, nil, nil, models.Banned(ch.ID)
	}
	if ch.IsFrozen {
		return nil, nil, nil, models.ChannelFrozen(ch.ID)
	}
	return msg, ch, member, nil
}

// React adds emoji to a message. Adding the same reaction twice is a no-op
// and publishes nothing the second time.
func (p *Pipeline) React(ctx context.Context, appID, messageID, userID, emoji string) (*models.Reaction, error) {
	_, ch, member, err := p.reactable(ctx, appID, messageID, userID, emoji)
	if err != nil {
		return nil, err
	}

	unlock := p.locks.Lock(ch.ID)
	defer unlock()

	now := p.now()
	r := &models.Reaction{MessageID: messageID, UserID: userID, Emoji: emoji, CreatedAt: now}
	created, err := p.store.UpsertReaction(ctx, r)
	if err != nil {
		return nil, store.Translate(err, "message", messageID)
	}
	if created {
		p.publishReaction(models.EventReactionNew, ch, r, member.ShadowBanned(now))
	}
	return r, nil
}

// Unreact removes emoji from a message. Removing a missing reaction is a
// no-op.
func (p *Pipeline) Unreact(ctx context.Context, appID, messageID, userID, emoji string) error {
	if emoji == "" || len(emoji) > MaxEmojiLength {
		return models.Validation("emoji must be 1-64 characters", nil)
	}
	_, ch, member, err := p.load(ctx, appID, messageID, userID)
	if err != nil {
		return err
	}

	unlock := p.locks.Lock(ch.ID)
	defer unlock()

	removed, err := p.store.DeleteReaction(ctx, messageID, userID, emoji)
	if err != nil {
		return store.Translate(err, "message", messageID)
	}
	if removed {
		r := &models.Reaction{MessageID: messageID, UserID: userID, Emoji: emoji, CreatedAt: p.now()}
		shadow := member != nil && member.ShadowBanned(p.now())
		p.publishReaction(models.EventReactionDeleted, ch, r, shadow)
	}
	return nil
}

func (p *Pipeline) publishReaction(t models.EventType, ch *models.Channel, r *models.Reaction, shadow bool) {
	e := models.NewEvent(t, ch.AppID, ch.ID, r.UserID, p.now())
	e.Reaction = r
	e.Shadow = shadow
	p.events.Publish(e)
}

// ListReactions returns a message's reactions.
func (p *Pipeline) ListReactions(ctx context.Context, appID, messageID, userID string) ([]*models.Reaction, error) {
	if _, _, _, err := p.load(ctx, appID, messageID, userID); err != nil {
		return nil, err
	}
	rs, err := p.store.ListReactions(ctx, messageID)
	if err != nil {
		return nil, store.Translate(err, "message", messageID)
	}
	if rs == nil {
		rs = []*models.Reaction{}
	}
	return rs, nil
}

// Pin pins a message. At most MaxPinnedPerChannel messages may be pinned in
// one channel; the next pin fails with PinLimitExceeded and existing pins are
// left alone.
func (p *Pipeline) Pin(ctx context.Context, appID, messageID, actorID string) (*models.Message, error) {
	return p.setPinned(ctx, appID, messageID, actorID, true)
}

// Unpin removes a pin. Unpinning an unpinned message is a no-op.
func (p *Pipeline) Unpin(ctx context.Context, appID, messageID, actorID string) (*models.Message, error) {
	return p.setPinned(ctx, appID, messageID, actorID, false)
}

func (p *Pipeline) setPinned(ctx context.Context, appID, messageID, actorID string, pinned bool) (*models.Message, error) {
	msg, ch, member, err := p.load(ctx, appID, messageID, actorID)
	if err != nil {
		return nil, err
	}
	if member == nil || !p.authz.Can(member.Role, authz.ActionPin) {
		return nil, models.PermissionDenied(string(authz.ActionPin))
	}
	if member.Banned(p.now()) {
		return nil, models.Banned(ch.ID)
	}
	if pinned && (msg.IsDeleted || msg.Shadowed) {
		return nil, models.Validation("deleted messages cannot be pinned", map[string]any{"messageId": messageID})
	}

	unlock := p.locks.Lock(ch.ID)
	defer unlock()

	current, err := p.store.GetMessage(ctx, messageID)
	if err != nil {
		return nil, store.Translate(err, "message", messageID)
	}
	if current.IsPinned == pinned {
		return current, nil
	}

	var updated *models.Message
	eventType := models.EventMessagePinned
	if pinned {
		updated, err = p.store.PinMessage(ctx, messageID, actorID, p.now(), models.MaxPinnedPerChannel)
	} else {
		updated, err = p.store.UnpinMessage(ctx, messageID)
		eventType = models.EventMessageUnpinned
	}
	if err != nil {
		return nil, store.Translate(err, "message", ch.ID)
	}
	p.publish(eventType, appID, updated, actorID)
	return updated, nil
}

// ReadState is the caller's read position after MarkRead.
type ReadState struct {
	ChannelID   string    `json:"channelId"`
	LastReadAt  time.Time `json:"lastReadAt"`
	UnreadCount int       `json:"unreadCount"`
}

// MarkRead sets the caller's read position to now and records a receipt for
// the newest visible message.
func (p *Pipeline) MarkRead(ctx context.Context, appID, channelID, userID string) (*ReadState, error) {
	unlock := p.locks.Lock(channelID)
	defer unlock()

	ch, member, err := p.channels.Access(ctx, appID, channelID, userID)
	if err != nil {
		return nil, err
	}
	if member == nil {
		return nil, models.NotFound("member", userID)
	}

	now := p.now()
	member.LastReadAt = &now
	if err := p.store.UpdateMember(ctx, member); err != nil {
		return nil, store.Translate(err, "member", userID)
	}

	newest, _, err := p.store.ListMessages(ctx, store.HistoryQuery{
		ChannelID: ch.ID,
		Limit:     1,
		Since:     ch.TruncatedAt,
		ViewerID:  userID,
	})
	if err != nil {
		p.logger.Warn().Err(err).Str("channel_id", ch.ID).Msg("Failed to load newest message for read receipt")
	} else if len(newest) == 1 {
		receipt := &models.ReadReceipt{MessageID: newest[0].ID, UserID: userID, ReadAt: now}
		if err := p.store.UpsertReadReceipt(ctx, receipt); err != nil {
			p.logger.Warn().Err(err).Str("channel_id", ch.ID).Msg("Failed to store read receipt")
		}
	}

	e := models.NewEvent(models.EventMessageRead, ch.AppID, ch.ID, userID, now)
	e.LastReadAt = &now
	e.Member = member
	e.Shadow = member.ShadowBanned(now)
	p.events.Publish(e)

	return &ReadState{ChannelID: ch.ID, LastReadAt: now, UnreadCount: 0}, nil
}
