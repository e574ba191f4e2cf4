// Switchboard - Multi-Tenant Realtime Chat Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/switchboard

package message

import (
	"context"
	"errors"
	"time"

	"github.com/tomtom215/switchboard/internal/authz"
	"github.com/tomtom215/switchboard/internal/models"
	"github.com/tomtom215/switchboard/internal/scheduler"
	"github.com/tomtom215/switchboard/internal/store"
)

type scheduledPayload struct {
	AppID     string `json:"appId"`
	MessageID string `json:"messageId"`
}

func scheduledTaskID(messageID string) string {
	return "send:" + messageID
}

// ScheduleSend stores a pending message to be sent at sendAt. Membership,
// bans and the frozen flag are checked now and again when the task fires;
// slow mode is only applied at fire time.
func (p *Pipeline) ScheduleSend(ctx context.Context, sp SendParams, sendAt time.Time) (*models.Message, error) {
	if p.tasks == nil {
		return nil, models.StorageUnavailable(errors.New("scheduler not configured"))
	}
	if err := sp.validate(); err != nil {
		return nil, err
	}
	now := p.now()
	if !sendAt.After(now) || sendAt.Sub(now) > MaxScheduleAhead {
		return nil, models.Validation("sendAt must be in the future and at most 30 days ahead", nil)
	}

	ch, member, err := p.channels.Access(ctx, sp.AppID, sp.ChannelID, sp.UserID)
	if err != nil {
		return nil, err
	}
	if member == nil || !p.authz.Can(member.Role, authz.ActionSend) {
		return nil, models.PermissionDenied(string(authz.ActionSend))
	}
	if member.Banned(now) {
		return nil, models.Banned(ch.ID)
	}
	if ch.IsFrozen {
		return nil, models.ChannelFrozen(ch.ID)
	}

	msg := newMessage(&sp, now)
	msg.Status = models.StatusPending
	at := sendAt.UTC()
	msg.ScheduledAt = &at
	if err := p.store.InsertMessage(ctx, msg); err != nil {
		return nil, store.Translate(err, "message", msg.ID)
	}

	task, err := scheduler.NewTask(scheduledTaskID(msg.ID), scheduler.KindScheduledSend, at, scheduledPayload{AppID: sp.AppID, MessageID: msg.ID})
	if err == nil {
		err = p.tasks.Schedule(ctx, task)
	}
	if err != nil {
		msg.Status = models.StatusFailed
		if uerr := p.store.UpdateMessage(ctx, msg); uerr != nil {
			p.logger.Warn().Err(uerr).Str("message_id", msg.ID).Msg("Failed to mark scheduled message failed")
		}
		return nil, models.StorageUnavailable(err)
	}

	p.logger.Info().
		Str("channel_id", ch.ID).
		Str("message_id", msg.ID).
		Time("send_at", at).
		Msg("Message scheduled")
	return msg, nil
}

// HandleScheduledSend is the scheduler handler for scheduled sends. A message
// that is missing or no longer pending is skipped. A message that fails the
// send checks at fire time is marked failed. A storage error is returned so
// the task is retried after its lease.
func (p *Pipeline) HandleScheduledSend(ctx context.Context, task *scheduler.Task) error {
	var payload scheduledPayload
	if err := task.Decode(&payload); err != nil {
		p.logger.Error().Err(err).Str("task_id", task.ID).Msg("Dropping malformed scheduled send")
		return nil
	}

	msg, err := p.store.GetMessage(ctx, payload.MessageID)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if msg.Status != models.StatusPending {
		return nil
	}

	unlock := p.locks.Lock(msg.ChannelID)
	defer unlock()

	// Re-read under the lock; a concurrent firing may have won.
	if msg, err = p.store.GetMessage(ctx, payload.MessageID); err != nil {
		return ignoreNotFound(err)
	}
	if msg.Status != models.StatusPending {
		return nil
	}

	sp := SendParams{
		AppID:           payload.AppID,
		ChannelID:       msg.ChannelID,
		UserID:          msg.UserID,
		ParentMessageID: msg.ParentMessageID,
		QuotedMessageID: msg.QuotedMessageID,
	}
	now := p.now()
	_, member, err := p.admit(ctx, &sp, now)
	if err != nil {
		if models.KindOf(err) == models.KindStorageUnavailable {
			return err
		}
		p.logger.Warn().Err(err).Str("message_id", msg.ID).Msg("Scheduled message rejected at send time")
		msg.Status = models.StatusFailed
		msg.UpdatedAt = now
		return ignoreNotFound(p.store.UpdateMessage(ctx, msg))
	}

	msg.Status = models.StatusSent
	msg.Shadowed = member.ShadowBanned(now)
	msg.CreatedAt = now
	msg.UpdatedAt = now
	if err := p.store.UpdateMessage(ctx, msg); err != nil {
		return err
	}
	p.commitSent(ctx, payload.AppID, msg)
	return nil
}

func ignoreNotFound(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	return err
}
