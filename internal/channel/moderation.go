// Switchboard - Multi-Tenant Realtime Chat Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/switchboard

package channel

import (
	"context"
	"errors"
	"time"

	"github.com/tomtom215/switchboard/internal/authz"
	"github.com/tomtom215/switchboard/internal/models"
	"github.com/tomtom215/switchboard/internal/scheduler"
	"github.com/tomtom215/switchboard/internal/store"
)

// updateChannel applies mutate to the channel under its lock after checking
// action, persists it and publishes eventType.
func (m *Manager) updateChannel(ctx context.Context, appID, channelID, actorID string, action authz.Action, eventType models.EventType, mutate func(ch *models.Channel) bool) (*models.Channel, error) {
	unlock := m.locks.Lock(channelID)
	defer unlock()

	ch, _, err := m.require(ctx, appID, channelID, actorID, action)
	if err != nil {
		return nil, err
	}
	if !mutate(ch) {
		return ch, nil
	}
	ch.UpdatedAt = m.now()
	if err := m.store.UpdateChannel(ctx, ch); err != nil {
		return nil, store.Translate(err, "channel", channelID)
	}
	m.publishChannel(eventType, ch, actorID)
	m.logger.Info().Str("channel_id", ch.ID).Str("event", string(eventType)).Str("actor", actorID).Msg("Channel updated")
	return ch, nil
}

// Freeze blocks sends and membership additions.
func (m *Manager) Freeze(ctx context.Context, appID, channelID, actorID string) (*models.Channel, error) {
	return m.setFrozen(ctx, appID, channelID, actorID, true)
}

// Unfreeze reverses Freeze.
func (m *Manager) Unfreeze(ctx context.Context, appID, channelID, actorID string) (*models.Channel, error) {
	return m.setFrozen(ctx, appID, channelID, actorID, false)
}

func (m *Manager) setFrozen(ctx context.Context, appID, channelID, actorID string, frozen bool) (*models.Channel, error) {
	return m.updateChannel(ctx, appID, channelID, actorID, authz.ActionFreeze, models.EventChannelUpdated, func(ch *models.Channel) bool {
		if ch.IsFrozen == frozen {
			return false
		}
		ch.IsFrozen = frozen
		return true
	})
}

// Truncate hides all existing messages from default history without
// deleting them.
func (m *Manager) Truncate(ctx context.Context, appID, channelID, actorID string) (*models.Channel, error) {
	return m.updateChannel(ctx, appID, channelID, actorID, authz.ActionTruncate, models.EventChannelTruncated, func(ch *models.Channel) bool {
		now := m.now()
		ch.TruncatedAt = &now
		return true
	})
}

// SetSlowMode sets the per-user send cooldown; zero disables slow mode.
func (m *Manager) SetSlowMode(ctx context.Context, appID, channelID, actorID string, seconds int) (*models.Channel, error) {
	if seconds < 0 || seconds > MaxSlowModeSeconds {
		return nil, models.Validation("slow mode must be between 0 and 21600 seconds", map[string]any{"seconds": seconds})
	}
	return m.updateChannel(ctx, appID, channelID, actorID, authz.ActionSlowMode, models.EventChannelUpdated, func(ch *models.Channel) bool {
		if ch.SlowModeSeconds == seconds {
			return false
		}
		ch.SlowModeSeconds = seconds
		return true
	})
}

// BanParams describes a ban.
type BanParams struct {
	AppID     string
	ChannelID string
	ActorID   string
	TargetID  string
	Shadow    bool
	ExpiresAt *time.Time
}

type banPayload struct {
	ChannelID string `json:"channelId"`
	UserID    string `json:"userId"`
}

func banTaskID(channelID, userID string) string {
	return "ban:" + channelID + ":" + userID
}

// Ban bans or shadow-bans targetID. Moderators cannot ban themselves, owners,
// or (for admins) other admins. A shadow ban is announced only to the actor
// so the target cannot detect it.
func (m *Manager) Ban(ctx context.Context, p BanParams) (*models.ChannelMember, error) {
	if p.ActorID == p.TargetID {
		return nil, models.Validation("cannot ban yourself", nil)
	}
	now := m.now()
	if p.ExpiresAt != nil && !p.ExpiresAt.After(now) {
		return nil, models.Validation("expiresAt must be in the future", nil)
	}

	unlock := m.locks.Lock(p.ChannelID)
	defer unlock()

	ch, actor, err := m.require(ctx, p.AppID, p.ChannelID, p.ActorID, authz.ActionBan)
	if err != nil {
		return nil, err
	}
	target, err := m.store.GetMember(ctx, p.ChannelID, p.TargetID)
	if err != nil {
		return nil, store.Translate(err, "member", p.TargetID)
	}
	if target.Role == models.RoleOwner || (target.Role == models.RoleAdmin && actor.Role != models.RoleOwner) {
		return nil, models.PermissionDenied(string(authz.ActionBan))
	}

	if p.Shadow {
		target.IsShadowBanned = true
		target.IsBanned = false
	} else {
		target.IsBanned = true
		target.IsShadowBanned = false
	}
	target.BanExpiresAt = p.ExpiresAt
	if err := m.store.UpdateMember(ctx, target); err != nil {
		return nil, store.Translate(err, "member", p.TargetID)
	}

	if err := m.scheduleExpiry(ctx, ch.ID, target); err != nil {
		m.logger.Warn().Err(err).Str("channel_id", ch.ID).Msg("Failed to schedule ban expiry; ban will lapse lazily")
	}
	m.publishBan(ch, p.ActorID, target, p.Shadow)
	m.logger.Info().
		Str("channel_id", ch.ID).
		Str("target", p.TargetID).
		Bool("shadow", p.Shadow).
		Msg("Member banned")
	return target, nil
}

// Unban clears any ban on targetID.
func (m *Manager) Unban(ctx context.Context, appID, channelID, actorID, targetID string) (*models.ChannelMember, error) {
	unlock := m.locks.Lock(channelID)
	defer unlock()

	ch, _, err := m.require(ctx, appID, channelID, actorID, authz.ActionBan)
	if err != nil {
		return nil, err
	}
	target, err := m.store.GetMember(ctx, channelID, targetID)
	if err != nil {
		return nil, store.Translate(err, "member", targetID)
	}
	if !target.IsBanned && !target.IsShadowBanned {
		return target, nil
	}
	return m.liftLocked(ctx, ch, actorID, target)
}

func (m *Manager) liftLocked(ctx context.Context, ch *models.Channel, actorID string, target *models.ChannelMember) (*models.ChannelMember, error) {
	shadow := target.IsShadowBanned
	target.IsBanned = false
	target.IsShadowBanned = false
	target.BanExpiresAt = nil
	if err := m.store.UpdateMember(ctx, target); err != nil {
		return nil, store.Translate(err, "member", target.UserID)
	}
	if m.tasks != nil {
		if err := m.tasks.Cancel(ctx, banTaskID(ch.ID, target.UserID)); err != nil {
			m.logger.Warn().Err(err).Str("channel_id", ch.ID).Msg("Failed to cancel ban expiry")
		}
	}
	m.publishBan(ch, actorID, target, shadow)
	return target, nil
}

func (m *Manager) publishBan(ch *models.Channel, actorID string, target *models.ChannelMember, shadow bool) {
	e := models.NewEvent(models.EventMemberUpdated, ch.AppID, ch.ID, actorID, m.now())
	e.Member = target
	e.Shadow = shadow
	m.events.Publish(e)
}

func (m *Manager) scheduleExpiry(ctx context.Context, channelID string, target *models.ChannelMember) error {
	if m.tasks == nil {
		return nil
	}
	id := banTaskID(channelID, target.UserID)
	if target.BanExpiresAt == nil {
		return m.tasks.Cancel(ctx, id)
	}
	task, err := scheduler.NewTask(id, scheduler.KindBanExpire, *target.BanExpiresAt, banPayload{ChannelID: channelID, UserID: target.UserID})
	if err != nil {
		return err
	}
	return m.tasks.Schedule(ctx, task)
}

// HandleBanExpire is the scheduler handler for ban.expire tasks. It lifts
// the ban if it is still in place and has expired; a ban that was extended
// or removed in the meantime is left alone.
func (m *Manager) HandleBanExpire(ctx context.Context, task *scheduler.Task) error {
	var p banPayload
	if err := task.Decode(&p); err != nil {
		m.logger.Error().Err(err).Str("task_id", task.ID).Msg("Dropping malformed ban.expire task")
		return nil
	}

	unlock := m.locks.Lock(p.ChannelID)
	defer unlock()

	ch, err := m.store.GetChannel(ctx, p.ChannelID)
	if err != nil {
		return ignoreNotFound(err)
	}
	target, err := m.store.GetMember(ctx, p.ChannelID, p.UserID)
	if err != nil {
		return ignoreNotFound(err)
	}
	if target.BanExpiresAt == nil || target.BanExpiresAt.After(m.now()) {
		return nil
	}
	if !target.IsBanned && !target.IsShadowBanned {
		return nil
	}
	if _, err := m.liftLocked(ctx, ch, p.UserID, target); err != nil {
		return err
	}
	m.logger.Info().Str("channel_id", ch.ID).Str("user_id", p.UserID).Msg("Ban expired")
	return nil
}

// ignoreNotFound drops tasks whose channel or member is already gone.
func ignoreNotFound(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	return err
}

// Delete removes the channel with its members, messages, reactions and
// receipts. Owner only.
func (m *Manager) Delete(ctx context.Context, appID, channelID, actorID string) error {
	unlock := m.locks.Lock(channelID)
	defer unlock()

	ch, _, err := m.require(ctx, appID, channelID, actorID, authz.ActionDeleteChannel)
	if err != nil {
		return err
	}
	if err := m.store.DeleteChannel(ctx, channelID); err != nil {
		return store.Translate(err, "channel", channelID)
	}
	m.publishChannel(models.EventChannelDeleted, ch, actorID)
	m.logger.Info().Str("channel_id", channelID).Str("actor", actorID).Msg("Channel deleted")
	return nil
}
