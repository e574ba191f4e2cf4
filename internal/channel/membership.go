// Switchboard - Multi-Tenant Realtime Chat Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/switchboard

package channel

import (
	"context"

	"github.com/tomtom215/switchboard/internal/authz"
	"github.com/tomtom215/switchboard/internal/models"
	"github.com/tomtom215/switchboard/internal/store"
)

// AddMembers adds users to a channel with role (member when empty).
// Users already present are skipped; the added rows are returned.
// Granting admin requires the updateRole action; owner cannot be granted here.
func (m *Manager) AddMembers(ctx context.Context, appID, channelID, actorID string, userIDs []string, role models.Role) ([]*models.ChannelMember, error) {
	if role == "" {
		role = models.RoleMember
	}
	if role == models.RoleOwner || !role.Valid() {
		return nil, models.Validation("role must be member or admin", map[string]any{"role": role})
	}
	if len(userIDs) == 0 || len(userIDs) > MaxMembersPerRequest {
		return nil, models.Validation("between 1 and 100 user ids are required", nil)
	}
	if err := validateUserIDs(userIDs); err != nil {
		return nil, err
	}

	unlock := m.locks.Lock(channelID)
	defer unlock()

	ch, actor, err := m.require(ctx, appID, channelID, actorID, authz.ActionAddMembers)
	if err != nil {
		return nil, err
	}
	if role == models.RoleAdmin && !m.authz.Can(actor.Role, authz.ActionUpdateRole) {
		return nil, models.PermissionDenied(string(authz.ActionUpdateRole))
	}
	if ch.IsFrozen {
		return nil, models.ChannelFrozen(channelID)
	}
	return m.addLocked(ctx, ch, actorID, models.NormalizeMembers("", userIDs), role)
}

// Join adds userID to a public channel as a member. Joining twice is a no-op.
func (m *Manager) Join(ctx context.Context, appID, channelID, userID string) (*models.ChannelMember, error) {
	unlock := m.locks.Lock(channelID)
	defer unlock()

	ch, member, err := m.Access(ctx, appID, channelID, userID)
	if err != nil {
		return nil, err
	}
	if member != nil {
		return member, nil
	}
	if ch.IsFrozen {
		return nil, models.ChannelFrozen(channelID)
	}
	added, err := m.addLocked(ctx, ch, userID, []string{userID}, models.RoleMember)
	if err != nil {
		return nil, err
	}
	if len(added) == 0 {
		member, err := m.store.GetMember(ctx, channelID, userID)
		return member, store.Translate(err, "member", userID)
	}
	return added[0], nil
}

func (m *Manager) addLocked(ctx context.Context, ch *models.Channel, actorID string, userIDs []string, role models.Role) ([]*models.ChannelMember, error) {
	now := m.now()
	rows := make([]*models.ChannelMember, len(userIDs))
	for i, id := range userIDs {
		rows[i] = &models.ChannelMember{ChannelID: ch.ID, UserID: id, Role: role, JoinedAt: now}
	}

	added, err := m.store.AddMembers(ctx, ch.ID, rows)
	if err != nil {
		return nil, store.Translate(err, "channel", ch.ID)
	}
	for _, member := range added {
		m.publishMember(models.EventMemberAdded, ch, actorID, member)
	}
	if len(added) > 0 {
		m.logger.Info().Str("channel_id", ch.ID).Int("added", len(added)).Msg("Members added")
	}
	return added, nil
}

// RemoveMember removes targetID from the channel. Removing oneself is Leave.
// Admins may remove members; only owners may remove admins or owners.
func (m *Manager) RemoveMember(ctx context.Context, appID, channelID, actorID, targetID string) error {
	if actorID == targetID {
		return m.Leave(ctx, appID, channelID, actorID)
	}

	unlock := m.locks.Lock(channelID)
	defer unlock()

	ch, actor, err := m.require(ctx, appID, channelID, actorID, authz.ActionRemoveMember)
	if err != nil {
		return err
	}
	target, err := m.store.GetMember(ctx, channelID, targetID)
	if err != nil {
		return store.Translate(err, "member", targetID)
	}
	if target.Role.IsModerator() && !m.authz.Can(actor.Role, authz.ActionUpdateRole) {
		return models.PermissionDenied(string(authz.ActionRemoveMember))
	}
	return m.removeLocked(ctx, ch, actorID, target)
}

// Leave removes userID from the channel. The only owner cannot leave, and
// neither can a member whose ban is still in force.
func (m *Manager) Leave(ctx context.Context, appID, channelID, userID string) error {
	unlock := m.locks.Lock(channelID)
	defer unlock()

	ch, member, err := m.Access(ctx, appID, channelID, userID)
	if err != nil {
		return err
	}
	if member == nil {
		return models.NotFound("member", userID)
	}
	if now := m.now(); member.Banned(now) || member.ShadowBanned(now) {
		return models.Banned(channelID)
	}
	if member.Role == models.RoleOwner {
		last, err := m.isLastOwner(ctx, channelID, userID)
		if err != nil {
			return err
		}
		if last {
			return models.LastOwnerConstraint(channelID)
		}
	}
	return m.removeLocked(ctx, ch, userID, member)
}

func (m *Manager) removeLocked(ctx context.Context, ch *models.Channel, actorID string, target *models.ChannelMember) error {
	if err := m.store.RemoveMember(ctx, ch.ID, target.UserID); err != nil {
		return store.Translate(err, "member", target.UserID)
	}
	if m.tasks != nil {
		if err := m.tasks.Cancel(ctx, banTaskID(ch.ID, target.UserID)); err != nil {
			m.logger.Warn().Err(err).Str("channel_id", ch.ID).Msg("Failed to cancel ban expiry")
		}
	}
	m.publishMember(models.EventMemberRemoved, ch, actorID, target)
	m.logger.Info().Str("channel_id", ch.ID).Str("user_id", target.UserID).Msg("Member removed")
	return nil
}

// isLastOwner reports whether userID is the channel's only owner.
func (m *Manager) isLastOwner(ctx context.Context, channelID, userID string) (bool, error) {
	members, err := m.store.ListMembers(ctx, channelID)
	if err != nil {
		return false, store.Translate(err, "channel", channelID)
	}
	for _, other := range members {
		if other.UserID != userID && other.Role == models.RoleOwner {
			return false, nil
		}
	}
	return true, nil
}

// UpdateMemberRole changes targetID's role. Owner only. Demoting the last
// owner fails with LastOwnerConstraint.
func (m *Manager) UpdateMemberRole(ctx context.Context, appID, channelID, actorID, targetID string, role models.Role) (*models.ChannelMember, error) {
	if !role.Valid() {
		return nil, models.Validation("unknown role", map[string]any{"role": role})
	}

	unlock := m.locks.Lock(channelID)
	defer unlock()

	ch, _, err := m.require(ctx, appID, channelID, actorID, authz.ActionUpdateRole)
	if err != nil {
		return nil, err
	}
	target, err := m.store.GetMember(ctx, channelID, targetID)
	if err != nil {
		return nil, store.Translate(err, "member", targetID)
	}
	if target.Role == role {
		return target, nil
	}
	if target.Role == models.RoleOwner {
		last, err := m.isLastOwner(ctx, channelID, targetID)
		if err != nil {
			return nil, err
		}
		if last {
			return nil, models.LastOwnerConstraint(channelID)
		}
	}

	target.Role = role
	if err := m.store.UpdateMember(ctx, target); err != nil {
		return nil, store.Translate(err, "member", targetID)
	}
	m.publishMember(models.EventMemberUpdated, ch, actorID, target)
	return target, nil
}

// SetHidden hides or shows the channel in userID's own channel list. The
// change is announced only to userID's connections.
func (m *Manager) SetHidden(ctx context.Context, appID, channelID, userID string, hidden bool) (*models.ChannelMember, error) {
	unlock := m.locks.Lock(channelID)
	defer unlock()

	ch, member, err := m.Access(ctx, appID, channelID, userID)
	if err != nil {
		return nil, err
	}
	if member == nil {
		return nil, models.NotFound("member", userID)
	}
	if member.IsHidden == hidden {
		return member, nil
	}
	member.IsHidden = hidden
	if err := m.store.UpdateMember(ctx, member); err != nil {
		return nil, store.Translate(err, "member", userID)
	}

	e := models.NewEvent(models.EventMemberUpdated, ch.AppID, ch.ID, userID, m.now())
	e.Member = member
	e.Shadow = true
	m.events.Publish(e)
	return member, nil
}
