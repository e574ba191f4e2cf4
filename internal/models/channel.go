// Switchboard - Multi-Tenant Realtime Chat Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/switchboard

package models

import (
	"sort"
	"strings"
	"time"
)

// ChannelType classifies a channel.
type ChannelType string

// Channel types.
const (
	ChannelDirect ChannelType = "direct"
	ChannelGroup  ChannelType = "group"
	ChannelPublic ChannelType = "public"
)

// Valid reports whether t is a known channel type.
func (t ChannelType) Valid() bool {
	switch t {
	case ChannelDirect, ChannelGroup, ChannelPublic:
		return true
	}
	return false
}

// Channel is a conversation container inside an app.
//
// MemberKey is the normalized member set of a distinct channel and backs the
// per-app uniqueness constraint; it is empty for non-distinct channels.
type Channel struct {
	ID              string      `json:"id"`
	AppID           string      `json:"appId"`
	Type            ChannelType `json:"type"`
	Name            string      `json:"name,omitempty"`
	IsDistinct      bool        `json:"isDistinct"`
	IsFrozen        bool        `json:"isFrozen"`
	SlowModeSeconds int         `json:"slowModeSeconds"`
	TruncatedAt     *time.Time  `json:"truncatedAt,omitempty"`
	CreatedBy       string      `json:"createdBy"`
	Metadata        Metadata    `json:"metadata,omitempty"`
	MemberKey       string      `json:"-"`
	CreatedAt       time.Time   `json:"createdAt"`
	UpdatedAt       time.Time   `json:"updatedAt"`
}

// SlowMode returns the configured cooldown as a duration.
func (c *Channel) SlowMode() time.Duration {
	return time.Duration(c.SlowModeSeconds) * time.Second
}

// Visible reports whether a message created at t is past the truncation cutoff.
func (c *Channel) Visible(t time.Time) bool {
	return c.TruncatedAt == nil || t.After(*c.TruncatedAt)
}

// Role is a member's role within a channel.
type Role string

// Channel roles, strongest first.
const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleOwner, RoleAdmin, RoleMember:
		return true
	}
	return false
}

// IsModerator reports whether r is owner or admin.
func (r Role) IsModerator() bool {
	return r == RoleOwner || r == RoleAdmin
}

// ChannelMember is a membership row, unique per (ChannelID, UserID).
type ChannelMember struct {
	ChannelID      string     `json:"channelId"`
	UserID         string     `json:"userId"`
	Role           Role       `json:"role"`
	JoinedAt       time.Time  `json:"joinedAt"`
	LastReadAt     *time.Time `json:"lastReadAt,omitempty"`
	IsBanned       bool       `json:"isBanned"`
	IsShadowBanned bool       `json:"isShadowBanned"`
	BanExpiresAt   *time.Time `json:"banExpiresAt,omitempty"`
	IsHidden       bool       `json:"isHidden"`
}

// banActive reports whether a ban flag is still in force at now.
func (m *ChannelMember) banActive(flag bool, now time.Time) bool {
	if !flag {
		return false
	}
	return m.BanExpiresAt == nil || now.Before(*m.BanExpiresAt)
}

// Banned reports whether a hard ban is in force at now.
func (m *ChannelMember) Banned(now time.Time) bool {
	return m.banActive(m.IsBanned, now)
}

// ShadowBanned reports whether a shadow ban is in force at now.
func (m *ChannelMember) ShadowBanned(now time.Time) bool {
	return m.banActive(m.IsShadowBanned, now)
}

// NormalizeMembers returns the sorted, de-duplicated union of members and
// creator with blanks removed.
func NormalizeMembers(creator string, members []string) []string {
	seen := make(map[string]struct{}, len(members)+1)
	out := make([]string, 0, len(members)+1)
	for _, id := range append([]string{creator}, members...) {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// MemberKey builds the distinct-channel identity for a normalized member set.
// User IDs may not contain the separator, which request validation enforces.
func MemberKey(normalized []string) string {
	return strings.Join(normalized, "\x1f")
}
