// Switchboard - Multi-Tenant Realtime Chat Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/switchboard

package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventType names a domain or transient event.
type EventType string

// Persisted-state events. These are broadcast to channel subscribers and
// offered to webhook subscriptions.
const (
	EventMessageNew       EventType = "message.new"
	EventMessageUpdated   EventType = "message.updated"
	EventMessageDeleted   EventType = "message.deleted"
	EventMessagePinned    EventType = "message.pinned"
	EventMessageUnpinned  EventType = "message.unpinned"
	EventMessageRead      EventType = "message.read"
	EventReactionNew      EventType = "reaction.new"
	EventReactionDeleted  EventType = "reaction.deleted"
	EventMemberAdded      EventType = "member.added"
	EventMemberRemoved    EventType = "member.removed"
	EventMemberUpdated    EventType = "member.updated"
	EventChannelCreated   EventType = "channel.created"
	EventChannelUpdated   EventType = "channel.updated"
	EventChannelTruncated EventType = "channel.truncated"
	EventChannelDeleted   EventType = "channel.deleted"
)

// Transient events. They never touch storage and are never sent to webhooks.
const (
	EventTypingStarted   EventType = "typing.started"
	EventTypingStopped   EventType = "typing.stopped"
	EventPresenceChanged EventType = "user.presence.changed"
)

// WebhookEventTypes lists the event types a subscription may select.
var WebhookEventTypes = []EventType{
	EventMessageNew, EventMessageUpdated, EventMessageDeleted,
	EventMessagePinned, EventMessageUnpinned, EventMessageRead,
	EventReactionNew, EventReactionDeleted,
	EventMemberAdded, EventMemberRemoved, EventMemberUpdated,
	EventChannelCreated, EventChannelUpdated, EventChannelTruncated, EventChannelDeleted,
}

// IsTransient reports whether t is a typing or presence event.
func (t EventType) IsTransient() bool {
	switch t {
	case EventTypingStarted, EventTypingStopped, EventPresenceChanged:
		return true
	}
	return false
}

// IsWebhookEvent reports whether t may be selected by a webhook subscription.
func (t EventType) IsWebhookEvent() bool {
	for _, w := range WebhookEventTypes {
		if w == t {
			return true
		}
	}
	return false
}

// PresenceStatus is a user's aggregate connection state.
type PresenceStatus string

// Presence statuses.
const (
	PresenceOnline  PresenceStatus = "online"
	PresenceOffline PresenceStatus = "offline"
)

// Event is the tagged union carried from the services to the realtime
// gateway and the webhook dispatcher. Type selects which payload field is set;
// Extra carries opaque extension fields and is validated like Metadata.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	AppID     string    `json:"appId"`
	ChannelID string    `json:"channelId,omitempty"`
	UserID    string    `json:"userId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`

	Message    *Message       `json:"message,omitempty"`
	Channel    *Channel       `json:"channel,omitempty"`
	Member     *ChannelMember `json:"member,omitempty"`
	Reaction   *Reaction      `json:"reaction,omitempty"`
	Status     PresenceStatus `json:"status,omitempty"`
	LastReadAt *time.Time     `json:"lastReadAt,omitempty"`
	Extra      Metadata       `json:"extra,omitempty"`

	// Shadow restricts realtime fan-out to the actor's own connections.
	Shadow bool `json:"shadowBanned,omitempty"`
}

// NewEvent stamps a new event with a time-ordered id.
func NewEvent(t EventType, appID, channelID, userID string, now time.Time) *Event {
	return &Event{
		ID:        newEventID(),
		Type:      t,
		AppID:     appID,
		ChannelID: channelID,
		UserID:    userID,
		CreatedAt: now,
	}
}

func newEventID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// Validate checks that the payload field required by Type is present.
func (e *Event) Validate() error {
	if e.ID == "" || e.AppID == "" {
		return fmt.Errorf("event %q: missing id or app id", e.Type)
	}
	var ok bool
	switch e.Type {
	case EventMessageNew, EventMessageUpdated, EventMessageDeleted,
		EventMessagePinned, EventMessageUnpinned:
		ok = e.Message != nil && e.ChannelID != ""
	case EventMessageRead:
		ok = e.LastReadAt != nil && e.ChannelID != "" && e.UserID != ""
	case EventReactionNew, EventReactionDeleted:
		ok = e.Reaction != nil && e.ChannelID != ""
	case EventMemberAdded, EventMemberRemoved, EventMemberUpdated:
		ok = e.Member != nil && e.ChannelID != ""
	case EventChannelCreated, EventChannelUpdated, EventChannelTruncated, EventChannelDeleted:
		ok = e.Channel != nil && e.ChannelID != ""
	case EventTypingStarted, EventTypingStopped:
		ok = e.ChannelID != "" && e.UserID != ""
	case EventPresenceChanged:
		ok = e.UserID != "" && (e.Status == PresenceOnline || e.Status == PresenceOffline)
	default:
		return fmt.Errorf("unknown event type %q", e.Type)
	}
	if !ok {
		return fmt.Errorf("event %q: missing required payload", e.Type)
	}
	if e.Extra != nil {
		if err := e.Extra.Validate(); err != nil {
			return err
		}
	}
	return nil
}
