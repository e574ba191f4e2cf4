// Switchboard - Multi-Tenant Realtime Chat Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/switchboard

package models

import (
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestNormalizeMembers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		creator string
		members []string
		want    []string
	}{
		{"creator only", "alice", nil, []string{"alice"}},
		{"sorted union", "carol", []string{"bob", "alice"}, []string{"alice", "bob", "carol"}},
		{"dedupes creator", "alice", []string{"bob", "alice", "bob"}, []string{"alice", "bob"}},
		{"drops blanks", "alice", []string{"", "  ", "bob "}, []string{"alice", "bob"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := NormalizeMembers(tt.creator, tt.members)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("NormalizeMembers() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestMemberKeyOrderIndependent(t *testing.T) {
	t.Parallel()

	a := MemberKey(NormalizeMembers("alice", []string{"bob", "carol"}))
	b := MemberKey(NormalizeMembers("carol", []string{"alice", "bob"}))
	if a != b {
		t.Errorf("Expected equal member keys, got %q and %q", a, b)
	}
	if c := MemberKey(NormalizeMembers("alice", []string{"bob"})); c == a {
		t.Error("Expected different member sets to produce different keys")
	}
}

func TestMemberBanExpiry(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	later := now.Add(time.Hour)

	m := &ChannelMember{IsBanned: true, BanExpiresAt: &later}
	if !m.Banned(now) {
		t.Error("Expected ban to be active before expiry")
	}
	if m.Banned(later.Add(time.Second)) {
		t.Error("Expected ban to lapse after expiry")
	}

	shadow := &ChannelMember{IsShadowBanned: true}
	if shadow.Banned(now) {
		t.Error("Expected shadow ban not to count as a hard ban")
	}
	if !shadow.ShadowBanned(now) {
		t.Error("Expected permanent shadow ban to be active")
	}
}

func TestChannelVisible(t *testing.T) {
	t.Parallel()

	cut := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	ch := &Channel{}
	if !ch.Visible(cut.Add(-time.Hour)) {
		t.Error("Expected every message visible without truncation")
	}

	ch.TruncatedAt = &cut
	if ch.Visible(cut.Add(-time.Second)) {
		t.Error("Expected message before truncation to be hidden")
	}
	if ch.Visible(cut) {
		t.Error("Expected message at the truncation instant to be hidden")
	}
	if !ch.Visible(cut.Add(time.Second)) {
		t.Error("Expected message after truncation to be visible")
	}
}

func TestMessageHelpers(t *testing.T) {
	t.Parallel()

	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m := &Message{
		ID:        "m1",
		ChannelID: "c1",
		Text:      "hello",
		Type:      MessageText,
		Mentions:  []string{"bob"},
		CreatedAt: created,
		UpdatedAt: created,
	}
	if m.IsEdited() {
		t.Error("Expected fresh message not to be edited")
	}
	if !m.InTimeline() {
		t.Error("Expected top-level message in timeline")
	}

	m.SoftDelete(created.Add(time.Minute))
	if m.Text != "" || m.Mentions != nil || !m.IsDeleted || m.Type != MessageDeleted {
		t.Errorf("Expected cleared soft-deleted message, got %+v", m)
	}

	reply := &Message{ParentMessageID: "p"}
	if reply.InTimeline() {
		t.Error("Expected hidden reply to stay out of the timeline")
	}
	reply.ShowInChannel = true
	if !reply.InTimeline() {
		t.Error("Expected show-in-channel reply in the timeline")
	}

	ts := Tombstone("gone", "c1")
	if !ts.Unavailable || ts.Text != UnavailableText {
		t.Errorf("Expected unavailable tombstone, got %+v", ts)
	}
}

func TestCursorOrdering(t *testing.T) {
	t.Parallel()

	at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := Cursor{CreatedAt: at, ID: "m5"}

	tests := []struct {
		name   string
		t      time.Time
		id     string
		before bool
		after  bool
	}{
		{"earlier time", at.Add(-time.Second), "m9", true, false},
		{"later time", at.Add(time.Second), "m1", false, true},
		{"same time lower id", at, "m4", true, false},
		{"same time higher id", at, "m6", false, true},
		{"same position", at, "m5", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := c.Before(tt.t, tt.id); got != tt.before {
				t.Errorf("Before() = %v, expected %v", got, tt.before)
			}
			if got := c.After(tt.t, tt.id); got != tt.after {
				t.Errorf("After() = %v, expected %v", got, tt.after)
			}
		})
	}
}

func TestMetadataValidate(t *testing.T) {
	t.Parallel()

	tooMany := Metadata{}
	for i := 0; i <= MaxMetadataKeys; i++ {
		tooMany[strings.Repeat("k", i+1)] = i
	}

	tests := []struct {
		name    string
		meta    Metadata
		wantErr bool
	}{
		{"nil", nil, false},
		{"scalars", Metadata{"a": "x", "b": 1.5, "c": true, "d": nil}, false},
		{"flat list", Metadata{"tags": []any{"a", 2.0}}, false},
		{"nested list", Metadata{"tags": []any{[]any{"a"}}}, true},
		{"object value", Metadata{"obj": map[string]any{"a": 1}}, true},
		{"long value", Metadata{"a": strings.Repeat("x", MaxMetadataValLen+1)}, true},
		{"empty key", Metadata{"": "x"}, true},
		{"too many keys", tooMany, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.meta.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && KindOf(err) != KindValidation {
				t.Errorf("Expected ValidationError, got %s", KindOf(err))
			}
		})
	}
}

func TestWebhookMatches(t *testing.T) {
	t.Parallel()

	sub := &WebhookSubscription{IsActive: true, EventTypes: []string{"message.new"}}
	if !sub.Matches(EventMessageNew) {
		t.Error("Expected exact event type match")
	}
	if sub.Matches(EventMessageDeleted) {
		t.Error("Expected non-selected event type not to match")
	}

	wild := &WebhookSubscription{IsActive: true, EventTypes: []string{WildcardEvent}}
	if !wild.Matches(EventReactionNew) {
		t.Error("Expected wildcard to match")
	}

	wild.IsActive = false
	if wild.Matches(EventReactionNew) {
		t.Error("Expected inactive subscription not to match")
	}
}

func TestEventTypeClasses(t *testing.T) {
	t.Parallel()

	for _, et := range []EventType{EventTypingStarted, EventTypingStopped, EventPresenceChanged} {
		if !et.IsTransient() {
			t.Errorf("Expected %s to be transient", et)
		}
		if et.IsWebhookEvent() {
			t.Errorf("Expected %s not to be a webhook event", et)
		}
	}
	for _, et := range WebhookEventTypes {
		if et.IsTransient() {
			t.Errorf("Expected %s not to be transient", et)
		}
	}
}

func TestEventValidate(t *testing.T) {
	t.Parallel()

	now := time.Now()
	msg := &Message{ID: "m1", ChannelID: "c1"}

	withMessage := NewEvent(EventMessageNew, "app", "c1", "alice", now)
	withMessage.Message = msg

	presence := NewEvent(EventPresenceChanged, "app", "", "alice", now)
	presence.Status = PresenceOnline

	badPresence := NewEvent(EventPresenceChanged, "app", "", "alice", now)
	badPresence.Status = "away"

	badExtra := NewEvent(EventTypingStarted, "app", "c1", "alice", now)
	badExtra.Extra = Metadata{"x": map[string]any{}}

	tests := []struct {
		name    string
		event   *Event
		wantErr bool
	}{
		{"message with payload", withMessage, false},
		{"message without payload", NewEvent(EventMessageNew, "app", "c1", "alice", now), true},
		{"typing", NewEvent(EventTypingStarted, "app", "c1", "alice", now), false},
		{"typing without channel", NewEvent(EventTypingStopped, "app", "", "alice", now), true},
		{"presence", presence, false},
		{"presence bad status", badPresence, true},
		{"unknown type", NewEvent("nope", "app", "c1", "alice", now), true},
		{"missing app", NewEvent(EventTypingStarted, "", "c1", "alice", now), true},
		{"bad extra", badExtra, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if err := tt.event.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewEventIDsUnique(t *testing.T) {
	t.Parallel()

	a := NewEvent(EventTypingStarted, "app", "c", "u", time.Now())
	b := NewEvent(EventTypingStarted, "app", "c", "u", time.Now())
	if a.ID == "" || a.ID == b.ID {
		t.Errorf("Expected unique non-empty ids, got %q and %q", a.ID, b.ID)
	}
}
