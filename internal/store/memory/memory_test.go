// Switchboard - Multi-Tenant Realtime Chat Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/switchboard

package memory

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/tomtom215/switchboard/internal/models"
	"github.com/tomtom215/switchboard/internal/store"
)

var base = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func seedChannel(t *testing.T, s *Store, id string, distinct bool, users ...string) *models.Channel {
	t.Helper()
	normalized := models.NormalizeMembers("", users)
	ch := &models.Channel{
		ID:         id,
		AppID:      "app",
		Type:       models.ChannelGroup,
		IsDistinct: distinct,
		CreatedBy:  users[0],
		CreatedAt:  base,
		UpdatedAt:  base,
	}
	if distinct {
		ch.MemberKey = models.MemberKey(normalized)
	}
	members := make([]*models.ChannelMember, 0, len(normalized))
	for _, u := range normalized {
		role := models.RoleMember
		if u == users[0] {
			role = models.RoleOwner
		}
		members = append(members, &models.ChannelMember{ChannelID: id, UserID: u, Role: role, JoinedAt: base})
	}
	if err := s.CreateChannel(context.Background(), ch, members); err != nil {
		t.Fatalf("CreateChannel failed: %v", err)
	}
	return ch
}

func seedMessage(t *testing.T, s *Store, id, channelID, user string, at time.Time) *models.Message {
	t.Helper()
	m := &models.Message{
		ID:        id,
		ChannelID: channelID,
		UserID:    user,
		Text:      "text " + id,
		Type:      models.MessageText,
		Status:    models.StatusSent,
		CreatedAt: at,
		UpdatedAt: at,
	}
	if err := s.InsertMessage(context.Background(), m); err != nil {
		t.Fatalf("InsertMessage failed: %v", err)
	}
	return m
}

func ids(ms []*models.Message) []string {
	out := make([]string, len(ms))
	for i, m := range ms {
		out[i] = m.ID
	}
	return out
}

func TestCreateChannelDistinctConflict(t *testing.T) {
	s := New()
	ctx := context.Background()
	seedChannel(t, s, "c1", true, "alice", "bob")

	dup := &models.Channel{ID: "c2", AppID: "app", IsDistinct: true, MemberKey: models.MemberKey([]string{"alice", "bob"})}
	err := s.CreateChannel(ctx, dup, []*models.ChannelMember{{ChannelID: "c2", UserID: "alice"}})
	if !errors.Is(err, store.ErrConflict) {
		t.Fatalf("Expected ErrConflict, got %v", err)
	}
	if _, err := s.GetChannel(ctx, "c2"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected conflicting channel not to be stored, got %v", err)
	}
	if _, err := s.GetMember(ctx, "c2", "alice"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected no partial membership, got %v", err)
	}

	other := &models.Channel{ID: "c3", AppID: "other-app", IsDistinct: true, MemberKey: dup.MemberKey}
	if err := s.CreateChannel(ctx, other, nil); err != nil {
		t.Errorf("Expected same member set in another app to succeed, got %v", err)
	}

	found, err := s.FindDistinctChannel(ctx, "app", dup.MemberKey)
	if err != nil || found.ID != "c1" {
		t.Errorf("Expected to find c1, got %v, %v", found, err)
	}
}

func TestAddAndRemoveMembersRekeysDistinct(t *testing.T) {
	s := New()
	ctx := context.Background()
	seedChannel(t, s, "c1", true, "alice", "bob")
	seedChannel(t, s, "c2", true, "alice", "bob", "carol")

	_, err := s.AddMembers(ctx, "c1", []*models.ChannelMember{{ChannelID: "c1", UserID: "carol", Role: models.RoleMember}})
	if !errors.Is(err, store.ErrConflict) {
		t.Fatalf("Expected ErrConflict when member set collides, got %v", err)
	}
	if _, err := s.GetMember(ctx, "c1", "carol"); !errors.Is(err, store.ErrNotFound) {
		t.Error("Expected colliding add to insert nothing")
	}

	if err := s.RemoveMember(ctx, "c2", "carol"); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("Expected ErrConflict when removal collides, got %v", err)
	}

	added, err := s.AddMembers(ctx, "c1", []*models.ChannelMember{
		{ChannelID: "c1", UserID: "alice"},
		{ChannelID: "c1", UserID: "dave"},
		{ChannelID: "c1", UserID: "dave"},
	})
	if err != nil {
		t.Fatalf("AddMembers failed: %v", err)
	}
	if len(added) != 1 || added[0].UserID != "dave" {
		t.Errorf("Expected only dave to be added, got %+v", added)
	}

	found, err := s.FindDistinctChannel(ctx, "app", models.MemberKey([]string{"alice", "bob", "dave"}))
	if err != nil || found.ID != "c1" {
		t.Errorf("Expected c1 under its new member key, got %v, %v", found, err)
	}
}

func TestDeleteChannelCascades(t *testing.T) {
	s := New()
	ctx := context.Background()
	seedChannel(t, s, "c1", true, "alice", "bob")
	m := seedMessage(t, s, "m1", "c1", "alice", base)
	if _, err := s.UpsertReaction(ctx, &models.Reaction{MessageID: m.ID, UserID: "bob", Emoji: "+1"}); err != nil {
		t.Fatalf("UpsertReaction failed: %v", err)
	}

	if err := s.DeleteChannel(ctx, "c1"); err != nil {
		t.Fatalf("DeleteChannel failed: %v", err)
	}
	if _, err := s.GetMessage(ctx, "m1"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected message to be deleted, got %v", err)
	}
	if _, err := s.GetMember(ctx, "c1", "alice"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected member to be deleted, got %v", err)
	}
	if _, err := s.FindDistinctChannel(ctx, "app", models.MemberKey([]string{"alice", "bob"})); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected distinct index to be released, got %v", err)
	}
	if len(s.reactions) != 0 {
		t.Errorf("Expected reactions to be cascaded, got %d", len(s.reactions))
	}
}

func TestListMessagesPagination(t *testing.T) {
	s := New()
	ctx := context.Background()
	seedChannel(t, s, "c1", false, "alice")
	for i := 0; i < 5; i++ {
		seedMessage(t, s, fmt.Sprintf("m%d", i), "c1", "alice", base.Add(time.Duration(i)*time.Second))
	}
	// Same timestamp as m4 to exercise the id tiebreak.
	seedMessage(t, s, "m5", "c1", "alice", base.Add(4*time.Second))

	tests := []struct {
		name    string
		q       store.HistoryQuery
		want    []string
		hasMore bool
	}{
		{"latest", store.HistoryQuery{ChannelID: "c1", Limit: 2}, []string{"m4", "m5"}, true},
		{"all", store.HistoryQuery{ChannelID: "c1", Limit: 10}, []string{"m0", "m1", "m2", "m3", "m4", "m5"}, false},
		{"before", store.HistoryQuery{ChannelID: "c1", Limit: 2, Before: &models.Cursor{CreatedAt: base.Add(4 * time.Second), ID: "m5"}}, []string{"m3", "m4"}, true},
		{"after", store.HistoryQuery{ChannelID: "c1", Limit: 2, After: &models.Cursor{CreatedAt: base.Add(time.Second), ID: "m1"}}, []string{"m2", "m3"}, true},
		{"after tail", store.HistoryQuery{ChannelID: "c1", Limit: 5, After: &models.Cursor{CreatedAt: base.Add(3 * time.Second), ID: "m3"}}, []string{"m4", "m5"}, false},
		{"since", store.HistoryQuery{ChannelID: "c1", Limit: 10, Since: ptr(base.Add(2 * time.Second))}, []string{"m3", "m4", "m5"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, hasMore, err := s.ListMessages(ctx, tt.q)
			if err != nil {
				t.Fatalf("ListMessages failed: %v", err)
			}
			if fmt.Sprint(ids(got)) != fmt.Sprint(tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, ids(got))
			}
			if hasMore != tt.hasMore {
				t.Errorf("Expected hasMore=%v, got %v", tt.hasMore, hasMore)
			}
		})
	}
}

func TestListMessagesFilters(t *testing.T) {
	s := New()
	ctx := context.Background()
	seedChannel(t, s, "c1", false, "alice", "bob")

	seedMessage(t, s, "top", "c1", "alice", base)
	deleted := seedMessage(t, s, "deleted", "c1", "alice", base.Add(time.Second))
	deleted.SoftDelete(base.Add(time.Minute))
	_ = s.UpdateMessage(ctx, deleted)

	hidden := seedMessage(t, s, "reply-hidden", "c1", "bob", base.Add(2*time.Second))
	hidden.ParentMessageID = "top"
	_ = s.UpdateMessage(ctx, hidden)

	shown := seedMessage(t, s, "reply-shown", "c1", "bob", base.Add(3*time.Second))
	shown.ParentMessageID = "top"
	shown.ShowInChannel = true
	_ = s.UpdateMessage(ctx, shown)

	shadow := seedMessage(t, s, "shadow", "c1", "bob", base.Add(4*time.Second))
	shadow.Shadowed = true
	_ = s.UpdateMessage(ctx, shadow)

	pending := seedMessage(t, s, "pending", "c1", "alice", base.Add(5*time.Second))
	pending.Status = models.StatusPending
	_ = s.UpdateMessage(ctx, pending)

	got, _, _ := s.ListMessages(ctx, store.HistoryQuery{ChannelID: "c1", ViewerID: "alice"})
	if want := "[top reply-shown]"; fmt.Sprint(ids(got)) != want {
		t.Errorf("Expected alice timeline %s, got %v", want, ids(got))
	}

	got, _, _ = s.ListMessages(ctx, store.HistoryQuery{ChannelID: "c1", ViewerID: "bob"})
	if want := "[top reply-shown shadow]"; fmt.Sprint(ids(got)) != want {
		t.Errorf("Expected bob timeline %s, got %v", want, ids(got))
	}

	got, _, _ = s.ListMessages(ctx, store.HistoryQuery{ChannelID: "c1", ParentID: "top", ViewerID: "alice"})
	if want := "[reply-hidden reply-shown]"; fmt.Sprint(ids(got)) != want {
		t.Errorf("Expected thread %s, got %v", want, ids(got))
	}

	n, err := s.CountUnread(ctx, store.UnreadQuery{ChannelID: "c1", UserID: "alice"})
	if err != nil {
		t.Fatalf("CountUnread failed: %v", err)
	}
	if n != 1 {
		t.Errorf("Expected 1 unread for alice (reply-shown), got %d", n)
	}
}

func TestPinMessageCap(t *testing.T) {
	s := New()
	ctx := context.Background()
	seedChannel(t, s, "c1", false, "alice")
	for i := 0; i < 4; i++ {
		seedMessage(t, s, fmt.Sprintf("m%d", i), "c1", "alice", base.Add(time.Duration(i)*time.Second))
	}

	for i := 0; i < 3; i++ {
		if _, err := s.PinMessage(ctx, fmt.Sprintf("m%d", i), "alice", base, 3); err != nil {
			t.Fatalf("PinMessage m%d failed: %v", i, err)
		}
	}
	if _, err := s.PinMessage(ctx, "m3", "alice", base, 3); !errors.Is(err, store.ErrPinLimit) {
		t.Fatalf("Expected ErrPinLimit, got %v", err)
	}
	if _, err := s.PinMessage(ctx, "m0", "alice", base, 3); err != nil {
		t.Errorf("Expected re-pinning a pinned message to be a no-op, got %v", err)
	}
	if n, _ := s.CountPinned(ctx, "c1"); n != 3 {
		t.Errorf("Expected 3 pins, got %d", n)
	}

	m, err := s.UnpinMessage(ctx, "m1")
	if err != nil || m.IsPinned {
		t.Fatalf("Expected unpinned message, got %+v, %v", m, err)
	}
	if _, err := s.PinMessage(ctx, "m3", "alice", base, 3); err != nil {
		t.Errorf("Expected pin after unpin to succeed, got %v", err)
	}
}

func TestRecomputeThread(t *testing.T) {
	s := New()
	ctx := context.Background()
	seedChannel(t, s, "c1", false, "alice", "bob")
	seedMessage(t, s, "p", "c1", "alice", base)

	for i, user := range []string{"bob", "alice", "bob"} {
		r := seedMessage(t, s, fmt.Sprintf("r%d", i), "c1", user, base.Add(time.Duration(i+1)*time.Minute))
		r.ParentMessageID = "p"
		_ = s.UpdateMessage(ctx, r)
	}

	parent, err := s.RecomputeThread(ctx, "p")
	if err != nil {
		t.Fatalf("RecomputeThread failed: %v", err)
	}
	if parent.ReplyCount != 3 || parent.ThreadParticipantCount != 2 {
		t.Errorf("Expected 3 replies from 2 participants, got %d/%d", parent.ReplyCount, parent.ThreadParticipantCount)
	}
	if parent.ThreadLastMessageAt == nil || !parent.ThreadLastMessageAt.Equal(base.Add(3*time.Minute)) {
		t.Errorf("Expected last reply at +3m, got %v", parent.ThreadLastMessageAt)
	}
	if parent.IsEdited() {
		t.Error("Expected thread bookkeeping not to mark the parent edited")
	}

	if err := s.DeleteMessage(ctx, "p"); err != nil {
		t.Fatalf("DeleteMessage failed: %v", err)
	}
	if id, err := s.ThreadChannel(ctx, "p"); err != nil || id != "c1" {
		t.Errorf("Expected orphaned thread in c1, got %q, %v", id, err)
	}
	if _, err := s.ThreadChannel(ctx, "r0"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for a message without replies, got %v", err)
	}
}

func TestHardDeleteCascadesReactionsAndReceipts(t *testing.T) {
	s := New()
	ctx := context.Background()
	seedChannel(t, s, "c1", false, "alice", "bob")
	seedMessage(t, s, "m1", "c1", "alice", base)

	created, err := s.UpsertReaction(ctx, &models.Reaction{MessageID: "m1", UserID: "bob", Emoji: "+1", CreatedAt: base})
	if err != nil || !created {
		t.Fatalf("Expected reaction to be created, got %v, %v", created, err)
	}
	created, _ = s.UpsertReaction(ctx, &models.Reaction{MessageID: "m1", UserID: "bob", Emoji: "+1", CreatedAt: base})
	if created {
		t.Error("Expected duplicate reaction to be a no-op")
	}
	if err := s.UpsertReadReceipt(ctx, &models.ReadReceipt{MessageID: "m1", UserID: "bob", ReadAt: base}); err != nil {
		t.Fatalf("UpsertReadReceipt failed: %v", err)
	}

	if err := s.DeleteMessage(ctx, "m1"); err != nil {
		t.Fatalf("DeleteMessage failed: %v", err)
	}
	if _, ok := s.ReadReceipt("m1", "bob"); ok {
		t.Error("Expected receipt to be cascaded")
	}
	if _, err := s.ListReactions(ctx, "m1"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for reactions of deleted message, got %v", err)
	}
}

func TestWebhooksAndDeliveryLogs(t *testing.T) {
	s := New()
	ctx := context.Background()

	w := &models.WebhookSubscription{ID: "w1", AppID: "app", URL: "http://x", EventTypes: []string{"message.new"}, IsActive: true, CreatedAt: base}
	if err := s.CreateWebhook(ctx, w); err != nil {
		t.Fatalf("CreateWebhook failed: %v", err)
	}
	_ = s.CreateWebhook(ctx, &models.WebhookSubscription{ID: "w2", AppID: "other", EventTypes: []string{"*"}, IsActive: true})

	active, _ := s.ListActiveWebhooks(ctx, "app", models.EventMessageNew)
	if len(active) != 1 || active[0].ID != "w1" {
		t.Errorf("Expected only w1 active for app, got %+v", active)
	}
	active, _ = s.ListActiveWebhooks(ctx, "app", models.EventReactionNew)
	if len(active) != 0 {
		t.Errorf("Expected no match for reaction.new, got %d", len(active))
	}

	for i := 0; i < 3; i++ {
		_ = s.AppendDeliveryLog(ctx, &models.DeliveryLog{ID: fmt.Sprint(i), WebhookID: "w1", Attempt: i})
	}
	logs, err := s.ListDeliveryLogs(ctx, "w1", 2)
	if err != nil {
		t.Fatalf("ListDeliveryLogs failed: %v", err)
	}
	if len(logs) != 2 || logs[0].Attempt != 2 || logs[1].Attempt != 1 {
		t.Errorf("Expected newest two attempts first, got %+v", logs)
	}
}

func TestClosedStoreFails(t *testing.T) {
	s := New()
	if err := s.Ping(context.Background()); err != nil {
		t.Fatalf("Expected open store to ping, got %v", err)
	}
	_ = s.Close()
	if err := s.Ping(context.Background()); err == nil {
		t.Error("Expected closed store ping to fail")
	}
	if _, err := s.GetChannel(context.Background(), "x"); err == nil || errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected closed-store error, got %v", err)
	}
}

func ptr(t time.Time) *time.Time { return &t }
