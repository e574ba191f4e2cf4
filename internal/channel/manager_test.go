// Switchboard - Multi-Tenant Realtime Chat Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/switchboard

package channel

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/tomtom215/switchboard/internal/authz"
	"github.com/tomtom215/switchboard/internal/events"
	"github.com/tomtom215/switchboard/internal/models"
	"github.com/tomtom215/switchboard/internal/scheduler"
	"github.com/tomtom215/switchboard/internal/store/memory"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []*models.Event
}

func (r *recordingPublisher) Publish(e *models.Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

func (r *recordingPublisher) types() []models.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.EventType, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

func (r *recordingPublisher) last() *models.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.events) == 0 {
		return nil
	}
	return r.events[len(r.events)-1]
}

func (r *recordingPublisher) reset() {
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
}

type fakeScheduler struct {
	mu    sync.Mutex
	tasks map[string]*scheduler.Task
}

func (f *fakeScheduler) Schedule(_ context.Context, task *scheduler.Task) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tasks[task.ID] = task
	return nil
}

func (f *fakeScheduler) Cancel(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.tasks, id)
	return nil
}

func (f *fakeScheduler) get(id string) *scheduler.Task {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tasks[id]
}

type fixture struct {
	mgr   *Manager
	store *memory.Store
	pub   *recordingPublisher
	tasks *fakeScheduler
	now   time.Time
}

func (f *fixture) advance(d time.Duration) {
	f.now = f.now.Add(d)
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	az, err := authz.NewEnforcer(nil)
	if err != nil {
		t.Fatalf("NewEnforcer failed: %v", err)
	}
	f := &fixture{
		store: memory.New(),
		pub:   &recordingPublisher{},
		tasks: &fakeScheduler{tasks: make(map[string]*scheduler.Task)},
		now:   time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC),
	}
	f.mgr = NewManager(f.store, az, f.pub, events.NewChannelLocks(),
		WithClock(func() time.Time { return f.now }),
		WithScheduler(f.tasks))
	return f
}

// group creates a group channel owned by alice with bob (member) and carol (admin).
func (f *fixture) group(t *testing.T) *models.Channel {
	t.Helper()
	ctx := context.Background()
	ch, _, err := f.mgr.Create(ctx, CreateParams{AppID: "app", CreatorID: "alice", Name: "general", Members: []string{"bob"}})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := f.mgr.AddMembers(ctx, "app", ch.ID, "alice", []string{"carol"}, models.RoleAdmin); err != nil {
		t.Fatalf("AddMembers failed: %v", err)
	}
	f.pub.reset()
	return ch
}

func assertKind(t *testing.T, err error, want models.ErrorKind) {
	t.Helper()
	if got := models.KindOf(err); got != want {
		t.Errorf("Expected %s, got %v", want, err)
	}
}

func TestCreate(t *testing.T) {
	ctx := context.Background()

	t.Run("creator becomes owner", func(t *testing.T) {
		f := newFixture(t)
		ch, created, err := f.mgr.Create(ctx, CreateParams{AppID: "app", CreatorID: "alice", Members: []string{"bob", "bob", ""}})
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		if !created || ch.Type != models.ChannelGroup {
			t.Errorf("Expected a new group channel, got created=%v type=%s", created, ch.Type)
		}
		members, err := f.mgr.ListMembers(ctx, "app", ch.ID, "alice")
		if err != nil {
			t.Fatalf("ListMembers failed: %v", err)
		}
		roles := map[string]models.Role{}
		for _, m := range members {
			roles[m.UserID] = m.Role
		}
		want := map[string]models.Role{"alice": models.RoleOwner, "bob": models.RoleMember}
		if diff := cmp.Diff(want, roles); diff != "" {
			t.Errorf("Roles mismatch (-want +got):\n%s", diff)
		}
		if diff := cmp.Diff([]models.EventType{models.EventChannelCreated}, f.pub.types()); diff != "" {
			t.Errorf("Events mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("distinct is idempotent", func(t *testing.T) {
		f := newFixture(t)
		first, created, err := f.mgr.Create(ctx, CreateParams{AppID: "app", CreatorID: "alice", Members: []string{"bob"}, IsDistinct: true})
		if err != nil || !created {
			t.Fatalf("Create failed: %v created=%v", err, created)
		}
		second, created, err := f.mgr.Create(ctx, CreateParams{AppID: "app", CreatorID: "bob", Members: []string{"alice"}, IsDistinct: true})
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		if created || second.ID != first.ID {
			t.Errorf("Expected existing channel %s, got %s created=%v", first.ID, second.ID, created)
		}
		if n := len(f.pub.types()); n != 1 {
			t.Errorf("Expected 1 channel.created event, got %d", n)
		}
	})

	t.Run("distinct concurrent creates converge", func(t *testing.T) {
		f := newFixture(t)
		const workers = 16
		ids := make([]string, workers)
		var wg sync.WaitGroup
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				ch, _, err := f.mgr.Create(ctx, CreateParams{AppID: "app", CreatorID: "alice", Members: []string{"bob", "carol"}, IsDistinct: true})
				if err != nil {
					t.Errorf("Create failed: %v", err)
					return
				}
				ids[i] = ch.ID
			}(i)
		}
		wg.Wait()
		for _, id := range ids {
			if id != ids[0] {
				t.Fatalf("Expected one channel, got %v", ids)
			}
		}
	})

	t.Run("distinct is scoped per app", func(t *testing.T) {
		f := newFixture(t)
		a, _, _ := f.mgr.Create(ctx, CreateParams{AppID: "a1", CreatorID: "alice", Members: []string{"bob"}, IsDistinct: true})
		b, _, _ := f.mgr.Create(ctx, CreateParams{AppID: "a2", CreatorID: "alice", Members: []string{"bob"}, IsDistinct: true})
		if a == nil || b == nil || a.ID == b.ID {
			t.Errorf("Expected separate channels per app")
		}
	})

	tests := []struct {
		name string
		p    CreateParams
		want models.ErrorKind
	}{
		{"missing creator", CreateParams{AppID: "app"}, models.KindValidation},
		{"unknown type", CreateParams{AppID: "app", CreatorID: "alice", Type: "team"}, models.KindValidation},
		{"direct needs two", CreateParams{AppID: "app", CreatorID: "alice", Type: models.ChannelDirect, Members: []string{"bob", "carol"}}, models.KindValidation},
		{"direct self only", CreateParams{AppID: "app", CreatorID: "alice", Type: models.ChannelDirect}, models.KindValidation},
		{"bad user id", CreateParams{AppID: "app", CreatorID: "alice", Members: []string{"a\x1fb"}}, models.KindValidation},
		{"bad metadata", CreateParams{AppID: "app", CreatorID: "alice", Metadata: models.Metadata{"x": map[string]any{"y": map[string]any{}}}}, models.KindValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			_, _, err := f.mgr.Create(ctx, tt.p)
			assertKind(t, err, tt.want)
		})
	}
}

func TestDirectChannelIsDistinct(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ch, _, err := f.mgr.Create(ctx, CreateParams{AppID: "app", CreatorID: "alice", Type: models.ChannelDirect, Members: []string{"bob"}})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if !ch.IsDistinct {
		t.Error("Expected direct channel to be distinct")
	}
	again, created, _ := f.mgr.Create(ctx, CreateParams{AppID: "app", CreatorID: "bob", Type: models.ChannelDirect, Members: []string{"alice"}})
	if created || again.ID != ch.ID {
		t.Errorf("Expected existing direct channel")
	}
}

func TestAccess(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ch := f.group(t)

	if _, _, err := f.mgr.Access(ctx, "app", ch.ID, "mallory"); err == nil {
		t.Error("Expected non-member to be refused")
	} else {
		assertKind(t, err, models.KindPermissionDenied)
	}
	_, _, err := f.mgr.Access(ctx, "other-app", ch.ID, "alice")
	assertKind(t, err, models.KindNotFound)

	pub, _, _ := f.mgr.Create(ctx, CreateParams{AppID: "app", CreatorID: "alice", Type: models.ChannelPublic})
	got, member, err := f.mgr.Access(ctx, "app", pub.ID, "mallory")
	if err != nil || got == nil || member != nil {
		t.Errorf("Expected public read without membership, got %v %v %v", got, member, err)
	}
	if _, err := f.mgr.Join(ctx, "app", pub.ID, "mallory"); err != nil {
		t.Fatalf("Join failed: %v", err)
	}
	if _, err := f.mgr.Join(ctx, "app", pub.ID, "mallory"); err != nil {
		t.Errorf("Expected second Join to be a no-op, got %v", err)
	}
	ids, _ := f.mgr.UserChannelIDs(ctx, "app", "mallory")
	if diff := cmp.Diff([]string{pub.ID}, ids); diff != "" {
		t.Errorf("Channel ids mismatch (-want +got):\n%s", diff)
	}
}

func TestAddMembers(t *testing.T) {
	ctx := context.Background()

	t.Run("member cannot add", func(t *testing.T) {
		f := newFixture(t)
		ch := f.group(t)
		_, err := f.mgr.AddMembers(ctx, "app", ch.ID, "bob", []string{"dave"}, "")
		assertKind(t, err, models.KindPermissionDenied)
	})

	t.Run("admin cannot grant admin", func(t *testing.T) {
		f := newFixture(t)
		ch := f.group(t)
		_, err := f.mgr.AddMembers(ctx, "app", ch.ID, "carol", []string{"dave"}, models.RoleAdmin)
		assertKind(t, err, models.KindPermissionDenied)
	})

	t.Run("existing members are skipped", func(t *testing.T) {
		f := newFixture(t)
		ch := f.group(t)
		added, err := f.mgr.AddMembers(ctx, "app", ch.ID, "carol", []string{"bob", "dave"}, "")
		if err != nil {
			t.Fatalf("AddMembers failed: %v", err)
		}
		if len(added) != 1 || added[0].UserID != "dave" {
			t.Errorf("Expected only dave added, got %v", added)
		}
		if diff := cmp.Diff([]models.EventType{models.EventMemberAdded}, f.pub.types()); diff != "" {
			t.Errorf("Events mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("frozen channel refuses", func(t *testing.T) {
		f := newFixture(t)
		ch := f.group(t)
		if _, err := f.mgr.Freeze(ctx, "app", ch.ID, "carol"); err != nil {
			t.Fatalf("Freeze failed: %v", err)
		}
		_, err := f.mgr.AddMembers(ctx, "app", ch.ID, "alice", []string{"dave"}, "")
		assertKind(t, err, models.KindChannelFrozen)
	})

	t.Run("owner role is not grantable", func(t *testing.T) {
		f := newFixture(t)
		ch := f.group(t)
		_, err := f.mgr.AddMembers(ctx, "app", ch.ID, "alice", []string{"dave"}, models.RoleOwner)
		assertKind(t, err, models.KindValidation)
	})
}

func TestRemoveAndLeave(t *testing.T) {
	ctx := context.Background()

	t.Run("admin removes member", func(t *testing.T) {
		f := newFixture(t)
		ch := f.group(t)
		if err := f.mgr.RemoveMember(ctx, "app", ch.ID, "carol", "bob"); err != nil {
			t.Fatalf("RemoveMember failed: %v", err)
		}
		if _, err := f.mgr.Member(ctx, "app", ch.ID, "bob"); err == nil {
			t.Error("Expected bob to be gone")
		}
		if e := f.pub.last(); e == nil || e.Type != models.EventMemberRemoved || e.Member.UserID != "bob" {
			t.Errorf("Expected member.removed for bob, got %+v", e)
		}
	})

	t.Run("admin cannot remove owner", func(t *testing.T) {
		f := newFixture(t)
		ch := f.group(t)
		err := f.mgr.RemoveMember(ctx, "app", ch.ID, "carol", "alice")
		assertKind(t, err, models.KindPermissionDenied)
	})

	t.Run("last owner cannot leave", func(t *testing.T) {
		f := newFixture(t)
		ch := f.group(t)
		err := f.mgr.Leave(ctx, "app", ch.ID, "alice")
		assertKind(t, err, models.KindLastOwnerConstraint)
	})

	t.Run("sole member owner cannot leave", func(t *testing.T) {
		f := newFixture(t)
		ch, _, _ := f.mgr.Create(ctx, CreateParams{AppID: "app", CreatorID: "alice"})
		err := f.mgr.Leave(ctx, "app", ch.ID, "alice")
		assertKind(t, err, models.KindLastOwnerConstraint)
	})

	t.Run("owner leaves after promoting another", func(t *testing.T) {
		f := newFixture(t)
		ch := f.group(t)
		if _, err := f.mgr.UpdateMemberRole(ctx, "app", ch.ID, "alice", "carol", models.RoleOwner); err != nil {
			t.Fatalf("UpdateMemberRole failed: %v", err)
		}
		if err := f.mgr.RemoveMember(ctx, "app", ch.ID, "alice", "alice"); err != nil {
			t.Errorf("Expected owner to leave, got %v", err)
		}
	})

	t.Run("demoting last owner fails", func(t *testing.T) {
		f := newFixture(t)
		ch := f.group(t)
		_, err := f.mgr.UpdateMemberRole(ctx, "app", ch.ID, "alice", "alice", models.RoleMember)
		assertKind(t, err, models.KindLastOwnerConstraint)
	})

	t.Run("admin cannot change roles", func(t *testing.T) {
		f := newFixture(t)
		ch := f.group(t)
		_, err := f.mgr.UpdateMemberRole(ctx, "app", ch.ID, "carol", "bob", models.RoleAdmin)
		assertKind(t, err, models.KindPermissionDenied)
	})
}

func TestChannelSettings(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	ch := f.group(t)

	if _, err := f.mgr.SetSlowMode(ctx, "app", ch.ID, "bob", 10); models.KindOf(err) != models.KindPermissionDenied {
		t.Errorf("Expected member slow mode to be denied, got %v", err)
	}
	for _, bad := range []int{-1, MaxSlowModeSeconds + 1} {
		_, err := f.mgr.SetSlowMode(ctx, "app", ch.ID, "carol", bad)
		assertKind(t, err, models.KindValidation)
	}
	updated, err := f.mgr.SetSlowMode(ctx, "app", ch.ID, "carol", 30)
	if err != nil {
		t.Fatalf("SetSlowMode failed: %v", err)
	}
	if updated.SlowMode() != 30*time.Second {
		t.Errorf("Expected 30s slow mode, got %v", updated.SlowMode())
	}

	f.advance(time.Minute)
	truncated, err := f.mgr.Truncate(ctx, "app", ch.ID, "carol")
	if err != nil {
		t.Fatalf("Truncate failed: %v", err)
	}
	if truncated.TruncatedAt == nil || !truncated.TruncatedAt.Equal(f.now) {
		t.Errorf("Expected TruncatedAt %v, got %v", f.now, truncated.TruncatedAt)
	}

	frozen, err := f.mgr.Freeze(ctx, "app", ch.ID, "carol")
	if err != nil || !frozen.IsFrozen {
		t.Fatalf("Freeze failed: %v", err)
	}
	if _, err := f.mgr.Unfreeze(ctx, "app", ch.ID, "carol"); err != nil {
		t.Fatalf("Unfreeze failed: %v", err)
	}

	want := []models.EventType{
		models.EventChannelUpdated, models.EventChannelTruncated,
		models.EventChannelUpdated, models.EventChannelUpdated,
	}
	if diff := cmp.Diff(want, f.pub.types()); diff != "" {
		t.Errorf("Events mismatch (-want +got):\n%s", diff)
	}
}

func TestBan(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name   string
		actor  string
		target string
		want   models.ErrorKind
	}{
		{"member cannot ban", "bob", "carol", models.KindPermissionDenied},
		{"cannot ban self", "carol", "carol", models.KindValidation},
		{"admin cannot ban owner", "carol", "alice", models.KindPermissionDenied},
		{"unknown target", "alice", "nobody", models.KindNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			ch := f.group(t)
			_, err := f.mgr.Ban(ctx, BanParams{AppID: "app", ChannelID: ch.ID, ActorID: tt.actor, TargetID: tt.target})
			assertKind(t, err, tt.want)
		})
	}

	t.Run("owner bans admin", func(t *testing.T) {
		f := newFixture(t)
		ch := f.group(t)
		member, err := f.mgr.Ban(ctx, BanParams{AppID: "app", ChannelID: ch.ID, ActorID: "alice", TargetID: "carol"})
		if err != nil {
			t.Fatalf("Ban failed: %v", err)
		}
		if !member.Banned(f.now) {
			t.Error("Expected carol to be banned")
		}
		_, err = f.mgr.Freeze(ctx, "app", ch.ID, "carol")
		assertKind(t, err, models.KindBanned)
	})

	t.Run("past expiry rejected", func(t *testing.T) {
		f := newFixture(t)
		ch := f.group(t)
		past := f.now.Add(-time.Second)
		_, err := f.mgr.Ban(ctx, BanParams{AppID: "app", ChannelID: ch.ID, ActorID: "carol", TargetID: "bob", ExpiresAt: &past})
		assertKind(t, err, models.KindValidation)
	})

	t.Run("shadow ban event goes to actor only", func(t *testing.T) {
		f := newFixture(t)
		ch := f.group(t)
		member, err := f.mgr.Ban(ctx, BanParams{AppID: "app", ChannelID: ch.ID, ActorID: "carol", TargetID: "bob", Shadow: true})
		if err != nil {
			t.Fatalf("Ban failed: %v", err)
		}
		if !member.ShadowBanned(f.now) || member.Banned(f.now) {
			t.Errorf("Expected shadow ban only, got %+v", member)
		}
		e := f.pub.last()
		if e == nil || !e.Shadow || e.UserID != "carol" {
			t.Errorf("Expected shadow member.updated from carol, got %+v", e)
		}
	})

	t.Run("timed ban expires through scheduler", func(t *testing.T) {
		f := newFixture(t)
		ch := f.group(t)
		expires := f.now.Add(time.Hour)
		if _, err := f.mgr.Ban(ctx, BanParams{AppID: "app", ChannelID: ch.ID, ActorID: "carol", TargetID: "bob", ExpiresAt: &expires}); err != nil {
			t.Fatalf("Ban failed: %v", err)
		}
		task := f.tasks.get(banTaskID(ch.ID, "bob"))
		if task == nil || task.Kind != scheduler.KindBanExpire || !task.RunAt.Equal(expires) {
			t.Fatalf("Expected ban.expire task at %v, got %+v", expires, task)
		}

		// Early delivery leaves the ban in place.
		if err := f.mgr.HandleBanExpire(ctx, task); err != nil {
			t.Fatalf("HandleBanExpire failed: %v", err)
		}
		member, _ := f.store.GetMember(ctx, ch.ID, "bob")
		if !member.IsBanned {
			t.Error("Expected ban to survive early expiry task")
		}

		f.advance(2 * time.Hour)
		if err := f.mgr.HandleBanExpire(ctx, task); err != nil {
			t.Fatalf("HandleBanExpire failed: %v", err)
		}
		member, _ = f.store.GetMember(ctx, ch.ID, "bob")
		if member.IsBanned || member.BanExpiresAt != nil {
			t.Errorf("Expected ban lifted, got %+v", member)
		}
		if f.tasks.get(banTaskID(ch.ID, "bob")) != nil {
			t.Error("Expected expiry task to be cancelled")
		}
	})

	t.Run("permanent ban cancels pending expiry", func(t *testing.T) {
		f := newFixture(t)
		ch := f.group(t)
		expires := f.now.Add(time.Hour)
		f.mgr.Ban(ctx, BanParams{AppID: "app", ChannelID: ch.ID, ActorID: "carol", TargetID: "bob", ExpiresAt: &expires})
		if _, err := f.mgr.Ban(ctx, BanParams{AppID: "app", ChannelID: ch.ID, ActorID: "carol", TargetID: "bob"}); err != nil {
			t.Fatalf("Ban failed: %v", err)
		}
		if f.tasks.get(banTaskID(ch.ID, "bob")) != nil {
			t.Error("Expected expiry task to be cancelled")
		}
	})

	t.Run("unban", func(t *testing.T) {
		f := newFixture(t)
		ch := f.group(t)
		f.mgr.Ban(ctx, BanParams{AppID: "app", ChannelID: ch.ID, ActorID: "carol", TargetID: "bob"})
		member, err := f.mgr.Unban(ctx, "app", ch.ID, "carol", "bob")
		if err != nil {
			t.Fatalf("Unban failed: %v", err)
		}
		if member.IsBanned {
			t.Error("Expected bob to be unbanned")
		}
	})

	for _, shadow := range []bool{false, true} {
		t.Run(fmt.Sprintf("ban survives leave and rejoin shadow=%v", shadow), func(t *testing.T) {
			f := newFixture(t)
			ch, _, err := f.mgr.Create(ctx, CreateParams{AppID: "app", CreatorID: "alice", Type: models.ChannelPublic, Name: "lobby", Members: []string{"bob"}})
			if err != nil {
				t.Fatalf("Create failed: %v", err)
			}
			expires := f.now.Add(time.Hour)
			if _, err := f.mgr.Ban(ctx, BanParams{AppID: "app", ChannelID: ch.ID, ActorID: "alice", TargetID: "bob", Shadow: shadow, ExpiresAt: &expires}); err != nil {
				t.Fatalf("Ban failed: %v", err)
			}

			assertKind(t, f.mgr.Leave(ctx, "app", ch.ID, "bob"), models.KindBanned)
			member, err := f.mgr.Join(ctx, "app", ch.ID, "bob")
			if err != nil {
				t.Fatalf("Join failed: %v", err)
			}
			if !member.Banned(f.now) && !member.ShadowBanned(f.now) {
				t.Errorf("Expected ban to remain after rejoin, got %+v", member)
			}
			if f.tasks.get(banTaskID(ch.ID, "bob")) == nil {
				t.Error("Expected expiry task to remain scheduled")
			}

			f.advance(2 * time.Hour)
			if err := f.mgr.Leave(ctx, "app", ch.ID, "bob"); err != nil {
				t.Errorf("Expected leave after ban lapsed, got %v", err)
			}
		})
	}

	t.Run("expiry for removed member is dropped", func(t *testing.T) {
		f := newFixture(t)
		ch := f.group(t)
		task, _ := scheduler.NewTask(banTaskID(ch.ID, "ghost"), scheduler.KindBanExpire, f.now, banPayload{ChannelID: ch.ID, UserID: "ghost"})
		if err := f.mgr.HandleBanExpire(ctx, task); err != nil {
			t.Errorf("Expected missing member to be ignored, got %v", err)
		}
	})
}

func TestSetHidden(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	ch := f.group(t)

	member, err := f.mgr.SetHidden(ctx, "app", ch.ID, "bob", true)
	if err != nil {
		t.Fatalf("SetHidden failed: %v", err)
	}
	if !member.IsHidden {
		t.Error("Expected channel hidden")
	}
	e := f.pub.last()
	if e == nil || !e.Shadow || e.UserID != "bob" {
		t.Errorf("Expected private member.updated, got %+v", e)
	}
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	ch := f.group(t)

	err := f.mgr.Delete(ctx, "app", ch.ID, "carol")
	assertKind(t, err, models.KindPermissionDenied)

	if err := f.mgr.Delete(ctx, "app", ch.ID, "alice"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	_, err = f.mgr.Get(ctx, "app", ch.ID, "alice")
	if !errors.Is(err, models.ErrNotFound) {
		t.Errorf("Expected NotFound after delete, got %v", err)
	}
	if e := f.pub.last(); e == nil || e.Type != models.EventChannelDeleted {
		t.Errorf("Expected channel.deleted, got %+v", e)
	}
}
