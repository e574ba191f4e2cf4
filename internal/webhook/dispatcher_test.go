// Switchboard - Multi-Tenant Realtime Chat Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/switchboard

package webhook

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/switchboard/internal/config"
	"github.com/tomtom215/switchboard/internal/models"
	"github.com/tomtom215/switchboard/internal/scheduler"
	"github.com/tomtom215/switchboard/internal/store/memory"
	"github.com/tomtom215/switchboard/internal/testinfra"
)

func testConfig() config.WebhookConfig {
	return config.WebhookConfig{
		Workers:           4,
		BaseDelay:         30 * time.Millisecond,
		MaxDelay:          time.Second,
		DefaultRetryCount: 3,
		DefaultTimeout:    time.Second,
		BreakerFailures:   100,
		BreakerTimeout:    time.Minute,
	}
}

type fixture struct {
	d     *Dispatcher
	store *memory.Store
}

// newFixture runs a dispatcher and a memory-queue scheduler until the test
// ends.
func newFixture(t *testing.T, cfg config.WebhookConfig) *fixture {
	t.Helper()
	st := memory.New()
	sched := scheduler.New(scheduler.NewMemoryQueue(), scheduler.Config{PollInterval: 10 * time.Millisecond, LeaseTimeout: 5 * time.Second})
	d, err := New(cfg, st, sched)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := sched.Register(scheduler.KindWebhookDeliver, cfg.Workers, d.HandleDeliver); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	if err := sched.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = d.Serve(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
		_ = sched.Stop()
		_ = d.Close()
	})
	return &fixture{d: d, store: st}
}

func (f *fixture) subscribe(t *testing.T, url string, retries int, timeout time.Duration, events ...string) *models.WebhookSubscription {
	t.Helper()
	w, err := f.d.Subscribe(context.Background(), SubscribeParams{
		AppID: "app", URL: url, EventTypes: events, Secret: "s3cret", RetryCount: &retries, Timeout: timeout,
	})
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	return w
}

func (f *fixture) trigger(t *testing.T, typ models.EventType) *models.Event {
	t.Helper()
	e := models.NewEvent(typ, "app", "ch1", "alice", time.Now().UTC())
	e.Message = &models.Message{ID: "m1", ChannelID: "ch1", UserID: "alice", Text: "hi", Status: models.StatusSent}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := f.d.Trigger(ctx, e); err != nil {
		t.Fatalf("Trigger failed: %v", err)
	}
	return e
}

// waitForLogs polls until n delivery rows exist.
func (f *fixture) waitForLogs(t *testing.T, webhookID string, n int, timeout time.Duration) []*models.DeliveryLog {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for {
		logs, err := f.store.ListDeliveryLogs(context.Background(), webhookID, 100)
		if err != nil {
			t.Fatalf("ListDeliveryLogs failed: %v", err)
		}
		if len(logs) >= n || time.Now().After(deadline) {
			return logs
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestSubscribe(t *testing.T) {
	f := newFixture(t, testConfig())
	ctx := context.Background()

	w, err := f.d.Subscribe(ctx, SubscribeParams{AppID: "app", URL: "https://example.test/hook", EventTypes: []string{"message.new", "message.new"}})
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	if len(w.Secret) != 2*secretBytes {
		t.Errorf("Expected generated %d-char secret, got %q", 2*secretBytes, w.Secret)
	}
	if len(w.EventTypes) != 1 || w.RetryCount != 3 || w.TimeoutMs != 1000 || !w.IsActive {
		t.Errorf("Expected defaults applied and duplicates removed, got %+v", w)
	}
	raw, _ := json.Marshal(w)
	if strings.Contains(string(raw), w.Secret) {
		t.Error("Expected secret to be omitted from JSON")
	}

	tooMany := MaxRetryCount + 1
	tests := []struct {
		name string
		p    SubscribeParams
	}{
		{"relative url", SubscribeParams{AppID: "app", URL: "/hook", EventTypes: []string{"message.new"}}},
		{"ftp url", SubscribeParams{AppID: "app", URL: "ftp://example.test", EventTypes: []string{"message.new"}}},
		{"no events", SubscribeParams{AppID: "app", URL: "https://example.test"}},
		{"transient event", SubscribeParams{AppID: "app", URL: "https://example.test", EventTypes: []string{"typing.started"}}},
		{"too many retries", SubscribeParams{AppID: "app", URL: "https://example.test", EventTypes: []string{"message.new"}, RetryCount: &tooMany}},
		{"timeout too long", SubscribeParams{AppID: "app", URL: "https://example.test", EventTypes: []string{"message.new"}, Timeout: time.Hour}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.d.Subscribe(ctx, tt.p); models.KindOf(err) != models.KindValidation {
				t.Errorf("Expected %s, got %v", models.KindValidation, err)
			}
		})
	}

	subs, err := f.d.List(ctx, "app")
	if err != nil || len(subs) != 1 {
		t.Fatalf("Expected 1 subscription, got %d, %v", len(subs), err)
	}
	if _, err := f.d.DeliveryLogs(ctx, "other-app", w.ID, 10); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("Expected NotFound across apps, got %v", err)
	}
	if err := f.d.Unsubscribe(ctx, "app", w.ID); err != nil {
		t.Fatalf("Unsubscribe failed: %v", err)
	}
	subs, _ = f.d.List(ctx, "app")
	if subs[0].IsActive {
		t.Error("Expected subscription to be inactive")
	}
}

func TestDeliverySignedPayload(t *testing.T) {
	f := newFixture(t, testConfig())
	server := testinfra.NewMockWebhookServer(t, "s3cret")
	w := f.subscribe(t, server.URL(), 3, time.Second, "message.new")

	e := f.trigger(t, models.EventMessageNew)
	if !server.WaitForCaptures(1, 2*time.Second) {
		t.Fatal("Expected a delivery")
	}
	c := server.Captures()[0]
	if !c.ValidSig {
		t.Error("Expected a valid signature")
	}
	if got := c.Headers.Get(HeaderEvent); got != "message.new" {
		t.Errorf("Expected event header message.new, got %q", got)
	}
	if got := c.Headers.Get(HeaderID); got != e.ID {
		t.Errorf("Expected id header %s, got %q", e.ID, got)
	}
	if got := c.Headers.Get(HeaderAttempt); got != "0" {
		t.Errorf("Expected attempt header 0, got %q", got)
	}

	var body Payload
	if err := json.Unmarshal(c.Body, &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Event != models.EventMessageNew || body.Data.EventID != e.ID || body.Data.Message == nil || body.Data.Message.ID != "m1" {
		t.Errorf("Unexpected body %s", c.Body)
	}
	if !body.Timestamp.Equal(e.CreatedAt) {
		t.Errorf("Expected timestamp %v, got %v", e.CreatedAt, body.Timestamp)
	}

	logs := f.waitForLogs(t, w.ID, 1, time.Second)
	if len(logs) != 1 || !logs[0].Succeeded() || !logs[0].Final || logs[0].ResponseStatus != http.StatusOK {
		t.Errorf("Expected one final success row, got %+v", logs)
	}
}

func TestRetryBound(t *testing.T) {
	f := newFixture(t, testConfig())
	server := testinfra.NewMockWebhookServer(t, "s3cret")
	server.Hang(time.Second)
	w := f.subscribe(t, server.URL(), 3, 50*time.Millisecond, "message.new")

	f.trigger(t, models.EventMessageNew)
	f.waitForLogs(t, w.ID, 4, 5*time.Second)
	// Nothing further arrives after the final attempt.
	time.Sleep(300 * time.Millisecond)
	logs, _ := f.store.ListDeliveryLogs(context.Background(), w.ID, 100)
	if len(logs) != 4 {
		t.Fatalf("Expected exactly 4 rows, got %d", len(logs))
	}

	// Newest first; walk oldest to newest.
	var prevGap time.Duration
	for i := 3; i >= 0; i-- {
		row := logs[i]
		if row.Attempt != 3-i {
			t.Errorf("Expected attempt %d, got %d", 3-i, row.Attempt)
		}
		if row.Succeeded() || !strings.HasPrefix(row.Error, string(models.KindWebhookDeliveryFailed)) {
			t.Errorf("Expected failed attempt, got %+v", row)
		}
		if row.Final != (row.Attempt == 3) {
			t.Errorf("Expected Final only on attempt 3, got %v on %d", row.Final, row.Attempt)
		}
		if i < 3 {
			gap := row.DeliveredAt.Sub(logs[i+1].DeliveredAt)
			if gap <= prevGap {
				t.Errorf("Expected increasing gaps, got %v after %v", gap, prevGap)
			}
			prevGap = gap
		}
	}
}

func TestRetryThenSucceed(t *testing.T) {
	cfg := testConfig()
	cfg.BaseDelay = 300 * time.Millisecond
	f := newFixture(t, cfg)
	server := testinfra.NewMockWebhookServer(t, "s3cret")
	server.RespondWith(http.StatusBadGateway)
	w := f.subscribe(t, server.URL(), 3, time.Second, "message.new")

	f.trigger(t, models.EventMessageNew)
	f.waitForLogs(t, w.ID, 1, 2*time.Second)
	server.RespondWith(http.StatusNoContent)

	logs := f.waitForLogs(t, w.ID, 2, 2*time.Second)
	if len(logs) < 2 {
		t.Fatalf("Expected a retry, got %d rows", len(logs))
	}
	if logs[0].ResponseStatus != http.StatusNoContent || !logs[0].Final {
		t.Errorf("Expected final 204, got %+v", logs[0])
	}
	if logs[len(logs)-1].ResponseStatus != http.StatusBadGateway {
		t.Errorf("Expected first attempt 502, got %d", logs[len(logs)-1].ResponseStatus)
	}
	captures := server.Captures()
	if captures[0].Headers.Get(HeaderID) != captures[len(captures)-1].Headers.Get(HeaderID) {
		t.Error("Expected the same event id on every attempt")
	}
}

func TestFanoutMatching(t *testing.T) {
	f := newFixture(t, testConfig())
	server := testinfra.NewMockWebhookServer(t, "s3cret")
	reactions := f.subscribe(t, server.URL(), 0, time.Second, "reaction.new")
	inactive := f.subscribe(t, server.URL(), 0, time.Second, "message.new")
	if err := f.d.Unsubscribe(context.Background(), "app", inactive.ID); err != nil {
		t.Fatalf("Unsubscribe failed: %v", err)
	}

	f.trigger(t, models.EventMessageNew)
	f.trigger(t, models.EventReactionNew)

	if !server.WaitForCaptures(1, 2*time.Second) {
		t.Fatal("Expected a delivery")
	}
	time.Sleep(200 * time.Millisecond)
	captures := server.Captures()
	if len(captures) != 1 || captures[0].Headers.Get(HeaderEvent) != "reaction.new" {
		t.Errorf("Expected only the reaction delivery, got %d", len(captures))
	}
	if logs := f.waitForLogs(t, reactions.ID, 1, time.Second); len(logs) != 1 {
		t.Errorf("Expected 1 row, got %d", len(logs))
	}
}

func TestCircuitBreakerOpens(t *testing.T) {
	cfg := testConfig()
	cfg.BreakerFailures = 2
	f := newFixture(t, cfg)
	server := testinfra.NewMockWebhookServer(t, "s3cret")
	server.RespondWith(http.StatusInternalServerError)
	w := f.subscribe(t, server.URL(), 0, time.Second, "message.new")

	for i := 0; i < 3; i++ {
		f.trigger(t, models.EventMessageNew)
		f.waitForLogs(t, w.ID, i+1, 2*time.Second)
	}

	if n := len(server.Captures()); n != 2 {
		t.Errorf("Expected the breaker to stop the third request, got %d requests", n)
	}
	logs, _ := f.store.ListDeliveryLogs(context.Background(), w.ID, 10)
	if len(logs) != 3 || !strings.Contains(logs[0].Error, "circuit breaker is open") {
		t.Errorf("Expected an open-breaker row, got %+v", logs[0])
	}
}

func TestBackoff(t *testing.T) {
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{5, 32 * time.Second},
		{6, time.Minute},
		{100, time.Minute},
	}
	for _, tt := range tests {
		if got := Backoff(tt.attempt, time.Second, time.Minute); got != tt.want {
			t.Errorf("Backoff(%d): expected %v, got %v", tt.attempt, tt.want, got)
		}
	}
}

func TestSign(t *testing.T) {
	// echo -n '{"a":1}' | openssl dgst -sha256 -hmac key
	got := Sign("key", []byte(`{"a":1}`))
	if !strings.HasPrefix(got, "sha256=") || len(got) != len("sha256=")+64 {
		t.Errorf("Expected sha256=<64 hex>, got %q", got)
	}
	if Sign("key", []byte(`{"a":1}`)) != got || Sign("other", []byte(`{"a":1}`)) == got {
		t.Error("Expected signature to depend on secret and be deterministic")
	}
}

func TestActiveSubscriptionCache(t *testing.T) {
	f := newFixture(t, testConfig())
	ctx := context.Background()

	subs, err := f.d.activeSubscriptions(ctx, "app", models.EventMessageNew)
	if err != nil || len(subs) != 0 {
		t.Fatalf("Expected no subscriptions, got %v, %v", subs, err)
	}
	if _, err := f.d.activeSubscriptions(ctx, "app", models.EventMessageNew); err != nil {
		t.Fatalf("activeSubscriptions failed: %v", err)
	}
	if hits, _ := f.d.active.Stats(); hits != 1 {
		t.Errorf("Expected the second lookup to hit the cache, got %d hits", hits)
	}

	w := f.subscribe(t, "https://example.test/hook", 0, time.Second, "message.new")
	subs, _ = f.d.activeSubscriptions(ctx, "app", models.EventMessageNew)
	if len(subs) != 1 || subs[0].ID != w.ID {
		t.Fatalf("Expected Subscribe to invalidate the cache, got %v", subs)
	}

	if err := f.d.Unsubscribe(ctx, "app", w.ID); err != nil {
		t.Fatalf("Unsubscribe failed: %v", err)
	}
	subs, _ = f.d.activeSubscriptions(ctx, "app", models.EventMessageNew)
	if len(subs) != 0 {
		t.Errorf("Expected Unsubscribe to invalidate the cache, got %d", len(subs))
	}
}
