// Switchboard - Multi-Tenant Realtime Chat Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/switchboard

package main

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/switchboard/internal/auth"
	"github.com/tomtom215/switchboard/internal/config"
	"github.com/tomtom215/switchboard/internal/logging"
	"github.com/tomtom215/switchboard/internal/models"
	"github.com/tomtom215/switchboard/internal/supervisor"
	"github.com/tomtom215/switchboard/internal/webhook"
)

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Host: "127.0.0.1", Port: 0,
			ReadTimeout: 5 * time.Second, WriteTimeout: 5 * time.Second,
			ShutdownTimeout: time.Second,
		},
		Database: config.DatabaseConfig{Driver: config.DriverMemory},
		Security: config.SecurityConfig{JWTSecret: strings.Repeat("s", 32), TokenTTL: time.Hour},
		Realtime: config.RealtimeConfig{
			AuthGracePeriod: time.Second, TypingTimeout: time.Second, PresenceDebounce: time.Second,
			SendQueueSize: 16, OverflowPolicy: config.OverflowDisconnect,
			InboundRate: 10, InboundBurst: 10,
			WriteWait: time.Second, PongWait: 10 * time.Second, MaxMessageSize: 4096,
		},
		Webhook: config.WebhookConfig{
			Workers: 2, BaseDelay: 50 * time.Millisecond, MaxDelay: time.Second,
			DefaultRetryCount: 1, DefaultTimeout: time.Second,
			BreakerFailures: 5, BreakerTimeout: time.Minute,
		},
		Scheduler: config.SchedulerConfig{
			Driver: config.SchedulerMemory, PollInterval: 10 * time.Millisecond, LeaseTimeout: 5 * time.Second,
		},
	}
}

func TestNewAppRejectsShortSecret(t *testing.T) {
	cfg := testConfig()
	cfg.Security.JWTSecret = "short"
	if _, err := newApp(context.Background(), cfg); err == nil {
		t.Fatal("Expected error for short JWT secret")
	}
}

func TestNewAppBadgerQueue(t *testing.T) {
	cfg := testConfig()
	cfg.Scheduler.Driver = config.SchedulerBadger
	cfg.Scheduler.BadgerPath = filepath.Join(t.TempDir(), "tasks")

	a, err := newApp(context.Background(), cfg)
	if err != nil {
		t.Fatalf("newApp failed: %v", err)
	}
	if n, err := a.queue.Len(context.Background()); err != nil || n != 0 {
		t.Errorf("Expected empty queue, got %d, %v", n, err)
	}
	if err := a.close(); err != nil {
		t.Errorf("close failed: %v", err)
	}
}

type call struct {
	t      *testing.T
	base   string
	tokens *auth.TokenManager
}

// backendUser calls with a server-scoped token.
const backendUser = "backend"

func (c *call) do(user, method, path string, body any, wantStatus int, out any) {
	c.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			c.t.Fatalf("marshal: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req, _ := http.NewRequest(method, c.base+path, reader)
	scope := ""
	if user == backendUser {
		scope = auth.ScopeServer
	}
	token, err := c.tokens.IssueScoped("app", user, scope)
	if err != nil {
		c.t.Fatalf("Issue failed: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		c.t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != wantStatus {
		c.t.Fatalf("%s %s: Expected %d, got %d: %s", method, path, wantStatus, resp.StatusCode, raw)
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			c.t.Fatalf("decode %s: %v", raw, err)
		}
	}
}

func TestAppEndToEnd(t *testing.T) {
	cfg := testConfig()
	ctx, cancel := context.WithCancel(context.Background())

	a, err := newApp(ctx, cfg)
	if err != nil {
		t.Fatalf("newApp failed: %v", err)
	}

	// The tree's own listener binds an ephemeral port; requests go through
	// httptest with the same handler.
	a.server.Addr = "127.0.0.1:0"
	tree := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{ShutdownTimeout: time.Second})
	a.supervise(tree, time.Second)
	srv := httptest.NewServer(a.server.Handler)
	errCh := tree.ServeBackground(ctx)
	t.Cleanup(func() {
		srv.Close()
		cancel()
		select {
		case <-errCh:
		case <-time.After(5 * time.Second):
			t.Error("tree did not stop")
		}
		_ = a.close()
	})

	received := make(chan []byte, 4)
	hook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if r.Header.Get(webhook.HeaderSignature) == "" {
			t.Error("Expected signature header")
		}
		received <- body
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(hook.Close)

	tokens, err := auth.NewTokenManager(&cfg.Security)
	if err != nil {
		t.Fatalf("NewTokenManager failed: %v", err)
	}
	c := &call{t: t, base: srv.URL, tokens: tokens}

	c.do(backendUser, http.MethodPost, "/webhooks", map[string]any{
		"url": hook.URL, "events": []string{string(models.EventMessageNew)},
	}, http.StatusCreated, nil)

	var ch models.Channel
	c.do("alice", http.MethodPost, "/channels", map[string]any{"type": "group", "members": []string{"bob"}}, http.StatusCreated, &ch)

	var msg models.Message
	c.do("bob", http.MethodPost, "/channels/"+ch.ID+"/messages", map[string]any{"text": "hi alice"}, http.StatusCreated, &msg)

	select {
	case body := <-received:
		var p webhook.Payload
		if err := json.Unmarshal(body, &p); err != nil {
			t.Fatalf("decode webhook body: %v", err)
		}
		if p.Event != models.EventMessageNew || p.Data.Message == nil || p.Data.Message.ID != msg.ID {
			t.Errorf("Expected message.new for %s, got %s", msg.ID, body)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("webhook was not delivered")
	}

	var unread struct {
		UnreadCount int `json:"unreadCount"`
	}
	c.do("alice", http.MethodGet, "/channels/"+ch.ID+"/unread", nil, http.StatusOK, &unread)
	if unread.UnreadCount != 1 {
		t.Errorf("Expected 1 unread for alice, got %d", unread.UnreadCount)
	}
}
