// Switchboard - Multi-Tenant Realtime Chat Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/switchboard

package testinfra

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

// WebhookCapture represents a captured webhook request.
type WebhookCapture struct {
	Method     string
	Path       string
	Headers    http.Header
	Body       []byte
	ValidSig   bool
	ReceivedAt time.Time
}

// MockWebhookServer provides a mock HTTP server for testing webhook deliveries.
// It captures all incoming requests for verification.
type MockWebhookServer struct {
	Server *httptest.Server
	Secret string

	mu       sync.Mutex
	captures []WebhookCapture
	status   int
	delay    time.Duration
}

// NewMockWebhookServer creates a mock webhook receiver that verifies
// signatures with secret. The server is closed when the test ends.
func NewMockWebhookServer(t *testing.T, secret string) *MockWebhookServer {
	t.Helper()

	m := &MockWebhookServer{Secret: secret, status: http.StatusOK}
	m.Server = httptest.NewServer(http.HandlerFunc(m.handle))
	t.Cleanup(m.Server.Close)
	return m
}

func (m *MockWebhookServer) handle(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	r.Body.Close()

	m.mu.Lock()
	m.captures = append(m.captures, WebhookCapture{
		Method:     r.Method,
		Path:       r.URL.Path,
		Headers:    r.Header.Clone(),
		Body:       body,
		ValidSig:   m.verify(r.Header.Get("X-Webhook-Signature"), body),
		ReceivedAt: time.Now(),
	})
	status, delay := m.status, m.delay
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}
	}
	w.WriteHeader(status)
}

func (m *MockWebhookServer) verify(header string, body []byte) bool {
	mac := hmac.New(sha256.New, []byte(m.Secret))
	mac.Write(body)
	want := "sha256=" + hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(header), []byte(want))
}

// URL returns the server URL.
func (m *MockWebhookServer) URL() string {
	return m.Server.URL
}

// RespondWith sets the status code returned to subsequent requests.
func (m *MockWebhookServer) RespondWith(status int) {
	m.mu.Lock()
	m.status = status
	m.mu.Unlock()
}

// Hang delays every response by d, which makes deliveries time out.
func (m *MockWebhookServer) Hang(d time.Duration) {
	m.mu.Lock()
	m.delay = d
	m.mu.Unlock()
}

// Captures returns all captured requests.
func (m *MockWebhookServer) Captures() []WebhookCapture {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]WebhookCapture, len(m.captures))
	copy(out, m.captures)
	return out
}

// WaitForCaptures waits until at least n requests are captured or timeout.
func (m *MockWebhookServer) WaitForCaptures(n int, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		m.mu.Lock()
		count := len(m.captures)
		m.mu.Unlock()
		if count >= n {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return false
}
