// Switchboard - Multi-Tenant Realtime Chat Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/switchboard

package realtime

import (
	"sync"
	"time"

	"github.com/tomtom215/switchboard/internal/models"
)

type typingKey struct {
	appID     string
	channelID string
	userID    string
}

type typingEntry struct {
	connID uint64
	shadow bool
	gen    uint64
	timer  *time.Timer
}

// typingTracker expires typing indicators that are not refreshed within
// RealtimeConfig.TypingTimeout. Indicator events are broadcast under mu so a
// started never overtakes the stopped that ends the previous indicator.
type typingTracker struct {
	gw     *Gateway
	mu     sync.Mutex
	active map[typingKey]*typingEntry
	gen    uint64
}

func newTypingTracker(gw *Gateway) *typingTracker {
	return &typingTracker{gw: gw, active: make(map[typingKey]*typingEntry)}
}

// start begins or refreshes an indicator. Only the first start is broadcast.
func (t *typingTracker) start(key typingKey, connID uint64, shadow bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.gen++
	gen := t.gen
	if e := t.active[key]; e != nil {
		e.timer.Stop()
		e.gen = gen
		e.connID = connID
		e.timer = time.AfterFunc(t.gw.cfg.TypingTimeout, func() { t.expire(key, gen) })
		return
	}
	t.active[key] = &typingEntry{
		connID: connID,
		shadow: shadow,
		gen:    gen,
		timer:  time.AfterFunc(t.gw.cfg.TypingTimeout, func() { t.expire(key, gen) }),
	}
	t.broadcastLocked(models.EventTypingStarted, key, shadow)
}

func (t *typingTracker) stop(appID, channelID, userID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopLocked(typingKey{appID, channelID, userID})
}

// stopFor ends an indicator only if connID started or last refreshed it.
func (t *typingTracker) stopFor(key typingKey, connID uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if e := t.active[key]; e != nil && e.connID == connID {
		t.stopLocked(key)
	}
}

func (t *typingTracker) stopLocked(key typingKey) {
	e := t.active[key]
	if e == nil {
		return
	}
	e.timer.Stop()
	delete(t.active, key)
	t.broadcastLocked(models.EventTypingStopped, key, e.shadow)
}

func (t *typingTracker) expire(key typingKey, gen uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if e := t.active[key]; e != nil && e.gen == gen {
		t.stopLocked(key)
	}
}

// dropConn ends the indicators a closed connection started.
func (t *typingTracker) dropConn(connID uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for key, e := range t.active {
		if e.connID == connID {
			t.stopLocked(key)
		}
	}
}

func (t *typingTracker) stopAll() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for key, e := range t.active {
		e.timer.Stop()
		delete(t.active, key)
	}
}

func (t *typingTracker) broadcastLocked(typ models.EventType, key typingKey, shadow bool) {
	e := models.NewEvent(typ, key.appID, key.channelID, key.userID, t.gw.now())
	e.Shadow = shadow
	t.gw.publishTransient(e)
}
