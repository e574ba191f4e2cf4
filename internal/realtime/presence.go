// Switchboard - Multi-Tenant Realtime Chat Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/switchboard

package realtime

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	"github.com/tomtom215/switchboard/internal/auth"
	"github.com/tomtom215/switchboard/internal/metrics"
	"github.com/tomtom215/switchboard/internal/models"
)

const presenceShards = 32

// presenceRecord aggregates one user's sessions. gen invalidates pending
// offline timers when the user reconnects.
type presenceRecord struct {
	conns   map[uint64]struct{}
	offline *time.Timer
	gen     uint64
}

type presenceShard struct {
	mu    sync.Mutex
	users map[userKey]*presenceRecord
}

// presenceRegistry tracks which users have at least one authenticated
// session. Transitions for a user are broadcast while its shard is locked,
// so observers see online and offline strictly alternate.
type presenceRegistry struct {
	gw     *Gateway
	shards [presenceShards]presenceShard
}

func newPresenceRegistry(gw *Gateway) *presenceRegistry {
	p := &presenceRegistry{gw: gw}
	for i := range p.shards {
		p.shards[i].users = make(map[userKey]*presenceRecord)
	}
	return p
}

func (p *presenceRegistry) shard(key userKey) *presenceShard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key.appID))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(key.userID))
	return &p.shards[h.Sum32()%presenceShards]
}

// connect records a session. The first session of an offline user announces
// the user online; a session that arrives during the offline debounce
// cancels it silently.
func (p *presenceRegistry) connect(id *auth.Identity, connID uint64) {
	key := userKey{id.AppID, id.UserID}
	channelIDs := p.channelsOf(key)

	s := p.shard(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.users[key]
	if rec == nil {
		rec = &presenceRecord{conns: make(map[uint64]struct{})}
		s.users[key] = rec
		rec.conns[connID] = struct{}{}
		p.announce(key, models.PresenceOnline, channelIDs)
		return
	}
	rec.conns[connID] = struct{}{}
	if rec.offline != nil {
		rec.offline.Stop()
		rec.offline = nil
		rec.gen++
	}
}

// disconnect drops a session. When the last one goes, the user is announced
// offline after the debounce window unless a new session arrives first.
func (p *presenceRegistry) disconnect(id *auth.Identity, connID uint64) {
	key := userKey{id.AppID, id.UserID}
	s := p.shard(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.users[key]
	if rec == nil {
		return
	}
	delete(rec.conns, connID)
	if len(rec.conns) > 0 {
		return
	}
	rec.gen++
	gen := rec.gen
	rec.offline = time.AfterFunc(p.gw.cfg.PresenceDebounce, func() { p.expire(key, gen) })
}

func (p *presenceRegistry) expire(key userKey, gen uint64) {
	channelIDs := p.channelsOf(key)

	s := p.shard(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.users[key]
	if rec == nil || rec.gen != gen || len(rec.conns) > 0 {
		return
	}
	delete(s.users, key)
	p.announce(key, models.PresenceOffline, channelIDs)
}

// Status reports a user's aggregate presence.
func (p *presenceRegistry) Status(appID, userID string) models.PresenceStatus {
	key := userKey{appID, userID}
	s := p.shard(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[key]; ok {
		return models.PresenceOnline
	}
	return models.PresenceOffline
}

func (p *presenceRegistry) channelsOf(key userKey) []string {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	ids, err := p.gw.members.UserChannelIDs(ctx, key.appID, key.userID)
	if err != nil {
		p.gw.logger.Warn().Err(err).Str("user_id", key.userID).Msg("presence fan-out skipped")
		return nil
	}
	return ids
}

// announce sends a presence frame to every other session subscribed to one
// of the user's channels, at most once per session.
func (p *presenceRegistry) announce(key userKey, status models.PresenceStatus, channelIDs []string) {
	metrics.PresenceTransitions.WithLabelValues(string(status)).Inc()

	e := models.NewEvent(models.EventPresenceChanged, key.appID, "", key.userID, p.gw.now())
	e.Status = status
	b, err := encode(Frame{Type: string(e.Type), Data: e})
	if err != nil {
		return
	}

	seen := make(map[*Conn]struct{})
	p.gw.roomsMu.RLock()
	defer p.gw.roomsMu.RUnlock()
	for _, chID := range channelIDs {
		r := p.gw.rooms[chID]
		if r == nil {
			continue
		}
		r.mu.Lock()
		for _, c := range sortedConns(r.conns) {
			if _, ok := seen[c]; ok {
				continue
			}
			seen[c] = struct{}{}
			id := c.Identity()
			if id == nil || id.AppID != key.appID || id.UserID == key.userID {
				continue
			}
			c.enqueuePresence(key.userID, string(status), b)
		}
		r.mu.Unlock()
	}
}

func (p *presenceRegistry) stopTimers() {
	for i := range p.shards {
		s := &p.shards[i]
		s.mu.Lock()
		for _, rec := range s.users {
			if rec.offline != nil {
				rec.offline.Stop()
			}
		}
		s.mu.Unlock()
	}
}
