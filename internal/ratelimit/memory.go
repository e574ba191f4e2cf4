// Switchboard - Multi-Tenant Realtime Chat Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/switchboard

package ratelimit

import (
	"context"
	"hash/fnv"
	"sync"
	"time"
)

const (
	shardCount = 64

	// sweepThreshold bounds a shard's size before expired entries are purged.
	sweepThreshold = 1024
)

type shard struct {
	mu    sync.Mutex
	until map[string]time.Time
}

// MemoryLimiter keeps cooldown deadlines in process memory.
type MemoryLimiter struct {
	shards [shardCount]*shard
	now    func() time.Time
}

var _ Limiter = (*MemoryLimiter)(nil)

// NewMemoryLimiter creates a limiter using the wall clock.
func NewMemoryLimiter() *MemoryLimiter {
	return NewMemoryLimiterWithClock(time.Now)
}

// NewMemoryLimiterWithClock creates a limiter with an injected clock.
func NewMemoryLimiterWithClock(now func() time.Time) *MemoryLimiter {
	l := &MemoryLimiter{now: now}
	for i := range l.shards {
		l.shards[i] = &shard{until: make(map[string]time.Time)}
	}
	return l
}

func (l *MemoryLimiter) shardFor(k string) *shard {
	h := fnv.New32a()
	h.Write([]byte(k))
	return l.shards[h.Sum32()%shardCount]
}

// Admit implements Limiter.
func (l *MemoryLimiter) Admit(_ context.Context, channelID, userID string, cooldown time.Duration) (Decision, error) {
	if cooldown <= 0 {
		return Decision{Allowed: true}, nil
	}

	k := key(channelID, userID)
	s := l.shardFor(k)
	now := l.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if until, ok := s.until[k]; ok && now.Before(until) {
		return Decision{RetryAfter: until.Sub(now)}, nil
	}
	if len(s.until) >= sweepThreshold {
		for other, until := range s.until {
			if !now.Before(until) {
				delete(s.until, other)
			}
		}
	}
	s.until[k] = now.Add(cooldown)
	return Decision{Allowed: true}, nil
}
