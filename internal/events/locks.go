// Switchboard - Multi-Tenant Realtime Chat Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/switchboard

package events

import "sync"

// ChannelLocks hands out one mutex per channel id. Holding a channel's lock
// across commit and Publish makes subscribers observe that channel's events
// in commit order while other channels proceed in parallel.
//
// Entries are reference counted and freed when the last holder unlocks, so
// idle channels cost nothing.
type ChannelLocks struct {
	mu    sync.Mutex
	locks map[string]*channelLock
}

type channelLock struct {
	mu   sync.Mutex
	refs int
}

// NewChannelLocks creates an empty lock table.
func NewChannelLocks() *ChannelLocks {
	return &ChannelLocks{locks: make(map[string]*channelLock)}
}

// Lock blocks until the channel's lock is held and returns its release func.
func (l *ChannelLocks) Lock(channelID string) (unlock func()) {
	l.mu.Lock()
	cl, ok := l.locks[channelID]
	if !ok {
		cl = &channelLock{}
		l.locks[channelID] = cl
	}
	cl.refs++
	l.mu.Unlock()

	cl.mu.Lock()
	return func() {
		cl.mu.Unlock()
		l.mu.Lock()
		cl.refs--
		if cl.refs == 0 {
			delete(l.locks, channelID)
		}
		l.mu.Unlock()
	}
}

func (l *ChannelLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
