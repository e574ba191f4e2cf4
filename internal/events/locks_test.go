// Switchboard - Multi-Tenant Realtime Chat Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/switchboard

package events

import (
	"sync"
	"testing"
	"time"
)

func TestChannelLocks_SerializesSameChannel(t *testing.T) {
	locks := NewChannelLocks()

	var mu sync.Mutex
	inside := 0
	maxInside := 0
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locks.Lock("c1")
			mu.Lock()
			inside++
			if inside > maxInside {
				maxInside = inside
			}
			mu.Unlock()
			time.Sleep(time.Millisecond)
			mu.Lock()
			inside--
			mu.Unlock()
			unlock()
		}()
	}
	wg.Wait()

	if maxInside != 1 {
		t.Errorf("Expected at most 1 holder, got %d", maxInside)
	}
	if n := locks.size(); n != 0 {
		t.Errorf("Expected lock table to be empty, got %d", n)
	}
}

func TestChannelLocks_IndependentChannels(t *testing.T) {
	locks := NewChannelLocks()
	unlock := locks.Lock("c1")
	defer unlock()

	done := make(chan struct{})
	go func() {
		release := locks.Lock("c2")
		release()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Expected lock on another channel not to block")
	}
}
