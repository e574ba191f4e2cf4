// Switchboard - Multi-Tenant Realtime Chat Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/switchboard

package scheduler

import (
	"context"
	"sync"
	"time"
)

// MemoryQueue is an in-process Queue. Leasing a task moves it forward in
// the heap to its lease expiry, so an unacked task simply becomes due again.
type MemoryQueue struct {
	mu     sync.Mutex
	heap   *taskHeap
	closed bool
}

var _ Queue = (*MemoryQueue)(nil)

// NewMemoryQueue creates an empty in-memory queue.
func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{heap: newTaskHeap()}
}

// Enqueue implements Queue.
func (q *MemoryQueue) Enqueue(_ context.Context, task *Task) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrClosed
	}
	cp := *task
	q.heap.push(&cp, cp.RunAt)
	return nil
}

// Due implements Queue.
func (q *MemoryQueue) Due(_ context.Context, now time.Time, max int, lease time.Duration) ([]*Task, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil, ErrClosed
	}

	var out []*Task
	for len(out) < max {
		top := q.heap.peek()
		if top == nil || top.due.After(now) {
			break
		}
		cp := *top.task
		out = append(out, &cp)
		q.heap.push(top.task, now.Add(lease))
	}
	return out, nil
}

// Ack implements Queue.
func (q *MemoryQueue) Ack(_ context.Context, id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrClosed
	}
	q.heap.remove(id)
	return nil
}

// Len implements Queue.
func (q *MemoryQueue) Len(_ context.Context) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.heap.len(), nil
}

// Close implements Queue.
func (q *MemoryQueue) Close() error {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	return nil
}
