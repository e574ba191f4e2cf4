// Switchboard - Multi-Tenant Realtime Chat Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/switchboard

package scheduler

import "time"

// heapEntry is a task positioned in a taskHeap.
type heapEntry struct {
	task  *Task
	due   time.Time
	index int // index in the heap array, used for O(log n) updates
}

// taskHeap is a min-heap of tasks ordered by due time, with a parallel
// map for O(1) lookup by task ID. Ties are broken by ID so that tasks due
// at the same instant come out in a stable order.
//
// Not safe for concurrent use; MemoryQueue guards it.
type taskHeap struct {
	heap []*heapEntry
	byID map[string]*heapEntry
}

func newTaskHeap() *taskHeap {
	return &taskHeap{byID: make(map[string]*heapEntry)}
}

// push adds a task due at due, or moves an existing entry with the same ID.
func (h *taskHeap) push(task *Task, due time.Time) {
	if existing, ok := h.byID[task.ID]; ok {
		existing.task = task
		existing.due = due
		h.fix(existing.index)
		return
	}

	entry := &heapEntry{task: task, due: due, index: len(h.heap)}
	h.heap = append(h.heap, entry)
	h.byID[task.ID] = entry
	h.bubbleUp(entry.index)
}

// peek returns the earliest entry or nil.
func (h *taskHeap) peek() *heapEntry {
	if len(h.heap) == 0 {
		return nil
	}
	return h.heap[0]
}

// remove deletes an entry by task ID.
func (h *taskHeap) remove(id string) bool {
	entry, ok := h.byID[id]
	if !ok {
		return false
	}
	h.removeAt(entry.index)
	return true
}

func (h *taskHeap) len() int {
	return len(h.heap)
}

func (h *taskHeap) removeAt(i int) *heapEntry {
	n := len(h.heap) - 1
	entry := h.heap[i]
	delete(h.byID, entry.task.ID)

	if i == n {
		h.heap = h.heap[:n]
		return entry
	}

	h.heap[i] = h.heap[n]
	h.heap[i].index = i
	h.heap = h.heap[:n]
	h.fix(i)
	return entry
}

func (h *taskHeap) less(i, j int) bool {
	a, b := h.heap[i], h.heap[j]
	if a.due.Equal(b.due) {
		return a.task.ID < b.task.ID
	}
	return a.due.Before(b.due)
}

func (h *taskHeap) fix(i int) {
	if h.bubbleUp(i) {
		return
	}
	h.bubbleDown(i)
}

func (h *taskHeap) bubbleUp(i int) bool {
	moved := false
	for i > 0 {
		parent := (i - 1) / 2
		if !h.less(i, parent) {
			break
		}
		h.swap(i, parent)
		i = parent
		moved = true
	}
	return moved
}

func (h *taskHeap) bubbleDown(i int) {
	n := len(h.heap)
	for {
		smallest := i
		left, right := 2*i+1, 2*i+2
		if left < n && h.less(left, smallest) {
			smallest = left
		}
		if right < n && h.less(right, smallest) {
			smallest = right
		}
		if smallest == i {
			return
		}
		h.swap(i, smallest)
		i = smallest
	}
}

func (h *taskHeap) swap(i, j int) {
	h.heap[i], h.heap[j] = h.heap[j], h.heap[i]
	h.heap[i].index = i
	h.heap[j].index = j
}
