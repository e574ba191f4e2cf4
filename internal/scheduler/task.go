// Switchboard - Multi-Tenant Realtime Chat Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/switchboard

package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/goccy/go-json"
)

// Kind identifies which handler runs a task.
type Kind string

// Task kinds.
const (
	KindWebhookDeliver Kind = "webhook.deliver"
	KindScheduledSend  Kind = "message.send_scheduled"
	KindBanExpire      Kind = "ban.expire"
)

// ErrClosed is returned by a queue after Close.
var ErrClosed = errors.New("scheduler queue closed")

// Task is a unit of delayed work.
type Task struct {
	ID      string          `json:"id"`
	Kind    Kind            `json:"kind"`
	RunAt   time.Time       `json:"runAt"`
	Payload json.RawMessage `json:"payload,omitempty"`

	// Attempt is producer-defined; the queue never changes it.
	Attempt int `json:"attempt"`
}

// NewTask builds a task with a JSON-encoded payload.
func NewTask(id string, kind Kind, runAt time.Time, payload any) (*Task, error) {
	if id == "" {
		return nil, errors.New("task id is required")
	}
	t := &Task{ID: id, Kind: kind, RunAt: runAt}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		t.Payload = raw
	}
	return t, nil
}

// Decode unmarshals the payload into v.
func (t *Task) Decode(v any) error {
	if len(t.Payload) == 0 {
		return errors.New("task has no payload")
	}
	return json.Unmarshal(t.Payload, v)
}

// Queue stores pending tasks ordered by RunAt.
type Queue interface {
	// Enqueue adds a task, replacing any pending task with the same ID.
	Enqueue(ctx context.Context, task *Task) error

	// Due returns up to max tasks whose RunAt is not after now and leases
	// them until now+lease. A leased task is not returned again until the
	// lease expires or it is re-enqueued.
	Due(ctx context.Context, now time.Time, max int, lease time.Duration) ([]*Task, error)

	// Ack removes a task. Acking an unknown ID is not an error.
	Ack(ctx context.Context, id string) error

	// Len reports the number of pending and leased tasks.
	Len(ctx context.Context) (int, error)

	Close() error
}
