// Switchboard - Multi-Tenant Realtime Chat Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/switchboard

// Package scheduler runs delayed tasks with at-least-once semantics.
//
// A Task is enqueued with a RunAt time. The Scheduler polls its Queue for
// due tasks, leases them for a fixed timeout and hands each to the worker
// pool registered for the task's Kind. A handler that returns nil acks the
// task; a handler that fails leaves the lease to expire, after which the
// task is handed out again. Handlers must therefore be idempotent, and task
// IDs double as idempotency keys: enqueueing an ID that already exists
// replaces the pending task instead of adding a second one.
//
// # Queues
//
//   - MemoryQueue: a min-heap keyed by RunAt, lost on restart
//   - BadgerQueue: BadgerDB-backed, survives restarts
//
// # Task kinds
//
//	webhook.deliver         one webhook delivery attempt
//	message.send_scheduled  fire a scheduled message
//	ban.expire              lift a timed ban
package scheduler
