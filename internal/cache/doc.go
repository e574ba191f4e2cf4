// Switchboard - Multi-Tenant Realtime Chat Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/switchboard

// Package cache provides an in-process LRU with TTL expiry.
//
// The webhook dispatcher uses it to memoize active subscription lookups per
// (app, event type) during fan-out. Writers call Purge after changing
// subscriptions; readers that loaded a value before a Purge lose the race
// through AddAt, so a stale list is never stored after an invalidation.
package cache
