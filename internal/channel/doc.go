// Switchboard - Multi-Tenant Realtime Chat Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/switchboard

// Package channel implements channel and membership management.
//
// The Manager owns channel creation (including distinct-channel
// deduplication), membership, roles, moderation state (freeze, truncate,
// slow mode, bans) and deletion. Role checks go through internal/authz.
// Every mutation is committed and published while the channel's lock from
// events.ChannelLocks is held, so membership events interleave with message
// events in commit order.
//
// Distinct channels are identified by their normalized member set. Creating
// one that already exists returns the existing channel; a concurrent create
// that loses the race on the store's uniqueness constraint re-reads and
// returns the winner, so the operation is idempotent under concurrency.
//
// Timed bans schedule a ban.expire task. The ban is also treated as lifted
// as soon as BanExpiresAt passes, whether or not the task has run.
package channel
