// Switchboard - Multi-Tenant Realtime Chat Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/switchboard

/*
Package message implements the message pipeline: send, edit, delete, threads,
pins, reactions, read state and cursor-paginated history.

# Ordering

Every mutation runs under the channel's lock from events.ChannelLocks, which
is shared with the channel manager. The lock is held across the storage
commit and the Publish call, so subscribers observe events of one channel in
commit order. Reads (history, replies, unread counts) never take the lock.

# Send

Send validates in a fixed order:

 1. the caller is a member and not banned
 2. the channel is not frozen
 3. the slow mode limiter admits the send
 4. the parent and quoted messages exist in the same channel

Validation failures are returned as typed errors. Once admitted, a send
always resolves: a storage failure yields the message with status failed and
a nil error, so clients can render it as unsent.

Messages from shadow-banned members are persisted with Shadowed set; their
events reach only the author and are never offered to webhooks.

# Scheduled sends

ScheduleSend stores a pending message and registers a scheduler task keyed by
the message id. HandleScheduledSend re-runs the send validation at fire time
and is idempotent: a message that is no longer pending is left untouched.
*/
package message
