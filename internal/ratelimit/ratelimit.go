// Switchboard - Multi-Tenant Realtime Chat Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/switchboard

// Package ratelimit enforces slow mode: a per-(channel, user) cooldown
// between accepted sends.
//
// Admission is a single atomic check-and-set. Two concurrent sends from the
// same user to the same channel can never both be admitted within one
// cooldown window, whichever implementation is used:
//
//   - MemoryLimiter: sharded mutex-guarded map, single process
//   - RedisLimiter: SET NX PX in one round trip, shared across nodes
package ratelimit

import (
	"context"
	"time"
)

// Decision is the outcome of an admission check.
type Decision struct {
	Allowed bool

	// RetryAfter is the remaining cooldown when Allowed is false.
	RetryAfter time.Duration
}

// Limiter admits or rejects a send. A zero cooldown always admits.
type Limiter interface {
	Admit(ctx context.Context, channelID, userID string, cooldown time.Duration) (Decision, error)
}

func key(channelID, userID string) string {
	return channelID + ":" + userID
}
