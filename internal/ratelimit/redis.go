// Switchboard - Multi-Tenant Realtime Chat Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/switchboard

package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tomtom215/switchboard/internal/logging"
)

const redisKeyPrefix = "switchboard:slowmode:"

// slowModeScript claims the cooldown slot or reports the remaining TTL.
var slowModeScript = redis.NewScript(`
if redis.call('SET', KEYS[1], '1', 'NX', 'PX', ARGV[1]) then
    return {1, 0}
end
return {0, redis.call('PTTL', KEYS[1])}
`)

// RedisLimiter keeps cooldown slots in Redis so every node shares them.
type RedisLimiter struct {
	cli *redis.Client
}

var _ Limiter = (*RedisLimiter)(nil)

// ConnectRedis connects to Redis and pings the server to ensure the
// connection is working.
func ConnectRedis(ctx context.Context, addr, password string, db int) (*RedisLimiter, error) {
	cli := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := cli.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &RedisLimiter{cli: cli}, nil
}

// NewRedisLimiter wraps an existing client.
func NewRedisLimiter(cli *redis.Client) *RedisLimiter {
	return &RedisLimiter{cli: cli}
}

// Admit implements Limiter. Redis errors fail open: the send is admitted and
// a warning is logged, so a Redis outage degrades slow mode instead of
// blocking every channel.
func (r *RedisLimiter) Admit(ctx context.Context, channelID, userID string, cooldown time.Duration) (Decision, error) {
	if cooldown <= 0 {
		return Decision{Allowed: true}, nil
	}

	res, err := slowModeScript.Run(ctx, r.cli, []string{redisKeyPrefix + key(channelID, userID)},
		cooldown.Milliseconds(),
	).Int64Slice()
	if err != nil {
		logging.Warn().Err(err).Str("channel_id", channelID).Msg("Slow mode check failed, admitting send")
		return Decision{Allowed: true}, nil
	}

	if res[0] == 1 {
		return Decision{Allowed: true}, nil
	}
	retry := time.Duration(res[1]) * time.Millisecond
	if retry <= 0 {
		retry = time.Millisecond
	}
	return Decision{RetryAfter: retry}, nil
}

// Ping checks Redis connectivity.
func (r *RedisLimiter) Ping(ctx context.Context) error {
	return r.cli.Ping(ctx).Err()
}

// Close closes the Redis client.
func (r *RedisLimiter) Close() error {
	return r.cli.Close()
}
