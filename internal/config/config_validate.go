// Switchboard - Multi-Tenant Realtime Chat Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/switchboard

package config

import (
	"fmt"
	"strings"
)

// minJWTSecretLength is the shortest HS256 secret accepted.
const minJWTSecretLength = 32

// Validate checks that required configuration is present and valid
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateDatabase(); err != nil {
		return err
	}
	if err := c.validateSecurity(); err != nil {
		return err
	}
	if err := c.validateRealtime(); err != nil {
		return err
	}
	if err := c.validateWebhook(); err != nil {
		return err
	}
	if err := c.validateScheduler(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.RateLimitRequests < 0 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must not be negative")
	}
	if c.Server.RateLimitRequests > 0 && c.Server.RateLimitWindow <= 0 {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be positive when rate limiting is enabled")
	}
	return nil
}

func (c *Config) validateDatabase() error {
	switch c.Database.Driver {
	case DriverMemory:
		return nil
	case DriverPostgres:
		if c.Database.DSN == "" {
			return fmt.Errorf("DATABASE_DSN is required when DATABASE_DRIVER=postgres")
		}
		return nil
	default:
		return fmt.Errorf("DATABASE_DRIVER must be one of memory, postgres; got %q", c.Database.Driver)
	}
}

func (c *Config) validateSecurity() error {
	if len(c.Security.JWTSecret) < minJWTSecretLength {
		return fmt.Errorf("JWT_SECRET must be at least %d characters", minJWTSecretLength)
	}
	if c.Security.TokenTTL <= 0 {
		return fmt.Errorf("TOKEN_TTL must be positive")
	}
	return nil
}

func (c *Config) validateRealtime() error {
	r := c.Realtime
	if r.TypingTimeout <= 0 {
		return fmt.Errorf("REALTIME_TYPING_TIMEOUT must be positive")
	}
	if r.AuthGracePeriod <= 0 {
		return fmt.Errorf("REALTIME_AUTH_GRACE_PERIOD must be positive")
	}
	if r.PresenceDebounce < 0 {
		return fmt.Errorf("REALTIME_PRESENCE_DEBOUNCE must not be negative")
	}
	if r.SendQueueSize < 1 {
		return fmt.Errorf("REALTIME_SEND_QUEUE_SIZE must be at least 1")
	}
	if r.OverflowPolicy != OverflowDropOldest && r.OverflowPolicy != OverflowDisconnect {
		return fmt.Errorf("REALTIME_OVERFLOW_POLICY must be %s or %s; got %q",
			OverflowDropOldest, OverflowDisconnect, r.OverflowPolicy)
	}
	if r.PongWait <= 0 || r.WriteWait <= 0 {
		return fmt.Errorf("REALTIME_PONG_WAIT and REALTIME_WRITE_WAIT must be positive")
	}
	return nil
}

func (c *Config) validateWebhook() error {
	w := c.Webhook
	if w.Workers < 1 {
		return fmt.Errorf("WEBHOOK_WORKERS must be at least 1")
	}
	if w.BaseDelay <= 0 || w.MaxDelay < w.BaseDelay {
		return fmt.Errorf("WEBHOOK_BASE_DELAY must be positive and not exceed WEBHOOK_MAX_DELAY")
	}
	if w.DefaultRetryCount < 0 {
		return fmt.Errorf("WEBHOOK_RETRY_COUNT must not be negative")
	}
	if w.DefaultTimeout <= 0 {
		return fmt.Errorf("WEBHOOK_TIMEOUT must be positive")
	}
	if w.NATSURL != "" && !strings.HasPrefix(w.NATSURL, "nats://") && !strings.HasPrefix(w.NATSURL, "tls://") {
		return fmt.Errorf("WEBHOOK_NATS_URL must use the nats:// or tls:// scheme")
	}
	return nil
}

func (c *Config) validateScheduler() error {
	switch c.Scheduler.Driver {
	case SchedulerMemory:
	case SchedulerBadger:
		if c.Scheduler.BadgerPath == "" {
			return fmt.Errorf("SCHEDULER_BADGER_PATH is required when SCHEDULER_DRIVER=badger")
		}
	default:
		return fmt.Errorf("SCHEDULER_DRIVER must be one of memory, badger; got %q", c.Scheduler.Driver)
	}
	if c.Scheduler.PollInterval <= 0 {
		return fmt.Errorf("SCHEDULER_POLL_INTERVAL must be positive")
	}
	if c.Scheduler.LeaseTimeout <= 0 {
		return fmt.Errorf("SCHEDULER_LEASE_TIMEOUT must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Level) {
	case "trace", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("LOG_LEVEL must be one of trace, debug, info, warn, error; got %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "console":
		return nil
	default:
		return fmt.Errorf("LOG_FORMAT must be json or console; got %q", c.Logging.Format)
	}
}
