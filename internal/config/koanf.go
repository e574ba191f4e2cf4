// Switchboard - Multi-Tenant Realtime Chat Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/switchboard

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/switchboard/config.yaml",
	"/etc/switchboard/config.yml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// DotEnvPathEnvVar overrides the .env file path.
const DotEnvPathEnvVar = "DOTENV_PATH"

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:              "0.0.0.0",
			Port:              8080,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      15 * time.Second,
			IdleTimeout:       60 * time.Second,
			ShutdownTimeout:   10 * time.Second,
			CORSOrigins:       []string{},
			RateLimitRequests: 600,
			RateLimitWindow:   time.Minute,
		},
		Database: DatabaseConfig{
			Driver: DriverMemory,
		},
		Security: SecurityConfig{
			TokenTTL: 24 * time.Hour,
		},
		Realtime: RealtimeConfig{
			AuthGracePeriod:  10 * time.Second,
			TypingTimeout:    8 * time.Second,
			PresenceDebounce: 5 * time.Second,
			SendQueueSize:    256,
			OverflowPolicy:   OverflowDisconnect,
			InboundRate:      20,
			InboundBurst:     40,
			WriteWait:        10 * time.Second,
			PongWait:         60 * time.Second,
			MaxMessageSize:   64 * 1024,
		},
		Webhook: WebhookConfig{
			Workers:           8,
			BaseDelay:         time.Second,
			MaxDelay:          5 * time.Minute,
			DefaultRetryCount: 3,
			DefaultTimeout:    5 * time.Second,
			BreakerFailures:   5,
			BreakerTimeout:    30 * time.Second,
		},
		Scheduler: SchedulerConfig{
			Driver:       SchedulerMemory,
			BadgerPath:   "/data/scheduler",
			PollInterval: 250 * time.Millisecond,
			LeaseTimeout: time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// LoadWithKoanf loads configuration using Koanf with layered sources:
//  1. Built-in defaults
//  2. Optional YAML config file (CONFIG_PATH or DefaultConfigPaths)
//  3. Environment variables, optionally seeded from a .env file
func LoadWithKoanf() (*Config, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}

	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// loadDotEnv seeds the process environment from a .env file when one exists.
// Variables already set in the environment win.
func loadDotEnv() error {
	path := os.Getenv(DotEnvPathEnvVar)
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// sliceConfigPaths are parsed from comma-separated env values.
var sliceConfigPaths = []string{
	"server.cors_origins",
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings maps environment variable names (lower-cased) to koanf paths.
var envMappings = map[string]string{
	"http_host":             "server.host",
	"http_port":             "server.port",
	"http_read_timeout":     "server.read_timeout",
	"http_write_timeout":    "server.write_timeout",
	"http_idle_timeout":     "server.idle_timeout",
	"http_shutdown_timeout": "server.shutdown_timeout",
	"cors_origins":          "server.cors_origins",
	"rate_limit_requests":   "server.rate_limit_requests",
	"rate_limit_window":     "server.rate_limit_window",

	"database_driver": "database.driver",
	"database_dsn":    "database.dsn",

	"redis_addr":     "redis.addr",
	"redis_password": "redis.password",
	"redis_db":       "redis.db",

	"jwt_secret": "security.jwt_secret",
	"token_ttl":  "security.token_ttl",

	"realtime_auth_grace_period": "realtime.auth_grace_period",
	"realtime_typing_timeout":    "realtime.typing_timeout",
	"realtime_presence_debounce": "realtime.presence_debounce",
	"realtime_send_queue_size":   "realtime.send_queue_size",
	"realtime_overflow_policy":   "realtime.overflow_policy",
	"realtime_inbound_rate":      "realtime.inbound_rate",
	"realtime_inbound_burst":     "realtime.inbound_burst",
	"realtime_write_wait":        "realtime.write_wait",
	"realtime_pong_wait":         "realtime.pong_wait",
	"realtime_max_message_size":  "realtime.max_message_size",

	"webhook_workers":          "webhook.workers",
	"webhook_base_delay":       "webhook.base_delay",
	"webhook_max_delay":        "webhook.max_delay",
	"webhook_retry_count":      "webhook.default_retry_count",
	"webhook_timeout":          "webhook.default_timeout",
	"webhook_nats_url":         "webhook.nats_url",
	"webhook_breaker_failures": "webhook.breaker_failures",
	"webhook_breaker_timeout":  "webhook.breaker_timeout",

	"scheduler_driver":        "scheduler.driver",
	"scheduler_badger_path":   "scheduler.badger_path",
	"scheduler_poll_interval": "scheduler.poll_interval",
	"scheduler_lease_timeout": "scheduler.lease_timeout",

	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc transforms environment variable names to koanf config paths.
// Unmapped variables return "" so unrelated environment does not leak into config.
//
// Examples:
//   - HTTP_PORT -> server.port
//   - REALTIME_TYPING_TIMEOUT -> realtime.typing_timeout
//   - WEBHOOK_RETRY_COUNT -> webhook.default_retry_count
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
