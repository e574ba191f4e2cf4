// Switchboard - Multi-Tenant Realtime Chat Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/switchboard

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const testSecret = "this_is_a_very_long_secret_key_with_32_plus_characters"

// isolateEnv points config discovery at an empty temp directory so that files
// in the working tree cannot influence the test.
func isolateEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv(ConfigPathEnvVar, filepath.Join(dir, "missing.yaml"))
	t.Setenv(DotEnvPathEnvVar, filepath.Join(dir, "missing.env"))
	t.Chdir(dir)
	return dir
}

func TestLoadDefaults(t *testing.T) {
	isolateEnv(t)
	t.Setenv("JWT_SECRET", testSecret)

	cfg, err := LoadWithKoanf()
	if err != nil {
		t.Fatalf("LoadWithKoanf() error = %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Realtime.TypingTimeout != 8*time.Second {
		t.Errorf("Expected typing timeout 8s, got %v", cfg.Realtime.TypingTimeout)
	}
	if cfg.Webhook.DefaultRetryCount != 3 {
		t.Errorf("Expected default retry count 3, got %d", cfg.Webhook.DefaultRetryCount)
	}
	if cfg.Database.Driver != DriverMemory {
		t.Errorf("Expected memory driver, got %s", cfg.Database.Driver)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	isolateEnv(t)
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("REALTIME_TYPING_TIMEOUT", "3s")
	t.Setenv("REALTIME_OVERFLOW_POLICY", "drop_oldest")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("UNRELATED_VARIABLE", "ignored")

	cfg, err := LoadWithKoanf()
	if err != nil {
		t.Fatalf("LoadWithKoanf() error = %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Expected port 9090, got %d", cfg.Server.Port)
	}
	if cfg.Realtime.TypingTimeout != 3*time.Second {
		t.Errorf("Expected typing timeout 3s, got %v", cfg.Realtime.TypingTimeout)
	}
	if cfg.Realtime.OverflowPolicy != OverflowDropOldest {
		t.Errorf("Expected drop_oldest, got %s", cfg.Realtime.OverflowPolicy)
	}
	if len(cfg.Server.CORSOrigins) != 2 || cfg.Server.CORSOrigins[1] != "https://b.example" {
		t.Errorf("Expected two trimmed CORS origins, got %v", cfg.Server.CORSOrigins)
	}
}

func TestLoadConfigFileAndDotEnv(t *testing.T) {
	dir := isolateEnv(t)

	yamlPath := filepath.Join(dir, "config.yaml")
	yamlBody := "server:\n  port: 7000\nwebhook:\n  workers: 2\n"
	if err := os.WriteFile(yamlPath, []byte(yamlBody), 0o600); err != nil {
		t.Fatal(err)
	}
	envPath := filepath.Join(dir, "test.env")
	if err := os.WriteFile(envPath, []byte("JWT_SECRET="+testSecret+"\nWEBHOOK_WORKERS=6\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(ConfigPathEnvVar, yamlPath)
	t.Setenv(DotEnvPathEnvVar, envPath)
	t.Cleanup(func() {
		os.Unsetenv("JWT_SECRET")
		os.Unsetenv("WEBHOOK_WORKERS")
	})

	cfg, err := LoadWithKoanf()
	if err != nil {
		t.Fatalf("LoadWithKoanf() error = %v", err)
	}

	if cfg.Server.Port != 7000 {
		t.Errorf("Expected port from file 7000, got %d", cfg.Server.Port)
	}
	if cfg.Webhook.Workers != 6 {
		t.Errorf("Expected env to override file workers, got %d", cfg.Webhook.Workers)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"short secret", func(c *Config) { c.Security.JWTSecret = "short" }, "JWT_SECRET"},
		{"bad port", func(c *Config) { c.Server.Port = 0 }, "HTTP_PORT"},
		{"postgres without dsn", func(c *Config) { c.Database.Driver = DriverPostgres }, "DATABASE_DSN"},
		{"unknown driver", func(c *Config) { c.Database.Driver = "mongo" }, "DATABASE_DRIVER"},
		{"bad overflow", func(c *Config) { c.Realtime.OverflowPolicy = "block" }, "OVERFLOW_POLICY"},
		{"zero queue", func(c *Config) { c.Realtime.SendQueueSize = 0 }, "SEND_QUEUE_SIZE"},
		{"max below base", func(c *Config) { c.Webhook.MaxDelay = time.Millisecond }, "WEBHOOK_BASE_DELAY"},
		{"bad nats url", func(c *Config) { c.Webhook.NATSURL = "http://nats" }, "WEBHOOK_NATS_URL"},
		{"badger without path", func(c *Config) {
			c.Scheduler.Driver = SchedulerBadger
			c.Scheduler.BadgerPath = ""
		}, "SCHEDULER_BADGER_PATH"},
		{"zero lease", func(c *Config) { c.Scheduler.LeaseTimeout = 0 }, "SCHEDULER_LEASE_TIMEOUT"},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, "LOG_FORMAT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			cfg.Security.JWTSecret = testSecret
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want mention of %s", err, tt.wantErr)
			}
		})
	}
}

func TestEnvTransformFunc(t *testing.T) {
	tests := map[string]string{
		"HTTP_PORT":           "server.port",
		"WEBHOOK_RETRY_COUNT": "webhook.default_retry_count",
		"log_level":           "logging.level",
		"PATH":                "",
	}
	for in, want := range tests {
		if got := envTransformFunc(in); got != want {
			t.Errorf("envTransformFunc(%q) = %q, want %q", in, got, want)
		}
	}
}
