// LibreShare - LibreLinkUp to Dexcom Share Bridge
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/libreshare

package config

import (
	"time"

	"github.com/tomtom215/libreshare/internal/dexcom"
	"github.com/tomtom215/libreshare/internal/libre"
	"github.com/tomtom215/libreshare/internal/logging"
	"github.com/tomtom215/libreshare/internal/sync"
)

const (
	// libreRequestsPerCycle covers login, a regional redirect, the
	// connections list and the graph.
	libreRequestsPerCycle = 4

	assumedRequestTime = 30 * time.Second
	cycleBudgetMargin  = 10 * time.Second
)

// Config holds all application configuration loaded from defaults, an
// optional YAML file, an optional .env file and environment variables.
//
// Configuration Loading Order (Koanf v2):
//  1. Defaults: Built-in defaults for all optional settings
//  2. Config File: Optional YAML config file (config.yaml)
//  3. .env File: Merged into the process environment; existing variables win
//  4. Environment Variables: Override any setting
type Config struct {
	Libre   LibreConfig   `koanf:"libre"`
	Dexcom  DexcomConfig  `koanf:"dexcom"`
	Sync    SyncConfig    `koanf:"sync"`
	Status  StatusConfig  `koanf:"status"`
	State   StateConfig   `koanf:"state"`
	Logging LoggingConfig `koanf:"logging"`
}

// LibreConfig holds LibreLinkUp follower account settings.
type LibreConfig struct {
	Username string `koanf:"username" validate:"required"`
	Password string `koanf:"password" validate:"required"`

	// Region selects the API host. Login redirects may switch it at runtime.
	// Default: eu
	Region string `koanf:"region" validate:"libre_region"`

	// BlockedBackoff is the base delay between blocked attempts; the n-th
	// retry waits BlockedBackoff * 3^(n-1).
	// Default: 5s
	BlockedBackoff time.Duration `koanf:"blocked_backoff" validate:"gte=0"`

	// RequestRate spaces outbound requests, in requests per second. 0 disables it.
	// Default: 1
	RequestRate float64 `koanf:"request_rate" validate:"gte=0"`

	// Timeout is the per-request HTTP timeout. 0 uses the client default.
	Timeout time.Duration `koanf:"timeout" validate:"gte=0"`
}

// DexcomConfig holds Dexcom Share publisher account settings.
type DexcomConfig struct {
	Username string `koanf:"username" validate:"required"`
	Password string `koanf:"password" validate:"required"`

	// Region is us, ous (alias eu) or jp.
	// Default: ous
	Region string `koanf:"region" validate:"dexcom_region"`

	// SerialNumber fixes the receiver serial. Derived from the account when empty.
	SerialNumber string `koanf:"serial_number" validate:"omitempty,receiver_serial"`

	// RateLimitCooldown is the pause after an HTTP 429.
	// Default: 60s
	RateLimitCooldown time.Duration `koanf:"rate_limit_cooldown" validate:"gte=0"`

	// RateLimitRetries bounds resubmissions after HTTP 429.
	// Default: 3
	RateLimitRetries int `koanf:"rate_limit_retries" validate:"gte=0"`

	// Timeout is the per-request HTTP timeout. 0 uses the client default.
	Timeout time.Duration `koanf:"timeout" validate:"gte=0"`
}

// SyncConfig holds sync engine settings.
type SyncConfig struct {
	// Interval between cycles in continuous mode. Must be at least one minute.
	// Default: 5m
	Interval time.Duration `koanf:"interval"`

	// MaxBatch caps readings uploaded per cycle.
	// Default: 12
	MaxBatch int `koanf:"max_batch" validate:"min=1,max=288"`

	// BreakerThreshold is the number of consecutive failed calls that opens a circuit breaker.
	// Default: 5
	BreakerThreshold uint32 `koanf:"breaker_threshold" validate:"min=1"`

	// BreakerTimeout is how long an open breaker rejects calls.
	// Default: 5m
	BreakerTimeout time.Duration `koanf:"breaker_timeout" validate:"gt=0"`
}

// StatusConfig controls the local HTTP status server.
type StatusConfig struct {
	Enabled bool `koanf:"enabled"`

	// Addr is the listen address.
	// Default: 127.0.0.1:9464
	Addr string `koanf:"addr" validate:"omitempty,hostname_port"`

	// RateLimit is the number of requests allowed per client per minute.
	// Default: 60
	RateLimit int `koanf:"rate_limit" validate:"gte=0"`
}

// StateConfig controls persistent process state.
type StateConfig struct {
	// Dir holds the crash-loop state database. Empty disables crash-loop backoff.
	Dir string `koanf:"dir"`
}

// LoggingConfig controls the zerolog logger.
type LoggingConfig struct {
	// Level is the minimum log level: trace, debug, info, warn, error.
	// Default: info
	Level string `koanf:"level"`

	// Format is the output format: json or console.
	// Default: json
	Format string `koanf:"format" validate:"oneof=json console"`

	// Caller adds file:line to every entry.
	Caller bool `koanf:"caller"`
}

// LibreClient returns the LibreLinkUp client settings.
func (c *Config) LibreClient() libre.Config {
	return libre.Config{
		Username:       c.Libre.Username,
		Password:       c.Libre.Password,
		Region:         c.Libre.Region,
		BlockedBackoff: c.Libre.BlockedBackoff,
		RequestRate:    c.Libre.RequestRate,
		Timeout:        c.Libre.Timeout,
	}
}

// DexcomClient returns the Dexcom Share client settings.
func (c *Config) DexcomClient() dexcom.Config {
	// The client reads 0 as "use the default"; here 0 means no retries.
	retries := c.Dexcom.RateLimitRetries
	if retries == 0 {
		retries = -1
	}
	return dexcom.Config{
		Username:          c.Dexcom.Username,
		Password:          c.Dexcom.Password,
		Region:            c.Dexcom.Region,
		RateLimitCooldown: c.Dexcom.RateLimitCooldown,
		RateLimitRetries:  retries,
		Timeout:           c.Dexcom.Timeout,
	}
}

// CycleBudget is the longest one sync cycle can run: every LibreLinkUp request
// exhausting its blocked retries and a Dexcom upload spending its whole 429
// budget plus one session recovery. Requests without a configured timeout
// are counted at assumedRequestTime.
func (c *Config) CycleBudget() time.Duration {
	libreCall := c.LibreClient().WorstCaseCall(requestTime(c.Libre.Timeout))
	publish := c.DexcomClient().WorstCasePublish(requestTime(c.Dexcom.Timeout))
	return libreRequestsPerCycle*libreCall + publish + cycleBudgetMargin
}

func requestTime(timeout time.Duration) time.Duration {
	if timeout > 0 {
		return timeout
	}
	return assumedRequestTime
}

// Engine returns the sync engine settings.
func (c *Config) Engine() sync.Config {
	return sync.Config{
		Interval:         c.Sync.Interval,
		MaxBatch:         c.Sync.MaxBatch,
		SerialNumber:     c.Dexcom.SerialNumber,
		BreakerThreshold: c.Sync.BreakerThreshold,
		BreakerTimeout:   c.Sync.BreakerTimeout,
	}
}

// Log returns the logger settings.
func (c *Config) Log() logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Level = c.Logging.Level
	cfg.Format = c.Logging.Format
	cfg.Caller = c.Logging.Caller
	return cfg
}

// Load reads configuration from all sources. See LoadWithKoanf.
func Load() (*Config, error) {
	return LoadWithKoanf()
}
