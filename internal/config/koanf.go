// LibreShare - LibreLinkUp to Dexcom Share Bridge
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/libreshare

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
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
// The first file found will be used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/libreshare/config.yaml",
	"/etc/libreshare/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// EnvFileEnvVar overrides the location of the .env file.
const EnvFileEnvVar = "ENV_FILE"

// DefaultEnvFile is read when present. Missing files are ignored.
const DefaultEnvFile = ".env"

// intervalMinutesEnvVar sets sync.interval as a plain number of minutes.
// SYNC_INTERVAL wins when both are set.
const intervalMinutesEnvVar = "SYNC_INTERVAL_MINUTES"

// defaultConfig returns a Config struct with all default values.
// These defaults are applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Libre: LibreConfig{
			Region:         "eu",
			BlockedBackoff: 5 * time.Second,
			RequestRate:    1,
		},
		Dexcom: DexcomConfig{
			Region:            "ous",
			RateLimitCooldown: 60 * time.Second,
			RateLimitRetries:  3,
		},
		Sync: SyncConfig{
			Interval:         5 * time.Minute,
			MaxBatch:         12,
			BreakerThreshold: 5,
			BreakerTimeout:   5 * time.Minute,
		},
		Status: StatusConfig{
			Enabled:   false,
			Addr:      "127.0.0.1:9464",
			RateLimit: 60,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// LoadWithKoanf loads configuration using Koanf v2 with layered sources:
//  1. Defaults: Built-in defaults
//  2. Config File: Optional YAML config file (if exists)
//  3. .env File: Merged into the process environment
//  4. Environment Variables: Override any setting
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	// Layer 1: Load defaults from struct
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: Load config file (optional)
	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: .env never overrides variables that are already set
	if err := loadEnvFile(); err != nil {
		return nil, err
	}

	// Layer 4: Load environment variables (highest priority)
	// LIBRE_USERNAME -> libre.username
	// MAX_READINGS_PER_SYNC -> sync.max_batch
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := applyIntervalMinutes(k); err != nil {
		return nil, err
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

// findConfigFile searches for a config file in the default paths.
// Returns the path to the first file found, or empty string if none found.
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

// loadEnvFile merges the .env file into the process environment.
func loadEnvFile() error {
	path := os.Getenv(EnvFileEnvVar)
	if path == "" {
		path = DefaultEnvFile
	}

	err := godotenv.Load(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("failed to load env file %s: %w", path, err)
}

// applyIntervalMinutes maps SYNC_INTERVAL_MINUTES onto sync.interval.
func applyIntervalMinutes(k *koanf.Koanf) error {
	raw := strings.TrimSpace(os.Getenv(intervalMinutesEnvVar))
	if raw == "" || os.Getenv("SYNC_INTERVAL") != "" {
		return nil
	}

	minutes, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fmt.Errorf("%s must be a number of minutes, got %q", intervalMinutesEnvVar, raw)
	}

	interval := time.Duration(minutes * float64(time.Minute))
	if err := k.Set("sync.interval", interval.String()); err != nil {
		return fmt.Errorf("failed to set sync.interval: %w", err)
	}
	return nil
}

// envMappings maps environment variable names (lower case) to koanf paths.
var envMappings = map[string]string{
	// LibreLinkUp
	"libre_username":        "libre.username",
	"libre_password":        "libre.password",
	"libre_region":          "libre.region",
	"libre_blocked_backoff": "libre.blocked_backoff",
	"libre_request_rate":    "libre.request_rate",
	"libre_timeout":         "libre.timeout",

	// Dexcom Share
	"dexcom_username":            "dexcom.username",
	"dexcom_password":            "dexcom.password",
	"dexcom_region":              "dexcom.region",
	"dexcom_serial_number":       "dexcom.serial_number",
	"dexcom_rate_limit_cooldown": "dexcom.rate_limit_cooldown",
	"dexcom_rate_limit_retries":  "dexcom.rate_limit_retries",
	"dexcom_timeout":             "dexcom.timeout",

	// Sync engine
	"sync_interval":          "sync.interval",
	"max_readings_per_sync":  "sync.max_batch",
	"sync_breaker_threshold": "sync.breaker_threshold",
	"sync_breaker_timeout":   "sync.breaker_timeout",

	// Status server
	"status_enabled":    "status.enabled",
	"status_addr":       "status.addr",
	"status_rate_limit": "status.rate_limit",

	// Process state
	"state_dir": "state.dir",

	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc transforms environment variable names to koanf config paths.
// Unmapped variables return an empty key and are skipped.
func envTransformFunc(key string) string {
	if mapped, ok := envMappings[strings.ToLower(key)]; ok {
		return mapped
	}
	return ""
}
