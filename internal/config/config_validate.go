// LibreShare - LibreLinkUp to Dexcom Share Bridge
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/libreshare

package config

import (
	"fmt"
	"time"

	"github.com/tomtom215/libreshare/internal/logging"
	"github.com/tomtom215/libreshare/internal/validation"
)

// MinSyncInterval is the shortest allowed interval between cycles.
const MinSyncInterval = time.Minute

// Validate checks that required configuration is present and valid
func (c *Config) Validate() error {
	if verr := validation.ValidateStruct(c); verr != nil {
		return verr
	}

	if err := c.validateSync(); err != nil {
		return err
	}

	if err := c.validateStatus(); err != nil {
		return err
	}

	return c.validateLogging()
}

func (c *Config) validateSync() error {
	if c.Sync.Interval < MinSyncInterval {
		return fmt.Errorf("sync.interval must be at least %s, got %s", MinSyncInterval, c.Sync.Interval)
	}
	return nil
}

func (c *Config) validateStatus() error {
	if c.Status.Enabled && c.Status.Addr == "" {
		return fmt.Errorf("status.addr is required when STATUS_ENABLED=true")
	}
	return nil
}

func (c *Config) validateLogging() error {
	if !logging.ValidLevel(c.Logging.Level) {
		return fmt.Errorf("invalid logging.level %q: must be one of trace, debug, info, warn, error", c.Logging.Level)
	}
	return nil
}
