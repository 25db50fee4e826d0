// LibreShare - LibreLinkUp to Dexcom Share Bridge
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/libreshare

/*
Package config provides configuration management for LibreShare.

Configuration is layered with Koanf v2. Later sources override earlier ones:

 1. Built-in defaults
 2. YAML file: CONFIG_PATH, else config.yaml, else /etc/libreshare/config.yaml
 3. .env file: ENV_FILE, else ./.env (never overrides variables already set)
 4. Environment variables

# Environment Variables

LibreLinkUp (follower account):
  - LIBRE_USERNAME, LIBRE_PASSWORD: required
  - LIBRE_REGION: ae, ap, au, ca, cn, de, eu, eu2, fr, jp, la, ru, us or global (default: eu)
  - LIBRE_BLOCKED_BACKOFF: base delay between blocked attempts (default: 5s)
  - LIBRE_REQUEST_RATE: requests per second, 0 = unlimited (default: 1)
  - LIBRE_TIMEOUT: per-request timeout

Dexcom Share (publisher account):
  - DEXCOM_USERNAME, DEXCOM_PASSWORD: required
  - DEXCOM_REGION: us, ous, eu or jp (default: ous)
  - DEXCOM_SERIAL_NUMBER: receiver serial, e.g. SM12345678 (default: derived)
  - DEXCOM_RATE_LIMIT_COOLDOWN: pause after HTTP 429 (default: 60s)
  - DEXCOM_RATE_LIMIT_RETRIES: resubmissions after HTTP 429 (default: 3)
  - DEXCOM_TIMEOUT: per-request timeout

Sync:
  - SYNC_INTERVAL: duration between cycles, at least 1m (default: 5m)
  - SYNC_INTERVAL_MINUTES: the same as a plain number of minutes
  - MAX_READINGS_PER_SYNC: 1..288 (default: 12)
  - SYNC_BREAKER_THRESHOLD, SYNC_BREAKER_TIMEOUT: circuit breaker (default: 5, 5m)

Process:
  - STATUS_ENABLED, STATUS_ADDR, STATUS_RATE_LIMIT: status server (default: false, 127.0.0.1:9464, 60)
  - STATE_DIR: crash-loop state directory; empty disables backoff
  - LOG_LEVEL, LOG_FORMAT, LOG_CALLER: logging (default: info, json, false)

# Example config.yaml

	libre:
	  username: follower@example.com
	  region: eu
	dexcom:
	  username: publisher@example.com
	  region: ous
	sync:
	  interval: 5m
	  max_batch: 12

Passwords are best kept in the environment or the .env file.
*/
package config
