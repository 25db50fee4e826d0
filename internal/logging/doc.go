// LibreShare - LibreLinkUp to Dexcom Share Bridge
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/libreshare

// Package logging provides centralized zerolog-based structured logging for LibreShare.
//
// # Quick Start
//
//	logging.Init(logging.Config{
//	    Level:  "info",
//	    Format: "json",
//	})
//
//	logging.Info().Int("uploaded", 12).Msg("Sync cycle complete")
//	logging.Error().Err(err).Msg("Upload failed")
//
// # Configuration
//
// Environment Variables (read through internal/config):
//
//	LOG_LEVEL   - Minimum log level: trace, debug, info, warn, error (default: info)
//	LOG_FORMAT  - Output format: json, console (default: json)
//	LOG_CALLER  - Include caller file:line: true, false (default: false)
//
// # Sync Cycle Correlation
//
// Every sync cycle runs with a short correlation ID in its context so that the
// source fetch, the upload and any retries can be grouped:
//
//	ctx = logging.ContextWithNewCorrelationID(ctx)
//	logging.Ctx(ctx).Info().Msg("Fetching readings")
//
// # Credentials
//
// Passwords are never logged. Account names go through MaskEmail and session
// identifiers through MaskSecret.
//
// # slog Adapter
//
// NewSlogLogger bridges zerolog to log/slog for sutureslog, so supervisor
// restart events land in the same stream.
package logging
