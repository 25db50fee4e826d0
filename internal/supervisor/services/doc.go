// LibreShare - LibreLinkUp to Dexcom Share Bridge
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/libreshare

// Package services adapts LibreShare components to suture.Service.
//
//   - SyncService: runs sync.Engine.RunContinuously and reports fatal startup errors
//   - HTTPServerService: runs the status server with graceful shutdown
package services
