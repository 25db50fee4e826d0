// LibreShare - LibreLinkUp to Dexcom Share Bridge
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/libreshare

// Package state persists process bookkeeping across restarts in BadgerDB.
//
// The only record kept is the crash-loop record: how many runs in a row
// ended uncleanly and when the last one did. The CLI calls BeginRun at
// startup, waits Backoff before doing any work, and calls EndRun on exit.
// A run that never reaches EndRun (killed, panicked, OOM) is detected by the
// next BeginRun and counted as a failure.
//
// Glucose readings are never stored here.
package state
