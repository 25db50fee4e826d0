// LibreShare - LibreLinkUp to Dexcom Share Bridge
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/libreshare

/*
Package status serves the local HTTP status surface.

Endpoints:

  - GET /healthz: 200 while syncs are fresh, 503 once the last successful
    sync is older than the staleness threshold
  - GET /status: run statistics and circuit breaker states as JSON
  - GET /metrics: Prometheus exposition

/healthz and /status are rate limited per client IP with go-chi/httprate.
The server only reads a snapshot of the engine's statistics and never
triggers a sync.
*/
package status
