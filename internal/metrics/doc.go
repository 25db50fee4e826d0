// LibreShare - LibreLinkUp to Dexcom Share Bridge
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/libreshare

/*
Package metrics provides Prometheus metrics collection and export for observability.

All collectors are registered on the default registry through promauto and are
served by the status surface at /metrics when STATUS_ENABLED=true:

	curl http://127.0.0.1:9464/metrics

# Available Metrics

Sync Metrics:
  - libreshare_sync_cycles_total: Sync cycles run (counter)
    Labels: result (success, failure)
  - libreshare_sync_duration_seconds: Cycle duration (histogram)
  - libreshare_sync_errors_total: Failed cycles (counter)
    Labels: error_type (auth, rate_limited, no_connections, upload, circuit_open, other)
  - libreshare_readings_fetched_total: Readings returned by LibreLinkUp (counter)
  - libreshare_readings_uploaded_total: Readings accepted by Dexcom Share (counter)
  - libreshare_readings_skipped_total: Fetched readings not uploaded (counter)
  - libreshare_dedup_window_entries: Forwarded timestamps held for deduplication (gauge)
  - libreshare_sync_last_success_timestamp: Unix time of the last successful cycle (gauge)

LibreLinkUp Metrics:
  - libreshare_libre_requests_total: Requests by endpoint and outcome (counter)
  - libreshare_libre_request_duration_seconds: Request latency (histogram)
  - libreshare_libre_blocked_responses_total: Blocked responses (counter)
    Labels: reason (status, cloudflare, empty_body, html)
  - libreshare_libre_timestamp_parse_warnings_total: Points whose timestamp fell back to now (counter)

Dexcom Share Metrics:
  - libreshare_dexcom_requests_total: Requests by endpoint and status code (counter)
  - libreshare_dexcom_reauth_total: Session recoveries (counter)
  - libreshare_dexcom_rate_limited_total: HTTP 429 responses (counter)

Circuit Breaker Metrics:
  - libreshare_circuit_breaker_state: 0=closed, 1=half-open, 2=open (gauge)
  - libreshare_circuit_breaker_requests_total: Calls through the breaker (counter)
  - libreshare_circuit_breaker_consecutive_failures: Current failure streak (gauge)
  - libreshare_circuit_breaker_state_transitions_total: State changes (counter)

Status Surface Metrics:
  - libreshare_status_requests_total and libreshare_status_request_duration_seconds

Process Metrics:
  - libreshare_crash_loop_failures: Consecutive unclean exits recorded at startup (gauge)

# Usage

	start := time.Now()
	result, err := engine.Sync(ctx)
	if err != nil {
	    metrics.RecordSyncFailure(time.Since(start), "upload")
	} else {
	    metrics.RecordSyncSuccess(time.Since(start), result.Fetched, result.Uploaded, result.Skipped)
	}
*/
package metrics
