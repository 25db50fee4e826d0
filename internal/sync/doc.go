// LibreShare - LibreLinkUp to Dexcom Share Bridge
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/libreshare

/*
Package sync moves glucose readings from LibreLinkUp to Dexcom Share.

Key Components:

  - Engine: runs sync cycles once or on a fixed interval
  - DedupWindow: timestamps already forwarded during the last 24 hours
  - breaker: sony/gobreaker wrapper around each remote service

Cycle:

Every cycle performs the same steps in order:

 1. Fetch: read the current and historical readings from the source
 2. Filter: drop readings whose timestamp is in the dedup window
 3. Cap: keep at most MaxBatch readings, newest first
 4. Upload: publish the batch to Dexcom Share
 5. Mark: add the uploaded timestamps to the dedup window
 6. Purge: drop window entries older than 24 hours
 7. Stats: update counters and metrics

A failure in fetch or upload ends the cycle with the dedup window unchanged,
so the same readings are offered again on the next cycle. In continuous mode
the error is logged and counted; in one-shot mode it is returned.

Circuit Breakers:

Fetch and upload each run through a circuit breaker. After
Config.BreakerThreshold consecutive failures the breaker opens and further
cycles fail fast until Config.BreakerTimeout has passed. Breaker state is
exported as libreshare_circuit_breaker_state.

Thread Safety:

Cycles never overlap. GetStats may be called from any goroutine.

Usage Example:

	engine := sync.NewEngine(sync.Config{
	    Interval: 5 * time.Minute,
	    MaxBatch: 12,
	}, libreClient, dexcomClient)

	if err := engine.RunContinuously(ctx); err != nil && !errors.Is(err, context.Canceled) {
	    log.Fatal(err)
	}
*/
package sync
