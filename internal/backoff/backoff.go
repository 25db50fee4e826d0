// LibreShare - LibreLinkUp to Dexcom Share Bridge
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/libreshare

package backoff

import (
	"context"
	"math"
	"time"
)

// Policy describes an exponential delay curve: Initial * Multiplier^(attempt-1),
// capped at Max. A zero Max means no cap.
type Policy struct {
	Initial    time.Duration
	Multiplier float64
	Max        time.Duration
}

// Delay returns the wait before retrying after the given failed attempt
// (1-based). Attempts below 1 return zero.
func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 1 || p.Initial <= 0 {
		return 0
	}

	mult := p.Multiplier
	if mult < 1 {
		mult = 1
	}

	d := float64(p.Initial) * math.Pow(mult, float64(attempt-1))

	// Overflow shows up as +Inf or a value past MaxInt64.
	if math.IsInf(d, 0) || d >= math.MaxInt64 {
		if p.Max > 0 {
			return p.Max
		}
		return time.Duration(math.MaxInt64)
	}
	if p.Max > 0 && time.Duration(d) > p.Max {
		return p.Max
	}
	return time.Duration(d)
}

// Total returns the sum of the delays between attempts 1..attempts, which is
// the time spent sleeping when every attempt fails.
func (p Policy) Total(attempts int) time.Duration {
	var total time.Duration
	for i := 1; i < attempts; i++ {
		total += p.Delay(i)
	}
	return total
}

// Sleep waits for d or until ctx is done, whichever comes first.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
