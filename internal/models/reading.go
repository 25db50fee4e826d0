// LibreShare - LibreLinkUp to Dexcom Share Bridge
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/libreshare

package models

import (
	"sort"
	"time"
)

// OriginLibreLinkUp tags readings fetched from the LibreLinkUp follower API.
const OriginLibreLinkUp = "librelinkup"

// Trend is a rate-of-change indicator on the LibreLinkUp scale.
type Trend int

// LibreLinkUp trend scale. Lower values mean falling glucose.
const (
	TrendFallingFast Trend = 1
	TrendFalling     Trend = 2
	TrendFallingSlow Trend = 3
	TrendStable      Trend = 4
	TrendRisingSlow  Trend = 5
	TrendRising      Trend = 6
	TrendRisingFast  Trend = 7
)

// Valid reports whether t is on the 1..7 scale.
func (t Trend) Valid() bool {
	return t >= TrendFallingFast && t <= TrendRisingFast
}

// OrStable returns t, or TrendStable when t is off the scale.
func (t Trend) OrStable() Trend {
	if !t.Valid() {
		return TrendStable
	}
	return t
}

// String returns a human-readable trend name.
func (t Trend) String() string {
	switch t {
	case TrendFallingFast:
		return "falling_fast"
	case TrendFalling:
		return "falling"
	case TrendFallingSlow:
		return "falling_slow"
	case TrendStable:
		return "stable"
	case TrendRisingSlow:
		return "rising_slow"
	case TrendRising:
		return "rising"
	case TrendRisingFast:
		return "rising_fast"
	default:
		return "unknown"
	}
}

// Reading is one glucose measurement in canonical form.
//
// Timestamp is always a valid instant and is the identity of the reading for
// ordering and deduplication. A Value of zero is accepted but usually means
// the sensor reported nothing.
type Reading struct {
	Value     float64   `json:"value"`     // mg/dL
	Trend     Trend     `json:"trend"`     // LibreLinkUp scale, 1..7
	Timestamp time.Time `json:"timestamp"` // measurement instant
	Origin    string    `json:"origin"`    // source system tag
}

// Key returns the deduplication key of the reading (epoch milliseconds).
func (r Reading) Key() int64 {
	return r.Timestamp.UnixMilli()
}

// SortNewestFirst orders readings by timestamp, newest first. The sort is
// stable so that equal timestamps keep their relative input order.
func SortNewestFirst(readings []Reading) {
	sort.SliceStable(readings, func(i, j int) bool {
		return readings[i].Timestamp.After(readings[j].Timestamp)
	})
}

// UniqueByTimestamp drops every reading whose timestamp was already seen
// earlier in the slice. The input order is preserved.
func UniqueByTimestamp(readings []Reading) []Reading {
	seen := make(map[int64]struct{}, len(readings))
	out := make([]Reading, 0, len(readings))
	for _, r := range readings {
		if _, dup := seen[r.Key()]; dup {
			continue
		}
		seen[r.Key()] = struct{}{}
		out = append(out, r)
	}
	return out
}
