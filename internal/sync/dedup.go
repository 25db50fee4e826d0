// LibreShare - LibreLinkUp to Dexcom Share Bridge
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/libreshare

package sync

import (
	"time"

	"github.com/tomtom215/libreshare/internal/models"
)

// DefaultDedupRetention is how long forwarded timestamps are remembered.
const DefaultDedupRetention = 24 * time.Hour

// DedupWindow remembers the timestamps of forwarded readings as epoch
// milliseconds. Entries are only removed by Purge, relative to a caller
// supplied "now", so eviction does not depend on insertion time.
type DedupWindow struct {
	seen      map[int64]struct{}
	retention time.Duration
}

// NewDedupWindow creates an empty window. A non-positive retention uses
// DefaultDedupRetention.
func NewDedupWindow(retention time.Duration) *DedupWindow {
	if retention <= 0 {
		retention = DefaultDedupRetention
	}
	return &DedupWindow{
		seen:      make(map[int64]struct{}),
		retention: retention,
	}
}

// Contains reports whether a reading with timestamp t was forwarded.
func (w *DedupWindow) Contains(t time.Time) bool {
	_, ok := w.seen[t.UnixMilli()]
	return ok
}

// Add records timestamps as forwarded.
func (w *DedupWindow) Add(readings ...models.Reading) {
	for _, r := range readings {
		w.seen[r.Key()] = struct{}{}
	}
}

// FilterNew returns the readings whose timestamps are not in the window,
// keeping their order.
func (w *DedupWindow) FilterNew(readings []models.Reading) []models.Reading {
	fresh := make([]models.Reading, 0, len(readings))
	for _, r := range readings {
		if _, ok := w.seen[r.Key()]; !ok {
			fresh = append(fresh, r)
		}
	}
	return fresh
}

// Purge removes every entry strictly older than retention relative to now
// and returns how many were removed.
func (w *DedupWindow) Purge(now time.Time) int {
	cutoff := now.Add(-w.retention).UnixMilli()
	removed := 0
	for ms := range w.seen {
		if ms < cutoff {
			delete(w.seen, ms)
			removed++
		}
	}
	return removed
}

// Len returns the number of remembered timestamps.
func (w *DedupWindow) Len() int {
	return len(w.seen)
}
