// LibreShare - LibreLinkUp to Dexcom Share Bridge
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/libreshare

package models

import (
	"time"
)

// SyncResult describes the outcome of one sync cycle.
type SyncResult struct {
	CorrelationID string        `json:"correlation_id"`
	Fetched       int           `json:"fetched"`  // readings returned by the source
	New           int           `json:"new"`      // fetched readings absent from the dedup window
	Uploaded      int           `json:"uploaded"` // readings accepted by the destination
	Skipped       int           `json:"skipped"`  // fetched - uploaded
	Duration      time.Duration `json:"duration"`
}

// Stats is a snapshot of the engine's cumulative run statistics.
type Stats struct {
	TotalSynced  int        `json:"total_synced"`
	TotalSkipped int        `json:"total_skipped"`
	Errors       int        `json:"errors"`
	Cycles       int        `json:"cycles"`
	LastSyncAt   *time.Time `json:"last_sync_at,omitempty"`
	LastError    string     `json:"last_error,omitempty"`
	DedupSize    int        `json:"dedup_size"`
	SerialNumber string     `json:"serial_number,omitempty"`
	StartedAt    time.Time  `json:"started_at"`
}

// SideReport is the probe result for one remote service.
type SideReport struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Host    string `json:"host,omitempty"`
	Detail  string `json:"detail,omitempty"`
}

// ConnectionReport is the result of probing both services independently.
type ConnectionReport struct {
	Source      SideReport `json:"source"`
	Destination SideReport `json:"destination"`
}

// OK reports whether both sides succeeded.
func (r ConnectionReport) OK() bool {
	return r.Source.Success && r.Destination.Success
}

// ShareRecord is a glucose value read back from Dexcom Share.
type ShareRecord struct {
	Value      int       `json:"value"`
	Trend      string    `json:"trend"`
	SystemTime time.Time `json:"system_time"`
}
