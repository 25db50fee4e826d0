// LibreShare - LibreLinkUp to Dexcom Share Bridge
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/libreshare

package sync

import (
	"context"
	"sync"
	"time"

	"github.com/tomtom215/libreshare/internal/libre"
	"github.com/tomtom215/libreshare/internal/models"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

// readingsAt returns n readings five minutes apart, newest first, ending at newest.
func readingsAt(newest time.Time, n int) []models.Reading {
	out := make([]models.Reading, n)
	for i := range out {
		out[i] = models.Reading{
			Value:     float64(100 + i),
			Trend:     models.TrendStable,
			Timestamp: newest.Add(-time.Duration(i) * 5 * time.Minute),
			Origin:    models.OriginLibreLinkUp,
		}
	}
	return out
}

type fakeSource struct {
	mu          sync.Mutex
	readings    []models.Reading
	fetchErr    error
	authErr     error
	connections []libre.Connection
	connErr     error
	authCalls   int
	fetchCalls  int

	// transientErr is returned by the first transientLeft fetches.
	transientErr  error
	transientLeft int

	// When release is set, FetchReadings signals entered and then waits on
	// release, standing in for a slow fetch.
	entered chan struct{}
	release chan struct{}
}

func (f *fakeSource) Authenticate(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.authCalls++
	return f.authErr
}

func (f *fakeSource) ListConnections(context.Context) ([]libre.Connection, error) {
	return f.connections, f.connErr
}

func (f *fakeSource) FetchReadings(context.Context, string) ([]models.Reading, error) {
	f.mu.Lock()
	f.fetchCalls++
	release := f.release
	f.mu.Unlock()

	if release != nil {
		select {
		case f.entered <- struct{}{}:
		default:
		}
		<-release
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.transientLeft > 0 {
		f.transientLeft--
		return nil, f.transientErr
	}
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	out := make([]models.Reading, len(f.readings))
	copy(out, f.readings)
	return out, nil
}

func (f *fakeSource) Host() string { return "api-eu.libreview.io" }

func (f *fakeSource) fetches() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetchCalls
}

type fakeDestination struct {
	mu         sync.Mutex
	accountID  string
	username   string
	serial     string
	authErr    error
	publishErr error
	records    []models.ShareRecord
	authCalls  int
	batches    [][]models.Reading
}

func (f *fakeDestination) Authenticate(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.authCalls++
	return f.authErr
}

func (f *fakeDestination) Publish(_ context.Context, readings []models.Reading) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.publishErr != nil {
		return 0, f.publishErr
	}
	batch := make([]models.Reading, len(readings))
	copy(batch, readings)
	f.batches = append(f.batches, batch)
	return len(readings), nil
}

func (f *fakeDestination) ReadRecent(context.Context, int, int) ([]models.ShareRecord, error) {
	return f.records, nil
}

func (f *fakeDestination) SetReceiverSerial(serial string) { f.serial = serial }
func (f *fakeDestination) ReceiverSerial() string          { return f.serial }
func (f *fakeDestination) AccountID() string               { return f.accountID }
func (f *fakeDestination) Username() string                { return f.username }
func (f *fakeDestination) Host() string                    { return "shareous1.dexcom.com" }

func (f *fakeDestination) published() [][]models.Reading {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.batches
}

func newTestEngine(cfg Config, src *fakeSource, dst *fakeDestination) *Engine {
	return NewEngine(cfg, src, dst, WithClock(fixedClock))
}
