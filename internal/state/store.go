// LibreShare - LibreLinkUp to Dexcom Share Bridge
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/libreshare

package state

import (
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/libreshare/internal/backoff"
	"github.com/tomtom215/libreshare/internal/logging"
	"github.com/tomtom215/libreshare/internal/metrics"
)

const (
	// BaseBackoff is the wait after the first unclean exit.
	BaseBackoff = 30 * time.Second

	// MaxBackoff caps the crash-loop wait.
	MaxBackoff = 30 * time.Minute

	crashKey = "crashloop:record"

	// uncleanMessage is recorded when a run never reported its exit.
	uncleanMessage = "previous run did not exit cleanly"
)

// CrashRecord tracks consecutive unclean exits.
type CrashRecord struct {
	ConsecutiveFailures int       `json:"consecutive_failures"`
	LastFailureAt       time.Time `json:"last_failure_at,omitempty"`
	LastError           string    `json:"last_error,omitempty"`
	Running             bool      `json:"running"`
	StartedAt           time.Time `json:"started_at,omitempty"`
}

// Backoff returns how long to wait after n consecutive failures:
// min(30s * 2^(n-1), 30m). Zero failures means no wait.
func Backoff(failures int) time.Duration {
	if failures <= 0 {
		return 0
	}
	return crashPolicy.Delay(failures)
}

var crashPolicy = backoff.Policy{Initial: BaseBackoff, Multiplier: 2, Max: MaxBackoff}

// Remaining returns the part of the backoff not yet elapsed since the last failure.
func (r CrashRecord) Remaining(now time.Time) time.Duration {
	wait := Backoff(r.ConsecutiveFailures)
	if wait == 0 {
		return 0
	}
	if elapsed := now.Sub(r.LastFailureAt); elapsed > 0 {
		wait -= elapsed
	}
	if wait < 0 {
		return 0
	}
	return wait
}

// Store is a BadgerDB-backed state store.
type Store struct {
	db *badger.DB
}

// Open opens or creates the state database in dir.
func Open(dir string) (*Store, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil // Suppress BadgerDB logs

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open state db: %w", err)
	}
	return &Store{db: db}, nil
}

// OpenInMemory opens a store that is discarded on Close.
func OpenInMemory() (*Store, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open in-memory state db: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Load returns the crash record, or a zero record when none is stored.
func (s *Store) Load() (CrashRecord, error) {
	var rec CrashRecord

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(crashKey))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("get crash record: %w", err)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		})
	})

	return rec, err
}

func (s *Store) save(rec CrashRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal crash record: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(crashKey), data)
	})
}

// BeginRun marks a run as started and returns the record the caller should
// back off on. A previous run still marked running counts as a failure.
func (s *Store) BeginRun(now time.Time) (CrashRecord, error) {
	rec, err := s.Load()
	if err != nil {
		return rec, err
	}

	if rec.Running {
		rec.ConsecutiveFailures++
		rec.LastFailureAt = now
		rec.LastError = uncleanMessage
		logging.Warn().Time("started_at", rec.StartedAt).Msg("Previous run did not exit cleanly")
	}

	rec.Running = true
	rec.StartedAt = now
	if err := s.save(rec); err != nil {
		return rec, err
	}

	metrics.CrashLoopFailures.Set(float64(rec.ConsecutiveFailures))
	return rec, nil
}

// AbortRun clears the running mark without touching the failure count. Used
// when the process is stopped while still backing off.
func (s *Store) AbortRun() error {
	rec, err := s.Load()
	if err != nil {
		return err
	}
	rec.Running = false
	return s.save(rec)
}

// EndRun records how the run ended. A nil runErr resets the failure count.
func (s *Store) EndRun(now time.Time, runErr error) error {
	rec, err := s.Load()
	if err != nil {
		return err
	}

	rec.Running = false
	if runErr == nil {
		rec.ConsecutiveFailures = 0
		rec.LastError = ""
	} else {
		rec.ConsecutiveFailures++
		rec.LastFailureAt = now
		rec.LastError = runErr.Error()
	}

	metrics.CrashLoopFailures.Set(float64(rec.ConsecutiveFailures))
	return s.save(rec)
}
