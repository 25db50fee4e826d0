// LibreShare - LibreLinkUp to Dexcom Share Bridge
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/libreshare

package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/thejerf/suture/v4"
)

// ContinuousRunner matches sync.Engine's long-running entry point.
//
// RunContinuously blocks until ctx is canceled and only returns a non-context
// error when the engine could not start, for example because a service
// rejected the credentials.
type ContinuousRunner interface {
	RunContinuously(ctx context.Context) error
}

// SyncService wraps the sync engine as a supervised service.
//
// A startup failure is not worth restarting: the service records it, returns
// suture.ErrDoNotRestart and calls onFatal so the caller can stop the tree.
//
// Suture abandons a service that outlives its stop timeout, so callers use
// Wait after the tree has returned to let an in-flight cycle finish.
type SyncService struct {
	runner  ContinuousRunner
	name    string
	onFatal func(error)

	mu     sync.Mutex
	err    error
	active int
	idle   chan struct{} // closed while no Serve call is running
}

// NewSyncService creates a new sync service wrapper. onFatal may be nil.
func NewSyncService(runner ContinuousRunner, onFatal func(error)) *SyncService {
	idle := make(chan struct{})
	close(idle)
	return &SyncService{
		runner:  runner,
		name:    "sync-engine",
		onFatal: onFatal,
		idle:    idle,
	}
}

// Serve implements suture.Service.
func (s *SyncService) Serve(ctx context.Context) error {
	s.begin()
	defer s.end()

	err := s.runner.RunContinuously(ctx)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err == nil {
		return nil
	}

	s.mu.Lock()
	s.err = err
	s.mu.Unlock()

	if s.onFatal != nil {
		s.onFatal(err)
	}
	return fmt.Errorf("%w: %w", suture.ErrDoNotRestart, err)
}

func (s *SyncService) begin() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == 0 {
		s.idle = make(chan struct{})
	}
	s.active++
}

func (s *SyncService) end() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active--
	if s.active == 0 {
		close(s.idle)
	}
}

// Wait blocks until no Serve call is running or ctx is done.
func (s *SyncService) Wait(ctx context.Context) error {
	s.mu.Lock()
	idle := s.idle
	s.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Err returns the error that stopped the engine, if any.
func (s *SyncService) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// String implements fmt.Stringer for logging.
// Suture uses this to identify the service in log messages.
func (s *SyncService) String() string {
	return s.name
}
