// LibreShare - LibreLinkUp to Dexcom Share Bridge
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/libreshare

package sync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/tomtom215/libreshare/internal/dexcom"
	"github.com/tomtom215/libreshare/internal/libre"
	"github.com/tomtom215/libreshare/internal/logging"
	"github.com/tomtom215/libreshare/internal/metrics"
	"github.com/tomtom215/libreshare/internal/models"
)

const (
	// DefaultInterval is the pause between sync cycles.
	DefaultInterval = 5 * time.Minute

	// DefaultMaxBatch caps the readings uploaded per cycle.
	DefaultMaxBatch = 12

	verifyCount   = 10
	verifyMinutes = 60
)

// Source is the LibreLinkUp side of the bridge.
type Source interface {
	Authenticate(ctx context.Context) error
	ListConnections(ctx context.Context) ([]libre.Connection, error)
	FetchReadings(ctx context.Context, patientID string) ([]models.Reading, error)
	Host() string
}

// Destination is the Dexcom Share side of the bridge.
type Destination interface {
	Authenticate(ctx context.Context) error
	Publish(ctx context.Context, readings []models.Reading) (int, error)
	ReadRecent(ctx context.Context, count, minutes int) ([]models.ShareRecord, error)
	SetReceiverSerial(serial string)
	ReceiverSerial() string
	AccountID() string
	Username() string
	Host() string
}

// Config controls the sync engine.
type Config struct {
	Interval         time.Duration
	MaxBatch         int
	SerialNumber     string // fixed receiver serial; derived when empty
	BreakerThreshold uint32
	BreakerTimeout   time.Duration
}

// Engine moves readings from a Source to a Destination.
//
// Cycles never overlap. The dedup window is touched only by the running
// cycle; stats are guarded by mu so the status server can read them.
type Engine struct {
	cfg         Config
	source      Source
	destination Destination
	dedup       *DedupWindow
	now         func() time.Time

	sourceBreaker      *breaker[[]models.Reading]
	destinationBreaker *breaker[int]

	initialized bool

	mu    sync.RWMutex
	stats models.Stats
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithClock overrides the wall clock used for stats and dedup purging.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) { e.now = now }
}

// NewEngine creates an engine over the given clients.
func NewEngine(cfg Config, source Source, destination Destination, opts ...EngineOption) *Engine {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.MaxBatch <= 0 {
		cfg.MaxBatch = DefaultMaxBatch
	}

	e := &Engine{
		cfg:                cfg,
		source:             source,
		destination:        destination,
		dedup:              NewDedupWindow(DefaultDedupRetention),
		now:                time.Now,
		sourceBreaker:      newBreaker[[]models.Reading]("librelinkup", cfg.BreakerThreshold, cfg.BreakerTimeout),
		destinationBreaker: newBreaker[int]("dexcom-share", cfg.BreakerThreshold, cfg.BreakerTimeout),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.stats.StartedAt = e.now()
	return e
}

// Initialize authenticates the source, then the destination, and assigns
// the receiver serial. Later calls are no-ops once it has succeeded.
func (e *Engine) Initialize(ctx context.Context) error {
	if e.initialized {
		return nil
	}

	logging.Info().Str("libre_host", e.source.Host()).Str("dexcom_host", e.destination.Host()).Msg("Initializing sync engine")

	if err := e.source.Authenticate(ctx); err != nil {
		return fmt.Errorf("authenticate LibreLinkUp: %w", err)
	}
	if err := e.destination.Authenticate(ctx); err != nil {
		return fmt.Errorf("authenticate Dexcom Share: %w", err)
	}

	serial, origin := e.chooseSerial()
	e.destination.SetReceiverSerial(serial)

	e.mu.Lock()
	e.stats.SerialNumber = serial
	e.mu.Unlock()

	e.initialized = true
	logging.Info().Str("serial", serial).Str("serial_source", origin).Msg("Sync engine initialized")
	return nil
}

// chooseSerial picks the configured serial, else one derived from the Share
// account id, else from the username, else a random one.
func (e *Engine) chooseSerial() (serial, origin string) {
	switch {
	case e.cfg.SerialNumber != "":
		return e.cfg.SerialNumber, "configured"
	case e.destination.AccountID() != "":
		return dexcom.DeriveSerial(e.destination.AccountID()), "account_id"
	case e.destination.Username() != "":
		return dexcom.DeriveSerial(e.destination.Username()), "username"
	default:
		return dexcom.RandomSerial(), "random"
	}
}

// Sync runs one fetch, filter, cap, upload, mark, purge cycle. A failure
// leaves the dedup window untouched so the same readings are retried.
func (e *Engine) Sync(ctx context.Context) (*models.SyncResult, error) {
	if logging.CorrelationIDFromContext(ctx) == "" {
		ctx = logging.ContextWithNewCorrelationID(ctx)
	}
	start := e.now()
	result := &models.SyncResult{CorrelationID: logging.CorrelationIDFromContext(ctx)}

	readings, err := e.sourceBreaker.execute(func() ([]models.Reading, error) {
		return e.source.FetchReadings(ctx, "")
	})
	if err != nil {
		return nil, e.fail(ctx, start, fmt.Errorf("fetch readings: %w", err))
	}
	result.Fetched = len(readings)

	fresh := e.dedup.FilterNew(readings)
	result.New = len(fresh)

	batch := fresh
	if len(batch) > e.cfg.MaxBatch {
		batch = batch[:e.cfg.MaxBatch]
	}

	if len(batch) > 0 {
		uploaded, err := e.destinationBreaker.execute(func() (int, error) {
			return e.destination.Publish(ctx, batch)
		})
		if err != nil {
			return nil, e.fail(ctx, start, fmt.Errorf("publish readings: %w", err))
		}
		if uploaded > len(batch) {
			uploaded = len(batch)
		}
		result.Uploaded = uploaded
		e.dedup.Add(batch[:uploaded]...)
	}

	now := e.now()
	purged := e.dedup.Purge(now)
	result.Skipped = result.Fetched - result.Uploaded
	result.Duration = now.Sub(start)

	e.mu.Lock()
	e.stats.Cycles++
	e.stats.TotalSynced += result.Uploaded
	e.stats.TotalSkipped += result.Skipped
	e.stats.LastSyncAt = &now
	e.stats.DedupSize = e.dedup.Len()
	e.mu.Unlock()

	metrics.RecordSyncSuccess(result.Duration, result.Fetched, result.Uploaded, result.Skipped)
	metrics.DedupWindowSize.Set(float64(e.dedup.Len()))

	logging.Ctx(ctx).Info().
		Int("fetched", result.Fetched).
		Int("new", result.New).
		Int("uploaded", result.Uploaded).
		Int("skipped", result.Skipped).
		Int("purged", purged).
		Int("dedup_size", e.dedup.Len()).
		Dur("duration", result.Duration).
		Msg("Sync cycle complete")

	return result, nil
}

// fail records a failed cycle and returns err.
func (e *Engine) fail(ctx context.Context, start time.Time, err error) error {
	e.mu.Lock()
	e.stats.Cycles++
	e.stats.Errors++
	e.stats.LastError = err.Error()
	e.mu.Unlock()

	category := errorCategory(err)
	metrics.RecordSyncFailure(e.now().Sub(start), category)
	logging.Ctx(ctx).Error().Err(err).Str("error_type", category).Msg("Sync cycle failed")
	return err
}

// RunOnce initializes the engine and runs a single cycle.
func (e *Engine) RunOnce(ctx context.Context) (*models.SyncResult, error) {
	if err := e.Initialize(ctx); err != nil {
		return nil, err
	}
	return e.Sync(ctx)
}

// RunContinuously initializes the engine, syncs immediately and then on
// every interval until ctx is canceled. Cycle failures are logged and never
// stop the loop. A running cycle is detached from ctx so it can finish its
// retry budget; cancellation takes effect between cycles.
func (e *Engine) RunContinuously(ctx context.Context) error {
	if err := e.Initialize(ctx); err != nil {
		return err
	}

	logging.Info().Dur("interval", e.cfg.Interval).Int("max_batch", e.cfg.MaxBatch).Msg("Starting continuous sync")
	e.runCycle(ctx)

	ticker := time.NewTicker(e.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			e.logFinalStats()
			return ctx.Err()
		case <-ticker.C:
			// Shutdown may have been requested while the previous cycle ran.
			if ctx.Err() != nil {
				continue
			}
			e.runCycle(ctx)
		}
	}
}

func (e *Engine) runCycle(ctx context.Context) {
	// Errors are already logged and counted by Sync.
	_, _ = e.Sync(context.WithoutCancel(ctx))
}

func (e *Engine) logFinalStats() {
	stats := e.GetStats()
	logging.Info().
		Int("cycles", stats.Cycles).
		Int("total_synced", stats.TotalSynced).
		Int("total_skipped", stats.TotalSkipped).
		Int("errors", stats.Errors).
		Int("dedup_size", stats.DedupSize).
		Str("serial", stats.SerialNumber).
		Msg("Sync stopped")
}

// TestConnections authenticates and probes both services independently. It
// never returns an error; failures are reported per side. Sync state is not
// touched.
func (e *Engine) TestConnections(ctx context.Context) models.ConnectionReport {
	var report models.ConnectionReport

	report.Source.Host = e.source.Host()
	if err := e.source.Authenticate(ctx); err != nil {
		report.Source.Message = "authentication failed"
		report.Source.Detail = err.Error()
	} else if conns, err := e.source.ListConnections(ctx); err != nil {
		report.Source.Message = "listing connections failed"
		report.Source.Detail = err.Error()
	} else {
		report.Source.Success = true
		report.Source.Message = "authenticated"
		report.Source.Detail = fmt.Sprintf("%d patient connection(s)", len(conns))
		report.Source.Host = e.source.Host()
	}

	report.Destination.Host = e.destination.Host()
	if err := e.destination.Authenticate(ctx); err != nil {
		report.Destination.Message = "authentication failed"
		report.Destination.Detail = err.Error()
	} else {
		report.Destination.Success = true
		report.Destination.Message = "authenticated"
		report.Destination.Detail = "account " + logging.MaskSecret(e.destination.AccountID())
	}

	logging.Info().
		Bool("libre_ok", report.Source.Success).
		Bool("dexcom_ok", report.Destination.Success).
		Msg("Connection test complete")
	return report
}

// Verify initializes the engine and reads back recent values from Share. It
// returns false when Share has nothing in the last hour.
func (e *Engine) Verify(ctx context.Context) (bool, error) {
	if err := e.Initialize(ctx); err != nil {
		return false, err
	}

	records, err := e.destination.ReadRecent(ctx, verifyCount, verifyMinutes)
	if err != nil {
		return false, fmt.Errorf("verify: %w", err)
	}

	for _, r := range records {
		logging.Info().
			Int("value", r.Value).
			Str("trend", r.Trend).
			Time("system_time", r.SystemTime).
			Msg("Share record")
	}

	if len(records) == 0 {
		logging.Warn().Int("minutes", verifyMinutes).Msg("No Share records found")
		return false, nil
	}
	return true, nil
}

// GetStats returns a snapshot of the run statistics.
func (e *Engine) GetStats() models.Stats {
	e.mu.RLock()
	defer e.mu.RUnlock()

	stats := e.stats
	if e.stats.LastSyncAt != nil {
		t := *e.stats.LastSyncAt
		stats.LastSyncAt = &t
	}
	return stats
}

// BreakerStates returns the state of each circuit breaker by name.
func (e *Engine) BreakerStates() map[string]string {
	return map[string]string{
		e.sourceBreaker.name:      e.sourceBreaker.state(),
		e.destinationBreaker.name: e.destinationBreaker.state(),
	}
}

// errorCategory maps a cycle error to a metrics label.
func errorCategory(err error) string {
	var (
		libreAuth   *libre.AuthenticationError
		dexcomAuth  *dexcom.AuthenticationError
		rateLimited *libre.RateLimitedError
		upload      *dexcom.UploadError
	)

	switch {
	case isBreakerRejection(err):
		return "circuit_open"
	case errors.As(err, &rateLimited):
		return "rate_limited"
	case errors.Is(err, libre.ErrNoConnections):
		return "no_connections"
	case errors.As(err, &libreAuth), errors.As(err, &dexcomAuth):
		return "auth"
	case errors.As(err, &upload):
		return "upload"
	default:
		return "other"
	}
}
