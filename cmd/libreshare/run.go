// LibreShare - LibreLinkUp to Dexcom Share Bridge
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/libreshare

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/libreshare/internal/backoff"
	"github.com/tomtom215/libreshare/internal/config"
	"github.com/tomtom215/libreshare/internal/dexcom"
	"github.com/tomtom215/libreshare/internal/libre"
	"github.com/tomtom215/libreshare/internal/logging"
	"github.com/tomtom215/libreshare/internal/models"
	"github.com/tomtom215/libreshare/internal/state"
	"github.com/tomtom215/libreshare/internal/status"
	"github.com/tomtom215/libreshare/internal/supervisor"
	"github.com/tomtom215/libreshare/internal/supervisor/services"
	"github.com/tomtom215/libreshare/internal/sync"
)

// staleFactor times the sync interval is how old the last success may be
// before /healthz reports unhealthy.
const staleFactor = 3

// signalContext is canceled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigCh:
			logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()

	return ctx, cancel
}

func run(parent context.Context, opts options) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := signalContext(parent)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return exitWith(1, err)
	}

	logging.Init(cfg.Log())
	logging.Info().
		Str("version", Version).
		Str("libre_account", logging.MaskEmail(cfg.Libre.Username)).
		Str("libre_region", cfg.Libre.Region).
		Str("dexcom_account", logging.MaskEmail(cfg.Dexcom.Username)).
		Str("dexcom_region", cfg.Dexcom.Region).
		Dur("interval", cfg.Sync.Interval).
		Int("max_batch", cfg.Sync.MaxBatch).
		Msg("Configuration loaded")

	engine := sync.NewEngine(cfg.Engine(), libre.NewClient(cfg.LibreClient()), dexcom.NewClient(cfg.DexcomClient()))

	switch {
	case opts.test:
		return runTest(ctx, engine)
	case opts.verify:
		return runVerify(ctx, engine)
	case opts.once:
		return runOnce(ctx, engine)
	default:
		return runContinuous(ctx, cfg, engine)
	}
}

func runOnce(ctx context.Context, engine *sync.Engine) error {
	result, err := engine.RunOnce(ctx)
	if err != nil {
		return exitWith(1, err)
	}
	logging.Info().
		Int("uploaded", result.Uploaded).
		Int("skipped", result.Skipped).
		Msg("Single sync complete")
	return nil
}

func runTest(ctx context.Context, engine *sync.Engine) error {
	report := engine.TestConnections(ctx)

	sides := []struct {
		name string
		models.SideReport
	}{
		{"LibreLinkUp", report.Source},
		{"Dexcom Share", report.Destination},
	}
	for _, side := range sides {
		event := logging.Info()
		if !side.Success {
			event = logging.Error()
		}
		event.Str("service", side.name).Str("host", side.Host).Str("detail", side.Detail).Msg(side.Message)
	}

	if !report.OK() {
		return exitWith(1, errors.New("connection test failed"))
	}
	return nil
}

func runVerify(ctx context.Context, engine *sync.Engine) error {
	found, err := engine.Verify(ctx)
	if err != nil {
		return exitWith(1, err)
	}
	if !found {
		return exitWith(1, errors.New("no recent values found on Dexcom Share"))
	}
	return nil
}

// runContinuous applies crash-loop backoff when STATE_DIR is set and then
// runs the supervisor tree until shutdown.
func runContinuous(ctx context.Context, cfg *config.Config, engine *sync.Engine) (err error) {
	if cfg.State.Dir == "" {
		return supervise(ctx, cfg, engine)
	}

	store, serr := state.Open(cfg.State.Dir)
	if serr != nil {
		logging.Warn().Err(serr).Msg("Crash-loop state unavailable, starting without backoff")
		return supervise(ctx, cfg, engine)
	}
	defer func() {
		if cerr := store.Close(); cerr != nil {
			logging.Warn().Err(cerr).Msg("Error closing state store")
		}
	}()

	rec, berr := store.BeginRun(time.Now())
	if berr != nil {
		logging.Warn().Err(berr).Msg("Failed to read crash-loop state")
	}

	if wait := rec.Remaining(time.Now()); wait > 0 {
		logging.Warn().
			Int("consecutive_failures", rec.ConsecutiveFailures).
			Str("last_error", rec.LastError).
			Dur("wait", wait).
			Msg("Backing off after repeated failures")

		if serr := backoff.Sleep(ctx, wait); serr != nil {
			if aerr := store.AbortRun(); aerr != nil {
				logging.Warn().Err(aerr).Msg("Failed to update crash-loop state")
			}
			return nil
		}
	}

	defer func() {
		if eerr := store.EndRun(time.Now(), err); eerr != nil {
			logging.Warn().Err(eerr).Msg("Failed to update crash-loop state")
		}
	}()

	return supervise(ctx, cfg, engine)
}

func supervise(parent context.Context, cfg *config.Config, engine *sync.Engine) error {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	budget := cfg.CycleBudget()
	treeCfg := shutdownTreeConfig(budget)
	logging.Debug().Dur("shutdown_timeout", treeCfg.ShutdownTimeout).Msg("Supervisor tree configured")

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), treeCfg)
	if err != nil {
		return exitWith(1, fmt.Errorf("create supervisor tree: %w", err))
	}

	// A fatal engine error stops the whole tree.
	syncSvc := services.NewSyncService(engine, func(err error) {
		logging.Error().Err(err).Msg("Sync engine stopped")
		cancel()
	})
	tree.AddSyncService(syncSvc)

	if cfg.Status.Enabled {
		server := &http.Server{
			Addr: cfg.Status.Addr,
			Handler: status.NewRouter(engine, status.Config{
				RateLimit:  cfg.Status.RateLimit,
				StaleAfter: staleFactor * cfg.Sync.Interval,
				Version:    Version,
			}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		tree.AddStatusService(services.NewHTTPServerService(server, services.DefaultShutdownTimeout))
		logging.Info().Str("addr", cfg.Status.Addr).Msg("Status server enabled")
	}

	logging.Info().Msg("Starting supervisor tree")
	treeErr := <-tree.ServeBackground(ctx)

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
	}

	// An in-flight cycle runs detached from ctx; do not exit underneath it.
	drainCtx, drainCancel := context.WithTimeout(context.Background(), budget)
	defer drainCancel()
	if err := syncSvc.Wait(drainCtx); err != nil {
		logging.Warn().Dur("waited", budget).Msg("Sync cycle still running at exit")
	}

	if err := syncSvc.Err(); err != nil {
		return exitWith(1, err)
	}
	if treeErr != nil && !errors.Is(treeErr, context.Canceled) {
		return exitWith(1, fmt.Errorf("supervisor tree: %w", treeErr))
	}

	logging.Info().Msg("LibreShare stopped")
	return nil
}

// shutdownTreeConfig lets the tree wait out a full sync cycle on shutdown.
func shutdownTreeConfig(cycleBudget time.Duration) supervisor.TreeConfig {
	treeCfg := supervisor.DefaultTreeConfig()
	if cycleBudget > treeCfg.ShutdownTimeout {
		treeCfg.ShutdownTimeout = cycleBudget
	}
	return treeCfg
}
