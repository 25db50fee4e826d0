// LibreShare - LibreLinkUp to Dexcom Share Bridge
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/libreshare

/*
Package supervisor provides process supervision for LibreShare using suture v4.

# Overview

Long-running services are organized into two layers:

	RootSupervisor ("libreshare")
	├── SyncSupervisor ("sync-layer")
	│   └── SyncService
	└── StatusSupervisor ("status-layer")
	    └── HTTPServerService (if STATUS_ENABLED)

A panic or error in one service restarts only that service, subject to
suture's failure threshold and backoff. Supervisor events are logged through
the zerolog slog bridge via sutureslog.

Fatal conditions that a restart cannot fix, such as rejected credentials,
are reported by services.SyncService.Err; the CLI stops the tree and exits
non-zero so the crash-loop backoff in internal/state applies.

# Usage Example

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
	    return err
	}
	syncSvc := services.NewSyncService(engine)
	tree.AddSyncService(syncSvc)

	errCh := tree.ServeBackground(ctx)
*/
package supervisor
