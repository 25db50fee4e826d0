// LibreShare - LibreLinkUp to Dexcom Share Bridge
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/libreshare

// Package main is the entry point for LibreShare.
//
// LibreShare follows a FreeStyle Libre sensor through a LibreLinkUp follower
// account and republishes every reading to Dexcom Share, so that apps which
// only speak Dexcom Share can display Libre data.
//
// # Modes
//
//	libreshare            run continuously (default)
//	libreshare --once     run one sync cycle and exit
//	libreshare --test     check both logins and exit
//	libreshare --verify   read back recent values from Dexcom Share and exit
//	libreshare version    print the version
//
// # Exit Codes
//
//   - 0: success, or a clean shutdown on SIGINT/SIGTERM
//   - 1: configuration error, failed cycle, failed connection test, or no
//     values found by --verify
//
// # Configuration
//
// See internal/config. The minimum is four variables:
//
//	export LIBRE_USERNAME=follower@example.com
//	export LIBRE_PASSWORD=...
//	export DEXCOM_USERNAME=publisher@example.com
//	export DEXCOM_PASSWORD=...
//	./libreshare
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version is set at build time via -ldflags "-X main.Version=X.Y.Z"
var Version = "0.0.0-dev"

// exitError carries a process exit code through cobra.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func exitWith(code int, err error) error {
	return &exitError{code: code, err: err}
}

type options struct {
	once   bool
	test   bool
	verify bool
}

func newRootCmd() *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:   "libreshare",
		Short: "LibreShare - forward LibreLinkUp glucose readings to Dexcom Share",
		Long: `LibreShare polls a LibreLinkUp follower account and publishes new glucose
readings to Dexcom Share as a virtual receiver.

Without flags it runs continuously, syncing every SYNC_INTERVAL (default 5m).

Examples:
  libreshare                 # run continuously
  libreshare --once          # one sync cycle
  libreshare --test          # check both logins
  libreshare --verify        # show what Dexcom Share has received`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if countTrue(opts.once, opts.test, opts.verify) > 1 {
				return exitWith(1, errors.New("--once, --test and --verify are mutually exclusive"))
			}
			return run(cmd.Context(), opts)
		},
	}

	cmd.Flags().BoolVar(&opts.once, "once", false, "Run a single sync cycle and exit")
	cmd.Flags().BoolVar(&opts.test, "test", false, "Test both service connections and exit")
	cmd.Flags().BoolVar(&opts.verify, "verify", false, "Read back recent Dexcom Share values and exit")

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "libreshare", Version)
		},
	})

	return cmd
}

func countTrue(flags ...bool) int {
	n := 0
	for _, f := range flags {
		if f {
			n++
		}
	}
	return n
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		code := 1
		var ee *exitError
		if errors.As(err, &ee) {
			code = ee.code
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(code)
	}
}
