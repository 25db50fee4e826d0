// LibreShare - LibreLinkUp to Dexcom Share Bridge
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/libreshare

// Package backoff holds the exponential delay curve and the context-aware
// sleep shared by the LibreLinkUp client, the Dexcom client and the
// crash-loop store.
//
//	p := backoff.Policy{Initial: 5 * time.Second, Multiplier: 3}
//	p.Delay(1) // 5s
//	p.Delay(2) // 15s
package backoff
