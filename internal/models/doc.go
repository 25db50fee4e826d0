// LibreShare - LibreLinkUp to Dexcom Share Bridge
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/libreshare

/*
Package models defines the data structures shared between the LibreLinkUp
client, the Dexcom Share client and the sync engine.

Key Components:

  - Reading: canonical glucose reading exchanged between source and destination
  - Trend: direction of change on the LibreLinkUp 1..7 scale (4 = stable)
  - ShareRecord: a glucose value read back from Dexcom Share for verification
  - SyncResult: outcome of a single sync cycle
  - Stats: cumulative run statistics exposed on the status surface
  - ConnectionReport: per-side result of a connectivity probe

Readings flow one way:

	libre.Client.FetchReadings -> []Reading -> sync.Engine -> dexcom.Client.Publish

The engine never inspects vendor wire formats; both clients translate to and
from Reading at their boundary.
*/
package models
