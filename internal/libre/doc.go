// LibreShare - LibreLinkUp to Dexcom Share Bridge
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/libreshare

/*
Package libre implements a client for the LibreLinkUp follower API.

The client logs in as a follower account, resolves the first linked patient
and fetches the current and historical glucose points for that patient,
normalizing them into models.Reading.

Request Flow:

	Authenticate      POST /llu/auth/login            (one region redirect hop)
	ListConnections   GET  /llu/connections
	FetchReadings     GET  /llu/connections/{id}/graph

Blocked Responses:

LibreLinkUp sits behind Cloudflare. A response is treated as blocked when:
  - the HTTP status is 403 or 429
  - the body carries Cloudflare error code 1015 or 1020
  - the body is empty or "{}" once whitespace is removed
  - the body is not JSON and looks like an HTML challenge page

Blocked requests are retried up to 3 attempts with a base*3^(n-1) backoff.
When the budget is exhausted a *RateLimitedError is returned. Any other
failure aborts immediately.

Bodies are decompressed according to Content-Encoding (gzip, deflate, br)
before any inspection, and gzip is sniffed by magic bytes when the header is
missing.

Regions:

	ae ap au ca cn de eu eu2 fr jp la ru us -> api-<region>.libreview.io
	"" or "global"                          -> api.libreview.io
*/
package libre
