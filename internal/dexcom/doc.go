// LibreShare - LibreLinkUp to Dexcom Share Bridge
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/libreshare

/*
Package dexcom implements a Dexcom Share publisher client that presents
itself as a hardware receiver.

Authentication is two-phase:

	POST /General/AuthenticatePublisherAccount  {accountName, password, applicationId} -> "account-id"
	POST /General/LoginPublisherAccountById     {accountId, password, applicationId}   -> "session-id"

Both answers are bare JSON strings. The all-zero GUID counts as empty.

Readings are posted to /Publisher/PostReceiverEgvRecords as

	{"SN": "SM12345678", "Egvs": [{"DT": "/Date(ms)/", "ST": "/Date(ms)/", "WT": "/Date(ms)/", "Value": 120, "Trend": 4}]}

where Trend is the LibreLinkUp trend inverted (8 - v).

Session Recovery:

Dexcom invalidates sessions server side. A response naming SessionIdNotFound
or SessionNotValid triggers one Reauthenticate and one resubmission of the
identical body. HTTP 429 sleeps for the configured cooldown and resubmits, up
to Config.RateLimitRetries times.

Regions:

	us        -> share2.dexcom.com
	ous, eu   -> shareous1.dexcom.com
	jp        -> share.dexcom.jp
*/
package dexcom
