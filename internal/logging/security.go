// LibreShare - LibreLinkUp to Dexcom Share Bridge
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/libreshare

package logging

import (
	"strings"
)

// MaskEmail hides most of the local part of an account name so that log
// lines identify which account was used without exposing it.
//
//	MaskEmail("jane.doe@example.com") // "j*******@example.com"
func MaskEmail(account string) string {
	account = strings.TrimSpace(account)
	if account == "" {
		return ""
	}
	at := strings.LastIndex(account, "@")
	if at < 0 {
		return MaskSecret(account)
	}
	local, domain := account[:at], account[at:]
	if len(local) <= 1 {
		return "*" + domain
	}
	return local[:1] + strings.Repeat("*", len(local)-1) + domain
}

// MaskSecret keeps the first and last two characters of tokens and session
// identifiers. Values shorter than eight characters are masked entirely.
func MaskSecret(secret string) string {
	if len(secret) < 8 {
		return strings.Repeat("*", len(secret))
	}
	return secret[:2] + strings.Repeat("*", len(secret)-4) + secret[len(secret)-2:]
}

// LogAuthSuccess records a successful login against one of the vendor services.
func LogAuthSuccess(service, account, host string) {
	Info().
		Str("event", "auth.success").
		Str("service", service).
		Str("account", MaskEmail(account)).
		Str("host", host).
		Msg("Authenticated")
}

// LogAuthFailure records a failed login against one of the vendor services.
func LogAuthFailure(service, account, host string, err error) {
	Warn().
		Str("event", "auth.failure").
		Str("service", service).
		Str("account", MaskEmail(account)).
		Str("host", host).
		Err(err).
		Msg("Authentication failed")
}
