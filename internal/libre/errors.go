// LibreShare - LibreLinkUp to Dexcom Share Bridge
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/libreshare

package libre

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNoConnections is returned when the follower account has no linked patients.
	ErrNoConnections = errors.New("no LibreLinkUp connections found: ask the patient to share their data with this follower account in the LibreLinkUp app")

	// ErrRedirectLoop is returned when login redirects more than once.
	ErrRedirectLoop = errors.New("LibreLinkUp login redirected more than once")
)

// AuthenticationError indicates that login failed or returned an unusable ticket.
type AuthenticationError struct {
	Status  int
	Message string
	Err     error
}

func (e *AuthenticationError) Error() string {
	msg := "LibreLinkUp authentication failed"
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *AuthenticationError) Unwrap() error { return e.Err }

// ConnectionsError indicates a malformed or unsuccessful connections response.
type ConnectionsError struct {
	Message string
	Body    string
}

func (e *ConnectionsError) Error() string {
	if e.Body == "" {
		return "LibreLinkUp connections: " + e.Message
	}
	return fmt.Sprintf("LibreLinkUp connections: %s (body: %s)", e.Message, e.Body)
}

// RateLimitedError is returned once every attempt of a request was blocked.
type RateLimitedError struct {
	Attempts int
	Cooldown time.Duration
	Reason   string
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("LibreLinkUp blocked %d consecutive attempts (%s); wait about %s before trying again",
		e.Attempts, e.Reason, e.Cooldown)
}

// StatusError is a non-blocked, non-success HTTP response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("LibreLinkUp returned HTTP %d: %s", e.StatusCode, e.Body)
}

// IsRateLimited reports whether err is or wraps a *RateLimitedError.
func IsRateLimited(err error) bool {
	var rl *RateLimitedError
	return errors.As(err, &rl)
}
