// LibreShare - LibreLinkUp to Dexcom Share Bridge
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/libreshare

package dexcom

import (
	"errors"
	"fmt"
)

// ErrSessionExpired marks a response that named an invalid session. It only
// escapes the client when recovery itself fails.
var ErrSessionExpired = errors.New("Dexcom Share session expired")

// ErrNoSerial is returned by Publish before SetReceiverSerial was called.
var ErrNoSerial = &ConfigurationError{Message: "receiver serial number is not set"}

// ConfigurationError indicates the client was used before being fully configured.
type ConfigurationError struct {
	Message string
}

func (e *ConfigurationError) Error() string {
	return "Dexcom Share configuration: " + e.Message
}

// APIError is a non-success Dexcom Share response.
type APIError struct {
	Endpoint   string
	StatusCode int
	Code       string // Dexcom error code, e.g. AccountPasswordInvalid
	Message    string
	Body       string
}

func (e *APIError) Error() string {
	switch {
	case e.Code != "" && e.Message != "":
		return fmt.Sprintf("%s: HTTP %d %s: %s", e.Endpoint, e.StatusCode, e.Code, e.Message)
	case e.Code != "":
		return fmt.Sprintf("%s: HTTP %d %s", e.Endpoint, e.StatusCode, e.Code)
	default:
		return fmt.Sprintf("%s: HTTP %d: %s", e.Endpoint, e.StatusCode, e.Body)
	}
}

// AuthenticationError indicates that either login phase failed.
type AuthenticationError struct {
	Step    string
	Message string
	Err     error
}

func (e *AuthenticationError) Error() string {
	msg := "Dexcom Share authentication failed"
	if e.Step != "" {
		msg += " (" + e.Step + ")"
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *AuthenticationError) Unwrap() error { return e.Err }

// UploadError is a terminal failure to publish a batch.
type UploadError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *UploadError) Error() string {
	if e.Err != nil {
		return "Dexcom Share upload failed: " + e.Err.Error()
	}
	return fmt.Sprintf("Dexcom Share upload failed: HTTP %d: %s", e.StatusCode, e.Body)
}

func (e *UploadError) Unwrap() error { return e.Err }
