// LibreShare - LibreLinkUp to Dexcom Share Bridge
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/libreshare

// Package validation provides struct validation using go-playground/validator v10.
//
// It wraps the validator in a thread-safe singleton with the custom tags the
// configuration needs and translates failures into readable messages.
//
// # Custom Tags
//
//   - libre_region: a LibreLinkUp region code (ae, ap, au, ..., us) or "global"
//   - dexcom_region: a Dexcom Share region (us, ous, eu, jp)
//   - receiver_serial: two upper-case letters followed by eight digits
//
// # Field Names
//
// Errors report fields by their koanf path (for example "libre.username")
// rather than the Go field name, so messages match the config file and the
// documented environment variables.
//
// # Quick Start
//
//	type Settings struct {
//	    Region string `koanf:"region" validate:"libre_region"`
//	    Serial string `koanf:"serial_number" validate:"omitempty,receiver_serial"`
//	}
//
//	if verr := validation.ValidateStruct(&s); verr != nil {
//	    return fmt.Errorf("invalid settings: %w", verr)
//	}
package validation
