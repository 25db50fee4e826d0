// LibreShare - LibreLinkUp to Dexcom Share Bridge
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/libreshare

package dexcom

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"strings"
)

const (
	serialPrefix = "SM"
	serialSpace  = 100_000_000
)

// DeriveSerial returns a stable receiver serial for a seed such as an account
// id or username. Case and surrounding whitespace do not matter.
func DeriveSerial(seed string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(seed))))
	return formatSerial(binary.BigEndian.Uint64(sum[:8]))
}

// RandomSerial returns a receiver serial drawn from crypto/rand.
func RandomSerial() string {
	var b [8]byte
	_, _ = rand.Read(b[:]) // never fails on supported platforms since Go 1.24
	return formatSerial(binary.BigEndian.Uint64(b[:]))
}

func formatSerial(n uint64) string {
	return fmt.Sprintf("%s%08d", serialPrefix, n%serialSpace)
}
