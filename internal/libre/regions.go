// LibreShare - LibreLinkUp to Dexcom Share Bridge
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/libreshare

package libre

import (
	"sort"
	"strings"
)

const globalHost = "api.libreview.io"

var regions = map[string]struct{}{
	"ae": {}, "ap": {}, "au": {}, "ca": {}, "cn": {}, "de": {}, "eu": {},
	"eu2": {}, "fr": {}, "jp": {}, "la": {}, "ru": {}, "us": {},
}

// ValidRegion reports whether region is a known LibreLinkUp region code.
// The empty string and "global" are accepted.
func ValidRegion(region string) bool {
	r := strings.ToLower(strings.TrimSpace(region))
	if r == "" || r == "global" {
		return true
	}
	_, ok := regions[r]
	return ok
}

// Regions returns the known region codes in sorted order.
func Regions() []string {
	out := make([]string, 0, len(regions))
	for r := range regions {
		out = append(out, r)
	}
	sort.Strings(out)
	return out
}

// RegionHost returns the API host for a region code. Unknown and empty
// regions resolve to the global host.
func RegionHost(region string) string {
	r := strings.ToLower(strings.TrimSpace(region))
	if _, ok := regions[r]; ok {
		return "api-" + r + ".libreview.io"
	}
	return globalHost
}

// RegionBaseURL returns the https base URL for a region code.
func RegionBaseURL(region string) string {
	return "https://" + RegionHost(region)
}
