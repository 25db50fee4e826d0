// LibreShare - LibreLinkUp to Dexcom Share Bridge
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/libreshare

package dexcom

import "strings"

const servicesPath = "/ShareWebServices/Services"

var regionHosts = map[string]string{
	"us":  "share2.dexcom.com",
	"ous": "shareous1.dexcom.com",
	"eu":  "shareous1.dexcom.com",
	"jp":  "share.dexcom.jp",
}

// ValidRegion reports whether region is a known Dexcom Share region.
func ValidRegion(region string) bool {
	_, ok := regionHosts[strings.ToLower(strings.TrimSpace(region))]
	return ok
}

// RegionHost returns the Share host for a region, defaulting to the
// outside-US host.
func RegionHost(region string) string {
	if host, ok := regionHosts[strings.ToLower(strings.TrimSpace(region))]; ok {
		return host
	}
	return regionHosts["ous"]
}

// RegionBaseURL returns the services base URL for a region.
func RegionBaseURL(region string) string {
	return "https://" + RegionHost(region) + servicesPath
}
