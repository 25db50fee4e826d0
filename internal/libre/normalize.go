// LibreShare - LibreLinkUp to Dexcom Share Bridge
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/libreshare

package libre

import (
	"context"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/libreshare/internal/metrics"
	"github.com/tomtom215/libreshare/internal/models"
)

// timestampLayout is the US-style layout LibreLinkUp uses for point times.
const timestampLayout = "1/2/2006 3:04:05 PM"

var (
	timestampKeys = []string{"FactoryTimestamp", "Timestamp"}
	valueKeys     = []string{"ValueInMgPerDl", "Value", "value"}
	trendKeys     = []string{"TrendArrow", "trendArrow"}
)

// normalizePoint converts a raw glucose point into a Reading. It never fails:
// an unparseable timestamp becomes the current time.
func (c *Client) normalizePoint(ctx context.Context, p rawPoint) models.Reading {
	ts, ok := pointTimestamp(p)
	if !ok {
		ts = c.now().UTC()
		metrics.LibreTimestampParseWarnings.Inc()
		c.log(ctx).Warn().
			Str("factory_timestamp", string(p["FactoryTimestamp"])).
			Str("timestamp", string(p["Timestamp"])).
			Msg("Unparseable glucose timestamp, using current time")
	}

	return models.Reading{
		Value:     pointValue(p),
		Trend:     pointTrend(p),
		Timestamp: ts,
		Origin:    models.OriginLibreLinkUp,
	}
}

func pointTimestamp(p rawPoint) (time.Time, bool) {
	for _, key := range timestampKeys {
		raw, ok := p[key]
		if !ok {
			continue
		}
		if t, ok := parseTimestamp(raw); ok {
			return t, true
		}
	}
	return time.Time{}, false
}

// parseTimestamp accepts the LibreLinkUp layout (as UTC), RFC 3339 and epoch
// milliseconds given as a number or a numeric string.
func parseTimestamp(raw json.RawMessage) (time.Time, bool) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		s = strings.TrimSpace(s)
		if s == "" {
			return time.Time{}, false
		}
		if t, err := time.ParseInLocation(timestampLayout, s, time.UTC); err == nil {
			return t, true
		}
		if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
			return t.UTC(), true
		}
		if ms, err := strconv.ParseInt(s, 10, 64); err == nil && ms > 0 {
			return time.UnixMilli(ms).UTC(), true
		}
		return time.Time{}, false
	}

	if n, ok := rawNumber(raw); ok && n > 0 {
		return time.UnixMilli(int64(n)).UTC(), true
	}
	return time.Time{}, false
}

func pointValue(p rawPoint) float64 {
	for _, key := range valueKeys {
		if n, ok := rawNumber(p[key]); ok {
			return math.Max(n, 0)
		}
	}
	return 0
}

func pointTrend(p rawPoint) models.Trend {
	for _, key := range trendKeys {
		raw, present := p[key]
		if !present || string(raw) == "null" {
			continue
		}
		n, ok := rawNumber(raw)
		if !ok || n != math.Trunc(n) {
			return models.TrendStable
		}
		return models.Trend(int(n)).OrStable()
	}
	return models.TrendStable
}

// rawNumber reads a JSON number or numeric string. null and absent fields
// report false.
func rawNumber(raw json.RawMessage) (float64, bool) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, false
	}

	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, !math.IsNaN(n) && !math.IsInf(n, 0)
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
			return f, true
		}
	}
	return 0, false
}
