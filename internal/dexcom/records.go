// LibreShare - LibreLinkUp to Dexcom Share Bridge
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/libreshare

package dexcom

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/libreshare/internal/models"
)

// Dexcom trend codes.
const (
	TrendNone           = 0
	TrendDoubleUp       = 1
	TrendSingleUp       = 2
	TrendFortyFiveUp    = 3
	TrendFlat           = 4
	TrendFortyFiveDown  = 5
	TrendSingleDown     = 6
	TrendDoubleDown     = 7
	TrendNotComputable  = 8
	TrendRateOutOfRange = 9
)

var trendNames = map[int]string{
	TrendNone:           "None",
	TrendDoubleUp:       "DoubleUp",
	TrendSingleUp:       "SingleUp",
	TrendFortyFiveUp:    "FortyFiveUp",
	TrendFlat:           "Flat",
	TrendFortyFiveDown:  "FortyFiveDown",
	TrendSingleDown:     "SingleDown",
	TrendDoubleDown:     "DoubleDown",
	TrendNotComputable:  "NotComputable",
	TrendRateOutOfRange: "RateOutOfRange",
}

// MapTrend converts between the LibreLinkUp and Dexcom 1..7 scales, which are
// mirror images of each other. Values outside 1..7 map to 4.
func MapTrend(v int) int {
	if v < 1 || v > 7 {
		return TrendFlat
	}
	return 8 - v
}

// TrendName returns the Dexcom name of a trend code.
func TrendName(code int) string {
	if name, ok := trendNames[code]; ok {
		return name
	}
	return "Unknown"
}

// egvRecord is one estimated glucose value on the wire.
type egvRecord struct {
	DT    string `json:"DT"`
	ST    string `json:"ST"`
	WT    string `json:"WT"`
	Value int    `json:"Value"`
	Trend int    `json:"Trend"`
}

type uploadRequest struct {
	SN   string      `json:"SN"`
	Egvs []egvRecord `json:"Egvs"`
}

func toRecord(r models.Reading) egvRecord {
	stamp := FormatDate(r.Timestamp)
	return egvRecord{
		DT:    stamp,
		ST:    stamp,
		WT:    stamp,
		Value: int(math.Round(r.Value)),
		Trend: MapTrend(int(r.Trend)),
	}
}

// FormatDate renders an instant in the /Date(ms)/ wrapper.
func FormatDate(t time.Time) string {
	return fmt.Sprintf("/Date(%d)/", t.UnixMilli())
}

var dateWrapper = regexp.MustCompile(`^/?Date\((-?\d+)([+-]\d{4})?\)/?$`)

// ParseDate reads a /Date(ms)/ or Date(ms+hhmm) value. The offset only sets
// the location of the returned time; the instant is the epoch value.
func ParseDate(s string) (time.Time, error) {
	m := dateWrapper.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return time.Time{}, fmt.Errorf("not a date wrapper: %q", s)
	}

	ms, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("date wrapper value: %w", err)
	}
	t := time.UnixMilli(ms).UTC()

	if m[2] != "" {
		hours, _ := strconv.Atoi(m[2][1:3])
		minutes, _ := strconv.Atoi(m[2][3:5])
		offset := hours*3600 + minutes*60
		if m[2][0] == '-' {
			offset = -offset
		}
		t = t.In(time.FixedZone(m[2], offset))
	}
	return t, nil
}

// readRecord is a value read back from Share. Trend arrives either as a code
// or as its name depending on the endpoint version.
type readRecord struct {
	ST    string          `json:"ST"`
	Value int             `json:"Value"`
	Trend json.RawMessage `json:"Trend"`
}

func (r readRecord) toShareRecord() (models.ShareRecord, error) {
	st, err := ParseDate(r.ST)
	if err != nil {
		return models.ShareRecord{}, err
	}
	return models.ShareRecord{
		Value:      r.Value,
		Trend:      trendLabel(r.Trend),
		SystemTime: st,
	}, nil
}

func trendLabel(raw json.RawMessage) string {
	var code int
	if err := json.Unmarshal(raw, &code); err == nil {
		return TrendName(code)
	}
	var name string
	if err := json.Unmarshal(raw, &name); err == nil && name != "" {
		return name
	}
	return "Unknown"
}
