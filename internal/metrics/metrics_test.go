// LibreShare - LibreLinkUp to Dexcom Share Bridge
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/libreshare

package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordSyncSuccess(t *testing.T) {
	beforeCycles := testutil.ToFloat64(SyncCycles.WithLabelValues("success"))
	beforeUploaded := testutil.ToFloat64(ReadingsUploaded)
	beforeSkipped := testutil.ToFloat64(ReadingsSkipped)

	RecordSyncSuccess(150*time.Millisecond, 15, 12, 3)

	assert.Equal(t, beforeCycles+1, testutil.ToFloat64(SyncCycles.WithLabelValues("success")))
	assert.Equal(t, beforeUploaded+12, testutil.ToFloat64(ReadingsUploaded))
	assert.Equal(t, beforeSkipped+3, testutil.ToFloat64(ReadingsSkipped))
	assert.Greater(t, testutil.ToFloat64(SyncLastSuccess), float64(0))
}

func TestRecordSyncFailure(t *testing.T) {
	tests := []struct {
		name      string
		errorType string
		wantLabel string
	}{
		{"named category", "rate_limited", "rate_limited"},
		{"empty category falls back to other", "", "other"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := testutil.ToFloat64(SyncErrors.WithLabelValues(tt.wantLabel))
			RecordSyncFailure(time.Second, tt.errorType)
			assert.Equal(t, before+1, testutil.ToFloat64(SyncErrors.WithLabelValues(tt.wantLabel)))
		})
	}
}

func TestRecordDexcomRequest(t *testing.T) {
	before := testutil.ToFloat64(DexcomRequests.WithLabelValues("post_egvs", "429"))
	RecordDexcomRequest("post_egvs", 429)
	assert.Equal(t, before+1, testutil.ToFloat64(DexcomRequests.WithLabelValues("post_egvs", "429")))
}

func TestRecordLibreBlocked(t *testing.T) {
	before := testutil.ToFloat64(LibreBlockedResponses.WithLabelValues("cloudflare"))
	RecordLibreBlocked("cloudflare")
	assert.Equal(t, before+1, testutil.ToFloat64(LibreBlockedResponses.WithLabelValues("cloudflare")))
}

func TestMetricGathering(t *testing.T) {
	RecordLibreRequest("graph", "ok", 20*time.Millisecond)
	RecordStatusRequest("GET", "/status", "200", time.Millisecond)

	problems, err := testutil.GatherAndLint(prometheus.DefaultGatherer)
	require.NoError(t, err)
	for _, p := range problems {
		assert.NotContains(t, p.Metric, namespace+"_", "lint problem: %s", p.Text)
	}
}
