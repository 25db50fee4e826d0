// LibreShare - LibreLinkUp to Dexcom Share Bridge
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/libreshare

package dexcom

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomtom215/libreshare/internal/models"
)

func sampleReadings() []models.Reading {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return []models.Reading{
		{Value: 120.4, Trend: models.TrendRisingFast, Timestamp: base, Origin: models.OriginLibreLinkUp},
		{Value: 118.5, Trend: models.TrendStable, Timestamp: base.Add(-5 * time.Minute), Origin: models.OriginLibreLinkUp},
	}
}

func TestAuthenticateTwoPhase(t *testing.T) {
	f := newFakeShare(t)
	c := newTestClient(f)

	require.NoError(t, c.Authenticate(context.Background()))
	assert.Equal(t, "11111111-2222-3333-4444-555555555555", c.AccountID())

	auth := f.calls(authenticatePath)
	require.Len(t, auth, 1)
	var authReq authenticateRequest
	require.NoError(t, json.Unmarshal(auth[0].body, &authReq))
	assert.Equal(t, "owner@example.com", authReq.AccountName)
	assert.Equal(t, ApplicationID, authReq.ApplicationID)

	login := f.calls(loginByIDPath)
	require.Len(t, login, 1)
	var loginReq loginByIDRequest
	require.NoError(t, json.Unmarshal(login[0].body, &loginReq))
	assert.Equal(t, c.AccountID(), loginReq.AccountID)
	assert.Equal(t, "pw", loginReq.Password)

	// EnsureAuthenticated is a no-op while a session id is held.
	require.NoError(t, c.EnsureAuthenticated(context.Background()))
	assert.Len(t, f.calls(authenticatePath), 1)
}

func TestAuthenticateFailures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"bad password", http.StatusInternalServerError, `{"Code":"AccountPasswordInvalid","Message":"bad"}`, "AccountPasswordInvalid"},
		{"empty string", http.StatusOK, `""`, "empty identifier"},
		{"zero guid", http.StatusOK, `"00000000-0000-0000-0000-000000000000"`, "empty identifier"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFakeShare(t)
			f.handle(authenticatePath, func(w http.ResponseWriter, _ *http.Request) {
				writeShare(w, tt.status, tt.body)
			})

			c := newTestClient(f)
			err := c.Authenticate(context.Background())

			var authErr *AuthenticationError
			require.ErrorAs(t, err, &authErr)
			assert.Equal(t, "authenticate", authErr.Step)
			assert.Contains(t, err.Error(), tt.want)
			assert.Empty(t, f.calls(loginByIDPath))
		})
	}
}

func TestPublishRequiresSerial(t *testing.T) {
	f := newFakeShare(t)
	c := newTestClient(f)

	_, err := c.Publish(context.Background(), sampleReadings())

	assert.ErrorIs(t, err, ErrNoSerial)
	var cfgErr *ConfigurationError
	assert.ErrorAs(t, err, &cfgErr)
	assert.Empty(t, f.calls(postEgvsPath))
}

func TestPublishEmptyBatchSendsNothing(t *testing.T) {
	f := newFakeShare(t)
	c := newTestClient(f)
	c.SetReceiverSerial("SM12345678")

	n, err := c.Publish(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, f.requests)
}

func TestPublishWireFormat(t *testing.T) {
	f := newFakeShare(t)
	f.handle(postEgvsPath, func(w http.ResponseWriter, _ *http.Request) {
		writeShare(w, http.StatusOK, ``)
	})

	c := newTestClient(f)
	c.SetReceiverSerial("SM12345678")
	n, err := c.Publish(context.Background(), sampleReadings())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	posts := f.calls(postEgvsPath)
	require.Len(t, posts, 1)
	assert.Equal(t, "session-1", posts[0].query.Get("sessionId"))

	var got uploadRequest
	require.NoError(t, json.Unmarshal(posts[0].body, &got))
	assert.Equal(t, "SM12345678", got.SN)
	require.Len(t, got.Egvs, 2)

	first := got.Egvs[0]
	assert.Equal(t, "/Date(1772366400000)/", first.ST)
	assert.Equal(t, first.ST, first.DT)
	assert.Equal(t, first.ST, first.WT)
	assert.Equal(t, 120, first.Value)
	assert.Equal(t, TrendDoubleUp, first.Trend)

	assert.Equal(t, 119, got.Egvs[1].Value)
	assert.Equal(t, TrendFlat, got.Egvs[1].Trend)
}

func TestPublishRecoversExpiredSessionOnce(t *testing.T) {
	f := newFakeShare(t)
	posts := 0
	f.handle(postEgvsPath, func(w http.ResponseWriter, _ *http.Request) {
		posts++
		if posts == 1 {
			writeShare(w, http.StatusInternalServerError, `{"Code":"SessionIdNotFound","Message":"Session ID not found."}`)
			return
		}
		writeShare(w, http.StatusOK, ``)
	})

	c := newTestClient(f)
	c.SetReceiverSerial("SM12345678")
	n, err := c.Publish(context.Background(), sampleReadings())

	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Len(t, f.calls(authenticatePath), 2, "initial login plus exactly one reauthentication")
	assert.Len(t, f.calls(loginByIDPath), 2)

	calls := f.calls(postEgvsPath)
	require.Len(t, calls, 2)
	assert.Equal(t, calls[0].body, calls[1].body, "resubmission must be identical")
	assert.Equal(t, "session-1", calls[0].query.Get("sessionId"))
	assert.Equal(t, "session-2", calls[1].query.Get("sessionId"))
}

func TestPublishGivesUpAfterSecondExpiry(t *testing.T) {
	f := newFakeShare(t)
	f.handle(postEgvsPath, func(w http.ResponseWriter, _ *http.Request) {
		writeShare(w, http.StatusInternalServerError, `{"Code":"SessionNotValid"}`)
	})

	c := newTestClient(f)
	c.SetReceiverSerial("SM12345678")
	_, err := c.Publish(context.Background(), sampleReadings())

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSessionExpired)
	var upErr *UploadError
	require.ErrorAs(t, err, &upErr)
	assert.Equal(t, http.StatusInternalServerError, upErr.StatusCode)
	assert.Len(t, f.calls(postEgvsPath), 2)
	assert.Len(t, f.calls(authenticatePath), 2)
}

func TestPublishRateLimitCooldown(t *testing.T) {
	t.Run("recovers after one cooldown", func(t *testing.T) {
		f := newFakeShare(t)
		posts := 0
		f.handle(postEgvsPath, func(w http.ResponseWriter, _ *http.Request) {
			posts++
			if posts == 1 {
				writeShare(w, http.StatusTooManyRequests, ``)
				return
			}
			writeShare(w, http.StatusOK, ``)
		})

		rec := &sleepRecorder{}
		c := newTestClient(f, WithSleep(rec.sleep))
		c.SetReceiverSerial("SM12345678")
		n, err := c.Publish(context.Background(), sampleReadings())

		require.NoError(t, err)
		assert.Equal(t, 2, n)
		assert.Equal(t, []time.Duration{DefaultRateLimitCooldown}, rec.delays)

		calls := f.calls(postEgvsPath)
		require.Len(t, calls, 2)
		assert.Equal(t, calls[0].body, calls[1].body)
	})

	t.Run("bounded retries", func(t *testing.T) {
		f := newFakeShare(t)
		f.handle(postEgvsPath, func(w http.ResponseWriter, _ *http.Request) {
			writeShare(w, http.StatusTooManyRequests, `{"Code":"TooManyRequests"}`)
		})

		rec := &sleepRecorder{}
		c := NewClient(Config{Username: "u", Password: "p", RateLimitCooldown: 2 * time.Second, RateLimitRetries: 2},
			WithBaseURL(f.URL), WithSleep(rec.sleep))
		c.SetReceiverSerial("SM12345678")
		_, err := c.Publish(context.Background(), sampleReadings())

		var upErr *UploadError
		require.ErrorAs(t, err, &upErr)
		assert.Equal(t, http.StatusTooManyRequests, upErr.StatusCode)
		assert.Len(t, f.calls(postEgvsPath), 3)
		assert.Equal(t, []time.Duration{2 * time.Second, 2 * time.Second}, rec.delays)
	})
}

func TestPublishOtherFailureIsTerminal(t *testing.T) {
	f := newFakeShare(t)
	f.handle(postEgvsPath, func(w http.ResponseWriter, _ *http.Request) {
		writeShare(w, http.StatusBadRequest, `{"Code":"InvalidArgument","Message":"SN unknown"}`)
	})

	c := newTestClient(f)
	c.SetReceiverSerial("SM12345678")
	_, err := c.Publish(context.Background(), sampleReadings())

	var upErr *UploadError
	require.ErrorAs(t, err, &upErr)
	assert.Equal(t, http.StatusBadRequest, upErr.StatusCode)
	assert.Contains(t, upErr.Body, "SN unknown")
	assert.False(t, errors.Is(err, ErrSessionExpired))
	assert.Len(t, f.calls(postEgvsPath), 1)
}

func TestReadRecent(t *testing.T) {
	f := newFakeShare(t)
	f.handle(readLatestPath, func(w http.ResponseWriter, _ *http.Request) {
		writeShare(w, http.StatusOK, `[
			{"WT":"Date(1772366400000)","ST":"Date(1772366400000)","DT":"Date(1772366400000+0100)","Value":120,"Trend":"Flat"},
			{"ST":"/Date(1772366100000+0100)/","Value":118,"Trend":1},
			{"ST":"garbage","Value":1,"Trend":4}
		]`)
	})

	c := newTestClient(f)
	records, err := c.ReadRecent(context.Background(), 10, 60)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, 120, records[0].Value)
	assert.Equal(t, "Flat", records[0].Trend)
	assert.True(t, records[0].SystemTime.Equal(time.UnixMilli(1772366400000)))

	assert.Equal(t, "DoubleUp", records[1].Trend)
	_, offset := records[1].SystemTime.Zone()
	assert.Equal(t, 3600, offset)

	calls := f.calls(readLatestPath)
	require.Len(t, calls, 1)
	assert.Equal(t, "60", calls[0].query.Get("minutes"))
	assert.Equal(t, "10", calls[0].query.Get("maxCount"))
	assert.Equal(t, "session-1", calls[0].query.Get("sessionId"))
}

func TestReadRecentRecoversExpiredSession(t *testing.T) {
	f := newFakeShare(t)
	reads := 0
	f.handle(readLatestPath, func(w http.ResponseWriter, _ *http.Request) {
		reads++
		if reads == 1 {
			writeShare(w, http.StatusInternalServerError, `{"Code":"SessionIdNotFound"}`)
			return
		}
		writeShare(w, http.StatusOK, `[]`)
	})

	c := newTestClient(f)
	records, err := c.ReadRecent(context.Background(), 1, 10)
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Len(t, f.calls(authenticatePath), 2)
}

func TestRegionBaseURL(t *testing.T) {
	assert.Equal(t, "https://share2.dexcom.com/ShareWebServices/Services", RegionBaseURL("us"))
	assert.Equal(t, "https://shareous1.dexcom.com/ShareWebServices/Services", RegionBaseURL("ous"))
	assert.Equal(t, "https://shareous1.dexcom.com/ShareWebServices/Services", RegionBaseURL("EU"))
	assert.Equal(t, "https://share.dexcom.jp/ShareWebServices/Services", RegionBaseURL("jp"))
	assert.True(t, ValidRegion("jp"))
	assert.False(t, ValidRegion("apac"))
}

func TestWorstCasePublish(t *testing.T) {
	// Defaults: 3 cooldowns of 60s and 9 requests.
	assert.Equal(t, 3*time.Minute+9*time.Second, Config{}.WorstCasePublish(time.Second))
	assert.Equal(t, 6*time.Second, Config{RateLimitRetries: -1}.WorstCasePublish(time.Second))
}
