// LibreShare - LibreLinkUp to Dexcom Share Bridge
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/libreshare

package libre

import (
	"context"
	"errors"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthenticateStoresSession(t *testing.T) {
	f := newFakeLibre(t)
	f.handle(http.MethodPost, loginPath, func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &req))
		assert.Equal(t, "follower@example.com", req.Email)
		assert.Equal(t, "secret", req.Password)
		loginOK("tok-1", "user-42", testNow.Add(time.Hour))(w, r)
	})
	f.handle(http.MethodGet, connectionsPath, connectionsOK("patient-1"))

	c := newTestClient(f)
	require.NoError(t, c.Authenticate(context.Background()))
	assert.True(t, c.Authenticated())

	_, err := c.ListConnections(context.Background())
	require.NoError(t, err)

	req := f.last(http.MethodGet, connectionsPath)
	require.NotNil(t, req)
	assert.Equal(t, "Bearer tok-1", req.Header.Get("Authorization"))
	assert.Equal(t, AccountHash("user-42"), req.Header.Get("Account-Id"))
	assert.Len(t, req.Header.Get("Account-Id"), 64)
	assert.Equal(t, "llu.android", req.Header.Get("product"))
	assert.Equal(t, "4.16.0", req.Header.Get("version"))
	assert.Equal(t, "gzip, deflate, br", req.Header.Get("Accept-Encoding"))
}

func TestAuthenticateFollowsOneRedirect(t *testing.T) {
	global := newFakeLibre(t)
	regional := newFakeLibre(t)

	global.handle(http.MethodPost, loginPath, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, `{"status":0,"data":{"redirect":true,"region":"us"}}`)
	})
	regional.handle(http.MethodPost, loginPath, loginOK("tok-us", "user-1", testNow.Add(time.Hour)))

	var resolved string
	c := newTestClient(global, WithRegionResolver(func(region string) string {
		resolved = region
		return regional.URL
	}))

	require.NoError(t, c.Authenticate(context.Background()))
	assert.Equal(t, "us", resolved)
	assert.Equal(t, regional.URL, c.Host())
	assert.Equal(t, 1, global.count(http.MethodPost, loginPath))
	assert.Equal(t, 1, regional.count(http.MethodPost, loginPath))
}

func TestAuthenticateRedirectLoopFails(t *testing.T) {
	f := newFakeLibre(t)
	f.handle(http.MethodPost, loginPath, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, `{"status":0,"data":{"redirect":true,"region":"eu"}}`)
	})

	c := newTestClient(f, WithRegionResolver(func(string) string { return f.URL }))
	err := c.Authenticate(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRedirectLoop)
	var authErr *AuthenticationError
	assert.ErrorAs(t, err, &authErr)
	assert.Equal(t, 2, f.count(http.MethodPost, loginPath))
}

func TestAuthenticateFailures(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantMsg string
	}{
		{"bad credentials", `{"status":2,"error":{"message":"notAuthenticated"}}`, "invalid username or password"},
		{"terms required", `{"status":4,"data":{"step":{"type":"tou","componentName":"tou"}}}`, "accept the pending terms"},
		{"missing token", `{"status":0,"data":{"user":{"id":"u"}}}`, "no auth token"},
		{"unknown status", `{"status":9,"error":{"message":"locked"}}`, "unexpected status 9: locked"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFakeLibre(t)
			f.handle(http.MethodPost, loginPath, func(w http.ResponseWriter, _ *http.Request) {
				writeJSON(w, http.StatusOK, tt.body)
			})

			c := newTestClient(f)
			err := c.Authenticate(context.Background())

			var authErr *AuthenticationError
			require.ErrorAs(t, err, &authErr)
			assert.Contains(t, err.Error(), tt.wantMsg)
			assert.False(t, c.Authenticated())
		})
	}
}

func TestEnsureAuthenticatedHonorsExpiry(t *testing.T) {
	f := newFakeLibre(t)
	f.handle(http.MethodPost, loginPath, loginOK("tok", "user", testNow.Add(time.Hour)))

	now := testNow
	c := newTestClient(f, WithClock(func() time.Time { return now }))

	require.NoError(t, c.EnsureAuthenticated(context.Background()))
	require.NoError(t, c.EnsureAuthenticated(context.Background()))
	assert.Equal(t, 1, f.count(http.MethodPost, loginPath))

	// Token becomes invalid exactly at expiry.
	now = testNow.Add(time.Hour)
	require.NoError(t, c.EnsureAuthenticated(context.Background()))
	assert.Equal(t, 2, f.count(http.MethodPost, loginPath))
}

func TestListConnectionsMalformed(t *testing.T) {
	f := newFakeLibre(t)
	f.handle(http.MethodPost, loginPath, loginOK("tok", "user", testNow.Add(time.Hour)))
	f.handle(http.MethodGet, connectionsPath, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, `{"status":0,"data":{"not":"a list"}}`)
	})

	c := newTestClient(f)
	_, err := c.ListConnections(context.Background())

	var connErr *ConnectionsError
	require.ErrorAs(t, err, &connErr)
	assert.Contains(t, connErr.Body, `"not":"a list"`)
}

func TestResolvePatientID(t *testing.T) {
	t.Run("caches first patient", func(t *testing.T) {
		f := newFakeLibre(t)
		f.handle(http.MethodPost, loginPath, loginOK("tok", "user", testNow.Add(time.Hour)))
		f.handle(http.MethodGet, connectionsPath, connectionsOK("p-1", "p-2"))

		c := newTestClient(f)
		id, err := c.ResolvePatientID(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "p-1", id)

		id, err = c.ResolvePatientID(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "p-1", id)
		assert.Equal(t, "p-1", c.PatientID())
		assert.Equal(t, 1, f.count(http.MethodGet, connectionsPath))
	})

	t.Run("no connections", func(t *testing.T) {
		f := newFakeLibre(t)
		f.handle(http.MethodPost, loginPath, loginOK("tok", "user", testNow.Add(time.Hour)))
		f.handle(http.MethodGet, connectionsPath, connectionsOK())

		c := newTestClient(f)
		_, err := c.ResolvePatientID(context.Background())
		assert.ErrorIs(t, err, ErrNoConnections)
	})
}

func TestUnauthorizedDropsSession(t *testing.T) {
	f := newFakeLibre(t)
	f.handle(http.MethodPost, loginPath, loginOK("tok", "user", testNow.Add(time.Hour)))
	f.handle(http.MethodGet, connectionsPath, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusUnauthorized, `{"status":401,"error":{"message":"expired"}}`)
	})

	c := newTestClient(f)
	_, err := c.ListConnections(context.Background())

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusUnauthorized, se.StatusCode)
	assert.False(t, c.Authenticated())
}

func TestRegionHost(t *testing.T) {
	assert.Equal(t, "api-eu.libreview.io", RegionHost("eu"))
	assert.Equal(t, "api-eu2.libreview.io", RegionHost(" EU2 "))
	assert.Equal(t, "api.libreview.io", RegionHost(""))
	assert.Equal(t, "api.libreview.io", RegionHost("global"))
	assert.Equal(t, "api.libreview.io", RegionHost("mars"))
	assert.True(t, ValidRegion("global"))
	assert.False(t, ValidRegion("mars"))
	assert.Len(t, Regions(), 13)
}

func TestIsRateLimited(t *testing.T) {
	wrapped := errors.Join(errors.New("cycle"), &RateLimitedError{Attempts: 3})
	assert.True(t, IsRateLimited(wrapped))
	assert.False(t, IsRateLimited(errors.New("plain")))
}
