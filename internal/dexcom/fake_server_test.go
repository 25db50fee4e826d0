// LibreShare - LibreLinkUp to Dexcom Share Bridge
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/libreshare

package dexcom

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"
)

type recordedRequest struct {
	path  string
	query url.Values
	body  []byte
}

// fakeShare is an httptest Dexcom Share with per-path handlers.
type fakeShare struct {
	*httptest.Server

	mu       sync.Mutex
	requests []recordedRequest
	handlers map[string]http.HandlerFunc
	sessions int
}

func newFakeShare(t *testing.T) *fakeShare {
	t.Helper()
	f := &fakeShare{handlers: map[string]http.HandlerFunc{}}
	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		f.mu.Lock()
		f.requests = append(f.requests, recordedRequest{path: r.URL.Path, query: r.URL.Query(), body: body})
		h, ok := f.handlers[r.URL.Path]
		f.mu.Unlock()
		if !ok {
			http.NotFound(w, r)
			return
		}
		h(w, r)
	}))
	t.Cleanup(f.Close)

	// Default two-phase login hands out a fresh session id per login.
	f.handle(authenticatePath, func(w http.ResponseWriter, _ *http.Request) {
		writeShare(w, http.StatusOK, `"11111111-2222-3333-4444-555555555555"`)
	})
	f.handle(loginByIDPath, func(w http.ResponseWriter, _ *http.Request) {
		f.mu.Lock()
		f.sessions++
		n := f.sessions
		f.mu.Unlock()
		writeShare(w, http.StatusOK, fmt.Sprintf(`"session-%d"`, n))
	})
	return f
}

func (f *fakeShare) handle(path string, h http.HandlerFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[path] = h
}

func (f *fakeShare) calls(path string) []recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []recordedRequest
	for _, r := range f.requests {
		if r.path == path {
			out = append(out, r)
		}
	}
	return out
}

func writeShare(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

type sleepRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *sleepRecorder) sleep(_ context.Context, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delays = append(s.delays, d)
	return nil
}

func newTestClient(f *fakeShare, opts ...Option) *Client {
	base := []Option{
		WithBaseURL(f.URL),
		WithSleep(func(context.Context, time.Duration) error { return nil }),
	}
	return NewClient(Config{Username: "owner@example.com", Password: "pw"}, append(base, opts...)...)
}
