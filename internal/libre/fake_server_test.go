// LibreShare - LibreLinkUp to Dexcom Share Bridge
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/libreshare

package libre

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// fakeLibre is an httptest LibreLinkUp with overridable handlers and a
// request log.
type fakeLibre struct {
	*httptest.Server

	mu       sync.Mutex
	requests []*http.Request
	handlers map[string]http.HandlerFunc
}

func newFakeLibre(t *testing.T) *fakeLibre {
	t.Helper()
	f := &fakeLibre{handlers: map[string]http.HandlerFunc{}}
	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.requests = append(f.requests, r.Clone(context.Background()))
		h, ok := f.handlers[r.Method+" "+r.URL.Path]
		f.mu.Unlock()
		if !ok {
			http.NotFound(w, r)
			return
		}
		h(w, r)
	}))
	t.Cleanup(f.Close)
	return f
}

func (f *fakeLibre) handle(method, path string, h http.HandlerFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[method+" "+path] = h
}

func (f *fakeLibre) count(method, path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, r := range f.requests {
		if r.Method == method && r.URL.Path == path {
			n++
		}
	}
	return n
}

func (f *fakeLibre) last(method, path string) *http.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.requests) - 1; i >= 0; i-- {
		if f.requests[i].Method == method && f.requests[i].URL.Path == path {
			return f.requests[i]
		}
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func loginOK(token, userID string, expires time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, fmt.Sprintf(
			`{"status":0,"data":{"user":{"id":%q},"authTicket":{"token":%q,"expires":%d,"duration":3600000}}}`,
			userID, token, expires.Unix()))
	}
}

func connectionsOK(patientIDs ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		body := `{"status":0,"data":[`
		for i, id := range patientIDs {
			if i > 0 {
				body += ","
			}
			body += fmt.Sprintf(`{"patientId":%q,"firstName":"Pat"}`, id)
		}
		body += `]}`
		writeJSON(w, http.StatusOK, body)
	}
}

// sleepRecorder records requested delays without sleeping.
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

func newTestClient(f *fakeLibre, opts ...Option) *Client {
	base := []Option{
		WithBaseURL(f.URL),
		WithClock(func() time.Time { return testNow }),
		WithSleep(func(context.Context, time.Duration) error { return nil }),
	}
	return NewClient(Config{Username: "follower@example.com", Password: "secret"}, append(base, opts...)...)
}
