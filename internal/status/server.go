// LibreShare - LibreLinkUp to Dexcom Share Bridge
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/libreshare

package status

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/libreshare/internal/logging"
	"github.com/tomtom215/libreshare/internal/models"
)

// StatsProvider exposes the engine state shown on the status surface.
type StatsProvider interface {
	GetStats() models.Stats
	BreakerStates() map[string]string
}

// Config controls the status router.
type Config struct {
	// RateLimit is requests per client IP per minute on /healthz and /status. 0 disables it.
	RateLimit int

	// StaleAfter is the age of the last successful sync after which /healthz
	// reports unhealthy. 0 disables the check.
	StaleAfter time.Duration

	// Version is reported on /status.
	Version string
}

// Response is the /status body.
type Response struct {
	Status   string            `json:"status"`
	Version  string            `json:"version,omitempty"`
	Uptime   string            `json:"uptime"`
	Stats    models.Stats      `json:"stats"`
	Breakers map[string]string `json:"breakers"`
}

// HealthResponse is the /healthz body.
type HealthResponse struct {
	Status     string     `json:"status"`
	LastSyncAt *time.Time `json:"last_sync_at,omitempty"`
}

type handler struct {
	provider StatsProvider
	cfg      Config
	now      func() time.Time
}

// NewRouter builds the status router.
func NewRouter(provider StatsProvider, cfg Config) http.Handler {
	return newRouter(provider, cfg, time.Now)
}

func newRouter(provider StatsProvider, cfg Config, now func() time.Time) http.Handler {
	h := &handler{provider: provider, cfg: cfg, now: now}

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(Metrics)

	r.Group(func(r chi.Router) {
		if cfg.RateLimit > 0 {
			r.Use(httprate.LimitByIP(cfg.RateLimit, time.Minute))
		}
		r.Get("/healthz", h.health)
		r.Get("/status", h.status)
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}

// health reports whether syncs are still succeeding.
func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	stats := h.provider.GetStats()
	resp := HealthResponse{Status: "ok", LastSyncAt: stats.LastSyncAt}
	code := http.StatusOK

	if h.stale(stats) {
		resp.Status = "stale"
		code = http.StatusServiceUnavailable
	}

	writeJSON(w, r, code, resp)
}

// stale reports whether the last success, or startup when there has been
// none, is older than StaleAfter.
func (h *handler) stale(stats models.Stats) bool {
	if h.cfg.StaleAfter <= 0 {
		return false
	}
	since := stats.StartedAt
	if stats.LastSyncAt != nil {
		since = *stats.LastSyncAt
	}
	return h.now().Sub(since) > h.cfg.StaleAfter
}

func (h *handler) status(w http.ResponseWriter, r *http.Request) {
	stats := h.provider.GetStats()

	resp := Response{
		Status:   "ok",
		Version:  h.cfg.Version,
		Uptime:   h.now().Sub(stats.StartedAt).Truncate(time.Second).String(),
		Stats:    stats,
		Breakers: h.provider.BreakerStates(),
	}
	if h.stale(stats) {
		resp.Status = "stale"
	}
	for _, state := range resp.Breakers {
		if state != "closed" {
			resp.Status = "degraded"
		}
	}

	writeJSON(w, r, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, r *http.Request, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("Failed to encode JSON response")
	}
}
