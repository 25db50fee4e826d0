// LibreShare - LibreLinkUp to Dexcom Share Bridge
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/libreshare

package libre

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/tomtom215/libreshare/internal/backoff"
	"github.com/tomtom215/libreshare/internal/logging"
)

const (
	// DefaultBlockedBackoff is the base delay after the first blocked attempt.
	DefaultBlockedBackoff = 5 * time.Second

	// SuggestedCooldown is reported to the operator once the retry budget is spent.
	SuggestedCooldown = 5 * time.Minute

	// ticketFallbackLifetime applies when a login ticket carries no expiry.
	ticketFallbackLifetime = time.Hour
)

// Config holds the settings needed to talk to LibreLinkUp.
type Config struct {
	Username       string
	Password       string
	Region         string
	BlockedBackoff time.Duration // base delay between blocked attempts
	RequestRate    float64       // requests per second, 0 = unlimited
	Timeout        time.Duration // per-request timeout, 0 = transport default
}

// session is the authentication state returned by one successful login.
type session struct {
	token     string
	expiry    time.Time
	accountID string // hex sha256 of the LibreLinkUp user id
}

// Client talks to the LibreLinkUp follower API. A Client is owned by a single
// sync engine and is not safe for concurrent use.
type Client struct {
	cfg           Config
	httpClient    *http.Client
	limiter       *rate.Limiter
	baseURL       string
	resolveRegion func(region string) string
	sleep         func(ctx context.Context, d time.Duration) error
	now           func() time.Time

	session   session
	patientID string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client used for all requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithBaseURL points the client at a fixed base URL instead of the region host.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) { c.baseURL = baseURL }
}

// WithRegionResolver overrides how a login redirect region becomes a base URL.
func WithRegionResolver(fn func(region string) string) Option {
	return func(c *Client) { c.resolveRegion = fn }
}

// WithSleep overrides the context-aware sleep used between blocked attempts.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(c *Client) { c.sleep = fn }
}

// WithClock overrides the wall clock.
func WithClock(fn func() time.Time) Option {
	return func(c *Client) { c.now = fn }
}

func (cfg Config) withDefaults() Config {
	if cfg.BlockedBackoff <= 0 {
		cfg.BlockedBackoff = DefaultBlockedBackoff
	}
	return cfg
}

// NewClient creates a LibreLinkUp client for the configured region.
func NewClient(cfg Config, opts ...Option) *Client {
	cfg = cfg.withDefaults()

	c := &Client{
		cfg:           cfg,
		httpClient:    &http.Client{Timeout: cfg.Timeout},
		baseURL:       RegionBaseURL(cfg.Region),
		resolveRegion: RegionBaseURL,
		sleep:         backoff.Sleep,
		now:           time.Now,
	}
	if cfg.RequestRate > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RequestRate), 1)
	}

	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Host returns the base URL currently targeted. It changes after a region redirect.
func (c *Client) Host() string {
	return c.baseURL
}

// PatientID returns the cached patient id, or "" before ResolvePatientID succeeds.
func (c *Client) PatientID() string {
	return c.patientID
}

// Authenticated reports whether a non-expired token is held.
func (c *Client) Authenticated() bool {
	return c.session.token != "" && c.now().Before(c.session.expiry)
}

func (c *Client) log(ctx context.Context) *zerolog.Logger {
	return logging.WithComponent(ctx, "libre")
}
