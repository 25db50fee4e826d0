// LibreShare - LibreLinkUp to Dexcom Share Bridge
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/libreshare

package dexcom

import (
	"context"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/libreshare/internal/backoff"
	"github.com/tomtom215/libreshare/internal/logging"
)

const (
	// ApplicationID identifies the Dexcom Share mobile application.
	ApplicationID = "d89443d2-327c-4a6f-89e5-496bbb0317db"

	// DefaultRateLimitCooldown is the pause after an HTTP 429.
	DefaultRateLimitCooldown = 60 * time.Second

	// DefaultRateLimitRetries bounds resubmissions after HTTP 429.
	DefaultRateLimitRetries = 3

	userAgent = "Dexcom Share/3.0.2.11 CFNetwork/711.2.23 Darwin/14.0.0"
)

// Config holds the settings needed to publish to Dexcom Share.
type Config struct {
	Username          string
	Password          string
	Region            string
	RateLimitCooldown time.Duration
	RateLimitRetries  int           // 0 = default, negative = never retry
	Timeout           time.Duration // 0 = transport default
}

// session is the state produced by one successful two-phase login.
type session struct {
	accountID string
	sessionID string
}

// Client publishes readings to Dexcom Share. A Client is owned by a single
// sync engine and is not safe for concurrent use.
type Client struct {
	cfg     Config
	rc      *resty.Client
	baseURL string
	sleep   func(ctx context.Context, d time.Duration) error

	session session
	serial  string
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at a fixed services base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) { c.baseURL = baseURL }
}

// WithSleep overrides the context-aware sleep used for rate-limit cooldowns.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(c *Client) { c.sleep = fn }
}

func (cfg Config) withDefaults() Config {
	if cfg.RateLimitCooldown <= 0 {
		cfg.RateLimitCooldown = DefaultRateLimitCooldown
	}
	switch {
	case cfg.RateLimitRetries == 0:
		cfg.RateLimitRetries = DefaultRateLimitRetries
	case cfg.RateLimitRetries < 0:
		cfg.RateLimitRetries = 0
	}
	return cfg
}

// WorstCasePublish bounds one Publish call that logs in, spends every 429
// cooldown and recovers its session once, with each request taking
// attemptTime.
func (cfg Config) WorstCasePublish(attemptTime time.Duration) time.Duration {
	cfg = cfg.withDefaults()
	// Two login requests, two more on recovery, and every upload attempt.
	requests := 2 + 2 + cfg.RateLimitRetries + 2
	return time.Duration(requests)*attemptTime + time.Duration(cfg.RateLimitRetries)*cfg.RateLimitCooldown
}

// NewClient creates a Dexcom Share client for the configured region.
func NewClient(cfg Config, opts ...Option) *Client {
	cfg = cfg.withDefaults()

	c := &Client{
		cfg:     cfg,
		baseURL: RegionBaseURL(cfg.Region),
		sleep:   backoff.Sleep,
	}
	for _, opt := range opts {
		opt(c)
	}

	// Retries stay off at the resty level; session and 429 handling is explicit.
	c.rc = resty.New().
		SetBaseURL(c.baseURL).
		SetTimeout(cfg.Timeout).
		SetRetryCount(0).
		SetHeader("Accept", "application/json").
		SetHeader("Content-Type", "application/json").
		SetHeader("User-Agent", userAgent)
	c.rc.JSONMarshal = json.Marshal
	c.rc.JSONUnmarshal = json.Unmarshal

	return c
}

// Host returns the services base URL.
func (c *Client) Host() string {
	return c.baseURL
}

// AccountID returns the account id from the last login, or "".
func (c *Client) AccountID() string {
	return c.session.accountID
}

// Username returns the configured account name.
func (c *Client) Username() string {
	return c.cfg.Username
}

// SetReceiverSerial sets the virtual receiver identity used for uploads.
func (c *Client) SetReceiverSerial(serial string) {
	c.serial = serial
}

// ReceiverSerial returns the virtual receiver identity, or "".
func (c *Client) ReceiverSerial() string {
	return c.serial
}

func (c *Client) log(ctx context.Context) *zerolog.Logger {
	return logging.WithComponent(ctx, "dexcom")
}
