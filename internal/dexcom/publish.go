// LibreShare - LibreLinkUp to Dexcom Share Bridge
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/libreshare

package dexcom

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/tomtom215/libreshare/internal/metrics"
	"github.com/tomtom215/libreshare/internal/models"
)

const (
	postEgvsPath    = "/Publisher/PostReceiverEgvRecords"
	readLatestPath  = "/Publisher/ReadPublisherLatestGlucoseValues"
	bodyPreviewSize = 512
)

// Session error codes returned by Share when the session id is stale.
var sessionExpiredCodes = []string{"SessionIdNotFound", "SessionNotValid"}

// Publish uploads readings as receiver EGV records and returns how many the
// server accepted. An empty batch is a no-op.
func (c *Client) Publish(ctx context.Context, readings []models.Reading) (int, error) {
	if len(readings) == 0 {
		return 0, nil
	}
	if err := c.EnsureAuthenticated(ctx); err != nil {
		return 0, err
	}
	if c.serial == "" {
		return 0, ErrNoSerial
	}

	req := uploadRequest{SN: c.serial, Egvs: make([]egvRecord, 0, len(readings))}
	for _, r := range readings {
		req.Egvs = append(req.Egvs, toRecord(r))
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return 0, fmt.Errorf("encode egv records: %w", err)
	}

	if _, err := c.postWithSession(ctx, "post_egvs", postEgvsPath, nil, payload); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			return 0, &UploadError{StatusCode: apiErr.StatusCode, Body: apiErr.Body, Err: err}
		}
		return 0, &UploadError{Err: err}
	}

	c.log(ctx).Debug().
		Int("records", len(req.Egvs)).
		Str("serial", c.serial).
		Msg("Posted receiver EGV records")
	return len(req.Egvs), nil
}

// ReadRecent returns up to count values from the trailing window of minutes,
// newest first.
func (c *Client) ReadRecent(ctx context.Context, count, minutes int) ([]models.ShareRecord, error) {
	if err := c.EnsureAuthenticated(ctx); err != nil {
		return nil, err
	}

	query := map[string]string{
		"minutes":  strconv.Itoa(minutes),
		"maxCount": strconv.Itoa(count),
	}
	body, err := c.postWithSession(ctx, "read_latest", readLatestPath, query, nil)
	if err != nil {
		return nil, fmt.Errorf("read recent values: %w", err)
	}

	var raw []readRecord
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decode recent values: %w", err)
	}

	records := make([]models.ShareRecord, 0, len(raw))
	for _, r := range raw {
		rec, err := r.toShareRecord()
		if err != nil {
			c.log(ctx).Warn().Err(err).Msg("Skipping Share record with unreadable time")
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

// postWithSession posts with the current session id. A stale session is
// recovered once by reauthenticating; HTTP 429 waits out the cooldown and
// retries up to the configured limit. The same payload is sent every time.
func (c *Client) postWithSession(ctx context.Context, endpoint, path string, query map[string]string, payload []byte) ([]byte, error) {
	reauthenticated := false
	rateLimited := 0

	for {
		req := c.rc.R().
			SetContext(ctx).
			SetQueryParam("sessionId", c.session.sessionID).
			SetQueryParams(query)
		if payload != nil {
			req.SetBody(payload)
		}

		resp, err := req.Post(path)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", endpoint, err)
		}
		metrics.RecordDexcomRequest(endpoint, resp.StatusCode())

		if resp.IsSuccess() {
			return resp.Body(), nil
		}

		apiErr := newAPIError(endpoint, resp.StatusCode(), resp.Body())
		switch {
		case apiErr.sessionExpired():
			if reauthenticated {
				return nil, fmt.Errorf("%w: %w", ErrSessionExpired, apiErr)
			}
			reauthenticated = true
			metrics.DexcomReauth.Inc()
			c.log(ctx).Info().
				Str("endpoint", endpoint).
				Str("code", apiErr.Code).
				Msg("Dexcom Share session expired, reauthenticating")

			if err := c.Reauthenticate(ctx); err != nil {
				return nil, fmt.Errorf("recover session: %w", err)
			}

		case resp.StatusCode() == http.StatusTooManyRequests:
			metrics.DexcomRateLimited.Inc()
			if rateLimited >= c.cfg.RateLimitRetries {
				return nil, apiErr
			}
			rateLimited++

			c.log(ctx).Warn().
				Str("endpoint", endpoint).
				Int("attempt", rateLimited).
				Int("max_retries", c.cfg.RateLimitRetries).
				Dur("cooldown", c.cfg.RateLimitCooldown).
				Msg("Dexcom Share rate limited (HTTP 429), cooling down")

			if err := c.sleep(ctx, c.cfg.RateLimitCooldown); err != nil {
				return nil, err
			}

		default:
			return nil, apiErr
		}
	}
}

// shareErrorBody is the JSON error document Share returns on failures.
type shareErrorBody struct {
	Code    string `json:"Code"`
	Message string `json:"Message"`
}

func newAPIError(endpoint string, status int, body []byte) *APIError {
	e := &APIError{Endpoint: endpoint, StatusCode: status, Body: truncate(string(body))}
	var doc shareErrorBody
	if err := json.Unmarshal(body, &doc); err == nil {
		e.Code = doc.Code
		e.Message = doc.Message
	}
	return e
}

func (e *APIError) sessionExpired() bool {
	for _, code := range sessionExpiredCodes {
		if e.Code == code || strings.Contains(e.Body, code) {
			return true
		}
	}
	return false
}

func truncate(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > bodyPreviewSize {
		return s[:bodyPreviewSize] + "..."
	}
	return s
}
