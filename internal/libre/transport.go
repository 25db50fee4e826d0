// LibreShare - LibreLinkUp to Dexcom Share Bridge
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/libreshare

package libre

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/goccy/go-json"

	"github.com/tomtom215/libreshare/internal/backoff"
	"github.com/tomtom215/libreshare/internal/metrics"
)

const (
	maxAttempts       = 3
	backoffMultiplier = 3

	productHeader  = "llu.android"
	versionHeader  = "4.16.0"
	acceptEncoding = "gzip, deflate, br"
	userAgent      = "Mozilla/5.0 (iPhone; CPU OS 17_4.1 like Mac OS X) AppleWebKit/536.26 (KHTML, like Gecko) Version/17.4.1 Mobile/10A5355d Safari/8536.25"

	// errorBodyPreview bounds response bodies copied into errors and logs.
	errorBodyPreview = 512
)

// Block reasons, also used as metric labels.
const (
	blockStatus     = "status"
	blockCloudflare = "cloudflare"
	blockEmptyBody  = "empty_body"
	blockHTML       = "html"
)

// Cloudflare error codes for rate limiting (1015) and firewall denial (1020).
var cloudflareCodes = map[int]struct{}{1015: {}, 1020: {}}

// requestConfig describes one logical LibreLinkUp call.
type requestConfig struct {
	endpoint string // metrics label
	method   string
	path     string
	body     interface{}
	auth     bool
}

// do executes a request under the blocked-response retry policy and returns
// the decoded body of the first non-blocked 2xx response.
func (c *Client) do(ctx context.Context, cfg requestConfig) ([]byte, error) {
	var payload []byte
	if cfg.body != nil {
		var err error
		payload, err = json.Marshal(cfg.body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
	}

	var reason string
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, fmt.Errorf("rate limiter: %w", err)
			}
		}

		start := c.now()
		status, body, err := c.roundTrip(ctx, cfg, payload)
		if err != nil {
			metrics.RecordLibreRequest(cfg.endpoint, "error", c.now().Sub(start))
			return nil, err
		}

		var blocked bool
		reason, blocked = classifyResponse(status, body)
		if !blocked {
			if status < 200 || status >= 300 {
				metrics.RecordLibreRequest(cfg.endpoint, "error", c.now().Sub(start))
				return nil, &StatusError{StatusCode: status, Body: preview(body)}
			}
			metrics.RecordLibreRequest(cfg.endpoint, "ok", c.now().Sub(start))
			return body, nil
		}

		metrics.RecordLibreRequest(cfg.endpoint, "blocked", c.now().Sub(start))
		metrics.RecordLibreBlocked(reason)
		if reason == blockEmptyBody {
			c.log(ctx).Warn().Str("endpoint", cfg.endpoint).Int("status", status).
				Msg("Empty LibreLinkUp response treated as a soft block")
		}

		if attempt == maxAttempts {
			break
		}

		delay := c.backoff(attempt)
		c.log(ctx).Warn().
			Str("endpoint", cfg.endpoint).
			Str("reason", reason).
			Int("status", status).
			Int("attempt", attempt).
			Int("max_attempts", maxAttempts).
			Dur("retry_delay", delay).
			Msg("LibreLinkUp request blocked, backing off")

		if err := c.sleep(ctx, delay); err != nil {
			return nil, err
		}
	}

	return nil, &RateLimitedError{Attempts: maxAttempts, Cooldown: SuggestedCooldown, Reason: reason}
}

// backoff returns base*3^(attempt-1).
func (c *Client) backoff(attempt int) time.Duration {
	return c.cfg.blockedPolicy().Delay(attempt)
}

func (cfg Config) blockedPolicy() backoff.Policy {
	return backoff.Policy{Initial: cfg.BlockedBackoff, Multiplier: backoffMultiplier}
}

// WorstCaseCall bounds one request whose every attempt is blocked and takes
// attemptTime.
func (cfg Config) WorstCaseCall(attemptTime time.Duration) time.Duration {
	cfg = cfg.withDefaults()
	return time.Duration(maxAttempts)*attemptTime + cfg.blockedPolicy().Total(maxAttempts)
}

func (c *Client) roundTrip(ctx context.Context, cfg requestConfig, payload []byte) (int, []byte, error) {
	var body io.Reader = http.NoBody
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, cfg.method, c.baseURL+cfg.path, body)
	if err != nil {
		return 0, nil, fmt.Errorf("create request: %w", err)
	}
	c.setHeaders(req, cfg.auth)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return 0, nil, fmt.Errorf("read response: %w", err)
	}

	encoding := resp.Header.Get("Content-Encoding")
	decoded, err := decodeBody(encoding, raw)
	if err != nil {
		// Challenge pages are sometimes sent with a wrong Content-Encoding.
		c.log(ctx).Warn().Err(err).Str("content_encoding", encoding).Int("status", resp.StatusCode).
			Msg("Could not decode LibreLinkUp response, inspecting raw body")
		return resp.StatusCode, raw, nil
	}
	return resp.StatusCode, decoded, nil
}

// setHeaders mimics the Android LibreLinkUp app. Accept-Encoding is set
// explicitly, which also stops net/http from decompressing transparently.
func (c *Client) setHeaders(req *http.Request, auth bool) {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Encoding", acceptEncoding)
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Connection", "Keep-Alive")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("product", productHeader)
	req.Header.Set("version", versionHeader)

	if !auth {
		return
	}
	if c.session.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.session.token)
	}
	if c.session.accountID != "" {
		req.Header.Set("Account-Id", c.session.accountID)
	}
}

// classifyResponse decides whether a decoded response is a block.
//
// The empty body rule is a heuristic: LibreLinkUp never answers a valid call
// with an empty document, but a proxy might.
func classifyResponse(status int, body []byte) (string, bool) {
	if status == http.StatusForbidden || status == http.StatusTooManyRequests {
		return blockStatus, true
	}

	compact := stripWhitespace(body)
	if len(compact) == 0 || compact == "{}" {
		return blockEmptyBody, true
	}

	var doc interface{}
	if err := json.Unmarshal(body, &doc); err != nil {
		if hasCloudflareText(body) {
			return blockCloudflare, true
		}
		if looksLikeHTML(body) {
			return blockHTML, true
		}
		return "", false
	}

	if obj, ok := doc.(map[string]interface{}); ok && hasCloudflareCode(obj) {
		return blockCloudflare, true
	}
	return "", false
}

func hasCloudflareCode(obj map[string]interface{}) bool {
	for _, key := range []string{"error_code", "code"} {
		if isCloudflareCode(obj[key]) {
			return true
		}
	}
	if nested, ok := obj["error"].(map[string]interface{}); ok {
		return isCloudflareCode(nested["code"]) || isCloudflareCode(nested["error_code"])
	}
	return false
}

func isCloudflareCode(v interface{}) bool {
	var code int
	switch n := v.(type) {
	case float64:
		code = int(n)
	case string:
		parsed, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return false
		}
		code = parsed
	default:
		return false
	}
	_, ok := cloudflareCodes[code]
	return ok
}

// hasCloudflareText matches Cloudflare's plain-text and HTML error pages,
// which carry "error code: 1015" or "Error 1020".
func hasCloudflareText(body []byte) bool {
	lower := strings.ToLower(string(body))
	for code := range cloudflareCodes {
		c := strconv.Itoa(code)
		if strings.Contains(lower, "error code: "+c) || strings.Contains(lower, "error "+c) {
			return true
		}
	}
	return false
}

func looksLikeHTML(body []byte) bool {
	head := strings.ToLower(strings.TrimSpace(string(body)))
	if len(head) > 512 {
		head = head[:512]
	}
	return strings.HasPrefix(head, "<!doctype html") ||
		strings.HasPrefix(head, "<html") ||
		strings.Contains(head, "<head") ||
		strings.Contains(head, "<body")
}

func stripWhitespace(body []byte) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, string(body))
}

func preview(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > errorBodyPreview {
		return s[:errorBodyPreview] + "..."
	}
	return s
}
