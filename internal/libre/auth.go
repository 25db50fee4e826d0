// LibreShare - LibreLinkUp to Dexcom Share Bridge
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/libreshare

package libre

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/libreshare/internal/logging"
)

// LibreLinkUp login status codes.
const (
	statusOK             = 0
	statusBadCredentials = 2
	statusStepRequired   = 4
)

const loginPath = "/llu/auth/login"

// Authenticate logs in and stores the session. A regional redirect switches
// the client to that region's host for good and logs in once more; a second
// redirect fails with ErrRedirectLoop.
func (c *Client) Authenticate(ctx context.Context) error {
	redirected := false

	for {
		data, err := c.login(ctx)
		if err != nil {
			logging.LogAuthFailure("librelinkup", c.cfg.Username, c.baseURL, err)
			return err
		}

		if data.Redirect {
			if redirected {
				err := &AuthenticationError{Message: "region " + data.Region, Err: ErrRedirectLoop}
				logging.LogAuthFailure("librelinkup", c.cfg.Username, c.baseURL, err)
				return err
			}
			if strings.TrimSpace(data.Region) == "" {
				return &AuthenticationError{Message: "redirect response without a region"}
			}

			previous := c.baseURL
			c.baseURL = c.resolveRegion(data.Region)
			c.patientID = ""
			redirected = true

			c.log(ctx).Info().
				Str("region", data.Region).
				Str("from", previous).
				Str("to", c.baseURL).
				Msg("LibreLinkUp redirected login to regional host")
			continue
		}

		if err := c.storeSession(data); err != nil {
			logging.LogAuthFailure("librelinkup", c.cfg.Username, c.baseURL, err)
			return err
		}

		logging.LogAuthSuccess("librelinkup", c.cfg.Username, c.baseURL)
		return nil
	}
}

// EnsureAuthenticated logs in only when no token is held or it has expired.
func (c *Client) EnsureAuthenticated(ctx context.Context) error {
	if c.Authenticated() {
		return nil
	}
	return c.Authenticate(ctx)
}

func (c *Client) login(ctx context.Context) (*loginData, error) {
	body, err := c.do(ctx, requestConfig{
		endpoint: "login",
		method:   http.MethodPost,
		path:     loginPath,
		body:     loginRequest{Email: c.cfg.Username, Password: c.cfg.Password},
	})
	if err != nil {
		var rl *RateLimitedError
		if errors.As(err, &rl) {
			return nil, fmt.Errorf("login: %w", err)
		}
		return nil, &AuthenticationError{Err: err}
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, &AuthenticationError{Message: "malformed login response", Err: err}
	}

	var data loginData
	if len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return nil, &AuthenticationError{Status: env.Status, Message: "malformed login data", Err: err}
		}
	}

	switch env.Status {
	case statusOK:
		return &data, nil
	case statusBadCredentials:
		return nil, &AuthenticationError{Status: env.Status, Message: "invalid username or password"}
	case statusStepRequired:
		step := "an additional step"
		if data.Step != nil && data.Step.ComponentName != "" {
			step = data.Step.ComponentName
		}
		return nil, &AuthenticationError{
			Status:  env.Status,
			Message: fmt.Sprintf("account requires %s; open the LibreLinkUp app and accept the pending terms", step),
		}
	default:
		msg := fmt.Sprintf("unexpected status %d", env.Status)
		if env.Error != nil && env.Error.Message != "" {
			msg += ": " + env.Error.Message
		}
		return nil, &AuthenticationError{Status: env.Status, Message: msg}
	}
}

// storeSession replaces the session wholesale from a successful login.
func (c *Client) storeSession(data *loginData) error {
	if data.AuthTicket == nil || data.AuthTicket.Token == "" {
		return &AuthenticationError{Message: "response has no auth token"}
	}

	var expiry time.Time
	switch {
	case data.AuthTicket.Expires > 0:
		expiry = time.Unix(data.AuthTicket.Expires, 0)
	case data.AuthTicket.Duration > 0:
		expiry = c.now().Add(time.Duration(data.AuthTicket.Duration) * time.Millisecond)
	default:
		expiry = c.now().Add(ticketFallbackLifetime)
	}

	next := session{token: data.AuthTicket.Token, expiry: expiry}
	if data.User != nil && data.User.ID != "" {
		next.accountID = AccountHash(data.User.ID)
	}
	c.session = next
	return nil
}

// AccountHash returns the Account-Id header value for a LibreLinkUp user id.
func AccountHash(userID string) string {
	sum := sha256.Sum256([]byte(userID))
	return hex.EncodeToString(sum[:])
}
