// LibreShare - LibreLinkUp to Dexcom Share Bridge
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/libreshare

package dexcom

import (
	"context"
	"strings"

	"github.com/goccy/go-json"

	"github.com/tomtom215/libreshare/internal/logging"
	"github.com/tomtom215/libreshare/internal/metrics"
)

const (
	authenticatePath = "/General/AuthenticatePublisherAccount"
	loginByIDPath    = "/General/LoginPublisherAccountById"

	zeroGUID = "00000000-0000-0000-0000-000000000000"
)

type authenticateRequest struct {
	AccountName   string `json:"accountName"`
	Password      string `json:"password"`
	ApplicationID string `json:"applicationId"`
}

type loginByIDRequest struct {
	AccountID     string `json:"accountId"`
	Password      string `json:"password"`
	ApplicationID string `json:"applicationId"`
}

// Authenticate runs the two-phase login and replaces the session.
func (c *Client) Authenticate(ctx context.Context) error {
	accountID, err := c.postForID(ctx, "authenticate", authenticatePath, authenticateRequest{
		AccountName:   c.cfg.Username,
		Password:      c.cfg.Password,
		ApplicationID: ApplicationID,
	})
	if err != nil {
		logging.LogAuthFailure("dexcom", c.cfg.Username, c.baseURL, err)
		return err
	}

	sessionID, err := c.postForID(ctx, "login", loginByIDPath, loginByIDRequest{
		AccountID:     accountID,
		Password:      c.cfg.Password,
		ApplicationID: ApplicationID,
	})
	if err != nil {
		logging.LogAuthFailure("dexcom", c.cfg.Username, c.baseURL, err)
		return err
	}

	c.session = session{accountID: accountID, sessionID: sessionID}
	logging.LogAuthSuccess("dexcom", c.cfg.Username, c.baseURL)
	return nil
}

// EnsureAuthenticated logs in only when no session id is held.
func (c *Client) EnsureAuthenticated(ctx context.Context) error {
	if c.session.sessionID != "" {
		return nil
	}
	return c.Authenticate(ctx)
}

// Reauthenticate drops both ids and logs in again.
func (c *Client) Reauthenticate(ctx context.Context) error {
	c.session = session{}
	return c.Authenticate(ctx)
}

func (c *Client) postForID(ctx context.Context, step, path string, body interface{}) (string, error) {
	resp, err := c.rc.R().SetContext(ctx).SetBody(body).Post(path)
	if err != nil {
		return "", &AuthenticationError{Step: step, Err: err}
	}
	metrics.RecordDexcomRequest(step, resp.StatusCode())

	if !resp.IsSuccess() {
		return "", &AuthenticationError{Step: step, Err: newAPIError(step, resp.StatusCode(), resp.Body())}
	}

	id := unwrapString(resp.Body())
	if id == "" || id == zeroGUID {
		return "", &AuthenticationError{Step: step, Message: "empty identifier in response"}
	}
	return id, nil
}

// unwrapString decodes a bare JSON string, falling back to trimming quotes.
func unwrapString(body []byte) string {
	var s string
	if err := json.Unmarshal(body, &s); err == nil {
		return strings.TrimSpace(s)
	}
	return strings.Trim(strings.TrimSpace(string(body)), `"`)
}
