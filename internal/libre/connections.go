// LibreShare - LibreLinkUp to Dexcom Share Bridge
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/libreshare

package libre

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/goccy/go-json"
)

const connectionsPath = "/llu/connections"

// ListConnections returns the patients linked to the follower account.
func (c *Client) ListConnections(ctx context.Context) ([]Connection, error) {
	if err := c.EnsureAuthenticated(ctx); err != nil {
		return nil, err
	}

	body, err := c.authedGet(ctx, "connections", connectionsPath)
	if err != nil {
		return nil, fmt.Errorf("list connections: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, &ConnectionsError{Message: "malformed response", Body: preview(body)}
	}
	if env.Status != statusOK {
		return nil, &ConnectionsError{Message: fmt.Sprintf("unexpected status %d", env.Status), Body: preview(body)}
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return nil, &ConnectionsError{Message: "response has no connection list", Body: preview(body)}
	}

	var conns []Connection
	if err := json.Unmarshal(env.Data, &conns); err != nil {
		return nil, &ConnectionsError{Message: "connection list is not an array", Body: preview(body)}
	}
	return conns, nil
}

// ResolvePatientID returns the first linked patient's id, caching it.
func (c *Client) ResolvePatientID(ctx context.Context) (string, error) {
	if c.patientID != "" {
		return c.patientID, nil
	}

	conns, err := c.ListConnections(ctx)
	if err != nil {
		return "", err
	}
	if len(conns) == 0 {
		return "", ErrNoConnections
	}
	if conns[0].PatientID == "" {
		return "", &ConnectionsError{Message: "first connection has no patientId"}
	}

	c.patientID = conns[0].PatientID
	c.log(ctx).Info().
		Int("connections", len(conns)).
		Str("patient_first_name", conns[0].FirstName).
		Msg("Resolved LibreLinkUp patient")
	return c.patientID, nil
}

// authedGet issues an authenticated GET. A 401 drops the session so the next
// call logs in again.
func (c *Client) authedGet(ctx context.Context, endpoint, path string) ([]byte, error) {
	body, err := c.do(ctx, requestConfig{
		endpoint: endpoint,
		method:   http.MethodGet,
		path:     path,
		auth:     true,
	})
	var se *StatusError
	if errors.As(err, &se) && se.StatusCode == http.StatusUnauthorized {
		c.session = session{}
	}
	return body, err
}
