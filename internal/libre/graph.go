// LibreShare - LibreLinkUp to Dexcom Share Bridge
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/libreshare

package libre

import (
	"context"
	"fmt"
	"net/url"

	"github.com/goccy/go-json"

	"github.com/tomtom215/libreshare/internal/models"
)

// FetchReadings returns the current and historical readings for a patient,
// newest first with one reading per timestamp. An empty patientID resolves
// the first linked patient.
func (c *Client) FetchReadings(ctx context.Context, patientID string) ([]models.Reading, error) {
	if err := c.EnsureAuthenticated(ctx); err != nil {
		return nil, err
	}

	if patientID == "" {
		var err error
		patientID, err = c.ResolvePatientID(ctx)
		if err != nil {
			return nil, err
		}
	}

	path := fmt.Sprintf("%s/%s/graph", connectionsPath, url.PathEscape(patientID))
	body, err := c.authedGet(ctx, "graph", path)
	if err != nil {
		return nil, fmt.Errorf("fetch graph: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, &ConnectionsError{Message: "malformed graph response", Body: preview(body)}
	}
	if env.Status != statusOK {
		return nil, &ConnectionsError{Message: fmt.Sprintf("graph returned status %d", env.Status), Body: preview(body)}
	}

	var data graphData
	if len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return nil, &ConnectionsError{Message: "malformed graph data", Body: preview(body)}
		}
	}

	points := make([]rawPoint, 0, len(data.GraphData)+1)
	if data.Connection != nil && len(data.Connection.GlucoseMeasurement) > 0 {
		points = append(points, data.Connection.GlucoseMeasurement)
	} else {
		c.log(ctx).Warn().Msg("LibreLinkUp graph has no current measurement")
	}
	points = append(points, data.GraphData...)

	readings := make([]models.Reading, 0, len(points))
	for _, p := range points {
		readings = append(readings, c.normalizePoint(ctx, p))
	}

	models.SortNewestFirst(readings)
	readings = models.UniqueByTimestamp(readings)

	c.log(ctx).Debug().
		Int("points", len(points)).
		Int("readings", len(readings)).
		Msg("Fetched LibreLinkUp readings")
	return readings, nil
}
