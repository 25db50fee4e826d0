// LibreShare - LibreLinkUp to Dexcom Share Bridge
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/libreshare

package libre

import (
	"github.com/goccy/go-json"
)

// envelope is the outer shape of every LibreLinkUp response.
type envelope struct {
	Status int             `json:"status"`
	Data   json.RawMessage `json:"data"`
	Error  *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginData struct {
	Redirect   bool   `json:"redirect"`
	Region     string `json:"region"`
	AuthTicket *struct {
		Token    string `json:"token"`
		Expires  int64  `json:"expires"`  // epoch seconds
		Duration int64  `json:"duration"` // milliseconds
	} `json:"authTicket"`
	User *struct {
		ID string `json:"id"`
	} `json:"user"`
	Step *struct {
		Type          string `json:"type"`
		ComponentName string `json:"componentName"`
	} `json:"step"`
}

// Connection is a patient linked to the follower account.
type Connection struct {
	ID         string `json:"id"`
	PatientID  string `json:"patientId"`
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	Country    string `json:"country"`
	TargetLow  int    `json:"targetLow"`
	TargetHigh int    `json:"targetHigh"`
}

// rawPoint holds a glucose point keyed by exact field name. Vendor payloads
// use several spellings of the same field, so case-insensitive struct
// decoding would pick the wrong one.
type rawPoint map[string]json.RawMessage

type graphData struct {
	Connection *struct {
		PatientID          string   `json:"patientId"`
		GlucoseMeasurement rawPoint `json:"glucoseMeasurement"`
	} `json:"connection"`
	GraphData []rawPoint `json:"graphData"`
}
