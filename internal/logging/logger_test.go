// LibreShare - LibreLinkUp to Dexcom Share Bridge
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/libreshare

package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	return entry
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "info", cfg.Level)
	assert.Equal(t, "json", cfg.Format)
	assert.False(t, cfg.Caller)
	assert.True(t, cfg.Timestamp)
	assert.NotNil(t, cfg.Output)
}

func TestInitWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "debug", Format: "json", Output: &buf})
	t.Cleanup(func() { Init(DefaultConfig()) })

	Info().Int("uploaded", 3).Msg("sync done")

	entry := decodeLine(t, &buf)
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "sync done", entry["message"])
	assert.EqualValues(t, 3, entry["uploaded"])
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  zerolog.Level
	}{
		{"trace", zerolog.TraceLevel},
		{"DEBUG", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warning", zerolog.WarnLevel},
		{" error ", zerolog.ErrorLevel},
		{"off", zerolog.Disabled},
		{"bogus", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLevel(tt.input))
		})
	}
}

func TestValidLevel(t *testing.T) {
	assert.True(t, ValidLevel("warn"))
	assert.True(t, ValidLevel("Disabled"))
	assert.False(t, ValidLevel("verbose"))
}

func TestWithComponent(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(NewTestLogger(&buf))
	t.Cleanup(func() { Init(DefaultConfig()) })

	ctx := ContextWithCorrelationID(context.Background(), "c0ffee00")
	WithComponent(ctx, "dexcom").Info().Msg("posted")

	entry := decodeLine(t, &buf)
	assert.Equal(t, "dexcom", entry["component"])
	assert.Equal(t, "c0ffee00", entry["correlation_id"])
}

func TestCtxAddsCorrelationID(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(NewTestLogger(&buf))
	t.Cleanup(func() { Init(DefaultConfig()) })

	ctx := ContextWithCorrelationID(context.Background(), "abc12345")
	Ctx(ctx).Info().Msg("cycle")

	entry := decodeLine(t, &buf)
	assert.Equal(t, "abc12345", entry["correlation_id"])
}

func TestCtxWithoutCorrelationID(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(NewTestLogger(&buf))
	t.Cleanup(func() { Init(DefaultConfig()) })

	Ctx(context.Background()).Info().Msg("plain")

	entry := decodeLine(t, &buf)
	_, ok := entry["correlation_id"]
	assert.False(t, ok)
}

func TestContextWithNewCorrelationID(t *testing.T) {
	ctx := ContextWithNewCorrelationID(context.Background())
	id := CorrelationIDFromContext(ctx)
	assert.Len(t, id, 8)
	assert.Empty(t, CorrelationIDFromContext(context.Background()))
}

func TestSlogHandlerForwardsRecords(t *testing.T) {
	var buf bytes.Buffer
	zerolog.SetGlobalLevel(zerolog.TraceLevel)
	t.Cleanup(func() { Init(DefaultConfig()) })

	logger := slog.New(NewSlogHandlerWithLogger(NewTestLogger(&buf)))
	logger.WithGroup("suture").With("service", "sync-engine").Warn("service restarted", "attempt", 2)

	entry := decodeLine(t, &buf)
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "service restarted", entry["message"])
	assert.Equal(t, "sync-engine", entry["suture.service"])
	assert.EqualValues(t, 2, entry["suture.attempt"])
}

func TestSlogHandlerEnabled(t *testing.T) {
	logger := NewTestLogger(&bytes.Buffer{}).Level(zerolog.WarnLevel)
	h := NewSlogHandlerWithLogger(logger)

	assert.False(t, h.Enabled(context.Background(), slog.LevelInfo))
	assert.True(t, h.Enabled(context.Background(), slog.LevelError))
}

func TestMaskEmail(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"jane.doe@example.com", "j*******@example.com"},
		{"a@b.io", "*@b.io"},
		{"", ""},
		{"username-only", "us*********ly"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, MaskEmail(tt.in), tt.in)
	}
}

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "******", MaskSecret("abcdef"))
	assert.Equal(t, "ab****gh", MaskSecret("abcdefgh"))
}

func TestLogAuthFailureDoesNotLeakAccount(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(NewTestLogger(&buf))
	t.Cleanup(func() { Init(DefaultConfig()) })

	LogAuthFailure("libre", "jane.doe@example.com", "api-eu.libreview.io", errors.New("bad credentials"))

	assert.NotContains(t, buf.String(), "jane.doe@example.com")
	entry := decodeLine(t, &buf)
	assert.Equal(t, "auth.failure", entry["event"])
	assert.Equal(t, "bad credentials", entry["error"])
}
