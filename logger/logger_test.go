package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testMessage = "test message"

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestNewWithWriterLevels(t *testing.T) {
	tests := []struct {
		name     string
		level    string
		expected zerolog.Level
	}{
		{name: "debug", level: "debug", expected: zerolog.DebugLevel},
		{name: "warn", level: "warn", expected: zerolog.WarnLevel},
		{name: "invalid_defaults_to_info", level: "loud", expected: zerolog.InfoLevel},
		{name: "empty_defaults_to_info", level: "", expected: zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewWithWriter(tt.level, false, &bytes.Buffer{})
			assert.Equal(t, tt.expected, l.Level())
		})
	}
}

func TestEventFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter("debug", false, &buf)

	l.Info().
		Str("route", "/course/{id}").
		Int("status", 200).
		Int64("parts", 2).
		Bool("bulk", true).
		Dur("latency", time.Millisecond).
		Strs("methods", []string{"GET", "POST"}).
		Err(errors.New("boom")).
		Msg(testMessage)

	entry := decodeLine(t, &buf)
	assert.Equal(t, testMessage, entry["message"])
	assert.Equal(t, "/course/{id}", entry["route"])
	assert.InDelta(t, 200, entry["status"], 0)
	assert.Equal(t, true, entry["bulk"])
	assert.Equal(t, "boom", entry["error"])
	assert.Equal(t, []any{"GET", "POST"}, entry["methods"])
}

func TestSensitiveFieldsMasked(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter("info", false, &buf)

	l.Info().
		Str("Authorization", "Bearer abc").
		Interface("headers", http.Header{"Cookie": {"sid=1"}, "Accept": {"application/json"}}).
		Msg(testMessage)

	entry := decodeLine(t, &buf)
	assert.Equal(t, DefaultMaskValue, entry["Authorization"])
	headers, ok := entry["headers"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, []any{DefaultMaskValue}, headers["Cookie"])
	assert.Equal(t, []any{"application/json"}, headers["Accept"])
}

func TestWithFieldsFiltersSecrets(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter("info", false, &buf)

	l.WithFields(map[string]any{"api_key": "k", "module": "catalog"}).Info().Msg(testMessage)

	entry := decodeLine(t, &buf)
	assert.Equal(t, DefaultMaskValue, entry["api_key"])
	assert.Equal(t, "catalog", entry["module"])
}

func TestWithContextSeverityHook(t *testing.T) {
	var seen []zerolog.Level
	ctx := WithSeverityHook(context.Background(), func(l zerolog.Level) {
		seen = append(seen, l)
	})

	l := NewWithWriter("debug", false, &bytes.Buffer{}).WithContext(ctx)
	l.Info().Msg("info")
	l.Warn().Msg("warn")
	l.Error().Msg("error")

	assert.Equal(t, []zerolog.Level{zerolog.WarnLevel, zerolog.ErrorLevel}, seen)
}

func TestWithContextWithoutHookReturnsSameLogger(t *testing.T) {
	l := NewWithWriter("info", false, &bytes.Buffer{})
	assert.Same(t, l, l.WithContext(context.Background()))
	assert.Same(t, l, l.WithContext("not a context"))
}

func TestBulkCounter(t *testing.T) {
	ctx := WithBulkCounter(context.Background())
	IncrementBulkCounter(ctx)
	IncrementBulkCounter(ctx)
	assert.Equal(t, int64(2), GetBulkCounter(ctx))

	assert.Equal(t, int64(0), GetBulkCounter(context.Background()))
	IncrementBulkCounter(context.Background())
}

func TestNopDiscards(t *testing.T) {
	l := Nop()
	l.Error().Str("k", "v").Msg("dropped")
	assert.Equal(t, zerolog.Disabled, l.Level())
}
