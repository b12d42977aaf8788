package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{in: "debug", want: zerolog.DebugLevel},
		{in: "WARN", want: zerolog.WarnLevel},
		{in: "warning", want: zerolog.WarnLevel},
		{in: "error", want: zerolog.ErrorLevel},
		{in: "off", want: zerolog.Disabled},
		{in: "", want: zerolog.InfoLevel},
		{in: "verbose", want: zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestNewJSONLoggerWithComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := Component(New(Options{Level: "info", Format: FormatJSON, Out: &buf}), "persistence")

	logger.Debug().Msg("hidden")
	logger.Info().Str("tab", "t1").Msg("saved")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "persistence", entry["component"])
	assert.Equal(t, "saved", entry["message"])
	assert.Equal(t, "t1", entry["tab"])
	assert.Contains(t, entry, "time")
}

func TestNewConsoleLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Options{Level: "debug", Format: "console", Out: &buf})

	logger.Debug().Msg("unload pass")

	assert.Contains(t, buf.String(), "unload pass")
	assert.False(t, json.Valid(buf.Bytes()))
}
