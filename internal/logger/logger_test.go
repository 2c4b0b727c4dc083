package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoggerTextFormat(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(Config{Level: "info", Format: "text"}, &buf)

	log.Info("review started", "repo", "acme/relay")
	log.Debug("suppressed at info level")

	out := buf.String()
	assert.Contains(t, out, "level=INFO")
	assert.Contains(t, out, `msg="review started"`)
	assert.Contains(t, out, "repo=acme/relay")
	assert.NotContains(t, out, "suppressed")
}

func TestNewLoggerJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(Config{Level: "debug", Format: "json"}, &buf)

	log.Debug("queue drained", "pending", 0)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "DEBUG", entry["level"])
	assert.Equal(t, "queue drained", entry["msg"])
	assert.Equal(t, float64(0), entry["pending"])
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		level string
		want  string
	}{
		{"debug", "DEBUG"},
		{"info", "INFO"},
		{"warn", "WARN"},
		{"warning", "WARN"},
		{"error", "ERROR"},
		{"", "INFO"},
		{"verbose", "INFO"},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLevel(tt.level).String())
		})
	}
}

func TestNewLoggerUnknownFormatFallsBackToText(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(Config{Level: "info", Format: "yaml"}, &buf)

	log.Info("hello")
	assert.Contains(t, buf.String(), "level=INFO")
}
