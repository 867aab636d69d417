package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel(""))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestNewJSONLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&Config{Level: "info", Output: &buf})

	logger.Debug("hidden")
	logger.Info("memory added", "user_id", "u1", "reinforced", true)

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)

	var record map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &record))
	assert.Equal(t, "memory added", record["msg"])
	assert.Equal(t, "u1", record["user_id"])
	assert.Equal(t, true, record["reinforced"])
}

func TestNewTextLoggerWith(t *testing.T) {
	var buf bytes.Buffer
	logger := With(New(&Config{Format: "text", Output: &buf}), "component", "maintenance")

	logger.Warn("decay skipped")

	assert.Contains(t, buf.String(), "component=maintenance")
	assert.Contains(t, buf.String(), "decay skipped")
}

func TestWithNoOpReturnsSame(t *testing.T) {
	var l Logger = NoOpLogger{}
	assert.Equal(t, l, With(l, "k", "v"))
}
