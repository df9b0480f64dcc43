package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJSONLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Level: "info", Format: "json", Output: &buf})
	require.NoError(t, err)

	logger.Debug("hidden")
	logger.Info("mode switched", "mode", "insert")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)
	var record map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &record))
	assert.Equal(t, "mode switched", record["msg"])
	assert.Equal(t, "insert", record["mode"])
	ts, ok := record["time"].(string)
	require.True(t, ok)
	assert.True(t, strings.HasSuffix(ts, "Z"), ts)
	assert.Len(t, ts, len("2006-01-02T15:04:05.000Z"))
}

func TestNewConsoleLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Level: "debug", Format: "console", Output: &buf})
	require.NoError(t, err)
	logger.Debug("sequence pending", "key", "Space")
	assert.Contains(t, buf.String(), "msg=\"sequence pending\"")
	assert.Contains(t, buf.String(), "key=Space")
}

func TestNewRejectsBadOptions(t *testing.T) {
	_, err := New(Options{Level: "loud"})
	assert.Error(t, err)
	_, err = New(Options{Format: "xml"})
	assert.Error(t, err)
}

func TestLevelVarToggle(t *testing.T) {
	var buf bytes.Buffer
	var levelVar slog.LevelVar
	logger, err := New(Options{Level: "warn", Output: &buf, LevelVar: &levelVar})
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, levelVar.Level())

	logger.Debug("before")
	assert.Equal(t, slog.LevelDebug, ToggleDebug(&levelVar, slog.LevelWarn))
	logger.Debug("after")
	assert.Equal(t, slog.LevelWarn, ToggleDebug(&levelVar, slog.LevelWarn))

	assert.NotContains(t, buf.String(), "before")
	assert.Contains(t, buf.String(), "after")
}

func TestParseLevel(t *testing.T) {
	lvl, err := ParseLevel("")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelInfo, lvl)
	lvl, err = ParseLevel("Warning")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, lvl)
}
