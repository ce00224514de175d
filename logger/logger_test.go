package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return lines[len(lines)-1]
}

func TestLogger_IncludesStackAndServiceOnError(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "test-service", "debug")
	log.Error().Stack().Err(errors.New("boom")).Msg("something failed")

	var payload map[string]any
	require.NoError(t, json.Unmarshal([]byte(lastLine(buf.String())), &payload))
	assert.Equal(t, "test-service", payload["service"])
	assert.Equal(t, "error", payload["level"])
	assert.Equal(t, "boom", payload["error"])
	assert.Contains(t, payload, "stack")
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "svc", "warn")
	log.Info().Msg("hidden")
	assert.Empty(t, buf.String())

	log.Warn().Msg("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestLogger_UnknownLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "svc", "loud")
	log.Debug().Msg("hidden")
	log.Info().Msg("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}
