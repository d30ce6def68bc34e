package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigureLevel(t *testing.T) {
	var buf bytes.Buffer
	Configure(&buf, "warn")

	l := Component("scheduler")
	l.Info().Msg("hidden")
	l.Warn().Str("anchor", "max_rms").Msg("shown")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &entry))
	assert.Equal(t, "scheduler", entry["component"])
	assert.Equal(t, "max_rms", entry["anchor"])
	assert.Equal(t, "shown", entry["message"])
}

func TestConfigureUnknownLevel(t *testing.T) {
	var buf bytes.Buffer
	Configure(&buf, "chatty")

	GetDefaultLogger().Debug().Msg("hidden")
	GetDefaultLogger().Info().Msg("shown")
	assert.Contains(t, buf.String(), "shown")
	assert.NotContains(t, buf.String(), "hidden")
}
