package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestConfig_Validate(t *testing.T) {
	assert.NoError(t, NewDefaultConfig().Validate())
	assert.NoError(t, Config{Level: "debug", Format: "JSON"}.Validate())
	assert.Error(t, Config{Level: "loud", Format: "json"}.Validate())
	assert.Error(t, Config{Level: "info", Format: "xml"}.Validate())
}

func TestNew_JSONOutput(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(Config{Level: "info", Format: "json"}, &buf)
	require.NoError(t, err)

	log.Debug("hidden")
	log.Info("solution found", zap.Int("plan_length", 3))
	require.NoError(t, log.Sync())

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "solution found", entry["msg"])
	assert.Equal(t, "info", entry["level"])
	assert.EqualValues(t, 3, entry["plan_length"])
	assert.Contains(t, entry, "ts")
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	_, err := New(Config{Level: "info", Format: "yaml"}, nil)
	assert.ErrorContains(t, err, "invalid config")
}

func TestTestLogger(t *testing.T) {
	tl := NewTestLogger()
	tl.Debug("backward expansion", zap.Int32("state", 4))
	tl.Info("solution found")

	assert.Len(t, tl.All(), 2)
	assert.Equal(t, 1, tl.FilterMessage("solution found").Len())
	tl.AssertLogged(t, zapcore.DebugLevel, "backward")
}
