package logging

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLevels(t *testing.T) {
	t.Cleanup(zap.ReplaceGlobals(zap.NewNop()))

	var buf bytes.Buffer
	logger, err := NewTo(&buf, false)
	require.NoError(t, err)

	logger.Debug("hidden")
	logger.Info("hidden too")
	zap.L().Warn("unknown message role", zap.String("role", "bot"))
	require.NoError(t, logger.Sync())

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "WARN")
	assert.Contains(t, out, "unknown message role")
	assert.Contains(t, out, `"role": "bot"`)
}

func TestVerbose(t *testing.T) {
	t.Cleanup(zap.ReplaceGlobals(zap.NewNop()))

	var buf bytes.Buffer
	logger, err := NewTo(&buf, true)
	require.NoError(t, err)

	logger.Debug("model turn started", zap.String("turn_id", "abc"))
	require.NoError(t, logger.Sync())

	assert.Contains(t, buf.String(), "DEBUG")
	assert.Contains(t, buf.String(), "model turn started")
}

func TestNilOutput(t *testing.T) {
	_, err := NewTo(nil, false)
	assert.Error(t, err)
}
