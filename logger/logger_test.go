package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestLoggerNoOpBeforeInitialize(t *testing.T) {
	require.NotNil(t, Logger, "package init should install a no-op logger")
	// Must not panic.
	Logger.Infow("message before initialize", "key", "value")
}

func TestInitializeJSON(t *testing.T) {
	err := Initialize(true, VerbosityInfo)
	require.NoError(t, err)
	require.NotNil(t, Logger)
	assert.True(t, JSONOutput)
}

func TestInitializeConsole(t *testing.T) {
	err := Initialize(false, VerbosityDebug)
	require.NoError(t, err)
	require.NotNil(t, Logger)
	assert.False(t, JSONOutput)
}

func TestVerbosityToLevel(t *testing.T) {
	assert.Equal(t, zapcore.WarnLevel, VerbosityToLevel(0))
	assert.Equal(t, zapcore.InfoLevel, VerbosityToLevel(1))
	assert.Equal(t, zapcore.DebugLevel, VerbosityToLevel(2))
	assert.Equal(t, zapcore.DebugLevel, VerbosityToLevel(5))
	assert.Equal(t, zapcore.WarnLevel, VerbosityToLevel(-1))
}

func TestLevelName(t *testing.T) {
	assert.Equal(t, "warn", LevelName(0))
	assert.Equal(t, "info", LevelName(1))
	assert.Equal(t, "debug", LevelName(3))
}
