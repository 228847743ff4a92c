package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestInit(t *testing.T) {
	prev := Log
	t.Cleanup(func() { Log = prev })

	require.NoError(t, Init("warn"))
	assert.True(t, Log.Core().Enabled(zapcore.WarnLevel))
	assert.False(t, Log.Core().Enabled(zapcore.InfoLevel))
}

func TestInitRejectsUnknownLevel(t *testing.T) {
	prev := Log
	t.Cleanup(func() { Log = prev })

	Log = zap.NewNop()
	require.Error(t, Init("loud"))
	assert.False(t, Log.Core().Enabled(zapcore.ErrorLevel), "Log must be left unchanged")
}
