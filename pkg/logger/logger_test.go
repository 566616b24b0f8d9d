package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestInitRejectsBadLevel(t *testing.T) {
	err := Init(Config{Level: "loud"})
	assert.Error(t, err)
}

func TestPackageHelpersUseGlobalLogger(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	Set(zap.New(core))
	defer Set(nil)

	With(zap.String("component", "sorter")).Info("sorted", zap.Int64("rows", 10))
	Debug("mapped file for reading", zap.String("path", "/data/t1/c0.bin"))
	Warn("failed to release column storage")

	require.Equal(t, 3, logs.Len())
	first := logs.All()[0].ContextMap()
	assert.Equal(t, "sorter", first["component"])
	assert.Equal(t, int64(10), first["rows"])
	assert.Equal(t, zapcore.WarnLevel, logs.All()[2].Level)
}

func TestInitReplacesLogger(t *testing.T) {
	defer Set(nil)
	require.NoError(t, Init(Config{Level: "warn", Encoding: "console"}))
	assert.False(t, Get().Core().Enabled(zapcore.InfoLevel))
	assert.True(t, Get().Core().Enabled(zapcore.WarnLevel))
}

func TestGetDefaultsToNop(t *testing.T) {
	Set(nil)
	l := Get()
	require.NotNil(t, l)
	assert.False(t, l.Core().Enabled(zapcore.ErrorLevel))
}
