package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestWithContextDirection(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	globalLogger = zap.New(core)

	ctx := context.WithValue(context.Background(), DirectionKey, "export")
	WithContext(ctx).Info("starting")

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "export", entries[0].ContextMap()["direction"])
}

func TestWithContextWithoutDirection(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	globalLogger = zap.New(core)

	WithContext(context.Background()).Info("starting")

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.NotContains(t, entries[0].ContextMap(), "direction")
}

func TestNewLoggerRejectsBadLevel(t *testing.T) {
	_, err := newLogger(Config{Level: "verbose", Encoding: "console"})
	require.Error(t, err)
}
