package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, parseLevel("debug"))
	assert.Equal(t, zapcore.WarnLevel, parseLevel("WARNING"))
	assert.Equal(t, zapcore.ErrorLevel, parseLevel(" error "))
	assert.Equal(t, zapcore.InfoLevel, parseLevel("bogus"))
}

func TestNew(t *testing.T) {
	log, err := New(Config{Level: "debug", Format: "console", Output: "stderr"})
	require.NoError(t, err)
	assert.NotNil(t, log)

	log, err = New(DefaultConfig())
	require.NoError(t, err)
	assert.NotNil(t, log)
}

func TestKeyValueFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := FromZap(zap.New(core))

	log.Info("Cart updated", "session_id", "s-1", "items", 3)
	log.WithField("request_id", "r-9").Warn("Slow upstream", "duration_ms", 1200)

	entries := logs.All()
	require.Len(t, entries, 2)

	assert.Equal(t, "Cart updated", entries[0].Message)
	assert.Equal(t, "s-1", entries[0].ContextMap()["session_id"])
	assert.EqualValues(t, 3, entries[0].ContextMap()["items"])

	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, "r-9", entries[1].ContextMap()["request_id"])
}

func TestNopDiscards(t *testing.T) {
	log := NewNop()
	log.Error("nothing happens", "error", "ignored")
	assert.NoError(t, log.Sync())
}
