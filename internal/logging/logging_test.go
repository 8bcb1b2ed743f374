package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]zapcore.Level{
		"DEBUG":   zapcore.DebugLevel,
		"debug":   zapcore.DebugLevel,
		"INFO":    zapcore.InfoLevel,
		" warn ":  zapcore.WarnLevel,
		"WARNING": zapcore.WarnLevel,
		"ERROR":   zapcore.ErrorLevel,
		"":        zapcore.InfoLevel,
		"bogus":   zapcore.InfoLevel,
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseLevel(in), "level %q", in)
	}
}

func TestSetLoggerForTest(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	restore := SetLoggerForTest(zap.New(core))
	defer restore()

	Info("connection ok to %s", "beehive:20022")
	Warn("no connection for %ds", 30)
	Error("failed to persist counter %s", "network")

	entries := logs.AllUntimed()
	require.Len(t, entries, 3)
	assert.Equal(t, "connection ok to beehive:20022", entries[0].Message)
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, "no connection for 30s", entries[1].Message)
	assert.Equal(t, zapcore.ErrorLevel, entries[2].Level)
}

func TestSetupDoesNotPanic(t *testing.T) {
	assert.NotPanics(t, func() {
		Setup(FormatConsole, "DEBUG")
		Debug("console logger ready")
		Setup(FormatJSON, "INFO")
		Sync()
	})
}
