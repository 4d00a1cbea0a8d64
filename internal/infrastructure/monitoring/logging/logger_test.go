package logging

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newObservedLogger() (Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return NewLoggerFromCore(core), logs
}

func TestNewLogger_Formats(t *testing.T) {
	for _, format := range []string{"json", "console", ""} {
		l, err := NewLogger(LogConfig{Level: LevelDebug, Format: format})
		require.NoError(t, err, format)
		assert.NotNil(t, l)
	}
}

func TestNewLogger_BadOutputPath(t *testing.T) {
	_, err := NewLogger(LogConfig{OutputPaths: []string{"/nonexistent-dir/riskoverlay/x.log"}})
	assert.Error(t, err)
}

func TestParseLevel(t *testing.T) {
	tests := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"INFO":    zapcore.InfoLevel,
		"warn":    zapcore.WarnLevel,
		"warning": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"bogus":   zapcore.InfoLevel,
		"":        zapcore.InfoLevel,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

func TestZapLogger_WritesFields(t *testing.T) {
	l, logs := newObservedLogger()

	l.Warn("rows dropped",
		Dataset("hospitais"),
		Category("hospital"),
		Int("dropped", 3),
		Duration("elapsed", 2*time.Second),
		Strings("missing", []string{"longitude", "latitude"}),
		Err(errors.New("bad cell")),
	)

	entries := logs.All()
	require.Len(t, entries, 1)
	e := entries[0]
	assert.Equal(t, zapcore.WarnLevel, e.Level)
	assert.Equal(t, "rows dropped", e.Message)

	ctx := e.ContextMap()
	assert.Equal(t, "hospitais", ctx[KeyDataset])
	assert.Equal(t, "hospital", ctx[KeyCategory])
	assert.EqualValues(t, 3, ctx["dropped"])
	assert.Equal(t, "bad cell", ctx["error"])
}

func TestZapLogger_WithAndNamed(t *testing.T) {
	l, logs := newObservedLogger()

	child := l.Named("feed").With(SnapshotID("abc"))
	child.Info("fetched")
	l.Debug("parent")

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "feed", entries[0].LoggerName)
	assert.Equal(t, "abc", entries[0].ContextMap()[KeySnapshotID])
	assert.NotContains(t, entries[1].ContextMap(), KeySnapshotID)
}

func TestErr_Nil(t *testing.T) {
	f := Err(nil)
	assert.Equal(t, "error", f.Key)
	assert.Equal(t, "<nil>", f.Value)
}

func TestNopLogger(t *testing.T) {
	l := NewNopLogger()
	l.Debug("x")
	l.Info("x")
	l.Warn("x")
	l.Error("x")
	assert.Equal(t, l, l.With(String("a", "b")))
	assert.Equal(t, l, l.Named("n"))
	assert.NoError(t, l.Sync())
}

func TestDefault(t *testing.T) {
	orig := Default()
	defer SetDefault(orig)

	l, logs := newObservedLogger()
	SetDefault(l)
	SetDefault(nil)
	Default().Info("via default")
	assert.Equal(t, 1, logs.Len())
}
