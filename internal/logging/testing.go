package logging

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

// NewTestLogger returns a debug logger that writes through tb.Log.
func NewTestLogger(tb testing.TB) *zap.Logger {
	return zaptest.NewLogger(tb, zaptest.Level(zapcore.DebugLevel))
}

// NewObservedTestLogger is like NewTestLogger but also records every entry
// so tests can assert on warnings.
func NewObservedTestLogger(tb testing.TB) (*zap.Logger, *observer.ObservedLogs) {
	core, observed := observer.New(zapcore.DebugLevel)
	logger := zap.New(zapcore.NewTee(
		zaptest.NewLogger(tb, zaptest.Level(zapcore.DebugLevel)).Core(),
		core,
	))
	return logger, observed
}
