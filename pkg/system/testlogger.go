package system

import (
	"go.uber.org/zap"
)

func newTestConfig() zap.Config {
	cfg := zap.NewDevelopmentConfig()
	// Stacktraces on warn-level lines drown out the assertions in
	// lifecycle and sweep tests, so they stay off here.
	cfg.DisableStacktrace = true
	return cfg
}

// NewTestLogger returns a sugared development logger for tests.
func NewTestLogger() *zap.SugaredLogger {
	return NewTestZapLogger().Sugar()
}

// NewTestZapLogger returns a non-sugared *zap.Logger for tests that wire
// components taking the bare logger, like the API server.
func NewTestZapLogger() *zap.Logger {
	logger, _ := newTestConfig().Build()
	return logger
}
