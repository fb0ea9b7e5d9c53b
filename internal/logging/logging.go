// Package logging constructs the zap loggers used across the transport.
//
// The transport itself accepts any *zap.Logger; these helpers exist so that
// binaries and tests build consistently configured ones.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a production-encoded logger at the given level. Unknown level
// strings fall back to info, matching the permissive parsing used elsewhere
// in the stack.
func New(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.DisableStacktrace = true
	return cfg.Build()
}

// Nop returns a logger that discards everything. It is the default for
// transports constructed without the WithLogger option.
func Nop() *zap.Logger {
	return zap.NewNop()
}
