package esi

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger returns a zap SugaredLogger suitable for [Configuration.WithLogger]: JSON encoding at
// debug level in development, following the same zap.NewProductionConfig()-with-overridden-level
// pattern as the pack's Caddy ESI middleware.
func NewLogger(debug bool) (*zap.SugaredLogger, error) {
	cfg := zap.NewProductionConfig()
	if debug {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}

	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}

	return logger.Sugar(), nil
}
