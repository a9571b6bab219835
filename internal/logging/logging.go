// Package logging builds the process logger.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a console logger writing to stderr. Verbose enables Debug
// output and caller annotations; otherwise only Info and above are logged.
func New(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	cfg.DisableStacktrace = true
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	} else {
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
		cfg.DisableCaller = true
		cfg.EncoderConfig.TimeKey = ""
	}
	return cfg.Build()
}

// Must is like New but falls back to a no-op logger on error.
func Must(verbose bool) *zap.Logger {
	logger, err := New(verbose)
	if err != nil {
		return zap.NewNop()
	}
	return logger
}
