// Package logger builds the structured logger the storage engine is handed
// through storage.Config, and that merge and txn take from the engine. It exists so construction - encoder
// choice, level, the "service" field every line carries - happens in one
// place instead of being repeated at each call site.
package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a *zap.SugaredLogger for the named service. Production config
// (JSON encoding, ISO8601 timestamps) is used throughout; callers that want
// development-friendly console output can still build their own zap.Logger
// and pass its .Sugar() into a Config directly.
func New(service string) *zap.SugaredLogger {
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncoderConfig.TimeKey = "ts"

	log, err := cfg.Build()
	if err != nil {
		// Build only fails on a malformed config; ours is static, so fall
		// back to zap's no-op logger rather than panicking the caller.
		return zap.NewNop().Sugar()
	}

	return log.Sugar().With("service", service)
}
