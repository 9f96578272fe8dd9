// Package logging builds the process logger and provides a
// context-carried zap.Logger for picking up a task-scoped logger
// without a global variable. Most components receive their logger as a
// constructor argument; the leader-election loop uses the context form.
package logging

import (
	"context"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type contextKey string

const loggerKey contextKey = "logger"

// New builds a logger appropriate for env: "production" gets JSON
// output at info level, anything else gets human-readable console
// output at debug level.
func New(env string) *zap.Logger {
	if env == "production" {
		return NewProductionLogger()
	}
	return NewDevelopmentLogger()
}

// WithContext stores logger in ctx and returns the new context.
func WithContext(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext retrieves the logger stored in ctx. It never returns nil:
// a missing logger falls back to a fresh production logger.
func FromContext(ctx context.Context) *zap.Logger {
	if ctx == nil {
		return NewProductionLogger()
	}
	if logger, ok := ctx.Value(loggerKey).(*zap.Logger); ok && logger != nil {
		return logger
	}
	return NewProductionLogger()
}

// WithFields returns a context carrying a child logger with fields
// appended.
func WithFields(ctx context.Context, fields ...zap.Field) context.Context {
	return WithContext(ctx, FromContext(ctx).With(fields...))
}

// WithComponent returns a context carrying a child logger tagged with
// component=name, which makes its log lines greppable. The
// leader-election loop in internal/coordination uses it.
func WithComponent(ctx context.Context, name string) context.Context {
	return WithFields(ctx, zap.String("component", name))
}

// NewProductionLogger returns a JSON logger at info level.
func NewProductionLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := config.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// NewDevelopmentLogger returns a console logger at debug level.
func NewDevelopmentLogger() *zap.Logger {
	config := zap.NewDevelopmentConfig()
	config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder

	logger, err := config.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// Sync flushes buffered log entries. Call before process exit.
func Sync(ctx context.Context) error {
	return FromContext(ctx).Sync()
}
