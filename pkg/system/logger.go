// Package system provides the structured logger implementation behind
// types.Logger.
package system

import (
	"log/slog"
	"os"

	"github.com/angelfreak/connd/pkg/types"
)

// slogLogger adapts log/slog to the types.Logger interface.
type slogLogger struct {
	logger *slog.Logger
}

// NewLogger creates a structured logger writing to stderr. With debug set,
// debug-level messages are emitted as well.
func NewLogger(debug bool) types.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	return &slogLogger{logger: slog.New(handler)}
}

// NewLoggerWithHandler wraps an arbitrary slog handler, for tests that
// capture output.
func NewLoggerWithHandler(handler slog.Handler) types.Logger {
	return &slogLogger{logger: slog.New(handler)}
}

func (l *slogLogger) Debug(msg string, fields ...interface{}) { l.logger.Debug(msg, fields...) }
func (l *slogLogger) Info(msg string, fields ...interface{})  { l.logger.Info(msg, fields...) }
func (l *slogLogger) Warn(msg string, fields ...interface{})  { l.logger.Warn(msg, fields...) }
func (l *slogLogger) Error(msg string, fields ...interface{}) { l.logger.Error(msg, fields...) }
