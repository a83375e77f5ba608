package system

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewLogger(t *testing.T) {
	assert.NotNil(t, NewLogger(false))
	assert.NotNil(t, NewLogger(true))
}

func TestLoggerLevels(t *testing.T) {
	t.Run("debug suppressed at info level", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLoggerWithHandler(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))

		logger.Debug("hidden")
		logger.Info("shown", "network", "wifi0")

		out := buf.String()
		assert.NotContains(t, out, "hidden")
		assert.Contains(t, out, "shown")
		assert.Contains(t, out, "network=wifi0")
	})

	t.Run("all levels at debug", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLoggerWithHandler(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

		logger.Debug("d")
		logger.Info("i")
		logger.Warn("w")
		logger.Error("e")

		lines := strings.Count(strings.TrimSpace(buf.String()), "\n") + 1
		assert.Equal(t, 4, lines)
		assert.Contains(t, buf.String(), "level=WARN")
		assert.Contains(t, buf.String(), "level=ERROR")
	})
}
