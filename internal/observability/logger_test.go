package observability

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultLoggingConfig(t *testing.T) {
	cfg := DefaultLoggingConfig()

	assert.Equal(t, "info", cfg.Level)
	assert.Equal(t, "json", cfg.Format)
	assert.Equal(t, "stdout", cfg.Output)
	assert.False(t, cfg.AddSource)
	assert.False(t, cfg.Buffered)
}

func TestNewLogger(t *testing.T) {
	t.Run("creates logger with default config", func(t *testing.T) {
		logger, closer, err := NewLogger(DefaultLoggingConfig())
		require.NoError(t, err)
		require.NotNil(t, closer)

		assert.Equal(t, zerolog.InfoLevel, logger.GetLevel())
		assert.NoError(t, closer.Close())
	})

	t.Run("creates logger with debug level on stderr", func(t *testing.T) {
		logger, closer, err := NewLogger(LoggingConfig{
			Level:  "debug",
			Format: "pretty",
			Output: "stderr",
		})
		require.NoError(t, err)

		assert.Equal(t, zerolog.DebugLevel, logger.GetLevel())
		assert.NoError(t, closer.Close())
	})

	t.Run("writes to file and closes it", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "service.log")

		logger, closer, err := NewLogger(LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: path,
		})
		require.NoError(t, err)

		logger.Info().Msg("to file")
		require.NoError(t, closer.Close())

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), `"message":"to file"`)
	})

	t.Run("buffered writer is drained on close", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "buffered.log")

		logger, closer, err := NewLogger(LoggingConfig{
			Level:      "info",
			Format:     "json",
			Output:     path,
			Buffered:   true,
			BufferSize: 16,
		})
		require.NoError(t, err)

		for i := 0; i < 5; i++ {
			logger.Info().Int("n", i).Msg("buffered")
		}
		require.NoError(t, closer.Close())

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, 5, strings.Count(string(data), `"message":"buffered"`))
	})

	t.Run("zero buffer size falls back to the default", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "default-buffer.log")

		logger, closer, err := NewLogger(LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   path,
			Buffered: true,
		})
		require.NoError(t, err)

		logger.Info().Msg("defaulted")
		require.NoError(t, closer.Close())

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), `"message":"defaulted"`)
	})

	t.Run("unwritable file path fails", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "missing-dir", "service.log")

		_, _, err := NewLogger(LoggingConfig{Output: path})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "open log file")
	})
}

func TestBuildLogger_FiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := buildLogger(LoggingConfig{Level: "warn", Format: "json"}, &buf)

	logger.Info().Msg("filtered")
	logger.Warn().Msg("kept")

	assert.NotContains(t, buf.String(), "filtered")
	assert.Contains(t, buf.String(), "kept")
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected zerolog.Level
	}{
		{"trace", zerolog.TraceLevel},
		{"TRACE", zerolog.TraceLevel},
		{"debug", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"INFO", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"WARNING", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"fatal", zerolog.FatalLevel},
		{"panic", zerolog.PanicLevel},
		{"unknown", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseLevel(tt.input))
		})
	}
}

func TestWithRequestContext(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	enriched := WithRequestContext(logger, "req-123", "corr-456")
	enriched.Info().Msg("test message")

	var logEntry map[string]interface{}
	err := json.Unmarshal(buf.Bytes(), &logEntry)
	require.NoError(t, err)

	assert.Equal(t, "req-123", logEntry["request_id"])
	assert.Equal(t, "corr-456", logEntry["correlation_id"])
	assert.Equal(t, "test message", logEntry["message"])
}

func TestWithTraceContext(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	enriched := WithTraceContext(logger, "trace-abc", "span-xyz")
	enriched.Info().Msg("traced operation")

	var logEntry map[string]interface{}
	err := json.Unmarshal(buf.Bytes(), &logEntry)
	require.NoError(t, err)

	assert.Equal(t, "trace-abc", logEntry["trace_id"])
	assert.Equal(t, "span-xyz", logEntry["span_id"])
}
