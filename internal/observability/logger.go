package observability

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/diode"
)

// LoggingConfig contains logger configuration options.
type LoggingConfig struct {
	// Level is the minimum log level (trace, debug, info, warn, error, fatal, panic).
	Level string

	// Format is the output format (json, console, pretty).
	Format string

	// Output is the output destination (stdout, stderr, or a file path).
	Output string

	// AddSource adds source file and line number to log entries.
	AddSource bool

	// TimeFormat is the time format for timestamps.
	TimeFormat string

	// Buffered routes entries through a non-blocking ring buffer that is
	// drained when the returned closer is closed.
	Buffered bool

	// BufferSize is the ring buffer capacity in messages.
	BufferSize int
}

// DefaultLoggingConfig returns a LoggingConfig with sensible defaults.
func DefaultLoggingConfig() LoggingConfig {
	return LoggingConfig{
		Level:      "info",
		Format:     "json",
		Output:     "stdout",
		AddSource:  false,
		TimeFormat: time.RFC3339,
		BufferSize: 1000,
	}
}

// NewLogger creates a new zerolog logger based on configuration.
// The returned closer flushes and releases the log output and must be
// called last during shutdown.
func NewLogger(cfg LoggingConfig) (zerolog.Logger, io.Closer, error) {
	output, closer, err := openOutput(cfg.Output)
	if err != nil {
		return zerolog.Nop(), nil, err
	}

	if cfg.Buffered {
		size := cfg.BufferSize
		if size <= 0 {
			size = DefaultLoggingConfig().BufferSize
		}
		dw := diode.NewWriter(output, size, 10*time.Millisecond, func(missed int) {
			fmt.Fprintf(os.Stderr, "logger dropped %d messages\n", missed)
		})
		output = dw
		closer = dw
	}

	return buildLogger(cfg, output), closer, nil
}

func buildLogger(cfg LoggingConfig, output io.Writer) zerolog.Logger {
	// Configure time format
	if cfg.TimeFormat != "" {
		zerolog.TimeFieldFormat = cfg.TimeFormat
	} else {
		zerolog.TimeFieldFormat = DefaultLoggingConfig().TimeFormat
	}

	// Use console writer for pretty output in development
	if strings.ToLower(cfg.Format) == "console" || strings.ToLower(cfg.Format) == "pretty" {
		output = zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: zerolog.TimeFieldFormat,
		}
	}

	logger := zerolog.New(output).With().Timestamp()

	if cfg.AddSource {
		logger = logger.Caller()
	}

	return logger.Logger().Level(parseLevel(cfg.Level))
}

// openOutput resolves the output destination. Standard streams are wrapped
// so that closing the logger never closes the process's stdout or stderr.
func openOutput(output string) (io.Writer, io.Closer, error) {
	switch strings.ToLower(output) {
	case "", "stdout":
		return streamWriter{os.Stdout}, nopCloser{}, nil
	case "stderr":
		return streamWriter{os.Stderr}, nopCloser{}, nil
	default:
		f, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file %q: %w", output, err)
		}
		return f, f, nil
	}
}

// streamWriter hides the Close method of a standard stream.
type streamWriter struct {
	w io.Writer
}

func (s streamWriter) Write(p []byte) (int, error) {
	return s.w.Write(p)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// parseLevel converts a string log level to zerolog.Level.
func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	case "panic":
		return zerolog.PanicLevel
	default:
		return zerolog.InfoLevel
	}
}

// WithRequestContext adds request correlation fields to a logger.
func WithRequestContext(logger zerolog.Logger, requestID, correlationID string) zerolog.Logger {
	return logger.With().
		Str("request_id", requestID).
		Str("correlation_id", correlationID).
		Logger()
}

// WithTraceContext adds distributed tracing fields to a logger.
func WithTraceContext(logger zerolog.Logger, traceID, spanID string) zerolog.Logger {
	return logger.With().
		Str("trace_id", traceID).
		Str("span_id", spanID).
		Logger()
}
