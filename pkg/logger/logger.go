package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger wraps zerolog.Logger
type Logger struct {
	zerolog.Logger
}

// New creates a service logger. Development gets a console writer, every
// other environment emits JSON lines on stdout.
func New(serviceName string, environment string) *Logger {
	return NewWithWriter(os.Stdout, serviceName, environment)
}

// NewWithWriter is New with an explicit output, used by tests to capture log lines.
func NewWithWriter(out io.Writer, serviceName string, environment string) *Logger {
	level := zerolog.InfoLevel
	if environment == "development" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
		level = zerolog.DebugLevel
	}

	logger := zerolog.New(out).
		Level(level).
		With().
		Timestamp().
		Str("service", serviceName).
		Logger()

	return &Logger{Logger: logger}
}

// Nop returns a logger that discards everything
func Nop() *Logger {
	return &Logger{Logger: zerolog.Nop()}
}

// WithRequestID returns a logger with the request ID attached
func (l *Logger) WithRequestID(requestID string) *Logger {
	return &Logger{Logger: l.Logger.With().Str("request_id", requestID).Logger()}
}

// WithSubmissionID returns a logger with the submission ID attached
func (l *Logger) WithSubmissionID(submissionID string) *Logger {
	return &Logger{Logger: l.Logger.With().Str("submission_id", submissionID).Logger()}
}

// WithCorrelationID returns a logger with the correlation ID attached
func (l *Logger) WithCorrelationID(correlationID string) *Logger {
	return &Logger{Logger: l.Logger.With().Str("correlation_id", correlationID).Logger()}
}

// WithComponent returns a logger with the component name attached
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{Logger: l.Logger.With().Str("component", component).Logger()}
}
