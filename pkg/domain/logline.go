package domain

import "time"

// LogLevel classifies a log entry emitted by an execution.
type LogLevel string

const (
	LogLevelTrace LogLevel = "trace"
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// StreamType distinguishes captured process output streams from structured
// log calls.
type StreamType string

const (
	StreamStdout StreamType = "stdout"
	StreamStderr StreamType = "stderr"
)

// LogEntry is one line of an execution's log, either a structured log call
// or a captured stream chunk (Stream set).
type LogEntry struct {
	CreatedAt time.Time
	Level     LogLevel
	Message   string
	RunID     string
	Stream    *StreamType
}
