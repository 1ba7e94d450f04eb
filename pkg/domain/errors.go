package domain

import "errors"

// ErrBacktraceNotFound is returned by clients when no backtrace is recorded
// at the requested version. It is a valid terminal answer, not a transport
// failure.
var ErrBacktraceNotFound = errors.New("backtrace not found")

// ErrExecutionNotFound is returned when the backend does not know the
// requested execution id.
var ErrExecutionNotFound = errors.New("execution not found")
