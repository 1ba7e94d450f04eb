package ports

import (
	"context"

	"github.com/obeli-sk/webui/pkg/domain"
)

// ListEventsRequest is one pagination window over an execution's events and
// join set responses.
type ListEventsRequest struct {
	ExecutionID         domain.ExecutionID
	VersionFrom         domain.Version
	EventsLength        uint32
	ResponsesCursorFrom uint32
	ResponsesLength     uint32
	// ResponsesIncludingCursor makes the window include the response at the
	// cursor itself. Only the first page (cursor 0) sets it; later pages are
	// exclusive so responses never repeat across pages.
	ResponsesIncludingCursor bool
	IncludeBacktraceID       bool
}

// ListEventsResponse is one page of events and responses plus the current
// execution status.
type ListEventsResponse struct {
	Events        []domain.ExecutionEvent
	Responses     []domain.ResponseWithCursor
	CurrentStatus domain.ExecutionStatus
}

// BacktraceFilter selects which recorded backtrace to fetch: the first one,
// or the one covering a specific version.
type BacktraceFilter struct {
	specific *domain.Version
}

// FirstBacktrace selects the earliest recorded backtrace.
func FirstBacktrace() BacktraceFilter {
	return BacktraceFilter{}
}

// SpecificBacktrace selects the backtrace covering the given version.
func SpecificBacktrace(v domain.Version) BacktraceFilter {
	return BacktraceFilter{specific: &v}
}

// Specific returns the requested version, if the filter is not First.
func (f BacktraceFilter) Specific() (domain.Version, bool) {
	if f.specific == nil {
		return 0, false
	}
	return *f.specific, true
}

// ListLogsRequest is one forward-pagination window over an execution's logs.
type ListLogsRequest struct {
	ExecutionID domain.ExecutionID
	PageSize    uint32
	PageToken   string
	ShowLogs    bool
	ShowStreams bool
	Levels      []domain.LogLevel
	StreamTypes []domain.StreamType
}

// ListLogsResponse is one page of log entries. An empty NextPageToken means
// the log has no further pages right now.
type ListLogsResponse struct {
	Logs          []domain.LogEntry
	NextPageToken string
}

// StatusStream delivers messages of a GetStatus subscription. Recv blocks
// until the next message, the stream end (io.EOF) or a transport error.
// Cancelling the context passed to GetStatus ends the stream.
type StatusStream interface {
	Recv() (domain.StatusMessage, error)
}

// ExecutionClient is the backend RPC surface the inspector consumes. The
// wire encoding behind it is an external concern.
type ExecutionClient interface {
	// ListExecutionEventsAndResponses fetches one pagination window.
	ListExecutionEventsAndResponses(ctx context.Context, req ListEventsRequest) (*ListEventsResponse, error)

	// GetBacktrace fetches a recorded backtrace. Returns
	// domain.ErrBacktraceNotFound when none is recorded for the filter.
	GetBacktrace(ctx context.Context, id domain.ExecutionID, filter BacktraceFilter) (*domain.BacktraceResponse, error)

	// GetBacktraceSource fetches the content of a source file referenced by
	// a backtrace symbol.
	GetBacktraceSource(ctx context.Context, component domain.ComponentID, file string) (string, error)

	// ListLogs fetches one page of execution logs.
	ListLogs(ctx context.Context, req ListLogsRequest) (*ListLogsResponse, error)

	// GetStatus opens a status subscription. With follow the stream stays
	// open and delivers updates until the execution finishes or ctx is
	// cancelled.
	GetStatus(ctx context.Context, id domain.ExecutionID, follow, sendFinishedStatus bool) (StatusStream, error)
}
