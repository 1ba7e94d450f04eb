// Package memory provides an in-memory ports.ExecutionClient. It backs
// tests and the demo mode of the server; data is scripted through the Add
// and Set methods.
package memory

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/obeli-sk/webui/pkg/domain"
	"github.com/obeli-sk/webui/pkg/ports"
)

type execution struct {
	events    []domain.ExecutionEvent
	responses []domain.ResponseWithCursor
	status    domain.ExecutionStatus
	listErr   error
}

type backtraceKey struct {
	id      domain.ExecutionID
	version domain.Version
}

type sourceKey struct {
	component domain.ComponentID
	file      string
}

// Client is a scriptable in-memory execution repository.
// Safe for concurrent use.
type Client struct {
	mu          sync.Mutex
	executions  map[domain.ExecutionID]*execution
	backtraces  map[domain.ExecutionID][]*domain.BacktraceResponse
	sources     map[sourceKey]string
	logs        map[domain.ExecutionID][]domain.LogEntry
	subscribers map[domain.ExecutionID][]*statusStream

	// SourceFetches counts GetBacktraceSource calls per key, letting tests
	// assert the at-most-once property of the source cache.
	SourceFetches map[string]int
}

var _ ports.ExecutionClient = (*Client)(nil)

// NewClient creates an empty client.
func NewClient() *Client {
	return &Client{
		executions:    make(map[domain.ExecutionID]*execution),
		backtraces:    make(map[domain.ExecutionID][]*domain.BacktraceResponse),
		sources:       make(map[sourceKey]string),
		logs:          make(map[domain.ExecutionID][]domain.LogEntry),
		subscribers:   make(map[domain.ExecutionID][]*statusStream),
		SourceFetches: make(map[string]int),
	}
}

func (c *Client) exec(id domain.ExecutionID) *execution {
	e, ok := c.executions[id]
	if !ok {
		e = &execution{status: domain.StatusPending}
		c.executions[id] = e
	}
	return e
}

// AddEvents appends events to an execution's log.
func (c *Client) AddEvents(id domain.ExecutionID, events ...domain.ExecutionEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.exec(id)
	e.events = append(e.events, events...)
}

// AddResponses appends join set responses, assigning consecutive cursors.
func (c *Client) AddResponses(id domain.ExecutionID, responses ...domain.JoinSetResponse) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.exec(id)
	for _, resp := range responses {
		e.responses = append(e.responses, domain.ResponseWithCursor{
			Cursor:   uint32(len(e.responses) + 1),
			Response: resp,
		})
	}
}

// SetStatus sets the execution's current status.
func (c *Client) SetStatus(id domain.ExecutionID, status domain.ExecutionStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.exec(id).status = status
}

// SetListError makes ListExecutionEventsAndResponses fail for the
// execution.
func (c *Client) SetListError(id domain.ExecutionID, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.exec(id).listErr = err
}

// AddBacktrace registers a recorded backtrace.
func (c *Client) AddBacktrace(id domain.ExecutionID, resp domain.BacktraceResponse) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r := resp
	c.backtraces[id] = append(c.backtraces[id], &r)
}

// AddSource registers a source file.
func (c *Client) AddSource(component domain.ComponentID, file, content string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sources[sourceKey{component: component, file: file}] = content
}

// AddLogs appends log entries.
func (c *Client) AddLogs(id domain.ExecutionID, entries ...domain.LogEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.logs[id] = append(c.logs[id], entries...)
}

// ListExecutionEventsAndResponses serves one pagination window from the
// scripted data.
func (c *Client) ListExecutionEventsAndResponses(ctx context.Context, req ports.ListEventsRequest) (*ports.ListEventsResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.executions[req.ExecutionID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrExecutionNotFound, req.ExecutionID)
	}
	if e.listErr != nil {
		return nil, e.listErr
	}

	resp := &ports.ListEventsResponse{CurrentStatus: e.status}
	for _, event := range e.events {
		if event.Version < req.VersionFrom {
			continue
		}
		if uint32(len(resp.Events)) >= req.EventsLength {
			break
		}
		resp.Events = append(resp.Events, event)
	}
	for _, rc := range e.responses {
		if rc.Cursor < req.ResponsesCursorFrom {
			continue
		}
		if rc.Cursor == req.ResponsesCursorFrom && !req.ResponsesIncludingCursor {
			continue
		}
		if uint32(len(resp.Responses)) >= req.ResponsesLength {
			break
		}
		resp.Responses = append(resp.Responses, rc)
	}
	return resp, nil
}

// GetBacktrace serves the first recorded backtrace or the one covering the
// requested version.
func (c *Client) GetBacktrace(ctx context.Context, id domain.ExecutionID, filter ports.BacktraceFilter) (*domain.BacktraceResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	recorded := c.backtraces[id]
	if version, ok := filter.Specific(); ok {
		for _, bt := range recorded {
			if bt.Backtrace.Contains(version) {
				return bt, nil
			}
		}
		return nil, domain.ErrBacktraceNotFound
	}
	if len(recorded) == 0 {
		return nil, domain.ErrBacktraceNotFound
	}
	first := recorded[0]
	for _, bt := range recorded[1:] {
		if bt.Backtrace.VersionMinIncluding < first.Backtrace.VersionMinIncluding {
			first = bt
		}
	}
	return first, nil
}

// GetBacktraceSource serves a scripted source file.
func (c *Client) GetBacktraceSource(ctx context.Context, component domain.ComponentID, file string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.SourceFetches[component.String()+"/"+file]++
	content, ok := c.sources[sourceKey{component: component, file: file}]
	if !ok {
		return "", fmt.Errorf("source %s not found in component %s", file, component)
	}
	return content, nil
}

// ListLogs serves one page of scripted log entries. The page token is the
// numeric offset into the log.
func (c *Client) ListLogs(ctx context.Context, req ports.ListLogsRequest) (*ports.ListLogsResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	entries := c.logs[req.ExecutionID]
	offset := 0
	if req.PageToken != "" {
		n, err := strconv.Atoi(req.PageToken)
		if err != nil {
			return nil, fmt.Errorf("invalid page token %q: %w", req.PageToken, err)
		}
		offset = n
	}
	if offset > len(entries) {
		offset = len(entries)
	}
	end := offset + int(req.PageSize)
	if end > len(entries) {
		end = len(entries)
	}

	resp := &ports.ListLogsResponse{Logs: append([]domain.LogEntry(nil), entries[offset:end]...)}
	if end < len(entries) {
		resp.NextPageToken = strconv.Itoa(end)
	}
	return resp, nil
}
