// Package logs retrieves execution log pages through simple forward
// pagination with an opaque next-page token.
package logs

import (
	"context"
	"errors"
	"sync"

	"github.com/obeli-sk/webui/pkg/domain"
	"github.com/obeli-sk/webui/pkg/ports"
)

// DefaultPageSize bounds one log page.
const DefaultPageSize uint32 = 100

// ErrFetchInFlight is returned when FetchNext is called while a page
// request is already running.
var ErrFetchInFlight = errors.New("log page fetch already in flight")

// Filter narrows which entries the backend returns.
type Filter struct {
	ShowLogs    bool
	ShowStreams bool
	Levels      []domain.LogLevel
	StreamTypes []domain.StreamType
}

// DefaultFilter shows everything.
func DefaultFilter() Filter {
	return Filter{ShowLogs: true, ShowStreams: true}
}

// Pager accumulates the log of one execution page by page. A failed fetch
// keeps everything collected so far; the caller decides whether to retry.
//
// Safe for concurrent use.
type Pager struct {
	client   ports.ExecutionClient
	id       domain.ExecutionID
	pageSize uint32
	filter   Filter

	mu          sync.Mutex
	entries     []domain.LogEntry
	nextToken   string
	fetchedOnce bool
	inFlight    bool
}

// Option configures a Pager.
type Option func(*Pager)

// WithPageSize overrides the page size.
func WithPageSize(n uint32) Option {
	return func(p *Pager) { p.pageSize = n }
}

// WithFilter sets the entry filter.
func WithFilter(f Filter) Option {
	return func(p *Pager) { p.filter = f }
}

// NewPager creates a pager over one execution's log.
func NewPager(client ports.ExecutionClient, id domain.ExecutionID, opts ...Option) *Pager {
	p := &Pager{
		client:   client,
		id:       id,
		pageSize: DefaultPageSize,
		filter:   DefaultFilter(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// FetchNext retrieves the next page and appends it. Concurrent calls do not
// stack: while one fetch runs, others fail fast with ErrFetchInFlight.
func (p *Pager) FetchNext(ctx context.Context) error {
	p.mu.Lock()
	if p.inFlight {
		p.mu.Unlock()
		return ErrFetchInFlight
	}
	p.inFlight = true
	token := p.nextToken
	p.mu.Unlock()

	resp, err := p.client.ListLogs(ctx, ports.ListLogsRequest{
		ExecutionID: p.id,
		PageSize:    p.pageSize,
		PageToken:   token,
		ShowLogs:    p.filter.ShowLogs,
		ShowStreams: p.filter.ShowStreams,
		Levels:      p.filter.Levels,
		StreamTypes: p.filter.StreamTypes,
	})

	p.mu.Lock()
	defer p.mu.Unlock()
	p.inFlight = false
	if err != nil {
		return err
	}
	p.entries = append(p.entries, resp.Logs...)
	p.nextToken = resp.NextPageToken
	p.fetchedOnce = true
	return nil
}

// Logs returns a copy of all entries collected so far.
func (p *Pager) Logs() []domain.LogEntry {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domain.LogEntry(nil), p.entries...)
}

// HasMore reports whether another page is known to be available. Before the
// first fetch it is true, since nothing has been asked yet.
func (p *Pager) HasMore() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.fetchedOnce || p.nextToken != ""
}
