// Package execstream drives the incremental retrieval of execution event
// logs. One Stream tails any number of executions concurrently, filling a
// shared event store page by page until each execution's terminal event is
// observed.
package execstream

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/obeli-sk/webui/pkg/domain"
	"github.com/obeli-sk/webui/pkg/eventstore"
	"github.com/obeli-sk/webui/pkg/ports"
)

// PageSize bounds both the events and the responses dimension of one
// pagination window.
const PageSize uint32 = 500

// DefaultPollInterval is the delay between pages while an execution is
// still running. Tailing is long-poll style: fetch, wait, fetch again.
const DefaultPollInterval = 2500 * time.Millisecond

// FetchState is the lifecycle of one execution's retrieval.
type FetchState int

const (
	// StateRequested means the next page is due but not yet in flight.
	StateRequested FetchState = iota
	// StatePending means a page request is in flight or the poll delay is
	// running.
	StatePending
	// StateFinished means the terminal event was observed; no further
	// fetches happen for this execution.
	StateFinished
	// StateFailed means a page fetch failed. The failure was reported and
	// polling halted for this execution only.
	StateFailed
)

func (s FetchState) String() string {
	switch s {
	case StateRequested:
		return "requested"
	case StatePending:
		return "pending"
	case StateFinished:
		return "finished"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// cursors is the strictly advancing watermark pair of one execution's
// pagination.
type cursors struct {
	versionFrom         domain.Version
	responsesCursorFrom uint32
}

// Option configures a Stream.
type Option func(*Stream)

// WithNotifier routes fetch failures to n.
func WithNotifier(n ports.Notifier) Option {
	return func(s *Stream) { s.notifier = n }
}

// WithLogger sets the stream logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Stream) { s.logger = logger }
}

// WithPollInterval overrides the delay between pages of an unfinished
// execution.
func WithPollInterval(d time.Duration) Option {
	return func(s *Stream) { s.pollInterval = d }
}

// WithPageSize overrides the pagination window size.
func WithPageSize(n uint32) Option {
	return func(s *Stream) { s.pageSize = n }
}

// WithMetrics attaches fetch metrics.
func WithMetrics(m *Metrics) Option {
	return func(s *Stream) { s.metrics = m }
}

// Stream tails execution event logs into an event store. Each tracked
// execution is driven by its own goroutine; there is no ordering guarantee
// between executions and no consumer may depend on one.
type Stream struct {
	client       ports.ExecutionClient
	store        *eventstore.Store
	notifier     ports.Notifier
	logger       *slog.Logger
	pollInterval time.Duration
	pageSize     uint32
	metrics      *Metrics

	mu       sync.Mutex
	states   map[domain.ExecutionID]FetchState
	statuses map[domain.ExecutionID]domain.ExecutionStatus
}

// New creates a stream over the given client.
func New(client ports.ExecutionClient, opts ...Option) *Stream {
	s := &Stream{
		client:       client,
		store:        eventstore.New(),
		notifier:     ports.NopNotifier{},
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		pollInterval: DefaultPollInterval,
		pageSize:     PageSize,
		states:       make(map[domain.ExecutionID]FetchState),
		statuses:     make(map[domain.ExecutionID]domain.ExecutionStatus),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Store exposes the event store the stream fills.
func (s *Stream) Store() *eventstore.Store {
	return s.store
}

// Tracked reports whether the execution is already registered, in any fetch
// state.
func (s *Stream) Tracked(id domain.ExecutionID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.states[id]
	return ok
}

// FetchState returns the execution's current fetch state.
func (s *Stream) FetchState(id domain.ExecutionID) (FetchState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.states[id]
	return state, ok
}

// Add registers an execution and starts tailing it. Adding an already
// tracked execution is a no-op, so callers may add the same id on every
// render without spawning duplicate fetch loops. The loop ends when the
// execution finishes, a fetch fails, or ctx is cancelled.
func (s *Stream) Add(ctx context.Context, id domain.ExecutionID) {
	s.mu.Lock()
	if _, ok := s.states[id]; ok {
		s.mu.Unlock()
		return
	}
	s.states[id] = StateRequested
	s.mu.Unlock()

	s.logger.Info("tracking execution", "execution_id", id)
	go s.run(ctx, id)
}

func (s *Stream) run(ctx context.Context, id domain.ExecutionID) {
	cur := cursors{}
	for {
		s.setState(id, StatePending)

		resp, err := s.client.ListExecutionEventsAndResponses(ctx, ports.ListEventsRequest{
			ExecutionID:              id,
			VersionFrom:              cur.versionFrom,
			EventsLength:             s.pageSize,
			ResponsesCursorFrom:      cur.responsesCursorFrom,
			ResponsesLength:          s.pageSize,
			ResponsesIncludingCursor: cur.responsesCursorFrom == 0,
			IncludeBacktraceID:       true,
		})
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.logger.Error("failed to list execution events", "execution_id", id, "err", err)
			s.notifier.Error(ctx, fmt.Sprintf("Failed to load events of %s: %v", id, err))
			s.metrics.fetchFailed()
			s.setState(id, StateFailed)
			return
		}

		s.logger.Debug("got page",
			"execution_id", id,
			"events", len(resp.Events),
			"responses", len(resp.Responses))
		s.metrics.pageFetched(len(resp.Events))

		responses := make([]domain.JoinSetResponse, len(resp.Responses))
		for i, rc := range resp.Responses {
			responses[i] = rc.Response
		}
		s.store.Append(id, resp.Events, responses)

		isFinished := len(resp.Events) > 0 && resp.Events[len(resp.Events)-1].IsFinished()
		cur = nextCursors(cur, resp)

		s.mu.Lock()
		s.statuses[id] = resp.CurrentStatus
		s.mu.Unlock()

		if isFinished {
			s.logger.Info("finished loading events and responses", "execution_id", id)
			s.metrics.executionFinished()
			s.setState(id, StateFinished)
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(s.pollInterval):
		}
		s.setState(id, StateRequested)
	}
}

// nextCursors advances each watermark past the last element of its page,
// keeping the previous value when that dimension of the page was empty.
func nextCursors(prev cursors, resp *ports.ListEventsResponse) cursors {
	next := prev
	if len(resp.Events) > 0 {
		next.versionFrom = resp.Events[len(resp.Events)-1].Version + 1
	}
	if len(resp.Responses) > 0 {
		next.responsesCursorFrom = resp.Responses[len(resp.Responses)-1].Cursor
	}
	return next
}

func (s *Stream) setState(id domain.ExecutionID, state FetchState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[id] = state
}

// Snapshot is a consistent read-only copy of everything the stream has
// loaded so far.
type Snapshot struct {
	eventstore.Snapshot
	FetchStates map[domain.ExecutionID]FetchState
	Statuses    map[domain.ExecutionID]domain.ExecutionStatus
}

// Snapshot copies the stream state. The store and the fetch-state map are
// copied under separate locks; within each map the copy is consistent.
func (s *Stream) Snapshot() Snapshot {
	snap := Snapshot{Snapshot: s.store.Snapshot()}

	s.mu.Lock()
	defer s.mu.Unlock()
	snap.FetchStates = make(map[domain.ExecutionID]FetchState, len(s.states))
	for id, state := range s.states {
		snap.FetchStates[id] = state
	}
	snap.Statuses = make(map[domain.ExecutionID]domain.ExecutionStatus, len(s.statuses))
	for id, status := range s.statuses {
		snap.Statuses[id] = status
	}
	return snap
}
