package backtrace

import (
	"context"
	"log/slog"
	"sync"

	"github.com/obeli-sk/webui/pkg/domain"
	"github.com/obeli-sk/webui/pkg/ports"
)

// SourceState is the lifecycle of one source file entry.
type SourceState int

const (
	// SourceInFlight means the file is being fetched.
	SourceInFlight SourceState = iota
	// SourceFound means the file was fetched and highlighted.
	SourceFound
	// SourceNotFoundOrErr means the fetch failed. The entry is terminal and
	// never retried; the UI renders absence, not an error.
	SourceNotFoundOrErr
)

// SourceKey addresses one source file within a component.
type SourceKey struct {
	Component domain.ComponentID
	File      string
}

// Source is a resolved source cache entry.
type Source struct {
	State SourceState
	// Lines holds the highlighted content, one entry per source line,
	// computed exactly once when the file was fetched.
	Lines []Line
}

// Sources fetches and highlights source files at most once per key. A
// persistent store, when configured, is consulted before the backend and
// filled after a successful fetch.
type Sources struct {
	client ports.ExecutionClient
	store  ports.SourceStore
	logger *slog.Logger

	mu      sync.Mutex
	entries map[SourceKey]Source
}

func newSources(client ports.ExecutionClient, logger *slog.Logger) *Sources {
	return &Sources{
		client:  client,
		logger:  logger,
		entries: make(map[SourceKey]Source),
	}
}

// Lookup returns the cached entry for the key. While a fetch is running the
// entry is present in state SourceInFlight.
func (s *Sources) Lookup(key SourceKey) (Source, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	src, ok := s.entries[key]
	return src, ok
}

// Request fetches the file unless the key already has an entry. The
// in-flight marker placed under lock prevents duplicate dispatch for a key
// requested concurrently.
func (s *Sources) Request(ctx context.Context, key SourceKey) {
	s.mu.Lock()
	if _, ok := s.entries[key]; ok {
		s.mu.Unlock()
		return
	}
	s.entries[key] = Source{State: SourceInFlight}
	s.mu.Unlock()

	content, err := s.load(ctx, key)
	var entry Source
	if err != nil {
		s.logger.Info("cannot obtain source", "file", key.File, "err", err)
		entry = Source{State: SourceNotFoundOrErr}
	} else {
		entry = Source{State: SourceFound, Lines: HighlightLines(content, key.File)}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = entry
}

func (s *Sources) load(ctx context.Context, key SourceKey) (string, error) {
	if s.store != nil {
		if content, err := s.store.Load(ctx, key.Component, key.File); err == nil {
			return content, nil
		}
	}
	content, err := s.client.GetBacktraceSource(ctx, key.Component, key.File)
	if err != nil {
		return "", err
	}
	if s.store != nil {
		if err := s.store.Save(ctx, key.Component, key.File, content); err != nil {
			s.logger.Warn("failed to persist source", "file", key.File, "err", err)
		}
	}
	return content, nil
}
