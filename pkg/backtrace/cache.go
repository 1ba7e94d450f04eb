// Package backtrace caches fetched execution backtraces and resolves the
// source files their frames reference, highlighting each file once.
package backtrace

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/obeli-sk/webui/pkg/domain"
	"github.com/obeli-sk/webui/pkg/ports"
)

// Key addresses one cached backtrace.
type Key struct {
	ExecutionID domain.ExecutionID
	Version     domain.Version
}

// Result is a resolved cache entry: either a backtrace response or the
// error that ended the fetch. A NotFound error is a valid terminal state
// meaning no backtrace is recorded, distinct from a failed load.
type Result struct {
	Response *domain.BacktraceResponse
	Err      error
}

// NotFound reports whether the entry resolved to "no backtrace recorded".
func (r Result) NotFound() bool {
	return errors.Is(r.Err, domain.ErrBacktraceNotFound)
}

// Option configures a Cache.
type Option func(*Cache)

// WithNotifier routes load failures to n.
func WithNotifier(n ports.Notifier) Option {
	return func(c *Cache) { c.notifier = n }
}

// WithLogger sets the cache logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) {
		c.logger = logger
		c.sources.logger = logger
	}
}

// WithSourceStore adds a persistent layer consulted before fetching source
// files and filled after.
func WithSourceStore(store ports.SourceStore) Option {
	return func(c *Cache) { c.sources.store = store }
}

// Cache fetches backtraces at most once per (execution, version) key and
// fans referenced source files out to the source cache.
type Cache struct {
	client   ports.ExecutionClient
	notifier ports.Notifier
	logger   *slog.Logger
	sources  *Sources

	mu      sync.Mutex
	entries map[Key]Result
	pending map[Key]struct{}
}

// NewCache creates a cache over the given client.
func NewCache(client ports.ExecutionClient, opts ...Option) *Cache {
	nop := slog.New(slog.NewTextHandler(io.Discard, nil))
	c := &Cache{
		client:   client,
		notifier: ports.NopNotifier{},
		logger:   nop,
		sources:  newSources(client, nop),
		entries:  make(map[Key]Result),
		pending:  make(map[Key]struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Sources exposes the source cache fed by this backtrace cache.
func (c *Cache) Sources() *Sources {
	return c.sources
}

// Lookup returns the cached entry for the key, if resolved.
func (c *Cache) Lookup(key Key) (Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	result, ok := c.entries[key]
	return result, ok
}

// Request resolves the key if it is not already cached or in flight.
// Version 0 asks for the first recorded backtrace, any other version for
// the backtrace covering it. The pending marker placed under lock is what
// collapses concurrent requests for one key into a single fetch; losers
// return immediately without blocking.
func (c *Cache) Request(ctx context.Context, key Key) {
	c.mu.Lock()
	if _, ok := c.entries[key]; ok {
		c.mu.Unlock()
		return
	}
	if _, ok := c.pending[key]; ok {
		c.mu.Unlock()
		return
	}
	c.pending[key] = struct{}{}
	c.mu.Unlock()

	filter := ports.FirstBacktrace()
	if key.Version > 0 {
		filter = ports.SpecificBacktrace(key.Version)
	}
	c.logger.Debug("requesting backtrace", "execution_id", key.ExecutionID, "version", key.Version)

	resp, err := c.client.GetBacktrace(ctx, key.ExecutionID, filter)
	result := Result{Response: resp, Err: err}
	switch {
	case err == nil:
		for _, frame := range resp.Backtrace.Frames {
			for _, symbol := range frame.Symbols {
				if symbol.File != nil {
					c.sources.Request(ctx, SourceKey{Component: resp.ComponentID, File: *symbol.File})
				}
			}
		}
	case errors.Is(err, domain.ErrBacktraceNotFound):
		result = Result{Err: domain.ErrBacktraceNotFound}
	default:
		c.logger.Error("failed to get backtrace", "execution_id", key.ExecutionID, "version", key.Version, "err", err)
		c.notifier.Error(ctx, fmt.Sprintf("Failed to load backtrace: %v", err))
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.pending, key)
	c.entries[key] = result
}
