// Package webui assembles the observability components for the execution
// engine: the event stream, the backtrace and source caches, the debugger
// and the status watcher, all sharing one backend client.
package webui

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/obeli-sk/webui/internal/logging"
	"github.com/obeli-sk/webui/pkg/backtrace"
	"github.com/obeli-sk/webui/pkg/debugger"
	"github.com/obeli-sk/webui/pkg/execstream"
	"github.com/obeli-sk/webui/pkg/ports"
	"github.com/obeli-sk/webui/pkg/status"
)

// Version is the release version, overridden at build time.
var Version = "dev"

// App is the high-level entry point for the webui library.
// It wires the components together and provides a simplified API for
// consumers that do not want to assemble them manually.
type App struct {
	Client     ports.ExecutionClient
	Stream     *execstream.Stream
	Backtraces *backtrace.Cache
	Debugger   *debugger.Debugger
	Watcher    *status.Watcher
	Registry   *prometheus.Registry

	logger       *slog.Logger
	notifier     ports.Notifier
	sources      ports.SourceStore
	pageSize     uint32
	pollInterval time.Duration
}

// Option defines a functional option for configuring the App.
type Option func(*App)

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *App) {
		a.logger = logger
	}
}

// WithNotifier routes user-facing error notifications.
func WithNotifier(n ports.Notifier) Option {
	return func(a *App) {
		a.notifier = n
	}
}

// WithSourceStore persists fetched sources across sessions.
func WithSourceStore(store ports.SourceStore) Option {
	return func(a *App) {
		a.sources = store
	}
}

// WithPageSize sets the event page size for the stream.
func WithPageSize(n uint32) Option {
	return func(a *App) {
		a.pageSize = n
	}
}

// WithPollInterval sets the delay between fetches of an unfinished
// execution.
func WithPollInterval(d time.Duration) Option {
	return func(a *App) {
		a.pollInterval = d
	}
}

// New wires an App around the given backend client.
func New(client ports.ExecutionClient, opts ...Option) *App {
	app := &App{Client: client}
	for _, opt := range opts {
		opt(app)
	}

	if app.logger == nil {
		app.logger = logging.NewNop()
	}
	if app.notifier == nil {
		app.notifier = &ports.SlogNotifier{Logger: app.logger}
	}

	app.Registry = prometheus.NewRegistry()

	streamOpts := []execstream.Option{
		execstream.WithLogger(app.logger),
		execstream.WithNotifier(app.notifier),
		execstream.WithMetrics(execstream.NewMetrics(app.Registry)),
	}
	if app.pageSize != 0 {
		streamOpts = append(streamOpts, execstream.WithPageSize(app.pageSize))
	}
	if app.pollInterval != 0 {
		streamOpts = append(streamOpts, execstream.WithPollInterval(app.pollInterval))
	}
	app.Stream = execstream.New(client, streamOpts...)

	cacheOpts := []backtrace.Option{
		backtrace.WithLogger(app.logger),
		backtrace.WithNotifier(app.notifier),
	}
	if app.sources != nil {
		cacheOpts = append(cacheOpts, backtrace.WithSourceStore(app.sources))
	}
	app.Backtraces = backtrace.NewCache(client, cacheOpts...)

	app.Debugger = debugger.New(app.Stream, app.Backtraces)
	app.Watcher = status.NewWatcher(client, status.WithLogger(app.logger))

	return app
}
