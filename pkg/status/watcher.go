// Package status consumes the long-lived execution status subscription
// streams and caches the latest message per execution.
package status

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/obeli-sk/webui/pkg/domain"
	"github.com/obeli-sk/webui/pkg/ports"
)

// Watcher holds one status subscription per execution. Subscriptions are
// torn down explicitly through the cancel function returned by Subscribe;
// a consumer that unmounts or switches execution calls it from cleanup so
// no late message can land in stale state.
type Watcher struct {
	client ports.ExecutionClient
	logger *slog.Logger

	mu       sync.Mutex
	statuses map[domain.ExecutionID]domain.StatusMessage
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithLogger sets the watcher logger.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Watcher) { w.logger = logger }
}

// NewWatcher creates a watcher over the given client.
func NewWatcher(client ports.ExecutionClient, opts ...Option) *Watcher {
	w := &Watcher{
		client:   client,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		statuses: make(map[domain.ExecutionID]domain.StatusMessage),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Status returns the latest cached message for the execution.
func (w *Watcher) Status(id domain.ExecutionID) (domain.StatusMessage, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	msg, ok := w.statuses[id]
	return msg, ok
}

// Subscribe opens a follow subscription for the execution and returns its
// teardown function. When the cached message is already final for the
// requested detail level, no stream is opened and the teardown is a no-op.
func (w *Watcher) Subscribe(ctx context.Context, id domain.ExecutionID, sendFinishedStatus bool) func() {
	if msg, ok := w.Status(id); ok && subscriptionDone(msg, sendFinishedStatus) {
		w.logger.Debug("status already final, skipping subscription", "execution_id", id)
		return func() {}
	}

	ctx, cancel := context.WithCancel(ctx)
	go w.run(ctx, id, sendFinishedStatus)
	return cancel
}

func (w *Watcher) run(ctx context.Context, id domain.ExecutionID, sendFinishedStatus bool) {
	stream, err := w.client.GetStatus(ctx, id, true, sendFinishedStatus)
	if err != nil {
		w.logger.Error("failed to open status subscription", "execution_id", id, "err", err)
		return
	}
	for {
		msg, err := stream.Recv()
		if err != nil {
			if !errors.Is(err, io.EOF) && ctx.Err() == nil {
				w.logger.Error("error while listening to status updates", "execution_id", id, "err", err)
			}
			w.logger.Debug("ended status subscription", "execution_id", id)
			return
		}
		w.mu.Lock()
		w.statuses[id] = msg
		w.mu.Unlock()
	}
}

// subscriptionDone decides whether the cached message makes a new
// subscription pointless.
func subscriptionDone(msg domain.StatusMessage, sendFinishedStatus bool) bool {
	if sendFinishedStatus {
		return msg.Finished != nil
	}
	return msg.IsFinished()
}
