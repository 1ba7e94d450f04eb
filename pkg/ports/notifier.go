package ports

import (
	"context"
	"log/slog"
)

// Notifier receives user-visible, non-fatal error notifications. A failed
// page fetch or backtrace load is reported here and scoped to the one
// request that failed; it never aborts the rest of the view.
type Notifier interface {
	Error(ctx context.Context, message string)
}

// SlogNotifier reports notifications through a structured logger.
type SlogNotifier struct {
	Logger *slog.Logger
}

func (n SlogNotifier) Error(ctx context.Context, message string) {
	n.Logger.ErrorContext(ctx, "notification", "message", message)
}

// NopNotifier discards notifications. Useful in tests that assert on state
// rather than reporting.
type NopNotifier struct{}

func (NopNotifier) Error(context.Context, string) {}
