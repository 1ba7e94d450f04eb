package ports

import (
	"context"
	"errors"

	"github.com/obeli-sk/webui/pkg/domain"
)

// ErrSourceNotCached is returned by SourceStore.Load when no entry exists
// for the key.
var ErrSourceNotCached = errors.New("source not cached")

// SourceStore persists fetched source files keyed by (component, file) so a
// reopened session does not refetch them. It is a cache, not a system of
// record: Load misses are answered by the backend.
type SourceStore interface {
	// Load returns the stored content, or ErrSourceNotCached.
	Load(ctx context.Context, component domain.ComponentID, file string) (string, error)

	// Save stores the content. Saving the same key twice is allowed and
	// overwrites.
	Save(ctx context.Context, component domain.ComponentID, file string, content string) error
}
