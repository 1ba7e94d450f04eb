// Package redis provides a Redis-backed source file cache.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/obeli-sk/webui/pkg/domain"
	"github.com/obeli-sk/webui/pkg/ports"
	backend "github.com/redis/go-redis/v9"
)

// SourceStore implements ports.SourceStore using Redis.
type SourceStore struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

type Option func(*SourceStore)

// WithTTL sets the expiration for cached sources.
func WithTTL(ttl time.Duration) Option {
	return func(s *SourceStore) {
		s.ttl = ttl
	}
}

// WithPrefix sets the key prefix for cached sources.
func WithPrefix(prefix string) Option {
	return func(s *SourceStore) {
		s.prefix = prefix
	}
}

// New creates a new Redis source store with options.
func New(address, password string, db int, opts ...Option) *SourceStore {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a new Redis source store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *SourceStore {
	store := &SourceStore{
		client: client,
		prefix: "webui:source:",
		ttl:    0, // No expiration by default
	}

	for _, opt := range opts {
		opt(store)
	}

	return store
}

func (s *SourceStore) key(component domain.ComponentID, file string) string {
	return s.prefix + component.String() + ":" + file
}

// Save persists the source content to Redis.
func (s *SourceStore) Save(ctx context.Context, component domain.ComponentID, file string, content string) error {
	if err := s.client.Set(ctx, s.key(component, file), content, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save source to redis: %w", err)
	}
	return nil
}

// Load retrieves the source content from Redis.
func (s *SourceStore) Load(ctx context.Context, component domain.ComponentID, file string) (string, error) {
	val, err := s.client.Get(ctx, s.key(component, file)).Result()
	if err != nil {
		if err == backend.Nil {
			return "", ports.ErrSourceNotCached
		}
		return "", fmt.Errorf("failed to load source from redis: %w", err)
	}
	return val, nil
}

// Close closes the underlying Redis connection.
func (s *SourceStore) Close() error {
	return s.client.Close()
}

var _ ports.SourceStore = (*SourceStore)(nil)
