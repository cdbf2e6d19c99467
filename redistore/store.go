// Package redistore provides a Redis-backed session storage using go-redis.
// Session state is stored as one JSON document per key under a configurable
// prefix, with expiration delegated to Redis TTLs.
package redistore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/sessions"
)

// ErrConnFailed is returned when the initial Redis connection check fails.
var ErrConnFailed = errors.New("redis connection failed")

// DefaultPrefix namespaces session keys in Redis.
const DefaultPrefix = "sessions:"

// Store implements sessions.Storage on top of Redis.
type Store struct {
	client redis.UniversalClient
	prefix string
}

// Option configures a Store.
type Option func(*Store)

// WithPrefix sets the key prefix for session entries.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// New creates a Store with its own Redis client and verifies the connection.
func New(ctx context.Context, addr, password string, db int, opts ...Option) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, errors.Join(ErrConnFailed, err)
	}

	return NewFromClient(client, opts...), nil
}

// NewFromClient creates a Store from an existing client. The caller keeps
// ownership of the client's lifecycle.
func NewFromClient(client redis.UniversalClient, opts ...Option) *Store {
	s := &Store{
		client: client,
		prefix: DefaultPrefix,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) key(id string) string {
	return s.prefix + id
}

// Load fetches the state stored under id. A missing key is (nil, nil).
func (s *Store) Load(ctx context.Context, id string) (sessions.Data, error) {
	raw, err := s.client.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session %q: %w", id, err)
	}

	var data sessions.Data
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("failed to decode session %q: %w", id, err)
	}
	return data, nil
}

// Save upserts the JSON-encoded state under id with the given TTL. Redis
// expires the key itself; a non-positive ttl stores without expiration.
func (s *Store) Save(ctx context.Context, id string, data sessions.Data, ttl time.Duration) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to encode session %q: %w", id, err)
	}

	if ttl < 0 {
		ttl = 0
	}
	if err := s.client.Set(ctx, s.key(id), raw, ttl).Err(); err != nil {
		return fmt.Errorf("failed to save session %q: %w", id, err)
	}
	return nil
}

// Remove deletes the entry for id and reports whether one existed.
func (s *Store) Remove(ctx context.Context, id string) (bool, error) {
	n, err := s.client.Del(ctx, s.key(id)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to remove session %q: %w", id, err)
	}
	return n > 0, nil
}

// GenerateID returns a new UUID session identifier.
func (s *Store) GenerateID(ctx context.Context) (string, error) {
	return uuid.NewString(), nil
}
