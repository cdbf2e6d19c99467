package sessions

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// entry is a stored session state with its expiration deadline.
// A zero deadline means the entry never expires.
type entry struct {
	data      Data
	expiresAt time.Time
}

func (e entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// MemoryStorage is the reference in-memory Storage backend. One coarse lock
// guards the whole map; each call holds it only for the duration of its map
// access, never across session-level locking. Expired entries are treated as
// absent on Load and can additionally be swept by the optional background
// cleanup loop.
type MemoryStorage struct {
	mu       sync.RWMutex
	sessions map[string]entry

	cleanupInterval time.Duration
	logger          *slog.Logger

	cancel  context.CancelFunc
	running atomic.Bool
}

// MemoryOption configures a MemoryStorage.
type MemoryOption func(*MemoryStorage)

// WithCleanupInterval sets how often the background loop sweeps expired
// entries. Zero disables background cleanup; Load still ignores expired
// entries lazily.
func WithCleanupInterval(interval time.Duration) MemoryOption {
	return func(ms *MemoryStorage) {
		ms.cleanupInterval = interval
	}
}

// WithLogger sets the logger for the cleanup loop.
func WithLogger(logger *slog.Logger) MemoryOption {
	return func(ms *MemoryStorage) {
		if logger != nil {
			ms.logger = logger
		}
	}
}

// NewMemoryStorage creates an in-memory backend. Call Start to begin
// background cleanup when an interval is configured.
func NewMemoryStorage(opts ...MemoryOption) *MemoryStorage {
	ms := &MemoryStorage{
		sessions: make(map[string]entry),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(ms)
	}
	return ms
}

// Load returns the stored state for id, or (nil, nil) when the id is unknown
// or its entry has expired.
func (ms *MemoryStorage) Load(ctx context.Context, id string) (Data, error) {
	ms.mu.RLock()
	e, ok := ms.sessions[id]
	ms.mu.RUnlock()

	if !ok || e.expired(time.Now()) {
		return nil, nil
	}
	return e.data.clone(), nil
}

// Save stores a copy of data under id, replacing any existing entry.
func (ms *MemoryStorage) Save(ctx context.Context, id string, data Data, ttl time.Duration) error {
	e := entry{data: data.clone()}
	if ttl > 0 {
		e.expiresAt = time.Now().Add(ttl)
	}

	ms.mu.Lock()
	ms.sessions[id] = e
	ms.mu.Unlock()
	return nil
}

// Remove deletes the entry for id and reports whether one existed.
// An already-expired entry still counts as existing until swept.
func (ms *MemoryStorage) Remove(ctx context.Context, id string) (bool, error) {
	ms.mu.Lock()
	_, ok := ms.sessions[id]
	delete(ms.sessions, id)
	ms.mu.Unlock()
	return ok, nil
}

// GenerateID returns a cryptographically secure random identifier: 32 bytes
// encoded as base64 URL-safe without padding.
func (ms *MemoryStorage) GenerateID(ctx context.Context) (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// RemoveExpired sweeps all expired entries and returns the count removed.
func (ms *MemoryStorage) RemoveExpired(ctx context.Context) (int64, error) {
	now := time.Now()
	var removed int64

	ms.mu.Lock()
	for id, e := range ms.sessions {
		if e.expired(now) {
			delete(ms.sessions, id)
			removed++
		}
	}
	ms.mu.Unlock()

	return removed, nil
}

// Len returns the number of stored entries, including expired ones not yet
// swept.
func (ms *MemoryStorage) Len() int {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	return len(ms.sessions)
}

// Running reports whether the background cleanup loop is active.
func (ms *MemoryStorage) Running() bool {
	return ms.running.Load()
}

// Start runs the background cleanup loop until ctx is cancelled or Stop is
// called. Blocking; run it in a goroutine or under an errgroup.
func (ms *MemoryStorage) Start(ctx context.Context) error {
	ms.mu.Lock()
	if ms.cancel != nil {
		ms.mu.Unlock()
		return fmt.Errorf("memory storage already started")
	}
	if ms.cleanupInterval <= 0 {
		ms.mu.Unlock()
		return fmt.Errorf("cleanup interval must be > 0, got %v (use WithCleanupInterval to configure)", ms.cleanupInterval)
	}
	ctx, ms.cancel = context.WithCancel(ctx)
	ms.mu.Unlock()

	ms.running.Store(true)
	defer ms.running.Store(false)

	ms.logger.InfoContext(ctx, "session storage cleanup started",
		slog.Duration("cleanup_interval", ms.cleanupInterval))

	ticker := time.NewTicker(ms.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			ms.logger.InfoContext(context.Background(), "session storage cleanup stopping")
			return ctx.Err()
		case <-ticker.C:
			if n, _ := ms.RemoveExpired(ctx); n > 0 {
				ms.logger.DebugContext(ctx, "removed expired sessions",
					slog.Int64("count", n))
			}
		}
	}
}

// Stop cancels the background cleanup loop. Safe to call when not started.
func (ms *MemoryStorage) Stop() {
	ms.mu.Lock()
	cancel := ms.cancel
	ms.cancel = nil
	ms.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}
