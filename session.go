package sessions

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// Status represents a session's position in its lifecycle.
// The numeric ordering is load-bearing: lifecycle transitions only move the
// status forward, which makes Save, Renew and Destroy idempotent past their
// respective thresholds.
type Status int32

const (
	// StatusCreated marks a fresh session with no backing store entry yet.
	StatusCreated Status = iota
	// StatusSaved marks a session whose state has been handed to the store.
	StatusSaved
	// StatusRenewed marks a session whose id has been rotated and data cleared.
	StatusRenewed
	// StatusDestroyed marks a terminated session. Terminal and sticky.
	StatusDestroyed
)

// String returns a human-readable status name.
func (s Status) String() string {
	switch s {
	case StatusCreated:
		return "created"
	case StatusSaved:
		return "saved"
	case StatusRenewed:
		return "renewed"
	case StatusDestroyed:
		return "destroyed"
	default:
		return "unknown"
	}
}

// Data is the session state container: string keys mapped to JSON-encoded
// values. Values are opaque to the core; typed access happens at the
// Get/Set/Remove boundary.
type Data map[string]json.RawMessage

// clone returns a shallow copy. RawMessage values are never mutated in place,
// so sharing the underlying bytes is safe.
func (d Data) clone() Data {
	if d == nil {
		return nil
	}
	out := make(Data, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// Session is a per-client state container with an identity, a lifecycle
// status and mutable keyed data. A single Session may be shared across
// goroutines: data access goes through a read/write lock, while status and
// the dirty flag are lock-free atomics. No lock is ever held across a
// Storage call; lifecycle operations snapshot what they need first.
type Session struct {
	mu   sync.RWMutex // guards id and data
	id   string
	data Data

	status atomic.Int32
	dirty  atomic.Bool

	store  Storage
	config *Config
}

// New creates a Session with the given id and status, bound to a store and
// config. A nil config falls back to defaults. Callers normally go through
// Manager.Load instead.
func New(id string, status Status, store Storage, config *Config) *Session {
	if config == nil {
		config = defaultConfig()
	}
	s := &Session{
		id:     id,
		data:   make(Data),
		store:  store,
		config: config,
	}
	s.status.Store(int32(status))
	return s
}

// ID returns the current session identifier. It changes only via Renew.
func (s *Session) ID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.id
}

// Status returns the current lifecycle status.
func (s *Session) Status() Status {
	return Status(s.status.Load())
}

// Dirty reports whether the data has been mutated since the last save.
// Advisory only: the core never forces a save.
func (s *Session) Dirty() bool {
	return s.dirty.Load()
}

// MaxAge returns the configured session lifetime.
func (s *Session) MaxAge() time.Duration {
	return s.config.MaxAge
}

// Config returns the shared configuration the session was created with.
func (s *Session) Config() *Config {
	return s.config
}

// Len returns the number of keys in the session data.
func (s *Session) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// Keys returns the data keys in no particular order.
func (s *Session) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	return keys
}

// Snapshot returns a copy of the session data safe to use without holding
// any session lock.
func (s *Session) Snapshot() Data {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.clone()
}

// Clear removes all keys and marks the session dirty.
func (s *Session) Clear() {
	s.mu.Lock()
	s.data = make(Data)
	s.mu.Unlock()
	s.dirty.Store(true)
}

// restore replaces the data wholesale with state loaded from a store.
// Does not touch the dirty flag: loaded state is clean by definition.
func (s *Session) restore(data Data) {
	s.mu.Lock()
	s.data = data.clone()
	s.mu.Unlock()
}

// Get returns the value stored under key decoded as T. A missing key or a
// value that does not decode into T both report absence; decode mismatches
// never surface as errors.
func Get[T any](s *Session, key string) (T, bool) {
	var zero T
	s.mu.RLock()
	raw, ok := s.data[key]
	s.mu.RUnlock()
	if !ok {
		return zero, false
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return zero, false
	}
	return v, true
}

// Set encodes val under key and returns the previous value decoded as T,
// reporting absence when there was none or the previous value does not
// decode. An encode failure leaves the data untouched and reports absence.
// A successful insert marks the session dirty.
func Set[T any](s *Session, key string, val T) (T, bool) {
	var zero T
	raw, err := json.Marshal(val)
	if err != nil {
		return zero, false
	}
	s.mu.Lock()
	prev, had := s.data[key]
	s.data[key] = raw
	s.mu.Unlock()
	s.dirty.Store(true)
	if !had {
		return zero, false
	}
	var v T
	if err := json.Unmarshal(prev, &v); err != nil {
		return zero, false
	}
	return v, true
}

// Remove deletes key and returns the removed value decoded as T. Removing a
// missing key reports absence and does not mark the session dirty.
func Remove[T any](s *Session, key string) (T, bool) {
	var zero T
	s.mu.Lock()
	prev, had := s.data[key]
	if had {
		delete(s.data, key)
	}
	s.mu.Unlock()
	if !had {
		return zero, false
	}
	s.dirty.Store(true)
	var v T
	if err := json.Unmarshal(prev, &v); err != nil {
		return zero, false
	}
	return v, true
}

// Save persists the current data snapshot to the store under the configured
// max-age. Only the first call on a Created session reaches the store: the
// Created to Saved transition is claimed with a single compare-and-swap
// before the store call, so a concurrent second Save observes Saved and
// returns nil without a backend write.
//
// The status advances even when the backend write fails. Persistence is
// best-effort: callers needing durability must check the returned error and
// retry through a fresh session.
func (s *Session) Save(ctx context.Context) error {
	if !s.status.CompareAndSwap(int32(StatusCreated), int32(StatusSaved)) {
		return nil
	}

	s.mu.RLock()
	id := s.id
	snapshot := s.data.clone()
	s.mu.RUnlock()
	s.dirty.Store(false)

	if err := s.store.Save(ctx, id, snapshot, s.config.MaxAge); err != nil {
		return errors.Join(ErrStorage, err)
	}
	return nil
}

// Renew rotates the session identity: the old id's entry is removed from the
// store, a fresh id is generated, and the data is cleared. Acts only while
// the status is below Renewed; the transition is claimed atomically first,
// so concurrent callers rotate at most once and later calls are no-ops.
func (s *Session) Renew(ctx context.Context) error {
	if !s.advance(StatusRenewed) {
		return nil
	}

	s.mu.RLock()
	old := s.id
	s.mu.RUnlock()

	_, removeErr := s.store.Remove(ctx, old)

	id, genErr := s.store.GenerateID(ctx)
	if genErr == nil {
		s.mu.Lock()
		s.id = id
		s.data = make(Data)
		s.mu.Unlock()
	}

	if removeErr != nil || genErr != nil {
		return errors.Join(ErrStorage, removeErr, genErr)
	}
	return nil
}

// Destroy removes the session's entry from the store and marks the session
// Destroyed. Terminal: once destroyed, Save, Renew and Destroy all become
// no-ops returning nil.
func (s *Session) Destroy(ctx context.Context) error {
	if !s.advance(StatusDestroyed) {
		return nil
	}

	s.mu.RLock()
	id := s.id
	s.mu.RUnlock()

	if _, err := s.store.Remove(ctx, id); err != nil {
		return errors.Join(ErrStorage, err)
	}
	return nil
}

// advance claims a forward status transition. Returns true for exactly one
// caller when the current status is below to; false once the threshold has
// been reached.
func (s *Session) advance(to Status) bool {
	for {
		cur := s.status.Load()
		if cur >= int32(to) {
			return false
		}
		if s.status.CompareAndSwap(cur, int32(to)) {
			return true
		}
	}
}
