package sessions

import (
	"context"
	"errors"
)

// Manager is the lookup surface over a Storage backend. It owns the shared
// Config and turns stored state into live Session objects.
type Manager struct {
	store  Storage
	config *Config
	verify func(id string) bool
}

// ManagerOption configures a Manager at construction.
type ManagerOption func(*Manager)

// WithConfig sets the shared session configuration.
func WithConfig(cfg *Config) ManagerOption {
	return func(m *Manager) {
		if cfg != nil {
			m.config = cfg
		}
	}
}

// WithVerifier sets the id verification hook consulted before a store
// lookup. An id rejected by the verifier is treated as unknown and yields a
// fresh session. The default verifier accepts any non-empty id.
func WithVerifier(fn func(id string) bool) ManagerOption {
	return func(m *Manager) {
		if fn != nil {
			m.verify = fn
		}
	}
}

// NewManager creates a Manager over the given storage backend.
func NewManager(store Storage, opts ...ManagerOption) *Manager {
	m := &Manager{
		store:  store,
		config: defaultConfig(),
		verify: func(id string) bool { return id != "" },
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Config returns the shared configuration.
func (m *Manager) Config() *Config {
	return m.config
}

// Load looks up id in the store. A live entry yields a Session pre-populated
// with the stored state and status Saved. An empty, rejected or unknown id,
// or a backend failure, yields a fresh empty Created session under a newly
// generated id. Load never fails: absence is an outcome, not an error.
func (m *Manager) Load(ctx context.Context, id string) *Session {
	if id != "" && m.verify(id) {
		if data, err := m.store.Load(ctx, id); err == nil && data != nil {
			sess := New(id, StatusSaved, m.store, m.config)
			sess.restore(data)
			return sess
		}
	}

	fresh, err := m.store.GenerateID(ctx)
	if err != nil {
		fresh = ""
	}
	return New(fresh, StatusCreated, m.store, m.config)
}

// CleanupExpired sweeps expired entries on backends that support
// enumeration. Call periodically to keep stores that do not expire entries
// natively from growing without bound.
func (m *Manager) CleanupExpired(ctx context.Context) (int64, error) {
	r, ok := m.store.(ExpiredRemover)
	if !ok {
		return 0, ErrCleanupUnsupported
	}
	n, err := r.RemoveExpired(ctx)
	if err != nil {
		return n, errors.Join(ErrStorage, err)
	}
	return n, nil
}
