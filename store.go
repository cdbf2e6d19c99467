package sessions

import (
	"context"
	"time"
)

// Storage is the pluggable persistence contract for session state.
// Implementations must be safe for concurrent use; the core adds no locking
// of its own around Storage calls.
type Storage interface {
	// Load returns the state stored under id, or (nil, nil) when no live
	// entry exists. Absence is a valid outcome, not an error.
	Load(ctx context.Context, id string) (Data, error)

	// Save upserts the state for id with the given time-to-live, fully
	// replacing any existing entry. A non-positive ttl stores the entry
	// without expiration.
	Save(ctx context.Context, id string, data Data, ttl time.Duration) error

	// Remove deletes the entry for id and reports whether one existed.
	Remove(ctx context.Context, id string) (bool, error)

	// GenerateID produces a new unique session identifier. Uniqueness is the
	// implementation's responsibility; the core treats ids as opaque.
	GenerateID(ctx context.Context) (string, error)
}

// ExpiredRemover is an optional Storage capability for backends that can
// enumerate and sweep expired entries. Manager.CleanupExpired uses it when
// available.
type ExpiredRemover interface {
	// RemoveExpired deletes all expired entries and returns the count removed.
	RemoveExpired(ctx context.Context) (int64, error)
}
