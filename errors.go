package sessions

import "errors"

var (
	// ErrStorage is returned when a backend operation fails during a
	// lifecycle call. The underlying cause is joined; the session layer does
	// not interpret it.
	ErrStorage = errors.New("session storage operation failed")
	// ErrConfig is returned when configuration cannot be loaded from the
	// environment.
	ErrConfig = errors.New("invalid session configuration")
	// ErrCleanupUnsupported is returned by Manager.CleanupExpired when the
	// configured storage cannot enumerate expired entries.
	ErrCleanupUnsupported = errors.New("storage does not support expired entry cleanup")
)
