// Package sessions provides concurrency-safe per-client session state for Go
// server applications, backed by a pluggable storage layer.
//
// A Session is a short-lived container of keyed, JSON-structured data tied to
// a client-visible identifier. It survives across independent requests from
// the same client by persisting through a Storage backend; the package ships
// an in-memory reference backend, with Redis, PostgreSQL and MongoDB backends
// in subpackages.
//
// # Core Components
//
//   - Session: identity, lifecycle status and mutable keyed data
//   - Storage: persistence contract any backend can satisfy
//   - Manager: never-fails lookup surface that turns stored state into Sessions
//   - Config: shared cookie/TTL policy consumed by the cookie-emission layer
//
// # Basic Usage
//
//	store := sessions.NewMemoryStorage()
//	manager := sessions.NewManager(store,
//		sessions.WithConfig(sessions.NewConfig(
//			sessions.WithName("app.sid"),
//			sessions.WithMaxAge(12*time.Hour),
//		)),
//	)
//
//	func handler(w http.ResponseWriter, r *http.Request) {
//		sess := manager.Load(r.Context(), idFromCookie(r))
//
//		count, _ := sessions.Get[int](sess, "count")
//		sessions.Set(sess, "count", count+1)
//
//		if err := sess.Save(r.Context()); err != nil {
//			log.Printf("session save: %v", err)
//		}
//		writeCookie(w, sess.ID(), sess.MaxAge())
//	}
//
// # Lifecycle
//
// A session moves monotonically through Created, Saved, Renewed and
// Destroyed. Save persists the first time only; Renew rotates the identifier
// and clears the data; Destroy removes the backing entry and is terminal.
// Each transition is claimed with an atomic compare-and-swap before any
// store I/O, so concurrent callers racing on the same operation trigger at
// most one backend call and every later call is an idempotent no-op.
//
// Save advances the status even when the backend write fails. Persistence is
// best-effort by design; callers that need durability must inspect the
// returned error.
//
// # Typed Data Access
//
// Values cross the container boundary through generic helpers:
//
//	prev, had := sessions.Set(sess, "user", User{Name: "Kobe"})
//	user, ok := sessions.Get[User](sess, "user")
//	gone, ok := sessions.Remove[User](sess, "user")
//
// A value that does not decode into the requested type reports absence
// rather than an error. This mirrors the behavior of the system the package
// is modeled on and keeps the data surface infallible.
//
// # Thread Safety
//
// One Session may be shared across goroutines. Data access goes through a
// read/write lock with minimal scope; status and the dirty flag are lock-free
// atomics. No lock is ever held across a Storage call: lifecycle operations
// snapshot the state first, release, then call the store.
//
// # Storage Backends
//
// Implement the Storage interface to plug in a backend:
//
//	type Storage interface {
//		Load(ctx context.Context, id string) (Data, error)
//		Save(ctx context.Context, id string, data Data, ttl time.Duration) error
//		Remove(ctx context.Context, id string) (bool, error)
//		GenerateID(ctx context.Context) (string, error)
//	}
//
// Load must report absence as (nil, nil), never as an error. Backends that
// can enumerate expired entries may additionally implement ExpiredRemover to
// participate in Manager.CleanupExpired.
package sessions
