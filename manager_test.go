package sessions_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/sessions"
)

// failingStorage errors on every operation except GenerateID.
type failingStorage struct{}

func (failingStorage) Load(ctx context.Context, id string) (sessions.Data, error) {
	return nil, errors.New("load failed")
}

func (failingStorage) Save(ctx context.Context, id string, data sessions.Data, ttl time.Duration) error {
	return errors.New("save failed")
}

func (failingStorage) Remove(ctx context.Context, id string) (bool, error) {
	return false, errors.New("remove failed")
}

func (failingStorage) GenerateID(ctx context.Context) (string, error) {
	return "fallback-id", nil
}

func TestManager_LoadFresh(t *testing.T) {
	t.Parallel()

	manager := sessions.NewManager(sessions.NewMemoryStorage())

	sess := manager.Load(context.Background(), "")

	require.NotNil(t, sess)
	assert.Equal(t, sessions.StatusCreated, sess.Status())
	assert.NotEmpty(t, sess.ID())
	assert.Equal(t, 0, sess.Len())
	assert.False(t, sess.Dirty())
}

func TestManager_LoadUnknownIDYieldsFresh(t *testing.T) {
	t.Parallel()

	manager := sessions.NewManager(sessions.NewMemoryStorage())

	sess := manager.Load(context.Background(), "nobody-home")

	require.NotNil(t, sess)
	assert.Equal(t, sessions.StatusCreated, sess.Status())
	assert.NotEqual(t, "nobody-home", sess.ID())
}

func TestManager_LoadExisting(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := sessions.NewMemoryStorage()
	manager := sessions.NewManager(store)

	first := manager.Load(ctx, "")
	sessions.Set(first, "theme", "dark")
	require.NoError(t, first.Save(ctx))

	second := manager.Load(ctx, first.ID())

	assert.Equal(t, first.ID(), second.ID())
	assert.Equal(t, sessions.StatusSaved, second.Status())
	theme, ok := sessions.Get[string](second, "theme")
	require.True(t, ok)
	assert.Equal(t, "dark", theme)
	assert.False(t, second.Dirty(), "loaded state is clean")
}

func TestManager_LoadNeverFails(t *testing.T) {
	t.Parallel()

	manager := sessions.NewManager(failingStorage{})

	sess := manager.Load(context.Background(), "anything")

	require.NotNil(t, sess)
	assert.Equal(t, sessions.StatusCreated, sess.Status())
	assert.Equal(t, "fallback-id", sess.ID())
}

func TestManager_Verifier(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := sessions.NewMemoryStorage()
	manager := sessions.NewManager(store,
		sessions.WithVerifier(func(id string) bool { return len(id) >= 8 }),
	)

	// Seed an entry under a short id directly; the verifier must reject the
	// lookup regardless of its presence.
	require.NoError(t, store.Save(ctx, "short", sessions.Data{}, time.Hour))

	sess := manager.Load(ctx, "short")
	assert.Equal(t, sessions.StatusCreated, sess.Status())
	assert.NotEqual(t, "short", sess.ID())
}

func TestManager_WithConfig(t *testing.T) {
	t.Parallel()

	cfg := sessions.NewConfig(
		sessions.WithName("app.sid"),
		sessions.WithMaxAge(time.Hour),
	)
	manager := sessions.NewManager(sessions.NewMemoryStorage(), sessions.WithConfig(cfg))

	sess := manager.Load(context.Background(), "")

	assert.Equal(t, time.Hour, sess.MaxAge())
	assert.Equal(t, "app.sid", sess.Config().Name)
	assert.Same(t, cfg, manager.Config())
}

func TestManager_CleanupExpired(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := sessions.NewMemoryStorage()
	manager := sessions.NewManager(store)

	require.NoError(t, store.Save(ctx, "gone", sessions.Data{}, time.Nanosecond))
	require.NoError(t, store.Save(ctx, "kept", sessions.Data{}, time.Hour))
	time.Sleep(5 * time.Millisecond)

	n, err := manager.CleanupExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, 1, store.Len())
}

func TestManager_CleanupExpiredUnsupported(t *testing.T) {
	t.Parallel()

	manager := sessions.NewManager(failingStorage{})

	_, err := manager.CleanupExpired(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, sessions.ErrCleanupUnsupported)
}
