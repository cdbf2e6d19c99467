package pgstore_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/sessions"
	"github.com/dmitrymomot/sessions/pgstore"
)

// fakeDB records queries and plays back canned responses, standing in for a
// pgx pool.
type fakeDB struct {
	execSQL  []string
	execArgs [][]any
	execTag  pgconn.CommandTag
	execErr  error

	querySQL  []string
	queryArgs [][]any
	row       fakeRow
}

type fakeRow struct {
	raw []byte
	err error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	if p, ok := dest[0].(*[]byte); ok {
		*p = r.raw
	}
	return nil
}

func (db *fakeDB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	db.execSQL = append(db.execSQL, sql)
	db.execArgs = append(db.execArgs, args)
	return db.execTag, db.execErr
}

func (db *fakeDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	db.querySQL = append(db.querySQL, sql)
	db.queryArgs = append(db.queryArgs, args)
	return db.row
}

func TestStore_Load(t *testing.T) {
	t.Parallel()

	db := &fakeDB{row: fakeRow{raw: []byte(`{"counter":5}`)}}
	store := pgstore.New(db)

	got, err := store.Load(context.Background(), "sid-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, json.RawMessage(`5`), got["counter"])

	require.Len(t, db.querySQL, 1)
	assert.Contains(t, db.querySQL[0], "FROM sessions")
	assert.Contains(t, db.querySQL[0], "expires_at IS NULL OR expires_at > now()")
	assert.Equal(t, []any{"sid-1"}, db.queryArgs[0])
}

func TestStore_LoadAbsent(t *testing.T) {
	t.Parallel()

	db := &fakeDB{row: fakeRow{err: pgx.ErrNoRows}}
	store := pgstore.New(db)

	got, err := store.Load(context.Background(), "missing")
	require.NoError(t, err, "absence is not an error")
	assert.Nil(t, got)
}

func TestStore_Save(t *testing.T) {
	t.Parallel()

	db := &fakeDB{}
	store := pgstore.New(db)

	data := sessions.Data{"theme": json.RawMessage(`"dark"`)}
	require.NoError(t, store.Save(context.Background(), "sid-1", data, time.Hour))

	require.Len(t, db.execSQL, 1)
	assert.Contains(t, db.execSQL[0], "INSERT INTO sessions")
	assert.Contains(t, db.execSQL[0], "ON CONFLICT (id) DO UPDATE")

	args := db.execArgs[0]
	require.Len(t, args, 3)
	assert.Equal(t, "sid-1", args[0])
	assert.JSONEq(t, `{"theme":"dark"}`, string(args[1].([]byte)))

	expiresAt, ok := args[2].(*time.Time)
	require.True(t, ok)
	require.NotNil(t, expiresAt)
	assert.WithinDuration(t, time.Now().Add(time.Hour), *expiresAt, time.Minute)
}

func TestStore_SaveWithoutTTL(t *testing.T) {
	t.Parallel()

	db := &fakeDB{}
	store := pgstore.New(db)

	require.NoError(t, store.Save(context.Background(), "sid-1", sessions.Data{}, 0))

	args := db.execArgs[0]
	expiresAt, ok := args[2].(*time.Time)
	require.True(t, ok)
	assert.Nil(t, expiresAt, "no ttl stores a NULL expiration")
}

func TestStore_Remove(t *testing.T) {
	t.Parallel()

	db := &fakeDB{execTag: pgconn.NewCommandTag("DELETE 1")}
	store := pgstore.New(db)

	existed, err := store.Remove(context.Background(), "sid-1")
	require.NoError(t, err)
	assert.True(t, existed)

	db = &fakeDB{execTag: pgconn.NewCommandTag("DELETE 0")}
	store = pgstore.New(db)

	existed, err = store.Remove(context.Background(), "sid-1")
	require.NoError(t, err)
	assert.False(t, existed)
}

func TestStore_RemoveExpired(t *testing.T) {
	t.Parallel()

	db := &fakeDB{execTag: pgconn.NewCommandTag("DELETE 7")}
	store := pgstore.New(db)

	n, err := store.RemoveExpired(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)
	assert.Contains(t, db.execSQL[0], "expires_at <= now()")
}

func TestStore_CustomTable(t *testing.T) {
	t.Parallel()

	db := &fakeDB{row: fakeRow{err: pgx.ErrNoRows}}
	store := pgstore.New(db, pgstore.WithTable("app_sessions"))

	_, err := store.Load(context.Background(), "sid")
	require.NoError(t, err)
	assert.Contains(t, db.querySQL[0], "FROM app_sessions")
}

func TestStore_GenerateID(t *testing.T) {
	t.Parallel()

	store := pgstore.New(&fakeDB{})

	a, err := store.GenerateID(context.Background())
	require.NoError(t, err)
	b, err := store.GenerateID(context.Background())
	require.NoError(t, err)

	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b)
}
