package metadata

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "meta.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
CREATE TABLE metadata (
  key   TEXT PRIMARY KEY,
  value BLOB NOT NULL
);`)
	require.NoError(t, err)
	return db
}

func TestKV_PutGetOverwrite(t *testing.T) {
	s := kv{db: setupDB(t)}
	ctx := context.Background()

	require.NoError(t, s.put(ctx, "k", []byte("old")))
	require.NoError(t, s.put(ctx, "k", []byte{0x01, 0x02}))

	v, err := s.get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, []byte{0x01, 0x02}, v)
}

func TestKV_GetMissing(t *testing.T) {
	s := kv{db: setupDB(t)}

	v, err := s.get(context.Background(), "absent")
	require.ErrorIs(t, err, ErrNotFound)
	require.Nil(t, v)
}

func TestKV_RemoveIdempotent(t *testing.T) {
	s := kv{db: setupDB(t)}
	ctx := context.Background()

	require.NoError(t, s.put(ctx, "x", []byte{0x01}))
	require.NoError(t, s.remove(ctx, "x"))
	require.NoError(t, s.remove(ctx, "x"))

	_, err := s.get(ctx, "x")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestKV_ClosedDBErrorsWrapped(t *testing.T) {
	db := setupDB(t)
	s := kv{db: db}
	ctx := context.Background()
	require.NoError(t, db.Close())

	_, err := s.get(ctx, "k")
	require.ErrorContains(t, err, "read k")
	require.ErrorContains(t, s.put(ctx, "k", []byte("v")), "write k")
	require.ErrorContains(t, s.remove(ctx, "k"), "delete k")
}
