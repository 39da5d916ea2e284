package sqlite_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/split-ledger/store"
	"github.com/warp/split-ledger/store/sqlite"
)

func newStore(t *testing.T) *sqlite.Store {
	t.Helper()
	s, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_ReadWriteDelete(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	_, err := s.Read(ctx, "users/a/wallet")
	assert.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, s.Write(ctx, "users/a/wallet", map[string]int64{"balance": 500}))

	got, err := store.Load[map[string]int64](ctx, s, "users/a/wallet")
	require.NoError(t, err)
	assert.Equal(t, int64(500), got["balance"])

	require.NoError(t, s.Delete(ctx, "users/a/wallet"))
	_, err = s.Read(ctx, "users/a/wallet")
	assert.ErrorIs(t, err, store.ErrNotFound)

	// Deleting an absent path is not an error.
	assert.NoError(t, s.Delete(ctx, "users/a/wallet"))
}

func TestStore_UpsertReplacesValue(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	require.NoError(t, s.Write(ctx, "p", 1))
	require.NoError(t, s.Write(ctx, "p", 2))

	got, err := store.Load[int](ctx, s, "p")
	require.NoError(t, err)
	assert.Equal(t, 2, got)
}

func TestStore_ListByPrefix(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	require.NoError(t, s.Write(ctx, "users/a/settlements/g1/b", 1))
	require.NoError(t, s.Write(ctx, "users/a/settlements/g1/c", 1))
	require.NoError(t, s.Write(ctx, "users/a/settlements/g2/b", 1))
	require.NoError(t, s.Write(ctx, "users/b/settlements/g1/a", 1))

	paths, err := s.List(ctx, "users/a/settlements/g1/")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"users/a/settlements/g1/b",
		"users/a/settlements/g1/c",
	}, paths)

	none, err := s.List(ctx, "users/z/")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestStore_PersistsComplexValues(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	type entry struct {
		ToReceive int64 `json:"toReceive"`
		ToPay     int64 `json:"toPay"`
	}
	want := entry{ToReceive: 6000}
	require.NoError(t, s.Write(ctx, "users/a/settlements/g/b", want))

	got, err := store.Load[entry](ctx, s, "users/a/settlements/g/b")
	require.NoError(t, err)
	assert.Equal(t, want, got)
}
