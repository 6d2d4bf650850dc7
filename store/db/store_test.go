package db

import (
	"path/filepath"
	"testing"

	"github.com/govm-net/guestenv/core"
	"github.com/govm-net/guestenv/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *Store {
	s, err := Open(map[string]any{
		"db_path": filepath.Join(t.TempDir(), "test.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStorageCells(t *testing.T) {
	s := setupTestDB(t)
	a := core.AccountIDFromString("0x01")
	b := core.AccountIDFromString("0x02")
	key := []byte{1, 2, 3}

	_, ok, err := s.Get(a, key)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(a, key, []byte{42, 0, 0, 0}))
	require.NoError(t, s.Set(b, key, []byte{7}))

	got, ok, err := s.Get(a, key)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte{42, 0, 0, 0}, got)

	require.NoError(t, s.Set(a, key, []byte{43}))
	got, _, err = s.Get(a, key)
	require.NoError(t, err)
	assert.Equal(t, []byte{43}, got)

	n, err := s.Count(a)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	require.NoError(t, s.Delete(a, key))
	_, ok, err = s.Get(a, key)
	require.NoError(t, err)
	assert.False(t, ok)

	got, ok, err = s.Get(b, key)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte{7}, got)
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "store.db")
	a := core.AccountIDFromString("0x0a")

	s, err := store.Get(store.DBType, map[string]any{"db_path": path})
	require.NoError(t, err)
	require.NoError(t, s.Set(a, []byte("k"), []byte("v")))
	require.NoError(t, s.Close())

	s2, err := Open(map[string]any{"db_path": path})
	require.NoError(t, err)
	defer s2.Close()
	got, ok, err := s2.Get(a, []byte("k"))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("v"), got)
}
