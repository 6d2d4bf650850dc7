package memory

import (
	"testing"

	"github.com/govm-net/guestenv/core"
	"github.com/govm-net/guestenv/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore(t *testing.T) {
	s := New()
	a := core.AccountIDFromString("0x01")
	b := core.AccountIDFromString("0x02")

	_, ok, err := s.Get(a, []byte("k"))
	require.NoError(t, err)
	assert.False(t, ok)

	value := []byte("v1")
	require.NoError(t, s.Set(a, []byte("k"), value))
	value[0] = 'x'

	got, ok, err := s.Get(a, []byte("k"))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("v1"), got)

	_, ok, _ = s.Get(b, []byte("k"))
	assert.False(t, ok, "contracts do not share storage")

	require.NoError(t, s.Set(a, []byte("empty"), nil))
	got, ok, _ = s.Get(a, []byte("empty"))
	assert.True(t, ok)
	assert.Empty(t, got)
	assert.Equal(t, 2, s.Len(a))

	require.NoError(t, s.Delete(a, []byte("k")))
	require.NoError(t, s.Delete(a, []byte("missing")))
	_, ok, _ = s.Get(a, []byte("k"))
	assert.False(t, ok)

	require.NoError(t, s.Close())
	_, _, err = s.Get(a, []byte("k"))
	assert.ErrorIs(t, err, store.ErrClosed)
	assert.ErrorIs(t, s.Set(a, nil, nil), store.ErrClosed)
}

func TestRegistered(t *testing.T) {
	s, err := store.Get(store.MemoryType, nil)
	require.NoError(t, err)
	assert.IsType(t, &Store{}, s)
}
