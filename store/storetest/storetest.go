// Package storetest provides a conformance suite for anything implementing
// the store.Store interface. Each backend's tests call Run against a fresh,
// empty store.
package storetest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridbook/gridbook/store"
)

// Run exercises the Store contract against s, which must start empty.
func Run(t *testing.T, s store.Store) {
	ctx := context.Background()

	t.Run("EmptyPathNeverExists", func(t *testing.T) {
		ok, err := s.Exists(ctx, "")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("MissingPath", func(t *testing.T) {
		ok, err := s.Exists(ctx, "never-saved.ipynb")
		require.NoError(t, err)
		assert.False(t, ok)

		_, err = s.Latest(ctx, "never-saved.ipynb")
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("PutReadRoundTrip", func(t *testing.T) {
		v, err := s.Put(ctx, "a.ipynb", []byte(`{"nbformat":4}`))
		require.NoError(t, err)
		assert.Equal(t, "a.ipynb", v.Path)
		assert.NotEmpty(t, v.ID)

		ok, err := s.Exists(ctx, "a.ipynb")
		require.NoError(t, err)
		assert.True(t, ok)

		data, err := s.Read(ctx, "a.ipynb", v.ID)
		require.NoError(t, err)
		assert.Equal(t, []byte(`{"nbformat":4}`), data)
	})

	t.Run("PutAppendsVersions", func(t *testing.T) {
		v1, err := s.Put(ctx, "b.ipynb", []byte("one"))
		require.NoError(t, err)
		v2, err := s.Put(ctx, "b.ipynb", []byte("two"))
		require.NoError(t, err)
		require.NotEqual(t, v1.ID, v2.ID)

		latest, err := s.Latest(ctx, "b.ipynb")
		require.NoError(t, err)
		assert.Equal(t, v2.ID, latest.ID)

		// the first version is still readable
		data, err := s.Read(ctx, "b.ipynb", v1.ID)
		require.NoError(t, err)
		assert.Equal(t, []byte("one"), data)
	})

	t.Run("ReadUnknownVersion", func(t *testing.T) {
		_, err := s.Put(ctx, "c.ipynb", []byte("x"))
		require.NoError(t, err)
		_, err = s.Read(ctx, "c.ipynb", "01BX5ZZKBKACTAV9WEVGEMMVRZ")
		assert.Error(t, err)
	})

	t.Run("VersionIsScopedToPath", func(t *testing.T) {
		v, err := s.Put(ctx, "mine.ipynb", []byte("secret"))
		require.NoError(t, err)
		_, err = s.Read(ctx, "other.ipynb", v.ID)
		assert.Error(t, err)
	})

	t.Run("ListKeys", func(t *testing.T) {
		keys, err := s.ListKeys(ctx)
		require.NoError(t, err)
		assert.Contains(t, keys, "a.ipynb")
		assert.Contains(t, keys, "b.ipynb")
		// multiple versions of b.ipynb collapse into one key
		assert.Equal(t, 1, count(keys, "b.ipynb"))
	})

	t.Run("DeleteAllErasesHistory", func(t *testing.T) {
		_, err := s.Put(ctx, "gone.ipynb", []byte("v1"))
		require.NoError(t, err)
		_, err = s.Put(ctx, "gone.ipynb", []byte("v2"))
		require.NoError(t, err)

		require.NoError(t, s.DeleteAll(ctx, "gone.ipynb"))

		ok, err := s.Exists(ctx, "gone.ipynb")
		require.NoError(t, err)
		assert.False(t, ok)
		_, err = s.Latest(ctx, "gone.ipynb")
		assert.ErrorIs(t, err, store.ErrNotFound)

		keys, err := s.ListKeys(ctx)
		require.NoError(t, err)
		assert.NotContains(t, keys, "gone.ipynb")
	})
}

func count(keys []string, want string) int {
	n := 0
	for _, k := range keys {
		if k == want {
			n++
		}
	}
	return n
}
