package lease_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridbook/gridbook/lease"
)

func TestMemory(t *testing.T) {
	runManagerTests(t, func(t *testing.T) lease.Manager {
		return lease.NewMemory()
	})
}

func TestRedis(t *testing.T) {
	runManagerTests(t, func(t *testing.T) lease.Manager {
		mr := miniredis.RunT(t)
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { _ = client.Close() })
		m, err := lease.NewRedis(client, "")
		require.NoError(t, err)
		return m
	})
}

func runManagerTests(t *testing.T, open func(t *testing.T) lease.Manager) {
	ctx := context.Background()

	t.Run("AcquireConflictRelease", func(t *testing.T) {
		m := open(t)
		l, err := m.Acquire(ctx, "a.ipynb", time.Minute)
		require.NoError(t, err)
		require.NotEmpty(t, l.Token)

		_, err = m.Acquire(ctx, "a.ipynb", time.Minute)
		assert.ErrorIs(t, err, lease.ErrConflict)

		// a different path is independent
		_, err = m.Acquire(ctx, "b.ipynb", time.Minute)
		assert.NoError(t, err)

		require.NoError(t, m.Release(ctx, l))
		_, err = m.Acquire(ctx, "a.ipynb", time.Minute)
		assert.NoError(t, err)
	})

	t.Run("ReleaseIsIdempotent", func(t *testing.T) {
		m := open(t)
		l, err := m.Acquire(ctx, "c.ipynb", time.Minute)
		require.NoError(t, err)
		require.NoError(t, m.Release(ctx, l))
		require.NoError(t, m.Release(ctx, l))
		require.NoError(t, m.Release(ctx, nil))
	})

	t.Run("StaleTokenCannotRelease", func(t *testing.T) {
		m := open(t)
		l1, err := m.Acquire(ctx, "d.ipynb", time.Minute)
		require.NoError(t, err)
		require.NoError(t, m.Release(ctx, l1))

		l2, err := m.Acquire(ctx, "d.ipynb", time.Minute)
		require.NoError(t, err)

		// the old lease's release must not free the new holder's lock
		require.NoError(t, m.Release(ctx, l1))
		_, err = m.Acquire(ctx, "d.ipynb", time.Minute)
		assert.ErrorIs(t, err, lease.ErrConflict)

		require.NoError(t, m.Release(ctx, l2))
	})
}
