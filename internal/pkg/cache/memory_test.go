package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryClient_SetGetExpire(t *testing.T) {
	c := NewMemoryClient()
	now := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))
	v, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", v)

	now = now.Add(time.Minute)
	_, err = c.Get(ctx, "k")
	assert.Equal(t, ErrCacheMiss, err)
}

func TestMemoryClient_IncrAndDelete(t *testing.T) {
	c := NewMemoryClient()
	ctx := context.Background()

	_, err := c.GetInt(ctx, "cnt")
	assert.Equal(t, ErrCacheMiss, err)

	require.NoError(t, c.Set(ctx, "cnt", 1, time.Minute))
	n, err := c.Incr(ctx, "cnt")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	got, err := c.GetInt(ctx, "cnt")
	require.NoError(t, err)
	assert.Equal(t, 2, got)

	require.NoError(t, c.Delete(ctx, "cnt", "missing"))
	_, err = c.Get(ctx, "cnt")
	assert.Equal(t, ErrCacheMiss, err)
}
