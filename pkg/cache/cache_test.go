package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestCache(t *testing.T, ttl time.Duration) (*Cache[string, int], *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	// zero TTL keeps the janitor off; the default is set afterwards
	c := New[string, int](0)
	c.defaultTTL = ttl
	c.now = clock.Now
	t.Cleanup(c.Stop)
	return c, clock
}

func TestCache_GetSetExpiry(t *testing.T) {
	c, clock := newTestCache(t, time.Minute)

	c.Set("a", 1)
	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	clock.Advance(61 * time.Second)
	_, ok = c.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 1, c.Len(), "expired items linger until invalidated")

	assert.Equal(t, 1, c.Invalidate())
	assert.Zero(t, c.Len())
}

func TestCache_SetWithTTLAndDelete(t *testing.T) {
	c, clock := newTestCache(t, time.Minute)

	c.SetWithTTL("long", 2, time.Hour)
	c.Set("short", 3)
	clock.Advance(2 * time.Minute)

	_, ok := c.Get("short")
	assert.False(t, ok)
	v, ok := c.Get("long")
	require.True(t, ok)
	assert.Equal(t, 2, v)

	c.Delete("long")
	_, ok = c.Get("long")
	assert.False(t, ok)
}

func TestCache_GetOrLoad(t *testing.T) {
	c, _ := newTestCache(t, time.Minute)
	ctx := context.Background()

	calls := 0
	load := func(context.Context) (int, error) {
		calls++
		return 42, nil
	}

	v, err := c.GetOrLoad(ctx, "k", load)
	require.NoError(t, err)
	assert.Equal(t, 42, v)
	v, err = c.GetOrLoad(ctx, "k", load)
	require.NoError(t, err)
	assert.Equal(t, 42, v)
	assert.Equal(t, 1, calls)
}

func TestCache_GetOrLoadDoesNotCacheErrors(t *testing.T) {
	c, _ := newTestCache(t, time.Minute)
	boom := errors.New("boom")

	_, err := c.GetOrLoad(context.Background(), "k", func(context.Context) (int, error) {
		return 0, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, c.Len())
}

func TestCache_StopIsIdempotent(t *testing.T) {
	c := New[string, int](time.Minute)
	c.Stop()
	c.Stop()
}
