package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_ExpiryAndPrefixInvalidation(t *testing.T) {
	c := NewCache(time.Minute)
	defer c.Stop()

	c.SetWithTTL("session:a", "a", 10*time.Millisecond)
	c.Set("session:b", "b")
	c.Set("sessions:list", []string{"a", "b"})

	v, ok := c.Get("session:a")
	require.True(t, ok)
	assert.Equal(t, "a", v)

	time.Sleep(20 * time.Millisecond)
	_, ok = c.Get("session:a")
	assert.False(t, ok)

	c.Invalidate("session:")
	_, ok = c.Get("session:b")
	assert.False(t, ok)
	_, ok = c.Get("sessions:list")
	assert.True(t, ok)
}

func TestCacheWithFallback_LoaderErrorPassesThrough(t *testing.T) {
	c := NewCacheWithFallback(time.Minute)
	defer c.Stop()

	notFound := errors.New("session not found")
	loads := 0

	_, err := c.GetOrSet(context.Background(), "session:missing", func(ctx context.Context) (any, error) {
		loads++
		return nil, notFound
	}, time.Minute)
	assert.ErrorIs(t, err, notFound)

	// Errors are not cached, the loader runs again.
	_, err = c.GetOrSet(context.Background(), "session:missing", func(ctx context.Context) (any, error) {
		loads++
		return nil, notFound
	}, time.Minute)
	assert.ErrorIs(t, err, notFound)
	assert.Equal(t, 2, loads)
}

func TestCacheWithFallback_MissLoadsThenHits(t *testing.T) {
	c := NewCacheWithFallback(time.Minute)
	defer c.Stop()

	loads := 0
	load := func(ctx context.Context) (any, error) {
		loads++
		return "cached", nil
	}

	v, err := c.GetOrSet(context.Background(), "session:x", load, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "cached", v)

	v, err = c.GetOrSet(context.Background(), "session:x", load, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "cached", v)
	assert.Equal(t, 1, loads)
}
