package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTTLCacheSetGet(t *testing.T) {
	c := NewTTL[string](context.Background(), time.Minute, time.Minute)
	defer c.Close()

	created := c.Set("k", "v")
	assert.True(t, created)

	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "v", got)

	created = c.Set("k", "v2")
	assert.False(t, created, "second set updates, not creates")

	got, _ = c.Get("k")
	assert.Equal(t, "v2", got)
	assert.Equal(t, 1, c.Size())
}

func TestTTLCacheMiss(t *testing.T) {
	c := NewTTL[int](context.Background(), time.Minute, time.Minute)
	defer c.Close()

	got, ok := c.Get("missing")
	assert.False(t, ok)
	assert.Zero(t, got)
}

func TestTTLCacheExpiry(t *testing.T) {
	c := NewTTL[string](context.Background(), 10*time.Millisecond, time.Hour)
	defer c.Close()

	c.Set("k", "v")
	time.Sleep(20 * time.Millisecond)

	// Sweep has not run (long interval) but Get must not return a stale value
	_, ok := c.Get("k")
	assert.False(t, ok)
}

func TestTTLCacheDeleteClear(t *testing.T) {
	c := NewTTL[string](context.Background(), time.Minute, time.Minute)
	defer c.Close()

	c.Set("a", "1")
	c.Set("b", "2")

	assert.True(t, c.Delete("a"))
	assert.False(t, c.Delete("a"))
	assert.Equal(t, 1, c.Size())

	c.Clear()
	assert.Equal(t, 0, c.Size())
}

func TestTTLCacheSweepRemovesExpired(t *testing.T) {
	c := NewTTL[string](context.Background(), 5*time.Millisecond, 10*time.Millisecond)
	defer c.Close()

	c.Set("k", "v")
	assert.Eventually(t, func() bool { return c.Size() == 0 }, time.Second, 5*time.Millisecond)
}

func TestTTLCacheCloseStopsSweep(t *testing.T) {
	c := NewTTL[string](context.Background(), time.Minute, time.Millisecond)
	require.NoError(t, c.Close())
	// Close blocks until the sweep goroutine exits; calling again must not hang
	c.Set("k", "v")
	_, ok := c.Get("k")
	assert.True(t, ok)
}

func TestNoopCache(t *testing.T) {
	c := Noop[string]()
	assert.False(t, c.Set("k", "v"))
	_, ok := c.Get("k")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Size())
	assert.NoError(t, c.Close())
}
