package tool

import (
	"context"
	"testing"
	"time"

	"github.com/YmClash/vegapunk-sub006/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefinitionCacheStaleCatalogIsAMiss(t *testing.T) {
	cache := newDefinitionCache(10 * time.Millisecond)
	cache.Replace([]types.ToolDefinition{{Name: "echo"}})

	_, ok := cache.Get("echo")
	require.True(t, ok)

	time.Sleep(20 * time.Millisecond)

	_, ok = cache.Get("echo")
	assert.False(t, ok)

	_, stillFresh := cache.List()
	assert.False(t, stillFresh)
}

func TestDefinitionCacheStats(t *testing.T) {
	cache := newDefinitionCache(time.Minute)
	cache.Replace([]types.ToolDefinition{{Name: "echo"}})

	cache.Get("echo")
	cache.Get("echo")
	cache.Get("missing")

	hits, misses := cache.Stats()
	assert.Equal(t, int64(2), hits)
	assert.Equal(t, int64(1), misses)
}

func TestMemoryStoreEvictsOldestWhenFull(t *testing.T) {
	store := newMemoryStore(2)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, store.Set(ctx, "doc://old", "old", now.Add(-2*time.Minute), time.Hour))
	require.NoError(t, store.Set(ctx, "doc://mid", "mid", now.Add(-time.Minute), time.Hour))
	require.NoError(t, store.Set(ctx, "doc://new", "new", now, time.Hour))

	count, err := store.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	_, _, ok, err := store.Get(ctx, "doc://old")
	require.NoError(t, err)
	assert.False(t, ok, "oldest entry should have been evicted")

	content, _, ok, err := store.Get(ctx, "doc://new")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "new", content)
}

func TestMemoryStoreTTLExpiry(t *testing.T) {
	store := newMemoryStore(10)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "doc://short", "v", time.Now(), 5*time.Millisecond))

	_, _, ok, err := store.Get(ctx, "doc://short")
	require.NoError(t, err)
	require.True(t, ok)

	time.Sleep(10 * time.Millisecond)

	_, _, ok, err = store.Get(ctx, "doc://short")
	require.NoError(t, err)
	assert.False(t, ok)
}
