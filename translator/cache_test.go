package translator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheRoundTrip(t *testing.T) {
	cache, err := NewCache(t.TempDir())
	require.NoError(t, err)

	key := CacheKey("Hello", "Hinglish", "m", "p")
	_, ok := cache.Get(key)
	assert.False(t, ok)

	require.NoError(t, cache.Set(key, "Namaste"))
	got, ok := cache.Get(key)
	assert.True(t, ok)
	assert.Equal(t, "Namaste", got)

	cache.DisableCache()
	_, ok = cache.Get(key)
	assert.False(t, ok)

	cache.EnableCache()
	_, ok = cache.Get(key)
	assert.True(t, ok)
}

func TestCacheKeyDistinguishesModel(t *testing.T) {
	assert.NotEqual(t, CacheKey("a", "x", "m1", "p"), CacheKey("a", "x", "m2", "p"))
	assert.NotEqual(t, CacheKey("a", "x", "m", "p1"), CacheKey("a", "x", "m", "p2"))
}

func TestNilCache(t *testing.T) {
	var cache *Cache
	_, ok := cache.Get("k")
	assert.False(t, ok)
	assert.NoError(t, cache.Set("k", "v"))
}
