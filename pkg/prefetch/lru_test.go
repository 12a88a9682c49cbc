package prefetch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T, capacity int) *Cache[int64, string] {
	t.Helper()
	c, err := NewCache[int64, string](capacity)
	require.NoError(t, err)
	return c
}

func TestCacheRejectsNonPositiveCapacity(t *testing.T) {
	_, err := NewCache[int64, string](0)
	require.Error(t, err)
	assert.True(t, IsInvalidConfig(err))
}

func TestCacheEvictsLeastRecentlyUsed(t *testing.T) {
	c := newTestCache(t, 3)
	evicted := 0
	c.onEvict = func() { evicted++ }

	c.Add(1, "a")
	c.Add(2, "b")
	c.Add(3, "c")

	// touch 1 so 2 becomes the oldest
	_, ok := c.Get(1)
	require.True(t, ok)

	c.Add(4, "d")
	assert.Equal(t, []int64{3, 1, 4}, c.Keys())
	assert.False(t, c.Contains(2))
	assert.Equal(t, 1, evicted)
}

func TestCachePeekAndContainsDoNotTouch(t *testing.T) {
	c := newTestCache(t, 2)
	c.Add(1, "a")
	c.Add(2, "b")

	assert.True(t, c.Contains(1))
	v, ok := c.Peek(1)
	require.True(t, ok)
	assert.Equal(t, "a", v)

	c.Add(3, "c")
	assert.Equal(t, []int64{2, 3}, c.Keys())
}

func TestCacheAddRefreshesExistingKey(t *testing.T) {
	c := newTestCache(t, 2)
	c.Add(1, "a")
	c.Add(2, "b")
	c.Add(1, "a2")
	c.Add(3, "c")

	v, ok := c.Get(1)
	require.True(t, ok)
	assert.Equal(t, "a2", v)
	assert.False(t, c.Contains(2))
}

func TestCacheResize(t *testing.T) {
	c := newTestCache(t, 5)
	for i := int64(1); i <= 5; i++ {
		c.Add(i, "x")
	}

	assert.Equal(t, 3, c.Resize(2))
	assert.Equal(t, 2, c.Capacity())
	assert.Equal(t, []int64{4, 5}, c.Keys())

	assert.Equal(t, 0, c.Resize(10))
	assert.Equal(t, 10, c.Capacity())
}

func TestCacheGrowKeepsEverything(t *testing.T) {
	c := newTestCache(t, 3)
	c.Add(1, "a")
	c.Add(2, "b")
	c.Add(3, "c")

	c.Grow(2)
	assert.Equal(t, 5, c.Capacity())

	c.Add(4, "d")
	c.Add(5, "e")
	assert.Equal(t, 5, c.Len())
	assert.Equal(t, []int64{1, 2, 3, 4, 5}, c.Keys())

	// never shrinks
	c.Grow(0)
	assert.Equal(t, 5, c.Capacity())
}
