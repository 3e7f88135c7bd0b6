package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLRUGetMissInsertsNothing(t *testing.T) {
	c := NewLRU(4)
	_, ok := c.Get(1)
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
	assert.Equal(t, uint64(1), c.MissCount())
}

func TestLRUEmplaceAndGet(t *testing.T) {
	c := NewLRU(4)
	c.Emplace(1, "one")
	c.Emplace(2, "two")

	v, ok := c.Get(1)
	assert.True(t, ok)
	assert.Equal(t, "one", v)
	assert.Equal(t, uint64(1), c.HitCount())
	assert.Equal(t, 2, c.Len())
}

func TestLRUEvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRU(2)
	c.Emplace(1, "one")
	c.Emplace(2, "two")

	// Touch 1 so that 2 becomes the eviction victim.
	_, ok := c.Get(1)
	assert.True(t, ok)

	c.Emplace(3, "three")
	assert.Equal(t, 2, c.Len())

	_, ok = c.Get(2)
	assert.False(t, ok)
	_, ok = c.Get(1)
	assert.True(t, ok)
	_, ok = c.Get(3)
	assert.True(t, ok)
}

func TestLRUEmplaceReplaces(t *testing.T) {
	c := NewLRU(2)
	c.Emplace(1, "one")
	c.Emplace(1, "uno")
	assert.Equal(t, 1, c.Len())
	v, _ := c.Get(1)
	assert.Equal(t, "uno", v)
}

func TestLRURemove(t *testing.T) {
	c := NewLRU(2)
	c.Emplace(1, "one")
	assert.True(t, c.Remove(1))
	assert.False(t, c.Remove(1))
	assert.Equal(t, 0, c.Len())
}

func TestLRUHitRate(t *testing.T) {
	c := NewLRU(2)
	c.Emplace(1, "one")
	c.Get(1)
	c.Get(2)
	assert.InDelta(t, 0.5, c.HitRate(), 1e-9)
}
