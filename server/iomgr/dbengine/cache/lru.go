// Package cache provides the bounded LRU object caches that sit between the
// database registries and materialized catalog objects (tables, constraint
// definitions, databases).
package cache

import (
	"container/list"
	"sync/atomic"

	"github.com/juju/errors"
)

// ErrKeyNotFound is returned by operations that require a present key.
var ErrKeyNotFound = errors.New("key not found")

type lruItem struct {
	key   uint64
	value interface{}
}

// Stats counts cache hits and misses.
type Stats struct {
	hitCount  uint64
	missCount uint64
}

// IncrHitCount increments the hit counter.
func (st *Stats) IncrHitCount() uint64 {
	return atomic.AddUint64(&st.hitCount, 1)
}

// IncrMissCount increments the miss counter.
func (st *Stats) IncrMissCount() uint64 {
	return atomic.AddUint64(&st.missCount, 1)
}

// HitCount returns the hit count.
func (st *Stats) HitCount() uint64 {
	return atomic.LoadUint64(&st.hitCount)
}

// MissCount returns the miss count.
func (st *Stats) MissCount() uint64 {
	return atomic.LoadUint64(&st.missCount)
}

// HitRate returns the fraction of lookups that hit.
func (st *Stats) HitRate() float64 {
	hc, mc := st.HitCount(), st.MissCount()
	total := hc + mc
	if total == 0 {
		return 0.0
	}
	return float64(hc) / float64(total)
}

// LRU is a capacity-bounded id-to-object map evicting the least recently
// used entry on overflow. It is not internally synchronized: every cache
// instance is owned by a Database and accessed under the database mutex.
type LRU struct {
	capacity  int
	items     map[uint64]*list.Element
	evictList *list.List

	*Stats
}

// NewLRU creates a cache bounded to capacity entries.
func NewLRU(capacity int) *LRU {
	return &LRU{
		capacity:  capacity,
		items:     make(map[uint64]*list.Element),
		evictList: list.New(),
		Stats:     &Stats{},
	}
}

// Get returns the cached value and promotes it. A miss inserts nothing.
func (c *LRU) Get(key uint64) (interface{}, bool) {
	if ent, ok := c.items[key]; ok {
		c.evictList.MoveToFront(ent)
		c.IncrHitCount()
		return ent.Value.(*lruItem).value, true
	}
	c.IncrMissCount()
	return nil, false
}

// Emplace inserts or replaces the value for key, evicting the least
// recently used entry when the cache is over capacity.
func (c *LRU) Emplace(key uint64, value interface{}) {
	if ent, ok := c.items[key]; ok {
		c.evictList.MoveToFront(ent)
		ent.Value.(*lruItem).value = value
		return
	}
	if c.evictList.Len() >= c.capacity {
		c.evict(1)
	}
	item := &lruItem{key: key, value: value}
	c.items[key] = c.evictList.PushFront(item)
}

// Remove drops the entry for key, reporting whether it was present.
func (c *LRU) Remove(key uint64) bool {
	if ent, ok := c.items[key]; ok {
		c.removeElement(ent)
		return true
	}
	return false
}

// Len returns the current number of cached entries.
func (c *LRU) Len() int {
	return c.evictList.Len()
}

func (c *LRU) evict(count int) {
	for i := 0; i < count; i++ {
		ent := c.evictList.Back()
		if ent == nil {
			return
		}
		c.removeElement(ent)
	}
}

func (c *LRU) removeElement(e *list.Element) {
	c.evictList.Remove(e)
	entry := e.Value.(*lruItem)
	delete(c.items, entry.key)
}
