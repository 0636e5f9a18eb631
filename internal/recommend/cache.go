package recommend

import (
	"container/list"
	"sync"

	"github.com/hyperjump/similar/internal/models"
)

type cacheKey struct {
	variant models.Variant
	item    int64
	k       int
}

// resultCache is an LRU of recommendation responses. A session owns one, so a
// session swap drops every cached entry along with the old session.
type resultCache struct {
	capacity int
	entries  map[cacheKey]*list.Element
	lru      *list.List
	// Get reorders the list, so reads take the write lock too.
	mu sync.Mutex
}

type cacheEntry struct {
	key   cacheKey
	value *Response
}

// newResultCache returns nil when capacity <= 0; a nil cache never hits.
func newResultCache(capacity int) *resultCache {
	if capacity <= 0 {
		return nil
	}
	return &resultCache{
		capacity: capacity,
		entries:  make(map[cacheKey]*list.Element),
		lru:      list.New(),
	}
}

func (c *resultCache) get(key cacheKey) (*Response, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[key]; ok {
		c.lru.MoveToFront(elem)
		return elem.Value.(*cacheEntry).value, true
	}
	return nil, false
}

// set stores value for key, evicting the least recently used entry past capacity.
func (c *resultCache) set(key cacheKey, value *Response) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[key]; ok {
		c.lru.MoveToFront(elem)
		elem.Value.(*cacheEntry).value = value
		return
	}

	elem := c.lru.PushFront(&cacheEntry{key: key, value: value})
	c.entries[key] = elem

	if c.lru.Len() > c.capacity {
		if oldest := c.lru.Back(); oldest != nil {
			c.lru.Remove(oldest)
			delete(c.entries, oldest.Value.(*cacheEntry).key)
		}
	}
}

func (c *resultCache) len() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}
