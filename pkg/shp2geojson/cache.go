package shp2geojson

import (
	"container/list"
	"fmt"
	"sync"
)

// SourceCache keeps fetched archives in memory with LRU eviction, so that
// several layers of one remote archive are downloaded once.
//
// Example:
//
//	cache := shp2geojson.NewSourceCache(512 << 20) // 512MB
//
//	data, err := cache.Get("s3://gis/taiwan.zip", func() ([]byte, error) {
//	    return fetcher.Fetch(ctx, "s3://gis/taiwan.zip")
//	})
type SourceCache struct {
	maxBytes  int64 // 0 or negative means unbounded
	usedBytes int64
	entries   map[string]*cacheEntry
	lru       *list.List // most recent at front
	hits      int
	misses    int
	mu        sync.Mutex
}

type cacheEntry struct {
	location string
	data     []byte
	element  *list.Element
}

// NewSourceCache creates a cache holding at most maxBytes of archive data.
// A non-positive limit means unbounded.
func NewSourceCache(maxBytes int64) *SourceCache {
	return &SourceCache{
		maxBytes: maxBytes,
		entries:  make(map[string]*cacheEntry),
		lru:      list.New(),
	}
}

// Get returns the cached bytes for location, calling loader on a miss.
//
// Concurrent misses for the same location may each call loader; the last
// result wins. Loader errors are not cached.
func (c *SourceCache) Get(location string, loader func() ([]byte, error)) ([]byte, error) {
	c.mu.Lock()
	if entry, ok := c.entries[location]; ok {
		c.lru.MoveToFront(entry.element)
		c.hits++
		c.mu.Unlock()
		return entry.data, nil
	}
	c.misses++
	c.mu.Unlock()

	data, err := loader()
	if err != nil {
		return nil, err
	}

	// Too large to cache; the caller still gets the data.
	_ = c.Add(location, data)
	return data, nil
}

// Add stores data under location, evicting least recently used entries to
// stay within the limit.
func (c *SourceCache) Add(location string, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	size := int64(len(data))
	if entry, ok := c.entries[location]; ok {
		c.usedBytes += size - int64(len(entry.data))
		entry.data = data
		c.lru.MoveToFront(entry.element)
		c.evict(entry)
		return nil
	}

	if c.maxBytes > 0 && size > c.maxBytes {
		return fmt.Errorf("%s too large for cache (%d bytes > %d bytes max)", location, size, c.maxBytes)
	}

	entry := &cacheEntry{location: location, data: data}
	entry.element = c.lru.PushFront(entry)
	c.entries[location] = entry
	c.usedBytes += size
	c.evict(entry)
	return nil
}

// evict drops entries from the back of the LRU list until the cache fits,
// never dropping keep. Must be called with c.mu held.
func (c *SourceCache) evict(keep *cacheEntry) {
	if c.maxBytes <= 0 {
		return
	}
	for c.usedBytes > c.maxBytes {
		elem := c.lru.Back()
		if elem == nil {
			return
		}
		entry := elem.Value.(*cacheEntry)
		if entry == keep {
			return
		}
		c.lru.Remove(elem)
		delete(c.entries, entry.location)
		c.usedBytes -= int64(len(entry.data))
	}
}

// Remove drops location from the cache.
func (c *SourceCache) Remove(location string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, ok := c.entries[location]; ok {
		c.lru.Remove(entry.element)
		delete(c.entries, location)
		c.usedBytes -= int64(len(entry.data))
	}
}

// Clear empties the cache and resets its counters.
func (c *SourceCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*cacheEntry)
	c.lru.Init()
	c.usedBytes = 0
	c.hits, c.misses = 0, 0
}

// Stats returns cache statistics.
func (c *SourceCache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	return CacheStats{
		Entries:   len(c.entries),
		UsedBytes: c.usedBytes,
		MaxBytes:  c.maxBytes,
		Hits:      c.hits,
		Misses:    c.misses,
	}
}

// CacheStats holds cache counters.
type CacheStats struct {
	Entries   int   // archives currently cached
	UsedBytes int64 // bytes held
	MaxBytes  int64 // limit, non-positive for unbounded
	Hits      int
	Misses    int
}

// HitRate returns the fraction of Get calls served from the cache.
func (s CacheStats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}
