package cas

import (
	"container/list"
	"sync"
	"sync/atomic"
)

// LRUCache is a CAS wrapper that keeps recently read images in memory and
// counts how many reads it could answer itself.
type LRUCache struct {
	underlying CAS

	mu        sync.Mutex
	cache     map[Hash]*list.Element
	evictList *list.List
	maxSize   int

	hits  atomic.Uint64
	tries atomic.Uint64
}

type cacheEntry struct {
	hash  Hash
	value []byte
}

// NewLRUCache creates a new LRU-cached CAS wrapper
// maxSize is the maximum number of entries to cache (0 or negative means the default)
func NewLRUCache(underlying CAS, maxSize int) *LRUCache {
	if maxSize <= 0 {
		maxSize = 64
	}
	return &LRUCache{
		underlying: underlying,
		cache:      make(map[Hash]*list.Element),
		evictList:  list.New(),
		maxSize:    maxSize,
	}
}

// Put stores an item in the underlying CAS
func (l *LRUCache) Put(item Hashable) (Hash, error) {
	return l.underlying.Put(item)
}

// Has checks if the hash exists in underlying CAS
func (l *LRUCache) Has(hash Hash) bool {
	return l.underlying.Has(hash)
}

func (l *LRUCache) getValue(h Hash) (bool, []byte, error) {
	l.tries.Add(1)
	l.mu.Lock()
	if elem, ok := l.cache[h]; ok {
		l.evictList.MoveToFront(elem)
		entry := elem.Value.(*cacheEntry)
		l.mu.Unlock()
		l.hits.Add(1)
		return true, entry.value, nil
	}
	l.mu.Unlock()

	has, data, err := l.underlying.getValue(h)
	if err != nil || !has {
		return false, nil, err
	}

	l.addToCache(h, data)
	return true, data, nil
}

// addToCache adds an entry to the cache and evicts oldest if necessary
func (l *LRUCache) addToCache(hash Hash, value []byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if elem, ok := l.cache[hash]; ok {
		l.evictList.MoveToFront(elem)
		elem.Value.(*cacheEntry).value = value
		return
	}

	entry := &cacheEntry{
		hash:  hash,
		value: value,
	}
	elem := l.evictList.PushFront(entry)
	l.cache[hash] = elem

	if l.evictList.Len() > l.maxSize {
		l.evictOldest()
	}
}

// evictOldest removes the least recently used entry from cache
func (l *LRUCache) evictOldest() {
	elem := l.evictList.Back()
	if elem != nil {
		l.evictList.Remove(elem)
		entry := elem.Value.(*cacheEntry)
		delete(l.cache, entry.hash)
	}
}

// CacheStats returns cache statistics for monitoring
type CacheStats struct {
	Size    int
	MaxSize int
	Hits    uint64
	Tries   uint64
}

// Stats returns current cache statistics
func (l *LRUCache) Stats() CacheStats {
	l.mu.Lock()
	size := len(l.cache)
	l.mu.Unlock()
	return CacheStats{
		Size:    size,
		MaxSize: l.maxSize,
		Hits:    l.hits.Load(),
		Tries:   l.tries.Load(),
	}
}
