package cache

import (
	"encoding/hex"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/minio/highwayhash"
	"github.com/pkg/errors"

	"plotloader/app/fileloader"
	"plotloader/app/interfaces"
)

// DefaultMaxSize is the default cache size limit (100MB)
const DefaultMaxSize = 100 * 1024 * 1024

// hashKey keys the content hash. Cache keys never leave the process, so a
// fixed key is enough.
var hashKey = []byte("plotloader-table-cache-hash-key!")

// Cache keeps parsed tables keyed by file content, so reloading an unchanged
// file skips parsing. Tables are immutable once built, so entries are shared,
// not copied. It is safe for concurrent use.
type Cache struct {
	mutex       sync.Mutex
	entries     map[string]*entry
	lru         *lruList[string]
	maxSize     int64
	currentSize int64
	logger      log.Logger

	hits   int64
	misses int64
}

type entry struct {
	table   *interfaces.Table
	size    int64
	created time.Time
}

// Stats is a snapshot of cache usage.
type Stats struct {
	Entries      int
	Size         int64
	MaxSize      int64
	UsagePercent float64
	Hits         int64
	Misses       int64
	HitRate      float64
}

// New creates a cache bounded to maxSize bytes of estimated table size.
func New(maxSize int64, logger log.Logger) *Cache {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Cache{
		entries: make(map[string]*entry),
		lru:     newLRUList[string](),
		maxSize: maxSize,
		logger:  logger,
	}
}

// Key derives the cache key for loading data under name. Everything that
// changes the parse result is part of the key: the content, the extension
// (it selects the extractor and the delimiter) and the JSON array path.
func Key(name string, data []byte, arrayPath string) (string, error) {
	hash, err := highwayhash.New(hashKey)
	if err != nil {
		return "", errors.Wrap(err, "failed to create hash")
	}
	if _, err := hash.Write(data); err != nil {
		return "", err
	}
	return hex.EncodeToString(hash.Sum(nil)) + "|" + fileloader.Extension(name) + "|" + arrayPath, nil
}

// Get returns the table stored under key and marks it recently used.
func (c *Cache) Get(key string) (*interfaces.Table, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	e, ok := c.entries[key]
	if !ok {
		c.misses++
		level.Debug(c.logger).Log("msg", "cache miss", "key", key)
		return nil, false
	}
	c.hits++
	c.lru.touch(key)
	level.Debug(c.logger).Log("msg", "cache hit", "key", key, "source", e.table.Source, "rows", e.table.Len())
	return e.table, true
}

// Put stores table under key, evicting least recently used entries to make
// room. It returns false when the table alone is larger than the cache.
func (c *Cache) Put(key string, table *interfaces.Table) bool {
	size := EstimateTableSize(table)

	c.mutex.Lock()
	defer c.mutex.Unlock()

	if old, ok := c.entries[key]; ok {
		c.currentSize -= old.size
		delete(c.entries, key)
		c.lru.remove(key)
	}

	if size > c.maxSize {
		level.Debug(c.logger).Log("msg", "table too large to cache", "source", table.Source,
			"size", humanize.Bytes(uint64(size)), "limit", humanize.Bytes(uint64(c.maxSize)))
		return false
	}
	c.evictLocked(c.maxSize - size)

	c.entries[key] = &entry{table: table, size: size, created: time.Now()}
	c.currentSize += size
	c.lru.touch(key)
	return true
}

// evictLocked removes least recently used entries until at most target bytes are used.
func (c *Cache) evictLocked(target int64) int {
	evicted := 0
	for c.currentSize > target {
		oldest, ok := c.lru.popOldest()
		if !ok {
			break
		}
		if e, exists := c.entries[oldest]; exists {
			delete(c.entries, oldest)
			c.currentSize -= e.size
			evicted++
			level.Debug(c.logger).Log("msg", "cache evict", "source", e.table.Source,
				"size", humanize.Bytes(uint64(e.size)), "age", time.Since(e.created).Round(time.Millisecond))
		}
	}
	return evicted
}

// Remove drops the entry stored under key.
func (c *Cache) Remove(key string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if e, ok := c.entries[key]; ok {
		delete(c.entries, key)
		c.lru.remove(key)
		c.currentSize -= e.size
	}
}

// Clear empties the cache. Hit and miss counters are kept.
func (c *Cache) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.entries = make(map[string]*entry)
	c.lru = newLRUList[string]()
	c.currentSize = 0
}

// UpdateMaxSize changes the size limit, evicting entries if the cache is now over it.
func (c *Cache) UpdateMaxSize(maxSize int64) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	c.maxSize = maxSize
	if evicted := c.evictLocked(maxSize); evicted > 0 {
		level.Info(c.logger).Log("msg", "cache resized", "evicted", evicted,
			"size", humanize.Bytes(uint64(c.currentSize)), "limit", humanize.Bytes(uint64(maxSize)))
	}
}

// Len returns the number of cached tables.
func (c *Cache) Len() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.lru.len()
}

// Stats returns current usage and hit counters.
func (c *Cache) Stats() Stats {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	s := Stats{
		Entries:      len(c.entries),
		Size:         c.currentSize,
		MaxSize:      c.maxSize,
		UsagePercent: float64(c.currentSize) / float64(c.maxSize) * 100,
		Hits:         c.hits,
		Misses:       c.misses,
	}
	if total := s.Hits + s.Misses; total > 0 {
		s.HitRate = float64(s.Hits) / float64(total)
	}
	return s
}

// EstimateTableSize approximates the memory held by a table.
func EstimateTableSize(t *interfaces.Table) int64 {
	size := int64(len(t.Source)) + 200

	for _, seg := range t.ArrayPath {
		size += int64(len(seg))
	}
	for _, w := range t.Warnings {
		size += int64(len(w.Message)) + 16
	}

	for _, row := range t.Rows {
		size += 64 // Row struct, slice and map headers
		for _, k := range row.Keys() {
			v := row.Value(k)
			// Key is held by both the key slice and the map.
			size += int64(len(k)) + int64(len(v.Str)) + 48
		}
	}

	return size
}
