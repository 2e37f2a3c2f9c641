// Package cache holds recently fetched pages so serve-mode clients that
// extract first and download second only hit the origin once.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/super-dl/super-dl/models"
)

// entry holds a cached page with its creation timestamp.
type entry struct {
	page      *models.PageResult
	createdAt time.Time
}

// Cache is a simple in-memory page cache. It is safe for concurrent use.
type Cache struct {
	mu         sync.RWMutex
	store      map[string]*entry
	maxEntries int
	maxAge     time.Duration
}

// New creates a Cache. A background goroutine evicts entries older than
// maxAge every five minutes.
func New(maxEntries int, maxAge time.Duration) *Cache {
	c := &Cache{
		store:      make(map[string]*entry),
		maxEntries: maxEntries,
		maxAge:     maxAge,
	}
	go c.cleanupLoop()
	return c
}

// Key generates a cache key from the page URL and the extraction selector.
func Key(url, selector string) string {
	h := sha256.New()
	h.Write([]byte(url))
	h.Write([]byte("|"))
	h.Write([]byte(selector))
	return hex.EncodeToString(h.Sum(nil))
}

// Get retrieves a cached page if it exists and is younger than the cache's
// max age. Returns the page and whether it was a hit.
func (c *Cache) Get(key string) (*models.PageResult, bool) {
	c.mu.RLock()
	e, ok := c.store[key]
	c.mu.RUnlock()

	if !ok || time.Since(e.createdAt) > c.maxAge {
		return nil, false
	}
	return e.page, true
}

// Set stores a page. If the cache is at capacity, a random entry is
// evicted to make room (map iteration order is random in Go).
func (c *Cache) Set(key string, page *models.PageResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.store) >= c.maxEntries {
		for k := range c.store {
			delete(c.store, k)
			break
		}
	}
	c.store[key] = &entry{page: page, createdAt: time.Now()}
}

func (c *Cache) cleanupLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		cutoff := time.Now().Add(-c.maxAge)
		c.mu.Lock()
		for k, e := range c.store {
			if e.createdAt.Before(cutoff) {
				delete(c.store, k)
			}
		}
		c.mu.Unlock()
	}
}
