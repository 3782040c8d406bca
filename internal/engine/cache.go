package engine

import (
	"sync"
	"time"
)

// DefaultImageCacheTTL is how long a resolved image reference stays valid
const DefaultImageCacheTTL = 5 * time.Minute

type cacheEntry struct {
	value   string
	expires time.Time
}

// ImageCache memoizes image ID to reference lookups for one generation run
type ImageCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]cacheEntry
	now     func() time.Time
}

// NewImageCache creates a cache; a non-positive ttl uses DefaultImageCacheTTL
func NewImageCache(ttl time.Duration) *ImageCache {
	if ttl <= 0 {
		ttl = DefaultImageCacheTTL
	}
	return &ImageCache{
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
		now:     time.Now,
	}
}

// Get returns the cached reference for an image ID
func (c *ImageCache) Get(imageID string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[imageID]
	if !ok {
		return "", false
	}
	if c.now().After(entry.expires) {
		delete(c.entries, imageID)
		return "", false
	}
	return entry.value, true
}

// Set stores a reference for an image ID
func (c *ImageCache) Set(imageID, reference string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[imageID] = cacheEntry{value: reference, expires: c.now().Add(c.ttl)}
}

// Len returns the number of entries, including expired ones not yet evicted
func (c *ImageCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
