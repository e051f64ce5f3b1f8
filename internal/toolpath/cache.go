package toolpath

import (
	"path/filepath"
	"sync"

	"golang.org/x/sync/singleflight"
)

// ExtractFunc reads the toolpath of one source file.
type ExtractFunc func(path string) (Extraction, error)

// Cache memoizes extractions by source path. Concurrent requests for the same
// path run the extraction once and share its result; failed extractions are
// not stored, so a later request retries.
type Cache struct {
	extract ExtractFunc

	mu      sync.RWMutex
	entries map[string]Extraction
	group   singleflight.Group
}

// NewCache creates a cache around extract. A nil extract uses Extract.
func NewCache(extract ExtractFunc) *Cache {
	if extract == nil {
		extract = Extract
	}
	return &Cache{
		extract: extract,
		entries: make(map[string]Extraction),
	}
}

// Get returns the extraction for path, computing it at most once per key.
func (c *Cache) Get(path string) (Extraction, error) {
	key := filepath.Clean(path)

	c.mu.RLock()
	ext, ok := c.entries[key]
	c.mu.RUnlock()
	if ok {
		return ext, nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		c.mu.RLock()
		cached, ok := c.entries[key]
		c.mu.RUnlock()
		if ok {
			return cached, nil
		}

		ext, err := c.extract(key)
		if err != nil {
			return Extraction{}, err
		}

		c.mu.Lock()
		c.entries[key] = ext
		c.mu.Unlock()
		return ext, nil
	})
	if err != nil {
		return Extraction{}, err
	}
	return v.(Extraction), nil
}

// Len returns the number of cached extractions.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Forget drops the cached extraction for path, e.g. after the file changed.
func (c *Cache) Forget(path string) {
	c.mu.Lock()
	delete(c.entries, filepath.Clean(path))
	c.mu.Unlock()
}
