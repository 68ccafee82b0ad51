package csdl

import (
	"fmt"
	"sync"
)

// IndexCache holds the SchemaIndex of every namespace seen during one conversion run.
// Nested conversions of referenced documents share the cache of the run that started them.
type IndexCache struct {
	mu      sync.RWMutex
	indexes map[string]*SchemaIndex
	loading map[string]bool
}

// NewIndexCache creates an empty cache
func NewIndexCache() *IndexCache {
	return &IndexCache{
		indexes: make(map[string]*SchemaIndex),
		loading: make(map[string]bool),
	}
}

// Get returns the index cached for namespace
func (c *IndexCache) Get(namespace string) (*SchemaIndex, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	idx, ok := c.indexes[namespace]
	return idx, ok
}

// Set caches idx for namespace. An existing entry is kept so a namespace is never re-indexed.
func (c *IndexCache) Set(namespace string, idx *SchemaIndex) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.indexes[namespace]; !exists {
		c.indexes[namespace] = idx
	}
}

// Len returns the number of cached namespaces
func (c *IndexCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.indexes)
}

// beginLoad marks namespace as being fetched. It returns an error if it already is.
func (c *IndexCache) beginLoad(namespace string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loading[namespace] {
		return fmt.Errorf("%w: document for namespace '%s' is already being converted", ErrCyclicType, namespace)
	}
	c.loading[namespace] = true
	return nil
}

func (c *IndexCache) endLoad(namespace string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.loading, namespace)
}

// DocumentCache keeps raw metadata documents by location. Each location is loaded once,
// even when several conversions ask for it concurrently.
type DocumentCache struct {
	mu      sync.RWMutex
	entries map[string]*documentEntry
}

// documentEntry holds a document and its loader
type documentEntry struct {
	once sync.Once
	data []byte
	err  error
}

// NewDocumentCache creates a new document cache
func NewDocumentCache() *DocumentCache {
	return &DocumentCache{entries: make(map[string]*documentEntry)}
}

// Get returns the document at location, calling load the first time it is requested
func (dc *DocumentCache) Get(location string, load func() ([]byte, error)) ([]byte, error) {
	dc.mu.RLock()
	entry, exists := dc.entries[location]
	dc.mu.RUnlock()

	if !exists {
		dc.mu.Lock()
		entry, exists = dc.entries[location]
		if !exists {
			entry = &documentEntry{}
			dc.entries[location] = entry
		}
		dc.mu.Unlock()
	}

	entry.once.Do(func() {
		entry.data, entry.err = load()
	})
	return entry.data, entry.err
}

// Remove forgets a location so it is loaded again on next use
func (dc *DocumentCache) Remove(location string) {
	dc.mu.Lock()
	defer dc.mu.Unlock()
	delete(dc.entries, location)
}

// Clear removes all cached documents
func (dc *DocumentCache) Clear() {
	dc.mu.Lock()
	defer dc.mu.Unlock()
	dc.entries = make(map[string]*documentEntry)
}
