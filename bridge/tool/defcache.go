package tool

import (
	"sync"
	"time"

	"github.com/YmClash/vegapunk-sub006/types"
)

// definitionCache holds the TIP tool catalog with a fixed TTL. A stale entry
// is treated as absent, forcing a re-fetch from TIP.
type definitionCache struct {
	mu        sync.RWMutex
	ttl       time.Duration
	byName    map[string]types.ToolDefinition
	fetchedAt time.Time

	hits   int64
	misses int64
}

func newDefinitionCache(ttl time.Duration) *definitionCache {
	return &definitionCache{
		ttl:    ttl,
		byName: make(map[string]types.ToolDefinition),
	}
}

// Get returns the cached definition when the catalog is still fresh.
func (c *definitionCache) Get(name string) (types.ToolDefinition, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if time.Since(c.fetchedAt) > c.ttl {
		c.misses++
		return types.ToolDefinition{}, false
	}
	def, ok := c.byName[name]
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return def, ok
}

// Replace swaps in a freshly fetched catalog.
func (c *definitionCache) Replace(defs []types.ToolDefinition) {
	byName := make(map[string]types.ToolDefinition, len(defs))
	for _, def := range defs {
		byName[def.Name] = def
	}

	c.mu.Lock()
	c.byName = byName
	c.fetchedAt = time.Now()
	c.mu.Unlock()
}

// List returns the cached catalog and whether it is fresh and populated.
func (c *definitionCache) List() ([]types.ToolDefinition, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if len(c.byName) == 0 || time.Since(c.fetchedAt) > c.ttl {
		return nil, false
	}
	defs := make([]types.ToolDefinition, 0, len(c.byName))
	for _, def := range c.byName {
		defs = append(defs, def)
	}
	return defs, true
}

// Stats returns hit/miss counters.
func (c *definitionCache) Stats() (hits, misses int64) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hits, c.misses
}
