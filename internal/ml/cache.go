package ml

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Cache is the process-wide store of trained artifacts, keyed by model
// identifier. Lookups of a missing key train through a singleflight group,
// so concurrent requests for the same key share one training run and await
// its result. Entries are never evicted automatically; staleness is
// resolved by Invalidate or process restart.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]*Artifact
	group   singleflight.Group
}

func NewCache() *Cache {
	return &Cache{entries: make(map[string]*Artifact)}
}

// Get returns the cached artifact for id, if any.
func (c *Cache) Get(id string) (*Artifact, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	a, ok := c.entries[id]
	return a, ok
}

// Put stores an artifact under id, replacing any prior entry.
func (c *Cache) Put(id string, a *Artifact) {
	c.mu.Lock()
	c.entries[id] = a
	c.mu.Unlock()
}

// GetOrTrain returns the cached artifact for id, or runs train to produce
// one. At most one train runs per key at a time; a failed run caches
// nothing, so the next call retries.
func (c *Cache) GetOrTrain(ctx context.Context, id string, train func(ctx context.Context) (*Artifact, error)) (*Artifact, error) {
	if a, ok := c.Get(id); ok {
		return a, nil
	}

	v, err, _ := c.group.Do(id, func() (any, error) {
		// A concurrent caller may have finished training while we
		// waited for the flight slot.
		if a, ok := c.Get(id); ok {
			return a, nil
		}
		a, err := train(ctx)
		if err != nil {
			return nil, err
		}
		c.Put(id, a)
		return a, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Artifact), nil
}

// Invalidate removes an entry, forcing the next GetOrTrain to retrain.
func (c *Cache) Invalidate(id string) {
	c.mu.Lock()
	delete(c.entries, id)
	c.mu.Unlock()
	c.group.Forget(id)
}

// Len reports the number of cached artifacts.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
