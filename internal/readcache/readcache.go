// Package readcache implements the generic read cache the reducers
// invalidate: keyed values with a stale bit, and the episode→series parent
// index used to translate episode events into series invalidations.
//
// A [models.Target] carries no payload; invalidating it only means "the
// next read of this resource must not use the stale value". Readers that
// see a miss or a stale entry re-fetch from the backend and call
// [Cache.Set] with the fresh value; this package never fetches on its own.
package readcache

import (
	"sync"

	"github.com/desertthunder/subwatch/internal/models"
)

type entry struct {
	value any
	stale bool
}

// Cache is a process-wide keyed store with explicit invalidation.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]*entry
	parents map[int64]int64 // episode id → parent series id
}

// New creates an empty Cache.
func New() *Cache {
	return &Cache{
		entries: make(map[string]*entry),
		parents: make(map[int64]int64),
	}
}

// Set stores a fresh value for the target and clears its stale bit.
func (c *Cache) Set(target models.Target, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[target.Key()] = &entry{value: value}
}

// Get returns the cached value for the target. ok is false when the entry
// is absent or has been invalidated, signalling the caller to re-fetch.
func (c *Cache) Get(target models.Target) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[target.Key()]
	if !ok || e.stale {
		return nil, false
	}
	return e.value, true
}

// Invalidate marks the target stale. Invalidating an id-less target also
// marks every id-scoped entry of the same kind, since a change to any
// member invalidates derived list views.
func (c *Cache) Invalidate(target models.Target) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[target.Key()]; ok {
		e.stale = true
	}
	if !target.HasID {
		prefix := string(target.Kind) + "/"
		for key, e := range c.entries {
			if len(key) > len(prefix) && key[:len(prefix)] == prefix {
				e.stale = true
			}
		}
	}
}

// SetEpisodeParent records the parent series id for an episode. Episodes
// are not independently cached, so episode events resolve through this
// index to a series invalidation.
func (c *Cache) SetEpisodeParent(episodeID, seriesID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.parents[episodeID] = seriesID
}

// EpisodeParent looks up the parent series id for an episode.
func (c *Cache) EpisodeParent(episodeID int64) (int64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	id, ok := c.parents[episodeID]
	return id, ok
}
