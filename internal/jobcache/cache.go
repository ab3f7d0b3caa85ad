// Package jobcache implements the bounded client-side store of background
// job records fed by the push channel.
//
// Records are keyed by job id and merged in place: a record is created on
// first sighting and mutated by every later matching event, so one job id
// never produces duplicate entries. When the record count exceeds the
// capacity, the oldest records by insertion order are dropped. This is a
// best-effort memory bound, not a correctness guarantee: an evicted job
// that is still running simply disappears until its next event recreates it.
package jobcache

import (
	"sort"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/subwatch/internal/models"
)

// DefaultCapacity bounds the cache when no override is configured.
const DefaultCapacity = 100

// Cache is the bounded, keyed store of [models.JobRecord].
//
// All writes arrive from the listener goroutine; the mutex exists so UI
// goroutines can take consistent snapshots, not to coordinate writers.
type Cache struct {
	mu       sync.RWMutex
	capacity int
	records  map[int64]*models.JobRecord
	order    []int64 // insertion order, oldest first
	logger   *log.Logger
}

// New creates a Cache with the given capacity. Non-positive capacities fall
// back to [DefaultCapacity].
func New(capacity int, logger *log.Logger) *Cache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Cache{
		capacity: capacity,
		records:  make(map[int64]*models.JobRecord),
		logger:   logger,
	}
}

// ApplyInline merges fields carried inline by a push payload into the record
// for jobID, creating the record if absent. Callers use this only when the
// payload embedded a non-null progress value; bare-id payloads go through a
// re-fetch and [Cache.ApplyFetched] instead.
//
// It returns the merged record and whether this update moved the job into a
// terminal status (completed or failed) it was not in before.
func (c *Cache) ApplyInline(jobID int64, update models.JobUpdate) (models.JobRecord, bool) {
	return c.apply(jobID, update)
}

// ApplyFetched merges an authoritative re-fetched record into the cache.
// Fields absent from the response keep their prior values. A fetched
// snapshot can land after newer inline updates for the same job; the merge
// is last-write-wins per field and the brief stale overwrite is accepted.
func (c *Cache) ApplyFetched(jobID int64, update models.JobUpdate) (models.JobRecord, bool) {
	return c.apply(jobID, update)
}

func (c *Cache) apply(jobID int64, update models.JobUpdate) (models.JobRecord, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	rec, ok := c.records[jobID]
	if !ok {
		rec = &models.JobRecord{JobID: jobID, Status: models.StatusUnknown}
		c.records[jobID] = rec
		c.order = append(c.order, jobID)
	}

	prior := rec.Status
	update.Merge(rec)
	c.evict()

	transitioned := rec.Status.Terminal() && rec.Status != prior
	return *rec, transitioned
}

// Remove drops the record for jobID, if present. Used when the backend
// acknowledges a job deletion.
func (c *Cache) Remove(jobID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.records[jobID]; !ok {
		return
	}
	delete(c.records, jobID)
	for i, id := range c.order {
		if id == jobID {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

// evict drops the oldest-inserted records until the count is back at
// capacity. Caller holds the lock.
func (c *Cache) evict() {
	for len(c.records) > c.capacity {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.records, oldest)
		c.logger.Debug("evicted job record", "job_id", oldest)
	}
}

// Len returns the current record count.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.records)
}

// Get returns a copy of the record for jobID.
func (c *Cache) Get(jobID int64) (models.JobRecord, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	rec, ok := c.records[jobID]
	if !ok {
		return models.JobRecord{}, false
	}
	return *rec, true
}

// Snapshot returns copies of all current records grouped by status, each
// group sorted by last run time descending (latest first). Sorting is a
// read-time concern; mutation order within the cache is insertion order.
func (c *Cache) Snapshot() map[models.JobStatus][]models.JobRecord {
	c.mu.RLock()
	defer c.mu.RUnlock()

	groups := make(map[models.JobStatus][]models.JobRecord)
	for _, id := range c.order {
		rec := c.records[id]
		groups[rec.Status] = append(groups[rec.Status], *rec)
	}

	for status := range groups {
		group := groups[status]
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].LastRun.After(group[j].LastRun)
		})
	}

	return groups
}
