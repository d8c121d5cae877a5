// Package cache holds the latest derived snapshot of every monitored cluster.
package cache

import (
	"maps"
	"sync"
	"time"

	"github.com/darshan-rambhia/pacemon/internal/cib"
)

// Cache is a thread-safe in-memory store for the latest poll results.
// Snapshots are never modified after they are built, so they are shared
// rather than copied.
type Cache struct {
	mu sync.RWMutex

	Clusters  map[string]*cib.Snapshot
	LastPoll  map[string]time.Time
	LastError map[string]string
}

// CacheSnapshot is a read-only copy of the cache state.
type CacheSnapshot struct {
	Clusters  map[string]*cib.Snapshot
	LastPoll  map[string]time.Time
	LastError map[string]string
}

// New returns an initialized Cache.
func New() *Cache {
	return &Cache{
		Clusters:  make(map[string]*cib.Snapshot),
		LastPoll:  make(map[string]time.Time),
		LastError: make(map[string]string),
	}
}

// Snapshot returns a copy of the cache maps.
func (c *Cache) Snapshot() CacheSnapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return CacheSnapshot{
		Clusters:  maps.Clone(c.Clusters),
		LastPoll:  maps.Clone(c.LastPoll),
		LastError: maps.Clone(c.LastError),
	}
}

// Cluster returns the latest snapshot of one cluster.
func (c *Cache) Cluster(name string) (*cib.Snapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.Clusters[name]
	return s, ok
}

// UpdateCluster replaces the snapshot of a cluster. fetchErr is the
// ingestion error that produced an offline snapshot, or nil.
func (c *Cache) UpdateCluster(name string, s *cib.Snapshot, fetchErr error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Clusters[name] = s
	if fetchErr != nil {
		c.LastError[name] = fetchErr.Error()
	} else {
		delete(c.LastError, name)
	}
}

// SetLastPoll records the last poll time for a collector.
func (c *Cache) SetLastPoll(collectorID string, t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.LastPoll[collectorID] = t
}
