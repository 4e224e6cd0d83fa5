package pgo

import (
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"

	"fifth/internal/config"
	"fifth/internal/ssa"
)

// Run executes C6 end-to-end: collect the pattern database (optionally
// seeded by an external profile), select the hot, high-ROI patterns
// bounded by cfg.MaxPatterns, and rewrite the program in place
// (spec.md §4.6).
func Run(p *ssa.Program, profile Profile, cfg config.PipelineConfig) (*ssa.Program, *Stats, error) {
	db := Collect(p, profile)
	selected := Select(db, cfg.PGOThreshold, cfg.MaxPatterns)
	stats := Apply(p, selected)

	if err := ssa.Validate(p); err != nil {
		return nil, nil, fmt.Errorf("pgo: %w", err)
	}
	return p, stats, nil
}

// Cache memoizes a Database by a caller-chosen key (typically a hash
// of the program's IR plus the profile used to build it), so repeated
// compilations of unchanged code in one long-lived process do not
// recompute the pattern database. Lookups share one singleflight
// group so concurrent misses for the same key collapse into a single
// Collect call rather than racing (spec.md §5's read-mostly external
// cache requirement).
type Cache struct {
	group singleflight.Group
	mu    sync.RWMutex
	dbs   map[string]*Database
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{dbs: map[string]*Database{}}
}

// Get returns the cached database for key, building it with build if
// absent. Concurrent Get calls for the same key that miss together
// run build exactly once.
func (c *Cache) Get(key string, build func() *Database) *Database {
	c.mu.RLock()
	db, ok := c.dbs[key]
	c.mu.RUnlock()
	if ok {
		return db
	}

	v, _, _ := c.group.Do(key, func() (interface{}, error) {
		db := build()
		c.mu.Lock()
		c.dbs[key] = db
		c.mu.Unlock()
		return db, nil
	})
	return v.(*Database)
}
