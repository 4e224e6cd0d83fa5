package memopt

import (
	"fmt"

	"fifth/internal/config"
	"fifth/internal/ssa"
)

// Stats reports what C9 did, for diagnostics and tests.
type Stats struct {
	LoadsReordered    int
	PrefetchHints     int
	CacheGroupsMarked int
}

// Run applies the C9 pipeline (spec.md §4.9) in order: load
// reordering within the configured sliding window, prefetch-hint
// insertion for load-dense loops, and cache-line grouping hints for
// hot-data words. Every stage preserves semantics, so the
// re-verification at the end is expected to always succeed; it is run
// anyway because this pass, like every other optimizer stage, promises
// callers a verified IR back (spec.md §2's re-verify contract applies
// uniformly across C5..C9).
func Run(p *ssa.Program, cfg config.PipelineConfig) (*ssa.Program, *Stats, error) {
	stats := &Stats{}
	window := cfg.MemoryWindow
	if cfg.Optimization == config.Aggressive {
		window = 32
	}

	for _, fn := range p.Functions {
		classes := classifyAddresses(fn)
		for _, b := range fn.Blocks {
			reordered, moved := reorderLoads(b.Instructions, classes, window)
			b.Instructions = reordered
			stats.LoadsReordered += moved
		}
		stats.PrefetchHints += insertPrefetchHints(fn, cfg.PrefetchDistance)
		if markCacheGroups(fn) {
			stats.CacheGroupsMarked++
		}
	}

	if err := ssa.Validate(p); err != nil {
		return nil, nil, fmt.Errorf("memopt: %w", err)
	}
	return p, stats, nil
}
