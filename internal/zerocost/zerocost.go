// Package zerocost implements C8, the zero-cost pass (spec.md §4.8): a
// peephole-style finisher run after the whole-program optimizer and
// PGO engine, composed of unconditional tiny-word inlining, algebraic
// simplification, abstract-depth annotation, constant-condition branch
// folding, bounded loop unrolling, and a final constant-folding sweep.
// Grounded on the teacher's internal/ir/optimizations.go pipeline
// shape (an ordered list of IR->IR stages, re-verified once at the
// end) already reused by internal/optimizer for C5.
package zerocost

import (
	"fmt"

	"fifth/internal/config"
	"fifth/internal/optimizer"
	"fifth/internal/ssa"
)

// Stats reports what each stage did, for diagnostics and tests.
type Stats struct {
	Inlined          []string
	Simplified       int
	BranchesFolded   int
	LoopsUnrolled    int
	ConstantsFolded  int
}

// Run applies the C8 pipeline in spec order and re-verifies before
// returning (spec.md §4.8 "Re-verifies the IR").
func Run(p *ssa.Program, cfg config.PipelineConfig) (*ssa.Program, *Stats, error) {
	stats := &Stats{}
	p = inlineTiny(p, cfg, stats)
	simplifyAlgebraic(p, stats)
	annotateAbstractDepth(p)
	foldConstantBranches(p, stats)
	unrollBoundedLoops(p, cfg, stats)
	for _, fn := range p.Functions {
		stats.ConstantsFolded += optimizer.FoldFunction(fn)
	}

	if err := ssa.Validate(p); err != nil {
		return nil, nil, fmt.Errorf("zerocost: %w", err)
	}
	return p, stats, nil
}

func cost(fn *ssa.Function) int {
	n := 0
	for _, b := range fn.Blocks {
		n += len(b.Instructions)
	}
	return n
}

func isSelfRecursive(fn *ssa.Function) bool {
	for _, b := range fn.Blocks {
		for _, inst := range b.Instructions {
			if call, ok := inst.(*ssa.Call); ok && call.Callee == fn.Name {
				return true
			}
		}
	}
	return false
}
