// Package optimizer implements C5, the whole-program optimizer:
// call-graph-driven dead-code elimination, single-call inlining,
// interprocedural constant propagation, and call-site specialization
// (spec.md §4.5). Grounded on the teacher's internal/ir/optimizations.go
// pipeline shape — an ordered list of passes, each IR -> IR, re-verified
// at the end.
package optimizer

import (
	"fmt"

	"fifth/internal/callgraph"
	"fifth/internal/config"
	"fifth/internal/ssa"
)

// Stats reports what each pass did, for diagnostics and tests.
type Stats struct {
	Removed         []string
	Inlined         []string
	ConstantsFolded int
	Specialized     []string
}

// Run applies the C5 pipeline in spec order and re-verifies before
// returning (spec.md §4.5 "all transformations preserve the
// validator's invariants; the pass re-verifies before returning").
func Run(p *ssa.Program, cfg config.PipelineConfig) (*ssa.Program, *Stats, error) {
	stats := &Stats{}
	p = deadCodeEliminate(p, stats)
	p = inlineSingleCallers(p, cfg, stats)
	p = constantPropagate(p, stats)
	p = specializeCallSites(p, cfg, stats)

	if err := ssa.Validate(p); err != nil {
		return nil, nil, fmt.Errorf("optimizer: %w", err)
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

// deadCodeEliminate keeps only functions reachable from __main__
// (spec.md §4.5).
func deadCodeEliminate(p *ssa.Program, stats *Stats) *ssa.Program {
	g := callgraph.Build(p)
	reachable := g.ReachableFrom(ssa.MainFunctionName)

	var kept []*ssa.Function
	for _, fn := range p.Functions {
		if reachable[fn.Name] {
			kept = append(kept, fn)
		} else {
			stats.Removed = append(stats.Removed, fn.Name)
		}
	}
	return &ssa.Program{Functions: kept}
}

type callSite struct {
	caller *ssa.Function
	block  *ssa.BasicBlock
	idx    int
	call   *ssa.Call
}

func callSites(p *ssa.Program, calleeName string) []callSite {
	var out []callSite
	for _, fn := range p.Functions {
		for _, b := range fn.Blocks {
			for idx, inst := range b.Instructions {
				if call, ok := inst.(*ssa.Call); ok && call.Callee == calleeName {
					out = append(out, callSite{caller: fn, block: b, idx: idx, call: call})
				}
			}
		}
	}
	return out
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

func removeFunction(p *ssa.Program, name string) *ssa.Program {
	var kept []*ssa.Function
	for _, fn := range p.Functions {
		if fn.Name != name {
			kept = append(kept, fn)
		}
	}
	return &ssa.Program{Functions: kept}
}

// inlineSingleCallers splices a callee's body into its lone call site
// when its cost is within the level's budget (spec.md §4.5). Only
// single-block, non-recursive callees are spliced: the spec describes
// inlining as placing a callee's instructions directly into the
// caller's sequence, which only has an unambiguous meaning when the
// callee has no internal control flow of its own.
func inlineSingleCallers(p *ssa.Program, cfg config.PipelineConfig, stats *Stats) *ssa.Program {
	budget := cfg.Optimization.MaxInlineCost()

	changed := true
	for changed {
		changed = false
		for _, fn := range p.Functions {
			if fn.Name == ssa.MainFunctionName || len(fn.Blocks) != 1 || isSelfRecursive(fn) {
				continue
			}
			if cost(fn) > budget {
				continue
			}
			sites := callSites(p, fn.Name)
			if len(sites) != 1 {
				continue
			}
			inlineAt(sites[0], fn)
			p = removeFunction(p, fn.Name)
			stats.Inlined = append(stats.Inlined, fn.Name)
			changed = true
			break
		}
	}
	return p
}

func inlineAt(site callSite, callee *ssa.Function) {
	nextReg := ssa.MaxRegister(site.caller) + 1
	fresh := func() ssa.Register {
		r := nextReg
		nextReg++
		return r
	}

	lookup := map[ssa.Register]ssa.Register{}
	for i, p := range callee.Params {
		lookup[p] = site.call.Args[i]
	}

	body := callee.Blocks[0]
	cloned := make([]ssa.Instruction, len(body.Instructions))
	for i, inst := range body.Instructions {
		cloned[i] = ssa.CloneInstruction(inst, lookup, fresh)
	}

	ret := body.Terminator.(*ssa.Return)
	retVals := make([]ssa.Register, len(ret.Values))
	for i, v := range ret.Values {
		if nr, ok := lookup[v]; ok {
			retVals[i] = nr
		} else {
			retVals[i] = v
		}
	}

	instrs := site.block.Instructions
	spliced := make([]ssa.Instruction, 0, len(instrs)-1+len(cloned))
	spliced = append(spliced, instrs[:site.idx]...)
	spliced = append(spliced, cloned...)
	spliced = append(spliced, instrs[site.idx+1:]...)
	site.block.Instructions = spliced

	subst := map[ssa.Register]ssa.Register{}
	for i, d := range site.call.Dests_ {
		subst[d] = retVals[i]
	}
	ssa.SubstituteInFunction(site.caller, subst)
}
