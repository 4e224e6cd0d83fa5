package zerocost

import (
	"fifth/internal/config"
	"fifth/internal/ssa"
)

// inlineTiny inlines every non-recursive, single-block word with a
// cost at or below cfg.UnconditionalInlineThreshold (default 3) at
// every one of its call sites (spec.md §4.8 step 1 — unlike C5's
// single-caller inlining, this stage fires regardless of how many
// callers a word has, since the budget is small enough that the code
// growth is considered free).
func inlineTiny(p *ssa.Program, cfg config.PipelineConfig, stats *Stats) *ssa.Program {
	budget := cfg.UnconditionalInlineThreshold

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
			if len(sites) == 0 {
				continue
			}
			for _, site := range sites {
				inlineAt(site, fn)
			}
			p = removeFunction(p, fn.Name)
			stats.Inlined = append(stats.Inlined, fn.Name)
			changed = true
			break
		}
	}
	return p
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

func removeFunction(p *ssa.Program, name string) *ssa.Program {
	var kept []*ssa.Function
	for _, fn := range p.Functions {
		if fn.Name != name {
			kept = append(kept, fn)
		}
	}
	return &ssa.Program{Functions: kept}
}

// inlineAt splices callee's single block into site.block in place of
// the call instruction, mirroring internal/optimizer's inlineAt
// (spec.md §4.5/§4.8 share the same splice mechanics; this stage
// differs only in which call sites qualify).
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

	// Re-locate the call within site.block: earlier inlinings in this
	// same pass may have already spliced other calls into this block,
	// shifting indices.
	idx := -1
	for i, inst := range site.block.Instructions {
		if inst == site.call {
			idx = i
			break
		}
	}
	if idx == -1 {
		return
	}

	instrs := site.block.Instructions
	spliced := make([]ssa.Instruction, 0, len(instrs)-1+len(cloned))
	spliced = append(spliced, instrs[:idx]...)
	spliced = append(spliced, cloned...)
	spliced = append(spliced, instrs[idx+1:]...)
	site.block.Instructions = spliced

	subst := map[ssa.Register]ssa.Register{}
	for i, d := range site.call.Dests_ {
		subst[d] = retVals[i]
	}
	ssa.SubstituteInFunction(site.caller, subst)
}
