package memopt

import "fifth/internal/ssa"

// reorderLoads advances each Load as early as the dependency graph
// allows within the given window (spec.md §4.9 "reordering"), to hide
// memory latency. True (RAW) dependencies always block a move; this
// pass does not attempt the anti/output-dependency renaming spec.md
// explicitly calls out as unattempted, so any Store a load may alias
// with also blocks the move in either direction.
func reorderLoads(insts []ssa.Instruction, classes map[ssa.Register]Class, window int) ([]ssa.Instruction, int) {
	out := append([]ssa.Instruction(nil), insts...)
	moved := 0

	for i := 0; i < len(out); i++ {
		load, ok := out[i].(*ssa.Load)
		if !ok {
			continue
		}
		pos := i
		limit := i - window
		if limit < 0 {
			limit = 0
		}
		for pos > limit && canSwapEarlier(out[pos-1], load, classes) {
			out[pos-1], out[pos] = out[pos], out[pos-1]
			pos--
		}
		if pos != i {
			moved++
		}
	}
	return out, moved
}

// canSwapEarlier reports whether load may be moved to just before
// prev without changing program behavior: prev must not be a Phi (a
// load never moves into a block's leading phi group), prev must not
// define a register load reads, and if prev is a Store it must be
// provably disjoint from load's address.
func canSwapEarlier(prev ssa.Instruction, load *ssa.Load, classes map[ssa.Register]Class) bool {
	if _, ok := prev.(*ssa.Phi); ok {
		return false
	}
	for _, d := range prev.Dests() {
		if d == load.Addr {
			return false
		}
	}
	if addr, _, isStore := memOp(prev); isStore {
		if mayAlias(classes, addr, load.Addr) {
			return false
		}
	}
	return true
}
