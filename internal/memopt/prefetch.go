package memopt

import (
	"fmt"

	"fifth/internal/ssa"
)

const loadRatioThreshold = 0.3

// insertPrefetchHints implements spec.md §4.9 "prefetch hints":
// detect loops via a backward branch (a terminator targeting a block
// whose id is not greater than the block containing the terminator —
// blocks are assigned in ascending program order by internal/ssa's
// converter, so this is exactly "backward branch target < current
// index"), classify the loop body by its load density, and when that
// density is at least loadRatioThreshold, annotate every Load within
// the body with a prefetch-distance hint.
func insertPrefetchHints(fn *ssa.Function, distance int) int {
	inserted := 0
	annotated := map[ssa.BlockID]bool{}
	for _, b := range fn.Blocks {
		if b.Terminator == nil {
			continue
		}
		for _, succ := range b.Terminator.Successors() {
			if succ > b.ID {
				continue
			}
			body := blocksInRange(fn, succ, b.ID)
			if !loadDense(body) {
				continue
			}
			for _, bb := range body {
				if annotated[bb.ID] {
					continue
				}
				annotated[bb.ID] = true
				bb.Instructions = annotateLoads(bb.Instructions, distance, &inserted)
			}
		}
	}
	return inserted
}

func blocksInRange(fn *ssa.Function, lo, hi ssa.BlockID) []*ssa.BasicBlock {
	var out []*ssa.BasicBlock
	for _, b := range fn.Blocks {
		if b.ID >= lo && b.ID <= hi {
			out = append(out, b)
		}
	}
	return out
}

func loadDense(blocks []*ssa.BasicBlock) bool {
	loads, total := 0, 0
	for _, b := range blocks {
		for _, inst := range b.Instructions {
			total++
			if _, ok := inst.(*ssa.Load); ok {
				loads++
			}
		}
	}
	if total == 0 {
		return false
	}
	return float64(loads)/float64(total) >= loadRatioThreshold
}

func annotateLoads(insts []ssa.Instruction, distance int, inserted *int) []ssa.Instruction {
	out := make([]ssa.Instruction, 0, len(insts)+len(insts)/2)
	for _, inst := range insts {
		if _, ok := inst.(*ssa.Load); ok {
			out = append(out, &ssa.Comment{Text: fmt.Sprintf("prefetch distance=%d", distance)})
			*inserted++
		}
		out = append(out, inst)
	}
	return out
}
