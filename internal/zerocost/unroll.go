package zerocost

import (
	"fifth/internal/config"
	"fifth/internal/ssa"
)

// unrollBoundedLoops implements spec.md §4.8 step 4: when a loop's
// start and end are both literal constants and their difference is
// within cfg.MaxLoopUnroll (default 20), the body is replicated that
// many times with the loop-index literal materialized before each
// copy, and the loop's header/back-edge collapse to a straight-line
// jump chain.
//
// Recognized shape: a header block whose only phi is the loop index,
// fed a LoadInt on the preheader edge and an updated value on the
// back-edge, and whose Branch condition compares that phi against a
// LoadInt limit. This is the classic counted-loop SSA shape a
// loop-aware frontend would emit. This compiler's own C3 converter
// does not yet emit it — BEGIN/UNTIL and DO/LOOP bodies convert
// without a header phi at all (see DESIGN.md's open-question entry on
// the DO/LOOP counter) — so this stage is dormant on code produced by
// internal/ssa today; it is implemented against spec.md's literal rule
// and exercised directly by constructing the shape by hand in tests,
// ready for when loop-header phis land or an external IR producer
// supplies them.
func unrollBoundedLoops(p *ssa.Program, cfg config.PipelineConfig, stats *Stats) {
	for _, fn := range p.Functions {
		for _, header := range fn.Blocks {
			loop, ok := matchCountedLoop(fn, header)
			if !ok {
				continue
			}
			diff := loop.limit - loop.start
			if diff < 0 {
				diff = -diff
			}
			if diff > int64(cfg.MaxLoopUnroll) {
				continue
			}
			unrollLoop(fn, loop)
			stats.LoopsUnrolled++
		}
	}
}

type countedLoop struct {
	header     *ssa.BasicBlock
	body       *ssa.BasicBlock
	exit       ssa.BlockID
	indexPhi   *ssa.Phi
	preheader  ssa.BlockID
	start      int64
	limit      int64
	limitReg   ssa.Register
	indexNext  ssa.Register // the back-edge incoming value (index + step)
}

// matchCountedLoop recognizes the shape described in
// unrollBoundedLoops's doc comment. Returns ok=false for anything that
// does not match exactly; this pass never guesses.
func matchCountedLoop(fn *ssa.Function, header *ssa.BasicBlock) (countedLoop, bool) {
	branch, ok := header.Terminator.(*ssa.Branch)
	if !ok || len(header.Preds) != 2 {
		return countedLoop{}, false
	}

	var phi *ssa.Phi
	for _, inst := range header.Instructions {
		if p, ok := inst.(*ssa.Phi); ok {
			if phi != nil {
				return countedLoop{}, false // more than one phi: not this simple shape
			}
			phi = p
		}
	}
	if phi == nil || len(phi.Incoming) != 2 {
		return countedLoop{}, false
	}

	cond, ok := findBinary(header.Instructions, branch.Cond)
	if !ok || cond.Left != phi.Dest {
		return countedLoop{}, false
	}
	limit, ok := constantOf(header.Instructions, cond.Right)
	if !ok {
		return countedLoop{}, false
	}

	var start int64
	var preheader ssa.BlockID
	var indexNext ssa.Register
	var body ssa.BlockID
	foundStart := false
	for _, e := range phi.Incoming {
		pred := fn.BlockByID(e.Pred)
		if pred == nil {
			return countedLoop{}, false
		}
		if v, ok := constantOfAnywhere(fn, e.Pred, e.Value); ok {
			start = v
			preheader = e.Pred
			foundStart = true
		} else {
			indexNext = e.Value
			body = e.Pred
		}
	}
	if !foundStart || body == 0 && preheader == 0 {
		return countedLoop{}, false
	}

	bodyBlock := fn.BlockByID(body)
	if bodyBlock == nil {
		return countedLoop{}, false
	}

	exit := branch.FalseBlock
	if branch.TrueBlock != header.ID && branch.TrueBlock != body {
		exit = branch.TrueBlock
	}

	return countedLoop{
		header: header, body: bodyBlock, exit: exit, indexPhi: phi,
		preheader: preheader, start: start, limit: limit, limitReg: cond.Right, indexNext: indexNext,
	}, true
}

func findBinary(insts []ssa.Instruction, dest ssa.Register) (*ssa.BinaryOp, bool) {
	for _, inst := range insts {
		if b, ok := inst.(*ssa.BinaryOp); ok && b.Dest == dest {
			return b, true
		}
	}
	return nil, false
}

func constantOfAnywhere(fn *ssa.Function, blockID ssa.BlockID, reg ssa.Register) (int64, bool) {
	b := fn.BlockByID(blockID)
	if b == nil {
		return 0, false
	}
	return constantOf(b.Instructions, reg)
}

// unrollLoop replicates loop.body diff times, substituting a fresh
// LoadInt for the index in each copy, then chains the copies in a
// straight line into loop.exit, replacing the header/back-edge
// entirely. Left conservative: only fires via matchCountedLoop's exact
// shape, so there is no nested control flow inside the body to
// preserve.
func unrollLoop(fn *ssa.Function, loop countedLoop) {
	nextReg := ssa.MaxRegister(fn) + 1
	fresh := func() ssa.Register {
		r := nextReg
		nextReg++
		return r
	}

	var unrolled []ssa.Instruction
	i := loop.start
	step := int64(1)
	if loop.limit < loop.start {
		step = -1
	}
	for i != loop.limit {
		idxReg := fresh()
		unrolled = append(unrolled, &ssa.LoadInt{Dest: idxReg, Value: i})

		lookup := map[ssa.Register]ssa.Register{loop.indexPhi.Dest: idxReg}
		for _, inst := range loop.body.Instructions {
			unrolled = append(unrolled, ssa.CloneInstruction(inst, lookup, fresh))
		}
		i += step
	}

	loop.header.Instructions = unrolled
	loop.header.Terminator = &ssa.Jump{Target: loop.exit}
	loop.header.Preds = []ssa.BlockID{}
}
