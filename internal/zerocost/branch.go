package zerocost

import "fifth/internal/ssa"

// foldConstantBranches implements spec.md §4.8 step 3
// (constant-condition elimination): when a block's Branch terminator
// conditions on a register known (within the same block, via a
// preceding LoadInt) to hold a literal value, the terminator collapses
// to an unconditional Jump to whichever target the literal selects —
// `1/0` truth per spec.md §4.10's IR-level convention. Folding a
// branch can strand an edge into a still-reachable merge block (an
// IF with no ELSE reduces to one predecessor instead of two), so
// reconcilePreds patches each affected block's Preds and collapses any
// phi left with a single incoming edge into a plain substitution.
func foldConstantBranches(p *ssa.Program, stats *Stats) {
	for _, fn := range p.Functions {
		changed := false
		for _, b := range fn.Blocks {
			branch, ok := b.Terminator.(*ssa.Branch)
			if !ok {
				continue
			}
			lit, ok := constantOf(b.Instructions, branch.Cond)
			if !ok {
				continue
			}
			target := branch.FalseBlock
			if lit != 0 {
				target = branch.TrueBlock
			}
			b.Terminator = &ssa.Jump{Target: target}
			stats.BranchesFolded++
			changed = true
		}
		if changed {
			reconcilePreds(fn)
		}
	}
}

// constantOf looks for a LoadInt defining reg within insts.
func constantOf(insts []ssa.Instruction, reg ssa.Register) (int64, bool) {
	for _, inst := range insts {
		if li, ok := inst.(*ssa.LoadInt); ok && li.Dest == reg {
			return li.Value, true
		}
	}
	return 0, false
}

// reconcilePreds recomputes each reachable block's actual predecessor
// set from the current terminators of the function's reachable blocks
// and, where it has shrunk, updates Preds and prunes any now-stale phi
// incoming edges. A phi left with exactly one incoming edge is trivial
// and is replaced by a direct substitution of its destination.
func reconcilePreds(fn *ssa.Function) {
	reachable := reachableBlocks(fn)
	actual := map[ssa.BlockID][]ssa.BlockID{}
	for _, b := range fn.Blocks {
		if b.Terminator == nil || !reachable[b.ID] {
			continue
		}
		for _, succ := range b.Terminator.Successors() {
			actual[succ] = append(actual[succ], b.ID)
		}
	}

	subst := map[ssa.Register]ssa.Register{}

	for _, b := range fn.Blocks {
		if !reachable[b.ID] {
			continue
		}
		newPreds := actual[b.ID]
		if samePredSet(b.Preds, newPreds) {
			continue
		}
		b.Preds = newPreds

		var kept []ssa.Instruction
		for _, inst := range b.Instructions {
			phi, ok := inst.(*ssa.Phi)
			if !ok {
				kept = append(kept, inst)
				continue
			}
			var incoming []ssa.PhiEdge
			for _, e := range phi.Incoming {
				if containsBlock(newPreds, e.Pred) {
					incoming = append(incoming, e)
				}
			}
			if len(incoming) == 1 {
				subst[phi.Dest] = incoming[0].Value
				continue
			}
			kept = append(kept, &ssa.Phi{Dest: phi.Dest, Incoming: incoming})
		}
		b.Instructions = kept
	}

	if len(subst) > 0 {
		ssa.SubstituteInFunction(fn, resolve(subst))
	}
}

func reachableBlocks(fn *ssa.Function) map[ssa.BlockID]bool {
	seen := map[ssa.BlockID]bool{fn.EntryBlock: true}
	queue := []ssa.BlockID{fn.EntryBlock}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		b := fn.BlockByID(id)
		if b == nil || b.Terminator == nil {
			continue
		}
		for _, succ := range b.Terminator.Successors() {
			if !seen[succ] {
				seen[succ] = true
				queue = append(queue, succ)
			}
		}
	}
	return seen
}

func samePredSet(a, b []ssa.BlockID) bool {
	if len(a) != len(b) {
		return false
	}
	for _, p := range a {
		if !containsBlock(b, p) {
			return false
		}
	}
	return true
}

func containsBlock(list []ssa.BlockID, id ssa.BlockID) bool {
	for _, b := range list {
		if b == id {
			return true
		}
	}
	return false
}
