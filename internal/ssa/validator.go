package ssa

import "fifth/internal/errors"

// Validate runs C4 over every function in p: single-assignment,
// dominance-of-use, and phi well-formedness (spec.md §3.4, §4.4).
// Reachability from the entry block is computed and only reachable
// blocks are checked; a block unreachable from the entry is not
// reported as a violation. It returns the first violation found; callers that want
// every violation at once should call ValidateFunction per function
// and collect results themselves.
func Validate(p *Program) error {
	for _, fn := range p.Functions {
		if err := ValidateFunction(fn); err != nil {
			return err
		}
	}
	return nil
}

// ValidateFunction checks one function in isolation.
func ValidateFunction(fn *Function) error {
	defBlock, defInst, err := checkSingleAssignment(fn)
	if err != nil {
		return err
	}

	reachable := reachableBlocks(fn)
	for _, b := range fn.Blocks {
		if !reachable[b.ID] {
			continue // unreachable blocks carry no soundness obligation
		}
		if b.Terminator == nil {
			return &errors.ValidationError{Message: "block has no terminator", Block: int(b.ID), HasBlock: true}
		}
	}

	dom := computeDominance(fn, reachable)

	if err := checkPhis(fn, reachable); err != nil {
		return err
	}

	return checkDominanceOfUses(fn, reachable, dom, defBlock, defInst)
}

// checkSingleAssignment verifies every register is defined at most
// once across the function and records where each is defined.
func checkSingleAssignment(fn *Function) (defBlock map[Register]BlockID, defInst map[Register]int, err error) {
	defBlock = map[Register]BlockID{}
	defInst = map[Register]int{}

	record := func(r Register, b BlockID, idx int) error {
		if _, seen := defBlock[r]; seen {
			return &errors.ValidationError{Message: "register assigned multiple times", Register: int(r), HasReg: true}
		}
		defBlock[r] = b
		defInst[r] = idx
		return nil
	}

	for _, p := range fn.Params {
		if err := record(p, fn.EntryBlock, -1); err != nil {
			return nil, nil, err
		}
	}
	for _, b := range fn.Blocks {
		for idx, inst := range b.Instructions {
			for _, d := range inst.Dests() {
				if err := record(d, b.ID, idx); err != nil {
					return nil, nil, err
				}
			}
		}
	}
	return defBlock, defInst, nil
}

// reachableBlocks runs a BFS from the entry block over terminator
// successors.
func reachableBlocks(fn *Function) map[BlockID]bool {
	seen := map[BlockID]bool{fn.EntryBlock: true}
	queue := []BlockID{fn.EntryBlock}
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

// computeDominance computes Dom(n) for every reachable block via the
// standard iterative dataflow fixed point: Dom(entry) = {entry},
// Dom(n) = {n} ∪ ⋂ Dom(p) for p in preds(n), converging monotonically
// for any reducible or irreducible CFG (spec.md §4.4).
func computeDominance(fn *Function, reachable map[BlockID]bool) map[BlockID]map[BlockID]bool {
	all := map[BlockID]bool{}
	for id := range reachable {
		all[id] = true
	}

	dom := map[BlockID]map[BlockID]bool{}
	for id := range reachable {
		if id == fn.EntryBlock {
			dom[id] = map[BlockID]bool{id: true}
			continue
		}
		dom[id] = map[BlockID]bool{}
		for other := range all {
			dom[id][other] = true
		}
	}

	changed := true
	for changed {
		changed = false
		for _, b := range fn.Blocks {
			if b.ID == fn.EntryBlock || !reachable[b.ID] {
				continue
			}
			var preds []BlockID
			for _, p := range b.Preds {
				if reachable[p] {
					preds = append(preds, p)
				}
			}
			if len(preds) == 0 {
				continue
			}
			newSet := map[BlockID]bool{}
			for k := range dom[preds[0]] {
				newSet[k] = true
			}
			for _, p := range preds[1:] {
				for k := range newSet {
					if !dom[p][k] {
						delete(newSet, k)
					}
				}
			}
			newSet[b.ID] = true
			if !setsEqual(newSet, dom[b.ID]) {
				dom[b.ID] = newSet
				changed = true
			}
		}
	}
	return dom
}

func setsEqual(a, b map[BlockID]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if !b[k] {
			return false
		}
	}
	return true
}

func dominates(dom map[BlockID]map[BlockID]bool, a, b BlockID) bool {
	set := dom[b]
	return set != nil && set[a]
}

// checkPhis verifies phi placement (spec.md §3.2 invariant 4, §4.4
// point 6: no non-phi instruction may precede a phi within a block)
// and that every Phi names exactly the block's actual predecessor set,
// once each (spec.md §4.4 point 7, "phi-edge exactness").
func checkPhis(fn *Function, reachable map[BlockID]bool) error {
	for _, b := range fn.Blocks {
		if !reachable[b.ID] {
			continue
		}
		seenNonPhi := false
		for instIdx, inst := range b.Instructions {
			phi, ok := inst.(*Phi)
			if !ok {
				seenNonPhi = true
				continue
			}
			if seenNonPhi {
				return &errors.ValidationError{Message: "phi follows a non-phi instruction in the same block", Block: int(b.ID), InstIdx: instIdx, HasInst: true, HasBlock: true}
			}
			seen := map[BlockID]bool{}
			for _, e := range phi.Incoming {
				if seen[e.Pred] {
					return &errors.ValidationError{Message: "phi has duplicate incoming edge for predecessor", Block: int(b.ID), InstIdx: instIdx, HasInst: true, HasBlock: true}
				}
				seen[e.Pred] = true
			}
			if len(seen) != len(b.Preds) {
				return &errors.ValidationError{Message: "phi incoming edges do not match block predecessors", Block: int(b.ID), InstIdx: instIdx, HasInst: true, HasBlock: true}
			}
			for _, p := range b.Preds {
				if !seen[p] {
					return &errors.ValidationError{Message: "phi missing edge for a predecessor", Block: int(b.ID), InstIdx: instIdx, HasInst: true, HasBlock: true}
				}
			}
		}
	}
	return nil
}

// checkDominanceOfUses verifies every non-phi use is dominated by its
// definition, and the definition of every phi incoming value dominates
// the named predecessor block (spec.md §4.4). A use of a register with no
// recorded definition (e.g. a block parameter from a block this
// function never reaches) is itself the "used but not defined"
// violation.
func checkDominanceOfUses(fn *Function, reachable map[BlockID]bool, dom map[BlockID]map[BlockID]bool, defBlock map[Register]BlockID, defInst map[Register]int) error {
	for _, b := range fn.Blocks {
		if !reachable[b.ID] {
			continue
		}
		for instIdx, inst := range b.Instructions {
			if phi, ok := inst.(*Phi); ok {
				for _, e := range phi.Incoming {
					db, ok := defBlock[e.Value]
					if !ok {
						return &errors.ValidationError{Message: "phi operand used but never defined", Block: int(e.Pred), Register: int(e.Value), HasBlock: true, HasReg: true}
					}
					if !reachable[e.Pred] {
						continue
					}
					if db != e.Pred && !dominates(dom, db, e.Pred) {
						return &errors.ValidationError{Message: "register used in a block but defined in a non-dominating block", Block: int(e.Pred), Register: int(e.Value), HasBlock: true, HasReg: true}
					}
				}
				continue
			}
			for _, use := range inst.Uses() {
				db, ok := defBlock[use]
				if !ok {
					return &errors.ValidationError{Message: "register used but never defined", Block: int(b.ID), InstIdx: instIdx, HasInst: true, Register: int(use), HasBlock: true, HasReg: true}
				}
				if db == b.ID {
					if defInst[use] >= instIdx {
						return &errors.ValidationError{Message: "register used before it is defined in the same block", Block: int(b.ID), InstIdx: instIdx, HasInst: true, Register: int(use), HasBlock: true, HasReg: true}
					}
					continue
				}
				if !dominates(dom, db, b.ID) {
					return &errors.ValidationError{Message: "register used in a block but defined in a non-dominating block", Block: int(b.ID), InstIdx: instIdx, HasInst: true, Register: int(use), HasBlock: true, HasReg: true}
				}
			}
		}
		if b.Terminator != nil {
			if br, ok := b.Terminator.(*Branch); ok {
				if err := checkTerminatorUse(br.Cond, b, dom, reachable, defBlock, defInst); err != nil {
					return err
				}
			}
			if ret, ok := b.Terminator.(*Return); ok {
				for _, v := range ret.Values {
					if err := checkTerminatorUse(v, b, dom, reachable, defBlock, defInst); err != nil {
						return err
					}
				}
			}
		}
	}
	return nil
}

func checkTerminatorUse(use Register, b *BasicBlock, dom map[BlockID]map[BlockID]bool, reachable map[BlockID]bool, defBlock map[Register]BlockID, defInst map[Register]int) error {
	db, ok := defBlock[use]
	if !ok {
		return &errors.ValidationError{Message: "register used but never defined", Block: int(b.ID), Register: int(use), HasBlock: true, HasReg: true}
	}
	if db == b.ID {
		return nil
	}
	if !dominates(dom, db, b.ID) {
		return &errors.ValidationError{Message: "register used in a block but defined in a non-dominating block", Block: int(b.ID), Register: int(use), HasBlock: true, HasReg: true}
	}
	return nil
}
