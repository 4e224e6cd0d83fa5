package zerocost

import "fifth/internal/ssa"

// simplifyAlgebraic rewrites each function in place per spec.md §4.8
// step 2: `Literal(0) Add -> erase`, `Literal(0) Mul -> Literal(0)`,
// `Literal(1) Mul -> erase`, `Literal(2) Mul -> MulTwo`,
// `Dup Literal(0) {Eq,Lt,Gt} -> Zero{Eq,Lt,Gt}`.
//
// Each function is processed in two passes: the first walks every
// block once, dropping matched instructions and recording an erased
// destination's replacement register in a function-wide substitution
// table (without yet touching any use — a use earlier in program
// order than its own definition cannot exist under SSA, but a later
// block may reference this block's erased register); the second
// applies the fully chased substitution table across every remaining
// instruction and terminator in one pass. Splitting this way avoids
// the hazard of rewriting a block while a use of it later in the same
// block still names the pre-rewrite register.
func simplifyAlgebraic(p *ssa.Program, stats *Stats) {
	for _, fn := range p.Functions {
		subst := map[ssa.Register]ssa.Register{}
		for _, b := range fn.Blocks {
			b.Instructions = simplifyBlock(b.Instructions, subst, stats)
		}
		if len(subst) > 0 {
			ssa.SubstituteInFunction(fn, resolve(subst))
		}
	}
}

// resolve chases chained substitutions (a->b->c) to their fixed point
// so a single SubstituteInFunction pass fully resolves every erased
// register regardless of how many simplifications chained together.
func resolve(subst map[ssa.Register]ssa.Register) map[ssa.Register]ssa.Register {
	out := map[ssa.Register]ssa.Register{}
	for k := range subst {
		v := k
		for {
			next, ok := subst[v]
			if !ok {
				break
			}
			v = next
		}
		out[k] = v
	}
	return out
}

func simplifyBlock(insts []ssa.Instruction, subst map[ssa.Register]ssa.Register, stats *Stats) []ssa.Instruction {
	lits := map[ssa.Register]int64{}
	var out []ssa.Instruction

	for _, inst := range insts {
		switch v := inst.(type) {
		case *ssa.LoadInt:
			lits[v.Dest] = v.Value
			out = append(out, inst)

		case *ssa.BinaryOp:
			if rewritten, erasedTo, matched := simplifyBinary(v, lits); matched {
				stats.Simplified++
				if rewritten != nil {
					out = append(out, rewritten)
				} else {
					subst[v.Dest] = erasedTo
				}
				continue
			}
			out = append(out, inst)

		default:
			out = append(out, inst)
		}
	}
	return out
}

// simplifyBinary reports (replacement, erasedTo, matched). When
// matched and replacement is nil, bin.Dest is erased and every use
// should be rewritten to erasedTo. When matched and replacement is
// non-nil, bin is replaced by the returned Fused instruction in place.
func simplifyBinary(bin *ssa.BinaryOp, lits map[ssa.Register]int64) (ssa.Instruction, ssa.Register, bool) {
	leftLit, leftIsLit := lits[bin.Left]
	rightLit, rightIsLit := lits[bin.Right]

	switch bin.Op {
	case ssa.Add:
		if rightIsLit && rightLit == 0 {
			return nil, bin.Left, true
		}
		if leftIsLit && leftLit == 0 {
			return nil, bin.Right, true
		}
	case ssa.Mul:
		if rightIsLit && rightLit == 0 {
			return nil, bin.Right, true
		}
		if leftIsLit && leftLit == 0 {
			return nil, bin.Left, true
		}
		if rightIsLit && rightLit == 1 {
			return nil, bin.Left, true
		}
		if leftIsLit && leftLit == 1 {
			return nil, bin.Right, true
		}
		if rightIsLit && rightLit == 2 {
			return &ssa.Fused{Dest: bin.Dest, Kind: ssa.MulTwo, Operands: []ssa.Register{bin.Left}}, 0, true
		}
		if leftIsLit && leftLit == 2 {
			return &ssa.Fused{Dest: bin.Dest, Kind: ssa.MulTwo, Operands: []ssa.Register{bin.Right}}, 0, true
		}
	case ssa.Eq:
		if rightIsLit && rightLit == 0 {
			return &ssa.Fused{Dest: bin.Dest, Kind: ssa.ZeroEq, Operands: []ssa.Register{bin.Left}}, 0, true
		}
	case ssa.Lt:
		if rightIsLit && rightLit == 0 {
			return &ssa.Fused{Dest: bin.Dest, Kind: ssa.ZeroLt, Operands: []ssa.Register{bin.Left}}, 0, true
		}
	case ssa.Gt:
		if rightIsLit && rightLit == 0 {
			return &ssa.Fused{Dest: bin.Dest, Kind: ssa.ZeroGt, Operands: []ssa.Register{bin.Left}}, 0, true
		}
	}
	return nil, 0, false
}
