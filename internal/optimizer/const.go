package optimizer

import (
	"fmt"
	"sort"

	"fifth/internal/callgraph"
	"fifth/internal/config"
	"fifth/internal/ssa"
)

// constVal is the abstract value tracked per register during symbolic
// stack simulation (spec.md §4.5).
type constVal struct {
	known   bool
	isFloat bool
	i       int64
	f       float64
}

// constantPropagate folds binary operations whose operands are both
// known constants, visiting functions leaves-first in call-graph order
// and folding each one independently (inlining has already run by the
// time this pass is reached). Forth's dup/drop/swap
// have no SSA-level instruction (they are resolved into register reuse
// at C3), so there is nothing extra to model for them here: a register
// used twice already behaves like a duplicated constant.
func constantPropagate(p *ssa.Program, stats *Stats) *ssa.Program {
	g := callgraph.Build(p)
	order := g.TopologicalOrder()
	byName := map[string]*ssa.Function{}
	for _, fn := range p.Functions {
		byName[fn.Name] = fn
	}

	for _, name := range order {
		fn := byName[name]
		if fn == nil {
			continue
		}
		folded := FoldFunction(fn)
		stats.ConstantsFolded += folded
	}
	return p
}

// FoldFunction folds every BinaryOp whose operands are both known
// constants within fn, in place, returning the number folded. Exported
// so internal/zerocost's "final constant-folding sweep" stage (spec.md
// §4.8) reuses the exact same folding rules as C5 rather than
// reimplementing them.
func FoldFunction(fn *ssa.Function) int {
	known := map[ssa.Register]constVal{}
	folded := 0

	for _, b := range fn.Blocks {
		for idx, inst := range b.Instructions {
			switch v := inst.(type) {
			case *ssa.LoadInt:
				known[v.Dest] = constVal{known: true, i: v.Value}
			case *ssa.LoadFloat:
				known[v.Dest] = constVal{known: true, isFloat: true, f: v.Value}
			case *ssa.BinaryOp:
				left, lok := known[v.Left]
				right, rok := known[v.Right]
				if lok && rok && left.known && right.known {
					if result, ok := foldBinary(v.Op, left, right); ok {
						if result.isFloat {
							b.Instructions[idx] = &ssa.LoadFloat{Dest: v.Dest, Value: result.f}
						} else {
							b.Instructions[idx] = &ssa.LoadInt{Dest: v.Dest, Value: result.i}
						}
						known[v.Dest] = result
						folded++
						continue
					}
				}
				known[v.Dest] = constVal{}
			case *ssa.Call:
				// Conservative: a call may have arbitrary effects, so
				// all accumulated constant knowledge is discarded
				// (spec.md §4.5).
				known = map[ssa.Register]constVal{}
			default:
				for _, d := range inst.Dests() {
					known[d] = constVal{}
				}
			}
		}
	}
	return folded
}

func foldBinary(op ssa.BinOp, left, right constVal) (constVal, bool) {
	if left.isFloat || right.isFloat {
		l, r := asFloat(left), asFloat(right)
		switch op {
		case ssa.Add:
			return constVal{known: true, isFloat: true, f: l + r}, true
		case ssa.Sub:
			return constVal{known: true, isFloat: true, f: l - r}, true
		case ssa.Mul:
			return constVal{known: true, isFloat: true, f: l * r}, true
		case ssa.Div:
			if r == 0 {
				return constVal{}, false
			}
			return constVal{known: true, isFloat: true, f: l / r}, true
		}
		return boolFold(op, l, r)
	}

	l, r := left.i, right.i
	switch op {
	case ssa.Add:
		return constVal{known: true, i: l + r}, true
	case ssa.Sub:
		return constVal{known: true, i: l - r}, true
	case ssa.Mul:
		return constVal{known: true, i: l * r}, true
	case ssa.Div:
		if r == 0 {
			return constVal{}, false
		}
		return constVal{known: true, i: l / r}, true
	case ssa.Mod:
		if r == 0 {
			return constVal{}, false
		}
		return constVal{known: true, i: l % r}, true
	case ssa.And:
		return constVal{known: true, i: boolToCell(l != 0 && r != 0)}, true
	case ssa.Or:
		return constVal{known: true, i: boolToCell(l != 0 || r != 0)}, true
	}
	return boolFold(op, float64(l), float64(r))
}

func boolFold(op ssa.BinOp, l, r float64) (constVal, bool) {
	var b bool
	switch op {
	case ssa.Lt:
		b = l < r
	case ssa.Gt:
		b = l > r
	case ssa.Le:
		b = l <= r
	case ssa.Ge:
		b = l >= r
	case ssa.Eq:
		b = l == r
	case ssa.Ne:
		b = l != r
	default:
		return constVal{}, false
	}
	return constVal{known: true, i: boolToCell(b)}, true
}

func asFloat(c constVal) float64 {
	if c.isFloat {
		return c.f
	}
	return float64(c.i)
}

// boolToCell follows spec.md §4.10's note that this IR uses 1/0 truth
// values at the IR level, leaving -1/0 sign widening to the runtime
// boundary.
func boolToCell(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

// specializeCallSites implements spec.md §4.5's call-site
// specialization: a single-parameter, non-recursive, low-cost word
// called everywhere with the identical literal argument gets a
// zero-parameter clone with that literal baked in, and every call site
// is rewritten to the clone.
func specializeCallSites(p *ssa.Program, cfg config.PipelineConfig, stats *Stats) *ssa.Program {
	const maxSpecializeCost = 15

	for _, fn := range p.Functions {
		if len(fn.Params) != 1 || isSelfRecursive(fn) || cost(fn) > maxSpecializeCost {
			continue
		}
		sites := callSites(p, fn.Name)
		if len(sites) == 0 {
			continue
		}

		var k int64
		matched := true
		for i, s := range sites {
			if s.idx == 0 {
				matched = false
				break
			}
			lit, ok := s.block.Instructions[s.idx-1].(*ssa.LoadInt)
			if !ok || lit.Dest != s.call.Args[0] {
				matched = false
				break
			}
			if i == 0 {
				k = lit.Value
			} else if lit.Value != k {
				matched = false
				break
			}
		}
		if !matched {
			continue
		}

		specName := fmt.Sprintf("%s__specialized_%d", fn.Name, k)
		specFn := buildSpecialized(fn, specName, k)
		p = &ssa.Program{Functions: append(append([]*ssa.Function{}, p.Functions...), specFn)}

		byBlock := map[*ssa.BasicBlock][]int{}
		for _, s := range sites {
			s.call.Callee = specName
			s.call.Args = nil
			byBlock[s.block] = append(byBlock[s.block], s.idx-1)
		}
		for b, idxs := range byBlock {
			sort.Sort(sort.Reverse(sort.IntSlice(idxs)))
			for _, i := range idxs {
				b.Instructions = append(b.Instructions[:i], b.Instructions[i+1:]...)
			}
		}

		stats.Specialized = append(stats.Specialized, specName)
	}
	return p
}

// buildSpecialized clones fn into a zero-parameter function whose body
// is a fresh LoadInt(k) followed by fn's body with its sole parameter
// register bound to that literal (spec.md §4.5).
func buildSpecialized(fn *ssa.Function, name string, k int64) *ssa.Function {
	lookup := map[ssa.Register]ssa.Register{}
	nextReg := ssa.Register(1)
	fresh := func() ssa.Register {
		r := nextReg
		nextReg++
		return r
	}
	litDest := fresh()
	lookup[fn.Params[0]] = litDest

	newBlocks := make([]*ssa.BasicBlock, len(fn.Blocks))
	for i, b := range fn.Blocks {
		nb := &ssa.BasicBlock{ID: b.ID, Preds: append([]ssa.BlockID(nil), b.Preds...)}
		for _, inst := range b.Instructions {
			nb.Instructions = append(nb.Instructions, ssa.CloneInstruction(inst, lookup, fresh))
		}
		newBlocks[i] = nb
	}
	for i, b := range fn.Blocks {
		newBlocks[i].Terminator = ssa.ReplaceRegistersInTerminator(b.Terminator, lookup)
	}
	newBlocks[0].Instructions = append([]ssa.Instruction{&ssa.LoadInt{Dest: litDest, Value: k}}, newBlocks[0].Instructions...)

	return &ssa.Function{Name: name, Blocks: newBlocks, EntryBlock: fn.EntryBlock}
}
