package backend

import (
	"fmt"

	"fifth/internal/errors"
	"fifth/internal/ssa"
	"fifth/internal/targetir"
)

// lowerTerminator implements spec.md §4.10 step 4, including the
// "critical contract" for branch arguments: when this block's
// terminator targets a block B with phis, the argument supplied for
// each of B's phis must be valid as seen from *this* block, not from
// whatever predecessor the phi was originally recorded against.
func lowerTerminator(fn *ssa.Function, from *ssa.BasicBlock) (targetir.Terminator, error) {
	switch t := from.Terminator.(type) {
	case *ssa.Jump:
		args, err := branchArgs(fn, from, t.Target)
		if err != nil {
			return nil, err
		}
		return &targetir.Jump{Target: toBlock(t.Target), Args: args}, nil
	case *ssa.Branch:
		trueArgs, err := branchArgs(fn, from, t.TrueBlock)
		if err != nil {
			return nil, err
		}
		falseArgs, err := branchArgs(fn, from, t.FalseBlock)
		if err != nil {
			return nil, err
		}
		return &targetir.Branch{
			Cond:        toValue(t.Cond),
			TrueTarget:  toBlock(t.TrueBlock),
			TrueArgs:    trueArgs,
			FalseTarget: toBlock(t.FalseBlock),
			FalseArgs:   falseArgs,
		}, nil
	case *ssa.Return:
		return &targetir.Return{Values: toValues(t.Values)}, nil
	default:
		return nil, &errors.CodeGenerationError{Message: fmt.Sprintf("no lowering for terminator %T", from.Terminator)}
	}
}

// branchArgs resolves the argument list for the edge from -> to,
// one value per phi in `to`, in the order lowerFunction assigned them
// as block parameters.
func branchArgs(fn *ssa.Function, from *ssa.BasicBlock, to ssa.BlockID) ([]targetir.ValueID, error) {
	toBlk := fn.BlockByID(to)
	if toBlk == nil {
		return nil, &errors.CodeGenerationError{Message: fmt.Sprintf("branch from block %s targets unknown block %s", from.ID, to)}
	}
	phis := blockPhis(toBlk)
	fromPhis := blockPhis(from)

	args := make([]targetir.ValueID, len(phis))
	for i, phi := range phis {
		if reg, ok := incomingFrom(phi, from.ID); ok {
			args[i] = toValue(reg)
			continue
		}
		// Fallback: match by index against from's own phis, resolving
		// the nested-merge case where the SSA-recorded predecessor is
		// an ancestor of the concrete block emitting this branch.
		if i < len(fromPhis) {
			args[i] = toValue(fromPhis[i].Dest)
			continue
		}
		return nil, &errors.CodeGenerationError{
			Message: fmt.Sprintf("cannot resolve branch argument %d for edge %s->%s: no incoming edge from %s and no matching phi by index", i, from.ID, to, from.ID),
		}
	}
	return args, nil
}

func blockPhis(b *ssa.BasicBlock) []*ssa.Phi {
	var out []*ssa.Phi
	for _, inst := range b.Instructions {
		if phi, ok := inst.(*ssa.Phi); ok {
			out = append(out, phi)
		}
	}
	return out
}

func incomingFrom(phi *ssa.Phi, pred ssa.BlockID) (ssa.Register, bool) {
	for _, e := range phi.Incoming {
		if e.Pred == pred {
			return e.Value, true
		}
	}
	return 0, false
}
