package targetir

import (
	"fmt"

	"fifth/internal/errors"
)

// Verify checks the target-IR invariants spec.md §4.10 step 6 calls
// for: every block is sealed, every jump/branch edge supplies exactly
// as many arguments as its target block has parameters, and every
// value an instruction uses is defined somewhere in the function (a
// function parameter, a block parameter, or an instruction result in
// any block). Definition order and dominance are not checked, and
// terminator operands are not checked for definedness (this IR has no
// merge-time phi to reason about; that concern was already resolved
// into block parameters during lowering). Collects every violation rather than
// stopping at the first, matching the "external target-IR verifier"
// contract of spec.md §6 that reports a batch of errors.
func Verify(p *Program) error {
	var problems []string
	for _, fn := range p.Functions {
		problems = append(problems, verifyFunction(fn)...)
	}
	if len(problems) > 0 {
		return &errors.IRVerificationFailed{Errors: problems}
	}
	return nil
}

func verifyFunction(fn *Function) []string {
	var problems []string
	blocks := map[BlockID]*Block{}
	for _, b := range fn.Blocks {
		blocks[b.ID] = b
		if !b.Sealed {
			problems = append(problems, fmt.Sprintf("%s: block %s not sealed", fn.Name, b.ID))
		}
	}

	defined := map[ValueID]bool{}
	for _, p := range fn.Params {
		defined[p] = true
	}
	for _, b := range fn.Blocks {
		for _, p := range b.Params {
			defined[p] = true
		}
		for _, inst := range b.Instructions {
			for _, d := range inst.Dests() {
				defined[d] = true
			}
		}
	}

	for _, b := range fn.Blocks {
		local := map[ValueID]bool{}
		for _, p := range b.Params {
			local[p] = true
		}
		for _, inst := range b.Instructions {
			for _, use := range inst.Uses() {
				if !defined[use] {
					problems = append(problems, fmt.Sprintf("%s: block %s uses undefined value %s", fn.Name, b.ID, use))
				}
			}
			for _, d := range inst.Dests() {
				local[d] = true
			}
		}
		problems = append(problems, verifyTerminator(fn, b, blocks)...)
	}
	return problems
}

func verifyTerminator(fn *Function, b *Block, blocks map[BlockID]*Block) []string {
	var problems []string
	if b.Terminator == nil {
		return []string{fmt.Sprintf("%s: block %s has no terminator", fn.Name, b.ID)}
	}
	switch t := b.Terminator.(type) {
	case *Jump:
		problems = append(problems, checkArgs(fn, b.ID, t.Target, t.Args, blocks)...)
	case *Branch:
		problems = append(problems, checkArgs(fn, b.ID, t.TrueTarget, t.TrueArgs, blocks)...)
		problems = append(problems, checkArgs(fn, b.ID, t.FalseTarget, t.FalseArgs, blocks)...)
	case *Return:
		// no block-parameter contract to check
	}
	return problems
}

func checkArgs(fn *Function, from, to BlockID, args []ValueID, blocks map[BlockID]*Block) []string {
	target, ok := blocks[to]
	if !ok {
		return []string{fmt.Sprintf("%s: block %s targets unknown block %s", fn.Name, from, to)}
	}
	if len(args) != len(target.Params) {
		return []string{fmt.Sprintf("%s: edge %s->%s supplies %d argument(s), target has %d parameter(s)", fn.Name, from, to, len(args), len(target.Params))}
	}
	return nil
}
