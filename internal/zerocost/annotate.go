package zerocost

import (
	"fmt"

	"fifth/internal/ssa"
)

// annotateAbstractDepth inserts a Comment hint before each instruction
// recording a monotonically increasing "abstract depth" counter
// (spec.md §4.8 step 3, "macro-expansion annotation of stack ops with
// current abstract depth"). Post-SSA there is no literal operand-stack
// depth left to report — dup/drop/swap/over/rot were already resolved
// into register reuse at C3 (the same fact DESIGN.md records for the
// C6 fusion recognizer) — so depth here is defined as the count of
// SSA values defined so far within the block, a register-liveness
// proxy for the stack depth the pre-SSA word sequence would have
// carried at the same program point. Annotation-only: it adds Comment
// instructions and never changes any other instruction.
func annotateAbstractDepth(p *ssa.Program) {
	for _, fn := range p.Functions {
		for _, b := range fn.Blocks {
			b.Instructions = annotateBlock(b.Instructions)
		}
	}
}

func annotateBlock(insts []ssa.Instruction) []ssa.Instruction {
	out := make([]ssa.Instruction, 0, len(insts)*2)
	depth := 0
	for _, inst := range insts {
		out = append(out, &ssa.Comment{Text: fmt.Sprintf("depth=%d", depth)})
		out = append(out, inst)
		depth += len(inst.Dests())
	}
	return out
}
