package ssa

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fifth/internal/errors"
)

// TestValidateFunctionRejectsDoubleAssignedRegister pins S6: r3
// assigned by two distinct LoadInt instructions must be rejected,
// naming the register and the violation.
func TestValidateFunctionRejectsDoubleAssignedRegister(t *testing.T) {
	b0 := &BasicBlock{
		ID: 0,
		Instructions: []Instruction{
			&LoadInt{Dest: 3, Value: 1},
			&LoadInt{Dest: 3, Value: 2},
		},
		Terminator: &Return{Values: []Register{3}},
	}
	fn := &Function{Name: "bad", Blocks: []*BasicBlock{b0}, EntryBlock: 0}

	err := ValidateFunction(fn)
	require.Error(t, err)

	ve, ok := err.(*errors.ValidationError)
	require.True(t, ok)
	assert.Contains(t, ve.Message, "assigned multiple times")
	assert.True(t, ve.HasReg)
	assert.Equal(t, 3, ve.Register)
}

// TestValidateFunctionRejectsUseFromNonDominatingBlock pins S7: block
// B2 uses r5, but r5 is defined only in a sibling block that does not
// dominate B2 (B0 branches to B1 and B2; B1 defines r5; B2 uses it
// without B1 being on every path to B2).
func TestValidateFunctionRejectsUseFromNonDominatingBlock(t *testing.T) {
	b0 := &BasicBlock{
		ID:         0,
		Terminator: &Branch{Cond: 0, TrueBlock: 1, FalseBlock: 2},
	}
	b1 := &BasicBlock{
		ID:           1,
		Instructions: []Instruction{&LoadInt{Dest: 5, Value: 9}},
		Terminator:   &Jump{Target: 2},
		Preds:        []BlockID{0},
	}
	b2 := &BasicBlock{
		ID:           2,
		Instructions: []Instruction{&UnaryOp{Dest: 6, Op: Negate, Operand: 5}},
		Terminator:   &Return{Values: []Register{6}},
		Preds:        []BlockID{0, 1},
	}
	fn := &Function{
		Name:       "bad2",
		Params:     []Register{0},
		Blocks:     []*BasicBlock{b0, b1, b2},
		EntryBlock: 0,
	}

	err := ValidateFunction(fn)
	require.Error(t, err)

	ve, ok := err.(*errors.ValidationError)
	require.True(t, ok)
	assert.Contains(t, ve.Message, "non-dominating block")
	assert.True(t, ve.HasReg)
	assert.Equal(t, 5, ve.Register)
}

// TestValidateFunctionRejectsPhiAfterNonPhiInstruction pins §3.2
// invariant 4 / §4.4 point 6: a Phi may not follow a non-phi
// instruction within the same block.
func TestValidateFunctionRejectsPhiAfterNonPhiInstruction(t *testing.T) {
	b0 := &BasicBlock{
		ID:         0,
		Terminator: &Branch{Cond: 0, TrueBlock: 1, FalseBlock: 2},
	}
	b1 := &BasicBlock{
		ID:         1,
		Terminator: &Jump{Target: 3},
		Preds:      []BlockID{0},
	}
	b2 := &BasicBlock{
		ID:         2,
		Terminator: &Jump{Target: 3},
		Preds:      []BlockID{0},
	}
	b3 := &BasicBlock{
		ID: 3,
		Instructions: []Instruction{
			&LoadInt{Dest: 4, Value: 1},
			&Phi{Dest: 5, Incoming: []PhiEdge{{Pred: 1, Value: 0}, {Pred: 2, Value: 0}}},
		},
		Terminator: &Return{Values: []Register{5}},
		Preds:      []BlockID{1, 2},
	}
	fn := &Function{
		Name:       "bad3",
		Params:     []Register{0},
		Blocks:     []*BasicBlock{b0, b1, b2, b3},
		EntryBlock: 0,
	}

	err := ValidateFunction(fn)
	require.Error(t, err)

	ve, ok := err.(*errors.ValidationError)
	require.True(t, ok)
	assert.Contains(t, ve.Message, "non-phi instruction")
}

// TestValidateFunctionAcceptsWellFormedMerge is the positive control
// for S6/S7: the same merge shape, but sound, must validate cleanly.
func TestValidateFunctionAcceptsWellFormedMerge(t *testing.T) {
	b0 := &BasicBlock{
		ID:         0,
		Terminator: &Branch{Cond: 0, TrueBlock: 1, FalseBlock: 2},
	}
	b1 := &BasicBlock{
		ID:           1,
		Instructions: []Instruction{&LoadInt{Dest: 2, Value: 1}},
		Terminator:   &Jump{Target: 3},
		Preds:        []BlockID{0},
	}
	b2 := &BasicBlock{
		ID:           2,
		Instructions: []Instruction{&LoadInt{Dest: 3, Value: 2}},
		Terminator:   &Jump{Target: 3},
		Preds:        []BlockID{0},
	}
	b3 := &BasicBlock{
		ID: 3,
		Instructions: []Instruction{
			&Phi{Dest: 4, Incoming: []PhiEdge{{Pred: 1, Value: 2}, {Pred: 2, Value: 3}}},
		},
		Terminator: &Return{Values: []Register{4}},
		Preds:      []BlockID{1, 2},
	}
	fn := &Function{
		Name:       "good",
		Params:     []Register{0},
		Blocks:     []*BasicBlock{b0, b1, b2, b3},
		EntryBlock: 0,
	}

	assert.NoError(t, ValidateFunction(fn))
}
