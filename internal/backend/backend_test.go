package backend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fifth/internal/ssa"
	"fifth/internal/targetir"
)

func TestLowerStraightLineArithmetic(t *testing.T) {
	fn := &ssa.Function{
		Name: ssa.MainFunctionName,
		Blocks: []*ssa.BasicBlock{{ID: 0, Instructions: []ssa.Instruction{
			&ssa.LoadInt{Dest: 1, Value: 2},
			&ssa.LoadInt{Dest: 2, Value: 3},
			&ssa.BinaryOp{Dest: 3, Op: ssa.Add, Left: 1, Right: 2},
		}, Terminator: &ssa.Return{Values: []ssa.Register{3}}}},
	}
	out, err := Lower(&ssa.Program{Functions: []*ssa.Function{fn}})
	require.NoError(t, err)
	require.Len(t, out.Functions, 1)

	block := out.Functions[0].Blocks[0]
	require.Len(t, block.Instructions, 3)
	arith, ok := block.Instructions[2].(*targetir.Arith)
	require.True(t, ok)
	assert.Equal(t, "add", arith.Op)
}

func TestLowerComparisonProducesCompareInstruction(t *testing.T) {
	fn := &ssa.Function{
		Name: ssa.MainFunctionName,
		Blocks: []*ssa.BasicBlock{{ID: 0, Instructions: []ssa.Instruction{
			&ssa.LoadInt{Dest: 1, Value: 0},
			&ssa.LoadInt{Dest: 2, Value: 1},
			&ssa.BinaryOp{Dest: 3, Op: ssa.Lt, Left: 1, Right: 2},
		}, Terminator: &ssa.Return{Values: []ssa.Register{3}}}},
	}
	out, err := Lower(&ssa.Program{Functions: []*ssa.Function{fn}})
	require.NoError(t, err)

	_, ok := out.Functions[0].Blocks[0].Instructions[2].(*targetir.Compare)
	assert.True(t, ok)
}

// TestLowerPhiBecomesBlockParameter exercises the direct case: the
// merge block's phi has an incoming edge naming the actual
// predecessor, so the branch argument is read straight off that edge.
func TestLowerPhiBecomesBlockParameter(t *testing.T) {
	fn := &ssa.Function{
		Name: ssa.MainFunctionName,
		Blocks: []*ssa.BasicBlock{
			{ID: 0, Instructions: []ssa.Instruction{&ssa.LoadInt{Dest: 1, Value: 1}}, Terminator: &ssa.Branch{Cond: 1, TrueBlock: 1, FalseBlock: 2}},
			{ID: 1, Preds: []ssa.BlockID{0}, Instructions: []ssa.Instruction{&ssa.LoadInt{Dest: 2, Value: 10}}, Terminator: &ssa.Jump{Target: 3}},
			{ID: 2, Preds: []ssa.BlockID{0}, Instructions: []ssa.Instruction{&ssa.LoadInt{Dest: 3, Value: 20}}, Terminator: &ssa.Jump{Target: 3}},
			{ID: 3, Preds: []ssa.BlockID{1, 2}, Instructions: []ssa.Instruction{
				&ssa.Phi{Dest: 4, Incoming: []ssa.PhiEdge{{Pred: 1, Value: 2}, {Pred: 2, Value: 3}}},
			}, Terminator: &ssa.Return{Values: []ssa.Register{4}}},
		},
	}
	out, err := Lower(&ssa.Program{Functions: []*ssa.Function{fn}})
	require.NoError(t, err)

	merge := out.Functions[0].BlockByID(3)
	require.Len(t, merge.Params, 1)
	assert.Equal(t, targetir.ValueID(4), merge.Params[0])

	fromTrue := out.Functions[0].BlockByID(1).Terminator.(*targetir.Jump)
	assert.Equal(t, []targetir.ValueID{2}, fromTrue.Args)
	fromFalse := out.Functions[0].BlockByID(2).Terminator.(*targetir.Jump)
	assert.Equal(t, []targetir.ValueID{3}, fromFalse.Args)
}

// TestBranchArgsFallsBackByIndexDirectly drives branchArgs directly
// with a from-block that does not appear in to's phi incoming list at
// all, forcing the by-index fallback spec.md §4.10 step 4 describes.
func TestBranchArgsFallsBackByIndexDirectly(t *testing.T) {
	fn := &ssa.Function{
		Name: ssa.MainFunctionName,
		Blocks: []*ssa.BasicBlock{
			// "from" carries its own phi at index 0, standing in for an
			// outer merge whose result should flow through unchanged.
			{ID: 0, Instructions: []ssa.Instruction{
				&ssa.Phi{Dest: 10, Incoming: []ssa.PhiEdge{}},
			}},
			// "to" names an unrelated ancestor block (99) as its only
			// recorded predecessor, so block 0 is absent from its
			// incoming list entirely.
			{ID: 1, Instructions: []ssa.Instruction{
				&ssa.Phi{Dest: 20, Incoming: []ssa.PhiEdge{{Pred: 99, Value: 30}}},
			}},
		},
	}
	args, err := branchArgs(fn, fn.Blocks[0], 1)
	require.NoError(t, err)
	assert.Equal(t, []targetir.ValueID{10}, args)
}

func TestBranchArgsReturnsCodeGenerationErrorWhenUnresolvable(t *testing.T) {
	fn := &ssa.Function{
		Name: ssa.MainFunctionName,
		Blocks: []*ssa.BasicBlock{
			{ID: 0}, // no phis at all: the fallback has nothing to match against
			{ID: 1, Instructions: []ssa.Instruction{
				&ssa.Phi{Dest: 20, Incoming: []ssa.PhiEdge{{Pred: 99, Value: 30}}},
			}},
		},
	}
	_, err := branchArgs(fn, fn.Blocks[0], 1)
	require.Error(t, err)
}

func TestLowerFusedExpandsToPrimitives(t *testing.T) {
	fn := &ssa.Function{
		Name: ssa.MainFunctionName,
		Blocks: []*ssa.BasicBlock{{ID: 0, Instructions: []ssa.Instruction{
			&ssa.LoadInt{Dest: 1, Value: 5},
			&ssa.Fused{Dest: 2, Kind: ssa.IncOne, Operands: []ssa.Register{1}},
		}, Terminator: &ssa.Return{Values: []ssa.Register{2}}}},
	}
	out, err := Lower(&ssa.Program{Functions: []*ssa.Function{fn}})
	require.NoError(t, err)

	block := out.Functions[0].Blocks[0]
	require.Len(t, block.Instructions, 3)
	lit, ok := block.Instructions[1].(*targetir.Const)
	require.True(t, ok)
	assert.Equal(t, int64(1), lit.Value)
	arith, ok := block.Instructions[2].(*targetir.Arith)
	require.True(t, ok)
	assert.Equal(t, "add", arith.Op)
}

func TestLowerFFICallBecomesBridgeCall(t *testing.T) {
	fn := &ssa.Function{
		Name: ssa.MainFunctionName,
		Blocks: []*ssa.BasicBlock{{ID: 0, Instructions: []ssa.Instruction{
			&ssa.FFICall{Dests_: []ssa.Register{1}, Symbol: "c_strlen", Args: nil},
		}, Terminator: &ssa.Return{Values: []ssa.Register{1}}}},
	}
	out, err := Lower(&ssa.Program{Functions: []*ssa.Function{fn}})
	require.NoError(t, err)

	bridge, ok := out.Functions[0].Blocks[0].Instructions[0].(*targetir.FFIBridgeCall)
	require.True(t, ok)
	assert.Equal(t, "c_strlen", bridge.Symbol)
}
