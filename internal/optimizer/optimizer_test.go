package optimizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fifth/internal/config"
	"fifth/internal/ssa"
)

func TestDeadCodeEliminateDropsUnreachable(t *testing.T) {
	p := &ssa.Program{Functions: []*ssa.Function{
		{Name: ssa.MainFunctionName, Blocks: []*ssa.BasicBlock{{ID: 0, Terminator: &ssa.Return{}}}},
		{Name: "unused", Blocks: []*ssa.BasicBlock{{ID: 0, Terminator: &ssa.Return{}}}},
	}}
	stats := &Stats{}
	out := deadCodeEliminate(p, stats)

	assert.Len(t, out.Functions, 1)
	assert.Equal(t, ssa.MainFunctionName, out.Functions[0].Name)
	assert.Contains(t, stats.Removed, "unused")
}

func TestInlineSingleCallerSplicesBody(t *testing.T) {
	// square(r1) = r2 = r1 * r1; return r2
	square := &ssa.Function{
		Name:   "square",
		Params: []ssa.Register{1},
		Blocks: []*ssa.BasicBlock{
			{ID: 0, Instructions: []ssa.Instruction{
				&ssa.BinaryOp{Dest: 2, Op: ssa.Mul, Left: 1, Right: 1},
			}, Terminator: &ssa.Return{Values: []ssa.Register{2}}},
		},
	}
	main := &ssa.Function{
		Name: ssa.MainFunctionName,
		Blocks: []*ssa.BasicBlock{
			{ID: 0, Instructions: []ssa.Instruction{
				&ssa.LoadInt{Dest: 10, Value: 5},
				&ssa.Call{Dests_: []ssa.Register{11}, Callee: "square", Args: []ssa.Register{10}},
			}, Terminator: &ssa.Return{Values: []ssa.Register{11}}},
		},
	}
	p := &ssa.Program{Functions: []*ssa.Function{main, square}}
	stats := &Stats{}

	out := inlineSingleCallers(p, config.Default(), stats)

	require.Len(t, out.Functions, 1)
	assert.Contains(t, stats.Inlined, "square")
	mainFn := out.Functions[0]
	for _, inst := range mainFn.Blocks[0].Instructions {
		_, isCall := inst.(*ssa.Call)
		assert.False(t, isCall, "call to square should have been spliced away")
	}
	ret := mainFn.Blocks[0].Terminator.(*ssa.Return)
	require.Len(t, ret.Values, 1)
}

func TestInlineSingleCallerSkipsMultipleCallSites(t *testing.T) {
	callee := &ssa.Function{
		Name: "inc",
		Params: []ssa.Register{1},
		Blocks: []*ssa.BasicBlock{
			{ID: 0, Instructions: []ssa.Instruction{
				&ssa.LoadInt{Dest: 2, Value: 1},
				&ssa.BinaryOp{Dest: 3, Op: ssa.Add, Left: 1, Right: 2},
			}, Terminator: &ssa.Return{Values: []ssa.Register{3}}},
		},
	}
	main := &ssa.Function{
		Name: ssa.MainFunctionName,
		Blocks: []*ssa.BasicBlock{
			{ID: 0, Instructions: []ssa.Instruction{
				&ssa.LoadInt{Dest: 10, Value: 1},
				&ssa.Call{Dests_: []ssa.Register{11}, Callee: "inc", Args: []ssa.Register{10}},
				&ssa.Call{Dests_: []ssa.Register{12}, Callee: "inc", Args: []ssa.Register{11}},
			}, Terminator: &ssa.Return{Values: []ssa.Register{12}}},
		},
	}
	p := &ssa.Program{Functions: []*ssa.Function{main, callee}}
	stats := &Stats{}

	out := inlineSingleCallers(p, config.Default(), stats)

	assert.Empty(t, stats.Inlined)
	assert.Len(t, out.Functions, 2)
}

func TestConstantPropagateFoldsBinaryOp(t *testing.T) {
	fn := &ssa.Function{
		Name: ssa.MainFunctionName,
		Blocks: []*ssa.BasicBlock{
			{ID: 0, Instructions: []ssa.Instruction{
				&ssa.LoadInt{Dest: 1, Value: 2},
				&ssa.LoadInt{Dest: 2, Value: 3},
				&ssa.BinaryOp{Dest: 3, Op: ssa.Add, Left: 1, Right: 2},
			}, Terminator: &ssa.Return{Values: []ssa.Register{3}}},
		},
	}
	folded := FoldFunction(fn)

	assert.Equal(t, 1, folded)
	li, ok := fn.Blocks[0].Instructions[2].(*ssa.LoadInt)
	require.True(t, ok)
	assert.Equal(t, int64(5), li.Value)
}

func TestConstantPropagateStopsAtCallBoundary(t *testing.T) {
	fn := &ssa.Function{
		Name: ssa.MainFunctionName,
		Blocks: []*ssa.BasicBlock{
			{ID: 0, Instructions: []ssa.Instruction{
				&ssa.LoadInt{Dest: 1, Value: 2},
				&ssa.Call{Dests_: []ssa.Register{2}, Callee: "mystery"},
				&ssa.BinaryOp{Dest: 3, Op: ssa.Add, Left: 1, Right: 2},
			}, Terminator: &ssa.Return{Values: []ssa.Register{3}}},
		},
	}
	folded := FoldFunction(fn)
	assert.Equal(t, 0, folded)
}

func TestSpecializeCallSitesBakesInSharedLiteral(t *testing.T) {
	addTen := &ssa.Function{
		Name:   "add_ten",
		Params: []ssa.Register{1},
		Blocks: []*ssa.BasicBlock{
			{ID: 0, Instructions: []ssa.Instruction{
				&ssa.LoadInt{Dest: 2, Value: 10},
				&ssa.BinaryOp{Dest: 3, Op: ssa.Add, Left: 1, Right: 2},
			}, Terminator: &ssa.Return{Values: []ssa.Register{3}}},
		},
	}
	main := &ssa.Function{
		Name: ssa.MainFunctionName,
		Blocks: []*ssa.BasicBlock{
			{ID: 0, Instructions: []ssa.Instruction{
				&ssa.LoadInt{Dest: 10, Value: 7},
				&ssa.Call{Dests_: []ssa.Register{11}, Callee: "add_ten", Args: []ssa.Register{10}},
				&ssa.LoadInt{Dest: 20, Value: 7},
				&ssa.Call{Dests_: []ssa.Register{21}, Callee: "add_ten", Args: []ssa.Register{20}},
			}, Terminator: &ssa.Return{Values: []ssa.Register{11, 21}}},
		},
	}
	p := &ssa.Program{Functions: []*ssa.Function{main, addTen}}
	stats := &Stats{}

	out := specializeCallSites(p, config.Default(), stats)

	require.Len(t, stats.Specialized, 1)
	specName := stats.Specialized[0]
	spec := out.FunctionByName(specName)
	require.NotNil(t, spec)
	assert.Empty(t, spec.Params)

	mainFn := out.FunctionByName(ssa.MainFunctionName)
	for _, inst := range mainFn.Blocks[0].Instructions {
		if call, ok := inst.(*ssa.Call); ok {
			assert.Equal(t, specName, call.Callee)
			assert.Empty(t, call.Args)
		}
	}
}
