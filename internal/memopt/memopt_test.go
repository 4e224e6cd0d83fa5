package memopt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fifth/internal/config"
	"fifth/internal/ssa"
)

func TestClassifyAddressesTagsAllocatorResult(t *testing.T) {
	fn := &ssa.Function{
		Name: "make-buffer",
		Blocks: []*ssa.BasicBlock{{ID: 0, Instructions: []ssa.Instruction{
			&ssa.SystemCall{Dests_: []ssa.Register{1}, Name: "malloc"},
			&ssa.LoadInt{Dest: 2, Value: 0},
			&ssa.Store{Addr: 1, Value: 2, Ty: ssa.MemInt},
		}, Terminator: &ssa.Return{}}},
	}
	classes := classifyAddresses(fn)
	assert.Equal(t, ClassHeap, classes[1])
}

func TestClassifyAddressesDefaultsUnknown(t *testing.T) {
	fn := &ssa.Function{
		Name: "f",
		Blocks: []*ssa.BasicBlock{{ID: 0, Instructions: []ssa.Instruction{
			&ssa.Load{Dest: 2, Addr: 1, Ty: ssa.MemInt},
		}, Terminator: &ssa.Return{}}},
	}
	classes := classifyAddresses(fn)
	assert.Equal(t, ClassUnknown, classes[1])
}

func TestMayAliasSameRegisterAlwaysAliases(t *testing.T) {
	classes := map[ssa.Register]Class{1: ClassHeap}
	assert.True(t, mayAlias(classes, 1, 1))
}

func TestMayAliasDistinctKnownClassesProvablyDoNot(t *testing.T) {
	classes := map[ssa.Register]Class{1: ClassHeap, 2: ClassStack}
	assert.False(t, mayAlias(classes, 1, 2))
}

func TestMayAliasUnknownIsConservative(t *testing.T) {
	classes := map[ssa.Register]Class{1: ClassHeap, 2: ClassUnknown}
	assert.True(t, mayAlias(classes, 1, 2))
}

func TestReorderLoadsAdvancesPastUnrelatedArithmetic(t *testing.T) {
	insts := []ssa.Instruction{
		&ssa.LoadInt{Dest: 1, Value: 5},
		&ssa.LoadInt{Dest: 2, Value: 7},
		&ssa.BinaryOp{Dest: 3, Op: ssa.Add, Left: 1, Right: 2},
		&ssa.Load{Dest: 4, Addr: 1, Ty: ssa.MemInt},
	}
	classes := map[ssa.Register]Class{1: ClassUnknown}
	out, moved := reorderLoads(insts, classes, 16)

	require.Equal(t, 1, moved)
	loadIdx := -1
	for i, inst := range out {
		if _, ok := inst.(*ssa.Load); ok {
			loadIdx = i
		}
	}
	assert.Less(t, loadIdx, 3, "load should have advanced earlier than the binary op that does not touch its address")
}

func TestReorderLoadsBlockedByAliasingStore(t *testing.T) {
	insts := []ssa.Instruction{
		&ssa.LoadInt{Dest: 1, Value: 5},
		&ssa.Store{Addr: 1, Value: 1, Ty: ssa.MemInt},
		&ssa.Load{Dest: 2, Addr: 1, Ty: ssa.MemInt},
	}
	classes := map[ssa.Register]Class{1: ClassUnknown}
	out, moved := reorderLoads(insts, classes, 16)

	assert.Equal(t, 0, moved)
	_, stillStoreFirst := out[1].(*ssa.Store)
	assert.True(t, stillStoreFirst)
}

func TestReorderLoadsRespectsWindowBound(t *testing.T) {
	insts := []ssa.Instruction{
		&ssa.LoadInt{Dest: 1, Value: 1},
		&ssa.LoadInt{Dest: 2, Value: 2},
		&ssa.LoadInt{Dest: 3, Value: 3},
		&ssa.Load{Dest: 4, Addr: 99, Ty: ssa.MemInt},
	}
	classes := map[ssa.Register]Class{99: ClassUnknown}
	out, moved := reorderLoads(insts, classes, 1)

	assert.Equal(t, 1, moved)
	loadIdx := -1
	for i, inst := range out {
		if _, ok := inst.(*ssa.Load); ok {
			loadIdx = i
		}
	}
	assert.Equal(t, 2, loadIdx, "window of 1 allows exactly one position of advancement")
}

func TestInsertPrefetchHintsFiresOnLoadDenseLoop(t *testing.T) {
	fn := &ssa.Function{
		Name: "walk",
		Blocks: []*ssa.BasicBlock{
			{ID: 0, Terminator: &ssa.Jump{Target: 1}},
			{ID: 1, Preds: []ssa.BlockID{0, 1}, Instructions: []ssa.Instruction{
				&ssa.Load{Dest: 2, Addr: 1, Ty: ssa.MemInt},
				&ssa.Load{Dest: 3, Addr: 1, Ty: ssa.MemInt},
				&ssa.LoadInt{Dest: 4, Value: 0},
			}, Terminator: &ssa.Branch{Cond: 4, TrueBlock: 1, FalseBlock: 2}},
			{ID: 2, Preds: []ssa.BlockID{1}, Terminator: &ssa.Return{}},
		},
	}
	inserted := insertPrefetchHints(fn, 8)

	assert.Equal(t, 2, inserted)
	body := fn.BlockByID(1)
	comments := 0
	for _, inst := range body.Instructions {
		if c, ok := inst.(*ssa.Comment); ok {
			assert.Contains(t, c.Text, "prefetch distance=8")
			comments++
		}
	}
	assert.Equal(t, 2, comments)
}

func TestInsertPrefetchHintsSkipsLoadSparseLoop(t *testing.T) {
	fn := &ssa.Function{
		Name: "count",
		Blocks: []*ssa.BasicBlock{
			{ID: 0, Terminator: &ssa.Jump{Target: 1}},
			{ID: 1, Preds: []ssa.BlockID{0, 1}, Instructions: []ssa.Instruction{
				&ssa.LoadInt{Dest: 2, Value: 1},
				&ssa.BinaryOp{Dest: 3, Op: ssa.Add, Left: 2, Right: 2},
				&ssa.LoadInt{Dest: 4, Value: 0},
			}, Terminator: &ssa.Branch{Cond: 4, TrueBlock: 1, FalseBlock: 2}},
			{ID: 2, Preds: []ssa.BlockID{1}, Terminator: &ssa.Return{}},
		},
	}
	inserted := insertPrefetchHints(fn, 8)
	assert.Equal(t, 0, inserted)
}

func TestMarkCacheGroupsMatchesHotDataName(t *testing.T) {
	fn := &ssa.Function{
		Name:       "line-buffer",
		Blocks:     []*ssa.BasicBlock{{ID: 0, Terminator: &ssa.Return{}}},
		EntryBlock: 0,
	}
	ok := markCacheGroups(fn)

	require.True(t, ok)
	entry := fn.BlockByID(0)
	require.Len(t, entry.Instructions, 1)
	comment := entry.Instructions[0].(*ssa.Comment)
	assert.Equal(t, "cache-line-aligned", comment.Text)
}

func TestMarkCacheGroupsSkipsOrdinaryName(t *testing.T) {
	fn := &ssa.Function{
		Name:       "square",
		Blocks:     []*ssa.BasicBlock{{ID: 0, Terminator: &ssa.Return{}}},
		EntryBlock: 0,
	}
	ok := markCacheGroups(fn)

	assert.False(t, ok)
	assert.Empty(t, fn.BlockByID(0).Instructions)
}

func TestRunAppliesFullPipelineAndValidates(t *testing.T) {
	fn := &ssa.Function{
		Name:       ssa.MainFunctionName,
		EntryBlock: 0,
		Blocks: []*ssa.BasicBlock{{ID: 0, Instructions: []ssa.Instruction{
			&ssa.LoadInt{Dest: 1, Value: 5},
			&ssa.Load{Dest: 2, Addr: 1, Ty: ssa.MemInt},
		}, Terminator: &ssa.Return{Values: []ssa.Register{2}}}},
	}
	p := &ssa.Program{Functions: []*ssa.Function{fn}}

	out, stats, err := Run(p, config.Default())

	require.NoError(t, err)
	require.NotNil(t, out)
	assert.NotNil(t, stats)
}
