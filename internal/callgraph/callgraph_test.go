package callgraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fifth/internal/ssa"
)

func chainProgram() *ssa.Program {
	// __main__ -> a -> b -> c, a simple non-recursive chain.
	mkFn := func(name string, calls ...string) *ssa.Function {
		var insts []ssa.Instruction
		for _, c := range calls {
			insts = append(insts, &ssa.Call{Callee: c})
		}
		return &ssa.Function{
			Name: name,
			Blocks: []*ssa.BasicBlock{
				{ID: 0, Instructions: insts, Terminator: &ssa.Return{}},
			},
		}
	}
	return &ssa.Program{Functions: []*ssa.Function{
		mkFn(ssa.MainFunctionName, "a"),
		mkFn("a", "b"),
		mkFn("b", "c"),
		mkFn("c"),
	}}
}

func TestBuildDirectEdges(t *testing.T) {
	g := Build(chainProgram())
	e, ok := g.EdgeBetween(ssa.MainFunctionName, "a")
	require.True(t, ok)
	assert.Equal(t, Direct, e.Tag)
	assert.Equal(t, 1, e.Count)
}

func TestRecursiveEdgeTag(t *testing.T) {
	fn := &ssa.Function{
		Name: "fact",
		Blocks: []*ssa.BasicBlock{
			{ID: 0, Instructions: []ssa.Instruction{&ssa.Call{Dests_: []ssa.Register{1}, Callee: "fact"}}, Terminator: &ssa.Return{}},
		},
	}
	g := Build(&ssa.Program{Functions: []*ssa.Function{fn}})
	e, ok := g.EdgeBetween("fact", "fact")
	require.True(t, ok)
	assert.Equal(t, Recursive, e.Tag)
}

func TestTailCallEdgeTag(t *testing.T) {
	fn := &ssa.Function{
		Name: "caller",
		Blocks: []*ssa.BasicBlock{
			{ID: 0, Instructions: []ssa.Instruction{&ssa.Call{Dests_: []ssa.Register{1}, Callee: "callee"}}, Terminator: &ssa.Return{Values: []ssa.Register{1}}},
		},
	}
	callee := &ssa.Function{Name: "callee", Blocks: []*ssa.BasicBlock{{ID: 0, Terminator: &ssa.Return{}}}}
	g := Build(&ssa.Program{Functions: []*ssa.Function{fn, callee}})
	e, ok := g.EdgeBetween("caller", "callee")
	require.True(t, ok)
	assert.Equal(t, TailCall, e.Tag)
}

func TestReachableFromPrunesUnreachable(t *testing.T) {
	p := chainProgram()
	p.Functions = append(p.Functions, &ssa.Function{Name: "dead", Blocks: []*ssa.BasicBlock{{ID: 0, Terminator: &ssa.Return{}}}})
	g := Build(p)
	reachable := g.ReachableFrom(ssa.MainFunctionName)

	assert.True(t, reachable[ssa.MainFunctionName])
	assert.True(t, reachable["a"])
	assert.True(t, reachable["b"])
	assert.True(t, reachable["c"])
	assert.False(t, reachable["dead"])
}

func TestTopologicalOrderIsCalleesFirst(t *testing.T) {
	g := Build(chainProgram())
	order := g.TopologicalOrder()

	pos := map[string]int{}
	for i, n := range order {
		pos[n] = i
	}
	assert.Less(t, pos["c"], pos["b"])
	assert.Less(t, pos["b"], pos["a"])
	assert.Less(t, pos["a"], pos[ssa.MainFunctionName])
}

func TestSCCsGroupMutualRecursion(t *testing.T) {
	pingPong := &ssa.Program{Functions: []*ssa.Function{
		{Name: "ping", Blocks: []*ssa.BasicBlock{{ID: 0, Instructions: []ssa.Instruction{&ssa.Call{Callee: "pong"}}, Terminator: &ssa.Return{}}}},
		{Name: "pong", Blocks: []*ssa.BasicBlock{{ID: 0, Instructions: []ssa.Instruction{&ssa.Call{Callee: "ping"}}, Terminator: &ssa.Return{}}}},
	}}
	g := Build(pingPong)
	sccs := g.SCCs()

	var found bool
	for _, comp := range sccs {
		if len(comp) == 2 {
			found = true
		}
	}
	assert.True(t, found, "expected ping/pong to land in one two-node SCC")
}
