// Package callgraph builds the whole-program call graph shared by C5
// (whole-program optimizer) and C6 (PGO engine), per spec.md §3.4.
package callgraph

import "fifth/internal/ssa"

// EdgeTag classifies one call edge.
type EdgeTag int

const (
	Direct EdgeTag = iota
	Recursive
	TailCall
)

func (t EdgeTag) String() string {
	switch t {
	case Recursive:
		return "recursive"
	case TailCall:
		return "tail-call"
	default:
		return "direct"
	}
}

// Edge is one call relationship, caller -> callee, with a multiplicity
// (how many call sites produced it) and a tag.
type Edge struct {
	Caller, Callee string
	Count          int
	Tag            EdgeTag
}

// Graph is the whole-program call graph. Nodes are function names
// (including the synthetic ssa.MainFunctionName); edges are keyed by
// (caller, callee) pair.
type Graph struct {
	Nodes map[string]bool
	Edges map[[2]string]*Edge
}

// Build walks every function's instructions, recording a call edge for
// each ssa.Call whose callee is itself a function in the program
// (calls to unresolved builtins like "." are not graph edges).
func Build(p *ssa.Program) *Graph {
	g := &Graph{Nodes: map[string]bool{}, Edges: map[[2]string]*Edge{}}
	names := map[string]bool{}
	for _, fn := range p.Functions {
		names[fn.Name] = true
		g.Nodes[fn.Name] = true
	}

	for _, fn := range p.Functions {
		for _, b := range fn.Blocks {
			for idx, inst := range b.Instructions {
				call, ok := inst.(*ssa.Call)
				if !ok || !names[call.Callee] {
					continue
				}
				tag := Direct
				if call.Callee == fn.Name {
					tag = Recursive
				} else if isTailCall(b, idx) {
					tag = TailCall
				}
				key := [2]string{fn.Name, call.Callee}
				if e, ok := g.Edges[key]; ok {
					e.Count++
					if tag == TailCall && e.Tag == Direct {
						e.Tag = TailCall
					}
				} else {
					g.Edges[key] = &Edge{Caller: fn.Name, Callee: call.Callee, Count: 1, Tag: tag}
				}
			}
		}
	}
	return g
}

// isTailCall reports whether the instruction at idx is the last
// instruction of its block and the block's terminator is a Return
// consuming that instruction's destination (spec.md §4.5: "TailCall if
// the call is the last instruction or immediately followed by
// return").
func isTailCall(b *ssa.BasicBlock, idx int) bool {
	if idx != len(b.Instructions)-1 {
		return false
	}
	ret, ok := b.Terminator.(*ssa.Return)
	if !ok {
		return false
	}
	call := b.Instructions[idx].(*ssa.Call)
	if len(call.Dests_) == 0 {
		return len(ret.Values) == 0
	}
	for _, d := range call.Dests_ {
		for _, v := range ret.Values {
			if v == d {
				return true
			}
		}
	}
	return false
}

// CalleesOf returns the direct callees of name.
func (g *Graph) CalleesOf(name string) []string {
	var out []string
	for _, e := range g.Edges {
		if e.Caller == name {
			out = append(out, e.Callee)
		}
	}
	return out
}

// CallersOf returns the direct callers of name.
func (g *Graph) CallersOf(name string) []string {
	var out []string
	for _, e := range g.Edges {
		if e.Callee == name {
			out = append(out, e.Caller)
		}
	}
	return out
}

// EdgeBetween returns the edge from caller to callee, if any.
func (g *Graph) EdgeBetween(caller, callee string) (*Edge, bool) {
	e, ok := g.Edges[[2]string{caller, callee}]
	return e, ok
}

// ReachableFrom returns the forward transitive closure of root,
// including root itself (spec.md §4.5 dead-code elimination basis).
func (g *Graph) ReachableFrom(root string) map[string]bool {
	seen := map[string]bool{root: true}
	queue := []string{root}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		for _, callee := range g.CalleesOf(n) {
			if !seen[callee] {
				seen[callee] = true
				queue = append(queue, callee)
			}
		}
	}
	return seen
}

// SCCs returns the strongly connected components of the graph via
// Tarjan's algorithm, used to identify recursive clusters (spec.md
// §3.4, §9 "Cyclic structures").
func (g *Graph) SCCs() [][]string {
	t := &tarjan{
		graph:   g,
		index:   map[string]int{},
		lowlink: map[string]int{},
		onStack: map[string]bool{},
	}
	for n := range g.Nodes {
		if _, visited := t.index[n]; !visited {
			t.strongconnect(n)
		}
	}
	return t.result
}

type tarjan struct {
	graph   *Graph
	counter int
	index   map[string]int
	lowlink map[string]int
	onStack map[string]bool
	stack   []string
	result  [][]string
}

func (t *tarjan) strongconnect(v string) {
	t.index[v] = t.counter
	t.lowlink[v] = t.counter
	t.counter++
	t.stack = append(t.stack, v)
	t.onStack[v] = true

	for _, w := range t.graph.CalleesOf(v) {
		if _, visited := t.index[w]; !visited {
			t.strongconnect(w)
			if t.lowlink[w] < t.lowlink[v] {
				t.lowlink[v] = t.lowlink[w]
			}
		} else if t.onStack[w] {
			if t.index[w] < t.lowlink[v] {
				t.lowlink[v] = t.index[w]
			}
		}
	}

	if t.lowlink[v] == t.index[v] {
		var comp []string
		for {
			n := len(t.stack) - 1
			w := t.stack[n]
			t.stack = t.stack[:n]
			t.onStack[w] = false
			comp = append(comp, w)
			if w == v {
				break
			}
		}
		t.result = append(t.result, comp)
	}
}

// TopologicalOrder returns function names ordered callees-before-
// callers, condensing each SCC into one position. Within an SCC, order
// is unspecified (the condensation is what is topologically sorted).
func (g *Graph) TopologicalOrder() []string {
	sccOf := map[string]int{}
	sccs := g.SCCs()
	for i, comp := range sccs {
		for _, n := range comp {
			sccOf[n] = i
		}
	}

	condensedEdges := map[int]map[int]bool{}
	for _, e := range g.Edges {
		a, b := sccOf[e.Caller], sccOf[e.Callee]
		if a == b {
			continue
		}
		if condensedEdges[a] == nil {
			condensedEdges[a] = map[int]bool{}
		}
		condensedEdges[a][b] = true
	}

	visited := make([]bool, len(sccs))
	var order []int
	var visit func(i int)
	visit = func(i int) {
		if visited[i] {
			return
		}
		visited[i] = true
		for callee := range condensedEdges[i] {
			visit(callee)
		}
		order = append(order, i)
	}
	for i := range sccs {
		visit(i)
	}

	var out []string
	for _, i := range order {
		out = append(out, sccs[i]...)
	}
	return out
}
