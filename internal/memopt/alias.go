// Package memopt implements C9, the memory optimizer (spec.md §4.9):
// alias classification, a dependency graph over memory operations,
// latency-hiding load reordering within a sliding window, prefetch
// hint insertion for load-heavy loops, and cache-line grouping hints
// for hot-data words. Every transformation here is annotation-only or
// a reordering proven safe by the dependency graph, so the pass never
// changes program semantics.
package memopt

import (
	"strings"

	"fifth/internal/ssa"
)

// Class is the alias-classification domain a memory operation's
// address is believed to belong to (spec.md §4.9 "alias
// classification"). Pre-SSA context such as a preceding Dup/Drop/Over
// or >R/R> does not survive into this compiler's SSA form (the same
// erasure C6's reflexive-shape recognizer and C8's abstract-depth
// annotation both have to work around), so classification here is
// driven by how the address register was produced rather than by
// which Forth word preceded the access: an address returned by a call
// whose name contains "alloc" or "malloc" is Heap; anything else is
// Unknown. Stack and ReturnStack remain named classes a future
// frontend revision could populate (e.g. once DSP/RSP are modeled as
// SSA values), but nothing in this compiler's converter emits values
// tagged that way today.
type Class int

const (
	ClassUnknown Class = iota
	ClassStack
	ClassReturnStack
	ClassHeap
)

func (c Class) String() string {
	switch c {
	case ClassStack:
		return "stack"
	case ClassReturnStack:
		return "return-stack"
	case ClassHeap:
		return "heap"
	default:
		return "unknown"
	}
}

// classifyAddresses returns, for every register used as a Load/Store
// address anywhere in fn, its alias Class.
func classifyAddresses(fn *ssa.Function) map[ssa.Register]Class {
	defOf := map[ssa.Register]ssa.Instruction{}
	for _, b := range fn.Blocks {
		for _, inst := range b.Instructions {
			for _, d := range inst.Dests() {
				defOf[d] = inst
			}
		}
	}

	classes := map[ssa.Register]Class{}
	var classify func(reg ssa.Register) Class
	classify = func(reg ssa.Register) Class {
		def, ok := defOf[reg]
		if !ok {
			return ClassUnknown
		}
		switch v := def.(type) {
		case *ssa.SystemCall:
			if isAllocatorName(v.Name) {
				return ClassHeap
			}
		case *ssa.FFICall:
			if isAllocatorName(v.Symbol) {
				return ClassHeap
			}
		}
		return ClassUnknown
	}

	for _, b := range fn.Blocks {
		for _, inst := range b.Instructions {
			switch v := inst.(type) {
			case *ssa.Load:
				if _, ok := classes[v.Addr]; !ok {
					classes[v.Addr] = classify(v.Addr)
				}
			case *ssa.Store:
				if _, ok := classes[v.Addr]; !ok {
					classes[v.Addr] = classify(v.Addr)
				}
			}
		}
	}
	return classes
}

func isAllocatorName(name string) bool {
	lower := strings.ToLower(name)
	return strings.Contains(lower, "alloc") || strings.Contains(lower, "malloc")
}

// mayAlias reports whether two memory operations' points-to sets can
// share an element (spec.md §4.9: "may alias iff their computed
// points-to sets share any element; else they provably do not").
// Identical address registers always alias. Otherwise, two
// classified-and-distinct domains provably do not; anything touching
// Unknown is conservatively assumed to.
func mayAlias(classes map[ssa.Register]Class, addrA, addrB ssa.Register) bool {
	if addrA == addrB {
		return true
	}
	a, b := classes[addrA], classes[addrB]
	if a == ClassUnknown || b == ClassUnknown {
		return true
	}
	return a == b
}

// memOp reports whether inst reads or writes memory through an
// address register, and that register.
func memOp(inst ssa.Instruction) (addr ssa.Register, isLoad, isStore bool) {
	switch v := inst.(type) {
	case *ssa.Load:
		return v.Addr, true, false
	case *ssa.Store:
		return v.Addr, false, true
	default:
		return 0, false, false
	}
}
