// Package pgo implements C6: collecting hot instruction n-grams,
// ranking them by ROI, and greedily replacing sequences with
// superinstructions (spec.md §4.6). The pattern database is tagged
// with github.com/google/uuid so an external LRU cache can address a
// snapshot independent of its content hash (spec.md §5, §6); the cache
// itself is read through golang.org/x/sync/singleflight to collapse
// concurrent misses from independent compilations sharing one
// process-wide cache without threading a mutex through the otherwise
// pure pass.
package pgo

import (
	"fmt"

	"github.com/google/uuid"

	"fifth/internal/config"
	"fifth/internal/ssa"
)

// Cost model named constants (spec.md §4.6), lifted out of the formula
// text into explicit values the way the original Rust implementation
// hardcodes them.
const (
	CyclesPerNonFusedInstruction = 3
	CyclesPerFusedInstruction    = 1
)

// Key is a pattern key: a contiguous window of instruction shapes,
// compared structurally (operator/opcode and any embedded literal
// value) rather than by register identity, since the same fusion
// opportunity recurs across functions with different register
// numbering.
type Key string

// PatternStats accumulates occurrence counts and cycle estimates for
// one pattern key (spec.md §4.6).
type PatternStats struct {
	Count       int
	TotalCycles int64
}

// AvgCycles returns the mean measured or estimated cycle cost per
// occurrence.
func (s PatternStats) AvgCycles() float64 {
	if s.Count == 0 {
		return 0
	}
	return float64(s.TotalCycles) / float64(s.Count)
}

// Database is one compilation's pattern database: every window of
// every allowed length (2..5), across every function and top-level
// code.
type Database struct {
	ID      uuid.UUID
	Entries map[Key]*PatternStats
}

// NewDatabase creates an empty, freshly identified database.
func NewDatabase() *Database {
	return &Database{ID: uuid.New(), Entries: map[Key]*PatternStats{}}
}

const (
	minWindow = 2
	maxWindow = 5
)

// Profile is the optional external profiler feed named in spec.md §6:
// pattern_key -> (count, total_cycles). When absent, Collect falls
// back to the analytical cost model.
type Profile map[Key]PatternStats

// Collect walks every block of every function, recording every window
// of length 2..5 into db. If profile is non-nil, measured counts and
// cycles for a key are taken from it; otherwise Collect assumes one
// occurrence per window found in the IR and estimates its cycle cost
// as CyclesPerNonFusedInstruction per instruction in the window.
func Collect(p *ssa.Program, profile Profile) *Database {
	db := NewDatabase()
	record := func(key Key, length int) {
		if key == "" {
			return
		}
		entry, ok := db.Entries[key]
		if !ok {
			entry = &PatternStats{}
			db.Entries[key] = entry
		}
		if profile != nil {
			if measured, ok := profile[key]; ok {
				entry.Count = measured.Count
				entry.TotalCycles = measured.TotalCycles
				return
			}
		}
		entry.Count++
		entry.TotalCycles += int64(length * CyclesPerNonFusedInstruction)
	}

	for _, fn := range p.Functions {
		zero := zeroRegisters(fn)
		for _, b := range fn.Blocks {
			insts := b.Instructions // terminators are never part of a pattern window

			// Same-register and compare-to-zero shapes (Dup*/Zero*):
			// these correspond to a single fused SSA instruction since
			// dup/drop/swap/over/rot never themselves produce
			// instructions (spec.md §4.3) — the "two Forth words"
			// the fusion catalogue names collapsed into register
			// identity before C6 ever runs.
			for _, inst := range insts {
				if key := reflexiveShapeOf(inst, zero); key != "" {
					record(Key(key), 1)
				}
			}

			for length := minWindow; length <= maxWindow; length++ {
				for start := 0; start+length <= len(insts); start++ {
					window := insts[start : start+length]
					record(Key(keyFor(window)), length)
				}
			}
		}
	}
	return db
}

// zeroRegisters returns the set of registers known to hold the
// compile-time constant 0 via a LoadInt in fn, the basis for
// recognizing the Zero{Eq,Lt,Gt} fusions.
func zeroRegisters(fn *ssa.Function) map[ssa.Register]bool {
	zero := map[ssa.Register]bool{}
	for _, b := range fn.Blocks {
		for _, inst := range b.Instructions {
			if li, ok := inst.(*ssa.LoadInt); ok && li.Value == 0 {
				zero[li.Dest] = true
			}
		}
	}
	return zero
}

// reflexiveShapeOf matches BinaryOp instructions whose operand
// identity (not a window of neighboring instructions) is what makes
// them fusable.
func reflexiveShapeOf(inst ssa.Instruction, zero map[ssa.Register]bool) string {
	bin, ok := inst.(*ssa.BinaryOp)
	if !ok {
		return ""
	}
	if bin.Left == bin.Right {
		switch bin.Op {
		case ssa.Add:
			return "dup_add"
		case ssa.Mul:
			return "dup_mul"
		}
	}
	if zero[bin.Right] {
		switch bin.Op {
		case ssa.Eq:
			return "zero_eq"
		case ssa.Lt:
			return "zero_lt"
		case ssa.Gt:
			return "zero_gt"
		}
	}
	return ""
}

// keyFor builds a structural key for a window, or "" if the window
// contains an instruction shape this repository's fusion catalogue
// never matches (keeping the database limited to fusable candidates).
func keyFor(window []ssa.Instruction) string {
	parts := make([]string, len(window))
	for i, inst := range window {
		s, ok := shapeOf(inst)
		if !ok {
			return ""
		}
		parts[i] = s
	}
	key := ""
	for i, p := range parts {
		if i > 0 {
			key += "|"
		}
		key += p
	}
	return key
}

// shapeOf reduces an instruction to a register-independent shape:
// opcode, plus any literal value for LoadInt (since LiteralAdd/Mul and
// the IncOne/DecOne/MulTwo/DivTwo fusions key on the literal's value,
// not its register).
func shapeOf(inst ssa.Instruction) (string, bool) {
	switch v := inst.(type) {
	case *ssa.LoadInt:
		return fmt.Sprintf("load_int(%d)", v.Value), true
	case *ssa.BinaryOp:
		return fmt.Sprintf("binop(%s)", v.Op), true
	case *ssa.UnaryOp:
		return fmt.Sprintf("unop(%s)", v.Op), true
	default:
		return "", false
	}
}
