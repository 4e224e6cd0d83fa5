package pgo

import (
	"sort"

	"fifth/internal/config"
	"fifth/internal/ssa"
)

// Selected is one pattern chosen for fusion after hotness filtering and
// ROI ranking (spec.md §4.6).
type Selected struct {
	Key        Key
	Length     int
	CyclesSaved int64
	ROI        float64
}

// Select applies the hotness threshold named by mode, then ranks the
// survivors by ROI (cycles saved per instruction occupied) and keeps
// the top max. Fixed modes use PGOThresholdMode.MinCount(); Adaptive
// computes the 99th percentile of observed counts across db (spec.md
// §4.6: "an adaptive threshold defined as the 99th percentile of
// pattern counts").
func Select(db *Database, mode config.PGOThresholdMode, max int) []Selected {
	threshold := mode.MinCount()
	if mode == config.Adaptive {
		threshold = percentile99(db)
	}

	var candidates []Selected
	for key, stats := range db.Entries {
		if stats.Count < threshold {
			continue
		}
		length := patternLength(key)
		savedPerExec := int64(length*CyclesPerNonFusedInstruction - CyclesPerFusedInstruction)
		if savedPerExec <= 0 {
			continue
		}
		total := savedPerExec * int64(stats.Count)
		candidates = append(candidates, Selected{
			Key:         key,
			Length:      length,
			CyclesSaved: total,
			ROI:         float64(total) / float64(length),
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].ROI != candidates[j].ROI {
			return candidates[i].ROI > candidates[j].ROI
		}
		return candidates[i].Key < candidates[j].Key
	})

	if max > 0 && len(candidates) > max {
		candidates = candidates[:max]
	}
	return candidates
}

func percentile99(db *Database) int {
	if len(db.Entries) == 0 {
		return 0
	}
	counts := make([]int, 0, len(db.Entries))
	for _, s := range db.Entries {
		counts = append(counts, s.Count)
	}
	sort.Ints(counts)
	idx := (99 * (len(counts) - 1)) / 100
	return counts[idx]
}

// patternLength returns the window length a key was collected at: 1
// for the reflexive (Dup*/Zero*) keys, otherwise the number of
// "|"-joined shapes.
func patternLength(key Key) int {
	switch key {
	case "dup_add", "dup_mul", "zero_eq", "zero_lt", "zero_gt":
		return 1
	}
	n := 1
	for _, c := range string(key) {
		if c == '|' {
			n++
		}
	}
	return n
}

// Stats reports what Apply did, for diagnostics and tests.
type Stats struct {
	FusionsApplied  int
	CyclesSaved     int64
	EstimatedSpeedup float64
}

// Apply greedily rewrites every function in p: at each instruction
// position it tries the selected patterns longest-first, emitting a
// Fused instruction and advancing past the whole matched window on a
// hit, copying the instruction unchanged otherwise (spec.md §4.6,
// "greedy longest-match"). Patterns not in selected are left alone,
// the hotness/ROI gate from Select having already decided they are
// not worth fusing.
func Apply(p *ssa.Program, selected []Selected) *Stats {
	chosen := map[Key]bool{}
	for _, s := range selected {
		chosen[s.Key] = true
	}
	stats := &Stats{}

	for _, fn := range p.Functions {
		zero := zeroRegisters(fn)
		for _, b := range fn.Blocks {
			b.Instructions = fuseBlock(fn, b.Instructions, zero, chosen, stats)
		}
	}
	if stats.FusionsApplied > 0 {
		stats.EstimatedSpeedup = 1 + float64(stats.CyclesSaved)/float64(1+stats.FusionsApplied*CyclesPerNonFusedInstruction)
	}
	return stats
}

func fuseBlock(fn *ssa.Function, insts []ssa.Instruction, zero map[ssa.Register]bool, chosen map[Key]bool, stats *Stats) []ssa.Instruction {
	out := make([]ssa.Instruction, 0, len(insts))

	i := 0
	for i < len(insts) {
		if key := reflexiveShapeOf(insts[i], zero); key != "" && chosen[Key(key)] {
			if f, ok := fuseReflexive(insts[i], key); ok {
				out = append(out, f)
				stats.FusionsApplied++
				stats.CyclesSaved += int64(CyclesPerNonFusedInstruction - CyclesPerFusedInstruction)
				i++
				continue
			}
		}

		matched := false
		for length := maxWindow; length >= minWindow; length-- {
			if i+length > len(insts) {
				continue
			}
			window := insts[i : i+length]
			key := Key(keyFor(window))
			if key == "" || !chosen[key] {
				continue
			}
			if f, ok := fuseWindow(window); ok {
				out = append(out, f)
				stats.FusionsApplied++
				stats.CyclesSaved += int64(length*CyclesPerNonFusedInstruction - CyclesPerFusedInstruction)
				i += length
				matched = true
				break
			}
		}
		if matched {
			continue
		}

		out = append(out, insts[i])
		i++
	}
	return out
}

// fuseReflexive builds the Fused instruction for a single same-register
// or compare-to-zero BinaryOp. Both cases reduce to one operand: the
// shared register for Dup*, the non-zero operand for Zero*.
func fuseReflexive(inst ssa.Instruction, key string) (ssa.Instruction, bool) {
	bin := inst.(*ssa.BinaryOp)
	var kind ssa.FusedKind
	switch key {
	case "dup_add":
		kind = ssa.DupAdd
	case "dup_mul":
		kind = ssa.DupMul
	case "zero_eq":
		kind = ssa.ZeroEq
	case "zero_lt":
		kind = ssa.ZeroLt
	case "zero_gt":
		kind = ssa.ZeroGt
	default:
		return nil, false
	}
	return &ssa.Fused{Dest: bin.Dest, Kind: kind, Operands: []ssa.Register{bin.Left}}, true
}

// fuseWindow recognizes a literal-then-binop window (length 2) against
// the named fusion catalogue (spec.md §4.6/§4.8). Longer windows have
// no recognizer yet and always fail to match, leaving the caller to
// fall through to shorter lengths or to copy the instruction as-is.
func fuseWindow(window []ssa.Instruction) (ssa.Instruction, bool) {
	if len(window) != 2 {
		return nil, false
	}
	lit, ok := window[0].(*ssa.LoadInt)
	if !ok {
		return nil, false
	}
	bin, ok := window[1].(*ssa.BinaryOp)
	if !ok {
		return nil, false
	}
	// Sub and Div are not commutative: "n - lit" and "n / lit" fuse to
	// DecOne/DivTwo only when the literal is the right operand. A
	// literal on the left (lit - n, lit / n) is a different value and
	// must not be fused as if it were the reflected form.
	var operand ssa.Register
	switch {
	case bin.Right == lit.Dest:
		operand = bin.Left
	case bin.Left == lit.Dest && bin.Op != ssa.Sub && bin.Op != ssa.Div:
		operand = bin.Right
	default:
		return nil, false
	}

	var kind ssa.FusedKind
	switch {
	case lit.Value == 1 && bin.Op == ssa.Add:
		kind = ssa.IncOne
	case lit.Value == 1 && bin.Op == ssa.Sub:
		kind = ssa.DecOne
	case lit.Value == 2 && bin.Op == ssa.Mul:
		kind = ssa.MulTwo
	case lit.Value == 2 && bin.Op == ssa.Div:
		kind = ssa.DivTwo
	case bin.Op == ssa.Add:
		kind = ssa.LiteralAdd
	case bin.Op == ssa.Mul:
		kind = ssa.LiteralMul
	default:
		return nil, false
	}

	return &ssa.Fused{Dest: bin.Dest, Kind: kind, Operands: []ssa.Register{operand}, Literal: lit.Value}, true
}
