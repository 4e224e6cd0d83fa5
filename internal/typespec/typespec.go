// Package typespec implements C7, the type specializer (spec.md
// §4.7): given an externally supplied per-call-site type signature
// bundle, it monomorphizes words called with more than one concrete
// signature (or with any signature naming Int/Float) into mangled,
// type-specific clones, and rewrites call sites to the matching clone.
//
// This pass is gated by config.PipelineConfig.EnableTypeSpecializer:
// without a real signature bundle supplied by an external type
// inference tool, there is nothing to specialize on, and Run is a
// no-op (spec.md §6, §9 "external type inference bundle").
package typespec

import (
	"fmt"
	"sort"
	"strings"

	"fifth/internal/config"
	"fifth/internal/ssa"
)

// CellType names a concrete stack-cell type a call site's arguments
// were inferred to carry (spec.md §4.7).
type CellType int

const (
	Int CellType = iota
	Float
	Addr
	Bool
	Char
	String
)

var suffixes = map[CellType]string{
	Int: "INT", Float: "FLOAT", Addr: "ADDR", Bool: "BOOL", Char: "CHAR", String: "STRING",
}

func (t CellType) Suffix() string {
	if s, ok := suffixes[t]; ok {
		return s
	}
	return "UNKNOWN"
}

// Signature is the concrete input types one call site was inferred to
// pass. The first element is the primary type driving arithmetic
// lowering (spec.md §4.7 step 3).
type Signature struct {
	Inputs []CellType
}

func (s Signature) key() string {
	parts := make([]string, len(s.Inputs))
	for i, t := range s.Inputs {
		parts[i] = t.Suffix()
	}
	return strings.Join(parts, "_")
}

func (s Signature) primary() (CellType, bool) {
	if len(s.Inputs) == 0 {
		return 0, false
	}
	return s.Inputs[0], true
}

func (s Signature) mentionsIntOrFloat() bool {
	for _, t := range s.Inputs {
		if t == Int || t == Float {
			return true
		}
	}
	return false
}

// Bundle is the external "type inference results" collaborator named
// in spec.md §6: a signature for a given word at a given call-site
// index (call sites to the same word are numbered in the order Run
// encounters them, 0-based).
type Bundle interface {
	SignatureFor(word string, callIndex int) (Signature, bool)
}

// MapBundle is a convenience in-memory Bundle, the shape a driver
// loading a JSON type-inference report would populate.
type MapBundle map[string]map[int]Signature

func (b MapBundle) SignatureFor(word string, callIndex int) (Signature, bool) {
	sites, ok := b[word]
	if !ok {
		return Signature{}, false
	}
	sig, ok := sites[callIndex]
	return sig, ok
}

// Stats reports what Run did, for diagnostics and tests.
type Stats struct {
	PolymorphicWords     int
	Specializations      int
	CallSitesRewritten   int
	DispatchEliminations int
	CodeSizeDelta        int
}

type callSite struct {
	fn    *ssa.Function
	block *ssa.BasicBlock
	idx   int
	call  *ssa.Call
}

// Run applies C7. If cfg disables the specializer or bundle is nil,
// the program is returned unchanged.
func Run(p *ssa.Program, bundle Bundle, cfg config.PipelineConfig) (*ssa.Program, *Stats, error) {
	stats := &Stats{}
	if !cfg.EnableTypeSpecializer || bundle == nil {
		return p, stats, nil
	}

	sitesByWord := map[string][]callSite{}
	for _, fn := range p.Functions {
		for _, b := range fn.Blocks {
			for idx, inst := range b.Instructions {
				if call, ok := inst.(*ssa.Call); ok {
					sitesByWord[call.Callee] = append(sitesByWord[call.Callee], callSite{fn: fn, block: b, idx: idx, call: call})
				}
			}
		}
	}

	byName := map[string]*ssa.Function{}
	for _, fn := range p.Functions {
		byName[fn.Name] = fn
	}

	for word, sites := range sitesByWord {
		target := byName[word]
		if target == nil {
			continue
		}

		seen := map[string]Signature{}
		perSite := make([]Signature, len(sites))
		hasSig := make([]bool, len(sites))
		for i := range sites {
			sig, ok := bundle.SignatureFor(word, i)
			if !ok {
				continue
			}
			perSite[i] = sig
			hasSig[i] = true
			seen[sig.key()] = sig
		}
		if len(seen) == 0 {
			continue
		}

		needsMentioned := false
		for _, sig := range seen {
			if sig.mentionsIntOrFloat() {
				needsMentioned = true
			}
		}
		if len(seen) < 2 && !needsMentioned {
			continue
		}
		stats.PolymorphicWords++

		clones := map[string]*ssa.Function{}
		keys := make([]string, 0, len(seen))
		for k := range seen {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			sig := seen[k]
			name := fmt.Sprintf("%s_%s", word, k)
			clones[k] = buildSpecialized(target, name, sig)
			stats.Specializations++
		}
		p.Functions = append(p.Functions, valuesOf(clones, keys)...)

		for i, site := range sites {
			if !hasSig[i] {
				continue
			}
			sig := perSite[i]
			clone := clones[sig.key()]
			site.call.Callee = clone.Name
			stats.CallSitesRewritten++
			stats.DispatchEliminations++
		}
	}

	return p, stats, nil
}

func valuesOf(clones map[string]*ssa.Function, keys []string) []*ssa.Function {
	out := make([]*ssa.Function, 0, len(keys))
	for _, k := range keys {
		out = append(out, clones[k])
	}
	return out
}

// buildSpecialized clones fn into name, retagging arithmetic and
// comparison instructions with a lowering hint for sig's primary type
// (spec.md §4.7 step 3). The IR's BinaryOp/UnaryOp opcodes do not carry
// a separate int/float variant (LoadInt/LoadFloat already distinguish
// the literal producers; an arithmetic opcode is reused for both,
// exactly as C5's constant folder already tracks dynamically via
// isFloat) so the lowering decision for the backend is recorded as a
// Comment hint immediately preceding the retagged instruction, the
// same annotation-only mechanism C9 uses for prefetch hints.
func buildSpecialized(fn *ssa.Function, name string, sig Signature) *ssa.Function {
	lookup := map[ssa.Register]ssa.Register{}
	nextReg := ssa.MaxRegister(fn) + 1
	fresh := func() ssa.Register {
		r := nextReg
		nextReg++
		return r
	}
	for _, p := range fn.Params {
		lookup[p] = fresh()
	}

	primary, hasPrimary := sig.primary()
	hint := ""
	if hasPrimary {
		switch primary {
		case Float:
			hint = "typespec: float-lowered"
		case Int:
			hint = "typespec: int-lowered"
		default:
			hint = "typespec: pass-through"
		}
	}

	newParams := make([]ssa.Register, len(fn.Params))
	for i, p := range fn.Params {
		newParams[i] = lookup[p]
	}

	newBlocks := make([]*ssa.BasicBlock, len(fn.Blocks))
	for i, b := range fn.Blocks {
		nb := &ssa.BasicBlock{ID: b.ID, Preds: append([]ssa.BlockID(nil), b.Preds...)}
		for _, inst := range b.Instructions {
			cloned := ssa.CloneInstruction(inst, lookup, fresh)
			if hint != "" && isArithmeticOrComparison(inst) {
				nb.Instructions = append(nb.Instructions, &ssa.Comment{Text: hint})
			}
			nb.Instructions = append(nb.Instructions, cloned)
		}
		newBlocks[i] = nb
	}
	for i, b := range fn.Blocks {
		newBlocks[i].Terminator = ssa.ReplaceRegistersInTerminator(b.Terminator, lookup)
	}

	return &ssa.Function{Name: name, Params: newParams, Blocks: newBlocks, EntryBlock: fn.EntryBlock}
}

func isArithmeticOrComparison(inst ssa.Instruction) bool {
	switch inst.(type) {
	case *ssa.BinaryOp, *ssa.UnaryOp:
		return true
	default:
		return false
	}
}
