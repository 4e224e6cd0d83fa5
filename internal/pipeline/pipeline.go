// Package pipeline wires the compiler core's dataflow end to end
// (spec.md §2): source text → C1 lexer → C2 parser → C3 SSA converter
// → C4 validator → (C5..C9 in order) → C4 re-verify → C10 backend →
// target IR. Each optimizer pass is a pure IR → IR transformation that
// preserves the validator's invariants, so C4 runs twice: once on the
// converter's raw output and once more after the optimizer midsection,
// catching a misbehaving optional pass before it reaches the backend.
//
// Grounded on the teacher's own top-level `CompileFile` entry point
// (main.go / cmd/kanso-cli/main.go), which likewise threads source
// through lex → parse → typecheck → codegen as one linear call chain
// with no driver state beyond the PipelineConfig/Profile/Bundle inputs
// the passes themselves already declare.
package pipeline

import (
	"fifth/internal/ast"
	"fifth/internal/backend"
	"fifth/internal/config"
	"fifth/internal/memopt"
	"fifth/internal/optimizer"
	"fifth/internal/parser"
	"fifth/internal/pgo"
	"fifth/internal/ssa"
	"fifth/internal/targetir"
	"fifth/internal/typespec"
	"fifth/internal/zerocost"
)

// Options bundles every optional collaborator named in spec.md §6:
// PipelineConfig governs the optimizer passes and backend, Profile
// feeds the PGO pass real hotness data (falling back to the
// analytical cost model when empty), and Types feeds the type
// specializer (a no-op when Types is nil or Config disables it).
type Options struct {
	Config  config.PipelineConfig
	Profile pgo.Profile
	Types   typespec.Bundle
}

// Result collects each stage's output and statistics, so a driver can
// report optimizer effect sizes without re-running anything.
type Result struct {
	AST        *ast.Program
	Raw        *ssa.Program // C3's unoptimized output, already C4-verified
	Optimized  *ssa.Program // after C5..C9, C4 re-verified
	Target     *targetir.Program
	CallGraph  *optimizer.Stats
	PGO        *pgo.Stats
	TypeSpec   *typespec.Stats
	ZeroCost   *zerocost.Stats
	Memory     *memopt.Stats
}

// Compile runs the full pipeline described in spec.md §2 over source,
// returning the first error any stage raises (the pipeline does not
// attempt in-band recovery, per spec.md §7).
func Compile(source string, opts Options) (*Result, error) {
	program, err := parser.Parse(source)
	if err != nil {
		return nil, err
	}

	raw, err := ssa.ConvertProgram(program)
	if err != nil {
		return nil, err
	}
	if err := ssa.Validate(raw); err != nil {
		return nil, err
	}

	result := &Result{AST: program, Raw: raw}

	optimized := raw
	optimized, coStats, err := optimizer.Run(optimized, opts.Config)
	if err != nil {
		return nil, err
	}
	result.CallGraph = coStats

	optimized, pgoStats, err := pgo.Run(optimized, opts.Profile, opts.Config)
	if err != nil {
		return nil, err
	}
	result.PGO = pgoStats

	optimized, tsStats, err := typespec.Run(optimized, opts.Types, opts.Config)
	if err != nil {
		return nil, err
	}
	result.TypeSpec = tsStats

	optimized, zcStats, err := zerocost.Run(optimized, opts.Config)
	if err != nil {
		return nil, err
	}
	result.ZeroCost = zcStats

	optimized, memStats, err := memopt.Run(optimized, opts.Config)
	if err != nil {
		return nil, err
	}
	result.Memory = memStats

	if err := ssa.Validate(optimized); err != nil {
		return nil, err
	}
	result.Optimized = optimized

	target, err := backend.Lower(optimized)
	if err != nil {
		return nil, err
	}
	result.Target = target

	return result, nil
}
