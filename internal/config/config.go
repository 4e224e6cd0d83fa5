// Package config holds the small set of knobs the pipeline's optional
// passes read: the whole-program optimizer's aggressiveness
// (spec.md §4.5) and the PGO engine's hotness threshold mode
// (spec.md §4.6). It is a plain struct API; the CLI surface that would
// parse flags into it is an out-of-scope external collaborator
// (spec.md §1).
package config

// OptimizationLevel selects the whole-program optimizer's inlining
// budget (spec.md §4.5).
type OptimizationLevel int

const (
	Basic OptimizationLevel = iota
	Standard
	Aggressive
)

// MaxInlineCost returns the per-level single-call inlining budget.
func (l OptimizationLevel) MaxInlineCost() int {
	switch l {
	case Basic:
		return 10
	case Standard:
		return 20
	case Aggressive:
		return 50
	default:
		return 10
	}
}

func (l OptimizationLevel) String() string {
	switch l {
	case Basic:
		return "basic"
	case Standard:
		return "standard"
	case Aggressive:
		return "aggressive"
	default:
		return "unknown"
	}
}

// PGOThresholdMode selects how the superinstruction engine decides a
// pattern is hot (spec.md §4.6).
type PGOThresholdMode int

const (
	Conservative PGOThresholdMode = iota
	Balanced
	PGOAggressive
	Adaptive
)

// MinCount returns the fixed hotness threshold for non-adaptive modes.
// Adaptive mode ignores this and instead uses the 99th-percentile rule
// (spec.md §4.6); callers should check Mode == Adaptive first.
func (m PGOThresholdMode) MinCount() int {
	switch m {
	case Conservative:
		return 50_000
	case Balanced:
		return 10_000
	case PGOAggressive:
		return 5_000
	default:
		return 10_000
	}
}

// PipelineConfig aggregates every knob the optimizer passes (C5-C9)
// and the backend (C10) consult.
type PipelineConfig struct {
	Optimization OptimizationLevel
	PGOThreshold PGOThresholdMode

	// MaxPatterns bounds how many superinstruction candidates C6
	// retains after ROI ranking.
	MaxPatterns int

	// UnconditionalInlineThreshold is C8's tiny-word inlining budget,
	// in instruction count.
	UnconditionalInlineThreshold int

	// MaxLoopUnroll bounds C8's bounded loop unrolling.
	MaxLoopUnroll int

	// MemoryWindow is C9's sliding reorder window size.
	MemoryWindow int

	// PrefetchDistance is C9's prefetch-hint lookahead distance.
	PrefetchDistance int

	// EnableTypeSpecializer gates C7; it requires an external
	// type-inference bundle (spec.md §6) and is a no-op without one.
	EnableTypeSpecializer bool
}

// Default returns the pipeline configuration used when a driver
// supplies none: Standard optimization, Balanced PGO, and the default
// budgets named throughout spec.md §4.
func Default() PipelineConfig {
	return PipelineConfig{
		Optimization:                 Standard,
		PGOThreshold:                 Balanced,
		MaxPatterns:                  64,
		UnconditionalInlineThreshold: 3,
		MaxLoopUnroll:                20,
		MemoryWindow:                 16,
		PrefetchDistance:             8,
		EnableTypeSpecializer:        false,
	}
}
