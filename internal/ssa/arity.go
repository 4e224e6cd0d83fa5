package ssa

import (
	"strings"

	"fifth/internal/ast"
)

// primArity is the stack effect of one builtin word, used both for
// arity inference (spec.md §4.3 pre-pass) and conversion.
type primArity struct{ Consumed, Produced int }

var primitiveTable = map[string]primArity{
	"dup": {1, 2}, "drop": {1, 0}, "swap": {2, 2}, "over": {2, 3}, "rot": {3, 3},
	"+": {2, 1}, "-": {2, 1}, "*": {2, 1}, "/": {2, 1}, "mod": {2, 1},
	"<": {2, 1}, ">": {2, 1}, "<=": {2, 1}, ">=": {2, 1}, "=": {2, 1}, "<>": {2, 1},
	"and": {2, 1}, "or": {2, 1},
	"negate": {1, 1}, "not": {1, 1}, "abs": {1, 1},
	"@": {1, 1}, "!": {2, 0},
	".":           {1, 0},
	"open-file":   {3, 2},
	"create-file": {3, 2},
	"read-file":   {3, 2},
	"write-file":  {3, 1},
	"close-file":  {1, 1},
	"delete-file": {2, 1},
}

// inferArity computes the arity of a definition with no stack-effect
// comment by simulating its body's net stack effect (spec.md §4.3): a
// call to an already-registered word uses its registered arity with
// one produced value, a call to a word not yet registered (a forward
// reference, or the definition recursing on itself) defaults to
// (0, 0), the conservative fallback the spec names explicitly.
func inferArity(body []ast.Word, arity map[string]int) int {
	depth, minDepth := 0, 0
	simulateWords(body, arity, &depth, &minDepth)
	if minDepth < 0 {
		return -minDepth
	}
	return 0
}

func simulateWords(words []ast.Word, arity map[string]int, depth, minDepth *int) {
	for _, w := range words {
		simulateWord(w, arity, depth, minDepth)
	}
}

// simulateWord advances depth/minDepth by w's effect. For IF/ELSE, the
// THEN branch's net depth change is taken as representative (an
// arbitrary but documented tie-break, see DESIGN.md) while minDepth
// tracks the more stack-hungry of the two branches so neither can
// underflow silently.
func simulateWord(w ast.Word, arity map[string]int, depth, minDepth *int) {
	switch v := w.(type) {
	case *ast.IntLiteral:
		*depth++
	case *ast.FloatLiteral:
		*depth++
	case *ast.StringLiteral:
		*depth += 2
	case *ast.WordRef:
		consumed, produced := lookupArity(v.Name, arity)
		applyEffect(depth, minDepth, consumed, produced)
	case *ast.If:
		base, baseMin := *depth, *minDepth
		thenDepth, thenMin := base, baseMin
		simulateWords(v.Then, arity, &thenDepth, &thenMin)
		elseDepth, elseMin := base, baseMin
		if v.HasElse {
			simulateWords(v.Else, arity, &elseDepth, &elseMin)
		}
		*depth = thenDepth
		*minDepth = minInt(thenMin, elseMin)
	case *ast.PreTestLoop:
		simulateWords(v.Cond, arity, depth, minDepth)
		simulateWords(v.Body, arity, depth, minDepth)
	case *ast.PostTestLoop:
		simulateWords(v.Body, arity, depth, minDepth)
	case *ast.CountedLoop:
		applyEffect(depth, minDepth, 2, 0)
		simulateWords(v.Body, arity, depth, minDepth)
	case *ast.VariableDecl, *ast.ConstantDecl, *ast.Comment:
		// no stack effect
	}
}

func applyEffect(depth, minDepth *int, consumed, produced int) {
	*depth -= consumed
	if *depth < *minDepth {
		*minDepth = *depth
	}
	*depth += produced
}

func lookupArity(name string, arity map[string]int) (consumed, produced int) {
	lname := strings.ToLower(name)
	if a, ok := primitiveTable[lname]; ok {
		return a.Consumed, a.Produced
	}
	if a, ok := arity[lname]; ok {
		return a, 1
	}
	return 0, 0
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
