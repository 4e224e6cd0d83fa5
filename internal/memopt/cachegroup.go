package memopt

import (
	"strings"

	"fifth/internal/ssa"
)

// hotDataNameFragments are the name substrings this pass treats as
// "hot-data heuristics" (spec.md §4.9 "cache grouping"). Spec.md does
// not enumerate the heuristic itself, only that one exists; this list
// picks the vocabulary a Forth buffer/table word is most likely to use.
var hotDataNameFragments = []string{"buffer", "table", "cache", "array", "pool"}

// markCacheGroups inserts a single cache-line-alignment hint at the
// top of a word's entry block when its name matches a hot-data
// heuristic. Annotation-only: never reorders or removes anything.
func markCacheGroups(fn *ssa.Function) bool {
	if !looksHotData(fn.Name) {
		return false
	}
	entry := fn.BlockByID(fn.EntryBlock)
	if entry == nil {
		return false
	}
	hint := &ssa.Comment{Text: "cache-line-aligned"}
	entry.Instructions = append([]ssa.Instruction{hint}, entry.Instructions...)
	return true
}

func looksHotData(name string) bool {
	lower := strings.ToLower(name)
	for _, frag := range hotDataNameFragments {
		if strings.Contains(lower, frag) {
			return true
		}
	}
	return false
}
