package provenance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `\ AGENT: claude
\ PATTERN: tail-recursion
\ VERIFIED: true
: fact ( n -- n! ) dup 1 > if dup 1 - recurse * else drop 1 then ;

\ AGENT: human
: square ( n -- n2 ) dup * ;
`

func TestScanBindsRecordToFollowingDefinition(t *testing.T) {
	records := Scan(sample)
	require.Len(t, records, 2)

	assert.Equal(t, "fact", records[0].Word)
	assert.Equal(t, "claude", records[0].Agent)
	assert.Equal(t, "tail-recursion", records[0].Pattern)
	assert.True(t, records[0].Verified)

	assert.Equal(t, "square", records[1].Word)
	assert.Equal(t, "human", records[1].Agent)
	assert.False(t, records[1].Verified)
}

func TestScanDiscardsRunBrokenByBlankLine(t *testing.T) {
	src := "\\ AGENT: claude\n\n: orphan ( -- ) ;\n"
	records := Scan(src)
	assert.Empty(t, records)
}

func TestScanHandlesVariableAndConstant(t *testing.T) {
	src := "\\ AGENT: claude\nVARIABLE counter\n\\ AGENT: claude\n100 CONSTANT limit\n"
	records := Scan(src)
	require.Len(t, records, 2)
	assert.Equal(t, "counter", records[0].Word)
	assert.Equal(t, "limit", records[1].Word)
}

func TestApplyFiltersByAgentPatternAndVerified(t *testing.T) {
	records := Scan(sample)

	byAgent := Apply(records, Filter{Agent: "human"})
	require.Len(t, byAgent, 1)
	assert.Equal(t, "square", byAgent[0].Word)

	verifiedOnly := Apply(records, Filter{VerifiedOnly: true})
	require.Len(t, verifiedOnly, 1)
	assert.Equal(t, "fact", verifiedOnly[0].Word)

	byPattern := Apply(records, Filter{Pattern: "tail-recursion"})
	require.Len(t, byPattern, 1)
	assert.Equal(t, "fact", byPattern[0].Word)
}
