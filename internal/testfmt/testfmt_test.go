package testfmt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSingleCaseNoHeader(t *testing.T) {
	cases, err := Parse(`T{ 2 3 + -> 5 }T`)
	require.NoError(t, err)
	require.Len(t, cases, 1)
	assert.Equal(t, "+", cases[0].Word)
	assert.Equal(t, []string{"2", "3"}, cases[0].Inputs)
	assert.Equal(t, []string{"5"}, cases[0].Outputs)
	assert.Equal(t, TagUntagged, cases[0].Tag)
}

func TestParseGroupsCasesUnderHeader(t *testing.T) {
	src := "\\ base case\nT{ 2 3 + -> 5 }T\nT{ 0 0 + -> 0 }T\n\\ edge case\nT{ -1 1 + -> 0 }T\n"
	cases, err := Parse(src)
	require.NoError(t, err)
	require.Len(t, cases, 3)
	assert.Equal(t, TagBaseCase, cases[0].Tag)
	assert.Equal(t, TagBaseCase, cases[1].Tag)
	assert.Equal(t, TagEdgeCase, cases[2].Tag)
}

func TestParseHandlesNegativeLiterals(t *testing.T) {
	cases, err := Parse(`T{ -5 square -> -25 }T`)
	require.NoError(t, err)
	require.Len(t, cases, 1)
	assert.Equal(t, []string{"-5"}, cases[0].Inputs)
	assert.Equal(t, []string{"-25"}, cases[0].Outputs)
}

func TestParseRejectsMalformedCase(t *testing.T) {
	_, err := Parse(`T{ 2 3 + 5 }T`)
	require.Error(t, err)
}

func TestRenderGroupsByTagInSpecOrder(t *testing.T) {
	cases := []ParsedCase{
		{Tag: TagEdgeCase, Word: "+", Inputs: []string{"-1", "1"}, Outputs: []string{"0"}},
		{Tag: TagBaseCase, Word: "+", Inputs: []string{"2", "3"}, Outputs: []string{"5"}},
	}
	rendered := Render(cases)

	reparsed, err := Parse(rendered)
	require.NoError(t, err)
	require.Len(t, reparsed, 2)
	assert.Equal(t, TagBaseCase, reparsed[0].Tag)
	assert.Equal(t, TagEdgeCase, reparsed[1].Tag)
}
