package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fifth/internal/ast"
	"fifth/internal/errors"
)

func TestParseDefinitionWithStackEffectComment(t *testing.T) {
	prog, err := Parse(`: double ( n -- n*2 ) 2 * ;`)
	require.NoError(t, err)
	require.Len(t, prog.Definitions, 1)

	def := prog.Definitions[0]
	assert.Equal(t, "double", def.Name)
	require.NotNil(t, def.StackEffect)
	assert.Len(t, def.StackEffect.Inputs, 1)
	assert.Len(t, def.StackEffect.Outputs, 1)

	require.Len(t, def.Body, 2)
	lit, ok := def.Body[0].(*ast.IntLiteral)
	require.True(t, ok)
	assert.Equal(t, int64(2), lit.Value)
	ref, ok := def.Body[1].(*ast.WordRef)
	require.True(t, ok)
	assert.Equal(t, "*", ref.Name)
}

func TestParseDefinitionWithNoStackEffectComment(t *testing.T) {
	prog, err := Parse(`: f DUP * ;`)
	require.NoError(t, err)
	require.Len(t, prog.Definitions, 1)
	assert.Nil(t, prog.Definitions[0].StackEffect)
}

func TestParseConstantBindsThePendingIntegerLiteral(t *testing.T) {
	prog, err := Parse(`100 CONSTANT limit`)
	require.NoError(t, err)
	require.Len(t, prog.TopLevel, 1)

	cd, ok := prog.TopLevel[0].(*ast.ConstantDecl)
	require.True(t, ok)
	assert.Equal(t, "limit", cd.Name)
	assert.Equal(t, int64(100), cd.Value)
}

func TestParseConstantWithoutPendingValueIsAnError(t *testing.T) {
	_, err := Parse(`CONSTANT limit`)
	require.Error(t, err)
	perr, ok := err.(*errors.ParseError)
	require.True(t, ok)
	assert.Contains(t, perr.Message, "CONSTANT without a preceding value")
}

func TestParseVariableDeclaration(t *testing.T) {
	prog, err := Parse(`VARIABLE counter`)
	require.NoError(t, err)
	require.Len(t, prog.TopLevel, 1)
	vd, ok := prog.TopLevel[0].(*ast.VariableDecl)
	require.True(t, ok)
	assert.Equal(t, "counter", vd.Name)
}

func TestParseIfElseThen(t *testing.T) {
	prog, err := Parse(`: abs ( n -- |n| ) dup 0 < IF negate ELSE dup THEN ;`)
	require.NoError(t, err)
	def := prog.Definitions[0]

	var ifNode *ast.If
	for _, w := range def.Body {
		if n, ok := w.(*ast.If); ok {
			ifNode = n
		}
	}
	require.NotNil(t, ifNode)
	assert.True(t, ifNode.HasElse)
	require.Len(t, ifNode.Then, 1)
	require.Len(t, ifNode.Else, 1)
}

func TestParseIfWithNoElse(t *testing.T) {
	prog, err := Parse(`: abs ( n -- |n| ) dup 0 < IF negate THEN ;`)
	require.NoError(t, err)
	def := prog.Definitions[0]

	var ifNode *ast.If
	for _, w := range def.Body {
		if n, ok := w.(*ast.If); ok {
			ifNode = n
		}
	}
	require.NotNil(t, ifNode)
	assert.False(t, ifNode.HasElse)
	assert.Nil(t, ifNode.Else)
}

func TestParseBeginUntilLoop(t *testing.T) {
	prog, err := Parse(`: spin ( -- ) BEGIN 1 - dup 0 = UNTIL ;`)
	require.NoError(t, err)
	def := prog.Definitions[0]

	var loop *ast.PostTestLoop
	for _, w := range def.Body {
		if n, ok := w.(*ast.PostTestLoop); ok {
			loop = n
		}
	}
	require.NotNil(t, loop)
	assert.NotEmpty(t, loop.Body)
}

func TestParseBeginWhileRepeatLoop(t *testing.T) {
	prog, err := Parse(`: countdown ( n -- ) BEGIN dup 0 > WHILE 1 - REPEAT drop ;`)
	require.NoError(t, err)
	def := prog.Definitions[0]

	var loop *ast.PreTestLoop
	for _, w := range def.Body {
		if n, ok := w.(*ast.PreTestLoop); ok {
			loop = n
		}
	}
	require.NotNil(t, loop)
	assert.NotEmpty(t, loop.Cond)
	assert.NotEmpty(t, loop.Body)
}

func TestParseCountedDoLoop(t *testing.T) {
	prog, err := Parse(`: tally ( n -- ) 0 DO 1 LOOP ;`)
	require.NoError(t, err)
	def := prog.Definitions[0]

	var loop *ast.CountedLoop
	for _, w := range def.Body {
		if n, ok := w.(*ast.CountedLoop); ok {
			loop = n
		}
	}
	require.NotNil(t, loop)
	assert.False(t, loop.PlusLoop)
}

func TestParseReturnsErrorOnUnterminatedDefinition(t *testing.T) {
	_, err := Parse(`: unterminated 1 2 +`)
	require.Error(t, err)
	perr, ok := err.(*errors.ParseError)
	require.True(t, ok)
	assert.Contains(t, perr.Message, "unterminated definition")
}

func TestParseReturnsErrorOnUnbalancedElse(t *testing.T) {
	_, err := Parse(`: f ELSE ;`)
	require.Error(t, err)
	perr, ok := err.(*errors.ParseError)
	require.True(t, ok)
	assert.Contains(t, perr.Message, "unbalanced control flow")
}

func TestParseReturnsErrorOnMissingNameAfterColon(t *testing.T) {
	_, err := Parse(`: ;`)
	require.Error(t, err)
	perr, ok := err.(*errors.ParseError)
	require.True(t, ok)
	assert.Contains(t, perr.Message, "expected name after ':'")
}

func TestParseMarksImmediateDefinition(t *testing.T) {
	prog, err := Parse(`: eager ( -- ) ; IMMEDIATE`)
	require.NoError(t, err)
	require.Len(t, prog.Definitions, 1)
	assert.True(t, prog.Definitions[0].Immediate)
}
