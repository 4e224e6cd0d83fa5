package specfile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fifth/internal/errors"
)

const wellFormed = `{
	"word": "square",
	"stack_effect": {"inputs": [{"name": "n", "type": "int"}], "outputs": [{"name": "n2", "type": "int"}]},
	"test_cases": [{"inputs": {"n": 3}, "outputs": [9]}]
}`

func TestParseAcceptsWellFormedSpecification(t *testing.T) {
	spec, err := Parse([]byte(wellFormed))
	require.NoError(t, err)
	assert.Equal(t, "square", spec.Word)
	assert.Len(t, spec.TestCases, 1)
}

func TestParseRejectsMissingWord(t *testing.T) {
	_, err := Parse([]byte(`{"stack_effect": {"inputs": [], "outputs": []}}`))
	require.Error(t, err)
	var serr *errors.SpecError
	require.ErrorAs(t, err, &serr)
}

func TestParseRejectsUnknownField(t *testing.T) {
	_, err := Parse([]byte(`{"word": "x", "stack_effect": {"inputs": [], "outputs": []}, "bogus": 1}`))
	require.Error(t, err)
}

func TestParseRejectsInputWithoutType(t *testing.T) {
	_, err := Parse([]byte(`{"word": "x", "stack_effect": {"inputs": [{"name": "n"}], "outputs": []}}`))
	require.Error(t, err)
}

func TestParseRejectsTestCaseTypeMismatch(t *testing.T) {
	_, err := Parse([]byte(`{
		"word": "square",
		"stack_effect": {"inputs": [{"name": "n", "type": "int"}], "outputs": []},
		"test_cases": [{"inputs": {"n": "not-an-int"}, "outputs": []}]
	}`))
	require.Error(t, err)
}

func TestParseRejectsTestCaseMissingInput(t *testing.T) {
	_, err := Parse([]byte(`{
		"word": "square",
		"stack_effect": {"inputs": [{"name": "n", "type": "int"}], "outputs": []},
		"test_cases": [{"inputs": {}, "outputs": []}]
	}`))
	require.Error(t, err)
}

func TestParseRejectsInvalidJSON(t *testing.T) {
	_, err := Parse([]byte(`{not json`))
	require.Error(t, err)
}
