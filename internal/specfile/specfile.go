// Package specfile implements spec.md §6's Specification JSON schema:
// external documents describing a word by name, stack effect,
// properties, optional test cases, and complexity, consumed by
// test-generation and validation tooling outside this compiler core.
//
// The schema itself is small and the validation rules are enumerated
// explicitly in spec.md §6 ("word non-empty; every input parameter has
// a named type; every test case supplies one input per declared input
// with matching type"), so this package decodes with the standard
// library's encoding/json rather than reaching for a schema-validation
// library: there is no recurring parsing concern here for a
// third-party library to absorb, only a fixed field list and a short,
// literal rule set.
package specfile

import (
	"encoding/json"
	"fmt"

	"fifth/internal/errors"
)

// StackParam names one input or output slot of a word's stack effect.
type StackParam struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// StackEffect is the `stack_effect` object of the JSON schema.
type StackEffect struct {
	Inputs  []StackParam `json:"inputs"`
	Outputs []StackParam `json:"outputs"`
}

// TestCase is one entry of the optional `test_cases` array: one input
// value per declared input parameter, and the outputs the word is
// expected to produce.
type TestCase struct {
	Inputs  map[string]json.RawMessage `json:"inputs"`
	Outputs []json.RawMessage          `json:"outputs"`
	Tag     string                     `json:"tag,omitempty"`
}

// Specification is spec.md §3.5's external object: a word described by
// name, stack effect, properties, optional test cases, and complexity.
type Specification struct {
	Word           string          `json:"word"`
	Description    string          `json:"description,omitempty"`
	StackEffect    StackEffect     `json:"stack_effect"`
	Properties     []string        `json:"properties,omitempty"`
	TestCases      []TestCase      `json:"test_cases,omitempty"`
	Complexity     string          `json:"complexity,omitempty"`
	Implementation string          `json:"implementation,omitempty"`
	Metadata       json.RawMessage `json:"metadata,omitempty"`
}

var knownFields = map[string]bool{
	"word": true, "description": true, "stack_effect": true,
	"properties": true, "test_cases": true, "complexity": true,
	"implementation": true, "metadata": true,
}

// Parse decodes and validates a Specification document, returning a
// SpecError on any schema or semantic violation (spec.md §6, §7).
func Parse(data []byte) (*Specification, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &errors.SpecError{Message: fmt.Sprintf("invalid JSON: %s", err)}
	}
	for field := range raw {
		if !knownFields[field] {
			return nil, &errors.SpecError{Message: fmt.Sprintf("unknown field %q", field)}
		}
	}
	if _, ok := raw["word"]; !ok {
		return nil, &errors.SpecError{Message: "missing required field \"word\""}
	}
	if _, ok := raw["stack_effect"]; !ok {
		return nil, &errors.SpecError{Message: "missing required field \"stack_effect\""}
	}

	var spec Specification
	if err := json.Unmarshal(data, &spec); err != nil {
		return nil, &errors.SpecError{Message: fmt.Sprintf("type mismatch: %s", err)}
	}

	if err := Validate(&spec); err != nil {
		return nil, err
	}
	return &spec, nil
}

// Validate applies spec.md §6's three validation rules to an already
// decoded Specification.
func Validate(spec *Specification) error {
	if spec.Word == "" {
		return &errors.SpecError{Message: "\"word\" must be non-empty"}
	}
	for i, in := range spec.StackEffect.Inputs {
		if in.Name == "" {
			return &errors.SpecError{Message: fmt.Sprintf("input %d has no name", i)}
		}
		if in.Type == "" {
			return &errors.SpecError{Message: fmt.Sprintf("input %q has no named type", in.Name)}
		}
	}
	for ci, tc := range spec.TestCases {
		if len(tc.Inputs) != len(spec.StackEffect.Inputs) {
			return &errors.SpecError{Message: fmt.Sprintf("test case %d supplies %d input(s), word declares %d", ci, len(tc.Inputs), len(spec.StackEffect.Inputs))}
		}
		for _, in := range spec.StackEffect.Inputs {
			raw, ok := tc.Inputs[in.Name]
			if !ok {
				return &errors.SpecError{Message: fmt.Sprintf("test case %d missing input %q", ci, in.Name)}
			}
			if err := checkType(raw, in.Type); err != nil {
				return &errors.SpecError{Message: fmt.Sprintf("test case %d input %q: %s", ci, in.Name, err)}
			}
		}
	}
	return nil
}

// checkType reports whether raw's JSON shape matches the declared
// Forth stack type. Only the shapes spec.md's lexer/§3 glossary names
// are recognized: int, float, string, bool, addr (addresses serialize
// as JSON numbers, same as int, since this schema has no pointer
// literal syntax of its own).
func checkType(raw json.RawMessage, declared string) error {
	switch declared {
	case "int", "addr":
		var v int64
		if err := json.Unmarshal(raw, &v); err != nil {
			return fmt.Errorf("expected %s, got %s", declared, raw)
		}
	case "float":
		var v float64
		if err := json.Unmarshal(raw, &v); err != nil {
			return fmt.Errorf("expected float, got %s", raw)
		}
	case "string":
		var v string
		if err := json.Unmarshal(raw, &v); err != nil {
			return fmt.Errorf("expected string, got %s", raw)
		}
	case "bool":
		var v bool
		if err := json.Unmarshal(raw, &v); err != nil {
			return fmt.Errorf("expected bool, got %s", raw)
		}
	default:
		return fmt.Errorf("unknown type %q", declared)
	}
	return nil
}
