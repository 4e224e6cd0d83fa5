package testfmt

import (
	"fmt"

	"github.com/alecthomas/participle/v2"

	"fifth/internal/errors"
)

var caseParser = participle.MustBuild[Document](
	participle.Lexer(caseLexer),
	participle.Elide("Whitespace"),
)

// ParsedCase is a Case after the word/input split and tag resolution,
// the form the rest of the compiler core and its test-generation
// collaborator consume.
type ParsedCase struct {
	Tag     Tag
	Word    string
	Inputs  []string
	Outputs []string
}

// Parse parses a full test-case document (spec.md §6's ANS-Forth
// compatible output), returning one ParsedCase per T{ }T line in
// source order.
func Parse(source string) ([]ParsedCase, error) {
	doc, err := caseParser.ParseString("", source)
	if err != nil {
		return nil, &errors.SpecError{Message: fmt.Sprintf("test-case format error: %s", err)}
	}
	out := make([]ParsedCase, 0, len(doc.Cases))
	currentTag := TagUntagged
	for _, c := range doc.Cases {
		if t := tagOf(c); t != TagUntagged {
			currentTag = t
		}
		out = append(out, ParsedCase{
			Tag:     currentTag,
			Word:    c.Word(),
			Inputs:  c.Inputs(),
			Outputs: c.Outputs,
		})
	}
	return out, nil
}

// Render formats cases back into `T{ }T` lines grouped under comment
// headers per tag, in the order spec.md §6 names them.
func Render(cases []ParsedCase) string {
	order := []Tag{TagBaseCase, TagEdgeCase, TagBoundary, TagProperty, TagUntagged}
	out := ""
	for _, tag := range order {
		var group []ParsedCase
		for _, c := range cases {
			if c.Tag == tag {
				group = append(group, c)
			}
		}
		if len(group) == 0 {
			continue
		}
		if tag != TagUntagged {
			out += fmt.Sprintf("\\ %s\n", tag)
		}
		for _, c := range group {
			out += renderLine(c) + "\n"
		}
	}
	return out
}

func renderLine(c ParsedCase) string {
	line := "T{ "
	for _, in := range c.Inputs {
		line += in + " "
	}
	line += c.Word + " -> "
	for _, o := range c.Outputs {
		line += o + " "
	}
	return line + "}T"
}
