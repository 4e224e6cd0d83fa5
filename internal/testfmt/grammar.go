package testfmt

import "github.com/alecthomas/participle/v2/lexer"

// Tag classifies a Case per spec.md §6's grouping: base case, edge
// case, boundary, or property, carried by the comment header
// immediately preceding a run of T{ }T lines.
type Tag string

const (
	TagBaseCase Tag = "base case"
	TagEdgeCase Tag = "edge case"
	TagBoundary Tag = "boundary"
	TagProperty Tag = "property"
	TagUntagged Tag = ""
)

// Case is one `T{ <inputs> <word> -> <outputs> }T` line. The grammar
// cannot statically tell an input literal from the word under test —
// both are bare tokens before the arrow, and the word is always the
// last one — so BeforeArrow captures every raw token up to "->" and
// Word/Inputs split it after parsing.
type Case struct {
	Pos         lexer.Position
	Header      *string  `( @Header )?`
	Open        string   `@Open`
	BeforeArrow []string `( @Int | @Float | @String | @Ident )+`
	Arrow       string   `@Arrow`
	Outputs     []string `( @Int | @Float | @String | @Ident )*`
	Close       string   `@Close`
}

// Document is a full test-case file: a sequence of Cases, each
// optionally preceded by its own tag header.
type Document struct {
	Cases []*Case `@@*`
}

// Word returns the word under test: the last token before the arrow.
func (c *Case) Word() string {
	return c.BeforeArrow[len(c.BeforeArrow)-1]
}

// Inputs returns the literal operands preceding the word.
func (c *Case) Inputs() []string {
	return c.BeforeArrow[:len(c.BeforeArrow)-1]
}

// tagOf extracts the Tag named in a Case's header comment, if any.
func tagOf(c *Case) Tag {
	if c.Header == nil {
		return TagUntagged
	}
	switch {
	case containsAny(*c.Header, "base case"):
		return TagBaseCase
	case containsAny(*c.Header, "edge case"):
		return TagEdgeCase
	case containsAny(*c.Header, "boundary"):
		return TagBoundary
	case containsAny(*c.Header, "property"):
		return TagProperty
	default:
		return TagUntagged
	}
}

func containsAny(s, substr string) bool {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}
