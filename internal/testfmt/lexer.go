// Package testfmt parses and renders the ANS-Forth-compatible test-case
// format named in spec.md §6: `T{ <inputs> <word> -> <outputs> }T`
// lines, grouped by tag (base case, edge case, boundary, property)
// with comment headers.
//
// Grounded on the teacher's grammar package (github.com/alecthomas/
// participle/v2): this is the one sub-grammar in this spec that is
// genuinely static and tag-driven (a fixed token shape, no dynamic
// pending-value lookahead the way the main Forth lexer/parser needs
// for CONSTANT's pending-value rule, see internal/parser), so it is
// the right-sized job for a declarative grammar library instead of a
// hand-rolled scanner.
package testfmt

import "github.com/alecthomas/participle/v2/lexer"

var caseLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Header", Pattern: `\\ (base case|edge case|boundary|property)[^\n]*`},
	{Name: "Open", Pattern: `T\{`},
	{Name: "Close", Pattern: `\}T`},
	{Name: "Arrow", Pattern: `->`},
	{Name: "Float", Pattern: `[-+]?[0-9]+\.[0-9]+`},
	{Name: "Int", Pattern: `[-+]?[0-9]+`},
	{Name: "String", Pattern: `"[^"]*"`},
	{Name: "Ident", Pattern: `[^\s{}]+`},
	{Name: "Whitespace", Pattern: `[ \t\r\n]+`},
})
