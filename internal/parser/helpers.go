package parser

import (
	"strconv"
	"strings"

	"fifth/internal/ast"
	"fifth/token"
)

func baseAt(t token.Token) ast.Base {
	return ast.Base{Pos: t.Pos}
}

// mustInt parses an integer literal's text. The lexer has already
// validated the shape, so a parse error here would be an internal
// inconsistency rather than user-facing input.
func mustInt(text string) int64 {
	neg := false
	s := text
	if strings.HasPrefix(s, "+") {
		s = s[1:]
	} else if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	}
	v, _ := strconv.ParseInt(s, 10, 64)
	if neg {
		return -v
	}
	return v
}

func mustFloat(text string) float64 {
	v, _ := strconv.ParseFloat(text, 64)
	return v
}
