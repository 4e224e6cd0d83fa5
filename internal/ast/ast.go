// Package ast defines the AST produced by the parser (C2), per
// spec.md §3.1. It is grounded on the teacher's internal/ast package
// shape (a tagged-variant Word/Expr tree with a String()-based
// printer) but generalized to a concatenative, stack-based program
// instead of an expression tree.
package ast

import (
	"strings"

	"fifth/token"
)

// StackType is the declared or inferred type of one stack slot in a
// StackEffect (spec.md §3.1).
type StackType struct {
	Kind StackTypeKind
	// Var names a TypeVar slot; meaningful only when Kind == TypeVar.
	Var string
}

type StackTypeKind int

const (
	Unknown StackTypeKind = iota
	Int
	Float
	Addr
	Bool
	Char
	String
	TypeVar
)

func (t StackType) String() string {
	switch t.Kind {
	case Int:
		return "int"
	case Float:
		return "float"
	case Addr:
		return "addr"
	case Bool:
		return "bool"
	case Char:
		return "char"
	case String:
		return "string"
	case TypeVar:
		return t.Var
	default:
		return "?"
	}
}

// StackEffect is a parsed `( inputs -- outputs )` comment.
type StackEffect struct {
	Inputs  []StackType
	Outputs []StackType
}

// Program is the root AST node: an ordered sequence of definitions
// plus the top-level word sequence that runs at load time.
type Program struct {
	Definitions []*Definition
	TopLevel    []Word
}

// Definition is a `: name ... ;` word definition.
type Definition struct {
	Name        string
	StackEffect *StackEffect // nil if no `--`-separated comment was present
	Body        []Word
	Immediate   bool
	Pos         token.Position
}

// Word is a tagged-variant AST node, one of the concrete *Word types
// below. Every concrete type implements isWord() as a marker.
type Word interface {
	isWord()
	Position() token.Position
}

type Base struct{ Pos token.Position }

func (Base) isWord()                    {}
func (b Base) Position() token.Position { return b.Pos }

// IntLiteral pushes a compile-time integer constant.
type IntLiteral struct {
	Base
	Value int64
}

// FloatLiteral pushes a compile-time float constant.
type FloatLiteral struct {
	Base
	Value float64
}

// StringLiteral pushes a compile-time string constant.
type StringLiteral struct {
	Base
	Value string
}

// WordRef references another word by name: a primitive, a stack
// shuffle, or a call to a user-defined word.
type WordRef struct {
	Base
	Name string
}

// If is `IF then-body [ ELSE else-body ] THEN`.
type If struct {
	Base
	Then    []Word
	Else    []Word
	HasElse bool
}

// CountedLoop is `start limit DO body LOOP` or `... +LOOP`.
type CountedLoop struct {
	Base
	Body    []Word
	PlusLoop bool
}

// PreTestLoop is `BEGIN cond WHILE body REPEAT`.
type PreTestLoop struct {
	Base
	Cond []Word
	Body []Word
}

// PostTestLoop is `BEGIN body UNTIL`.
type PostTestLoop struct {
	Base
	Body []Word
}

// VariableDecl is `VARIABLE name`.
type VariableDecl struct {
	Base
	Name string
}

// ConstantDecl is `value CONSTANT name`.
type ConstantDecl struct {
	Base
	Name  string
	Value int64
}

// Comment is a parenthesis or backslash comment that was not
// recognized as a stack-effect comment (spec.md §4.2). It is kept in
// the AST so provenance scanning (spec.md §6) can see `\ AGENT:` runs
// bound to the following definition.
type Comment struct {
	Base
	Text  string
	Style token.CommentStyle
}

// String pretty-prints a Program, mirroring the teacher's
// internal/ast printer.go convention of a recursive String() tree.
func (p *Program) String() string {
	var b strings.Builder
	for _, d := range p.Definitions {
		b.WriteString(d.String())
		b.WriteString("\n")
	}
	if len(p.TopLevel) > 0 {
		b.WriteString(wordsString(p.TopLevel))
		b.WriteString("\n")
	}
	return b.String()
}

func (d *Definition) String() string {
	var b strings.Builder
	b.WriteString(": ")
	b.WriteString(d.Name)
	if d.StackEffect != nil {
		b.WriteString(" ( ")
		b.WriteString(d.StackEffect.String())
		b.WriteString(" )")
	}
	b.WriteString(" ")
	b.WriteString(wordsString(d.Body))
	b.WriteString(" ;")
	if d.Immediate {
		b.WriteString(" IMMEDIATE")
	}
	return b.String()
}

func (e *StackEffect) String() string {
	in := make([]string, len(e.Inputs))
	for i, t := range e.Inputs {
		in[i] = t.String()
	}
	out := make([]string, len(e.Outputs))
	for i, t := range e.Outputs {
		out[i] = t.String()
	}
	return strings.Join(in, " ") + " -- " + strings.Join(out, " ")
}

func wordsString(words []Word) string {
	parts := make([]string, len(words))
	for i, w := range words {
		parts[i] = wordString(w)
	}
	return strings.Join(parts, " ")
}

func wordString(w Word) string {
	switch v := w.(type) {
	case *IntLiteral:
		return intToString(v.Value)
	case *FloatLiteral:
		return floatToString(v.Value)
	case *StringLiteral:
		return `"` + v.Value + `"`
	case *WordRef:
		return v.Name
	case *If:
		s := "IF " + wordsString(v.Then)
		if v.HasElse {
			s += " ELSE " + wordsString(v.Else)
		}
		return s + " THEN"
	case *CountedLoop:
		if v.PlusLoop {
			return "DO " + wordsString(v.Body) + " +LOOP"
		}
		return "DO " + wordsString(v.Body) + " LOOP"
	case *PreTestLoop:
		return "BEGIN " + wordsString(v.Cond) + " WHILE " + wordsString(v.Body) + " REPEAT"
	case *PostTestLoop:
		return "BEGIN " + wordsString(v.Body) + " UNTIL"
	case *VariableDecl:
		return "VARIABLE " + v.Name
	case *ConstantDecl:
		return intToString(v.Value) + " CONSTANT " + v.Name
	case *Comment:
		if v.Style == token.LineComment {
			return "\\ " + v.Text
		}
		return "( " + v.Text + " )"
	default:
		return "?"
	}
}
