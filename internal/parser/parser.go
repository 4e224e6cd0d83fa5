// Package parser implements C2: a recursive-descent parser over the
// token stream producing the AST of spec.md §3.1.
package parser

import (
	"strings"

	"fifth/internal/ast"
	"fifth/internal/errors"
	"fifth/internal/lexer"
	"fifth/token"
)

// Parser walks a fixed token slice, never looking behind except via
// the pending-integer mechanism described in spec.md §4.2.
type Parser struct {
	toks []token.Token
	pos  int
}

// Parse lexes and parses src into a Program.
func Parse(src string) (*ast.Program, error) {
	toks, err := lexer.Tokenize(src)
	if err != nil {
		return nil, err
	}
	p := &Parser{toks: toks}
	return p.parseProgram()
}

func (p *Parser) current() token.Token {
	if p.pos >= len(p.toks) {
		return token.Token{Kind: token.EOF}
	}
	return p.toks[p.pos]
}

func (p *Parser) advance() token.Token {
	t := p.current()
	if p.pos < len(p.toks) {
		p.pos++
	}
	return t
}

func (p *Parser) parseProgram() (*ast.Program, error) {
	prog := &ast.Program{}
	for p.current().Kind != token.EOF {
		if p.current().Kind == token.Colon {
			def, err := p.parseDefinition()
			if err != nil {
				return nil, err
			}
			prog.Definitions = append(prog.Definitions, def)
			continue
		}
		words, term, err := p.parseWordSequence(nil, true)
		if err != nil {
			return nil, err
		}
		prog.TopLevel = append(prog.TopLevel, words...)
		if term == token.EOF {
			break
		}
		// term == token.Colon: loop back around to parseDefinition.
	}
	return prog, nil
}

func (p *Parser) parseDefinition() (*ast.Definition, error) {
	colonTok := p.advance() // consume ':'

	nameTok := p.current()
	if nameTok.Kind != token.Ident {
		return nil, &errors.ParseError{Line: nameTok.Pos.Line, Col: nameTok.Pos.Column, Message: "expected name after ':'"}
	}
	p.advance()

	def := &ast.Definition{Name: nameTok.Text, Pos: colonTok.Pos}

	if c := p.current(); c.Kind == token.Comment && c.CommentStyle == token.ParenComment && strings.Contains(c.Text, "--") {
		se, err := parseStackEffect(c.Text)
		if err != nil {
			return nil, err
		}
		def.StackEffect = se
		p.advance()
	}

	words, term, err := p.parseWordSequence([]token.Kind{token.Semicolon}, false)
	if err != nil {
		return nil, err
	}
	if term != token.Semicolon {
		return nil, &errors.ParseError{Line: colonTok.Pos.Line, Col: colonTok.Pos.Column, Message: "unterminated definition: missing ';'"}
	}
	def.Body = words

	if p.current().Kind == token.Immediate {
		def.Immediate = true
		p.advance()
	}

	return def, nil
}

// controlTerminators is the set of token kinds that close some nested
// construct; encountering one outside its matching terminator set is
// an unbalanced-control-flow error.
var controlTerminators = map[token.Kind]bool{
	token.Semicolon: true,
	token.Then:      true,
	token.Else:      true,
	token.Until:     true,
	token.While:     true,
	token.Repeat:    true,
	token.Loop:      true,
	token.PlusLoop:  true,
}

// parseWordSequence consumes words until it hits one of the given
// terminator kinds (which it consumes and reports), EOF, or — when
// stopAtColon is set — an unconsumed ':' (used only at top level).
func (p *Parser) parseWordSequence(terminators []token.Kind, stopAtColon bool) ([]ast.Word, token.Kind, error) {
	wants := map[token.Kind]bool{}
	for _, t := range terminators {
		wants[t] = true
	}

	var words []ast.Word
	var pending *token.Token

	flush := func() {
		if pending != nil {
			words = append(words, &ast.IntLiteral{Base: baseAt(*pending), Value: mustInt(pending.Text)})
			pending = nil
		}
	}

	for {
		cur := p.current()

		if cur.Kind == token.EOF {
			flush()
			return words, token.EOF, nil
		}

		if stopAtColon && cur.Kind == token.Colon {
			flush()
			return words, token.Colon, nil
		}

		if cur.Kind == token.Integer {
			flush()
			t := cur
			pending = &t
			p.advance()
			continue
		}

		if cur.Kind == token.Constant {
			if pending == nil {
				return nil, 0, &errors.ParseError{Line: cur.Pos.Line, Col: cur.Pos.Column, Message: "CONSTANT without a preceding value"}
			}
			p.advance()
			nameTok := p.current()
			if nameTok.Kind != token.Ident {
				return nil, 0, &errors.ParseError{Line: nameTok.Pos.Line, Col: nameTok.Pos.Column, Message: "expected name after CONSTANT"}
			}
			p.advance()
			words = append(words, &ast.ConstantDecl{Base: baseAt(*pending), Name: nameTok.Text, Value: mustInt(pending.Text)})
			pending = nil
			continue
		}

		if controlTerminators[cur.Kind] {
			flush()
			if !wants[cur.Kind] {
				return nil, 0, &errors.ParseError{Line: cur.Pos.Line, Col: cur.Pos.Column, Message: "unbalanced control flow: unexpected " + cur.Kind.String()}
			}
			p.advance()
			return words, cur.Kind, nil
		}

		flush()

		switch cur.Kind {
		case token.Float:
			p.advance()
			words = append(words, &ast.FloatLiteral{Base: baseAt(cur), Value: mustFloat(cur.Text)})

		case token.String:
			p.advance()
			words = append(words, &ast.StringLiteral{Base: baseAt(cur), Value: cur.Text})

		case token.Ident:
			p.advance()
			words = append(words, &ast.WordRef{Base: baseAt(cur), Name: cur.Text})

		case token.Comment:
			p.advance()
			words = append(words, &ast.Comment{Base: baseAt(cur), Text: cur.Text, Style: cur.CommentStyle})

		case token.Variable:
			p.advance()
			nameTok := p.current()
			if nameTok.Kind != token.Ident {
				return nil, 0, &errors.ParseError{Line: nameTok.Pos.Line, Col: nameTok.Pos.Column, Message: "expected name after VARIABLE"}
			}
			p.advance()
			words = append(words, &ast.VariableDecl{Base: baseAt(cur), Name: nameTok.Text})

		case token.If:
			p.advance()
			thenWords, term, err := p.parseWordSequence([]token.Kind{token.Then, token.Else}, false)
			if err != nil {
				return nil, 0, err
			}
			n := &ast.If{Base: baseAt(cur), Then: thenWords}
			if term == token.Else {
				elseWords, term2, err := p.parseWordSequence([]token.Kind{token.Then}, false)
				if err != nil {
					return nil, 0, err
				}
				if term2 != token.Then {
					return nil, 0, &errors.ParseError{Line: cur.Pos.Line, Col: cur.Pos.Column, Message: "unbalanced control flow: IF/ELSE without THEN"}
				}
				n.Else = elseWords
				n.HasElse = true
			} else if term != token.Then {
				return nil, 0, &errors.ParseError{Line: cur.Pos.Line, Col: cur.Pos.Column, Message: "unbalanced control flow: IF without THEN"}
			}
			words = append(words, n)

		case token.Begin:
			p.advance()
			body, term, err := p.parseWordSequence([]token.Kind{token.Until, token.While}, false)
			if err != nil {
				return nil, 0, err
			}
			switch term {
			case token.Until:
				words = append(words, &ast.PostTestLoop{Base: baseAt(cur), Body: body})
			case token.While:
				loopBody, term2, err := p.parseWordSequence([]token.Kind{token.Repeat}, false)
				if err != nil {
					return nil, 0, err
				}
				if term2 != token.Repeat {
					return nil, 0, &errors.ParseError{Line: cur.Pos.Line, Col: cur.Pos.Column, Message: "unbalanced control flow: WHILE without REPEAT"}
				}
				words = append(words, &ast.PreTestLoop{Base: baseAt(cur), Cond: body, Body: loopBody})
			default:
				return nil, 0, &errors.ParseError{Line: cur.Pos.Line, Col: cur.Pos.Column, Message: "unbalanced control flow: BEGIN without UNTIL or WHILE"}
			}

		case token.Do:
			p.advance()
			body, term, err := p.parseWordSequence([]token.Kind{token.Loop, token.PlusLoop}, false)
			if err != nil {
				return nil, 0, err
			}
			if term != token.Loop && term != token.PlusLoop {
				return nil, 0, &errors.ParseError{Line: cur.Pos.Line, Col: cur.Pos.Column, Message: "unbalanced control flow: DO without LOOP"}
			}
			words = append(words, &ast.CountedLoop{Base: baseAt(cur), Body: body, PlusLoop: term == token.PlusLoop})

		case token.Colon:
			return nil, 0, &errors.ParseError{Line: cur.Pos.Line, Col: cur.Pos.Column, Message: "unexpected ':' inside definition"}

		default:
			return nil, 0, &errors.ParseError{Line: cur.Pos.Line, Col: cur.Pos.Column, Message: "unexpected token " + cur.Kind.String()}
		}
	}
}

func parseStackEffect(inner string) (*ast.StackEffect, error) {
	parts := strings.SplitN(inner, "--", 2)
	if len(parts) != 2 {
		return nil, &errors.ParseError{Message: "malformed stack effect comment: missing '--'"}
	}
	return &ast.StackEffect{
		Inputs:  parseStackTypes(parts[0]),
		Outputs: parseStackTypes(parts[1]),
	}, nil
}

func parseStackTypes(s string) []ast.StackType {
	fields := strings.Fields(s)
	out := make([]ast.StackType, 0, len(fields))
	for _, f := range fields {
		out = append(out, stackTypeFromToken(f))
	}
	return out
}

func stackTypeFromToken(tok string) ast.StackType {
	switch strings.ToLower(tok) {
	case "int":
		return ast.StackType{Kind: ast.Int}
	case "float":
		return ast.StackType{Kind: ast.Float}
	case "addr":
		return ast.StackType{Kind: ast.Addr}
	case "bool":
		return ast.StackType{Kind: ast.Bool}
	case "char":
		return ast.StackType{Kind: ast.Char}
	case "string":
		return ast.StackType{Kind: ast.String}
	case "?":
		return ast.StackType{Kind: ast.Unknown}
	default:
		return ast.StackType{Kind: ast.TypeVar, Var: tok}
	}
}
