// Package parser implements the query compiler: a hand-written recursive
// descent parser over the lexer's token sequence.
//
// Parsing produces a compiled query, which is a [types.Value]: a constant
// when the query is input-independent, or a late-bound reference carrying a
// function of the input otherwise. There is no separate AST; each production
// folds its sub-results into values as it goes, so compilation and semantic
// analysis happen in one pass.
//
// # Example
//
//	q, err := parser.Compile("@.items[@.price > 100]")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := q.Fn(document)
package parser

import (
	"fmt"

	"github.com/sandrolain/goremes/pkg/types"
)

// Compile lexes and parses a query, returning the compiled query value.
//
// The compiled query is immutable and independently reusable: it can be
// applied to any number of inputs, concurrently if desired.
func Compile(query string) (*types.Value, error) {
	toks, err := Lex(query)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	if len(toks) == 0 {
		return nil, types.NewError(types.KindParse, "empty query", 0)
	}
	v, pos, err := p.parseExprOrScalarFunc(0)
	if err != nil {
		return nil, err
	}
	if pos != len(toks) {
		return nil, p.errAt(pos, fmt.Sprintf("unexpected token %s after the end of the query", p.toks[pos]))
	}
	return v, nil
}

// parser threads (tokens, position) through every production; each returns
// (value, new position).
type parser struct {
	toks []Token
}

// errAt builds a parse error carrying the token index and token text.
func (p *parser) errAt(pos int, message string) error {
	err := types.NewError(types.KindParse, message, pos)
	if pos < len(p.toks) {
		err = err.WithToken(p.toks[pos].String())
	}
	return err
}

// at returns the token at pos, or an EOF token past the end.
func (p *parser) at(pos int) Token {
	if pos >= len(p.toks) {
		return Token{Type: TokenEOF, Position: pos}
	}
	return p.toks[pos]
}
