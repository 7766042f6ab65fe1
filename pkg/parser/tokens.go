package parser

import (
	"github.com/sandrolain/goremes/pkg/binops"
	"github.com/sandrolain/goremes/pkg/functions"
	"github.com/sandrolain/goremes/pkg/types"
)

// TokenType represents the type of a lexical token.
type TokenType uint8

const (
	// TokenEOF terminates every token sequence.
	TokenEOF TokenType = iota
	// TokenValue carries a JSON literal: number, string, bool, null,
	// regex literal, embedded JSON literal, or the current-input @.
	TokenValue
	// TokenBinop carries a reference into the binop registry.
	TokenBinop
	// TokenFunc carries a reference into the function registry.
	TokenFunc
	// TokenDelim is one of the delimiter sequences the parser reacts to:
	// . .. [ ] { } ( ) , :
	TokenDelim
)

// Token is a lexical token. Exactly one of Value, Binop, Fn and Delim is
// meaningful, selected by Type. Text preserves the raw source for error
// messages, Position the starting byte offset.
type Token struct {
	Type     TokenType
	Value    *types.Value
	Binop    *binops.Binop
	Fn       *functions.Function
	Delim    string
	Text     string
	Position int
}

// IsDelim reports whether t is the given delimiter.
func (t Token) IsDelim(d string) bool {
	return t.Type == TokenDelim && t.Delim == d
}

// IsBinop reports whether t is the named binop.
func (t Token) IsBinop(name string) bool {
	return t.Type == TokenBinop && t.Binop.Name == name
}

// String returns a readable description of the token, used in errors.
func (t Token) String() string {
	switch t.Type {
	case TokenEOF:
		return "(end of query)"
	case TokenValue:
		if t.Text != "" {
			return t.Text
		}
		return t.Value.String()
	case TokenBinop:
		return t.Binop.Name
	case TokenFunc:
		return t.Fn.Name
	case TokenDelim:
		return t.Delim
	}
	return "(unknown)"
}

// binopSymbols2 lists the two-character operator symbols, checked before
// their one-character prefixes.
var binopSymbols2 = []string{"**", "//", "==", "!=", "<=", ">=", "=~"}

// binopSymbols1 lists the one-character operator symbols. Note that * also
// serves as the star indexer and - as unary negation; the parser decides
// from context.
const binopSymbols1 = "+-*/%<>&|^"
