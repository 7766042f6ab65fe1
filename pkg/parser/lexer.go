package parser

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/sandrolain/goremes/pkg/binops"
	"github.com/sandrolain/goremes/pkg/functions"
	"github.com/sandrolain/goremes/pkg/types"
)

const eof = -1

// curIdentity is the value every @ token carries: the late-bound identity.
var curIdentity = types.NewCur(
	func(input *types.Value) (*types.Value, error) { return input, nil },
	types.TypeUnknown,
)

// Lexer converts a query string into a sequence of tokens.
// The implementation is based on Rob Pike's "Lexical Scanning in Go" technique.
type Lexer struct {
	input   string // Input string being scanned
	length  int    // Length of input string
	start   int    // Start position of current token
	current int    // Current position in input
	width   int    // Width of last rune read
	err     error  // First error encountered
}

// NewLexer creates a new lexer from the provided input string.
func NewLexer(input string) *Lexer {
	return &Lexer{
		input:  input,
		length: len(input),
	}
}

// Lex tokenizes the whole input. On a malformed token it returns a lex
// error carrying the source offset.
func Lex(input string) ([]Token, error) {
	l := NewLexer(input)
	var toks []Token
	for {
		t := l.Next()
		if l.err != nil {
			return nil, l.err
		}
		if t.Type == TokenEOF {
			return toks, nil
		}
		toks = append(toks, t)
	}
}

// Next returns the next token from the input. When the end of the input is
// reached, Next returns TokenEOF for all subsequent calls.
func (l *Lexer) Next() Token {
	l.acceptAll(isWhitespace)
	l.ignore()

	ch := l.nextRune()
	if ch == eof {
		return Token{Type: TokenEOF, Position: l.current}
	}

	switch {
	case ch == '@':
		t := l.newToken(TokenValue)
		t.Value = curIdentity
		return t
	case ch == '`':
		l.ignore()
		return l.scanString()
	case ch == 'g' && l.peekRune() == '`':
		l.nextRune()
		l.ignore()
		return l.scanRegex()
	case ch == 'j' && l.peekRune() == '`':
		l.nextRune()
		l.ignore()
		return l.scanJSONLiteral()
	case ch >= '0' && ch <= '9':
		l.backup()
		return l.scanNumber()
	case isNameStart(ch):
		l.backup()
		return l.scanName()
	}

	// Two-character delimiter first: the recursive prefix.
	if ch == '.' && l.acceptRune('.') {
		return l.delimToken("..")
	}
	if strings.ContainsRune(".[]{}(),:", ch) {
		return l.delimToken(string(ch))
	}

	// Operator symbols, longest match first.
	l.backup()
	for _, sym := range binopSymbols2 {
		if strings.HasPrefix(l.input[l.current:], sym) {
			l.current += len(sym)
			return l.binopToken(sym)
		}
	}
	ch = l.nextRune()
	if strings.ContainsRune(binopSymbols1, ch) {
		return l.binopToken(string(ch))
	}

	return l.error("unexpected character " + strconv.QuoteRune(ch))
}

// scanString reads a backtick-delimited raw string. A literal backtick is
// escaped as \`.
func (l *Lexer) scanString() Token {
	var b strings.Builder
Loop:
	for {
		switch r := l.nextRune(); r {
		case '`':
			break Loop
		case '\\':
			if l.acceptRune('`') {
				b.WriteByte('`')
				continue
			}
			b.WriteByte('\\')
		case eof:
			return l.error("unterminated string literal")
		default:
			b.WriteRune(r)
		}
	}
	t := l.newToken(TokenValue)
	t.Value = types.NewStr(b.String())
	t.Text = "`" + b.String() + "`"
	return t
}

// scanRegex reads the body of a g`...` literal and compiles it.
func (l *Lexer) scanRegex() Token {
	var b strings.Builder
Loop:
	for {
		switch r := l.nextRune(); r {
		case '`':
			break Loop
		case '\\':
			if l.acceptRune('`') {
				b.WriteByte('`')
				continue
			}
			b.WriteByte('\\')
		case eof:
			return l.error("unterminated regex literal")
		default:
			b.WriteRune(r)
		}
	}
	re, err := regexp.Compile(b.String())
	if err != nil {
		return l.error("invalid regex literal: " + err.Error())
	}
	t := l.newToken(TokenValue)
	t.Value = types.NewRegex(re)
	t.Text = "g`" + b.String() + "`"
	return t
}

// scanJSONLiteral reads the body of a j`...` literal and defers to the JSON
// parser over the enclosed text.
func (l *Lexer) scanJSONLiteral() Token {
	var b strings.Builder
Loop:
	for {
		switch r := l.nextRune(); r {
		case '`':
			break Loop
		case '\\':
			if l.acceptRune('`') {
				b.WriteByte('`')
				continue
			}
			b.WriteByte('\\')
		case eof:
			return l.error("unterminated JSON literal")
		default:
			b.WriteRune(r)
		}
	}
	v, err := types.ParseJSON(b.String())
	if err != nil {
		return l.error("invalid JSON literal: " + err.Error())
	}
	t := l.newToken(TokenValue)
	t.Value = v
	t.Text = "j`" + b.String() + "`"
	return t
}

// scanNumber reads a number literal: integers, decimals, scientific
// notation. JSON does not support leading zeroes: the integer part is
// either a single zero or a non-zero digit followed by more digits.
func (l *Lexer) scanNumber() Token {
	if !l.acceptRune('0') {
		l.accept(isNonZeroDigit)
		l.acceptAll(isDigit)
	}

	isFloat := false
	dot := l.current
	if l.acceptRune('.') {
		if !l.acceptAll(isDigit) {
			// No digits after the dot: it belongs to an indexer
			// (e.g. "0.foo"), not to the number.
			l.current = dot
			l.width = 0
			return l.intToken()
		}
		isFloat = true
	}
	if l.acceptRunes2('e', 'E') {
		l.acceptRunes2('+', '-')
		if !l.acceptAll(isDigit) {
			return l.error("malformed number exponent")
		}
		isFloat = true
	}

	if isFloat {
		text := l.input[l.start:l.current]
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return l.error("malformed number " + text)
		}
		t := l.newToken(TokenValue)
		t.Value = types.NewFloat(f)
		t.Text = text
		return t
	}
	return l.intToken()
}

func (l *Lexer) intToken() Token {
	text := l.input[l.start:l.current]
	i, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		// Out of int64 range: fall back to float.
		f, ferr := strconv.ParseFloat(text, 64)
		if ferr != nil {
			return l.error("malformed number " + text)
		}
		t := l.newToken(TokenValue)
		t.Value = types.NewFloat(f)
		t.Text = text
		return t
	}
	t := l.newToken(TokenValue)
	t.Value = types.NewInt(i)
	t.Text = text
	return t
}

// scanName reads an identifier and resolves it against the registries:
// keyword literals first, then binops (and, or, xor), then functions.
// Anything unclaimed is a plain string.
func (l *Lexer) scanName() Token {
	l.accept(isNameStart)
	l.acceptAll(isNameRune)
	name := l.input[l.start:l.current]

	t := l.newToken(TokenValue)
	t.Text = name
	switch name {
	case "true":
		t.Value = types.NewBool(true)
		return t
	case "false":
		t.Value = types.NewBool(false)
		return t
	case "null":
		t.Value = types.NewNull()
		return t
	}
	if b, ok := binops.Lookup(name); ok {
		t.Type = TokenBinop
		t.Binop = b
		return t
	}
	if f, ok := functions.Lookup(name); ok {
		t.Type = TokenFunc
		t.Fn = f
		return t
	}
	t.Value = types.NewStr(name)
	return t
}

// Helper methods

func (l *Lexer) error(message string) Token {
	t := l.newToken(TokenEOF)
	l.err = types.NewError(types.KindLex, message, t.Position).WithToken(t.Text)
	return t
}

// ignore discards the input accumulated since the last token, without
// emitting a token, so it is excluded from the next token's Text.
func (l *Lexer) ignore() {
	l.width = 0
	l.start = l.current
}

func (l *Lexer) newToken(tt TokenType) Token {
	t := Token{
		Type:     tt,
		Text:     l.input[l.start:l.current],
		Position: l.start,
	}
	l.width = 0
	l.start = l.current
	return t
}

func (l *Lexer) delimToken(d string) Token {
	t := l.newToken(TokenDelim)
	t.Delim = d
	return t
}

func (l *Lexer) binopToken(sym string) Token {
	b, ok := binops.Lookup(sym)
	if !ok {
		return l.error("unknown operator " + sym)
	}
	t := l.newToken(TokenBinop)
	t.Binop = b
	return t
}

func (l *Lexer) nextRune() rune {
	if l.err != nil || l.current >= l.length {
		l.width = 0
		return eof
	}

	r, w := utf8.DecodeRuneInString(l.input[l.current:])
	l.width = w
	l.current += w
	return r
}

func (l *Lexer) peekRune() rune {
	if l.current >= l.length {
		return eof
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.current:])
	return r
}

func (l *Lexer) backup() {
	l.current -= l.width
	l.width = 0
}

func (l *Lexer) acceptRune(r rune) bool {
	return l.accept(func(c rune) bool {
		return c == r
	})
}

func (l *Lexer) acceptRunes2(r1, r2 rune) bool {
	return l.accept(func(c rune) bool {
		return c == r1 || c == r2
	})
}

func (l *Lexer) accept(isValid func(rune) bool) bool {
	if isValid(l.nextRune()) {
		return true
	}
	l.backup()
	return false
}

func (l *Lexer) acceptAll(isValid func(rune) bool) bool {
	var matched bool
	for l.accept(isValid) {
		matched = true
	}
	return matched
}

// Character classification functions

func isWhitespace(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\r', '\v':
		return true
	default:
		return false
	}
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func isNonZeroDigit(r rune) bool {
	return r >= '1' && r <= '9'
}

func isNameStart(r rune) bool {
	return r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z'
}

func isNameRune(r rune) bool {
	return isNameStart(r) || isDigit(r)
}
