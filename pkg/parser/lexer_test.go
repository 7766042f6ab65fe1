package parser

import (
	"errors"
	"testing"

	"github.com/sandrolain/goremes/pkg/types"
)

type lexerTestCase struct {
	name      string
	input     string
	expected  []Token
	expectErr bool
}

func runLexerTests(t *testing.T, tests []lexerTestCase) {
	t.Helper()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			toks, err := Lex(tt.input)
			if tt.expectErr {
				if err == nil {
					t.Fatalf("Lex(%q) did not fail", tt.input)
				}
				var e *types.Error
				if !errors.As(err, &e) || e.Kind != types.KindLex {
					t.Fatalf("Lex(%q) error kind: %v", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Lex(%q): %v", tt.input, err)
			}
			if len(toks) != len(tt.expected) {
				t.Fatalf("Lex(%q) = %d tokens, want %d: %v", tt.input, len(toks), len(tt.expected), toks)
			}
			for i, want := range tt.expected {
				got := toks[i]
				if got.Type != want.Type {
					t.Errorf("token %d type = %v, want %v", i, got.Type, want.Type)
					continue
				}
				switch want.Type {
				case TokenValue:
					if want.Value != nil && !got.Value.Equal(want.Value) {
						t.Errorf("token %d value = %s, want %s", i, got.Value, want.Value)
					}
				case TokenBinop:
					if got.Binop.Name != want.Binop.Name {
						t.Errorf("token %d binop = %s, want %s", i, got.Binop.Name, want.Binop.Name)
					}
				case TokenFunc:
					if got.Fn.Name != want.Fn.Name {
						t.Errorf("token %d func = %s, want %s", i, got.Fn.Name, want.Fn.Name)
					}
				case TokenDelim:
					if got.Delim != want.Delim {
						t.Errorf("token %d delim = %s, want %s", i, got.Delim, want.Delim)
					}
				}
				if want.Position != 0 && got.Position != want.Position {
					t.Errorf("token %d position = %d, want %d", i, got.Position, want.Position)
				}
			}
		})
	}
}

func value(v *types.Value) Token { return Token{Type: TokenValue, Value: v} }

func binop(t *testing.T, name string) Token {
	t.Helper()
	toks, err := Lex(name)
	if err != nil || len(toks) != 1 || toks[0].Type != TokenBinop {
		t.Fatalf("cannot build binop token %q", name)
	}
	return toks[0]
}

func delim(d string) Token { return Token{Type: TokenDelim, Delim: d} }

func TestLexerNumbers(t *testing.T) {
	runLexerTests(t, []lexerTestCase{
		{name: "integer", input: "123", expected: []Token{value(types.NewInt(123))}},
		{name: "zero", input: "0", expected: []Token{value(types.NewInt(0))}},
		{name: "float", input: "3.25", expected: []Token{value(types.NewFloat(3.25))}},
		{name: "exponent", input: "1e3", expected: []Token{value(types.NewFloat(1000))}},
		{name: "signed exponent", input: "2E-2", expected: []Token{value(types.NewFloat(0.02))}},
		{
			name:  "trailing dot starts an indexer",
			input: "0.a",
			expected: []Token{
				value(types.NewInt(0)), delim("."), value(types.NewStr("a")),
			},
		},
		{name: "bare exponent", input: "1e", expectErr: true},
	})
}

func TestLexerStringsAndLiterals(t *testing.T) {
	runLexerTests(t, []lexerTestCase{
		{name: "backtick string", input: "`hello`", expected: []Token{value(types.NewStr("hello"))}},
		{name: "empty string", input: "``", expected: []Token{value(types.NewStr(""))}},
		{name: "escaped backtick", input: "`a\\`b`", expected: []Token{value(types.NewStr("a`b"))}},
		{name: "unterminated string", input: "`abc", expectErr: true},
		{name: "regex literal", input: "g`\\d+`", expected: []Token{{Type: TokenValue}}},
		{name: "bad regex", input: "g`[`", expectErr: true},
		{name: "unterminated regex", input: "g`ab", expectErr: true},
		{
			name:     "json literal",
			input:    "j`[1, 2]`",
			expected: []Token{value(types.NewArr([]*types.Value{types.NewInt(1), types.NewInt(2)}))},
		},
		{name: "bad json literal", input: "j`{]`", expectErr: true},
		{name: "bool and null", input: "true null", expected: []Token{
			value(types.NewBool(true)), value(types.NewNull()),
		}},
	})
}

func TestLexerIdentifierResolution(t *testing.T) {
	toks, err := Lex("and sort_by foo")
	if err != nil {
		t.Fatal(err)
	}
	if toks[0].Type != TokenBinop || toks[0].Binop.Name != "and" {
		t.Errorf("token 0 = %v, want the and binop", toks[0])
	}
	if toks[1].Type != TokenFunc || toks[1].Fn.Name != "sort_by" {
		t.Errorf("token 1 = %v, want the sort_by function", toks[1])
	}
	if toks[2].Type != TokenValue || toks[2].Value.Str != "foo" {
		t.Errorf("token 2 = %v, want the string foo", toks[2])
	}
}

func TestLexerOperatorsAndDelims(t *testing.T) {
	runLexerTests(t, []lexerTestCase{
		{
			name:  "query shape",
			input: "@.foo[0]",
			expected: []Token{
				{Type: TokenValue}, delim("."), value(types.NewStr("foo")),
				delim("["), value(types.NewInt(0)), delim("]"),
			},
		},
		{
			name:  "two char operators",
			input: "** // == != <= >= =~",
			expected: []Token{
				binop(t, "**"), binop(t, "//"), binop(t, "=="),
				binop(t, "!="), binop(t, "<="), binop(t, ">="), binop(t, "=~"),
			},
		},
		{
			name:  "recursive prefix",
			input: "..a",
			expected: []Token{
				delim(".."), value(types.NewStr("a")),
			},
		},
		{
			name:  "projection delims",
			input: "{a: 1}",
			expected: []Token{
				delim("{"), value(types.NewStr("a")), delim(":"), value(types.NewInt(1)), delim("}"),
			},
		},
		{name: "lone equals", input: "=", expectErr: true},
		{name: "unexpected char", input: "#", expectErr: true},
	})
}

func TestLexerCurrentInput(t *testing.T) {
	toks, err := Lex("@")
	if err != nil {
		t.Fatal(err)
	}
	if len(toks) != 1 || toks[0].Type != TokenValue || !toks[0].Value.IsCur() {
		t.Fatalf("@ lexed as %v", toks)
	}
	got, err := toks[0].Value.Fn(types.NewInt(7))
	if err != nil || !got.Equal(types.NewInt(7)) {
		t.Errorf("@ identity returned %s, %v", got, err)
	}
}

func TestLexerErrorOffset(t *testing.T) {
	_, err := Lex("12 #")
	var e *types.Error
	if !errors.As(err, &e) {
		t.Fatalf("error type: %v", err)
	}
	if e.Kind != types.KindLex || e.Position != 3 {
		t.Errorf("lex error = kind %s at %d, want lex at 3", e.Kind, e.Position)
	}
}

func TestLexerWhitespaceInsignificant(t *testing.T) {
	a, err := Lex("@ . foo [ 0 ]")
	if err != nil {
		t.Fatal(err)
	}
	b, err := Lex("@.foo[0]")
	if err != nil {
		t.Fatal(err)
	}
	if len(a) != len(b) {
		t.Fatalf("token counts differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i].Type != b[i].Type {
			t.Errorf("token %d types differ", i)
		}
	}
}
