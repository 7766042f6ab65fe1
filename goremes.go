// Package goremes provides a Go implementation of the RemesPath query
// language over in-memory JSON.
//
// RemesPath is similar in spirit to JMESPath but richer: it combines path
// navigation (field access, array slicing, recursive descent, regex key
// match), filtering (boolean indexing), object/array projections, a library
// of vectorized scalar functions and reducing functions, arithmetic and
// comparison binops with full precedence and associativity, and late-bound
// references to the current input (@).
//
// # Quick Start
//
//	// Simple evaluation
//	result, err := goremes.Search("@.items[@.price > 100]", doc)
//
//	// Compile once, apply many times
//	q, err := goremes.Compile("@.items[@.price > 100]")
//	result1, _ := goremes.Apply(q, doc1)
//	result2, _ := goremes.Apply(q, doc2)
//
//	// With a shared query cache
//	c := cache.New(1024)
//	result, err := goremes.Search("@.name", doc, goremes.WithCache(c))
//
// A compiled query is a [types.Value]: a plain constant when the query does
// not mention the input, or a late-bound reference otherwise. Compiled
// queries are immutable and safe for concurrent use. Results may alias
// subtrees of the input; the engine never mutates them, but note that a few
// built-in functions are marked mutating and require cloning the input when
// re-run (see [functions.Function].Mutates).
package goremes

import (
	"fmt"

	"github.com/sandrolain/goremes/pkg/cache"
	"github.com/sandrolain/goremes/pkg/parser"
	"github.com/sandrolain/goremes/pkg/types"
)

// Version returns the current version of GoRemes.
func Version() string {
	return "v0.1.0-dev"
}

// Compile compiles a query for repeated application.
func Compile(query string) (*types.Value, error) {
	return parser.Compile(query)
}

// Apply applies a compiled query to an input document. A constant query
// returns its constant for every input.
func Apply(compiled, input *types.Value) (*types.Value, error) {
	if compiled.IsCur() {
		return compiled.Fn(input)
	}
	return compiled, nil
}

// SearchOption configures a Search call.
type SearchOption func(*searchOptions)

type searchOptions struct {
	cache *cache.Cache
}

// WithCache routes compilation through c, so repeated queries skip the
// lexer and parser. The cache is shared: pass the same instance to every
// call that should benefit.
func WithCache(c *cache.Cache) SearchOption {
	return func(o *searchOptions) {
		o.cache = c
	}
}

// Search is a convenience that compiles a query and applies it to input in
// a single call. For repeated application of the same query, use Compile
// and Apply, or pass WithCache.
func Search(query string, input *types.Value, opts ...SearchOption) (*types.Value, error) {
	var o searchOptions
	for _, opt := range opts {
		opt(&o)
	}
	var compiled *types.Value
	var err error
	if o.cache != nil {
		compiled, err = o.cache.GetOrCompile(query, func() (*types.Value, error) {
			return parser.Compile(query)
		})
	} else {
		compiled, err = parser.Compile(query)
	}
	if err != nil {
		return nil, err
	}
	return Apply(compiled, input)
}

// SearchBytes parses a JSON document and runs a query over it.
func SearchBytes(query string, doc []byte, opts ...SearchOption) (*types.Value, error) {
	input, err := types.ParseJSON(string(doc))
	if err != nil {
		return nil, err
	}
	return Search(query, input, opts...)
}

// MustCompile is like Compile but panics if the query cannot be compiled.
// It simplifies safe initialization of global variables.
func MustCompile(query string) *types.Value {
	q, err := Compile(query)
	if err != nil {
		panic(fmt.Sprintf("goremes: Compile(%q): %v", query, err))
	}
	return q
}
