// Package functions catalogues the built-in functions of the query language
// and implements vectorized dispatch.
//
// Each entry declares its arity range, per-argument permitted type sets, an
// output tag, and whether it is vectorized. Vectorized means: when the first
// argument is an iterable, the function is applied element-wise and returns
// an iterable of the same shape; otherwise it is called directly.
package functions

import (
	"fmt"

	"github.com/sandrolain/goremes/pkg/types"
)

// Function is a built-in function entry.
type Function struct {
	Name    string
	MinArgs int
	MaxArgs int
	// InTypes holds the permitted type set for each argument position;
	// len(InTypes) == MaxArgs. Optional positions include TypeNull, the
	// padding the parser supplies for short calls.
	InTypes    []types.Dtype
	OutTag     types.Dtype
	Vectorized bool
	// Mutates marks functions that modify their first argument in place.
	// Callers that re-run such a query on the same input must clone it.
	Mutates bool
	Call    func(args []*types.Value) (*types.Value, error)
}

var registry = map[string]*Function{}

func register(f *Function) {
	registry[f.Name] = f
}

// Lookup returns the registered function for name, if any.
func Lookup(name string) (*Function, bool) {
	f, ok := registry[name]
	return f, ok
}

// UMinus is the unary negation applied for a prefix minus. It is vectorized
// but not registered: "-" lexes as a binop, never as a function name.
var UMinus = &Function{
	Name:       "-",
	MinArgs:    1,
	MaxArgs:    1,
	InTypes:    []types.Dtype{types.TypeNum},
	OutTag:     types.TypeNum,
	Vectorized: true,
	Call: func(args []*types.Value) (*types.Value, error) {
		switch args[0].Tag {
		case types.TypeInt:
			return types.NewInt(-args[0].Int), nil
		case types.TypeFloat:
			return types.NewFloat(-args[0].Float), nil
		}
		return nil, types.NewError(types.KindType,
			fmt.Sprintf("unary - is not defined on a %s", args[0].Tag), -1)
	},
}

// Apply calls f on args, taking vectorization and late binding into account.
//
// A call with any late-bound argument yields a late-bound result that defers
// resolution until an input is supplied. A vectorized call whose (resolved)
// first argument is an iterable maps f over its elements and mirrors the
// container shape; the declared output tag of the deferred form follows the
// first argument's static tag.
func Apply(f *Function, args []*types.Value) (*types.Value, error) {
	late := false
	for _, a := range args {
		if a.IsCur() {
			late = true
			break
		}
	}
	if !late {
		if f.Vectorized {
			return vectorCall(f, args)
		}
		return f.Call(args)
	}
	outTag := f.OutTag
	if f.Vectorized {
		switch first := args[0].StaticTag(); {
		case first == types.TypeUnknown:
			outTag = types.TypeUnknown
		case first&types.TypeIterable != 0:
			outTag = first
		}
	}
	fn := func(input *types.Value) (*types.Value, error) {
		resolved := make([]*types.Value, len(args))
		for i, a := range args {
			if a.IsCur() {
				v, err := a.Fn(input)
				if err != nil {
					return nil, err
				}
				resolved[i] = v
			} else {
				resolved[i] = a
			}
		}
		if f.Vectorized {
			return vectorCall(f, resolved)
		}
		return f.Call(resolved)
	}
	return types.NewCur(fn, outTag), nil
}

// vectorCall maps f over an iterable first argument, or calls it directly on
// a scalar one. An empty iterable yields an empty iterable of the same shape.
func vectorCall(f *Function, args []*types.Value) (*types.Value, error) {
	first := args[0]
	switch first.Tag {
	case types.TypeArr:
		elts := make([]*types.Value, len(first.Arr))
		for i, e := range first.Arr {
			sub := append([]*types.Value{e}, args[1:]...)
			v, err := f.Call(sub)
			if err != nil {
				return nil, err
			}
			elts[i] = v
		}
		return types.NewArr(elts), nil
	case types.TypeObj:
		out := types.NewObject()
		for k, e := range first.Obj.Pairs() {
			sub := append([]*types.Value{e}, args[1:]...)
			v, err := f.Call(sub)
			if err != nil {
				return nil, err
			}
			out.Set(k, v)
		}
		return types.NewObj(out), nil
	}
	return f.Call(args)
}

// argErr reports a bad concrete argument inside a function implementation.
func argErr(fname string, pos int, want types.Dtype, got *types.Value) error {
	return types.NewError(types.KindType,
		fmt.Sprintf("function %s argument %d must be %s, got %s", fname, pos, want, got.Tag), -1)
}

// optional reports whether a padded argument slot was left unfilled.
func optional(v *types.Value) bool { return v.Tag == types.TypeNull }
