package functions

import (
	"math"

	"github.com/sandrolain/goremes/pkg/types"
)

// Numeric and type-inspection builtins. All of these except is_expr are
// vectorized: applied to an iterable first argument they map over its elements.

func numAsFloat(v *types.Value) (float64, bool) {
	switch v.Tag {
	case types.TypeInt:
		return float64(v.Int), true
	case types.TypeFloat:
		return v.Float, true
	}
	return 0, false
}

func init() {
	register(&Function{
		Name: "abs", MinArgs: 1, MaxArgs: 1,
		InTypes: []types.Dtype{types.TypeNum},
		OutTag:  types.TypeNum, Vectorized: true,
		Call: func(args []*types.Value) (*types.Value, error) {
			switch args[0].Tag {
			case types.TypeInt:
				if args[0].Int < 0 {
					return types.NewInt(-args[0].Int), nil
				}
				return args[0], nil
			case types.TypeFloat:
				return types.NewFloat(math.Abs(args[0].Float)), nil
			}
			return nil, argErr("abs", 0, types.TypeNum, args[0])
		},
	})
	register(&Function{
		Name: "float", MinArgs: 1, MaxArgs: 1,
		InTypes: []types.Dtype{types.TypeNum | types.TypeBool | types.TypeStr},
		OutTag:  types.TypeFloat, Vectorized: true,
		Call: fnFloat,
	})
	register(&Function{
		Name: "int", MinArgs: 1, MaxArgs: 1,
		InTypes: []types.Dtype{types.TypeNum | types.TypeBool},
		OutTag:  types.TypeInt, Vectorized: true,
		Call: func(args []*types.Value) (*types.Value, error) {
			switch args[0].Tag {
			case types.TypeInt:
				return args[0], nil
			case types.TypeFloat:
				return types.NewInt(int64(math.Floor(args[0].Float))), nil
			case types.TypeBool:
				if args[0].Bool {
					return types.NewInt(1), nil
				}
				return types.NewInt(0), nil
			}
			return nil, argErr("int", 0, types.TypeNum|types.TypeBool, args[0])
		},
	})
	register(&Function{
		Name: "round", MinArgs: 1, MaxArgs: 2,
		InTypes: []types.Dtype{types.TypeNum, types.TypeInt | types.TypeNull},
		OutTag:  types.TypeNum, Vectorized: true,
		Call: func(args []*types.Value) (*types.Value, error) {
			if args[0].Tag == types.TypeInt {
				return args[0], nil
			}
			if args[0].Tag != types.TypeFloat {
				return nil, argErr("round", 0, types.TypeNum, args[0])
			}
			f := args[0].Float
			if optional(args[1]) {
				return types.NewInt(int64(math.RoundToEven(f))), nil
			}
			scale := math.Pow(10, float64(args[1].Int))
			return types.NewFloat(math.RoundToEven(f*scale) / scale), nil
		},
	})
	register(&Function{
		Name: "log", MinArgs: 1, MaxArgs: 2,
		InTypes: []types.Dtype{types.TypeNum, types.TypeNum | types.TypeNull},
		OutTag:  types.TypeFloat, Vectorized: true,
		Call: func(args []*types.Value) (*types.Value, error) {
			x, ok := numAsFloat(args[0])
			if !ok {
				return nil, argErr("log", 0, types.TypeNum, args[0])
			}
			if optional(args[1]) {
				return types.NewFloat(math.Log(x)), nil
			}
			base, ok := numAsFloat(args[1])
			if !ok {
				return nil, argErr("log", 1, types.TypeNum, args[1])
			}
			return types.NewFloat(math.Log(x) / math.Log(base)), nil
		},
	})
	register(&Function{
		Name: "log2", MinArgs: 1, MaxArgs: 1,
		InTypes: []types.Dtype{types.TypeNum},
		OutTag:  types.TypeFloat, Vectorized: true,
		Call: func(args []*types.Value) (*types.Value, error) {
			x, ok := numAsFloat(args[0])
			if !ok {
				return nil, argErr("log2", 0, types.TypeNum, args[0])
			}
			return types.NewFloat(math.Log2(x)), nil
		},
	})
	register(&Function{
		Name: "not", MinArgs: 1, MaxArgs: 1,
		InTypes: []types.Dtype{types.TypeBool},
		OutTag:  types.TypeBool, Vectorized: true,
		Call: func(args []*types.Value) (*types.Value, error) {
			if args[0].Tag != types.TypeBool {
				return nil, argErr("not", 0, types.TypeBool, args[0])
			}
			return types.NewBool(!args[0].Bool), nil
		},
	})
	register(&Function{
		Name: "str", MinArgs: 1, MaxArgs: 1,
		InTypes: []types.Dtype{types.TypeScalar},
		OutTag:  types.TypeStr, Vectorized: true,
		Call: func(args []*types.Value) (*types.Value, error) {
			if args[0].Tag == types.TypeStr {
				return args[0], nil
			}
			return types.NewStr(args[0].String()), nil
		},
	})
	register(&Function{
		Name: "isnull", MinArgs: 1, MaxArgs: 1,
		InTypes: []types.Dtype{types.TypeAnything},
		OutTag:  types.TypeBool, Vectorized: true,
		Call: func(args []*types.Value) (*types.Value, error) {
			return types.NewBool(args[0].Tag == types.TypeNull), nil
		},
	})
	register(&Function{
		Name: "is_num", MinArgs: 1, MaxArgs: 1,
		InTypes: []types.Dtype{types.TypeAnything},
		OutTag:  types.TypeBool, Vectorized: true,
		Call: func(args []*types.Value) (*types.Value, error) {
			return types.NewBool(args[0].Tag&types.TypeNum != 0), nil
		},
	})
	register(&Function{
		Name: "is_str", MinArgs: 1, MaxArgs: 1,
		InTypes: []types.Dtype{types.TypeAnything},
		OutTag:  types.TypeBool, Vectorized: true,
		Call: func(args []*types.Value) (*types.Value, error) {
			return types.NewBool(args[0].Tag == types.TypeStr), nil
		},
	})
	// Not vectorized: the question is about the value itself.
	register(&Function{
		Name: "is_expr", MinArgs: 1, MaxArgs: 1,
		InTypes: []types.Dtype{types.TypeAnything},
		OutTag:  types.TypeBool, Vectorized: false,
		Call: func(args []*types.Value) (*types.Value, error) {
			return types.NewBool(args[0].Tag&types.TypeIterable != 0), nil
		},
	})
	register(&Function{
		Name: "ifelse", MinArgs: 3, MaxArgs: 3,
		InTypes: []types.Dtype{types.TypeBool, types.TypeAnything, types.TypeAnything},
		OutTag:  types.TypeUnknown, Vectorized: true,
		Call: func(args []*types.Value) (*types.Value, error) {
			if args[0].Tag != types.TypeBool {
				return nil, argErr("ifelse", 0, types.TypeBool, args[0])
			}
			if args[0].Bool {
				return args[1], nil
			}
			return args[2], nil
		},
	})
}

func fnFloat(args []*types.Value) (*types.Value, error) {
	switch args[0].Tag {
	case types.TypeFloat:
		return args[0], nil
	case types.TypeInt:
		return types.NewFloat(float64(args[0].Int)), nil
	case types.TypeBool:
		if args[0].Bool {
			return types.NewFloat(1), nil
		}
		return types.NewFloat(0), nil
	case types.TypeStr:
		return parseFloatStr(args[0].Str)
	}
	return nil, argErr("float", 0, types.TypeNum|types.TypeBool|types.TypeStr, args[0])
}
