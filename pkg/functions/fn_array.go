package functions

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sandrolain/goremes/pkg/types"
)

// Reducing builtins: functions whose first argument is consumed whole rather
// than mapped over. None of these are vectorized.

// looseEqual compares numbers numerically across the int/float divide and
// everything else structurally.
func looseEqual(a, b *types.Value) bool {
	af, aok := numAsFloat(a)
	bf, bok := numAsFloat(b)
	if aok && bok {
		return af == bf
	}
	return a.Equal(b)
}

func wantArr(fname string, pos int, v *types.Value) ([]*types.Value, error) {
	if v.Tag != types.TypeArr {
		return nil, argErr(fname, pos, types.TypeArr, v)
	}
	return v.Arr, nil
}

func wantObj(fname string, pos int, v *types.Value) (*types.Object, error) {
	if v.Tag != types.TypeObj {
		return nil, argErr(fname, pos, types.TypeObj, v)
	}
	return v.Obj, nil
}

func boolOpt(fname string, pos int, v *types.Value) (bool, error) {
	if optional(v) {
		return false, nil
	}
	if v.Tag != types.TypeBool {
		return false, argErr(fname, pos, types.TypeBool|types.TypeNull, v)
	}
	return v.Bool, nil
}

// sortKeyed stably sorts elts by extracted keys. Keys must be homogeneous:
// all numeric or all string.
func sortKeyed(fname string, elts []*types.Value, keyOf func(*types.Value) (*types.Value, error), reverse bool) ([]*types.Value, error) {
	type keyed struct {
		num   float64
		str   string
		isNum bool
		val   *types.Value
	}
	ks := make([]keyed, len(elts))
	for i, e := range elts {
		k, err := keyOf(e)
		if err != nil {
			return nil, err
		}
		if f, ok := numAsFloat(k); ok {
			ks[i] = keyed{num: f, isNum: true, val: e}
		} else if k.Tag == types.TypeStr {
			ks[i] = keyed{str: k.Str, val: e}
		} else {
			return nil, types.NewError(types.KindType,
				fmt.Sprintf("function %s cannot sort by a %s key", fname, k.Tag), -1)
		}
		if i > 0 && ks[i].isNum != ks[0].isNum {
			return nil, types.NewError(types.KindType,
				fmt.Sprintf("function %s cannot sort keys of mixed types", fname), -1)
		}
	}
	sort.SliceStable(ks, func(i, j int) bool {
		if reverse {
			i, j = j, i
		}
		if ks[i].isNum {
			return ks[i].num < ks[j].num
		}
		return ks[i].str < ks[j].str
	})
	out := make([]*types.Value, len(ks))
	for i, k := range ks {
		out[i] = k.val
	}
	return out, nil
}

// keyExtractor builds the sort_by/max_by/min_by key accessor: an integer key
// indexes into subarrays (negative counts from the end), a string key reads
// from subobjects.
func keyExtractor(fname string, key *types.Value) (func(*types.Value) (*types.Value, error), error) {
	switch key.Tag {
	case types.TypeInt:
		idx := key.Int
		return func(e *types.Value) (*types.Value, error) {
			arr, err := wantArr(fname, 0, e)
			if err != nil {
				return nil, err
			}
			i := idx
			if i < 0 {
				i += int64(len(arr))
			}
			if i < 0 || i >= int64(len(arr)) {
				return nil, types.NewError(types.KindType,
					fmt.Sprintf("function %s key index %d out of range", fname, idx), -1)
			}
			return arr[i], nil
		}, nil
	case types.TypeStr:
		name := key.Str
		return func(e *types.Value) (*types.Value, error) {
			obj, err := wantObj(fname, 0, e)
			if err != nil {
				return nil, err
			}
			v, ok := obj.Get(name)
			if !ok {
				return nil, types.NewError(types.KindType,
					fmt.Sprintf("function %s key %q missing from element", fname, name), -1)
			}
			return v, nil
		}, nil
	}
	return nil, argErr(fname, 1, types.TypeStr|types.TypeInt, key)
}

func init() {
	register(&Function{
		Name: "len", MinArgs: 1, MaxArgs: 1,
		InTypes: []types.Dtype{types.TypeIterable},
		OutTag:  types.TypeInt,
		Call: func(args []*types.Value) (*types.Value, error) {
			switch args[0].Tag {
			case types.TypeArr:
				return types.NewInt(int64(len(args[0].Arr))), nil
			case types.TypeObj:
				return types.NewInt(int64(args[0].Obj.Len())), nil
			}
			return nil, argErr("len", 0, types.TypeIterable, args[0])
		},
	})
	register(&Function{
		Name: "sum", MinArgs: 1, MaxArgs: 1,
		InTypes: []types.Dtype{types.TypeArr},
		OutTag:  types.TypeFloat,
		Call: func(args []*types.Value) (*types.Value, error) {
			arr, err := wantArr("sum", 0, args[0])
			if err != nil {
				return nil, err
			}
			var total float64
			for _, e := range arr {
				f, ok := numAsFloat(e)
				if !ok {
					return nil, argErr("sum", 0, types.TypeNum, e)
				}
				total += f
			}
			return types.NewFloat(total), nil
		},
	})
	register(&Function{
		Name: "mean", MinArgs: 1, MaxArgs: 1,
		InTypes: []types.Dtype{types.TypeArr},
		OutTag:  types.TypeFloat,
		Call: func(args []*types.Value) (*types.Value, error) {
			arr, err := wantArr("mean", 0, args[0])
			if err != nil {
				return nil, err
			}
			if len(arr) == 0 {
				return nil, types.NewError(types.KindType, "mean of an empty array", -1)
			}
			var total float64
			for _, e := range arr {
				f, ok := numAsFloat(e)
				if !ok {
					return nil, argErr("mean", 0, types.TypeNum, e)
				}
				total += f
			}
			return types.NewFloat(total / float64(len(arr))), nil
		},
	})
	register(&Function{Name: "min", MinArgs: 1, MaxArgs: 1,
		InTypes: []types.Dtype{types.TypeArr}, OutTag: types.TypeFloat,
		Call: func(args []*types.Value) (*types.Value, error) { return extremum("min", args[0], false) },
	})
	register(&Function{Name: "max", MinArgs: 1, MaxArgs: 1,
		InTypes: []types.Dtype{types.TypeArr}, OutTag: types.TypeFloat,
		Call: func(args []*types.Value) (*types.Value, error) { return extremum("max", args[0], true) },
	})
	register(&Function{
		Name: "range", MinArgs: 1, MaxArgs: 3,
		InTypes: []types.Dtype{types.TypeInt, types.TypeInt | types.TypeNull, types.TypeInt | types.TypeNull},
		OutTag:  types.TypeArr,
		Call:    fnRange,
	})
	register(&Function{
		Name: "sorted", MinArgs: 1, MaxArgs: 2,
		InTypes: []types.Dtype{types.TypeArr, types.TypeBool | types.TypeNull},
		OutTag:  types.TypeArr,
		Call: func(args []*types.Value) (*types.Value, error) {
			arr, err := wantArr("sorted", 0, args[0])
			if err != nil {
				return nil, err
			}
			reverse, err := boolOpt("sorted", 1, args[1])
			if err != nil {
				return nil, err
			}
			out, err := sortKeyed("sorted", append([]*types.Value(nil), arr...),
				func(e *types.Value) (*types.Value, error) { return e, nil }, reverse)
			if err != nil {
				return nil, err
			}
			return types.NewArr(out), nil
		},
	})
	register(&Function{
		Name: "sort_by", MinArgs: 2, MaxArgs: 3,
		InTypes: []types.Dtype{types.TypeArr, types.TypeStr | types.TypeInt, types.TypeBool | types.TypeNull},
		OutTag:  types.TypeArr,
		Call: func(args []*types.Value) (*types.Value, error) {
			arr, err := wantArr("sort_by", 0, args[0])
			if err != nil {
				return nil, err
			}
			keyOf, err := keyExtractor("sort_by", args[1])
			if err != nil {
				return nil, err
			}
			reverse, err := boolOpt("sort_by", 2, args[2])
			if err != nil {
				return nil, err
			}
			out, err := sortKeyed("sort_by", append([]*types.Value(nil), arr...), keyOf, reverse)
			if err != nil {
				return nil, err
			}
			return types.NewArr(out), nil
		},
	})
	register(&Function{Name: "max_by", MinArgs: 2, MaxArgs: 2,
		InTypes: []types.Dtype{types.TypeArr, types.TypeStr | types.TypeInt},
		OutTag:  types.TypeUnknown,
		Call: func(args []*types.Value) (*types.Value, error) {
			return extremumBy("max_by", args[0], args[1], true)
		},
	})
	register(&Function{Name: "min_by", MinArgs: 2, MaxArgs: 2,
		InTypes: []types.Dtype{types.TypeArr, types.TypeStr | types.TypeInt},
		OutTag:  types.TypeUnknown,
		Call: func(args []*types.Value) (*types.Value, error) {
			return extremumBy("min_by", args[0], args[1], false)
		},
	})
	register(&Function{
		Name: "keys", MinArgs: 1, MaxArgs: 1,
		InTypes: []types.Dtype{types.TypeObj},
		OutTag:  types.TypeArr,
		Call: func(args []*types.Value) (*types.Value, error) {
			obj, err := wantObj("keys", 0, args[0])
			if err != nil {
				return nil, err
			}
			elts := make([]*types.Value, 0, obj.Len())
			for _, k := range obj.Keys() {
				elts = append(elts, types.NewStr(k))
			}
			return types.NewArr(elts), nil
		},
	})
	register(&Function{
		Name: "values", MinArgs: 1, MaxArgs: 1,
		InTypes: []types.Dtype{types.TypeObj},
		OutTag:  types.TypeArr,
		Call: func(args []*types.Value) (*types.Value, error) {
			obj, err := wantObj("values", 0, args[0])
			if err != nil {
				return nil, err
			}
			elts := make([]*types.Value, 0, obj.Len())
			for _, v := range obj.Pairs() {
				elts = append(elts, v)
			}
			return types.NewArr(elts), nil
		},
	})
	register(&Function{
		Name: "items", MinArgs: 1, MaxArgs: 1,
		InTypes: []types.Dtype{types.TypeObj},
		OutTag:  types.TypeArr,
		Call: func(args []*types.Value) (*types.Value, error) {
			obj, err := wantObj("items", 0, args[0])
			if err != nil {
				return nil, err
			}
			elts := make([]*types.Value, 0, obj.Len())
			for k, v := range obj.Pairs() {
				elts = append(elts, types.NewArr([]*types.Value{types.NewStr(k), v}))
			}
			return types.NewArr(elts), nil
		},
	})
	register(&Function{
		Name: "unique", MinArgs: 1, MaxArgs: 2,
		InTypes: []types.Dtype{types.TypeArr, types.TypeBool | types.TypeNull},
		OutTag:  types.TypeArr,
		Call: func(args []*types.Value) (*types.Value, error) {
			arr, err := wantArr("unique", 0, args[0])
			if err != nil {
				return nil, err
			}
			sortResult, err := boolOpt("unique", 1, args[1])
			if err != nil {
				return nil, err
			}
			var out []*types.Value
			for _, e := range arr {
				seen := false
				for _, u := range out {
					if looseEqual(e, u) {
						seen = true
						break
					}
				}
				if !seen {
					out = append(out, e)
				}
			}
			if sortResult {
				out, err = sortKeyed("unique", out,
					func(e *types.Value) (*types.Value, error) { return e, nil }, false)
				if err != nil {
					return nil, err
				}
			}
			return types.NewArr(out), nil
		},
	})
	register(&Function{
		Name: "flatten", MinArgs: 1, MaxArgs: 2,
		InTypes: []types.Dtype{types.TypeArr, types.TypeInt | types.TypeNull},
		OutTag:  types.TypeArr,
		Call: func(args []*types.Value) (*types.Value, error) {
			arr, err := wantArr("flatten", 0, args[0])
			if err != nil {
				return nil, err
			}
			depth := int64(1)
			if !optional(args[1]) {
				if args[1].Tag != types.TypeInt {
					return nil, argErr("flatten", 1, types.TypeInt|types.TypeNull, args[1])
				}
				depth = args[1].Int
			}
			return types.NewArr(flattenDepth(arr, depth)), nil
		},
	})
	register(&Function{
		Name: "index", MinArgs: 2, MaxArgs: 3,
		InTypes: []types.Dtype{types.TypeArr, types.TypeScalar, types.TypeBool | types.TypeNull},
		OutTag:  types.TypeInt,
		Call: func(args []*types.Value) (*types.Value, error) {
			arr, err := wantArr("index", 0, args[0])
			if err != nil {
				return nil, err
			}
			last, err := boolOpt("index", 2, args[2])
			if err != nil {
				return nil, err
			}
			found := int64(-1)
			for i, e := range arr {
				if looseEqual(e, args[1]) {
					found = int64(i)
					if !last {
						break
					}
				}
			}
			if found < 0 {
				return nil, types.NewError(types.KindType, "element not found in array", -1)
			}
			return types.NewInt(found), nil
		},
	})
	register(&Function{
		Name: "in", MinArgs: 2, MaxArgs: 2,
		InTypes: []types.Dtype{types.TypeScalar, types.TypeIterable},
		OutTag:  types.TypeBool,
		Call: func(args []*types.Value) (*types.Value, error) {
			switch args[1].Tag {
			case types.TypeArr:
				for _, e := range args[1].Arr {
					if looseEqual(args[0], e) {
						return types.NewBool(true), nil
					}
				}
				return types.NewBool(false), nil
			case types.TypeObj:
				if args[0].Tag != types.TypeStr {
					return nil, argErr("in", 0, types.TypeStr, args[0])
				}
				_, ok := args[1].Obj.Get(args[0].Str)
				return types.NewBool(ok), nil
			}
			return nil, argErr("in", 1, types.TypeIterable, args[1])
		},
	})
	register(&Function{
		Name: "s_join", MinArgs: 2, MaxArgs: 2,
		InTypes: []types.Dtype{types.TypeStr, types.TypeArr},
		OutTag:  types.TypeStr,
		Call: func(args []*types.Value) (*types.Value, error) {
			sep, err := wantStr("s_join", 0, args[0])
			if err != nil {
				return nil, err
			}
			arr, err := wantArr("s_join", 1, args[1])
			if err != nil {
				return nil, err
			}
			parts := make([]string, len(arr))
			for i, e := range arr {
				if e.Tag != types.TypeStr {
					return nil, argErr("s_join", 1, types.TypeStr, e)
				}
				parts[i] = e.Str
			}
			return types.NewStr(strings.Join(parts, sep)), nil
		},
	})
	register(&Function{
		Name: "sort_inplace", MinArgs: 1, MaxArgs: 2,
		InTypes: []types.Dtype{types.TypeArr, types.TypeBool | types.TypeNull},
		OutTag:  types.TypeArr,
		Mutates: true,
		Call: func(args []*types.Value) (*types.Value, error) {
			arr, err := wantArr("sort_inplace", 0, args[0])
			if err != nil {
				return nil, err
			}
			reverse, err := boolOpt("sort_inplace", 1, args[1])
			if err != nil {
				return nil, err
			}
			out, err := sortKeyed("sort_inplace", append([]*types.Value(nil), arr...),
				func(e *types.Value) (*types.Value, error) { return e, nil }, reverse)
			if err != nil {
				return nil, err
			}
			copy(args[0].Arr, out)
			return args[0], nil
		},
	})
}

func extremum(fname string, v *types.Value, wantMax bool) (*types.Value, error) {
	arr, err := wantArr(fname, 0, v)
	if err != nil {
		return nil, err
	}
	if len(arr) == 0 {
		return nil, types.NewError(types.KindType, fname+" of an empty array", -1)
	}
	best, ok := numAsFloat(arr[0])
	if !ok {
		return nil, argErr(fname, 0, types.TypeNum, arr[0])
	}
	for _, e := range arr[1:] {
		f, ok := numAsFloat(e)
		if !ok {
			return nil, argErr(fname, 0, types.TypeNum, e)
		}
		if wantMax && f > best || !wantMax && f < best {
			best = f
		}
	}
	return types.NewFloat(best), nil
}

func extremumBy(fname string, v, key *types.Value, wantMax bool) (*types.Value, error) {
	arr, err := wantArr(fname, 0, v)
	if err != nil {
		return nil, err
	}
	if len(arr) == 0 {
		return nil, types.NewError(types.KindType, fname+" of an empty array", -1)
	}
	keyOf, err := keyExtractor(fname, key)
	if err != nil {
		return nil, err
	}
	sorted, err := sortKeyed(fname, append([]*types.Value(nil), arr...), keyOf, wantMax)
	if err != nil {
		return nil, err
	}
	return sorted[0], nil
}

func fnRange(args []*types.Value) (*types.Value, error) {
	if args[0].Tag != types.TypeInt {
		return nil, argErr("range", 0, types.TypeInt, args[0])
	}
	start, stop, step := int64(0), args[0].Int, int64(1)
	if !optional(args[1]) {
		if args[1].Tag != types.TypeInt {
			return nil, argErr("range", 1, types.TypeInt|types.TypeNull, args[1])
		}
		start, stop = args[0].Int, args[1].Int
	}
	if !optional(args[2]) {
		if args[2].Tag != types.TypeInt {
			return nil, argErr("range", 2, types.TypeInt|types.TypeNull, args[2])
		}
		step = args[2].Int
	}
	if step == 0 {
		return nil, types.NewError(types.KindType, "range step cannot be zero", -1)
	}
	var elts []*types.Value
	if step > 0 {
		for i := start; i < stop; i += step {
			elts = append(elts, types.NewInt(i))
		}
	} else {
		for i := start; i > stop; i += step {
			elts = append(elts, types.NewInt(i))
		}
	}
	return types.NewArr(elts), nil
}

func flattenDepth(arr []*types.Value, depth int64) []*types.Value {
	var out []*types.Value
	for _, e := range arr {
		if e.Tag == types.TypeArr && depth > 0 {
			out = append(out, flattenDepth(e.Arr, depth-1)...)
		} else {
			out = append(out, e)
		}
	}
	return out
}
