package functions

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/sandrolain/goremes/pkg/types"
)

// String builtins. All names carry the s_ prefix and all but s_join are
// vectorized on their first argument.

func parseFloatStr(s string) (*types.Value, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return nil, types.NewError(types.KindType, "cannot convert "+strconv.Quote(s)+" to a number", -1).WithCause(err)
	}
	return types.NewFloat(f), nil
}

// asPattern accepts a compiled regex or a string holding a pattern.
func asPattern(fname string, pos int, v *types.Value) (*regexp.Regexp, error) {
	switch v.Tag {
	case types.TypeRegex:
		return v.Re, nil
	case types.TypeStr:
		re, err := regexp.Compile(v.Str)
		if err != nil {
			return nil, types.NewError(types.KindType, "invalid pattern in "+fname, -1).WithCause(err)
		}
		return re, nil
	}
	return nil, argErr(fname, pos, types.TypeStrOrRegex, v)
}

func wantStr(fname string, pos int, v *types.Value) (string, error) {
	if v.Tag != types.TypeStr {
		return "", argErr(fname, pos, types.TypeStr, v)
	}
	return v.Str, nil
}

func init() {
	register(&Function{
		Name: "s_len", MinArgs: 1, MaxArgs: 1,
		InTypes: []types.Dtype{types.TypeStr},
		OutTag:  types.TypeInt, Vectorized: true,
		Call: func(args []*types.Value) (*types.Value, error) {
			s, err := wantStr("s_len", 0, args[0])
			if err != nil {
				return nil, err
			}
			return types.NewInt(int64(len([]rune(s)))), nil
		},
	})
	register(&Function{
		Name: "s_lower", MinArgs: 1, MaxArgs: 1,
		InTypes: []types.Dtype{types.TypeStr},
		OutTag:  types.TypeStr, Vectorized: true,
		Call: func(args []*types.Value) (*types.Value, error) {
			s, err := wantStr("s_lower", 0, args[0])
			if err != nil {
				return nil, err
			}
			return types.NewStr(strings.ToLower(s)), nil
		},
	})
	register(&Function{
		Name: "s_upper", MinArgs: 1, MaxArgs: 1,
		InTypes: []types.Dtype{types.TypeStr},
		OutTag:  types.TypeStr, Vectorized: true,
		Call: func(args []*types.Value) (*types.Value, error) {
			s, err := wantStr("s_upper", 0, args[0])
			if err != nil {
				return nil, err
			}
			return types.NewStr(strings.ToUpper(s)), nil
		},
	})
	register(&Function{
		Name: "s_strip", MinArgs: 1, MaxArgs: 1,
		InTypes: []types.Dtype{types.TypeStr},
		OutTag:  types.TypeStr, Vectorized: true,
		Call: func(args []*types.Value) (*types.Value, error) {
			s, err := wantStr("s_strip", 0, args[0])
			if err != nil {
				return nil, err
			}
			return types.NewStr(strings.TrimSpace(s)), nil
		},
	})
	register(&Function{
		Name: "s_slice", MinArgs: 2, MaxArgs: 2,
		InTypes: []types.Dtype{types.TypeStr, types.TypeIntOrSlice},
		OutTag:  types.TypeStr, Vectorized: true,
		Call: func(args []*types.Value) (*types.Value, error) {
			s, err := wantStr("s_slice", 0, args[0])
			if err != nil {
				return nil, err
			}
			runes := []rune(s)
			switch args[1].Tag {
			case types.TypeInt:
				i := args[1].Int
				if i < 0 {
					i += int64(len(runes))
				}
				if i < 0 || i >= int64(len(runes)) {
					return nil, types.NewError(types.KindType, "s_slice index out of range", -1)
				}
				return types.NewStr(string(runes[i])), nil
			case types.TypeSlice:
				var b strings.Builder
				for _, i := range args[1].Slice.Indices(len(runes)) {
					b.WriteRune(runes[i])
				}
				return types.NewStr(b.String()), nil
			}
			return nil, argErr("s_slice", 1, types.TypeIntOrSlice, args[1])
		},
	})
	register(&Function{
		Name: "s_count", MinArgs: 2, MaxArgs: 2,
		InTypes: []types.Dtype{types.TypeStr, types.TypeStrOrRegex},
		OutTag:  types.TypeInt, Vectorized: true,
		Call: func(args []*types.Value) (*types.Value, error) {
			s, err := wantStr("s_count", 0, args[0])
			if err != nil {
				return nil, err
			}
			if args[1].Tag == types.TypeStr {
				return types.NewInt(int64(strings.Count(s, args[1].Str))), nil
			}
			re, err := asPattern("s_count", 1, args[1])
			if err != nil {
				return nil, err
			}
			return types.NewInt(int64(len(re.FindAllString(s, -1)))), nil
		},
	})
	register(&Function{
		Name: "s_find", MinArgs: 2, MaxArgs: 2,
		InTypes: []types.Dtype{types.TypeStr, types.TypeStrOrRegex},
		OutTag:  types.TypeArr, Vectorized: true,
		Call: func(args []*types.Value) (*types.Value, error) {
			s, err := wantStr("s_find", 0, args[0])
			if err != nil {
				return nil, err
			}
			re, err := asPattern("s_find", 1, args[1])
			if err != nil {
				return nil, err
			}
			matches := re.FindAllString(s, -1)
			elts := make([]*types.Value, len(matches))
			for i, m := range matches {
				elts[i] = types.NewStr(m)
			}
			return types.NewArr(elts), nil
		},
	})
	register(&Function{
		Name: "s_split", MinArgs: 2, MaxArgs: 2,
		InTypes: []types.Dtype{types.TypeStr, types.TypeStrOrRegex},
		OutTag:  types.TypeArr, Vectorized: true,
		Call: func(args []*types.Value) (*types.Value, error) {
			s, err := wantStr("s_split", 0, args[0])
			if err != nil {
				return nil, err
			}
			var parts []string
			if args[1].Tag == types.TypeStr {
				parts = strings.Split(s, args[1].Str)
			} else {
				re, err := asPattern("s_split", 1, args[1])
				if err != nil {
					return nil, err
				}
				parts = re.Split(s, -1)
			}
			elts := make([]*types.Value, len(parts))
			for i, p := range parts {
				elts[i] = types.NewStr(p)
			}
			return types.NewArr(elts), nil
		},
	})
	register(&Function{
		Name: "s_sub", MinArgs: 3, MaxArgs: 3,
		InTypes: []types.Dtype{types.TypeStr, types.TypeStrOrRegex, types.TypeStr},
		OutTag:  types.TypeStr, Vectorized: true,
		Call: func(args []*types.Value) (*types.Value, error) {
			s, err := wantStr("s_sub", 0, args[0])
			if err != nil {
				return nil, err
			}
			repl, err := wantStr("s_sub", 2, args[2])
			if err != nil {
				return nil, err
			}
			if args[1].Tag == types.TypeStr {
				return types.NewStr(strings.ReplaceAll(s, args[1].Str, repl)), nil
			}
			re, err := asPattern("s_sub", 1, args[1])
			if err != nil {
				return nil, err
			}
			return types.NewStr(re.ReplaceAllString(s, repl)), nil
		},
	})
	register(&Function{
		Name: "s_mul", MinArgs: 2, MaxArgs: 2,
		InTypes: []types.Dtype{types.TypeStr, types.TypeInt},
		OutTag:  types.TypeStr, Vectorized: true,
		Call: func(args []*types.Value) (*types.Value, error) {
			s, err := wantStr("s_mul", 0, args[0])
			if err != nil {
				return nil, err
			}
			if args[1].Tag != types.TypeInt {
				return nil, argErr("s_mul", 1, types.TypeInt, args[1])
			}
			n := args[1].Int
			if n < 0 {
				n = 0
			}
			return types.NewStr(strings.Repeat(s, int(n))), nil
		},
	})
}
