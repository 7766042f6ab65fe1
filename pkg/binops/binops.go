// Package binops defines the binary operators of the query language: their
// precedence, associativity, scalar semantics, static output typing, and the
// late-binding resolution that turns an operator application into either a
// computed value or a closure over the input.
package binops

import (
	"fmt"
	"math"
	"regexp"

	"github.com/sandrolain/goremes/pkg/types"
)

// Binop is a binary infix operator defined on scalar operands. Iterable
// operands are broadcast by Resolve before Fn is ever called.
type Binop struct {
	Name       string
	Precedence float64
	RightAssoc bool
	Fn         func(a, b *types.Value) (*types.Value, error)
}

// Operator classification, used by the static output-type table.
const (
	classBool = iota // <, <=, ==, !=, >=, >, =~, and, or, xor
	classBitwise     // &, |, ^
	classFloat       // /, **
	classIntDiv      // //
	classArith       // +, -, *, %
)

var classes = map[string]int{
	"and": classBool, "or": classBool, "xor": classBool,
	"==": classBool, "!=": classBool, "<": classBool, "<=": classBool,
	">": classBool, ">=": classBool, "=~": classBool,
	"&": classBitwise, "|": classBitwise, "^": classBitwise,
	"/": classFloat, "**": classFloat, "negpow": classFloat,
	"//": classIntDiv,
	"+":  classArith, "-": classArith, "*": classArith, "%": classArith,
}

var registry = map[string]*Binop{
	"or":  {Name: "or", Precedence: 0, Fn: logicalOr},
	"xor": {Name: "xor", Precedence: 1, Fn: logicalXor},
	"and": {Name: "and", Precedence: 2, Fn: logicalAnd},
	"==":  {Name: "==", Precedence: 3, Fn: opEqual},
	"!=":  {Name: "!=", Precedence: 3, Fn: opNotEqual},
	"<":   {Name: "<", Precedence: 3, Fn: opLess},
	"<=":  {Name: "<=", Precedence: 3, Fn: opLessEqual},
	">":   {Name: ">", Precedence: 3, Fn: opGreater},
	">=":  {Name: ">=", Precedence: 3, Fn: opGreaterEqual},
	"=~":  {Name: "=~", Precedence: 3, Fn: opMatch},
	"|":   {Name: "|", Precedence: 4, Fn: bitOr},
	"^":   {Name: "^", Precedence: 5, Fn: bitXor},
	"&":   {Name: "&", Precedence: 6, Fn: bitAnd},
	"+":   {Name: "+", Precedence: 7, Fn: opAdd},
	"-":   {Name: "-", Precedence: 7, Fn: opSubtract},
	"*":   {Name: "*", Precedence: 8, Fn: opMultiply},
	"/":   {Name: "/", Precedence: 8, Fn: opDivide},
	"//":  {Name: "//", Precedence: 8, Fn: opFloorDivide},
	"%":   {Name: "%", Precedence: 8, Fn: opModulo},
	"**":  {Name: "**", Precedence: 9, RightAssoc: true, Fn: opPower},
}

// NegPow is the synthetic negate-then-power operator: (-a) ** b. The parser
// substitutes it when a pending unary minus meets a following **; its
// precedence sits above ** so the minus binds to the base alone.
var NegPow = &Binop{Name: "negpow", Precedence: 10, RightAssoc: true, Fn: opNegPow}

// Lookup returns the registered binop for name, if any.
func Lookup(name string) (*Binop, bool) {
	b, ok := registry[name]
	return b, ok
}

// OutputTag computes the static output tag of (l op r) from the operand
// tags, or a parse-time error when the combination can never be valid.
func (b *Binop) OutputTag(ltag, rtag types.Dtype) (types.Dtype, error) {
	if ltag == types.TypeUnknown || rtag == types.TypeUnknown {
		return types.TypeUnknown, nil
	}
	liter := ltag&types.TypeIterable != 0
	riter := rtag&types.TypeIterable != 0
	if liter || riter {
		if liter && riter {
			switch {
			case ltag == types.TypeArr && rtag == types.TypeObj,
				ltag == types.TypeObj && rtag == types.TypeArr:
				return 0, types.NewError(types.KindParse,
					fmt.Sprintf("binop %s cannot mix an array with an object", b.Name), -1)
			case ltag == rtag && ltag != types.TypeIterable:
				return ltag, nil
			}
			return types.TypeIterable, nil
		}
		if liter {
			return ltag, nil
		}
		return rtag, nil
	}
	cls := classes[b.Name]
	if cls == classArith && ltag == types.TypeBool && rtag == types.TypeBool {
		return 0, types.NewError(types.KindParse,
			fmt.Sprintf("binop %s is not defined on two booleans", b.Name), -1)
	}
	if cls == classBitwise {
		if ltag&types.TypeFloat != 0 || rtag&types.TypeFloat != 0 {
			return 0, types.NewError(types.KindParse,
				fmt.Sprintf("bitwise binop %s is not defined on floats", b.Name), -1)
		}
		if ltag&(types.TypeInt|types.TypeBool) == 0 || rtag&(types.TypeInt|types.TypeBool) == 0 {
			return 0, types.NewError(types.KindParse,
				fmt.Sprintf("binop %s is not defined on a %s and a %s", b.Name, ltag, rtag), -1)
		}
	}
	switch cls {
	case classBool:
		return types.TypeBool, nil
	case classFloat:
		return types.TypeFloat, nil
	case classIntDiv:
		return types.TypeInt, nil
	case classBitwise:
		if ltag == types.TypeBool && rtag == types.TypeBool {
			return types.TypeBool, nil
		}
		return types.TypeInt, nil
	}
	// Polymorphic arithmetic.
	if b.Name == "+" && ltag == types.TypeStr && rtag == types.TypeStr {
		return types.TypeStr, nil
	}
	if ltag&(types.TypeNum|types.TypeBool) == 0 || rtag&(types.TypeNum|types.TypeBool) == 0 {
		return 0, types.NewError(types.KindParse,
			fmt.Sprintf("binop %s is not defined on a %s and a %s", b.Name, ltag, rtag), -1)
	}
	if ltag&types.TypeFloat != 0 || rtag&types.TypeFloat != 0 {
		if ltag&types.TypeInt != 0 || rtag&types.TypeInt != 0 {
			return types.TypeNum, nil
		}
		return types.TypeFloat, nil
	}
	return types.TypeInt, nil
}

// Resolve applies b to the operands, taking late binding into account. If
// either operand is a late-bound reference the result is a new late-bound
// reference deferring the work until an input is supplied; otherwise the
// value is computed directly, broadcasting over iterables.
func Resolve(b *Binop, l, r *types.Value) (*types.Value, error) {
	outTag, err := b.OutputTag(l.StaticTag(), r.StaticTag())
	if err != nil {
		return nil, err
	}
	if !l.IsCur() && !r.IsCur() {
		return apply(b, l, r)
	}
	fn := func(input *types.Value) (*types.Value, error) {
		lv, rv := l, r
		if lv.IsCur() {
			var err error
			if lv, err = lv.Fn(input); err != nil {
				return nil, err
			}
		}
		if rv.IsCur() {
			var err error
			if rv, err = rv.Fn(input); err != nil {
				return nil, err
			}
		}
		return apply(b, lv, rv)
	}
	return types.NewCur(fn, outTag), nil
}

// apply computes (l op r) on concrete values. Two iterables must match in
// shape: equal lengths for arrays, equal key sets for objects. A scalar is
// broadcast across every element or value of the other side.
func apply(b *Binop, l, r *types.Value) (*types.Value, error) {
	larr, rarr := l.Tag == types.TypeArr, r.Tag == types.TypeArr
	lobj, robj := l.Tag == types.TypeObj, r.Tag == types.TypeObj
	switch {
	case larr && rarr:
		if len(l.Arr) != len(r.Arr) {
			return nil, types.NewError(types.KindVectorized,
				fmt.Sprintf("binop %s on arrays of unequal length (%d and %d)",
					b.Name, len(l.Arr), len(r.Arr)), -1)
		}
		elts := make([]*types.Value, len(l.Arr))
		for i, le := range l.Arr {
			e, err := apply(b, le, r.Arr[i])
			if err != nil {
				return nil, err
			}
			elts[i] = e
		}
		return types.NewArr(elts), nil
	case lobj && robj:
		if l.Obj.Len() != r.Obj.Len() {
			return nil, types.NewError(types.KindVectorized,
				fmt.Sprintf("binop %s on objects with unequal key sets", b.Name), -1)
		}
		out := types.NewObject()
		for k, le := range l.Obj.Pairs() {
			re, ok := r.Obj.Get(k)
			if !ok {
				return nil, types.NewError(types.KindVectorized,
					fmt.Sprintf("binop %s on objects with unequal key sets (missing %q)", b.Name, k), -1)
			}
			e, err := apply(b, le, re)
			if err != nil {
				return nil, err
			}
			out.Set(k, e)
		}
		return types.NewObj(out), nil
	case (larr || lobj) && (rarr || robj):
		return nil, types.NewError(types.KindVectorized,
			fmt.Sprintf("binop %s cannot mix an array with an object", b.Name), -1)
	case larr:
		elts := make([]*types.Value, len(l.Arr))
		for i, le := range l.Arr {
			e, err := apply(b, le, r)
			if err != nil {
				return nil, err
			}
			elts[i] = e
		}
		return types.NewArr(elts), nil
	case lobj:
		out := types.NewObject()
		for k, le := range l.Obj.Pairs() {
			e, err := apply(b, le, r)
			if err != nil {
				return nil, err
			}
			out.Set(k, e)
		}
		return types.NewObj(out), nil
	case rarr:
		elts := make([]*types.Value, len(r.Arr))
		for i, re := range r.Arr {
			e, err := apply(b, l, re)
			if err != nil {
				return nil, err
			}
			elts[i] = e
		}
		return types.NewArr(elts), nil
	case robj:
		out := types.NewObject()
		for k, re := range r.Obj.Pairs() {
			e, err := apply(b, l, re)
			if err != nil {
				return nil, err
			}
			out.Set(k, e)
		}
		return types.NewObj(out), nil
	}
	return b.Fn(l, r)
}

// Scalar numeric helpers.

func isNum(v *types.Value) bool { return v.Tag&types.TypeNum != 0 }

// asFloat widens a numeric or boolean operand to float64.
func asFloat(v *types.Value) (float64, bool) {
	switch v.Tag {
	case types.TypeInt:
		return float64(v.Int), true
	case types.TypeFloat:
		return v.Float, true
	case types.TypeBool:
		if v.Bool {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

// asInt narrows an integer or boolean operand to int64.
func asInt(v *types.Value) (int64, bool) {
	switch v.Tag {
	case types.TypeInt:
		return v.Int, true
	case types.TypeBool:
		if v.Bool {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

func bothInt(a, b *types.Value) bool {
	return a.Tag != types.TypeFloat && b.Tag != types.TypeFloat
}

func typeErr(op string, a, b *types.Value) error {
	return types.NewError(types.KindType,
		fmt.Sprintf("binop %s is not defined on a %s and a %s", op, a.Tag, b.Tag), -1)
}

func checkFinite(f float64) (*types.Value, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, types.NewError(types.KindType, "number out of range", -1)
	}
	return types.NewFloat(f), nil
}

func opAdd(a, b *types.Value) (*types.Value, error) {
	if a.Tag == types.TypeStr && b.Tag == types.TypeStr {
		return types.NewStr(a.Str + b.Str), nil
	}
	if a.Tag == types.TypeBool && b.Tag == types.TypeBool {
		return nil, typeErr("+", a, b)
	}
	if bothInt(a, b) {
		ai, aok := asInt(a)
		bi, bok := asInt(b)
		if aok && bok {
			return types.NewInt(ai + bi), nil
		}
	}
	af, aok := asFloat(a)
	bf, bok := asFloat(b)
	if !aok || !bok {
		return nil, typeErr("+", a, b)
	}
	return checkFinite(af + bf)
}

func opSubtract(a, b *types.Value) (*types.Value, error) {
	if a.Tag == types.TypeBool && b.Tag == types.TypeBool {
		return nil, typeErr("-", a, b)
	}
	if bothInt(a, b) {
		ai, aok := asInt(a)
		bi, bok := asInt(b)
		if aok && bok {
			return types.NewInt(ai - bi), nil
		}
	}
	af, aok := asFloat(a)
	bf, bok := asFloat(b)
	if !aok || !bok {
		return nil, typeErr("-", a, b)
	}
	return checkFinite(af - bf)
}

func opMultiply(a, b *types.Value) (*types.Value, error) {
	if a.Tag == types.TypeBool && b.Tag == types.TypeBool {
		return nil, typeErr("*", a, b)
	}
	if bothInt(a, b) {
		ai, aok := asInt(a)
		bi, bok := asInt(b)
		if aok && bok {
			return types.NewInt(ai * bi), nil
		}
	}
	af, aok := asFloat(a)
	bf, bok := asFloat(b)
	if !aok || !bok {
		return nil, typeErr("*", a, b)
	}
	return checkFinite(af * bf)
}

func opDivide(a, b *types.Value) (*types.Value, error) {
	af, aok := asFloat(a)
	bf, bok := asFloat(b)
	if !aok || !bok {
		return nil, typeErr("/", a, b)
	}
	if bf == 0 {
		return nil, types.NewError(types.KindType, "division by zero", -1)
	}
	return checkFinite(af / bf)
}

func opFloorDivide(a, b *types.Value) (*types.Value, error) {
	af, aok := asFloat(a)
	bf, bok := asFloat(b)
	if !aok || !bok {
		return nil, typeErr("//", a, b)
	}
	if bf == 0 {
		return nil, types.NewError(types.KindType, "division by zero", -1)
	}
	return types.NewInt(int64(math.Floor(af / bf))), nil
}

func opModulo(a, b *types.Value) (*types.Value, error) {
	if bothInt(a, b) {
		ai, aok := asInt(a)
		bi, bok := asInt(b)
		if aok && bok {
			if bi == 0 {
				return nil, types.NewError(types.KindType, "division by zero", -1)
			}
			return types.NewInt(ai % bi), nil
		}
	}
	af, aok := asFloat(a)
	bf, bok := asFloat(b)
	if !aok || !bok {
		return nil, typeErr("%", a, b)
	}
	if bf == 0 {
		return nil, types.NewError(types.KindType, "division by zero", -1)
	}
	return checkFinite(math.Mod(af, bf))
}

func opPower(a, b *types.Value) (*types.Value, error) {
	af, aok := asFloat(a)
	bf, bok := asFloat(b)
	if !aok || !bok {
		return nil, typeErr("**", a, b)
	}
	return checkFinite(math.Pow(af, bf))
}

func opNegPow(a, b *types.Value) (*types.Value, error) {
	af, aok := asFloat(a)
	bf, bok := asFloat(b)
	if !aok || !bok {
		return nil, typeErr("negpow", a, b)
	}
	return checkFinite(math.Pow(-af, bf))
}

// scalarEqual compares scalars: numbers numerically across int/float, other
// types by tag and payload. Mismatched non-numeric tags are unequal, not an
// error, so == can serve as a membership test in filters.
func scalarEqual(a, b *types.Value) bool {
	if isNum(a) && isNum(b) {
		af, _ := asFloat(a)
		bf, _ := asFloat(b)
		return af == bf
	}
	if a.Tag != b.Tag {
		return false
	}
	switch a.Tag {
	case types.TypeBool:
		return a.Bool == b.Bool
	case types.TypeStr:
		return a.Str == b.Str
	case types.TypeNull:
		return true
	}
	return false
}

func opEqual(a, b *types.Value) (*types.Value, error) {
	return types.NewBool(scalarEqual(a, b)), nil
}

func opNotEqual(a, b *types.Value) (*types.Value, error) {
	return types.NewBool(!scalarEqual(a, b)), nil
}

// compare returns a negative, zero or positive ordering for two scalars of
// comparable types (numbers with numbers, strings with strings).
func compare(op string, a, b *types.Value) (int, error) {
	if isNum(a) && isNum(b) {
		af, _ := asFloat(a)
		bf, _ := asFloat(b)
		switch {
		case af < bf:
			return -1, nil
		case af > bf:
			return 1, nil
		}
		return 0, nil
	}
	if a.Tag == types.TypeStr && b.Tag == types.TypeStr {
		switch {
		case a.Str < b.Str:
			return -1, nil
		case a.Str > b.Str:
			return 1, nil
		}
		return 0, nil
	}
	return 0, typeErr(op, a, b)
}

func opLess(a, b *types.Value) (*types.Value, error) {
	c, err := compare("<", a, b)
	if err != nil {
		return nil, err
	}
	return types.NewBool(c < 0), nil
}

func opLessEqual(a, b *types.Value) (*types.Value, error) {
	c, err := compare("<=", a, b)
	if err != nil {
		return nil, err
	}
	return types.NewBool(c <= 0), nil
}

func opGreater(a, b *types.Value) (*types.Value, error) {
	c, err := compare(">", a, b)
	if err != nil {
		return nil, err
	}
	return types.NewBool(c > 0), nil
}

func opGreaterEqual(a, b *types.Value) (*types.Value, error) {
	c, err := compare(">=", a, b)
	if err != nil {
		return nil, err
	}
	return types.NewBool(c >= 0), nil
}

func opMatch(a, b *types.Value) (*types.Value, error) {
	if a.Tag != types.TypeStr {
		return nil, typeErr("=~", a, b)
	}
	var re *regexp.Regexp
	switch b.Tag {
	case types.TypeRegex:
		re = b.Re
	case types.TypeStr:
		var err error
		if re, err = regexp.Compile(b.Str); err != nil {
			return nil, types.NewError(types.KindType, "invalid pattern on the right of =~", -1).WithCause(err)
		}
	default:
		return nil, typeErr("=~", a, b)
	}
	return types.NewBool(re.MatchString(a.Str)), nil
}

func bools(op string, a, b *types.Value) (bool, bool, error) {
	if a.Tag != types.TypeBool || b.Tag != types.TypeBool {
		return false, false, typeErr(op, a, b)
	}
	return a.Bool, b.Bool, nil
}

func logicalAnd(a, b *types.Value) (*types.Value, error) {
	ab, bb, err := bools("and", a, b)
	if err != nil {
		return nil, err
	}
	return types.NewBool(ab && bb), nil
}

func logicalOr(a, b *types.Value) (*types.Value, error) {
	ab, bb, err := bools("or", a, b)
	if err != nil {
		return nil, err
	}
	return types.NewBool(ab || bb), nil
}

func logicalXor(a, b *types.Value) (*types.Value, error) {
	ab, bb, err := bools("xor", a, b)
	if err != nil {
		return nil, err
	}
	return types.NewBool(ab != bb), nil
}

func bitop(op string, a, b *types.Value, f func(x, y int64) int64) (*types.Value, error) {
	if a.Tag == types.TypeBool && b.Tag == types.TypeBool {
		var x, y int64
		if a.Bool {
			x = 1
		}
		if b.Bool {
			y = 1
		}
		return types.NewBool(f(x, y) != 0), nil
	}
	ai, aok := asInt(a)
	bi, bok := asInt(b)
	if !aok || !bok {
		return nil, typeErr(op, a, b)
	}
	return types.NewInt(f(ai, bi)), nil
}

func bitAnd(a, b *types.Value) (*types.Value, error) {
	return bitop("&", a, b, func(x, y int64) int64 { return x & y })
}

func bitOr(a, b *types.Value) (*types.Value, error) {
	return bitop("|", a, b, func(x, y int64) int64 { return x | y })
}

func bitXor(a, b *types.Value) (*types.Value, error) {
	return bitop("^", a, b, func(x, y int64) int64 { return x ^ y })
}
