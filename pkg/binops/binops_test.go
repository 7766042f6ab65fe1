package binops

import (
	"errors"
	"regexp"
	"testing"

	"github.com/sandrolain/goremes/pkg/types"
)

func mustLookup(t *testing.T, name string) *Binop {
	t.Helper()
	b, ok := Lookup(name)
	if !ok {
		t.Fatalf("binop %s not registered", name)
	}
	return b
}

func resolve(t *testing.T, op string, l, r *types.Value) *types.Value {
	t.Helper()
	v, err := Resolve(mustLookup(t, op), l, r)
	if err != nil {
		t.Fatalf("Resolve(%s): %v", op, err)
	}
	return v
}

func TestLookup(t *testing.T) {
	for _, name := range []string{
		"or", "xor", "and", "==", "!=", "<", "<=", ">", ">=", "=~",
		"|", "^", "&", "+", "-", "*", "/", "//", "%", "**",
	} {
		if _, ok := Lookup(name); !ok {
			t.Errorf("binop %s not registered", name)
		}
	}
	if _, ok := Lookup("negpow"); ok {
		t.Error("negpow leaked into the registry")
	}
	if !NegPow.RightAssoc || NegPow.Precedence <= mustLookup(t, "**").Precedence {
		t.Error("negpow must bind more tightly than **")
	}
}

func TestPrecedenceOrdering(t *testing.T) {
	order := [][]string{
		{"or"}, {"xor"}, {"and"},
		{"==", "!=", "<", "<=", ">", ">=", "=~"},
		{"|"}, {"^"}, {"&"},
		{"+", "-"},
		{"*", "/", "//", "%"},
		{"**"},
	}
	prev := -1.0
	for _, tier := range order {
		p := mustLookup(t, tier[0]).Precedence
		if p <= prev {
			t.Errorf("tier %v at precedence %v does not outrank %v", tier, p, prev)
		}
		for _, name := range tier[1:] {
			if q := mustLookup(t, name).Precedence; q != p {
				t.Errorf("binop %s has precedence %v, want %v", name, q, p)
			}
		}
		prev = p
	}
}

func TestScalarArithmetic(t *testing.T) {
	tests := []struct {
		op   string
		l, r *types.Value
		want *types.Value
	}{
		{"+", types.NewInt(2), types.NewInt(3), types.NewInt(5)},
		{"+", types.NewInt(2), types.NewFloat(0.5), types.NewFloat(2.5)},
		{"+", types.NewStr("ab"), types.NewStr("cd"), types.NewStr("abcd")},
		{"-", types.NewInt(2), types.NewInt(5), types.NewInt(-3)},
		{"*", types.NewInt(4), types.NewFloat(3.5), types.NewFloat(14)},
		{"/", types.NewInt(7), types.NewInt(2), types.NewFloat(3.5)},
		{"//", types.NewInt(7), types.NewInt(2), types.NewInt(3)},
		{"//", types.NewInt(-7), types.NewInt(2), types.NewInt(-4)},
		{"//", types.NewFloat(7.5), types.NewInt(2), types.NewInt(3)},
		{"%", types.NewInt(7), types.NewInt(3), types.NewInt(1)},
		{"**", types.NewInt(2), types.NewInt(10), types.NewFloat(1024)},
		{"&", types.NewInt(6), types.NewInt(3), types.NewInt(2)},
		{"|", types.NewInt(6), types.NewInt(3), types.NewInt(7)},
		{"^", types.NewInt(6), types.NewInt(3), types.NewInt(5)},
		{"&", types.NewBool(true), types.NewBool(false), types.NewBool(false)},
		{"==", types.NewInt(2), types.NewFloat(2), types.NewBool(true)},
		{"!=", types.NewStr("a"), types.NewStr("b"), types.NewBool(true)},
		{"==", types.NewStr("a"), types.NewInt(1), types.NewBool(false)},
		{"<", types.NewStr("a"), types.NewStr("b"), types.NewBool(true)},
		{">=", types.NewFloat(2.5), types.NewInt(2), types.NewBool(true)},
		{"and", types.NewBool(true), types.NewBool(false), types.NewBool(false)},
		{"or", types.NewBool(true), types.NewBool(false), types.NewBool(true)},
		{"xor", types.NewBool(true), types.NewBool(true), types.NewBool(false)},
		{"=~", types.NewStr("bah"), types.NewRegex(regexp.MustCompile(`^b`)), types.NewBool(true)},
		{"=~", types.NewStr("bah"), types.NewStr("^z"), types.NewBool(false)},
	}
	for _, tt := range tests {
		got := resolve(t, tt.op, tt.l, tt.r)
		if !got.Equal(tt.want) {
			t.Errorf("%s %s %s = %s, want %s", tt.l, tt.op, tt.r, got, tt.want)
		}
	}
}

func TestScalarErrors(t *testing.T) {
	tests := []struct {
		op   string
		l, r *types.Value
	}{
		{"/", types.NewInt(1), types.NewInt(0)},
		{"//", types.NewInt(1), types.NewInt(0)},
		{"%", types.NewInt(1), types.NewInt(0)},
		{"<", types.NewStr("a"), types.NewInt(1)},
		{"and", types.NewInt(1), types.NewBool(true)},
		{"=~", types.NewInt(1), types.NewStr("a")},
	}
	for _, tt := range tests {
		if _, err := Resolve(mustLookup(t, tt.op), tt.l, tt.r); err == nil {
			t.Errorf("%s %s %s did not fail", tt.l, tt.op, tt.r)
		}
	}
}

func arr(elts ...*types.Value) *types.Value { return types.NewArr(elts) }

func obj(pairs ...any) *types.Value {
	o := types.NewObject()
	for i := 0; i < len(pairs); i += 2 {
		o.Set(pairs[i].(string), pairs[i+1].(*types.Value))
	}
	return types.NewObj(o)
}

func TestIterableBroadcast(t *testing.T) {
	got := resolve(t, "+", arr(types.NewInt(1), types.NewInt(2)), types.NewInt(10))
	if !got.Equal(arr(types.NewInt(11), types.NewInt(12))) {
		t.Errorf("array + scalar = %s", got)
	}

	got = resolve(t, "*", types.NewInt(3), arr(types.NewInt(1), types.NewInt(2)))
	if !got.Equal(arr(types.NewInt(3), types.NewInt(6))) {
		t.Errorf("scalar * array = %s", got)
	}

	got = resolve(t, "+",
		arr(types.NewInt(1), types.NewInt(2)),
		arr(types.NewInt(10), types.NewInt(20)))
	if !got.Equal(arr(types.NewInt(11), types.NewInt(22))) {
		t.Errorf("array + array = %s", got)
	}

	got = resolve(t, "+", obj("a", types.NewInt(1)), obj("a", types.NewInt(2)))
	if !got.Equal(obj("a", types.NewInt(3))) {
		t.Errorf("object + object = %s", got)
	}

	// Nested containers broadcast recursively.
	got = resolve(t, "+", arr(arr(types.NewInt(1)), arr(types.NewInt(2))), types.NewInt(1))
	if !got.Equal(arr(arr(types.NewInt(2)), arr(types.NewInt(3)))) {
		t.Errorf("nested broadcast = %s", got)
	}
}

func TestIterableShapeMismatch(t *testing.T) {
	tests := []struct {
		name string
		l, r *types.Value
		kind types.ErrorKind
	}{
		{"unequal lengths", arr(types.NewInt(1)), arr(types.NewInt(1), types.NewInt(2)), types.KindVectorized},
		{"unequal key sets", obj("a", types.NewInt(1)), obj("b", types.NewInt(1)), types.KindVectorized},
		// Array with object is rejected statically, from the operand tags.
		{"array with object", arr(types.NewInt(1)), obj("a", types.NewInt(1)), types.KindParse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Resolve(mustLookup(t, "+"), tt.l, tt.r)
			var e *types.Error
			if !errors.As(err, &e) || e.Kind != tt.kind {
				t.Errorf("got %v, want a %s error", err, tt.kind)
			}
		})
	}
}

func TestResolveLateBinding(t *testing.T) {
	identity := types.NewCur(func(input *types.Value) (*types.Value, error) {
		return input, nil
	}, types.TypeUnknown)

	v, err := Resolve(mustLookup(t, "+"), identity, types.NewInt(1))
	if err != nil {
		t.Fatal(err)
	}
	if !v.IsCur() {
		t.Fatal("late operand did not produce a late result")
	}
	got, err := v.Fn(types.NewInt(41))
	if err != nil {
		t.Fatal(err)
	}
	if !got.Equal(types.NewInt(42)) {
		t.Errorf("(@ + 1)(41) = %s", got)
	}

	// Both sides late.
	v, err = Resolve(mustLookup(t, "*"), identity, identity)
	if err != nil {
		t.Fatal(err)
	}
	got, err = v.Fn(types.NewInt(6))
	if err != nil {
		t.Fatal(err)
	}
	if !got.Equal(types.NewInt(36)) {
		t.Errorf("(@ * @)(6) = %s", got)
	}
}

func TestOutputTag(t *testing.T) {
	tests := []struct {
		op     string
		l, r   types.Dtype
		want   types.Dtype
		hasErr bool
	}{
		{op: "<", l: types.TypeInt, r: types.TypeInt, want: types.TypeBool},
		{op: "+", l: types.TypeStr, r: types.TypeStr, want: types.TypeStr},
		{op: "+", l: types.TypeInt, r: types.TypeInt, want: types.TypeInt},
		{op: "+", l: types.TypeInt, r: types.TypeFloat, want: types.TypeNum},
		{op: "/", l: types.TypeInt, r: types.TypeInt, want: types.TypeFloat},
		{op: "//", l: types.TypeFloat, r: types.TypeFloat, want: types.TypeInt},
		{op: "**", l: types.TypeInt, r: types.TypeInt, want: types.TypeFloat},
		{op: "+", l: types.TypeArr, r: types.TypeInt, want: types.TypeArr},
		{op: "+", l: types.TypeArr, r: types.TypeArr, want: types.TypeArr},
		{op: "+", l: types.TypeObj, r: types.TypeObj, want: types.TypeObj},
		{op: "+", l: types.TypeUnknown, r: types.TypeInt, want: types.TypeUnknown},
		{op: "+", l: types.TypeArr, r: types.TypeObj, hasErr: true},
		{op: "&", l: types.TypeFloat, r: types.TypeInt, hasErr: true},
		{op: "+", l: types.TypeBool, r: types.TypeBool, hasErr: true},
	}
	for _, tt := range tests {
		got, err := mustLookup(t, tt.op).OutputTag(tt.l, tt.r)
		if tt.hasErr {
			if err == nil {
				t.Errorf("OutputTag(%s, %s, %s) did not fail", tt.op, tt.l, tt.r)
			}
			continue
		}
		if err != nil {
			t.Errorf("OutputTag(%s, %s, %s): %v", tt.op, tt.l, tt.r, err)
			continue
		}
		if got != tt.want {
			t.Errorf("OutputTag(%s, %s, %s) = %s, want %s", tt.op, tt.l, tt.r, got, tt.want)
		}
	}
}
