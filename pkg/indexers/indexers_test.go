package indexers

import (
	"errors"
	"regexp"
	"testing"

	"github.com/sandrolain/goremes/pkg/types"
)

func ints(ns ...int64) *types.Value {
	elts := make([]*types.Value, len(ns))
	for i, n := range ns {
		elts[i] = types.NewInt(n)
	}
	return types.NewArr(elts)
}

func obj(pairs ...any) *types.Value {
	o := types.NewObject()
	for i := 0; i < len(pairs); i += 2 {
		o.Set(pairs[i].(string), pairs[i+1].(*types.Value))
	}
	return types.NewObj(o)
}

func varname(t *testing.T, recursive bool, children ...*types.Value) *Indexer {
	t.Helper()
	ix, err := NewVarnameList(children, recursive)
	if err != nil {
		t.Fatal(err)
	}
	return ix
}

func slicer(t *testing.T, children ...*types.Value) *Indexer {
	t.Helper()
	ix, err := NewSlicerList(children, false)
	if err != nil {
		t.Fatal(err)
	}
	return ix
}

func apply(t *testing.T, v *types.Value, chain ...*Indexer) *types.Value {
	t.Helper()
	got, err := Apply(v, chain)
	if err != nil {
		t.Fatal(err)
	}
	return got
}

func TestSingletonVarnameUnwraps(t *testing.T) {
	doc := obj("a", types.NewInt(1), "b", types.NewInt(2))
	got := apply(t, doc, varname(t, false, types.NewStr("b")))
	// The value comes back directly, not as a one-key object.
	if !got.Equal(types.NewInt(2)) {
		t.Errorf("singleton .b = %s", got)
	}
}

func TestMissingKeyYieldsEmptyObject(t *testing.T) {
	doc := obj("a", types.NewInt(1))
	got := apply(t, doc, varname(t, false, types.NewStr("nope")))
	if got.Tag != types.TypeObj || got.Obj.Len() != 0 {
		t.Errorf(".nope = %s, want {}", got)
	}
}

func TestMultiNameListKeepsObjectShape(t *testing.T) {
	doc := obj("a", types.NewInt(1), "b", types.NewInt(2), "c", types.NewInt(3))
	got := apply(t, doc, varname(t, false, types.NewStr("c"), types.NewStr("a"), types.NewStr("x")))
	want := obj("c", types.NewInt(3), "a", types.NewInt(1))
	if !got.Equal(want) {
		t.Errorf("[c, a, x] = %s, want %s", got, want)
	}
}

func TestRegexVarname(t *testing.T) {
	doc := obj("ab", types.NewInt(1), "zz", types.NewInt(2), "ac", types.NewInt(3))
	got := apply(t, doc, varname(t, false, types.NewRegex(regexp.MustCompile(`^a`))))
	want := obj("ab", types.NewInt(1), "ac", types.NewInt(3))
	if !got.Equal(want) {
		t.Errorf("regex ^a = %s, want %s", got, want)
	}
}

func TestVarnameOnNonObjectFails(t *testing.T) {
	if _, err := Apply(ints(1, 2), []*Indexer{varname(t, false, types.NewStr("a"))}); err == nil {
		t.Error("key selection from an array did not fail")
	}
}

func TestSlicerSingletonAndBounds(t *testing.T) {
	doc := ints(10, 20, 30)
	if got := apply(t, doc, slicer(t, types.NewInt(1))); !got.Equal(types.NewInt(20)) {
		t.Errorf("[1] = %s", got)
	}
	// Negative indices count from the end.
	if got := apply(t, doc, slicer(t, types.NewInt(-1))); !got.Equal(types.NewInt(30)) {
		t.Errorf("[-1] = %s", got)
	}
	// Out-of-range singleton yields an empty array.
	got := apply(t, doc, slicer(t, types.NewInt(7)))
	if got.Tag != types.TypeArr || len(got.Arr) != 0 {
		t.Errorf("[7] = %s, want []", got)
	}
}

func TestSlicerList(t *testing.T) {
	doc := ints(0, 10, 20, 30, 40)
	step := int64(2)
	stop := int64(5)
	sl, err := types.NewSlice(nil, &stop, &step)
	if err != nil {
		t.Fatal(err)
	}
	got := apply(t, doc, slicer(t, sl))
	if !got.Equal(ints(0, 20, 40)) {
		t.Errorf("[:5:2] = %s", got)
	}
	// Multiple children concatenate in child order.
	got = apply(t, doc, slicer(t, types.NewInt(4), types.NewInt(0)))
	if !got.Equal(ints(40, 0)) {
		t.Errorf("[4, 0] = %s", got)
	}
}

func TestStarIndexer(t *testing.T) {
	star, err := NewStar(false)
	if err != nil {
		t.Fatal(err)
	}
	if got := apply(t, ints(1, 2), star); !got.Equal(ints(1, 2)) {
		t.Errorf("[*] on array = %s", got)
	}
	doc := obj("a", types.NewInt(1), "b", types.NewInt(2))
	if got := apply(t, doc, star); !got.Equal(doc) {
		t.Errorf("[*] on object = %s", got)
	}
	if _, err := Apply(types.NewInt(1), []*Indexer{star}); err == nil {
		t.Error("[*] on a scalar did not fail")
	}
}

func TestRecursiveNotImplementedForms(t *testing.T) {
	if _, err := NewStar(true); !isKind(err, types.KindNotImplemented) {
		t.Errorf("recursive star: %v", err)
	}
	if _, err := NewSlicerList([]*types.Value{types.NewInt(0)}, true); !isKind(err, types.KindNotImplemented) {
		t.Errorf("recursive slicer: %v", err)
	}
	if _, err := NewBooleanFilter(types.NewBool(true), true); !isKind(err, types.KindNotImplemented) {
		t.Errorf("recursive filter: %v", err)
	}
}

func isKind(err error, kind types.ErrorKind) bool {
	var e *types.Error
	return errors.As(err, &e) && e.Kind == kind
}

func TestRecursiveSearch(t *testing.T) {
	inner := obj("target", types.NewInt(2))
	doc := obj(
		"target", types.NewInt(1),
		"mid", types.NewArr([]*types.Value{inner}),
	)
	got := apply(t, doc, varname(t, true, types.NewStr("target")))
	// Matches collect into an array, shallower first.
	if !got.Equal(ints(1, 2)) {
		t.Errorf("recursive .target = %s", got)
	}
}

func TestRecursiveSearchDedupsAliases(t *testing.T) {
	shared := ints(9)
	doc := obj("x1", shared, "x2", shared)
	got := apply(t, doc, varname(t, true, types.NewRegex(regexp.MustCompile(`^x`))))
	if got.Tag != types.TypeArr || len(got.Arr) != 1 {
		t.Fatalf("aliased recursive search = %s, want a single match", got)
	}
}

func TestBooleanFilterScalar(t *testing.T) {
	keep, err := NewBooleanFilter(types.NewBool(true), false)
	if err != nil {
		t.Fatal(err)
	}
	if got := apply(t, ints(1, 2), keep); !got.Equal(ints(1, 2)) {
		t.Errorf("[true] = %s", got)
	}
	drop, err := NewBooleanFilter(types.NewBool(false), false)
	if err != nil {
		t.Fatal(err)
	}
	got := apply(t, ints(1, 2), drop)
	if got.Tag != types.TypeArr || len(got.Arr) != 0 {
		t.Errorf("[false] = %s, want []", got)
	}
}

func TestBooleanFilterMask(t *testing.T) {
	gt1 := types.NewCur(func(input *types.Value) (*types.Value, error) {
		elts := make([]*types.Value, len(input.Arr))
		for i, e := range input.Arr {
			elts[i] = types.NewBool(e.Int > 1)
		}
		return types.NewArr(elts), nil
	}, types.TypeArr)
	ix, err := NewBooleanFilter(gt1, false)
	if err != nil {
		t.Fatal(err)
	}
	if got := apply(t, ints(1, 2, 3), ix); !got.Equal(ints(2, 3)) {
		t.Errorf("mask filter = %s", got)
	}
}

func TestBooleanFilterShapeErrors(t *testing.T) {
	short := types.NewCur(func(*types.Value) (*types.Value, error) {
		return types.NewArr([]*types.Value{types.NewBool(true)}), nil
	}, types.TypeArr)
	ix, err := NewBooleanFilter(short, false)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Apply(ints(1, 2), []*Indexer{ix}); !isKind(err, types.KindVectorized) {
		t.Errorf("length mismatch: %v", err)
	}

	nonBool := types.NewCur(func(*types.Value) (*types.Value, error) {
		return ints(1, 2), nil
	}, types.TypeArr)
	ix, err = NewBooleanFilter(nonBool, false)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Apply(ints(1, 2), []*Indexer{ix}); !isKind(err, types.KindVectorized) {
		t.Errorf("non-bool mask: %v", err)
	}
}

func TestChainElidesEmptySubresults(t *testing.T) {
	doc := types.NewArr([]*types.Value{
		obj("a", types.NewInt(1)),
		obj("b", types.NewInt(2)),
	})
	star, err := NewStar(false)
	if err != nil {
		t.Fatal(err)
	}
	got := apply(t, doc, star, varname(t, false, types.NewStr("a")))
	// The element with no "a" vanishes instead of leaving a hole.
	if !got.Equal(ints(1)) {
		t.Errorf("[*].a = %s", got)
	}
}

func TestProjection(t *testing.T) {
	first := types.NewCur(func(input *types.Value) (*types.Value, error) {
		return input.Arr[0], nil
	}, types.TypeUnknown)
	ix := NewProjection([]ProjEntry{
		{Key: "head", Val: first},
		{Key: "label", Val: types.NewStr("row")},
	}, true)
	got := apply(t, ints(7, 8), ix)
	want := obj("head", types.NewInt(7), "label", types.NewStr("row"))
	if !got.Equal(want) {
		t.Errorf("object projection = %s", got)
	}

	arrIx := NewProjection([]ProjEntry{{Val: first}, {Val: types.NewInt(0)}}, false)
	got = apply(t, ints(7, 8), arrIx)
	if !got.Equal(ints(7, 0)) {
		t.Errorf("array projection = %s", got)
	}
}

func TestProjectionContinuesChain(t *testing.T) {
	first := types.NewCur(func(input *types.Value) (*types.Value, error) {
		return input.Arr[0], nil
	}, types.TypeUnknown)
	proj := NewProjection([]ProjEntry{{Val: first}, {Val: types.NewInt(5)}}, false)
	got := apply(t, ints(7, 8), proj, slicer(t, types.NewInt(1)))
	if !got.Equal(types.NewInt(5)) {
		t.Errorf("projection then [1] = %s", got)
	}
}

func TestSingletonFlags(t *testing.T) {
	if ix := varname(t, false, types.NewStr("a")); !ix.Singleton || !ix.EmitsObject() {
		t.Error("one-name list must be a singleton object emitter")
	}
	if ix := varname(t, false, types.NewStr("a"), types.NewStr("b")); ix.Singleton {
		t.Error("two-name list must not be a singleton")
	}
	if ix := varname(t, false, types.NewRegex(regexp.MustCompile(`a`))); ix.Singleton {
		t.Error("a lone regex must not be a singleton")
	}
	if ix := varname(t, true, types.NewStr("a")); ix.Singleton || ix.EmitsObject() {
		t.Error("recursive lists are neither singletons nor object emitters")
	}
	if ix := slicer(t, types.NewInt(0)); !ix.Singleton {
		t.Error("one-int slicer list must be a singleton")
	}
}
