// Package types defines the core type system for GoRemes.
//
// This package contains type definitions for:
//   - Value: the tagged JSON value union, including the engine-only variants
//   - Dtype: the flag-set type tag used for static dispatch decisions
//   - Object: an insertion-ordered string-keyed mapping
//   - Slice: a compiled slice (start, stop, step)
//   - Error types: structured errors with kinds
package types

import (
	"iter"
	"regexp"
)

// Dtype is the logical type tag of a Value. Tags are bit flags so that a
// single Dtype can also describe a set of permitted types (e.g. a function
// argument that accepts either a string or a compiled regex).
type Dtype uint16

const (
	TypeBool Dtype = 1 << iota
	TypeInt
	TypeFloat
	TypeStr
	TypeNull
	TypeRegex
	TypeArr
	TypeObj
	TypeSlice
	// TypeCurJSON marks a late-bound reference to the current input.
	// The declared output tag lives in Value.OutTag.
	TypeCurJSON
	// TypeUnknown is the output tag of a late-bound value whose concrete
	// type cannot be determined statically.
	TypeUnknown
)

// Composite tag sets used by the registries for type predicates.
const (
	TypeNum        = TypeInt | TypeFloat
	TypeIterable   = TypeArr | TypeObj
	TypeStrOrRegex = TypeStr | TypeRegex
	TypeIntOrSlice = TypeInt | TypeSlice
	TypeScalar     = TypeBool | TypeNum | TypeStr | TypeNull
	TypeAnything   = TypeScalar | TypeIterable
)

// String returns a readable name for the tag, used in error messages.
func (d Dtype) String() string {
	switch d {
	case TypeBool:
		return "boolean"
	case TypeInt:
		return "integer"
	case TypeFloat:
		return "float"
	case TypeStr:
		return "string"
	case TypeNull:
		return "null"
	case TypeRegex:
		return "regex"
	case TypeArr:
		return "array"
	case TypeObj:
		return "object"
	case TypeSlice:
		return "slice"
	case TypeCurJSON:
		return "current-input reference"
	case TypeUnknown:
		return "unknown"
	case TypeNum:
		return "number"
	case TypeIterable:
		return "iterable"
	case TypeStrOrRegex:
		return "string or regex"
	case TypeIntOrSlice:
		return "integer or slice"
	case TypeAnything:
		return "anything"
	}
	// Multi-bit set with no canonical name: list the members.
	s := ""
	for bit := Dtype(1); bit <= TypeUnknown; bit <<= 1 {
		if d&bit != 0 {
			if s != "" {
				s += " or "
			}
			s += bit.String()
		}
	}
	if s == "" {
		return "(no type)"
	}
	return s
}

// ApplyFunc computes the value of a late-bound expression for a given input.
type ApplyFunc func(input *Value) (*Value, error)

// Value is the engine's JSON value: a tagged union over the JSON types plus
// the engine-only slice, compiled-regex and current-input variants.
//
// Exactly one payload field is meaningful, selected by Tag. Constructors set
// the tag to match the stored payload; code outside this package should
// build values through them so tags never go stale.
type Value struct {
	Tag    Dtype
	Bool   bool
	Int    int64
	Float  float64
	Str    string
	Arr    []*Value
	Obj    *Object
	Re     *regexp.Regexp
	Slice  Slice
	Fn     ApplyFunc
	OutTag Dtype // declared output tag when Tag == TypeCurJSON
}

// NewBool returns a boolean value.
func NewBool(b bool) *Value { return &Value{Tag: TypeBool, Bool: b} }

// NewInt returns a 64-bit integer value.
func NewInt(i int64) *Value { return &Value{Tag: TypeInt, Int: i} }

// NewFloat returns a 64-bit float value.
func NewFloat(f float64) *Value { return &Value{Tag: TypeFloat, Float: f} }

// NewStr returns a string value.
func NewStr(s string) *Value { return &Value{Tag: TypeStr, Str: s} }

// NewNull returns a null value.
func NewNull() *Value { return &Value{Tag: TypeNull} }

// NewRegex wraps a compiled pattern.
func NewRegex(re *regexp.Regexp) *Value { return &Value{Tag: TypeRegex, Re: re} }

// NewArr returns an array value holding elts. The slice is used as-is.
func NewArr(elts []*Value) *Value { return &Value{Tag: TypeArr, Arr: elts} }

// NewObj returns an object value backed by obj. A nil obj yields an empty object.
func NewObj(obj *Object) *Value {
	if obj == nil {
		obj = NewObject()
	}
	return &Value{Tag: TypeObj, Obj: obj}
}

// NewCur returns a late-bound reference with the declared output tag.
// outTag must be a superset of every concrete tag fn may produce.
func NewCur(fn ApplyFunc, outTag Dtype) *Value {
	return &Value{Tag: TypeCurJSON, Fn: fn, OutTag: outTag}
}

// IsCur reports whether v is a late-bound reference.
func (v *Value) IsCur() bool { return v.Tag == TypeCurJSON }

// StaticTag returns the tag used for static dispatch decisions: the declared
// output tag for late-bound values, the concrete tag otherwise.
func (v *Value) StaticTag() Dtype {
	if v.Tag == TypeCurJSON {
		return v.OutTag
	}
	return v.Tag
}

// Slice is a compiled slice: three optional integers. It is an indexer
// construct, not a queryable value.
type Slice struct {
	Start, Stop, Step *int64
}

// NewSlice returns a slice value. A step of 0 is rejected at construction.
func NewSlice(start, stop, step *int64) (*Value, error) {
	if step != nil && *step == 0 {
		return nil, NewError(KindParse, "slice step cannot be zero", -1)
	}
	return &Value{Tag: TypeSlice, Slice: Slice{Start: start, Stop: stop, Step: step}}, nil
}

// Indices returns the element indices the slice selects from a container of
// the given length, in selection order. Semantics are the usual half-open
// right-exclusive ones: negative start/stop/step count from the end, and
// out-of-range bounds clip.
func (s Slice) Indices(length int) []int {
	n := int64(length)
	step := int64(1)
	if s.Step != nil {
		step = *s.Step
	}
	var start, stop int64
	if step > 0 {
		start, stop = 0, n
	} else {
		start, stop = n-1, -1
	}
	clamp := func(i int64) int64 {
		if i < 0 {
			i += n
		}
		if i < 0 {
			if step > 0 {
				return 0
			}
			return -1
		}
		if i >= n {
			if step > 0 {
				return n
			}
			return n - 1
		}
		return i
	}
	if s.Start != nil {
		start = clamp(*s.Start)
	}
	if s.Stop != nil {
		stop = clamp(*s.Stop)
	}
	var out []int
	if step > 0 {
		for i := start; i < stop; i += step {
			out = append(out, int(i))
		}
	} else {
		for i := start; i > stop; i += step {
			out = append(out, int(i))
		}
	}
	return out
}

// Object is an ordered mapping from string key to Value. Insertion order is
// preserved; keys are unique (setting an existing key replaces the value in
// place, keeping its position).
type Object struct {
	keys []string
	vals map[string]*Value
}

// NewObject returns an empty ordered object.
func NewObject() *Object {
	return &Object{vals: make(map[string]*Value)}
}

// Set inserts or replaces the value for key.
func (o *Object) Set(key string, v *Value) {
	if _, ok := o.vals[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.vals[key] = v
}

// Get returns the value for key, or (nil, false) if absent.
func (o *Object) Get(key string) (*Value, bool) {
	v, ok := o.vals[key]
	return v, ok
}

// Len returns the number of keys.
func (o *Object) Len() int { return len(o.keys) }

// Keys returns the keys in insertion order. The returned slice is shared.
func (o *Object) Keys() []string { return o.keys }

// Pairs iterates the (key, value) pairs in insertion order.
func (o *Object) Pairs() iter.Seq2[string, *Value] {
	return func(yield func(string, *Value) bool) {
		for _, k := range o.keys {
			if !yield(k, o.vals[k]) {
				return
			}
		}
	}
}

// Equal reports structural equality. Tags must match exactly (an integer is
// not Equal to a float of the same magnitude); objects must agree on key
// sets and per-key values, arrays on length and per-index values. Key order
// is not significant for equality.
func (v *Value) Equal(w *Value) bool {
	if v == nil || w == nil {
		return v == w
	}
	if v.Tag != w.Tag {
		return false
	}
	switch v.Tag {
	case TypeBool:
		return v.Bool == w.Bool
	case TypeInt:
		return v.Int == w.Int
	case TypeFloat:
		return v.Float == w.Float
	case TypeStr:
		return v.Str == w.Str
	case TypeNull:
		return true
	case TypeRegex:
		return v.Re.String() == w.Re.String()
	case TypeArr:
		if len(v.Arr) != len(w.Arr) {
			return false
		}
		for i, e := range v.Arr {
			if !e.Equal(w.Arr[i]) {
				return false
			}
		}
		return true
	case TypeObj:
		if v.Obj.Len() != w.Obj.Len() {
			return false
		}
		for k, ve := range v.Obj.Pairs() {
			we, ok := w.Obj.Get(k)
			if !ok || !ve.Equal(we) {
				return false
			}
		}
		return true
	}
	return false
}

// Clone returns a deep copy of v. Late-bound references share their closure.
func (v *Value) Clone() *Value {
	switch v.Tag {
	case TypeArr:
		elts := make([]*Value, len(v.Arr))
		for i, e := range v.Arr {
			elts[i] = e.Clone()
		}
		return NewArr(elts)
	case TypeObj:
		obj := NewObject()
		for k, e := range v.Obj.Pairs() {
			obj.Set(k, e.Clone())
		}
		return NewObj(obj)
	default:
		c := *v
		return &c
	}
}
