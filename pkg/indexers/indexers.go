// Package indexers compiles the suffix constructs of a query (key selectors,
// slicers, filters, projections) into lazy pair iterators and applies chains
// of them to JSON values.
//
// Every indexer, given a value, produces a forward single-pass sequence of
// (key-or-index, child) pairs. A chain is applied left to right by a single
// engine loop; containers are only materialized where a projection or an
// ambiguous shape forces it.
package indexers

import (
	"fmt"
	"iter"

	"github.com/sandrolain/goremes/pkg/types"
)

// Kind discriminates the compiled indexer forms.
type Kind int

const (
	// KindVarnameList selects object keys by literal name or regex.
	KindVarnameList Kind = iota
	// KindSlicerList selects array elements by index or slice.
	KindSlicerList
	// KindStar selects every key or index.
	KindStar
	// KindBooleanFilter keeps the pairs an embedded boolean expression
	// approves of.
	KindBooleanFilter
	// KindProjection reshapes the input into a fresh array or object.
	KindProjection
)

// ProjEntry is one member of a projection: a child expression and, for
// object projections, its key.
type ProjEntry struct {
	Key string
	Val *types.Value
}

// Indexer is a compiled indexer with its dispatch flags.
type Indexer struct {
	Kind      Kind
	Children  []*types.Value // varname list: strings/regexes; slicer list: ints/slices
	Filter    *types.Value   // boolean filter expression
	Proj      []ProjEntry
	ProjObj   bool // projection builds an object rather than an array
	Recursive bool
	// Singleton marks an indexer statically known to select exactly one
	// element; the chain unwraps its result from the container.
	Singleton bool
}

// NewVarnameList builds a key/regex selector. A one-name non-recursive list
// is a singleton: its result is returned as a scalar, not wrapped.
func NewVarnameList(children []*types.Value, recursive bool) (*Indexer, error) {
	for _, c := range children {
		if c.Tag&types.TypeStrOrRegex == 0 {
			return nil, types.NewError(types.KindParse,
				fmt.Sprintf("varname list entries must be strings or regexes, got %s", c.Tag), -1)
		}
	}
	ix := &Indexer{Kind: KindVarnameList, Children: children, Recursive: recursive}
	ix.Singleton = !recursive && len(children) == 1 && children[0].Tag == types.TypeStr
	return ix, nil
}

// NewSlicerList builds an index/slice selector. Recursive slicers are not
// implemented.
func NewSlicerList(children []*types.Value, recursive bool) (*Indexer, error) {
	if recursive {
		return nil, types.NewError(types.KindNotImplemented,
			"recursive search for array indices and slices is not implemented", -1)
	}
	for _, c := range children {
		if c.Tag&types.TypeIntOrSlice == 0 {
			return nil, types.NewError(types.KindParse,
				fmt.Sprintf("slicer list entries must be integers or slices, got %s", c.Tag), -1)
		}
	}
	ix := &Indexer{Kind: KindSlicerList, Children: children}
	ix.Singleton = len(children) == 1 && children[0].Tag == types.TypeInt
	return ix, nil
}

// NewStar builds the all-keys/all-indices selector.
func NewStar(recursive bool) (*Indexer, error) {
	if recursive {
		return nil, types.NewError(types.KindNotImplemented,
			"recursive star indexers are not implemented", -1)
	}
	return &Indexer{Kind: KindStar}, nil
}

// NewBooleanFilter wraps a boolean sub-expression as a filter.
func NewBooleanFilter(filter *types.Value, recursive bool) (*Indexer, error) {
	if recursive {
		return nil, types.NewError(types.KindNotImplemented,
			"recursive filters are not implemented", -1)
	}
	return &Indexer{Kind: KindBooleanFilter, Filter: filter}, nil
}

// NewProjection builds a projection indexer.
func NewProjection(entries []ProjEntry, isObject bool) *Indexer {
	return &Indexer{Kind: KindProjection, Proj: entries, ProjObj: isObject}
}

// EmitsObject reports whether the indexer's results accumulate into an
// object regardless of further context. Recursive searches collect their
// matches into an array instead, since matched keys from different depths
// may collide.
func (ix *Indexer) EmitsObject() bool {
	return ix.Kind == KindVarnameList && !ix.Recursive
}

// IsProjection reports whether the indexer reshapes rather than selects.
func (ix *Indexer) IsProjection() bool { return ix.Kind == KindProjection }

type pairSeq = iter.Seq2[any, *types.Value]

// pairs returns the lazy (key, child) sequence the indexer selects from v.
// All validation that can fail happens here, before iteration begins.
func (ix *Indexer) pairs(v *types.Value) (pairSeq, error) {
	switch ix.Kind {
	case KindVarnameList:
		if ix.Recursive {
			return ix.recursivePairs(v), nil
		}
		if v.Tag != types.TypeObj {
			return nil, types.NewError(types.KindType,
				fmt.Sprintf("keys can only be selected from an object, not a %s", v.Tag), -1)
		}
		return ix.varnamePairs(v.Obj), nil
	case KindSlicerList:
		if v.Tag != types.TypeArr {
			return nil, types.NewError(types.KindType,
				fmt.Sprintf("indices can only be selected from an array, not a %s", v.Tag), -1)
		}
		return ix.slicerPairs(v.Arr), nil
	case KindStar:
		switch v.Tag {
		case types.TypeObj:
			return func(yield func(any, *types.Value) bool) {
				for k, e := range v.Obj.Pairs() {
					if !yield(k, e) {
						return
					}
				}
			}, nil
		case types.TypeArr:
			return func(yield func(any, *types.Value) bool) {
				for i, e := range v.Arr {
					if !yield(int64(i), e) {
						return
					}
				}
			}, nil
		}
		return nil, types.NewError(types.KindType,
			fmt.Sprintf("star indexer requires an iterable, not a %s", v.Tag), -1)
	case KindBooleanFilter:
		return ix.filterPairs(v)
	}
	return nil, types.NewError(types.KindType, "projection has no pair sequence", -1)
}

// varnamePairs yields, for each configured name, the one matching key-value
// if present (missing literal keys are silently skipped), and for each
// regex every pair whose key matches.
func (ix *Indexer) varnamePairs(obj *types.Object) pairSeq {
	return func(yield func(any, *types.Value) bool) {
		for _, c := range ix.Children {
			if c.Tag == types.TypeStr {
				if e, ok := obj.Get(c.Str); ok {
					if !yield(c.Str, e) {
						return
					}
				}
				continue
			}
			for k, e := range obj.Pairs() {
				if c.Re.MatchString(k) {
					if !yield(k, e) {
						return
					}
				}
			}
		}
	}
}

// recursivePairs performs the descent: at each object, each configured
// name/regex yields its matches at that level, and unmatched keys are
// recursed into. Arrays are traversed without being matched. A visited set
// keyed on node identity keeps any rooted subtree from being yielded twice,
// even when the document aliases it along several paths.
func (ix *Indexer) recursivePairs(v *types.Value) pairSeq {
	return func(yield func(any, *types.Value) bool) {
		visited := make(map[*types.Value]struct{})
		var walk func(node *types.Value) bool
		walk = func(node *types.Value) bool {
			switch node.Tag {
			case types.TypeObj:
				matched := make(map[string]bool, node.Obj.Len())
				for _, c := range ix.Children {
					for k, e := range node.Obj.Pairs() {
						var hit bool
						if c.Tag == types.TypeStr {
							hit = c.Str == k
						} else {
							hit = c.Re.MatchString(k)
						}
						if !hit {
							continue
						}
						matched[k] = true
						if _, seen := visited[e]; seen {
							continue
						}
						visited[e] = struct{}{}
						if !yield(k, e) {
							return false
						}
					}
				}
				for k, e := range node.Obj.Pairs() {
					if !matched[k] {
						if !walk(e) {
							return false
						}
					}
				}
			case types.TypeArr:
				for _, e := range node.Arr {
					if !walk(e) {
						return false
					}
				}
			}
			return true
		}
		walk(v)
	}
}

// slicerPairs yields positive-normalized in-bounds indices for int children
// and the selected subranges for slice children.
func (ix *Indexer) slicerPairs(arr []*types.Value) pairSeq {
	return func(yield func(any, *types.Value) bool) {
		n := int64(len(arr))
		for _, c := range ix.Children {
			if c.Tag == types.TypeInt {
				i := c.Int
				if i < 0 {
					i += n
				}
				if i < 0 || i >= n {
					continue
				}
				if !yield(i, arr[i]) {
					return
				}
				continue
			}
			for _, i := range c.Slice.Indices(len(arr)) {
				if !yield(int64(i), arr[i]) {
					return
				}
			}
		}
	}
}

// filterPairs evaluates the filter against the container. A scalar bool
// keeps all pairs or none; an iterable of bools must mirror the container's
// shape and length and acts as a mask.
func (ix *Indexer) filterPairs(v *types.Value) (pairSeq, error) {
	if v.Tag&types.TypeIterable == 0 {
		return nil, types.NewError(types.KindType,
			fmt.Sprintf("boolean filters require an iterable, not a %s", v.Tag), -1)
	}
	fv := ix.Filter
	if fv.IsCur() {
		var err error
		if fv, err = fv.Fn(v); err != nil {
			return nil, err
		}
	}
	if fv.Tag == types.TypeBool {
		if !fv.Bool {
			return func(func(any, *types.Value) bool) {}, nil
		}
		star := &Indexer{Kind: KindStar}
		return star.pairs(v)
	}
	switch {
	case v.Tag == types.TypeArr && fv.Tag == types.TypeArr:
		if len(fv.Arr) != len(v.Arr) {
			return nil, types.NewError(types.KindVectorized,
				fmt.Sprintf("boolean filter mask has length %d but the array has length %d",
					len(fv.Arr), len(v.Arr)), -1)
		}
		for _, m := range fv.Arr {
			if m.Tag != types.TypeBool {
				return nil, types.NewError(types.KindVectorized,
					fmt.Sprintf("boolean filter mask contains a %s", m.Tag), -1)
			}
		}
		return func(yield func(any, *types.Value) bool) {
			for i, e := range v.Arr {
				if fv.Arr[i].Bool && !yield(int64(i), e) {
					return
				}
			}
		}, nil
	case v.Tag == types.TypeObj && fv.Tag == types.TypeObj:
		if fv.Obj.Len() != v.Obj.Len() {
			return nil, types.NewError(types.KindVectorized,
				"boolean filter mask does not share the object's key set", -1)
		}
		for k := range v.Obj.Pairs() {
			m, ok := fv.Obj.Get(k)
			if !ok {
				return nil, types.NewError(types.KindVectorized,
					"boolean filter mask does not share the object's key set", -1)
			}
			if m.Tag != types.TypeBool {
				return nil, types.NewError(types.KindVectorized,
					fmt.Sprintf("boolean filter mask contains a %s", m.Tag), -1)
			}
		}
		return func(yield func(any, *types.Value) bool) {
			for k, e := range v.Obj.Pairs() {
				m, _ := fv.Obj.Get(k)
				if m.Bool && !yield(k, e) {
					return
				}
			}
		}, nil
	}
	return nil, types.NewError(types.KindVectorized,
		fmt.Sprintf("boolean filter produced a %s for a %s", fv.Tag, v.Tag), -1)
}

// project materializes the projection against v: each late-bound child is
// applied to the containing value, constants are emitted as-is.
func (ix *Indexer) project(v *types.Value) (*types.Value, error) {
	resolve := func(c *types.Value) (*types.Value, error) {
		if c.IsCur() {
			return c.Fn(v)
		}
		return c, nil
	}
	if ix.ProjObj {
		out := types.NewObject()
		for _, entry := range ix.Proj {
			e, err := resolve(entry.Val)
			if err != nil {
				return nil, err
			}
			out.Set(entry.Key, e)
		}
		return types.NewObj(out), nil
	}
	elts := make([]*types.Value, len(ix.Proj))
	for i, entry := range ix.Proj {
		e, err := resolve(entry.Val)
		if err != nil {
			return nil, err
		}
		elts[i] = e
	}
	return types.NewArr(elts), nil
}

// Apply runs an indexer chain over v left to right.
//
// A singleton indexer unwraps its one result; zero yields produce an empty
// container of the indexer's shape; projections materialize immediately and
// the remaining chain continues from the projected value. Empty subresults
// of deeper chain links are elided so filtered paths leave no holes.
func Apply(v *types.Value, chain []*Indexer) (*types.Value, error) {
	if len(chain) == 0 {
		return v, nil
	}
	ix, rest := chain[0], chain[1:]
	if ix.IsProjection() {
		pv, err := ix.project(v)
		if err != nil {
			return nil, err
		}
		return Apply(pv, rest)
	}
	seq, err := ix.pairs(v)
	if err != nil {
		return nil, err
	}
	if ix.Singleton {
		for _, child := range seq {
			return Apply(child, rest)
		}
		if ix.EmitsObject() {
			return types.NewObj(nil), nil
		}
		return types.NewArr(nil), nil
	}
	asObject := ix.EmitsObject() ||
		((ix.Kind == KindStar || ix.Kind == KindBooleanFilter) && v.Tag == types.TypeObj)
	if asObject {
		out := types.NewObject()
		for k, child := range seq {
			sub, serr := Apply(child, rest)
			if serr != nil {
				return nil, serr
			}
			if len(rest) > 0 && emptyContainer(sub) {
				continue
			}
			out.Set(k.(string), sub)
		}
		return types.NewObj(out), nil
	}
	elts := []*types.Value{}
	for _, child := range seq {
		sub, serr := Apply(child, rest)
		if serr != nil {
			return nil, serr
		}
		if len(rest) > 0 && emptyContainer(sub) {
			continue
		}
		elts = append(elts, sub)
	}
	return types.NewArr(elts), nil
}

func emptyContainer(v *types.Value) bool {
	switch v.Tag {
	case types.TypeArr:
		return len(v.Arr) == 0
	case types.TypeObj:
		return v.Obj.Len() == 0
	}
	return false
}
