package parser

import (
	"fmt"

	"github.com/sandrolain/goremes/pkg/binops"
	"github.com/sandrolain/goremes/pkg/functions"
	"github.com/sandrolain/goremes/pkg/indexers"
	"github.com/sandrolain/goremes/pkg/types"
)

// binopWithArgs is a binop tree node under construction. Operands are either
// resolved values (*types.Value) or nested unresolved nodes (*binopWithArgs).
type binopWithArgs struct {
	op    *binops.Binop
	left  any
	right any
}

// resolveBinopTree folds a finished binop tree bottom-up into a value,
// taking late binding into account at every node.
func resolveBinopTree(n *binopWithArgs) (*types.Value, error) {
	resolve := func(c any) (*types.Value, error) {
		switch c := c.(type) {
		case *types.Value:
			return c, nil
		case *binopWithArgs:
			return resolveBinopTree(c)
		}
		return nil, types.NewError(types.KindParse,
			fmt.Sprintf("binop %s is missing an operand", n.op.Name), -1)
	}
	l, err := resolve(n.left)
	if err != nil {
		return nil, err
	}
	r, err := resolve(n.right)
	if err != nil {
		return nil, err
	}
	return binops.Resolve(n.op, l, r)
}

// parseExprOrScalarFunc reads left-hand expressions and binop tokens
// alternately, maintaining a binop tree under construction: a root and the
// rightmost incomplete leaf. A new binop with effective precedence at or
// below the previous one closes the previous binop and takes the whole tree
// as its left side; a higher one nests as the right child of the leaf.
//
// A prefix minus toggles a pending flag (so a double minus cancels). When
// the operand has been read, a pending minus either folds into the
// synthetic negate-power binop if ** follows, or is applied immediately via
// the unary negation function.
func (p *parser) parseExprOrScalarFunc(pos int) (*types.Value, int, error) {
	uminus := false
	var root, leaf *binopWithArgs
	var lastPrec float64
	for {
		for p.at(pos).IsBinop("-") {
			uminus = !uminus
			pos++
		}
		left, npos, err := p.parseExprOrScalar(pos)
		if err != nil {
			return nil, 0, err
		}
		pos = npos

		t := p.at(pos)
		if t.Type != TokenBinop {
			if uminus {
				if left, err = functions.Apply(functions.UMinus, []*types.Value{left}); err != nil {
					return nil, 0, err
				}
			}
			if root == nil {
				return left, pos, nil
			}
			leaf.right = left
			v, err := resolveBinopTree(root)
			if err != nil {
				return nil, 0, err
			}
			return v, pos, nil
		}

		b := t.Binop
		prec := b.Precedence
		if b.Name == "**" {
			if uminus {
				b = binops.NegPow
				prec = b.Precedence
				uminus = false
			} else if root != nil && lastPrec == prec {
				// Epsilon nudge against itself: right associativity.
				prec += 0.001
			}
		} else if uminus {
			if left, err = functions.Apply(functions.UMinus, []*types.Value{left}); err != nil {
				return nil, 0, err
			}
			uminus = false
		}

		bwa := &binopWithArgs{op: b}
		switch {
		case root == nil:
			bwa.left = left
			root, leaf = bwa, bwa
		case prec <= lastPrec:
			// The prior binop wins the operand; the new binop takes
			// the whole tree so far as its left side.
			leaf.right = left
			bwa.left = root
			root, leaf = bwa, bwa
		default:
			bwa.left = left
			leaf.right = bwa
			leaf = bwa
		}
		lastPrec = b.Precedence
		pos++
	}
}

// parseExprOrScalar parses one atom — a parenthesized sub-query, an
// argument-function call, or a literal / late-bound reference — and then
// consumes its trailing indexer chain.
func (p *parser) parseExprOrScalar(pos int) (*types.Value, int, error) {
	t := p.at(pos)
	var obj *types.Value
	var err error
	switch {
	case t.IsDelim("("):
		obj, pos, err = p.parseExprOrScalarFunc(pos + 1)
		if err != nil {
			return nil, 0, err
		}
		if !p.at(pos).IsDelim(")") {
			return nil, 0, p.errAt(pos, "expected ) to close a parenthesized expression")
		}
		pos++
	case t.Type == TokenFunc:
		obj, pos, err = p.parseArgFunction(pos)
		if err != nil {
			return nil, 0, err
		}
	case t.Type == TokenValue:
		obj = t.Value
		pos++
	case t.Type == TokenEOF:
		return nil, 0, p.errAt(pos, "unexpected end of query")
	default:
		return nil, 0, p.errAt(pos, fmt.Sprintf("unexpected token %s", t))
	}

	var chain []*indexers.Indexer
	for {
		t = p.at(pos)
		if !t.IsDelim(".") && !t.IsDelim("..") && !t.IsDelim("[") && !t.IsDelim("{") {
			break
		}
		ix, npos, err := p.parseIndexer(pos)
		if err != nil {
			return nil, 0, err
		}
		chain = append(chain, ix)
		pos = npos
	}
	if len(chain) == 0 {
		return obj, pos, nil
	}
	if obj.IsCur() {
		base := obj
		fn := func(input *types.Value) (*types.Value, error) {
			o, err := base.Fn(input)
			if err != nil {
				return nil, err
			}
			return indexers.Apply(o, chain)
		}
		return types.NewCur(fn, types.TypeUnknown), pos, nil
	}
	v, err := indexers.Apply(obj, chain)
	if err != nil {
		return nil, 0, err
	}
	return v, pos, nil
}

// parseArgFunction parses fname(arg, ...). Each argument's static type is
// intersected with the position's permitted set (late-bound arguments of
// unknown type always pass); short calls are padded with nulls up to the
// maximum arity.
func (p *parser) parseArgFunction(pos int) (*types.Value, int, error) {
	f := p.toks[pos].Fn
	fpos := pos
	pos++
	if !p.at(pos).IsDelim("(") {
		return nil, 0, p.errAt(pos, fmt.Sprintf("expected ( after function %s", f.Name))
	}
	pos++
	var args []*types.Value
	for !p.at(pos).IsDelim(")") {
		if p.at(pos).Type == TokenEOF {
			return nil, 0, p.errAt(pos, fmt.Sprintf("unterminated call of function %s", f.Name))
		}
		if len(args) >= f.MaxArgs {
			return nil, 0, p.errAt(pos,
				fmt.Sprintf("function %s accepts at most %d arguments", f.Name, f.MaxArgs))
		}
		i := len(args)
		var arg *types.Value
		var err error
		if f.InTypes[i]&types.TypeSlice != 0 && p.looksLikeSlicer(pos) {
			arg, pos, err = p.parseSlicer(pos)
		} else {
			arg, pos, err = p.parseExprOrScalarFunc(pos)
		}
		if err != nil {
			return nil, 0, err
		}
		if tag := arg.StaticTag(); tag != types.TypeUnknown && tag&f.InTypes[i] == 0 {
			return nil, 0, p.errAt(fpos,
				fmt.Sprintf("function %s argument %d requires %s, got %s", f.Name, i, f.InTypes[i], tag))
		}
		args = append(args, arg)
		t := p.at(pos)
		if t.IsDelim(",") {
			pos++
			continue
		}
		if !t.IsDelim(")") {
			return nil, 0, p.errAt(pos, fmt.Sprintf("expected , or ) in the arguments of %s", f.Name))
		}
	}
	pos++
	if len(args) < f.MinArgs {
		return nil, 0, p.errAt(fpos,
			fmt.Sprintf("function %s requires at least %d arguments, got %d", f.Name, f.MinArgs, len(args)))
	}
	for len(args) < f.MaxArgs {
		args = append(args, types.NewNull())
	}
	v, err := functions.Apply(f, args)
	if err != nil {
		return nil, 0, err
	}
	return v, pos, nil
}

// keyChild converts a post-dot token into a varname-list child. Identifiers
// claimed by the registries (function names, keyword operators) are
// readmitted as plain keys here, so fields named "keys" or "and" stay
// reachable.
func keyChild(t Token) *types.Value {
	switch t.Type {
	case TokenValue:
		if t.Value.Tag&types.TypeStrOrRegex != 0 {
			return t.Value
		}
	case TokenFunc:
		return types.NewStr(t.Fn.Name)
	case TokenBinop:
		if isNameStart(rune(t.Binop.Name[0])) {
			return types.NewStr(t.Binop.Name)
		}
	}
	return nil
}

// parseIndexer parses one indexer: .name, ."regex", .*, [...], {...}, or a
// ..-prefixed recursive variant.
func (p *parser) parseIndexer(pos int) (*indexers.Indexer, int, error) {
	t := p.at(pos)
	switch {
	case t.IsDelim(".."):
		pos++
		nt := p.at(pos)
		if nt.IsBinop("*") {
			_, err := indexers.NewStar(true)
			return nil, 0, err
		}
		if nt.IsDelim("[") {
			return p.parseBracket(pos, true)
		}
		if child := keyChild(nt); child != nil {
			ix, err := indexers.NewVarnameList([]*types.Value{child}, true)
			if err != nil {
				return nil, 0, err
			}
			return ix, pos + 1, nil
		}
		return nil, 0, p.errAt(pos, "expected a key, regex or [ after ..")
	case t.IsDelim("."):
		pos++
		nt := p.at(pos)
		if nt.IsBinop("*") {
			ix, err := indexers.NewStar(false)
			if err != nil {
				return nil, 0, err
			}
			return ix, pos + 1, nil
		}
		if child := keyChild(nt); child != nil {
			ix, err := indexers.NewVarnameList([]*types.Value{child}, false)
			if err != nil {
				return nil, 0, err
			}
			return ix, pos + 1, nil
		}
		return nil, 0, p.errAt(pos, "expected a key, regex or * after .")
	case t.IsDelim("["):
		return p.parseBracket(pos, false)
	case t.IsDelim("{"):
		return p.parseProjection(pos)
	}
	return nil, 0, p.errAt(pos, "expected an indexer")
}

// parseBracket parses [ ... ]: a star, a varname list, a slicer list, or a
// single boolean sub-expression.
func (p *parser) parseBracket(pos int, recursive bool) (*indexers.Indexer, int, error) {
	open := pos
	pos++
	if p.at(pos).IsBinop("*") && p.at(pos+1).IsDelim("]") {
		ix, err := indexers.NewStar(recursive)
		if err != nil {
			return nil, 0, err
		}
		return ix, pos + 2, nil
	}
	var children []*types.Value
	for {
		if p.at(pos).Type == TokenEOF {
			return nil, 0, p.errAt(open, "unterminated [ indexer")
		}
		var child *types.Value
		var err error
		if p.looksLikeSlicer(pos) {
			child, pos, err = p.parseSlicer(pos)
		} else {
			child, pos, err = p.parseExprOrScalarFunc(pos)
		}
		if err != nil {
			return nil, 0, err
		}
		children = append(children, child)
		t := p.at(pos)
		if t.IsDelim(",") {
			pos++
			continue
		}
		if t.IsDelim("]") {
			pos++
			break
		}
		return nil, 0, p.errAt(pos, "expected , or ] in a bracket indexer")
	}

	if len(children) == 1 {
		if tag := children[0].StaticTag(); tag == types.TypeBool || tag == types.TypeUnknown {
			ix, err := indexers.NewBooleanFilter(children[0], recursive)
			if err != nil {
				return nil, 0, err
			}
			return ix, pos, nil
		}
	}
	allStr, allInt := true, true
	for _, c := range children {
		tag := c.StaticTag()
		if tag&types.TypeStrOrRegex == 0 {
			allStr = false
		}
		if tag&types.TypeIntOrSlice == 0 {
			allInt = false
		}
	}
	var ix *indexers.Indexer
	var err error
	switch {
	case allStr:
		ix, err = indexers.NewVarnameList(children, recursive)
	case allInt:
		ix, err = indexers.NewSlicerList(children, recursive)
	default:
		err = p.errAt(open, "a bracket list must be all strings/regexes or all integers/slices")
	}
	if err != nil {
		return nil, 0, err
	}
	return ix, pos, nil
}

// parseProjection parses { ... }: either a comma-separated sequence of
// values (array projection) or of key: value pairs with string keys (object
// projection). Mixing the two is an error.
func (p *parser) parseProjection(pos int) (*indexers.Indexer, int, error) {
	open := pos
	pos++
	if p.at(pos).IsDelim("}") {
		return nil, 0, p.errAt(open, "empty projection")
	}
	first, npos, err := p.parseExprOrScalarFunc(pos)
	if err != nil {
		return nil, 0, err
	}
	pos = npos

	if p.at(pos).IsDelim(":") {
		// Object projection.
		var entries []indexers.ProjEntry
		key := first
		for {
			if key.Tag != types.TypeStr {
				return nil, 0, p.errAt(pos, "projection keys must be strings")
			}
			if !p.at(pos).IsDelim(":") {
				return nil, 0, p.errAt(pos, "cannot mix bare values with key: value pairs in a projection")
			}
			pos++
			val, npos, err := p.parseExprOrScalarFunc(pos)
			if err != nil {
				return nil, 0, err
			}
			pos = npos
			entries = append(entries, indexers.ProjEntry{Key: key.Str, Val: val})
			t := p.at(pos)
			if t.IsDelim("}") {
				return indexers.NewProjection(entries, true), pos + 1, nil
			}
			if !t.IsDelim(",") {
				return nil, 0, p.errAt(pos, "expected , or } in a projection")
			}
			pos++
			if key, npos, err = p.parseExprOrScalarFunc(pos); err != nil {
				return nil, 0, err
			}
			pos = npos
		}
	}

	// Array projection.
	entries := []indexers.ProjEntry{{Val: first}}
	for {
		t := p.at(pos)
		if t.IsDelim("}") {
			return indexers.NewProjection(entries, false), pos + 1, nil
		}
		if t.IsDelim(":") {
			return nil, 0, p.errAt(pos, "cannot mix bare values with key: value pairs in a projection")
		}
		if !t.IsDelim(",") {
			return nil, 0, p.errAt(pos, "expected , or } in a projection")
		}
		pos++
		val, npos, err := p.parseExprOrScalarFunc(pos)
		if err != nil {
			return nil, 0, err
		}
		pos = npos
		entries = append(entries, indexers.ProjEntry{Val: val})
	}
}

// looksLikeSlicer reports whether the tokens at pos begin a colon slicer:
// optionally signed integers and colons up to the first token that is
// neither, with at least one colon before it.
func (p *parser) looksLikeSlicer(pos int) bool {
	for {
		t := p.at(pos)
		switch {
		case t.IsDelim(":"):
			return true
		case t.IsBinop("-"):
			pos++
		case t.Type == TokenValue && t.Value.Tag == types.TypeInt:
			pos++
		default:
			return false
		}
	}
}

// parseSlicer parses up to three colon-separated optional integers.
func (p *parser) parseSlicer(pos int) (*types.Value, int, error) {
	var parts [3]*int64
	idx := 0
loop:
	for {
		t := p.at(pos)
		switch {
		case t.IsDelim(":"):
			idx++
			if idx > 2 {
				return nil, 0, p.errAt(pos, "a slicer has at most three components")
			}
			pos++
		case t.IsDelim(",") || t.IsDelim("]") || t.IsDelim(")"):
			break loop
		case t.Type == TokenEOF:
			return nil, 0, p.errAt(pos, "unterminated slicer")
		default:
			if parts[idx] != nil {
				return nil, 0, p.errAt(pos, "expected : between slicer components")
			}
			v, npos, err := p.parseExprOrScalarFunc(pos)
			if err != nil {
				return nil, 0, err
			}
			if v.Tag != types.TypeInt {
				return nil, 0, p.errAt(pos, "slicer components must be integers")
			}
			n := v.Int
			parts[idx] = &n
			pos = npos
		}
	}
	sl, err := types.NewSlice(parts[0], parts[1], parts[2])
	if err != nil {
		return nil, 0, err
	}
	return sl, pos, nil
}
