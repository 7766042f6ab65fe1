package types

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// ParseJSON parses JSON text into a Value, preserving object key order.
//
// The standard library decoder flattens objects into unordered maps, so the
// walk is built on gjson, whose ForEach visits keys in document order.
func ParseJSON(text string) (*Value, error) {
	if !gjson.Valid(text) {
		return nil, NewError(KindParse, "invalid JSON document", -1)
	}
	return fromResult(gjson.Parse(text)), nil
}

func fromResult(res gjson.Result) *Value {
	switch res.Type {
	case gjson.Null:
		return NewNull()
	case gjson.False:
		return NewBool(false)
	case gjson.True:
		return NewBool(true)
	case gjson.String:
		return NewStr(res.Str)
	case gjson.Number:
		if !strings.ContainsAny(res.Raw, ".eE") {
			if i, err := strconv.ParseInt(res.Raw, 10, 64); err == nil {
				return NewInt(i)
			}
		}
		return NewFloat(res.Num)
	case gjson.JSON:
		if res.IsArray() {
			var elts []*Value
			res.ForEach(func(_, child gjson.Result) bool {
				elts = append(elts, fromResult(child))
				return true
			})
			return NewArr(elts)
		}
		obj := NewObject()
		res.ForEach(func(key, child gjson.Result) bool {
			obj.Set(key.String(), fromResult(child))
			return true
		})
		return NewObj(obj)
	}
	return NewNull()
}

// MarshalJSON implements json.Marshaler. Keys appear in insertion order;
// integral floats keep a trailing ".0" so the int/float distinction survives
// a round trip.
func (v *Value) MarshalJSON() ([]byte, error) {
	var b strings.Builder
	if err := v.write(&b); err != nil {
		return nil, err
	}
	return []byte(b.String()), nil
}

// String returns the canonical JSON form of v. This is the string form of a
// compiled query when the query is constant.
func (v *Value) String() string {
	var b strings.Builder
	if err := v.write(&b); err != nil {
		return "<unrepresentable: " + err.Error() + ">"
	}
	return b.String()
}

func (v *Value) write(b *strings.Builder) error {
	switch v.Tag {
	case TypeNull:
		b.WriteString("null")
	case TypeBool:
		b.WriteString(strconv.FormatBool(v.Bool))
	case TypeInt:
		b.WriteString(strconv.FormatInt(v.Int, 10))
	case TypeFloat:
		s := strconv.FormatFloat(v.Float, 'g', -1, 64)
		b.WriteString(s)
		if !strings.ContainsAny(s, ".eE") {
			b.WriteString(".0")
		}
	case TypeStr:
		writeQuoted(b, v.Str)
	case TypeRegex:
		writeQuoted(b, v.Re.String())
	case TypeArr:
		b.WriteByte('[')
		for i, e := range v.Arr {
			if i > 0 {
				b.WriteString(", ")
			}
			if err := e.write(b); err != nil {
				return err
			}
		}
		b.WriteByte(']')
	case TypeObj:
		b.WriteByte('{')
		first := true
		for k, e := range v.Obj.Pairs() {
			if !first {
				b.WriteString(", ")
			}
			first = false
			writeQuoted(b, k)
			b.WriteString(": ")
			if err := e.write(b); err != nil {
				return err
			}
		}
		b.WriteByte('}')
	default:
		return NewError(KindType, "cannot serialize a "+v.Tag.String(), -1)
	}
	return nil
}

func writeQuoted(b *strings.Builder, s string) {
	// json.Marshal on a bare string cannot fail and yields JSON escaping
	// (strconv.Quote would emit \x sequences JSON does not accept).
	enc, _ := json.Marshal(s)
	b.Write(enc)
}
