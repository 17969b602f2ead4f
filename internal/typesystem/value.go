package typesystem

import (
	"encoding/json"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// ValueKind tags the shape held by a Value.
type ValueKind uint8

const (
	NullValue ValueKind = iota
	StringValue
	NumberValue
	BoolValue
	SetValue
	SeqValue
	MapValue
	TypeValue
)

// Value is a param value: a scalar, a set or sequence of values, a mapping
// of string keys to values, or a nested descriptor.
// The zero Value is Null.
type Value struct {
	kind  ValueKind
	str   string
	num   float64
	b     bool
	items []Value
	keys  []string
	m     map[string]Value
	typ   Type
}

func Null() Value             { return Value{} }
func Str(s string) Value      { return Value{kind: StringValue, str: s} }
func Num(f float64) Value     { return Value{kind: NumberValue, num: f} }
func Bool(b bool) Value       { return Value{kind: BoolValue, b: b} }
func NestedType(t Type) Value { return Value{kind: TypeValue, typ: t} }

// Seq builds an ordered sequence.
func Seq(items ...Value) Value {
	return Value{kind: SeqValue, items: append([]Value(nil), items...)}
}

// SetOf builds an unordered set. Duplicates are dropped and members are
// kept in canonical order so that two sets with the same members are equal.
func SetOf(items ...Value) Value {
	unique := make([]Value, 0, len(items))
	for _, it := range items {
		dup := false
		for _, u := range unique {
			if u.Equal(it) {
				dup = true
				break
			}
		}
		if !dup {
			unique = append(unique, it)
		}
	}
	sortValues(unique)
	return Value{kind: SetValue, items: unique}
}

// MapOf builds a mapping. Keys are kept sorted.
func MapOf(m map[string]Value) Value {
	keys := make([]string, 0, len(m))
	cp := make(map[string]Value, len(m))
	for k, v := range m {
		keys = append(keys, k)
		cp[k] = v
	}
	sort.Strings(keys)
	return Value{kind: MapValue, keys: keys, m: cp}
}

func (v Value) Kind() ValueKind { return v.kind }
func (v Value) IsNull() bool    { return v.kind == NullValue }

func (v Value) AsString() (string, bool)  { return v.str, v.kind == StringValue }
func (v Value) AsNumber() (float64, bool) { return v.num, v.kind == NumberValue }
func (v Value) AsBool() (bool, bool)      { return v.b, v.kind == BoolValue }
func (v Value) AsType() (Type, bool)      { return v.typ, v.kind == TypeValue }

// Items returns the members of a set or sequence.
func (v Value) Items() []Value {
	return append([]Value(nil), v.items...)
}

// Keys returns the sorted keys of a mapping.
func (v Value) Keys() []string {
	return append([]string(nil), v.keys...)
}

// Field returns the value stored under key in a mapping.
func (v Value) Field(key string) (Value, bool) {
	f, ok := v.m[key]
	return f, ok
}

func (v Value) isScalar() bool {
	switch v.kind {
	case NullValue, StringValue, NumberValue, BoolValue:
		return true
	}
	return false
}

// Equal reports structural equality. Sets compare as sets, mappings
// ignore insertion order, nested descriptors compare with Equal.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case NullValue:
		return true
	case StringValue:
		return v.str == o.str
	case NumberValue:
		return v.num == o.num
	case BoolValue:
		return v.b == o.b
	case SetValue, SeqValue:
		if len(v.items) != len(o.items) {
			return false
		}
		for i := range v.items {
			if !v.items[i].Equal(o.items[i]) {
				return false
			}
		}
		return true
	case MapValue:
		if len(v.keys) != len(o.keys) {
			return false
		}
		for _, k := range v.keys {
			ov, ok := o.m[k]
			if !ok || !v.m[k].Equal(ov) {
				return false
			}
		}
		return true
	case TypeValue:
		return Equal(v.typ, o.typ)
	}
	return false
}

func (v Value) String() string {
	switch v.kind {
	case NullValue:
		return "null"
	case StringValue:
		return strconv.Quote(v.str)
	case NumberValue:
		return strconv.FormatFloat(v.num, 'g', -1, 64)
	case BoolValue:
		return strconv.FormatBool(v.b)
	case SetValue, SeqValue:
		parts := make([]string, len(v.items))
		for i, it := range v.items {
			parts[i] = it.String()
		}
		if v.kind == SetValue {
			return "{" + strings.Join(parts, ", ") + "}"
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case MapValue:
		parts := make([]string, len(v.keys))
		for i, k := range v.keys {
			parts[i] = k + ": " + v.m[k].String()
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case TypeValue:
		return v.typ.String()
	}
	return "?"
}

// encode converts v to its JSON-compatible form.
func (v Value) encode(ctx ArtifactContext) any {
	switch v.kind {
	case StringValue:
		return v.str
	case NumberValue:
		return v.num
	case BoolValue:
		return v.b
	case SetValue, SeqValue:
		out := make([]any, len(v.items))
		for i, it := range v.items {
			out[i] = it.encode(ctx)
		}
		return out
	case MapValue:
		out := make(map[string]any, len(v.keys))
		for _, k := range v.keys {
			out[k] = v.m[k].encode(ctx)
		}
		return out
	case TypeValue:
		return v.typ.ToJSON(ctx)
	}
	return nil
}

// Native returns the plain Go form of a scalar, set or sequence value:
// nil, string, float64, bool or []any.
func (v Value) Native() any {
	switch v.kind {
	case SetValue, SeqValue:
		out := make([]any, len(v.items))
		for i, it := range v.items {
			out[i] = it.Native()
		}
		return out
	case TypeValue:
		return v.typ
	}
	return v.encode(nil)
}

func sortValues(vals []Value) {
	keys := make([]string, len(vals))
	for i, v := range vals {
		keys[i] = v.String()
	}
	sort.Sort(byRendering{vals: vals, keys: keys})
}

type byRendering struct {
	vals []Value
	keys []string
}

func (s byRendering) Len() int           { return len(s.vals) }
func (s byRendering) Less(i, j int) bool { return s.keys[i] < s.keys[j] }
func (s byRendering) Swap(i, j int) {
	s.vals[i], s.vals[j] = s.vals[j], s.vals[i]
	s.keys[i], s.keys[j] = s.keys[j], s.keys[i]
}

// scalarValue converts a native scalar. Every Go numeric kind becomes a Number.
func scalarValue(x any) (Value, bool) {
	switch s := x.(type) {
	case nil:
		return Null(), true
	case string:
		return Str(s), true
	case bool:
		return Bool(s), true
	case float64:
		return finiteNum(s)
	case int:
		return Num(float64(s)), true
	case int64:
		return Num(float64(s)), true
	case json.Number:
		f, err := s.Float64()
		if err != nil {
			return Value{}, false
		}
		return finiteNum(f)
	}
	rv := reflect.ValueOf(x)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Num(float64(rv.Int())), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return Num(float64(rv.Uint())), true
	case reflect.Float32, reflect.Float64:
		return finiteNum(rv.Float())
	}
	return Value{}, false
}

// finiteNum rejects NaN and infinities, which have no wire form and NaN no
// equality.
func finiteNum(f float64) (Value, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Value{}, false
	}
	return Num(f), true
}

// Param is one named entry of a descriptor's params.
type Param struct {
	Key   string
	Value Value
}

// Params is the ordered parameter mapping of a descriptor.
type Params []Param

// Get returns the value stored under key.
func (p Params) Get(key string) (Value, bool) {
	for _, e := range p {
		if e.Key == key {
			return e.Value, true
		}
	}
	return Value{}, false
}

func (p Params) Len() int { return len(p) }

// Equal compares params as mappings: order does not matter.
func (p Params) Equal(o Params) bool {
	if len(p) != len(o) {
		return false
	}
	for _, e := range p {
		ov, ok := o.Get(e.Key)
		if !ok || !e.Value.Equal(ov) {
			return false
		}
	}
	return true
}

func (p Params) String() string {
	parts := make([]string, len(p))
	for i, e := range p {
		parts[i] = e.Key + ": " + e.Value.String()
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func (p Params) encode(ctx ArtifactContext) map[string]any {
	out := make(map[string]any, len(p))
	for _, e := range p {
		out[e.Key] = e.Value.encode(ctx)
	}
	return out
}

// only reports the first key of p that is not listed in allowed.
func (p Params) only(allowed ...string) (string, bool) {
	for _, e := range p {
		found := false
		for _, a := range allowed {
			if e.Key == a {
				found = true
				break
			}
		}
		if !found {
			return e.Key, false
		}
	}
	return "", true
}
