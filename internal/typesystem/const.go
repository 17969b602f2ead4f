package typesystem

import (
	"reflect"

	"github.com/funvibe/dtypes/internal/config"
)

// Set is an unordered collection of scalars. As a native value it is
// described like any other list; as a const value it forces set mode.
type Set []any

// ConstType represents a literal constant: a scalar, a sequence of scalars,
// or, in set mode, an unordered set of alternatives.
type ConstType struct {
	val   Value
	isSet bool
}

// NewConst builds a constant descriptor for val. A Set value, or isSet,
// stores val as a set; isSet requires val to be a sequence or a Set.
func NewConst(val any, isSet bool) (*ConstType, error) {
	if _, ok := val.(Set); ok {
		isSet = true
	}
	if isSet {
		items, ok := sequenceItems(val)
		if !ok {
			return nil, &UnsupportedConstError{Value: val, IsSet: true}
		}
		members, ok := scalarValues(items)
		if !ok {
			return nil, &UnsupportedConstError{Value: val, IsSet: true}
		}
		return &ConstType{val: SetOf(members...), isSet: true}, nil
	}
	if s, ok := scalarValue(val); ok {
		return &ConstType{val: s}, nil
	}
	if items, ok := sequenceItems(val); ok {
		members, ok := scalarValues(items)
		if ok {
			return &ConstType{val: Seq(members...)}, nil
		}
	}
	return nil, &UnsupportedConstError{Value: val}
}

// constOf is NewConst returning a plain Type.
func constOf(val any, isSet bool) (Type, error) {
	c, err := NewConst(val, isSet)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// newConstFromValue rebuilds a const from decoded params.
func newConstFromValue(val Value, isSet bool) (*ConstType, error) {
	if val.Kind() == SetValue {
		isSet = true
	}
	switch {
	case isSet && (val.Kind() == SeqValue || val.Kind() == SetValue):
		if !allScalar(val.items) {
			return nil, &UnsupportedConstError{Value: val.Native(), IsSet: true}
		}
		return &ConstType{val: SetOf(val.items...), isSet: true}, nil
	case isSet:
		return nil, &UnsupportedConstError{Value: val.Native(), IsSet: true}
	case val.isScalar():
		return &ConstType{val: val}, nil
	case val.Kind() == SeqValue && allScalar(val.items):
		return &ConstType{val: val}, nil
	}
	return nil, &UnsupportedConstError{Value: val.Native()}
}

func (*ConstType) Kind() Kind   { return KindConst }
func (*ConstType) Name() string { return config.ConstTypeName }

// Val returns the constant as a param value.
func (t *ConstType) Val() Value  { return t.val }
func (t *ConstType) IsSet() bool { return t.isSet }

func (t *ConstType) Params() Params {
	return Params{
		{Key: config.ValParam, Value: t.val},
		{Key: config.IsSetParam, Value: Bool(t.isSet)},
	}
}

// Assign accepts only a value that makes an identical constant.
func (t *ConstType) Assign(v any) Type {
	other, err := NewConst(v, false)
	if err != nil {
		return NeverType{}
	}
	return t.AssignType(other)
}

func (t *ConstType) AssignType(other Type) Type                { return AssignSame(t, other) }
func (t *ConstType) ToJSON(ctx ArtifactContext) map[string]any { return EncodeType(t, ctx) }
func (t *ConstType) String() string                            { return RenderType(t) }

func scalarValues(items []any) ([]Value, bool) {
	out := make([]Value, len(items))
	for i, it := range items {
		s, ok := scalarValue(it)
		if !ok {
			return nil, false
		}
		out[i] = s
	}
	return out, true
}

func allScalar(vals []Value) bool {
	for _, v := range vals {
		if !v.isScalar() {
			return false
		}
	}
	return true
}

// sequenceItems returns the members of a list-like value: a Set, a slice or
// an array. Strings are not list-like.
func sequenceItems(v any) ([]any, bool) {
	switch s := v.(type) {
	case nil:
		return nil, false
	case Set:
		return []any(s), true
	case []any:
		return s, true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		items := make([]any, rv.Len())
		for i := range items {
			items[i] = rv.Index(i).Interface()
		}
		return items, true
	}
	return nil, false
}
