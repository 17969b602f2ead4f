package typesystem

import (
	"reflect"

	"github.com/funvibe/dtypes/internal/config"
)

// ArtifactContext is an opaque handle threaded through encoding and
// decoding so that surrounding code can resolve artifact-scoped references.
// The type algebra never inspects it.
type ArtifactContext interface{}

// Type is the interface for all descriptors.
// Descriptors are immutable: Assign and AssignType return a new descriptor,
// or Never when the value or type cannot be described.
type Type interface {
	Kind() Kind
	// Name is the unique wire-format name of the variant.
	Name() string
	Params() Params
	// Assign narrows the descriptor so that it also describes v.
	Assign(v any) Type
	// AssignType narrows the descriptor so that it also describes other.
	AssignType(other Type) Type
	ToJSON(ctx ArtifactContext) map[string]any
	String() string
}

// Equal reports whether a and b have the same name and structurally equal params.
func Equal(a, b Type) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.Name() != b.Name() {
		return false
	}
	if sameInstance(a, b) {
		return true
	}
	return a.Params().Equal(b.Params())
}

func sameInstance(a, b Type) bool {
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	return va.Kind() == reflect.Pointer && vb.Kind() == reflect.Pointer && va.Pointer() == vb.Pointer()
}

// IsNever reports whether t is the Never descriptor.
func IsNever(t Type) bool {
	return t == nil || t.Kind() == KindNever
}

// Helper implementations shared by the variants

// AssignValue is the default Assign: describe v and assign the result.
func AssignValue(t Type, v any) Type {
	return t.AssignType(TypeOf(v))
}

// AssignSame is the default AssignType: t itself when other is the same
// variant with equal params, Never otherwise.
func AssignSame(t, other Type) Type {
	if other != nil && other.Name() == t.Name() && other.Kind() == t.Kind() && t.Params().Equal(other.Params()) {
		return t
	}
	return NeverType{}
}

// EncodeType builds the wire form of t. The params key is omitted when t has
// no params.
func EncodeType(t Type, ctx ArtifactContext) map[string]any {
	out := map[string]any{config.TypeNameKey: t.Name()}
	if p := t.Params(); p.Len() > 0 {
		out[config.ParamsKey] = p.encode(ctx)
	}
	return out
}

// RenderType renders t as name or name{params}.
func RenderType(t Type) string {
	if p := t.Params(); p.Len() > 0 {
		return t.Name() + p.String()
	}
	return t.Name()
}

// NeverType is the bottom type: no value is described by it.
type NeverType struct{}

func NewNever() Type { return NeverType{} }

func (NeverType) Kind() Kind                                  { return KindNever }
func (NeverType) Name() string                                { return config.NeverTypeName }
func (NeverType) Params() Params                              { return nil }
func (NeverType) Assign(any) Type                             { return NeverType{} }
func (NeverType) AssignType(Type) Type                        { return NeverType{} }
func (t NeverType) ToJSON(ctx ArtifactContext) map[string]any { return EncodeType(t, ctx) }
func (t NeverType) String() string                            { return RenderType(t) }

// AnyType is the top type: it absorbs everything except the absence of a value.
type AnyType struct{}

func NewAny() Type { return AnyType{} }

func (AnyType) Kind() Kind     { return KindAny }
func (AnyType) Name() string   { return config.AnyTypeName }
func (AnyType) Params() Params { return nil }

func (t AnyType) Assign(v any) Type {
	if v == nil {
		return NeverType{}
	}
	return AssignValue(t, v)
}

func (t AnyType) AssignType(other Type) Type {
	switch other.Kind() {
	case KindNone, KindNever:
		return NeverType{}
	}
	return t
}

func (t AnyType) ToJSON(ctx ArtifactContext) map[string]any { return EncodeType(t, ctx) }
func (t AnyType) String() string                            { return RenderType(t) }

// UnknownType is a placeholder for a type not observed yet: assigning
// anything except the absence of a value resolves it to that thing's type.
type UnknownType struct{}

func NewUnknown() Type { return UnknownType{} }

func (UnknownType) Kind() Kind     { return KindUnknown }
func (UnknownType) Name() string   { return config.UnknownTypeName }
func (UnknownType) Params() Params { return nil }

func (t UnknownType) Assign(v any) Type {
	if v == nil {
		return NeverType{}
	}
	return AssignValue(t, v)
}

func (UnknownType) AssignType(other Type) Type {
	if other.Kind() == KindNone {
		return NeverType{}
	}
	return other
}

func (t UnknownType) ToJSON(ctx ArtifactContext) map[string]any { return EncodeType(t, ctx) }
func (t UnknownType) String() string                            { return RenderType(t) }

// NoneType describes the absence of a value (nil).
type NoneType struct{}

func NewNone() Type { return NoneType{} }

func (NoneType) Kind() Kind                                  { return KindNone }
func (NoneType) Name() string                                { return config.NoneTypeName }
func (NoneType) Params() Params                              { return nil }
func (t NoneType) Assign(v any) Type                         { return AssignValue(t, v) }
func (t NoneType) AssignType(other Type) Type                { return AssignSame(t, other) }
func (t NoneType) ToJSON(ctx ArtifactContext) map[string]any { return EncodeType(t, ctx) }
func (t NoneType) String() string                            { return RenderType(t) }

// StringType describes strings.
type StringType struct{}

func NewString() Type { return StringType{} }

func (StringType) Kind() Kind                                  { return KindString }
func (StringType) Name() string                                { return config.StringTypeName }
func (StringType) Params() Params                              { return nil }
func (t StringType) Assign(v any) Type                         { return AssignValue(t, v) }
func (t StringType) AssignType(other Type) Type                { return AssignSame(t, other) }
func (t StringType) ToJSON(ctx ArtifactContext) map[string]any { return EncodeType(t, ctx) }
func (t StringType) String() string                            { return RenderType(t) }

// NumberType describes integral and floating-point numbers alike.
type NumberType struct{}

func NewNumber() Type { return NumberType{} }

func (NumberType) Kind() Kind                                  { return KindNumber }
func (NumberType) Name() string                                { return config.NumberTypeName }
func (NumberType) Params() Params                              { return nil }
func (t NumberType) Assign(v any) Type                         { return AssignValue(t, v) }
func (t NumberType) AssignType(other Type) Type                { return AssignSame(t, other) }
func (t NumberType) ToJSON(ctx ArtifactContext) map[string]any { return EncodeType(t, ctx) }
func (t NumberType) String() string                            { return RenderType(t) }

// BooleanType describes booleans.
type BooleanType struct{}

func NewBoolean() Type { return BooleanType{} }

func (BooleanType) Kind() Kind                                  { return KindBoolean }
func (BooleanType) Name() string                                { return config.BooleanTypeName }
func (BooleanType) Params() Params                              { return nil }
func (t BooleanType) Assign(v any) Type                         { return AssignValue(t, v) }
func (t BooleanType) AssignType(other Type) Type                { return AssignSame(t, other) }
func (t BooleanType) ToJSON(ctx ArtifactContext) map[string]any { return EncodeType(t, ctx) }
func (t BooleanType) String() string                            { return RenderType(t) }

// ObjectType is the fallback for values with no dedicated variant.
// It keeps track of the value's Go type name.
type ObjectType struct {
	className string
}

func NewObject(className string) Type { return ObjectType{className: className} }

func (ObjectType) Kind() Kind   { return KindObject }
func (ObjectType) Name() string { return config.ObjectTypeName }

func (t ObjectType) ClassName() string { return t.className }

func (t ObjectType) Params() Params {
	return Params{{Key: config.ClassNameParam, Value: Str(t.className)}}
}

func (t ObjectType) Assign(v any) Type                         { return AssignValue(t, v) }
func (t ObjectType) AssignType(other Type) Type                { return AssignSame(t, other) }
func (t ObjectType) ToJSON(ctx ArtifactContext) map[string]any { return EncodeType(t, ctx) }
func (t ObjectType) String() string                            { return RenderType(t) }

// objectOf describes v by its Go type name.
func objectOf(v any) Type {
	return NewObject(className(reflect.TypeOf(v)))
}

func className(t reflect.Type) string {
	if t == nil {
		return "nil"
	}
	if t.Name() != "" {
		return t.Name()
	}
	return t.String()
}

// Optional is Union(t, None).
func Optional(t Type) *UnionType {
	return NewUnion(t, NewNone())
}
