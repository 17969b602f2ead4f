package typesystem

import (
	"reflect"

	"github.com/funvibe/dtypes/internal/config"
	"github.com/funvibe/dtypes/internal/native"
)

// ListType represents a list whose elements are all described by one element type.
type ListType struct {
	elem Type
}

// NewList creates a list of elem. A nil elem means nothing has been
// observed yet and becomes Unknown.
func NewList(elem Type) *ListType {
	if elem == nil {
		elem = NewUnknown()
	}
	return &ListType{elem: elem}
}

// ListFromValue infers the element type of a list-like value (slice, array
// or Set) by assigning its members one after another.
func ListFromValue(v any) (*ListType, error) {
	v = native.Normalize(v)
	items, ok := sequenceItems(v)
	if !ok {
		return nil, &NotCollectionError{Class: className(reflect.TypeOf(v))}
	}
	elem := wildcardSeed(items)
	// the seed holds a wildcard slot per item, so no item is rejected
	for _, item := range items {
		elem = elem.Assign(item)
	}
	return &ListType{elem: dropWildcards(elem)}, nil
}

func (*ListType) Kind() Kind   { return KindList }
func (*ListType) Name() string { return config.ListTypeName }

// ElementType returns the type describing every element.
func (t *ListType) ElementType() Type { return t.elem }

func (t *ListType) Params() Params {
	return Params{{Key: config.ElementTypeParam, Value: NestedType(t.elem)}}
}

// Assign narrows the element type by every member of a list-like value.
// While the element type is still Unknown each distinct member type takes
// a branch of its own; otherwise any member that does not fit the running
// element type rejects the whole value.
func (t *ListType) Assign(v any) Type {
	items, ok := sequenceItems(native.Normalize(v))
	if !ok {
		return NeverType{}
	}

	elem := t.elem
	seeded := false
	if elem.Kind() == KindUnknown {
		elem = wildcardSeed(items)
		seeded = true
	}
	for _, item := range items {
		elem = elem.Assign(item)
		if IsNever(elem) {
			return NeverType{}
		}
	}
	if seeded {
		elem = dropWildcards(elem)
	}
	return &ListType{elem: elem}
}

func (t *ListType) AssignType(other Type) Type {
	o, ok := other.(*ListType)
	if !ok {
		return NeverType{}
	}
	elem := t.elem.AssignType(o.elem)
	if IsNever(elem) {
		return NeverType{}
	}
	return &ListType{elem: elem}
}

func (t *ListType) ToJSON(ctx ArtifactContext) map[string]any { return EncodeType(t, ctx) }
func (t *ListType) String() string                            { return RenderType(t) }

// wildcardSeed is the element type used before any element was observed:
// one Unknown slot per member, plus a None branch when a member is nil.
func wildcardSeed(items []any) Type {
	if len(items) == 0 {
		return NewUnknown()
	}
	branches := make([]Type, 0, len(items)+1)
	hasNil := false
	for _, it := range items {
		branches = append(branches, NewUnknown())
		if native.Normalize(it) == nil {
			hasNil = true
		}
	}
	if hasNil {
		branches = append(branches, NewNone())
	}
	return &UnionType{types: branches}
}

// dropWildcards removes the unconsumed Unknown slots left by wildcardSeed.
func dropWildcards(t Type) Type {
	u, ok := t.(*UnionType)
	if !ok {
		return t
	}
	kept := make([]Type, 0, len(u.types))
	for _, b := range u.types {
		if b.Kind() != KindUnknown {
			kept = append(kept, b)
		}
	}
	return collapseBranches(kept)
}
