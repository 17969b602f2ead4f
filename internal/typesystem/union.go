package typesystem

import (
	"github.com/funvibe/dtypes/internal/config"
)

// UnionType represents a logical "one of" its allowed types.
// Nested unions are always flattened; the branch order is canonical after
// every narrowing.
type UnionType struct {
	types []Type
}

// NewUnion creates a union of types. Nested unions are flattened; the
// construction order is kept until the first narrowing.
func NewUnion(types ...Type) *UnionType {
	return &UnionType{types: flattenUnions(types)}
}

func (*UnionType) Kind() Kind   { return KindUnion }
func (*UnionType) Name() string { return config.UnionTypeName }

// Types returns the branches of the union.
func (t *UnionType) Types() []Type {
	return append([]Type(nil), t.types...)
}

func (t *UnionType) Params() Params {
	branches := make([]Value, len(t.types))
	for i, b := range t.types {
		branches[i] = NestedType(b)
	}
	return Params{{Key: config.AllowedTypesParam, Value: Seq(branches...)}}
}

// Assign resolves v against the branches once, in value mode.
func (t *UnionType) Assign(v any) Type {
	resolved, ok := resolveBranches(t.types, valueAssignee(v))
	if !ok {
		return NeverType{}
	}
	return &UnionType{types: resolved}
}

// AssignType folds each branch of other (or other itself when it is not a
// union) into the running branch list.
func (t *UnionType) AssignType(other Type) Type {
	assignees := []Type{other}
	if u, ok := other.(*UnionType); ok {
		assignees = flattenUnions(u.types)
	}

	resolved := t.types
	for _, a := range assignees {
		var ok bool
		resolved, ok = resolveBranches(resolved, typeAssignee(a))
		if !ok {
			return NeverType{}
		}
	}
	return &UnionType{types: resolved}
}

func (t *UnionType) ToJSON(ctx ArtifactContext) map[string]any { return EncodeType(t, ctx) }
func (t *UnionType) String() string                            { return RenderType(t) }

// collapseBranches turns a branch list back into a single descriptor:
// Unknown when empty, the branch itself when alone, a union otherwise.
func collapseBranches(branches []Type) Type {
	switch len(branches) {
	case 0:
		return NewUnknown()
	case 1:
		return branches[0]
	}
	return &UnionType{types: branches}
}
