package typesystem

import (
	"sort"
)

// assignee is the incoming item of a union resolution: a native value in
// value mode, a descriptor in type mode.
type assignee struct {
	value    any
	typ      Type
	typeMode bool
}

func valueAssignee(v any) assignee { return assignee{value: v} }
func typeAssignee(t Type) assignee { return assignee{typ: t, typeMode: true} }

func (a assignee) into(target Type) Type {
	if a.typeMode {
		return target.AssignType(a.typ)
	}
	return target.Assign(a.value)
}

// resolveBranches narrows the first branch that accepts the assignee.
//
// Branches are tried in encounter order and only one branch absorbs the
// item. Unknown branches are wildcards: they are skipped while a concrete
// branch may still match, and exactly one of them is consumed when none
// does. Rejected branches are kept unchanged. The result is flattened and
// sorted by rendering; ok is false when nothing accepts the item.
func resolveBranches(allowed []Type, a assignee) (resolved []Type, ok bool) {
	resolved = make([]Type, 0, len(allowed)+1)
	matched := false
	unknownCount := 0

	for _, branch := range allowed {
		if matched {
			resolved = append(resolved, branch)
			continue
		}
		if branch.Kind() == KindUnknown {
			unknownCount++
			continue
		}
		narrowed := a.into(branch)
		if IsNever(narrowed) {
			resolved = append(resolved, branch)
			continue
		}
		resolved = append(resolved, narrowed)
		matched = true
	}

	if !matched {
		if unknownCount == 0 {
			return nil, false
		}
		fresh := a.into(NewUnknown())
		if IsNever(fresh) {
			return nil, false
		}
		resolved = append(resolved, fresh)
		unknownCount--
	}

	for i := 0; i < unknownCount; i++ {
		resolved = append(resolved, NewUnknown())
	}

	resolved = flattenUnions(resolved)
	sortBranches(resolved)
	return resolved, true
}

// flattenUnions replaces every union branch by its own (flattened) branches.
func flattenUnions(types []Type) []Type {
	flat := make([]Type, 0, len(types))
	for _, t := range types {
		if u, ok := t.(*UnionType); ok {
			flat = append(flat, flattenUnions(u.types)...)
			continue
		}
		flat = append(flat, t)
	}
	return flat
}

// sortBranches orders branches by their rendering, keeping the relative
// order of branches that render the same.
func sortBranches(types []Type) {
	keys := make([]string, len(types))
	for i, t := range types {
		keys[i] = t.String()
	}
	sort.Stable(byTypeString{types: types, keys: keys})
}

type byTypeString struct {
	types []Type
	keys  []string
}

func (s byTypeString) Len() int           { return len(s.types) }
func (s byTypeString) Less(i, j int) bool { return s.keys[i] < s.keys[j] }
func (s byTypeString) Swap(i, j int) {
	s.types[i], s.types[j] = s.types[j], s.types[i]
	s.keys[i], s.keys[j] = s.keys[j], s.keys[i]
}
