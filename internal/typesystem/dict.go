package typesystem

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/funvibe/dtypes/internal/config"
	"github.com/funvibe/dtypes/internal/native"
)

// DictionaryType represents a map with a fixed set of keys, each with its
// own type. Assignment requires the exact same key set.
type DictionaryType struct {
	keys   []string
	fields map[string]Type
}

// NewDictionary creates a dictionary descriptor. Nil entries become Unknown.
func NewDictionary(typeMap map[string]Type) *DictionaryType {
	keys := make([]string, 0, len(typeMap))
	fields := make(map[string]Type, len(typeMap))
	for k, t := range typeMap {
		if t == nil {
			t = NewUnknown()
		}
		keys = append(keys, k)
		fields[k] = t
	}
	sort.Strings(keys)
	return &DictionaryType{keys: keys, fields: fields}
}

// DictionaryFromValue describes every entry of a map with TypeOf.
func DictionaryFromValue(v any) (*DictionaryType, error) {
	v = native.Normalize(v)
	entries, err := mapEntries(v)
	if err != nil {
		return nil, err
	}
	typeMap := make(map[string]Type, len(entries))
	for k, item := range entries {
		typeMap[k] = TypeOf(item)
	}
	return NewDictionary(typeMap), nil
}

func (*DictionaryType) Kind() Kind   { return KindDictionary }
func (*DictionaryType) Name() string { return config.DictionaryTypeName }

// Keys returns the required keys in sorted order.
func (t *DictionaryType) Keys() []string {
	return append([]string(nil), t.keys...)
}

// Field returns the type of key.
func (t *DictionaryType) Field(key string) (Type, bool) {
	f, ok := t.fields[key]
	return f, ok
}

func (t *DictionaryType) Params() Params {
	m := make(map[string]Value, len(t.fields))
	for k, f := range t.fields {
		m[k] = NestedType(f)
	}
	return Params{{Key: config.TypeMapParam, Value: MapOf(m)}}
}

func (t *DictionaryType) Assign(v any) Type {
	entries, err := mapEntries(native.Normalize(v))
	if err != nil || !sameKeySet(t.keys, entries) {
		return NeverType{}
	}
	fields := make(map[string]Type, len(t.keys))
	for _, k := range t.keys {
		narrowed := t.fields[k].Assign(entries[k])
		if IsNever(narrowed) {
			return NeverType{}
		}
		fields[k] = narrowed
	}
	return &DictionaryType{keys: t.keys, fields: fields}
}

func (t *DictionaryType) AssignType(other Type) Type {
	o, ok := other.(*DictionaryType)
	if !ok || !sameKeySet(t.keys, o.fields) {
		return NeverType{}
	}
	fields := make(map[string]Type, len(t.keys))
	for _, k := range t.keys {
		narrowed := t.fields[k].AssignType(o.fields[k])
		if IsNever(narrowed) {
			return NeverType{}
		}
		fields[k] = narrowed
	}
	return &DictionaryType{keys: t.keys, fields: fields}
}

func (t *DictionaryType) ToJSON(ctx ArtifactContext) map[string]any { return EncodeType(t, ctx) }
func (t *DictionaryType) String() string                            { return RenderType(t) }

// sameKeySet reports whether m has exactly the given keys.
func sameKeySet[V any](keys []string, m map[string]V) bool {
	if len(m) != len(keys) {
		return false
	}
	for _, k := range keys {
		if _, ok := m[k]; !ok {
			return false
		}
	}
	return true
}

// mapEntries returns the entries of any Go map, with keys rendered by fmt.
// Keys that render alike are a DuplicateKeyError.
func mapEntries(v any) (map[string]any, error) {
	if m, ok := v.(map[string]any); ok {
		return m, nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Map {
		return nil, &NotMappingError{Class: className(reflect.TypeOf(v))}
	}
	out := make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		key := fmt.Sprint(iter.Key().Interface())
		if _, dup := out[key]; dup {
			return nil, &DuplicateKeyError{Key: key}
		}
		out[key] = iter.Value().Interface()
	}
	return out, nil
}
