package typesystem

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/funvibe/dtypes/internal/config"
	"github.com/funvibe/dtypes/internal/native"
)

// Variant is the registration record of a descriptor variant.
type Variant struct {
	// Name is the wire-format name stored under wb_type.
	Name string
	Kind Kind

	// Classes are the exact Go types described by this variant. A nil
	// entry stands for the untyped nil value.
	Classes []reflect.Type
	// Kinds match unnamed composite Go types ([]T, [N]T, map[K]V) that have
	// no exact class entry.
	Kinds []reflect.Kind

	// New returns the default instance, used by TypeFromDtype.
	New func() Type
	// FromValue infers a descriptor from a value of one of Classes or Kinds.
	// Nil means New is used.
	FromValue func(v any) (Type, error)
	// FromParams rebuilds a descriptor from decoded params.
	FromParams func(p Params, ctx ArtifactContext) (Type, error)
}

// Registry maps wire-format names and Go classes to variants.
// Variants can only be registered until the first lookup; afterwards the
// tables are read-only and safe for concurrent use.
type Registry struct {
	mu     sync.Mutex
	seal   sync.Once
	frozen bool

	byName  map[string]*Variant
	byClass map[reflect.Type]*Variant
	byKind  map[reflect.Kind]*Variant
}

func newRegistry() *Registry {
	return &Registry{
		byName:  make(map[string]*Variant),
		byClass: make(map[reflect.Type]*Variant),
		byKind:  make(map[reflect.Kind]*Variant),
	}
}

// Register adds a variant. A later registration under the same name or
// class replaces the earlier one.
func (r *Registry) Register(v *Variant) error {
	if v == nil || v.Name == "" {
		return fmt.Errorf("variant must have a name")
	}
	if v.New == nil || v.FromParams == nil {
		return fmt.Errorf("variant %q must define New and FromParams", v.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frozen {
		return ErrRegistryFrozen
	}
	r.byName[v.Name] = v
	for _, c := range v.Classes {
		r.byClass[c] = v
	}
	for _, k := range v.Kinds {
		r.byKind[k] = v
	}
	return nil
}

func (r *Registry) freeze() {
	r.seal.Do(func() {
		r.mu.Lock()
		r.frozen = true
		r.mu.Unlock()
	})
}

// Lookup returns the variant registered under name.
func (r *Registry) Lookup(name string) (*Variant, bool) {
	r.freeze()
	v, ok := r.byName[name]
	return v, ok
}

// Names returns the registered wire-format names, sorted.
func (r *Registry) Names() []string {
	r.freeze()
	names := make([]string, 0, len(r.byName))
	for n := range r.byName {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) handler(class reflect.Type) *Variant {
	r.freeze()
	if v, ok := r.byClass[class]; ok {
		return v
	}
	if class != nil && class.Name() == "" {
		return r.byKind[class.Kind()]
	}
	return nil
}

// TypeOf describes a value. It never fails: values without a handler, or
// whose handler cannot describe them, become Object.
func (r *Registry) TypeOf(v any) Type {
	v = native.Normalize(v)
	h := r.handler(reflect.TypeOf(v))
	if h == nil {
		return objectOf(v)
	}
	if h.FromValue == nil {
		return h.New()
	}
	t, err := h.FromValue(v)
	if err != nil {
		return objectOf(v)
	}
	return t
}

// TypeFromDict decodes the wire form of a descriptor.
func (r *Registry) TypeFromDict(m map[string]any, ctx ArtifactContext) (Type, error) {
	raw, ok := m[config.TypeNameKey]
	name, isString := raw.(string)
	if !ok || !isString {
		return nil, &MissingTypeNameError{Got: raw}
	}
	v, ok := r.Lookup(name)
	if !ok {
		return nil, NewUnknownTypeNameError(name)
	}
	params, err := r.decodeParams(name, m[config.ParamsKey], ctx)
	if err != nil {
		return nil, err
	}
	return v.FromParams(params, ctx)
}

func (r *Registry) decodeParams(typeName string, raw any, ctx ArtifactContext) (Params, error) {
	if raw == nil {
		return nil, nil
	}
	obj, ok := asObject(raw)
	if !ok {
		return nil, newParamError(typeName, "", "params must be an object, got %T", raw)
	}
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	params := make(Params, 0, len(keys))
	for _, k := range keys {
		val, err := r.decodeValue(obj[k], ctx)
		if err != nil {
			return nil, fmt.Errorf("%s: param %q: %w", typeName, k, err)
		}
		params = append(params, Param{Key: k, Value: val})
	}
	return params, nil
}

// decodeValue resolves any object with a wb_type key to a descriptor;
// other objects become mappings, arrays become sequences.
func (r *Registry) decodeValue(raw any, ctx ArtifactContext) (Value, error) {
	if obj, ok := asObject(raw); ok {
		if _, nested := obj[config.TypeNameKey]; nested {
			t, err := r.TypeFromDict(obj, ctx)
			if err != nil {
				return Value{}, err
			}
			return NestedType(t), nil
		}
		m := make(map[string]Value, len(obj))
		for k, item := range obj {
			val, err := r.decodeValue(item, ctx)
			if err != nil {
				return Value{}, err
			}
			m[k] = val
		}
		return MapOf(m), nil
	}
	if arr, ok := raw.([]any); ok {
		items := make([]Value, len(arr))
		for i, item := range arr {
			val, err := r.decodeValue(item, ctx)
			if err != nil {
				return Value{}, err
			}
			items[i] = val
		}
		return Seq(items...), nil
	}
	if s, ok := scalarValue(raw); ok {
		return s, nil
	}
	return Value{}, fmt.Errorf("unsupported value of type %T", raw)
}

// asObject accepts JSON objects and YAML mappings.
func asObject(raw any) (map[string]any, bool) {
	switch m := raw.(type) {
	case map[string]any:
		return m, true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, v := range m {
			out[fmt.Sprint(k)] = v
		}
		return out, true
	}
	return nil, false
}

// TypeFromDtype coerces shorthand notations into a descriptor:
//   - a descriptor is returned as is
//   - a Kind or *Variant gives the variant's default instance
//   - a reflect.Type gives its handler's default instance, or Object
//   - an empty sequence gives List(), a one-element sequence List(elem),
//     a longer sequence a Union of the coerced elements
//   - a map gives a Dictionary with every value coerced
//   - anything else, including a Set, becomes a Const
func (r *Registry) TypeFromDtype(spec any) (Type, error) {
	switch s := spec.(type) {
	case Type:
		return s, nil
	case Kind:
		v, ok := r.Lookup(s.String())
		if !ok || !s.IsBuiltin() {
			return nil, NewUnknownTypeNameError(s.String())
		}
		return v.New(), nil
	case *Variant:
		return s.New(), nil
	case reflect.Type:
		if h := r.handler(s); h != nil {
			return h.New(), nil
		}
		return NewObject(className(s)), nil
	case Set:
		return constOf(s, true)
	}

	spec = native.Normalize(spec)
	if items, ok := sequenceItems(spec); ok {
		switch len(items) {
		case 0:
			return NewList(nil), nil
		case 1:
			elem, err := r.TypeFromDtype(items[0])
			if err != nil {
				return nil, err
			}
			return NewList(elem), nil
		}
		branches := make([]Type, len(items))
		for i, item := range items {
			t, err := r.TypeFromDtype(item)
			if err != nil {
				return nil, err
			}
			branches[i] = t
		}
		return NewUnion(branches...), nil
	}
	entries, err := mapEntries(spec)
	var dup *DuplicateKeyError
	if errors.As(err, &dup) {
		return nil, err
	}
	if err == nil {
		typeMap := make(map[string]Type, len(entries))
		for k, item := range entries {
			t, err := r.TypeFromDtype(item)
			if err != nil {
				return nil, err
			}
			typeMap[k] = t
		}
		return NewDictionary(typeMap), nil
	}
	return constOf(spec, false)
}

var (
	defaultRegistry     *Registry
	defaultRegistryOnce sync.Once
)

// registry returns the process-wide registry, populated with the builtin
// variants on first use.
func registry() *Registry {
	defaultRegistryOnce.Do(func() {
		r := newRegistry()
		for _, v := range builtinVariants() {
			if err := r.Register(v); err != nil {
				panic(err)
			}
		}
		defaultRegistry = r
	})
	return defaultRegistry
}

// Register adds a variant to the process-wide registry. It must be called
// before the first TypeOf, TypeFromDict, TypeFromDtype or Lookup, typically
// from an init function; later calls return ErrRegistryFrozen.
func Register(v *Variant) error { return registry().Register(v) }

// TypeOf describes v using the process-wide registry.
func TypeOf(v any) Type { return registry().TypeOf(v) }

// TypeFromDict decodes the wire form of a descriptor using the process-wide registry.
func TypeFromDict(m map[string]any, ctx ArtifactContext) (Type, error) {
	return registry().TypeFromDict(m, ctx)
}

// TypeFromDtype coerces a shorthand notation using the process-wide registry.
func TypeFromDtype(spec any) (Type, error) { return registry().TypeFromDtype(spec) }

// Lookup returns a variant of the process-wide registry.
func Lookup(name string) (*Variant, bool) { return registry().Lookup(name) }

// RegisteredNames lists the wire-format names of the process-wide registry.
func RegisteredNames() []string { return registry().Names() }

// numberClasses are every Go numeric type plus json.Number.
var numberClasses = []reflect.Type{
	reflect.TypeOf(int(0)), reflect.TypeOf(int8(0)), reflect.TypeOf(int16(0)),
	reflect.TypeOf(int32(0)), reflect.TypeOf(int64(0)),
	reflect.TypeOf(uint(0)), reflect.TypeOf(uint8(0)), reflect.TypeOf(uint16(0)),
	reflect.TypeOf(uint32(0)), reflect.TypeOf(uint64(0)),
	reflect.TypeOf(float32(0)), reflect.TypeOf(float64(0)),
	reflect.TypeOf(json.Number("")),
}

func builtinVariants() []*Variant {
	leaf := func(name string, kind Kind, ctor func() Type, classes ...reflect.Type) *Variant {
		return &Variant{
			Name:    name,
			Kind:    kind,
			Classes: classes,
			New:     ctor,
			FromParams: func(p Params, _ ArtifactContext) (Type, error) {
				if key, ok := p.only(); !ok {
					return nil, newParamError(name, key, "unexpected param")
				}
				return ctor(), nil
			},
		}
	}

	return []*Variant{
		// special types
		leaf(config.NeverTypeName, KindNever, NewNever),
		leaf(config.AnyTypeName, KindAny, NewAny),
		leaf(config.UnknownTypeName, KindUnknown, NewUnknown),

		// types with default class mappings
		leaf(config.NoneTypeName, KindNone, NewNone, nil),
		leaf(config.StringTypeName, KindString, NewString, reflect.TypeOf("")),
		leaf(config.NumberTypeName, KindNumber, NewNumber, numberClasses...),
		leaf(config.BooleanTypeName, KindBoolean, NewBoolean, reflect.TypeOf(false)),
		{
			Name:       config.ListTypeName,
			Kind:       KindList,
			Classes:    []reflect.Type{reflect.TypeOf([]any(nil)), reflect.TypeOf(Set(nil))},
			Kinds:      []reflect.Kind{reflect.Slice, reflect.Array},
			New:        func() Type { return NewList(nil) },
			FromValue:  listFromValue,
			FromParams: listFromParams,
		},
		{
			Name:       config.DictionaryTypeName,
			Kind:       KindDictionary,
			Classes:    []reflect.Type{reflect.TypeOf(map[string]any(nil))},
			Kinds:      []reflect.Kind{reflect.Map},
			New:        func() Type { return NewDictionary(nil) },
			FromValue:  dictionaryFromValue,
			FromParams: dictionaryFromParams,
		},

		// types without default class mappings
		{
			Name:       config.UnionTypeName,
			Kind:       KindUnion,
			New:        func() Type { return NewUnion() },
			FromParams: unionFromParams,
		},
		{
			Name:       config.ObjectTypeName,
			Kind:       KindObject,
			New:        func() Type { return NewObject("") },
			FromParams: objectFromParams,
		},
		{
			Name:       config.ConstTypeName,
			Kind:       KindConst,
			New:        func() Type { return &ConstType{} },
			FromParams: constFromParams,
		},
	}
}
