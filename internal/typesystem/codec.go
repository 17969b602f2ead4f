package typesystem

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"

	"github.com/funvibe/dtypes/internal/config"
)

var jsonCodec = jsoniter.ConfigCompatibleWithStandardLibrary

// Marshal encodes t in its wire form.
func Marshal(t Type, ctx ArtifactContext) ([]byte, error) {
	return jsonCodec.Marshal(t.ToJSON(ctx))
}

// MarshalIndent is Marshal with indentation, for files meant to be read.
func MarshalIndent(t Type, ctx ArtifactContext) ([]byte, error) {
	return jsonCodec.MarshalIndent(t.ToJSON(ctx), "", "  ")
}

// Unmarshal decodes a descriptor from its JSON wire form.
func Unmarshal(data []byte, ctx ArtifactContext) (Type, error) {
	var m map[string]any
	if err := jsonCodec.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decoding descriptor: %w", err)
	}
	if m == nil {
		return nil, &MissingTypeNameError{}
	}
	return TypeFromDict(m, ctx)
}

// Param decoders of the builtin variants

func listFromValue(v any) (Type, error) {
	l, err := ListFromValue(v)
	if err != nil {
		return nil, err
	}
	return l, nil
}

func dictionaryFromValue(v any) (Type, error) {
	d, err := DictionaryFromValue(v)
	if err != nil {
		return nil, err
	}
	return d, nil
}

func typeParam(typeName string, p Params, key string) (Type, bool, error) {
	v, ok := p.Get(key)
	if !ok {
		return nil, false, nil
	}
	t, isType := v.AsType()
	if !isType {
		return nil, true, newParamError(typeName, key, "expected a descriptor, got %s", v)
	}
	return t, true, nil
}

func listFromParams(p Params, _ ArtifactContext) (Type, error) {
	if key, ok := p.only(config.ElementTypeParam); !ok {
		return nil, newParamError(config.ListTypeName, key, "unexpected param")
	}
	elem, _, err := typeParam(config.ListTypeName, p, config.ElementTypeParam)
	if err != nil {
		return nil, err
	}
	return NewList(elem), nil
}

func dictionaryFromParams(p Params, _ ArtifactContext) (Type, error) {
	if key, ok := p.only(config.TypeMapParam); !ok {
		return nil, newParamError(config.DictionaryTypeName, key, "unexpected param")
	}
	v, ok := p.Get(config.TypeMapParam)
	if !ok {
		return NewDictionary(nil), nil
	}
	if v.Kind() != MapValue {
		return nil, newParamError(config.DictionaryTypeName, config.TypeMapParam, "expected a mapping, got %s", v)
	}
	typeMap := make(map[string]Type, len(v.keys))
	for _, k := range v.keys {
		t, isType := v.m[k].AsType()
		if !isType {
			return nil, newParamError(config.DictionaryTypeName, config.TypeMapParam, "key %q: expected a descriptor, got %s", k, v.m[k])
		}
		typeMap[k] = t
	}
	return NewDictionary(typeMap), nil
}

func unionFromParams(p Params, _ ArtifactContext) (Type, error) {
	if key, ok := p.only(config.AllowedTypesParam); !ok {
		return nil, newParamError(config.UnionTypeName, key, "unexpected param")
	}
	v, ok := p.Get(config.AllowedTypesParam)
	if !ok {
		return NewUnion(), nil
	}
	if v.Kind() != SeqValue {
		return nil, newParamError(config.UnionTypeName, config.AllowedTypesParam, "expected a sequence, got %s", v)
	}
	branches := make([]Type, len(v.items))
	for i, it := range v.items {
		t, isType := it.AsType()
		if !isType {
			return nil, newParamError(config.UnionTypeName, config.AllowedTypesParam, "item %d: expected a descriptor, got %s", i, it)
		}
		branches[i] = t
	}
	return NewUnion(branches...), nil
}

func objectFromParams(p Params, _ ArtifactContext) (Type, error) {
	if key, ok := p.only(config.ClassNameParam); !ok {
		return nil, newParamError(config.ObjectTypeName, key, "unexpected param")
	}
	v, ok := p.Get(config.ClassNameParam)
	if !ok {
		return nil, newParamError(config.ObjectTypeName, config.ClassNameParam, "missing")
	}
	name, isString := v.AsString()
	if !isString {
		return nil, newParamError(config.ObjectTypeName, config.ClassNameParam, "expected a string, got %s", v)
	}
	return NewObject(name), nil
}

func constFromParams(p Params, _ ArtifactContext) (Type, error) {
	if key, ok := p.only(config.ValParam, config.IsSetParam); !ok {
		return nil, newParamError(config.ConstTypeName, key, "unexpected param")
	}
	val, _ := p.Get(config.ValParam)
	isSet := false
	if v, ok := p.Get(config.IsSetParam); ok {
		b, isBool := v.AsBool()
		if !isBool && !v.IsNull() {
			return nil, newParamError(config.ConstTypeName, config.IsSetParam, "expected a boolean, got %s", v)
		}
		isSet = b
	}
	c, err := newConstFromValue(val, isSet)
	if err != nil {
		return nil, err
	}
	return c, nil
}
