package typesystem

import (
	"errors"
	"fmt"
)

// ErrRegistryFrozen is returned by Register once the registry has served a lookup.
var ErrRegistryFrozen = errors.New("type registry is frozen: variants must be registered before first use")

// MissingTypeNameError indicates a serialized descriptor without a wb_type name.
type MissingTypeNameError struct {
	Got any
}

func (e *MissingTypeNameError) Error() string {
	if e.Got == nil {
		return "descriptor must contain a `wb_type` key"
	}
	return fmt.Sprintf("descriptor `wb_type` must be a string, got %T", e.Got)
}

// UnknownTypeNameError indicates a wb_type name with no registered variant.
type UnknownTypeNameError struct {
	Name string
}

func (e *UnknownTypeNameError) Error() string {
	return fmt.Sprintf("missing type handler for %q", e.Name)
}

func NewUnknownTypeNameError(name string) *UnknownTypeNameError {
	return &UnknownTypeNameError{Name: name}
}

// ParamError indicates params that do not fit the variant being decoded.
type ParamError struct {
	Type   string
	Param  string
	Reason string
}

func (e *ParamError) Error() string {
	if e.Param == "" {
		return fmt.Sprintf("%s: %s", e.Type, e.Reason)
	}
	return fmt.Sprintf("%s: param %q: %s", e.Type, e.Param, e.Reason)
}

func newParamError(typeName, param, format string, args ...any) *ParamError {
	return &ParamError{Type: typeName, Param: param, Reason: fmt.Sprintf(format, args...)}
}

// UnsupportedConstError indicates a value that cannot be held by a const descriptor.
type UnsupportedConstError struct {
	Value any
	IsSet bool
}

func (e *UnsupportedConstError) Error() string {
	if e.IsSet {
		return fmt.Sprintf("const set requires a sequence or set of str, number, bool or nil, found %#v", e.Value)
	}
	return fmt.Sprintf("const only supports str, number, bool, sequences, sets and nil, found %#v", e.Value)
}

// NotCollectionError indicates a list was inferred from a value that is not list-like.
type NotCollectionError struct {
	Class string
}

func (e *NotCollectionError) Error() string {
	return fmt.Sprintf("list expects a list-like value, got %s", e.Class)
}

// NotMappingError indicates a dictionary was inferred from a value that is not a map.
type NotMappingError struct {
	Class string
}

func (e *NotMappingError) Error() string {
	return fmt.Sprintf("dictionary expects a map, got %s", e.Class)
}

// DuplicateKeyError indicates a map with two keys that render to the same
// dictionary key, such as 1 and "1".
type DuplicateKeyError struct {
	Key string
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("dictionary key %q occurs more than once", e.Key)
}
