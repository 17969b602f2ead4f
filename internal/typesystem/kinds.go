package typesystem

import (
	"github.com/funvibe/dtypes/internal/config"
)

// Kind identifies the variant of a descriptor.
// The builtin variants form a closed set; descriptors contributed through
// Register report KindExtension and are told apart by Name.
type Kind int

const (
	KindNever Kind = iota
	KindAny
	KindUnknown
	KindNone
	KindString
	KindNumber
	KindBoolean
	KindObject
	KindConst
	KindUnion
	KindList
	KindDictionary
	KindExtension
)

var kindNames = [...]string{
	KindNever:      config.NeverTypeName,
	KindAny:        config.AnyTypeName,
	KindUnknown:    config.UnknownTypeName,
	KindNone:       config.NoneTypeName,
	KindString:     config.StringTypeName,
	KindNumber:     config.NumberTypeName,
	KindBoolean:    config.BooleanTypeName,
	KindObject:     config.ObjectTypeName,
	KindConst:      config.ConstTypeName,
	KindUnion:      config.UnionTypeName,
	KindList:       config.ListTypeName,
	KindDictionary: config.DictionaryTypeName,
	KindExtension:  "extension",
}

// String returns the wire-format name of a builtin kind.
func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "invalid"
	}
	return kindNames[k]
}

// IsBuiltin reports whether k is one of the closed set of builtin variants.
func (k Kind) IsBuiltin() bool {
	return k >= KindNever && k < KindExtension
}
