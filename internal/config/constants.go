package config

// SchemaFileExt is the extension written for descriptor files.
const SchemaFileExt = ".dtype.json"

// YAMLFileExtensions are the input extensions decoded as YAML. Everything else
// is read as JSON.
var YAMLFileExtensions = []string{".yaml", ".yml"}

// IsTestMode indicates if the program is running under go test or with
// DTYPES_TEST_MODE=1. Set once at startup, read-only afterwards.
var IsTestMode = false

// TestModeEnv is the environment switch for IsTestMode.
const TestModeEnv = "DTYPES_TEST_MODE"

// Wire-format keys of a serialized descriptor
const (
	TypeNameKey = "wb_type"
	ParamsKey   = "params"
)

// Wire-format names of the builtin variants
const (
	NeverTypeName      = "never"
	AnyTypeName        = "any"
	UnknownTypeName    = "unknown"
	NoneTypeName       = "none"
	StringTypeName     = "text"
	NumberTypeName     = "number"
	BooleanTypeName    = "boolean"
	ObjectTypeName     = "object"
	ConstTypeName      = "const"
	UnionTypeName      = "union"
	ListTypeName       = "list"
	DictionaryTypeName = "dictionary"
)

// Param names used by the builtin variants
const (
	ClassNameParam    = "class_name"
	ValParam          = "val"
	IsSetParam        = "is_set"
	AllowedTypesParam = "allowed_types"
	ElementTypeParam  = "element_type"
	TypeMapParam      = "type_map"
)
