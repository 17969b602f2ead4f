// Package native turns decoded documents and protobuf values into the plain
// Go values the type algebra describes: nil, bool, string, numbers,
// []any and map[string]any.
package native

import (
	"errors"
	"fmt"
	"strconv"

	jsoniter "github.com/json-iterator/go"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// numberLike matches json.Number and other decoder number wrappers.
type numberLike interface {
	Int64() (int64, error)
	Float64() (float64, error)
	String() string
}

// Normalize converts the outermost layer of v. Nested members are left as
// they are; they get normalized when they are described in turn.
//
//   - structpb values become their AsInterface/AsMap/AsSlice form
//   - other protobuf messages become the map of their protojson encoding
//   - number wrappers become int64, or float64 when not integral or out
//     of range
//   - map[any]any (YAML) becomes map[string]any unless two keys render
//     to the same string
func Normalize(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case *structpb.Value:
		return x.AsInterface()
	case *structpb.Struct:
		return x.AsMap()
	case *structpb.ListValue:
		return x.AsSlice()
	case proto.Message:
		if m, err := messageMap(x); err == nil {
			return m
		}
		return v
	case numberLike:
		if i, err := x.Int64(); err == nil {
			return i
		}
		// out of range parses to +-Inf and stays a number
		f, err := x.Float64()
		if err == nil || errors.Is(err, strconv.ErrRange) {
			return f
		}
		return x.String()
	case map[any]any:
		out := make(map[string]any, len(x))
		for k, item := range x {
			key := fmt.Sprint(k)
			if _, dup := out[key]; dup {
				// 1 and "1" render alike; left for the caller to reject
				return v
			}
			out[key] = item
		}
		return out
	}
	return v
}

var protoJSON = protojson.MarshalOptions{UseProtoNames: true}

// messageMap renders a message through its canonical JSON mapping, so that
// a message is described by the shape it has on the wire.
func messageMap(m proto.Message) (map[string]any, error) {
	data, err := protoJSON.Marshal(m)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}
