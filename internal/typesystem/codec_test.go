package typesystem

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestToJSON(t *testing.T) {
	tests := []struct {
		name string
		typ  Type
		want map[string]any
	}{
		{"leaf", NewNumber(), map[string]any{"wb_type": "number"}},
		{"string leaf", NewString(), map[string]any{"wb_type": "text"}},
		{"object", NewObject("point"), map[string]any{
			"wb_type": "object",
			"params":  map[string]any{"class_name": "point"},
		}},
		{"const", mustConst(t, "a", false), map[string]any{
			"wb_type": "const",
			"params":  map[string]any{"val": "a", "is_set": false},
		}},
		{"const set", mustConst(t, Set{"b", "a"}, false), map[string]any{
			"wb_type": "const",
			"params":  map[string]any{"val": []any{"a", "b"}, "is_set": true},
		}},
		{"const number", mustConst(t, 3, false), map[string]any{
			"wb_type": "const",
			"params":  map[string]any{"val": 3.0, "is_set": false},
		}},
		{"list", NewList(NewNumber()), map[string]any{
			"wb_type": "list",
			"params":  map[string]any{"element_type": map[string]any{"wb_type": "number"}},
		}},
		{"union", NewUnion(NewNumber(), NewString()), map[string]any{
			"wb_type": "union",
			"params": map[string]any{"allowed_types": []any{
				map[string]any{"wb_type": "number"},
				map[string]any{"wb_type": "text"},
			}},
		}},
		{"dictionary", NewDictionary(map[string]Type{"a": NewBoolean()}), map[string]any{
			"wb_type": "dictionary",
			"params":  map[string]any{"type_map": map[string]any{"a": map[string]any{"wb_type": "boolean"}}},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, tt.typ.ToJSON(nil)); diff != "" {
				t.Errorf("ToJSON() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func roundTripSamples(t testing.TB) []Type {
	return []Type{
		NewNever(), NewAny(), NewUnknown(), NewNone(),
		NewString(), NewNumber(), NewBoolean(),
		NewObject("point"),
		mustConst(t, "a", false),
		mustConst(t, 2.5, false),
		mustConst(t, nil, false),
		mustConst(t, true, false),
		mustConst(t, []any{1, "x", nil}, false),
		mustConst(t, Set{"a", "b"}, false),
		NewList(nil),
		NewList(NewList(NewString())),
		NewUnion(),
		NewUnion(NewString(), NewNumber(), NewNone()),
		NewDictionary(nil),
		NewDictionary(map[string]Type{
			"id":   NewNumber(),
			"tags": NewList(NewUnion(NewString(), NewUnknown())),
			"meta": NewDictionary(map[string]Type{"ok": NewBoolean()}),
		}),
	}
}

func TestJSONRoundTrip(t *testing.T) {
	for _, typ := range roundTripSamples(t) {
		data, err := Marshal(typ, nil)
		if err != nil {
			t.Fatalf("Marshal(%s): %v", typ, err)
		}
		got, err := Unmarshal(data, nil)
		if err != nil {
			t.Fatalf("Unmarshal(%s): %v", data, err)
		}
		if !Equal(got, typ) {
			t.Errorf("round trip of %s gave %s", typ, got)
		}
	}
}

func TestYAMLRoundTrip(t *testing.T) {
	for _, typ := range roundTripSamples(t) {
		data, err := MarshalYAML(typ, nil)
		if err != nil {
			t.Fatalf("MarshalYAML(%s): %v", typ, err)
		}
		got, err := UnmarshalYAML(data, nil)
		if err != nil {
			t.Fatalf("UnmarshalYAML(%s): %v", data, err)
		}
		if !Equal(got, typ) {
			t.Errorf("round trip of %s gave %s", typ, got)
		}
	}
}

func TestUnmarshalWireForm(t *testing.T) {
	data := []byte(`{
		"wb_type": "list",
		"params": {
			"element_type": {
				"wb_type": "union",
				"params": {"allowed_types": [{"wb_type": "number"}, {"wb_type": "text"}]}
			}
		}
	}`)
	got, err := Unmarshal(data, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := NewList(NewUnion(NewNumber(), NewString()))
	if !Equal(got, want) {
		t.Errorf("Unmarshal = %s, want %s", got, want)
	}

	// decoded descriptors keep working as assignment targets
	if narrowed := got.Assign([]any{1, "x"}); !Equal(narrowed, want) {
		t.Errorf("Assign = %s, want %s", narrowed, want)
	}
}

func TestUnmarshalErrors(t *testing.T) {
	var missing *MissingTypeNameError
	for _, input := range []string{`null`, `{}`, `{"params": {}}`} {
		if _, err := Unmarshal([]byte(input), nil); !errors.As(err, &missing) {
			t.Errorf("Unmarshal(%s) = %v, want MissingTypeNameError", input, err)
		}
	}
	if _, err := Unmarshal([]byte(`[1]`), nil); err == nil {
		t.Error("expected an error for a JSON array")
	}
	if _, err := Unmarshal([]byte(`{"wb_type":`), nil); err == nil {
		t.Error("expected an error for truncated input")
	}
	if _, err := UnmarshalYAML([]byte("wb_type: [unterminated"), nil); err == nil {
		t.Error("expected an error for malformed yaml")
	}
	if _, err := UnmarshalYAML([]byte("wb_type: const\nparams:\n  val: .nan\n"), nil); err == nil {
		t.Error("expected an error for a NaN const")
	}
	if _, err := Unmarshal([]byte(`{"wb_type": "const", "params": {"val": 1e999}}`), nil); err == nil {
		t.Error("expected an error for an out of range const")
	}
}

// A type_map key named wb_type makes the map read as a nested descriptor,
// so such a dictionary encodes but does not decode.
func TestDictionaryKeyNamedTypeName(t *testing.T) {
	d := NewDictionary(map[string]Type{"wb_type": NewNumber()})
	data, err := Marshal(d, nil)
	if err != nil {
		t.Fatalf("Marshal(%s): %v", d, err)
	}
	var missing *MissingTypeNameError
	if _, err := Unmarshal(data, nil); !errors.As(err, &missing) {
		t.Errorf("Unmarshal(%s) = %v, want MissingTypeNameError", data, err)
	}
}

func FuzzUnmarshal(f *testing.F) {
	for _, typ := range roundTripSamples(f) {
		data, err := Marshal(typ, nil)
		if err != nil {
			f.Fatal(err)
		}
		f.Add(data)
	}
	f.Add([]byte(`{"wb_type": "const", "params": {"val": [1, 1], "is_set": true}}`))

	f.Fuzz(func(t *testing.T, data []byte) {
		typ, err := Unmarshal(data, nil)
		if err != nil {
			return
		}
		encoded, err := Marshal(typ, nil)
		if err != nil {
			t.Fatalf("Marshal(%s): %v", typ, err)
		}
		again, err := Unmarshal(encoded, nil)
		if err != nil {
			t.Fatalf("decoding %s: %v", encoded, err)
		}
		if !Equal(typ, again) {
			t.Errorf("%s re-decoded as %s", typ, again)
		}
	})
}
