package typesystem

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
)

func TestNewConst(t *testing.T) {
	tests := []struct {
		name    string
		val     any
		isSet   bool
		wantSet bool
		wantErr bool
	}{
		{"string", "a", false, false, false},
		{"int", 3, false, false, false},
		{"float", 2.5, false, false, false},
		{"bool", true, false, false, false},
		{"nil", nil, false, false, false},
		{"sequence", []any{"a", 1}, false, false, false},
		{"set forces set mode", Set{"a", "b"}, false, true, false},
		{"is_set on a sequence", []string{"a", "b"}, true, true, false},
		{"is_set on a scalar", "a", true, false, true},
		{"map", map[string]any{"a": 1}, false, false, true},
		{"struct", point{}, false, false, true},
		{"nested sequence", []any{[]any{1}}, false, false, true},
		{"nan", math.NaN(), false, false, true},
		{"infinity", math.Inf(1), false, false, true},
		{"float32 infinity", float32(math.Inf(-1)), false, false, true},
		{"sequence with nan", []any{1, math.NaN()}, false, false, true},
		{"set with infinity", Set{math.Inf(1)}, false, false, true},
		{"out of range json number", json.Number("1e999"), false, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewConst(tt.val, tt.isSet)
			if tt.wantErr {
				var unsupported *UnsupportedConstError
				if !errors.As(err, &unsupported) {
					t.Fatalf("expected UnsupportedConstError, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if c.IsSet() != tt.wantSet {
				t.Errorf("IsSet() = %v, want %v", c.IsSet(), tt.wantSet)
			}
		})
	}
}

func TestConstSetIsUnordered(t *testing.T) {
	a := mustConst(t, []any{"x", "y", "x"}, true)
	b := mustConst(t, Set{"y", "x"}, false)
	if !Equal(a, b) {
		t.Errorf("%s and %s should be equal", a, b)
	}
	if got := len(a.Val().Items()); got != 2 {
		t.Errorf("set kept %d members, want 2", got)
	}
}

func TestConstAssign(t *testing.T) {
	one := mustConst(t, 1, false)
	if got := one.Assign(1); !Equal(got, one) {
		t.Errorf("const(1).Assign(1) = %s", got)
	}
	if got := one.Assign(1.0); !Equal(got, one) {
		t.Errorf("const(1).Assign(1.0) = %s", got)
	}
	for _, v := range []any{2, "1", true, nil, []any{1}} {
		if got := one.Assign(v); !IsNever(got) {
			t.Errorf("const(1).Assign(%#v) = %s, want never", v, got)
		}
	}

	set := mustConst(t, Set{"a", "b"}, false)
	if got := set.Assign(Set{"b", "a"}); !Equal(got, set) {
		t.Errorf("set const should accept the same set, got %s", got)
	}
	if got := set.Assign([]any{"a", "b"}); !IsNever(got) {
		t.Errorf("set const should reject a sequence, got %s", got)
	}
	if got := set.AssignType(mustConst(t, []any{"a", "b"}, false)); !IsNever(got) {
		t.Errorf("set const should reject a sequence const, got %s", got)
	}
	if got := one.AssignType(NewNumber()); !IsNever(got) {
		t.Errorf("const should reject its base type, got %s", got)
	}
}

func TestConstFirstFitOverlap(t *testing.T) {
	// two identical const branches: the first one absorbs
	u := NewUnion(mustConst(t, "a", false), mustConst(t, "a", false), NewUnknown())
	got := u.Assign("a")
	want := NewUnion(mustConst(t, "a", false), mustConst(t, "a", false), NewUnknown())
	if !Equal(got, want) {
		t.Errorf("Assign = %s, want %s", got, want)
	}
}
