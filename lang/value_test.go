package lang

import (
	"math"
	"slices"
	"testing"

	"github.com/goccy/go-yaml"
)

func TestValue_Truthy(t *testing.T) {
	tests := []struct {
		v    Value
		want bool
	}{
		{Null(), false},
		{Bool(true), true},
		{Number(0), false},
		{Number(math.NaN()), false},
		{Number(-1), true},
		{String(""), false},
		{String("0"), false},
		{String("false"), false},
		{String("no"), true},
		{ListOf(), false},
		{ListOf(Null()), true},
		{MapValue(NewMap()), false},
		{Object(struct{}{}), true},
	}

	for _, tt := range tests {
		if got := tt.v.Truthy(); got != tt.want {
			t.Errorf("%#v.Truthy() = %v, want %v", tt.v, got, tt.want)
		}
	}
}

func TestValue_Text(t *testing.T) {
	m := NewMap()
	m.Set("b", Int(1))
	m.Set("a", ListOf(String("x"), Number(1.5)))

	tests := []struct {
		v    Value
		want string
	}{
		{Null(), ""},
		{Int(42), "42"},
		{Number(0.1), "0.1"},
		{Number(1e21), "1000000000000000000000"},
		{Bool(false), "false"},
		{ListOf(String("a"), ListOf(Int(1), Int(2))), "a12"},
		{MapValue(m), "{b: 1, a: x1.5}"},
	}

	for _, tt := range tests {
		if got := tt.v.Text(); got != tt.want {
			t.Errorf("Text() = %q, want %q", got, tt.want)
		}
	}
}

func TestValue_Equal(t *testing.T) {
	a := NewContext("k", []any{1, "x"})
	b := NewContext("k", []any{1, "x"})

	if !MapValue(a).Equal(MapValue(b)) {
		t.Error("equal maps compare unequal")
	}

	b.Set("k2", Null())

	if MapValue(a).Equal(MapValue(b)) {
		t.Error("maps with different keys compare equal")
	}

	if !Int(2).Equal(String("2")) {
		t.Error("number should equal its decimal string")
	}

	if Null().Equal(Int(0)) {
		t.Error("null should not equal zero")
	}
}

func TestValue_NativeRoundTrip(t *testing.T) {
	ms := yaml.MapSlice{
		{Key: "z", Value: uint64(1)},
		{Key: "a", Value: []any{"s", 2.5, true, nil}},
	}

	v := FromNative(ms)
	if got := v.Map().Keys(); got[0] != "z" || got[1] != "a" {
		t.Errorf("MapSlice order lost: %v", got)
	}

	native, ok := v.Native().(map[string]any)
	if !ok {
		t.Fatalf("Native() = %T", v.Native())
	}

	if n, ok := native["z"].(int); !ok || n != 1 {
		t.Errorf("integral number should be int, got %T", native["z"])
	}

	if _, ok := v.Ordered().(yaml.MapSlice); !ok {
		t.Errorf("Ordered() = %T", v.Ordered())
	}

	if got := FromNative(struct{ A int }{1}); got.Kind() != KindObject {
		t.Errorf("unknown type kind = %v", got.Kind())
	}
}

func TestList(t *testing.T) {
	l := NewList(Int(1), Int(2))

	if v, ok := l.At(-1); !ok || !v.Equal(Int(2)) {
		t.Errorf("At(-1) = %#v", v)
	}

	if _, ok := l.At(2); ok {
		t.Error("At past end should fail")
	}

	if !l.Set(2, Int(3)) || l.Len() != 3 {
		t.Error("Set at length should append")
	}

	if l.Set(5, Int(0)) {
		t.Error("Set far past end should fail")
	}

	var nilList *List
	if nilList.Len() != 0 || nilList.Values() != nil {
		t.Error("nil list should be empty")
	}
}

func TestMap(t *testing.T) {
	m := NewMap()
	m.Set("b", Int(1))
	m.Set("a", Int(2))
	m.Set("b", Int(3))

	if got := m.Keys(); len(got) != 2 || got[0] != "b" || got[1] != "a" {
		t.Errorf("Keys() = %v, want insertion order", got)
	}

	c := m.Clone()
	c.Set("c", Null())

	if m.Has("c") {
		t.Error("Clone shares storage")
	}

	if !m.Remove("b") || m.Remove("b") {
		t.Error("Remove should report presence once")
	}

	other := NewContext("x", 1, "a", 9)
	m.Merge(other)

	if v, _ := m.Get("a"); !v.Equal(Int(9)) {
		t.Errorf("Merge did not overwrite a: %#v", v)
	}

	m.Sort()

	if got := m.Keys(); got[0] != "a" || got[1] != "x" {
		t.Errorf("Sort() keys = %v", got)
	}
}

func TestMap_ZeroValue(t *testing.T) {
	var m Map

	if m.Len() != 0 || m.Has("a") || m.Remove("a") || m.Keys() != nil {
		t.Fatal("zero Map is not empty")
	}

	m.Sort()
	m.Set("b", Int(1))
	m.Set("a", Int(2))

	if got := MapValue(&m).Text(); got != "{b: 1, a: 2}" {
		t.Errorf("Text() = %q", got)
	}

	m.Sort()

	if got := MapValue(&m).Text(); got != "{a: 2, b: 1}" {
		t.Errorf("Text() after Sort = %q", got)
	}
}

func TestMap_SetKeepsPosition(t *testing.T) {
	m := NewContext("x", 1, "y", 2, "z", 3)
	m.Set("x", Int(10))
	m.Remove("y")
	m.Set("y", Int(20))

	var got []string
	for k, v := range m.All() {
		got = append(got, k+"="+v.Text())
	}

	if want := []string{"x=10", "z=3", "y=20"}; !slices.Equal(got, want) {
		t.Errorf("All() = %v, want %v", got, want)
	}
}
