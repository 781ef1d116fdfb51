package lang

import (
	"fmt"
	"iter"
	"math"
	"reflect"
	"slices"
	"strconv"
	"strings"

	"github.com/goccy/go-yaml"
)

// Kind identifies the variant held by a [Value].
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindList
	KindMap
	KindFunc
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	case KindFunc:
		return "func"
	case KindObject:
		return "object"
	default:
		return "invalid"
	}
}

// Value is the dynamic value flowing through parsing and expansion. The zero
// Value is null. Lists and maps are reference types: copying a Value shares
// the container.
type Value struct {
	kind Kind
	b    bool
	n    float64
	s    string
	ref  any
}

// Null returns the null value.
func Null() Value { return Value{} }

func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

func Number(n float64) Value { return Value{kind: KindNumber, n: n} }

func Int(i int) Value { return Number(float64(i)) }

func String(s string) Value { return Value{kind: KindString, s: s} }

// ListOf returns a new list holding vs.
func ListOf(vs ...Value) Value { return ListValue(NewList(vs...)) }

// ListValue wraps l. A nil list yields null.
func ListValue(l *List) Value {
	if l == nil {
		return Null()
	}

	return Value{kind: KindList, ref: l}
}

// MapValue wraps m. A nil map yields null.
func MapValue(m *Map) Value {
	if m == nil {
		return Null()
	}

	return Value{kind: KindMap, ref: m}
}

// FuncValue wraps a function reference. A nil function yields null.
func FuncValue(f *Func) Value {
	if f == nil {
		return Null()
	}

	return Value{kind: KindFunc, ref: f}
}

// Object wraps an opaque host value.
func Object(v any) Value { return Value{kind: KindObject, ref: v} }

func (v Value) Kind() Kind { return v.kind }

func (v Value) IsNull() bool { return v.kind == KindNull }

// Scalar reports whether v is neither a list nor a map.
func (v Value) Scalar() bool { return v.kind != KindList && v.kind != KindMap }

// List returns the list held by v, or nil.
func (v Value) List() *List {
	l, _ := v.ref.(*List)

	return l
}

// Map returns the map held by v, or nil.
func (v Value) Map() *Map {
	m, _ := v.ref.(*Map)

	return m
}

// Func returns the function reference held by v, or nil.
func (v Value) Func() *Func {
	f, _ := v.ref.(*Func)

	return f
}

// Object returns the host value held by an object Value.
func (v Value) Object() any {
	if v.kind != KindObject {
		return nil
	}

	return v.ref
}

// Str returns the string held by a string Value, or its text otherwise.
func (v Value) Str() string {
	if v.kind == KindString {
		return v.s
	}

	return v.Text()
}

// Text renders v as template output. Lists concatenate their elements.
func (v Value) Text() string {
	var b strings.Builder

	v.writeText(&b)

	return b.String()
}

func (v Value) writeText(b *strings.Builder) {
	switch v.kind {
	case KindNull:
	case KindBool:
		b.WriteString(strconv.FormatBool(v.b))
	case KindNumber:
		b.WriteString(formatNumber(v.n))
	case KindString:
		b.WriteString(v.s)
	case KindList:
		for _, e := range v.List().items {
			e.writeText(b)
		}
	case KindMap:
		b.WriteByte('{')

		sep := ""

		for k, e := range v.Map().All() {
			b.WriteString(sep)
			b.WriteString(k)
			b.WriteString(": ")
			e.writeText(b)

			sep = ", "
		}

		b.WriteByte('}')
	case KindFunc:
		b.WriteString("<func " + v.Func().Name + ">")
	case KindObject:
		fmt.Fprint(b, v.ref)
	}
}

func formatNumber(n float64) string {
	return strconv.FormatFloat(n, 'f', -1, 64)
}

// Truthy reports whether v counts as true in a condition. Null, false, zero,
// NaN, the empty string, "false", "0" and empty containers are false.
func (v Value) Truthy() bool {
	switch v.kind {
	case KindNull:
		return false
	case KindBool:
		return v.b
	case KindNumber:
		return v.n != 0 && !math.IsNaN(v.n)
	case KindString:
		return v.s != "" && v.s != "false" && v.s != "0"
	case KindList:
		return v.List().Len() > 0
	case KindMap:
		return v.Map().Len() > 0
	case KindFunc:
		return true
	case KindObject:
		return v.ref != nil
	default:
		return false
	}
}

// Num converts v to a number. Strings must hold a decimal literal; null is
// zero.
func (v Value) Num() (float64, bool) {
	switch v.kind {
	case KindNull:
		return 0, true
	case KindBool:
		if v.b {
			return 1, true
		}

		return 0, true
	case KindNumber:
		return v.n, true
	case KindString:
		return parseNumber(v.s)
	case KindList, KindMap, KindFunc, KindObject:
		return 0, false
	default:
		return 0, false
	}
}

func parseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}

	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}

	return n, true
}

// Equal reports deep equality. Numbers compare numerically, and a number
// equals a string holding the same number.
func (v Value) Equal(w Value) bool {
	if v.kind != w.kind {
		if v.kind == KindNumber || w.kind == KindNumber {
			a, aok := v.Num()
			b, bok := w.Num()

			return aok && bok && v.kind != KindNull && w.kind != KindNull && a == b
		}

		return false
	}

	switch v.kind {
	case KindNull:
		return true
	case KindBool:
		return v.b == w.b
	case KindNumber:
		return v.n == w.n
	case KindString:
		return v.s == w.s
	case KindList:
		return slices.EqualFunc(v.List().items, w.List().items, Value.Equal)
	case KindMap:
		return v.Map().Equal(w.Map())
	case KindFunc:
		return v.Func() == w.Func()
	case KindObject:
		return reflect.DeepEqual(v.ref, w.ref)
	default:
		return false
	}
}

// Compare orders v and w numerically when both convert to numbers and
// lexically by text otherwise.
func (v Value) Compare(w Value) int {
	a, aok := v.Num()
	b, bok := w.Num()

	if aok && bok {
		switch {
		case a < b:
			return -1
		case a > b:
			return 1
		default:
			return 0
		}
	}

	return strings.Compare(v.Text(), w.Text())
}

// Len returns the length of a string, list or map, and 0 otherwise.
func (v Value) Len() int {
	switch v.kind {
	case KindString:
		return len([]rune(v.s))
	case KindList:
		return v.List().Len()
	case KindMap:
		return v.Map().Len()
	case KindNull, KindBool, KindNumber, KindFunc, KindObject:
		return 0
	default:
		return 0
	}
}

// Native converts v to plain Go values: nil, bool, int (for integral
// numbers), float64, string, []any, map[string]any, *Func or the host object.
func (v Value) Native() any {
	switch v.kind {
	case KindNull:
		return nil
	case KindBool:
		return v.b
	case KindNumber:
		if i, ok := integral(v.n); ok {
			return i
		}

		return v.n
	case KindString:
		return v.s
	case KindList:
		out := make([]any, 0, v.List().Len())
		for _, e := range v.List().items {
			out = append(out, e.Native())
		}

		return out
	case KindMap:
		out := make(map[string]any, v.Map().Len())
		for k, e := range v.Map().All() {
			out[k] = e.Native()
		}

		return out
	case KindFunc:
		return v.Func()
	case KindObject:
		return v.ref
	default:
		return nil
	}
}

func integral(n float64) (int, bool) {
	if n != math.Trunc(n) || math.Abs(n) > 1<<53 {
		return 0, false
	}

	return int(n), true
}

// FromNative converts a Go value to a Value. Maps with string keys become
// ordered maps (sorted by key unless the source is a [yaml.MapSlice]).
// Unrecognized types become objects.
func FromNative(x any) Value {
	switch x := x.(type) {
	case nil:
		return Null()
	case Value:
		return x
	case *Map:
		return MapValue(x)
	case *List:
		return ListValue(x)
	case *Func:
		return FuncValue(x)
	case bool:
		return Bool(x)
	case string:
		return String(x)
	case []byte:
		return String(string(x))
	case int:
		return Number(float64(x))
	case int8:
		return Number(float64(x))
	case int16:
		return Number(float64(x))
	case int32:
		return Number(float64(x))
	case int64:
		return Number(float64(x))
	case uint:
		return Number(float64(x))
	case uint8:
		return Number(float64(x))
	case uint16:
		return Number(float64(x))
	case uint32:
		return Number(float64(x))
	case uint64:
		return Number(float64(x))
	case float32:
		return Number(float64(x))
	case float64:
		return Number(x)
	case []any:
		l := NewList()
		for _, e := range x {
			l.Append(FromNative(e))
		}

		return ListValue(l)
	case []string:
		l := NewList()
		for _, e := range x {
			l.Append(String(e))
		}

		return ListValue(l)
	case yaml.MapSlice:
		m := NewMap()
		for _, item := range x {
			m.Set(fmt.Sprint(item.Key), FromNative(item.Value))
		}

		return MapValue(m)
	case map[string]any:
		m := NewMap()
		for _, k := range sortedKeys(x) {
			m.Set(k, FromNative(x[k]))
		}

		return MapValue(m)
	case map[string]string:
		m := NewMap()
		for _, k := range sortedKeys(x) {
			m.Set(k, String(x[k]))
		}

		return MapValue(m)
	case map[any]any:
		m := NewMap()
		for k, e := range x {
			m.Set(fmt.Sprint(k), FromNative(e))
		}

		m.Sort()

		return MapValue(m)
	default:
		return Object(x)
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	slices.Sort(keys)

	return keys
}

// GoString renders v for debugging and test failures.
func (v Value) GoString() string {
	switch v.kind {
	case KindString:
		return strconv.Quote(v.s)
	case KindNull:
		return "null"
	case KindList:
		parts := make([]string, 0, v.List().Len())
		for _, e := range v.List().items {
			parts = append(parts, e.GoString())
		}

		return "[" + strings.Join(parts, " ") + "]"
	case KindBool, KindNumber, KindMap, KindFunc, KindObject:
		return v.Text()
	default:
		return v.Text()
	}
}

// List is an ordered sequence of values.
type List struct {
	items []Value
}

// NewList returns a list holding a copy of vs.
func NewList(vs ...Value) *List {
	return &List{items: slices.Clone(vs)}
}

func (l *List) Len() int {
	if l == nil {
		return 0
	}

	return len(l.items)
}

// At returns the element at index i. Negative indexes count from the end.
func (l *List) At(i int) (Value, bool) {
	if i < 0 {
		i += l.Len()
	}

	if i < 0 || i >= l.Len() {
		return Null(), false
	}

	return l.items[i], true
}

// Set replaces the element at index i. Negative indexes count from the end.
// Setting the index one past the end appends.
func (l *List) Set(i int, v Value) bool {
	if i < 0 {
		i += l.Len()
	}

	switch {
	case i < 0 || i > len(l.items):
		return false
	case i == len(l.items):
		l.items = append(l.items, v)
	default:
		l.items[i] = v
	}

	return true
}

func (l *List) Append(vs ...Value) { l.items = append(l.items, vs...) }

// Values returns a copy of the elements.
func (l *List) Values() []Value {
	if l == nil {
		return nil
	}

	return slices.Clone(l.items)
}

// All iterates over index and element pairs.
func (l *List) All() iter.Seq2[int, Value] {
	return func(yield func(int, Value) bool) {
		if l == nil {
			return
		}

		for i, v := range l.items {
			if !yield(i, v) {
				return
			}
		}
	}
}
