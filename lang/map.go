package lang

import (
	"iter"
	"slices"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Map is a string-keyed map that remembers insertion order. It backs both
// map values and the expansion context. The zero value is an empty map.
type Map struct {
	pairs *orderedmap.OrderedMap[string, Value]
}

// NewMap returns an empty map.
func NewMap() *Map {
	return &Map{pairs: orderedmap.New[string, Value]()}
}

// NewContext builds a context from alternating keys and values. Keys are
// formatted with their text; values are converted with [FromNative].
// A trailing key without a value is bound to null.
func NewContext(kv ...any) *Map {
	m := NewMap()

	for i := 0; i < len(kv); i += 2 {
		var v any
		if i+1 < len(kv) {
			v = kv[i+1]
		}

		m.Set(FromNative(kv[i]).Text(), FromNative(v))
	}

	return m
}

func (m *Map) Len() int {
	if m == nil || m.pairs == nil {
		return 0
	}

	return m.pairs.Len()
}

func (m *Map) Get(key string) (Value, bool) {
	if m == nil || m.pairs == nil {
		return Null(), false
	}

	return m.pairs.Get(key)
}

func (m *Map) Has(key string) bool {
	_, ok := m.Get(key)

	return ok
}

// Set binds key to v. A new key is appended; an existing key keeps its
// position.
func (m *Map) Set(key string, v Value) {
	if m.pairs == nil {
		m.pairs = orderedmap.New[string, Value]()
	}

	m.pairs.Set(key, v)
}

// Remove deletes key and reports whether it was present.
func (m *Map) Remove(key string) bool {
	if m == nil || m.pairs == nil {
		return false
	}

	_, ok := m.pairs.Delete(key)

	return ok
}

// Keys returns the keys in insertion order.
func (m *Map) Keys() []string {
	if m.Len() == 0 {
		return nil
	}

	keys := make([]string, 0, m.Len())
	for k := range m.All() {
		keys = append(keys, k)
	}

	return keys
}

// All iterates over key and value pairs in insertion order.
func (m *Map) All() iter.Seq2[string, Value] {
	return func(yield func(string, Value) bool) {
		if m == nil || m.pairs == nil {
			return
		}

		for p := m.pairs.Oldest(); p != nil; p = p.Next() {
			if !yield(p.Key, p.Value) {
				return
			}
		}
	}
}

// Clone returns a shallow copy of m.
func (m *Map) Clone() *Map {
	c := NewMap()
	for k, v := range m.All() {
		c.Set(k, v)
	}

	return c
}

// Merge copies every pair of src into m, overwriting existing keys.
func (m *Map) Merge(src *Map) {
	for k, v := range src.All() {
		m.Set(k, v)
	}
}

// Sort orders the keys lexically.
func (m *Map) Sort() {
	keys := m.Keys()
	slices.Sort(keys)

	for _, k := range keys {
		_ = m.pairs.MoveToBack(k)
	}
}

// Equal reports whether m and o hold equal values under the same keys.
// Order is ignored.
func (m *Map) Equal(o *Map) bool {
	if m.Len() != o.Len() {
		return false
	}

	for k, v := range m.All() {
		w, ok := o.Get(k)
		if !ok || !v.Equal(w) {
			return false
		}
	}

	return true
}
