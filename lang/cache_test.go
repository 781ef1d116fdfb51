package lang

import (
	"strconv"
	"testing"
)

func TestBoundedCache(t *testing.T) {
	c := boundedCache{limit: 3}

	for i := range 3 {
		if _, loaded := c.loadOrStore(i, i); loaded {
			t.Fatalf("key %d reported as loaded", i)
		}
	}

	if v, loaded := c.loadOrStore(1, -1); !loaded || v != 1 {
		t.Errorf("loadOrStore(1) = %v, %v; want cached 1", v, loaded)
	}

	if c.len() != 3 {
		t.Fatalf("len() = %d, want 3", c.len())
	}

	c.loadOrStore(3, 3)

	if c.len() != 1 {
		t.Errorf("len() = %d after overflow, want 1", c.len())
	}

	if _, ok := c.load(0); ok {
		t.Error("overflow should drop older entries")
	}

	if _, ok := c.load(3); !ok {
		t.Error("newest entry missing after overflow")
	}
}

func TestBoundedCache_Disabled(t *testing.T) {
	var c boundedCache

	if v, loaded := c.loadOrStore("k", 1); loaded || v != 1 {
		t.Errorf("loadOrStore = %v, %v", v, loaded)
	}

	if _, ok := c.load("k"); ok {
		t.Error("zero limit should not store")
	}
}

func TestEngine_CacheBounded(t *testing.T) {
	e := New(WithCacheSize(8))

	for i := range 100 {
		src := "line " + strconv.Itoa(i) + " (x)"
		if _, err := e.Eval(t.Context(), src, NewContext("x", i), RepText); err != nil {
			t.Fatal(err)
		}

		if _, err := e.Eval(t.Context(), "(expr \"x + "+strconv.Itoa(i)+"\")", NewContext("x", 1), RepText); err != nil {
			t.Fatal(err)
		}
	}

	if n := e.cache.len(); n > 8 {
		t.Errorf("parse cache holds %d entries, limit 8", n)
	}

	if n := e.programs.len(); n > 8 {
		t.Errorf("program cache holds %d entries, limit 8", n)
	}
}

func TestEngine_CacheDisabled(t *testing.T) {
	e := New(WithCacheSize(0))

	a, err := e.Parse("x(y)z")
	if err != nil {
		t.Fatal(err)
	}

	b, err := e.Parse("x(y)z")
	if err != nil {
		t.Fatal(err)
	}

	if a == b {
		t.Error("disabled cache returned a shared template")
	}

	if e.cache.len() != 0 {
		t.Errorf("len() = %d, want 0", e.cache.len())
	}
}
