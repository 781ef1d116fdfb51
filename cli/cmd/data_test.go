package cmd

import (
	"errors"
	"path/filepath"
	"testing"
)

func TestLoadContext(t *testing.T) {
	dir := t.TempDir()
	yml := writeFile(t, dir, "a.yaml", "name: Ada\nlangs: [go, c]\nnested:\n  x: 1\n")
	jsn := writeFile(t, dir, "b.json", `{"name": "Grace", "age": 85}`)

	vars, err := loadContext(
		[]string{yml, jsn},
		[]string{"n=42", "flag=true", "s=hello world", "nested.y=2", "deep.a.b=c", "empty="},
	)
	if err != nil {
		t.Fatalf("loadContext() error = %v", err)
	}

	want := map[string]string{
		"name":  "Grace",
		"age":   "85",
		"n":     "42",
		"flag":  "true",
		"s":     "hello world",
		"empty": "",
	}

	for k, w := range want {
		v, ok := vars.Get(k)
		if !ok || v.Text() != w {
			t.Errorf("%s = %#v, want %q", k, v, w)
		}
	}

	if got := vars.Keys(); got[0] != "name" || got[1] != "langs" {
		t.Errorf("keys = %v, want file order first", got)
	}

	nested, _ := vars.Get("nested")
	if nested.Map().Len() != 2 {
		t.Errorf("nested = %#v", nested)
	}

	deep, _ := vars.Get("deep")
	a, _ := deep.Map().Get("a")

	if b, _ := a.Map().Get("b"); b.Text() != "c" {
		t.Errorf("deep.a.b = %#v", b)
	}
}

func TestLoadContextErrors(t *testing.T) {
	dir := t.TempDir()
	list := writeFile(t, dir, "list.yaml", "- a\n- b\n")
	bad := writeFile(t, dir, "bad.yaml", "a: [")

	tests := []struct {
		name   string
		files  []string
		assign []string
		want   error
	}{
		{"missing", []string{filepath.Join(dir, "none")}, nil, ErrReadData},
		{"malformed", []string{bad}, nil, ErrReadData},
		{"not a mapping", []string{list}, nil, ErrDataShape},
		{"no equals", nil, []string{"name"}, ErrAssignment},
		{"empty name", nil, []string{"=1"}, ErrAssignment},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := loadContext(tt.files, tt.assign); !errors.Is(err, tt.want) {
				t.Errorf("loadContext() error = %v, want %v", err, tt.want)
			}
		})
	}
}
