package lang

import (
	"errors"
	"strings"
	"testing"
)

func userVars() *Map {
	return NewContext(
		"name", "Ann",
		"user", map[string]any{"name": "Bob", "age": 42},
		"items", []any{"a", "b", "c"},
		"field", "name",
		"markup", "<b>",
		"t", true,
		"f", false,
	)
}

func TestExpand_LiteralRoundTrip(t *testing.T) {
	e := New()

	for _, src := range []string{
		"",
		"hello world",
		"a.b c",
		"multi\nline text",
		`"quoted" 'single' back` + "`tick`",
		"unicode ✓ text",
	} {
		t.Run(src, func(t *testing.T) {
			if got := expand(t, e, src, nil); got != src {
				t.Errorf("got %q, want %q", got, src)
			}
		})
	}
}

func TestExpand_EscapesOnce(t *testing.T) {
	e := New()

	tests := []struct {
		src  string
		want string
	}{
		{`a\tb`, "a\tb"},
		{`a\nb`, "a\nb"},
		{`say \"hi\"`, `say "hi"`},
		{`\\n`, `\n`},
		{`\(x\)`, "(x)"},
		{`(concat "a\tb")`, "a\tb"},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			if got := expand(t, e, tt.src, nil); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExpand_Variables(t *testing.T) {
	runTextCases(t, New(), []textCase{
		{name: "simple", src: "Hello, (name)!", vars: userVars, want: "Hello, Ann!"},
		{name: "path", src: "(user.name) is (user.age)", vars: userVars, want: "Bob is 42"},
		{name: "list index", src: "(items.1)", vars: userVars, want: "b"},
		{name: "negative index", src: "(items.-1)", vars: userVars, want: "c"},
		{name: "dynamic key", src: "(user.(field))", vars: userVars, want: "Bob"},
		{name: "self", src: "(user.this)", vars: userVars, want: "{age: 42, name: Bob}"},
		{name: "missing", src: "[(nope)]", vars: userVars, want: "[]"},
		{name: "missing path", src: "[(user.nope.deeper)]", vars: userVars, want: "[]"},
		{name: "number literal", src: "(3.5)", want: "3.5"},
		{name: "keyword literal", src: "(true)", want: "true"},
		{name: "lone nested", src: "((name))", vars: userVars, want: "Ann"},
		{name: "quoted argument", src: `(concat "x(name)y")`, vars: userVars, want: "xAnny"},
		{name: "fallback function", src: "(user.name.upper)", vars: userVars, want: "BOB"},
		{name: "structured nested access", src: "((list 1 2 3).1)", want: "2"},
	})
}

func TestExpand_Sigils(t *testing.T) {
	e := New(WithHTMLEscape())

	runTextCases(t, e, []textCase{
		{name: "escaped", src: "(markup)", vars: userVars, want: "&lt;b&gt;"},
		{name: "raw", src: "(!markup)", vars: userVars, want: "<b>"},
		{name: "quoted", src: "($markup)", vars: userVars, want: `"&lt;b&gt;"`},
		{name: "raw quoted", src: "($!markup)", vars: userVars, want: `"<b>"`},
		{name: "literal text untouched", src: "<i>(name)</i>", vars: userVars, want: "<i>Ann</i>"},
	})

	if got := expand(t, New(), "(markup)", userVars()); got != "<b>" {
		t.Errorf("without escaper got %q", got)
	}
}

func TestExpand_Strict(t *testing.T) {
	lenient := New()
	strict := New(WithStrict(true))

	got := expand(t, lenient, "(foo 1 2)", nil)
	if !strings.Contains(got, "foo") {
		t.Errorf("lenient unknown function = %q, want it to name foo", got)
	}

	if _, err := strict.Eval(t.Context(), "(foo 1 2)", nil, RepText); !errors.Is(err, ErrUnknownFunction) {
		t.Errorf("strict unknown function error = %v", err)
	}

	if _, err := strict.Eval(t.Context(), "(nope)", nil, RepText); !errors.Is(err, ErrUnresolvedVariable) {
		t.Errorf("strict bare name error = %v", err)
	}

	if _, err := strict.Eval(t.Context(), "(user.nope)", userVars(), RepText); err != nil {
		t.Errorf("strict path lookup should be lenient: %v", err)
	}

	if got := expand(t, lenient, "[(nope)]", nil); got != "[]" {
		t.Errorf("lenient bare name = %q", got)
	}
}

func TestExpand_Representations(t *testing.T) {
	e := New()
	ctx := t.Context()

	tmpl, err := e.Parse("a(items)b")
	if err != nil {
		t.Fatal(err)
	}

	obj, err := e.Expand(ctx, tmpl, userVars(), RepObject)
	if err != nil {
		t.Fatal(err)
	}

	if obj.Kind() != KindList || obj.Len() != 3 {
		t.Fatalf("object = %#v", obj)
	}

	if el, _ := obj.List().At(1); el.Kind() != KindList {
		t.Errorf("object element 1 kind = %v, want list", el.Kind())
	}

	last, err := e.Expand(ctx, tmpl, userVars(), RepLast)
	if err != nil {
		t.Fatal(err)
	}

	if last.Str() != "b" {
		t.Errorf("last = %#v", last)
	}

	void, err := e.Expand(ctx, tmpl, userVars(), RepVoid)
	if err != nil {
		t.Fatal(err)
	}

	if !void.IsNull() {
		t.Errorf("void = %#v", void)
	}

	text, err := e.Expand(ctx, tmpl, userVars(), RepText)
	if err != nil {
		t.Fatal(err)
	}

	if text.Str() != "aabcb" {
		t.Errorf("text = %q", text.Str())
	}

	arg, err := e.Eval(ctx, "(items)", userVars(), RepArgument)
	if err != nil {
		t.Fatal(err)
	}

	if arg.Kind() != KindList || arg.Len() != 3 {
		t.Errorf("argument = %#v", arg)
	}

	joined, err := e.Eval(ctx, "x(items)", userVars(), RepArgument)
	if err != nil {
		t.Fatal(err)
	}

	if joined.Str() != "xabc" {
		t.Errorf("argument with several parts = %#v", joined)
	}
}

func TestExpand_ContextMutation(t *testing.T) {
	e := New()
	vars := NewMap()

	if got := expand(t, e, "(set x 5)(x)", vars); got != "5" {
		t.Errorf("got %q", got)
	}

	if v, ok := vars.Get("x"); !ok || !v.Equal(Int(5)) {
		t.Errorf("context x = %#v", v)
	}
}

func TestExpand_DepthLimit(t *testing.T) {
	e := New(WithMaxDepth(20))

	_, err := e.Eval(t.Context(), "(def loop (loop))(loop)", nil, RepText)
	if !errors.Is(err, ErrMaxDepthExceeded) {
		t.Errorf("expected ErrMaxDepthExceeded, got %v", err)
	}
}

func TestInterp_Ref(t *testing.T) {
	e := New()
	vars := userVars()
	in := e.interp(t.Context(), vars)

	parse := func(src string) *Statement {
		tmpl, err := e.Parse("(" + src + ")")
		if err != nil {
			t.Fatal(err)
		}

		return tmpl.Statements[0].Parts[0].Sub.Statements[0]
	}

	ref, err := in.Ref(parse("new.deep.key"))
	if err != nil {
		t.Fatal(err)
	}

	if err := ref.Set(String("v")); err != nil {
		t.Fatal(err)
	}

	if got := expand(t, e, "(new.deep.key)", vars); got != "v" {
		t.Errorf("auto-created path = %q", got)
	}

	ref, err = in.Ref(parse("items.0"))
	if err != nil {
		t.Fatal(err)
	}

	if v, ok := ref.Get(); !ok || v.Str() != "a" {
		t.Errorf("list ref get = %#v", v)
	}

	if _, err := in.Ref(parse("this")); !errors.Is(err, ErrNotAssignable) {
		t.Errorf("self ref error = %v", err)
	}

	if _, err := in.Ref(parse("name.x")); !errors.Is(err, ErrNotAssignable) {
		t.Errorf("scalar container error = %v", err)
	}
}

func TestInterp_Bind(t *testing.T) {
	vars := NewContext("a", 1)
	in := New().interp(t.Context(), vars)

	restore := in.Bind("a", "b")
	vars.Set("a", Int(2))
	vars.Set("b", Int(3))
	restore()

	if v, _ := vars.Get("a"); !v.Equal(Int(1)) {
		t.Errorf("a = %#v, want 1", v)
	}

	if vars.Has("b") {
		t.Error("b should be removed")
	}
}

type point struct{ x, y int }

func (p point) Lookup(name string) (Value, bool) {
	switch name {
	case "x":
		return Int(p.x), true
	case "y":
		return Int(p.y), true
	}

	return Null(), false
}

func TestExpand_ObjectLookup(t *testing.T) {
	vars := NewMap()
	vars.Set("p", Object(point{3, 4}))

	if got := expand(t, New(), "(p.x),(p.y)", vars); got != "3,4" {
		t.Errorf("got %q", got)
	}
}
