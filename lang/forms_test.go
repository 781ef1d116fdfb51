package lang

import (
	"errors"
	"testing"
)

func loopVars() *Map {
	return NewContext(
		"nums", []any{1, 2, 3},
		"items", []any{"a", "b", "c"},
		"m", map[string]any{"x": 1, "y": 2},
		"t", true,
		"f", false,
		"c", "b",
	)
}

func TestForms_Conditionals(t *testing.T) {
	runTextCases(t, New(), []textCase{
		{name: "ternary true", src: `(? (t) "y" "n")`, vars: loopVars, want: "y"},
		{name: "ternary false", src: `(? (f) "y" "n")`, vars: loopVars, want: "n"},
		{name: "ternary no else", src: `[(? (f) "y")]`, vars: loopVars, want: "[]"},
		{name: "if then", src: `(if (t) "A" "B")`, vars: loopVars, want: "A"},
		{name: "if else", src: `(if (f) "A" else "B")`, vars: loopVars, want: "B"},
		{name: "if elif", src: `(if (f) "A" elif (t) "B" else "C")`, vars: loopVars, want: "B"},
		{name: "if fallthrough", src: `(if (f) "A" elif (f) "B" else "C")`, vars: loopVars, want: "C"},
		{name: "if nothing", src: `[(if (f) "A")]`, vars: loopVars, want: "[]"},
		{name: "switch match", src: `(switch (c) "a" "A" "b" "B" default "Z")`, vars: loopVars, want: "B"},
		{name: "switch default", src: `(switch "q" "a" "A" default "Z")`, want: "Z"},
		{name: "switch trailing", src: `(switch 3 1 "one" "other")`, want: "other"},
		{name: "switch number", src: `(switch (+ 1 1) 2 "two" 3 "three")`, want: "two"},
		{name: "and", src: `(and 1 "x")`, want: "x"},
		{name: "and short", src: `(and 1 0 (raise "unreached"))`, want: "0"},
		{name: "or", src: `(or 0 "" "x" (raise "unreached"))`, want: "x"},
	})
}

func TestForms_Loops(t *testing.T) {
	runTextCases(t, New(), []textCase{
		{name: "for", src: "(for i 1 3 (i))", want: "123"},
		{name: "for down", src: "(for i 3 1 (i))", want: "321"},
		{name: "for step", src: "(for i 0 10 by 5 (i))", want: "0510"},
		{name: "for empty", src: "[(for i 1 3 by -1 (i))]", want: "[]"},
		{name: "for key", src: "(for i 5 7 (i#))", want: "012"},
		{name: "for counter", src: "(for i 5 7 (i##))", want: "012"},
		{name: "repeat", src: `(repeat 3 "x")`, want: "xxx"},
		{name: "repeat counter", src: `(repeat 3 (_##))`, want: "012"},
		{name: "each list", src: `(each v (items) "(v#)=(v) ")`, vars: loopVars, want: "0=a 1=b 2=c "},
		{name: "each map", src: `(each kv (m) "(kv#)=(kv);")`, vars: loopVars, want: "x=1;y=2;"},
		{name: "foreach", src: `(foreach v (items) (upper (v)))`, vars: loopVars, want: "ABC"},
		{name: "each counter", src: `(each v (items) (v##))`, vars: loopVars, want: "012"},
		{name: "each map counter", src: `(each kv (m) (kv##))`, vars: loopVars, want: "01"},
		{name: "map", src: "(map x (nums) (* (x) 2))", vars: loopVars, want: "246"},
		{name: "map counter", src: "(map x (nums) (x##))", vars: loopVars, want: "012"},
		{name: "filter", src: "(filter x (nums) (> (x) 1))", vars: loopVars, want: "23"},
		{name: "filter counter", src: "(filter x (items) (= (x##) 1))", vars: loopVars, want: "b"},
		{name: "while", src: "(set n 0)(while (< (n) 3) (set n (+ (n) 1)) (n))", want: "123"},
		{name: "while counter", src: "(set n 0)(while (< (n) 3) (set n (+ (n) 1)) (_##))", want: "012"},
		{name: "nested", src: `(for i 1 2 (for j 1 2 "(i)(j) "))`, want: "11 12 21 22 "},
	})
}

func TestForms_MapKeepsShape(t *testing.T) {
	e := New()

	v, err := e.Eval(t.Context(), "(map x (m) (+ (x) 1))", loopVars(), RepArgument)
	if err != nil {
		t.Fatal(err)
	}

	m := v.Map()
	if m == nil {
		t.Fatalf("map over map = %#v", v)
	}

	if y, _ := m.Get("y"); !y.Equal(Int(3)) {
		t.Errorf("y = %#v, want 3", y)
	}

	v, err = e.Eval(t.Context(), "(filter x (m) (> (x) 1))", loopVars(), RepArgument)
	if err != nil {
		t.Fatal(err)
	}

	if v.Map() == nil || v.Map().Has("x") || !v.Map().Has("y") {
		t.Errorf("filter over map = %#v", v)
	}
}

func TestForms_BreakContinue(t *testing.T) {
	runTextCases(t, New(), []textCase{
		{
			name: "break innermost only",
			src:  `(for i 1 2 (for j 1 3 (if (= (j) 2) (break)) (j)) "|")`,
			want: "1|1|",
		},
		{
			name: "continue",
			src:  "(for i 1 4 (if (= (i) 2) (continue)) (i))",
			want: "134",
		},
		{
			name: "break in each",
			src:  `(each v (items) (if (= (v) "b") (break)) (v))`,
			vars: loopVars,
			want: "a",
		},
		{
			name: "continue in map",
			src:  "(map x (nums) (if (= (x) 2) (continue)) (x))",
			vars: loopVars,
			want: "13",
		},
		{
			name: "break in while",
			src:  `(set n 0)(while (t) (set n (+ (n) 1)) (if (> (n) 2) (break)) (n))`,
			vars: loopVars,
			want: "12",
		},
	})
}

func TestForms_LoopControlOutsideLoop(t *testing.T) {
	e := New()

	for _, src := range []string{"(break)", "a(continue)b", `(if 1 (break))`} {
		if _, err := e.Eval(t.Context(), src, nil, RepText); !errors.Is(err, ErrLoopControl) {
			t.Errorf("%s: error = %v, want ErrLoopControl", src, err)
		}
	}
}

func TestForms_LoopVariableRestored(t *testing.T) {
	e := New()

	tests := []struct {
		name string
		src  string
	}{
		{"for", "(for i 1 3 (i))"},
		{"each", "(each i (list 1 2) (i))"},
		{"map", "(map i (list 1 2) (i))"},
		{"filter", "(filter i (list 1 2) (i))"},
		{"break", "(for i 1 3 (break))"},
		{"caught error", `(try (for i 1 3 (raise "boom")) catch e (e))`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vars := NewContext("i", "outer")

			if _, err := e.Eval(t.Context(), tt.src, vars, RepText); err != nil {
				t.Fatal(err)
			}

			if v, _ := vars.Get("i"); v.Str() != "outer" {
				t.Errorf("i = %#v, want outer", v)
			}

			for _, k := range []string{"i#", "i##", "e"} {
				if vars.Has(k) {
					t.Errorf("%s left bound", k)
				}
			}
		})
	}

	vars := NewMap()
	if _, err := e.Eval(t.Context(), `(for i 1 3 (raise "boom"))`, vars, RepText); !errors.Is(err, ErrRaised) {
		t.Fatalf("error = %v, want ErrRaised", err)
	}

	if vars.Has("i") {
		t.Error("i left bound after error")
	}
}

func TestForms_LoopLimit(t *testing.T) {
	e := New(WithMaxIterations(10))

	_, err := e.Eval(t.Context(), `(while 1 "x")`, nil, RepText)
	if !errors.Is(err, ErrLoopLimit) {
		t.Errorf("error = %v, want ErrLoopLimit", err)
	}

	if got := expand(t, e, "(for i 1 10 (i##))", nil); got != "0123456789" {
		t.Errorf("limit reached early: %q", got)
	}
}

func TestForms_Try(t *testing.T) {
	e := New()

	runTextCases(t, e, []textCase{
		{name: "catch", src: `(try (raise "bad") catch e "got (e)")`, want: "got bad"},
		{name: "no error", src: `(try "fine" catch e "got (e)")`, want: "fine"},
		{name: "suppress", src: `[(try (raise "x"))]`, want: "[]"},
		{name: "host error", src: `(try (/ 1 0) catch e "caught")`, want: "caught"},
		{name: "raise joins", src: `(try (raise "a" "b") catch e (e))`, want: "a b"},
	})

	vars := NewMap()
	if got := expand(t, e, `(try (raise "x") catch e "c" finally (set done 1))`, vars); got != "c" {
		t.Errorf("got %q", got)
	}

	if !vars.Has("done") {
		t.Error("finally did not run")
	}

	if got := expand(t, e, `(for i 1 3 (try (if (= (i) 2) (break)) catch e "no") (i))`, nil); got != "1" {
		t.Errorf("break through try = %q, want 1", got)
	}
}

func TestForms_Set(t *testing.T) {
	e := New()
	vars := loopVars()

	if got := expand(t, e, `(set a 1 b "two")(a)(b)`, vars); got != "1two" {
		t.Errorf("got %q", got)
	}

	if got := expand(t, e, `(set items.0 "z")(items.0)`, vars); got != "z" {
		t.Errorf("list element = %q", got)
	}

	if got := expand(t, e, `(set cfg.port 80)(cfg.port)`, vars); got != "80" {
		t.Errorf("created path = %q", got)
	}

	for _, src := range []string{"(set this 1)", "(set a)", "(set c.x 1)"} {
		if _, err := e.Eval(t.Context(), src, vars, RepText); err == nil {
			t.Errorf("%s: expected error", src)
		}
	}
}

func TestForms_Functions(t *testing.T) {
	runTextCases(t, New(), []textCase{
		{name: "def", src: `(def greet who "hi (who)")(greet "bob")`, want: "hi bob"},
		{name: "def params restored", src: `(set x "keep")(def id x (x))(id 1)(x)`, want: "1keep"},
		{name: "def recursion", src: `(def fact n (if (<= (n) 1) 1 (* (n) (fact (- (n) 1)))))(fact 5)`, want: "120"},
		{name: "fn apply", src: `(def sq x (* (x) (x)))(apply (fn sq) 4)`, want: "16"},
		{name: "apply spread", src: `(apply "+" (list 1 2 3))`, want: "6"},
		{name: "fn text", src: `(fn upper)`, want: "<func upper>"},
		{name: "echo", src: `(echo a (b) "c")`, want: `a (b) "c"`},
		{name: "do", src: `(do (set a 1) (+ (a) 1))`, want: "2"},
		{name: "expr", src: `(set x 2)(expr "x * 10 + 1")`, want: "21"},
		{name: "expr strings", src: `(set s "ab")(expr "upper(s) + 'c'")`, want: "ABc"},
	})
}

func TestForms_Errors(t *testing.T) {
	e := New()

	tests := []struct {
		src  string
		want *Error
	}{
		{`(raise "x")`, ErrRaised},
		{`(error "x")`, ErrRaised},
		{`(expr "1 +")`, ErrExprCompile},
		{`(apply (fn if) 1)`, ErrArgument},
		{`(fn nothing)`, ErrUnknownFunction},
		{`(for i "a" 3 (i))`, ErrArgument},
		{`(if)`, ErrArgument},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			if _, err := e.Eval(t.Context(), tt.src, nil, RepText); !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}
