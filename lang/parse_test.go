package lang

import (
	"errors"
	"strings"
	"testing"
)

func kinds(st *Statement) []PartKind {
	out := make([]PartKind, 0, len(st.Parts))
	for _, p := range st.Parts {
		out = append(out, p.Kind)
	}

	return out
}

func equalKinds(a, b []PartKind) bool {
	if len(a) != len(b) {
		return false
	}

	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}

	return true
}

func TestParse_TopLevel(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []PartKind
	}{
		{
			name:  "plain text",
			input: "hello world",
			want:  []PartKind{PartString},
		},
		{
			name:  "empty",
			input: "",
			want:  []PartKind{PartString},
		},
		{
			name:  "embedded template",
			input: "Hello, (name)!",
			want:  []PartKind{PartString, PartTemplate, PartString},
		},
		{
			name:  "adjacent templates",
			input: "(a)(b)",
			want:  []PartKind{PartTemplate, PartTemplate},
		},
		{
			name:  "as-is capture",
			input: "x(:y)z",
			want:  []PartKind{PartString, PartString, PartString},
		},
		{
			name:  "merge capture",
			input: "x(<a b)z",
			want:  []PartKind{PartString, PartString, PartString},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpl, err := parseSource(tt.input, DefaultDelims, DefaultMaxDepth)
			if err != nil {
				t.Fatalf("parse error: %v", err)
			}

			if len(tmpl.Statements) != 1 {
				t.Fatalf("expected 1 statement, got %d", len(tmpl.Statements))
			}

			if got := kinds(tmpl.Statements[0]); !equalKinds(got, tt.want) {
				t.Errorf("kinds = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParse_PathList(t *testing.T) {
	tmpl, err := parseSource(`(f a.b "c(d)" (e) x(y))`, DefaultDelims, DefaultMaxDepth)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}

	sub := tmpl.Statements[0].Parts[0].Sub

	want := [][]PartKind{
		{PartIdentifier},
		{PartIdentifier, PartAccess, PartIdentifier},
		{PartBaseString},
		{PartTemplate},
		{PartIdentifier, PartTemplate},
	}

	if len(sub.Statements) != len(want) {
		t.Fatalf("expected %d statements, got %d", len(want), len(sub.Statements))
	}

	for i, st := range sub.Statements {
		if got := kinds(st); !equalKinds(got, want[i]) {
			t.Errorf("statement %d kinds = %v, want %v", i, got, want[i])
		}
	}

	quoted := sub.Statements[2].Parts[0].Sub.Statements[0]
	if got := kinds(quoted); !equalKinds(got, []PartKind{PartString, PartTemplate}) {
		t.Errorf("quoted kinds = %v", got)
	}
}

func TestParse_WhitespaceRuns(t *testing.T) {
	tmpl, err := parseSource("(  a \t\n b  )", DefaultDelims, DefaultMaxDepth)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}

	if n := len(tmpl.Statements[0].Parts[0].Sub.Statements); n != 2 {
		t.Errorf("expected 2 statements, got %d", n)
	}
}

func TestParse_AsIs(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"(:foo)", "(foo)"},
		{"(:<b>bold</b>)", "<b>bold</b>"},
		{"(:[x])", "[x]"},
		{"(: raw)", "raw"},
		{"(:a (b) c)", "(a (b) c)"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			tmpl, err := parseSource(tt.input, DefaultDelims, DefaultMaxDepth)
			if err != nil {
				t.Fatalf("parse error: %v", err)
			}

			if got := tmpl.Statements[0].Parts[0].Text; got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParse_Escapes(t *testing.T) {
	tmpl, err := parseSource(`a\tb\nc\(d\)\se`, DefaultDelims, DefaultMaxDepth)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}

	if got, want := tmpl.Statements[0].Parts[0].Text, "a\tb\nc(d) e"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestParse_TrimMerge(t *testing.T) {
	tmpl, err := parseSource("(@\n   one\n   two\n)", DefaultDelims, DefaultMaxDepth)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}

	if got := tmpl.Statements[0].Parts[0].Text; got != "one\ntwo" {
		t.Errorf("got %q", got)
	}
}

func TestParse_AltDelims(t *testing.T) {
	tmpl, err := parseSource("(f `x{y}z`)", DefaultDelims, DefaultMaxDepth)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}

	arg := tmpl.Statements[0].Parts[0].Sub.Statements[1]
	if got := kinds(arg); !equalKinds(got, []PartKind{PartString, PartTemplate, PartString}) {
		t.Errorf("kinds = %v", got)
	}

	sub := tmpl.Statements[0].Parts[0].Sub

	if got := sub.Statements[1].Parts[1].Sub.Statements[0].Parts[0].Text; got != "y" {
		t.Errorf("nested = %q", got)
	}
}

func TestParse_CustomDelims(t *testing.T) {
	tmpl, err := parseSource("a {b} (c)", Delims{'{', '}'}, DefaultMaxDepth)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}

	if got := kinds(tmpl.Statements[0]); !equalKinds(got, []PartKind{PartString, PartTemplate, PartString}) {
		t.Errorf("kinds = %v", got)
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		kind   *Error
		line   int
		column int
	}{
		{"stray close", "ab)c", ErrUnmatchedDelimiter, 1, 3},
		{"unclosed", "ab(c", ErrUnexpectedEnd, 1, 3},
		{"unclosed nested", "(a (b)", ErrUnexpectedEnd, 1, 1},
		{"unclosed quote", `(a "b)`, ErrUnexpectedEnd, 1, 4},
		{"second line", "ok\n  (x", ErrUnexpectedEnd, 2, 3},
		{"close inside template", "(a b))", ErrUnmatchedDelimiter, 1, 6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseSource(tt.input, DefaultDelims, DefaultMaxDepth)
			if err == nil {
				t.Fatal("expected error")
			}

			if !errors.Is(err, tt.kind) {
				t.Fatalf("error %v is not %v", err, tt.kind)
			}

			var pe *ParseError
			if !errors.As(err, &pe) {
				t.Fatalf("error %T is not a *ParseError", err)
			}

			if pe.Line != tt.line || pe.Column != tt.column {
				t.Errorf("position = %d:%d, want %d:%d", pe.Line, pe.Column, tt.line, tt.column)
			}

			if !strings.Contains(pe.Snippet(), "^") {
				t.Errorf("snippet missing caret: %q", pe.Snippet())
			}
		})
	}
}

func TestParse_MaxDepth(t *testing.T) {
	src := strings.Repeat("(", 10) + "x" + strings.Repeat(")", 10)

	if _, err := parseSource(src, DefaultDelims, 5); !errors.Is(err, ErrMaxDepthExceeded) {
		t.Errorf("expected ErrMaxDepthExceeded, got %v", err)
	}

	if _, err := parseSource(src, DefaultDelims, 10); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestTemplate_Source(t *testing.T) {
	tests := []string{
		"plain",
		"Hello, (name)!",
		"(if (x) a b)",
		"(a.b.c)",
		`(f "q(x)")`,
	}

	for _, src := range tests {
		t.Run(src, func(t *testing.T) {
			tmpl, err := parseSource(src, DefaultDelims, DefaultMaxDepth)
			if err != nil {
				t.Fatalf("parse error: %v", err)
			}

			if got := tmpl.String(); got != src {
				t.Errorf("got %q, want %q", got, src)
			}
		})
	}
}

func TestTemplate_Print(t *testing.T) {
	tmpl, err := parseSource("a(b.c)", DefaultDelims, DefaultMaxDepth)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}

	var b strings.Builder
	if err := tmpl.Print(&b); err != nil {
		t.Fatalf("print error: %v", err)
	}

	for _, want := range []string{"statement 0", `string "a"`, "template", `identifier "b"`, "access"} {
		if !strings.Contains(b.String(), want) {
			t.Errorf("output missing %q:\n%s", want, b.String())
		}
	}
}

func FuzzParse(f *testing.F) {
	for _, s := range []string{"", "a(b)c", "(if (x) a b)", `(f "x(y)")`, "(:raw)", "(<x)", "(@ y )", "\\(", "(a.b.c)"} {
		f.Add(s)
	}

	f.Fuzz(func(t *testing.T, src string) {
		tmpl, err := parseSource(src, DefaultDelims, DefaultMaxDepth)
		if err != nil {
			var pe *ParseError
			if !errors.As(err, &pe) && !errors.Is(err, ErrMaxDepthExceeded) {
				t.Fatalf("unexpected error type %T: %v", err, err)
			}

			return
		}

		if len(tmpl.Statements) == 0 {
			t.Fatal("template has no statements")
		}
	})
}
