package lang

import (
	"testing"
)

// expand evaluates src with e and returns the text output.
func expand(t *testing.T, e *Engine, src string, vars *Map) string {
	t.Helper()

	v, err := e.Eval(t.Context(), src, vars, RepText)
	if err != nil {
		t.Fatalf("eval %q: %v", src, err)
	}

	return v.Text()
}

type textCase struct {
	name string
	src  string
	vars func() *Map
	want string
}

func runTextCases(t *testing.T, e *Engine, tests []textCase) {
	t.Helper()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var vars *Map
			if tt.vars != nil {
				vars = tt.vars()
			}

			if got := expand(t, e, tt.src, vars); got != tt.want {
				t.Errorf("expand(%q) = %q, want %q", tt.src, got, tt.want)
			}
		})
	}
}
