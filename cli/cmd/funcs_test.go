package cmd

import (
	"strings"
	"testing"

	"github.com/ardnew/sigil/lang"
)

func TestFuncsRun(t *testing.T) {
	tests := []struct {
		name    string
		funcs   Funcs
		has     []string
		hasNot  []string
		firstIs string
	}{
		{
			name:  "all",
			funcs: Funcs{Kind: "all"},
			has:   []string{"upper", "each", "if"},
		},
		{
			name:   "forms",
			funcs:  Funcs{Kind: "form"},
			has:    []string{"each", "if"},
			hasNot: []string{"upper"},
		},
		{
			name:   "values",
			funcs:  Funcs{Kind: "value"},
			has:    []string{"upper"},
			hasNot: []string{"each"},
		},
		{
			name:    "fuzzy",
			funcs:   Funcs{Kind: "all", Pattern: "upper"},
			firstIs: "upper",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, out := testContext(t, "")

			if err := tt.funcs.Run(ctx); err != nil {
				t.Fatalf("Run() error = %v", err)
			}

			names := map[string]string{}
			lines := strings.Split(strings.TrimSpace(out.String()), "\n")

			for _, line := range lines {
				f := strings.Fields(line)
				names[f[0]] = f[1]
			}

			for _, n := range tt.has {
				if _, ok := names[n]; !ok {
					t.Errorf("missing %q", n)
				}
			}

			for _, n := range tt.hasNot {
				if _, ok := names[n]; ok {
					t.Errorf("unexpected %q", n)
				}
			}

			if tt.firstIs != "" && strings.Fields(lines[0])[0] != tt.firstIs {
				t.Errorf("first = %q, want %q", lines[0], tt.firstIs)
			}
		})
	}
}

func TestFuncsUserRegistered(t *testing.T) {
	ctx, out := testContext(t, "", lang.WithoutBuiltins())

	if err := engineFrom(ctx).Register("greet", func(s string) string { return "hi " + s }); err != nil {
		t.Fatal(err)
	}

	if err := (&Funcs{Kind: "all"}).Run(ctx); err != nil {
		t.Fatal(err)
	}

	if got := strings.Fields(out.String()); len(got) != 2 || got[0] != "greet" || got[1] != "value" {
		t.Errorf("output = %q", out.String())
	}
}
