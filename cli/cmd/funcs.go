package cmd

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/sahilm/fuzzy"
)

// Funcs lists the functions registered with the engine.
type Funcs struct {
	Kind string `default:"all" enum:"all,form,value" help:"Only list functions of this kind." short:"k"`

	Pattern string `arg:"" help:"Fuzzy filter; best matches are listed first." optional:""`
}

// Run executes the funcs command.
func (f *Funcs) Run(ctx context.Context) error {
	eng := engineFrom(ctx)
	tw := tabwriter.NewWriter(stdout(ctx), 0, 4, 2, ' ', 0)

	for _, name := range f.names(eng.Names()) {
		fn, ok := eng.Lookup(name)
		if !ok || (f.Kind != "all" && fn.Kind() != f.Kind) {
			continue
		}

		if _, err := fmt.Fprintf(tw, "%s\t%s\n", name, fn.Kind()); err != nil {
			return ErrWriteOutput.Wrap(err)
		}
	}

	if err := tw.Flush(); err != nil {
		return ErrWriteOutput.Wrap(err)
	}

	return nil
}

func (f *Funcs) names(all []string) []string {
	if f.Pattern == "" {
		return all
	}

	matches := fuzzy.Find(f.Pattern, all)
	names := make([]string, len(matches))

	for i, m := range matches {
		names[i] = m.Str
	}

	return names
}
