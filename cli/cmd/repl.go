package cmd

import (
	"context"

	"github.com/ardnew/sigil/cli/cmd/repl"
	"github.com/ardnew/sigil/log"
)

// Repl starts an interactive session whose context persists across lines.
type Repl struct {
	Data    []string `help:"JSON or YAML mapping merged into the context." placeholder:"FILE"       short:"d" type:"existingfile"`
	Set     []string `help:"Set a context variable; the value is parsed as YAML." placeholder:"NAME=VALUE" short:"D"`
	History int      `default:"1000" help:"Maximum history entries kept."`
}

// Run executes the repl command.
func (r *Repl) Run(ctx context.Context) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	vars, err := loadContext(r.Data, r.Set)
	if err != nil {
		return err
	}

	cacheDir, _ := varsFrom(ctx, CacheIdentifier)

	return repl.Run(ctx,
		repl.WithEngine(engineFrom(ctx)),
		repl.WithVars(vars),
		repl.WithHistory(cacheDir, r.History),
		repl.WithLogger(log.Default()),
	)
}
