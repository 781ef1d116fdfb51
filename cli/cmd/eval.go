package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/ardnew/sigil/lang"
	"github.com/ardnew/sigil/log"
)

// Eval expands templates against a context built from data files and
// assignments. All templates share the context, so variables set by one are
// visible to the next.
type Eval struct {
	Expr   []string `help:"Expand template text instead of files (repeatable)." placeholder:"TEMPLATE"   short:"e"`
	Data   []string `help:"JSON or YAML mapping merged into the context."       placeholder:"FILE"       short:"d" type:"existingfile"`
	Set    []string `help:"Set a context variable; the value is parsed as YAML." placeholder:"NAME=VALUE" short:"D"`
	As     string   `default:"text"   enum:"text,object,argument,void,last" help:"Result representation."`
	Output string   `default:"native" enum:"native,json,yaml"               help:"Output encoding."               short:"o"`
	Indent int      `default:"2"                                            help:"Indent width for JSON and YAML."`

	Source []string `arg:"" help:"Template files or '-' for stdin." name:"source" optional:"" type:"existingfile"`
}

// Run executes the eval command.
func (e *Eval) Run(ctx context.Context) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	rep, err := lang.ParseRep(e.As)
	if err != nil {
		return err
	}

	vars, err := loadContext(e.Data, e.Set)
	if err != nil {
		return err
	}

	eng := engineFrom(ctx)
	out := stdout(ctx)

	if len(e.Expr) > 0 {
		for i, src := range e.Expr {
			name := fmt.Sprintf("expr[%d]", i)

			t, err := eng.Parse(src)
			if err != nil {
				return ErrParse.Wrap(err).With(slog.String("source", name))
			}

			if err := e.expand(ctx, eng, out, name, t, vars, rep); err != nil {
				return err
			}
		}

		return nil
	}

	srcs, done, err := openSources(ctx, e.Source)
	if err != nil {
		return err
	}
	defer done()

	for _, src := range srcs {
		t, err := eng.ParseReader(src.r)
		if err != nil {
			return ErrParse.Wrap(err).With(slog.String("source", src.name))
		}

		if err := e.expand(ctx, eng, out, src.name, t, vars, rep); err != nil {
			return err
		}
	}

	return nil
}

func (e *Eval) expand(
	ctx context.Context,
	eng *lang.Engine,
	w io.Writer,
	name string,
	t *lang.Template,
	vars *lang.Map,
	rep lang.Rep,
) error {
	v, err := eng.Expand(ctx, t, vars, rep)
	if err != nil {
		return ErrExpand.Wrap(err).With(slog.String("source", name))
	}

	log.TraceContext(ctx, "expanded",
		slog.String("source", name),
		slog.String("kind", v.Kind().String()),
	)

	if rep == lang.RepVoid {
		return nil
	}

	return writeValue(ctx, w, v, e.Output, e.Indent)
}

// writeValue writes v in the named encoding. Native text gets a trailing
// newline unless it already ends with one.
func writeValue(ctx context.Context, w io.Writer, v lang.Value, format string, indent int) error {
	var (
		text string
		err  error
	)

	switch format {
	case "json":
		text, err = lang.EncodeJSON(v, indent)
	case "yaml":
		var opts []yaml.EncodeOption
		if indent > 0 {
			opts = append(opts, yaml.Indent(indent))
		}

		text, err = lang.EncodeYAML(ctx, v, opts...)
	default:
		text = v.Text()
	}

	if err != nil {
		return err
	}

	if text != "" && !strings.HasSuffix(text, "\n") {
		text += "\n"
	}

	if _, err := io.WriteString(w, text); err != nil {
		return ErrWriteOutput.Wrap(err)
	}

	return nil
}
