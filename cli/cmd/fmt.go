package cmd

import (
	"context"
	"io"
	"log/slog"

	"github.com/ardnew/sigil/lang"
)

// Fmt parses templates and prints their structure without expanding them.
type Fmt struct {
	Native Native `cmd:"" default:"withargs" help:"Print normalized template source (default)."`
	JSON   JSON   `cmd:""                    help:"Print the parse tree as JSON."`
	YAML   YAML   `cmd:""                    help:"Print the parse tree as YAML."`
	AST    AST    `cmd:""                    help:"Print the parse tree as an indented outline."`
}

// eachTemplate parses every source and calls fn with the result.
func eachTemplate(
	ctx context.Context,
	sources []string,
	format string,
	fn func(w io.Writer, t *lang.Template) error,
) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	srcs, done, err := openSources(ctx, sources)
	if err != nil {
		return err
	}
	defer done()

	eng := engineFrom(ctx)
	out := stdout(ctx)

	for _, src := range srcs {
		t, err := eng.ParseReader(src.r)
		if err != nil {
			return ErrParse.Wrap(err).With(
				slog.String("source", src.name),
				slog.String("format", format),
			)
		}

		if err := fn(out, t); err != nil {
			return ErrWriteOutput.Wrap(err).With(slog.String("format", format))
		}
	}

	return nil
}

// Native prints each template re-rendered from its parse tree.
type Native struct {
	Source []string `arg:"" help:"Template files or '-' for stdin." name:"source" optional:"" type:"existingfile"`
}

func (n *Native) Run(ctx context.Context) error {
	delims := engineFrom(ctx).Delims()

	return eachTemplate(ctx, n.Source, "native", func(w io.Writer, t *lang.Template) error {
		_, err := io.WriteString(w, t.Source(delims)+"\n")

		return err
	})
}

// JSON prints each parse tree as JSON.
type JSON struct {
	Indent int `default:"2" help:"Indent width for JSON output" short:"i"`

	Source []string `arg:"" help:"Template files or '-' for stdin." name:"source" optional:"" type:"existingfile"`
}

func (j *JSON) Run(ctx context.Context) error {
	return eachTemplate(ctx, j.Source, "json", func(w io.Writer, t *lang.Template) error {
		return writeValue(ctx, w, t.Value(), "json", j.Indent)
	})
}

// YAML prints each parse tree as YAML.
type YAML struct {
	Indent int `default:"2" help:"Indent width for YAML output" short:"i"`

	Source []string `arg:"" help:"Template files or '-' for stdin." name:"source" optional:"" type:"existingfile"`
}

func (y *YAML) Run(ctx context.Context) error {
	return eachTemplate(ctx, y.Source, "yaml", func(w io.Writer, t *lang.Template) error {
		return writeValue(ctx, w, t.Value(), "yaml", y.Indent)
	})
}

// AST prints each parse tree as an indented outline.
type AST struct {
	Source []string `arg:"" help:"Template files or '-' for stdin." name:"source" optional:"" type:"existingfile"`
}

func (a *AST) Run(ctx context.Context) error {
	return eachTemplate(ctx, a.Source, "ast", func(w io.Writer, t *lang.Template) error {
		return t.Print(w)
	})
}
