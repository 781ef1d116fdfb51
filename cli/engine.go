package cli

import (
	"log/slog"
	"strconv"
	"unicode/utf8"

	"github.com/alecthomas/kong"

	"github.com/ardnew/sigil/cli/cmd"
	"github.com/ardnew/sigil/lang"
	"github.com/ardnew/sigil/log"
)

// engineConfig holds the flags that shape the template engine shared by all
// commands.
type engineConfig struct {
	Strict        bool   `default:"false"                  help:"Fail on unknown functions and unresolved variables." negatable:""`
	Escape        string `default:"none"  enum:"none,html" help:"Escape applied to resolved string variables."`
	Delims        string `default:"()"                     help:"Open and close delimiter characters."`
	MaxDepth      int    `default:"${maxDepth}"            help:"Maximum template nesting depth."`
	MaxIterations int    `default:"${maxIterations}"       help:"Maximum iterations of a single loop."`
}

func (*engineConfig) vars() kong.Vars {
	return kong.Vars{
		"maxDepth":      strconv.Itoa(lang.DefaultMaxDepth),
		"maxIterations": strconv.Itoa(lang.DefaultMaxIterations),
	}
}

func (*engineConfig) group() kong.Group {
	return kong.Group{Key: "engine", Title: "Template engine options"}
}

func (f *engineConfig) validate() error {
	if utf8.RuneCountInString(f.Delims) != 2 {
		return cmd.ErrDelims.With(slog.String("delims", f.Delims))
	}

	return nil
}

func (f *engineConfig) options() []lang.Option {
	opts := []lang.Option{
		lang.WithStrict(f.Strict),
		lang.WithMaxDepth(f.MaxDepth),
		lang.WithMaxIterations(f.MaxIterations),
		lang.WithLogger(log.Default()),
	}

	if f.Escape == "html" {
		opts = append(opts, lang.WithHTMLEscape())
	}

	if r := []rune(f.Delims); len(r) == 2 {
		opts = append(opts, lang.WithDelims(r[0], r[1]))
	}

	return opts
}

func (f *engineConfig) engine() *lang.Engine {
	return lang.New(f.options()...)
}
