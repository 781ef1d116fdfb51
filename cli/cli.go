package cli

import (
	"context"

	"github.com/alecthomas/kong"

	"github.com/ardnew/sigil/cli/cmd"
	"github.com/ardnew/sigil/pkg"
)

// CLI is the top-level command-line interface for sigil.
type CLI struct {
	Log    logConfig    `embed:"" group:"log"    prefix:"log-"`
	Pprof  pprofConfig  `embed:"" group:"pprof"  prefix:"pprof-"`
	Engine engineConfig `embed:"" group:"engine"`

	Version kong.VersionFlag `help:"Print version and exit." short:"V"`

	Eval  cmd.Eval  `cmd:"" default:"withargs" help:"Expand templates"`
	Fmt   cmd.Fmt   `cmd:""                    help:"Print parsed templates"`
	Funcs cmd.Funcs `cmd:""                    help:"List registered functions"`
	Init  cmd.Init  `cmd:""                    help:"Initialize configuration file"`
	Repl  cmd.Repl  `cmd:""                    help:"Start an interactive session"`
}

// Run parses args and executes the selected command. exit is called by kong
// for --help, --version and usage errors.
func Run(ctx context.Context, exit func(code int), args ...string) error {
	var cli CLI

	if err := mkdirAllRequired(); err != nil {
		return err
	}

	configFile := configPath(baseConfig)

	vars := kong.Vars{
		"version":            pkg.Version,
		cmd.ConfigIdentifier: configFile,
		cmd.CacheIdentifier:  cacheDir(),
	}.
		CloneWith(cli.Log.vars()).
		CloneWith(cli.Pprof.vars()).
		CloneWith(cli.Engine.vars())

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	cli.Log.scan(args)

	parser, err := kong.New(&cli,
		kong.Name(pkg.Name),
		kong.Description(pkg.Description),
		kong.UsageOnError(),
		kong.Exit(exit),
		kong.ExplicitGroups([]kong.Group{
			cli.Log.group(), cli.Pprof.group(), cli.Engine.group(),
		}),
		kong.BindSingletonProvider(func() context.Context {
			return ctx
		}),
		kong.ConfigureHelp(
			kong.HelpOptions{
				Compact:             true,
				Summary:             true,
				Tree:                true,
				NoExpandSubcommands: true,
			}),
		kong.Configuration(kong.JSON, configFile+".json"),
		kong.Configuration(resolve, configFile),
		vars,
	)
	if err != nil {
		return err
	}

	ktx, err := parser.Parse(args)
	if err != nil {
		return err
	}

	cli.Log.start(ctx)

	if err := cli.Engine.validate(); err != nil {
		return err
	}

	ctx = cmd.WithContext(ctx, ktx)
	ctx = cmd.WithEngine(ctx, cli.Engine.engine())

	// no-op unless built with the pprof tag and a mode is selected
	defer cli.Pprof.start(ctx)()

	return ktx.Run()
}
