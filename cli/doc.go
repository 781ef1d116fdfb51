// Package cli contains the command line interface for sigil.
//
// # Usage
//
//	sigil [flags] [template ...]
//	sigil eval -e '(upper (name))' --set name=world
//	sigil fmt json template.txt
//	sigil funcs str
//	sigil repl --data context.yaml
//
// With no command, eval expands the named template files, or standard input
// when none are given.
//
// # Configuration
//
// Flag defaults are read from the user configuration directory, e.g.
// ~/.config/sigil/config (YAML) and ~/.config/sigil/config.json. Command-line
// flags take precedence. Run "sigil init" to write the current flag values to
// the YAML file.
//
// # Engine Options
//
//   - --[no-]strict: fail on unknown functions and unresolved variables
//   - --escape: escape resolved string variables (none, html)
//   - --delims: open and close delimiter characters, e.g. "{}"
//   - --max-depth, --max-iterations: expansion limits
//
// # Logging Options
//
//   - --log-level: minimum level (trace, debug, info, warn, error)
//   - --log-format: output format (json, text)
//   - --log-time-layout: timestamp layout (RFC3339, Kitchen, ...)
//   - --[no-]log-caller, --[no-]log-pretty
//
// # Profiling Options
//
// Available only when built with the pprof tag:
//
//	go build -tags pprof -o sigil .
//	sigil --pprof-mode=cpu --pprof-dir=/tmp/profiles template.txt
package cli
