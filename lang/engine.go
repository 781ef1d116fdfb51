package lang

import (
	"context"
	"html"
	"log/slog"
	"sync/atomic"

	"github.com/ardnew/sigil/log"
)

// DefaultMaxIterations bounds the iterations of one loop form.
const DefaultMaxIterations = 100000

// Escaper transforms the text of resolved string variables.
type Escaper func(string) string

// Engine parses and expands templates against its own function registry.
// It is safe for concurrent use; each expansion owns its context map.
type Engine struct {
	registry      *Registry
	logger        log.Logger
	escape        Escaper
	delims        Delims
	maxDepth      int
	maxIterations int
	strict        atomic.Bool
	builtins      bool

	cache    boundedCache // uint64 → *cached
	programs boundedCache // string → *vm.Program
}

// Option configures an [Engine].
type Option func(*Engine)

// New returns an engine with the built-in functions registered.
func New(opts ...Option) *Engine {
	e := &Engine{
		registry:      NewRegistry(),
		delims:        DefaultDelims,
		maxDepth:      DefaultMaxDepth,
		maxIterations: DefaultMaxIterations,
		builtins:      true,
		cache:         boundedCache{limit: DefaultCacheSize},
		programs:      boundedCache{limit: DefaultCacheSize},
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.builtins {
		e.registerForms()
		e.registerFuncs()
		e.registerHost()
	}

	return e
}

// WithStrict makes unknown functions and unresolved bare names fail.
func WithStrict(strict bool) Option {
	return func(e *Engine) { e.strict.Store(strict) }
}

// WithEscaper sets the function applied to resolved string variables that
// are not marked with '!'. A nil escaper leaves them unchanged.
func WithEscaper(fn Escaper) Option {
	return func(e *Engine) { e.escape = fn }
}

// WithHTMLEscape escapes resolved string variables for HTML.
func WithHTMLEscape() Option {
	return WithEscaper(html.EscapeString)
}

// WithDelims sets the template delimiters.
func WithDelims(open, closing rune) Option {
	return func(e *Engine) { e.delims = Delims{Open: open, Close: closing} }
}

// WithMaxDepth bounds template nesting for both parsing and expansion.
// Non-positive values keep [DefaultMaxDepth].
func WithMaxDepth(depth int) Option {
	return func(e *Engine) {
		if depth > 0 {
			e.maxDepth = depth
		}
	}
}

// WithMaxIterations bounds the iterations of each loop form. Non-positive
// values keep [DefaultMaxIterations].
func WithMaxIterations(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxIterations = n
		}
	}
}

// WithLogger sets the logger for trace and debug records. The zero
// [log.Logger] discards everything.
func WithLogger(logger log.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithCacheSize bounds the number of parsed templates and expression
// programs the engine memoizes; a full cache is emptied before it grows.
// Zero disables memoization.
func WithCacheSize(n int) Option {
	return func(e *Engine) {
		n = max(n, 0)
		e.cache.limit = n
		e.programs.limit = n
	}
}

// WithoutBuiltins starts the engine with an empty registry.
func WithoutBuiltins() Option {
	return func(e *Engine) { e.builtins = false }
}

// Strict reports whether the engine is in strict mode.
func (e *Engine) Strict() bool { return e.strict.Load() }

// SetStrict switches strict mode for subsequent expansions.
func (e *Engine) SetStrict(strict bool) { e.strict.Store(strict) }

// Delims returns the delimiters used by [Engine.Parse].
func (e *Engine) Delims() Delims { return e.delims }

// Registry returns the engine's function registry.
func (e *Engine) Registry() *Registry { return e.registry }

// Register binds name to fn. See [Registry.Register].
func (e *Engine) Register(name string, fn any) error {
	if err := e.registry.Register(name, fn); err != nil {
		return err
	}

	e.logger.Debug("registered function", slog.String("name", name))

	return nil
}

// Lookup returns the function bound to name. See [Registry.Lookup].
func (e *Engine) Lookup(name string) (*Func, bool) { return e.registry.Lookup(name) }

// Names returns the names of every registered function, sorted.
func (e *Engine) Names() []string { return e.registry.Names() }

// Expand expands t against vars. vars may be nil and is modified by
// assignments and loop variables.
func (e *Engine) Expand(ctx context.Context, t *Template, vars *Map, rep Rep) (Value, error) {
	v, err := e.interp(ctx, vars).Expand(t, rep)
	if err != nil {
		return Null(), escapedSignal(err)
	}

	return v, nil
}

// Eval parses and expands src in one step.
func (e *Engine) Eval(ctx context.Context, src string, vars *Map, rep Rep) (Value, error) {
	t, err := e.Parse(src)
	if err != nil {
		return Null(), err
	}

	return e.Expand(ctx, t, vars, rep)
}

// Call invokes the named function with args. Form functions receive each
// argument as a literal statement.
func (e *Engine) Call(ctx context.Context, name string, args []Value, vars *Map) (Value, error) {
	f, ok := e.registry.Lookup(name)
	if !ok {
		return Null(), ErrUnknownFunction.With(slog.String("name", name))
	}

	in := e.interp(ctx, vars)

	var (
		v   Value
		err error
	)

	if f.Form != nil && f.invoke == nil {
		stmts := make([]*Statement, 0, len(args)+1)
		stmts = append(stmts, leafStatement(PartIdentifier, name))

		for _, a := range args {
			stmts = append(stmts, leafStatement(PartString, a.Text()))
		}

		v, err = f.Form(in, stmts)
	} else {
		v, err = f.Invoke(in, args...)
	}

	if err != nil {
		return Null(), escapedSignal(err)
	}

	return v, nil
}

func leafStatement(kind PartKind, text string) *Statement {
	return &Statement{Parts: []*Part{{Kind: kind, Text: text}}}
}

// Program is a parsed template bound to the engine that compiled it.
type Program struct {
	eng  *Engine
	tmpl *Template
}

// Compile parses src once for repeated expansion.
func (e *Engine) Compile(src string) (*Program, error) {
	t, err := e.Parse(src)
	if err != nil {
		return nil, err
	}

	return &Program{eng: e, tmpl: t}, nil
}

func (p *Program) Template() *Template { return p.tmpl }

// Expand expands the program against vars.
func (p *Program) Expand(ctx context.Context, vars *Map, rep Rep) (Value, error) {
	return p.eng.Expand(ctx, p.tmpl, vars, rep)
}

// Text expands the program to text.
func (p *Program) Text(ctx context.Context, vars *Map) (string, error) {
	v, err := p.Expand(ctx, vars, RepText)
	if err != nil {
		return "", err
	}

	return v.Text(), nil
}
