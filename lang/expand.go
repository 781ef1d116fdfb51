package lang

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"github.com/ardnew/sigil/log"
)

// selfKeyword names the current cursor in a variable path.
const selfKeyword = "this"

// Interp is the state of one expansion: the engine, the caller's context
// map and the current nesting depth. Form functions receive it to expand
// their own arguments. An Interp must not be shared between goroutines.
type Interp struct {
	eng   *Engine
	ctx   context.Context
	vars  *Map
	depth int
}

func (e *Engine) interp(ctx context.Context, vars *Map) *Interp {
	if vars == nil {
		vars = NewMap()
	}

	return &Interp{eng: e, ctx: ctx, vars: vars}
}

// Context returns the context the expansion was started with.
func (in *Interp) Context() context.Context { return in.ctx }

// Vars returns the variable map being expanded against.
func (in *Interp) Vars() *Map { return in.vars }

// Engine returns the engine running the expansion.
func (in *Interp) Engine() *Engine { return in.eng }

// Strict reports whether unknown functions and bare unresolved names fail.
func (in *Interp) Strict() bool { return in.eng.Strict() }

func (in *Interp) logger() log.Logger { return in.eng.logger }

// Expand expands t in base-string mode: literal text is kept, nested
// templates are expanded, and the results are shaped by rep.
func (in *Interp) Expand(t *Template, rep Rep) (Value, error) {
	acc, err := in.collect(t, nil, rep)
	if err != nil {
		return Null(), err
	}

	return convert(acc, rep), nil
}

func (in *Interp) collect(t *Template, acc []Value, rep Rep) ([]Value, error) {
	for _, st := range t.Statements {
		for _, p := range st.Parts {
			if p.Kind == PartBaseString {
				var err error
				if acc, err = in.collect(p.Sub, acc, rep); err != nil {
					return nil, err
				}

				continue
			}

			var v Value

			switch p.Kind {
			case PartString, PartIdentifier:
				v = String(p.Text)
			case PartAccess:
				v = String(".")
			case PartTemplate:
				var err error
				if v, err = in.template(p.Sub); err != nil {
					return nil, err
				}
			case PartBaseString:
			}

			switch rep {
			case RepVoid:
				continue
			case RepLast:
				acc = acc[:0]
			case RepText, RepObject, RepArgument, RepVarRef:
			}

			acc = append(acc, v)
		}
	}

	return acc, nil
}

// Eval expands one statement the way an argument is expanded: a lone literal
// yields its text, a lone function name is called, and anything else is a
// variable path.
func (in *Interp) Eval(st *Statement) (Value, error) {
	return in.dispatch([]*Statement{st})
}

// Text expands st in base-string mode and returns the text. Forms use it to
// read literal names such as loop variables.
func (in *Interp) Text(st *Statement) (string, error) {
	acc, err := in.collect(&Template{Statements: []*Statement{st}}, nil, RepText)
	if err != nil {
		return "", err
	}

	return joinText(acc), nil
}

func (in *Interp) template(t *Template) (Value, error) {
	return in.dispatch(t.Statements)
}

// dispatch is template mode.
func (in *Interp) dispatch(stmts []*Statement) (Value, error) {
	in.depth++
	defer func() { in.depth-- }()

	if in.depth > in.eng.maxDepth {
		return Null(), ErrMaxDepthExceeded.With(slog.Int("depth", in.depth))
	}

	if len(stmts) > 1 {
		return in.call(stmts)
	}

	st := stmts[0]
	if len(st.Parts) == 1 {
		p := st.Parts[0]

		switch p.Kind {
		case PartString:
			return String(p.Text), nil
		case PartIdentifier:
			if _, ok := in.eng.registry.Lookup(p.Text); ok {
				return in.call(stmts)
			}
		case PartAccess, PartTemplate, PartBaseString:
		}
	}

	return in.variable(st)
}

// call is fn mode: statement 0 names the function, the rest are arguments.
func (in *Interp) call(stmts []*Statement) (Value, error) {
	name, err := in.Text(stmts[0])
	if err != nil {
		return Null(), err
	}

	fn, ok := in.eng.registry.Lookup(name)
	if !ok {
		if in.Strict() {
			return Null(), ErrUnknownFunction.With(slog.String("name", name))
		}

		in.logger().DebugContext(in.ctx, "unknown function",
			slog.String("name", name))

		return String("[unknown function: " + name + "]"), nil
	}

	in.logger().TraceContext(in.ctx, "call",
		slog.String("name", name),
		slog.Int("args", len(stmts)-1),
		slog.Bool("form", fn.Form != nil))

	if fn.Form != nil {
		return fn.Form(in, stmts)
	}

	args := make([]Value, 1, len(stmts))
	args[0] = String(name)

	for _, st := range stmts[1:] {
		v, err := in.Eval(st)
		if err != nil {
			return Null(), err
		}

		args = append(args, v)
	}

	return fn.Value(args)
}

// ref is a variable name with its sigils stripped.
type ref struct {
	name  string
	raw   bool // '!': no escaping
	quote bool // '$': quote the result
}

func parseRef(s string) ref {
	var r ref

	for len(s) > 0 {
		switch s[0] {
		case '!':
			r.raw = true
		case '$':
			r.quote = true
		default:
			r.name = s

			return r
		}

		s = s[1:]
	}

	return r
}

// path walks the parts of a variable statement.
type path struct {
	in       *Interp
	parts    int
	cursor   Value
	buf      strings.Builder
	tokens   bool    // a literal token was read in this segment
	nested   []Value // nested results of this segment
	accessed bool
	fellBack bool
	assign   bool
	sigils   ref // sigils seen on earlier segments
}

func (in *Interp) walk(st *Statement, assign bool) (*path, error) {
	w := &path{
		in:     in,
		parts:  len(st.Parts),
		cursor: MapValue(in.vars),
		assign: assign,
	}

	for _, p := range st.Parts {
		switch p.Kind {
		case PartString, PartIdentifier:
			w.buf.WriteString(p.Text)
			w.tokens = true
			w.nested = w.nested[:0]

		case PartAccess:
			if last, ok := w.last(); ok && !last.Scalar() {
				w.cursor = last
			} else {
				r := parseRef(w.buf.String())
				w.sigils.raw = w.sigils.raw || r.raw
				w.sigils.quote = w.sigils.quote || r.quote
				w.cursor = w.step(r.name)
			}

			w.buf.Reset()
			w.tokens = false
			w.nested = w.nested[:0]
			w.accessed = true

		case PartTemplate, PartBaseString:
			v, err := in.nested(p)
			if err != nil {
				return nil, err
			}

			if v.Scalar() {
				w.buf.WriteString(v.Text())
			}

			w.nested = append(w.nested, v)
		}
	}

	return w, nil
}

func (in *Interp) nested(p *Part) (Value, error) {
	if p.Kind == PartTemplate {
		return in.template(p.Sub)
	}

	return in.Expand(p.Sub, RepArgument)
}

// last returns the most recent nested result if no token followed it.
func (w *path) last() (Value, bool) {
	if len(w.nested) == 0 {
		return Null(), false
	}

	return w.nested[len(w.nested)-1], true
}

// step resolves name on the cursor for an intermediate segment.
func (w *path) step(name string) Value {
	if name == selfKeyword {
		return w.cursor
	}

	if v, ok := w.lookup(name); ok {
		return v
	}

	if w.assign {
		if m := w.cursor.Map(); m != nil {
			child := NewMap()
			m.Set(name, MapValue(child))

			return MapValue(child)
		}
	}

	return Null()
}

// lookup resolves name on the cursor, falling back once per statement to a
// value function of that name applied to the cursor.
func (w *path) lookup(name string) (Value, bool) {
	if v, ok := member(w.cursor, name); ok {
		return v, true
	}

	if w.fellBack || w.assign {
		return Null(), false
	}

	w.fellBack = true

	fn, ok := w.in.eng.registry.Lookup(name)
	if !ok || fn.Value == nil {
		return Null(), false
	}

	args := []Value{String(name)}
	if w.accessed {
		args = append(args, w.cursor)
	}

	v, err := fn.Value(args)
	if err != nil {
		w.in.logger().DebugContext(w.in.ctx, "fallback call failed",
			slog.String("name", name),
			slog.Any("error", err))

		return Null(), false
	}

	return v, true
}

// Lookuper is implemented by host objects that expose members to variable
// paths.
type Lookuper interface {
	Lookup(name string) (Value, bool)
}

func member(v Value, name string) (Value, bool) {
	switch v.Kind() {
	case KindMap:
		return v.Map().Get(name)

	case KindList:
		i, err := strconv.Atoi(name)
		if err != nil {
			return Null(), false
		}

		return v.List().At(i)

	case KindObject:
		if l, ok := v.Object().(Lookuper); ok {
			return l.Lookup(name)
		}

		return Null(), false

	case KindNull, KindBool, KindNumber, KindString, KindFunc:
		return Null(), false

	default:
		return Null(), false
	}
}

// variable is var mode.
func (in *Interp) variable(st *Statement) (Value, error) {
	w, err := in.walk(st, false)
	if err != nil {
		return Null(), err
	}

	if !w.tokens && len(w.nested) > 0 {
		if !w.accessed && len(w.nested) == 1 {
			return w.nested[0], nil
		}

		if last, _ := w.last(); !last.Scalar() {
			return last, nil
		}
	}

	r := parseRef(w.buf.String())
	r.raw = r.raw || w.sigils.raw
	r.quote = r.quote || w.sigils.quote

	if r.name == selfKeyword {
		return in.decorate(w.cursor, r), nil
	}

	v, ok := w.lookup(r.name)
	if !ok && !w.accessed {
		v, ok = literal(r.name)
	}

	if !ok {
		if in.Strict() && w.parts == 1 {
			return Null(), ErrUnresolvedVariable.With(slog.String("name", r.name))
		}

		in.logger().TraceContext(in.ctx, "unresolved variable",
			slog.String("name", r.name))

		return Null(), nil
	}

	return in.decorate(v, r), nil
}

// literal resolves the number, boolean and null words that are not bound
// in the context.
func literal(name string) (Value, bool) {
	switch name {
	case "true":
		return Bool(true), true
	case "false":
		return Bool(false), true
	case "null":
		return Null(), true
	}

	if n, err := strconv.ParseFloat(name, 64); err == nil {
		return Number(n), true
	}

	return Null(), false
}

// decorate applies the engine escaper and the sigils of r to a resolved
// variable.
func (in *Interp) decorate(v Value, r ref) Value {
	if v.Kind() == KindString && !r.raw && in.eng.escape != nil {
		v = String(in.eng.escape(v.Str()))
	}

	if r.quote {
		v = String(strconv.Quote(v.Text()))
	}

	return v
}

// Ref is an assignable location: a key of a map or an index of a list.
type Ref struct {
	Map   *Map
	List  *List
	Key   string
	Index int
}

// Get returns the value at r.
func (r Ref) Get() (Value, bool) {
	if r.Map != nil {
		return r.Map.Get(r.Key)
	}

	return r.List.At(r.Index)
}

// Set stores v at r.
func (r Ref) Set(v Value) error {
	if r.Map != nil {
		r.Map.Set(r.Key, v)

		return nil
	}

	if r.List == nil || !r.List.Set(r.Index, v) {
		return ErrNotAssignable.With(slog.Int("index", r.Index))
	}

	return nil
}

// Ref is varref mode: it resolves st to an assignable location, creating
// missing intermediate maps.
func (in *Interp) Ref(st *Statement) (Ref, error) {
	w, err := in.walk(st, true)
	if err != nil {
		return Ref{}, err
	}

	name := parseRef(w.buf.String()).name
	if name == selfKeyword || name == "" {
		return Ref{}, ErrNotAssignable.With(slog.String("target", st.Source(in.eng.delims)))
	}

	switch w.cursor.Kind() {
	case KindMap:
		return Ref{Map: w.cursor.Map(), Key: name}, nil

	case KindList:
		i, err := strconv.Atoi(name)
		if err != nil {
			return Ref{}, ErrNotAssignable.With(slog.String("index", name))
		}

		return Ref{List: w.cursor.List(), Index: i}, nil

	case KindNull, KindBool, KindNumber, KindString, KindFunc, KindObject:
		return Ref{}, ErrNotAssignable.With(
			slog.String("target", st.Source(in.eng.delims)),
			slog.String("container", w.cursor.Kind().String()))

	default:
		return Ref{}, ErrNotAssignable
	}
}

// Bind records the current bindings of names in the context and returns a
// function that restores them, removing names that were unbound.
func (in *Interp) Bind(names ...string) (restore func()) {
	type saved struct {
		name string
		prev Value
		had  bool
	}

	prior := make([]saved, 0, len(names))

	for _, n := range names {
		v, ok := in.vars.Get(n)
		prior = append(prior, saved{name: n, prev: v, had: ok})
	}

	return func() {
		for _, s := range prior {
			if s.had {
				in.vars.Set(s.name, s.prev)
			} else {
				in.vars.Remove(s.name)
			}
		}
	}
}
