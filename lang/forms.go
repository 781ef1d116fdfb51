package lang

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// Keywords recognized inside form arguments.
const (
	kwElif    = "elif"
	kwElse    = "else"
	kwDefault = "default"
	kwBy      = "by"
	kwCatch   = "catch"
	kwFinally = "finally"
)

func (e *Engine) registerForms() {
	forms := map[string]FormFunc{
		"set":      formSet,
		"?":        formTernary,
		"if":       formIf,
		"switch":   formSwitch,
		"for":      formFor,
		"repeat":   formRepeat,
		"each":     formEach,
		"foreach":  formEach,
		"map":      formMap,
		"filter":   formFilter,
		"while":    formWhile,
		"try":      formTry,
		"echo":     formEcho,
		"do":       formDo,
		"and":      formAnd,
		"or":       formOr,
		"break":    formBreak,
		"continue": formContinue,
		"def":      formDef,
		"fn":       formFn,
		"apply":    formApply,
		"call":     formApply,
		"expr":     formExpr,
		"raise":    formRaise,
		"error":    formRaise,
	}

	for name, f := range forms {
		e.registry.builtin(name, &Func{Form: f})
	}
}

// keyword returns the literal text of a single-part statement.
func keyword(st *Statement) string {
	if len(st.Parts) != 1 {
		return ""
	}

	switch p := st.Parts[0]; p.Kind {
	case PartIdentifier, PartString:
		return p.Text
	case PartAccess, PartTemplate, PartBaseString:
	}

	return ""
}

func arity(stmts []*Statement, least int) error {
	if len(stmts)-1 < least {
		return ErrArgument.With(
			slog.String("form", keyword(stmts[0])),
			slog.Int("want", least),
			slog.Int("got", len(stmts)-1))
	}

	return nil
}

// (set target value [target value]...)
func formSet(in *Interp, stmts []*Statement) (Value, error) {
	args := stmts[1:]
	if len(args) == 0 || len(args)%2 != 0 {
		return Null(), ErrArgument.With(
			slog.String("form", "set"),
			slog.String("reason", "want target/value pairs"))
	}

	for i := 0; i < len(args); i += 2 {
		ref, err := in.Ref(args[i])
		if err != nil {
			return Null(), err
		}

		v, err := in.Eval(args[i+1])
		if err != nil {
			return Null(), err
		}

		if err := ref.Set(v); err != nil {
			return Null(), err
		}
	}

	return Null(), nil
}

// (? cond then [else])
func formTernary(in *Interp, stmts []*Statement) (Value, error) {
	if err := arity(stmts, 2); err != nil {
		return Null(), err
	}

	c, err := in.Eval(stmts[1])
	if err != nil {
		return Null(), err
	}

	switch {
	case c.Truthy():
		return in.Eval(stmts[2])
	case len(stmts) > 3:
		return in.Eval(stmts[3])
	default:
		return Null(), nil
	}
}

// (if cond then [elif cond then]... [[else] otherwise])
func formIf(in *Interp, stmts []*Statement) (Value, error) {
	if err := arity(stmts, 2); err != nil {
		return Null(), err
	}

	args := stmts[1:]

	for len(args) >= 2 {
		c, err := in.Eval(args[0])
		if err != nil {
			return Null(), err
		}

		if c.Truthy() {
			return in.Eval(args[1])
		}

		args = args[2:]
		if len(args) == 0 {
			break
		}

		switch keyword(args[0]) {
		case kwElif:
			args = args[1:]

			continue
		case kwElse:
			args = args[1:]
		}

		if len(args) > 0 {
			return in.Eval(args[0])
		}
	}

	return Null(), nil
}

// (switch subject case value [case value]... [[default] value])
func formSwitch(in *Interp, stmts []*Statement) (Value, error) {
	if err := arity(stmts, 1); err != nil {
		return Null(), err
	}

	subject, err := in.Eval(stmts[1])
	if err != nil {
		return Null(), err
	}

	args := stmts[2:]

	for len(args) > 0 {
		if keyword(args[0]) == kwDefault && len(args) > 1 {
			return in.Eval(args[1])
		}

		if len(args) == 1 {
			return in.Eval(args[0])
		}

		c, err := in.Eval(args[0])
		if err != nil {
			return Null(), err
		}

		if subject.Equal(c) {
			return in.Eval(args[1])
		}

		args = args[2:]
	}

	return Null(), nil
}

// loop collects the body values of a loop form and stops on break or at the
// engine's iteration limit.
type loop struct {
	in    *Interp
	name  string
	count int
	out   []Value
}

func (in *Interp) loop(name string) *loop {
	return &loop{in: in, name: name}
}

// bind sets the loop variable and its companions for the next iteration.
// The counter companion is zero-based.
func (l *loop) bind(v, key Value) {
	l.in.vars.Set(l.name, v)
	l.in.vars.Set(l.name+"#", key)
	l.in.vars.Set(l.name+"##", Int(l.count))
	l.count++
}

func (l *loop) restore() func() {
	return l.in.Bind(l.name, l.name+"#", l.name+"##")
}

// run evaluates body once and reports whether the loop continues.
func (l *loop) run(body []*Statement) (bool, error) {
	if l.count > l.in.eng.maxIterations {
		return false, ErrLoopLimit.With(
			slog.String("variable", l.name),
			slog.Int("limit", l.in.eng.maxIterations))
	}

	o, err := l.in.Iterate(body)
	if err != nil {
		return false, err
	}

	if !isEmpty(o.Value) {
		l.out = append(l.out, o.Value)
	}

	if o.Flow == FlowBreak {
		l.in.logger().TraceContext(l.in.ctx, "loop break",
			slog.String("variable", l.name),
			slog.Int("iteration", l.count))

		return false, nil
	}

	return true, nil
}

func (l *loop) result() Value { return ListOf(l.out...) }

func isEmpty(v Value) bool {
	return v.Kind() == KindList && v.List().Len() == 0
}

func (in *Interp) number(st *Statement) (float64, error) {
	v, err := in.Eval(st)
	if err != nil {
		return 0, err
	}

	n, ok := v.Num()
	if !ok {
		return 0, ErrArgument.With(
			slog.String("reason", "not a number"),
			slog.String("value", v.Text()))
	}

	return n, nil
}

// (for var from to [by step] body...)
func formFor(in *Interp, stmts []*Statement) (Value, error) {
	if err := arity(stmts, 3); err != nil {
		return Null(), err
	}

	name, err := in.Text(stmts[1])
	if err != nil {
		return Null(), err
	}

	from, err := in.number(stmts[2])
	if err != nil {
		return Null(), err
	}

	to, err := in.number(stmts[3])
	if err != nil {
		return Null(), err
	}

	step := 1.0
	if to < from {
		step = -1
	}

	body := stmts[4:]
	if len(body) >= 2 && keyword(body[0]) == kwBy {
		if step, err = in.number(body[1]); err != nil {
			return Null(), err
		}

		body = body[2:]
	}

	if step == 0 || (step > 0 && to < from) || (step < 0 && to > from) {
		return ListOf(), nil
	}

	l := in.loop(name)
	defer l.restore()()

	for i, x := 0, from; (step > 0 && x <= to) || (step < 0 && x >= to); i, x = i+1, x+step {
		l.bind(Number(x), Int(i))

		ok, err := l.run(body)
		if err != nil {
			return Null(), err
		}

		if !ok {
			break
		}
	}

	return l.result(), nil
}

// (repeat n body...)
func formRepeat(in *Interp, stmts []*Statement) (Value, error) {
	if err := arity(stmts, 1); err != nil {
		return Null(), err
	}

	n, err := in.number(stmts[1])
	if err != nil {
		return Null(), err
	}

	l := in.loop("_")
	defer l.restore()()

	for i := 0; i < int(n); i++ {
		l.bind(Int(i), Int(i))

		ok, err := l.run(stmts[2:])
		if err != nil {
			return Null(), err
		}

		if !ok {
			break
		}
	}

	return l.result(), nil
}

// entry is one element of an iterable value.
type entry struct {
	key, val Value
}

func entries(v Value) ([]entry, error) {
	switch v.Kind() {
	case KindList:
		out := make([]entry, 0, v.List().Len())
		for i, e := range v.List().All() {
			out = append(out, entry{key: Int(i), val: e})
		}

		return out, nil

	case KindMap:
		out := make([]entry, 0, v.Map().Len())
		for k, e := range v.Map().All() {
			out = append(out, entry{key: String(k), val: e})
		}

		return out, nil

	case KindString:
		out := make([]entry, 0, len(v.Str()))
		for i, r := range []rune(v.Str()) {
			out = append(out, entry{key: Int(i), val: String(string(r))})
		}

		return out, nil

	case KindNull:
		return nil, nil

	case KindBool, KindNumber, KindFunc, KindObject:
		return []entry{{key: Int(0), val: v}}, nil

	default:
		return nil, nil
	}
}

// iteration binds the variable of a collection form and evaluates its
// collection.
func (in *Interp) iteration(stmts []*Statement) (string, Value, []entry, error) {
	if err := arity(stmts, 2); err != nil {
		return "", Null(), nil, err
	}

	name, err := in.Text(stmts[1])
	if err != nil {
		return "", Null(), nil, err
	}

	coll, err := in.Eval(stmts[2])
	if err != nil {
		return "", Null(), nil, err
	}

	es, err := entries(coll)

	return name, coll, es, err
}

// (each var collection body...)
func formEach(in *Interp, stmts []*Statement) (Value, error) {
	name, _, es, err := in.iteration(stmts)
	if err != nil {
		return Null(), err
	}

	l := in.loop(name)
	defer l.restore()()

	for _, e := range es {
		l.bind(e.val, e.key)

		ok, err := l.run(stmts[3:])
		if err != nil {
			return Null(), err
		}

		if !ok {
			break
		}
	}

	return l.result(), nil
}

// (map var collection body)
func formMap(in *Interp, stmts []*Statement) (Value, error) {
	name, coll, es, err := in.iteration(stmts)
	if err != nil {
		return Null(), err
	}

	l := in.loop(name)
	defer l.restore()()

	out := NewMap()
	list := NewList()

	for _, e := range es {
		l.bind(e.val, e.key)

		o, err := in.Iterate(stmts[3:])
		if err != nil {
			return Null(), err
		}

		if o.Flow == FlowContinue {
			continue
		}

		if coll.Kind() == KindMap {
			out.Set(e.key.Str(), o.Value)
		} else {
			list.Append(o.Value)
		}

		if o.Flow == FlowBreak {
			break
		}
	}

	if coll.Kind() == KindMap {
		return MapValue(out), nil
	}

	return ListValue(list), nil
}

// (filter var collection cond)
func formFilter(in *Interp, stmts []*Statement) (Value, error) {
	name, coll, es, err := in.iteration(stmts)
	if err != nil {
		return Null(), err
	}

	l := in.loop(name)
	defer l.restore()()

	out := NewMap()
	list := NewList()

	for _, e := range es {
		l.bind(e.val, e.key)

		o, err := in.Iterate(stmts[3:])
		if err != nil {
			return Null(), err
		}

		if o.Flow == FlowNext && o.Value.Truthy() {
			if coll.Kind() == KindMap {
				out.Set(e.key.Str(), e.val)
			} else {
				list.Append(e.val)
			}
		}

		if o.Flow == FlowBreak {
			break
		}
	}

	if coll.Kind() == KindMap {
		return MapValue(out), nil
	}

	return ListValue(list), nil
}

// (while cond body...)
func formWhile(in *Interp, stmts []*Statement) (Value, error) {
	if err := arity(stmts, 1); err != nil {
		return Null(), err
	}

	l := in.loop("_")
	defer l.restore()()

	for {
		c, err := in.Eval(stmts[1])
		if err != nil {
			return Null(), err
		}

		if !c.Truthy() {
			break
		}

		l.bind(Int(l.count), Int(l.count))

		ok, err := l.run(stmts[2:])
		if err != nil {
			return Null(), err
		}

		if !ok {
			break
		}
	}

	return l.result(), nil
}

// (try body... [catch var handler...] [finally body...])
func formTry(in *Interp, stmts []*Statement) (result Value, err error) {
	args := stmts[1:]
	catchAt, finallyAt := -1, len(args)

	for i, st := range args {
		switch keyword(st) {
		case kwCatch:
			if catchAt < 0 && i < finallyAt {
				catchAt = i
			}
		case kwFinally:
			if finallyAt == len(args) {
				finallyAt = i
			}
		}
	}

	body := args[:finallyAt]

	var handler []*Statement
	if catchAt >= 0 {
		body, handler = args[:catchAt], args[catchAt+1:finallyAt]
	}

	if finallyAt < len(args) {
		defer func() {
			if _, ferr := in.do(args[finallyAt+1:]); ferr != nil && err == nil {
				result, err = Null(), ferr
			}
		}()
	}

	result, err = in.do(body)
	if err == nil || isSignal(err) {
		return result, err
	}

	if len(handler) == 0 {
		in.logger().DebugContext(in.ctx, "try suppressed error",
			slog.Any("error", err))

		return Null(), nil
	}

	name, terr := in.Text(handler[0])
	if terr != nil {
		return Null(), terr
	}

	in.logger().DebugContext(in.ctx, "try caught error",
		slog.String("variable", name),
		slog.Any("error", err))

	defer in.Bind(name)()

	in.vars.Set(name, String(message(err)))

	return in.do(handler[1:])
}

// message returns the text a catch clause binds for err.
func message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		if v, ok := e.Attr("message"); ok {
			return v.String()
		}
	}

	return err.Error()
}

func isSignal(err error) bool {
	var sig *flowSignal

	return errors.As(err, &sig)
}

// do evaluates each statement and returns the last value.
func (in *Interp) do(stmts []*Statement) (Value, error) {
	v := Null()

	for _, st := range stmts {
		var err error
		if v, err = in.Eval(st); err != nil {
			return Null(), err
		}
	}

	return v, nil
}

// (echo args...)
func formEcho(in *Interp, stmts []*Statement) (Value, error) {
	src := make([]string, 0, len(stmts)-1)
	for _, st := range stmts[1:] {
		src = append(src, st.Source(in.eng.delims))
	}

	return String(strings.Join(src, " ")), nil
}

// (do args...)
func formDo(in *Interp, stmts []*Statement) (Value, error) {
	return in.do(stmts[1:])
}

// (and args...)
func formAnd(in *Interp, stmts []*Statement) (Value, error) {
	v := Bool(true)

	for _, st := range stmts[1:] {
		var err error
		if v, err = in.Eval(st); err != nil || !v.Truthy() {
			return v, err
		}
	}

	return v, nil
}

// (or args...)
func formOr(in *Interp, stmts []*Statement) (Value, error) {
	v := Bool(false)

	for _, st := range stmts[1:] {
		var err error
		if v, err = in.Eval(st); err != nil || v.Truthy() {
			return v, err
		}
	}

	return v, nil
}

func formBreak(*Interp, []*Statement) (Value, error) { return Null(), signalBreak }

func formContinue(*Interp, []*Statement) (Value, error) { return Null(), signalContinue }

// (def name params... body) defines a function that evaluates body with
// its parameters bound.
func formDef(in *Interp, stmts []*Statement) (Value, error) {
	if err := arity(stmts, 2); err != nil {
		return Null(), err
	}

	name, err := in.Text(stmts[1])
	if err != nil {
		return Null(), err
	}

	params := make([]string, 0, len(stmts)-3)

	for _, st := range stmts[2 : len(stmts)-1] {
		p, err := in.Text(st)
		if err != nil {
			return Null(), err
		}

		params = append(params, p)
	}

	body := stmts[len(stmts)-1]

	invoke := func(in *Interp, args []Value) (Value, error) {
		defer in.Bind(params...)()

		for i, p := range params {
			v := Null()
			if i < len(args) {
				v = args[i]
			}

			in.vars.Set(p, v)
		}

		return in.Eval(body)
	}

	f := &Func{
		Name:   name,
		invoke: invoke,
		Form: func(in *Interp, stmts []*Statement) (Value, error) {
			args := make([]Value, 0, len(stmts)-1)

			for _, st := range stmts[1:] {
				v, err := in.Eval(st)
				if err != nil {
					return Null(), err
				}

				args = append(args, v)
			}

			return invoke(in, args)
		},
	}

	if err := in.eng.registry.Register(name, f); err != nil {
		return Null(), err
	}

	in.logger().DebugContext(in.ctx, "defined function",
		slog.String("name", name),
		slog.Any("params", params))

	return Null(), nil
}

// (fn name)
func formFn(in *Interp, stmts []*Statement) (Value, error) {
	if err := arity(stmts, 1); err != nil {
		return Null(), err
	}

	name, err := in.Text(stmts[1])
	if err != nil {
		return Null(), err
	}

	f, ok := in.eng.registry.Lookup(name)
	if !ok {
		return Null(), ErrUnknownFunction.With(slog.String("name", name))
	}

	return FuncValue(f), nil
}

// (apply function args...) where the last argument may be a list that is
// spread into the call.
func formApply(in *Interp, stmts []*Statement) (Value, error) {
	if err := arity(stmts, 1); err != nil {
		return Null(), err
	}

	target, err := in.Eval(stmts[1])
	if err != nil {
		return Null(), err
	}

	f := target.Func()
	if f == nil {
		name := target.Text()
		if f, _ = in.eng.registry.Lookup(name); f == nil {
			return Null(), ErrUnknownFunction.With(slog.String("name", name))
		}
	}

	args := make([]Value, 0, len(stmts)-2)

	for i, st := range stmts[2:] {
		v, err := in.Eval(st)
		if err != nil {
			return Null(), err
		}

		if i == len(stmts)-3 && v.Kind() == KindList {
			args = append(args, v.List().Values()...)

			continue
		}

		args = append(args, v)
	}

	return f.Invoke(in, args...)
}

// (expr source)
func formExpr(in *Interp, stmts []*Statement) (Value, error) {
	if err := arity(stmts, 1); err != nil {
		return Null(), err
	}

	parts := make([]string, 0, len(stmts)-1)

	for _, st := range stmts[1:] {
		s, err := in.Text(st)
		if err != nil {
			return Null(), err
		}

		parts = append(parts, s)
	}

	source := strings.Join(parts, " ")

	program, err := in.eng.program(source)
	if err != nil {
		return Null(), err
	}

	env, _ := MapValue(in.vars).Native().(map[string]any)

	result, err := vm.Run(program, env)
	if err != nil {
		return Null(), ErrExprEvaluate.Wrap(err).
			With(slog.String("source", source))
	}

	return FromNative(result), nil
}

// program compiles an expr-lang source once per engine.
func (e *Engine) program(source string) (*vm.Program, error) {
	if p, ok := e.programs.load(source); ok {
		return p.(*vm.Program), nil
	}

	p, err := expr.Compile(source,
		expr.Env(map[string]any{}),
		expr.AllowUndefinedVariables())
	if err != nil {
		return nil, ErrExprCompile.Wrap(err).
			With(slog.String("source", source))
	}

	actual, _ := e.programs.loadOrStore(source, p)

	return actual.(*vm.Program), nil
}

// (raise message...)
func formRaise(in *Interp, stmts []*Statement) (Value, error) {
	parts := make([]string, 0, len(stmts)-1)

	for _, st := range stmts[1:] {
		v, err := in.Eval(st)
		if err != nil {
			return Null(), err
		}

		parts = append(parts, v.Text())
	}

	msg := strings.Join(parts, " ")

	return Null(), ErrRaised.Wrap(errors.New(msg)).
		With(slog.String("message", msg))
}
