package lang

import (
	"log/slog"
	"reflect"
	"slices"
	"strings"
	"sync"
)

// builtinPrefix marks the registry entries installed by the engine itself.
// Lookups prefer a prefixed entry so a user registration cannot shadow a
// built-in by accident; [Registry.Lookup] still falls back to the bare name.
const builtinPrefix = "#"

// ValueFunc receives its arguments fully expanded. args[0] is the name the
// function was called by.
type ValueFunc func(args []Value) (Value, error)

// FormFunc receives the raw statements of its call, stmts[0] naming the
// function, and expands whichever arguments it needs itself.
type FormFunc func(in *Interp, stmts []*Statement) (Value, error)

// Func is a registered function. Exactly one of Value and Form is set.
type Func struct {
	Name  string
	Value ValueFunc
	Form  FormFunc

	// invoke applies the function to already-expanded arguments, not
	// including the name. It is set for value functions and for functions
	// defined by templates.
	invoke func(in *Interp, args []Value) (Value, error)
}

// Invoke applies f to expanded arguments.
func (f *Func) Invoke(in *Interp, args ...Value) (Value, error) {
	switch {
	case f.invoke != nil:
		return f.invoke(in, args)
	case f.Value != nil:
		return f.Value(append([]Value{String(f.Name)}, args...))
	default:
		return Null(), ErrArgument.With(
			slog.String("function", f.Name),
			slog.String("reason", "form cannot be applied to values"))
	}
}

// Kind describes the calling convention of f.
func (f *Func) Kind() string {
	if f.Form != nil {
		return "form"
	}

	return "value"
}

// Registry maps names to functions. It is safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	funcs map[string]*Func
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{funcs: make(map[string]*Func)}
}

// Register binds name to fn, replacing any previous binding. fn may be a
// [ValueFunc], a [FormFunc], a *[Func], a function with one of their
// signatures, or any other Go function whose parameters and results can be
// converted from and to values.
func (r *Registry) Register(name string, fn any) error {
	f, err := makeFunc(name, fn)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.funcs[name] = f

	return nil
}

func (r *Registry) builtin(name string, f *Func) {
	f.Name = name

	r.mu.Lock()
	defer r.mu.Unlock()

	r.funcs[builtinPrefix+name] = f
}

// Lookup finds the function bound to name, preferring a built-in.
func (r *Registry) Lookup(name string) (*Func, bool) {
	if name == "" {
		return nil, false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if f, ok := r.funcs[builtinPrefix+name]; ok {
		return f, true
	}

	f, ok := r.funcs[name]

	return f, ok
}

// Has reports whether name is bound.
func (r *Registry) Has(name string) bool {
	_, ok := r.Lookup(name)

	return ok
}

// Names returns the sorted names of every bound function.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.funcs))
	for k := range r.funcs {
		names = append(names, strings.TrimPrefix(k, builtinPrefix))
	}

	slices.Sort(names)

	return slices.Compact(names)
}

func makeFunc(name string, fn any) (*Func, error) {
	switch fn := fn.(type) {
	case nil:
		return nil, ErrArgument.With(slog.String("function", name))
	case *Func:
		f := *fn
		f.Name = name

		return &f, nil
	case ValueFunc:
		return valueFunc(name, fn), nil
	case func([]Value) (Value, error):
		return valueFunc(name, fn), nil
	case FormFunc:
		return &Func{Name: name, Form: fn}, nil
	case func(*Interp, []*Statement) (Value, error):
		return &Func{Name: name, Form: fn}, nil
	default:
		return reflectFunc(name, fn)
	}
}

func valueFunc(name string, fn ValueFunc) *Func {
	return &Func{
		Name:  name,
		Value: fn,
		invoke: func(_ *Interp, args []Value) (Value, error) {
			return fn(append([]Value{String(name)}, args...))
		},
	}
}

var (
	valueType = reflect.TypeFor[Value]()
	errorType = reflect.TypeFor[error]()
)

// reflectFunc adapts an arbitrary Go function. Parameters are converted from
// the call arguments; a final error result is returned as the call error.
func reflectFunc(name string, fn any) (*Func, error) {
	rv := reflect.ValueOf(fn)
	rt := rv.Type()

	if rt.Kind() != reflect.Func {
		return nil, ErrArgument.With(
			slog.String("function", name),
			slog.String("type", rt.String()))
	}

	nout := rt.NumOut()
	if nout > 2 || (nout == 2 && rt.Out(1) != errorType) {
		return nil, ErrArgument.With(
			slog.String("function", name),
			slog.String("reason", "results must be (T), (T, error) or (error)"))
	}

	call := func(args []Value) (Value, error) {
		in, err := reflectArgs(name, rt, args[1:])
		if err != nil {
			return Null(), err
		}

		out := rv.Call(in)

		switch {
		case nout == 0:
			return Null(), nil
		case nout == 1 && rt.Out(0) == errorType:
			err, _ := out[0].Interface().(error)

			return Null(), err
		case nout == 2:
			if err, _ := out[1].Interface().(error); err != nil {
				return Null(), err
			}
		}

		return fromReflect(out[0]), nil
	}

	return valueFunc(name, call), nil
}

func reflectArgs(name string, rt reflect.Type, args []Value) ([]reflect.Value, error) {
	nin := rt.NumIn()
	fixed := nin

	if rt.IsVariadic() {
		fixed--
	}

	if len(args) < fixed || (!rt.IsVariadic() && len(args) > nin) {
		return nil, ErrArgument.With(
			slog.String("function", name),
			slog.Int("want", fixed),
			slog.Int("got", len(args)))
	}

	in := make([]reflect.Value, 0, len(args))

	for i, a := range args {
		var t reflect.Type
		if i < fixed {
			t = rt.In(i)
		} else {
			t = rt.In(nin - 1).Elem()
		}

		v, err := toReflect(a, t)
		if err != nil {
			return nil, ErrArgument.Wrap(err).With(
				slog.String("function", name),
				slog.Int("arg", i+1))
		}

		in = append(in, v)
	}

	return in, nil
}

func toReflect(v Value, t reflect.Type) (reflect.Value, error) {
	if t == valueType {
		return reflect.ValueOf(v), nil
	}

	switch t.Kind() {
	case reflect.String:
		return reflect.ValueOf(v.Text()).Convert(t), nil

	case reflect.Bool:
		return reflect.ValueOf(v.Truthy()).Convert(t), nil

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		n, ok := v.Num()
		if !ok {
			return reflect.Value{}, NewError("not a number").With(
				slog.String("value", v.Text()))
		}

		return reflect.ValueOf(n).Convert(t), nil

	case reflect.Interface:
		if x := v.Native(); x != nil {
			if rx := reflect.ValueOf(x); rx.Type().AssignableTo(t) {
				return rx, nil
			}
		}

		return reflect.Zero(t), nil

	default:
		x := v.Native()
		if x == nil {
			return reflect.Zero(t), nil
		}

		rx := reflect.ValueOf(x)
		if rx.Type().ConvertibleTo(t) {
			return rx.Convert(t), nil
		}

		return reflect.Value{}, NewError("unsupported parameter type").With(
			slog.String("type", t.String()))
	}
}

func fromReflect(rv reflect.Value) Value {
	if !rv.IsValid() {
		return Null()
	}

	if v, ok := rv.Interface().(Value); ok {
		return v
	}

	return FromNative(rv.Interface())
}
