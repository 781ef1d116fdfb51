package lang

import (
	"context"
	"sync"
)

var defaultEngine = sync.OnceValue(func() *Engine { return New() })

// Default returns the process-wide engine used by the package functions.
func Default() *Engine { return defaultEngine() }

// SetStrict configures the default engine. Call it before expanding.
func SetStrict(strict bool) { Default().SetStrict(strict) }

// Parse parses src, with the default delimiters unless d is given.
func Parse(src string, d ...Delims) (*Template, error) {
	if len(d) > 0 {
		return Default().ParseWith(src, d[0])
	}

	return Default().Parse(src)
}

// Expand expands t against vars with the default engine.
func Expand(ctx context.Context, t *Template, vars *Map, rep Rep) (Value, error) {
	return Default().Expand(ctx, t, vars, rep)
}

// Compile parses src with the default engine for repeated expansion.
func Compile(src string) (*Program, error) { return Default().Compile(src) }

// Eval parses and expands src with the default engine.
func Eval(ctx context.Context, src string, vars *Map, rep Rep) (Value, error) {
	return Default().Eval(ctx, src, vars, rep)
}

// Register binds name in the default engine.
func Register(name string, fn any) error { return Default().Register(name, fn) }

// Call invokes name in the default engine.
func Call(ctx context.Context, name string, args []Value, vars *Map) (Value, error) {
	return Default().Call(ctx, name, args, vars)
}
