package lang

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/goccy/go-yaml"
)

// Ordered converts v like [Value.Native] but keeps map order by producing
// [yaml.MapSlice] for maps.
func (v Value) Ordered() any {
	switch v.kind {
	case KindList:
		out := make([]any, 0, v.List().Len())
		for _, e := range v.List().items {
			out = append(out, e.Ordered())
		}

		return out
	case KindMap:
		out := make(yaml.MapSlice, 0, v.Map().Len())
		for k, e := range v.Map().All() {
			out = append(out, yaml.MapItem{Key: k, Value: e.Ordered()})
		}

		return out
	case KindFunc:
		return "<func " + v.Func().Name + ">"
	case KindNull, KindBool, KindNumber, KindString, KindObject:
		return v.Native()
	default:
		return nil
	}
}

// MarshalJSON encodes v with map keys in insertion order.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindList:
		var b bytes.Buffer

		b.WriteByte('[')

		for i, e := range v.List().items {
			if i > 0 {
				b.WriteByte(',')
			}

			p, err := e.MarshalJSON()
			if err != nil {
				return nil, err
			}

			b.Write(p)
		}

		b.WriteByte(']')

		return b.Bytes(), nil

	case KindMap:
		var b bytes.Buffer

		b.WriteByte('{')

		i := 0

		for k, e := range v.Map().All() {
			if i > 0 {
				b.WriteByte(',')
			}

			i++

			kp, err := json.Marshal(k)
			if err != nil {
				return nil, err
			}

			p, err := e.MarshalJSON()
			if err != nil {
				return nil, err
			}

			b.Write(kp)
			b.WriteByte(':')
			b.Write(p)
		}

		b.WriteByte('}')

		return b.Bytes(), nil

	case KindNull, KindBool, KindNumber, KindString, KindFunc, KindObject:
		return json.Marshal(v.Ordered())

	default:
		return []byte("null"), nil
	}
}

// MarshalYAML lets goccy/go-yaml encode v in insertion order.
func (v Value) MarshalYAML() (any, error) { return v.Ordered(), nil }

// EncodeJSON renders v as JSON, indented by indent spaces when positive.
func EncodeJSON(v Value, indent int) (string, error) {
	p, err := v.MarshalJSON()
	if err != nil {
		return "", ErrEncode.Wrap(err).With(slog.String("format", "json"))
	}

	if indent <= 0 {
		return string(p), nil
	}

	var b bytes.Buffer
	if err := json.Indent(&b, p, "", strings.Repeat(" ", indent)); err != nil {
		return "", ErrEncode.Wrap(err).With(slog.String("format", "json"))
	}

	return b.String(), nil
}

// EncodeYAML renders v as a YAML document.
func EncodeYAML(ctx context.Context, v Value, opts ...yaml.EncodeOption) (string, error) {
	p, err := yaml.MarshalContext(ctx, v.Ordered(), opts...)
	if err != nil {
		return "", ErrEncode.Wrap(err).With(slog.String("format", "yaml"))
	}

	return string(p), nil
}

// Decode parses JSON or YAML text into a value, keeping map order.
func Decode(src []byte) (Value, error) {
	var x any
	if err := yaml.UnmarshalWithOptions(src, &x, yaml.UseOrderedMap()); err != nil {
		return Null(), ErrDecode.Wrap(err)
	}

	return FromNative(x), nil
}

// (json value [indent])
func fnJSON(args []Value) (Value, error) {
	if err := want(args, 1); err != nil {
		return Null(), err
	}

	indent := 0
	if len(args) > 2 {
		n, _ := args[2].Num()
		indent = int(n)
	}

	s, err := EncodeJSON(args[1], indent)

	return String(s), err
}

// (yaml value [flow])
func fnYAML(args []Value) (Value, error) {
	if err := want(args, 1); err != nil {
		return Null(), err
	}

	opts := []yaml.EncodeOption{yaml.Indent(2)}
	if len(args) > 2 && args[2].Truthy() {
		opts = append(opts, yaml.Flow(true))
	}

	s, err := EncodeYAML(context.Background(), args[1], opts...)

	return String(strings.TrimSuffix(s, "\n")), err
}

func fnDecode(args []Value) (Value, error) {
	if err := want(args, 1); err != nil {
		return Null(), err
	}

	return Decode([]byte(args[1].Text()))
}
