package cmd

import (
	"log/slog"
	"os"
	"strings"

	"github.com/ardnew/sigil/lang"
)

// loadContext builds an expansion context from JSON or YAML data files,
// merged in order, followed by name=value assignments. A dotted name sets a
// nested key, creating maps as needed. Values are decoded as YAML scalars
// or flow collections; text that does not decode is kept as a string.
func loadContext(files, assign []string) (*lang.Map, error) {
	vars := lang.NewMap()

	for _, path := range files {
		src, err := os.ReadFile(path)
		if err != nil {
			return nil, ErrReadData.Wrap(err).With(pathAttr(path))
		}

		v, err := lang.Decode(src)
		if err != nil {
			return nil, ErrReadData.Wrap(err).With(pathAttr(path))
		}

		switch v.Kind() {
		case lang.KindMap:
			vars.Merge(v.Map())
		case lang.KindNull:
		default:
			return nil, ErrDataShape.With(pathAttr(path), slog.String("kind", v.Kind().String()))
		}
	}

	for _, a := range assign {
		name, text, ok := strings.Cut(a, "=")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, ErrAssignment.With(slog.String("assignment", a))
		}

		assignPath(vars, strings.Split(strings.TrimSpace(name), "."), decodeScalar(text))
	}

	return vars, nil
}

func decodeScalar(text string) lang.Value {
	if strings.TrimSpace(text) == "" {
		return lang.String(text)
	}

	v, err := lang.Decode([]byte(text))
	if err != nil || v.IsNull() && text != "null" && text != "~" {
		return lang.String(text)
	}

	return v
}

func assignPath(m *lang.Map, keys []string, v lang.Value) {
	for _, key := range keys[:len(keys)-1] {
		next, ok := m.Get(key)
		if !ok || next.Kind() != lang.KindMap {
			child := lang.NewMap()
			m.Set(key, lang.MapValue(child))
			m = child

			continue
		}

		m = next.Map()
	}

	m.Set(keys[len(keys)-1], v)
}
