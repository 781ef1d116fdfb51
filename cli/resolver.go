package cli

import (
	"io"
	"strconv"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/goccy/go-yaml"
)

// resolve is a [kong.ConfigurationLoader] for YAML configuration files.
//
//	kong.Configuration(resolve, "/path/to/config")
//
// Keys name flags either flat or nested by flag prefix, and hyphens may be
// written as underscores:
//
//	log-level: debug
//	log:
//	  pretty: false
//	strict: true
//	max_depth: 50
//
// Command-line flags override configuration values. An empty or malformed
// file yields an empty configuration.
func resolve(r io.Reader) (kong.Resolver, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return config{}, nil
	}

	var doc map[string]any
	if err := yaml.Unmarshal(src, &doc); err != nil {
		return config{}, nil
	}

	cfg := config{}
	cfg.flatten("", doc)

	return cfg, nil
}

// config implements [kong.Resolver] over flattened flag names.
type config map[string]any

func (config) Validate(*kong.Application) error { return nil }

func (c config) Resolve(_ *kong.Context, _ *kong.Path, flag *kong.Flag) (any, error) {
	if v, ok := c[flag.Name]; ok {
		return v, nil
	}

	return nil, nil
}

// flatten joins nested keys with '-' and normalizes values to the forms kong
// mappers accept: strings, bools, and lists of strings.
func (c config) flatten(prefix string, doc map[string]any) {
	for key, val := range doc {
		name := strings.ReplaceAll(key, "_", "-")
		if prefix != "" {
			name = prefix + "-" + name
		}

		switch v := val.(type) {
		case map[string]any:
			c.flatten(name, v)
		case []any:
			list := make([]any, 0, len(v))
			for _, e := range v {
				list = append(list, scalar(e))
			}

			c[name] = list
		case nil:
		default:
			c[name] = scalar(v)
		}
	}
}

func scalar(v any) any {
	switch v := v.(type) {
	case bool:
		return v
	case string:
		return v
	case uint64:
		return strconv.FormatUint(v, 10)
	case int64:
		return strconv.FormatInt(v, 10)
	case int:
		return strconv.Itoa(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return yamlText(v)
	}
}

func yamlText(v any) string {
	p, err := yaml.Marshal(v)
	if err != nil {
		return ""
	}

	return strings.TrimSpace(string(p))
}
