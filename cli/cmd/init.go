package cmd

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"reflect"
	"slices"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/goccy/go-yaml"
	"github.com/natefinch/atomic"

	"github.com/ardnew/sigil/log"
	"github.com/ardnew/sigil/profile"
)

// Init writes the current global flag values to the YAML configuration file.
type Init struct {
	Force bool `help:"Overwrite existing configuration file" short:"f"`
}

// Run executes the init command.
func (i *Init) Run(ctx context.Context) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	path, ok := varsFrom(ctx, ConfigIdentifier)
	if !ok {
		panic("internal error: configuration path undefined")
	}

	if _, err := os.Stat(path); err == nil && !i.Force {
		return ErrWriteConfig.
			With(pathAttr(path), slog.Bool("exists", true)).
			Wrap(ErrFileExists)
	}

	src, err := yaml.MarshalContext(ctx, configValues(kongContextFrom(ctx)))
	if err != nil {
		return ErrWriteConfig.With(pathAttr(path)).Wrap(err)
	}

	if err := atomic.WriteFile(path, bytes.NewReader(src)); err != nil {
		return ErrWriteConfig.With(pathAttr(path)).Wrap(err)
	}

	log.DebugContext(ctx, "initialized configuration file", pathAttr(path))

	return nil
}

// configValues collects the application-level flags in declaration order,
// skipping help, version, profiling, and unset values.
func configValues(ktx *kong.Context) yaml.MapSlice {
	skip := []string{"help", "version", profile.Tag}

	var doc yaml.MapSlice

	for _, flag := range ktx.Model.Flags {
		if flag.Hidden || slices.ContainsFunc(skip, func(s string) bool {
			return strings.HasPrefix(flag.Name, s)
		}) {
			continue
		}

		if v, ok := configValue(ktx.FlagValue(flag)); ok {
			doc = append(doc, yaml.MapItem{Key: flag.Name, Value: v})
		}
	}

	return doc
}

// configValue converts a flag value to a YAML-encodable form. Named string
// types such as enum flags become plain strings; empty values are dropped.
func configValue(val any) (any, bool) {
	if val == nil {
		return nil, false
	}

	rv := reflect.ValueOf(val)

	switch rv.Kind() {
	case reflect.Bool:
		return rv.Bool(), true
	case reflect.String:
		return rv.String(), rv.Len() > 0
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return rv.Uint(), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	case reflect.Slice:
		if rv.Len() == 0 {
			return nil, false
		}

		list := make([]any, 0, rv.Len())

		for i := range rv.Len() {
			if v, ok := configValue(rv.Index(i).Interface()); ok {
				list = append(list, v)
			}
		}

		return list, true
	default:
		return fmt.Sprint(val), true
	}
}
