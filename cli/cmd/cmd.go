package cmd

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/ardnew/sigil/lang"
)

type (
	contextKey struct{}
	engineKey  struct{}
	streamsKey struct{}
)

// WithContext returns a copy of ctx carrying the parsed kong context.
func WithContext(ctx context.Context, ktx *kong.Context) context.Context {
	return context.WithValue(ctx, contextKey{}, ktx)
}

func kongContextFrom(ctx context.Context) *kong.Context {
	ktx, _ := ctx.Value(contextKey{}).(*kong.Context)

	return ktx
}

// WithEngine returns a copy of ctx carrying the engine used by commands.
func WithEngine(ctx context.Context, eng *lang.Engine) context.Context {
	return context.WithValue(ctx, engineKey{}, eng)
}

// engineFrom returns the engine stored by [WithEngine], or the package
// default engine.
func engineFrom(ctx context.Context) *lang.Engine {
	if eng, ok := ctx.Value(engineKey{}).(*lang.Engine); ok && eng != nil {
		return eng
	}

	return lang.Default()
}

type streams struct {
	in  io.Reader
	out io.Writer
}

// WithStreams returns a copy of ctx whose commands read templates from in
// and write results to out instead of the process's standard streams.
func WithStreams(ctx context.Context, in io.Reader, out io.Writer) context.Context {
	return context.WithValue(ctx, streamsKey{}, streams{in: in, out: out})
}

func stdin(ctx context.Context) io.Reader {
	if s, ok := ctx.Value(streamsKey{}).(streams); ok && s.in != nil {
		return s.in
	}

	return os.Stdin
}

func stdout(ctx context.Context) io.Writer {
	if s, ok := ctx.Value(streamsKey{}).(streams); ok && s.out != nil {
		return s.out
	}

	if ktx := kongContextFrom(ctx); ktx != nil && ktx.Stdout != nil {
		return ktx.Stdout
	}

	return os.Stdout
}

// varsFrom returns the value of a kong interpolation variable.
func varsFrom(ctx context.Context, name string) (string, bool) {
	ktx := kongContextFrom(ctx)
	if ktx == nil {
		return "", false
	}

	v, ok := ktx.Model.Vars()[name]

	return v, ok
}

// stdinSource names standard input in a source list.
const stdinSource = "-"

// source is one template input.
type source struct {
	name string
	r    io.Reader
}

// fileKey identifies a file by device and inode so that the same file named
// through different paths or symlinks is read once.
type fileKey struct {
	dev uint64
	ino uint64
}

// openSources opens each named file once, in order. Every "-" collapses to a
// single standard input source placed last. With no names, standard input is
// the only source. The returned function closes the opened files.
func openSources(ctx context.Context, names []string) ([]source, func(), error) {
	if len(names) == 0 {
		return []source{{name: stdinSource, r: stdin(ctx)}}, func() {}, nil
	}

	var (
		srcs   []source
		files  []*os.File
		seen   = make(map[fileKey]struct{})
		hasStd bool
	)

	closeAll := func() {
		for _, f := range files {
			_ = f.Close()
		}
	}

	for _, name := range names {
		if name == stdinSource {
			hasStd = true

			continue
		}

		f, err := openUnique(name, seen)
		if err != nil {
			closeAll()

			return nil, nil, ErrReadSource.Wrap(err).With(pathAttr(name))
		}

		if f == nil {
			continue
		}

		files = append(files, f)
		srcs = append(srcs, source{name: name, r: f})
	}

	if hasStd {
		srcs = append(srcs, source{name: stdinSource, r: stdin(ctx)})
	}

	return srcs, closeAll, nil
}

// openUnique opens path unless a file with the same identity is in seen.
// A duplicate yields a nil file and nil error.
func openUnique(path string, seen map[fileKey]struct{}) (*os.File, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(resolved)
	if err != nil {
		return nil, err
	}

	if key, ok := makeFileKey(info); ok {
		if _, dup := seen[key]; dup {
			return nil, nil
		}

		seen[key] = struct{}{}
	}

	return os.Open(resolved)
}

func makeFileKey(info os.FileInfo) (fileKey, bool) {
	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return fileKey{}, false
	}

	return fileKey{dev: uint64(stat.Dev), ino: stat.Ino}, true
}
