package lang

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/ardnew/mung"
)

// registerHost installs functions that read the host environment. They are
// plain Go functions adapted through [Registry.Register].
func (e *Engine) registerHost() {
	host := map[string]any{
		"env":            hostEnv,
		"cwd":            hostCwd,
		"hostname":       hostHostname,
		"platform":       hostPlatform,
		"path-abs":       pathAbs,
		"path-join":      filepath.Join,
		"path-rel":       pathRel,
		"file-exists":    fileExists,
		"dir?":           fileIsDir,
		"path-prefix":    pathPrefix,
		"path-prefix-if": pathPrefixDirs,
	}

	for name, fn := range host {
		f, err := reflectFunc(name, fn)
		if err != nil {
			panic(err)
		}

		e.registry.builtin(name, f)
	}
}

// hostEnv returns the named environment variable, or the first fallback
// when it is unset.
func hostEnv(name string, fallback ...string) string {
	if v, ok := os.LookupEnv(name); ok || len(fallback) == 0 {
		return v
	}

	return fallback[0]
}

func hostCwd() string {
	cwd, err := os.Getwd()
	if err != nil {
		return pathAbs(".")
	}

	return cwd
}

func hostHostname() string {
	h, err := os.Hostname()
	if err != nil {
		return ""
	}

	return h
}

func hostPlatform() string { return runtime.GOOS + "/" + runtime.GOARCH }

func fileExists(path string) bool {
	_, err := os.Stat(path)

	return !os.IsNotExist(err)
}

func fileIsDir(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}

	return info.IsDir()
}

func pathAbs(path string) string {
	p, err := filepath.Abs(path)
	if err != nil {
		return path
	}

	return p
}

func pathRel(from, to string) string {
	p, err := filepath.Rel(pathAbs(from), pathAbs(to))
	if err != nil {
		return filepath.Join(from, to)
	}

	return p
}

// pathPrefix prepends prefix to the path list subject, dropping duplicates.
func pathPrefix(subject string, prefix ...string) string {
	return mung.Make(
		mung.WithSubjectItems(subject),
		mung.WithDelim(string(os.PathListSeparator)),
		mung.WithPrefixItems(prefix...),
	).String()
}

// pathPrefixDirs is pathPrefix keeping only directories that exist.
func pathPrefixDirs(subject string, prefix ...string) string {
	return mung.Make(
		mung.WithSubjectItems(subject),
		mung.WithDelim(string(os.PathListSeparator)),
		mung.WithPrefixItems(prefix...),
		mung.WithFilter(fileIsDir),
	).String()
}
