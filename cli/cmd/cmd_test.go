package cmd

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ardnew/sigil/lang"
)

// testContext returns a context whose commands read stdin from in and write
// to the returned buffer.
func testContext(t *testing.T, in string, opts ...lang.Option) (context.Context, *bytes.Buffer) {
	t.Helper()

	var out bytes.Buffer

	ctx := WithStreams(t.Context(), strings.NewReader(in), &out)
	ctx = WithEngine(ctx, lang.New(opts...))

	return ctx, &out
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	return path
}

func readSources(t *testing.T, srcs []source) []string {
	t.Helper()

	var got []string

	for _, s := range srcs {
		p, err := io.ReadAll(s.r)
		if err != nil {
			t.Fatal(err)
		}

		got = append(got, s.name+"="+string(p))
	}

	return got
}

func TestOpenSourcesDefaultsToStdin(t *testing.T) {
	ctx, _ := testContext(t, "from stdin")

	srcs, done, err := openSources(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer done()

	if got := readSources(t, srcs); len(got) != 1 || got[0] != "-=from stdin" {
		t.Errorf("sources = %v", got)
	}
}

func TestOpenSourcesDeduplicates(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.txt", "A")
	b := writeFile(t, dir, "b.txt", "B")

	link := filepath.Join(dir, "link.txt")
	if err := os.Symlink(a, link); err != nil {
		t.Skipf("symlink: %v", err)
	}

	t.Chdir(dir)

	ctx, _ := testContext(t, "S")

	srcs, done, err := openSources(ctx, []string{"-", a, "a.txt", link, b, "-"})
	if err != nil {
		t.Fatal(err)
	}
	defer done()

	got := readSources(t, srcs)
	want := []string{a + "=A", b + "=B", "-=S"}

	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("sources = %v, want %v", got, want)
	}
}

func TestOpenSourcesMissingFile(t *testing.T) {
	ctx, _ := testContext(t, "")

	_, _, err := openSources(ctx, []string{filepath.Join(t.TempDir(), "nope")})
	if !errors.Is(err, ErrReadSource) {
		t.Errorf("error = %v, want ErrReadSource", err)
	}
}

func TestEngineFromDefault(t *testing.T) {
	if engineFrom(t.Context()) != lang.Default() {
		t.Error("engineFrom() without engine should return the default engine")
	}
}

func TestErrorIs(t *testing.T) {
	err := ErrWriteConfig.With(pathAttr("x")).Wrap(ErrFileExists)

	if !errors.Is(err, ErrWriteConfig) || !errors.Is(err, ErrFileExists) {
		t.Errorf("errors.Is failed for %v", err)
	}

	if errors.Is(err, ErrReadData) {
		t.Error("unrelated sentinel matched")
	}

	if got := err.Error(); got != "write configuration file: file exists (use --force to overwrite)" {
		t.Errorf("Error() = %q", got)
	}
}
