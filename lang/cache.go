package lang

import (
	"io"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/klauspost/readahead"
	"github.com/zeebo/xxh3"
)

// DefaultCacheSize bounds the parsed templates and expression programs one
// engine memoizes.
const DefaultCacheSize = 1024

// boundedCache is a concurrent map holding at most limit entries. Storing
// past the limit empties it; entries are cheap to rebuild.
type boundedCache struct {
	m     sync.Map
	n     atomic.Int64
	limit int
}

func (c *boundedCache) load(key any) (any, bool) { return c.m.Load(key) }

// loadOrStore returns the entry for key, storing v when there is none. With
// a zero limit nothing is stored and v is returned.
func (c *boundedCache) loadOrStore(key, v any) (actual any, loaded bool) {
	if actual, ok := c.m.Load(key); ok {
		return actual, true
	}

	if c.limit <= 0 {
		return v, false
	}

	if c.n.Load() >= int64(c.limit) {
		c.clear()
	}

	actual, loaded = c.m.LoadOrStore(key, v)
	if !loaded {
		c.n.Add(1)
	}

	return actual, loaded
}

func (c *boundedCache) clear() {
	c.m.Clear()
	c.n.Store(0)
}

// len reports the number of entries. It is approximate under concurrent
// stores.
func (c *boundedCache) len() int { return int(c.n.Load()) }

// cached is one memoized parse. Templates are immutable, so a cached tree is
// shared by every expansion of the same source.
type cached struct {
	once  sync.Once
	src   string
	delim Delims
	tmpl  *Template
	err   error
}

func cacheKey(src string, d Delims) uint64 {
	return xxh3.HashString(string(d.Open) + string(d.Close) + "\x00" + src)
}

// Parse parses src with the engine delimiters. Results are cached by source.
func (e *Engine) Parse(src string) (*Template, error) {
	return e.ParseWith(src, e.delims)
}

// ParseWith parses src with the delimiters d.
func (e *Engine) ParseWith(src string, d Delims) (*Template, error) {
	key := cacheKey(src, d)
	entry := &cached{src: src, delim: d}

	v, hit := e.cache.loadOrStore(key, entry)

	c, _ := v.(*cached)
	if c.src != src || c.delim != d {
		e.logger.Trace("cache collision", slog.String("key", strconv.FormatUint(key, 36)))

		return parseSource(src, d, e.maxDepth)
	}

	c.once.Do(func() {
		c.tmpl, c.err = parseSource(src, d, e.maxDepth)

		e.logger.Trace("parse",
			slog.Int("source_bytes", len(src)),
			slog.Bool("ok", c.err == nil))
	})

	if hit {
		e.logger.Trace("cache hit", slog.String("key", strconv.FormatUint(key, 36)))
	}

	return c.tmpl, c.err
}

// ParseReader reads all of r and parses it.
func (e *Engine) ParseReader(r io.Reader) (*Template, error) {
	ra := readahead.NewReader(r)
	defer ra.Close()

	data, err := io.ReadAll(ra)
	if err != nil {
		return nil, ErrReadInput.Wrap(err).With(slog.String("source", "reader"))
	}

	e.logger.Trace("read input",
		slog.Int("source_bytes", len(data)),
		slog.Bool("read_ahead", true))

	return e.Parse(string(data))
}

// ClearCache forgets every memoized parse and expression program.
func (e *Engine) ClearCache() {
	e.cache.clear()
	e.programs.clear()
}
