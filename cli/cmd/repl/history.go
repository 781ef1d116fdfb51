package repl

import (
	"bufio"
	"bytes"
	"errors"
	"io/fs"
	"os"
	"strings"
	"sync"

	"github.com/natefinch/atomic"
)

const baseHistory = "history.utf8"

// defaultHistoryMax bounds the history when no limit is given.
const defaultHistoryMax = 1000

// HistoryEntry is one submitted line and the mode it was entered in.
type HistoryEntry struct {
	Line string
	Mode inputMode
}

// History is a bounded, de-duplicated list of submitted lines persisted to a
// file. A History without a path is kept in memory only.
type History struct {
	mu      sync.RWMutex
	path    string
	limit   int
	entries []HistoryEntry
}

func NewHistory(path string, limit int) *History {
	if limit <= 0 {
		limit = defaultHistoryMax
	}

	return &History{path: path, limit: limit}
}

// Each line of the history file is prefixed with the mode it was entered in.
var modePrefix = map[inputMode]string{modeEval: "E:", modeCtrl: "C:"}

// Load replaces the entries with the contents of the history file. A missing
// file is not an error.
func (h *History) Load() error {
	if h.path == "" {
		return nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	file, err := os.Open(h.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	if err != nil {
		return err
	}
	defer file.Close()

	h.entries = h.entries[:0]

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		entry := HistoryEntry{Line: line, Mode: modeEval}

		for mode, prefix := range modePrefix {
			if s, ok := strings.CutPrefix(line, prefix); ok {
				entry = HistoryEntry{Line: s, Mode: mode}

				break
			}
		}

		h.entries = append(h.entries, entry)
	}

	h.trim()

	return scanner.Err()
}

// Add appends line, first removing an earlier identical entry in the same
// mode. Blank lines are ignored.
func (h *History) Add(line string, mode inputMode) error {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	n := len(h.entries)
	if n > 0 && h.entries[n-1] == (HistoryEntry{line, mode}) {
		return nil
	}

	rewrite := false

	for i, e := range h.entries {
		if e.Line == line && e.Mode == mode {
			h.entries = append(h.entries[:i], h.entries[i+1:]...)
			rewrite = true

			break
		}
	}

	h.entries = append(h.entries, HistoryEntry{Line: line, Mode: mode})

	if h.trim() {
		rewrite = true
	}

	if h.path == "" {
		return nil
	}

	if rewrite {
		return h.save()
	}

	file, err := os.OpenFile(h.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	defer file.Close()

	_, err = file.WriteString(modePrefix[mode] + line + "\n")

	return err
}

// Entry returns the i-th entry, oldest first.
func (h *History) Entry(i int) (HistoryEntry, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if i < 0 || i >= len(h.entries) {
		return HistoryEntry{}, ErrOutOfBounds
	}

	return h.entries[i], nil
}

func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.entries)
}

// Entries returns a copy of all entries, oldest first.
func (h *History) Entries() []HistoryEntry {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return append([]HistoryEntry(nil), h.entries...)
}

// trim drops the oldest entries beyond the limit. Must be called with h.mu
// held.
func (h *History) trim() bool {
	over := len(h.entries) - h.limit
	if over <= 0 {
		return false
	}

	h.entries = append(h.entries[:0], h.entries[over:]...)

	return true
}

// save atomically replaces the history file. Must be called with h.mu held.
func (h *History) save() error {
	var b bytes.Buffer

	for _, e := range h.entries {
		b.WriteString(modePrefix[e.Mode] + e.Line + "\n")
	}

	return atomic.WriteFile(h.path, &b)
}
