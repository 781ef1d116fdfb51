package repl

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
	"github.com/sahilm/fuzzy"

	"github.com/ardnew/sigil/lang"
)

// ctrlCommands are the control-mode commands.
var ctrlCommands = []string{"help", "vars", "funcs", "rep", "strict", "reset", "clear", "quit"}

// isWordBoundary reports whether r ends a completion word. Hyphens and
// question marks belong to words since function names use them.
func isWordBoundary(r rune, d lang.Delims) bool {
	return r == d.Open || r == d.Close || r == '.' ||
		r == '"' || r == '`' || unicode.IsSpace(r)
}

// wordBounds returns the word around cursor and its byte offsets in input.
// The word is empty when the cursor sits on a boundary.
func wordBounds(input string, cursor int, d lang.Delims) (word string, start, end int) {
	cursor = min(cursor, len(input))

	start = cursor
	for start > 0 {
		r, size := utf8.DecodeLastRuneInString(input[:start])
		if isWordBoundary(r, d) {
			break
		}

		start -= size
	}

	end = cursor
	for end < len(input) {
		r, size := utf8.DecodeRuneInString(input[end:])
		if isWordBoundary(r, d) {
			break
		}

		end += size
	}

	return input[start:end], start, end
}

// parentPath returns the dotted access chain that leads to the word at
// wordStart. For "(upper user.address.ci" and the word "ci" it returns
// "user.address". A word that does not follow a dot has no parent.
func parentPath(input string, wordStart int, d lang.Delims) string {
	prefix := input[:wordStart]
	if !strings.HasSuffix(prefix, ".") {
		return ""
	}

	prefix = strings.TrimRight(prefix, ".")

	pos := len(prefix)
	for pos > 0 {
		r, size := utf8.DecodeLastRuneInString(prefix[:pos])
		if r != '.' && isWordBoundary(r, d) {
			break
		}

		pos -= size
	}

	return prefix[pos:]
}

// candidates returns completion names for the children of parent. The top
// level offers function names and context keys; a path into the context
// offers the keys or indices of the value it names.
func candidates(eng *lang.Engine, vars *lang.Map, parent string) []string {
	if parent == "" {
		names := append(eng.Names(), vars.Keys()...)

		return compact(names)
	}

	v := lang.MapValue(vars)

	for _, seg := range strings.Split(parent, ".") {
		switch v.Kind() {
		case lang.KindMap:
			next, ok := v.Map().Get(seg)
			if !ok {
				return nil
			}

			v = next
		case lang.KindList:
			i, err := strconv.Atoi(seg)
			if err != nil {
				return nil
			}

			next, ok := v.List().At(i)
			if !ok {
				return nil
			}

			v = next
		default:
			return nil
		}
	}

	switch v.Kind() {
	case lang.KindMap:
		return v.Map().Keys()
	case lang.KindList:
		idx := make([]string, v.List().Len())
		for i := range idx {
			idx[i] = strconv.Itoa(i)
		}

		return idx
	default:
		return nil
	}
}

// compact removes repeated names, keeping the first occurrence.
func compact(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := names[:0]

	for _, n := range names {
		if _, ok := seen[n]; ok {
			continue
		}

		seen[n] = struct{}{}
		out = append(out, n)
	}

	return out
}

// computeMatches ranks the candidates for the word at the cursor. An empty
// word only lists candidates after a dot, so the hint line stays visible on
// an empty prompt.
func (m model) computeMatches() (matches fuzzy.Matches, wordStart, wordEnd int) {
	input := m.input.Value()
	d := m.eng.Delims()

	word, start, end := wordBounds(input, m.input.Position(), d)

	var names []string

	if m.mode == modeCtrl {
		if word == "" {
			return nil, start, end
		}

		names = ctrlCommands
	} else {
		parent := parentPath(input, start, d)
		names = candidates(m.eng, m.vars, parent)

		if word == "" {
			if parent == "" || len(names) == 0 {
				return nil, start, end
			}

			matches = make(fuzzy.Matches, len(names))
			for i, n := range names {
				matches[i] = fuzzy.Match{Str: n, Index: i}
			}

			return matches, start, end
		}
	}

	return fuzzy.Find(word, names), start, end
}

// callHint finds the innermost unclosed call before cursor and returns its
// name and the index of the argument under the cursor. Closed groups inside
// the call count as one argument each.
func callHint(input string, cursor int, d lang.Delims) (name string, arg int, ok bool) {
	cursor = min(cursor, len(input))

	var opens []int

	for i, r := range input[:cursor] {
		switch r {
		case d.Open:
			opens = append(opens, i)
		case d.Close:
			if len(opens) > 0 {
				opens = opens[:len(opens)-1]
			}
		}
	}

	if len(opens) == 0 {
		return "", 0, false
	}

	inner := input[opens[len(opens)-1]+utf8.RuneLen(d.Open) : cursor]

	var (
		flat  strings.Builder
		depth int
	)

	for _, r := range inner {
		switch {
		case r == d.Open:
			if depth == 0 {
				flat.WriteByte(0)
			}

			depth++
		case r == d.Close:
			depth--
		case depth == 0:
			flat.WriteRune(r)
		}
	}

	fields := strings.Fields(flat.String())
	if len(fields) == 0 {
		return "", 0, false
	}

	arg = len(fields) - 1
	if strings.HasSuffix(inner, " ") {
		arg++
	}

	return fields[0], arg, true
}

// renderCandidateBar renders the matches on one line, ellipsized to width.
func renderCandidateBar(
	matches fuzzy.Matches,
	selected int,
	tabActive bool,
	width int,
	isFunc func(string) bool,
) string {
	if len(matches) == 0 || width <= 0 {
		return ""
	}

	const sep = "  "

	ellipsis := hintStyle.Render("...")
	reserve := lipgloss.Width(ellipsis)

	var b strings.Builder

	used := 0

	for i, match := range matches {
		rendered := renderCandidate(match, tabActive && i == selected, isFunc(match.Str))

		w := lipgloss.Width(rendered)
		if i > 0 {
			w += len(sep)
		}

		if i > 0 && used+w+reserve > width {
			b.WriteString(sep + ellipsis)

			break
		}

		if i > 0 {
			b.WriteString(sep)
		}

		b.WriteString(rendered)

		used += w
	}

	return b.String()
}

// renderCandidate highlights the matched characters of one candidate.
// Functions get a "()" suffix that is not part of the completion.
func renderCandidate(match fuzzy.Match, selected, fn bool) string {
	base, highlight := suggestionStyle, matchStyle
	if selected {
		base, highlight = selectedStyle, selectedMatchStyle
	}

	matched := make(map[int]bool, len(match.MatchedIndexes))
	for _, idx := range match.MatchedIndexes {
		matched[idx] = true
	}

	var b strings.Builder

	for i, r := range match.Str {
		if matched[i] {
			b.WriteString(highlight.Render(string(r)))
		} else {
			b.WriteString(base.Render(string(r)))
		}
	}

	if fn {
		b.WriteString(base.Render("()"))
	}

	return b.String()
}
