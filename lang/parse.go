package lang

import (
	"log/slog"
	"strings"
	"unicode"
)

// flush selects what happens to a completed capture.
type flush uint8

const (
	flushTemplate  flush = iota // nested template node
	flushParse                  // quoted literal, one base-string node
	flushMerge                  // spliced into the enclosing statement
	flushMergeAlt               // spliced, parsed with altDelims
	flushTrimMerge              // lines trimmed, then spliced
	flushAsIs                   // literal text
)

// DefaultMaxDepth bounds template nesting during both parse and expansion.
const DefaultMaxDepth = 100

// parser holds what is shared by every nested scan of one source.
type parser struct {
	root     []rune
	maxDepth int
}

func parseSource(src string, d Delims, maxDepth int) (*Template, error) {
	p := &parser{root: []rune(src), maxDepth: maxDepth}

	return p.parse(p.root, 0, d, false, 0)
}

// parse scans src, which starts at rune offset base of the root source.
// In a path list, whitespace separates statements and '.' is an access part.
func (p *parser) parse(
	src []rune,
	base int,
	d Delims,
	pathList bool,
	depth int,
) (*Template, error) {
	if depth > p.maxDepth {
		return nil, ErrMaxDepthExceeded.With(
			slog.Int("depth", depth),
			slog.Int("offset", base),
		)
	}

	s := scanner{
		parser:   p,
		src:      src,
		base:     base,
		delims:   d,
		pathList: pathList,
		depth:    depth,
		tmpl:     &Template{},
		stmt:     &Statement{},
	}

	if err := s.run(); err != nil {
		return nil, err
	}

	t := s.finish()

	// Deferred to the outermost call so that backslashes protecting
	// delimiters are seen by every nested scan first.
	if depth == 0 {
		unescapeTemplate(t)
	}

	return t, nil
}

func (p *parser) errorAt(kind *Error, offset int) error {
	return newParseError(kind, p.root, offset)
}

type scanner struct {
	*parser

	src      []rune
	base     int
	delims   Delims
	pathList bool
	depth    int
	acc      []rune
	stmt     *Statement
	tmpl     *Template
}

func (s *scanner) run() error {
	for i := 0; i < len(s.src); {
		c := s.src[i]

		switch {
		case c == '\\':
			s.acc = append(s.acc, s.src[i:min(i+2, len(s.src))]...)
			i += 2

		case c == s.delims.Open:
			kind, skip := flushTemplate, 1

			if i+1 < len(s.src) {
				switch s.src[i+1] {
				case '<':
					kind, skip = flushMerge, 2
				case '@':
					kind, skip = flushTrimMerge, 2
				case ':':
					kind, skip = flushAsIs, 2
				}
			}

			end, err := s.balanced(i, i+skip)
			if err != nil {
				return err
			}

			if err := s.emit(kind, s.src[i+skip:end], i+skip); err != nil {
				return err
			}

			i = end + 1

		case c == s.delims.Close:
			return s.errorAt(ErrUnmatchedDelimiter, s.base+i)

		case s.pathList && unicode.IsSpace(c):
			s.flushLeaf()
			s.endStatement()

			i++

		case s.pathList && c == '.':
			s.flushLeaf()
			s.stmt.Parts = append(s.stmt.Parts, &Part{Kind: PartAccess})

			i++

		case s.pathList && (c == '"' || c == '\'' || c == '`'):
			end, err := s.quoted(i)
			if err != nil {
				return err
			}

			kind := flushParse
			if c == '`' {
				kind = flushMergeAlt
			}

			if err := s.emit(kind, s.src[i+1:end], i+1); err != nil {
				return err
			}

			i = end + 1

		default:
			s.acc = append(s.acc, c)
			i++
		}
	}

	s.flushLeaf()
	s.endStatement()

	return nil
}

// balanced returns the index of the close delimiter matching the open
// delimiter at openAt, scanning from start.
func (s *scanner) balanced(openAt, start int) (int, error) {
	nest := 0

	for j := start; j < len(s.src); j++ {
		switch s.src[j] {
		case '\\':
			j++
		case s.delims.Open:
			nest++
		case s.delims.Close:
			if nest == 0 {
				return j, nil
			}

			nest--
		}
	}

	return 0, s.errorAt(ErrUnexpectedEnd, s.base+openAt)
}

// quoted returns the index of the quote closing the one at openAt.
func (s *scanner) quoted(openAt int) (int, error) {
	q := s.src[openAt]

	for j := openAt + 1; j < len(s.src); j++ {
		switch s.src[j] {
		case '\\':
			j++
		case q:
			return j, nil
		}
	}

	return 0, s.errorAt(ErrUnexpectedEnd, s.base+openAt)
}

func (s *scanner) emit(kind flush, body []rune, offset int) error {
	s.flushLeaf()

	switch kind {
	case flushAsIs:
		s.push(&Part{Kind: PartString, Text: asIs(body, s.delims)})

		return nil

	case flushTemplate:
		sub, err := s.parse(body, s.base+offset, s.delims, true, s.depth+1)
		if err != nil {
			return err
		}

		s.push(&Part{Kind: PartTemplate, Sub: sub})

		return nil

	case flushParse:
		sub, err := s.parse(body, s.base+offset, s.delims, false, s.depth+1)
		if err != nil {
			return err
		}

		s.push(&Part{Kind: PartBaseString, Sub: sub})

		return nil

	case flushMerge, flushMergeAlt, flushTrimMerge:
		d := s.delims
		if kind == flushMergeAlt {
			d = altDelims
		}

		if kind == flushTrimMerge {
			body = trimLines(body)
		}

		sub, err := s.parse(body, s.base+offset, d, false, s.depth+1)
		if err != nil {
			return err
		}

		for _, st := range sub.Statements {
			s.stmt.Parts = append(s.stmt.Parts, st.Parts...)
		}

		return nil

	default:
		return nil
	}
}

func (s *scanner) push(p *Part) {
	s.stmt.Parts = append(s.stmt.Parts, p)
}

func (s *scanner) flushLeaf() {
	if len(s.acc) == 0 {
		return
	}

	kind := PartString
	if s.pathList {
		kind = PartIdentifier
	}

	s.push(&Part{Kind: kind, Text: string(s.acc)})
	s.acc = s.acc[:0]
}

func (s *scanner) endStatement() {
	if len(s.stmt.Parts) == 0 {
		return
	}

	s.tmpl.Statements = append(s.tmpl.Statements, s.stmt)
	s.stmt = &Statement{}
}

// finish strips empty leaves from the ends of each statement and guarantees
// at least one statement holding at least one part.
func (s *scanner) finish() *Template {
	for _, st := range s.tmpl.Statements {
		parts := st.Parts

		for len(parts) > 0 && parts[0].leaf() && parts[0].Text == "" {
			parts = parts[1:]
		}

		for len(parts) > 0 && parts[len(parts)-1].leaf() && parts[len(parts)-1].Text == "" {
			parts = parts[:len(parts)-1]
		}

		if len(parts) == 0 {
			parts = []*Part{{Kind: PartString}}
		}

		st.Parts = parts
	}

	if len(s.tmpl.Statements) == 0 {
		s.tmpl.Statements = []*Statement{{Parts: []*Part{{Kind: PartString}}}}
	}

	return s.tmpl
}

// asIs returns the literal text of an as-is capture. Content that does not
// start with '<', '[' or a space is wrapped back in the delimiters; a single
// leading space is dropped.
func asIs(body []rune, d Delims) string {
	if len(body) > 0 {
		switch body[0] {
		case '<', '[':
			return string(body)
		case ' ':
			return string(body[1:])
		}
	}

	return string(d.Open) + string(body) + string(d.Close)
}

func trimLines(body []rune) []rune {
	lines := strings.Split(strings.TrimSpace(string(body)), "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(l)
	}

	return []rune(strings.Join(lines, "\n"))
}

func unescapeTemplate(t *Template) {
	for _, st := range t.Statements {
		for _, p := range st.Parts {
			switch {
			case p.leaf():
				p.Text = unescape(p.Text)
			case p.Sub != nil:
				unescapeTemplate(p.Sub)
			}
		}
	}
}

func unescape(s string) string {
	if !strings.ContainsRune(s, '\\') {
		return s
	}

	rs := []rune(s)

	var b strings.Builder

	b.Grow(len(s))

	for i := 0; i < len(rs); i++ {
		if rs[i] != '\\' || i+1 == len(rs) {
			b.WriteRune(rs[i])

			continue
		}

		i++

		switch rs[i] {
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		case 'f':
			b.WriteByte('\f')
		case 'v':
			b.WriteByte('\v')
		case 't':
			b.WriteByte('\t')
		case 's':
			b.WriteByte(' ')
		default:
			b.WriteRune(rs[i])
		}
	}

	return b.String()
}
