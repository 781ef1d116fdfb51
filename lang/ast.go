package lang

import (
	"fmt"
	"io"
	"strings"
)

// PartKind tags the node kinds of a parsed [Template].
type PartKind uint8

const (
	// PartString is literal text from a plain-text scan.
	PartString PartKind = iota
	// PartIdentifier is a bare word from a path-list scan.
	PartIdentifier
	// PartAccess is the "." separator of a variable path.
	PartAccess
	// PartTemplate is a nested template, expanded when reached.
	PartTemplate
	// PartBaseString is a quoted literal whose parts are concatenated.
	PartBaseString
)

func (k PartKind) String() string {
	switch k {
	case PartString:
		return "string"
	case PartIdentifier:
		return "identifier"
	case PartAccess:
		return "access"
	case PartTemplate:
		return "template"
	case PartBaseString:
		return "base-string"
	default:
		return "invalid"
	}
}

// Part is a node of a [Statement]. Text is set for string and identifier
// leaves; Sub is set for template and base-string nodes.
type Part struct {
	Kind PartKind
	Text string
	Sub  *Template
}

// leaf reports whether p carries literal text.
func (p *Part) leaf() bool {
	return p.Kind == PartString || p.Kind == PartIdentifier
}

// Statement is one whitespace-separated form of a template: a function name,
// an argument, or a variable path.
type Statement struct {
	Parts []*Part
}

// Template is a parsed template. It is immutable and safe to expand
// concurrently against different contexts.
type Template struct {
	Statements []*Statement
}

// Delims is an open and close delimiter pair.
type Delims struct {
	Open, Close rune
}

var (
	// DefaultDelims are the delimiters of templates.
	DefaultDelims = Delims{'(', ')'}
	// altDelims are the delimiters inside backtick literals.
	altDelims = Delims{'{', '}'}
)

// Source renders t back to template syntax using d.
func (t *Template) Source(d Delims) string {
	var b strings.Builder

	t.render(&b, d, false)

	return b.String()
}

// String renders t with [DefaultDelims].
func (t *Template) String() string { return t.Source(DefaultDelims) }

func (t *Template) render(b *strings.Builder, d Delims, pathList bool) {
	for i, s := range t.Statements {
		if i > 0 && pathList {
			b.WriteByte(' ')
		}

		s.render(b, d, pathList)
	}
}

// Source renders s back to template syntax using d, as it would appear in an
// argument list.
func (s *Statement) Source(d Delims) string {
	var b strings.Builder

	s.render(&b, d, true)

	return b.String()
}

func (s *Statement) render(b *strings.Builder, d Delims, pathList bool) {
	for _, p := range s.Parts {
		switch p.Kind {
		case PartString, PartIdentifier:
			b.WriteString(p.Text)
		case PartAccess:
			b.WriteByte('.')
		case PartTemplate:
			b.WriteRune(d.Open)
			p.Sub.render(b, d, true)
			b.WriteRune(d.Close)
		case PartBaseString:
			if pathList {
				b.WriteByte('"')
			}

			p.Sub.render(b, d, false)

			if pathList {
				b.WriteByte('"')
			}
		}
	}
}

// Print writes an indented tree of t to w.
func (t *Template) Print(w io.Writer) error {
	return t.print(w, 0)
}

func (t *Template) print(w io.Writer, depth int) error {
	indent := strings.Repeat("  ", depth)

	for i, s := range t.Statements {
		if _, err := fmt.Fprintf(w, "%sstatement %d\n", indent, i); err != nil {
			return err
		}

		for _, p := range s.Parts {
			var err error

			switch p.Kind {
			case PartString, PartIdentifier:
				_, err = fmt.Fprintf(w, "%s  %s %q\n", indent, p.Kind, p.Text)
			case PartAccess:
				_, err = fmt.Fprintf(w, "%s  %s\n", indent, p.Kind)
			case PartTemplate, PartBaseString:
				if _, err = fmt.Fprintf(w, "%s  %s\n", indent, p.Kind); err == nil {
					err = p.Sub.print(w, depth+2)
				}
			}

			if err != nil {
				return err
			}
		}
	}

	return nil
}

// Value converts t to a map/list tree for structured output.
func (t *Template) Value() Value {
	stmts := NewList()

	for _, s := range t.Statements {
		parts := NewList()

		for _, p := range s.Parts {
			node := NewMap()
			node.Set("kind", String(p.Kind.String()))

			switch p.Kind {
			case PartString, PartIdentifier:
				node.Set("text", String(p.Text))
			case PartTemplate, PartBaseString:
				node.Set("template", p.Sub.Value())
			case PartAccess:
			}

			parts.Append(MapValue(node))
		}

		stmts.Append(ListValue(parts))
	}

	return ListValue(stmts)
}
