package lang

import (
	"errors"
	"log/slog"
	"strconv"
	"strings"
)

// Sentinel errors. Every error returned by this package matches one of them
// with [errors.Is].
var (
	ErrParse              = NewError("parse error")
	ErrUnmatchedDelimiter = NewError("unmatched delimiter")
	ErrUnexpectedEnd      = NewError("unexpected end of input")
	ErrMaxDepthExceeded   = NewError("maximum nesting depth exceeded")
	ErrUnknownFunction    = NewError("unknown function")
	ErrUnresolvedVariable = NewError("unresolved variable")
	ErrNotAssignable      = NewError("target is not assignable")
	ErrArgument           = NewError("invalid argument")
	ErrLoopControl        = NewError("loop control outside of a loop")
	ErrLoopLimit          = NewError("loop iteration limit exceeded")
	ErrRaised             = NewError("raised")
	ErrExprCompile        = NewError("expression compilation failed")
	ErrExprEvaluate       = NewError("expression evaluation failed")
	ErrReadInput          = NewError("failed to read input")
	ErrEncode             = NewError("encode failed")
	ErrDecode             = NewError("decode failed")
)

// Error is an error with structured logging attributes. It implements
// [slog.LogValuer].
type Error struct {
	base  *Error // sentinel this error derives from
	msg   string
	err   error
	attrs []slog.Attr
}

// NewError returns a new sentinel error.
func NewError(msg string) *Error {
	return &Error{msg: msg}
}

// WrapError returns err as an [*Error], wrapping it if necessary.
func WrapError(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}

	return &Error{err: err}
}

func (e *Error) Error() string {
	part := make([]string, 0, 2)

	if e.msg != "" {
		part = append(part, e.msg)
	}

	if e.err != nil {
		part = append(part, e.err.Error())
	}

	return strings.Join(part, ": ")
}

func (e *Error) Unwrap() error { return e.err }

// Is reports whether target is the sentinel e was derived from.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)

	return ok && (e == t || e.root() == t)
}

func (e *Error) root() *Error {
	if e.base != nil {
		return e.base
	}

	return e
}

func (e *Error) LogValue() slog.Value {
	attrs := make([]slog.Attr, 0, len(e.attrs)+2)

	if e.msg != "" {
		attrs = append(attrs, slog.String("error", e.msg))
	}

	if e.err != nil {
		attrs = append(attrs, slog.Any("cause", e.err))
	}

	return slog.GroupValue(append(attrs, e.attrs...)...)
}

// Wrap returns a copy of e with err as its cause.
func (e *Error) Wrap(err error) *Error {
	return &Error{base: e.root(), msg: e.msg, err: err, attrs: e.attrs}
}

// With returns a copy of e with attrs appended.
func (e *Error) With(attrs ...slog.Attr) *Error {
	return &Error{
		base:  e.root(),
		msg:   e.msg,
		err:   e.err,
		attrs: append(e.attrs[:len(e.attrs):len(e.attrs)], attrs...),
	}
}

// Attr returns the value of the first attribute with the given key.
func (e *Error) Attr(key string) (slog.Value, bool) {
	for _, a := range e.attrs {
		if a.Key == key {
			return a.Value, true
		}
	}

	return slog.Value{}, false
}

// ParseError reports malformed template source. It unwraps to its Kind,
// either [ErrUnmatchedDelimiter] or [ErrUnexpectedEnd].
type ParseError struct {
	Kind   *Error
	Source string
	Offset int // rune offset into Source
	Line   int
	Column int
}

func newParseError(kind *Error, src []rune, offset int) *ParseError {
	line, col := 1, 1

	for _, r := range src[:min(offset, len(src))] {
		if r == '\n' {
			line++
			col = 1
		} else {
			col++
		}
	}

	return &ParseError{
		Kind:   kind,
		Source: string(src),
		Offset: offset,
		Line:   line,
		Column: col,
	}
}

func (e *ParseError) Error() string {
	var b strings.Builder

	b.WriteString(e.Kind.Error())
	b.WriteString(" at line ")
	b.WriteString(strconv.Itoa(e.Line))
	b.WriteString(", column ")
	b.WriteString(strconv.Itoa(e.Column))

	if snippet := e.Snippet(); snippet != "" {
		b.WriteString(":\n")
		b.WriteString(snippet)
	}

	return b.String()
}

func (e *ParseError) Unwrap() error { return e.Kind }

// Snippet renders the offending source line with a caret under the column.
func (e *ParseError) Snippet() string {
	lines := strings.Split(e.Source, "\n")
	if e.Line < 1 || e.Line > len(lines) {
		return ""
	}

	num := strconv.Itoa(e.Line)

	var b strings.Builder

	b.WriteString("  " + num + " | " + lines[e.Line-1] + "\n")
	// 2 leading spaces and " | "
	b.WriteString(strings.Repeat(" ", len(num)+5+max(e.Column-1, 0)))
	b.WriteString("^")

	return b.String()
}

func (e *ParseError) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("error", e.Kind.Error()),
		slog.Int("line", e.Line),
		slog.Int("column", e.Column),
		slog.Int("offset", e.Offset),
	)
}
