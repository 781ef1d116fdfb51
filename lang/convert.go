package lang

import (
	"log/slog"
	"strings"
)

// Rep selects the shape of an expansion result.
type Rep uint8

const (
	// RepText flattens the result to a string.
	RepText Rep = iota
	// RepObject returns the list of raw part results.
	RepObject
	// RepArgument returns a lone result unchanged and concatenates
	// several as text.
	RepArgument
	// RepVoid discards the result.
	RepVoid
	// RepLast returns the final part result.
	RepLast
	// RepVarRef is the shape used for assignment targets. At the top
	// level it behaves like RepObject.
	RepVarRef
)

var repName = [...]string{
	RepText:     "text",
	RepObject:   "object",
	RepArgument: "argument",
	RepVoid:     "void",
	RepLast:     "last",
	RepVarRef:   "varref",
}

func (r Rep) String() string {
	if int(r) < len(repName) {
		return repName[r]
	}

	return "invalid"
}

// Reps returns the names accepted by [ParseRep].
func Reps() []string {
	return []string{"text", "object", "argument", "void", "last"}
}

// ParseRep parses a representation name.
func ParseRep(s string) (Rep, error) {
	for i, name := range repName {
		if strings.EqualFold(strings.TrimSpace(s), name) {
			return Rep(i), nil
		}
	}

	return RepText, ErrArgument.With(slog.String("representation", s))
}

// convert shapes the accumulated part results of a base-string expansion.
func convert(acc []Value, rep Rep) Value {
	switch rep {
	case RepObject, RepVarRef:
		return ListOf(acc...)

	case RepLast:
		if len(acc) == 0 {
			return Null()
		}

		return acc[len(acc)-1]

	case RepVoid:
		return Null()

	case RepArgument:
		switch len(acc) {
		case 0:
			return String("")
		case 1:
			return acc[0]
		}

		return String(joinText(acc))

	case RepText:
		return String(joinText(acc))

	default:
		return String(joinText(acc))
	}
}

func joinText(vs []Value) string {
	var b strings.Builder

	for _, v := range vs {
		v.writeText(&b)
	}

	return b.String()
}
