package repl

import "errors"

var (
	ErrOutOfBounds = errors.New("index out of range")
	ErrNoEngine    = errors.New("no template engine")
)
