package parser

import "errors"

var (
	// ErrSyntax wraps all lexical and grammatical errors.
	ErrSyntax = errors.New("syntax error")
	// ErrNoLineNumber means a non-blank source line lacks a leading
	// numeric label.
	ErrNoLineNumber = errors.New("missing line number")
	// ErrEmptyProgram means the source contained no program lines.
	ErrEmptyProgram = errors.New("empty program")
)
