package parser

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

type tokenKind int

const (
	tkEOF tokenKind = iota
	tkNumber
	tkString
	tkIdent
	tkOperator
	tkLParen
	tkRParen
	tkSemicolon
)

func (k tokenKind) String() string {
	switch k {
	case tkEOF:
		return "end of line"
	case tkNumber:
		return "number"
	case tkString:
		return "string"
	case tkIdent:
		return "identifier"
	case tkOperator:
		return "operator"
	case tkLParen:
		return "'('"
	case tkRParen:
		return "')'"
	case tkSemicolon:
		return "';'"
	}
	return "unknown"
}

// token is one lexeme with its 1-based start column in the source line.
type token struct {
	kind   tokenKind
	text   string
	number float64
	column int
}

// lexLine tokenizes the statement portion of a program line. The column
// offset positions tokens relative to the full line, line-number prefix
// included.
func lexLine(src string, offset int) ([]token, error) {
	var toks []token
	i := 0
	for i < len(src) {
		c := src[i]
		col := offset + i + 1

		switch {
		case c == ' ' || c == '\t':
			i++

		case c >= '0' && c <= '9' || c == '.':
			start := i
			for i < len(src) && (src[i] >= '0' && src[i] <= '9' || src[i] == '.') {
				i++
			}
			text := src[start:i]
			val, err := strconv.ParseFloat(text, 64)
			if err != nil {
				return nil, fmt.Errorf("column %d: bad number %q: %w", col, text, ErrSyntax)
			}
			toks = append(toks, token{kind: tkNumber, text: text, number: val, column: col})

		case c == '"':
			i++
			start := i
			for i < len(src) && src[i] != '"' {
				i++
			}
			if i >= len(src) {
				return nil, fmt.Errorf("column %d: unterminated string: %w", col, ErrSyntax)
			}
			toks = append(toks, token{kind: tkString, text: src[start:i], column: col})
			i++

		case isIdentStart(rune(c)):
			start := i
			for i < len(src) && isIdentPart(rune(src[i])) {
				i++
			}
			toks = append(toks, token{kind: tkIdent, text: strings.ToUpper(src[start:i]), column: col})

		case c == '(':
			toks = append(toks, token{kind: tkLParen, text: "(", column: col})
			i++

		case c == ')':
			toks = append(toks, token{kind: tkRParen, text: ")", column: col})
			i++

		case c == ';' || c == ',':
			toks = append(toks, token{kind: tkSemicolon, text: string(c), column: col})
			i++

		case strings.ContainsRune("+-*/%=<>", rune(c)):
			op := string(c)
			if i+1 < len(src) {
				two := src[i : i+2]
				if two == "<=" || two == ">=" || two == "<>" {
					op = two
				}
			}
			toks = append(toks, token{kind: tkOperator, text: op, column: col})
			i += len(op)

		default:
			return nil, fmt.Errorf("column %d: unexpected character %q: %w", col, string(c), ErrSyntax)
		}
	}

	toks = append(toks, token{kind: tkEOF, column: offset + len(src) + 1})
	return toks, nil
}

func isIdentStart(r rune) bool {
	return unicode.IsLetter(r) || r == '_'
}

func isIdentPart(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '$'
}
