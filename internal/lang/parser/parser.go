// Package parser turns line-numbered source into an ast.Program. One
// statement per line; duplicate line numbers resolve last-wins, matching
// classic interactive line editing.
package parser

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/kesava/nanobasic/internal/lang/ast"
)

// Parse parses a complete source listing. Blank lines are skipped;
// every other line must carry a numeric label.
func Parse(src string) (*ast.Program, error) {
	byNumber := make(map[int]ast.Line)
	for _, raw := range strings.Split(src, "\n") {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		ln, err := ParseLine(raw)
		if err != nil {
			return nil, err
		}
		byNumber[ln.Number] = ln
	}
	if len(byNumber) == 0 {
		return nil, ErrEmptyProgram
	}

	prog := &ast.Program{Lines: make([]ast.Line, 0, len(byNumber))}
	for _, ln := range byNumber {
		prog.Lines = append(prog.Lines, ln)
	}
	sort.Slice(prog.Lines, func(i, j int) bool {
		return prog.Lines[i].Number < prog.Lines[j].Number
	})
	return prog, nil
}

// ParseLine parses one numbered line.
func ParseLine(raw string) (ast.Line, error) {
	trimmed := strings.TrimRight(raw, " \t\r")

	i := 0
	for i < len(trimmed) && (trimmed[i] == ' ' || trimmed[i] == '\t') {
		i++
	}
	start := i
	for i < len(trimmed) && trimmed[i] >= '0' && trimmed[i] <= '9' {
		i++
	}
	if i == start {
		return ast.Line{}, fmt.Errorf("%q: %w", trimmed, ErrNoLineNumber)
	}
	number, err := strconv.Atoi(trimmed[start:i])
	if err != nil {
		return ast.Line{}, fmt.Errorf("%q: %w", trimmed, ErrNoLineNumber)
	}

	for i < len(trimmed) && (trimmed[i] == ' ' || trimmed[i] == '\t') {
		i++
	}
	body := trimmed[i:]

	// REM swallows the rest of the line verbatim and produces a node
	// without a span.
	if rest, ok := cutKeyword(body, "REM"); ok {
		return ast.Line{Number: number, Stmt: &ast.RemStmt{Text: rest}, Source: trimmed}, nil
	}

	toks, err := lexLine(body, i)
	if err != nil {
		return ast.Line{}, fmt.Errorf("line %d: %w", number, err)
	}

	lp := &lineParser{toks: toks, line: number}
	stmt, err := lp.parseStatement()
	if err != nil {
		return ast.Line{}, fmt.Errorf("line %d: %w", number, err)
	}
	if lp.peek().kind != tkEOF {
		return ast.Line{}, fmt.Errorf("line %d: column %d: trailing %s: %w",
			number, lp.peek().column, lp.peek().kind, ErrSyntax)
	}

	return ast.Line{Number: number, Stmt: stmt, Source: trimmed}, nil
}

// cutKeyword strips a leading keyword (case-insensitive, whole word) and
// returns the remainder with one leading separator removed.
func cutKeyword(s, kw string) (string, bool) {
	if len(s) < len(kw) || !strings.EqualFold(s[:len(kw)], kw) {
		return "", false
	}
	rest := s[len(kw):]
	if rest != "" && rest[0] != ' ' && rest[0] != '\t' {
		return "", false
	}
	return strings.TrimLeft(rest, " \t"), true
}

type lineParser struct {
	toks []token
	pos  int
	line int
}

func (p *lineParser) peek() token {
	return p.toks[p.pos]
}

func (p *lineParser) next() token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *lineParser) prev() token {
	if p.pos == 0 {
		return p.toks[0]
	}
	return p.toks[p.pos-1]
}

func (p *lineParser) at(t token) ast.Position {
	return ast.Position{Line: p.line, Column: t.column}
}

// endOf is the position just past a token's text.
func (p *lineParser) endOf(t token) ast.Position {
	width := len(t.text)
	if t.kind == tkString {
		width += 2
	}
	if width == 0 {
		width = 1
	}
	return ast.Position{Line: p.line, Column: t.column + width - 1}
}

func (p *lineParser) errorf(t token, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	return fmt.Errorf("column %d: %s: %w", t.column, msg, ErrSyntax)
}

func (p *lineParser) parseStatement() (ast.Statement, error) {
	t := p.peek()
	if t.kind != tkIdent {
		return nil, p.errorf(t, "expected statement keyword, found %s", t.kind)
	}

	switch t.text {
	case "LET":
		return p.parseLet()
	case "PRINT":
		return p.parsePrint()
	case "IF":
		return p.parseIf()
	case "GOTO":
		return p.parseJump(false)
	case "GOSUB":
		return p.parseJump(true)
	case "RETURN":
		kw := p.next()
		return &ast.ReturnStmt{Located: ast.Locate(p.at(kw), p.endOf(kw))}, nil
	case "END":
		kw := p.next()
		return &ast.EndStmt{Located: ast.Locate(p.at(kw), p.endOf(kw))}, nil
	default:
		return nil, p.errorf(t, "unknown statement %q", t.text)
	}
}

func (p *lineParser) parseLet() (ast.Statement, error) {
	kw := p.next()

	name := p.next()
	if name.kind != tkIdent {
		return nil, p.errorf(name, "expected variable name, found %s", name.kind)
	}
	if eq := p.next(); eq.kind != tkOperator || eq.text != "=" {
		return nil, p.errorf(eq, "expected '=', found %q", eq.text)
	}

	value, err := p.parseExpression()
	if err != nil {
		return nil, err
	}

	return &ast.LetStmt{
		Located: ast.Locate(p.at(kw), p.endOf(p.prev())),
		Name:    name.text,
		Value:   value,
	}, nil
}

func (p *lineParser) parsePrint() (ast.Statement, error) {
	kw := p.next()

	var args []ast.Expression
	for p.peek().kind != tkEOF {
		arg, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		if p.peek().kind != tkSemicolon {
			break
		}
		p.next()
	}

	return &ast.PrintStmt{
		Located: ast.Locate(p.at(kw), p.endOf(p.prev())),
		Args:    args,
	}, nil
}

func (p *lineParser) parseIf() (ast.Statement, error) {
	kw := p.next()

	cond, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	then := p.next()
	if then.kind != tkIdent || then.text != "THEN" {
		return nil, p.errorf(then, "expected THEN, found %q", then.text)
	}

	// The branch body is its own statement with its own span, so the
	// debugger can pause on it independently of the IF head.
	body, err := p.parseStatement()
	if err != nil {
		return nil, err
	}

	return &ast.IfStmt{
		Located: ast.Locate(p.at(kw), p.endOf(p.prev())),
		Cond:    cond,
		Then:    body,
	}, nil
}

func (p *lineParser) parseJump(gosub bool) (ast.Statement, error) {
	kw := p.next()

	t := p.next()
	if t.kind != tkNumber {
		return nil, p.errorf(t, "expected target line number, found %s", t.kind)
	}
	target := int(t.number)
	if float64(target) != t.number || target <= 0 {
		return nil, p.errorf(t, "bad target line number %q", t.text)
	}

	span := ast.Locate(p.at(kw), p.endOf(t))
	if gosub {
		return &ast.GosubStmt{Located: span, Target: target}, nil
	}
	return &ast.GotoStmt{Located: span, Target: target}, nil
}

var binaryOps = map[string]ast.BinaryOp{
	"+":  ast.OpAdd,
	"-":  ast.OpSub,
	"*":  ast.OpMul,
	"/":  ast.OpDiv,
	"%":  ast.OpMod,
	"=":  ast.OpEq,
	"<>": ast.OpNe,
	"<":  ast.OpLt,
	"<=": ast.OpLe,
	">":  ast.OpGt,
	">=": ast.OpGe,
}

func isCompareOp(op string) bool {
	switch op {
	case "=", "<>", "<", "<=", ">", ">=":
		return true
	}
	return false
}

func (p *lineParser) parseExpression() (ast.Expression, error) {
	return p.parseComparison()
}

func (p *lineParser) parseComparison() (ast.Expression, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tkOperator && isCompareOp(p.peek().text) {
		op := p.next()
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		left = p.binary(left, op, right)
	}
	return left, nil
}

func (p *lineParser) parseAdditive() (ast.Expression, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tkOperator && (p.peek().text == "+" || p.peek().text == "-") {
		op := p.next()
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		left = p.binary(left, op, right)
	}
	return left, nil
}

func (p *lineParser) parseTerm() (ast.Expression, error) {
	left, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tkOperator &&
		(p.peek().text == "*" || p.peek().text == "/" || p.peek().text == "%") {
		op := p.next()
		right, err := p.parsePrimary()
		if err != nil {
			return nil, err
		}
		left = p.binary(left, op, right)
	}
	return left, nil
}

func (p *lineParser) binary(left ast.Expression, op token, right ast.Expression) ast.Expression {
	start, _ := left.Span()
	end, _ := right.Span()
	return &ast.BinaryExpr{
		Located: ast.Locate(start.Start, end.End),
		Op:      binaryOps[op.text],
		Left:    left,
		Right:   right,
	}
}

func (p *lineParser) parsePrimary() (ast.Expression, error) {
	t := p.next()
	switch t.kind {
	case tkNumber:
		return &ast.NumberLit{Located: ast.Locate(p.at(t), p.endOf(t)), Value: t.number}, nil
	case tkString:
		return &ast.StringLit{Located: ast.Locate(p.at(t), p.endOf(t)), Value: t.text}, nil
	case tkIdent:
		return &ast.Ident{Located: ast.Locate(p.at(t), p.endOf(t)), Name: t.text}, nil
	case tkOperator:
		if t.text == "-" {
			// Unary minus desugars to 0 - operand.
			operand, err := p.parsePrimary()
			if err != nil {
				return nil, err
			}
			end, _ := operand.Span()
			return &ast.BinaryExpr{
				Located: ast.Locate(p.at(t), end.End),
				Op:      ast.OpSub,
				Left:    &ast.NumberLit{Located: ast.Locate(p.at(t), p.at(t))},
				Right:   operand,
			}, nil
		}
		return nil, p.errorf(t, "unexpected operator %q", t.text)
	case tkLParen:
		inner, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if r := p.next(); r.kind != tkRParen {
			return nil, p.errorf(r, "expected ')', found %s", r.kind)
		}
		return inner, nil
	default:
		return nil, p.errorf(t, "expected expression, found %s", t.kind)
	}
}
