// Package ast defines the syntax tree for the line-numbered language.
// Every executable node carries a source span; REM statements carry none
// and are invisible to the execution controller.
package ast

import "fmt"

// Position is a 1-based source coordinate. Line is the program line
// number (the numeric label, not the physical file line).
type Position struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Span covers a node's source text, inclusive of both endpoints.
type Span struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

// Node is implemented by all syntax tree nodes. Span reports false for
// nodes without a source location.
type Node interface {
	Span() (Span, bool)
	String() string
}

// Statement is an executable node.
type Statement interface {
	Node
	stmtNode()
}

// Expression is an evaluable node.
type Expression interface {
	Node
	exprNode()
}

// Line is one numbered program line.
type Line struct {
	Number int
	Stmt   Statement
	Source string
}

// Program is an ordered sequence of numbered lines, sorted by line
// number with duplicates resolved last-wins at parse time.
type Program struct {
	Lines []Line
}

// IndexOfLine returns the index of the line with the given number, or
// -1 when it does not exist.
func (p *Program) IndexOfLine(number int) int {
	for i, ln := range p.Lines {
		if ln.Number == number {
			return i
		}
	}
	return -1
}

// Len returns the number of lines.
func (p *Program) Len() int {
	return len(p.Lines)
}

// Located is embedded by every node that has a source location.
type Located struct {
	S Span
}

func (l Located) Span() (Span, bool) { return l.S, true }

// Locate builds the embeddable span record.
func Locate(start, end Position) Located {
	return Located{S: Span{Start: start, End: end}}
}

// LetStmt assigns the value of an expression to a variable.
type LetStmt struct {
	Located
	Name  string
	Value Expression
}

func (*LetStmt) stmtNode() {}
func (s *LetStmt) String() string {
	return fmt.Sprintf("LET %s = %s", s.Name, s.Value)
}

// PrintStmt writes each argument, separated by a single space, followed
// by a newline.
type PrintStmt struct {
	Located
	Args []Expression
}

func (*PrintStmt) stmtNode() {}
func (s *PrintStmt) String() string {
	out := "PRINT"
	for i, a := range s.Args {
		if i == 0 {
			out += " " + a.String()
		} else {
			out += "; " + a.String()
		}
	}
	return out
}

// IfStmt executes Then when Cond evaluates truthy. Then is itself a
// suspension point with its own span.
type IfStmt struct {
	Located
	Cond Expression
	Then Statement
}

func (*IfStmt) stmtNode() {}
func (s *IfStmt) String() string {
	return fmt.Sprintf("IF %s THEN %s", s.Cond, s.Then)
}

// GotoStmt transfers control to the named line.
type GotoStmt struct {
	Located
	Target int
}

func (*GotoStmt) stmtNode() {}
func (s *GotoStmt) String() string {
	return fmt.Sprintf("GOTO %d", s.Target)
}

// GosubStmt calls the named line, pushing a return site and a new call
// frame.
type GosubStmt struct {
	Located
	Target int
}

func (*GosubStmt) stmtNode() {}
func (s *GosubStmt) String() string {
	return fmt.Sprintf("GOSUB %d", s.Target)
}

// ReturnStmt pops the innermost GOSUB return site.
type ReturnStmt struct {
	Located
}

func (*ReturnStmt) stmtNode()        {}
func (s *ReturnStmt) String() string { return "RETURN" }

// EndStmt terminates the program.
type EndStmt struct {
	Located
}

func (*EndStmt) stmtNode()        {}
func (s *EndStmt) String() string { return "END" }

// RemStmt is a comment. It deliberately has no span: the execution
// controller never sees it, so it can neither hit a breakpoint nor
// count as a step.
type RemStmt struct {
	Text string
}

func (*RemStmt) stmtNode()          {}
func (*RemStmt) Span() (Span, bool) { return Span{}, false }
func (s *RemStmt) String() string   { return "REM " + s.Text }

// NumberLit is a numeric literal. All numbers are float64.
type NumberLit struct {
	Located
	Value float64
}

func (*NumberLit) exprNode() {}
func (e *NumberLit) String() string {
	return fmt.Sprintf("%g", e.Value)
}

// StringLit is a double-quoted string literal.
type StringLit struct {
	Located
	Value string
}

func (*StringLit) exprNode() {}
func (e *StringLit) String() string {
	return fmt.Sprintf("%q", e.Value)
}

// Ident references a variable by name.
type Ident struct {
	Located
	Name string
}

func (*Ident) exprNode()        {}
func (e *Ident) String() string { return e.Name }

// BinaryOp enumerates the binary operators.
type BinaryOp string

const (
	OpAdd BinaryOp = "+"
	OpSub BinaryOp = "-"
	OpMul BinaryOp = "*"
	OpDiv BinaryOp = "/"
	OpMod BinaryOp = "%"
	OpEq  BinaryOp = "="
	OpNe  BinaryOp = "<>"
	OpLt  BinaryOp = "<"
	OpLe  BinaryOp = "<="
	OpGt  BinaryOp = ">"
	OpGe  BinaryOp = ">="
)

// BinaryExpr applies Op to Left and Right.
type BinaryExpr struct {
	Located
	Op    BinaryOp
	Left  Expression
	Right Expression
}

func (*BinaryExpr) exprNode() {}
func (e *BinaryExpr) String() string {
	return fmt.Sprintf("(%s %s %s)", e.Left, e.Op, e.Right)
}
