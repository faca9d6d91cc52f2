package parser

import (
	"errors"
	"testing"

	"github.com/kesava/nanobasic/internal/lang/ast"
)

func TestParseLine_Statements(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"let", `10 LET X = 5`, `LET X = 5`},
		{"let expression", `10 LET Y = X * 2 + 1`, `LET Y = ((X * 2) + 1)`},
		{"print", `20 PRINT "HELLO"`, `PRINT "HELLO"`},
		{"print multiple", `20 PRINT "X ="; X`, `PRINT "X ="; X`},
		{"print empty", `20 PRINT`, `PRINT`},
		{"if then", `30 IF X > 3 THEN GOTO 10`, `IF (X > 3) THEN GOTO 10`},
		{"if then let", `30 IF X = 0 THEN LET X = 1`, `IF (X = 0) THEN LET X = 1`},
		{"goto", `40 GOTO 10`, `GOTO 10`},
		{"gosub", `50 GOSUB 100`, `GOSUB 100`},
		{"return", `60 RETURN`, `RETURN`},
		{"end", `70 END`, `END`},
		{"rem", `80 REM a comment here`, `REM a comment here`},
		{"lowercase keywords", `10 let x = 5`, `LET X = 5`},
		{"parens", `10 LET X = (1 + 2) * 3`, `LET X = ((1 + 2) * 3)`},
		{"unary minus", `10 LET X = -5`, `LET X = (0 - 5)`},
		{"comparison chain", `10 IF A <> B THEN END`, `IF (A <> B) THEN END`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ln, err := ParseLine(tt.src)
			if err != nil {
				t.Fatalf("ParseLine(%q): %v", tt.src, err)
			}
			if got := ln.Stmt.String(); got != tt.want {
				t.Errorf("ParseLine(%q) = %q, want %q", tt.src, got, tt.want)
			}
		})
	}
}

func TestParseLine_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want error
	}{
		{"no line number", `PRINT "X"`, ErrNoLineNumber},
		{"unknown statement", `10 FROB X`, ErrSyntax},
		{"unterminated string", `10 PRINT "oops`, ErrSyntax},
		{"trailing tokens", `10 GOTO 20 30`, ErrSyntax},
		{"goto missing target", `10 GOTO`, ErrSyntax},
		{"goto fractional target", `10 GOTO 1.5`, ErrSyntax},
		{"let missing equals", `10 LET X 5`, ErrSyntax},
		{"if missing then", `10 IF X > 1 GOTO 20`, ErrSyntax},
		{"dangling operator", `10 LET X = 1 +`, ErrSyntax},
		{"unbalanced paren", `10 LET X = (1 + 2`, ErrSyntax},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseLine(tt.src)
			if !errors.Is(err, tt.want) {
				t.Errorf("ParseLine(%q) error = %v, want %v", tt.src, err, tt.want)
			}
		})
	}
}

func TestParseLine_Spans(t *testing.T) {
	ln, err := ParseLine(`20 LET X = 5`)
	if err != nil {
		t.Fatal(err)
	}
	span, ok := ln.Stmt.Span()
	if !ok {
		t.Fatal("LET statement has no span")
	}
	if span.Start.Line != 20 || span.Start.Column != 4 {
		t.Errorf("span start = %s, want 20:4", span.Start)
	}
	if span.End.Line != 20 || span.End.Column != 12 {
		t.Errorf("span end = %s, want 20:12", span.End)
	}
}

func TestParseLine_RemHasNoSpan(t *testing.T) {
	ln, err := ParseLine(`10 REM setup`)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := ln.Stmt.Span(); ok {
		t.Error("REM statement carries a span; it must not")
	}
}

func TestParseLine_IfBranchHasOwnSpan(t *testing.T) {
	ln, err := ParseLine(`30 IF X > 1 THEN GOTO 10`)
	if err != nil {
		t.Fatal(err)
	}
	ifStmt, ok := ln.Stmt.(*ast.IfStmt)
	if !ok {
		t.Fatalf("statement is %T, want *ast.IfStmt", ln.Stmt)
	}
	headSpan, _ := ifStmt.Span()
	bodySpan, ok := ifStmt.Then.Span()
	if !ok {
		t.Fatal("branch body has no span")
	}
	if bodySpan.Start.Column <= headSpan.Start.Column {
		t.Errorf("branch span start %s not inside head span starting %s",
			bodySpan.Start, headSpan.Start)
	}
}

func TestParse_OrdersAndDeduplicates(t *testing.T) {
	src := `
30 END
10 LET X = 1
20 PRINT X
10 LET X = 2
`
	prog, err := Parse(src)
	if err != nil {
		t.Fatal(err)
	}
	if prog.Len() != 3 {
		t.Fatalf("lines = %d, want 3", prog.Len())
	}
	wantNumbers := []int{10, 20, 30}
	for i, want := range wantNumbers {
		if prog.Lines[i].Number != want {
			t.Errorf("line %d number = %d, want %d", i, prog.Lines[i].Number, want)
		}
	}
	// Duplicate line 10 resolves last-wins.
	if got := prog.Lines[0].Stmt.String(); got != "LET X = 2" {
		t.Errorf("line 10 = %q, want the later definition", got)
	}
}

func TestParse_EmptyProgram(t *testing.T) {
	if _, err := Parse("\n\n  \n"); !errors.Is(err, ErrEmptyProgram) {
		t.Errorf("error = %v, want ErrEmptyProgram", err)
	}
}

func TestProgram_IndexOfLine(t *testing.T) {
	prog, err := Parse("10 LET X = 1\n20 END\n")
	if err != nil {
		t.Fatal(err)
	}
	if got := prog.IndexOfLine(20); got != 1 {
		t.Errorf("IndexOfLine(20) = %d, want 1", got)
	}
	if got := prog.IndexOfLine(15); got != -1 {
		t.Errorf("IndexOfLine(15) = %d, want -1", got)
	}
}
