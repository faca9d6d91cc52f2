package interp

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/kesava/nanobasic/internal/lang/ast"
)

// eval evaluates an expression against the current frame chain. Values
// are float64, string or bool.
func (in *Interpreter) eval(expr ast.Expression) (any, error) {
	switch e := expr.(type) {
	case *ast.NumberLit:
		return e.Value, nil

	case *ast.StringLit:
		return e.Value, nil

	case *ast.Ident:
		v, ok := in.frame.Lookup(e.Name)
		if !ok {
			return nil, fmt.Errorf("%s: %w", e.Name, ErrUndefinedVariable)
		}
		return v, nil

	case *ast.BinaryExpr:
		left, err := in.eval(e.Left)
		if err != nil {
			return nil, err
		}
		right, err := in.eval(e.Right)
		if err != nil {
			return nil, err
		}
		return applyBinary(e.Op, left, right)
	}

	return nil, fmt.Errorf("unsupported expression %T", expr)
}

func applyBinary(op ast.BinaryOp, left, right any) (any, error) {
	ln, lIsNum := left.(float64)
	rn, rIsNum := right.(float64)
	if lIsNum && rIsNum {
		return applyNumeric(op, ln, rn)
	}

	ls, lIsStr := left.(string)
	rs, rIsStr := right.(string)
	if lIsStr && rIsStr {
		return applyString(op, ls, rs)
	}

	// Mixed operand types support only equality.
	switch op {
	case ast.OpEq:
		return false, nil
	case ast.OpNe:
		return true, nil
	}
	return nil, fmt.Errorf("%s on %s and %s: %w", op, typeName(left), typeName(right), ErrTypeMismatch)
}

func applyNumeric(op ast.BinaryOp, l, r float64) (any, error) {
	switch op {
	case ast.OpAdd:
		return l + r, nil
	case ast.OpSub:
		return l - r, nil
	case ast.OpMul:
		return l * r, nil
	case ast.OpDiv:
		if r == 0 {
			return nil, ErrDivisionByZero
		}
		return l / r, nil
	case ast.OpMod:
		if r == 0 {
			return nil, ErrDivisionByZero
		}
		return math.Mod(l, r), nil
	case ast.OpEq:
		return l == r, nil
	case ast.OpNe:
		return l != r, nil
	case ast.OpLt:
		return l < r, nil
	case ast.OpLe:
		return l <= r, nil
	case ast.OpGt:
		return l > r, nil
	case ast.OpGe:
		return l >= r, nil
	}
	return nil, fmt.Errorf("numeric %s: %w", op, ErrTypeMismatch)
}

func applyString(op ast.BinaryOp, l, r string) (any, error) {
	switch op {
	case ast.OpAdd:
		return l + r, nil
	case ast.OpEq:
		return l == r, nil
	case ast.OpNe:
		return l != r, nil
	case ast.OpLt:
		return l < r, nil
	case ast.OpLe:
		return l <= r, nil
	case ast.OpGt:
		return l > r, nil
	case ast.OpGe:
		return l >= r, nil
	}
	return nil, fmt.Errorf("string %s: %w", op, ErrTypeMismatch)
}

// truthy follows the usual conventions: non-zero numbers, non-empty
// strings and true are truthy.
func truthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		return t != ""
	}
	return false
}

// formatValue renders a value for PRINT.
func formatValue(v any) string {
	switch t := v.(type) {
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	case string:
		return t
	case bool:
		if t {
			return "1"
		}
		return "0"
	}
	return fmt.Sprint(v)
}

func joinPrint(parts []string) string {
	return strings.Join(parts, " ")
}

func typeName(v any) string {
	switch v.(type) {
	case float64:
		return "number"
	case string:
		return "string"
	case bool:
		return "bool"
	}
	return fmt.Sprintf("%T", v)
}
