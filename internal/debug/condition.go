package debug

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ConditionKind tags the typed condition sum.
type ConditionKind string

const (
	// ConditionExpression pauses when a variable comparison holds.
	ConditionExpression ConditionKind = "expression"
	// ConditionHitCount pauses based on the cumulative hit count.
	ConditionHitCount ConditionKind = "hitcount"
	// ConditionLog never pauses; the breakpoint records its log message
	// and execution continues.
	ConditionLog ConditionKind = "log"
)

// CompareOp is a comparison operator in a condition expression.
type CompareOp string

const (
	OpEq CompareOp = "=="
	OpNe CompareOp = "!="
	OpLt CompareOp = "<"
	OpLe CompareOp = "<="
	OpGt CompareOp = ">"
	OpGe CompareOp = ">="
)

// ErrUnknownVariable is returned when a condition references a variable
// absent from the frame snapshot.
var ErrUnknownVariable = errors.New("unknown variable")

// Condition is the typed sum of breakpoint predicates. Conditions are
// evaluated against the breakpoint's cumulative hit count and a
// read-only frame snapshot. Whatever an evaluation error means, the
// registry treats it as "pause" (fail-open): a broken condition must
// never silently hide a breakpoint.
type Condition interface {
	// Kind returns the condition's kind tag.
	Kind() ConditionKind

	// Expr returns the portable expression form used for export/import.
	Expr() string

	// Evaluate reports whether the condition holds.
	Evaluate(hitCount int, snapshot map[string]any) (bool, error)
}

// ExpressionCondition compares a variable against a literal.
type ExpressionCondition struct {
	Variable string
	Op       CompareOp
	Value    any
}

// Kind returns ConditionExpression.
func (c *ExpressionCondition) Kind() ConditionKind { return ConditionExpression }

// Expr returns the canonical "name op literal" form.
func (c *ExpressionCondition) Expr() string {
	return fmt.Sprintf("%s %s %s", c.Variable, c.Op, formatLiteral(c.Value))
}

// Evaluate resolves the variable in the snapshot and compares.
func (c *ExpressionCondition) Evaluate(_ int, snapshot map[string]any) (bool, error) {
	v, ok := snapshot[c.Variable]
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrUnknownVariable, c.Variable)
	}
	return compareValues(v, c.Op, c.Value)
}

// HitOp is a hit-count predicate style.
type HitOp string

const (
	// HitAtLeast pauses once the hit count reaches the threshold.
	HitAtLeast HitOp = ">="
	// HitExactly pauses only on the exact hit.
	HitExactly HitOp = "=="
	// HitEvery pauses on every Nth hit.
	HitEvery HitOp = "%"
)

// HitCountCondition pauses based on the cumulative hit count.
type HitCountCondition struct {
	Op    HitOp
	Count int
}

// Kind returns ConditionHitCount.
func (c *HitCountCondition) Kind() ConditionKind { return ConditionHitCount }

// Expr returns the canonical "op N" form.
func (c *HitCountCondition) Expr() string {
	return fmt.Sprintf("%s %d", c.Op, c.Count)
}

// Evaluate applies the hit predicate to the cumulative count.
func (c *HitCountCondition) Evaluate(hitCount int, _ map[string]any) (bool, error) {
	switch c.Op {
	case HitAtLeast:
		return hitCount >= c.Count, nil
	case HitExactly:
		return hitCount == c.Count, nil
	case HitEvery:
		if c.Count <= 0 {
			return false, fmt.Errorf("invalid hit modulus %d", c.Count)
		}
		return hitCount%c.Count == 0, nil
	default:
		return false, fmt.Errorf("unknown hit operator %q", c.Op)
	}
}

// LogCondition marks a log-only breakpoint. It never pauses; the log
// message lives on the breakpoint itself.
type LogCondition struct{}

// Kind returns ConditionLog.
func (LogCondition) Kind() ConditionKind { return ConditionLog }

// Expr returns an empty expression; log conditions carry no predicate.
func (LogCondition) Expr() string { return "" }

// Evaluate always reports false.
func (LogCondition) Evaluate(int, map[string]any) (bool, error) { return false, nil }

// ParseCondition builds a typed condition from its portable (kind, expr)
// form.
func ParseCondition(kind ConditionKind, expr string) (Condition, error) {
	switch kind {
	case ConditionExpression:
		return parseExpression(expr)
	case ConditionHitCount:
		return parseHitCount(expr)
	case ConditionLog:
		return LogCondition{}, nil
	default:
		return nil, fmt.Errorf("unknown condition kind %q", kind)
	}
}

// compare operators ordered so two-character forms match first.
var compareOps = []CompareOp{OpEq, OpNe, OpLe, OpGe, OpLt, OpGt}

func parseExpression(expr string) (*ExpressionCondition, error) {
	s := strings.TrimSpace(expr)

	i := 0
	for i < len(s) && isIdentChar(s[i]) {
		i++
	}
	name := s[:i]
	if name == "" {
		return nil, fmt.Errorf("condition %q: missing variable name", expr)
	}

	rest := strings.TrimSpace(s[i:])
	var op CompareOp
	for _, candidate := range compareOps {
		if strings.HasPrefix(rest, string(candidate)) {
			op = candidate
			break
		}
	}
	if op == "" {
		return nil, fmt.Errorf("condition %q: missing comparison operator", expr)
	}

	lit := strings.TrimSpace(rest[len(op):])
	value, err := parseLiteral(lit)
	if err != nil {
		return nil, fmt.Errorf("condition %q: %w", expr, err)
	}

	return &ExpressionCondition{Variable: name, Op: op, Value: value}, nil
}

func parseHitCount(expr string) (*HitCountCondition, error) {
	s := strings.TrimSpace(expr)

	op := HitAtLeast
	switch {
	case strings.HasPrefix(s, string(HitAtLeast)):
		s = s[len(HitAtLeast):]
	case strings.HasPrefix(s, string(HitExactly)):
		op = HitExactly
		s = s[len(HitExactly):]
	case strings.HasPrefix(s, "="):
		op = HitExactly
		s = s[1:]
	case strings.HasPrefix(s, string(HitEvery)):
		op = HitEvery
		s = s[len(HitEvery):]
	}

	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("hit condition %q: %w", expr, err)
	}
	if n <= 0 {
		return nil, fmt.Errorf("hit condition %q: count must be positive", expr)
	}

	return &HitCountCondition{Op: op, Count: n}, nil
}

func isIdentChar(c byte) bool {
	return c == '_' || c == '$' ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

func parseLiteral(s string) (any, error) {
	if s == "" {
		return nil, errors.New("missing literal")
	}
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1], nil
	}
	switch s {
	case "true":
		return true, nil
	case "false":
		return false, nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f, nil
	}
	return nil, fmt.Errorf("invalid literal %q", s)
}

func formatLiteral(v any) string {
	switch t := v.(type) {
	case string:
		return strconv.Quote(t)
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// toNumber coerces interpreter values to float64 where possible.
func toNumber(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case bool:
		if t {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

// compareValues compares two values numerically when both sides coerce
// to numbers, otherwise by their string forms.
func compareValues(a any, op CompareOp, b any) (bool, error) {
	if af, aok := toNumber(a); aok {
		if bf, bok := toNumber(b); bok {
			return compareOrdered(af, op, bf)
		}
	}

	as, aok := a.(string)
	bs, bok := b.(string)
	if aok && bok {
		return compareOrdered(as, op, bs)
	}

	// Mixed types only support equality checks.
	switch op {
	case OpEq:
		return fmt.Sprintf("%v", a) == fmt.Sprintf("%v", b), nil
	case OpNe:
		return fmt.Sprintf("%v", a) != fmt.Sprintf("%v", b), nil
	default:
		return false, fmt.Errorf("cannot order %T against %T", a, b)
	}
}

func compareOrdered[T float64 | string](a T, op CompareOp, b T) (bool, error) {
	switch op {
	case OpEq:
		return a == b, nil
	case OpNe:
		return a != b, nil
	case OpLt:
		return a < b, nil
	case OpLe:
		return a <= b, nil
	case OpGt:
		return a > b, nil
	case OpGe:
		return a >= b, nil
	default:
		return false, fmt.Errorf("unknown operator %q", op)
	}
}
