package debug

import "time"

// Location identifies a source position. Line and Column are 1-based.
// Location equality (line and column) is the breakpoint lookup key.
type Location struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// Span is a source range attached to an AST node. A node without a span
// can never trigger a breakpoint or a step pause.
type Span struct {
	Start Location `json:"start"`
	End   Location `json:"end"`
}

// NodeKind classifies the node a suspension check runs for.
type NodeKind string

const (
	// NodeStatement is a top-level or nested statement.
	NodeStatement NodeKind = "statement"
	// NodeBranch is a statement executed as a branch child (IF ... THEN body).
	NodeBranch NodeKind = "branch"
)

// NodeContext is the single record type shared by all Before and
// OnException call sites. It bundles everything the controller needs to
// decide on suspension and to expose the pause site for inspection.
type NodeContext struct {
	// Kind classifies the node.
	Kind NodeKind

	// Span is the node's source range, nil when the node carries none.
	Span *Span

	// Frame is the active call frame at the check site.
	Frame *Frame

	// Depth is the node nesting depth.
	Depth int
}

// Location returns the start location of the node, or (0,0) when the
// node carries no span.
func (nc NodeContext) Location() (Location, bool) {
	if nc.Span == nil {
		return Location{}, false
	}
	return nc.Span.Start, true
}

// ExecutionContext describes where execution currently is. It is owned
// by the state machine and refreshed by the controller before each
// transition-driven event emission.
type ExecutionContext struct {
	Line      int       `json:"line"`
	Column    int       `json:"column"`
	Depth     int       `json:"depth"`
	FrameName string    `json:"frameName"`
	UpdatedAt time.Time `json:"updatedAt"`
}
