// Package interp executes an ast.Program one statement at a time under
// the execution controller. The interpreter cannot suspend itself
// mid-call; instead the driver loop checks in with the controller before
// every statement and returns to its caller whenever the controller has
// paused, leaving the continuation cursor pointing at the statement that
// has not yet run. Re-entering the loop picks up exactly there.
package interp

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/kesava/nanobasic/internal/debug"
	"github.com/kesava/nanobasic/internal/lang/ast"
)

// Runtime errors.
var (
	ErrNoProgram          = errors.New("no program loaded")
	ErrAlreadyRunning     = errors.New("execution already in progress")
	ErrNotStarted         = errors.New("execution not started")
	ErrUndefinedLine      = errors.New("undefined line")
	ErrReturnWithoutGosub = errors.New("RETURN without GOSUB")
	ErrUndefinedVariable  = errors.New("undefined variable")
	ErrDivisionByZero     = errors.New("division by zero")
	ErrTypeMismatch       = errors.New("type mismatch")
)

// Continuation is the persisted execution cursor. It is a single value
// object, owned here and nowhere else, serializable for inspection.
// Index is the position of the next statement to run; it advances only
// after that statement completes without suspending. Branch marks a
// pause that happened at the taken branch of an IF, so re-entry resumes
// at the branch body instead of re-running the head.
type Continuation struct {
	Active bool `json:"active"`
	Index  int  `json:"index"`
	Branch bool `json:"branch,omitempty"`
}

// returnSite records where a GOSUB came from and the frame to restore.
type returnSite struct {
	index int
	frame *debug.Frame
}

// Interpreter walks a program under controller supervision.
type Interpreter struct {
	ctrl  *debug.Controller
	bus   debug.Publisher
	out   io.Writer
	prog  *ast.Program
	cont  Continuation
	frame *debug.Frame
	calls []returnSite
}

// Option configures an Interpreter.
type Option func(*Interpreter)

// WithOutput directs PRINT output to w in addition to the output event.
func WithOutput(w io.Writer) Option {
	return func(in *Interpreter) {
		in.out = w
	}
}

// WithPublisher sets the bus used for program output events. Typically
// the same bus the controller publishes on.
func WithPublisher(bus debug.Publisher) Option {
	return func(in *Interpreter) {
		in.bus = bus
	}
}

// New creates an interpreter bound to a controller.
func New(ctrl *debug.Controller, opts ...Option) *Interpreter {
	in := &Interpreter{
		ctrl:  ctrl,
		frame: debug.NewFrame("main", nil),
	}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

// Load installs a program and resets all execution state.
func (in *Interpreter) Load(prog *ast.Program) {
	in.prog = prog
	in.Reset()
}

// Reset clears the continuation, frames and call sites and forces the
// state machine back to Idle.
func (in *Interpreter) Reset() {
	in.cont = Continuation{}
	in.frame = debug.NewFrame("main", nil)
	in.calls = nil
	in.ctrl.ResetState()
}

// Program returns the loaded program, or nil.
func (in *Interpreter) Program() *ast.Program {
	return in.prog
}

// Continuation returns the current cursor.
func (in *Interpreter) Continuation() Continuation {
	return in.cont
}

// Frame returns the innermost call frame.
func (in *Interpreter) Frame() *debug.Frame {
	return in.frame
}

// CurrentLine returns the program line number at the cursor, or 0 when
// the cursor is out of range.
func (in *Interpreter) CurrentLine() int {
	if in.prog == nil || in.cont.Index < 0 || in.cont.Index >= in.prog.Len() {
		return 0
	}
	return in.prog.Lines[in.cont.Index].Number
}

// Run starts execution from the first line. A finished or errored
// machine is reset first; an active continuation is an error, since
// Resume is the way to continue a paused program.
func (in *Interpreter) Run(ctx context.Context) error {
	if in.prog == nil {
		return ErrNoProgram
	}
	if in.cont.Active {
		return ErrAlreadyRunning
	}

	if s := in.ctrl.Machine().State(); s == debug.StateTerminated || s == debug.StateErrored {
		in.Reset()
	}
	if !in.ctrl.StartExecution() {
		return fmt.Errorf("cannot start in state %s", in.ctrl.Machine().State())
	}

	in.cont = Continuation{Active: true}
	return in.drive(ctx)
}

// Resume continues a paused program from the persisted cursor. The
// controller arms the skip-next-pause flag, so the breakpoint or step
// that caused the pause does not immediately re-trigger.
func (in *Interpreter) Resume(ctx context.Context) error {
	if !in.cont.Active {
		return ErrNotStarted
	}
	if !in.ctrl.Resume() {
		return fmt.Errorf("cannot resume in state %s", in.ctrl.Machine().State())
	}
	return in.drive(ctx)
}

// Step executes exactly one statement, then leaves the machine paused
// at the next one (or terminated, when the program ends first). Legal
// from Idle, where it starts the program paused before its first
// statement has visible effect, and from Paused.
func (in *Interpreter) Step(ctx context.Context, mode debug.StepMode) error {
	if in.prog == nil {
		return ErrNoProgram
	}
	if !in.ctrl.StepExecution(mode) {
		return fmt.Errorf("cannot step in state %s", in.ctrl.Machine().State())
	}
	if !in.cont.Active {
		in.cont = Continuation{Active: true}
	}
	return in.drive(ctx)
}

// drive is the re-entrant execution loop. Each pass checks in with the
// controller, executes the statement at the cursor and advances.
// Suspension returns with the cursor untouched so the next entry
// re-executes the same statement; the armed skip flag makes that check
// pass through instead of pausing again.
func (in *Interpreter) drive(ctx context.Context) error {
	for in.cont.Active {
		if err := ctx.Err(); err != nil {
			return err
		}
		if in.cont.Index >= in.prog.Len() {
			in.cont = Continuation{}
			in.ctrl.Terminate(string(debug.ReasonProgramEnd))
			return nil
		}

		next, paused, err := in.executeLine(in.cont.Index)
		if err != nil {
			in.cont.Active = false
			return err
		}
		if paused {
			return nil
		}
		in.cont.Index = next
		in.cont.Branch = false
	}
	return nil
}

// executeLine runs the statement at index idx. It returns the index of
// the next statement, or paused=true with the cursor unchanged.
func (in *Interpreter) executeLine(idx int) (next int, paused bool, err error) {
	stmt := in.prog.Lines[idx].Stmt

	// REM has no span, so the controller is never consulted: comments
	// cannot hit breakpoints and do not count as steps.
	if _, ok := stmt.(*ast.RemStmt); ok {
		return idx + 1, false, nil
	}

	if !in.cont.Branch {
		in.ctrl.Before(in.nodeContext(stmt, debug.NodeStatement))
		if in.ctrl.IsPaused() {
			return idx, true, nil
		}
	}

	ifs, ok := stmt.(*ast.IfStmt)
	if !ok {
		return in.exec(stmt, idx)
	}

	if !in.cont.Branch {
		cond, err := in.eval(ifs.Cond)
		if err != nil {
			return 0, false, in.raise(ifs, err)
		}
		if !truthy(cond) {
			return idx + 1, false, nil
		}
	}

	// The taken branch is its own suspension point. A pause here is
	// recorded in the cursor so re-entry lands on the branch directly;
	// re-running the head would burn the skip flag before this check
	// and pause forever.
	in.ctrl.Before(in.nodeContext(ifs.Then, debug.NodeBranch))
	if in.ctrl.IsPaused() {
		in.cont.Branch = true
		return idx, true, nil
	}
	return in.exec(ifs.Then, idx)
}

// exec runs a single non-suspending statement.
func (in *Interpreter) exec(stmt ast.Statement, idx int) (int, bool, error) {
	switch s := stmt.(type) {
	case *ast.LetStmt:
		v, err := in.eval(s.Value)
		if err != nil {
			return 0, false, in.raise(s, err)
		}
		in.frame.Assign(s.Name, v)
		return idx + 1, false, nil

	case *ast.PrintStmt:
		parts := make([]string, 0, len(s.Args))
		for _, arg := range s.Args {
			v, err := in.eval(arg)
			if err != nil {
				return 0, false, in.raise(s, err)
			}
			parts = append(parts, formatValue(v))
		}
		in.emitOutput(joinPrint(parts))
		return idx + 1, false, nil

	case *ast.GotoStmt:
		j := in.prog.IndexOfLine(s.Target)
		if j < 0 {
			return 0, false, in.raise(s, fmt.Errorf("line %d: %w", s.Target, ErrUndefinedLine))
		}
		return j, false, nil

	case *ast.GosubStmt:
		j := in.prog.IndexOfLine(s.Target)
		if j < 0 {
			return 0, false, in.raise(s, fmt.Errorf("line %d: %w", s.Target, ErrUndefinedLine))
		}
		in.calls = append(in.calls, returnSite{index: idx + 1, frame: in.frame})
		in.frame = debug.NewFrame(fmt.Sprintf("sub %d", s.Target), in.frame)
		return j, false, nil

	case *ast.ReturnStmt:
		if len(in.calls) == 0 {
			return 0, false, in.raise(s, ErrReturnWithoutGosub)
		}
		site := in.calls[len(in.calls)-1]
		in.calls = in.calls[:len(in.calls)-1]
		in.frame = site.frame
		return site.index, false, nil

	case *ast.EndStmt:
		return in.prog.Len(), false, nil

	case *ast.RemStmt:
		return idx + 1, false, nil

	case *ast.IfStmt:
		// Nested IF in a THEN branch; no further suspension points.
		cond, err := in.eval(s.Cond)
		if err != nil {
			return 0, false, in.raise(s, err)
		}
		if truthy(cond) {
			return in.exec(s.Then, idx)
		}
		return idx + 1, false, nil
	}

	return 0, false, in.raise(stmt, fmt.Errorf("unsupported statement %T", stmt))
}

// raise routes a runtime error through the controller and returns it.
// The machine is left Errored; the error is not swallowed.
func (in *Interpreter) raise(node ast.Node, err error) error {
	in.ctrl.OnException(in.nodeContext(node, debug.NodeStatement), err)
	return err
}

func (in *Interpreter) nodeContext(node ast.Node, kind debug.NodeKind) debug.NodeContext {
	nc := debug.NodeContext{
		Kind:  kind,
		Frame: in.frame,
		Depth: len(in.calls),
	}
	if span, ok := node.Span(); ok {
		nc.Span = &debug.Span{
			Start: debug.Location{Line: span.Start.Line, Column: span.Start.Column},
			End:   debug.Location{Line: span.End.Line, Column: span.End.Column},
		}
	}
	return nc
}

func (in *Interpreter) emitOutput(text string) {
	if in.out != nil {
		fmt.Fprintln(in.out, text)
	}
	if in.bus != nil {
		in.bus.Publish(context.Background(), debug.OutputEvent{Text: text}) //nolint:errcheck // observer failures are logged by the bus
	}
}
