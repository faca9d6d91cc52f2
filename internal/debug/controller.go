package debug

import (
	"context"
	"log"
	"time"
)

// Publisher is the bus surface the execution core publishes through,
// satisfied by *event.Bus. Keeping it an interface lets tests observe
// emissions without a full bus.
type Publisher interface {
	Publish(ctx context.Context, ev any) error
}

// Controller glues the state machine and the breakpoint registry to an
// interpreter that cannot itself suspend mid-evaluation. The interpreter
// calls Before ahead of every statement; the controller decides whether
// to suspend, records the pause site for inspection, and announces
// everything on the event bus.
//
// A Controller is explicitly constructed and handed to the interpreter;
// it is never a shared package instance.
type Controller struct {
	machine  *Machine
	registry *Registry
	bus      Publisher
	logger   *log.Logger
}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithControllerLogger sets the logger used for rejected operations.
func WithControllerLogger(l *log.Logger) ControllerOption {
	return func(c *Controller) {
		c.logger = l
	}
}

// NewController creates a controller over the given machine, registry
// and bus. The bus may be nil. Every accepted machine transition is
// re-published as an execution.state.changed event.
func NewController(machine *Machine, registry *Registry, bus Publisher, opts ...ControllerOption) *Controller {
	c := &Controller{
		machine:  machine,
		registry: registry,
		bus:      bus,
		logger:   log.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}

	machine.OnTransition(func(rec TransitionRecord) {
		c.publish(StateChangedEvent{Record: rec})
	})

	return c
}

func (c *Controller) publish(ev any) {
	if c.bus == nil {
		return
	}
	c.bus.Publish(context.Background(), ev) //nolint:errcheck // observer failures are logged by the bus
}

// Machine returns the underlying state machine.
func (c *Controller) Machine() *Machine {
	return c.machine
}

// Registry returns the underlying breakpoint registry.
func (c *Controller) Registry() *Registry {
	return c.registry
}

// Before is the suspension check, called immediately prior to executing
// any instrumented AST node. In order:
//
//  1. A set skip-next-pause flag is consumed and suppresses everything.
//     This is the only place the flag is consumed.
//  2. In Stepping state, pause with reason Step.
//  3. When the node carries a source location, ask the registry; on a
//     hit, pause with reason Breakpoint and emit breakpoint.hit with the
//     updated hit count.
//  4. Otherwise execution continues.
func (c *Controller) Before(nc NodeContext) {
	if c.machine.ConsumeSkipNextPause() {
		return
	}

	if c.machine.State() == StateStepping {
		c.pause(nc, ReasonStep)
		return
	}

	loc, ok := nc.Location()
	if !ok {
		return
	}

	var snapshot map[string]any
	if nc.Frame != nil {
		snapshot = nc.Frame.Snapshot()
	}

	hit := c.registry.ShouldPauseAt(loc, snapshot)
	if hit == nil {
		return
	}

	c.pause(nc, ReasonBreakpoint)
	c.publish(BreakpointHitEvent{
		Breakpoint: hit.Breakpoint,
		HitCount:   hit.HitCount,
		Location:   loc,
		HitAt:      hit.Breakpoint.LastHitAt,
	})
}

// pause records the suspension site and flips the machine to Paused.
func (c *Controller) pause(nc NodeContext, reason PauseReason) {
	ctx := c.executionContext(nc)
	if !c.machine.Pause(reason, ctx) {
		return
	}

	loc, _ := nc.Location()
	c.publish(PausedEvent{
		Reason:   reason,
		Location: loc,
		Context:  ctx,
	})
}

func (c *Controller) executionContext(nc NodeContext) ExecutionContext {
	ctx := ExecutionContext{
		Depth:     nc.Depth,
		UpdatedAt: time.Now(),
	}
	if loc, ok := nc.Location(); ok {
		ctx.Line = loc.Line
		ctx.Column = loc.Column
	}
	if nc.Frame != nil {
		ctx.FrameName = nc.Frame.Name()
	}
	return ctx
}

// IsPaused reflects the state machine.
func (c *Controller) IsPaused() bool {
	return c.machine.State() == StatePaused
}

// OnException surfaces an interpreter runtime error: it emits one
// exception event, forces the machine to Errored, then re-invokes Before
// so an observer gets a final inspection opportunity at the failure site
// before the error propagates to the caller. The error itself is not
// swallowed here.
func (c *Controller) OnException(nc NodeContext, err error) {
	loc, _ := nc.Location()
	msg := "runtime error"
	if err != nil {
		msg = err.Error()
	}
	c.publish(ExceptionEvent{Message: msg, Location: loc})

	c.machine.HandleError(err, c.executionContext(nc))

	c.Before(nc)
}

// StartExecution transitions Idle -> Running.
func (c *Controller) StartExecution() bool {
	return c.machine.StartExecution()
}

// Resume continues after a pause, arming the skip-next-pause flag so the
// breakpoint that caused the pause is not immediately re-triggered.
func (c *Controller) Resume() bool {
	if !c.machine.Resume() {
		return false
	}
	c.publish(ResumedEvent{Mode: StepRun})
	return true
}

// StepExecution arms single-statement execution in the given mode.
func (c *Controller) StepExecution(mode StepMode) bool {
	return c.machine.Step(mode)
}

// RequestPause suspends execution on behalf of the user. Cooperative:
// takes effect at the next suspension check of the driver loop.
func (c *Controller) RequestPause() bool {
	ok := c.machine.Pause(ReasonUserRequest, c.machine.Context())
	if ok {
		ctx := c.machine.Context()
		c.publish(PausedEvent{
			Reason:   ReasonUserRequest,
			Location: Location{Line: ctx.Line, Column: ctx.Column},
			Context:  ctx,
		})
	}
	return ok
}

// Terminate ends execution with the given reason.
func (c *Controller) Terminate(reason string) bool {
	ok := c.machine.Terminate(reason)
	if ok {
		c.publish(TerminatedEvent{Reason: reason})
	}
	return ok
}

// ResetState forces the machine back to Idle. Continuation state held by
// the interpreter must be reset by the interpreter.
func (c *Controller) ResetState() {
	c.machine.Reset()
}

// CurrentStepMode returns the machine's step mode.
func (c *Controller) CurrentStepMode() StepMode {
	return c.machine.StepMode()
}

// StateInfo returns a display-oriented machine snapshot.
func (c *Controller) StateInfo() StateInfo {
	return c.machine.StateInfo()
}

// History returns the machine's bounded transition history.
func (c *Controller) History() []TransitionRecord {
	return c.machine.History()
}
