package debug

import (
	"log"
	"sync"
	"time"
)

// ExecutionState represents the current state of the debugger.
type ExecutionState int

const (
	// StateIdle is the initial state, before any execution.
	StateIdle ExecutionState = iota
	// StateRunning is when the program is executing continuously.
	StateRunning
	// StatePaused is when execution is suspended for inspection.
	StatePaused
	// StateStepping is when execution advances one statement at a time.
	StateStepping
	// StateErrored is when a runtime error stopped execution.
	StateErrored
	// StateTerminated is when the program has finished or was stopped.
	StateTerminated
)

// String returns a string representation of the state.
func (s ExecutionState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StatePaused:
		return "paused"
	case StateStepping:
		return "stepping"
	case StateErrored:
		return "errored"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// StepMode describes how execution advances.
type StepMode int

const (
	// StepRun is continuous execution.
	StepRun StepMode = iota
	// StepInto advances one statement, entering branches.
	StepInto
	// StepOver advances one statement, treating branches as a unit.
	StepOver
	// StepOut runs until the current frame completes.
	StepOut
)

// String returns a string representation of the step mode.
func (m StepMode) String() string {
	switch m {
	case StepRun:
		return "run"
	case StepInto:
		return "into"
	case StepOver:
		return "over"
	case StepOut:
		return "out"
	default:
		return "unknown"
	}
}

// PauseReason is the cause of the most recent suspension. It is
// non-empty exactly while the machine is Paused.
type PauseReason string

const (
	// ReasonBreakpoint means a breakpoint was hit.
	ReasonBreakpoint PauseReason = "breakpoint"
	// ReasonStep means a step operation completed.
	ReasonStep PauseReason = "step"
	// ReasonException means a runtime error occurred.
	ReasonException PauseReason = "exception"
	// ReasonUserRequest means the user asked for a pause.
	ReasonUserRequest PauseReason = "user-request"
	// ReasonProgramEnd means the program ran to completion.
	ReasonProgramEnd PauseReason = "program-end"
)

// adjacency is the validated transition table. A transition is legal
// only when the target appears in the current state's set.
var adjacency = map[ExecutionState]map[ExecutionState]bool{
	StateIdle:       {StateRunning: true, StateStepping: true},
	StateRunning:    {StatePaused: true, StateStepping: true, StateErrored: true, StateTerminated: true, StateIdle: true},
	StatePaused:     {StateRunning: true, StateStepping: true, StateTerminated: true, StateIdle: true},
	StateStepping:   {StatePaused: true, StateRunning: true, StateErrored: true, StateTerminated: true},
	StateErrored:    {StateIdle: true, StateTerminated: true},
	StateTerminated: {StateIdle: true},
}

// TransitionRecord is one entry in the machine's history ring.
type TransitionRecord struct {
	From      ExecutionState   `json:"from"`
	To        ExecutionState   `json:"to"`
	Reason    string           `json:"reason"`
	Timestamp time.Time        `json:"timestamp"`
	Context   ExecutionContext `json:"context"`
}

// StateInfo is a display-oriented snapshot for the UI layer.
type StateInfo struct {
	State     ExecutionState `json:"state"`
	Display   string         `json:"display"`
	StepMode  StepMode       `json:"stepMode"`
	Reason    PauseReason    `json:"reason,omitempty"`
	IsPaused  bool           `json:"isPaused"`
	IsRunning bool           `json:"isRunning"`
}

// DefaultHistoryCapacity bounds the transition history when no capacity
// is configured.
const DefaultHistoryCapacity = 64

// TransitionFunc is invoked synchronously after every accepted transition.
type TransitionFunc func(TransitionRecord)

// Machine owns the current execution state and validates every
// transition against the adjacency table. Invalid transitions are
// rejected with a boolean false and a warning log, never an error; this
// keeps pause/resume robust against spurious double-invocations from a
// UI.
type Machine struct {
	mu            sync.RWMutex
	state         ExecutionState
	stepMode      StepMode
	pauseReason   PauseReason
	skipNextPause bool
	context       ExecutionContext
	lastError     error

	history *historyRing

	onTransition TransitionFunc
	logger       *log.Logger
}

// MachineOption configures a Machine.
type MachineOption func(*Machine)

// WithHistoryCapacity bounds the transition history ring.
func WithHistoryCapacity(n int) MachineOption {
	return func(m *Machine) {
		if n > 0 {
			m.history = newHistoryRing(n)
		}
	}
}

// WithMachineLogger sets the logger used for rejected transitions.
func WithMachineLogger(l *log.Logger) MachineOption {
	return func(m *Machine) {
		m.logger = l
	}
}

// NewMachine creates a state machine in the Idle state.
func NewMachine(opts ...MachineOption) *Machine {
	m := &Machine{
		state:   StateIdle,
		history: newHistoryRing(DefaultHistoryCapacity),
		logger:  log.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// OnTransition registers the transition subscriber. It is invoked
// synchronously with every accepted transition record.
func (m *Machine) OnTransition(fn TransitionFunc) {
	m.mu.Lock()
	m.onTransition = fn
	m.mu.Unlock()
}

// State returns the current execution state.
func (m *Machine) State() ExecutionState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// StepMode returns the current step mode.
func (m *Machine) StepMode() StepMode {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stepMode
}

// PauseReason returns the current pause reason. It is empty unless the
// machine is Paused.
func (m *Machine) PauseReason() PauseReason {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pauseReason
}

// LastError returns the error recorded by HandleError, if any.
func (m *Machine) LastError() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastError
}

// Context returns the current execution context.
func (m *Machine) Context() ExecutionContext {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.context
}

// SetContext refreshes the execution context.
func (m *Machine) SetContext(ctx ExecutionContext) {
	m.mu.Lock()
	if ctx.UpdatedAt.IsZero() {
		ctx.UpdatedAt = time.Now()
	}
	m.context = ctx
	m.mu.Unlock()
}

// TransitionTo attempts a transition to the next state. It returns false
// and logs a warning when the adjacency table forbids the edge; the
// state is left unchanged.
func (m *Machine) TransitionTo(next ExecutionState, reason string) bool {
	m.mu.Lock()
	record, subscriber, ok := m.transitionLocked(next, reason)
	m.mu.Unlock()

	if ok && subscriber != nil {
		subscriber(record)
	}
	return ok
}

// transitionLocked performs the validated transition. The caller holds
// the lock; the returned subscriber must be invoked after the lock is
// released so handlers can re-enter the machine.
func (m *Machine) transitionLocked(next ExecutionState, reason string) (TransitionRecord, TransitionFunc, bool) {
	if !adjacency[m.state][next] {
		m.logger.Printf("debug: rejected transition %s -> %s (%s)", m.state, next, reason)
		return TransitionRecord{}, nil, false
	}

	record := TransitionRecord{
		From:      m.state,
		To:        next,
		Reason:    reason,
		Timestamp: time.Now(),
		Context:   m.context,
	}

	m.state = next
	if next != StatePaused {
		// Pause reason is meaningful only while paused.
		m.pauseReason = ""
	}
	m.history.append(record)

	return record, m.onTransition, true
}

// StartExecution transitions Idle -> Running.
func (m *Machine) StartExecution() bool {
	return m.TransitionTo(StateRunning, "start")
}

// Pause suspends execution with the given reason and context.
func (m *Machine) Pause(reason PauseReason, ctx ExecutionContext) bool {
	m.mu.Lock()
	if ctx.UpdatedAt.IsZero() {
		ctx.UpdatedAt = time.Now()
	}
	m.context = ctx
	record, subscriber, ok := m.transitionLocked(StatePaused, string(reason))
	if ok {
		m.pauseReason = reason
	}
	m.mu.Unlock()

	if ok && subscriber != nil {
		subscriber(record)
	}
	return ok
}

// Resume continues execution after a pause. It is legal only from
// Paused: it sets step mode to Run, arms the skip-next-pause flag, and
// transitions to Running.
//
// The skip flag is deliberately not cleared here. Only the controller's
// suspension check consumes it, the first time it is consulted after the
// transition. Clearing it eagerly would make the breakpoint that caused
// the pause re-trigger before the next statement runs.
func (m *Machine) Resume() bool {
	m.mu.Lock()
	if m.state != StatePaused {
		m.logger.Printf("debug: resume rejected in state %s", m.state)
		m.mu.Unlock()
		return false
	}
	m.stepMode = StepRun
	m.skipNextPause = true
	record, subscriber, ok := m.transitionLocked(StateRunning, "resume")
	if !ok {
		m.skipNextPause = false
	}
	m.mu.Unlock()

	if ok && subscriber != nil {
		subscriber(record)
	}
	return ok
}

// Step arms single-statement execution. It is legal from Paused or Idle:
// it sets the step mode, arms the skip-next-pause flag, and transitions
// to Stepping.
func (m *Machine) Step(mode StepMode) bool {
	m.mu.Lock()
	if m.state != StatePaused && m.state != StateIdle {
		m.logger.Printf("debug: step rejected in state %s", m.state)
		m.mu.Unlock()
		return false
	}
	m.stepMode = mode
	m.skipNextPause = true
	record, subscriber, ok := m.transitionLocked(StateStepping, "step-"+mode.String())
	if !ok {
		m.skipNextPause = false
	}
	m.mu.Unlock()

	if ok && subscriber != nil {
		subscriber(record)
	}
	return ok
}

// HandleError records the error and transitions to Errored.
func (m *Machine) HandleError(err error, ctx ExecutionContext) bool {
	m.mu.Lock()
	if ctx.UpdatedAt.IsZero() {
		ctx.UpdatedAt = time.Now()
	}
	m.context = ctx
	reason := "error"
	if err != nil {
		reason = err.Error()
	}
	record, subscriber, ok := m.transitionLocked(StateErrored, reason)
	if ok {
		m.lastError = err
	}
	m.mu.Unlock()

	if ok && subscriber != nil {
		subscriber(record)
	}
	return ok
}

// Terminate ends execution.
func (m *Machine) Terminate(reason string) bool {
	if reason == "" {
		reason = "terminated"
	}
	return m.TransitionTo(StateTerminated, reason)
}

// Reset forces the machine back to Idle and clears pause and error
// context. Unlike TransitionTo it always succeeds; it is the one escape
// hatch out of any state. Continuation state held by the interpreter
// must be reset separately by that collaborator.
func (m *Machine) Reset() {
	m.mu.Lock()
	record := TransitionRecord{
		From:      m.state,
		To:        StateIdle,
		Reason:    "reset",
		Timestamp: time.Now(),
		Context:   m.context,
	}
	m.state = StateIdle
	m.stepMode = StepRun
	m.pauseReason = ""
	m.skipNextPause = false
	m.lastError = nil
	m.context = ExecutionContext{}
	m.history.append(record)
	subscriber := m.onTransition
	m.mu.Unlock()

	if subscriber != nil {
		subscriber(record)
	}
}

// SetSkipNextPause arms or clears the one-shot pause suppression flag.
func (m *Machine) SetSkipNextPause(v bool) {
	m.mu.Lock()
	m.skipNextPause = v
	m.mu.Unlock()
}

// ConsumeSkipNextPause reports whether the skip flag was set, clearing
// it as a side effect. This is the single consumption point for the
// flag.
func (m *Machine) ConsumeSkipNextPause() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.skipNextPause {
		return false
	}
	m.skipNextPause = false
	return true
}

// SkipNextPause reports the flag without consuming it.
func (m *Machine) SkipNextPause() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.skipNextPause
}

// StateInfo returns a display-oriented snapshot.
func (m *Machine) StateInfo() StateInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()

	display := m.state.String()
	if m.state == StatePaused && m.pauseReason != "" {
		display += " (" + string(m.pauseReason) + ")"
	}

	return StateInfo{
		State:     m.state,
		Display:   display,
		StepMode:  m.stepMode,
		Reason:    m.pauseReason,
		IsPaused:  m.state == StatePaused,
		IsRunning: m.state == StateRunning || m.state == StateStepping,
	}
}

// History returns the bounded transition history, oldest first.
func (m *Machine) History() []TransitionRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.history.records()
}

// historyRing is a fixed-capacity ring buffer of transition records.
// When full, the oldest record is dropped first.
type historyRing struct {
	buf   []TransitionRecord
	start int
	count int
}

func newHistoryRing(capacity int) *historyRing {
	return &historyRing{buf: make([]TransitionRecord, capacity)}
}

func (r *historyRing) append(rec TransitionRecord) {
	if r.count < len(r.buf) {
		r.buf[(r.start+r.count)%len(r.buf)] = rec
		r.count++
		return
	}
	r.buf[r.start] = rec
	r.start = (r.start + 1) % len(r.buf)
}

func (r *historyRing) records() []TransitionRecord {
	out := make([]TransitionRecord, r.count)
	for i := 0; i < r.count; i++ {
		out[i] = r.buf[(r.start+i)%len(r.buf)]
	}
	return out
}
