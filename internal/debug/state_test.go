package debug

import (
	"errors"
	"io"
	"log"
	"testing"
)

func quietLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func newTestMachine(opts ...MachineOption) *Machine {
	opts = append([]MachineOption{WithMachineLogger(quietLogger())}, opts...)
	return NewMachine(opts...)
}

// forceState drives the machine to an arbitrary state through legal
// transitions.
func forceState(t *testing.T, m *Machine, target ExecutionState) {
	t.Helper()

	var path []ExecutionState
	switch target {
	case StateIdle:
		return
	case StateRunning:
		path = []ExecutionState{StateRunning}
	case StatePaused:
		path = []ExecutionState{StateRunning, StatePaused}
	case StateStepping:
		path = []ExecutionState{StateStepping}
	case StateErrored:
		path = []ExecutionState{StateRunning, StateErrored}
	case StateTerminated:
		path = []ExecutionState{StateRunning, StateTerminated}
	}

	for _, s := range path {
		if !m.TransitionTo(s, "force") {
			t.Fatalf("forceState: transition %s -> %s rejected", m.State(), s)
		}
	}
}

func TestMachine_AdjacencyRejection(t *testing.T) {
	states := []ExecutionState{
		StateIdle, StateRunning, StatePaused, StateStepping, StateErrored, StateTerminated,
	}

	for _, from := range states {
		for _, to := range states {
			m := newTestMachine()
			forceState(t, m, from)

			ok := m.TransitionTo(to, "test")
			legal := adjacency[from][to]

			if ok != legal {
				t.Errorf("TransitionTo(%s -> %s) = %v, want %v", from, to, ok, legal)
			}
			if !legal && m.State() != from {
				t.Errorf("rejected transition %s -> %s changed state to %s", from, to, m.State())
			}
		}
	}
}

func TestMachine_ResumeOnlyFromPaused(t *testing.T) {
	for _, from := range []ExecutionState{StateIdle, StateRunning, StateStepping, StateErrored, StateTerminated} {
		m := newTestMachine()
		forceState(t, m, from)
		if m.Resume() {
			t.Errorf("Resume() from %s accepted, want rejected", from)
		}
	}

	m := newTestMachine()
	forceState(t, m, StatePaused)
	if !m.Resume() {
		t.Fatal("Resume() from Paused rejected")
	}
	if m.State() != StateRunning {
		t.Errorf("state after Resume() = %s, want running", m.State())
	}
	if m.StepMode() != StepRun {
		t.Errorf("step mode after Resume() = %s, want run", m.StepMode())
	}
	if !m.SkipNextPause() {
		t.Error("Resume() must leave the skip-next-pause flag set; only the suspension check clears it")
	}
}

func TestMachine_StepFromPausedAndIdle(t *testing.T) {
	for _, from := range []ExecutionState{StateIdle, StatePaused} {
		m := newTestMachine()
		forceState(t, m, from)
		if !m.Step(StepInto) {
			t.Errorf("Step() from %s rejected", from)
			continue
		}
		if m.State() != StateStepping {
			t.Errorf("state after Step() = %s, want stepping", m.State())
		}
		if m.StepMode() != StepInto {
			t.Errorf("step mode after Step() = %s, want into", m.StepMode())
		}
		if !m.SkipNextPause() {
			t.Error("Step() must arm the skip-next-pause flag")
		}
	}

	m := newTestMachine()
	forceState(t, m, StateRunning)
	if m.Step(StepInto) {
		t.Error("Step() from Running accepted, want rejected")
	}
}

func TestMachine_PauseReasonOnlyWhilePaused(t *testing.T) {
	m := newTestMachine()
	forceState(t, m, StateRunning)

	if m.PauseReason() != "" {
		t.Errorf("pause reason while running = %q, want empty", m.PauseReason())
	}

	if !m.Pause(ReasonBreakpoint, ExecutionContext{Line: 20}) {
		t.Fatal("Pause() rejected")
	}
	if m.PauseReason() != ReasonBreakpoint {
		t.Errorf("pause reason = %q, want breakpoint", m.PauseReason())
	}
	if m.Context().Line != 20 {
		t.Errorf("context line = %d, want 20", m.Context().Line)
	}

	m.Resume()
	if m.PauseReason() != "" {
		t.Errorf("pause reason after Resume() = %q, want empty", m.PauseReason())
	}
}

func TestMachine_ConsumeSkipNextPause(t *testing.T) {
	m := newTestMachine()

	if m.ConsumeSkipNextPause() {
		t.Error("flag consumed while never set")
	}

	m.SetSkipNextPause(true)
	if !m.ConsumeSkipNextPause() {
		t.Error("first consume returned false")
	}
	if m.ConsumeSkipNextPause() {
		t.Error("second consume returned true; flag must be one-shot")
	}
}

func TestMachine_HandleError(t *testing.T) {
	m := newTestMachine()
	forceState(t, m, StateRunning)

	boom := errors.New("division by zero")
	if !m.HandleError(boom, ExecutionContext{Line: 30}) {
		t.Fatal("HandleError() rejected")
	}
	if m.State() != StateErrored {
		t.Errorf("state = %s, want errored", m.State())
	}
	if m.LastError() != boom {
		t.Errorf("LastError() = %v, want %v", m.LastError(), boom)
	}
	if m.PauseReason() != "" {
		t.Errorf("pause reason in errored state = %q, want empty", m.PauseReason())
	}

	// Errored is terminal except for reset/terminate.
	if m.TransitionTo(StateRunning, "test") {
		t.Error("errored -> running accepted, want rejected")
	}
	if !m.Terminate("cleanup") {
		t.Error("errored -> terminated rejected")
	}
}

func TestMachine_ResetForcesIdle(t *testing.T) {
	for _, from := range []ExecutionState{StateRunning, StatePaused, StateStepping, StateErrored, StateTerminated} {
		m := newTestMachine()
		forceState(t, m, from)
		m.SetSkipNextPause(true)

		m.Reset()

		if m.State() != StateIdle {
			t.Errorf("state after Reset() from %s = %s, want idle", from, m.State())
		}
		if m.SkipNextPause() {
			t.Error("Reset() left the skip flag set")
		}
		if m.PauseReason() != "" {
			t.Errorf("Reset() left pause reason %q", m.PauseReason())
		}
		if m.LastError() != nil {
			t.Errorf("Reset() left error %v", m.LastError())
		}
	}
}

func TestMachine_TransitionSubscriber(t *testing.T) {
	m := newTestMachine()

	var records []TransitionRecord
	m.OnTransition(func(rec TransitionRecord) {
		records = append(records, rec)
	})

	m.StartExecution()
	m.Pause(ReasonStep, ExecutionContext{Line: 10})
	m.TransitionTo(StateErrored, "illegal") // rejected: paused -> errored

	if len(records) != 2 {
		t.Fatalf("subscriber saw %d transitions, want 2", len(records))
	}
	if records[0].From != StateIdle || records[0].To != StateRunning {
		t.Errorf("first record = %s -> %s", records[0].From, records[0].To)
	}
	if records[1].To != StatePaused || records[1].Reason != string(ReasonStep) {
		t.Errorf("second record = %+v", records[1])
	}
}

func TestMachine_HistoryRingDropsOldest(t *testing.T) {
	m := newTestMachine(WithHistoryCapacity(3))

	// idle->running, running->paused, paused->running, running->paused
	m.StartExecution()
	m.Pause(ReasonStep, ExecutionContext{})
	m.Resume()
	m.Pause(ReasonBreakpoint, ExecutionContext{})

	history := m.History()
	if len(history) != 3 {
		t.Fatalf("history length = %d, want 3", len(history))
	}
	// Oldest (idle->running) dropped.
	if history[0].From != StateRunning || history[0].To != StatePaused {
		t.Errorf("oldest retained record = %s -> %s, want running -> paused", history[0].From, history[0].To)
	}
	if history[2].Reason != string(ReasonBreakpoint) {
		t.Errorf("newest record reason = %q, want breakpoint", history[2].Reason)
	}
}

func TestMachine_StateInfo(t *testing.T) {
	m := newTestMachine()
	forceState(t, m, StateRunning)
	m.Pause(ReasonBreakpoint, ExecutionContext{Line: 20})

	info := m.StateInfo()
	if !info.IsPaused || info.IsRunning {
		t.Errorf("StateInfo flags = paused:%v running:%v", info.IsPaused, info.IsRunning)
	}
	if info.Display != "paused (breakpoint)" {
		t.Errorf("Display = %q", info.Display)
	}

	m.Resume()
	info = m.StateInfo()
	if info.IsPaused || !info.IsRunning {
		t.Errorf("StateInfo after resume = paused:%v running:%v", info.IsPaused, info.IsRunning)
	}
}
