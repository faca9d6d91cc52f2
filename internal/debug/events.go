package debug

import (
	"time"

	"github.com/kesava/nanobasic/internal/event/topic"
)

// Execution event topics.
const (
	// TopicStateChanged is published on every accepted state transition.
	TopicStateChanged topic.Topic = "execution.state.changed"

	// TopicPaused is published when execution suspends.
	TopicPaused topic.Topic = "execution.paused"

	// TopicResumed is published when execution continues after a pause.
	TopicResumed topic.Topic = "execution.resumed"

	// TopicException is published when a runtime error reaches the controller.
	TopicException topic.Topic = "execution.exception"

	// TopicTerminated is published when execution ends.
	TopicTerminated topic.Topic = "execution.terminated"

	// TopicOutput is published when the program produces output.
	TopicOutput topic.Topic = "program.output"
)

// Breakpoint event topics.
const (
	// TopicBreakpointAdded is published when a breakpoint is registered.
	TopicBreakpointAdded topic.Topic = "breakpoint.added"

	// TopicBreakpointRemoved is published when a breakpoint is removed.
	TopicBreakpointRemoved topic.Topic = "breakpoint.removed"

	// TopicBreakpointToggled is published when a breakpoint is enabled or disabled.
	TopicBreakpointToggled topic.Topic = "breakpoint.toggled"

	// TopicBreakpointCondition is published when a breakpoint condition changes.
	TopicBreakpointCondition topic.Topic = "breakpoint.condition.changed"

	// TopicBreakpointHit is published when an enabled breakpoint is reached.
	TopicBreakpointHit topic.Topic = "breakpoint.hit"

	// TopicBreakpointLog is published when a log-only breakpoint is reached.
	TopicBreakpointLog topic.Topic = "breakpoint.log"
)

// StateChangedEvent is the payload for TopicStateChanged.
type StateChangedEvent struct {
	Record TransitionRecord `json:"record"`
}

// EventTopic returns the event topic.
func (StateChangedEvent) EventTopic() topic.Topic { return TopicStateChanged }

// PausedEvent is the payload for TopicPaused.
type PausedEvent struct {
	Reason   PauseReason      `json:"reason"`
	Location Location         `json:"location"`
	Context  ExecutionContext `json:"context"`
}

// EventTopic returns the event topic.
func (PausedEvent) EventTopic() topic.Topic { return TopicPaused }

// ResumedEvent is the payload for TopicResumed.
type ResumedEvent struct {
	Mode StepMode `json:"mode"`
}

// EventTopic returns the event topic.
func (ResumedEvent) EventTopic() topic.Topic { return TopicResumed }

// ExceptionEvent is the payload for TopicException.
type ExceptionEvent struct {
	Message  string   `json:"message"`
	Location Location `json:"location"`
}

// EventTopic returns the event topic.
func (ExceptionEvent) EventTopic() topic.Topic { return TopicException }

// TerminatedEvent is the payload for TopicTerminated.
type TerminatedEvent struct {
	Reason string `json:"reason"`
}

// EventTopic returns the event topic.
func (TerminatedEvent) EventTopic() topic.Topic { return TopicTerminated }

// OutputEvent is the payload for TopicOutput.
type OutputEvent struct {
	Text string `json:"text"`
}

// EventTopic returns the event topic.
func (OutputEvent) EventTopic() topic.Topic { return TopicOutput }

// BreakpointEvent is the shared payload for breakpoint mutations.
type BreakpointEvent struct {
	Action     string     `json:"action"`
	Breakpoint Breakpoint `json:"breakpoint"`
}

// EventTopic returns the topic matching the mutation action.
func (e BreakpointEvent) EventTopic() topic.Topic {
	switch e.Action {
	case "added":
		return TopicBreakpointAdded
	case "removed":
		return TopicBreakpointRemoved
	case "toggled":
		return TopicBreakpointToggled
	case "condition":
		return TopicBreakpointCondition
	default:
		return topic.Topic("breakpoint." + e.Action)
	}
}

// BreakpointHitEvent is the payload for TopicBreakpointHit.
type BreakpointHitEvent struct {
	Breakpoint Breakpoint `json:"breakpoint"`
	HitCount   int        `json:"hitCount"`
	Location   Location   `json:"location"`
	HitAt      time.Time  `json:"hitAt"`
}

// EventTopic returns the event topic.
func (BreakpointHitEvent) EventTopic() topic.Topic { return TopicBreakpointHit }

// BreakpointLogEvent is the payload for TopicBreakpointLog.
type BreakpointLogEvent struct {
	Breakpoint Breakpoint `json:"breakpoint"`
	Message    string     `json:"message"`
	Location   Location   `json:"location"`
}

// EventTopic returns the event topic.
func (BreakpointLogEvent) EventTopic() topic.Topic { return TopicBreakpointLog }
