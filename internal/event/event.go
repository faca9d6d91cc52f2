// Package event provides the synchronous publish/subscribe bus that
// decouples the execution-control core from its observers.
//
// Events use hierarchical topics with dot notation ("execution.paused",
// "breakpoint.hit"). Subscriptions may target an exact topic or use
// wildcard patterns: "*" matches one segment, "**" matches any number,
// so a catch-all observer subscribes to "**".
//
// Delivery is strictly synchronous: every matching handler runs before
// Publish returns, in priority order. A handler that returns an error or
// panics is isolated; the failure is counted, and the remaining handlers
// still run. There is no queued or asynchronous dispatch because the
// debugger's execution model is single-threaded and cooperative.
package event

import (
	"context"
	"crypto/rand"
	"encoding/hex"

	"github.com/kesava/nanobasic/internal/event/topic"
)

// TopicProvider is implemented by events that carry their own topic.
// Anything published on the bus must implement it.
type TopicProvider interface {
	EventTopic() topic.Topic
}

// Handler processes events delivered by the bus.
type Handler interface {
	Handle(ctx context.Context, event any) error
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, event any) error

// Handle calls the function.
func (f HandlerFunc) Handle(ctx context.Context, event any) error {
	return f(ctx, event)
}

// FilterFunc is a predicate used to filter events per subscription.
type FilterFunc func(event any) bool

// Priority determines handler execution order. Lower values execute first.
type Priority int

const (
	// PriorityHigh is for handlers that must observe state first (the REPL).
	PriorityHigh Priority = 0

	// PriorityNormal is the default priority.
	PriorityNormal Priority = 100

	// PriorityLow is for metrics and logging handlers that run last.
	PriorityLow Priority = 200
)

// generateID creates a random 16-character hex identifier for subscriptions.
func generateID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return "0000000000000000"
	}
	return hex.EncodeToString(b)
}
