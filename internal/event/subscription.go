package event

import (
	"sync/atomic"

	"github.com/kesava/nanobasic/internal/event/topic"
)

// SubscriptionState represents the state of a subscription.
type SubscriptionState int32

const (
	// SubscriptionStateActive means the subscription is receiving events.
	SubscriptionStateActive SubscriptionState = iota

	// SubscriptionStatePaused means the subscription is temporarily not receiving events.
	SubscriptionStatePaused

	// SubscriptionStateCancelled means the subscription has been permanently cancelled.
	SubscriptionStateCancelled
)

// String returns a human-readable state name.
func (s SubscriptionState) String() string {
	switch s {
	case SubscriptionStateActive:
		return "active"
	case SubscriptionStatePaused:
		return "paused"
	case SubscriptionStateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Subscription represents an active event subscription.
type Subscription interface {
	// ID returns the unique subscription identifier.
	ID() string

	// Topic returns the subscribed topic pattern.
	Topic() topic.Topic

	// State returns the current subscription state.
	State() SubscriptionState

	// IsActive returns true if the subscription can receive events.
	IsActive() bool

	// Pause temporarily stops event delivery to this subscription.
	Pause()

	// Resume restarts event delivery after a pause.
	Resume()

	// Cancel permanently cancels the subscription.
	// After cancellation, the subscription cannot be resumed.
	Cancel()
}

// SubscriptionOption configures a subscription.
type SubscriptionOption func(*subscriptionConfig)

type subscriptionConfig struct {
	priority Priority
	filter   FilterFunc
	once     bool
}

// WithPriority sets the subscription priority. Lower values run first.
func WithPriority(p Priority) SubscriptionOption {
	return func(c *subscriptionConfig) {
		c.priority = p
	}
}

// WithFilter sets a filter predicate. Events are only delivered when the
// predicate returns true.
func WithFilter(f FilterFunc) SubscriptionOption {
	return func(c *subscriptionConfig) {
		c.filter = f
	}
}

// WithOnce makes the subscription cancel itself after the first delivery.
func WithOnce() SubscriptionOption {
	return func(c *subscriptionConfig) {
		c.once = true
	}
}

// subscription is the internal Subscription implementation.
type subscription struct {
	id      string
	pattern topic.Topic
	handler Handler
	config  subscriptionConfig
	state   atomic.Int32
}

func newSubscription(id string, pattern topic.Topic, handler Handler, opts ...SubscriptionOption) *subscription {
	config := subscriptionConfig{priority: PriorityNormal}
	for _, opt := range opts {
		opt(&config)
	}

	return &subscription{
		id:      id,
		pattern: pattern,
		handler: handler,
		config:  config,
	}
}

func (s *subscription) ID() string {
	return s.id
}

func (s *subscription) Topic() topic.Topic {
	return s.pattern
}

func (s *subscription) State() SubscriptionState {
	return SubscriptionState(s.state.Load())
}

func (s *subscription) IsActive() bool {
	return s.State() == SubscriptionStateActive
}

func (s *subscription) Pause() {
	s.state.CompareAndSwap(
		int32(SubscriptionStateActive),
		int32(SubscriptionStatePaused),
	)
}

func (s *subscription) Resume() {
	s.state.CompareAndSwap(
		int32(SubscriptionStatePaused),
		int32(SubscriptionStateActive),
	)
}

func (s *subscription) Cancel() {
	s.state.Store(int32(SubscriptionStateCancelled))
}

// shouldDeliver reports whether the event passes the subscription filter.
func (s *subscription) shouldDeliver(event any) bool {
	if s.config.filter == nil {
		return true
	}
	return s.config.filter(event)
}
