package event

import (
	"context"
	"log"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/kesava/nanobasic/internal/event/topic"
)

// Bus is a synchronous publish/subscribe hub.
//
// All matching handlers for a Publish call run before Publish returns.
// Handler errors and panics are isolated per handler: one failing
// subscriber never prevents the others from being notified.
type Bus struct {
	mu   sync.RWMutex
	subs []*subscription
	byID map[string]*subscription

	logger *log.Logger

	// Stats
	eventsPublished  atomic.Uint64
	eventsDelivered  atomic.Uint64
	handlersExecuted atomic.Uint64
	handlerErrors    atomic.Uint64
	handlerPanics    atomic.Uint64
}

// Stats holds bus delivery counters.
type Stats struct {
	EventsPublished   uint64
	EventsDelivered   uint64
	HandlersExecuted  uint64
	HandlerErrors     uint64
	HandlerPanics     uint64
	ActiveSubscribers int
}

// BusOption configures a Bus.
type BusOption func(*Bus)

// WithLogger sets the logger used for handler failures.
func WithLogger(l *log.Logger) BusOption {
	return func(b *Bus) {
		b.logger = l
	}
}

// NewBus creates a new event bus.
func NewBus(opts ...BusOption) *Bus {
	b := &Bus{
		byID:   make(map[string]*subscription),
		logger: log.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscribe registers a handler for every event whose topic matches the
// given pattern. Use "**" for a catch-all subscription.
func (b *Bus) Subscribe(pattern topic.Topic, handler Handler, opts ...SubscriptionOption) (Subscription, error) {
	if handler == nil {
		return nil, ErrNilHandler
	}
	if !pattern.IsValid() {
		return nil, ErrInvalidTopic
	}

	sub := newSubscription(generateID(), pattern, handler, opts...)

	b.mu.Lock()
	b.subs = append(b.subs, sub)
	sort.SliceStable(b.subs, func(i, j int) bool {
		return b.subs[i].config.priority < b.subs[j].config.priority
	})
	b.byID[sub.ID()] = sub
	b.mu.Unlock()

	return sub, nil
}

// SubscribeFunc is a convenience method for subscribing with a function handler.
func (b *Bus) SubscribeFunc(pattern topic.Topic, fn HandlerFunc, opts ...SubscriptionOption) (Subscription, error) {
	return b.Subscribe(pattern, fn, opts...)
}

// Unsubscribe removes a subscription from the bus.
func (b *Bus) Unsubscribe(sub Subscription) error {
	if sub == nil {
		return ErrInvalidSubscription
	}

	sub.Cancel()

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.byID[sub.ID()]; !ok {
		return ErrSubscriptionNotFound
	}
	delete(b.byID, sub.ID())
	for i, s := range b.subs {
		if s.ID() == sub.ID() {
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			break
		}
	}
	return nil
}

// Publish delivers the event synchronously to every matching active
// subscription, in priority order. The event must implement TopicProvider.
func (b *Bus) Publish(ctx context.Context, event any) error {
	tp, ok := event.(TopicProvider)
	if !ok {
		return ErrInvalidEvent
	}
	eventTopic := tp.EventTopic()
	if !eventTopic.IsValid() {
		return ErrInvalidEvent
	}

	b.eventsPublished.Add(1)

	matched := b.match(eventTopic)
	for _, sub := range matched {
		if !sub.IsActive() || !sub.shouldDeliver(event) {
			continue
		}

		b.deliver(ctx, eventTopic, event, sub)

		if sub.config.once {
			sub.Cancel()
			b.Unsubscribe(sub) //nolint:errcheck // already cancelled, removal is best effort
		}
	}

	return nil
}

// match returns a snapshot of subscriptions matching the topic, in
// priority order.
func (b *Bus) match(eventTopic topic.Topic) []*subscription {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var matched []*subscription
	for _, sub := range b.subs {
		if eventTopic.Match(sub.pattern) {
			matched = append(matched, sub)
		}
	}
	return matched
}

// deliver invokes a single handler with panic isolation.
func (b *Bus) deliver(ctx context.Context, eventTopic topic.Topic, event any, sub *subscription) {
	defer func() {
		if r := recover(); r != nil {
			b.handlerPanics.Add(1)
			b.logger.Printf("event: handler panic on %s: %v", eventTopic, r)
		}
	}()

	b.handlersExecuted.Add(1)
	if err := sub.handler.Handle(ctx, event); err != nil {
		b.handlerErrors.Add(1)
		b.logger.Printf("event: handler error on %s: %v", eventTopic, err)
		return
	}
	b.eventsDelivered.Add(1)
}

// Stats returns current bus statistics.
func (b *Bus) Stats() Stats {
	b.mu.RLock()
	active := 0
	for _, sub := range b.subs {
		if sub.IsActive() {
			active++
		}
	}
	b.mu.RUnlock()

	return Stats{
		EventsPublished:   b.eventsPublished.Load(),
		EventsDelivered:   b.eventsDelivered.Load(),
		HandlersExecuted:  b.handlersExecuted.Load(),
		HandlerErrors:     b.handlerErrors.Load(),
		HandlerPanics:     b.handlerPanics.Load(),
		ActiveSubscribers: active,
	}
}
