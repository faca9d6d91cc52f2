package event

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"

	"github.com/kesava/nanobasic/internal/event/topic"
)

// testEvent is a minimal event carrying its own topic.
type testEvent struct {
	Topic topic.Topic
	Value int
}

func (e testEvent) EventTopic() topic.Topic {
	return e.Topic
}

func quietBus() *Bus {
	return NewBus(WithLogger(log.New(io.Discard, "", 0)))
}

func TestBus_PublishDeliversToExactMatch(t *testing.T) {
	bus := quietBus()

	var got []int
	_, err := bus.SubscribeFunc("breakpoint.hit", func(ctx context.Context, ev any) error {
		got = append(got, ev.(testEvent).Value)
		return nil
	})
	if err != nil {
		t.Fatalf("SubscribeFunc() failed: %v", err)
	}

	if err := bus.Publish(context.Background(), testEvent{Topic: "breakpoint.hit", Value: 1}); err != nil {
		t.Fatalf("Publish() failed: %v", err)
	}
	if err := bus.Publish(context.Background(), testEvent{Topic: "breakpoint.added", Value: 2}); err != nil {
		t.Fatalf("Publish() failed: %v", err)
	}

	if len(got) != 1 || got[0] != 1 {
		t.Errorf("expected delivery of value 1 only, got %v", got)
	}
}

func TestBus_CatchAllSubscription(t *testing.T) {
	bus := quietBus()

	count := 0
	bus.SubscribeFunc("**", func(ctx context.Context, ev any) error {
		count++
		return nil
	})

	topics := []topic.Topic{"breakpoint.hit", "execution.paused", "execution.state.changed"}
	for _, tp := range topics {
		bus.Publish(context.Background(), testEvent{Topic: tp})
	}

	if count != len(topics) {
		t.Errorf("catch-all received %d events, want %d", count, len(topics))
	}
}

func TestBus_FailingHandlerDoesNotBlockOthers(t *testing.T) {
	bus := quietBus()

	delivered := false
	bus.SubscribeFunc("execution.paused", func(ctx context.Context, ev any) error {
		return errors.New("handler failure")
	}, WithPriority(PriorityHigh))
	bus.SubscribeFunc("execution.paused", func(ctx context.Context, ev any) error {
		panic("handler panic")
	}, WithPriority(PriorityHigh))
	bus.SubscribeFunc("execution.paused", func(ctx context.Context, ev any) error {
		delivered = true
		return nil
	}, WithPriority(PriorityLow))

	if err := bus.Publish(context.Background(), testEvent{Topic: "execution.paused"}); err != nil {
		t.Fatalf("Publish() failed: %v", err)
	}

	if !delivered {
		t.Error("expected later subscriber to run despite earlier error and panic")
	}

	stats := bus.Stats()
	if stats.HandlerErrors != 1 {
		t.Errorf("HandlerErrors = %d, want 1", stats.HandlerErrors)
	}
	if stats.HandlerPanics != 1 {
		t.Errorf("HandlerPanics = %d, want 1", stats.HandlerPanics)
	}
}

func TestBus_PriorityOrdering(t *testing.T) {
	bus := quietBus()

	var order []string
	bus.SubscribeFunc("execution.paused", func(ctx context.Context, ev any) error {
		order = append(order, "low")
		return nil
	}, WithPriority(PriorityLow))
	bus.SubscribeFunc("execution.paused", func(ctx context.Context, ev any) error {
		order = append(order, "high")
		return nil
	}, WithPriority(PriorityHigh))

	bus.Publish(context.Background(), testEvent{Topic: "execution.paused"})

	if len(order) != 2 || order[0] != "high" || order[1] != "low" {
		t.Errorf("delivery order = %v, want [high low]", order)
	}
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := quietBus()

	count := 0
	sub, _ := bus.SubscribeFunc("breakpoint.*", func(ctx context.Context, ev any) error {
		count++
		return nil
	})

	bus.Publish(context.Background(), testEvent{Topic: "breakpoint.hit"})

	if err := bus.Unsubscribe(sub); err != nil {
		t.Fatalf("Unsubscribe() failed: %v", err)
	}
	if err := bus.Unsubscribe(sub); err != ErrSubscriptionNotFound {
		t.Errorf("second Unsubscribe() = %v, want ErrSubscriptionNotFound", err)
	}

	bus.Publish(context.Background(), testEvent{Topic: "breakpoint.hit"})

	if count != 1 {
		t.Errorf("received %d events after unsubscribe, want 1", count)
	}
}

func TestBus_SubscribeOnce(t *testing.T) {
	bus := quietBus()

	count := 0
	bus.SubscribeFunc("execution.paused", func(ctx context.Context, ev any) error {
		count++
		return nil
	}, WithOnce())

	bus.Publish(context.Background(), testEvent{Topic: "execution.paused"})
	bus.Publish(context.Background(), testEvent{Topic: "execution.paused"})

	if count != 1 {
		t.Errorf("once-subscription received %d events, want 1", count)
	}
}

func TestBus_PauseResumeSubscription(t *testing.T) {
	bus := quietBus()

	count := 0
	sub, _ := bus.SubscribeFunc("execution.paused", func(ctx context.Context, ev any) error {
		count++
		return nil
	})

	sub.Pause()
	bus.Publish(context.Background(), testEvent{Topic: "execution.paused"})
	if count != 0 {
		t.Errorf("paused subscription received %d events, want 0", count)
	}

	sub.Resume()
	bus.Publish(context.Background(), testEvent{Topic: "execution.paused"})
	if count != 1 {
		t.Errorf("resumed subscription received %d events, want 1", count)
	}
}

func TestBus_FilteredSubscription(t *testing.T) {
	bus := quietBus()

	var got []int
	bus.SubscribeFunc("breakpoint.hit", func(ctx context.Context, ev any) error {
		got = append(got, ev.(testEvent).Value)
		return nil
	}, WithFilter(func(ev any) bool {
		return ev.(testEvent).Value > 10
	}))

	bus.Publish(context.Background(), testEvent{Topic: "breakpoint.hit", Value: 5})
	bus.Publish(context.Background(), testEvent{Topic: "breakpoint.hit", Value: 20})

	if len(got) != 1 || got[0] != 20 {
		t.Errorf("filtered delivery = %v, want [20]", got)
	}
}

func TestBus_RejectsInvalidInput(t *testing.T) {
	bus := quietBus()

	if _, err := bus.Subscribe("", HandlerFunc(func(ctx context.Context, ev any) error { return nil })); err != ErrInvalidTopic {
		t.Errorf("Subscribe with empty topic = %v, want ErrInvalidTopic", err)
	}
	if _, err := bus.Subscribe("a.b", nil); err != ErrNilHandler {
		t.Errorf("Subscribe with nil handler = %v, want ErrNilHandler", err)
	}
	if err := bus.Publish(context.Background(), struct{}{}); err != ErrInvalidEvent {
		t.Errorf("Publish without topic = %v, want ErrInvalidEvent", err)
	}
	if err := bus.Unsubscribe(nil); err != ErrInvalidSubscription {
		t.Errorf("Unsubscribe(nil) = %v, want ErrInvalidSubscription", err)
	}
}
