package messaging

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/TADABA21/voting-app/internal/shared/events"
)

func TestBusDeliversInPublishOrder(t *testing.T) {
	bus := NewBus(nil)
	ctx, cancel := context.WithCancel(context.Background())

	var mu sync.Mutex
	var seen []string
	done := make(chan struct{})
	if err := bus.Subscribe(ctx, "topic", "group", func(_ context.Context, event events.Envelope) error {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, event.EventID)
		if len(seen) == 3 {
			close(done)
		}
		return nil
	}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	for _, id := range []string{"a", "b", "c"} {
		if err := bus.Publish(context.Background(), "topic", events.Envelope{EventID: id}); err != nil {
			t.Fatalf("publish: %v", err)
		}
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for delivery")
	}
	cancel()
	bus.Wait()

	mu.Lock()
	defer mu.Unlock()
	if seen[0] != "a" || seen[1] != "b" || seen[2] != "c" {
		t.Fatalf("expected publish order, got %v", seen)
	}
}

func TestBusIgnoresOtherTopicsAndHandlerErrors(t *testing.T) {
	bus := NewBus(nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan string, 4)
	_ = bus.Subscribe(ctx, "topic", "group", func(_ context.Context, event events.Envelope) error {
		got <- event.EventID
		return errors.New("handler failed")
	})

	_ = bus.Publish(context.Background(), "other", events.Envelope{EventID: "ignored"})
	_ = bus.Publish(context.Background(), "topic", events.Envelope{EventID: "first"})
	_ = bus.Publish(context.Background(), "topic", events.Envelope{EventID: "second"})

	for _, want := range []string{"first", "second"} {
		select {
		case id := <-got:
			if id != want {
				t.Fatalf("expected %s, got %s", want, id)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for %s", want)
		}
	}
}

func TestBusStopsDeliveringAfterCancel(t *testing.T) {
	bus := NewBus(nil)
	ctx, cancel := context.WithCancel(context.Background())
	_ = bus.Subscribe(ctx, "topic", "group", func(context.Context, events.Envelope) error { return nil })
	cancel()
	bus.Wait()

	bus.mu.RLock()
	defer bus.mu.RUnlock()
	if len(bus.subscribers["topic"]) != 0 {
		t.Fatalf("expected subscriber to be removed")
	}
}
