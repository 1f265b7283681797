package events

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"pickup_portal_backend/platform/logger"
)

type pingEvent struct {
	BaseEvent
}

func (pingEvent) EventName() string { return "test.ping" }

func TestInMemoryBusPublishSync(t *testing.T) {
	bus := NewInMemoryBus(logger.Discard())
	var calls []string

	bus.Subscribe("test.ping", HandlerFunc(func(_ context.Context, _ Event) error {
		calls = append(calls, "first")
		return errors.New("first failed")
	}))
	bus.Subscribe("test.ping", HandlerFunc(func(_ context.Context, _ Event) error {
		calls = append(calls, "second")
		return nil
	}))
	bus.Subscribe("test.other", HandlerFunc(func(_ context.Context, _ Event) error {
		calls = append(calls, "other")
		return nil
	}))

	err := bus.PublishSync(context.Background(), pingEvent{BaseEvent: NewBaseEvent()})
	if err == nil || err.Error() != "first failed" {
		t.Fatalf("expected first handler error, got %v", err)
	}
	if len(calls) != 2 || calls[0] != "first" || calls[1] != "second" {
		t.Fatalf("unexpected handler calls: %v", calls)
	}
}

func TestInMemoryBusPublishAsync(t *testing.T) {
	bus := NewInMemoryBus(logger.Discard())
	var count atomic.Int32

	for range 3 {
		bus.Subscribe("test.ping", HandlerFunc(func(_ context.Context, _ Event) error {
			count.Add(1)
			return nil
		}))
	}
	bus.Subscribe("test.ping", HandlerFunc(func(_ context.Context, _ Event) error {
		panic("boom")
	}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	bus.Publish(ctx, pingEvent{BaseEvent: NewBaseEvent()})
	bus.Wait()

	if got := count.Load(); got != 3 {
		t.Fatalf("expected 3 handler calls, got %d", got)
	}
}
