package events

import (
	"context"
	"sync"

	"pickup_portal_backend/platform/logger"
)

// InMemoryBus is an in-process Bus. Asynchronous publishes run each handler
// in its own goroutine; Wait blocks until those have returned.
type InMemoryBus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	log      *logger.Logger
	wg       sync.WaitGroup
}

var _ Bus = (*InMemoryBus)(nil)

// NewInMemoryBus creates an empty bus.
func NewInMemoryBus(log *logger.Logger) *InMemoryBus {
	return &InMemoryBus{
		handlers: make(map[string][]Handler),
		log:      log,
	}
}

// Subscribe registers a handler for eventName.
func (b *InMemoryBus) Subscribe(eventName string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventName] = append(b.handlers[eventName], handler)
}

// Publish dispatches event to its handlers without waiting. Handler errors
// are logged, never returned.
func (b *InMemoryBus) Publish(ctx context.Context, event Event) {
	// handlers outlive the request that published the event
	ctx = context.WithoutCancel(ctx)
	for _, h := range b.snapshot(event.EventName()) {
		b.wg.Add(1)
		go func(h Handler) {
			defer b.wg.Done()
			defer b.recoverHandler(event)
			if err := h.Handle(ctx, event); err != nil {
				b.log.WithContext(ctx).Error("event handler failed",
					"event", event.EventName(), "error", err)
			}
		}(h)
	}
}

// PublishSync runs every handler in registration order and returns the first error.
func (b *InMemoryBus) PublishSync(ctx context.Context, event Event) error {
	var first error
	for _, h := range b.snapshot(event.EventName()) {
		if err := h.Handle(ctx, event); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Wait blocks until all asynchronous handlers have finished.
func (b *InMemoryBus) Wait() {
	b.wg.Wait()
}

func (b *InMemoryBus) snapshot(eventName string) []Handler {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]Handler(nil), b.handlers[eventName]...)
}

func (b *InMemoryBus) recoverHandler(event Event) {
	if r := recover(); r != nil {
		b.log.Error("event handler panicked", "event", event.EventName(), "panic", r)
	}
}
